package workflow

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/voidmaw/regflow/internal/browser"
	"github.com/voidmaw/regflow/internal/mailbox"
)

// scriptedDriver is an in-memory PageDriver for workflow tests. Every
// selector resolves, every click lands, and the final URL is whatever the
// test scripted.
type scriptedDriver struct {
	mu sync.Mutex

	url     string
	checked map[string]bool

	navigated   []string
	clicks      []string
	keys        map[string][]string
	evaluated   []string
	screenshots []string
	moves       int

	failSelect     map[string]error
	failScreenshot error
}

func newScriptedDriver() *scriptedDriver {
	return &scriptedDriver{
		url:        "https://signup.example.com/",
		checked:    map[string]bool{},
		keys:       map[string][]string{},
		failSelect: map[string]error{},
	}
}

func (d *scriptedDriver) Navigate(_ context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.navigated = append(d.navigated, url)
	return nil
}

func (d *scriptedDriver) Select(_ context.Context, selector string) (browser.ElementHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failSelect[selector]; err != nil {
		return browser.ElementHandle{}, err
	}
	return browser.BySelector(selector), nil
}

func (d *scriptedDriver) Find(_ context.Context, text string) (browser.ElementHandle, error) {
	return browser.ByText(text), nil
}

func (d *scriptedDriver) Click(_ context.Context, el browser.ElementHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clicks = append(d.clicks, el.String())
	return nil
}

func (d *scriptedDriver) SendKeys(_ context.Context, el browser.ElementHandle, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys[el.String()] = append(d.keys[el.String()], text)
	return nil
}

func (d *scriptedDriver) Geometry(context.Context, browser.ElementHandle) (browser.ElementGeometry, error) {
	return browser.ElementGeometry{X: 300, Y: 200, Width: 1, Height: 1}, nil
}

func (d *scriptedDriver) Evaluate(_ context.Context, script string, out any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.evaluated = append(d.evaluated, script)
	if b, ok := out.(*bool); ok {
		for selector, checked := range d.checked {
			if strings.Contains(script, selector) {
				*b = checked
			}
		}
	}
	return nil
}

func (d *scriptedDriver) CurrentURL(context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url, nil
}

func (d *scriptedDriver) Screenshot(_ context.Context, path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failScreenshot != nil {
		return d.failScreenshot
	}
	d.screenshots = append(d.screenshots, path)
	return nil
}

func (d *scriptedDriver) DispatchMouseMove(context.Context, float64, float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.moves++
	return nil
}

func (d *scriptedDriver) typed(selector string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return strings.Join(d.keys[selector], "")
}

func (d *scriptedDriver) clickCount(handle string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.clicks {
		if c == handle {
			n++
		}
	}
	return n
}

func (d *scriptedDriver) screenshotsSnapshot() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.screenshots))
	copy(out, d.screenshots)
	return out
}

// fakePoller scripts a sequence of PollNewCode results and records the
// baselines it was handed.
type fakePoller struct {
	mu sync.Mutex

	baseline mailbox.CodeSet
	codes    []string

	baselineCalls int
	pollCalls     int
	seenBaselines []mailbox.CodeSet

	err error
}

func (p *fakePoller) BaselineCodes(context.Context, string) (mailbox.CodeSet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.baselineCalls++
	if p.err != nil {
		return nil, p.err
	}
	if p.baseline == nil {
		return mailbox.CodeSet{}, nil
	}
	return p.baseline, nil
}

func (p *fakePoller) PollNewCode(_ context.Context, _ string, baseline mailbox.CodeSet, _ time.Duration) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seenBaselines = append(p.seenBaselines, baseline)
	call := p.pollCalls
	p.pollCalls++
	if p.err != nil {
		return "", p.err
	}
	if call < len(p.codes) {
		return p.codes[call], nil
	}
	return "", nil
}

func (p *fakePoller) polls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pollCalls
}
