package browser

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/voidmaw/regflow/internal/retry"
)

// CDPDriver implements PageDriver over a chromedp tab. Every remote
// interaction is bounded by the session's action timeout and wrapped in the
// single-action retry policy; transient DOM errors never reach the workflow
// unless retries are exhausted.
type CDPDriver struct {
	tabCtx  context.Context
	policy  retry.Policy
	timeout time.Duration
	logger  *zap.Logger
}

var _ PageDriver = (*CDPDriver)(nil)

func newCDPDriver(tabCtx context.Context, opts SessionOptions, logger *zap.Logger) *CDPDriver {
	return &CDPDriver{
		tabCtx:  tabCtx,
		policy:  opts.RetryPolicy,
		timeout: opts.ActionTimeout,
		logger:  logger.Named("driver"),
	}
}

// run executes chromedp actions against the session tab, honouring both the
// caller's context and the per-action timeout. chromedp requires its own
// context chain, so the caller's cancellation is bridged with AfterFunc.
func (d *CDPDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithTimeout(d.tabCtx, d.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(opCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (e ElementHandle) queryOption() chromedp.QueryOption {
	if e.byText {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// Navigate loads a URL in the session tab.
func (d *CDPDriver) Navigate(ctx context.Context, url string) error {
	return retry.Run(ctx, d.policy, d.logger, fmt.Sprintf("navigate %s", url), func(ctx context.Context) error {
		return d.run(ctx, chromedp.Navigate(url))
	})
}

// Select waits until an element matching the CSS selector is ready.
func (d *CDPDriver) Select(ctx context.Context, selector string) (ElementHandle, error) {
	el := BySelector(selector)
	err := retry.Run(ctx, d.policy, d.logger, fmt.Sprintf("select %q", selector), func(ctx context.Context) error {
		return d.run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery))
	})
	if err != nil {
		return ElementHandle{}, fmt.Errorf("browser: select %q: %w", selector, err)
	}
	return el, nil
}

// Find waits until an element with the given visible text is ready.
func (d *CDPDriver) Find(ctx context.Context, text string) (ElementHandle, error) {
	el := ByText(text)
	err := retry.Run(ctx, d.policy, d.logger, fmt.Sprintf("find %q", text), func(ctx context.Context) error {
		return d.run(ctx, chromedp.WaitReady(text, chromedp.BySearch))
	})
	if err != nil {
		return ElementHandle{}, fmt.Errorf("browser: find %q: %w", text, err)
	}
	return el, nil
}

// Click performs the logical click on an element. The humanlike cursor
// approach happens before this, in the interactor.
func (d *CDPDriver) Click(ctx context.Context, el ElementHandle) error {
	err := retry.Run(ctx, d.policy, d.logger, fmt.Sprintf("click %s", el), func(ctx context.Context) error {
		return d.run(ctx, chromedp.Click(el.selector, el.queryOption(), chromedp.NodeVisible))
	})
	if err != nil {
		return fmt.Errorf("browser: click %s: %w", el, err)
	}
	return nil
}

// SendKeys types text into an element in one burst. Per-character pacing is
// layered on top by the interactor.
func (d *CDPDriver) SendKeys(ctx context.Context, el ElementHandle, text string) error {
	err := retry.Run(ctx, d.policy, d.logger, fmt.Sprintf("type into %s", el), func(ctx context.Context) error {
		return d.run(ctx, chromedp.SendKeys(el.selector, text, el.queryOption()))
	})
	if err != nil {
		return fmt.Errorf("browser: type into %s: %w", el, err)
	}
	return nil
}

// Geometry returns the element's bounding box derived from its CDP box model.
func (d *CDPDriver) Geometry(ctx context.Context, el ElementHandle) (ElementGeometry, error) {
	var model *dom.BoxModel
	err := retry.Run(ctx, d.policy, d.logger, fmt.Sprintf("geometry %s", el), func(ctx context.Context) error {
		return d.run(ctx, chromedp.Dimensions(el.selector, &model, el.queryOption()))
	})
	if err != nil {
		return ElementGeometry{}, fmt.Errorf("browser: geometry %s: %w", el, err)
	}
	if model == nil || len(model.Content) < 8 {
		return ElementGeometry{}, fmt.Errorf("browser: element %s returned no box model", el)
	}
	// Content holds four (x, y) vertices; the top-left corner is the minimum.
	x, y := model.Content[0], model.Content[1]
	for i := 2; i < 8; i += 2 {
		if model.Content[i] < x {
			x = model.Content[i]
		}
		if model.Content[i+1] < y {
			y = model.Content[i+1]
		}
	}
	return ElementGeometry{
		X:      x,
		Y:      y,
		Width:  float64(model.Width),
		Height: float64(model.Height),
	}, nil
}

// Evaluate runs a script in the page. A nil out discards the result.
func (d *CDPDriver) Evaluate(ctx context.Context, script string, out any) error {
	err := retry.Run(ctx, d.policy, d.logger, "evaluate script", func(ctx context.Context) error {
		return d.run(ctx, chromedp.Evaluate(script, out))
	})
	if err != nil {
		return fmt.Errorf("browser: evaluate: %w", err)
	}
	return nil
}

// CurrentURL reports the tab's location.
func (d *CDPDriver) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := retry.Run(ctx, d.policy, d.logger, "read location", func(ctx context.Context) error {
		return d.run(ctx, chromedp.Location(&url))
	})
	if err != nil {
		return "", fmt.Errorf("browser: current url: %w", err)
	}
	return url, nil
}

// Screenshot captures the viewport to a PNG file. Used for failure
// postmortems, so it is not retried; a slow capture would only delay the
// verdict.
func (d *CDPDriver) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := d.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("browser: screenshot: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("browser: write screenshot: %w", err)
	}
	return nil
}

// DispatchMouseMove emits one raw mouse-move event. Motion replay issues
// hundreds of these per movement; they are intentionally not retried because
// a lost sample is invisible while a stutter-retry breaks the pacing.
func (d *CDPDriver) DispatchMouseMove(ctx context.Context, x, y float64) error {
	return d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
}
