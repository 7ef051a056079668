package browser

import (
	"context"
	"fmt"
	"sync"
)

// mockDriver is an in-memory PageDriver that records every call, letting
// interactor tests assert on dispatched events without a real browser.
type mockDriver struct {
	mu sync.Mutex

	geometries map[string]ElementGeometry
	urls       []string

	moves      []point
	clicks     []string
	keys       []string
	evaluated  []string
	navigated  []string
	currentURL string

	failGeometry  error
	failClick     error
	failSendKeys  error
	failMouseMove error
}

type point struct{ x, y float64 }

func newMockDriver() *mockDriver {
	return &mockDriver{geometries: map[string]ElementGeometry{}}
}

func (m *mockDriver) Navigate(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.navigated = append(m.navigated, url)
	m.currentURL = url
	return nil
}

func (m *mockDriver) Select(_ context.Context, selector string) (ElementHandle, error) {
	return BySelector(selector), nil
}

func (m *mockDriver) Find(_ context.Context, text string) (ElementHandle, error) {
	return ByText(text), nil
}

func (m *mockDriver) Click(_ context.Context, el ElementHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failClick != nil {
		return m.failClick
	}
	m.clicks = append(m.clicks, el.String())
	return nil
}

func (m *mockDriver) SendKeys(_ context.Context, el ElementHandle, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSendKeys != nil {
		return m.failSendKeys
	}
	m.keys = append(m.keys, text)
	return nil
}

func (m *mockDriver) Geometry(_ context.Context, el ElementHandle) (ElementGeometry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGeometry != nil {
		return ElementGeometry{}, m.failGeometry
	}
	if geo, ok := m.geometries[el.String()]; ok {
		return geo, nil
	}
	return ElementGeometry{X: 200, Y: 200, Width: 120, Height: 40}, nil
}

func (m *mockDriver) Evaluate(_ context.Context, script string, _ any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluated = append(m.evaluated, script)
	return nil
}

func (m *mockDriver) CurrentURL(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentURL, nil
}

func (m *mockDriver) Screenshot(_ context.Context, path string) error {
	return fmt.Errorf("mock: no screenshots")
}

func (m *mockDriver) DispatchMouseMove(_ context.Context, x, y float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failMouseMove != nil {
		return m.failMouseMove
	}
	m.moves = append(m.moves, point{x, y})
	return nil
}

func (m *mockDriver) movesSnapshot() []point {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]point, len(m.moves))
	copy(out, m.moves)
	return out
}

func (m *mockDriver) keysSnapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *mockDriver) clicksSnapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.clicks))
	copy(out, m.clicks)
	return out
}
