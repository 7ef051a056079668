package browser

import "context"

// ElementHandle identifies a page element either by CSS selector or by a
// visible-text search. It is resolved lazily by the driver on each use, which
// keeps handles valid across re-renders of dynamic forms.
type ElementHandle struct {
	selector string
	byText   bool
}

// BySelector builds a handle resolved with a CSS selector query.
func BySelector(selector string) ElementHandle {
	return ElementHandle{selector: selector}
}

// ByText builds a handle resolved by searching the page for visible text.
func ByText(text string) ElementHandle {
	return ElementHandle{selector: text, byText: true}
}

// String renders the handle for logs and error messages.
func (e ElementHandle) String() string {
	if e.byText {
		return "text:" + e.selector
	}
	return e.selector
}

// ElementGeometry is the on-screen bounding box of an element.
type ElementGeometry struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// PageDriver is the narrow capability contract between the workflow core and
// the underlying browser transport. The core never touches CDP directly; in
// tests the whole transport is mocked behind this interface.
type PageDriver interface {
	// Navigate loads a URL in the driven tab.
	Navigate(ctx context.Context, url string) error
	// Select waits for an element matching a CSS selector to become ready.
	Select(ctx context.Context, selector string) (ElementHandle, error)
	// Find locates an element by its visible text.
	Find(ctx context.Context, text string) (ElementHandle, error)
	// Click performs a logical click on the element.
	Click(ctx context.Context, el ElementHandle) error
	// SendKeys types text into the element without pacing; pacing is the
	// interactor's job, one character at a time.
	SendKeys(ctx context.Context, el ElementHandle, text string) error
	// Geometry returns the element's bounding box in page coordinates.
	Geometry(ctx context.Context, el ElementHandle) (ElementGeometry, error)
	// Evaluate runs a script in the page, unmarshaling its result into out
	// when out is non-nil.
	Evaluate(ctx context.Context, script string, out any) error
	// CurrentURL reports the location of the driven tab.
	CurrentURL(ctx context.Context) (string, error)
	// Screenshot captures the viewport to a PNG file.
	Screenshot(ctx context.Context, path string) error
	// DispatchMouseMove emits a single raw mouse-move event.
	DispatchMouseMove(ctx context.Context, x, y float64) error
}
