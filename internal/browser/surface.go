package browser

import (
	"context"
	"time"
)

// Surface is a document the automation can interact with: a top-level window or a frame
// inside one. Every call is bounded by the implementation's per-operation timeout.
type Surface interface {
	// Location returns the document address.
	Location(ctx context.Context) (string, error)
	// Exists reports whether loc currently matches an element.
	Exists(ctx context.Context, loc Locator) (bool, error)
	// Click clicks the first element loc matches.
	Click(ctx context.Context, loc Locator) error
	// Fill replaces the value of the first text field loc matches.
	Fill(ctx context.Context, loc Locator, value string) error
	// Select chooses the option with the given value in the first <select> loc matches.
	Select(ctx context.Context, loc Locator, value string) error
	// SetChecked puts the checkbox loc matches (or the one its <label> targets) into the
	// wanted state, clicking only if it differs.
	SetChecked(ctx context.Context, loc Locator, checked bool) error
	// Texts returns the text content of every element loc matches, in document order.
	Texts(ctx context.Context, loc Locator) ([]string, error)
}

// Window is a top-level browsing context (the login tab or a popup).
type Window interface {
	Surface
	Navigate(ctx context.Context, url string) error
	// ClickForPopup clicks loc and returns the window it opens.
	ClickForPopup(ctx context.Context, loc Locator, timeout time.Duration) (Window, error)
	// FindFrame returns the first nested frame whose address contains marker, or
	// ErrFrameNotFound.
	FindFrame(ctx context.Context, marker string) (Surface, error)
	// FrameURLs lists the addresses of every nested frame, for diagnostics.
	FrameURLs(ctx context.Context) ([]string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Launcher opens a fresh, isolated browser session. The returned func releases it.
type Launcher interface {
	Launch(ctx context.Context) (Window, func(), error)
}
