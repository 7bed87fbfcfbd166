// Package browsertest provides a scriptable in-memory browser.Window for testing the
// components that drive the remote site, without launching Chrome.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/term-sync/internal/browser"
)

type element struct {
	texts       []string
	appearAfter int // Exists checks that report absent before the element shows up
	checks      int
	options     map[string]bool // nil accepts any value
}

// Page is a fake document. Elements are keyed by Locator.String(), so a test declares
// exactly which locator strategies the page answers to.
type Page struct {
	mu sync.Mutex

	url      string
	elements map[string]*element
	frames   []*Page
	popups   map[string]*Page
	onClick  map[string][]func(*Page)
	detached bool
	closed   bool
	parent   *Page

	clicks      []string
	fills       map[string]string
	selects     map[string]string
	checks      map[string]bool
	navigations []string
}

// NewPage creates an empty page at url.
func NewPage(url string) *Page {
	return &Page{
		url:      url,
		elements: make(map[string]*element),
		popups:   make(map[string]*Page),
		onClick:  make(map[string][]func(*Page)),
		fills:    make(map[string]string),
		selects:  make(map[string]string),
		checks:   make(map[string]bool),
	}
}

// Set makes loc match an element with the given texts (one text per matched element).
func (p *Page) Set(loc browser.Locator, texts ...string) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements[loc.String()] = &element{texts: texts}
	return p
}

// SetAfter makes loc match only after n Exists checks reported it absent.
func (p *Page) SetAfter(loc browser.Locator, n int, texts ...string) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements[loc.String()] = &element{texts: texts, appearAfter: n}
	return p
}

// SetOptions makes loc a <select> accepting only the given option values.
func (p *Page) SetOptions(loc browser.Locator, values ...string) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	opts := make(map[string]bool, len(values))
	for _, v := range values {
		opts[v] = true
	}
	p.elements[loc.String()] = &element{options: opts}
	return p
}

// Remove makes loc match nothing.
func (p *Page) Remove(loc browser.Locator) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.elements, loc.String())
	return p
}

// OnClick registers fn to run after loc is clicked. fn receives this page.
func (p *Page) OnClick(loc browser.Locator, fn func(*Page)) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := loc.String()
	p.onClick[key] = append(p.onClick[key], fn)
	return p
}

// AddFrame attaches a child frame at url and returns it.
func (p *Page) AddFrame(url string) *Page {
	f := NewPage(url)
	p.mu.Lock()
	defer p.mu.Unlock()
	f.parent = p
	p.frames = append(p.frames, f)
	return f
}

// ReplaceFrame detaches every current frame and attaches a fresh one at url, the way a
// navigation inside the window invalidates previously acquired frame handles.
func (p *Page) ReplaceFrame(url string) *Page {
	p.mu.Lock()
	for _, f := range p.frames {
		f.mu.Lock()
		f.detached = true
		f.mu.Unlock()
	}
	p.frames = nil
	p.mu.Unlock()
	return p.AddFrame(url)
}

// DetachFrames detaches every frame without replacing it.
func (p *Page) DetachFrames() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, f := range p.frames {
		f.mu.Lock()
		f.detached = true
		f.mu.Unlock()
	}
	p.frames = nil
}

// SetPopup makes clicking loc open popup.
func (p *Page) SetPopup(loc browser.Locator, popup *Page) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.popups[loc.String()] = popup
	if _, ok := p.elements[loc.String()]; !ok {
		p.elements[loc.String()] = &element{}
	}
	return p
}

// Frame returns the i-th live frame.
func (p *Page) Frame(i int) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i >= len(p.frames) {
		return nil
	}
	return p.frames[i]
}

// Clicks returns the locators clicked, in order.
func (p *Page) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicks...)
}

// Clicked reports whether loc was clicked at least once.
func (p *Page) Clicked(loc browser.Locator) bool {
	for _, c := range p.Clicks() {
		if c == loc.String() {
			return true
		}
	}
	return false
}

// Filled returns the last value filled into loc.
func (p *Page) Filled(loc browser.Locator) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.fills[loc.String()]
	return v, ok
}

// Selected returns the last value selected in loc.
func (p *Page) Selected(loc browser.Locator) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.selects[loc.String()]
	return v, ok
}

// Checked returns the last checkbox state set through loc.
func (p *Page) Checked(loc browser.Locator) (checked, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	checked, ok = p.checks[loc.String()]
	return checked, ok
}

// Navigations returns every URL navigated to.
func (p *Page) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

// Closed reports whether Close was called.
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Page) lookup(loc browser.Locator, countCheck bool) (*element, error) {
	if p.detached {
		return nil, browser.ErrDetached
	}
	el, ok := p.elements[loc.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", browser.ErrNotFound, loc)
	}
	if el.checks < el.appearAfter {
		if countCheck {
			el.checks++
		}
		return nil, fmt.Errorf("%w: %s", browser.ErrNotFound, loc)
	}
	return el, nil
}

// Location implements browser.Surface.
func (p *Page) Location(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.detached {
		return "", browser.ErrDetached
	}
	return p.url, nil
}

// Exists implements browser.Surface.
func (p *Page) Exists(_ context.Context, loc browser.Locator) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.detached {
		return false, browser.ErrDetached
	}
	_, err := p.lookup(loc, true)
	return err == nil, nil
}

// Click implements browser.Surface.
func (p *Page) Click(_ context.Context, loc browser.Locator) error {
	p.mu.Lock()
	if _, err := p.lookup(loc, false); err != nil {
		p.mu.Unlock()
		return err
	}
	key := loc.String()
	p.clicks = append(p.clicks, key)
	hooks := append([]func(*Page){}, p.onClick[key]...)
	p.mu.Unlock()

	for _, fn := range hooks {
		fn(p)
	}
	return nil
}

// Fill implements browser.Surface.
func (p *Page) Fill(_ context.Context, loc browser.Locator, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.lookup(loc, false); err != nil {
		return err
	}
	p.fills[loc.String()] = value
	return nil
}

// Select implements browser.Surface.
func (p *Page) Select(_ context.Context, loc browser.Locator, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, err := p.lookup(loc, false)
	if err != nil {
		return err
	}
	if el.options != nil && !el.options[value] {
		return fmt.Errorf("%w: %q in %s", browser.ErrNoOption, value, loc)
	}
	p.selects[loc.String()] = value
	return nil
}

// SetChecked implements browser.Surface.
func (p *Page) SetChecked(_ context.Context, loc browser.Locator, checked bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.lookup(loc, false); err != nil {
		return err
	}
	p.checks[loc.String()] = checked
	return nil
}

// Texts implements browser.Surface. An absent locator yields no texts.
func (p *Page) Texts(_ context.Context, loc browser.Locator) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.detached {
		return nil, browser.ErrDetached
	}
	el, err := p.lookup(loc, false)
	if err != nil {
		return nil, nil
	}
	return append([]string(nil), el.texts...), nil
}

// Navigate implements browser.Window.
func (p *Page) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigations = append(p.navigations, url)
	p.url = url
	return nil
}

// ClickForPopup implements browser.Window.
func (p *Page) ClickForPopup(ctx context.Context, loc browser.Locator, _ time.Duration) (browser.Window, error) {
	if err := p.Click(ctx, loc); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	popup, ok := p.popups[loc.String()]
	if !ok {
		return nil, fmt.Errorf("%w: popup from %s", browser.ErrTimeout, loc)
	}
	return popup, nil
}

// FindFrame implements browser.Window.
func (p *Page) FindFrame(_ context.Context, marker string) (browser.Surface, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, f := range p.frames {
		if strings.Contains(f.url, marker) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: no frame address contains %q", browser.ErrFrameNotFound, marker)
}

// FrameURLs implements browser.Window.
func (p *Page) FrameURLs(context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	urls := make([]string, 0, len(p.frames))
	for _, f := range p.frames {
		urls = append(urls, f.url)
	}
	return urls, nil
}

// Screenshot implements browser.Window with a fixed payload.
func (p *Page) Screenshot(context.Context) ([]byte, error) {
	return []byte("PNG"), nil
}

// Close implements browser.Window.
func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Launcher hands out pre-built windows, one per Launch call.
type Launcher struct {
	mu       sync.Mutex
	windows  []*Page
	launched int
}

// NewLauncher returns a launcher serving windows in order.
func NewLauncher(windows ...*Page) *Launcher {
	return &Launcher{windows: windows}
}

// Launch implements browser.Launcher.
func (l *Launcher) Launch(context.Context) (browser.Window, func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.launched >= len(l.windows) {
		return nil, nil, fmt.Errorf("browsertest: no window left for launch %d", l.launched+1)
	}
	w := l.windows[l.launched]
	l.launched++
	return w, func() { _ = w.Close() }, nil
}

// Launched returns how many sessions were started.
func (l *Launcher) Launched() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launched
}
