package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// tab is a chromedp-backed Window.
type tab struct {
	*domSurface
	cancel context.CancelFunc
}

func newTab(ctx context.Context, cancel context.CancelFunc, opTimeout time.Duration, log zerolog.Logger) *tab {
	t := &tab{cancel: cancel}
	t.domSurface = &domSurface{ctx: ctx, opTimeout: opTimeout, log: log}
	return t
}

// domSurface runs queries against the tab document, or against a frame's content
// document when frame is set.
type domSurface struct {
	ctx       context.Context // chromedp target context
	opTimeout time.Duration
	log       zerolog.Logger

	frame    *cdp.Node
	frameURL string
}

// op derives a per-call context from the target context, bounded by opTimeout and
// cancelled early if the caller's ctx ends.
func (s *domSurface) op(ctx context.Context) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithTimeout(s.ctx, s.opTimeout)
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

func (s *domSurface) Location(ctx context.Context) (string, error) {
	if s.frame != nil {
		return s.frameURL, nil
	}
	opCtx, cancel := s.op(ctx)
	defer cancel()
	var loc string
	if err := chromedp.Run(opCtx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return loc, nil
}

// find returns the nodes matching loc, following label redirects.
func (s *domSurface) find(opCtx context.Context, loc Locator) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	opts := []chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}
	if s.frame != nil {
		opts = append(opts, chromedp.FromNode(s.frame))
	}
	if err := chromedp.Run(opCtx, chromedp.Nodes(loc.Selector(), &nodes, opts...)); err != nil {
		if s.frame != nil {
			return nil, fmt.Errorf("%w: %v", ErrDetached, err)
		}
		return nil, err
	}

	var matched []*cdp.Node
	for _, n := range nodes {
		el := Element{Tag: strings.ToLower(n.NodeName), Attrs: attrMap(n)}
		if NeedsText(loc) {
			text, err := nodeText(opCtx, n)
			if err != nil {
				continue
			}
			el.Text = text
		}
		if !loc.Accept(el) {
			continue
		}
		if r, ok := loc.(Redirector); ok {
			target, ok := r.Redirect(el)
			if !ok {
				continue
			}
			redirected, err := s.find(opCtx, target)
			if err != nil {
				return nil, err
			}
			matched = append(matched, redirected...)
			continue
		}
		matched = append(matched, n)
	}
	return matched, nil
}

func (s *domSurface) first(opCtx context.Context, loc Locator) (*cdp.Node, error) {
	nodes, err := s.find(opCtx, loc)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
	}
	return nodes[0], nil
}

func (s *domSurface) Exists(ctx context.Context, loc Locator) (bool, error) {
	opCtx, cancel := s.op(ctx)
	defer cancel()
	nodes, err := s.find(opCtx, loc)
	if err != nil {
		return false, err
	}
	return len(nodes) > 0, nil
}

func (s *domSurface) Click(ctx context.Context, loc Locator) error {
	opCtx, cancel := s.op(ctx)
	defer cancel()
	n, err := s.first(opCtx, loc)
	if err != nil {
		return err
	}
	if err := chromedp.Run(opCtx, chromedp.MouseClickNode(n)); err != nil {
		// Nodes hidden behind PeopleSoft overlays reject synthetic mouse input but still
		// honour a DOM click.
		s.log.Debug().Err(err).Str("locator", loc.String()).Msg("mouse click failed, using DOM click")
		if err := callOn(opCtx, n, `function() { this.click(); }`, nil); err != nil {
			return fmt.Errorf("click %s: %w", loc, err)
		}
	}
	return nil
}

func (s *domSurface) Fill(ctx context.Context, loc Locator, value string) error {
	opCtx, cancel := s.op(ctx)
	defer cancel()
	n, err := s.first(opCtx, loc)
	if err != nil {
		return err
	}
	js := fmt.Sprintf(`function() {
		this.focus();
		this.value = %s;
		this.dispatchEvent(new Event('input', {bubbles: true}));
		this.dispatchEvent(new Event('change', {bubbles: true}));
	}`, jsString(value))
	if err := callOn(opCtx, n, js, nil); err != nil {
		return fmt.Errorf("fill %s: %w", loc, err)
	}
	return nil
}

func (s *domSurface) Select(ctx context.Context, loc Locator, value string) error {
	opCtx, cancel := s.op(ctx)
	defer cancel()
	n, err := s.first(opCtx, loc)
	if err != nil {
		return err
	}
	js := fmt.Sprintf(`function() {
		const v = %s;
		if (!Array.from(this.options || []).some(o => o.value === v)) { return false; }
		this.value = v;
		this.dispatchEvent(new Event('change', {bubbles: true}));
		return true;
	}`, jsString(value))
	var ok bool
	if err := callOn(opCtx, n, js, &ok); err != nil {
		return fmt.Errorf("select %s: %w", loc, err)
	}
	if !ok {
		return fmt.Errorf("%w: %q in %s", ErrNoOption, value, loc)
	}
	return nil
}

func (s *domSurface) SetChecked(ctx context.Context, loc Locator, checked bool) error {
	opCtx, cancel := s.op(ctx)
	defer cancel()
	n, err := s.first(opCtx, loc)
	if err != nil {
		return err
	}
	js := fmt.Sprintf(`function() {
		const box = this.tagName === 'LABEL' ? this.ownerDocument.getElementById(this.htmlFor) : this;
		if (!box) { return false; }
		if (box.checked !== %t) { box.click(); }
		return true;
	}`, checked)
	var ok bool
	if err := callOn(opCtx, n, js, &ok); err != nil {
		return fmt.Errorf("check %s: %w", loc, err)
	}
	if !ok {
		return fmt.Errorf("%w: checkbox for %s", ErrNotFound, loc)
	}
	return nil
}

func (s *domSurface) Texts(ctx context.Context, loc Locator) ([]string, error) {
	opCtx, cancel := s.op(ctx)
	defer cancel()
	nodes, err := s.find(opCtx, loc)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		text, err := nodeText(opCtx, n)
		if err != nil {
			return nil, fmt.Errorf("read text of %s: %w", loc, err)
		}
		texts = append(texts, text)
	}
	return texts, nil
}

func (t *tab) Navigate(ctx context.Context, url string) error {
	opCtx, cancel := t.op(ctx)
	defer cancel()
	if err := chromedp.Run(opCtx, chromedp.Navigate(url), chromedp.WaitReady("body")); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (t *tab) ClickForPopup(ctx context.Context, loc Locator, timeout time.Duration) (Window, error) {
	c := chromedp.FromContext(t.ctx)
	if c == nil || c.Target == nil {
		return nil, errors.New("tab has no target")
	}
	opener := c.Target.TargetID

	waitCtx, cancelWait := context.WithTimeout(t.ctx, timeout)
	defer cancelWait()
	ch := chromedp.WaitNewTarget(waitCtx, func(info *target.Info) bool {
		return info.OpenerID == opener
	})

	if err := t.Click(ctx, loc); err != nil {
		return nil, err
	}

	var id target.ID
	select {
	case id = <-ch:
	case <-waitCtx.Done():
		return nil, fmt.Errorf("%w: popup from %s", ErrTimeout, loc)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	popCtx, cancelPop := chromedp.NewContext(t.ctx, chromedp.WithTargetID(id))
	popup := newTab(popCtx, cancelPop, t.opTimeout, t.log.With().Str("window", "popup").Logger())

	loadCtx, cancelLoad := popup.op(ctx)
	defer cancelLoad()
	if err := chromedp.Run(loadCtx, chromedp.WaitReady("body")); err != nil {
		cancelPop()
		return nil, fmt.Errorf("popup did not load: %w", err)
	}
	return popup, nil
}

type frameRef struct {
	node *cdp.Node
	url  string
}

func (t *tab) frames(ctx context.Context) ([]frameRef, error) {
	opCtx, cancel := t.op(ctx)
	defer cancel()
	var nodes []*cdp.Node
	if err := chromedp.Run(opCtx, chromedp.Nodes("iframe, frame", &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("failed to list frames: %w", err)
	}
	refs := make([]frameRef, 0, len(nodes))
	for _, n := range nodes {
		refs = append(refs, frameRef{node: n, url: frameAddress(n)})
	}
	return refs, nil
}

func (t *tab) FindFrame(ctx context.Context, marker string) (Surface, error) {
	refs, err := t.frames(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range refs {
		if strings.Contains(r.url, marker) {
			return &domSurface{
				ctx:       t.ctx,
				opTimeout: t.opTimeout,
				log:       t.log,
				frame:     r.node,
				frameURL:  r.url,
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: no frame address contains %q", ErrFrameNotFound, marker)
}

func (t *tab) FrameURLs(ctx context.Context) ([]string, error) {
	refs, err := t.frames(ctx)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(refs))
	for _, r := range refs {
		urls = append(urls, r.url)
	}
	return urls, nil
}

func (t *tab) Screenshot(ctx context.Context) ([]byte, error) {
	opCtx, cancel := t.op(ctx)
	defer cancel()
	var buf []byte
	if err := chromedp.Run(opCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return buf, nil
}

func (t *tab) Close() error {
	if t.cancel != nil {
		t.cancel()
	}
	return nil
}

// frameAddress prefers the loaded document URL over the src attribute, which goes stale
// once the frame navigates itself.
func frameAddress(n *cdp.Node) string {
	if n.ContentDocument != nil && n.ContentDocument.DocumentURL != "" {
		return n.ContentDocument.DocumentURL
	}
	return n.AttributeValue("src")
}

func attrMap(n *cdp.Node) map[string]string {
	attrs := make(map[string]string, len(n.Attributes)/2)
	for i := 0; i+1 < len(n.Attributes); i += 2 {
		attrs[n.Attributes[i]] = n.Attributes[i+1]
	}
	return attrs
}

// nodeText reads a node's outer HTML and returns its text content.
func nodeText(ctx context.Context, n *cdp.Node) (string, error) {
	var html string
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		html, err = dom.GetOuterHTML().WithNodeID(n.NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse node HTML: %w", err)
	}
	return doc.Find("body").Text(), nil
}

// callOn invokes a JavaScript function with the node bound to this and decodes the
// return value into res when res is non-nil.
func callOn(ctx context.Context, n *cdp.Node, fn string, res any) error {
	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(n.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		ret, exc, err := runtime.CallFunctionOn(fn).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		if res == nil || ret == nil || len(ret.Value) == 0 {
			return nil
		}
		return json.Unmarshal([]byte(ret.Value), res)
	}))
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
