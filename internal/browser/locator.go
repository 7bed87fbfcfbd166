package browser

import (
	"fmt"
	"strings"
)

// Strategy names how a Locator finds its element.
type Strategy string

const (
	// StrategyRole matches by ARIA role and accessible name.
	StrategyRole Strategy = "role"
	// StrategyLabel matches a form field through the text of its <label>.
	StrategyLabel Strategy = "label"
	// StrategyText matches candidate elements by visible text.
	StrategyText Strategy = "text"
	// StrategyCSS matches a structural CSS selector.
	StrategyCSS Strategy = "css"
)

// Element is the view of a DOM node a Locator filters on.
type Element struct {
	Tag   string
	Attrs map[string]string
	Text  string
}

// Locator finds one kind of element. Selector narrows candidates with CSS; Accept picks
// among them.
type Locator interface {
	Strategy() Strategy
	Selector() string
	Accept(el Element) bool
	String() string
}

// textual is implemented by locators whose Accept reads Element.Text.
type textual interface {
	needsText() bool
}

// NeedsText reports whether loc filters on element text.
func NeedsText(loc Locator) bool {
	t, ok := loc.(textual)
	return ok && t.needsText()
}

// Redirector is implemented by locators whose match points at another element,
// such as a <label> pointing at its field.
type Redirector interface {
	Redirect(el Element) (Locator, bool)
}

// implicitRoles maps ARIA roles to the native elements that carry them implicitly.
var implicitRoles = map[string]string{
	"button":   `button, input[type="button"], input[type="submit"], a.PSPUSHBUTTON`,
	"link":     `a[href]`,
	"textbox":  `input[type="text"], input:not([type]), textarea`,
	"combobox": `select`,
	"checkbox": `input[type="checkbox"]`,
}

type roleLocator struct {
	role string
	name string
}

// ByRole matches elements with the given ARIA role whose accessible name contains name
// (case-insensitive). An empty name accepts every element of the role.
func ByRole(role, name string) Locator {
	return roleLocator{role: role, name: name}
}

func (l roleLocator) Strategy() Strategy { return StrategyRole }

func (l roleLocator) Selector() string {
	sel := fmt.Sprintf(`[role=%q]`, l.role)
	if implicit, ok := implicitRoles[l.role]; ok {
		sel += ", " + implicit
	}
	return sel
}

func (l roleLocator) Accept(el Element) bool {
	if l.name == "" {
		return true
	}
	return containsFold(accessibleName(el), l.name)
}

func (l roleLocator) needsText() bool { return l.name != "" }

func (l roleLocator) String() string {
	if l.name == "" {
		return fmt.Sprintf("role=%s", l.role)
	}
	return fmt.Sprintf("role=%s[name=%q]", l.role, l.name)
}

type labelLocator struct {
	text string
}

// ByLabel matches the form field a <label for=...> containing text points at.
func ByLabel(text string) Locator {
	return labelLocator{text: text}
}

func (l labelLocator) Strategy() Strategy     { return StrategyLabel }
func (l labelLocator) Selector() string       { return "label[for]" }
func (l labelLocator) Accept(el Element) bool { return containsFold(el.Text, l.text) }
func (l labelLocator) needsText() bool        { return true }
func (l labelLocator) String() string         { return fmt.Sprintf("label=%q", l.text) }

func (l labelLocator) Redirect(el Element) (Locator, bool) {
	id := el.Attrs["for"]
	if id == "" {
		return nil, false
	}
	return ByCSS(fmt.Sprintf(`[id=%q]`, id)), true
}

type textLocator struct {
	candidates string
	text       string
}

// ByText matches elements selected by candidates whose text contains text.
func ByText(candidates, text string) Locator {
	return textLocator{candidates: candidates, text: text}
}

func (l textLocator) Strategy() Strategy     { return StrategyText }
func (l textLocator) Selector() string       { return l.candidates }
func (l textLocator) Accept(el Element) bool { return containsFold(el.Text, l.text) }
func (l textLocator) needsText() bool        { return true }
func (l textLocator) String() string         { return fmt.Sprintf("text=%s:%q", l.candidates, l.text) }

type cssLocator struct {
	selector string
}

// ByCSS matches the structural selector as-is.
func ByCSS(selector string) Locator {
	return cssLocator{selector: selector}
}

func (l cssLocator) Strategy() Strategy  { return StrategyCSS }
func (l cssLocator) Selector() string    { return l.selector }
func (l cssLocator) Accept(Element) bool { return true }
func (l cssLocator) String() string      { return "css=" + l.selector }

// accessibleName approximates the accessible name computation closely enough for
// buttons, links and inputs.
func accessibleName(el Element) string {
	for _, attr := range []string{"aria-label", "title"} {
		if v := strings.TrimSpace(el.Attrs[attr]); v != "" {
			return v
		}
	}
	if el.Tag == "input" {
		if v := strings.TrimSpace(el.Attrs["value"]); v != "" {
			return v
		}
	}
	return el.Text
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(
		strings.ToLower(normalizeSpace(haystack)),
		strings.ToLower(normalizeSpace(needle)),
	)
}

// normalizeSpace collapses whitespace runs to one space. strings.Fields treats U+00A0 as
// space, which PeopleSoft pages are full of.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
