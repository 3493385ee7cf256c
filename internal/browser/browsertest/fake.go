// Package browsertest provides an in-memory page for exercising code that
// depends on browser.Page without a rendering engine.
package browsertest

import (
	"context"
	"errors"
	"time"

	"github.com/polzovatel/video-finder/internal/browser"
)

// Query identifies one lookup.
type Query struct {
	By   browser.By
	Expr string
}

func CSS(expr string) Query   { return Query{By: browser.ByCSS, Expr: expr} }
func XPath(expr string) Query { return Query{By: browser.ByXPath, Expr: expr} }

// Nodes maps lookups to the elements they yield.
type Nodes map[Query][]*Element

// Element is a fake node. Zero value is a visible element with no text.
type Element struct {
	Attrs    map[string]string
	Label    string
	Hidden   bool
	Children Nodes

	ClickErr       error
	ScriptClickErr error
	TextErr        error
	OnClick        func()

	Clicks       int
	ScriptClicks int
	Scrolls      int
	Filled       string
	Pressed      []string
	Lookups      []Query
}

// NewElement returns a visible element with the given text.
func NewElement(label string) *Element { return &Element{Label: label} }

// WithAttr sets an attribute and returns the element for chaining.
func (e *Element) WithAttr(name, value string) *Element {
	if e.Attrs == nil {
		e.Attrs = map[string]string{}
	}
	e.Attrs[name] = value
	return e
}

// WithChild registers children under q and returns the element for chaining.
func (e *Element) WithChild(q Query, children ...*Element) *Element {
	if e.Children == nil {
		e.Children = Nodes{}
	}
	e.Children[q] = append(e.Children[q], children...)
	return e
}

func (e *Element) FindAll(ctx context.Context, by browser.By, expr string, _ time.Duration) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := Query{By: by, Expr: expr}
	e.Lookups = append(e.Lookups, q)
	return toElements(e.Children[q]), nil
}

func (e *Element) Attribute(_ context.Context, name string) (string, error) {
	return e.Attrs[name], nil
}

func (e *Element) Text(context.Context) (string, error) {
	if e.TextErr != nil {
		return "", e.TextErr
	}
	return e.Label, nil
}

func (e *Element) Visible(context.Context) (bool, error) { return !e.Hidden, nil }

func (e *Element) Click(context.Context) error {
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.Clicks++
	if e.OnClick != nil {
		e.OnClick()
	}
	return nil
}

func (e *Element) ClickScripted(context.Context) error {
	if e.ScriptClickErr != nil {
		return e.ScriptClickErr
	}
	e.ScriptClicks++
	if e.OnClick != nil {
		e.OnClick()
	}
	return nil
}

func (e *Element) ScrollIntoView(context.Context) error {
	e.Scrolls++
	return nil
}

func (e *Element) Fill(_ context.Context, text string) error {
	e.Filled = text
	return nil
}

func (e *Element) Press(_ context.Context, key string) error {
	e.Pressed = append(e.Pressed, key)
	return nil
}

// Page is a fake browser.Page.
type Page struct {
	Nodes     Nodes
	PageTitle string
	PageURL   string

	NavigateErr error
	ScrollErr   error
	// OnScroll runs after every successful ScrollToBottom, e.g. to append
	// lazily loaded items.
	OnScroll func(p *Page)
	// AliveFunc receives the 1-based probe count; nil means always alive.
	AliveFunc func(n int) error

	Navigated    []string
	BottomScroll int
	TopScroll    int
	AliveCalls   int
	Lookups      []Query
}

// NewPage returns an empty page at url.
func NewPage(url string) *Page {
	return &Page{Nodes: Nodes{}, PageURL: url}
}

// Set replaces the elements yielded by q.
func (p *Page) Set(q Query, els ...*Element) *Page {
	if p.Nodes == nil {
		p.Nodes = Nodes{}
	}
	p.Nodes[q] = els
	return p
}

// LookupCount reports how many times q was looked up on the page itself.
func (p *Page) LookupCount(q Query) int {
	n := 0
	for _, l := range p.Lookups {
		if l == q {
			n++
		}
	}
	return n
}

func (p *Page) FindAll(ctx context.Context, by browser.By, expr string, _ time.Duration) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := Query{By: by, Expr: expr}
	p.Lookups = append(p.Lookups, q)
	return toElements(p.Nodes[q]), nil
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	p.Navigated = append(p.Navigated, url)
	p.PageURL = url
	return nil
}

func (p *Page) ScrollToBottom(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.ScrollErr != nil {
		return p.ScrollErr
	}
	p.BottomScroll++
	if p.OnScroll != nil {
		p.OnScroll(p)
	}
	return nil
}

func (p *Page) ScrollToTop(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.TopScroll++
	return nil
}

func (p *Page) WaitStable(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func (p *Page) Title(context.Context) (string, error) { return p.PageTitle, nil }

func (p *Page) URL() string { return p.PageURL }

func (p *Page) Alive(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.AliveCalls++
	if p.AliveFunc != nil {
		return p.AliveFunc(p.AliveCalls)
	}
	return nil
}

// ErrBlocked is a convenience error for simulating covered elements.
var ErrBlocked = errors.New("element is covered by another element")

func toElements(els []*Element) []browser.Element {
	out := make([]browser.Element, 0, len(els))
	for _, el := range els {
		out = append(out, el)
	}
	return out
}
