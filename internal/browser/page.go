package browser

import (
	"context"
	"errors"
	"time"
)

// By names the kind of a locator expression.
type By string

const (
	ByCSS   By = "css"
	ByXPath By = "xpath"
)

// ErrSessionLost is returned by Page.Alive once the page or its browser is gone.
var ErrSessionLost = errors.New("browser session lost")

// Scope is anything elements can be looked up under: a page or an element.
type Scope interface {
	// FindAll returns the elements matching expr. A positive wait bounds how
	// long to wait for the first match; zero looks once.
	FindAll(ctx context.Context, by By, expr string, wait time.Duration) ([]Element, error)
}

// Element is a handle to one node of the rendered page.
type Element interface {
	Scope
	Attribute(ctx context.Context, name string) (string, error)
	Text(ctx context.Context) (string, error)
	Visible(ctx context.Context) (bool, error)
	// Click is a real pointer interaction; it fails when the element is
	// covered or not actionable.
	Click(ctx context.Context) error
	// ClickScripted dispatches a click from page script, ignoring overlays.
	ClickScripted(ctx context.Context) error
	ScrollIntoView(ctx context.Context) error
	Fill(ctx context.Context, text string) error
	Press(ctx context.Context, key string) error
}

// Page is the capability set the extraction pipeline depends on.
type Page interface {
	Scope
	Navigate(ctx context.Context, url string) error
	ScrollToBottom(ctx context.Context) error
	ScrollToTop(ctx context.Context) error
	// WaitStable waits until the network is idle and the DOM stops changing,
	// bounded by timeout.
	WaitStable(ctx context.Context, timeout time.Duration) error
	Title(ctx context.Context) (string, error)
	URL() string
	// Alive probes the session; it returns ErrSessionLost when it is gone.
	Alive(ctx context.Context) error
}
