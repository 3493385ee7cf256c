package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// locatorRoot is implemented by both playwright.Page and playwright.Locator.
type locatorRoot interface {
	Locator(selector string) playwright.Locator
}

type pageRoot struct{ page playwright.Page }

func (r pageRoot) Locator(selector string) playwright.Locator { return r.page.Locator(selector) }

type elementRoot struct{ loc playwright.Locator }

func (r elementRoot) Locator(selector string) playwright.Locator { return r.loc.Locator(selector) }

func selectorFor(by By, expr string) string {
	switch by {
	case ByXPath:
		return "xpath=" + expr
	default:
		return "css=" + expr
	}
}

func findAll(ctx context.Context, root locatorRoot, by By, expr string, wait time.Duration, actionTimeout time.Duration) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loc := root.Locator(selectorFor(by, expr))
	if wait > 0 {
		if err := loc.First().WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateAttached,
			Timeout: playwright.Float(float64(wait.Milliseconds())),
		}); err != nil {
			return nil, wrap(err)
		}
	}
	all, err := loc.All()
	if err != nil {
		return nil, wrap(err)
	}
	out := make([]Element, 0, len(all))
	for _, l := range all {
		out = append(out, &pwElement{loc: l, actionTimeout: actionTimeout})
	}
	return out, nil
}

type pwPage struct {
	page          playwright.Page
	navTimeout    time.Duration
	actionTimeout time.Duration
}

func (p *pwPage) FindAll(ctx context.Context, by By, expr string, wait time.Duration) ([]Element, error) {
	return findAll(ctx, pageRoot{p.page}, by, expr, wait, p.actionTimeout)
}

func (p *pwPage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(p.navTimeout.Milliseconds())),
	})
	return wrap(err)
}

func (p *pwPage) ScrollToBottom(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Evaluate(`() => window.scrollTo(0, Math.max(document.body.scrollHeight, document.documentElement.scrollHeight))`)
	return wrap(err)
}

func (p *pwPage) ScrollToTop(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Evaluate(`() => window.scrollTo(0, 0)`)
	return wrap(err)
}

// WaitStable waits for network idle, falling back to DOMContentLoaded, then
// for a short quiet period without DOM mutations.
func (p *pwPage) WaitStable(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if err := p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	}); err != nil {
		_ = p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
			State:   playwright.LoadStateDomcontentloaded,
			Timeout: playwright.Float(1000),
		})
	}

	script := `(limit) => new Promise((resolve) => {
		let quiet;
		const done = () => { observer.disconnect(); clearTimeout(hard); resolve(); };
		const observer = new MutationObserver(() => {
			clearTimeout(quiet);
			quiet = setTimeout(done, 300);
		});
		observer.observe(document.body, {childList: true, subtree: true, attributes: true});
		quiet = setTimeout(done, 300);
		const hard = setTimeout(done, limit);
	})`
	_, err := p.page.Evaluate(script, timeout.Milliseconds())
	return wrap(err)
}

func (p *pwPage) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t, err := p.page.Title()
	return t, wrap(err)
}

func (p *pwPage) URL() string { return p.page.URL() }

func (p *pwPage) Alive(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.page.IsClosed() {
		return ErrSessionLost
	}
	if _, err := p.page.Evaluate(`() => location.href`); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionLost, err)
	}
	return nil
}

type pwElement struct {
	loc           playwright.Locator
	actionTimeout time.Duration
}

func (e *pwElement) timeout() *float64 {
	return playwright.Float(float64(e.actionTimeout.Milliseconds()))
}

func (e *pwElement) FindAll(ctx context.Context, by By, expr string, wait time.Duration) ([]Element, error) {
	if by == ByXPath && strings.HasPrefix(expr, "//") {
		// keep lookups relative to the element
		expr = "." + expr
	}
	return findAll(ctx, elementRoot{e.loc}, by, expr, wait, e.actionTimeout)
}

func (e *pwElement) Attribute(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := e.loc.GetAttribute(name, playwright.LocatorGetAttributeOptions{Timeout: e.timeout()})
	return v, wrap(err)
}

func (e *pwElement) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := e.loc.InnerText(playwright.LocatorInnerTextOptions{Timeout: e.timeout()})
	return v, wrap(err)
}

func (e *pwElement) Visible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	v, err := e.loc.IsVisible()
	return v, wrap(err)
}

func (e *pwElement) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrap(e.loc.Click(playwright.LocatorClickOptions{Timeout: e.timeout()}))
}

func (e *pwElement) ClickScripted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := e.loc.Evaluate(`el => el.click()`, nil, playwright.LocatorEvaluateOptions{Timeout: e.timeout()})
	return wrap(err)
}

func (e *pwElement) ScrollIntoView(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := e.loc.Evaluate(`el => el.scrollIntoView({behavior: 'instant', block: 'center'})`, nil, playwright.LocatorEvaluateOptions{Timeout: e.timeout()})
	return wrap(err)
}

func (e *pwElement) Fill(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrap(e.loc.Fill(text, playwright.LocatorFillOptions{Timeout: e.timeout()}))
}

func (e *pwElement) Press(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrap(e.loc.Press(key, playwright.LocatorPressOptions{Timeout: e.timeout()}))
}
