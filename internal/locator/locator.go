// Package locator resolves semantic page targets through ordered lists of
// alternative locators. Page markup is not stable, so every target is
// described most-specific first and the first locator that matches wins.
package locator

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/polzovatel/video-finder/internal/browser"
)

// Locator is one (kind, expression) pair.
type Locator struct {
	By   browser.By
	Expr string
}

func CSS(expr string) Locator   { return Locator{By: browser.ByCSS, Expr: expr} }
func XPath(expr string) Locator { return Locator{By: browser.ByXPath, Expr: expr} }

func (l Locator) String() string { return string(l.By) + "=" + l.Expr }

// Strategy is a named, ordered list of locators for one target. It is
// immutable once built.
type Strategy struct {
	name    string
	entries []Locator
}

// New builds a strategy; the entries slice is copied.
func New(name string, entries ...Locator) Strategy {
	return Strategy{name: name, entries: append([]Locator(nil), entries...)}
}

func (s Strategy) Name() string { return s.name }
func (s Strategy) Len() int     { return len(s.entries) }

// Entries returns a copy of the locators in preference order.
func (s Strategy) Entries() []Locator { return append([]Locator(nil), s.entries...) }

// Match is the outcome of one successful lookup.
type Match struct {
	Elements []browser.Element
	Locator  Locator
	// Attempt is the 1-based position of Locator in its strategy.
	Attempt int
}

// First returns the first matched element.
func (m Match) First() browser.Element {
	if len(m.Elements) == 0 {
		return nil
	}
	return m.Elements[0]
}

// Resolver runs strategies against a scope. Each lookup waits at most the
// resolver's bound; a lookup that errors or times out counts as a miss.
type Resolver struct {
	wait   time.Duration
	logger zerolog.Logger
}

func NewResolver(wait time.Duration, logger zerolog.Logger) *Resolver {
	return &Resolver{wait: wait, logger: logger}
}

func (r *Resolver) Wait() time.Duration { return r.wait }

// WithWait returns a resolver sharing the logger with a different bound.
func (r *Resolver) WithWait(wait time.Duration) *Resolver {
	return &Resolver{wait: wait, logger: r.logger}
}

// Walk tries each locator in order. Every non-empty match is offered to
// visit; the walk stops at the first match visit accepts. Later locators are
// never looked up once a match is accepted. A nil visit accepts everything.
func (r *Resolver) Walk(ctx context.Context, s Strategy, scope browser.Scope, visit func(Match) bool) (Match, bool) {
	for i, loc := range s.entries {
		if ctx.Err() != nil {
			return Match{}, false
		}
		els, err := scope.FindAll(ctx, loc.By, loc.Expr, r.wait)
		if err != nil {
			r.logger.Trace().Err(err).Str("target", s.name).Str("locator", loc.String()).Msg("locator miss")
			continue
		}
		if len(els) == 0 {
			continue
		}
		m := Match{Elements: els, Locator: loc, Attempt: i + 1}
		if visit == nil || visit(m) {
			r.logger.Trace().Str("target", s.name).Str("locator", loc.String()).Int("found", len(els)).Msg("locator hit")
			return m, true
		}
	}
	return Match{}, false
}

// Resolve returns the first element of the first matching locator.
func (r *Resolver) Resolve(ctx context.Context, s Strategy, scope browser.Scope) (browser.Element, Locator, bool) {
	m, ok := r.Walk(ctx, s, scope, nil)
	if !ok {
		return nil, Locator{}, false
	}
	return m.First(), m.Locator, true
}

// ResolveInteractable is Resolve restricted to visible elements.
func (r *Resolver) ResolveInteractable(ctx context.Context, s Strategy, scope browser.Scope) (browser.Element, Locator, bool) {
	var picked browser.Element
	m, ok := r.Walk(ctx, s, scope, func(m Match) bool {
		for _, el := range m.Elements {
			if v, err := el.Visible(ctx); err == nil && v {
				picked = el
				return true
			}
		}
		return false
	})
	if !ok {
		return nil, Locator{}, false
	}
	return picked, m.Locator, true
}

// ResolveAll returns every element of the first locator that yields any.
func (r *Resolver) ResolveAll(ctx context.Context, s Strategy, scope browser.Scope) ([]browser.Element, Locator, bool) {
	m, ok := r.Walk(ctx, s, scope, nil)
	if !ok {
		return nil, Locator{}, false
	}
	return m.Elements, m.Locator, true
}
