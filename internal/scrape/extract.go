// Package scrape turns result containers on a search page into video
// records.
package scrape

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/polzovatel/video-finder/internal/browser"
	"github.com/polzovatel/video-finder/internal/locator"
	"github.com/polzovatel/video-finder/internal/video"
)

// Source is a place a field value can be read from.
type Source int

const (
	FromTitle Source = iota
	FromAriaLabel
	FromText
	FromHref
)

func (s Source) String() string {
	switch s {
	case FromTitle:
		return "title"
	case FromAriaLabel:
		return "aria-label"
	case FromText:
		return "text"
	case FromHref:
		return "href"
	}
	return "unknown"
}

// FieldSpec describes how one field is found and accepted.
type FieldSpec struct {
	Field    video.Field
	Strategy locator.Strategy
	// Sources are tried in order; the first non-empty value is used.
	Sources   []Source
	Normalize func(string) string
	Valid     func(string) bool
}

// MarkerRule assigns text containing any of Markers (case-insensitive) to
// Field.
type MarkerRule struct {
	Field   video.Field
	Markers []string
}

// MetaSpec classifies a block of loosely structured metadata spans.
type MetaSpec struct {
	Strategy locator.Strategy
	Rules    []MarkerRule
}

// Rules is the full extraction description for one kind of container.
type Rules struct {
	Fields []FieldSpec
	Meta   MetaSpec
}

// Extractor reads one container into a record.
type Extractor struct {
	rules    Rules
	resolver *locator.Resolver
	logger   zerolog.Logger
}

func NewExtractor(rules Rules, resolver *locator.Resolver, logger zerolog.Logger) *Extractor {
	return &Extractor{rules: rules, resolver: resolver, logger: logger}
}

// Extract never fails: fields that cannot be read keep their sentinel.
func (e *Extractor) Extract(ctx context.Context, container browser.Scope) *video.Record {
	rec := video.NewRecord()
	for _, spec := range e.rules.Fields {
		if v, ok := e.field(ctx, spec, container); ok {
			rec.Set(spec.Field, v)
		} else {
			e.logger.Trace().Str("field", string(spec.Field)).Msg("field not found")
		}
	}
	e.meta(ctx, rec, container)
	return rec
}

func (e *Extractor) field(ctx context.Context, spec FieldSpec, container browser.Scope) (string, bool) {
	var value string
	_, ok := e.resolver.Walk(ctx, spec.Strategy, container, func(m locator.Match) bool {
		v := read(ctx, m.First(), spec.Sources)
		if spec.Normalize != nil {
			v = spec.Normalize(v)
		}
		if v == "" || (spec.Valid != nil && !spec.Valid(v)) {
			return false
		}
		value = v
		return true
	})
	return value, ok
}

// meta scans every locator of the meta strategy. Within the scan a field
// keeps the first value classified for it.
func (e *Extractor) meta(ctx context.Context, rec *video.Record, container browser.Scope) {
	if len(e.rules.Meta.Rules) == 0 {
		return
	}
	found := make(map[video.Field]bool, len(e.rules.Meta.Rules))
	e.resolver.Walk(ctx, e.rules.Meta.Strategy, container, func(m locator.Match) bool {
		for _, el := range m.Elements {
			txt, err := el.Text(ctx)
			if err != nil {
				continue
			}
			txt = strings.TrimSpace(txt)
			if txt == "" {
				continue
			}
			if f, ok := classify(txt, e.rules.Meta.Rules); ok && !found[f] {
				rec.Set(f, txt)
				found[f] = true
			}
		}
		// keep walking until every rule has a value
		return len(found) == len(e.rules.Meta.Rules)
	})
}

func classify(text string, rules []MarkerRule) (video.Field, bool) {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, m := range r.Markers {
			if strings.Contains(lower, m) {
				return r.Field, true
			}
		}
	}
	return "", false
}

func read(ctx context.Context, el browser.Element, sources []Source) string {
	if el == nil {
		return ""
	}
	for _, src := range sources {
		var (
			v   string
			err error
		)
		switch src {
		case FromTitle:
			v, err = el.Attribute(ctx, "title")
		case FromAriaLabel:
			v, err = el.Attribute(ctx, "aria-label")
		case FromText:
			v, err = el.Text(ctx)
		case FromHref:
			v, err = el.Attribute(ctx, "href")
		}
		if err != nil {
			continue
		}
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
