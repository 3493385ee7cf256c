// Package snapshot captures a compact view of the current page for
// diagnostics when the pipeline cannot find what it expects.
package snapshot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/polzovatel/video-finder/internal/browser"
)

const (
	maxVisibleText = 1200
	maxElementText = 120
	// DefaultLimit is how many interactive elements Collect keeps.
	DefaultLimit = 25
)

const interactiveSelector = "a[aria-label],button,input,select,textarea,[role=button],[role=tab],yt-chip-cloud-chip-renderer"

// Element describes minimal info about an interactive node.
type Element struct {
	Role string `json:"role"`
	Text string `json:"text"`
	Attr string `json:"attr"`
	Sel  string `json:"selector"`
}

// Summary is a compact view of the current page.
type Summary struct {
	URL      string
	Title    string
	Visible  string
	Elements []Element
}

// Collect never fails on missing pieces; whatever could be read is
// returned. The error is non-nil only when ctx is done.
func Collect(ctx context.Context, page browser.Page, limit int) (Summary, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	s := Summary{URL: page.URL()}
	if t, err := page.Title(ctx); err == nil {
		s.Title = t
	}
	if body, err := page.FindAll(ctx, browser.ByCSS, "body", 0); err == nil && len(body) > 0 {
		if txt, err := body[0].Text(ctx); err == nil {
			s.Visible = cut(strings.TrimSpace(txt), maxVisibleText)
		}
	}

	nodes, err := page.FindAll(ctx, browser.ByCSS, interactiveSelector, 0)
	if err == nil {
		var elems []Element
		// scan a bounded window; each read is a round-trip to the browser
		for _, n := range nodes {
			if len(elems) >= limit*2 || ctx.Err() != nil {
				break
			}
			if v, err := n.Visible(ctx); err != nil || !v {
				continue
			}
			elems = append(elems, describe(ctx, n))
		}
		s.Elements = filterAndRank(elems, limit)
	}
	return s, ctx.Err()
}

func describe(ctx context.Context, el browser.Element) Element {
	attr := func(name string) string {
		v, _ := el.Attribute(ctx, name)
		return strings.TrimSpace(v)
	}
	text, _ := el.Text(ctx)
	text = strings.TrimSpace(strings.SplitN(strings.TrimSpace(text), "\n", 2)[0])

	names := []string{"id", "name", "aria-label", "placeholder", "title"}
	parts := make([]string, 0, len(names))
	vals := make(map[string]string, len(names))
	for _, n := range names {
		v := attr(n)
		vals[n] = v
		if v != "" {
			parts = append(parts, n+":"+v)
		}
	}

	var sel string
	switch {
	case vals["id"] != "":
		sel = "#" + vals["id"]
	case vals["name"] != "":
		sel = fmt.Sprintf("[name=%q]", vals["name"])
	case vals["aria-label"] != "":
		sel = fmt.Sprintf("[aria-label=%q]", vals["aria-label"])
	}
	return Element{
		Role: attr("role"),
		Text: cut(text, maxElementText),
		Attr: strings.Join(parts, "|"),
		Sel:  sel,
	}
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\nTITLE: %s\nTEXT: %s\nELEMENTS:\n", s.URL, s.Title, s.Visible)
	for i, el := range s.Elements {
		fmt.Fprintf(&b, "%d) role=%s text=%s attr=%s sel=%s\n", i+1, el.Role, el.Text, el.Attr, el.Sel)
	}
	return b.String()
}

// WithDeadline shortens context to avoid long snapshot waits.
func WithDeadline(ctx context.Context, dur time.Duration) (context.Context, context.CancelFunc) {
	if dur <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, dur)
}

// filterAndRank drops elements with nothing to identify them and keeps the
// maxCount most descriptive, stable on ties.
func filterAndRank(elems []Element, maxCount int) []Element {
	type scored struct {
		el    Element
		score int
	}
	kept := make([]scored, 0, len(elems))
	for _, el := range elems {
		if sc := score(el); sc > 0 {
			kept = append(kept, scored{el, sc})
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].score > kept[j].score })

	out := make([]Element, 0, min(maxCount, len(kept)))
	for i := 0; i < len(kept) && i < maxCount; i++ {
		out = append(out, kept[i].el)
	}
	return out
}

func score(el Element) int {
	s := 0
	if el.Role != "" && el.Role != "presentation" {
		s += 3
	}
	if el.Text != "" {
		s += 3
		if n := len([]rune(el.Text)); n > 3 && n < 80 {
			s += 2
		}
	}
	if strings.Contains(el.Attr, "aria-label:") {
		s += 2
	}
	if strings.Contains(el.Attr, "placeholder:") {
		s += 2
	}
	if el.Sel != "" {
		s++
	}
	return s
}

func cut(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
