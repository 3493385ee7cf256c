package snapshot

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polzovatel/video-finder/internal/browser/browsertest"
)

func TestCollect(t *testing.T) {
	page := browsertest.NewPage("https://www.youtube.com/results?search_query=yoga")
	page.PageTitle = "yoga - YouTube"
	page.Set(browsertest.CSS("body"), browsertest.NewElement("  "+strings.Repeat("b", 2000)))
	hidden := browsertest.NewElement("Hidden")
	hidden.Hidden = true
	page.Set(browsertest.CSS(interactiveSelector),
		browsertest.NewElement("").WithAttr("name", "search_query").WithAttr("placeholder", "Search"),
		hidden,
		browsertest.NewElement(""), // nothing to identify it
		browsertest.NewElement("Filters\nmore").WithAttr("aria-label", "Search filters"),
	)

	s, err := Collect(context.Background(), page, 10)

	require.NoError(t, err)
	assert.Equal(t, "yoga - YouTube", s.Title)
	assert.Equal(t, "https://www.youtube.com/results?search_query=yoga", s.URL)
	assert.Len(t, []rune(s.Visible), maxVisibleText)
	require.Len(t, s.Elements, 2)
	assert.Equal(t, "Filters", s.Elements[0].Text)
	assert.Equal(t, `[aria-label="Search filters"]`, s.Elements[0].Sel)
	assert.Equal(t, `[name="search_query"]`, s.Elements[1].Sel)
	assert.Contains(t, s.String(), "TITLE: yoga - YouTube")
}

func TestCollect_EmptyPage(t *testing.T) {
	s, err := Collect(context.Background(), browsertest.NewPage("about:blank"), 0)

	require.NoError(t, err)
	assert.Empty(t, s.Elements)
	assert.Empty(t, s.Visible)
}

func TestFilterAndRank_Limit(t *testing.T) {
	elems := []Element{
		{Text: "a"},
		{Role: "button", Text: "Search", Attr: "aria-label:Search", Sel: "#b"},
		{Text: "plain link"},
	}

	got := filterAndRank(elems, 2)

	require.Len(t, got, 2)
	assert.Equal(t, "Search", got[0].Text)
	assert.Equal(t, "plain link", got[1].Text)
}
