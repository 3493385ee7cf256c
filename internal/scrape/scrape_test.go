package scrape_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polzovatel/video-finder/internal/browser"
	"github.com/polzovatel/video-finder/internal/browser/browsertest"
	"github.com/polzovatel/video-finder/internal/locator"
	"github.com/polzovatel/video-finder/internal/scrape"
	"github.com/polzovatel/video-finder/internal/site"
	"github.com/polzovatel/video-finder/internal/video"
)

var (
	containerQ = browsertest.XPath("//div[@class='style-scope ytd-video-renderer'][@id='dismissible']")
	genericQ   = browsertest.XPath("//ytd-video-renderer")
	titleQ     = browsertest.XPath(".//a[@id='video-title']")
	h3TitleQ   = browsertest.XPath(".//h3//a[@title]")
	channelQ   = browsertest.XPath(".//div[@id='channel-info']//a[@href]")
	metaQ      = browsertest.XPath(".//div[@id='metadata-line']//span")
	metaBlockQ = browsertest.XPath(".//ytd-video-meta-block//span")
	durationQ  = browsertest.XPath(".//ytd-thumbnail-overlay-time-status-renderer//span")
	closeQ     = browsertest.CSS("button[aria-label='Close']")
	dismissQ   = browsertest.CSS("button[aria-label='Dismiss']")
)

func container(title, id string) *browsertest.Element {
	link := browsertest.NewElement(title).
		WithAttr("title", title).
		WithAttr("href", "/watch?v="+id)
	return browsertest.NewElement("").WithChild(titleQ, link)
}

func fullContainer(title, id string) *browsertest.Element {
	return container(title, id).
		WithChild(channelQ, browsertest.NewElement("Fit Channel")).
		WithChild(metaQ, browsertest.NewElement("1.2M views"), browsertest.NewElement("3 days ago")).
		WithChild(durationQ, browsertest.NewElement("12:34"))
}

func numbered(n int) []*browsertest.Element {
	out := make([]*browsertest.Element, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, container(fmt.Sprintf("Home workout video number %02d", i), fmt.Sprintf("id%02d", i)))
	}
	return out
}

func resolver() *locator.Resolver { return locator.NewResolver(0, zerolog.Nop()) }

func extractor() *scrape.Extractor {
	return scrape.NewExtractor(site.YouTube("").Rules, resolver(), zerolog.Nop())
}

func builder(opts scrape.Options) *scrape.Builder {
	yt := site.YouTube("")
	return scrape.NewBuilder(opts, yt.Containers, yt.Overlays, resolver(), extractor(), zerolog.Nop())
}

func fastOptions() scrape.Options {
	opts := scrape.DefaultOptions()
	opts.Settle = 0
	opts.OverlayPause = 0
	return opts
}

func titles(recs []*video.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Title)
	}
	return out
}

func TestExtract_FullRecord(t *testing.T) {
	rec := extractor().Extract(context.Background(), fullContainer("Full body workout at home", "abc"))

	assert.Equal(t, &video.Record{
		Title:      "Full body workout at home",
		URL:        "https://www.youtube.com/watch?v=abc",
		Channel:    "Fit Channel",
		Views:      "1.2M views",
		UploadTime: "3 days ago",
		Duration:   "12:34",
	}, rec)
}

func TestExtract_PartialRecordKeepsSentinels(t *testing.T) {
	rec := extractor().Extract(context.Background(), container("Ten minute stretch routine", "x1"))

	assert.Equal(t, "Ten minute stretch routine", rec.Title)
	assert.Equal(t, video.UnknownChannel, rec.Channel)
	assert.Equal(t, video.UnknownViews, rec.Views)
	assert.Equal(t, video.UnknownUploadTime, rec.UploadTime)
	assert.Equal(t, video.UnknownDuration, rec.Duration)
	assert.True(t, rec.Valid())
}

func TestExtract_TitleRejectsPlaceholderAndFallsThrough(t *testing.T) {
	c := browsertest.NewElement("").
		WithChild(titleQ, browsertest.NewElement("Watch")).
		WithChild(h3TitleQ, browsertest.NewElement("").WithAttr("title", "Morning yoga flow"))

	rec := extractor().Extract(context.Background(), c)

	assert.Equal(t, "Morning yoga flow", rec.Title)
}

func TestExtract_TitlePrefersAttributeThenLabelThenText(t *testing.T) {
	c := browsertest.NewElement("").
		WithChild(titleQ, browsertest.NewElement("visible text title").WithAttr("aria-label", "Aria label title"))

	rec := extractor().Extract(context.Background(), c)

	assert.Equal(t, "Aria label title", rec.Title)
}

func TestExtract_URLMustPointAtVideo(t *testing.T) {
	c := browsertest.NewElement("").
		WithChild(titleQ, browsertest.NewElement("Channel page link").WithAttr("href", "/@somebody")).
		WithChild(browsertest.XPath(".//a[contains(@href, '/shorts/')]"),
			browsertest.NewElement("").WithAttr("href", "/shorts/zz"))

	rec := extractor().Extract(context.Background(), c)

	assert.Equal(t, "https://www.youtube.com/shorts/zz", rec.URL)
}

func TestExtract_MetaFirstClassifiedValueWins(t *testing.T) {
	c := container("Some workout title", "m1").
		WithChild(metaQ, browsertest.NewElement("500K views"), browsertest.NewElement("900 views"), browsertest.NewElement("2 weeks ago")).
		WithChild(metaBlockQ, browsertest.NewElement("1 view"), browsertest.NewElement("1 year ago"))

	rec := extractor().Extract(context.Background(), c)

	assert.Equal(t, "500K views", rec.Views)
	assert.Equal(t, "2 weeks ago", rec.UploadTime)
	assert.NotContains(t, c.Lookups, metaBlockQ)
}

func TestExtract_MetaWalksOnForMissingField(t *testing.T) {
	c := container("Some workout title", "m2").
		WithChild(metaQ, browsertest.NewElement("500K views"), browsertest.NewElement("•")).
		WithChild(metaBlockQ, browsertest.NewElement("1 view"), browsertest.NewElement("Streamed 1 month ago"))

	rec := extractor().Extract(context.Background(), c)

	assert.Equal(t, "500K views", rec.Views)
	assert.Equal(t, "Streamed 1 month ago", rec.UploadTime)
}

func TestExtract_TextErrorsAreAbsorbed(t *testing.T) {
	broken := browsertest.NewElement("")
	broken.TextErr = errors.New("detached")
	c := container("Some workout title", "m3").WithChild(channelQ, broken)

	rec := extractor().Extract(context.Background(), c)

	assert.Equal(t, video.UnknownChannel, rec.Channel)
	assert.Equal(t, "Some workout title", rec.Title)
}

func TestBuild_DedupByTitlePrefix(t *testing.T) {
	page := browsertest.NewPage("https://www.youtube.com/results")
	page.Set(containerQ,
		container("Full Body Home Workout For Beginners 2024 - Part One", "a"),
		container("full body home workout for beginners 2024 - Part Two", "b"),
	)

	recs := builder(fastOptions()).Build(context.Background(), page)

	require.Len(t, recs, 1)
	assert.Equal(t, "Full Body Home Workout For Beginners 2024 - Part One", recs[0].Title)
}

func TestBuild_ValidityGate(t *testing.T) {
	page := browsertest.NewPage("https://www.youtube.com/results")
	page.Set(containerQ,
		browsertest.NewElement(""), // no title at all
		container("Watch", "w"),
		container("Valid workout title", "v"),
	)

	recs := builder(fastOptions()).Build(context.Background(), page)

	assert.Equal(t, []string{"Valid workout title"}, titles(recs))
}

func TestBuild_CapEnforced(t *testing.T) {
	page := browsertest.NewPage("https://www.youtube.com/results")
	page.Set(containerQ, numbered(30)...)

	recs := builder(fastOptions()).Build(context.Background(), page)

	assert.Len(t, recs, 20)
	assert.Equal(t, 20, page.AliveCalls)
}

func TestBuild_RawContainerLimit(t *testing.T) {
	page := browsertest.NewPage("https://www.youtube.com/results")
	els := numbered(40)
	// the first 30 are all duplicates of one title
	for i := 0; i < 30; i++ {
		els[i] = container("Identical duplicated workout title", fmt.Sprintf("d%d", i))
	}
	page.Set(containerQ, els...)

	recs := builder(fastOptions()).Build(context.Background(), page)

	assert.Len(t, recs, 1)
	assert.Equal(t, 30, page.AliveCalls)
}

func TestBuild_SessionLossKeepsPartialResults(t *testing.T) {
	const accepted = 4
	page := browsertest.NewPage("https://www.youtube.com/results")
	page.Set(containerQ, numbered(10)...)
	page.AliveFunc = func(n int) error {
		if n > accepted {
			return browser.ErrSessionLost
		}
		return nil
	}

	recs := builder(fastOptions()).Build(context.Background(), page)

	require.Len(t, recs, accepted)
	assert.Equal(t, "Home workout video number 04", recs[accepted-1].Title)
}

func TestBuild_HomeWorkoutScenario(t *testing.T) {
	var els []*browsertest.Element
	for i := 1; i <= 3; i++ {
		title := fmt.Sprintf("Day %d home workout with no equipment needed", i)
		els = append(els,
			container(title, fmt.Sprintf("p%d", i)),
			container(title+" (reupload)", fmt.Sprintf("r%d", i)),
		)
	}
	for i := 4; i <= 22; i++ {
		els = append(els, container(fmt.Sprintf("Home workout video number %02d", i), fmt.Sprintf("u%d", i)))
	}
	require.Len(t, els, 25)
	page := browsertest.NewPage("https://www.youtube.com/results?search_query=home+workout")
	page.Set(containerQ, els...)

	recs := builder(fastOptions()).Build(context.Background(), page)

	require.Len(t, recs, 20)
	seen := map[string]bool{}
	for _, r := range recs {
		assert.False(t, seen[r.DedupKey()], r.Title)
		seen[r.DedupKey()] = true
	}
	// the 20th unique record is the 23rd container; the last two are never read
	assert.Equal(t, 23, page.AliveCalls)
	assert.Empty(t, els[23].Lookups)
	assert.Empty(t, els[24].Lookups)
}

func TestBuild_NoContainers(t *testing.T) {
	page := browsertest.NewPage("https://www.youtube.com/results")

	recs := builder(fastOptions()).Build(context.Background(), page)

	assert.Empty(t, recs)
	assert.Equal(t, 6, page.BottomScroll)
}

func TestBuild_FallsBackToGenericContainers(t *testing.T) {
	page := browsertest.NewPage("https://www.youtube.com/results")
	page.Set(genericQ, numbered(3)...)

	recs := builder(fastOptions()).Build(context.Background(), page)

	assert.Len(t, recs, 3)
}

func TestBuild_ScrollingStopsOnceEnoughContainers(t *testing.T) {
	page := browsertest.NewPage("https://www.youtube.com/results")
	all := numbered(30)
	loaded := 0
	page.OnScroll = func(p *browsertest.Page) {
		loaded += 10
		p.Set(containerQ, all[:loaded]...)
	}

	recs := builder(fastOptions()).Build(context.Background(), page)

	assert.Equal(t, 2, page.BottomScroll)
	assert.Len(t, recs, 20)
}

func TestBuild_ScrollErrorEndsLoading(t *testing.T) {
	page := browsertest.NewPage("https://www.youtube.com/results")
	page.ScrollErr = errors.New("evaluate failed")
	page.Set(containerQ, numbered(2)...)

	recs := builder(fastOptions()).Build(context.Background(), page)

	assert.Len(t, recs, 2)
}

func TestBuild_DismissesVisibleOverlays(t *testing.T) {
	page := browsertest.NewPage("https://www.youtube.com/results")
	hidden := browsertest.NewElement("Dismiss")
	hidden.Hidden = true
	closeBtn := browsertest.NewElement("Close")
	page.Set(dismissQ, hidden)
	page.Set(closeQ, closeBtn)
	page.Set(containerQ, numbered(1)...)

	builder(fastOptions()).Build(context.Background(), page)

	assert.Equal(t, 0, hidden.ScriptClicks)
	assert.Equal(t, 1, closeBtn.ScriptClicks)
	assert.Equal(t, 1, page.LookupCount(browsertest.CSS(".dismiss-button")))
}

func TestBuild_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	page := browsertest.NewPage("https://www.youtube.com/results")
	page.Set(containerQ, numbered(5)...)

	recs := builder(fastOptions()).Build(ctx, page)

	assert.Empty(t, recs)
}
