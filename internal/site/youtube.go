// Package site holds the locator tables for the video site. The site's
// markup changes often, so each target lists its locators from the most
// specific to the most generic.
package site

import (
	"fmt"
	"strings"

	"github.com/polzovatel/video-finder/internal/filters"
	"github.com/polzovatel/video-finder/internal/locator"
	"github.com/polzovatel/video-finder/internal/scrape"
	"github.com/polzovatel/video-finder/internal/video"
)

const (
	DefaultURL       = "https://www.youtube.com"
	DefaultTimeRange = "This week"
	DefaultDuration  = "4 - 20 minutes"
)

var (
	css   = locator.CSS
	xpath = locator.XPath
)

// Site is everything the pipeline needs to know about one site's markup.
type Site struct {
	URL          string
	AppRoot      locator.Strategy
	SearchBox    locator.Strategy
	SearchButton locator.Strategy
	Results      locator.Strategy
	Containers   locator.Strategy
	Overlays     locator.Strategy
	Rules        scrape.Rules
}

// YouTube returns the tables for baseURL (DefaultURL when empty).
func YouTube(baseURL string) Site {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	return Site{
		URL:     baseURL,
		AppRoot: locator.New("app root", css("ytd-app")),
		SearchBox: locator.New("search box",
			css("input[name='search_query']"),
			css("input#search"),
			css("#search-input input"),
			css("ytd-searchbox input"),
			css("input[placeholder*='Search']"),
			xpath("//input[@placeholder='Search']"),
		),
		SearchButton: locator.New("search button",
			css("#search-icon-legacy"),
			css("button#search-icon-legacy"),
			css("[aria-label='Search']"),
			css("ytd-searchbox button"),
			css("#searchbox button"),
			xpath("//button[@class='ytSearchboxComponentSearchButton']"),
		),
		Results: locator.New("results",
			css("#contents"),
			css("ytd-video-renderer"),
			css("#primary #contents"),
			css("[data-target-id='watch-card-compact-video']"),
			css(".ytd-item-section-renderer"),
		),
		Containers: locator.New("video containers",
			xpath("//div[@class='style-scope ytd-video-renderer'][@id='dismissible']"),
			xpath("//div[contains(@class, 'ytd-video-renderer')][@id='dismissible']"),
			xpath("//div[contains(@class, 'ytd-video-renderer')]"),
			xpath("//ytd-video-renderer"),
			xpath("//div[@class='ytd-video-renderer']"),
			xpath("//div[contains(@class, 'video-renderer')]"),
			xpath("//div[contains(@class, 'ytd-compact-video-renderer')]"),
		),
		Overlays: locator.New("overlays",
			css("button[aria-label='Dismiss']"),
			css("button[aria-label='Close']"),
			css("yt-icon-button[aria-label='Dismiss']"),
			css(".dismiss-button"),
		),
		Rules: rules(baseURL),
	}
}

var titleBlacklist = map[string]bool{"Watch": true, "Video": true, "YouTube": true}

func rules(baseURL string) scrape.Rules {
	return scrape.Rules{
		Fields: []scrape.FieldSpec{
			{
				Field: video.Title,
				Strategy: locator.New("title",
					xpath(".//a[@id='video-title']"),
					xpath(".//h3//a[@title]"),
					xpath(".//a[@id='video-title-link']"),
					xpath(".//yt-formatted-string[@id='video-title']"),
					xpath(".//div[@id='meta']//a[@href]"),
					xpath(".//div[@id='details']//a[@href]"),
					xpath(".//a[contains(@href, '/watch?v=')][@title]"),
				),
				Sources: []scrape.Source{scrape.FromTitle, scrape.FromAriaLabel, scrape.FromText},
				Valid: func(s string) bool {
					return len([]rune(s)) > 5 && !titleBlacklist[s]
				},
			},
			{
				Field: video.URL,
				Strategy: locator.New("url",
					xpath(".//a[@id='video-title']"),
					xpath(".//a[@id='video-title-link']"),
					xpath(".//h3//a[@href]"),
					xpath(".//a[contains(@href, '/watch?v=')]"),
					xpath(".//a[contains(@href, '/shorts/')]"),
				),
				Sources:   []scrape.Source{scrape.FromHref},
				Normalize: Absolute(baseURL),
				Valid:     IsVideoURL,
			},
			{
				Field: video.Channel,
				Strategy: locator.New("channel",
					xpath(".//div[@id='channel-info']//a[@href]"),
					xpath(".//ytd-channel-name//a"),
					xpath(".//yt-formatted-string[contains(@class, 'byline')]"),
					xpath(".//a[contains(@href, '/@')]"),
					xpath(".//a[contains(@href, '/channel/')]"),
					xpath(".//a[contains(@href, '/c/')]"),
					xpath(".//a[contains(@href, '/user/')]"),
				),
				Sources: []scrape.Source{scrape.FromText, scrape.FromAriaLabel},
			},
			{
				Field: video.Duration,
				Strategy: locator.New("duration",
					xpath(".//ytd-thumbnail-overlay-time-status-renderer//span"),
					xpath(".//span[@class='style-scope ytd-thumbnail-overlay-time-status-renderer']"),
					xpath(".//div[contains(@class, 'duration')]//span"),
					xpath(".//span[contains(text(), ':')]"),
				),
				Sources: []scrape.Source{scrape.FromText},
				Valid: func(s string) bool {
					return strings.Contains(s, ":") && len([]rune(s)) < 20
				},
			},
		},
		Meta: scrape.MetaSpec{
			Strategy: locator.New("metadata",
				xpath(".//div[@id='metadata-line']//span"),
				xpath(".//ytd-video-meta-block//span"),
				xpath(".//div[@id='meta']//span"),
				xpath(".//span[contains(@class, 'meta')]"),
				xpath(".//span[contains(text(), 'views')]"),
				xpath(".//span[contains(text(), 'ago')]"),
			),
			Rules: []scrape.MarkerRule{
				{Field: video.Views, Markers: []string{"view"}},
				{Field: video.UploadTime, Markers: []string{"ago", "hour", "day", "week", "month", "year"}},
			},
		},
	}
}

// Absolute resolves site-relative links against baseURL.
func Absolute(baseURL string) func(string) string {
	return func(href string) string {
		switch {
		case href == "":
			return ""
		case strings.HasPrefix(href, "//"):
			return "https:" + href
		case strings.HasPrefix(href, "/"):
			return baseURL + href
		}
		return href
	}
}

func IsVideoURL(s string) bool {
	return strings.Contains(s, "/watch?v=") || strings.Contains(s, "/shorts/")
}

// durationParams maps duration labels to the search parameter the site puts
// in the option's link.
var durationParams = map[string]string{
	DefaultDuration: "EgYIAxABGAM",
}

// Filters returns the filter panel controls for the given option labels.
func Filters(timeRange, duration string) filters.Controls {
	if timeRange == "" {
		timeRange = DefaultTimeRange
	}
	if duration == "" {
		duration = DefaultDuration
	}
	tr := literal(timeRange)
	du := literal(duration)

	durationLocs := []locator.Locator{
		xpath(fmt.Sprintf("//ytd-search-filter-renderer//yt-formatted-string[text()=%s]", du)),
		xpath(fmt.Sprintf("//a[@id='endpoint']//yt-formatted-string[text()=%s]", du)),
		xpath(fmt.Sprintf("//div[@title=%s]", literal("Search for "+duration))),
	}
	if p, ok := durationParams[duration]; ok {
		durationLocs = append(durationLocs, xpath(fmt.Sprintf("//a[contains(@href, '%s')]", p)))
	}
	durationLocs = append(durationLocs,
		xpath(fmt.Sprintf("//yt-formatted-string[text()=%s]", du)),
		xpath(fmt.Sprintf("//a[contains(text(), %s)]", du)),
		xpath(fmt.Sprintf("//span[text()=%s]", du)),
	)
	climb := xpath("./ancestor::a[@id='endpoint']")

	return filters.Controls{
		Open: locator.New("filters button",
			xpath("//span[text()='Filters']"),
			xpath("//button[contains(@aria-label, 'Search filters')]"),
			xpath("//button[contains(@class, 'filter')]"),
			xpath("//yt-chip-cloud-chip-renderer[contains(@class, 'filter')]"),
		),
		TimeRange: locator.New("time range "+timeRange,
			xpath(fmt.Sprintf("//yt-formatted-string[text()=%s]", tr)),
			xpath(fmt.Sprintf("//a[contains(text(), %s)]", tr)),
			xpath(fmt.Sprintf("//span[text()=%s]", tr)),
		),
		Duration:      locator.New("duration "+duration, durationLocs...),
		DurationClimb: &climb,
	}
}

// literal quotes s as an XPath string literal.
func literal(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		quoted = append(quoted, "'"+p+"'")
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
