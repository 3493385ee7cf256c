// Package ranking asks a language model to pick the best result and maps
// its free-text answer back to a record.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/polzovatel/video-finder/internal/llm"
	"github.com/polzovatel/video-finder/internal/video"
)

const (
	// Marker starts the line that names the chosen result.
	Marker = "BEST VIDEO:"
	// Placeholder stands in for the analysis when the model call fails.
	Placeholder = "AI analysis unavailable due to an error."
)

var bestRe = regexp.MustCompile(`BEST VIDEO:\s*(\d+)\.`)

// ErrNoModel is returned by Rank when no client is configured.
var ErrNoModel = errors.New("no ranking model configured")

// Selection points at one record of the slice it was parsed against.
type Selection struct {
	Record *video.Record
	// Index is 0-based, -1 when Record is nil.
	Index int
	Text  string
}

func (s Selection) Empty() bool { return s.Record == nil }

// Parse finds the first line starting with Marker and reads its 1-based
// ordinal. Anything unusable falls back to the first record.
func Parse(text string, records []*video.Record) Selection {
	sel := Selection{Index: -1, Text: text}
	if len(records) == 0 {
		return sel
	}
	sel.Record, sel.Index = records[0], 0

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, Marker) {
			continue
		}
		m := bestRe.FindStringSubmatch(line)
		if m == nil {
			return sel
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(records) {
			return sel
		}
		sel.Record, sel.Index = records[n-1], n-1
		return sel
	}
	return sel
}

// BuildPrompt lists every record and asks for the Marker line first.
func BuildPrompt(query string, records []*video.Record) string {
	n := len(records)
	var list strings.Builder
	for i, r := range records {
		if i > 0 {
			list.WriteString("\n\n")
		}
		fmt.Fprintf(&list, "%d. Title: %s\n   Channel: %s\n   Views: %s\n   Duration: %s\n   Upload Time: %s\n   URL: %s",
			i+1, r.Title, r.Channel, r.Views, r.Duration, r.UploadTime, r.URL)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are analyzing YouTube search results for the query %q.\n\n", query)
	fmt.Fprintf(&b, "TASK: Analyze ALL %d videos provided below and identify the single BEST video based on multiple criteria.\n\n", n)
	b.WriteString("EVALUATION CRITERIA for BEST VIDEO:\n")
	fmt.Fprintf(&b, "1. RELEVANCE: How well does the title match the search query %q?\n", query)
	b.WriteString("2. CREDIBILITY: Based on view count, channel authority, and content type\n")
	b.WriteString("3. RECENCY: Newer videos (within last week) get preference\n")
	b.WriteString("4. ENGAGEMENT: Higher view counts indicate audience trust\n")
	b.WriteString("5. CONTENT QUALITY: Professional titles vs clickbait or misleading content\n\n")
	b.WriteString("REQUIRED OUTPUT FORMAT:\n\n")
	fmt.Fprintf(&b, "BEST VIDEO: [Number]. [Full Title] - [Detailed reason why this is the absolute best choice from all %d videos]\n\n", n)
	b.WriteString("DETAILED ANALYSIS:\n")
	b.WriteString("   - Top 5 videos ranked by quality/relevance\n")
	fmt.Fprintf(&b, "   - Key themes across all %d videos\n", n)
	b.WriteString("   - Quality assessment of channels\n")
	b.WriteString("   - Warning about any potentially misleading content\n")
	b.WriteString("   - Recommendations for the user\n\n")
	fmt.Fprintf(&b, "IMPORTANT: You must analyze ALL %d videos provided, not just the first few.\n\n", n)
	fmt.Fprintf(&b, "Search Query: %q\n\n", query)
	fmt.Fprintf(&b, "ALL %d VIDEOS TO ANALYZE:\n%s\n\n", n, list.String())
	fmt.Fprintf(&b, "Start your response with %q followed by the number and title of your top choice.", Marker)
	return b.String()
}

type Options struct {
	Temperature float32
	MaxTokens   int
}

// Ranker makes the single model call for a run.
type Ranker struct {
	client llm.Client
	opts   Options
	logger zerolog.Logger
}

func NewRanker(client llm.Client, opts Options, logger zerolog.Logger) *Ranker {
	return &Ranker{client: client, opts: opts, logger: logger}
}

// Rank returns the model's raw analysis. Callers substitute Placeholder on
// error.
func (r *Ranker) Rank(ctx context.Context, query string, records []*video.Record) (string, error) {
	if r.client == nil {
		return "", ErrNoModel
	}
	if len(records) == 0 {
		return "", errors.New("nothing to rank")
	}
	r.logger.Info().Str("model", r.client.Name()).Int("videos", len(records)).Msg("ranking videos")
	resp, err := r.client.Generate(ctx, llm.Request{
		Messages:    []llm.Message{llm.User(BuildPrompt(query, records))},
		Temperature: r.opts.Temperature,
		MaxTokens:   r.opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("rank: %w", err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", errors.New("rank: empty analysis")
	}
	return resp.Text, nil
}
