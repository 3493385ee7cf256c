// Package display prints run results for a person at a terminal.
package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/polzovatel/video-finder/internal/ranking"
	"github.com/polzovatel/video-finder/internal/video"
)

const rule = "================================================================================"

type Presenter struct {
	out     io.Writer
	title   *color.Color
	best    *color.Color
	item    *color.Color
	heading *color.Color
	warn    *color.Color
}

func New(out io.Writer, noColor bool) *Presenter {
	p := &Presenter{
		out:     out,
		title:   color.New(color.FgMagenta, color.Bold),
		best:    color.New(color.FgGreen, color.Bold),
		item:    color.New(color.FgYellow),
		heading: color.New(color.FgCyan),
		warn:    color.New(color.FgYellow),
	}
	for _, c := range []*color.Color{p.title, p.best, p.item, p.heading, p.warn} {
		if noColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
	}
	return p
}

func (p *Presenter) Banner() {
	p.title.Fprintln(p.out, "YouTube Video Finder with AI Analysis")
	p.title.Fprintln(p.out, strings.Repeat("=", 50))
}

// Render lists every record, highlighting the selected one, and prints the
// analysis text.
func (p *Presenter) Render(videos []*video.Record, sel ranking.Selection, analysis string) {
	if !sel.Empty() {
		p.heading.Fprintf(p.out, "\n%s\nAI RECOMMENDED BEST VIDEO\n%s\n", rule, rule)
		p.item.Fprintln(p.out, sel.Record.Title)
		p.details(sel.Record)
	}

	p.heading.Fprintf(p.out, "\n%s\nALL %d VIDEOS\n%s\n", rule, len(videos), rule)
	for i, v := range videos {
		if v == sel.Record {
			p.best.Fprintf(p.out, "%d. %s  * AI SELECTED BEST\n", i+1, v.Title)
		} else {
			p.item.Fprintf(p.out, "%d. %s\n", i+1, v.Title)
		}
		p.details(v)
		fmt.Fprintln(p.out)
	}

	p.heading.Fprintf(p.out, "%s\nAI ANALYSIS OF ALL %d VIDEOS\n%s\n", rule, len(videos), rule)
	fmt.Fprintln(p.out, analysis)
}

func (p *Presenter) details(v *video.Record) {
	fmt.Fprintf(p.out, "   Channel:  %s\n", v.Channel)
	fmt.Fprintf(p.out, "   Views:    %s\n", v.Views)
	fmt.Fprintf(p.out, "   Duration: %s\n", v.Duration)
	fmt.Fprintf(p.out, "   Uploaded: %s\n", v.UploadTime)
	fmt.Fprintf(p.out, "   URL:      %s\n", v.URL)
}

// Done prints the closing summary.
func (p *Presenter) Done(savedAs string, total int, sel ranking.Selection) {
	p.best.Fprintln(p.out, "\nProcess completed successfully!")
	if savedAs != "" {
		fmt.Fprintf(p.out, "%d videos saved to: %s\n", total, savedAs)
	}
	if sel.Empty() {
		p.warn.Fprintf(p.out, "AI could not determine a clear best video from the %d results\n", total)
		return
	}
	fmt.Fprintf(p.out, "Best Video: %s\n", truncate(sel.Record.Title, 60))
}

// Problem prints a one-line failure message.
func (p *Presenter) Problem(msg string) {
	p.warn.Fprintln(p.out, msg)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
