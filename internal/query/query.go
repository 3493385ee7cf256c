// Package query supplies the text to search for.
package query

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/polzovatel/video-finder/internal/llm"
)

// ErrNoInput means the source produced nothing worth searching for.
var ErrNoInput = errors.New("no usable query")

const maxQueryLength = 2000

// Query carries the text that is searched and the text the user gave.
// They differ only when the input was translated.
type Query struct {
	Executed string
	Original string
}

type Source interface {
	Acquire(ctx context.Context) (Query, error)
}

// Static is a query fixed up front, e.g. from a flag.
type Static string

func (s Static) Acquire(ctx context.Context) (Query, error) {
	if err := ctx.Err(); err != nil {
		return Query{}, err
	}
	text := Sanitize(string(s))
	if text == "" {
		return Query{}, ErrNoInput
	}
	return Query{Executed: text, Original: text}, nil
}

// Prompt reads one line from In after writing Label to Out.
type Prompt struct {
	In    io.Reader
	Out   io.Writer
	Label string
}

func (p Prompt) Acquire(ctx context.Context) (Query, error) {
	if p.Out != nil && p.Label != "" {
		fmt.Fprint(p.Out, p.Label)
	}

	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := bufio.NewReader(p.In).ReadString('\n')
		ch <- result{line, err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return Query{}, ctx.Err()
	case r = <-ch:
	}
	if r.err != nil && !errors.Is(r.err, io.EOF) {
		return Query{}, fmt.Errorf("read query: %w", r.err)
	}
	text := Sanitize(r.line)
	if text == "" {
		return Query{}, ErrNoInput
	}
	return Query{Executed: text, Original: text}, nil
}

// Sanitize trims s, drops control characters and caps its length.
func Sanitize(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	n := 0
	for _, r := range s {
		if n >= maxQueryLength {
			break
		}
		if r < 32 && r != '\t' {
			continue
		}
		if r == '\t' {
			r = ' '
		}
		b.WriteRune(r)
		n++
	}
	return strings.TrimSpace(b.String())
}

// Translating wraps a source and translates its text to English. When the
// translation fails the original text is searched.
type Translating struct {
	Source Source
	// From names the input language, e.g. "Hindi". Empty or English
	// disables translation.
	From   string
	Client llm.Client
	Logger zerolog.Logger
}

func (t Translating) Acquire(ctx context.Context) (Query, error) {
	q, err := t.Source.Acquire(ctx)
	if err != nil {
		return q, err
	}
	from := strings.TrimSpace(t.From)
	if from == "" || strings.EqualFold(from, "en") || strings.EqualFold(from, "english") || t.Client == nil {
		return q, nil
	}

	resp, err := t.Client.Generate(ctx, llm.Request{
		System:   "You translate search queries. Reply with the English translation only, without quotes or commentary.",
		Messages: []llm.Message{llm.User(fmt.Sprintf("Translate this %s search query to English:\n%s", from, q.Original))},
	})
	if err != nil {
		if ctx.Err() != nil {
			return Query{}, ctx.Err()
		}
		t.Logger.Warn().Err(err).Msg("translation failed, searching original text")
		return q, nil
	}
	translated := Sanitize(strings.Trim(strings.TrimSpace(resp.Text), `"'`))
	if translated == "" {
		t.Logger.Warn().Msg("empty translation, searching original text")
		return q, nil
	}
	t.Logger.Info().Str("original", q.Original).Str("translated", translated).Msg("query translated")
	q.Executed = translated
	return q, nil
}
