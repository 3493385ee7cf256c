package scrape

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/polzovatel/video-finder/internal/browser"
	"github.com/polzovatel/video-finder/internal/locator"
	"github.com/polzovatel/video-finder/internal/video"
)

// Options bound the amount of work done on one results page.
type Options struct {
	MaxItems         int
	MaxRawContainers int
	ScrollRounds     int
	Settle           time.Duration
	OverlayPause     time.Duration
}

func DefaultOptions() Options {
	return Options{
		MaxItems:         20,
		MaxRawContainers: 30,
		ScrollRounds:     6,
		Settle:           3 * time.Second,
		OverlayPause:     time.Second,
	}
}

// Builder collects up to MaxItems unique records from a results page.
type Builder struct {
	opts       Options
	containers locator.Strategy
	overlays   locator.Strategy
	resolver   *locator.Resolver
	extractor  *Extractor
	logger     zerolog.Logger
}

func NewBuilder(opts Options, containers, overlays locator.Strategy, resolver *locator.Resolver, extractor *Extractor, logger zerolog.Logger) *Builder {
	return &Builder{
		opts:       opts,
		containers: containers,
		overlays:   overlays,
		resolver:   resolver,
		extractor:  extractor,
		logger:     logger,
	}
}

// Build never returns an error. Whatever was accepted before the page went
// away, or the context ended, is returned.
func (b *Builder) Build(ctx context.Context, page browser.Page) []*video.Record {
	b.dismissOverlays(ctx, page)
	b.loadMore(ctx, page)

	containers, loc, ok := b.resolver.ResolveAll(ctx, b.containers, page)
	if !ok {
		b.logger.Warn().Msg("no result containers found")
		return nil
	}
	b.logger.Info().Int("containers", len(containers)).Str("locator", loc.String()).Msg("result containers located")

	set := video.NewSet(b.opts.MaxItems)
	for i, c := range containers {
		if b.opts.MaxRawContainers > 0 && i >= b.opts.MaxRawContainers {
			break
		}
		if err := page.Alive(ctx); err != nil {
			b.logger.Warn().Err(err).Int("processed", i).Int("accepted", set.Len()).Msg("page lost, keeping partial results")
			break
		}
		rec := b.extractor.Extract(ctx, c)
		switch res := set.Add(rec); res {
		case video.Accepted:
			b.logger.Debug().Int("n", set.Len()).Str("title", rec.Title).Msg("video accepted")
		default:
			b.logger.Debug().Int("container", i+1).Str("reason", res.String()).Str("title", rec.Title).Msg("video skipped")
		}
		if set.Full() {
			break
		}
	}
	b.logger.Info().Int("videos", set.Len()).Msg("extraction finished")
	return set.Records()
}

func (b *Builder) dismissOverlays(ctx context.Context, page browser.Page) {
	if b.overlays.Len() == 0 {
		return
	}
	quick := b.resolver.WithWait(0)
	// visit every overlay locator; never accept so the walk covers the list
	quick.Walk(ctx, b.overlays, page, func(m locator.Match) bool {
		el := m.First()
		if v, err := el.Visible(ctx); err != nil || !v {
			return false
		}
		if err := el.ClickScripted(ctx); err != nil {
			b.logger.Debug().Err(err).Str("locator", m.Locator.String()).Msg("overlay not dismissed")
			return false
		}
		b.logger.Debug().Str("locator", m.Locator.String()).Msg("overlay dismissed")
		_ = sleep(ctx, b.opts.OverlayPause)
		return false
	})
}

func (b *Builder) loadMore(ctx context.Context, page browser.Page) {
	quick := b.resolver.WithWait(0)
	for round := 1; round <= b.opts.ScrollRounds; round++ {
		if err := page.ScrollToBottom(ctx); err != nil {
			b.logger.Debug().Err(err).Int("round", round).Msg("scroll failed")
			return
		}
		if err := sleep(ctx, b.opts.Settle); err != nil {
			return
		}
		els, _, _ := quick.ResolveAll(ctx, b.containers, page)
		b.logger.Debug().Int("round", round).Int("containers", len(els)).Msg("scrolled")
		if len(els) >= b.opts.MaxItems {
			return
		}
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
