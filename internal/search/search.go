// Package search opens the site and submits a query through its search box.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/polzovatel/video-finder/internal/browser"
	"github.com/polzovatel/video-finder/internal/locator"
	"github.com/polzovatel/video-finder/internal/site"
)

var (
	ErrPageUnreachable  = errors.New("site did not load")
	ErrSearchBoxMissing = errors.New("search box not found")
	ErrResultsMissing   = errors.New("search results did not load")
)

type Options struct {
	// Settle is how long the page gets to go quiet after results appear.
	Settle time.Duration
}

type Searcher struct {
	site     site.Site
	opts     Options
	resolver *locator.Resolver
	logger   zerolog.Logger
}

func NewSearcher(s site.Site, opts Options, resolver *locator.Resolver, logger zerolog.Logger) *Searcher {
	return &Searcher{site: s, opts: opts, resolver: resolver, logger: logger}
}

// Open navigates to the site and waits for its application root.
func (s *Searcher) Open(ctx context.Context, page browser.Page) error {
	s.logger.Info().Str("url", s.site.URL).Msg("opening site")
	if err := page.Navigate(ctx, s.site.URL); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", ErrPageUnreachable, err)
	}
	if _, _, ok := s.resolver.Resolve(ctx, s.site.AppRoot, page); !ok {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s missing", ErrPageUnreachable, s.site.AppRoot.Name())
	}
	s.logger.Info().Msg("site loaded")
	return nil
}

// Submit types query into the search box and waits for results. The search
// button is preferred; Enter is pressed when no button can be clicked.
func (s *Searcher) Submit(ctx context.Context, page browser.Page, query string) error {
	s.logger.Info().Str("query", query).Msg("searching")

	box, loc, ok := s.resolver.ResolveInteractable(ctx, s.site.SearchBox, page)
	if !ok {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrSearchBoxMissing
	}
	s.logger.Debug().Str("locator", loc.String()).Msg("search box found")
	if err := box.Fill(ctx, query); err != nil {
		return fmt.Errorf("fill search box: %w", err)
	}

	if !s.clickButton(ctx, page) {
		s.logger.Debug().Msg("search button not usable, pressing Enter")
		if err := box.Press(ctx, "Enter"); err != nil {
			return fmt.Errorf("submit search: %w", err)
		}
	}

	_, loc, ok = s.resolver.Resolve(ctx, s.site.Results, page)
	if !ok {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrResultsMissing
	}
	s.logger.Debug().Str("locator", loc.String()).Msg("results present")
	if err := page.WaitStable(ctx, s.opts.Settle); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Debug().Err(err).Msg("page did not settle")
	}
	s.logger.Info().Msg("search completed")
	return nil
}

func (s *Searcher) clickButton(ctx context.Context, page browser.Page) bool {
	_, ok := s.resolver.Walk(ctx, s.site.SearchButton, page, func(m locator.Match) bool {
		for _, el := range m.Elements {
			if v, err := el.Visible(ctx); err != nil || !v {
				continue
			}
			if err := el.Click(ctx); err == nil {
				return true
			}
		}
		return false
	})
	return ok
}
