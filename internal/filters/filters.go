// Package filters applies search result filters through the page's filter
// panel. Every step is best effort; the sequence never aborts a run.
package filters

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/polzovatel/video-finder/internal/browser"
	"github.com/polzovatel/video-finder/internal/locator"
)

// State is the sequencer's position. It always advances, whether or not
// the step that leads to it worked.
type State int

const (
	Idle State = iota
	FiltersOpen
	TimeRangeSelected
	FiltersReopened
	DurationSelected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case FiltersOpen:
		return "filters-open"
	case TimeRangeSelected:
		return "time-range-selected"
	case FiltersReopened:
		return "filters-reopened"
	case DurationSelected:
		return "duration-selected"
	}
	return "unknown"
}

// Controls locates the filter panel toggle and the two options.
type Controls struct {
	Open      locator.Strategy
	TimeRange locator.Strategy
	Duration  locator.Strategy
	// DurationClimb, when set, moves activation from the matched label to
	// an enclosing element that actually carries the click handler.
	DurationClimb *locator.Locator
}

type Options struct {
	Settle time.Duration
}

// StepResult records one transition.
type StepResult struct {
	To       State
	Target   string
	OK       bool
	Locator  locator.Locator
	Scripted bool
}

type Result struct {
	Steps []StepResult
	State State
}

// OK reports whether every step found and activated its control.
func (r Result) OK() bool {
	if len(r.Steps) == 0 {
		return false
	}
	for _, s := range r.Steps {
		if !s.OK {
			return false
		}
	}
	return true
}

type step struct {
	to       State
	strategy locator.Strategy
	climb    *locator.Locator
}

type Sequencer struct {
	controls Controls
	opts     Options
	resolver *locator.Resolver
	logger   zerolog.Logger
}

func NewSequencer(controls Controls, opts Options, resolver *locator.Resolver, logger zerolog.Logger) *Sequencer {
	return &Sequencer{controls: controls, opts: opts, resolver: resolver, logger: logger}
}

// Run walks Idle → FiltersOpen → TimeRangeSelected → FiltersReopened →
// DurationSelected. It stops early only when ctx is done.
func (s *Sequencer) Run(ctx context.Context, page browser.Page) Result {
	steps := []step{
		{to: FiltersOpen, strategy: s.controls.Open},
		{to: TimeRangeSelected, strategy: s.controls.TimeRange},
		{to: FiltersReopened, strategy: s.controls.Open},
		{to: DurationSelected, strategy: s.controls.Duration, climb: s.controls.DurationClimb},
	}

	res := Result{State: Idle}
	if err := page.ScrollToTop(ctx); err != nil {
		s.logger.Debug().Err(err).Msg("scroll to top failed")
	}
	for _, st := range steps {
		if ctx.Err() != nil {
			return res
		}
		sr := s.transition(ctx, page, st)
		res.Steps = append(res.Steps, sr)
		res.State = st.to
		if !sr.OK {
			s.logger.Warn().Str("step", st.to.String()).Str("target", sr.Target).Msg("filter control not found, continuing")
			continue
		}
		s.logger.Info().Str("step", st.to.String()).Str("locator", sr.Locator.String()).Bool("scripted", sr.Scripted).Msg("filter step done")
		if err := pause(ctx, s.opts.Settle); err != nil {
			return res
		}
	}
	return res
}

func (s *Sequencer) transition(ctx context.Context, page browser.Page, st step) StepResult {
	sr := StepResult{To: st.to, Target: st.strategy.Name()}
	_, ok := s.resolver.Walk(ctx, st.strategy, page, func(m locator.Match) bool {
		el := m.First()
		if st.climb != nil {
			if up, err := el.FindAll(ctx, st.climb.By, st.climb.Expr, 0); err == nil && len(up) > 0 {
				el = up[0]
			}
		}
		scripted, err := activate(ctx, el)
		if err != nil {
			s.logger.Debug().Err(err).Str("locator", m.Locator.String()).Msg("filter control not clickable")
			return false
		}
		sr.Locator = m.Locator
		sr.Scripted = scripted
		return true
	})
	sr.OK = ok
	return sr
}

// activate clicks el directly and falls back to a scripted click when the
// direct one is refused.
func activate(ctx context.Context, el browser.Element) (scripted bool, err error) {
	_ = el.ScrollIntoView(ctx)
	if err := el.Click(ctx); err == nil {
		return false, nil
	}
	if err := el.ClickScripted(ctx); err != nil {
		return true, err
	}
	return true, nil
}

func pause(ctx context.Context, d time.Duration) error {
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
