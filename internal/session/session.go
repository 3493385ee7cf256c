// Package session runs one search from query to saved report.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/polzovatel/video-finder/internal/browser"
	"github.com/polzovatel/video-finder/internal/filters"
	"github.com/polzovatel/video-finder/internal/query"
	"github.com/polzovatel/video-finder/internal/ranking"
	"github.com/polzovatel/video-finder/internal/report"
	"github.com/polzovatel/video-finder/internal/snapshot"
	"github.com/polzovatel/video-finder/internal/video"
)

// Outcome is the terminal state of a run.
type Outcome int

const (
	SuccessWithSelection Outcome = iota
	SuccessNoSelection
	NoVideosFound
	InvalidInput
	SetupFailure
	Interrupted
)

func (o Outcome) String() string {
	switch o {
	case SuccessWithSelection:
		return "success-with-selection"
	case SuccessNoSelection:
		return "success-no-selection"
	case NoVideosFound:
		return "no-videos-found"
	case InvalidInput:
		return "invalid-input"
	case SetupFailure:
		return "setup-failure"
	case Interrupted:
		return "interrupted"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ExitCode maps o to a process status.
func (o Outcome) ExitCode() int {
	switch o {
	case SuccessWithSelection, SuccessNoSelection:
		return 0
	case InvalidInput:
		return 2
	case NoVideosFound:
		return 3
	case Interrupted:
		return 130
	default:
		return 1
	}
}

// Browser opens the page a run works on.
type Browser interface {
	Open(ctx context.Context) (Handle, error)
}

// Handle is an open browser page. Close releases everything Open acquired.
type Handle interface {
	Page() browser.Page
	SaveState(ctx context.Context, path string) error
	Close() error
}

type Searcher interface {
	Open(ctx context.Context, page browser.Page) error
	Submit(ctx context.Context, page browser.Page, query string) error
}

type FilterRunner interface {
	Run(ctx context.Context, page browser.Page) filters.Result
}

type ResultBuilder interface {
	Build(ctx context.Context, page browser.Page) []*video.Record
}

type Ranker interface {
	Rank(ctx context.Context, query string, records []*video.Record) (string, error)
}

type Presenter interface {
	Render(videos []*video.Record, sel ranking.Selection, analysis string)
	Done(savedAs string, total int, sel ranking.Selection)
	Problem(msg string)
}

type Saver interface {
	Save(r report.Report) (string, error)
}

// Deps wires a run. Filters may be nil to skip the filter step.
type Deps struct {
	Query     query.Source
	Browser   Browser
	Searcher  Searcher
	Filters   FilterRunner
	Builder   ResultBuilder
	Ranker    Ranker
	Presenter Presenter
	Store     Saver
}

type Options struct {
	// SaveState, when set, receives the browser storage after a successful run.
	SaveState string
	// DiagnoseTimeout bounds the page snapshot logged on failures; 0 disables it.
	DiagnoseTimeout time.Duration
	Now             func() time.Time
}

// Result describes how a run ended. Err is set for every outcome except a
// clean success; a failed save keeps the success outcome and sets Err.
type Result struct {
	Outcome   Outcome
	Query     query.Query
	Videos    []*video.Record
	Selection ranking.Selection
	Report    *report.Report
	SavedAs   string
	Err       error
}

type Orchestrator struct {
	deps   Deps
	opts   Options
	logger zerolog.Logger
}

func New(deps Deps, opts Options, logger zerolog.Logger) *Orchestrator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{deps: deps, opts: opts, logger: logger}
}

// Run executes acquire, launch, search, filter, build, rank, present and
// save in that order. The browser is released on every path.
func (o *Orchestrator) Run(ctx context.Context) Result {
	var res Result

	q, err := o.deps.Query.Acquire(ctx)
	if err != nil {
		return o.fail(ctx, res, InvalidInput, fmt.Errorf("acquire query: %w", err))
	}
	res.Query = q
	o.logger.Info().Str("query", q.Executed).Str("original", q.Original).Msg("query accepted")

	h, err := o.deps.Browser.Open(ctx)
	if err != nil {
		return o.fail(ctx, res, SetupFailure, fmt.Errorf("launch browser: %w", err))
	}
	defer func() {
		if err := h.Close(); err != nil {
			o.logger.Warn().Err(err).Msg("browser close")
		}
	}()
	page := h.Page()

	if err := o.deps.Searcher.Open(ctx, page); err != nil {
		o.diagnose(ctx, page)
		return o.fail(ctx, res, SetupFailure, err)
	}
	if err := o.deps.Searcher.Submit(ctx, page, q.Executed); err != nil {
		o.diagnose(ctx, page)
		return o.fail(ctx, res, SetupFailure, err)
	}

	if o.deps.Filters != nil {
		fr := o.deps.Filters.Run(ctx, page)
		if !fr.OK() {
			o.logger.Warn().Str("state", fr.State.String()).Msg("filters partially applied; continuing")
		}
	}
	if err := ctx.Err(); err != nil {
		return o.fail(ctx, res, Interrupted, err)
	}

	res.Videos = o.deps.Builder.Build(ctx, page)
	if err := ctx.Err(); err != nil {
		return o.fail(ctx, res, Interrupted, err)
	}
	if len(res.Videos) == 0 {
		o.diagnose(ctx, page)
		o.deps.Presenter.Problem("No videos found for this search.")
		return o.fail(ctx, res, NoVideosFound, errors.New("no videos found"))
	}
	o.logger.Info().Int("videos", len(res.Videos)).Msg("results collected")

	analysis, err := o.deps.Ranker.Rank(ctx, q.Executed, res.Videos)
	if err != nil {
		if ctx.Err() != nil {
			return o.fail(ctx, res, Interrupted, ctx.Err())
		}
		o.logger.Warn().Err(err).Msg("ranking failed; using placeholder")
		analysis = ranking.Placeholder
	}
	res.Selection = ranking.Parse(analysis, res.Videos)
	o.deps.Presenter.Render(res.Videos, res.Selection, analysis)

	rep := report.New(q.Executed, q.Original, o.opts.Now(), res.Videos, res.Selection.Record, analysis)
	res.Report = &rep
	if res.SavedAs, err = o.deps.Store.Save(rep); err != nil {
		res.Err = fmt.Errorf("save report: %w", err)
		o.logger.Error().Err(err).Msg("save report")
		o.deps.Presenter.Problem("Could not save results: " + err.Error())
	}
	o.deps.Presenter.Done(res.SavedAs, len(res.Videos), res.Selection)

	if o.opts.SaveState != "" {
		if err := h.SaveState(ctx, o.opts.SaveState); err != nil {
			o.logger.Error().Err(err).Msg("save state")
		} else {
			o.logger.Info().Str("path", o.opts.SaveState).Msg("storage saved")
		}
	}

	res.Outcome = SuccessWithSelection
	if res.Selection.Empty() {
		res.Outcome = SuccessNoSelection
	}
	return res
}

// fail records the outcome, reporting a cancelled ctx as an interruption
// whatever step noticed it.
func (o *Orchestrator) fail(ctx context.Context, res Result, outcome Outcome, err error) Result {
	if ctx.Err() != nil {
		outcome = Interrupted
	}
	res.Outcome, res.Err = outcome, err
	ev := o.logger.Error()
	if outcome == Interrupted || outcome == NoVideosFound {
		ev = o.logger.Warn()
	}
	ev.Err(err).Str("outcome", outcome.String()).Msg("run stopped")
	return res
}

func (o *Orchestrator) diagnose(ctx context.Context, page browser.Page) {
	if o.opts.DiagnoseTimeout <= 0 || ctx.Err() != nil || o.logger.GetLevel() > zerolog.DebugLevel {
		return
	}
	sctx, cancel := snapshot.WithDeadline(ctx, o.opts.DiagnoseTimeout)
	defer cancel()
	s, err := snapshot.Collect(sctx, page, snapshot.DefaultLimit)
	if err != nil {
		o.logger.Debug().Err(err).Msg("snapshot incomplete")
	}
	o.logger.Debug().Str("snapshot", s.String()).Msg("page at failure")
}
