// Package commands implements the videofinder CLI.
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/polzovatel/video-finder/internal/config"
	"github.com/polzovatel/video-finder/internal/display"
	"github.com/polzovatel/video-finder/internal/filters"
	"github.com/polzovatel/video-finder/internal/llm"
	"github.com/polzovatel/video-finder/internal/locator"
	"github.com/polzovatel/video-finder/internal/logging"
	"github.com/polzovatel/video-finder/internal/query"
	"github.com/polzovatel/video-finder/internal/ranking"
	"github.com/polzovatel/video-finder/internal/report"
	"github.com/polzovatel/video-finder/internal/scrape"
	"github.com/polzovatel/video-finder/internal/search"
	"github.com/polzovatel/video-finder/internal/session"
	"github.com/polzovatel/video-finder/internal/site"
)

const diagnoseTimeout = 5 * time.Second

// exitError carries a process status out of RunE.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// flag name -> config key
var bindings = map[string]string{
	"config":         "config",
	"debug":          "log.debug",
	"quiet":          "log.quiet",
	"log-json":       "log.json",
	"site-url":       "site.url",
	"headless":       "browser.headless",
	"storage-state":  "browser.storage_state",
	"save-state":     "browser.save_state",
	"time-range":     "filters.time_range",
	"duration":       "filters.duration",
	"max-items":      "extract.max_items",
	"scroll-rounds":  "extract.scroll_rounds",
	"provider":       "llm.provider",
	"model":          "llm.model",
	"output-dir":     "report.dir",
	"format":         "report.format",
	"translate-from": "query.translate_from",
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "videofinder [query]",
		Short: "Find the best recent YouTube video for a query",
		Long: `videofinder searches YouTube, applies the upload-date and duration
filters, scrapes the result list and asks a language model which video
best matches the query. Results are saved as a JSON or YAML report.

Examples:
  # Ask for the query interactively
  videofinder

  # Search directly, headless, YAML report
  videofinder "home workout for beginners" --headless --format yaml

  # Translate a non-English query before searching
  videofinder "योग सुबह" --translate-from Hindi -p anthropic`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			home, _ := os.UserHomeDir()
			return config.ReadFile(v, v.GetString("config"), home, ".")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, args)
		},
	}

	pf := cmd.PersistentFlags()
	pf.String("config", "", "config file (default $HOME/.videofinder.yaml or ./.videofinder.yaml)")
	pf.Bool("debug", false, "enable debug logging")
	pf.BoolP("quiet", "q", false, "only log errors")
	pf.Bool("log-json", false, "log as JSON")

	f := cmd.Flags()
	f.StringP("query", "s", "", "search query (prompted when empty)")
	f.String("site-url", site.DefaultURL, "site base URL")
	f.Bool("headless", false, "run the browser without a window")
	f.String("storage-state", "", "path to a saved browser storage state")
	f.String("save-state", "", "save browser storage state here after the run")
	f.Bool("no-filters", false, "skip the upload-date and duration filters")
	f.String("time-range", site.DefaultTimeRange, "upload date filter label")
	f.String("duration", site.DefaultDuration, "duration filter label")
	f.Int("max-items", 20, "maximum videos to collect")
	f.Int("scroll-rounds", 6, "scroll passes to load more results")
	f.StringP("provider", "p", llm.ProviderGemini, "LLM provider (anthropic, openai, gemini)")
	f.StringP("model", "m", "", "LLM model (provider default when empty)")
	f.StringP("output-dir", "o", ".", "report directory")
	f.String("format", string(report.FormatJSON), "report format (json, yaml)")
	f.String("translate-from", "", "input language to translate from, e.g. Hindi")
	f.Bool("no-color", false, "disable colored output")

	for name, key := range bindings {
		fl := pf.Lookup(name)
		if fl == nil {
			fl = f.Lookup(name)
		}
		_ = v.BindPFlag(key, fl)
	}
	return cmd
}

func run(cmd *cobra.Command, v *viper.Viper, args []string) error {
	if noFilters, _ := cmd.Flags().GetBool("no-filters"); noFilters {
		v.Set("filters.enabled", false)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	logging.Init(logging.Options{Debug: cfg.Log.Debug, Quiet: cfg.Log.Quiet, JSON: cfg.Log.JSON, Output: cmd.ErrOrStderr()})
	noColor, _ := cmd.Flags().GetBool("no-color")
	presenter := display.New(cmd.OutOrStdout(), noColor)
	presenter.Banner()

	var client llm.Client
	if c, err := llm.New(cfg.LLMConfig(), logging.Component("llm")); err != nil {
		l := logging.Component("llm")
		l.Warn().Err(err).Msg("no language model; analysis will be unavailable")
	} else {
		client = c
	}

	store, err := report.NewStore(cfg.Report.Dir, report.Format(cfg.Report.Format), logging.Component("report"))
	if err != nil {
		return err
	}

	yt := site.YouTube(cfg.Site.URL)
	resolver := locator.NewResolver(cfg.Locator.Wait, logging.Component("locator"))
	extractor := scrape.NewExtractor(yt.Rules, resolver.WithWait(cfg.Locator.FieldWait), logging.Component("extract"))

	deps := session.Deps{
		Query: query.Translating{
			Source: querySource(cmd, args),
			From:   cfg.Query.TranslateFrom,
			Client: client,
			Logger: logging.Component("query"),
		},
		Browser: session.Playwright{
			Options:      cfg.BrowserOptions(),
			StorageState: cfg.Browser.StorageState,
			Logger:       logging.Component("browser"),
		},
		Searcher:  search.NewSearcher(yt, search.Options{Settle: cfg.Extract.Settle}, resolver, logging.Component("search")),
		Builder:   scrape.NewBuilder(cfg.ScrapeOptions(), yt.Containers, yt.Overlays, resolver, extractor, logging.Component("scrape")),
		Ranker:    ranking.NewRanker(client, ranking.Options{Temperature: cfg.LLM.Temperature, MaxTokens: cfg.LLM.MaxTokens}, logging.Component("rank")),
		Presenter: presenter,
		Store:     store,
	}
	if cfg.Filters.Enabled {
		deps.Filters = filters.NewSequencer(
			site.Filters(cfg.Filters.TimeRange, cfg.Filters.Duration),
			filters.Options{Settle: cfg.Filters.Settle},
			resolver,
			logging.Component("filters"),
		)
	}

	res := session.New(deps, session.Options{
		SaveState:       cfg.Browser.SaveState,
		DiagnoseTimeout: diagnoseTimeout,
	}, logging.Component("session")).Run(cmd.Context())

	logEvent(res).Str("outcome", res.Outcome.String()).Int("videos", len(res.Videos)).Msg("run finished")
	if code := res.Outcome.ExitCode(); code != 0 {
		return &exitError{code: code, err: res.Err}
	}
	return nil
}

func logEvent(res session.Result) *zerolog.Event {
	l := logging.Component("cli")
	if res.Err != nil {
		return l.Warn().Err(res.Err)
	}
	return l.Info()
}

// querySource prefers --query, then positional args, then a prompt.
func querySource(cmd *cobra.Command, args []string) query.Source {
	if q, _ := cmd.Flags().GetString("query"); strings.TrimSpace(q) != "" {
		return query.Static(q)
	}
	if len(args) > 0 {
		return query.Static(strings.Join(args, " "))
	}
	return query.Prompt{
		In:    cmd.InOrStdin(),
		Out:   cmd.OutOrStdout(),
		Label: "Enter your search query: ",
	}
}

// Execute runs the root command and returns the process exit status.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return execute(ctx, newRootCmd(config.New()))
}

func execute(ctx context.Context, cmd *cobra.Command) int {
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	return 1
}
