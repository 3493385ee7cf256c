package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"
)

const (
	defaultNavTimeout    = 30 * time.Second
	defaultActionTimeout = 3 * time.Second
	defaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	hideWebdriverScript = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`
)

// ErrNoBrowser is returned when no launch strategy produced a browser.
var ErrNoBrowser = errors.New("no browser could be launched")

// chromePaths are probed when no executable path is configured.
var chromePaths = []string{
	"/usr/bin/google-chrome",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/chromium-browser",
	"/usr/bin/chromium",
	"/opt/google/chrome/google-chrome",
}

// Options configures the launcher and every session it opens.
type Options struct {
	Headless       bool
	UserAgent      string
	ExecutablePath string
	NavTimeout     time.Duration
	ActionTimeout  time.Duration
}

// Launcher owns playwright lifecycle.
type Launcher struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    Options
	logger  zerolog.Logger
}

type launchStrategy struct {
	name string
	opts playwright.BrowserTypeLaunchOptions
}

// NewLauncher starts playwright and launches Chromium, trying the configured
// executable, an installed Chrome channel, known binary paths and finally the
// bundled Chromium. It fails only when every strategy fails.
func NewLauncher(ctx context.Context, opts Options, logger zerolog.Logger) (*Launcher, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = defaultNavTimeout
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = defaultActionTimeout
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	var errs []error
	for _, s := range launchStrategies(opts) {
		if err := ctx.Err(); err != nil {
			_ = pw.Stop()
			return nil, err
		}
		logger.Debug().Str("strategy", s.name).Msg("launching browser")
		b, err := pw.Chromium.Launch(s.opts)
		if err != nil {
			logger.Warn().Err(err).Str("strategy", s.name).Msg("browser launch failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		logger.Info().Str("strategy", s.name).Msg("browser launched")
		return &Launcher{pw: pw, browser: b, opts: opts, logger: logger}, nil
	}
	_ = pw.Stop()
	return nil, fmt.Errorf("%w: %w", ErrNoBrowser, errors.Join(errs...))
}

func launchStrategies(opts Options) []launchStrategy {
	base := func() playwright.BrowserTypeLaunchOptions {
		return playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(opts.Headless),
			Args: []string{
				"--disable-dev-shm-usage",
				"--no-sandbox",
				"--disable-blink-features=AutomationControlled",
				"--disable-extensions",
			},
			IgnoreDefaultArgs: []string{"--enable-automation"},
		}
	}

	var out []launchStrategy
	if path := strings.TrimSpace(opts.ExecutablePath); path != "" {
		o := base()
		o.ExecutablePath = playwright.String(path)
		out = append(out, launchStrategy{name: "configured " + path, opts: o})
	}
	chrome := base()
	chrome.Channel = playwright.String("chrome")
	out = append(out, launchStrategy{name: "chrome channel", opts: chrome})
	for _, path := range chromePaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		o := base()
		o.ExecutablePath = playwright.String(path)
		out = append(out, launchStrategy{name: path, opts: o})
	}
	out = append(out, launchStrategy{name: "bundled chromium", opts: base()})
	return out
}

// NewSession opens a fresh browser context with a single page. storagePath,
// when it names an existing file, seeds cookies and local storage.
func (l *Launcher) NewSession(ctx context.Context, storagePath string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := playwright.BrowserNewContextOptions{
		IgnoreHttpsErrors: playwright.Bool(true),
		UserAgent:         playwright.String(l.opts.UserAgent),
		Viewport:          &playwright.Size{Width: 1366, Height: 900},
	}
	if strings.TrimSpace(storagePath) != "" {
		if _, err := os.Stat(storagePath); err == nil {
			opts.StorageStatePath = playwright.String(storagePath)
			l.logger.Debug().Str("path", storagePath).Msg("loading storage state")
		}
	}
	bctx, err := l.browser.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("new context: %w", err)
	}
	if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(hideWebdriverScript)}); err != nil {
		l.logger.Debug().Err(err).Msg("init script not installed")
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}
	page.SetDefaultTimeout(float64(l.opts.NavTimeout.Milliseconds()))
	return &Session{
		context: bctx,
		page:    &pwPage{page: page, navTimeout: l.opts.NavTimeout, actionTimeout: l.opts.ActionTimeout},
	}, nil
}

func (l *Launcher) Close() error {
	if l.browser != nil {
		_ = l.browser.Close()
	}
	if l.pw != nil {
		return l.pw.Stop()
	}
	return nil
}

// Session is one browser context and its page.
type Session struct {
	context playwright.BrowserContext
	page    *pwPage
}

func (s *Session) Page() Page { return s.page }

func (s *Session) Close() error {
	if s.page != nil && !s.page.page.IsClosed() {
		_ = s.page.page.Close()
	}
	if s.context != nil {
		return s.context.Close()
	}
	return nil
}

// SaveState writes cookies and local storage so a later run can reuse them.
func (s *Session) SaveState(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	state, err := s.context.StorageState()
	if err != nil {
		return wrap(err)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal storage: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("playwright: %w", err)
}
