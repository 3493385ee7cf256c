// Package config loads run configuration from flags, environment and an
// optional YAML file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/polzovatel/video-finder/internal/browser"
	"github.com/polzovatel/video-finder/internal/llm"
	"github.com/polzovatel/video-finder/internal/scrape"
)

const (
	EnvPrefix = "VIDEOFINDER"
	FileName  = ".videofinder"
)

type Config struct {
	Site    Site    `mapstructure:"site"`
	Browser Browser `mapstructure:"browser"`
	Locator Locator `mapstructure:"locator"`
	Filters Filters `mapstructure:"filters"`
	Extract Extract `mapstructure:"extract"`
	LLM     LLM     `mapstructure:"llm"`
	Report  Report  `mapstructure:"report"`
	Query   Query   `mapstructure:"query"`
	Log     Log     `mapstructure:"log"`
}

type Site struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

type Browser struct {
	Headless       bool          `mapstructure:"headless"`
	UserAgent      string        `mapstructure:"user_agent"`
	ExecutablePath string        `mapstructure:"executable_path"`
	StorageState   string        `mapstructure:"storage_state"`
	SaveState      string        `mapstructure:"save_state"`
	NavTimeout     time.Duration `mapstructure:"nav_timeout" validate:"gt=0"`
	ActionTimeout  time.Duration `mapstructure:"action_timeout" validate:"gt=0"`
}

type Locator struct {
	// Wait bounds every page-level lookup.
	Wait time.Duration `mapstructure:"wait" validate:"gte=0"`
	// FieldWait bounds lookups inside a result container.
	FieldWait time.Duration `mapstructure:"field_wait" validate:"gte=0"`
}

type Filters struct {
	Enabled   bool          `mapstructure:"enabled"`
	TimeRange string        `mapstructure:"time_range" validate:"required"`
	Duration  string        `mapstructure:"duration" validate:"required"`
	Settle    time.Duration `mapstructure:"settle" validate:"gte=0"`
}

type Extract struct {
	MaxItems         int           `mapstructure:"max_items" validate:"min=1"`
	MaxRawContainers int           `mapstructure:"max_raw_containers" validate:"gtefield=MaxItems"`
	ScrollRounds     int           `mapstructure:"scroll_rounds" validate:"min=0,max=50"`
	Settle           time.Duration `mapstructure:"settle" validate:"gte=0"`
}

type LLM struct {
	Provider    string        `mapstructure:"provider" validate:"oneof=anthropic openai gemini"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxRetries  int           `mapstructure:"max_retries" validate:"min=0,max=5"`
	Temperature float32       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int           `mapstructure:"max_tokens" validate:"min=0"`
}

type Report struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format" validate:"oneof=json yaml"`
}

type Query struct {
	// TranslateFrom names the input language; empty searches the text as is.
	TranslateFrom string `mapstructure:"translate_from"`
}

type Log struct {
	Debug bool `mapstructure:"debug"`
	Quiet bool `mapstructure:"quiet"`
	JSON  bool `mapstructure:"json"`
}

var defaults = map[string]any{
	"site.url":                   "https://www.youtube.com",
	"browser.headless":           false,
	"browser.user_agent":         "",
	"browser.executable_path":    "",
	"browser.storage_state":      "",
	"browser.save_state":         "",
	"browser.nav_timeout":        30 * time.Second,
	"browser.action_timeout":     3 * time.Second,
	"locator.wait":               5 * time.Second,
	"locator.field_wait":         time.Duration(0),
	"filters.enabled":            true,
	"filters.time_range":         "This week",
	"filters.duration":           "4 - 20 minutes",
	"filters.settle":             2 * time.Second,
	"extract.max_items":          20,
	"extract.max_raw_containers": 30,
	"extract.scroll_rounds":      6,
	"extract.settle":             3 * time.Second,
	"llm.provider":               llm.ProviderGemini,
	"llm.model":                  "",
	"llm.api_key":                "",
	"llm.base_url":               "",
	"llm.timeout":                60 * time.Second,
	"llm.max_retries":            0,
	"llm.temperature":            0.2,
	"llm.max_tokens":             2048,
	"report.dir":                 ".",
	"report.format":              "json",
	"query.translate_from":       "",
	"log.debug":                  false,
	"log.quiet":                  false,
	"log.json":                   false,
}

// New returns a viper instance with defaults and environment binding.
// VIDEOFINDER_EXTRACT_MAX_ITEMS maps to extract.max_items.
func New() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile merges path, or .videofinder.yaml from the given directories
// when path is empty. A missing default file is not an error.
func ReadFile(v *viper.Viper, path string, dirs ...string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		for _, d := range dirs {
			v.AddConfigPath(d)
		}
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

var validate = validator.New()

// Load decodes and validates v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, validationError(err)
	}
	return cfg, nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s %s", strings.TrimPrefix(e.Namespace(), "Config."), describe(e)))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", e.Param())
	case "url":
		return "must be a valid URL"
	case "gtefield":
		return fmt.Sprintf("must be at least %s", e.Param())
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}

func (c Config) BrowserOptions() browser.Options {
	return browser.Options{
		Headless:       c.Browser.Headless,
		UserAgent:      c.Browser.UserAgent,
		ExecutablePath: c.Browser.ExecutablePath,
		NavTimeout:     c.Browser.NavTimeout,
		ActionTimeout:  c.Browser.ActionTimeout,
	}
}

func (c Config) ScrapeOptions() scrape.Options {
	opts := scrape.DefaultOptions()
	opts.MaxItems = c.Extract.MaxItems
	opts.MaxRawContainers = c.Extract.MaxRawContainers
	opts.ScrollRounds = c.Extract.ScrollRounds
	opts.Settle = c.Extract.Settle
	return opts
}

func (c Config) LLMConfig() llm.Config {
	return llm.Config{
		Provider:   c.LLM.Provider,
		Model:      c.LLM.Model,
		APIKey:     c.LLM.APIKey,
		BaseURL:    c.LLM.BaseURL,
		Timeout:    c.LLM.Timeout,
		MaxRetries: c.LLM.MaxRetries,
	}
}
