package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New())

	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com", cfg.Site.URL)
	assert.Equal(t, 20, cfg.Extract.MaxItems)
	assert.Equal(t, 30, cfg.Extract.MaxRawContainers)
	assert.Equal(t, 6, cfg.Extract.ScrollRounds)
	assert.Equal(t, 3*time.Second, cfg.Extract.Settle)
	assert.Equal(t, 5*time.Second, cfg.Locator.Wait)
	assert.Equal(t, time.Duration(0), cfg.Locator.FieldWait)
	assert.True(t, cfg.Filters.Enabled)
	assert.Equal(t, "This week", cfg.Filters.TimeRange)
	assert.Equal(t, "4 - 20 minutes", cfg.Filters.Duration)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 0, cfg.LLM.MaxRetries)
	assert.Equal(t, "json", cfg.Report.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("VIDEOFINDER_EXTRACT_MAX_ITEMS", "10")
	t.Setenv("VIDEOFINDER_LLM_PROVIDER", "openai")
	t.Setenv("VIDEOFINDER_LOCATOR_WAIT", "1500ms")

	cfg, err := Load(New())

	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Extract.MaxItems)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 1500*time.Millisecond, cfg.Locator.Wait)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	content := `
browser:
  headless: true
  nav_timeout: 45s
report:
  format: yaml
  dir: out
filters:
  enabled: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName+".yaml"), []byte(content), 0o644))
	v := New()

	require.NoError(t, ReadFile(v, "", dir))
	cfg, err := Load(v)

	require.NoError(t, err)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 45*time.Second, cfg.Browser.NavTimeout)
	assert.Equal(t, "yaml", cfg.Report.Format)
	assert.Equal(t, "out", cfg.Report.Dir)
	assert.False(t, cfg.Filters.Enabled)
}

func TestReadFile_MissingDefaultIsFine(t *testing.T) {
	assert.NoError(t, ReadFile(New(), "", t.TempDir()))
}

func TestReadFile_MissingExplicitFails(t *testing.T) {
	err := ReadFile(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read config")
}

func TestLoad_Validation(t *testing.T) {
	cases := map[string]struct {
		key  string
		val  any
		want string
	}{
		"format":     {"report.format", "xml", "Report.Format must be one of [json yaml]"},
		"provider":   {"llm.provider", "cohere", "LLM.Provider must be one of"},
		"max items":  {"extract.max_items", 0, "Extract.MaxItems must be at least 1"},
		"raw below":  {"extract.max_raw_containers", 5, "Extract.MaxRawContainers must be at least MaxItems"},
		"site url":   {"site.url", "not a url", "Site.URL must be a valid URL"},
		"nav":        {"browser.nav_timeout", "0s", "Browser.NavTimeout must be greater than 0"},
		"time range": {"filters.time_range", "", "Filters.TimeRange is required"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			v := New()
			v.Set(tc.key, tc.val)

			_, err := Load(v)

			require.Error(t, err)
			assert.True(t, strings.HasPrefix(err.Error(), "invalid config: "), err.Error())
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestConversions(t *testing.T) {
	cfg, err := Load(New())
	require.NoError(t, err)

	so := cfg.ScrapeOptions()
	assert.Equal(t, 20, so.MaxItems)
	assert.Equal(t, time.Second, so.OverlayPause)

	bo := cfg.BrowserOptions()
	assert.Equal(t, 30*time.Second, bo.NavTimeout)

	lc := cfg.LLMConfig()
	assert.Equal(t, "gemini", lc.Provider)
	assert.Equal(t, time.Minute, lc.Timeout)
}
