package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	"github.com/polzovatel/video-finder/internal/config"
	"github.com/polzovatel/video-finder/internal/query"
)

func newTestCmd(t *testing.T, stdin string, args ...string) (*cobra.Command, *viper.Viper, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	t.Setenv("GEMINI_API_KEY", "")
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	v := config.New()
	cmd := newRootCmd(v)
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	return cmd, v, out, errOut
}

func TestExecute_EmptyPromptIsInvalidInput(t *testing.T) {
	cmd, _, out, _ := newTestCmd(t, "\n", "--no-color", "--log-json")

	code := execute(context.Background(), cmd)

	assert.Equal(t, 2, code)
	assert.Contains(t, out.String(), "Enter your search query: ")
	assert.Contains(t, out.String(), "YouTube Video Finder")
}

func TestExecute_FlagsBindToConfig(t *testing.T) {
	cmd, v, _, _ := newTestCmd(t, "", "--max-items", "7", "--format", "yaml", "--no-filters", "-q")

	code := execute(context.Background(), cmd)

	assert.Equal(t, 2, code)
	assert.Equal(t, 7, v.GetInt("extract.max_items"))
	assert.Equal(t, "yaml", v.GetString("report.format"))
	assert.False(t, v.GetBool("filters.enabled"))
	assert.True(t, v.GetBool("log.quiet"))
}

func TestExecute_InvalidConfig(t *testing.T) {
	cmd, _, _, errOut := newTestCmd(t, "", "--format", "xml", "yoga")

	code := execute(context.Background(), cmd)

	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), "Report.Format must be one of [json yaml]")
}

func TestExecute_MissingConfigFile(t *testing.T) {
	cmd, _, _, errOut := newTestCmd(t, "", "--config", filepath.Join(os.TempDir(), "videofinder-missing.yaml"))

	code := execute(context.Background(), cmd)

	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), "read config")
}

func TestExecute_ConfigFileInWorkingDir(t *testing.T) {
	cmd, v, _, _ := newTestCmd(t, "")
	assert.NoError(t, os.WriteFile(config.FileName+".yaml", []byte("extract:\n  max_items: 12\n"), 0o644))

	code := execute(context.Background(), cmd)

	assert.Equal(t, 2, code)
	assert.Equal(t, 12, v.GetInt("extract.max_items"))
}

func TestExecute_Cancelled(t *testing.T) {
	cmd, _, _, _ := newTestCmd(t, "", "yoga")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code := execute(ctx, cmd)

	assert.Equal(t, 130, code)
}

func TestQuerySource(t *testing.T) {
	cmd := newRootCmd(config.New())
	assert.IsType(t, queryPromptType(), querySource(cmd, nil))

	_ = cmd.Flags().Set("query", "yoga")
	q, err := querySource(cmd, []string{"ignored"}).Acquire(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "yoga", q.Executed)
}

func queryPromptType() any { return query.Prompt{} }
