package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/polzovatel/video-finder/internal/video"
)

var at = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func sample() Report {
	a := video.NewRecord()
	a.Title = "Full body workout & stretch"
	a.URL = "https://www.youtube.com/watch?v=a&t=1"
	b := video.NewRecord()
	b.Title = "Second video"
	return New("home workout", "घर पर कसरत", at, []*video.Record{a, b}, b, "BEST VIDEO: 2. Second video")
}

func TestNew(t *testing.T) {
	r := sample()

	assert.Equal(t, "20250314_092653", r.Timestamp)
	assert.Equal(t, 2, r.TotalVideos)
	assert.Same(t, r.Videos[1], r.BestVideo)
	_, err := uuid.Parse(r.RunID)
	assert.NoError(t, err)
}

func TestSave_JSON(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, FormatJSON, zerolog.Nop())
	require.NoError(t, err)

	path, err := s.Save(sample())

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "youtube_results_20250314_092653.json"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "workout & stretch", "HTML characters are not escaped")
	assert.Contains(t, string(data), "घर पर कसरत")

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	for _, k := range []string{"search_query", "original_query", "timestamp", "total_videos", "best_video_recommendation", "videos", "ai_analysis"} {
		assert.Contains(t, m, k)
	}
	assert.Equal(t, float64(2), m["total_videos"])
	assert.Equal(t, "Second video", m["best_video_recommendation"].(map[string]any)["title"])
}

func TestSave_YAML(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "nested"), FormatYAML, zerolog.Nop())
	require.NoError(t, err)

	path, err := s.Save(sample())

	require.NoError(t, err)
	assert.Equal(t, ".yaml", filepath.Ext(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var back Report
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, "home workout", back.SearchQuery)
	assert.Len(t, back.Videos, 2)
}

func TestSave_NoSelectionAndNoVideos(t *testing.T) {
	s, err := NewStore(t.TempDir(), "", zerolog.Nop())
	require.NoError(t, err)

	path, err := s.Save(New("q", "q", at, nil, nil, "x"))

	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"best_video_recommendation": null`)
	assert.Contains(t, string(data), `"videos": []`)
}

func TestSave_DoesNotOverwrite(t *testing.T) {
	s, err := NewStore(t.TempDir(), FormatJSON, zerolog.Nop())
	require.NoError(t, err)
	_, err = s.Save(sample())
	require.NoError(t, err)

	_, err = s.Save(sample())

	assert.Error(t, err)
}

func TestNewStore_UnknownFormat(t *testing.T) {
	_, err := NewStore(t.TempDir(), Format("xml"), zerolog.Nop())
	assert.ErrorContains(t, err, "unsupported report format")
}
