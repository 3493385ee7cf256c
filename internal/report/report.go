// Package report persists the outcome of a run.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/polzovatel/video-finder/internal/video"
)

// Format is the on-disk encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// TimestampLayout is used both in the report body and its file name.
const TimestampLayout = "20060102_150405"

// Report is written once at the end of a run.
type Report struct {
	RunID         string          `json:"run_id" yaml:"run_id"`
	SearchQuery   string          `json:"search_query" yaml:"search_query"`
	OriginalQuery string          `json:"original_query" yaml:"original_query"`
	Timestamp     string          `json:"timestamp" yaml:"timestamp"`
	TotalVideos   int             `json:"total_videos" yaml:"total_videos"`
	BestVideo     *video.Record   `json:"best_video_recommendation" yaml:"best_video_recommendation"`
	Videos        []*video.Record `json:"videos" yaml:"videos"`
	AIAnalysis    string          `json:"ai_analysis" yaml:"ai_analysis"`
}

// New snapshots a run. best may be nil.
func New(executed, original string, at time.Time, videos []*video.Record, best *video.Record, analysis string) Report {
	vs := append(make([]*video.Record, 0, len(videos)), videos...)
	return Report{
		RunID:         uuid.NewString(),
		SearchQuery:   executed,
		OriginalQuery: original,
		Timestamp:     at.Format(TimestampLayout),
		TotalVideos:   len(vs),
		BestVideo:     best,
		Videos:        vs,
		AIAnalysis:    analysis,
	}
}

// Store writes reports into Dir.
type Store struct {
	dir    string
	format Format
	logger zerolog.Logger
}

func NewStore(dir string, format Format, logger zerolog.Logger) (*Store, error) {
	switch format {
	case FormatJSON, FormatYAML:
	case "":
		format = FormatJSON
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
	if dir == "" {
		dir = "."
	}
	return &Store{dir: dir, format: format, logger: logger}, nil
}

// FileName is the name a report is saved under.
func (s *Store) FileName(r Report) string {
	return fmt.Sprintf("youtube_results_%s.%s", r.Timestamp, s.format)
}

// Save writes r and returns the file path. Existing files are not
// overwritten.
func (s *Store) Save(r Report) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(s.dir, s.FileName(r))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}

	w := bufio.NewWriter(f)
	if err := s.encode(w, r); err != nil {
		f.Close()
		return "", fmt.Errorf("encode report: %w", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}

	ev := s.logger.Info().Str("path", path).Int("videos", r.TotalVideos)
	if st, err := os.Stat(path); err == nil {
		ev = ev.Str("size", humanize.Bytes(uint64(st.Size())))
	}
	ev.Msg("report saved")
	return path, nil
}

func (s *Store) encode(w *bufio.Writer, r Report) error {
	if s.format == FormatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
