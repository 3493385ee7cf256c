// Package video holds the scraped result model.
package video

import (
	"strings"
)

// Field names one scraped attribute of a result.
type Field string

const (
	Title      Field = "title"
	URL        Field = "url"
	Channel    Field = "channel"
	Views      Field = "views"
	UploadTime Field = "upload_time"
	Duration   Field = "duration"
)

// Fields lists every field in display order.
var Fields = []Field{Title, URL, Channel, Views, UploadTime, Duration}

// Sentinels mark a field that could not be extracted. They are never empty.
const (
	UnknownTitle      = "Unknown Title"
	UnknownURL        = "Unknown URL"
	UnknownChannel    = "Unknown Channel"
	UnknownViews      = "Unknown views"
	UnknownUploadTime = "Unknown time"
	UnknownDuration   = "Unknown duration"
)

// Sentinel returns the placeholder value for f.
func Sentinel(f Field) string {
	switch f {
	case Title:
		return UnknownTitle
	case URL:
		return UnknownURL
	case Channel:
		return UnknownChannel
	case Views:
		return UnknownViews
	case UploadTime:
		return UnknownUploadTime
	case Duration:
		return UnknownDuration
	}
	return ""
}

const dedupPrefix = 40

// Record is one result item.
type Record struct {
	Title      string `json:"title" yaml:"title"`
	URL        string `json:"url" yaml:"url"`
	Channel    string `json:"channel" yaml:"channel"`
	Views      string `json:"views" yaml:"views"`
	UploadTime string `json:"upload_time" yaml:"upload_time"`
	Duration   string `json:"duration" yaml:"duration"`
}

// NewRecord returns a record with every field set to its sentinel.
func NewRecord() *Record {
	return &Record{
		Title:      UnknownTitle,
		URL:        UnknownURL,
		Channel:    UnknownChannel,
		Views:      UnknownViews,
		UploadTime: UnknownUploadTime,
		Duration:   UnknownDuration,
	}
}

func (r *Record) ptr(f Field) *string {
	switch f {
	case Title:
		return &r.Title
	case URL:
		return &r.URL
	case Channel:
		return &r.Channel
	case Views:
		return &r.Views
	case UploadTime:
		return &r.UploadTime
	case Duration:
		return &r.Duration
	}
	return nil
}

func (r *Record) Get(f Field) string {
	if p := r.ptr(f); p != nil {
		return *p
	}
	return ""
}

// Set assigns v to f. Unknown fields are ignored.
func (r *Record) Set(f Field, v string) {
	if p := r.ptr(f); p != nil {
		*p = v
	}
}

// Known reports whether f holds an extracted value.
func (r *Record) Known(f Field) bool {
	v := r.Get(f)
	return v != "" && v != Sentinel(f)
}

// Valid reports whether the record is worth keeping: the title must be
// present, not the sentinel and longer than three characters after trim.
func (r *Record) Valid() bool {
	if r == nil || r.Title == UnknownTitle {
		return false
	}
	return len([]rune(strings.TrimSpace(r.Title))) > 3
}

// DedupKey is the lower-cased first 40 characters of the title.
func (r *Record) DedupKey() string {
	runes := []rune(r.Title)
	if len(runes) > dedupPrefix {
		runes = runes[:dedupPrefix]
	}
	return strings.ToLower(string(runes))
}
