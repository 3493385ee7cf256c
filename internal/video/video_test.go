package video

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord_AllSentinels(t *testing.T) {
	r := NewRecord()
	for _, f := range Fields {
		assert.Equal(t, Sentinel(f), r.Get(f), f)
		assert.NotEmpty(t, r.Get(f), f)
		assert.False(t, r.Known(f), f)
	}
}

func TestRecord_SetGet(t *testing.T) {
	r := NewRecord()
	r.Set(Views, "1.2M views")
	r.Set(Field("nope"), "ignored")

	assert.Equal(t, "1.2M views", r.Views)
	assert.True(t, r.Known(Views))
	assert.Equal(t, "", r.Get(Field("nope")))
}

func TestRecord_Valid(t *testing.T) {
	cases := []struct {
		title string
		want  bool
	}{
		{UnknownTitle, false},
		{"", false},
		{"abc", false},
		{"  abc  ", false},
		{"abcd", true},
		{"Go concurrency patterns", true},
	}
	for _, tc := range cases {
		r := NewRecord()
		r.Title = tc.title
		assert.Equal(t, tc.want, r.Valid(), "%q", tc.title)
	}
	var nilRecord *Record
	assert.False(t, nilRecord.Valid())
}

func TestRecord_DedupKey(t *testing.T) {
	r := &Record{Title: "ABCDEFGHIJ" + strings.Repeat("x", 40)}
	assert.Equal(t, "abcdefghij"+strings.Repeat("x", 30), r.DedupKey())

	short := &Record{Title: "Short Title"}
	assert.Equal(t, "short title", short.DedupKey())

	// multi-byte titles are cut on characters, not bytes
	ru := &Record{Title: strings.Repeat("Ж", 50)}
	assert.Equal(t, strings.Repeat("ж", 40), ru.DedupKey())
}

func TestRecord_JSONNames(t *testing.T) {
	data, err := json.Marshal(NewRecord())
	require.NoError(t, err)

	var m map[string]string
	require.NoError(t, json.Unmarshal(data, &m))
	for _, f := range Fields {
		assert.Contains(t, m, string(f))
	}
}

func TestSet_Add(t *testing.T) {
	s := NewSet(2)
	prefix := strings.Repeat("p", 40)

	first := &Record{Title: prefix + " one"}
	assert.Equal(t, Accepted, s.Add(first))
	assert.Equal(t, Duplicate, s.Add(&Record{Title: strings.ToUpper(prefix) + " two"}))
	assert.Equal(t, Invalid, s.Add(&Record{Title: UnknownTitle}))
	assert.Equal(t, Accepted, s.Add(&Record{Title: "Another video"}))
	assert.True(t, s.Full())
	assert.Equal(t, Full, s.Add(&Record{Title: "Third video"}))

	recs := s.Records()
	require.Len(t, recs, 2)
	assert.Same(t, first, recs[0])
	assert.Equal(t, 2, s.Len())
}

func TestSet_Uncapped(t *testing.T) {
	s := NewSet(0)
	for i := 0; i < 50; i++ {
		s.Add(&Record{Title: strings.Repeat("t", i+4)})
	}
	assert.False(t, s.Full())
	assert.Equal(t, 37, s.Len()) // titles of 40+ runes share a key
}

func TestAddResult_String(t *testing.T) {
	assert.Equal(t, "duplicate", Duplicate.String())
	assert.Equal(t, "unknown", AddResult(42).String())
}
