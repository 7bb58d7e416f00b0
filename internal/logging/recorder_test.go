package logging

import (
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureSink collects enqueued entries for inspection.
type captureSink struct {
	mu      sync.Mutex
	entries []*Entry
}

func (s *captureSink) Enqueue(e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *captureSink) all() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Entry(nil), s.entries...)
}

func TestRecorder_Lifecycle(t *testing.T) {
	sink := &captureSink{}
	rec := NewRecorder(sink)

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")

	body := []byte(`{"model":"gpt-4","messages":[{"role":"user","content":"hi"}]}`)
	ex := rec.Begin("POST", "/v1/chat/completions", headers, body, "u1")
	ex.Complete(200, http.Header{"Content-Type": {"application/json"}}, []byte(`{"id":"resp-1"}`), false)

	require.NoError(t, rec.Flush(ex))

	entries := sink.all()
	require.Len(t, entries, 1)

	expectedPartition := "gpt-4_" + time.Now().UTC().Format("20060102")
	assert.Equal(t, expectedPartition, entries[0].Partition)

	var record map[string]any
	require.NoError(t, json.Unmarshal(entries[0].Line, &record))
	assert.Equal(t, "u1", record["caller_id"])

	req := record["request"].(map[string]any)
	assert.Equal(t, "POST", req["method"])
	assert.Equal(t, "/v1/chat/completions", req["path"])

	resp := record["response"].(map[string]any)
	assert.Equal(t, float64(200), resp["status_code"])
	assert.Equal(t, false, resp["streaming"])
}

func TestRecorder_FlushBeforeComplete(t *testing.T) {
	rec := NewRecorder(&captureSink{})

	ex := rec.Begin("GET", "/v1/models", http.Header{}, nil, "")
	assert.ErrorIs(t, rec.Flush(ex), ErrNotCompleted)
}

func TestRecorder_DoubleFlush(t *testing.T) {
	sink := &captureSink{}
	rec := NewRecorder(sink)

	ex := rec.Begin("GET", "/v1/models", http.Header{}, nil, "")
	ex.Complete(200, http.Header{}, []byte(`{}`), false)

	require.NoError(t, rec.Flush(ex))
	assert.ErrorIs(t, rec.Flush(ex), ErrAlreadyFlushed)
	assert.Len(t, sink.all(), 1)
}

func TestRecorder_UnknownModelPartition(t *testing.T) {
	sink := &captureSink{}
	rec := NewRecorder(sink)

	ex := rec.Begin("GET", "/v1/models", http.Header{}, nil, "")
	ex.Complete(200, http.Header{}, []byte(`[]`), false)
	require.NoError(t, rec.Flush(ex))

	entries := sink.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "unknown_"+time.Now().UTC().Format("20060102"), entries[0].Partition)
}

func TestRecorder_StreamingRecord(t *testing.T) {
	sink := &captureSink{}
	rec := NewRecorder(sink)

	body := []byte(`{"model":"gpt-4","stream":true}`)
	ex := rec.Begin("POST", "/v1/chat/completions", http.Header{}, body, "u1")
	ex.Complete(200, http.Header{"Content-Type": {"text/event-stream"}}, []byte("data: a\n\ndata: b\n\n"), true)
	require.NoError(t, rec.Flush(ex))

	entries := sink.all()
	require.Len(t, entries, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal(entries[0].Line, &record))
	resp := record["response"].(map[string]any)
	assert.Equal(t, true, resp["streaming"])
	assert.Equal(t, "data: a\n\ndata: b\n\n", resp["body"])
}
