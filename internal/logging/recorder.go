package logging

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

var (
	// ErrNotCompleted is returned when flushing an exchange whose response
	// half has not been attached.
	ErrNotCompleted = errors.New("exchange not completed")

	// ErrAlreadyFlushed is returned on a second flush of the same exchange.
	// A handle is consumed by its first flush.
	ErrAlreadyFlushed = errors.New("exchange already flushed")
)

// Entry is one serialized record bound for a destination partition.
type Entry struct {
	Partition string          `json:"partition"`
	Line      json.RawMessage `json:"line"`
}

// Sink accepts completed exchange entries for asynchronous appending.
type Sink interface {
	Enqueue(e *Entry) error
}

// Exchange is the handle for one in-flight request/response pair. It is
// owned by a single request goroutine until Complete, after which Flush may
// run from any goroutine.
type Exchange struct {
	mu        sync.Mutex
	rec       Record
	rawBody   []byte
	completed bool
	flushed   bool
}

// Recorder builds exchange records and hands completed ones to the sink.
type Recorder struct {
	sink Sink
}

// NewRecorder creates a recorder appending through sink.
func NewRecorder(sink Sink) *Recorder {
	return &Recorder{sink: sink}
}

// Begin constructs the request half of an exchange record. It is purely
// local and cannot fail. callerID is empty when authentication is disabled.
func (r *Recorder) Begin(method, path string, headers http.Header, body []byte, callerID string) *Exchange {
	return &Exchange{
		rec: Record{
			Timestamp: time.Now().UTC(),
			CallerID:  callerID,
			Request: RequestInfo{
				Method:  method,
				Path:    path,
				Headers: flattenHeaders(headers),
				Body:    ParseBody(body),
			},
		},
		rawBody: body,
	}
}

// Complete attaches the response half. For streamed responses body is the
// side buffer accumulated while relaying.
func (ex *Exchange) Complete(statusCode int, headers http.Header, body []byte, streaming bool) {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	ex.rec.Response = &ResponseInfo{
		StatusCode: statusCode,
		Headers:    flattenHeaders(headers),
		Body:       ParseBody(body),
		Streaming:  streaming,
	}
	ex.completed = true
}

// Flush serializes the completed exchange and enqueues it for appending to
// the partition derived from the request's model and the current date. The
// handle is consumed: a second flush is an error by contract.
func (r *Recorder) Flush(ex *Exchange) error {
	ex.mu.Lock()
	if !ex.completed {
		ex.mu.Unlock()
		return ErrNotCompleted
	}
	if ex.flushed {
		ex.mu.Unlock()
		return ErrAlreadyFlushed
	}
	ex.flushed = true
	rec := ex.rec
	rawBody := ex.rawBody
	ex.mu.Unlock()

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to serialize exchange record: %w", err)
	}

	entry := &Entry{
		Partition: PartitionName(ExtractModel(rawBody), time.Now()),
		Line:      line,
	}

	return r.sink.Enqueue(entry)
}
