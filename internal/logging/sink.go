package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"llm_proxy/internal/queue"
)

// Writer appends serialized records to a destination partition. Writers must
// tolerate concurrent calls without interleaving bytes within one record.
type Writer interface {
	Append(ctx context.Context, partition string, lines [][]byte) error
}

// QueueSink drains exchange entries from a queue and appends them through a
// Writer. Append failures are reported to the operator and the affected
// records dropped; by the time a record reaches the sink the client response
// has already been sent, so nothing here is ever client-visible.
type QueueSink struct {
	q            queue.Queue
	writer       Writer
	batchSize    int
	batchTimeout time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewQueueSink creates a sink draining q into writer.
func NewQueueSink(q queue.Queue, writer Writer, batchSize int, batchTimeout time.Duration) *QueueSink {
	return &QueueSink{
		q:            q,
		writer:       writer,
		batchSize:    batchSize,
		batchTimeout: batchTimeout,
	}
}

// Enqueue adds an entry to the queue.
func (s *QueueSink) Enqueue(e *Entry) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.q.Enqueue(ctx, e); err != nil {
		return fmt.Errorf("failed to enqueue exchange record: %w", err)
	}
	return nil
}

// Start launches the drain worker.
func (s *QueueSink) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			items, err := s.q.DequeueWithTimeout(ctx, s.batchSize, s.batchTimeout)
			if err != nil {
				if ctx.Err() != nil || err == queue.ErrQueueClosed {
					return
				}
				log.Error().Err(err).Msg("log sink dequeue failed")
				continue
			}
			s.writeBatch(context.Background(), items)
		}
	}()
}

// writeBatch groups entries by partition and appends each group once.
func (s *QueueSink) writeBatch(ctx context.Context, items []interface{}) {
	if len(items) == 0 {
		return
	}

	byPartition := make(map[string][][]byte)
	for _, item := range items {
		entry, err := decodeEntry(item)
		if err != nil {
			log.Error().Err(err).Msg("log sink dropped undecodable entry")
			continue
		}
		byPartition[entry.Partition] = append(byPartition[entry.Partition], entry.Line)
	}

	for partition, lines := range byPartition {
		if err := s.writer.Append(ctx, partition, lines); err != nil {
			log.Error().Err(err).
				Str("partition", partition).
				Int("records", len(lines)).
				Msg("failed to append exchange records, dropping")
		}
	}
}

// decodeEntry normalizes queue items: the memory backend returns *Entry, the
// Redis backend returns json.RawMessage.
func decodeEntry(item interface{}) (*Entry, error) {
	switch v := item.(type) {
	case *Entry:
		return v, nil
	case json.RawMessage:
		var entry Entry
		if err := json.Unmarshal(v, &entry); err != nil {
			return nil, fmt.Errorf("failed to decode queued entry: %w", err)
		}
		return &entry, nil
	default:
		return nil, fmt.Errorf("unexpected queue item type %T", item)
	}
}

// Shutdown stops the worker and drains whatever is still queued.
func (s *QueueSink) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	// Final drain: anything enqueued after the worker's last pass.
	for {
		items, err := s.q.DequeueWithTimeout(ctx, s.batchSize, 10*time.Millisecond)
		if err != nil || len(items) == 0 {
			break
		}
		s.writeBatch(ctx, items)
	}

	return s.q.Close()
}
