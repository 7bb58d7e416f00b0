// Package queue provides the async hand-off between request handlers and the
// exchange log sink, with two backends:
//
//  1. Memory queue (channel-based): no persistence, zero external
//     dependencies. The default for single-process deployments.
//  2. Redis queue (list-based): survives restarts and supports multiple
//     gateway pods draining into shared storage.
//
// Items are opaque to the queue. The memory backend hands them back as the
// original values; the Redis backend hands back json.RawMessage, so consumers
// must accept both.
package queue

import (
	"context"
	"time"
)

// Queue is the interface both backends implement.
type Queue interface {
	// Enqueue adds an item to the queue.
	Enqueue(ctx context.Context, item interface{}) error

	// DequeueWithTimeout retrieves up to maxItems. It returns as soon as at
	// least one item is available, or an empty slice after the timeout.
	DequeueWithTimeout(ctx context.Context, maxItems int, timeout time.Duration) ([]interface{}, error)

	// Length returns the current queue length.
	Length(ctx context.Context) (int, error)

	// Close shuts down the queue.
	Close() error
}

// Config holds queue configuration.
type Config struct {
	// Name identifies the queue (and keys it, for the Redis backend).
	Name string

	// BufferSize bounds the number of items held before Enqueue blocks
	// (memory backend only).
	BufferSize int

	// Redis connection settings (Redis backend only).
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// DefaultConfig returns a queue configuration with sane defaults.
func DefaultConfig(name string) *Config {
	return &Config{
		Name:       name,
		BufferSize: 1000,
	}
}
