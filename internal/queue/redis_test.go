package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisQueue(t *testing.T) (*RedisQueue, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	config := DefaultConfig("test")
	config.RedisAddr = mr.Addr()

	q, err := NewRedisQueue(config)
	require.NoError(t, err)

	return q, mr
}

func TestRedisQueue_EnqueueDequeue(t *testing.T) {
	q, mr := setupRedisQueue(t)
	defer mr.Close()
	defer q.Close()

	ctx := context.Background()

	type payload struct {
		ID string `json:"id"`
	}

	require.NoError(t, q.Enqueue(ctx, payload{ID: "rec-1"}))
	require.NoError(t, q.Enqueue(ctx, payload{ID: "rec-2"}))

	items, err := q.DequeueWithTimeout(ctx, 10, time.Second)
	require.NoError(t, err)
	require.Len(t, items, 2)

	var first payload
	raw, ok := items[0].(json.RawMessage)
	require.True(t, ok, "redis queue items should come back as json.RawMessage")
	require.NoError(t, json.Unmarshal(raw, &first))
	assert.Equal(t, "rec-1", first.ID)
}

func TestRedisQueue_BatchCap(t *testing.T) {
	q, mr := setupRedisQueue(t)
	defer mr.Close()
	defer q.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(ctx, i))
	}

	items, err := q.DequeueWithTimeout(ctx, 3, time.Second)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, length)
}

func TestRedisQueue_Length(t *testing.T) {
	q, mr := setupRedisQueue(t)
	defer mr.Close()
	defer q.Close()

	ctx := context.Background()

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, length)

	require.NoError(t, q.Enqueue(ctx, "a"))
	require.NoError(t, q.Enqueue(ctx, "b"))

	length, err = q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, length)
}

func TestNewRedisQueue_Unreachable(t *testing.T) {
	config := DefaultConfig("test")
	config.RedisAddr = "127.0.0.1:1"

	_, err := NewRedisQueue(config)
	assert.Error(t, err)
}
