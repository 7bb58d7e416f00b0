package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("UPSTREAM_API_KEY", "sk-upstream")
	t.Setenv("UPSTREAM_BASE_URL", "https://api.openai.com")
	t.Setenv("DATABASE_URL", "postgres://localhost/keys")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-upstream", cfg.UpstreamAPIKey)
	assert.Equal(t, "https://api.openai.com", cfg.UpstreamBaseURL)
	assert.Equal(t, 300*time.Second, cfg.ProxyTimeout)
	assert.Equal(t, "8888", cfg.ProxyPort)
	assert.True(t, cfg.AuthEnabled)
	assert.Equal(t, 5*time.Minute, cfg.KeyCache.RefreshInterval)
	assert.Equal(t, StorageLocal, cfg.Storage.Type)
	assert.Equal(t, "logs", cfg.Storage.LocalLogDir)
	assert.Equal(t, QueueMemory, cfg.Queue.Backend)
	assert.Equal(t, 1000, cfg.Queue.BufferSize)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Run("upstream key", func(t *testing.T) {
		t.Setenv("UPSTREAM_API_KEY", "")
		t.Setenv("UPSTREAM_BASE_URL", "https://api.openai.com")

		_, err := Load()
		assert.ErrorContains(t, err, "UPSTREAM_API_KEY")
	})

	t.Run("upstream base URL", func(t *testing.T) {
		t.Setenv("UPSTREAM_API_KEY", "sk-upstream")
		t.Setenv("UPSTREAM_BASE_URL", "")

		_, err := Load()
		assert.ErrorContains(t, err, "UPSTREAM_BASE_URL")
	})

	t.Run("database URL when auth enabled", func(t *testing.T) {
		t.Setenv("UPSTREAM_API_KEY", "sk-upstream")
		t.Setenv("UPSTREAM_BASE_URL", "https://api.openai.com")
		t.Setenv("DATABASE_URL", "")

		_, err := Load()
		assert.ErrorContains(t, err, "DATABASE_URL")
	})

	t.Run("no database needed when auth disabled", func(t *testing.T) {
		t.Setenv("UPSTREAM_API_KEY", "sk-upstream")
		t.Setenv("UPSTREAM_BASE_URL", "https://api.openai.com")
		t.Setenv("DATABASE_URL", "")
		t.Setenv("AUTH_ENABLED", "false")

		cfg, err := Load()
		require.NoError(t, err)
		assert.False(t, cfg.AuthEnabled)
	})
}

func TestLoad_ProxyTimeoutSeconds(t *testing.T) {
	setRequired(t)

	t.Setenv("PROXY_TIMEOUT", "45")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.ProxyTimeout)

	t.Setenv("PROXY_TIMEOUT", "0.5")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.ProxyTimeout)

	// Garbage falls back to the default.
	t.Setenv("PROXY_TIMEOUT", "soon")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, 300*time.Second, cfg.ProxyTimeout)
}

func TestLoad_StorageValidation(t *testing.T) {
	setRequired(t)

	t.Run("remote requires bucket", func(t *testing.T) {
		t.Setenv("STORAGE_TYPE", "remote")

		_, err := Load()
		assert.ErrorContains(t, err, "S3_BUCKET")
	})

	t.Run("remote with bucket", func(t *testing.T) {
		t.Setenv("STORAGE_TYPE", "remote")
		t.Setenv("S3_BUCKET", "exchange-logs")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, StorageRemote, cfg.Storage.Type)
		assert.Equal(t, "exchange-logs", cfg.Storage.S3Bucket)
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		t.Setenv("STORAGE_TYPE", "tape")

		_, err := Load()
		assert.ErrorContains(t, err, "STORAGE_TYPE")
	})
}

func TestLoad_QueueValidation(t *testing.T) {
	setRequired(t)

	t.Setenv("QUEUE_BACKEND", "carrier-pigeon")
	_, err := Load()
	assert.ErrorContains(t, err, "QUEUE_BACKEND")

	t.Setenv("QUEUE_BACKEND", "redis")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, QueueRedis, cfg.Queue.Backend)
	assert.Equal(t, "localhost:6379", cfg.Queue.RedisAddress)
}
