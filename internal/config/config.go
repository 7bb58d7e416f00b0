package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Storage backend types for the exchange log destination.
const (
	StorageLocal  = "local"
	StorageRemote = "remote"
)

// Queue backend types for the async log sink.
const (
	QueueMemory = "memory"
	QueueRedis  = "redis"
)

// Config holds configuration for the proxy gateway.
type Config struct {
	UpstreamAPIKey  string
	UpstreamBaseURL string
	ProxyTimeout    time.Duration
	ProxyPort       string
	AuthEnabled     bool

	Database DatabaseConfig
	KeyCache KeyCacheConfig
	Storage  StorageConfig
	Queue    QueueConfig
}

// DatabaseConfig holds credential store connection settings.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// KeyCacheConfig holds credential cache settings.
type KeyCacheConfig struct {
	RefreshInterval time.Duration
}

// StorageConfig holds log destination settings.
type StorageConfig struct {
	Type        string // "local" or "remote"
	LocalLogDir string
	S3Bucket    string
	S3Region    string
	S3Prefix    string
	PodName     string
}

// QueueConfig holds settings for the queue feeding the log sink.
type QueueConfig struct {
	Backend       string // "memory" or "redis"
	BufferSize    int
	BatchSize     int
	BatchTimeout  time.Duration
	RedisAddress  string
	RedisPassword string
	RedisDB       int
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getEnvBool(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(val)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}

// getEnvSeconds reads a duration expressed as a plain number of seconds.
func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	secs, err := strconv.ParseFloat(val, 64)
	if err != nil || secs <= 0 {
		return defaultValue
	}

	return time.Duration(secs * float64(time.Second))
}

// Load reads configuration from environment variables. Missing required
// settings are returned as errors; the caller treats them as fatal.
func Load() (*Config, error) {
	upstreamKey := os.Getenv("UPSTREAM_API_KEY")
	if upstreamKey == "" {
		return nil, fmt.Errorf("UPSTREAM_API_KEY is required")
	}

	upstreamBase := os.Getenv("UPSTREAM_BASE_URL")
	if upstreamBase == "" {
		return nil, fmt.Errorf("UPSTREAM_BASE_URL is required")
	}

	cfg := &Config{
		UpstreamAPIKey:  upstreamKey,
		UpstreamBaseURL: upstreamBase,
		ProxyTimeout:    getEnvSeconds("PROXY_TIMEOUT", 300*time.Second),
		ProxyPort:       getEnvString("PROXY_PORT", "8888"),
		AuthEnabled:     getEnvBool("AUTH_ENABLED", true),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),
		},
		KeyCache: KeyCacheConfig{
			RefreshInterval: getEnvDuration("KEY_CACHE_REFRESH_INTERVAL", 5*time.Minute),
		},
		Storage: StorageConfig{
			Type:        getEnvString("STORAGE_TYPE", StorageLocal),
			LocalLogDir: getEnvString("LOCAL_LOG_DIR", "logs"),
			S3Bucket:    os.Getenv("S3_BUCKET"),
			S3Region:    getEnvString("S3_REGION", "us-east-1"),
			S3Prefix:    getEnvString("S3_PREFIX", "logs/"),
			PodName:     getEnvString("POD_NAME", "gateway-0"),
		},
		Queue: QueueConfig{
			Backend:       getEnvString("QUEUE_BACKEND", QueueMemory),
			BufferSize:    getEnvInt("QUEUE_BUFFER_SIZE", 1000),
			BatchSize:     getEnvInt("QUEUE_BATCH_SIZE", 100),
			BatchTimeout:  getEnvDuration("QUEUE_BATCH_TIMEOUT", 2*time.Second),
			RedisAddress:  getEnvString("REDIS_ADDRESS", "localhost:6379"),
			RedisPassword: getEnvString("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
		},
	}

	if cfg.AuthEnabled && cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when AUTH_ENABLED=true")
	}

	switch cfg.Storage.Type {
	case StorageLocal:
	case StorageRemote:
		if cfg.Storage.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_TYPE=remote")
		}
	default:
		return nil, fmt.Errorf("STORAGE_TYPE must be %q or %q, got %q", StorageLocal, StorageRemote, cfg.Storage.Type)
	}

	switch cfg.Queue.Backend {
	case QueueMemory, QueueRedis:
	default:
		return nil, fmt.Errorf("QUEUE_BACKEND must be %q or %q, got %q", QueueMemory, QueueRedis, cfg.Queue.Backend)
	}

	return cfg, nil
}
