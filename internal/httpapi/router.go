package httpapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"llm_proxy/internal/auth"
	"llm_proxy/internal/config"
	"llm_proxy/internal/logging"
	"llm_proxy/internal/middleware"
	"llm_proxy/internal/queue"
	"llm_proxy/internal/storage"
)

// Dependencies aggregates everything the HTTP layer needs. The key cache and
// the recorder are constructed once here and injected; request handlers hold
// no process-wide state of their own.
type Dependencies struct {
	Config   *config.Config
	Keys     *auth.KeyCache
	Recorder *logging.Recorder
	Client   *http.Client

	db            *storage.DB
	sink          *logging.QueueSink
	localWriter   *logging.LocalWriter
	cancelRefresh context.CancelFunc
}

// NewRouter wires all dependencies and returns the HTTP mux.
func NewRouter(cfg *config.Config) (*http.ServeMux, *Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Client: newUpstreamClient(cfg.ProxyTimeout),
	}

	// Credential cache: synchronous refresh at startup, then a timer-driven
	// loop. An unreachable store at startup is an operator problem, not a
	// fatal one; the empty snapshot stays installed until a refresh lands.
	if cfg.AuthEnabled {
		db, err := storage.NewDB(storage.DBConfig{
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize credential store: %w", err)
		}
		deps.db = db

		keys := auth.NewKeyCache(storage.NewCredentialRepository(db), cfg.KeyCache.RefreshInterval)
		if err := keys.Refresh(context.Background()); err == nil {
			log.Info().Int("credentials", keys.Len()).Msg("credential cache primed")
		}

		refreshCtx, cancel := context.WithCancel(context.Background())
		deps.cancelRefresh = cancel
		keys.Start(refreshCtx)
		deps.Keys = keys
	}

	// Exchange log pipeline: queue → sink worker → destination writer.
	writer, err := newLogWriter(cfg)
	if err != nil {
		cleanup(deps)
		return nil, nil, err
	}
	if lw, ok := writer.(*logging.LocalWriter); ok {
		deps.localWriter = lw
	}

	q, err := newLogQueue(cfg)
	if err != nil {
		cleanup(deps)
		return nil, nil, err
	}

	sink := logging.NewQueueSink(q, writer, cfg.Queue.BatchSize, cfg.Queue.BatchTimeout)
	sink.Start()
	deps.sink = sink
	deps.Recorder = logging.NewRecorder(sink)

	mux := http.NewServeMux()
	registerRoutes(mux, deps)

	return mux, deps, nil
}

func registerRoutes(mux *http.ServeMux, deps *Dependencies) {
	mux.Handle("/v1/", middleware.Metrics(http.HandlerFunc(deps.handleProxy)))
	mux.HandleFunc("/health", deps.handleHealth)
	mux.HandleFunc("/", deps.handleRoot)
	mux.Handle("/metrics", promhttp.Handler())
}

// newUpstreamClient builds the outbound HTTP client. The timeout bounds
// connecting and waiting for response headers; it deliberately does not
// bound reading a streamed body, which may legitimately run for much longer.
func newUpstreamClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: timeout,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: timeout,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

func newLogWriter(cfg *config.Config) (logging.Writer, error) {
	switch cfg.Storage.Type {
	case config.StorageRemote:
		writer, err := logging.NewS3Writer(context.Background(),
			cfg.Storage.S3Bucket, cfg.Storage.S3Region, cfg.Storage.S3Prefix, cfg.Storage.PodName)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 log writer: %w", err)
		}
		return writer, nil
	default:
		writer, err := logging.NewLocalWriter(cfg.Storage.LocalLogDir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local log writer: %w", err)
		}
		return writer, nil
	}
}

func newLogQueue(cfg *config.Config) (queue.Queue, error) {
	qCfg := queue.DefaultConfig("exchange-log")
	qCfg.BufferSize = cfg.Queue.BufferSize

	if cfg.Queue.Backend == config.QueueRedis {
		qCfg.RedisAddr = cfg.Queue.RedisAddress
		qCfg.RedisPassword = cfg.Queue.RedisPassword
		qCfg.RedisDB = cfg.Queue.RedisDB
		q, err := queue.NewRedisQueue(qCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize log queue: %w", err)
		}
		return q, nil
	}

	return queue.NewMemoryQueue(qCfg), nil
}

func cleanup(deps *Dependencies) {
	if deps.cancelRefresh != nil {
		deps.cancelRefresh()
	}
	if deps.db != nil {
		_ = deps.db.Close()
	}
}

// Close stops the background refresher, drains the log sink and releases
// connections. Called from the process shutdown path.
func (d *Dependencies) Close(ctx context.Context) error {
	if d.cancelRefresh != nil {
		d.cancelRefresh()
	}

	var firstErr error
	if d.sink != nil {
		if err := d.sink.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if d.localWriter != nil {
		if err := d.localWriter.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
