package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"llm_proxy/internal/config"
	"llm_proxy/internal/httpapi"
)

func main() {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	setupLogging()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	mux, deps, err := httpapi.NewRouter(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}

	addr := ":" + cfg.ProxyPort
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// No WriteTimeout: streamed completions legitimately run for minutes.
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", addr).
			Str("upstream", cfg.UpstreamBaseURL).
			Bool("auth_enabled", cfg.AuthEnabled).
			Msg("llm-proxy listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Drain the exchange log pipeline after the last in-flight request.
	if err := deps.Close(ctx); err != nil {
		log.Error().Err(err).Msg("failed to shut down cleanly")
	}

	log.Info().Msg("server exited")
}

func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(raw)); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
}
