package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"multi-merchant-settlement/config"
	"multi-merchant-settlement/internal/app"
	"multi-merchant-settlement/pkg/logger"
)

var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("storage", cfg.Storage.Driver).
		Int("port", cfg.Server.Port).
		Str("version", version).
		Msg("Starting Multi-Merchant Settlement")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	application, err := app.New(ctx, cfg, log, app.Options{
		SwaggerSpecPath: "docs/api/openapi.yaml",
		Version:         version,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}

	// Background sync and retention jobs
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		if err := application.Scheduler.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Scheduler stopped")
		}
	}()

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      application.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	stop()
	<-schedulerDone

	if err := application.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Closing resources failed")
	}

	log.Info().Msg("Server exited")
}
