/*
Package main is the entry point for the collaboration server.

It is responsible for loading configuration, initializing the global logging system,
connecting the optional Redis fan-out mirror, setting up the HTTP server and the
collaboration Manager, and gracefully handling operating system interrupt signals
(SIGINT, SIGTERM) so every connection is told the server is going away.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collabhub/internal/app/collab"
	"collabhub/internal/app/relay"
	"collabhub/internal/configs"
	"collabhub/internal/handler"
	"collabhub/internal/pkg/logx"
	"collabhub/internal/pkg/metrics"
)

func main() {
	// Load configuration from the optional YAML file and environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("auth_mode", cfg.AuthMode).
		Str("overflow_policy", cfg.OverflowPolicy).
		Bool("relay_enabled", cfg.RedisURL != "").
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewDefault()

	var mirror relay.Mirror = relay.Noop{}
	if cfg.RedisURL != "" {
		dialCtx, cancelDial := context.WithTimeout(ctx, 5*time.Second)
		redisMirror, err := relay.Dial(dialCtx, cfg.RedisURL, relay.Options{OnResult: m.RelayPublished})
		cancelDial()
		if err != nil {
			logx.Fatal(err, "Failed to connect to Redis relay")
		}
		logx.Info("Redis relay connected", "instance_id", redisMirror.InstanceID())
		mirror = redisMirror
	}

	// Initialize collaboration Manager
	manager := collab.NewManager(cfg, mirror, m)

	// Setup HTTP server and routes
	router := handler.Router(&handler.AppDeps{
		Manager: manager,
		Config:  cfg,
		Metrics: m,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Collaboration server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	// Refuse new upgrades and notify every open connection before the listener goes away.
	manager.Shutdown()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	if err := mirror.Close(); err != nil {
		logx.Error(err, "Failed to close Redis relay")
	}

	logx.Info("Server gracefully stopped.")
}
