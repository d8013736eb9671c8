package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blackmichael/bubble-server/internal/config"
	"github.com/blackmichael/bubble-server/internal/domain"
	"github.com/blackmichael/bubble-server/internal/httpserver"
	"github.com/blackmichael/bubble-server/internal/media"
	"github.com/blackmichael/bubble-server/internal/reaper"
	"github.com/blackmichael/bubble-server/internal/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	repo, err := sqlite.NewRepository(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("create repository: %w", err)
	}
	defer repo.Close()
	logger.Info("database ready", "path", cfg.DatabasePath)

	mediaStore := media.NewCloudinary("", cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if !mediaStore.Configured() {
		logger.Warn("cloudinary not configured; uploads will be rejected")
	}

	service, err := domain.NewBubbleService(repo, mediaStore, domain.Options{
		TTL:           cfg.TTL,
		TrendingLimit: cfg.TrendingLimit,
		RandomLimit:   cfg.RandomLimit,
	}, logger)
	if err != nil {
		return fmt.Errorf("create bubble service: %w", err)
	}

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Metrics listener on its own port
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	go func() {
		logger.Info("starting metrics server", "addr", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, metricsMux); err != nil {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	// Start the expiry reaper in the background
	r := reaper.New(service, cfg.ReaperSchedule, logger)
	go func() {
		if err := r.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error("reaper exited with error", "error", err)
		}
	}()

	// Start the HTTP server
	server := httpserver.NewServer(cfg, service, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server exited with error", "error", err)
		}
	}()

	logger.Info("server started", "port", cfg.Port)

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()

	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}

	return nil
}
