package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/media-gateway/internal/api/router"
	"github.com/cuongbtq/media-gateway/internal/bootstrap"
	"github.com/cuongbtq/media-gateway/internal/config"
	"github.com/cuongbtq/media-gateway/internal/metrics"
	"github.com/cuongbtq/media-gateway/internal/retention"
	"github.com/cuongbtq/media-gateway/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("SWEEPER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/sweeper-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	once := flag.Bool("once", false, "Run a single sweep and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateSweeperConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := bootstrap.InitLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting sweeper service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.NewStorage(cfg.Storage.Dir, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	infra, err := bootstrap.Connect(ctx, cfg, appLogger.Logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	sweepMetrics, _, registry := bootstrap.Metrics(&cfg.Metrics)

	sweeper := retention.NewSweeper(&retention.Config{
		Logger:       appLogger.Logger,
		Store:        store,
		Events:       infra.Events,
		Metrics:      sweepMetrics,
		MaxAge:       cfg.Retention.MaxAge,
		Interval:     cfg.Retention.Interval,
		SweepOnStart: cfg.Retention.SweepOnStart,
	})

	if *once {
		report := sweeper.Sweep(ctx)
		appLogger.Info("Sweep finished",
			slog.Int("scanned", report.Scanned),
			slog.Int("removed", report.Removed),
			slog.Int("failed", report.Failed),
		)
		return nil
	}

	var srv *http.Server
	if registry != nil && cfg.Server.Port > 0 {
		if cfg.App.Environment == "production" {
			gin.SetMode(gin.ReleaseMode)
		}
		srv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           router.SetupMetricsRouter(appLogger.Logger, cfg.Metrics.Path, metrics.Handler(registry)),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				appLogger.Error("Metrics server failed", slog.Any("error", err))
			}
		}()
		appLogger.Info("Serving metrics",
			slog.String("address", srv.Addr),
			slog.String("path", cfg.Metrics.Path),
		)
	}

	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	appLogger.Info("Sweeper service started successfully",
		slog.String("download_dir", store.Dir()),
		slog.Duration("max_age", cfg.Retention.MaxAge),
		slog.Duration("interval", cfg.Retention.Interval),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	appLogger.Info("Received signal, shutting down gracefully",
		slog.String("signal", sig.String()),
	)

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLogger.Warn("Metrics server shutdown failed", slog.Any("error", err))
		}
	}

	select {
	case <-done:
		appLogger.Info("Sweeper stopped gracefully")
	case <-shutdownCtx.Done():
		appLogger.Warn("Sweeper shutdown timeout exceeded, forcing exit")
	}

	return nil
}
