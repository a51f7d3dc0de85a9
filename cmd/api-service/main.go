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

	"github.com/cuongbtq/media-gateway/internal/api/handler"
	"github.com/cuongbtq/media-gateway/internal/api/router"
	"github.com/cuongbtq/media-gateway/internal/bootstrap"
	"github.com/cuongbtq/media-gateway/internal/config"
	"github.com/cuongbtq/media-gateway/internal/jobs"
	"github.com/cuongbtq/media-gateway/internal/metrics"
	"github.com/cuongbtq/media-gateway/internal/retention"
	"github.com/cuongbtq/media-gateway/internal/storage"
	"github.com/cuongbtq/media-gateway/internal/transform"
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

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := bootstrap.InitLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	store, err := storage.NewStorage(cfg.Storage.Dir, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	infra, err := bootstrap.Connect(ctx, cfg, appLogger.Logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	jobMetrics, gatewayMetrics, registry := bootstrap.Metrics(&cfg.Metrics)

	ytdlp := transform.NewYTDLP(cfg.Transform.Executable, appLogger.Logger)

	runner := jobs.NewRunner(&jobs.Config{
		Logger:      appLogger.Logger,
		Store:       store,
		Transformer: ytdlp,
		Events:      infra.Events,
		Metrics:     jobMetrics,
		Concurrency: cfg.Transform.Concurrency,
		QueueSize:   cfg.Transform.QueueSize,
		JobTimeout:  cfg.Transform.Timeout,
	})
	runner.SpawnPool(ctx)

	if cfg.Retention.Mode == config.RetentionEmbedded {
		sweeper := retention.NewSweeper(&retention.Config{
			Logger:       appLogger.Logger,
			Store:        store,
			Events:       infra.Events,
			Metrics:      jobMetrics,
			MaxAge:       cfg.Retention.MaxAge,
			Interval:     cfg.Retention.Interval,
			SweepOnStart: cfg.Retention.SweepOnStart,
		})
		go sweeper.Run(ctx)
	}

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	checks := make(map[string]handler.HealthCheck, len(infra.Checks))
	for name, check := range infra.Checks {
		checks[name] = check
	}

	handlerDeps := &handler.Dependencies{
		Logger:       appLogger.Logger,
		Runner:       runner,
		Store:        store,
		Prober:       ytdlp,
		ProbeTimeout: cfg.Transform.ProbeTimeout,
		Events:       infra.Events,
		Version:      cfg.App.Version,
		Checks:       checks,
	}
	// a typed nil would defeat the handler's disabled check
	if infra.Ledger != nil {
		handlerDeps.Ledger = infra.Ledger
	}

	routerCfg := &router.Config{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
		Metrics:        gatewayMetrics,
	}
	if cfg.RateLimit.Enabled {
		routerCfg.RateLimit = &router.RateLimitConfig{
			Requests: cfg.RateLimit.Requests,
			Window:   cfg.RateLimit.Window,
			Burst:    cfg.RateLimit.Burst,
		}
	}
	if registry != nil {
		routerCfg.MetricsHandler = metrics.Handler(registry)
		routerCfg.MetricsPath = cfg.Metrics.Path
	}

	r, err := router.SetupRouter(handlerDeps, routerCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.String("download_dir", store.Dir()),
		slog.Int("concurrency", cfg.Transform.Concurrency),
		slog.String("retention_mode", cfg.Retention.Mode),
	)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		appLogger.Error("Server failed to start", slog.Any("error", err))
		return err
	}

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	shutdownErr := srv.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		appLogger.Error("Server forced to shutdown", slog.Any("error", shutdownErr))
	}

	// in-flight transforms are killed once the pool context is canceled
	stop()
	runner.Stop()

	appLogger.Info("Server shutdown complete")
	return shutdownErr
}
