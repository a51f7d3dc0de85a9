package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/media-gateway/internal/config"
	"github.com/cuongbtq/media-gateway/internal/events"
	"github.com/cuongbtq/media-gateway/internal/ledger"
	"github.com/cuongbtq/media-gateway/internal/metrics"
	"github.com/cuongbtq/media-gateway/shared/logger"
	"github.com/cuongbtq/media-gateway/shared/postgresql"
	"github.com/cuongbtq/media-gateway/shared/rabbitmq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Infra holds the optional backing services shared by both binaries
type Infra struct {
	Events events.Sink
	// Ledger is nil when the database is disabled
	Ledger *ledger.Ledger
	Checks map[string]func(ctx context.Context) error

	dbClient     *postgresql.Client
	rabbitClient *rabbitmq.Client
}

// Close releases every connection Connect opened
func (i *Infra) Close() {
	if i.dbClient != nil {
		i.dbClient.Close()
	}
	if i.rabbitClient != nil {
		i.rabbitClient.Close()
	}
}

// Connect opens the database and broker connections that are enabled and
// assembles the event sink over them.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Infra, error) {
	infra := &Infra{Checks: map[string]func(context.Context) error{}}
	var sinks []events.Sink

	if cfg.Database.Enabled {
		dbClient, err := InitPostgreSQL(&cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		infra.dbClient = dbClient

		l := ledger.New(dbClient.GetDB())
		if err := l.EnsureSchema(ctx); err != nil {
			infra.Close()
			return nil, err
		}
		infra.Ledger = l
		infra.Checks["database"] = dbClient.HealthCheck
		sinks = append(sinks, events.NewLedgerSink(l))

		logger.Info("Job ledger enabled")
	}

	if cfg.Events.Enabled {
		rabbitClient, err := InitRabbitMQ(&cfg.Events, logger)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		infra.rabbitClient = rabbitClient
		infra.Checks["events"] = func(context.Context) error {
			if !rabbitClient.IsConnected() {
				return fmt.Errorf("not connected to RabbitMQ")
			}
			return nil
		}
		sinks = append(sinks, events.NewRabbitPublisher(rabbitClient))

		logger.Info("Event publishing enabled",
			slog.String("exchange", cfg.Events.Exchange.Name),
		)
	}

	if len(sinks) == 0 {
		infra.Events = events.Noop{}
	} else {
		infra.Events = events.NewFanout(logger, cfg.Events.Timeout, sinks...)
	}

	return infra, nil
}

// Metrics builds the Prometheus recorders. The registry is nil when
// metrics are disabled.
func Metrics(cfg *config.MetricsConfig) (metrics.Metrics, metrics.GatewayMetrics, *prometheus.Registry) {
	if !cfg.Enabled {
		return metrics.Noop{}, metrics.Noop{}, nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	prom := metrics.NewProm(cfg.Namespace, reg)
	return prom, prom, reg
}

// InitLogger initializes and configures the application logger
func InitLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// InitPostgreSQL initializes the PostgreSQL database client
func InitPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// InitRabbitMQ initializes the RabbitMQ publisher
func InitRabbitMQ(cfg *config.EventsConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}
