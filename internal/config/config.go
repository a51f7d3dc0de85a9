package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Retention modes
const (
	// RetentionEmbedded runs the sweeper inside the API service
	RetentionEmbedded = "embedded"
	// RetentionExternal leaves sweeping to the sweeper service
	RetentionExternal = "external"
)

// Config represents the complete application configuration
type Config struct {
	App       AppConfig       `yaml:"app"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Transform TransformConfig `yaml:"transform"`
	Retention RetentionConfig `yaml:"retention"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Events    EventsConfig    `yaml:"events"`
	Database  DatabaseConfig  `yaml:"database"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	TrustedProxies  []string      `yaml:"trusted_proxies"`
}

// StorageConfig holds the artifact directory
type StorageConfig struct {
	Dir string `yaml:"dir"`
}

// TransformConfig holds downloader and job pool settings
type TransformConfig struct {
	// Executable overrides the yt-dlp binary looked up on PATH
	Executable   string        `yaml:"executable"`
	Concurrency  int           `yaml:"concurrency"`
	QueueSize    int           `yaml:"queue_size"`
	Timeout      time.Duration `yaml:"timeout"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
}

// RetentionConfig holds artifact expiry settings
type RetentionConfig struct {
	Mode         string        `yaml:"mode"`
	MaxAge       time.Duration `yaml:"max_age"`
	Interval     time.Duration `yaml:"interval"`
	SweepOnStart bool          `yaml:"sweep_on_start"`
}

// RateLimitConfig holds the per-client limit applied to /api routes
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
	Burst    int           `yaml:"burst"`
}

// CORSConfig holds allowed browser origins
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// MetricsConfig holds Prometheus exposition settings
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// EventsConfig holds the RabbitMQ lifecycle event publisher configuration
type EventsConfig struct {
	Enabled    bool             `yaml:"enabled"`
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      QueueConfig      `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
	// Timeout bounds delivery of a single event
	Timeout time.Duration `yaml:"timeout"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds an optional queue bound to the exchange
type QueueConfig struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
	Exclusive  bool   `yaml:"exclusive"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// DatabaseConfig holds the PostgreSQL job ledger configuration
type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// Load reads and parses the configuration file, then fills defaults and
// environment overrides
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	config.ApplyDefaults()

	return &config, nil
}

// ApplyEnv overlays the deployment variables the service has always honored
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}

	if v, ok := lookup("FRONTEND_URL"); ok && v != "" {
		c.CORS.AllowedOrigins = strings.Split(v, ",")
	}

	if v, ok := lookup("DOWNLOAD_DIR"); ok && v != "" {
		c.Storage.Dir = v
	}

	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}

	if v, ok := lookup("YTDLP_PATH"); ok && v != "" {
		c.Transform.Executable = v
	}

	return nil
}

// ApplyDefaults fills zero values
func (c *Config) ApplyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "media-gateway"
	}
	if c.App.Version == "" {
		c.App.Version = "1.0.0"
	}
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}

	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	// downloads block the request until the transform finishes
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Minute
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}

	if c.Storage.Dir == "" {
		c.Storage.Dir = "downloads"
	}

	if c.Transform.Concurrency == 0 {
		c.Transform.Concurrency = 2
	}
	if c.Transform.QueueSize == 0 {
		c.Transform.QueueSize = 16
	}
	if c.Transform.ProbeTimeout == 0 {
		c.Transform.ProbeTimeout = time.Minute
	}

	if c.Retention.Mode == "" {
		c.Retention.Mode = RetentionEmbedded
	}
	if c.Retention.MaxAge == 0 {
		c.Retention.MaxAge = 24 * time.Hour
	}
	if c.Retention.Interval == 0 {
		c.Retention.Interval = time.Hour
	}

	if c.RateLimit.Requests == 0 {
		c.RateLimit.Requests = 10
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = 15 * time.Minute
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = c.RateLimit.Requests
	}

	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "media_gateway"
	}

	if c.Events.Exchange.Type == "" {
		c.Events.Exchange.Type = "topic"
	}
	if c.Events.Connection.RetryAttempts == 0 {
		c.Events.Connection.RetryAttempts = 3
	}
	if c.Events.Connection.RetryInterval == 0 {
		c.Events.Connection.RetryInterval = 2 * time.Second
	}
	if c.Events.Timeout == 0 {
		c.Events.Timeout = 5 * time.Second
	}

	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
}

// Validate checks the settings shared by both services
func (c *Config) Validate() error {
	if c.Storage.Dir == "" {
		return fmt.Errorf("storage dir is required")
	}

	if c.Retention.MaxAge <= 0 {
		return fmt.Errorf("retention max_age must be greater than 0")
	}

	if c.Retention.Interval <= 0 {
		return fmt.Errorf("retention interval must be greater than 0")
	}

	if c.Events.Enabled {
		if c.Events.Host == "" {
			return fmt.Errorf("events host is required")
		}
		if c.Events.Port < MinPort || c.Events.Port > MaxPort {
			return fmt.Errorf("invalid events port: %d (must be between %d and %d)", c.Events.Port, MinPort, MaxPort)
		}
		if c.Events.Exchange.Name == "" {
			return fmt.Errorf("events exchange name is required")
		}
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.Port < MinPort || c.Database.Port > MaxPort {
			return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	return nil
}

// ValidateAPIConfig checks the settings the API service needs
func (c *Config) ValidateAPIConfig() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Transform.Concurrency <= 0 {
		return fmt.Errorf("transform concurrency must be greater than 0")
	}

	if c.Transform.QueueSize < 0 {
		return fmt.Errorf("transform queue_size must not be negative")
	}

	if c.Transform.Timeout < 0 {
		return fmt.Errorf("transform timeout must not be negative")
	}

	if c.Retention.Mode != RetentionEmbedded && c.Retention.Mode != RetentionExternal {
		return fmt.Errorf("invalid retention mode: %q (must be %q or %q)", c.Retention.Mode, RetentionEmbedded, RetentionExternal)
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Requests <= 0 {
			return fmt.Errorf("rate_limit requests must be greater than 0")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate_limit window must be greater than 0")
		}
	}

	if len(c.CORS.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one cors allowed origin is required")
	}

	return nil
}

// ValidateSweeperConfig checks the settings the sweeper service needs
func (c *Config) ValidateSweeperConfig() error {
	return c.Validate()
}
