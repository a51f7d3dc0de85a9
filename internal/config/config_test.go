package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv keeps the host environment out of Load
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "FRONTEND_URL", "DOWNLOAD_DIR", "LOG_LEVEL", "YTDLP_PATH"} {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "/var/lib/media-gateway/downloads", cfg.Storage.Dir)
				assert.Equal(t, 4, cfg.Transform.Concurrency)
				assert.Equal(t, 8, cfg.Transform.QueueSize)
				assert.Equal(t, 24*time.Hour, cfg.Retention.MaxAge)
				assert.True(t, cfg.Retention.SweepOnStart)
				assert.Equal(t, 15*time.Minute, cfg.RateLimit.Window)
				assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowedOrigins)
				assert.Equal(t, "media_events", cfg.Events.Exchange.Name)
				assert.Equal(t, "media_db", cfg.Database.Database)
				assert.Equal(t, "media-gateway", cfg.App.Name)
			}
		})
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("testdata/minimal.yaml")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "1.0.0", cfg.App.Version)
	assert.Equal(t, 2, cfg.Transform.Concurrency)
	assert.Equal(t, time.Duration(0), cfg.Transform.Timeout)
	assert.Equal(t, RetentionEmbedded, cfg.Retention.Mode)
	assert.Equal(t, 24*time.Hour, cfg.Retention.MaxAge)
	assert.Equal(t, time.Hour, cfg.Retention.Interval)
	assert.Equal(t, 10, cfg.RateLimit.Requests)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.False(t, cfg.Events.Enabled)
	assert.False(t, cfg.Database.Enabled)

	require.NoError(t, cfg.ValidateAPIConfig())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("FRONTEND_URL", "https://app.example.com,https://admin.example.com")
	t.Setenv("DOWNLOAD_DIR", "/tmp/media")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load("testdata/valid_config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "/tmp/media", cfg.Storage.Dir)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestApplyEnv_InvalidPort(t *testing.T) {
	lookup := func(key string) (string, bool) {
		if key == "PORT" {
			return "http", true
		}
		return "", false
	}

	var cfg Config
	err := cfg.ApplyEnv(lookup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid PORT")
}

func validConfig() *Config {
	cfg := &Config{
		Server:  ServerConfig{Port: 8080},
		Storage: StorageConfig{Dir: "downloads"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestConfig_ValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:      "invalid server port - too low",
			mutate:    func(c *Config) { c.Server.Port = -1 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "invalid server port - too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "empty storage dir",
			mutate:    func(c *Config) { c.Storage.Dir = "" },
			wantErr:   true,
			errString: "storage dir is required",
		},
		{
			name:      "negative queue size",
			mutate:    func(c *Config) { c.Transform.QueueSize = -1 },
			wantErr:   true,
			errString: "queue_size must not be negative",
		},
		{
			name:      "negative timeout",
			mutate:    func(c *Config) { c.Transform.Timeout = -time.Second },
			wantErr:   true,
			errString: "transform timeout must not be negative",
		},
		{
			name:      "unknown retention mode",
			mutate:    func(c *Config) { c.Retention.Mode = "manual" },
			wantErr:   true,
			errString: "invalid retention mode",
		},
		{
			name:      "negative retention max age",
			mutate:    func(c *Config) { c.Retention.MaxAge = -time.Hour },
			wantErr:   true,
			errString: "retention max_age must be greater than 0",
		},
		{
			name: "rate limit with zero window",
			mutate: func(c *Config) {
				c.RateLimit.Enabled = true
				c.RateLimit.Window = -time.Second
			},
			wantErr:   true,
			errString: "rate_limit window must be greater than 0",
		},
		{
			name:      "events enabled without host",
			mutate:    func(c *Config) { c.Events.Enabled = true },
			wantErr:   true,
			errString: "events host is required",
		},
		{
			name: "events enabled without exchange",
			mutate: func(c *Config) {
				c.Events.Enabled = true
				c.Events.Host = "localhost"
				c.Events.Port = 5672
			},
			wantErr:   true,
			errString: "events exchange name is required",
		},
		{
			name: "database enabled without name",
			mutate: func(c *Config) {
				c.Database.Enabled = true
				c.Database.Host = "localhost"
				c.Database.Port = 5432
			},
			wantErr:   true,
			errString: "database name is required",
		},
		{
			name: "disabled sections are not checked",
			mutate: func(c *Config) {
				c.Events.Host = ""
				c.Database.Host = ""
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateAPIConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateSweeperConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	require.NoError(t, cfg.ValidateSweeperConfig())

	cfg.Retention.Interval = -time.Minute
	err := cfg.ValidateSweeperConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retention interval")
}

func TestLoad_ValidateIntegration(t *testing.T) {
	clearEnv(t)

	t.Run("load and validate valid config", func(t *testing.T) {
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.ValidateAPIConfig()
		require.NoError(t, err)
	})

	t.Run("load config with invalid port", func(t *testing.T) {
		cfg, err := Load("testdata/invalid_port.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})

	t.Run("load config with missing database", func(t *testing.T) {
		cfg, err := Load("testdata/missing_database.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database name is required")
	})
}

func TestPortConstants(t *testing.T) {
	assert.Equal(t, 1, MinPort)
	assert.Equal(t, 65535, MaxPort)
}

func TestLoad_ShippedConfigs(t *testing.T) {
	clearEnv(t)

	api, err := Load("../../configs/api-service/config.yaml")
	require.NoError(t, err)
	require.NoError(t, api.ValidateAPIConfig())
	assert.Equal(t, 3000, api.Server.Port)
	assert.Equal(t, RetentionEmbedded, api.Retention.Mode)

	sweeper, err := Load("../../configs/sweeper-service/config.yaml")
	require.NoError(t, err)
	require.NoError(t, sweeper.ValidateSweeperConfig())
	assert.Equal(t, RetentionExternal, sweeper.Retention.Mode)
	assert.Equal(t, 24*time.Hour, sweeper.Retention.MaxAge)
}
