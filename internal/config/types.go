package config

import (
	"time"

	"github.com/raaihank/fieldmask/internal/vault"
)

// Config represents the main configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Masking   MaskingConfig   `yaml:"masking" mapstructure:"masking"`
	Vault     VaultConfig     `yaml:"vault" mapstructure:"vault"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	WebSocket WebSocketConfig `yaml:"websocket" mapstructure:"websocket"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	RateLimit    struct {
		Enabled        bool    `yaml:"enabled" mapstructure:"enabled"`
		RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
		Burst          int     `yaml:"burst" mapstructure:"burst"`
	} `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// MaskingConfig contains masking engine configuration
type MaskingConfig struct {
	// PolicyFile points at a YAML policy document; PolicyTemplate names a
	// built-in template instead. PolicyFile wins when both are set.
	PolicyFile     string `yaml:"policy_file" mapstructure:"policy_file"`
	PolicyTemplate string `yaml:"policy_template" mapstructure:"policy_template"`

	// AllowOriginalInPreview gates whether preview requests may include the
	// unmasked originals.
	AllowOriginalInPreview bool `yaml:"allow_original_in_preview" mapstructure:"allow_original_in_preview"`
}

// VaultConfig selects and configures the token vault backend
type VaultConfig struct {
	Backend  string               `yaml:"backend" mapstructure:"backend"` // memory, redis, or postgres
	Redis    vault.RedisConfig    `yaml:"redis" mapstructure:"redis"`
	Postgres vault.PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
		Path     string `yaml:"path" mapstructure:"path"`
		MaxSize  int    `yaml:"max_size" mapstructure:"max_size"`
		MaxAge   int    `yaml:"max_age" mapstructure:"max_age"`
		Compress bool   `yaml:"compress" mapstructure:"compress"`
	} `yaml:"file" mapstructure:"file"`
}

// WebSocketConfig contains WebSocket configuration for job event streaming
type WebSocketConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	Path            string        `yaml:"path" mapstructure:"path"`
	MaxConnections  int           `yaml:"max_connections" mapstructure:"max_connections"`
	ReadBufferSize  int           `yaml:"read_buffer_size" mapstructure:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size" mapstructure:"write_buffer_size"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Masking: MaskingConfig{
			PolicyTemplate:         "pii-basic",
			AllowOriginalInPreview: false,
		},
		Vault: VaultConfig{
			Backend: "memory",
			Redis: vault.RedisConfig{
				RedisURL:       "redis://localhost:6379/0",
				MaxConnections: 10,
				MinIdleConns:   2,
			},
			Postgres: vault.PostgresConfig{
				DatabaseURL:     "postgres://localhost:5432/fieldmask?sslmode=disable",
				MaxOpenConns:    10,
				MaxIdleConns:    2,
				ConnMaxLifetime: time.Hour,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		WebSocket: WebSocketConfig{
			Enabled:         true,
			Path:            "/ws",
			MaxConnections:  100,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			WriteTimeout:    10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
	}

	cfg.Server.RateLimit.Enabled = true
	cfg.Server.RateLimit.RequestsPerSec = 50
	cfg.Server.RateLimit.Burst = 100

	cfg.Logging.File.Path = "logs/fieldmask.log"
	cfg.Logging.File.MaxSize = 100 // MB
	cfg.Logging.File.MaxAge = 30   // days
	cfg.Logging.File.Compress = true

	return cfg
}
