package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Local   LocalConfig   `yaml:"local"`
	Remote  RemoteConfig  `yaml:"remote"`
	Auth    AuthConfig    `yaml:"auth"`
	Sync    SyncConfig    `yaml:"sync"`
	Focus   FocusConfig   `yaml:"focus"`
	Worker  WorkerConfig  `yaml:"worker"`
	Notify  NotifyConfig  `yaml:"notify"`
	Insight InsightConfig `yaml:"insight"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// LocalConfig locates the on-device SQLite database.
type LocalConfig struct {
	Path string `yaml:"path"`
}

// RemoteConfig points at the hosted PostgreSQL mirror.
// An empty DSN selects the in-memory backend.
type RemoteConfig struct {
	DSN string `yaml:"-"` // env-only, carries credentials
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	JWTSecret string `yaml:"-"` // env-only, never in YAML
	APIKey    string `yaml:"-"` // env-only, never in YAML
}

// SyncConfig contains reconciliation settings.
type SyncConfig struct {
	Interval Duration `yaml:"interval"`
}

// FocusConfig contains focus timer settings.
type FocusConfig struct {
	Recovery       Duration `yaml:"recovery"`
	TickInterval   Duration `yaml:"tick_interval"`
	MinMinutes     int      `yaml:"min_minutes"`
	MaxMinutes     int      `yaml:"max_minutes"`
	DefaultMinutes int      `yaml:"default_minutes"`
	LightMinutes   int      `yaml:"light_minutes"`
	HeavyMinutes   int      `yaml:"heavy_minutes"`
}

// WorkerConfig contains background worker settings.
type WorkerConfig struct {
	MonitorInterval Duration `yaml:"monitor_interval"`
	OutboxInterval  Duration `yaml:"outbox_interval"`
	OutboxBatchSize int      `yaml:"outbox_batch_size"`
}

// NotifyConfig contains notification fan-out settings.
// An empty NATSURL disables NATS publishing.
type NotifyConfig struct {
	NATSURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// InsightConfig contains insight advisor settings.
// Without an API key only the rule-based advisor runs.
type InsightConfig struct {
	OpenAIAPIKey string `yaml:"-"` // env-only, never in YAML
	Model        string `yaml:"model"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
// A .env file (FOCUSFLOW_ENV_FILE, default ".env") is read first and never
// overrides variables already set in the environment.
func Load() (*Config, error) {
	if err := loadDotEnv(getEnv("FOCUSFLOW_ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := newDefaults()

	configPath := getEnv("FOCUSFLOW_CONFIG_PATH", "config/focusflow.yaml")

	// Missing file is not an error
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific path.
// Used for testing and explicit path specification.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Local: LocalConfig{
			Path: "data/focusflow.db",
		},
		Sync: SyncConfig{
			Interval: Duration(60 * time.Second),
		},
		Focus: FocusConfig{
			Recovery:       Duration(5 * time.Minute),
			TickInterval:   Duration(time.Second),
			MinMinutes:     15,
			MaxMinutes:     50,
			DefaultMinutes: 25,
			LightMinutes:   20,
			HeavyMinutes:   35,
		},
		Worker: WorkerConfig{
			MonitorInterval: Duration(5 * time.Minute),
			OutboxInterval:  Duration(30 * time.Second),
			OutboxBatchSize: 50,
		},
		Notify: NotifyConfig{
			SubjectPrefix: "focusflow.notify",
		},
		Insight: InsightConfig{
			Model: "gpt-4o-mini",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading env file: %w", err)
	}
	return nil
}

// loadYAMLFile loads configuration from a YAML file if it exists.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty, parseable env vars override config values.
func applyEnvOverrides(cfg *Config) {
	// Server
	envInt("FOCUSFLOW_PORT", &cfg.Server.Port)
	envDuration("FOCUSFLOW_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("FOCUSFLOW_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("FOCUSFLOW_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Storage
	envString("FOCUSFLOW_DB_PATH", &cfg.Local.Path)
	envString("FOCUSFLOW_REMOTE_DSN", &cfg.Remote.DSN)

	// Auth
	envString("FOCUSFLOW_JWT_SECRET", &cfg.Auth.JWTSecret)
	envString("FOCUSFLOW_API_KEY", &cfg.Auth.APIKey)

	// Sync and focus
	envDuration("FOCUSFLOW_SYNC_INTERVAL", &cfg.Sync.Interval)
	envDuration("FOCUSFLOW_FOCUS_RECOVERY", &cfg.Focus.Recovery)
	envDuration("FOCUSFLOW_FOCUS_TICK", &cfg.Focus.TickInterval)

	// Worker
	envDuration("FOCUSFLOW_MONITOR_INTERVAL", &cfg.Worker.MonitorInterval)
	envDuration("FOCUSFLOW_OUTBOX_INTERVAL", &cfg.Worker.OutboxInterval)
	envInt("FOCUSFLOW_OUTBOX_BATCH_SIZE", &cfg.Worker.OutboxBatchSize)

	// Notify
	envString("FOCUSFLOW_NATS_URL", &cfg.Notify.NATSURL)
	envString("FOCUSFLOW_NOTIFY_SUBJECT_PREFIX", &cfg.Notify.SubjectPrefix)

	// Insight (OPENAI_API_KEY is industry convention)
	envString("OPENAI_API_KEY", &cfg.Insight.OpenAIAPIKey)
	envString("FOCUSFLOW_INSIGHT_MODEL", &cfg.Insight.Model)

	// Log
	envString("FOCUSFLOW_LOG_LEVEL", &cfg.Log.Level)
	envString("FOCUSFLOW_LOG_FORMAT", &cfg.Log.Format)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envDuration(key string, dst *Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}

// validate checks ranges and required secrets.
// In dev mode (FOCUSFLOW_DEV_MODE=true), secret validation is skipped.
func (c *Config) validate() error {
	if c.Sync.Interval <= 0 {
		return errors.New("sync.interval must be positive")
	}
	if c.Focus.MinMinutes <= 0 || c.Focus.MaxMinutes < c.Focus.MinMinutes {
		return fmt.Errorf("focus bounds invalid: min %d, max %d", c.Focus.MinMinutes, c.Focus.MaxMinutes)
	}
	if c.Focus.Recovery <= 0 || c.Focus.TickInterval <= 0 {
		return errors.New("focus.recovery and focus.tick_interval must be positive")
	}
	if c.Worker.MonitorInterval <= 0 || c.Worker.OutboxInterval <= 0 {
		return errors.New("worker intervals must be positive")
	}

	if os.Getenv("FOCUSFLOW_DEV_MODE") == "true" {
		return nil
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("FOCUSFLOW_JWT_SECRET is required")
	}
	if c.Auth.APIKey == "" {
		return errors.New("FOCUSFLOW_API_KEY is required")
	}
	return nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
