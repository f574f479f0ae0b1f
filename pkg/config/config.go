package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var GlobalConfig *Config

// Config global configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Daemon  DaemonConfig  `yaml:"daemon"`
	Logger  LoggerConfig  `yaml:"logger"`
	Actions ActionsConfig `yaml:"actions"`
}

// ServerConfig HTTP server configuration
type ServerConfig struct {
	Port   int    `yaml:"port"`
	Mode   string `yaml:"mode"`    // debug, release
	APIKey string `yaml:"api_key"` // API key for operator endpoints (optional, if empty, auth is disabled)
}

// StoreConfig persisted store configuration.
// If MySQLDSN is empty the daemon runs against an embedded SQLite file,
// which is sufficient for single-process deployments. Multi-process
// deployments must point at a shared MySQL instance.
type StoreConfig struct {
	MySQLDSN   string `yaml:"mysql_dsn"`
	SQLitePath string `yaml:"sqlite_path"`
}

// DaemonConfig daemon loop tunables. All intervals are in seconds.
type DaemonConfig struct {
	LeaseTTL          int `yaml:"lease_ttl"`            // lease time-to-live (seconds)
	HeartbeatInterval int `yaml:"heartbeat_interval"`   // sleep between ticks (seconds)
	MaxActionsPerTick int `yaml:"max_actions_per_tick"` // claim batch size
	MaxRetries        int `yaml:"max_retries"`          // retry budget before dead-letter
	MaxTickSeconds    int `yaml:"max_tick_seconds"`     // tick processing deadline (seconds)
	HandlerTimeout    int `yaml:"handler_timeout"`      // per-dispatch deadline (seconds)
	RetryBackoff      int `yaml:"retry_backoff"`        // base retry backoff (seconds)
	ReclaimAfter      int `yaml:"reclaim_after"`        // reclaim items stuck RUNNING longer than this (seconds)
}

// LeaseTTLDuration returns the lease TTL as a duration.
func (c DaemonConfig) LeaseTTLDuration() time.Duration {
	return time.Duration(c.LeaseTTL) * time.Second
}

// HeartbeatDuration returns the inter-tick sleep as a duration.
func (c DaemonConfig) HeartbeatDuration() time.Duration {
	return time.Duration(c.HeartbeatInterval) * time.Second
}

// TickDeadline returns the per-tick processing budget as a duration.
func (c DaemonConfig) TickDeadline() time.Duration {
	return time.Duration(c.MaxTickSeconds) * time.Second
}

// HandlerDeadline returns the per-dispatch budget as a duration.
func (c DaemonConfig) HandlerDeadline() time.Duration {
	return time.Duration(c.HandlerTimeout) * time.Second
}

// RetryBackoffDuration returns the base backoff as a duration.
func (c DaemonConfig) RetryBackoffDuration() time.Duration {
	return time.Duration(c.RetryBackoff) * time.Second
}

// ReclaimAfterDuration returns the stuck-item reclaim threshold as a duration.
func (c DaemonConfig) ReclaimAfterDuration() time.Duration {
	return time.Duration(c.ReclaimAfter) * time.Second
}

// LoggerConfig logger configuration
type LoggerConfig struct {
	Level  string           `yaml:"level"`  // debug, info, warn, error
	Output string           `yaml:"output"` // console, file, both
	File   LoggerFileConfig `yaml:"file"`
}

// LoggerFileConfig logger file configuration
type LoggerFileConfig struct {
	Path string `yaml:"path"`
}

// ActionsConfig configuration for the built-in action adapters
type ActionsConfig struct {
	WebhookURL  string `yaml:"webhook_url"`  // production target for the webhook adapter (empty = not configured)
	ArtifactDir string `yaml:"artifact_dir"` // directory for rendered report artifacts
}

// DefaultDaemonConfig returns the daemon tunables with their documented defaults.
func DefaultDaemonConfig() DaemonConfig {
	return DaemonConfig{
		LeaseTTL:          30,
		HeartbeatInterval: 5,
		MaxActionsPerTick: 3,
		MaxRetries:        3,
		MaxTickSeconds:    20,
		HandlerTimeout:    60,
		RetryBackoff:      30,
		ReclaimAfter:      600,
	}
}

// Init initializes configuration from CONFIG_PATH (default config/config.yaml).
func Init() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file: run entirely on defaults (embedded store)
			cfg := &Config{}
			validateAndApplyDefaults(cfg)
			GlobalConfig = cfg
			return nil
		}
		return err
	}

	cfg, err := Parse(data)
	if err != nil {
		return err
	}

	GlobalConfig = cfg
	return nil
}

// Parse unmarshals a config document and applies default fallback.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	validateAndApplyDefaults(&cfg)
	return &cfg, nil
}

// validateAndApplyDefaults replaces invalid values with defaults so a partial or
// broken config file never leaves the daemon with a zero heartbeat or retry budget.
func validateAndApplyDefaults(cfg *Config) {
	def := DefaultDaemonConfig()
	d := &cfg.Daemon

	if d.LeaseTTL <= 0 {
		d.LeaseTTL = def.LeaseTTL
	}
	if d.HeartbeatInterval <= 0 {
		d.HeartbeatInterval = def.HeartbeatInterval
	}
	if d.MaxActionsPerTick <= 0 {
		d.MaxActionsPerTick = def.MaxActionsPerTick
	}
	if d.MaxRetries <= 0 {
		d.MaxRetries = def.MaxRetries
	}
	if d.MaxTickSeconds <= 0 {
		d.MaxTickSeconds = def.MaxTickSeconds
	}
	if d.HandlerTimeout <= 0 {
		d.HandlerTimeout = def.HandlerTimeout
	}
	if d.RetryBackoff <= 0 {
		d.RetryBackoff = def.RetryBackoff
	}
	if d.ReclaimAfter <= 0 {
		d.ReclaimAfter = def.ReclaimAfter
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Store.SQLitePath == "" {
		cfg.Store.SQLitePath = "conductor.db"
	}
	if cfg.Actions.ArtifactDir == "" {
		cfg.Actions.ArtifactDir = "artifacts"
	}
}
