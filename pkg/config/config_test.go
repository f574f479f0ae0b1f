package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFullConfig(t *testing.T) {
	doc := []byte(`
server:
  port: 9090
  mode: debug
  api_key: secret
store:
  mysql_dsn: "user:pass@tcp(127.0.0.1:3306)/conductor?parseTime=true"
daemon:
  lease_ttl: 60
  heartbeat_interval: 10
  max_actions_per_tick: 5
  max_retries: 2
  max_tick_seconds: 30
  handler_timeout: 90
  retry_backoff: 15
  reclaim_after: 300
logger:
  level: debug
  output: console
actions:
  webhook_url: "http://hooks.example.test/deploy"
  artifact_dir: /var/lib/conductor/artifacts
`)

	cfg, err := Parse(doc)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "secret", cfg.Server.APIKey)
	assert.NotEmpty(t, cfg.Store.MySQLDSN)

	assert.Equal(t, time.Minute, cfg.Daemon.LeaseTTLDuration())
	assert.Equal(t, 10*time.Second, cfg.Daemon.HeartbeatDuration())
	assert.Equal(t, 5, cfg.Daemon.MaxActionsPerTick)
	assert.Equal(t, 2, cfg.Daemon.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Daemon.TickDeadline())
	assert.Equal(t, 90*time.Second, cfg.Daemon.HandlerDeadline())
	assert.Equal(t, 15*time.Second, cfg.Daemon.RetryBackoffDuration())
	assert.Equal(t, 5*time.Minute, cfg.Daemon.ReclaimAfterDuration())

	assert.Equal(t, "http://hooks.example.test/deploy", cfg.Actions.WebhookURL)
	assert.Equal(t, "/var/lib/conductor/artifacts", cfg.Actions.ArtifactDir)
}

func TestParseEmptyConfigUsesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)

	def := DefaultDaemonConfig()
	assert.Equal(t, def, cfg.Daemon)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Empty(t, cfg.Server.APIKey)
	assert.Equal(t, "conductor.db", cfg.Store.SQLitePath)
	assert.Equal(t, "artifacts", cfg.Actions.ArtifactDir)
	assert.Empty(t, cfg.Actions.WebhookURL)
}

func TestParseMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("daemon: [not a mapping"))
	assert.Error(t, err)
}

func TestPartialDaemonConfigKeepsExplicitValues(t *testing.T) {
	cfg, err := Parse([]byte("daemon:\n  max_retries: 7\n"))
	require.NoError(t, err)

	def := DefaultDaemonConfig()
	assert.Equal(t, 7, cfg.Daemon.MaxRetries)
	assert.Equal(t, def.LeaseTTL, cfg.Daemon.LeaseTTL)
	assert.Equal(t, def.HeartbeatInterval, cfg.Daemon.HeartbeatInterval)
}
