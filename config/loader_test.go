package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 8085, cfg.Server.HTTPPort)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "identity", cfg.CallLog.Backend)
	assert.Equal(t, 1024, cfg.Metering.QueueSize)
	assert.False(t, cfg.Telemetry.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  http_port: 9000
database:
  driver: postgres
  host: db.internal
  port: 5432
  user: orch
  name: workflows
  ssl_mode: disable
metering:
  collector_url: http://billing:8083/meter
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "http://billing:8083/meter", cfg.Metering.CollectorURL)
	assert.Contains(t, cfg.Database.DSN(), "host=db.internal")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ORCHESTRATOR_SERVER_HTTP_PORT", "7070")
	t.Setenv("ORCHESTRATOR_REDIS_ADDR", "redis:6379")
	t.Setenv("ORCHESTRATOR_REDIS_TTL", "1m")
	t.Setenv("ORCHESTRATOR_SERVER_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.HTTPPort)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Minute, cfg.Redis.TTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSAllowedOrigins)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 8085, cfg.Server.HTTPPort)
}

func TestValidate_Rejections(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.Driver = "oracle"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.CallLog.Backend = "kafka"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Metering.QueueSize = 0
	assert.Error(t, cfg.Validate())
}

func TestDSN_PerDriver(t *testing.T) {
	d := DatabaseConfig{Driver: "mysql", Host: "h", Port: 3306, User: "u", Password: "p", Name: "db"}
	assert.Equal(t, "u:p@tcp(h:3306)/db?parseTime=true", d.DSN())

	d.Driver = "sqlite"
	d.Name = "orchestrator.db"
	assert.Equal(t, "orchestrator.db", d.DSN())

	d.Driver = "unknown"
	assert.Equal(t, "", d.DSN())
}
