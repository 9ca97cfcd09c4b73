package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigContent = `
[development]
host = "localhost"
port = 9000
log_level = "trace"
log_to_stdout = true
postgres_host = "localhost"
postgres_port = "5432"
postgres_db_name = "knweb"
redis_host = "localhost"
redis_port = "6379"
prometheus_metrics_host = "localhost"
prometheus_metrics_port = "2112"
login_rate_limit_allowed_per_min = 15
contact_rate_limit_allowed_per_min = 2
login_account_attempts_per_min = 5
allow_all_when_empty_allow_list = true

[production]
host = "0.0.0.0"
port = 8080
log_level = "info"
logs_path = "/var/log/knweb/service.log"
sentry_enabled = true
postgres_host = "db"
postgres_port = "5432"
postgres_db_name = "knweb"
redis_host = "redis"
redis_port = "6379"
prometheus_metrics_host = "0.0.0.0"
prometheus_metrics_port = "2112"
login_rate_limit_allowed_per_min = 15
contact_rate_limit_allowed_per_min = 2
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigContent), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeTestConfig(t)

	cfg, err := Load("development", path)
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "trace", cfg.LogLevel)
	assert.Equal(t, 5, cfg.LoginAccountAttemptsPerMin)
	assert.True(t, cfg.AllowAllWhenEmptyAllowList)

	cfg, err = Load("prod", path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.SentryEnabled)
	assert.False(t, cfg.AllowAllWhenEmptyAllowList)
}

func TestLoad_UnknownEnv(t *testing.T) {
	path := writeTestConfig(t)
	_, err := Load("staging", path)
	require.Error(t, err)
}

func TestLoadSecrets(t *testing.T) {
	t.Setenv("KN_ADMIN_EMAILS", "admin@knwebagency.com, ceo@knwebagency.com")
	t.Setenv("KN_REDIS_PASS", "redis-pass")

	s, err := LoadSecrets(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "admin@knwebagency.com, ceo@knwebagency.com", s.AdminEmails)
	assert.Equal(t, "redis-pass", s.RedisPassword)
}
