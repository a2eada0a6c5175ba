package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GEMINI_API_KEY", "OPENAI_API_KEY", "AI_API_KEY", "AI_MODEL", "PORT", "CACHE_TTL_DAYS", "CACHE_DIR", "DB_DRIVER", "DB_PATH", "SLACK_BOT_TOKEN", "SLACK_CHANNEL", "MINIO_ENDPOINT"} {
		t.Setenv(k, "")
	}
	// keep a stray .env from the working directory out of the test
	t.Chdir(t.TempDir())
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DefaultModel, cfg.AI.Model)
	assert.Equal(t, DefaultBaseURL, cfg.AI.BaseURL)
	assert.Equal(t, 7*24*time.Hour, cfg.CacheTTL())
	assert.Equal(t, 10*time.Second, cfg.ProbeTimeout())
	assert.Equal(t, 15*time.Second, cfg.KEVTimeout())
	assert.Error(t, cfg.RequireAI())
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
  apiKeys:
    ci: secret
ai:
  model: gpt-4o-mini
cache:
  ttlDays: 3
database:
  driver: postgres
  host: db
  port: 5432
  user: tb
  password: pw
  name: trustbrief
`), 0o600))
	t.Setenv("AI_MODEL", "gemini-2.5-flash")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Server.APIKeys["ci"])
	assert.Equal(t, "gemini-2.5-flash", cfg.AI.Model)
	assert.Equal(t, "sk-test", cfg.AI.APIKey)
	assert.Equal(t, 3, cfg.Cache.TTLDays)
	assert.NoError(t, cfg.RequireAI())
	assert.Equal(t, "host=db port=5432 user=tb password=pw dbname=trustbrief sslmode=disable", cfg.PostgresDSN())

	pub := cfg.Public()
	assert.True(t, pub.AIConfigured)
	assert.Equal(t, "postgres", pub.HistoryDriver)
}

func TestLoadRejectsInvalid(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: oracle\nslack:\n  token: xoxb-1\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver")
	assert.Contains(t, err.Error(), "slack.token")

	require.NoError(t, os.WriteFile(path, []byte("server: [not, a, map]"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestMySQLDSN(t *testing.T) {
	var cfg Config
	cfg.Database.User = "u"
	cfg.Database.Password = "p"
	cfg.Database.Host = "h"
	cfg.Database.Port = 3306
	cfg.Database.Name = "n"
	assert.Equal(t, "u:p@tcp(h:3306)/n?parseTime=true&charset=utf8mb4&loc=UTC", cfg.MySQLDSN())
}

func TestSQLiteHistoryDefaultsUnderCacheDir(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("CACHE_DIR", "/var/lib/trustbrief")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/trustbrief/history.db", cfg.Database.Path)
}
