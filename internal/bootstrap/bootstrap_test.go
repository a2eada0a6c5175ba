package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/trustbrief/internal/config"
	"github.com/bryanwahyu/trustbrief/internal/domain/history"
	"github.com/bryanwahyu/trustbrief/internal/middleware"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	var cfg config.Config
	cfg.Cache.Dir = t.TempDir()
	cfg.Cache.TTLDays = 7
	cfg.Probe.TimeoutSec = 1
	cfg.Probe.KEVTimeoutSec = 1
	return &cfg
}

func TestNewLocalOnly(t *testing.T) {
	app, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer app.Close()

	require.NotNil(t, app.Service)
	assert.IsType(t, history.Nop{}, app.Service.History)
	assert.Nil(t, app.Service.Notifier)
	assert.Contains(t, app.Checkers, "cache")
	assert.NotContains(t, app.Checkers, "database")
	assert.Equal(t, "healthy", middleware.RunChecks(context.Background(), app.Checkers).Status)

	n, err := app.Service.Clear(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNewWithSQLiteHistoryAndSlack(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "sqlite"
	cfg.Database.Path = filepath.Join(t.TempDir(), "runs.db")
	cfg.Slack.Token = "xoxb-test"
	cfg.Slack.Channel = "#sec"

	app, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer app.Close()

	assert.Contains(t, app.Checkers, "database")
	assert.NotNil(t, app.Service.Notifier)

	// an input error is still recorded in history
	_, err = app.Service.Assess(context.Background(), "   ", false)
	require.Error(t, err)

	runs, err := app.Service.Runs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, history.StatusFailed, runs[0].Status)
	assert.Equal(t, "input", runs[0].FailedStage)
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}
