package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Cleanup(func() {
		viper.Reset()
		Reset()
	})

	t.Run("should apply defaults for unset tuning values", func(t *testing.T) {
		viper.Reset()
		Reset()

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 90*time.Second, cfg.Backend.Timeout)
		assert.Equal(t, 500*time.Millisecond, cfg.Reconcile.Delay)
		assert.Equal(t, 3, cfg.Reconcile.Attempts)
		assert.Equal(t, 50, cfg.Reconcile.FetchLimit)
	})

	t.Run("should parse duration strings", func(t *testing.T) {
		viper.Reset()
		Reset()
		viper.Set("backend.timeout", "30s")
		viper.Set("reconcile.delay", "250ms")
		viper.Set("reconcile.attempts", 5)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
		assert.Equal(t, 250*time.Millisecond, cfg.Reconcile.Delay)
		assert.Equal(t, 5, cfg.Reconcile.Attempts)
	})

	t.Run("should unmarshal backend and history settings", func(t *testing.T) {
		viper.Reset()
		Reset()
		viper.Set("backend.url", "http://example.test:9000")
		viper.Set("backend.token", "secret")
		viper.Set("history.enabled", true)
		viper.Set("history.path", "/tmp/history.db")
		viper.Set("agent_id", "agent-7")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "http://example.test:9000", cfg.Backend.URL)
		assert.Equal(t, "secret", cfg.Backend.Token)
		assert.True(t, cfg.History.Enabled)
		assert.Equal(t, "/tmp/history.db", cfg.History.Path)
		assert.Equal(t, "agent-7", cfg.AgentID)
	})
}

func TestGetFallsBackToDefaults(t *testing.T) {
	viper.Reset()
	Reset()
	t.Cleanup(func() {
		viper.Reset()
		Reset()
	})

	cfg := Get()
	require.NotNil(t, cfg)
	assert.NotEmpty(t, cfg.Logging.Level)
}

func TestBuildSettingsPath(t *testing.T) {
	assert.Equal(t, ".strand/system.log", BuildSettingsPath("system.log"))
}
