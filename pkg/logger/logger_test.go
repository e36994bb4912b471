package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	t.Run("should truncate when preserve is false", func(t *testing.T) {
		err := os.WriteFile(logPath, []byte("old content\n"), 0644)
		require.NoError(t, err)

		log, err := New(LevelDebug, logPath, false)
		require.NoError(t, err)
		log.Info("fresh start")
		require.NoError(t, log.Close())

		content, err := os.ReadFile(logPath)
		require.NoError(t, err)
		assert.NotContains(t, string(content), "old content")
		assert.Contains(t, string(content), "fresh start")
	})

	t.Run("should append when preserve is true", func(t *testing.T) {
		err := os.WriteFile(logPath, []byte("previous session\n"), 0644)
		require.NoError(t, err)

		log, err := New(LevelDebug, logPath, true)
		require.NoError(t, err)
		log.Info("next session")
		require.NoError(t, log.Close())

		content, err := os.ReadFile(logPath)
		require.NoError(t, err)
		assert.Contains(t, string(content), "previous session")
		assert.Contains(t, string(content), "next session")
	})
}

func TestLevels(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "levels.log")

	log, err := New(LevelWarn, logPath, false)
	require.NoError(t, err)

	log.Debug("too quiet")
	log.Info("still too quiet")
	log.Warn("loud enough")
	require.NoError(t, log.Close())

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "too quiet")
	assert.Contains(t, string(content), "loud enough")
	assert.Contains(t, string(content), "[WARN]")
}

func TestKeyValuePairs(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "kv.log")

	log, err := New(LevelDebug, logPath, false)
	require.NoError(t, err)

	log.Info("Stream started", "conversation", "c1", "tokens", 42)
	require.NoError(t, log.Close())

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	line := string(content)
	assert.Contains(t, line, "Stream started")
	assert.Contains(t, line, "conversation=c1")
	assert.Contains(t, line, "tokens=42")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, parseLevel("debug"))
	assert.Equal(t, LevelWarn, parseLevel("warning"))
	assert.Equal(t, LevelError, parseLevel("error"))
	assert.Equal(t, LevelInfo, parseLevel("unrecognized"))
}

func TestLevelString(t *testing.T) {
	for level, want := range map[LogLevel]string{
		LevelDebug: "DEBUG",
		LevelInfo:  "INFO",
		LevelWarn:  "WARN",
		LevelError: "ERROR",
		LevelFatal: "FATAL",
	} {
		assert.Equal(t, want, level.String())
	}
}

func TestWithComponentBeforeInit(t *testing.T) {
	// Must not panic or write anywhere when no default logger exists
	saved := defaultLogger
	defaultLogger = nil
	defer func() { defaultLogger = saved }()

	log := WithComponent("early")
	assert.NotPanics(t, func() {
		log.Info("discarded", "key", "value")
	})
}

func TestComponentPrefix(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "component.log")

	base, err := New(LevelDebug, logPath, false)
	require.NoError(t, err)

	saved := defaultLogger
	defaultLogger = base
	defer func() { defaultLogger = saved }()

	WithComponent("session").Info("scoped message")
	require.NoError(t, base.Close())

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(content), "[session] scoped message"))
}
