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
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "task_tracker.db", cfg.DatabaseURL)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Minute, cfg.SweepInterval)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TASK_TRACKER_TEST_MARKER=1\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("TASK_TRACKER_TEST_MARKER") })

	_, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "1", os.Getenv("TASK_TRACKER_TEST_MARKER"))
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("SWEEP_INTERVAL", "1h")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "file:test.db", cfg.DatabaseURL)
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"SWEEP_INTERVAL": "0s",
		"LOG_FORMAT":     "xml",
		"TIMEZONE":       "Mars/Olympus",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}
