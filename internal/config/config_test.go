package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/bulkmail/internal/config"
	appErrors "github.com/unclebandit/bulkmail/internal/errors"
)

var envKeys = []string{
	"HTTP_ADDR", "DATABASE_URL", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
	"REDIS_URL", "AMQP_URL", "SETTINGS_BACKEND", "EVENTS_BACKEND", "MAIL_PROVIDER",
	"MAILGUN_API_BASE", "MOCK_SUCCESS_RATE", "DISPATCH_TIMEOUT", "SHUTDOWN_TIMEOUT",
	"LOG_LEVEL", "BATCH_COMPLETION_WAIT",
}

// clearEnv blanks every variable config reads for the duration of the test.
func clearEnv(t *testing.T) {
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, config.BackendMemory, cfg.SettingsBackend)
	assert.Equal(t, config.BackendMemory, cfg.EventsBackend)
	assert.Equal(t, "mailgun", cfg.MailProvider)
	assert.Equal(t, 30*time.Second, cfg.DispatchTimeout)
	assert.InDelta(t, 0.9, cfg.MockSuccessRate, 1e-9)
	assert.False(t, cfg.BatchCompletionWait)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestFromEnv_DatabaseParts(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "u")
	t.Setenv("DB_PASSWORD", "p")
	t.Setenv("DB_NAME", "bulkmail")
	t.Setenv("SETTINGS_BACKEND", "Postgres")

	cfg, err := config.FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/bulkmail?sslmode=disable", cfg.DatabaseURL)
	assert.Equal(t, config.BackendPostgres, cfg.SettingsBackend)
}

func TestFromEnv_DatabaseURLWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("DB_HOST", "db")

	cfg, err := config.FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "postgres://x", cfg.DatabaseURL)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown settings backend", "SETTINGS_BACKEND", "mongo"},
		{"postgres without dsn", "SETTINGS_BACKEND", "postgres"},
		{"redis without url", "SETTINGS_BACKEND", "redis"},
		{"unknown events backend", "EVENTS_BACKEND", "kafka"},
		{"unknown mail provider", "MAIL_PROVIDER", "sendgrid"},
		{"bad bool", "BATCH_COMPLETION_WAIT", "sometimes"},
		{"bad rate", "MOCK_SUCCESS_RATE", "1.5"},
		{"bad timeout", "DISPATCH_TIMEOUT", "-1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := config.FromEnv()
			require.Error(t, err)
			assert.ErrorIs(t, err, appErrors.ErrInvalidConfig)
		})
	}
}

func TestFromEnv_MailProviders(t *testing.T) {
	for _, name := range []string{"mailgun", "Resend", "MOCK"} {
		clearEnv(t)
		t.Setenv("MAIL_PROVIDER", name)

		cfg, err := config.FromEnv()
		require.NoError(t, err, name)
		assert.Equal(t, strings.ToLower(name), cfg.MailProvider)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("BATCH_COMPLETION_WAIT")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=debug\nBATCH_COMPLETION_WAIT=true\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("BATCH_COMPLETION_WAIT")
	})

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.EnvFileLoaded)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.BatchCompletionWait)
}

func TestLoad_MissingEnvFile(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.False(t, cfg.EnvFileLoaded)
}
