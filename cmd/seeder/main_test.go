package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/bulkmail/internal/contacts"
	appErrors "github.com/unclebandit/bulkmail/internal/errors"
	"github.com/unclebandit/bulkmail/internal/model"
	"github.com/unclebandit/bulkmail/internal/repository"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestSeedSettings(t *testing.T) {
	ctx := context.Background()
	settings := repository.NewSettingsRepository(repository.NewMemorySettingsRepository())

	seeded, err := seedSettings(ctx, settings, envOf(map[string]string{
		"SEED_MAILGUN_API_KEY":  "key-123",
		"SEED_MAILGUN_DOMAIN":   "mg.example.com",
		"SEED_MAILGUN_FROM":     "News <news@example.com>",
		"SEED_TEMPLATE_SUBJECT": "Hello %name%",
		"SEED_TEMPLATE_BODY":    "<p>Hi %name%</p>",
		"SEED_BATCH_SIZE":       "25",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"send config", "template", "schedule"}, seeded)

	cfg, err := settings.LoadSendConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.SendConfig{APIKey: "key-123", Domain: "mg.example.com", From: "News <news@example.com>"}, cfg)

	tpl, err := settings.LoadTemplate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Hello %name%", tpl.Subject)

	rate, err := settings.LoadRate(ctx)
	require.NoError(t, err)
	want := model.DefaultRateConfig()
	want.BatchSize = 25
	assert.Equal(t, want, rate)
}

func TestSeedSettingsNothingSet(t *testing.T) {
	settings := repository.NewSettingsRepository(repository.NewMemorySettingsRepository())

	seeded, err := seedSettings(context.Background(), settings, envOf(nil))
	require.NoError(t, err)
	assert.Empty(t, seeded)
}

func TestSeedSettingsRejectsBadRate(t *testing.T) {
	settings := repository.NewSettingsRepository(repository.NewMemorySettingsRepository())

	_, err := seedSettings(context.Background(), settings, envOf(map[string]string{"SEED_EMAILS_PER_HOUR": "abc"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEED_EMAILS_PER_HOUR")

	_, err = seedSettings(context.Background(), settings, envOf(map[string]string{"SEED_BATCH_SIZE": "0"}))
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
}

func TestWriteSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "contacts_sample.xlsx")
	require.NoError(t, writeSample(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	res, err := contacts.Parse(filepath.Base(path), f)
	require.NoError(t, err)
	assert.Len(t, res.Contacts, 3)
}
