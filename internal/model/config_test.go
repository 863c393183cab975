package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/bulkmail/internal/errors"
	"github.com/unclebandit/bulkmail/internal/model"
)

func TestRateConfigEmailInterval(t *testing.T) {
	cases := []struct {
		perHour int
		want    time.Duration
	}{
		{3600, time.Second},
		{10, 360 * time.Second},
		{100, 36 * time.Second},
		{7, 514286 * time.Millisecond},
	}
	for _, tc := range cases {
		r := model.RateConfig{EmailsPerHour: tc.perHour, BatchSize: 1, IntervalBetweenBatchesMinutes: 1}
		assert.Equal(t, tc.want, r.EmailInterval(), "emails per hour %d", tc.perHour)
	}
}

func TestRateConfigValidate(t *testing.T) {
	require.NoError(t, model.DefaultRateConfig().Validate())

	bad := []model.RateConfig{
		{EmailsPerHour: 0, BatchSize: 1, IntervalBetweenBatchesMinutes: 1},
		{EmailsPerHour: 1, BatchSize: -1, IntervalBetweenBatchesMinutes: 1},
		{EmailsPerHour: 1, BatchSize: 1, IntervalBetweenBatchesMinutes: 0},
	}
	for _, r := range bad {
		require.ErrorIs(t, r.Validate(), appErrors.ErrInvalidRate)
	}
}

func TestRateConfigDerived(t *testing.T) {
	r := model.DefaultRateConfig()
	assert.Equal(t, 5*time.Minute, r.BatchInterval())
	assert.Equal(t, 10, r.EstimatedHours(1000))
	assert.Equal(t, 1, r.EstimatedHours(1))
}

func TestSendConfigValidate(t *testing.T) {
	ok := model.SendConfig{APIKey: "key-123", Domain: "mg.example.com", From: "News <news@example.com>"}
	require.NoError(t, ok.Validate())

	missing := ok
	missing.Domain = "  "
	require.ErrorIs(t, missing.Validate(), appErrors.ErrInvalidConfig)
}

func TestSendConfigMasked(t *testing.T) {
	cfg := model.SendConfig{APIKey: "key-abcdef1234"}
	assert.Equal(t, "**********1234", cfg.Masked().APIKey)
	assert.Equal(t, "****", model.SendConfig{APIKey: "abc"}.Masked().APIKey)
	assert.Empty(t, model.SendConfig{}.Masked().APIKey)
}

func TestTemplateValidate(t *testing.T) {
	require.NoError(t, model.Template{Subject: "Hi", Body: "<p>x</p>"}.Validate())
	require.ErrorIs(t, model.Template{Body: "<p>x</p>"}.Validate(), appErrors.ErrInvalidTemplate)
}

func TestProgressFraction(t *testing.T) {
	assert.Zero(t, model.CampaignProgress{}.Fraction())
	assert.InDelta(t, 0.5, model.CampaignProgress{Total: 4, Sent: 1, Failed: 1}.Fraction(), 1e-9)
}

func TestRecipientAddress(t *testing.T) {
	assert.Equal(t, "ana@example.com", model.Recipient{Email: "ana@example.com"}.Address())
	assert.Equal(t, "Ana <ana@example.com>", model.Recipient{Email: "ana@example.com", Name: "Ana"}.Address())
}

func TestSeverityIsValid(t *testing.T) {
	assert.True(t, model.SeverityError.IsValid())
	assert.False(t, model.Severity("warn").IsValid())
}
