// internal/model/config.go
package model

import (
	"strings"
	"time"

	appErrors "github.com/unclebandit/bulkmail/internal/errors"
)

// SendConfig holds the provider credentials for one campaign run.
type SendConfig struct {
	APIKey string `json:"api_key"`
	Domain string `json:"domain"`
	From   string `json:"from"`
}

func (c SendConfig) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return appErrors.NewValidation(appErrors.ErrInvalidConfig, "api_key", "is required")
	}
	if strings.TrimSpace(c.Domain) == "" {
		return appErrors.NewValidation(appErrors.ErrInvalidConfig, "domain", "is required")
	}
	if strings.TrimSpace(c.From) == "" {
		return appErrors.NewValidation(appErrors.ErrInvalidConfig, "from", "is required")
	}
	return nil
}

// Masked returns a copy safe to return to clients.
func (c SendConfig) Masked() SendConfig {
	if len(c.APIKey) > 4 {
		c.APIKey = strings.Repeat("*", len(c.APIKey)-4) + c.APIKey[len(c.APIKey)-4:]
	} else if c.APIKey != "" {
		c.APIKey = "****"
	}
	return c
}

// Template is the subject and HTML body of a campaign, possibly holding %name% placeholders.
type Template struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (t Template) Validate() error {
	if strings.TrimSpace(t.Subject) == "" {
		return appErrors.NewValidation(appErrors.ErrInvalidTemplate, "subject", "is required")
	}
	if strings.TrimSpace(t.Body) == "" {
		return appErrors.NewValidation(appErrors.ErrInvalidTemplate, "body", "is required")
	}
	return nil
}

// RateConfig controls pacing. All fields must be strictly positive.
type RateConfig struct {
	EmailsPerHour                 int `json:"emails_per_hour"`
	BatchSize                     int `json:"batch_size"`
	IntervalBetweenBatchesMinutes int `json:"interval_between_batches_minutes"`
}

func DefaultRateConfig() RateConfig {
	return RateConfig{
		EmailsPerHour:                 100,
		BatchSize:                     10,
		IntervalBetweenBatchesMinutes: 5,
	}
}

func (r RateConfig) Validate() error {
	if r.EmailsPerHour <= 0 {
		return appErrors.NewValidation(appErrors.ErrInvalidRate, "emails_per_hour", "must be greater than zero")
	}
	if r.BatchSize <= 0 {
		return appErrors.NewValidation(appErrors.ErrInvalidRate, "batch_size", "must be greater than zero")
	}
	if r.IntervalBetweenBatchesMinutes <= 0 {
		return appErrors.NewValidation(appErrors.ErrInvalidRate, "interval_between_batches_minutes", "must be greater than zero")
	}
	return nil
}

// EmailInterval is the minimum spacing between two sends of the same batch:
// ceil(3600000 / emailsPerHour) milliseconds.
func (r RateConfig) EmailInterval() time.Duration {
	ms := (3600000 + r.EmailsPerHour - 1) / r.EmailsPerHour
	return time.Duration(ms) * time.Millisecond
}

// BatchInterval is the cadence between batch starts.
func (r RateConfig) BatchInterval() time.Duration {
	return time.Duration(r.IntervalBetweenBatchesMinutes) * time.Minute
}

// EstimatedHours is the rough number of hours needed to send n emails at this rate.
func (r RateConfig) EstimatedHours(n int) int {
	return (n + r.EmailsPerHour - 1) / r.EmailsPerHour
}
