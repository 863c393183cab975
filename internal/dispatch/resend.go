package dispatch

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/resend/resend-go/v3"

	"github.com/unclebandit/bulkmail/internal/model"
)

// Resend sends through the Resend API. SendConfig.APIKey is the Resend key;
// SendConfig.Domain is not used by this provider.
type Resend struct {
	baseURL *url.URL
	timeout time.Duration
}

// NewResend creates a Resend adapter. A nil baseURL keeps the library default.
func NewResend(baseURL *url.URL, timeout time.Duration) *Resend {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Resend{baseURL: baseURL, timeout: timeout}
}

func (s *Resend) Send(ctx context.Context, cfg model.SendConfig, email model.Template, r model.Recipient) (model.DispatchResult, error) {
	client := resend.NewClient(cfg.APIKey)
	if s.baseURL != nil {
		client.BaseURL = s.baseURL
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sent, err := client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    cfg.From,
		To:      []string{r.Address()},
		Subject: email.Subject,
		Html:    email.Body,
	})
	if err != nil {
		return model.DispatchResult{}, fmt.Errorf("resend: failed to send email: %w", err)
	}

	return model.DispatchResult{Success: true, ID: sent.Id, Message: "queued"}, nil
}
