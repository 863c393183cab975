package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/unclebandit/bulkmail/internal/model"
)

// Mailgun sends through the Mailgun Messages API. Credentials come with each
// call because they belong to the campaign, not to the process.
type Mailgun struct {
	apiBase string
	timeout time.Duration
}

// NewMailgun creates a Mailgun adapter. An empty apiBase keeps the library's
// default US endpoint; pass mailgun.APIBaseEU for the EU region.
func NewMailgun(apiBase string, timeout time.Duration) *Mailgun {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Mailgun{apiBase: apiBase, timeout: timeout}
}

func (m *Mailgun) Send(ctx context.Context, cfg model.SendConfig, email model.Template, r model.Recipient) (model.DispatchResult, error) {
	mg := mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	if m.apiBase != "" {
		mg.SetAPIBase(m.apiBase)
	}

	msg := mg.NewMessage(cfg.From, email.Subject, "", r.Address())
	msg.SetHtml(email.Body)

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	resp, id, err := mg.Send(ctx, msg)
	if err != nil {
		var unexpected *mailgun.UnexpectedResponseError
		if errors.As(err, &unexpected) {
			return model.DispatchResult{
				Success: false,
				Message: fmt.Sprintf("mailgun: status %d: %s", unexpected.Actual, string(unexpected.Data)),
			}, nil
		}
		return model.DispatchResult{}, fmt.Errorf("mailgun: failed to send email: %w", err)
	}

	return model.DispatchResult{Success: true, ID: id, Message: resp}, nil
}
