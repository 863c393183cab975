// Package dispatch holds the provider adapters that deliver one rendered email
// to one recipient.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/unclebandit/bulkmail/internal/model"
)

const defaultTimeout = 30 * time.Second

// Dispatcher delivers a single, already rendered email. A returned error and a
// result with Success=false are both treated as a failed send by callers.
type Dispatcher interface {
	Send(ctx context.Context, cfg model.SendConfig, email model.Template, r model.Recipient) (model.DispatchResult, error)
}

// DispatcherFunc adapts a plain function to Dispatcher.
type DispatcherFunc func(ctx context.Context, cfg model.SendConfig, email model.Template, r model.Recipient) (model.DispatchResult, error)

func (f DispatcherFunc) Send(ctx context.Context, cfg model.SendConfig, email model.Template, r model.Recipient) (model.DispatchResult, error) {
	return f(ctx, cfg, email, r)
}

// Options configures the adapters built by New.
type Options struct {
	MailgunAPIBase string
	Timeout        time.Duration
	MockSuccess    float64
	Logger         *slog.Logger
}

// New returns the adapter registered under provider: mailgun, resend or mock.
func New(provider string, opts Options) (Dispatcher, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "mailgun":
		return NewMailgun(opts.MailgunAPIBase, opts.Timeout), nil
	case "resend":
		return NewResend(nil, opts.Timeout), nil
	case "mock":
		return NewMock(opts.MockSuccess, opts.Logger), nil
	}
	return nil, fmt.Errorf("unknown mail provider %q", provider)
}
