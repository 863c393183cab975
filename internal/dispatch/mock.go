package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"

	"github.com/unclebandit/bulkmail/internal/model"
)

// Mock never touches the network. Each send succeeds with the configured
// probability, which makes it useful for dry runs of a campaign's pacing.
type Mock struct {
	success float64
	logger  *slog.Logger
	seq     atomic.Int64
}

// NewMock returns a mock dispatcher. success is the probability of a send
// succeeding; 0 fails every send and values outside [0, 1] fall back to 0.9.
func NewMock(success float64, logger *slog.Logger) *Mock {
	if success < 0 || success > 1 {
		success = 0.9
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mock{success: success, logger: logger}
}

func (m *Mock) Send(ctx context.Context, _ model.SendConfig, email model.Template, r model.Recipient) (model.DispatchResult, error) {
	if err := ctx.Err(); err != nil {
		return model.DispatchResult{}, err
	}

	n := m.seq.Add(1)
	m.logger.DebugContext(ctx, "mock_email_send", slog.String("to", r.Address()), slog.String("subject", email.Subject))

	if m.success < 1 && rand.Float64() >= m.success {
		return model.DispatchResult{Success: false, Message: "mock sending failed"}, nil
	}
	return model.DispatchResult{Success: true, ID: fmt.Sprintf("mock-%d", n), Message: "queued"}, nil
}
