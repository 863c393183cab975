package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/bulkmail/internal/model"
	"github.com/unclebandit/bulkmail/internal/service"
)

func TestWorker_ProcessesUntilClosed(t *testing.T) {
	events := make(chan model.CampaignEvent, 3)
	events <- model.CampaignEvent{CampaignID: "a"}
	events <- model.CampaignEvent{CampaignID: "b"}
	events <- model.CampaignEvent{CampaignID: "c"}
	close(events)

	var mu sync.Mutex
	var seen []string
	w := service.NewWorker(events, func(_ context.Context, ev model.CampaignEvent) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, ev.CampaignID)
		if ev.CampaignID == "b" {
			return errors.New("boom")
		}
		return nil
	}, discardLogger())

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after channel close")
	}
	assert.Equal(t, []string{"a", "b", "c"}, seen)
}

func TestWorker_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := service.NewWorker(make(chan model.CampaignEvent), func(context.Context, model.CampaignEvent) error {
		return nil
	}, nil)

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}

func TestAuditHandler(t *testing.T) {
	var buf bytes.Buffer
	handle := service.NewAuditHandler(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, handle(context.Background(), model.CampaignEvent{
		CampaignID: "c1",
		Kind:       model.EventResult,
		Total:      2,
		Failed:     1,
		Running:    true,
		Outcome:    &model.SendOutcome{RecipientEmail: "a@example.com", ErrorMessage: "rejected"},
	}))
	require.NoError(t, handle(context.Background(), model.CampaignEvent{
		CampaignID: "c1",
		Kind:       model.EventCompleted,
		Cancelled:  true,
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "WARN", first["level"])
	assert.Equal(t, "a@example.com", first["recipient"])
	assert.Equal(t, "rejected", first["error"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "INFO", second["level"])
	assert.Equal(t, true, second["cancelled"])
}
