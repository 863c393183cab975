package service

import (
	"context"
	"log/slog"

	"github.com/unclebandit/bulkmail/internal/model"
)

// EventHandler consumes one campaign event.
type EventHandler func(ctx context.Context, ev model.CampaignEvent) error

// Worker drains campaign events and hands each to Handle.
type Worker struct {
	Events <-chan model.CampaignEvent
	Handle EventHandler
	Logger *slog.Logger
}

// Constructor
func NewWorker(events <-chan model.CampaignEvent, handle EventHandler, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		Events: events,
		Handle: handle,
		Logger: logger,
	}
}

// Start processes events until the channel closes or ctx is done.
func (w *Worker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if err := w.Handle(ctx, ev); err != nil {
				w.Logger.ErrorContext(ctx, "failed to handle campaign event",
					slog.String("campaign_id", ev.CampaignID),
					slog.String("kind", string(ev.Kind)),
					slog.Any("error", err))
			}
		}
	}
}

// NewAuditHandler writes one structured log record per event.
func NewAuditHandler(logger *slog.Logger) EventHandler {
	return func(ctx context.Context, ev model.CampaignEvent) error {
		attrs := []slog.Attr{
			slog.String("campaign_id", ev.CampaignID),
			slog.String("kind", string(ev.Kind)),
			slog.Int("total", ev.Total),
			slog.Int("sent", ev.Sent),
			slog.Int("failed", ev.Failed),
			slog.Bool("running", ev.Running),
		}
		level := slog.LevelInfo
		switch ev.Kind {
		case model.EventResult:
			if ev.Outcome != nil {
				attrs = append(attrs,
					slog.String("recipient", ev.Outcome.RecipientEmail),
					slog.Bool("succeeded", ev.Outcome.Succeeded))
				if !ev.Outcome.Succeeded {
					level = slog.LevelWarn
					attrs = append(attrs, slog.String("error", ev.Outcome.ErrorMessage))
				}
			}
		case model.EventCompleted:
			attrs = append(attrs, slog.Bool("cancelled", ev.Cancelled))
		default:
			attrs = append(attrs, slog.String("message", ev.Entry.Message))
		}
		logger.LogAttrs(ctx, level, "campaign event", attrs...)
		return nil
	}
}
