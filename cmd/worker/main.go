package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/unclebandit/bulkmail/internal/config"
	"github.com/unclebandit/bulkmail/internal/logger"
	"github.com/unclebandit/bulkmail/internal/model"
	"github.com/unclebandit/bulkmail/internal/queue"
	"github.com/unclebandit/bulkmail/internal/service"
)

// The worker consumes campaign events published by the server over RabbitMQ
// and writes one audit record per event.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, logger.CampaignIDExtractor())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	q, err := queue.DialAMQP(cfg.AMQPURL, log)
	if err != nil {
		log.Error("failed to connect to RabbitMQ", slog.Any("error", err))
		os.Exit(1)
	}
	defer q.Close()

	if err := run(ctx, q, service.NewAuditHandler(log), log); err != nil {
		log.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, q queue.Queue, handle service.EventHandler, log *slog.Logger) error {
	events := make(chan model.CampaignEvent, 256)
	if err := queue.StartCampaignEventSubscriber(q, events, log); err != nil {
		return err
	}

	log.Info("worker running, waiting for campaign events", slog.String("topic", queue.TopicCampaignEvents))
	service.NewWorker(events, handle, log).Start(ctx)
	return nil
}
