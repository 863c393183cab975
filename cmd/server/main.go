// cmd/server/main.go
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/unclebandit/bulkmail/internal/config"
	"github.com/unclebandit/bulkmail/internal/controller"
	"github.com/unclebandit/bulkmail/internal/db"
	"github.com/unclebandit/bulkmail/internal/dispatch"
	"github.com/unclebandit/bulkmail/internal/handler"
	"github.com/unclebandit/bulkmail/internal/logger"
	"github.com/unclebandit/bulkmail/internal/model"
	"github.com/unclebandit/bulkmail/internal/queue"
	"github.com/unclebandit/bulkmail/internal/repository"
	"github.com/unclebandit/bulkmail/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, logger.CampaignIDExtractor())
	slog.SetDefault(log)
	if !cfg.EnvFileLoaded {
		log.Info("no .env file found, relying on OS environment variables")
	}

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := handler.Checks{}
	store, closeStore, err := openSettingsStore(ctx, cfg, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	events, closeEvents, err := openEvents(cfg, log)
	if err != nil {
		return err
	}
	defer closeEvents()

	d, err := dispatch.New(cfg.MailProvider, dispatch.Options{
		MailgunAPIBase: cfg.MailgunAPIBase,
		Timeout:        cfg.DispatchTimeout,
		MockSuccess:    cfg.MockSuccessRate,
		Logger:         log,
	})
	if err != nil {
		return err
	}

	var opts []service.SchedulerOption
	if cfg.BatchCompletionWait {
		opts = append(opts, service.WithBatchCompletionWait())
	}
	svc := service.NewCampaignService(repository.NewSettingsRepository(store), d, events, log, opts...)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: controller.NewRouter(svc, log, checks),
	}

	g, gctx := errgroup.WithContext(ctx)

	// In-process audit trail when no external worker consumes the events.
	if mem, ok := events.(*queue.InMemoryQueue); ok {
		ch := make(chan model.CampaignEvent, 256)
		if err := queue.StartCampaignEventSubscriber(mem, ch, log); err != nil {
			return err
		}
		worker := service.NewWorker(ch, service.NewAuditHandler(log.With(slog.String("component", "audit"))), log)
		g.Go(func() error {
			worker.Start(gctx)
			return nil
		})
	}

	g.Go(func() error {
		log.Info("server running", slog.String("address", cfg.HTTPAddr),
			slog.String("mail_provider", cfg.MailProvider),
			slog.String("settings_backend", cfg.SettingsBackend),
			slog.String("events_backend", cfg.EventsBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openSettingsStore(ctx context.Context, cfg *config.Config, checks handler.Checks) (repository.SettingsStore, func(), error) {
	switch cfg.SettingsBackend {
	case config.BackendPostgres:
		conn, err := db.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store := repository.NewPostgresSettingsRepository(conn)
		if err := store.Migrate(ctx); err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("migrate settings table: %w", err)
		}
		checks["postgres"] = pingPostgres(conn)
		return store, func() { _ = conn.Close() }, nil
	case config.BackendRedis:
		client, err := db.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		checks["redis"] = pingRedis(client)
		return repository.NewRedisSettingsRepository(client, ""), func() { _ = client.Close() }, nil
	default:
		return repository.NewMemorySettingsRepository(), func() {}, nil
	}
}

func openEvents(cfg *config.Config, log *slog.Logger) (queue.Queue, func(), error) {
	if cfg.EventsBackend == config.BackendAMQP {
		q, err := queue.DialAMQP(cfg.AMQPURL, log)
		if err != nil {
			return nil, nil, err
		}
		return q, func() { _ = q.Close() }, nil
	}
	return queue.NewInMemoryQueue(log), func() {}, nil
}

func pingPostgres(conn *sql.DB) handler.CheckFunc {
	return func(ctx context.Context) error { return conn.PingContext(ctx) }
}

func pingRedis(client redis.UniversalClient) handler.CheckFunc {
	return func(ctx context.Context) error { return client.Ping(ctx).Err() }
}
