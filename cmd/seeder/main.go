//cmd/seeder/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/unclebandit/bulkmail/internal/config"
	"github.com/unclebandit/bulkmail/internal/contacts"
	"github.com/unclebandit/bulkmail/internal/db"
	"github.com/unclebandit/bulkmail/internal/logger"
	"github.com/unclebandit/bulkmail/internal/model"
	"github.com/unclebandit/bulkmail/internal/repository"
)

func main() {
	samplePath := flag.String("sample", "seed/contacts_sample.xlsx", "where to write the sample contacts sheet, empty to skip")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Error("failed to open settings store", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	seeded, err := seedSettings(ctx, repository.NewSettingsRepository(store), os.Getenv)
	if err != nil {
		log.Error("failed to seed settings", slog.Any("error", err))
		os.Exit(1)
	}
	for _, s := range seeded {
		log.Info("seeded", slog.String("settings", s), slog.String("backend", cfg.SettingsBackend))
	}

	if *samplePath != "" {
		if err := writeSample(*samplePath); err != nil {
			log.Error("failed to write sample contacts", slog.Any("error", err))
			os.Exit(1)
		}
		log.Info("seeded", slog.String("file", *samplePath))
	}

	log.Info("seeding completed successfully")
}

func openStore(ctx context.Context, cfg *config.Config) (repository.SettingsStore, func(), error) {
	switch cfg.SettingsBackend {
	case config.BackendPostgres:
		conn, err := db.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store := repository.NewPostgresSettingsRepository(conn)
		if err := store.Migrate(ctx); err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		return store, func() { _ = conn.Close() }, nil
	case config.BackendRedis:
		client, err := db.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRedisSettingsRepository(client, ""), func() { _ = client.Close() }, nil
	}
	return nil, nil, fmt.Errorf("settings backend %q is not persistent, nothing to seed", cfg.SettingsBackend)
}

// seedSettings stores every group whose SEED_* variables are set and reports
// the groups written. Groups with no variables set are left untouched.
func seedSettings(ctx context.Context, settings *repository.SettingsRepository, getenv func(string) string) ([]string, error) {
	var seeded []string

	sendCfg := model.SendConfig{
		APIKey: getenv("SEED_MAILGUN_API_KEY"),
		Domain: getenv("SEED_MAILGUN_DOMAIN"),
		From:   getenv("SEED_MAILGUN_FROM"),
	}
	if sendCfg != (model.SendConfig{}) {
		if err := settings.SaveSendConfig(ctx, sendCfg); err != nil {
			return seeded, err
		}
		seeded = append(seeded, "send config")
	}

	tpl := model.Template{
		Subject: getenv("SEED_TEMPLATE_SUBJECT"),
		Body:    getenv("SEED_TEMPLATE_BODY"),
	}
	if tpl != (model.Template{}) {
		if err := settings.SaveTemplate(ctx, tpl); err != nil {
			return seeded, err
		}
		seeded = append(seeded, "template")
	}

	rate := model.DefaultRateConfig()
	rateSet := false
	for key, dst := range map[string]*int{
		"SEED_EMAILS_PER_HOUR":        &rate.EmailsPerHour,
		"SEED_BATCH_SIZE":             &rate.BatchSize,
		"SEED_BATCH_INTERVAL_MINUTES": &rate.IntervalBetweenBatchesMinutes,
	} {
		raw := getenv(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return seeded, fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		rateSet = true
	}
	if rateSet {
		if err := rate.Validate(); err != nil {
			return seeded, err
		}
		if err := settings.SaveRate(ctx, rate); err != nil {
			return seeded, err
		}
		seeded = append(seeded, "schedule")
	}

	return seeded, nil
}

func writeSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := contacts.WriteSample(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
