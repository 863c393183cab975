package repository

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/unclebandit/bulkmail/internal/model"
)

// Keys persisted by the settings store. The credential keys keep the names
// the browser client stored them under so existing drafts carry over.
const (
	KeyAPIKey          = "mailgunApiKey"
	KeyDomain          = "mailgunDomain"
	KeyFrom            = "mailgunFrom"
	KeyTemplateSubject = "templateSubject"
	KeyTemplateBody    = "templateBody"
	KeyEmailsPerHour   = "scheduleEmailsPerHour"
	KeyBatchSize       = "scheduleBatchSize"
	KeyBatchInterval   = "scheduleIntervalMinutes"
)

// SettingsStore is a string key/value port for persisted drafts.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// MemorySettingsRepository keeps settings in process memory.
type MemorySettingsRepository struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemorySettingsRepository() *MemorySettingsRepository {
	return &MemorySettingsRepository{values: map[string]string{}}
}

func (m *MemorySettingsRepository) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemorySettingsRepository) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// SettingsRepository maps the typed drafts onto a SettingsStore.
type SettingsRepository struct {
	Store SettingsStore
}

func NewSettingsRepository(store SettingsStore) *SettingsRepository {
	return &SettingsRepository{Store: store}
}

// LoadSendConfig returns the stored credentials. Missing keys stay empty.
func (r *SettingsRepository) LoadSendConfig(ctx context.Context) (model.SendConfig, error) {
	var cfg model.SendConfig
	for key, dst := range map[string]*string{
		KeyAPIKey: &cfg.APIKey,
		KeyDomain: &cfg.Domain,
		KeyFrom:   &cfg.From,
	} {
		if err := r.load(ctx, key, dst); err != nil {
			return model.SendConfig{}, err
		}
	}
	return cfg, nil
}

func (r *SettingsRepository) SaveSendConfig(ctx context.Context, cfg model.SendConfig) error {
	return r.save(ctx, map[string]string{
		KeyAPIKey: cfg.APIKey,
		KeyDomain: cfg.Domain,
		KeyFrom:   cfg.From,
	})
}

func (r *SettingsRepository) LoadTemplate(ctx context.Context) (model.Template, error) {
	var tpl model.Template
	if err := r.load(ctx, KeyTemplateSubject, &tpl.Subject); err != nil {
		return model.Template{}, err
	}
	if err := r.load(ctx, KeyTemplateBody, &tpl.Body); err != nil {
		return model.Template{}, err
	}
	return tpl, nil
}

func (r *SettingsRepository) SaveTemplate(ctx context.Context, tpl model.Template) error {
	return r.save(ctx, map[string]string{
		KeyTemplateSubject: tpl.Subject,
		KeyTemplateBody:    tpl.Body,
	})
}

// LoadRate falls back to the default value for every key never saved.
func (r *SettingsRepository) LoadRate(ctx context.Context) (model.RateConfig, error) {
	rate := model.DefaultRateConfig()
	for key, dst := range map[string]*int{
		KeyEmailsPerHour: &rate.EmailsPerHour,
		KeyBatchSize:     &rate.BatchSize,
		KeyBatchInterval: &rate.IntervalBetweenBatchesMinutes,
	} {
		v, ok, err := r.Store.Get(ctx, key)
		if err != nil {
			return model.RateConfig{}, fmt.Errorf("load %s: %w", key, err)
		}
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return model.RateConfig{}, fmt.Errorf("parse %s: %w", key, err)
		}
		*dst = n
	}
	return rate, nil
}

func (r *SettingsRepository) SaveRate(ctx context.Context, rate model.RateConfig) error {
	return r.save(ctx, map[string]string{
		KeyEmailsPerHour: strconv.Itoa(rate.EmailsPerHour),
		KeyBatchSize:     strconv.Itoa(rate.BatchSize),
		KeyBatchInterval: strconv.Itoa(rate.IntervalBetweenBatchesMinutes),
	})
}

func (r *SettingsRepository) load(ctx context.Context, key string, dst *string) error {
	v, ok, err := r.Store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if ok {
		*dst = v
	}
	return nil
}

func (r *SettingsRepository) save(ctx context.Context, values map[string]string) error {
	for key, v := range values {
		if err := r.Store.Set(ctx, key, v); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}
	return nil
}

var (
	_ SettingsStore = (*MemorySettingsRepository)(nil)
	_ SettingsStore = (*PostgresSettingsRepository)(nil)
	_ SettingsStore = (*RedisSettingsRepository)(nil)
)
