// internal/service/campaign_service.go
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/unclebandit/bulkmail/internal/contacts"
	"github.com/unclebandit/bulkmail/internal/dispatch"
	appErrors "github.com/unclebandit/bulkmail/internal/errors"
	"github.com/unclebandit/bulkmail/internal/logger"
	"github.com/unclebandit/bulkmail/internal/model"
	"github.com/unclebandit/bulkmail/internal/queue"
	"github.com/unclebandit/bulkmail/internal/repository"
)

type CampaignService struct {
	CampaignRepo     repository.CampaignRepositoryInterface
	ContactRepo      repository.ContactRepositoryInterface
	Settings         *repository.SettingsRepository
	Dispatcher       dispatch.Dispatcher
	Events           queue.Queue
	Logger           *slog.Logger
	SchedulerOptions []SchedulerOption

	mu      sync.Mutex
	handles map[string]*campaignHandle
}

type campaignHandle struct {
	scheduler *Scheduler
	campaign  model.Campaign
}

// StartCampaignRequest overrides the stored drafts. Nil fields fall back to
// the settings store, and an empty recipient list to the imported contacts.
type StartCampaignRequest struct {
	Name       string            `json:"name"`
	Config     *model.SendConfig `json:"config,omitempty"`
	Template   *model.Template   `json:"template,omitempty"`
	Rate       *model.RateConfig `json:"rate,omitempty"`
	Recipients []model.Recipient `json:"recipients,omitempty"`
}

type CampaignDetails struct {
	model.CampaignInfo
	Rate           model.RateConfig       `json:"rate"`
	EstimatedHours int                    `json:"estimated_hours"`
	Fraction       float64                `json:"fraction"`
	Progress       model.CampaignProgress `json:"progress"`
}

// PreviewRequest renders against the contact at Index, or against Recipient
// when set. Template defaults to the stored draft.
type PreviewRequest struct {
	Index     int              `json:"index"`
	Recipient *model.Recipient `json:"recipient,omitempty"`
	Template  *model.Template  `json:"template,omitempty"`
}

type PreviewResult struct {
	Recipient  model.Recipient `json:"recipient"`
	Subject    string          `json:"subject"`
	Body       string          `json:"body"`
	Unresolved []string        `json:"unresolved"`
}

func NewCampaignService(settings *repository.SettingsRepository, d dispatch.Dispatcher, events queue.Queue, log *slog.Logger, opts ...SchedulerOption) *CampaignService {
	return &CampaignService{
		CampaignRepo:     repository.NewCampaignRepository(),
		ContactRepo:      repository.NewContactRepository(),
		Settings:         settings,
		Dispatcher:       d,
		Events:           events,
		Logger:           log,
		SchedulerOptions: opts,
	}
}

func (s *CampaignService) log() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// StartCampaign resolves the campaign from req and the stored drafts,
// registers a new handle and starts it.
func (s *CampaignService) StartCampaign(ctx context.Context, req StartCampaignRequest) (*CampaignDetails, error) {
	c, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := ValidateCampaign(c); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	opts := append([]SchedulerOption{WithLogger(s.log())}, s.SchedulerOptions...)
	h := &campaignHandle{
		scheduler: NewScheduler(id, s.Dispatcher, s.publish, opts...),
		campaign:  c,
	}

	info := &model.CampaignInfo{
		ID:        id,
		Name:      req.Name,
		Subject:   c.Template.Subject,
		From:      c.Config.From,
		Total:     len(c.Recipients),
		CreatedAt: time.Now(),
	}
	if info.Name == "" {
		info.Name = c.Template.Subject
	}
	if err := s.CampaignRepo.Create(info); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.handles == nil {
		s.handles = map[string]*campaignHandle{}
	}
	s.handles[id] = h
	s.mu.Unlock()

	if err := h.scheduler.Start(ctx, c); err != nil {
		return nil, err
	}
	s.log().InfoContext(logger.WithCampaignID(ctx, id), "campaign created",
		slog.Int("recipients", len(c.Recipients)),
		slog.Int("estimated_hours", c.Rate.EstimatedHours(len(c.Recipients))))

	return s.details(info, h), nil
}

// SendCampaign starts the handle again. It is a no-op while the handle is
// running; a finished or cancelled handle begins a fresh run.
func (s *CampaignService) SendCampaign(ctx context.Context, id string) (*CampaignDetails, error) {
	h, info, err := s.handle(id)
	if err != nil {
		return nil, err
	}
	if err := h.scheduler.Start(ctx, h.campaign); err != nil {
		return nil, err
	}
	return s.details(info, h), nil
}

func (s *CampaignService) GetCampaign(id string) (*CampaignDetails, error) {
	h, info, err := s.handle(id)
	if err != nil {
		return nil, err
	}
	return s.details(info, h), nil
}

// CancelCampaign reports whether a running campaign was stopped.
func (s *CampaignService) CancelCampaign(ctx context.Context, id string) (*CampaignDetails, bool, error) {
	h, info, err := s.handle(id)
	if err != nil {
		return nil, false, err
	}
	cancelled := h.scheduler.Cancel()
	if cancelled {
		s.log().InfoContext(logger.WithCampaignID(ctx, id), "campaign cancel requested")
	}
	return s.details(info, h), cancelled, nil
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(page, pageSize int) ([]CampaignDetails, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	infos, total, err := s.CampaignRepo.ListCampaigns(offset, pageSize)
	if err != nil {
		return nil, nil, err
	}

	out := make([]CampaignDetails, 0, len(infos))
	for _, info := range infos {
		s.mu.Lock()
		h := s.handles[info.ID]
		s.mu.Unlock()
		if h == nil {
			continue
		}
		out = append(out, *s.details(info, h))
	}

	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": (total + pageSize - 1) / pageSize,
	}
	return out, pagination, nil
}

// ExportOutcomes writes the recorded outcomes of the last run of a campaign.
func (s *CampaignService) ExportOutcomes(id, format string, w io.Writer) error {
	h, _, err := s.handle(id)
	if err != nil {
		return err
	}
	return contacts.ExportOutcomes(w, format, h.scheduler.Progress().Outcomes)
}

func (s *CampaignService) RenderPreview(ctx context.Context, req PreviewRequest) (*PreviewResult, error) {
	var rec model.Recipient
	if req.Recipient != nil {
		rec = *req.Recipient
	} else {
		c, err := s.ContactRepo.GetByIndex(req.Index)
		if err != nil {
			return nil, err
		}
		rec = *c
	}

	var tpl model.Template
	if req.Template != nil {
		tpl = *req.Template
	} else {
		stored, err := s.Settings.LoadTemplate(ctx)
		if err != nil {
			return nil, err
		}
		tpl = stored
	}

	out := RenderTemplate(tpl, rec)
	unresolved := Placeholders(out.Subject + "\n" + out.Body)
	if unresolved == nil {
		unresolved = []string{}
	}
	return &PreviewResult{
		Recipient:  rec,
		Subject:    out.Subject,
		Body:       out.Body,
		Unresolved: unresolved,
	}, nil
}

// ImportContacts replaces the contact session with the parsed file.
func (s *CampaignService) ImportContacts(filename string, r io.Reader) (*contacts.ImportResult, error) {
	res, err := contacts.Parse(filename, r)
	if err != nil {
		return nil, err
	}
	if err := s.ContactRepo.Replace(res.Contacts); err != nil {
		return nil, err
	}
	s.log().Info("contacts imported",
		slog.String("file", filename),
		slog.Int("contacts", len(res.Contacts)),
		slog.Int("skipped", res.Skipped))
	return res, nil
}

func (s *CampaignService) Contacts() ([]model.Recipient, error) {
	return s.ContactRepo.ListAll()
}

func (s *CampaignService) RemoveContact(i int) error {
	return s.ContactRepo.Remove(i)
}

// GetSendConfig returns the stored credentials with the API key masked.
func (s *CampaignService) GetSendConfig(ctx context.Context) (model.SendConfig, error) {
	cfg, err := s.Settings.LoadSendConfig(ctx)
	if err != nil {
		return model.SendConfig{}, err
	}
	return cfg.Masked(), nil
}

// SaveSendConfig stores a credentials draft. An empty or still-masked API key
// keeps the stored one.
func (s *CampaignService) SaveSendConfig(ctx context.Context, cfg model.SendConfig) (model.SendConfig, error) {
	stored, err := s.Settings.LoadSendConfig(ctx)
	if err != nil {
		return model.SendConfig{}, err
	}
	if cfg.APIKey == "" || cfg.APIKey == stored.Masked().APIKey {
		cfg.APIKey = stored.APIKey
	}
	if err := s.Settings.SaveSendConfig(ctx, cfg); err != nil {
		return model.SendConfig{}, err
	}
	return cfg.Masked(), nil
}

func (s *CampaignService) GetTemplate(ctx context.Context) (model.Template, error) {
	return s.Settings.LoadTemplate(ctx)
}

func (s *CampaignService) SaveTemplate(ctx context.Context, tpl model.Template) error {
	return s.Settings.SaveTemplate(ctx, tpl)
}

func (s *CampaignService) GetRate(ctx context.Context) (model.RateConfig, error) {
	return s.Settings.LoadRate(ctx)
}

func (s *CampaignService) SaveRate(ctx context.Context, rate model.RateConfig) error {
	if err := rate.Validate(); err != nil {
		return err
	}
	return s.Settings.SaveRate(ctx, rate)
}

func (s *CampaignService) resolve(ctx context.Context, req StartCampaignRequest) (model.Campaign, error) {
	var c model.Campaign
	var err error

	if req.Config != nil {
		c.Config = *req.Config
	} else if c.Config, err = s.Settings.LoadSendConfig(ctx); err != nil {
		return c, err
	}
	if req.Template != nil {
		c.Template = *req.Template
	} else if c.Template, err = s.Settings.LoadTemplate(ctx); err != nil {
		return c, err
	}
	if req.Rate != nil {
		c.Rate = *req.Rate
	} else if c.Rate, err = s.Settings.LoadRate(ctx); err != nil {
		return c, err
	}
	if len(req.Recipients) > 0 {
		c.Recipients = req.Recipients
	} else if c.Recipients, err = s.ContactRepo.ListAll(); err != nil {
		return c, err
	}
	return c, nil
}

func (s *CampaignService) handle(id string) (*campaignHandle, *model.CampaignInfo, error) {
	info, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	h, ok := s.handles[id]
	s.mu.Unlock()
	if !ok {
		return nil, nil, appErrors.NewCampaignNotFound(id)
	}
	return h, info, nil
}

func (s *CampaignService) details(info *model.CampaignInfo, h *campaignHandle) *CampaignDetails {
	p := h.scheduler.Progress()
	return &CampaignDetails{
		CampaignInfo:   *info,
		Rate:           h.campaign.Rate,
		EstimatedHours: h.campaign.Rate.EstimatedHours(len(h.campaign.Recipients)),
		Fraction:       p.Fraction(),
		Progress:       p,
	}
}

// publish forwards campaign events to the event queue. Delivery is best effort
// and never affects the run.
func (s *CampaignService) publish(ev model.CampaignEvent) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(queue.TopicCampaignEvents, ev); err != nil {
		if errors.Is(err, queue.ErrNoSubscribers) {
			return
		}
		s.log().Warn("failed to publish campaign event",
			slog.String("campaign_id", ev.CampaignID),
			slog.Any("error", err))
	}
}
