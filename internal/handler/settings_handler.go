package handler

import (
	"net/http"

	"github.com/unclebandit/bulkmail/internal/model"
	"github.com/unclebandit/bulkmail/internal/service"
)

// SettingsHandler serves the stored credential, template and schedule drafts.
type SettingsHandler struct {
	Service *service.CampaignService
}

func NewSettingsHandler(svc *service.CampaignService) *SettingsHandler {
	return &SettingsHandler{Service: svc}
}

// GetSettings returns the credentials with the API key masked.
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Service.GetSendConfig(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, cfg)
}

func (h *SettingsHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var cfg model.SendConfig
	if err := DecodeJSON(r, &cfg); err != nil {
		WriteError(w, err)
		return
	}
	saved, err := h.Service.SaveSendConfig(r.Context(), cfg)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, saved)
}

func (h *SettingsHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := h.Service.GetTemplate(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"subject":      tpl.Subject,
		"body":         tpl.Body,
		"placeholders": service.Placeholders(tpl.Subject + "\n" + tpl.Body),
	})
}

func (h *SettingsHandler) PutTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl model.Template
	if err := DecodeJSON(r, &tpl); err != nil {
		WriteError(w, err)
		return
	}
	if err := h.Service.SaveTemplate(r.Context(), tpl); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, tpl)
}

// GetSchedule returns the rate draft and the derived pacing figures.
func (h *SettingsHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	rate, err := h.Service.GetRate(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, scheduleResponse(rate))
}

func (h *SettingsHandler) PutSchedule(w http.ResponseWriter, r *http.Request) {
	var rate model.RateConfig
	if err := DecodeJSON(r, &rate); err != nil {
		WriteError(w, err)
		return
	}
	if err := h.Service.SaveRate(r.Context(), rate); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, scheduleResponse(rate))
}

func scheduleResponse(rate model.RateConfig) map[string]any {
	return map[string]any{
		"rate":              rate,
		"email_interval_ms": rate.EmailInterval().Milliseconds(),
		"batch_interval_ms": rate.BatchInterval().Milliseconds(),
	}
}
