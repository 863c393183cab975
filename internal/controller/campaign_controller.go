// internal/controller/campaign_controller.go
package controller

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/bulkmail/internal/contacts"
	"github.com/unclebandit/bulkmail/internal/handler"
	"github.com/unclebandit/bulkmail/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
}

// CreateCampaign starts a new campaign from the stored drafts, overridden by
// any fields present in the body.
func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body service.StartCampaignRequest
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, err)
		return
	}

	details, err := c.CampaignService.StartCampaign(r.Context(), body)
	if err != nil {
		handler.WriteError(w, err)
		return
	}
	handler.WriteJSON(w, http.StatusAccepted, details)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	campaigns, pagination, err := c.CampaignService.ListCampaigns(page, pageSize)
	if err != nil {
		handler.WriteError(w, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination,
	})
}

func (c *CampaignController) GetCampaignDetails(w http.ResponseWriter, r *http.Request) {
	details, err := c.CampaignService.GetCampaign(chi.URLParam(r, "id"))
	if err != nil {
		handler.WriteError(w, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, details)
}

// SendCampaign starts the campaign again. It returns the current state
// unchanged while the campaign is running.
func (c *CampaignController) SendCampaign(w http.ResponseWriter, r *http.Request) {
	details, err := c.CampaignService.SendCampaign(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handler.WriteError(w, err)
		return
	}
	handler.WriteJSON(w, http.StatusAccepted, details)
}

func (c *CampaignController) CancelCampaign(w http.ResponseWriter, r *http.Request) {
	details, cancelled, err := c.CampaignService.CancelCampaign(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handler.WriteError(w, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"cancelled": cancelled,
		"campaign":  details,
	})
}

// ExportOutcomes downloads the send outcomes as csv or xlsx (the default).
func (c *CampaignController) ExportOutcomes(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = contacts.FormatXLSX
	}

	var buf bytes.Buffer
	if err := c.CampaignService.ExportOutcomes(id, format, &buf); err != nil {
		handler.WriteError(w, err)
		return
	}

	filename := fmt.Sprintf("sent_emails_%s.%s", time.Now().Format("2006-01-02"), format)
	w.Header().Set("Content-Type", contacts.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(buf.Bytes())
}
