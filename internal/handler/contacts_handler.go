package handler

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/bulkmail/internal/contacts"
	"github.com/unclebandit/bulkmail/internal/service"
)

const maxUploadSize = 10 << 20

// ContactsHandler manages the imported contact list and template previews.
type ContactsHandler struct {
	Service *service.CampaignService
}

func NewContactsHandler(svc *service.CampaignService) *ContactsHandler {
	return &ContactsHandler{Service: svc}
}

// Import reads a multipart "file" field holding an .xlsx or .csv sheet.
func (h *ContactsHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, errors.Join(ErrInvalidBody, err))
		return
	}
	defer file.Close()

	res, err := h.Service.ImportContacts(header.Filename, file)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"imported": len(res.Contacts),
		"skipped":  res.Skipped,
		"contacts": res.Contacts,
	})
}

func (h *ContactsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.Contacts()
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"data":  list,
		"total": len(list),
	})
}

func (h *ContactsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		WriteError(w, errors.Join(ErrInvalidBody, errors.New("invalid contact index")))
		return
	}
	if err := h.Service.RemoveContact(index); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Sample downloads an example spreadsheet.
func (h *ContactsHandler) Sample(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := contacts.WriteSample(&buf); err != nil {
		WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", contacts.ContentType(contacts.FormatXLSX))
	w.Header().Set("Content-Disposition", `attachment; filename="contacts_sample.xlsx"`)
	_, _ = w.Write(buf.Bytes())
}

// Preview renders the template for one contact.
func (h *ContactsHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req service.PreviewRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	res, err := h.Service.RenderPreview(r.Context(), req)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}
