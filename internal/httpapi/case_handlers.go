package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openarchive/archive/internal/export"
)

type createCaseRequest struct {
	OrgID       int64  `json:"org_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// handleCreateCase implements POST /admin/cases (cases.py's create_case).
func (h *handlers) handleCreateCase(w http.ResponseWriter, r *http.Request) {
	var req createCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	c, err := h.d.Cases.CreateCase(r.Context(), req.OrgID, req.Name, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// handleListCases implements GET /admin/cases?org_id= (list_cases).
func (h *handlers) handleListCases(w http.ResponseWriter, r *http.Request) {
	orgID, err := orgIDFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	cases, err := h.d.Cases.ListCases(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cases)
}

// handleGetCase implements GET /admin/cases/{id}?org_id= (get_case).
func (h *handlers) handleGetCase(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	orgID, err := orgIDFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	c, items, err := h.d.Cases.GetCase(r.Context(), orgID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"case": c, "items": items})
}

type addCaseItemsRequest struct {
	OrgID      int64       `json:"org_id"`
	MessageIDs []uuid.UUID `json:"message_ids"`
}

// handleAddCaseItems implements POST /admin/cases/{id}/items
// (add_items_to_case).
func (h *handlers) handleAddCaseItems(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req addCaseItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	count, err := h.d.Cases.AddItems(r.Context(), req.OrgID, id, req.MessageIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"added": count})
}

type exportCaseRequest struct {
	OrgID  int64  `json:"org_id"`
	Format string `json:"format"`
	Redact bool   `json:"redact"`
}

// handleExportCase implements POST /admin/cases/{id}/export
// (export_case): assembles the case's items into a ZIP and streams it
// back synchronously — the Python original's comment on avoiding a
// 0-byte race condition applies here too, so there is no background
// job/poll step.
func (h *handlers) handleExportCase(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req exportCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	_, items, err := h.d.Cases.GetCase(r.Context(), req.OrgID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "case has no items to export"})
		return
	}

	format := export.Format(req.Format)
	if format == "" {
		format = export.FormatNative
	}

	var messageIDs []uuid.UUID
	for _, item := range items {
		messageIDs = append(messageIDs, item.MessageID)
	}

	archive, err := export.Assemble(r.Context(), h.d.Retrieval, req.OrgID, messageIDs, format, req.Redact)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=case-%s.zip", id))
	w.Header().Set("Content-Length", strconv.Itoa(len(archive)))
	w.WriteHeader(http.StatusOK)
	w.Write(archive)
}
