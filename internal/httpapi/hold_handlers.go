package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openarchive/archive/internal/domain"
)

type createHoldRequest struct {
	OrgID    int64                 `json:"org_id"`
	Name     string                `json:"name"`
	Reason   string                `json:"reason"`
	Criteria domain.FilterCriteria `json:"filter_criteria"`
}

// handleCreateHold implements POST /admin/holds (C9): persists the hold
// and, if criteria is non-empty, auto-populates its item set.
func (h *handlers) handleCreateHold(w http.ResponseWriter, r *http.Request) {
	var req createHoldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	hold, err := h.d.Holds.CreateHold(r.Context(), req.OrgID, req.Name, req.Reason, req.Criteria)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, hold)
}

type holdItemsResponse struct {
	Hold  domain.LegalHold `json:"hold"`
	Items []domain.Message `json:"items"`
}

// handleGetHold implements GET /admin/holds/{id}?org_id=.
func (h *handlers) handleGetHold(w http.ResponseWriter, r *http.Request) {
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

	hold, items, err := h.d.Holds.GetHold(r.Context(), orgID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, holdItemsResponse{Hold: hold, Items: items})
}

type applyHoldRequest struct {
	OrgID      int64       `json:"org_id"`
	MessageIDs []uuid.UUID `json:"message_ids"`
}

// handleApplyHold implements POST /admin/holds/{id}/apply: adds
// explicit message ids to a hold's item set.
func (h *handlers) handleApplyHold(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req applyHoldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	if err := h.d.Holds.Apply(r.Context(), req.OrgID, id, req.MessageIDs); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}

type releaseHoldRequest struct {
	OrgID int64 `json:"org_id"`
}

// handleReleaseHold implements POST /admin/holds/{id}/release.
func (h *handlers) handleReleaseHold(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req releaseHoldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	if err := h.d.Holds.Release(r.Context(), req.OrgID, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "released"})
}
