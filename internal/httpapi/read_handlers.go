package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openarchive/archive/internal/domain"
	"github.com/openarchive/archive/internal/ports"
)

type messageHit struct {
	domain.Message
	IsOnHold bool `json:"is_on_hold"`
}

type searchResponse struct {
	Hits  []messageHit `json:"hits"`
	Total int          `json:"total"`
}

// handleSearch implements GET /messages (§4.6): filtered search with an
// is_on_hold annotation computed from the current protection state.
func (h *handlers) handleSearch(w http.ResponseWriter, r *http.Request) {
	orgID, err := orgIDFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	q := r.URL.Query()
	filter := ports.SearchFilter{
		OrgID:            orgID,
		Query:            q.Get("q"),
		SenderDomain:     q.Get("sender_domain"),
		RecipientDomains: splitCSV(q.Get("recipient_domains")),
	}
	if v := q.Get("has_attachments"); v != "" {
		b, _ := strconv.ParseBool(v)
		filter.HasAttachments = &b
	}
	if v := q.Get("is_spam"); v != "" {
		b, _ := strconv.ParseBool(v)
		filter.IsSpam = &b
	}
	if v := q.Get("date_from"); v != "" {
		filter.TimestampFrom, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := q.Get("date_to"); v != "" {
		filter.TimestampTo, _ = strconv.ParseInt(v, 10, 64)
	}

	if domains := splitCSV(q.Get("domains")); len(domains) > 0 {
		filter.Domains = domains
		if h.d.Resolver != nil {
			expanded, err := h.d.Resolver.ExpandDomains(r.Context(), domains)
			if err != nil {
				writeError(w, err)
				return
			}
			filter.Domains = expanded
		}
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	offset, _ := strconv.Atoi(q.Get("offset"))

	result, err := h.d.Index.Search(r.Context(), filter, ports.SearchOptions{
		Limit:    limit,
		Offset:   offset,
		SortDesc: true,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	state, err := h.d.Holds.LoadProtectionState(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	hits := make([]messageHit, 0, len(result.Hits))
	for _, m := range result.Hits {
		hits = append(hits, messageHit{Message: m, IsOnHold: state.IsProtected(m)})
	}

	writeJSON(w, http.StatusOK, searchResponse{Hits: hits, Total: result.Total})
}

// splitCSV splits a comma-separated query value into its trimmed,
// non-empty parts.
func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseMessageID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

type retrievedResponse struct {
	Message     domain.Message `json:"message"`
	TextBody    string         `json:"text_body"`
	HTMLBody    string         `json:"html_body,omitempty"`
	Attachments any            `json:"attachments,omitempty"`
	Warnings    []string       `json:"warnings,omitempty"`
}

// handleGetMessage implements GET /messages/{id} (§4.4).
func (h *handlers) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	id, err := parseMessageID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	orgID, err := orgIDFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	retrieved, err := h.d.Retrieval.Fetch(r.Context(), id, orgID, false)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, retrievedResponse{
		Message:     retrieved.Message,
		TextBody:    retrieved.TextBody,
		HTMLBody:    retrieved.HTMLBody,
		Attachments: retrieved.Attachments,
		Warnings:    retrieved.Warnings,
	})
}

// handleThread implements GET /messages/{id}/thread (§4.6).
func (h *handlers) handleThread(w http.ResponseWriter, r *http.Request) {
	id, err := parseMessageID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	orgID, err := orgIDFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	thread, err := h.d.Retrieval.Thread(r.Context(), id, orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hits": thread})
}

// handleVerifyMessage implements GET /messages/{id}/verify: recomputes
// the HMAC over stored ciphertext and reports VALID/TAMPERED/UNAVAILABLE.
func (h *handlers) handleVerifyMessage(w http.ResponseWriter, r *http.Request) {
	id, err := parseMessageID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	orgID, err := orgIDFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	status, err := h.d.Retrieval.VerifyIntegrity(r.Context(), id, orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

// handleAuditVerify implements GET /admin/audit-logs/verify?org_id=
// (§4.8): on-demand re-run of the scheduled chain check.
func (h *handlers) handleAuditVerify(w http.ResponseWriter, r *http.Request) {
	orgID, err := orgIDFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	result, err := h.d.Audit.Verify(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleRetentionSweep implements POST /admin/retention/sweep: an
// operator-triggered run of the same sweep the 24h background loop
// performs, for archivectl's "retention sweep" command.
func (h *handlers) handleRetentionSweep(w http.ResponseWriter, r *http.Request) {
	report, err := h.d.Retention.RunSweep(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleAnalytics implements GET /admin/analytics/{org_id}, the
// supplemented analytics summary.
func (h *handlers) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	orgID, err := strconv.ParseInt(chi.URLParam(r, "org_id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid org_id"})
		return
	}

	summary, err := h.d.Analytics.Summary(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
