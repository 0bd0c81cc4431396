// Package httpapi exposes the Agent<->Core sync surface and the
// interactive read/admin surface (§4.3, §4.4, §4.6, §4.8) over
// github.com/go-chi/chi/v5, the same router the rest of the retrieved
// pack reaches for.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/openarchive/archive/internal/application"
	"github.com/openarchive/archive/internal/domain/tenant"
	"github.com/openarchive/archive/internal/ports"
)

// Deps is every application-layer and port dependency the router wires
// into its handlers.
type Deps struct {
	Ingress   *application.IngressService
	Retrieval *application.RetrievalService
	Audit     *application.AuditService
	Holds     *application.HoldService
	Cases     *application.CaseService
	Analytics *application.AnalyticsService
	Retention *application.RetentionService
	Index     ports.SearchIndex
	Resolver  *tenant.Resolver
	APIKey    string
	Log       *zap.Logger
}

// NewRouter builds the full HTTP surface. Sync endpoints and read/admin
// endpoints share the same API-key auth — this deployment has no
// separate admin credential (§1 Non-goals: password/2FA auth).
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(rateLimit(50, 100))
	r.Use(apiKeyAuth(d.APIKey))

	h := &handlers{d: d}

	r.Post("/sync", h.handleSync)
	r.Post("/cas/check", h.handleCASCheck)
	r.Post("/cas/upload", h.handleCASUpload)

	r.Get("/messages", h.handleSearch)
	r.Get("/messages/{id}", h.handleGetMessage)
	r.Get("/messages/{id}/thread", h.handleThread)
	r.Get("/messages/{id}/verify", h.handleVerifyMessage)

	r.Get("/admin/audit-logs/verify", h.handleAuditVerify)
	r.Get("/admin/analytics/{org_id}", h.handleAnalytics)
	r.Post("/admin/retention/sweep", h.handleRetentionSweep)

	r.Route("/admin/holds", func(r chi.Router) {
		r.Post("/", h.handleCreateHold)
		r.Get("/{id}", h.handleGetHold)
		r.Post("/{id}/apply", h.handleApplyHold)
		r.Post("/{id}/release", h.handleReleaseHold)
	})

	r.Route("/admin/cases", func(r chi.Router) {
		r.Get("/", h.handleListCases)
		r.Post("/", h.handleCreateCase)
		r.Get("/{id}", h.handleGetCase)
		r.Post("/{id}/items", h.handleAddCaseItems)
		r.Post("/{id}/export", h.handleExportCase)
	})

	return r
}

type handlers struct {
	d Deps
}

func notFoundJSON(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
}
