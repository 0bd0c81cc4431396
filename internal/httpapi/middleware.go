package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/openarchive/archive/internal/apperr"
)

// apiKeyAuth rejects any request whose X-API-Key header does not match
// the configured Core API key (§6 Environment: CORE_API_KEY).
func apiKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-Key") != apiKey {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimit caps all requests at a fixed rate with a single limiter
// shared by every client; requests are not bucketed per API key.
// DESIGN.md covers why golang.org/x/time/rate was pulled in.
func rateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON encodes v as the response body, logging nothing on failure
// since the header is already committed by the time Encode can fail.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps an apperr.Kind to its HTTP status code — the one
// place in this codebase an error kind becomes a status (§7).
func writeError(w http.ResponseWriter, err error) {
	var status int
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae):
		switch ae.Kind {
		case apperr.KindNotFound:
			status = http.StatusNotFound
		case apperr.KindTenantDenied:
			status = http.StatusForbidden
		case apperr.KindValidation:
			status = http.StatusBadRequest
		case apperr.KindIntegrityViolation:
			status = http.StatusConflict
		case apperr.KindDegradedRead:
			status = http.StatusPartialContent
		case apperr.KindTransport:
			status = http.StatusBadGateway
		default:
			status = http.StatusInternalServerError
		}
	default:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// orgIDFromQuery parses the mandatory org_id query parameter every read
// endpoint scopes against (§4.4 tenant isolation).
func orgIDFromQuery(r *http.Request) (int64, error) {
	return parseInt64(r.URL.Query().Get("org_id"))
}
