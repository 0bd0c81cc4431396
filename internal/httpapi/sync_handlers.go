package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/openarchive/archive/internal/application"
)

type syncItemWire struct {
	ID       string          `json:"id"`
	Key      string          `json:"key"`
	Metadata json.RawMessage `json:"metadata"`
	BlobB64  string          `json:"blob_b64"`
}

type syncRequest struct {
	Batch []syncItemWire `json:"batch"`
}

type syncResponse struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

// handleSync implements POST /sync (§4.3, §6): decode, decrypt nothing
// (the blob is already ciphertext), hand each item to the ingress
// pipeline, and report how many of the batch were indexed.
func (h *handlers) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	items := make([]application.SyncItem, 0, len(req.Batch))
	for _, it := range req.Batch {
		blob, err := base64.StdEncoding.DecodeString(it.BlobB64)
		if err != nil {
			continue
		}
		items = append(items, application.SyncItem{
			ID:       it.ID,
			Key:      it.Key,
			Metadata: it.Metadata,
			Blob:     blob,
		})
	}

	processed, err := h.d.Ingress.SyncBatch(r.Context(), items)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, syncResponse{Processed: processed, Total: len(req.Batch)})
}

type casCheckRequest struct {
	Hashes []string `json:"hashes"`
}

// handleCASCheck implements POST /cas/check: {hashes} -> {hex: bool}.
func (h *handlers) handleCASCheck(w http.ResponseWriter, r *http.Request) {
	var req casCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	out := make(map[string]bool, len(req.Hashes))
	for _, hash := range req.Hashes {
		exists, err := h.d.Ingress.CASExists(r.Context(), hash)
		if err != nil {
			writeError(w, err)
			return
		}
		out[hash] = exists
	}
	writeJSON(w, http.StatusOK, out)
}

type casUploadItem struct {
	Hash    string `json:"hash"`
	BlobB64 string `json:"blob_b64"`
}

type casUploadRequest struct {
	Batch []casUploadItem `json:"batch"`
}

// handleCASUpload implements POST /cas/upload: idempotent put per item
// (§4.1's "CAS endpoints are stateless; upload uses put").
func (h *handlers) handleCASUpload(w http.ResponseWriter, r *http.Request) {
	var req casUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	for _, it := range req.Batch {
		data, err := base64.StdEncoding.DecodeString(it.BlobB64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid blob_b64 for " + it.Hash})
			return
		}
		if err := h.d.Ingress.UploadCAS(r.Context(), it.Hash, data); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"stored": len(req.Batch)})
}
