// Package coreclient implements the edge agent's half of the Agent<->Core
// HTTP surface (§6): CAS existence checks, CAS uploads, and message sync,
// each authenticated with a static API key header. Wire shapes match
// spec §6's table exactly even though the syncer above calls these one
// item at a time — each call is a one-element batch.
package coreclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client talks to Core's sync endpoints over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New builds a Client against baseURL (e.g. "https://core.internal:8443"),
// authenticating every request with apiKey.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type casCheckRequest struct {
	Hashes []string `json:"hashes"`
}

// CASExists asks Core whether a blob with this hash is already stored,
// letting the agent skip redundant uploads for cross-tenant duplicates.
func (c *Client) CASExists(ctx context.Context, hash string) (bool, error) {
	body, err := json.Marshal(casCheckRequest{Hashes: []string{hash}})
	if err != nil {
		return false, fmt.Errorf("marshal cas check request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/cas/check", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("cas check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("cas check: unexpected status %d", resp.StatusCode)
	}

	var out map[string]bool
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("decode cas check response: %w", err)
	}
	return out[hash], nil
}

type casUploadItem struct {
	Hash    string `json:"hash"`
	BlobB64 string `json:"blob_b64"`
}

type casUploadRequest struct {
	Batch []casUploadItem `json:"batch"`
}

// UploadCAS ships a plaintext blob to Core, which re-encrypts it under
// the master key before persisting (agent-side buffering stays
// plaintext on the assumption the agent host is a trusted boundary).
func (c *Client) UploadCAS(ctx context.Context, hash string, data []byte) error {
	body, err := json.Marshal(casUploadRequest{Batch: []casUploadItem{{
		Hash:    hash,
		BlobB64: base64.StdEncoding.EncodeToString(data),
	}}})
	if err != nil {
		return fmt.Errorf("marshal cas upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/cas/upload", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cas upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("cas upload: unexpected status %d", resp.StatusCode)
	}
	return nil
}

type syncItem struct {
	ID       string          `json:"id"`
	Key      string          `json:"key"`
	Metadata json.RawMessage `json:"metadata"`
	BlobB64  string          `json:"blob_b64"`
}

type syncRequest struct {
	Batch []syncItem `json:"batch"`
}

// SyncMessage ships one buffered message (its symmetric key, ingest
// metadata, and encrypted skeleton) to Core's /sync endpoint as a
// one-element batch.
func (c *Client) SyncMessage(ctx context.Context, id, key string, metadata, blob []byte) error {
	body, err := json.Marshal(syncRequest{Batch: []syncItem{{
		ID:       id,
		Key:      key,
		Metadata: metadata,
		BlobB64:  base64.StdEncoding.EncodeToString(blob),
	}}})
	if err != nil {
		return fmt.Errorf("marshal sync request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sync", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sync message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("sync message: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("X-API-Key", c.apiKey)
}
