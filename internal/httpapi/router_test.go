package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openarchive/archive/internal/application"
	"github.com/openarchive/archive/internal/domain"
	"github.com/openarchive/archive/internal/domain/crypto"
	"github.com/openarchive/archive/internal/domain/detection"
	"github.com/openarchive/archive/internal/domain/tenant"
)

const testAPIKey = "test-api-key"

type testEnv struct {
	blobs  *fakeBlobStore
	index  *fakeSearchIndex
	store  *fakeRelStore
	signer *crypto.Signer
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	blobs := newFakeBlobStore()
	index := newFakeSearchIndex()
	store := newFakeRelStore()
	signer := crypto.NewSigner("test-signing-secret")
	log := zap.NewNop()

	orgs := []domain.Organization{
		{ID: 1, Name: "default", IsDefault: true},
		{ID: 2, Name: "acme", Domains: []string{"acme.com", "acme.org"}},
	}
	resolver := tenant.NewResolver(&fakeOrgLister{orgs: orgs}, 1, 0)
	detector := detection.NewDetector(nil, nil)

	ingress := application.NewIngressService(blobs, index, resolver, detector, signer, log)
	retrieval := application.NewRetrievalService(blobs, index, signer)
	audit := application.NewAuditService(store, log)
	holds := application.NewHoldService(store, index)
	cases := application.NewCaseService(store)
	analytics := application.NewAnalyticsService(index, store)
	retention := application.NewRetentionService(store, index, blobs, holds, log)

	router := NewRouter(Deps{
		Ingress:   ingress,
		Retrieval: retrieval,
		Audit:     audit,
		Holds:     holds,
		Cases:     cases,
		Analytics: analytics,
		Retention: retention,
		Index:     index,
		Resolver:  resolver,
		APIKey:    testAPIKey,
		Log:       log,
	})

	return &testEnv{blobs: blobs, index: index, store: store, signer: signer, router: router}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-API-Key", testAPIKey)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seedMessage(t *testing.T, orgID int64, subject, body string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	raw := []byte("Subject: " + subject + "\r\n\r\n" + body)
	ciphertext, err := crypto.Encrypt(key, raw)
	require.NoError(t, err)

	msg := domain.Message{
		ID:        id,
		Key:       key,
		OrgIDs:    []int64{orgID},
		Subject:   subject,
		From:      "alice@acme.com",
		To:        "bob@acme.com",
		SHA256:    crypto.Digest(ciphertext),
		Signature: e.signer.Sign(ciphertext),
	}
	require.NoError(t, e.blobs.Put(context.Background(), id.String()+".enc", ciphertext))
	require.NoError(t, e.index.Upsert(context.Background(), msg))
	return id
}

func TestRouter_RejectsRequestsWithWrongAPIKey(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/messages?org_id=1", nil)
	req.Header.Set("X-API-Key", "wrong-key")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleSync_IngestsBatchAndReportsProcessedCount(t *testing.T) {
	env := newTestEnv(t)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	plaintext := []byte("Subject: hi there\r\n\r\nbody text")
	ciphertext, err := crypto.Encrypt(key, plaintext)
	require.NoError(t, err)

	id := uuid.New()
	meta := map[string]string{"from": "alice@acme.com", "to": "bob@acme.com", "subject": "hi there"}
	metaJSON, err := json.Marshal(meta)
	require.NoError(t, err)

	body := map[string]any{
		"batch": []map[string]any{{
			"id":       id.String(),
			"key":      key,
			"metadata": json.RawMessage(metaJSON),
			"blob_b64": base64.StdEncoding.EncodeToString(ciphertext),
		}},
	}

	rec := env.do(t, http.MethodPost, "/sync", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp syncResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Processed)
	assert.Equal(t, 1, resp.Total)
}

func TestHandleCASCheckAndUpload_RoundTrip(t *testing.T) {
	env := newTestEnv(t)

	checkRec := env.do(t, http.MethodPost, "/cas/check", map[string]any{"hashes": []string{"deadbeef"}})
	require.Equal(t, http.StatusOK, checkRec.Code)
	var checkResp map[string]bool
	require.NoError(t, json.Unmarshal(checkRec.Body.Bytes(), &checkResp))
	assert.False(t, checkResp["deadbeef"])

	uploadRec := env.do(t, http.MethodPost, "/cas/upload", map[string]any{
		"batch": []map[string]string{{"hash": "deadbeef", "blob_b64": base64.StdEncoding.EncodeToString([]byte("data"))}},
	})
	require.Equal(t, http.StatusOK, uploadRec.Code)
}

func TestHandleSearch_AnnotatesHoldStatus(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedMessage(t, 1, "quarterly report", "body")

	rec := env.do(t, http.MethodGet, "/messages?org_id=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, id, resp.Hits[0].ID)
	assert.False(t, resp.Hits[0].IsOnHold)
}

func TestHandleSearch_ExpandsRequestedDomainToOrgAliasSet(t *testing.T) {
	env := newTestEnv(t)

	// acme.com and acme.org are both owned by org 2 in newTestEnv's
	// fakeOrgLister; requesting the first must also match messages only
	// tagged with the second (domain-aliasing, §4.6).
	aliased := uuid.New()
	require.NoError(t, env.index.Upsert(context.Background(), domain.Message{
		ID: aliased, OrgIDs: []int64{2}, Domains: []string{"acme.org"}, Subject: "aliased",
	}))
	unrelated := uuid.New()
	require.NoError(t, env.index.Upsert(context.Background(), domain.Message{
		ID: unrelated, OrgIDs: []int64{2}, Domains: []string{"other.com"}, Subject: "unrelated",
	}))

	rec := env.do(t, http.MethodGet, "/messages?org_id=2&domains=acme.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, aliased, resp.Hits[0].ID)
}

func TestHandleSearch_FiltersByTimestampRange(t *testing.T) {
	env := newTestEnv(t)

	early := uuid.New()
	require.NoError(t, env.index.Upsert(context.Background(), domain.Message{
		ID: early, OrgIDs: []int64{1}, Subject: "early", DateTimestamp: 100,
	}))
	late := uuid.New()
	require.NoError(t, env.index.Upsert(context.Background(), domain.Message{
		ID: late, OrgIDs: []int64{1}, Subject: "late", DateTimestamp: 900,
	}))

	rec := env.do(t, http.MethodGet, "/messages?org_id=1&date_from=500", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, late, resp.Hits[0].ID)
}

func TestHandleGetMessage_DecryptsAndReturnsBody(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedMessage(t, 1, "hello", "the body text")

	rec := env.do(t, http.MethodGet, "/messages/"+id.String()+"?org_id=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp retrievedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "the body text", resp.TextBody)
}

func TestHandleGetMessage_WrongOrgIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedMessage(t, 1, "hello", "secret body")

	rec := env.do(t, http.MethodGet, "/messages/"+id.String()+"?org_id=2", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleVerifyMessage_ReportsValid(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedMessage(t, 1, "hello", "body")

	rec := env.do(t, http.MethodGet, "/messages/"+id.String()+"/verify?org_id=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "VALID", resp["status"])
}

func TestHandleAuditVerify_OKOnEmptyChain(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/admin/audit-logs/verify?org_id=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "OK")
}

func TestHoldLifecycle_CreateGetApplyRelease(t *testing.T) {
	env := newTestEnv(t)
	msgID := env.seedMessage(t, 1, "contract renewal", "body")

	createRec := env.do(t, http.MethodPost, "/admin/holds", map[string]any{
		"org_id": 1, "name": "litigation-a", "reason": "dispute",
	})
	require.Equal(t, http.StatusCreated, createRec.Code)

	var hold domain.LegalHold
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &hold))

	applyRec := env.do(t, http.MethodPost, "/admin/holds/"+hold.PublicID.String()+"/apply", map[string]any{
		"org_id": 1, "message_ids": []uuid.UUID{msgID},
	})
	require.Equal(t, http.StatusOK, applyRec.Code)

	getRec := env.do(t, http.MethodGet, "/admin/holds/"+hold.PublicID.String()+"?org_id=1", nil)
	require.Equal(t, http.StatusOK, getRec.Code)
	var getResp holdItemsResponse
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &getResp))
	assert.Len(t, getResp.Items, 1)

	releaseRec := env.do(t, http.MethodPost, "/admin/holds/"+hold.PublicID.String()+"/release", map[string]any{"org_id": 1})
	require.Equal(t, http.StatusOK, releaseRec.Code)
}

func TestCaseLifecycle_CreateListGetAddItemsExport(t *testing.T) {
	env := newTestEnv(t)
	msgID := env.seedMessage(t, 1, "exhibit one", "body text")

	createRec := env.do(t, http.MethodPost, "/admin/cases", map[string]any{
		"org_id": 1, "name": "case-1", "description": "investigation",
	})
	require.Equal(t, http.StatusCreated, createRec.Code)
	var c domain.Case
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &c))

	listRec := env.do(t, http.MethodGet, "/admin/cases?org_id=1", nil)
	require.Equal(t, http.StatusOK, listRec.Code)

	addRec := env.do(t, http.MethodPost, "/admin/cases/"+c.PublicID.String()+"/items", map[string]any{
		"org_id": 1, "message_ids": []uuid.UUID{msgID},
	})
	require.Equal(t, http.StatusOK, addRec.Code)

	getRec := env.do(t, http.MethodGet, "/admin/cases/"+c.PublicID.String()+"?org_id=1", nil)
	require.Equal(t, http.StatusOK, getRec.Code)

	exportRec := env.do(t, http.MethodPost, "/admin/cases/"+c.PublicID.String()+"/export", map[string]any{
		"org_id": 1, "format": "native",
	})
	require.Equal(t, http.StatusOK, exportRec.Code)
	assert.Equal(t, "application/zip", exportRec.Header().Get("Content-Type"))
	assert.NotEmpty(t, exportRec.Body.Bytes())
}

func TestHandleRetentionSweep_ReturnsReport(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/admin/retention/sweep", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleAnalytics_ReturnsSummary(t *testing.T) {
	env := newTestEnv(t)
	env.seedMessage(t, 1, "hello", "body")

	rec := env.do(t, http.MethodGet, "/admin/analytics/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
