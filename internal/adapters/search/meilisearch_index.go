// Package search implements the index port (C2) against Meilisearch,
// mirroring original_source/core/search.py's attribute configuration
// and filter-composition style.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/meilisearch/meilisearch-go"

	"github.com/openarchive/archive/internal/domain"
	"github.com/openarchive/archive/internal/ports"
)

// decodeHit re-marshals a raw Meilisearch hit (map[string]interface{})
// into a domain.Message; the client library hands back untyped JSON per
// document.
func decodeHit(raw any, out *domain.Message) error {
	b, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// filterableAttributes and sortableAttributes mirror the filterable and
// sortable attribute lists named in §6 verbatim.
var filterableAttributes = []string{
	"id", "from", "to", "date", "date_timestamp", "org_id", "domains",
	"has_attachments", "is_spam", "sender_domain", "recipient_domains",
	"message_id", "in_reply_to", "references", "sha256", "signature",
	"envelope_from", "envelope_rcpt", "sender_email", "recipient_emails",
}

var sortableAttributes = []string{"date_timestamp"}

// MeilisearchIndex implements ports.SearchIndex.
type MeilisearchIndex struct {
	client    meilisearch.ServiceManager
	indexName string
}

// NewMeilisearchIndex dials endpoint/apiKey and ensures the index's
// filterable/sortable attributes are configured.
func NewMeilisearchIndex(ctx context.Context, endpoint, apiKey, indexName string) (*MeilisearchIndex, error) {
	client := meilisearch.New(endpoint, meilisearch.WithAPIKey(apiKey))

	idx := client.Index(indexName)
	if _, err := idx.UpdateFilterableAttributes(&filterableAttributes); err != nil {
		return nil, fmt.Errorf("configure filterable attributes: %w", err)
	}
	if _, err := idx.UpdateSortableAttributes(&sortableAttributes); err != nil {
		return nil, fmt.Errorf("configure sortable attributes: %w", err)
	}

	return &MeilisearchIndex{client: client, indexName: indexName}, nil
}

func (m *MeilisearchIndex) index() meilisearch.IndexManager {
	return m.client.Index(m.indexName)
}

func (m *MeilisearchIndex) Upsert(ctx context.Context, msg domain.Message) error {
	_, err := m.index().AddDocuments([]domain.Message{msg}, "id")
	if err != nil {
		return fmt.Errorf("upsert message %s: %w", msg.ID, err)
	}
	return nil
}

func (m *MeilisearchIndex) Get(ctx context.Context, id string) (domain.Message, error) {
	var msg domain.Message
	if err := m.index().GetDocument(id, nil, &msg); err != nil {
		return domain.Message{}, fmt.Errorf("get document %s: %w", id, err)
	}
	return msg, nil
}

func (m *MeilisearchIndex) Delete(ctx context.Context, id string) error {
	if _, err := m.index().DeleteDocument(id); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

// buildFilter composes the AND-of-clauses structured filter §4.6
// describes: org_id mandatory, domain/sender/recipient/boolean/
// timestamp-range clauses added only when set.
func buildFilter(f ports.SearchFilter) string {
	clauses := []string{fmt.Sprintf("org_id = %d", f.OrgID)}

	if len(f.Domains) > 0 {
		clauses = append(clauses, orClause("domains", f.Domains))
	}
	if f.SenderDomain != "" {
		clauses = append(clauses, fmt.Sprintf("sender_domain = %q", f.SenderDomain))
	}
	if len(f.RecipientDomains) > 0 {
		clauses = append(clauses, orClause("recipient_domains", f.RecipientDomains))
	}
	if f.HasAttachments != nil {
		clauses = append(clauses, fmt.Sprintf("has_attachments = %t", *f.HasAttachments))
	}
	if f.IsSpam != nil {
		clauses = append(clauses, fmt.Sprintf("is_spam = %t", *f.IsSpam))
	}
	if f.ExactDomain != "" {
		clauses = append(clauses, fmt.Sprintf("domains = %q", f.ExactDomain))
	}
	if f.ExactFrom != "" {
		clauses = append(clauses, fmt.Sprintf("from = %q", f.ExactFrom))
	}
	if f.ExactTo != "" {
		clauses = append(clauses, fmt.Sprintf("to = %q", f.ExactTo))
	}
	if f.TimestampFrom > 0 {
		clauses = append(clauses, fmt.Sprintf("date_timestamp >= %d", f.TimestampFrom))
	}
	if f.TimestampTo > 0 {
		clauses = append(clauses, fmt.Sprintf("date_timestamp < %d", f.TimestampTo))
	}

	return strings.Join(clauses, " AND ")
}

func orClause(attr string, values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%s = %q", attr, v)
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func (m *MeilisearchIndex) Search(ctx context.Context, filter ports.SearchFilter, opts ports.SearchOptions) (ports.SearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	req := &meilisearch.SearchRequest{
		Filter: buildFilter(filter),
		Limit:  int64(limit),
		Offset: int64(opts.Offset),
	}
	if opts.SortDesc {
		req.Sort = []string{"date_timestamp:desc"}
	} else {
		req.Sort = []string{"date_timestamp:asc"}
	}

	resp, err := m.index().Search(filter.Query, req)
	if err != nil {
		return ports.SearchResult{}, fmt.Errorf("search: %w", err)
	}

	hits := make([]domain.Message, 0, len(resp.Hits))
	for _, raw := range resp.Hits {
		var msg domain.Message
		if err := decodeHit(raw, &msg); err != nil {
			return ports.SearchResult{}, fmt.Errorf("decode hit: %w", err)
		}
		hits = append(hits, msg)
	}

	return ports.SearchResult{Hits: hits, Total: int(resp.EstimatedTotalHits)}, nil
}

func (m *MeilisearchIndex) Stats(ctx context.Context, orgID int64) (int, error) {
	result, err := m.index().Search("", &meilisearch.SearchRequest{
		Filter: "org_id = " + strconv.FormatInt(orgID, 10),
		Limit:  0,
	})
	if err != nil {
		return 0, fmt.Errorf("stats: %w", err)
	}
	return int(result.EstimatedTotalHits), nil
}
