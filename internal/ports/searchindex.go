package ports

import (
	"context"

	"github.com/openarchive/archive/internal/domain"
)

// SearchFilter is the structured query C6/C7/C9/C10 compose against the
// index (§4.6). Zero-valued fields are omitted from the filter.
type SearchFilter struct {
	OrgID            int64 // mandatory — every query is tenant-scoped
	Domains          []string
	SenderDomain     string
	RecipientDomains []string
	HasAttachments   *bool
	IsSpam           *bool
	Query            string // free-text "q"
	TimestampFrom    int64
	TimestampTo      int64 // 0 means unbounded

	// Exact-match extras used by the retention worker and legal-hold
	// auto-population, which query by a single domain/criteria rather
	// than the read-path filter shape above.
	ExactDomain string
	ExactFrom   string
	ExactTo     string
}

// SearchOptions controls pagination and sort order.
type SearchOptions struct {
	Limit  int
	Offset int
	// SortDesc true sorts by date_timestamp descending; false (the zero
	// value) sorts ascending.
	SortDesc bool
}

// SearchResult is one page of hits plus the total match count.
type SearchResult struct {
	Hits  []domain.Message
	Total int
}

// SearchIndex is the inverted-index contract C2 implements: document
// upsert, filter+sort search, fetch by id.
type SearchIndex interface {
	Upsert(ctx context.Context, msg domain.Message) error
	Get(ctx context.Context, id string) (domain.Message, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, filter SearchFilter, opts SearchOptions) (SearchResult, error)
	Stats(ctx context.Context, orgID int64) (totalMessages int, err error)
}
