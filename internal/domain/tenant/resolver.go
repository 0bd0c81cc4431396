// Package tenant resolves a message's involved domains to the set of
// organizations that own them (§4.5).
package tenant

import (
	"context"
	"sync"
	"time"

	"github.com/openarchive/archive/internal/domain"
)

// OrgLister is the subset of the relational store the resolver needs:
// every organization, for domain-ownership lookups.
type OrgLister interface {
	ListOrganizations(ctx context.Context) ([]domain.Organization, error)
}

// Resolver maps a message's involved domains to owning organization ids,
// falling back to a configured default org when no domain matches. It
// caches the org→domains view with a short TTL behind a single
// read-write lock, as the spec's shared-state section prescribes: the
// cache is read-mostly and small (one entry per org, refreshed
// wholesale).
type Resolver struct {
	store     OrgLister
	ttl       time.Duration
	defaultID int64

	mu      sync.RWMutex
	orgs    []domain.Organization
	expires time.Time
}

// NewResolver builds a Resolver. defaultOrgID is used when a message's
// involved domains match no organization.
func NewResolver(store OrgLister, defaultOrgID int64, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Resolver{store: store, ttl: ttl, defaultID: defaultOrgID}
}

func (r *Resolver) snapshot(ctx context.Context) ([]domain.Organization, error) {
	r.mu.RLock()
	if time.Now().Before(r.expires) {
		orgs := r.orgs
		r.mu.RUnlock()
		return orgs, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	// Re-check under the write lock: another goroutine may have already
	// refreshed while we waited.
	if time.Now().Before(r.expires) {
		return r.orgs, nil
	}
	orgs, err := r.store.ListOrganizations(ctx)
	if err != nil {
		return nil, err
	}
	r.orgs = orgs
	r.expires = time.Now().Add(r.ttl)
	return orgs, nil
}

// Resolve returns every organization id whose domain set intersects
// domains. If none match, it returns the default org id. The result is
// always non-empty (barring a misconfigured default).
func (r *Resolver) Resolve(ctx context.Context, domains []string) ([]int64, error) {
	orgs, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var matched []int64
	for _, org := range orgs {
		for _, d := range domains {
			if org.OwnsDomain(d) {
				matched = append(matched, org.ID)
				break
			}
		}
	}
	if len(matched) == 0 {
		return []int64{r.defaultID}, nil
	}
	return matched, nil
}

// ExpandDomains implements the domain-aliasing rule §4.6 describes: for
// each requested domain owned by some organization, every domain of
// that organization is added to the result. Domains owned by no
// organization pass through unchanged. The result has no duplicates.
func (r *Resolver) ExpandDomains(ctx context.Context, domains []string) ([]string, error) {
	if len(domains) == 0 {
		return nil, nil
	}
	orgs, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(domains))
	expanded := make([]string, 0, len(domains))
	add := func(d string) {
		if !seen[d] {
			seen[d] = true
			expanded = append(expanded, d)
		}
	}

	for _, d := range domains {
		matched := false
		for _, org := range orgs {
			if org.OwnsDomain(d) {
				matched = true
				for _, owned := range org.Domains {
					add(owned)
				}
			}
		}
		if !matched {
			add(d)
		}
	}
	return expanded, nil
}

// Invalidate drops the cached snapshot immediately, for callers that
// just changed organization domain ownership administratively.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expires = time.Time{}
}
