package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openarchive/archive/internal/domain"
)

type fakeOrgLister struct {
	orgs  []domain.Organization
	calls int
}

func (f *fakeOrgLister) ListOrganizations(ctx context.Context) ([]domain.Organization, error) {
	f.calls++
	return f.orgs, nil
}

func TestResolver_Resolve_MatchesOwningOrg(t *testing.T) {
	lister := &fakeOrgLister{orgs: []domain.Organization{
		{ID: 1, IsDefault: true},
		{ID: 2, Domains: []string{"acme.com"}},
	}}
	r := NewResolver(lister, 1, time.Minute)

	ids, err := r.Resolve(context.Background(), []string{"acme.com"})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids)
}

func TestResolver_Resolve_FallsBackToDefaultOnNoMatch(t *testing.T) {
	lister := &fakeOrgLister{orgs: []domain.Organization{
		{ID: 1, IsDefault: true},
		{ID: 2, Domains: []string{"acme.com"}},
	}}
	r := NewResolver(lister, 1, time.Minute)

	ids, err := r.Resolve(context.Background(), []string{"unknown.example"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
}

func TestResolver_Resolve_CachesSnapshotWithinTTL(t *testing.T) {
	lister := &fakeOrgLister{orgs: []domain.Organization{{ID: 1, IsDefault: true}}}
	r := NewResolver(lister, 1, time.Minute)

	_, err := r.Resolve(context.Background(), []string{"x.com"})
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), []string{"y.com"})
	require.NoError(t, err)

	assert.Equal(t, 1, lister.calls)
}

func TestResolver_Invalidate_ForcesRefreshOnNextResolve(t *testing.T) {
	lister := &fakeOrgLister{orgs: []domain.Organization{{ID: 1, IsDefault: true}}}
	r := NewResolver(lister, 1, time.Minute)

	_, err := r.Resolve(context.Background(), []string{"x.com"})
	require.NoError(t, err)
	r.Invalidate()
	_, err = r.Resolve(context.Background(), []string{"x.com"})
	require.NoError(t, err)

	assert.Equal(t, 2, lister.calls)
}

func TestResolver_ExpandDomains_AddsSiblingDomainsOfOwningOrg(t *testing.T) {
	lister := &fakeOrgLister{orgs: []domain.Organization{
		{ID: 1, IsDefault: true},
		{ID: 2, Domains: []string{"acme.com", "acme.org"}},
	}}
	r := NewResolver(lister, 1, time.Minute)

	expanded, err := r.ExpandDomains(context.Background(), []string{"acme.com"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"acme.com", "acme.org"}, expanded)
}

func TestResolver_ExpandDomains_PassesThroughUnownedDomains(t *testing.T) {
	lister := &fakeOrgLister{orgs: []domain.Organization{
		{ID: 1, IsDefault: true},
		{ID: 2, Domains: []string{"acme.com"}},
	}}
	r := NewResolver(lister, 1, time.Minute)

	expanded, err := r.ExpandDomains(context.Background(), []string{"unaffiliated.example"})
	require.NoError(t, err)
	assert.Equal(t, []string{"unaffiliated.example"}, expanded)
}

func TestResolver_ExpandDomains_DeduplicatesAcrossRequestedDomains(t *testing.T) {
	lister := &fakeOrgLister{orgs: []domain.Organization{
		{ID: 1, IsDefault: true},
		{ID: 2, Domains: []string{"acme.com", "acme.org"}},
	}}
	r := NewResolver(lister, 1, time.Minute)

	expanded, err := r.ExpandDomains(context.Background(), []string{"acme.com", "acme.org"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"acme.com", "acme.org"}, expanded)
}

func TestResolver_Resolve_MatchesMultipleOwningOrgs(t *testing.T) {
	lister := &fakeOrgLister{orgs: []domain.Organization{
		{ID: 1, IsDefault: true},
		{ID: 2, Domains: []string{"acme.com"}},
		{ID: 3, Domains: []string{"beta.com"}},
	}}
	r := NewResolver(lister, 1, time.Minute)

	ids, err := r.Resolve(context.Background(), []string{"acme.com", "beta.com"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{2, 3}, ids)
}
