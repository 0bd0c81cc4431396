package application

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openarchive/archive/internal/domain"
)

func TestAnalyticsService_Summary_ZeroMessagesHasZeroRatio(t *testing.T) {
	index := newFakeSearchIndex()
	store := newFakeRelStore()
	analytics := NewAnalyticsService(index, store)

	summary, err := analytics.Summary(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalMessages)
	assert.Zero(t, summary.HoldRatio)
}

func TestAnalyticsService_Summary_ComputesHoldRatioAndStorageEstimate(t *testing.T) {
	index := newFakeSearchIndex()
	store := newFakeRelStore()
	analytics := NewAnalyticsService(index, store)

	for i := 0; i < 4; i++ {
		require.NoError(t, index.Upsert(context.Background(), domain.Message{ID: uuid.New(), OrgIDs: []int64{1}}))
	}

	hold, err := store.CreateHold(context.Background(), domain.LegalHold{PublicID: uuid.New(), OrgID: 1, Active: true})
	require.NoError(t, err)

	held := uuid.New()
	require.NoError(t, store.AddHoldItems(context.Background(), hold.ID, []uuid.UUID{held}))

	summary, err := analytics.Summary(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.TotalMessages)
	assert.Equal(t, 1, summary.ActiveHolds)
	assert.Equal(t, 1, summary.HeldItems)
	assert.Equal(t, 0.25, summary.HoldRatio)
	assert.Equal(t, int64(4*averageMessageBytes), summary.StorageVolumeBytes)
}
