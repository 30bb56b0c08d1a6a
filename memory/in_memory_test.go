package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/intelmarket/core"
)

func newTestStore() *Store {
	return NewStore(50, 100, nil, nil)
}

func purchaseMD(listingID string, category core.Category, price float64) core.MemoryMetadata {
	return core.MemoryMetadata{ListingID: listingID, Category: category, Price: price}
}

func TestStore_RecordDerivesSearchText(t *testing.T) {
	s := newTestStore()
	record, err := s.Record(context.Background(), "Agent-1", core.MemoryTypePurchase,
		map[string]any{"title": "Yield Plan"}, purchaseMD("l1", core.CategoryDefiStrategy, 0.5))
	require.NoError(t, err)

	assert.Contains(t, record.SearchText, "purchase")
	assert.Contains(t, record.SearchText, "defi-strategy")
	assert.Contains(t, record.SearchText, "yield plan")
	assert.Contains(t, record.SearchText, "agent-1")
	assert.False(t, record.Timestamp.IsZero())
}

func TestStore_RecordValidation(t *testing.T) {
	s := newTestStore()
	_, err := s.Record(context.Background(), "", core.MemoryTypePurchase, nil, core.MemoryMetadata{})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = s.Record(context.Background(), "agent", core.MemoryType("daydream"), nil, core.MemoryMetadata{})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestStore_RetentionCapEvictsOldest(t *testing.T) {
	s := NewStore(3, 100, nil, nil)
	for i := 0; i < 5; i++ {
		_, err := s.Record(context.Background(), "agent", core.MemoryTypePurchase,
			map[string]any{"n": i}, purchaseMD(fmt.Sprintf("l%d", i), core.CategoryDefiStrategy, 1))
		require.NoError(t, err)
	}
	records := s.Records("agent")
	require.Len(t, records, 3)
	assert.Equal(t, "l2", records[0].Metadata.ListingID)
	assert.Equal(t, "l4", records[2].Metadata.ListingID)

	// Profile aggregation keeps counting across evictions.
	profile := s.Profile("agent")
	assert.Equal(t, 5, profile.TransactionCount)
}

func TestStore_ProfileAggregation(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	_, err := s.Record(ctx, "agent", core.MemoryTypePurchase, nil, purchaseMD("l1", core.CategoryDefiStrategy, 0.5))
	require.NoError(t, err)
	_, err = s.Record(ctx, "agent", core.MemoryTypePurchase, nil, purchaseMD("l2", core.CategoryDefiStrategy, 1.5))
	require.NoError(t, err)
	_, err = s.Record(ctx, "agent", core.MemoryTypeSale, nil, purchaseMD("l3", core.CategoryCodeAudit, 2))
	require.NoError(t, err)
	_, err = s.Record(ctx, "agent", core.MemoryTypeRating, nil,
		core.MemoryMetadata{ListingID: "l1", Category: core.CategoryDefiStrategy, Rating: 4, Effectiveness: 0.8})
	require.NoError(t, err)

	profile := s.Profile("agent")
	assert.Equal(t, 3, profile.TransactionCount)
	assert.InDelta(t, 2.0, profile.TotalSpent, 1e-9)
	assert.InDelta(t, 2.0, profile.TotalEarned, 1e-9)
	assert.Equal(t, 2, profile.CategoryFrequency[core.CategoryDefiStrategy])
	require.Len(t, profile.Effectiveness, 1)
	assert.InDelta(t, 0.8, profile.Effectiveness[0].Effectiveness, 1e-9)
}

func TestStore_SearchFiltersAndOrder(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	_, err := s.Record(ctx, "agent", core.MemoryTypePurchase, map[string]any{"title": "alpha"}, purchaseMD("l1", core.CategoryDefiStrategy, 1))
	require.NoError(t, err)
	_, err = s.Record(ctx, "agent", core.MemoryTypeSale, map[string]any{"title": "beta"}, purchaseMD("l2", core.CategoryCodeAudit, 1))
	require.NoError(t, err)
	_, err = s.Record(ctx, "other", core.MemoryTypePurchase, map[string]any{"title": "gamma"}, purchaseMD("l3", core.CategoryDefiStrategy, 1))
	require.NoError(t, err)

	assert.Len(t, s.Search(Query{AgentKey: "agent"}), 2)
	assert.Len(t, s.Search(Query{Type: core.MemoryTypePurchase}), 2)
	assert.Len(t, s.Search(Query{Category: core.CategoryCodeAudit}), 1)
	assert.Len(t, s.Search(Query{Text: "ALPHA"}), 1)
	assert.Empty(t, s.Search(Query{Text: "delta"}))

	results := s.Search(Query{})
	require.Len(t, results, 3)
	assert.False(t, results[0].Timestamp.Before(results[1].Timestamp), "results must be most recent first")
}

func TestStore_SearchDateRange(t *testing.T) {
	s := newTestStore()
	_, err := s.Record(context.Background(), "agent", core.MemoryTypePurchase, nil, purchaseMD("l1", core.CategoryDefiStrategy, 1))
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	assert.Len(t, s.Search(Query{From: &past, To: &future}), 1)
	assert.Empty(t, s.Search(Query{From: &future}))
	assert.Empty(t, s.Search(Query{To: &past}))
}

func TestStore_SearchCap(t *testing.T) {
	s := NewStore(50, 2, nil, nil)
	for i := 0; i < 5; i++ {
		_, err := s.Record(context.Background(), "agent", core.MemoryTypePurchase, nil, purchaseMD("l1", core.CategoryDefiStrategy, 1))
		require.NoError(t, err)
	}
	assert.Len(t, s.Search(Query{AgentKey: "agent"}), 2)
}

func TestStore_RecommendationsSplit(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	entries := []struct {
		listing       string
		effectiveness float64
	}{
		{"great", 0.9},
		{"good", 0.7},
		{"middling", 0.5},
		{"poor", 0.2},
	}
	for _, e := range entries {
		_, err := s.Record(ctx, "agent", core.MemoryTypeRating, nil,
			core.MemoryMetadata{ListingID: e.listing, Category: core.CategoryDefiStrategy, Effectiveness: e.effectiveness})
		require.NoError(t, err)
	}

	advice, err := s.Recommendations("agent", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"great", "good"}, advice.Recommended)
	assert.ElementsMatch(t, []string{"poor"}, advice.Avoided)
	assert.NotEmpty(t, advice.Rationale)
}

func TestStore_RecommendationsCategoryFilter(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	_, err := s.Record(ctx, "agent", core.MemoryTypeRating, nil,
		core.MemoryMetadata{ListingID: "defi", Category: core.CategoryDefiStrategy, Effectiveness: 0.9})
	require.NoError(t, err)
	_, err = s.Record(ctx, "agent", core.MemoryTypeRating, nil,
		core.MemoryMetadata{ListingID: "audit", Category: core.CategoryCodeAudit, Effectiveness: 0.9})
	require.NoError(t, err)

	advice, err := s.Recommendations("agent", core.CategoryCodeAudit)
	require.NoError(t, err)
	assert.Equal(t, []string{"audit"}, advice.Recommended)
}

func TestStore_RecommendationsUnknownAgent(t *testing.T) {
	s := newTestStore()
	_, err := s.Recommendations("ghost", "")
	assert.ErrorIs(t, err, core.ErrAgentNotFound)
}

func TestStore_Patterns(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := s.Record(ctx, "agent", core.MemoryTypePurchase, nil, purchaseMD("l1", core.CategoryDefiStrategy, 2))
		require.NoError(t, err)
	}
	_, err := s.Record(ctx, "agent", core.MemoryTypePurchase, nil, purchaseMD("l2", core.CategoryCodeAudit, 4))
	require.NoError(t, err)
	for _, eff := range []float64{0.9, 0.8, 0.2} {
		_, err := s.Record(ctx, "agent", core.MemoryTypeRating, nil,
			core.MemoryMetadata{ListingID: "l1", Category: core.CategoryDefiStrategy, Effectiveness: eff})
		require.NoError(t, err)
	}

	patterns, err := s.Patterns("agent")
	require.NoError(t, err)
	require.NotEmpty(t, patterns.TopCategories)
	assert.Equal(t, core.CategoryDefiStrategy, patterns.TopCategories[0])
	assert.InDelta(t, 2.5, patterns.AverageSpend, 1e-9) // 10 spent over 4 transactions
	assert.InDelta(t, 2.0/3.0, patterns.SuccessRate, 1e-9)
	assert.NotEmpty(t, patterns.Insights)
}

func TestStore_ProfileForUnknownAgentIsEmpty(t *testing.T) {
	s := newTestStore()
	profile := s.Profile("ghost")
	assert.Equal(t, "ghost", profile.AgentKey)
	assert.Zero(t, profile.TransactionCount)
}
