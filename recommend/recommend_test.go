package recommend

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/intelmarket/core"
)

type fakeCatalog struct {
	listings []core.IntelligenceListing
}

func (f *fakeCatalog) All() []core.IntelligenceListing {
	out := make([]core.IntelligenceListing, len(f.listings))
	copy(out, f.listings)
	return out
}

func (f *fakeCatalog) Get(id string) (*core.IntelligenceListing, error) {
	for i := range f.listings {
		if f.listings[i].ID == id {
			l := f.listings[i]
			return &l, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", core.ErrIntelligenceNotFound, id)
}

type fakeRegistry struct {
	agents []core.AgentProfile
}

func (f *fakeRegistry) Get(key string) (*core.AgentProfile, error) {
	for i := range f.agents {
		if f.agents[i].Key == key {
			a := f.agents[i]
			return &a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", core.ErrAgentNotFound, key)
}

func (f *fakeRegistry) All() []core.AgentProfile {
	out := make([]core.AgentProfile, len(f.agents))
	copy(out, f.agents)
	return out
}

type fakeLedger struct {
	txs []core.Transaction
}

func (f *fakeLedger) ForAgent(key string) []core.Transaction {
	var out []core.Transaction
	for _, tx := range f.txs {
		if tx.BuyerKey == key || tx.SellerKey == key {
			out = append(out, tx)
		}
	}
	return out
}

func listing(id, seller string, category core.Category, quality, rating float64, sales int) core.IntelligenceListing {
	return core.IntelligenceListing{
		ID:           id,
		SellerKey:    seller,
		Title:        "listing " + id,
		Category:     category,
		Price:        1,
		QualityScore: quality,
		Rating:       rating,
		SalesCount:   sales,
		CreatedAt:    time.Now().UTC(),
	}
}

func newTestEngine(cat *fakeCatalog, reg *fakeRegistry, led *fakeLedger) *Engine {
	return NewEngine(cat, reg, led, DefaultWeights(), 5, nil)
}

func TestEngine_RecommendUnknownAgent(t *testing.T) {
	e := newTestEngine(&fakeCatalog{}, &fakeRegistry{}, &fakeLedger{})
	_, err := e.Recommend("ghost", Options{})
	assert.ErrorIs(t, err, core.ErrAgentNotFound)
}

func TestEngine_PerfectMatchScoresOne(t *testing.T) {
	cat := &fakeCatalog{listings: []core.IntelligenceListing{
		listing("l1", "seller", core.CategoryDefiStrategy, 100, 5, 10),
	}}
	reg := &fakeRegistry{agents: []core.AgentProfile{
		{Key: "buyer", Name: "Buyer", Specializations: []string{"defi"}},
	}}
	led := &fakeLedger{txs: []core.Transaction{
		{ID: "t1", BuyerKey: "buyer", SellerKey: "seller", ListingID: "l1", Price: 1},
	}}
	e := newTestEngine(cat, reg, led)

	recs, err := e.Recommend("buyer", Options{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.InDelta(t, 1.0, recs[0].Score, 1e-9)
	assert.True(t, recs[0].IsPersonalized)
	assert.Len(t, recs[0].Reasons, 4)
}

func TestEngine_NoSignalsScoresZero(t *testing.T) {
	cat := &fakeCatalog{listings: []core.IntelligenceListing{
		listing("l1", "seller", core.CategoryDefiStrategy, 0, 0, 0),
	}}
	reg := &fakeRegistry{agents: []core.AgentProfile{{Key: "buyer", Name: "Buyer"}}}
	e := newTestEngine(cat, reg, &fakeLedger{})

	recs, err := e.Recommend("buyer", Options{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Zero(t, recs[0].Score)
	assert.False(t, recs[0].IsPersonalized)
	assert.Empty(t, recs[0].Reasons)
}

func TestEngine_PartialSpecializationMatch(t *testing.T) {
	got := specializationMatch([]string{"defi", "nft"}, core.CategoryDefiStrategy)
	assert.InDelta(t, 0.5, got, 1e-9)

	assert.Zero(t, specializationMatch(nil, core.CategoryDefiStrategy))
	assert.InDelta(t, 1.0, specializationMatch([]string{"Yield Farming"}, core.CategoryDefiStrategy), 1e-9)
}

func TestEngine_TrendingThreshold(t *testing.T) {
	reg := &fakeRegistry{agents: []core.AgentProfile{{Key: "buyer", Name: "Buyer"}}}

	score := func(sales int) float64 {
		cat := &fakeCatalog{listings: []core.IntelligenceListing{
			listing("l1", "seller", core.CategoryDefiStrategy, 0, 0, sales),
		}}
		e := newTestEngine(cat, reg, &fakeLedger{})
		recs, err := e.Recommend("buyer", Options{})
		require.NoError(t, err)
		require.Len(t, recs, 1)
		return recs[0].Score
	}

	assert.Zero(t, score(4), "below the sales threshold trending must not contribute")
	assert.InDelta(t, 0.06, score(6), 1e-9)
	assert.InDelta(t, 0.1, score(50), 1e-9, "trending sub-score saturates at 1")
}

func TestEngine_RecommendOptions(t *testing.T) {
	cat := &fakeCatalog{listings: []core.IntelligenceListing{
		listing("l1", "buyer", core.CategoryDefiStrategy, 90, 5, 0),
		listing("l2", "seller", core.CategoryDefiStrategy, 80, 4, 0),
		listing("l3", "seller", core.CategoryCodeAudit, 20, 1, 0),
	}}
	reg := &fakeRegistry{agents: []core.AgentProfile{{Key: "buyer", Name: "Buyer"}}}
	e := newTestEngine(cat, reg, &fakeLedger{})

	recs, err := e.Recommend("buyer", Options{ExcludeOwned: true})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.NotEqual(t, "l1", r.Listing.ID)
	}

	recs, err = e.Recommend("buyer", Options{MinQuality: 50})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	recs, err = e.Recommend("buyer", Options{Categories: []core.Category{core.CategoryCodeAudit}})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "l3", recs[0].Listing.ID)

	recs, err = e.Recommend("buyer", Options{Count: 2})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestEngine_RecommendOrdersByScore(t *testing.T) {
	cat := &fakeCatalog{listings: []core.IntelligenceListing{
		listing("low", "seller", core.CategoryDefiStrategy, 10, 1, 0),
		listing("high", "seller", core.CategoryDefiStrategy, 100, 5, 0),
	}}
	reg := &fakeRegistry{agents: []core.AgentProfile{{Key: "buyer", Name: "Buyer"}}}
	e := newTestEngine(cat, reg, &fakeLedger{})

	recs, err := e.Recommend("buyer", Options{})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "high", recs[0].Listing.ID)
}

func TestEngine_Trending(t *testing.T) {
	cat := &fakeCatalog{listings: []core.IntelligenceListing{
		listing("slow", "seller", core.CategoryDefiStrategy, 50, 5, 1), // 0.6 + 2.0 = 2.6
		listing("hot", "seller", core.CategoryDefiStrategy, 50, 2, 10), // 6.0 + 0.8 = 6.8
		listing("warm", "seller", core.CategoryDefiStrategy, 50, 4, 5), // 3.0 + 1.6 = 4.6
	}}
	e := newTestEngine(cat, &fakeRegistry{}, &fakeLedger{})

	top := e.Trending(2)
	require.Len(t, top, 2)
	assert.Equal(t, "hot", top[0].ID)
	assert.Equal(t, "warm", top[1].ID)

	assert.Len(t, e.Trending(0), 3)
}

func TestEngine_SimilarAgents(t *testing.T) {
	cat := &fakeCatalog{listings: []core.IntelligenceListing{
		listing("popular", "vendor", core.CategoryDefiStrategy, 80, 4, 3),
		listing("niche", "vendor", core.CategoryDefiStrategy, 60, 3, 1),
		listing("own", "target", core.CategoryDefiStrategy, 70, 4, 2),
	}}
	reg := &fakeRegistry{agents: []core.AgentProfile{
		{Key: "target", Name: "Target", Specializations: []string{"defi"}},
		{Key: "peer1", Name: "Peer One", Specializations: []string{"DeFi yield"}},
		{Key: "peer2", Name: "Peer Two", Specializations: []string{"defi strategy"}},
		{Key: "stranger", Name: "Stranger", Specializations: []string{"nft art"}},
	}}
	led := &fakeLedger{txs: []core.Transaction{
		{ID: "t1", BuyerKey: "peer1", SellerKey: "vendor", ListingID: "popular"},
		{ID: "t2", BuyerKey: "peer2", SellerKey: "vendor", ListingID: "popular"},
		{ID: "t3", BuyerKey: "peer2", SellerKey: "vendor", ListingID: "niche"},
		{ID: "t4", BuyerKey: "peer1", SellerKey: "target", ListingID: "own"},
		{ID: "t5", BuyerKey: "stranger", SellerKey: "vendor", ListingID: "niche"},
	}}
	e := newTestEngine(cat, reg, led)

	picks, err := e.SimilarAgents("target", 10)
	require.NoError(t, err)
	require.Len(t, picks, 2)
	assert.Equal(t, "popular", picks[0].Listing.ID)
	assert.Equal(t, 2, picks[0].PeerPurchases)
	assert.Equal(t, "niche", picks[1].Listing.ID)
	assert.Equal(t, 1, picks[1].PeerPurchases)

	_, err = e.SimilarAgents("ghost", 10)
	assert.ErrorIs(t, err, core.ErrAgentNotFound)
}
