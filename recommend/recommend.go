// Package recommend scores catalog listings for individual agents. The score
// is a weighted sum of four independent sub-scores (specialization match,
// quality, category preference, trending momentum), each normalized to [0,1],
// with human-readable reasons attached for every material contribution.
package recommend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/intelmarket/core"
	"github.com/hupe1980/intelmarket/logging"
)

// CatalogReader is the catalog surface the engine needs.
type CatalogReader interface {
	All() []core.IntelligenceListing
	Get(id string) (*core.IntelligenceListing, error)
}

// RegistryReader is the registry surface the engine needs.
type RegistryReader interface {
	Get(key string) (*core.AgentProfile, error)
	All() []core.AgentProfile
}

// LedgerReader is the transaction log surface the engine needs.
type LedgerReader interface {
	ForAgent(key string) []core.Transaction
}

// Weights carries the scoring weights and thresholds.
type Weights struct {
	Specialization float64
	Quality        float64
	Preference     float64
	Trending       float64
	// PersonalizedThreshold marks the total score above which a result is
	// flagged as personalized.
	PersonalizedThreshold float64
	// TrendingSalesThreshold is the sales count a listing must cross before
	// the trending sub-score contributes.
	TrendingSalesThreshold int
	// MaterialityBar is the minimum sub-score that earns a reason entry.
	MaterialityBar float64
}

// DefaultWeights returns the standard 0.4/0.3/0.2/0.1 split.
func DefaultWeights() Weights {
	return Weights{
		Specialization:         0.4,
		Quality:                0.3,
		Preference:             0.2,
		Trending:               0.1,
		PersonalizedThreshold:  0.3,
		TrendingSalesThreshold: 5,
		MaterialityBar:         0.1,
	}
}

// categoryKeywords maps each listing category to the keywords an agent's
// specialization tags are matched against.
var categoryKeywords = map[core.Category][]string{
	core.CategoryDefiStrategy:  {"defi", "yield", "liquidity", "strategy", "farming"},
	core.CategoryMarketSignal:  {"market", "signal", "trading", "price", "momentum"},
	core.CategoryNFTAnalytics:  {"nft", "collectible", "art", "analytics"},
	core.CategoryRiskModel:     {"risk", "model", "volatility", "exposure"},
	core.CategoryCodeAudit:     {"code", "audit", "security", "contract"},
	core.CategoryAlphaResearch: {"alpha", "research", "insight", "edge"},
}

// Engine computes personalized and marketplace-wide rankings over the catalog
// and the accumulated transaction history. Read-only; safe to call from any
// goroutine as long as its readers are.
type Engine struct {
	catalog   CatalogReader
	registry  RegistryReader
	ledger    LedgerReader
	weights   Weights
	maxRating int
	logger    logging.Logger
}

// NewEngine wires a scoring engine over the given readers. maxRating is the
// top of the rating scale used for normalization.
func NewEngine(cat CatalogReader, reg RegistryReader, led LedgerReader, weights Weights, maxRating int, logger logging.Logger) *Engine {
	return &Engine{
		catalog:   cat,
		registry:  reg,
		ledger:    led,
		weights:   weights,
		maxRating: maxRating,
		logger:    logging.OrNoOp(logger),
	}
}

// Options narrows a recommendation request.
type Options struct {
	// Count bounds the number of results; non-positive means 10.
	Count int
	// ExcludeOwned drops the agent's own listings.
	ExcludeOwned bool
	// MinQuality drops listings below this quality score.
	MinQuality float64
	// Categories, when non-empty, acts as an allow-list.
	Categories []core.Category
}

// Recommend filters the catalog per opts and scores every remaining candidate
// for the agent. Results are sorted descending by score and truncated to the
// requested count. Scores always land in [0,1].
func (e *Engine) Recommend(agentKey string, opts Options) ([]core.Recommendation, error) {
	agent, err := e.registry.Get(agentKey)
	if err != nil {
		return nil, err
	}
	count := opts.Count
	if count <= 0 {
		count = 10
	}
	allowed := make(map[core.Category]bool, len(opts.Categories))
	for _, c := range opts.Categories {
		allowed[c] = true
	}

	history := e.ledger.ForAgent(agentKey)
	categoryShare := purchaseCategoryShare(agentKey, history, e.catalog)

	var recs []core.Recommendation
	for _, listing := range e.catalog.All() {
		if opts.ExcludeOwned && listing.SellerKey == agentKey {
			continue
		}
		if opts.MinQuality > 0 && listing.QualityScore < opts.MinQuality {
			continue
		}
		if len(allowed) > 0 && !allowed[listing.Category] {
			continue
		}
		recs = append(recs, e.score(agent, listing, categoryShare))
	}

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Score > recs[j].Score })
	if len(recs) > count {
		recs = recs[:count]
	}
	return recs, nil
}

// score computes the weighted sum of the four sub-scores for one candidate.
func (e *Engine) score(agent *core.AgentProfile, listing core.IntelligenceListing, categoryShare map[core.Category]float64) core.Recommendation {
	rec := core.Recommendation{Listing: listing}

	specialization := specializationMatch(agent.Specializations, listing.Category)
	quality := (listing.QualityScore/100 + listing.Rating/float64(e.maxRating)) / 2
	preference := categoryShare[listing.Category]
	trending := 0.0
	if listing.SalesCount >= e.weights.TrendingSalesThreshold {
		trending = float64(listing.SalesCount) / float64(2*e.weights.TrendingSalesThreshold)
		if trending > 1 {
			trending = 1
		}
	}

	if specialization > e.weights.MaterialityBar {
		rec.Reasons = append(rec.Reasons, fmt.Sprintf("matches your %s specialization", listing.Category))
	}
	if quality > e.weights.MaterialityBar {
		rec.Reasons = append(rec.Reasons, fmt.Sprintf("high quality score (%.0f) and rating (%.1f)", listing.QualityScore, listing.Rating))
	}
	if preference > e.weights.MaterialityBar {
		rec.Reasons = append(rec.Reasons, fmt.Sprintf("you often buy %s intelligence", listing.Category))
	}
	if trending > e.weights.MaterialityBar {
		rec.Reasons = append(rec.Reasons, fmt.Sprintf("trending with %d sales", listing.SalesCount))
	}

	total := specialization*e.weights.Specialization +
		quality*e.weights.Quality +
		preference*e.weights.Preference +
		trending*e.weights.Trending
	if total < 0 {
		total = 0
	}
	if total > 1 {
		total = 1
	}
	rec.Score = total
	rec.IsPersonalized = total > e.weights.PersonalizedThreshold
	return rec
}

// specializationMatch returns the fraction of the agent's specialization tags
// that keyword-match the listing's category.
func specializationMatch(specializations []string, category core.Category) float64 {
	if len(specializations) == 0 {
		return 0
	}
	keywords := categoryKeywords[category]
	matched := 0
	for _, tag := range specializations {
		lower := strings.ToLower(tag)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) || strings.Contains(kw, lower) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(specializations))
}

// purchaseCategoryShare returns, per category, the fraction of the agent's
// past purchases in that category. Empty when the agent never bought.
func purchaseCategoryShare(agentKey string, history []core.Transaction, cat CatalogReader) map[core.Category]float64 {
	counts := make(map[core.Category]int)
	purchases := 0
	for i := range history {
		tx := &history[i]
		if tx.BuyerKey != agentKey {
			continue
		}
		listing, err := cat.Get(tx.ListingID)
		if err != nil {
			continue
		}
		counts[listing.Category]++
		purchases++
	}
	share := make(map[core.Category]float64, len(counts))
	if purchases == 0 {
		return share
	}
	for c, n := range counts {
		share[c] = float64(n) / float64(purchases)
	}
	return share
}

// Trending returns up to limit listings ranked marketplace-wide by
// 0.6*salesCount + 0.4*rating.
func (e *Engine) Trending(limit int) []core.IntelligenceListing {
	listings := e.catalog.All()
	sort.SliceStable(listings, func(i, j int) bool {
		si := 0.6*float64(listings[i].SalesCount) + 0.4*listings[i].Rating
		sj := 0.6*float64(listings[j].SalesCount) + 0.4*listings[j].Rating
		return si > sj
	})
	if limit > 0 && len(listings) > limit {
		listings = listings[:limit]
	}
	return listings
}

// PeerPick is a listing popular among agents similar to the target.
type PeerPick struct {
	Listing       core.IntelligenceListing `json:"listing"`
	PeerPurchases int                      `json:"peer_purchases"`
}

// SimilarAgents finds agents whose specialization tags overlap the target's
// (case-insensitive substring match in either direction), aggregates the
// listings those peers purchased excluding the target's own, and ranks them
// by purchase popularity within the peer group.
func (e *Engine) SimilarAgents(agentKey string, limit int) ([]PeerPick, error) {
	target, err := e.registry.Get(agentKey)
	if err != nil {
		return nil, err
	}
	purchaseCounts := make(map[string]int)
	for _, peer := range e.registry.All() {
		if peer.Key == agentKey || !tagsOverlap(target.Specializations, peer.Specializations) {
			continue
		}
		for _, tx := range e.ledger.ForAgent(peer.Key) {
			if tx.BuyerKey != peer.Key {
				continue
			}
			listing, err := e.catalog.Get(tx.ListingID)
			if err != nil || listing.SellerKey == agentKey {
				continue
			}
			purchaseCounts[tx.ListingID]++
		}
	}

	picks := make([]PeerPick, 0, len(purchaseCounts))
	for id, n := range purchaseCounts {
		listing, err := e.catalog.Get(id)
		if err != nil {
			continue
		}
		picks = append(picks, PeerPick{Listing: *listing, PeerPurchases: n})
	}
	sort.Slice(picks, func(i, j int) bool {
		if picks[i].PeerPurchases != picks[j].PeerPurchases {
			return picks[i].PeerPurchases > picks[j].PeerPurchases
		}
		return picks[i].Listing.ID < picks[j].Listing.ID
	})
	if limit > 0 && len(picks) > limit {
		picks = picks[:limit]
	}
	return picks, nil
}

// tagsOverlap reports whether any tag of a matches any tag of b by
// case-insensitive substring in either direction.
func tagsOverlap(a, b []string) bool {
	for _, ta := range a {
		la := strings.ToLower(ta)
		for _, tb := range b {
			lb := strings.ToLower(tb)
			if strings.Contains(la, lb) || strings.Contains(lb, la) {
				return true
			}
		}
	}
	return false
}
