// Package market implements the marketplace orchestrator: the only component
// with cross-entity invariants. It composes the registry, catalog, transaction
// log, transparency ledger, memory store and recommendation engine into the
// register / list / search / purchase / rate use cases and enforces the
// per-purchase ordering: commit, settle, reveal, memory record, response.
package market

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/intelmarket/catalog"
	"github.com/hupe1980/intelmarket/config"
	"github.com/hupe1980/intelmarket/core"
	"github.com/hupe1980/intelmarket/ledger"
	"github.com/hupe1980/intelmarket/logging"
	"github.com/hupe1980/intelmarket/memory"
	"github.com/hupe1980/intelmarket/recommend"
	"github.com/hupe1980/intelmarket/registry"
	"github.com/hupe1980/intelmarket/transparency"
)

// BalanceResolver resolves an agent's external ledger balance. The balance is
// display-only and never gates settlement; resolution failures degrade to an
// absent balance.
type BalanceResolver interface {
	Balance(ctx context.Context, agentKey string) (float64, error)
}

// SimulatedBalanceResolver returns a fixed balance for every agent. It is the
// local fallback used when no real ledger transport is wired in.
type SimulatedBalanceResolver struct {
	// Amount is returned for every query.
	Amount float64
}

// Balance implements BalanceResolver.
func (r SimulatedBalanceResolver) Balance(context.Context, string) (float64, error) {
	return r.Amount, nil
}

// Deps bundles the collaborators an Orchestrator composes.
type Deps struct {
	Registry     *registry.Store
	Catalog      *catalog.Store
	Ledger       *ledger.Log
	Transparency *transparency.Ledger
	Memory       *memory.Store
	Engine       *recommend.Engine
	Balances     BalanceResolver
	Policy       *core.FailurePolicy
	Logger       logging.Logger
}

// Orchestrator coordinates all marketplace use cases. All state is owned by
// the component stores; the orchestrator holds no entity state of its own.
type Orchestrator struct {
	cfg          *config.Config
	registry     *registry.Store
	catalog      *catalog.Store
	ledger       *ledger.Log
	transparency *transparency.Ledger
	memory       *memory.Store
	engine       *recommend.Engine
	balances     BalanceResolver
	policy       *core.FailurePolicy
	logger       logging.Logger
}

// New wires an orchestrator from its dependencies. Registry, Catalog, Ledger,
// Transparency, Memory and Engine are required; Balances, Policy and Logger
// are optional.
func New(cfg *config.Config, deps Deps) (*Orchestrator, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if deps.Registry == nil || deps.Catalog == nil || deps.Ledger == nil ||
		deps.Transparency == nil || deps.Memory == nil || deps.Engine == nil {
		return nil, fmt.Errorf("%w: all component stores are required", core.ErrInvalidInput)
	}
	policy := deps.Policy
	if policy == nil {
		policy = core.NewFailurePolicy(cfg.Retry.MaxAttempts, cfg.Retry.BaseDelay, cfg.Retry.MaxDelay, deps.Logger)
	}
	return &Orchestrator{
		cfg:          cfg,
		registry:     deps.Registry,
		catalog:      deps.Catalog,
		ledger:       deps.Ledger,
		transparency: deps.Transparency,
		memory:       deps.Memory,
		engine:       deps.Engine,
		balances:     deps.Balances,
		policy:       policy,
		logger:       logging.OrNoOp(deps.Logger),
	}, nil
}

// RegisterAgent registers a new participant.
func (o *Orchestrator) RegisterAgent(_ context.Context, key, name, description string, specializations []string) (*core.AgentProfile, error) {
	return o.registry.Register(key, name, description, specializations)
}

// GetAgent returns the profile for key.
func (o *Orchestrator) GetAgent(_ context.Context, key string) (*core.AgentProfile, error) {
	return o.registry.Get(key)
}

// ListIntelligence publishes a listing for a registered seller. The quality
// score is frozen from the seller's reputation at this moment.
func (o *Orchestrator) ListIntelligence(_ context.Context, sellerKey string, spec core.ListingSpec) (*core.IntelligenceListing, error) {
	seller, err := o.registry.Get(sellerKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrSellerNotRegistered, sellerKey)
	}
	return o.catalog.Publish(sellerKey, seller.Reputation, spec)
}

// SearchIntelligence runs a filtered catalog search.
func (o *Orchestrator) SearchIntelligence(_ context.Context, filters core.SearchFilters) []core.IntelligenceListing {
	return o.catalog.Search(filters)
}

// PurchaseResult is the settlement outcome returned to the request layer.
type PurchaseResult struct {
	Transaction *core.Transaction         `json:"transaction"`
	Listing     *core.IntelligenceListing `json:"listing"`
	CommitID    string                    `json:"commit_id"`
	Revealed    bool                      `json:"revealed"`
	// BuyerBalance is display-only and nil when the external resolver is
	// absent or unavailable.
	BuyerBalance *float64 `json:"buyer_balance,omitempty"`
}

// Purchase executes the transaction-and-trust pipeline for one trade:
//
//  1. Verify buyer, listing and seller exist (no commit is created when any
//     precondition fails).
//  2. Commit the purchase reasoning to the transparency ledger.
//  3. Settle the transaction at the listing's current price.
//  4. Reveal the reasoning, binding it to the transaction id.
//  5. Update seller statistics and listing sales count.
//  6. Record buyer and seller memory entries.
//
// The ordering is a correctness requirement: the reveal verifies against the
// commit hash and the memory records reference the settled transaction.
func (o *Orchestrator) Purchase(ctx context.Context, buyerKey, listingID string, reasoning *core.Reasoning) (*PurchaseResult, error) {
	start := time.Now()
	buyer, err := o.registry.Get(buyerKey)
	if err != nil {
		return nil, err
	}
	listing, err := o.catalog.Get(listingID)
	if err != nil {
		return nil, err
	}
	if _, err := o.registry.Get(listing.SellerKey); err != nil {
		return nil, fmt.Errorf("%w: listing %s references seller %s", core.ErrInvalidReference, listingID, listing.SellerKey)
	}

	r := defaultReasoning(listing, reasoning)
	commit, err := o.transparency.Commit(buyerKey, listingID, r)
	if err != nil {
		return nil, fmt.Errorf("commit reasoning: %w", err)
	}

	tx, err := o.ledger.Settle(buyerKey, listing.SellerKey, listingID, listing.Price, commit.ID)
	if err != nil {
		return nil, fmt.Errorf("settle: %w", err)
	}

	revealed := true
	if _, err := o.transparency.Reveal(commit.ID, r, tx.ID); err != nil {
		// The trade already settled; an unrevealable commit expires on its
		// own and shows up in the audit trail.
		revealed = false
		o.logger.Warn("reveal failed after settlement", "commit_id", commit.ID, "tx_id", tx.ID, "error", err)
	}

	o.registry.RecordSale(listing.SellerKey, listing.Price)
	if err := o.catalog.RecordSale(listingID); err != nil {
		o.logger.Error("sales count update failed", "listing_id", listingID, "error", err)
	}

	md := core.MemoryMetadata{ListingID: listingID, Category: listing.Category, Price: listing.Price}
	if _, err := o.memory.Record(ctx, buyerKey, core.MemoryTypePurchase,
		map[string]any{"title": listing.Title, "seller": listing.SellerKey}, md); err != nil {
		o.logger.Warn("buyer memory record failed", "agent_key", buyerKey, "error", err)
	}
	if _, err := o.memory.Record(ctx, listing.SellerKey, core.MemoryTypeSale,
		map[string]any{"title": listing.Title, "buyer": buyerKey}, md); err != nil {
		o.logger.Warn("seller memory record failed", "agent_key", listing.SellerKey, "error", err)
	}

	result := &PurchaseResult{Transaction: tx, Listing: listing, CommitID: commit.ID, Revealed: revealed}
	result.BuyerBalance = o.resolveBalance(ctx, buyer.Key)
	if ml, ok := o.logger.(*logging.MarketLogger); ok {
		ml.WithOperation("purchase").LogTrade(buyerKey, listing.SellerKey, listingID, listing.Price, time.Since(start), true, nil)
	} else {
		o.logger.Info("purchase completed", "buyer", buyerKey, "listing_id", listingID, "tx_id", tx.ID)
	}
	return result, nil
}

// resolveBalance queries the external balance collaborator under the failure
// policy. Unavailability degrades to a nil balance, never an error.
func (o *Orchestrator) resolveBalance(ctx context.Context, agentKey string) *float64 {
	if o.balances == nil {
		return nil
	}
	var balance float64
	err := o.policy.Execute(ctx, "balance", func() error {
		var inner error
		balance, inner = o.balances.Balance(ctx, agentKey)
		return inner
	})
	if err != nil {
		o.logger.Debug("balance resolution unavailable", "agent_key", agentKey, "error", err)
		return nil
	}
	return &balance
}

// defaultReasoning fills in a minimal rationale when the buyer supplies none.
func defaultReasoning(listing *core.IntelligenceListing, supplied *core.Reasoning) core.Reasoning {
	if supplied != nil {
		return *supplied
	}
	return core.Reasoning{
		Decision:      "purchase",
		Factors:       []string{string(listing.Category), "price", "quality score"},
		Confidence:    50,
		ExpectedValue: listing.Price,
		RiskNote:      "no explicit risk assessment provided",
		Methodology:   "default rationale generated at purchase time",
	}
}

// RateResult reports the aggregates recomputed by a rating.
type RateResult struct {
	Transaction      *core.Transaction `json:"transaction"`
	ListingRating    float64           `json:"listing_rating"`
	SellerReputation int               `json:"seller_reputation"`
}

// RateIntelligence records a 1..max rating for the buyer's purchase of the
// listing, then recomputes the listing's average rating and the seller's
// reputation, and appends a rating memory record carrying the normalized
// effectiveness score.
func (o *Orchestrator) RateIntelligence(ctx context.Context, buyerKey, listingID string, score int, review string) (*RateResult, error) {
	tx, err := o.ledger.Rate(buyerKey, listingID, score, review)
	if err != nil {
		return nil, err
	}
	rating, err := o.catalog.RecomputeRating(listingID, o.ledger.ForListing(listingID))
	if err != nil {
		return nil, fmt.Errorf("recompute listing rating: %w", err)
	}
	reputation, err := o.registry.RecomputeReputation(tx.SellerKey, o.ledger.ForAgent(tx.SellerKey))
	if err != nil {
		return nil, fmt.Errorf("recompute seller reputation: %w", err)
	}

	listing, _ := o.catalog.Get(listingID)
	md := core.MemoryMetadata{
		ListingID:     listingID,
		Price:         tx.Price,
		Rating:        float64(score),
		Effectiveness: float64(score) / float64(o.cfg.Reputation.MaxRating),
	}
	if listing != nil {
		md.Category = listing.Category
	}
	if _, err := o.memory.Record(ctx, buyerKey, core.MemoryTypeRating,
		map[string]any{"review": review, "seller": tx.SellerKey}, md); err != nil {
		o.logger.Warn("rating memory record failed", "agent_key", buyerKey, "error", err)
	}
	if _, err := o.memory.Record(ctx, tx.SellerKey, core.MemoryTypeReputation,
		map[string]any{"reputation": reputation}, core.MemoryMetadata{ListingID: listingID, Rating: float64(score)}); err != nil {
		o.logger.Warn("reputation memory record failed", "agent_key", tx.SellerKey, "error", err)
	}
	return &RateResult{Transaction: tx, ListingRating: rating, SellerReputation: reputation}, nil
}

// TopAgents returns the reputation leaderboard. A non-positive limit defaults
// to 10; limits are clamped to [1, 100].
func (o *Orchestrator) TopAgents(_ context.Context, limit int) []core.AgentProfile {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return o.registry.TopByReputation(limit)
}

// Recommendations returns personalized suggestions for the agent.
func (o *Orchestrator) Recommendations(_ context.Context, agentKey string, opts recommend.Options) ([]core.Recommendation, error) {
	return o.engine.Recommend(agentKey, opts)
}

// Trending returns the marketplace-wide trending listings.
func (o *Orchestrator) Trending(_ context.Context, limit int) []core.IntelligenceListing {
	return o.engine.Trending(limit)
}

// SimilarAgents returns listings popular among agents similar to the target.
func (o *Orchestrator) SimilarAgents(_ context.Context, agentKey string, limit int) ([]recommend.PeerPick, error) {
	return o.engine.SimilarAgents(agentKey, limit)
}

// AuditAgent aggregates the agent's transparency record.
func (o *Orchestrator) AuditAgent(_ context.Context, agentKey string, from, to *time.Time) *transparency.Report {
	return o.transparency.Audit(agentKey, from, to)
}

// VerifyCommit checks a single reasoning commit.
func (o *Orchestrator) VerifyCommit(_ context.Context, commitID string) (*transparency.Verification, error) {
	return o.transparency.Verify(commitID)
}

// MemoryExport is an agent's full memory state.
type MemoryExport struct {
	Profile  *core.AgentMemoryProfile `json:"profile"`
	Records  []core.MemoryRecord      `json:"records"`
	Patterns *memory.Patterns         `json:"patterns,omitempty"`
}

// ExportMemoryProfile returns the agent's aggregated profile, retained
// records and behavior patterns.
func (o *Orchestrator) ExportMemoryProfile(_ context.Context, agentKey string) (*MemoryExport, error) {
	if !o.registry.Exists(agentKey) {
		return nil, fmt.Errorf("%w: %s", core.ErrAgentNotFound, agentKey)
	}
	export := &MemoryExport{
		Profile: o.memory.Profile(agentKey),
		Records: o.memory.Records(agentKey),
	}
	if patterns, err := o.memory.Patterns(agentKey); err == nil {
		export.Patterns = patterns
	}
	return export, nil
}

// Stats is the aggregate marketplace snapshot with the sub-layer status
// blocks.
type Stats struct {
	Agents            int                   `json:"agents"`
	Listings          int                   `json:"listings"`
	Transactions      int                   `json:"transactions"`
	Volume            float64               `json:"volume"`
	AveragePrice      float64               `json:"average_price"`
	CategoryHistogram map[core.Category]int `json:"category_histogram"`
	Transparency      TransparencyStatus    `json:"transparency"`
	Memory            MemoryStatus          `json:"memory"`
	Recommendations   RecommendationStatus  `json:"recommendations"`
}

// TransparencyStatus is the transparency layer's status block.
type TransparencyStatus struct {
	Committed int `json:"committed"`
	Revealed  int `json:"revealed"`
	Expired   int `json:"expired"`
}

// MemoryStatus is the memory layer's status block.
type MemoryStatus struct {
	Records  int `json:"records"`
	Profiles int `json:"profiles"`
}

// RecommendationStatus is the recommendation layer's status block.
type RecommendationStatus struct {
	CatalogSize int `json:"catalog_size"`
}

// MarketStats aggregates counts, volume, average transaction price and the
// category histogram, plus the three sub-layer status blocks.
func (o *Orchestrator) MarketStats(_ context.Context) *Stats {
	stats := &Stats{
		Agents:            o.registry.Count(),
		Listings:          o.catalog.Count(),
		Transactions:      o.ledger.Count(),
		Volume:            o.ledger.Volume(),
		CategoryHistogram: make(map[core.Category]int),
	}
	if stats.Transactions > 0 {
		stats.AveragePrice = stats.Volume / float64(stats.Transactions)
	}
	for _, listing := range o.catalog.All() {
		stats.CategoryHistogram[listing.Category]++
	}
	committed, revealed, expired := o.transparency.Counts()
	stats.Transparency = TransparencyStatus{Committed: committed, Revealed: revealed, Expired: expired}
	records, profiles := o.memory.Counts()
	stats.Memory = MemoryStatus{Records: records, Profiles: profiles}
	stats.Recommendations = RecommendationStatus{CatalogSize: stats.Listings}
	return stats
}

// Describe converts err into the uniform caller-facing Failure envelope,
// honoring the configured development mode.
func (o *Orchestrator) Describe(err error) *core.Failure {
	return core.AsFailure(err, o.cfg.Development)
}

// Close releases background resources (pending expiry timers).
func (o *Orchestrator) Close() {
	o.transparency.Close()
}
