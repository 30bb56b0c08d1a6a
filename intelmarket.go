// Package intelmarket provides a high-level façade over the marketplace
// orchestrator and its component stores (registry, catalog, transaction log,
// transparency ledger, memory & recommendations). Most applications interact
// with this package by:
//  1. Creating a Marketplace via New() (optionally overriding config, logger
//     or the best-effort external collaborators)
//  2. Registering agents and publishing listings
//  3. Driving purchases, ratings and the read-only query surface
//
// The façade delegates all multi-entity invariants to market.Orchestrator
// while keeping setup ergonomics concise. All defaults are safe for local
// development and testing; production deployments typically supply a durable
// persistence sink, a remote audit endpoint and a structured logger.
package intelmarket

import (
	"context"
	"time"

	"github.com/hupe1980/intelmarket/catalog"
	"github.com/hupe1980/intelmarket/config"
	"github.com/hupe1980/intelmarket/core"
	"github.com/hupe1980/intelmarket/ledger"
	"github.com/hupe1980/intelmarket/logging"
	"github.com/hupe1980/intelmarket/market"
	"github.com/hupe1980/intelmarket/memory"
	"github.com/hupe1980/intelmarket/mirror"
	"github.com/hupe1980/intelmarket/recommend"
	"github.com/hupe1980/intelmarket/registry"
	"github.com/hupe1980/intelmarket/transparency"
)

// Options configures the Marketplace instance.
type Options struct {
	// Config carries every bound and threshold; nil means config.Default().
	Config *config.Config

	// AuditRemote is the optional external audit trail the transparency
	// ledger mirrors commits and reveals to, best-effort.
	AuditRemote mirror.Sink

	// PersistenceRemote is the optional external persistence collaborator
	// the memory store mirrors records to, best-effort.
	PersistenceRemote mirror.Sink

	// AuditLocal / PersistenceLocal are the always-written local mirror
	// paths. Defaults to in-memory sinks; supply a LevelDBSink for
	// durability.
	AuditLocal       mirror.Sink
	PersistenceLocal mirror.Sink

	// Balances resolves display-only external balances. Defaults to a
	// simulated resolver.
	Balances market.BalanceResolver

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Marketplace is the high-level façade aggregating the orchestrator and the
// component stores.
type Marketplace struct {
	opts         Options
	cfg          *config.Config
	orchestrator *market.Orchestrator
}

// New creates a Marketplace with optional overrides. Any unset collaborator
// is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) (*Marketplace, error) {
	opts := Options{
		Config:           config.Default(),
		AuditLocal:       mirror.NewMemorySink(),
		PersistenceLocal: mirror.NewMemorySink(),
		Balances:         market.SimulatedBalanceResolver{Amount: 10},
		Logger:           logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Per-component child loggers when a MarketLogger is wired.
	componentLogger := func(name string) logging.Logger {
		if ml, ok := opts.Logger.(*logging.MarketLogger); ok {
			return ml.WithComponent(name)
		}
		return opts.Logger
	}

	policy := core.NewFailurePolicy(cfg.Retry.MaxAttempts, cfg.Retry.BaseDelay, cfg.Retry.MaxDelay, opts.Logger)
	auditTee := mirror.NewTee(opts.AuditRemote, opts.AuditLocal, policy, componentLogger("mirror"))
	persistTee := mirror.NewTee(opts.PersistenceRemote, opts.PersistenceLocal, policy, componentLogger("mirror"))

	agents := registry.NewStore(cfg.Reputation.Default, cfg.Reputation.Max, cfg.Reputation.MaxRating, componentLogger("registry"))
	listings := catalog.NewStore(catalog.Bounds{
		MinPrice:       cfg.Listing.MinPrice,
		MaxPrice:       cfg.Listing.MaxPrice,
		MaxTitleLen:    cfg.Listing.MaxTitleLen,
		MaxDescription: cfg.Listing.MaxDescription,
	}, componentLogger("catalog"))
	txLog := ledger.NewLog(cfg.Reputation.MaxRating, componentLogger("ledger"))
	commits := transparency.NewLedger(cfg.Transparency.CommitTimeout, cfg.Transparency.LateRevealFraction, auditTee, componentLogger("transparency"))
	memories := memory.NewStore(cfg.Memory.RetentionCap, cfg.Memory.SearchCap, persistTee, componentLogger("memory"))
	engine := recommend.NewEngine(listings, agents, txLog, recommend.Weights{
		Specialization:         cfg.Recommend.SpecializationWeight,
		Quality:                cfg.Recommend.QualityWeight,
		Preference:             cfg.Recommend.PreferenceWeight,
		Trending:               cfg.Recommend.TrendingWeight,
		PersonalizedThreshold:  cfg.Recommend.PersonalizedThreshold,
		TrendingSalesThreshold: cfg.Recommend.TrendingSalesThreshold,
		MaterialityBar:         cfg.Recommend.MaterialityBar,
	}, cfg.Reputation.MaxRating, componentLogger("recommend"))

	orchestrator, err := market.New(cfg, market.Deps{
		Registry:     agents,
		Catalog:      listings,
		Ledger:       txLog,
		Transparency: commits,
		Memory:       memories,
		Engine:       engine,
		Balances:     opts.Balances,
		Policy:       policy,
		Logger:       componentLogger("market"),
	})
	if err != nil {
		return nil, err
	}
	return &Marketplace{opts: opts, cfg: cfg, orchestrator: orchestrator}, nil
}

// RegisterAgent registers a new participant identity.
func (m *Marketplace) RegisterAgent(ctx context.Context, key, name, description string, specializations []string) (*core.AgentProfile, error) {
	return m.orchestrator.RegisterAgent(ctx, key, name, description, specializations)
}

// GetAgent fetches a participant profile.
func (m *Marketplace) GetAgent(ctx context.Context, key string) (*core.AgentProfile, error) {
	return m.orchestrator.GetAgent(ctx, key)
}

// ListIntelligence publishes a priced listing for a registered seller.
func (m *Marketplace) ListIntelligence(ctx context.Context, sellerKey string, spec core.ListingSpec) (*core.IntelligenceListing, error) {
	return m.orchestrator.ListIntelligence(ctx, sellerKey, spec)
}

// SearchIntelligence runs a filtered catalog search.
func (m *Marketplace) SearchIntelligence(ctx context.Context, filters core.SearchFilters) []core.IntelligenceListing {
	return m.orchestrator.SearchIntelligence(ctx, filters)
}

// Purchase runs the full transaction-and-trust pipeline for one trade.
func (m *Marketplace) Purchase(ctx context.Context, buyerKey, listingID string, reasoning *core.Reasoning) (*market.PurchaseResult, error) {
	return m.orchestrator.Purchase(ctx, buyerKey, listingID, reasoning)
}

// RateIntelligence rates a previously purchased listing.
func (m *Marketplace) RateIntelligence(ctx context.Context, buyerKey, listingID string, score int, review string) (*market.RateResult, error) {
	return m.orchestrator.RateIntelligence(ctx, buyerKey, listingID, score, review)
}

// TopAgents returns the reputation leaderboard.
func (m *Marketplace) TopAgents(ctx context.Context, limit int) []core.AgentProfile {
	return m.orchestrator.TopAgents(ctx, limit)
}

// Recommendations returns personalized listing suggestions.
func (m *Marketplace) Recommendations(ctx context.Context, agentKey string, opts recommend.Options) ([]core.Recommendation, error) {
	return m.orchestrator.Recommendations(ctx, agentKey, opts)
}

// Trending returns the marketplace-wide trending listings.
func (m *Marketplace) Trending(ctx context.Context, limit int) []core.IntelligenceListing {
	return m.orchestrator.Trending(ctx, limit)
}

// SimilarAgents returns listings popular among similar agents.
func (m *Marketplace) SimilarAgents(ctx context.Context, agentKey string, limit int) ([]recommend.PeerPick, error) {
	return m.orchestrator.SimilarAgents(ctx, agentKey, limit)
}

// AuditAgent aggregates an agent's transparency record.
func (m *Marketplace) AuditAgent(ctx context.Context, agentKey string, from, to *time.Time) *transparency.Report {
	return m.orchestrator.AuditAgent(ctx, agentKey, from, to)
}

// VerifyCommit checks a single reasoning commit.
func (m *Marketplace) VerifyCommit(ctx context.Context, commitID string) (*transparency.Verification, error) {
	return m.orchestrator.VerifyCommit(ctx, commitID)
}

// ExportMemoryProfile returns an agent's full memory state.
func (m *Marketplace) ExportMemoryProfile(ctx context.Context, agentKey string) (*market.MemoryExport, error) {
	return m.orchestrator.ExportMemoryProfile(ctx, agentKey)
}

// MarketStats returns the aggregate marketplace snapshot.
func (m *Marketplace) MarketStats(ctx context.Context) *market.Stats {
	return m.orchestrator.MarketStats(ctx)
}

// Describe converts an error into the uniform caller-facing Failure envelope.
func (m *Marketplace) Describe(err error) *core.Failure {
	return m.orchestrator.Describe(err)
}

// Close releases background resources.
func (m *Marketplace) Close() {
	m.orchestrator.Close()
}
