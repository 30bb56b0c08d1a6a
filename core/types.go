package core

import (
	"time"

	"github.com/google/uuid"
)

// Category classifies an intelligence listing. The set is fixed; listings with
// an unknown category are rejected at publish time.
type Category string

// Known listing categories.
const (
	CategoryDefiStrategy  Category = "defi-strategy"
	CategoryMarketSignal  Category = "market-signal"
	CategoryNFTAnalytics  Category = "nft-analytics"
	CategoryRiskModel     Category = "risk-model"
	CategoryCodeAudit     Category = "code-audit"
	CategoryAlphaResearch Category = "alpha-research"
)

// Categories returns all known categories in declaration order.
func Categories() []Category {
	return []Category{
		CategoryDefiStrategy,
		CategoryMarketSignal,
		CategoryNFTAnalytics,
		CategoryRiskModel,
		CategoryCodeAudit,
		CategoryAlphaResearch,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// AgentProfile is a registered marketplace participant. The Key (a wallet-style
// public identifier) is the primary key; profiles are never deleted within a
// session. Reputation is derived from received ratings and always stays inside
// the configured [0, MaxReputation] range.
type AgentProfile struct {
	Key             string    `json:"key"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Specializations []string  `json:"specializations,omitempty"`
	Reputation      int       `json:"reputation"`
	TotalSales      int       `json:"total_sales"`
	TotalEarnings   float64   `json:"total_earnings"`
	CreatedAt       time.Time `json:"created_at"`
}

// Clone returns a deep copy so callers cannot mutate store-internal state.
func (a *AgentProfile) Clone() *AgentProfile {
	if a == nil {
		return nil
	}
	cp := *a
	cp.Specializations = append([]string(nil), a.Specializations...)
	return &cp
}

// ListingSpec carries the caller-supplied fields of a new listing. Everything
// else (id, quality score, counters, timestamps) is derived at publish time.
type ListingSpec struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Price       float64  `json:"price"`
}

// IntelligenceListing is a priced artifact offered by a seller agent.
// QualityScore is frozen at publish time from the seller's reputation and is
// deliberately never recomputed afterwards. SalesCount and Rating are the only
// fields mutated after creation.
type IntelligenceListing struct {
	ID           string    `json:"id"`
	SellerKey    string    `json:"seller_key"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Category     Category  `json:"category"`
	Price        float64   `json:"price"`
	QualityScore float64   `json:"quality_score"`
	SalesCount   int       `json:"sales_count"`
	Rating       float64   `json:"rating"`
	CreatedAt    time.Time `json:"created_at"`
}

// Clone returns a copy of the listing.
func (l *IntelligenceListing) Clone() *IntelligenceListing {
	if l == nil {
		return nil
	}
	cp := *l
	return &cp
}

// SearchFilters narrows a catalog search. All fields are optional and combine
// independently; non-positive numeric filters are ignored rather than rejected.
type SearchFilters struct {
	Category   Category `json:"category,omitempty"`
	MaxPrice   float64  `json:"max_price,omitempty"`
	MinQuality float64  `json:"min_quality,omitempty"`
	SellerKey  string   `json:"seller_key,omitempty"`
}

// Transaction records a settled purchase. Price is copied at purchase time,
// not live-priced. Rating is set at most once by a later rate action; once
// present it is immutable.
type Transaction struct {
	ID        string    `json:"id"`
	BuyerKey  string    `json:"buyer_key"`
	SellerKey string    `json:"seller_key"`
	ListingID string    `json:"listing_id"`
	Price     float64   `json:"price"`
	Rating    *int      `json:"rating,omitempty"`
	Review    string    `json:"review,omitempty"`
	CommitID  string    `json:"commit_id,omitempty"`
	ShieldID  string    `json:"shield_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Rated reports whether a rating has been recorded for this transaction.
func (t *Transaction) Rated() bool { return t.Rating != nil }

// Clone returns a deep copy of the transaction.
func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	cp := *t
	if t.Rating != nil {
		r := *t.Rating
		cp.Rating = &r
	}
	return &cp
}

// CommitStatus is the lifecycle state of a reasoning commit.
type CommitStatus string

// Commit lifecycle states. Revealed and Expired are terminal.
const (
	CommitStatusCommitted CommitStatus = "committed"
	CommitStatusRevealed  CommitStatus = "revealed"
	CommitStatusExpired   CommitStatus = "expired"
)

// Reasoning is the decision rationale bound by a commit and disclosed by a
// reveal. Confidence is a percentage in [0,100].
type Reasoning struct {
	Decision      string   `json:"decision"`
	Factors       []string `json:"factors"`
	Confidence    float64  `json:"confidence"`
	ExpectedValue float64  `json:"expected_value"`
	RiskNote      string   `json:"risk_note,omitempty"`
	Methodology   string   `json:"methodology,omitempty"`
}

// ReasoningCommit is the first phase of the commit/reveal protocol: a hash
// binding an undisclosed Reasoning to a listing before the trade settles.
type ReasoningCommit struct {
	ID         string       `json:"id"`
	AgentKey   string       `json:"agent_key"`
	ListingID  string       `json:"listing_id"`
	CommitHash string       `json:"commit_hash"`
	Status     CommitStatus `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	ExpiresAt  time.Time    `json:"expires_at"`
	RevealedAt *time.Time   `json:"revealed_at,omitempty"`
}

// Clone returns a deep copy of the commit.
func (c *ReasoningCommit) Clone() *ReasoningCommit {
	if c == nil {
		return nil
	}
	cp := *c
	if c.RevealedAt != nil {
		ts := *c.RevealedAt
		cp.RevealedAt = &ts
	}
	return &cp
}

// ReasoningReveal is the second phase: the full rationale disclosed after
// settlement, verified against the stored commit hash.
type ReasoningReveal struct {
	CommitID      string    `json:"commit_id"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Reasoning     Reasoning `json:"reasoning"`
	RevealedAt    time.Time `json:"revealed_at"`
}

// MemoryType tags the kind of event a memory record captures.
type MemoryType string

// Memory record types.
const (
	MemoryTypePurchase   MemoryType = "purchase"
	MemoryTypeSale       MemoryType = "sale"
	MemoryTypeRating     MemoryType = "rating"
	MemoryTypeReputation MemoryType = "reputation"
)

// MemoryMetadata carries the structured dimensions of a memory record used by
// search and recommendation. Zero values mean "not applicable".
type MemoryMetadata struct {
	ListingID     string   `json:"listing_id,omitempty"`
	Category      Category `json:"category,omitempty"`
	Price         float64  `json:"price,omitempty"`
	Rating        float64  `json:"rating,omitempty"`
	Effectiveness float64  `json:"effectiveness,omitempty"`
}

// MemoryRecord is one append-only history entry for an agent. SearchText is
// derived at record time from the type, category, content and agent key.
type MemoryRecord struct {
	ID         string         `json:"id"`
	AgentKey   string         `json:"agent_key"`
	Type       MemoryType     `json:"type"`
	Content    map[string]any `json:"content,omitempty"`
	Metadata   MemoryMetadata `json:"metadata"`
	SearchText string         `json:"search_text"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Clone returns a copy with its own content map.
func (r *MemoryRecord) Clone() *MemoryRecord {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Content != nil {
		cp.Content = make(map[string]any, len(r.Content))
		for k, v := range r.Content {
			cp.Content[k] = v
		}
	}
	return &cp
}

// EffectivenessEntry links a listing to how effective the agent judged it.
type EffectivenessEntry struct {
	ListingID     string   `json:"listing_id"`
	Category      Category `json:"category,omitempty"`
	Effectiveness float64  `json:"effectiveness"`
}

// AgentMemoryProfile is the incrementally aggregated view over an agent's
// memory records. Created lazily on the first record, updated on every
// subsequent one, never deleted.
type AgentMemoryProfile struct {
	AgentKey          string               `json:"agent_key"`
	TransactionCount  int                  `json:"transaction_count"`
	TotalSpent        float64              `json:"total_spent"`
	TotalEarned       float64              `json:"total_earned"`
	CategoryFrequency map[Category]int     `json:"category_frequency"`
	Effectiveness     []EffectivenessEntry `json:"effectiveness,omitempty"`
	LastUpdated       time.Time            `json:"last_updated"`
}

// Clone returns a deep copy of the profile.
func (p *AgentMemoryProfile) Clone() *AgentMemoryProfile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.CategoryFrequency = make(map[Category]int, len(p.CategoryFrequency))
	for k, v := range p.CategoryFrequency {
		cp.CategoryFrequency[k] = v
	}
	cp.Effectiveness = append([]EffectivenessEntry(nil), p.Effectiveness...)
	return &cp
}

// Recommendation is a scored, explained catalog suggestion for one agent.
// Score is always within [0,1].
type Recommendation struct {
	Listing        IntelligenceListing `json:"listing"`
	Score          float64             `json:"score"`
	Reasons        []string            `json:"reasons,omitempty"`
	IsPersonalized bool                `json:"is_personalized"`
}

// NewID generates a unique identifier for marketplace entities.
func NewID() string { return uuid.NewString() }
