package testutil

import (
	"github.com/hupe1980/intelmarket/core"
)

// ReasoningBuilder provides a fluent helper for constructing reasoning
// payloads in tests. Example:
//
//	r := NewReasoningBuilder().Decision("buy").Confidence(80).Factors("price", "quality").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type ReasoningBuilder struct {
	reasoning core.Reasoning
}

// NewReasoningBuilder creates a builder with a plausible default payload.
func NewReasoningBuilder() *ReasoningBuilder {
	return &ReasoningBuilder{reasoning: core.Reasoning{
		Decision:      "purchase",
		Factors:       []string{"price", "seller reputation", "category fit"},
		Confidence:    75,
		ExpectedValue: 1.2,
		RiskNote:      "low downside at this price",
		Methodology:   "compared against recent listings in the same category",
	}}
}

// Decision sets the decision label (chainable).
func (b *ReasoningBuilder) Decision(d string) *ReasoningBuilder {
	b.reasoning.Decision = d
	return b
}

// Factors replaces the factor list (chainable).
func (b *ReasoningBuilder) Factors(factors ...string) *ReasoningBuilder {
	b.reasoning.Factors = factors
	return b
}

// Confidence sets the confidence percentage (chainable).
func (b *ReasoningBuilder) Confidence(c float64) *ReasoningBuilder {
	b.reasoning.Confidence = c
	return b
}

// ExpectedValue sets the expected value (chainable).
func (b *ReasoningBuilder) ExpectedValue(v float64) *ReasoningBuilder {
	b.reasoning.ExpectedValue = v
	return b
}

// RiskNote sets the qualitative risk note (chainable).
func (b *ReasoningBuilder) RiskNote(note string) *ReasoningBuilder {
	b.reasoning.RiskNote = note
	return b
}

// Methodology sets the methodology text (chainable).
func (b *ReasoningBuilder) Methodology(m string) *ReasoningBuilder {
	b.reasoning.Methodology = m
	return b
}

// Build returns the assembled reasoning.
func (b *ReasoningBuilder) Build() core.Reasoning { return b.reasoning }

// ListingSpec returns a valid listing spec for tests.
func ListingSpec(category core.Category, price float64) core.ListingSpec {
	return core.ListingSpec{
		Title:       "test intelligence",
		Description: "fixture listing",
		Category:    category,
		Price:       price,
	}
}

// RatedTransaction returns a seller-side transaction carrying a rating, for
// reputation recompute tests.
func RatedTransaction(buyer, seller, listingID string, rating int) core.Transaction {
	r := rating
	return core.Transaction{
		ID:        core.NewID(),
		BuyerKey:  buyer,
		SellerKey: seller,
		ListingID: listingID,
		Price:     0.5,
		Rating:    &r,
	}
}
