// Package catalog owns intelligence listings: publication, validation, search
// and the per-listing sales/rating aggregates.
package catalog

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/intelmarket/core"
	"github.com/hupe1980/intelmarket/logging"
)

// Bounds carries the publish-time validation limits for listings.
type Bounds struct {
	MinPrice       float64
	MaxPrice       float64
	MaxTitleLen    int
	MaxDescription int
}

// Store is an in-memory listing catalog. Safe for concurrent access; returned
// listings are clones.
type Store struct {
	mu       sync.RWMutex
	listings map[string]*core.IntelligenceListing
	order    []string

	bounds Bounds
	logger logging.Logger
}

// NewStore constructs an empty catalog with the given validation bounds.
func NewStore(bounds Bounds, logger logging.Logger) *Store {
	return &Store{
		listings: make(map[string]*core.IntelligenceListing),
		bounds:   bounds,
		logger:   logging.OrNoOp(logger),
	}
}

// Publish creates a listing for an already-verified seller. sellerReputation
// is the seller's reputation at publish time; the derived quality score
//
//	quality = min(100, reputation / 10)
//
// is frozen here and deliberately never recomputed, even when the seller's
// reputation later changes.
func (s *Store) Publish(sellerKey string, sellerReputation int, spec core.ListingSpec) (*core.IntelligenceListing, error) {
	if err := s.validate(spec); err != nil {
		return nil, err
	}
	quality := float64(sellerReputation) / 10
	if quality > 100 {
		quality = 100
	}
	listing := &core.IntelligenceListing{
		ID:           core.NewID(),
		SellerKey:    sellerKey,
		Title:        spec.Title,
		Description:  spec.Description,
		Category:     spec.Category,
		Price:        spec.Price,
		QualityScore: quality,
		CreatedAt:    time.Now().UTC(),
	}
	s.mu.Lock()
	s.listings[listing.ID] = listing
	s.order = append(s.order, listing.ID)
	s.mu.Unlock()
	s.logger.Info("listing published", "listing_id", listing.ID, "seller", sellerKey, "category", string(spec.Category), "price", spec.Price)
	return listing.Clone(), nil
}

func (s *Store) validate(spec core.ListingSpec) error {
	if spec.Title == "" {
		return fmt.Errorf("%w: title is required", core.ErrInvalidListing)
	}
	if s.bounds.MaxTitleLen > 0 && len(spec.Title) > s.bounds.MaxTitleLen {
		return fmt.Errorf("%w: title exceeds %d characters", core.ErrInvalidListing, s.bounds.MaxTitleLen)
	}
	if s.bounds.MaxDescription > 0 && len(spec.Description) > s.bounds.MaxDescription {
		return fmt.Errorf("%w: description exceeds %d characters", core.ErrInvalidListing, s.bounds.MaxDescription)
	}
	if !spec.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", core.ErrInvalidListing, spec.Category)
	}
	if spec.Price <= s.bounds.MinPrice || spec.Price > s.bounds.MaxPrice {
		return fmt.Errorf("%w: price %v outside (%v, %v]", core.ErrInvalidListing, spec.Price, s.bounds.MinPrice, s.bounds.MaxPrice)
	}
	return nil
}

// Get returns a clone of the listing with id.
func (s *Store) Get(id string) (*core.IntelligenceListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	listing, ok := s.listings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrIntelligenceNotFound, id)
	}
	return listing.Clone(), nil
}

// All returns clones of every listing in insertion order.
func (s *Store) All() []core.IntelligenceListing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.IntelligenceListing, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.listings[id].Clone())
	}
	return out
}

// Count returns the number of listings.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listings)
}

// Search applies the optional filters and orders the result descending by the
// freshness-weighted quality score
//
//	0.7*qualityScore + 0.3*ageInDays
//
// with listing id as a deterministic tie-break. Filters are lenient:
// non-positive numeric filters and empty strings are ignored. Filter
// application is commutative, so any combination order yields the same set.
func (s *Store) Search(filters core.SearchFilters) []core.IntelligenceListing {
	s.mu.RLock()
	now := time.Now().UTC()
	matched := make([]core.IntelligenceListing, 0, len(s.order))
	for _, id := range s.order {
		listing := s.listings[id]
		if filters.Category != "" && listing.Category != filters.Category {
			continue
		}
		if filters.MaxPrice > 0 && listing.Price > filters.MaxPrice {
			continue
		}
		if filters.MinQuality > 0 && listing.QualityScore < filters.MinQuality {
			continue
		}
		if filters.SellerKey != "" && listing.SellerKey != filters.SellerKey {
			continue
		}
		matched = append(matched, *listing.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		si := searchScore(&matched[i], now)
		sj := searchScore(&matched[j], now)
		if si != sj {
			return si > sj
		}
		return matched[i].ID < matched[j].ID
	})
	return matched
}

func searchScore(l *core.IntelligenceListing, now time.Time) float64 {
	ageDays := now.Sub(l.CreatedAt).Hours() / 24
	return l.QualityScore*0.7 + ageDays*0.3
}

// RecordSale increments the listing's sales counter.
func (s *Store) RecordSale(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	listing, ok := s.listings[id]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrIntelligenceNotFound, id)
	}
	listing.SalesCount++
	return nil
}

// RecomputeRating sets the listing's rating to the arithmetic mean of all
// rated transactions referencing it. A listing with no rated transactions is
// left unchanged.
func (s *Store) RecomputeRating(id string, transactions []core.Transaction) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	listing, ok := s.listings[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", core.ErrIntelligenceNotFound, id)
	}
	var sum, count int
	for i := range transactions {
		tx := &transactions[i]
		if tx.ListingID != id || tx.Rating == nil {
			continue
		}
		sum += *tx.Rating
		count++
	}
	if count == 0 {
		return listing.Rating, nil
	}
	listing.Rating = float64(sum) / float64(count)
	return listing.Rating, nil
}
