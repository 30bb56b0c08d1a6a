// Package registry owns agent identities and reputation. It is a volatile
// process-local store in the same mold as the other marketplace stores: a
// mutex-guarded map that clones on read so callers can never mutate internal
// state.
package registry

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/intelmarket/core"
	"github.com/hupe1980/intelmarket/logging"
)

// Store is an in-memory agent registry. Safe for concurrent access. Insertion
// order is tracked so reputation ranking has a stable tie-break.
type Store struct {
	mu     sync.RWMutex
	agents map[string]*core.AgentProfile
	order  []string

	defaultReputation int
	maxReputation     int
	maxRating         int
	logger            logging.Logger
}

// NewStore constructs an empty registry. defaultReputation seeds every new
// profile; maxReputation and maxRating bound the recompute mapping.
func NewStore(defaultReputation, maxReputation, maxRating int, logger logging.Logger) *Store {
	return &Store{
		agents:            make(map[string]*core.AgentProfile),
		defaultReputation: defaultReputation,
		maxReputation:     maxReputation,
		maxRating:         maxRating,
		logger:            logging.OrNoOp(logger),
	}
}

// Register creates a new agent profile. Registration is strict: a key that is
// already present fails with core.ErrAgentExists rather than upserting, so
// reputation and the monotonic counters can never be silently reset.
func (s *Store) Register(key, name, description string, specializations []string) (*core.AgentProfile, error) {
	if key == "" || name == "" {
		return nil, fmt.Errorf("%w: agent key and name are required", core.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[key]; ok {
		return nil, fmt.Errorf("%w: %s", core.ErrAgentExists, key)
	}
	profile := &core.AgentProfile{
		Key:             key,
		Name:            name,
		Description:     description,
		Specializations: append([]string(nil), specializations...),
		Reputation:      s.defaultReputation,
		CreatedAt:       time.Now().UTC(),
	}
	s.agents[key] = profile
	s.order = append(s.order, key)
	s.logger.Info("agent registered", "agent_key", key, "name", name)
	return profile.Clone(), nil
}

// Get returns a clone of the profile for key.
func (s *Store) Get(key string) (*core.AgentProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.agents[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrAgentNotFound, key)
	}
	return profile.Clone(), nil
}

// Exists reports whether key is registered.
func (s *Store) Exists(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.agents[key]
	return ok
}

// All returns clones of every profile in insertion order.
func (s *Store) All() []core.AgentProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.AgentProfile, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, *s.agents[key].Clone())
	}
	return out
}

// Count returns the number of registered agents.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.agents)
}

// TopByReputation returns up to limit profiles sorted descending by
// reputation. Ties keep insertion order. The limit is clamped to
// [0, agent count]; zero yields an empty slice.
func (s *Store) TopByReputation(limit int) []core.AgentProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit < 0 {
		limit = 0
	}
	if limit > len(s.order) {
		limit = len(s.order)
	}
	ranked := make([]core.AgentProfile, 0, len(s.order))
	for _, key := range s.order {
		ranked = append(ranked, *s.agents[key].Clone())
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Reputation > ranked[j].Reputation
	})
	return ranked[:limit]
}

// RecordSale increments the seller's sales counter and accumulates amount into
// total earnings. The amount is applied as-is without a sign check; negative
// adjustments reduce earnings. An unknown key is a no-op, not an error.
func (s *Store) RecordSale(key string, amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.agents[key]
	if !ok {
		return
	}
	profile.TotalSales++
	profile.TotalEarnings += amount
}

// RecomputeReputation maps the mean of all ratings the agent received as a
// seller onto the configured reputation range:
//
//	reputation = round((mean / maxRating) * maxReputation)
//
// clamped to [0, maxReputation]. When the agent has no rated transactions the
// reputation is left unchanged rather than reset.
func (s *Store) RecomputeReputation(key string, transactions []core.Transaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.agents[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", core.ErrAgentNotFound, key)
	}
	var sum, count int
	for i := range transactions {
		tx := &transactions[i]
		if tx.SellerKey != key || tx.Rating == nil {
			continue
		}
		sum += *tx.Rating
		count++
	}
	if count == 0 {
		return profile.Reputation, nil
	}
	mean := float64(sum) / float64(count)
	reputation := int(math.Round(mean / float64(s.maxRating) * float64(s.maxReputation)))
	if reputation < 0 {
		reputation = 0
	}
	if reputation > s.maxReputation {
		reputation = s.maxReputation
	}
	profile.Reputation = reputation
	s.logger.Debug("reputation recomputed", "agent_key", key, "reputation", reputation, "rated_transactions", count)
	return reputation, nil
}
