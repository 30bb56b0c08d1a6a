package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/intelmarket/core"
	"github.com/hupe1980/intelmarket/logging"
	"github.com/hupe1980/intelmarket/mirror"
)

// Store is the in-memory marketplace history. It offers:
//  1. Append-only per-agent records with capped retention (oldest evicted)
//  2. Substring search over derived search text
//  3. An aggregated AgentMemoryProfile per agent, updated on every record
//
// Concurrency: protected by RWMutex. Search is a linear scan; swap the
// backing store for an indexed implementation when history grows beyond what
// a single process should scan.
type Store struct {
	mu       sync.RWMutex
	records  map[string][]*core.MemoryRecord
	profiles map[string]*core.AgentMemoryProfile

	retentionCap int
	searchCap    int
	persist      *mirror.Tee
	logger       logging.Logger
}

// NewStore creates a memory store. retentionCap bounds records kept per
// agent; searchCap bounds search results. persist may be nil to disable the
// best-effort external mirror.
func NewStore(retentionCap, searchCap int, persist *mirror.Tee, logger logging.Logger) *Store {
	return &Store{
		records:      make(map[string][]*core.MemoryRecord),
		profiles:     make(map[string]*core.AgentMemoryProfile),
		retentionCap: retentionCap,
		searchCap:    searchCap,
		persist:      persist,
		logger:       logging.OrNoOp(logger),
	}
}

// Record appends a memory record for the agent, derives its search text,
// updates the agent's aggregated profile and mirrors the record best-effort.
// The local append always succeeds regardless of the mirror outcome.
func (s *Store) Record(ctx context.Context, agentKey string, typ core.MemoryType, content map[string]any, md core.MemoryMetadata) (*core.MemoryRecord, error) {
	if agentKey == "" {
		return nil, fmt.Errorf("%w: agent key is required", core.ErrInvalidInput)
	}
	switch typ {
	case core.MemoryTypePurchase, core.MemoryTypeSale, core.MemoryTypeRating, core.MemoryTypeReputation:
	default:
		return nil, fmt.Errorf("%w: unknown memory type %q", core.ErrInvalidInput, typ)
	}
	record := &core.MemoryRecord{
		ID:         core.NewID(),
		AgentKey:   agentKey,
		Type:       typ,
		Content:    content,
		Metadata:   md,
		SearchText: deriveSearchText(agentKey, typ, content, md),
		Timestamp:  time.Now().UTC(),
	}

	s.mu.Lock()
	s.records[agentKey] = append(s.records[agentKey], record)
	if over := len(s.records[agentKey]) - s.retentionCap; over > 0 {
		s.records[agentKey] = s.records[agentKey][over:]
	}
	s.updateProfileLocked(agentKey, typ, md)
	s.mu.Unlock()

	if s.persist != nil {
		res := s.persist.Record(ctx, "memory/"+agentKey+"/"+record.ID, record.Clone())
		if !res.RemoteOK && res.RemoteErr != nil {
			s.logger.Debug("memory mirror degraded to local", "agent_key", agentKey, "record_id", record.ID)
		}
	}
	return record.Clone(), nil
}

// deriveSearchText concatenates the record's dimensions, case-folded, so
// substring search covers type, category, content values and the agent key.
func deriveSearchText(agentKey string, typ core.MemoryType, content map[string]any, md core.MemoryMetadata) string {
	parts := []string{string(typ), string(md.Category), md.ListingID}
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%v", content[k]))
	}
	parts = append(parts, agentKey)
	return strings.ToLower(strings.Join(parts, " "))
}

// updateProfileLocked applies one record's aggregation to the agent profile,
// creating it lazily. Caller holds the write lock.
func (s *Store) updateProfileLocked(agentKey string, typ core.MemoryType, md core.MemoryMetadata) {
	profile, ok := s.profiles[agentKey]
	if !ok {
		profile = &core.AgentMemoryProfile{
			AgentKey:          agentKey,
			CategoryFrequency: make(map[core.Category]int),
		}
		s.profiles[agentKey] = profile
	}
	switch typ {
	case core.MemoryTypePurchase:
		profile.TransactionCount++
		profile.TotalSpent += md.Price
		if md.Category != "" {
			profile.CategoryFrequency[md.Category]++
		}
	case core.MemoryTypeSale:
		profile.TransactionCount++
		profile.TotalEarned += md.Price
	}
	if md.Effectiveness > 0 && md.ListingID != "" {
		profile.Effectiveness = append(profile.Effectiveness, core.EffectivenessEntry{
			ListingID:     md.ListingID,
			Category:      md.Category,
			Effectiveness: md.Effectiveness,
		})
	}
	profile.LastUpdated = time.Now().UTC()
}

// Query narrows a memory search. All fields are optional.
type Query struct {
	AgentKey         string
	Type             core.MemoryType
	Category         core.Category
	Text             string
	From             *time.Time
	To               *time.Time
	MinEffectiveness float64
}

// Search filters the stored records and returns at most the configured cap,
// most recent first.
func (s *Store) Search(q Query) []core.MemoryRecord {
	s.mu.RLock()
	var matched []core.MemoryRecord
	scan := func(records []*core.MemoryRecord) {
		for _, r := range records {
			if q.Type != "" && r.Type != q.Type {
				continue
			}
			if q.Category != "" && r.Metadata.Category != q.Category {
				continue
			}
			if q.Text != "" && !strings.Contains(r.SearchText, strings.ToLower(q.Text)) {
				continue
			}
			if q.From != nil && r.Timestamp.Before(*q.From) {
				continue
			}
			if q.To != nil && r.Timestamp.After(*q.To) {
				continue
			}
			if q.MinEffectiveness > 0 && r.Metadata.Effectiveness < q.MinEffectiveness {
				continue
			}
			matched = append(matched, *r.Clone())
		}
	}
	if q.AgentKey != "" {
		scan(s.records[q.AgentKey])
	} else {
		agents := make([]string, 0, len(s.records))
		for key := range s.records {
			agents = append(agents, key)
		}
		sort.Strings(agents)
		for _, key := range agents {
			scan(s.records[key])
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	if len(matched) > s.searchCap {
		matched = matched[:s.searchCap]
	}
	return matched
}

// Advice splits an agent's recorded effectiveness into listings worth
// returning to and listings to avoid.
type Advice struct {
	Recommended []string `json:"recommended"`
	Avoided     []string `json:"avoided"`
	Rationale   string   `json:"rationale"`
}

// Effectiveness boundaries for the advice split.
const (
	recommendFloor = 0.7
	avoidCeiling   = 0.3
)

// Recommendations partitions the agent's effectiveness history into
// recommended (>= 0.7) and avoided (< 0.3) listing ids, optionally filtered
// by category.
func (s *Store) Recommendations(agentKey string, category core.Category) (*Advice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[agentKey]
	if !ok {
		return nil, fmt.Errorf("%w: no memory profile for %s", core.ErrAgentNotFound, agentKey)
	}
	advice := &Advice{}
	for _, entry := range profile.Effectiveness {
		if category != "" && entry.Category != category {
			continue
		}
		switch {
		case entry.Effectiveness >= recommendFloor:
			advice.Recommended = append(advice.Recommended, entry.ListingID)
		case entry.Effectiveness < avoidCeiling:
			advice.Avoided = append(advice.Avoided, entry.ListingID)
		}
	}
	advice.Rationale = fmt.Sprintf(
		"based on %d effectiveness observations: %d listings proved effective (>= %.0f%%), %d underperformed (< %.0f%%)",
		len(profile.Effectiveness), len(advice.Recommended), recommendFloor*100, len(advice.Avoided), avoidCeiling*100)
	return advice, nil
}

// Patterns summarizes an agent's behavior from its profile.
type Patterns struct {
	TopCategories []core.Category `json:"top_categories,omitempty"`
	AverageSpend  float64         `json:"average_spend"`
	SuccessRate   float64         `json:"success_rate"`
	Insights      []string        `json:"insights,omitempty"`
}

// Patterns derives the agent's top three categories by frequency, average
// spend per transaction, success rate (effectiveness >= 0.6) and a short
// insight list.
func (s *Store) Patterns(agentKey string) (*Patterns, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[agentKey]
	if !ok {
		return nil, fmt.Errorf("%w: no memory profile for %s", core.ErrAgentNotFound, agentKey)
	}
	p := &Patterns{}

	categories := make([]core.Category, 0, len(profile.CategoryFrequency))
	for c := range profile.CategoryFrequency {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		fi, fj := profile.CategoryFrequency[categories[i]], profile.CategoryFrequency[categories[j]]
		if fi != fj {
			return fi > fj
		}
		return categories[i] < categories[j]
	})
	if len(categories) > 3 {
		categories = categories[:3]
	}
	p.TopCategories = categories

	if profile.TransactionCount > 0 {
		p.AverageSpend = profile.TotalSpent / float64(profile.TransactionCount)
	}
	if n := len(profile.Effectiveness); n > 0 {
		successes := 0
		for _, entry := range profile.Effectiveness {
			if entry.Effectiveness >= 0.6 {
				successes++
			}
		}
		p.SuccessRate = float64(successes) / float64(n)
	}

	if len(p.TopCategories) > 0 {
		p.Insights = append(p.Insights, fmt.Sprintf("most active in %s", p.TopCategories[0]))
	}
	if p.SuccessRate >= 0.7 {
		p.Insights = append(p.Insights, "purchases are consistently effective")
	} else if len(profile.Effectiveness) > 0 && p.SuccessRate < 0.4 {
		p.Insights = append(p.Insights, "recent purchases underperform; consider different sellers")
	}
	if profile.TotalEarned > profile.TotalSpent {
		p.Insights = append(p.Insights, "net seller: earnings exceed spend")
	}
	return p, nil
}

// Profile returns a clone of the agent's aggregated profile, or an empty
// profile when no record has been made yet.
func (s *Store) Profile(agentKey string) *core.AgentMemoryProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if profile, ok := s.profiles[agentKey]; ok {
		return profile.Clone()
	}
	return &core.AgentMemoryProfile{AgentKey: agentKey, CategoryFrequency: map[core.Category]int{}}
}

// Records returns clones of the agent's retained records, oldest first.
func (s *Store) Records(agentKey string) []core.MemoryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.records[agentKey]
	out := make([]core.MemoryRecord, 0, len(stored))
	for _, r := range stored {
		out = append(out, *r.Clone())
	}
	return out
}

// Counts returns the total number of records and profiles held.
func (s *Store) Counts() (records, profiles int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rs := range s.records {
		records += len(rs)
	}
	return records, len(s.profiles)
}
