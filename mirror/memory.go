package mirror

import (
	"context"
	"sync"
)

// MemorySink is a volatile Sink keeping records in a process-local map.
// Used as the default local path and in tests.
type MemorySink struct {
	mu      sync.RWMutex
	records map[string]any
}

// NewMemorySink constructs an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{records: make(map[string]any)}
}

// Name identifies the sink.
func (s *MemorySink) Name() string { return "memory" }

// Put stores value under key.
func (s *MemorySink) Put(_ context.Context, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = value
	return nil
}

// Get returns the stored value and whether it exists.
func (s *MemorySink) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	return v, ok
}

// Len returns the number of stored records.
func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
