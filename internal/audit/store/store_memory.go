// Package store holds the audit entry stores. Both are append-only: there is
// no update or delete path.
package store

import (
	"context"
	"maps"
	"sort"
	"sync"

	"attestor/internal/audit"
	id "attestor/pkg/domain"
	"attestor/pkg/platform/sentinel"
)

// InMemoryStore keeps entries in append order.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []audit.Entry
	ids     map[id.AuditEntryID]struct{}
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{ids: make(map[id.AuditEntryID]struct{})}
}

// Append stores a copy of entry. Reusing an ID is a conflict.
func (s *InMemoryStore) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.ids[entry.ID]; dup {
		return sentinel.ErrConflict
	}
	s.ids[entry.ID] = struct{}{}
	s.entries = append(s.entries, cloneEntry(entry))
	return nil
}

// Query filters, sorts newest-first (later appends win ties) and pages.
func (s *InMemoryStore) Query(_ context.Context, filter audit.Filter) ([]audit.Entry, int, error) {
	s.mu.RLock()
	matched := make([]audit.Entry, 0)
	for i := len(s.entries) - 1; i >= 0; i-- {
		if filter.Matches(s.entries[i]) {
			matched = append(matched, cloneEntry(s.entries[i]))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	total := len(matched)
	start := min(filter.Offset(), total)
	end := min(start+filter.Limit, total)
	return matched[start:end], total, nil
}

func cloneEntry(e audit.Entry) audit.Entry {
	e.Details = maps.Clone(e.Details)
	if e.Client != nil {
		c := *e.Client
		e.Client = &c
	}
	return e
}
