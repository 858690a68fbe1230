// Package store persists DID records.
package store

import (
	"context"
	"sync"

	"attestor/internal/did/models"
	id "attestor/pkg/domain"
	"attestor/pkg/platform/sentinel"
)

// InMemory is a process-local DID store. Records are copied on the way in and out.
type InMemory struct {
	mu           sync.RWMutex
	byDID        map[id.DID]*models.Record
	byIdentifier map[string]id.DID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byDID:        make(map[id.DID]*models.Record),
		byIdentifier: make(map[string]id.DID),
	}
}

// CreateIfIdentifierAvailable inserts rec unless its identifier hash or DID is
// already registered, in which case it returns sentinel.ErrAlreadyUsed.
func (s *InMemory) CreateIfIdentifierAvailable(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byIdentifier[rec.Info.IdentifierHash]; taken {
		return sentinel.ErrAlreadyUsed
	}
	if _, taken := s.byDID[rec.Info.DID]; taken {
		return sentinel.ErrAlreadyUsed
	}
	s.byDID[rec.Info.DID] = rec.Clone()
	s.byIdentifier[rec.Info.IdentifierHash] = rec.Info.DID
	return nil
}

func (s *InMemory) FindByDID(_ context.Context, did id.DID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byDID[did]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rec.Clone(), nil
}

// Execute runs validate then mutate on a copy of the record under the store
// lock and saves the result. A validate error leaves the record untouched.
func (s *InMemory) Execute(_ context.Context, did id.DID, validate func(*models.Record) error, mutate func(*models.Record)) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.byDID[did]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	rec := current.Clone()
	if err := validate(rec); err != nil {
		return nil, err
	}
	mutate(rec)
	s.byDID[did] = rec.Clone()
	return rec, nil
}
