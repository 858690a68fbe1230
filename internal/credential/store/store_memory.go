// Package store persists issued credentials.
package store

import (
	"context"
	"sync"

	"attestor/internal/credential/models"
	id "attestor/pkg/domain"
	"attestor/pkg/platform/sentinel"
)

// InMemory keeps credentials in a process-local map. Mutations on any key are
// serialized by the write lock; reads share the read lock.
type InMemory struct {
	mu          sync.RWMutex
	credentials map[id.CredentialID]*models.Credential
}

func NewInMemory() *InMemory {
	return &InMemory{credentials: make(map[id.CredentialID]*models.Credential)}
}

func (s *InMemory) Create(_ context.Context, c *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.credentials[c.ID]; exists {
		return sentinel.ErrConflict
	}
	s.credentials[c.ID] = c.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, cid id.CredentialID) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.credentials[cid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return c.Clone(), nil
}

// Execute validates and mutates a copy under the write lock and stores it.
func (s *InMemory) Execute(_ context.Context, cid id.CredentialID, validate func(*models.Credential) error, mutate func(*models.Credential)) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.credentials[cid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := current.Clone()
	if err := validate(c); err != nil {
		return nil, err
	}
	mutate(c)
	s.credentials[cid] = c.Clone()
	return c, nil
}
