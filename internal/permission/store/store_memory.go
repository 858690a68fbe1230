// Package store persists permission grants.
package store

import (
	"context"
	"slices"
	"sync"

	"attestor/internal/permission/models"
	id "attestor/pkg/domain"
	"attestor/pkg/platform/sentinel"
)

// InMemory keeps permissions in a map. Mutations lock only the shard of the
// permission they touch; the map lock is held just for reads and writes.
type InMemory struct {
	mu          sync.RWMutex
	permissions map[id.PermissionID]*models.Permission
	locks       shardedLocks
}

func NewInMemory() *InMemory {
	return &InMemory{permissions: make(map[id.PermissionID]*models.Permission)}
}

func (s *InMemory) Create(_ context.Context, p *models.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.permissions[p.ID]; exists {
		return sentinel.ErrConflict
	}
	s.permissions[p.ID] = p.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, pid id.PermissionID) (*models.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.permissions[pid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return p.Clone(), nil
}

// ListByDID returns every permission where did is owner or recipient, oldest first.
func (s *InMemory) ListByDID(_ context.Context, did id.DID) ([]*models.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Permission
	for _, p := range s.permissions {
		if p.Involves(did) {
			out = append(out, p.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *models.Permission) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	return out, nil
}

// Execute validates and mutates a copy while holding the permission's shard lock.
func (s *InMemory) Execute(ctx context.Context, pid id.PermissionID, validate func(*models.Permission) error, mutate func(*models.Permission)) (*models.Permission, error) {
	var out *models.Permission
	err := s.locks.withKey(ctx, pid.String(), func() error {
		p, err := s.FindByID(ctx, pid)
		if err != nil {
			return err
		}
		if err := validate(p); err != nil {
			return err
		}
		mutate(p)
		s.mu.Lock()
		s.permissions[pid] = p.Clone()
		s.mu.Unlock()
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
