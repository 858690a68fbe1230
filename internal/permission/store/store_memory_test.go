package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attestor/internal/permission/models"
	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
	"attestor/pkg/platform/sentinel"
)

func newPermission(owner, recipient id.DID, createdAt time.Time) *models.Permission {
	return &models.Permission{
		ID:           id.NewPermissionID(),
		OwnerDID:     owner,
		RecipientDID: recipient,
		Type:         models.TypeOneTime,
		Grants: []models.CredentialGrant{{
			CredentialID: id.NewCredentialID(),
			Scopes:       []models.Scope{models.ScopeRead},
		}},
		Status:    models.StatusActive,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestInMemoryCreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	p := newPermission("did:email:a", "did:email:b", time.Now())
	require.NoError(t, s.Create(ctx, p))
	assert.ErrorIs(t, s.Create(ctx, p), sentinel.ErrConflict)

	got, err := s.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	got.Grants[0].Scopes[0] = models.ScopeWrite
	again, err := s.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScopeRead, again.Grants[0].Scopes[0])

	_, err = s.FindByID(ctx, id.NewPermissionID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryListByDID(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	second := newPermission("did:email:a", "did:email:b", base.Add(time.Minute))
	first := newPermission("did:email:c", "did:email:a", base)
	other := newPermission("did:email:c", "did:email:d", base)
	for _, p := range []*models.Permission{second, first, other} {
		require.NoError(t, s.Create(ctx, p))
	}

	list, err := s.ListByDID(ctx, "did:email:a")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	none, err := s.ListByDID(ctx, "did:email:zzz")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInMemoryExecute(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	p := newPermission("did:email:a", "did:email:b", time.Now())
	require.NoError(t, s.Create(ctx, p))

	t.Run("validate error leaves record untouched", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := s.Execute(ctx, p.ID,
			func(*models.Permission) error { return boom },
			func(cur *models.Permission) { cur.Status = models.StatusRevoked },
		)
		assert.ErrorIs(t, err, boom)
		got, _ := s.FindByID(ctx, p.ID)
		assert.Equal(t, models.StatusActive, got.Status)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := s.Execute(ctx, id.NewPermissionID(),
			func(*models.Permission) error { return nil },
			func(*models.Permission) {},
		)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("cancelled context is a timeout", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.Execute(cancelled, p.ID,
			func(*models.Permission) error { return nil },
			func(*models.Permission) {},
		)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
	})
}

func TestInMemoryExecuteConsumesOnce(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	p := newPermission("did:email:a", "did:email:b", time.Now())
	require.NoError(t, s.Create(ctx, p))
	cid := p.Grants[0].CredentialID
	now := time.Now()

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Execute(ctx, p.ID,
				func(cur *models.Permission) error {
					_, err := cur.CanAccess(cur.RecipientDID, cid, now)
					return err
				},
				func(cur *models.Permission) { cur.ApplyAccess(now) },
			)
			if err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), successes.Load())

	got, err := s.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, got.Status)
	assert.NotNil(t, got.ConsumedAt)
}
