//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"attestor/internal/permission/models"
	"attestor/internal/permission/store"
	"attestor/internal/platform/postgres"
	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
	"attestor/pkg/platform/sentinel"
	"attestor/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.Require().NoError(postgres.Migrate(s.ctx, s.postgres.DB))
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(s.ctx, "permissions"))
}

func permission(owner, recipient id.DID, createdAt time.Time) *models.Permission {
	exp := createdAt.Add(time.Hour)
	return &models.Permission{
		ID:           id.NewPermissionID(),
		OwnerDID:     owner,
		RecipientDID: recipient,
		Type:         models.TypePartial,
		Grants: []models.CredentialGrant{{
			CredentialID: id.NewCredentialID(),
			Scopes:       []models.Scope{models.ScopeRead, models.ScopeVerify},
			Fields:       []string{"name"},
		}},
		Status:      models.StatusActive,
		Description: "loan application",
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
		ExpiresAt:   &exp,
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	p := permission("did:email:a", "did:email:b", time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(s.store.Create(s.ctx, p))

	got, err := s.store.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p, got)

	s.ErrorIs(s.store.Create(s.ctx, p), sentinel.ErrConflict)

	_, err = s.store.FindByID(s.ctx, id.NewPermissionID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListByDID() {
	base := time.Now().UTC().Truncate(time.Microsecond)
	second := permission("did:email:a", "did:email:b", base.Add(time.Minute))
	first := permission("did:email:c", "did:email:a", base)
	other := permission("did:email:c", "did:email:d", base)
	for _, p := range []*models.Permission{second, first, other} {
		s.Require().NoError(s.store.Create(s.ctx, p))
	}

	list, err := s.store.ListByDID(s.ctx, "did:email:a")
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(first.ID, list[0].ID)
	s.Equal(second.ID, list[1].ID)
}

func (s *PostgresStoreSuite) TestExecute() {
	now := time.Now().UTC().Truncate(time.Microsecond)
	p := permission("did:email:a", "did:email:b", now)
	s.Require().NoError(s.store.Create(s.ctx, p))

	s.Run("validate failure rolls back", func() {
		_, err := s.store.Execute(s.ctx, p.ID,
			func(cur *models.Permission) error { return cur.CanRevoke("did:email:b") },
			func(cur *models.Permission) { cur.ApplyRevocation(now) },
		)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		got, err := s.store.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusActive, got.Status)
	})

	s.Run("update persists", func() {
		desc := "mortgage"
		_, err := s.store.Execute(s.ctx, p.ID,
			func(cur *models.Permission) error { return cur.CanUpdate("did:email:a", now) },
			func(cur *models.Permission) {
				cur.ApplyUpdate(&models.UpdateRequest{ClearExpiry: true, Description: &desc}, now)
			},
		)
		s.Require().NoError(err)
		got, err := s.store.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Nil(got.ExpiresAt)
		s.Equal("mortgage", got.Description)
	})

	s.Run("revocation persists", func() {
		_, err := s.store.Execute(s.ctx, p.ID,
			func(cur *models.Permission) error { return cur.CanRevoke("did:email:a") },
			func(cur *models.Permission) { cur.ApplyRevocation(now) },
		)
		s.Require().NoError(err)
		got, err := s.store.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusRevoked, got.Status)
		s.Require().NotNil(got.RevokedAt)
		s.Equal(now, *got.RevokedAt)
	})

	s.Run("unknown id", func() {
		_, err := s.store.Execute(s.ctx, id.NewPermissionID(),
			func(*models.Permission) error { return nil },
			func(*models.Permission) {},
		)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}
