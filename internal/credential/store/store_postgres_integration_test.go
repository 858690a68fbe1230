//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"attestor/internal/credential/models"
	"attestor/internal/credential/store"
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
	s.Require().NoError(s.postgres.Truncate(s.ctx, "credentials"))
}

func credential() *models.Credential {
	now := time.Now().UTC().Truncate(time.Microsecond)
	exp := now.Add(time.Hour)
	return &models.Credential{
		ID:        id.NewCredentialID(),
		Type:      models.DefaultType,
		Issuer:    "did:email:issuer",
		Subject:   "did:email:subject",
		Claims:    map[string]any{"name": "Ada", "age": float64(36)},
		IssuedAt:  now,
		ExpiresAt: &exp,
		Status:    models.StatusActive,
		Proof: models.Proof{
			Type:               "Ed25519Signature2020",
			Created:            now,
			VerificationMethod: "did:email:issuer#keys-1",
			ProofPurpose:       models.ProofPurposeAssert,
			ProofValue:         "zsig",
		},
		AnchorRef: "0xtx",
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	c := credential()
	s.Require().NoError(s.store.Create(s.ctx, c))

	got, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(c, got)

	s.ErrorIs(s.store.Create(s.ctx, c), sentinel.ErrConflict)

	_, err = s.store.FindByID(s.ctx, id.NewCredentialID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestExecuteRevocation() {
	c := credential()
	s.Require().NoError(s.store.Create(s.ctx, c))
	now := time.Now().UTC().Truncate(time.Microsecond)

	s.Run("validate failure rolls back", func() {
		_, err := s.store.Execute(s.ctx, c.ID,
			func(cur *models.Credential) error { return cur.CanRevoke("did:email:other") },
			func(cur *models.Credential) { cur.ApplyRevocation("did:email:other", "", now) },
		)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		got, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusActive, got.Status)
	})

	s.Run("revocation persists", func() {
		_, err := s.store.Execute(s.ctx, c.ID,
			func(cur *models.Credential) error { return cur.CanRevoke(cur.Issuer) },
			func(cur *models.Credential) { cur.ApplyRevocation(cur.Issuer, "compromised", now) },
		)
		s.Require().NoError(err)

		got, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusRevoked, got.Status)
		s.Require().NotNil(got.Revocation)
		s.Equal(now, got.Revocation.RevokedAt)
		s.Equal(c.Issuer, got.Revocation.RevokedBy)
		s.Equal("compromised", got.Revocation.Reason)
	})

	s.Run("unknown id", func() {
		_, err := s.store.Execute(s.ctx, id.NewCredentialID(),
			func(*models.Credential) error { return nil },
			func(*models.Credential) {},
		)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}
