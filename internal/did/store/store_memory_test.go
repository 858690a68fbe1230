package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"attestor/internal/did/models"
	id "attestor/pkg/domain"
	"attestor/pkg/platform/sentinel"
)

type InMemorySuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func (s *InMemorySuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func newRecord(email string) *models.Record {
	ident, err := models.NewEmailIdentifier(email)
	if err != nil {
		panic(err)
	}
	did := ident.DID()
	now := time.Now().UTC()
	return &models.Record{
		Info: models.Info{
			DID:            did,
			Method:         ident.Method(),
			IdentifierKind: ident.Kind,
			IdentifierHash: ident.Hash(),
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		Document: models.NewDocument(did, "Ed25519VerificationKey2020", "z6MkTest"),
	}
}

func (s *InMemorySuite) TestCreateAndFind() {
	rec := newRecord("a@x.com")
	s.Require().NoError(s.store.CreateIfIdentifierAvailable(s.ctx, rec))

	found, err := s.store.FindByDID(s.ctx, rec.Info.DID)
	s.Require().NoError(err)
	s.Equal(rec, found)

	found.Document.Authentication[0] = "tampered"
	again, err := s.store.FindByDID(s.ctx, rec.Info.DID)
	s.Require().NoError(err)
	s.Equal(rec.Document.Authentication, again.Document.Authentication)

	_, err = s.store.FindByDID(s.ctx, id.DID("did:email:none"))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemorySuite) TestIdentifierUniqueness() {
	s.Require().NoError(s.store.CreateIfIdentifierAvailable(s.ctx, newRecord("a@x.com")))
	err := s.store.CreateIfIdentifierAvailable(s.ctx, newRecord("A@x.com"))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *InMemorySuite) TestConcurrentCreate() {
	var (
		wg      sync.WaitGroup
		created atomic.Int32
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.store.CreateIfIdentifierAvailable(s.ctx, newRecord("race@x.com")); err == nil {
				created.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), created.Load())
}

func (s *InMemorySuite) TestExecute() {
	rec := newRecord("exec@x.com")
	s.Require().NoError(s.store.CreateIfIdentifierAvailable(s.ctx, rec))

	s.Run("validate error leaves record untouched", func() {
		_, err := s.store.Execute(s.ctx, rec.Info.DID,
			func(*models.Record) error { return errors.New("nope") },
			func(r *models.Record) { r.Info.Verified = true },
		)
		s.Require().Error(err)
		found, _ := s.store.FindByDID(s.ctx, rec.Info.DID)
		s.False(found.Info.Verified)
	})

	s.Run("mutation is persisted", func() {
		updated, err := s.store.Execute(s.ctx, rec.Info.DID,
			func(*models.Record) error { return nil },
			func(r *models.Record) { r.Info.Verified = true },
		)
		s.Require().NoError(err)
		s.True(updated.Info.Verified)
		found, _ := s.store.FindByDID(s.ctx, rec.Info.DID)
		s.True(found.Info.Verified)
	})

	s.Run("unknown DID", func() {
		_, err := s.store.Execute(s.ctx, "did:email:none",
			func(*models.Record) error { return nil },
			func(*models.Record) {},
		)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}
