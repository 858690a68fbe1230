package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"attestor/internal/audit"
	auditstore "attestor/internal/audit/store"
	credmodels "attestor/internal/credential/models"
	credservice "attestor/internal/credential/service"
	credstore "attestor/internal/credential/store"
	didmodels "attestor/internal/did/models"
	"attestor/internal/did/resolver"
	"attestor/internal/permission/models"
	"attestor/internal/permission/service"
	"attestor/internal/permission/service/mocks"
	"attestor/internal/permission/store"
	"attestor/internal/proof"
	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
	"attestor/pkg/requestcontext"
)

const (
	issuerDID    = id.DID("did:email:issuer0000000000000000000000000")
	ownerDID     = id.DID("did:ethr:0x00000000000000000000000000000000000000aa")
	recipientDID = id.DID("did:web:github:verifier")
)

type ServiceSuite struct {
	suite.Suite
	ctx         context.Context
	now         time.Time
	proofs      *proof.Service
	doc         *didmodels.Document
	credentials *credservice.Service
	store       *store.InMemory
	auditStore  *auditstore.InMemoryStore
	auditLog    *audit.Log
	svc         *service.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.proofs = proof.New()

	pub, err := s.proofs.GenerateKeyPair(s.ctx, issuerDID.Method(), didmodels.KeyID(issuerDID, 1))
	s.Require().NoError(err)
	s.doc = didmodels.NewDocument(issuerDID, pub.Type, pub.Multibase)
	res := resolver.Func(func(_ context.Context, did id.DID) (*didmodels.Document, error) {
		if did != issuerDID {
			return nil, dErrors.New(dErrors.CodeNotFound, "DID not found")
		}
		return s.doc.Clone(), nil
	})
	s.credentials = credservice.New(credstore.NewInMemory(), res, s.proofs)

	s.store = store.NewInMemory()
	s.auditStore = auditstore.NewInMemoryStore()
	s.auditLog = audit.NewLog(s.auditStore)
	s.svc = service.New(s.store, s.auditLog, service.WithDisclosure(s.credentials, s.proofs))
}

func (s *ServiceSuite) issueCredential() *credmodels.Credential {
	off := false
	c, err := s.credentials.Issue(s.ctx, &credmodels.IssueRequest{
		Issuer:        issuerDID.String(),
		Subject:       ownerDID.String(),
		Claims:        map[string]any{"name": "Ada", "degree": "BSc", "gpa": 3.9},
		AnchorOnChain: &off,
	})
	s.Require().NoError(err)
	return c
}

func (s *ServiceSuite) setRequest(t models.Type, grants ...models.GrantInput) *models.SetRequest {
	return &models.SetRequest{
		OwnerDID:     ownerDID.String(),
		RecipientDID: recipientDID.String(),
		Type:         string(t),
		Grants:       grants,
	}
}

func readGrant(cid id.CredentialID, fields ...string) models.GrantInput {
	return models.GrantInput{CredentialID: cid.String(), Scopes: []string{"read"}, Fields: fields}
}

func (s *ServiceSuite) grant(t models.Type, mut ...func(*models.SetRequest)) (*models.Permission, *credmodels.Credential) {
	c := s.issueCredential()
	var fields []string
	if t == models.TypePartial {
		fields = []string{"degree"}
	}
	req := s.setRequest(t, readGrant(c.ID, fields...))
	for _, m := range mut {
		m(req)
	}
	p, err := s.svc.Set(s.ctx, req)
	s.Require().NoError(err)
	return p, c
}

func (s *ServiceSuite) entries(action audit.ActionType) []audit.Entry {
	page, err := s.svc.Audit(s.ctx, audit.Filter{Action: action, Limit: audit.MaxLimit})
	s.Require().NoError(err)
	return page.Entries
}

func (s *ServiceSuite) TestSet() {
	s.Run("stores an active permission and records it", func() {
		p, c := s.grant(models.TypePersistent)
		s.Equal(models.StatusActive, p.Status)
		s.Equal(s.now, p.CreatedAt)
		s.Equal([]id.CredentialID{c.ID}, p.CredentialIDs())

		stored, err := s.store.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(p, stored)

		set := s.entries(audit.ActionSet)
		s.Require().NotEmpty(set)
		s.Equal(ownerDID, set[0].ActorDID)
		s.Equal(recipientDID, set[0].TargetDID)
		s.Equal(p.ID, *set[0].PermissionID)
		s.Equal(c.ID, *set[0].CredentialID)
		s.Equal([]string{c.ID.String()}, set[0].Details["credential_ids"])
	})

	s.Run("audit can be switched off", func() {
		before := len(s.entries(audit.ActionSet))
		off := false
		s.grant(models.TypePersistent, func(r *models.SetRequest) { r.Audit = &off })
		s.Len(s.entries(audit.ActionSet), before)
	})

	s.Run("invalid requests are rejected", func() {
		cid := id.NewCredentialID()
		badScope := models.GrantInput{CredentialID: cid.String(), Scopes: []string{"delete"}}
		badOwner := s.setRequest(models.TypePersistent, readGrant(cid))
		badOwner.OwnerDID = "owner"
		cases := map[string]*models.SetRequest{
			"bad owner":              badOwner,
			"bad type":               s.setRequest("forever", readGrant(cid)),
			"no grants":              s.setRequest(models.TypePersistent),
			"duplicate grant":        s.setRequest(models.TypePersistent, readGrant(cid), readGrant(cid)),
			"partial without fields": s.setRequest(models.TypePartial, readGrant(cid)),
			"bad scope":              s.setRequest(models.TypePersistent, badScope),
		}
		for name, req := range cases {
			_, err := s.svc.Set(s.ctx, req)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput), name)
		}
	})

	s.Run("unknown credentials are accepted", func() {
		_, err := s.svc.Set(s.ctx, s.setRequest(models.TypePersistent, readGrant(id.NewCredentialID())))
		s.NoError(err)
	})
}

func (s *ServiceSuite) TestGetByDID() {
	s.Run("DID without permissions is NotFound", func() {
		_, err := s.svc.GetByDID(s.ctx, "did:email:nobody")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("returns grants for owner and recipient", func() {
		p, _ := s.grant(models.TypePersistent)

		owned, err := s.svc.GetByDID(s.ctx, ownerDID.String())
		s.Require().NoError(err)
		s.Contains(ids(owned), p.ID)

		received, err := s.svc.GetByDID(s.ctx, recipientDID.String())
		s.Require().NoError(err)
		s.Contains(ids(received), p.ID)
	})

	s.Run("one-time grant with a past expiry reads as expired", func() {
		past := s.now.Add(-time.Minute)
		p, _ := s.grant(models.TypeOneTime, func(r *models.SetRequest) {
			r.OwnerDID = "did:email:pastowner"
			r.ExpiresAt = &past
		})

		list, err := s.svc.GetByDID(s.ctx, "did:email:pastowner")
		s.Require().NoError(err)
		s.Require().Len(list, 1)
		s.Equal(p.ID, list[0].ID)
		s.Equal(models.StatusExpired, list[0].Status)

		stored, err := s.store.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusExpired, stored.Status)
	})

	s.Run("query is audited as access", func() {
		s.grant(models.TypePersistent)
		_, err := s.svc.GetByDID(s.ctx, recipientDID.String())
		s.Require().NoError(err)

		access := s.entries(audit.ActionAccess)
		s.Require().NotEmpty(access)
		s.Equal(recipientDID, access[0].ActorDID)
		s.Equal("get_by_did", access[0].Details["operation"])
	})

	s.Run("malformed DID is InvalidInput", func() {
		_, err := s.svc.GetByDID(s.ctx, "not-a-did")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func ids(list []*models.Permission) []id.PermissionID {
	out := make([]id.PermissionID, len(list))
	for i, p := range list {
		out[i] = p.ID
	}
	return out
}

func (s *ServiceSuite) TestRevoke() {
	s.Run("owner revokes once", func() {
		p, _ := s.grant(models.TypePersistent)
		revoked, err := s.svc.Revoke(s.ctx, p.ID, ownerDID.String())
		s.Require().NoError(err)
		s.Equal(models.StatusRevoked, revoked.Status)
		s.Equal(s.now, *revoked.RevokedAt)

		_, err = s.svc.Revoke(s.ctx, p.ID, ownerDID.String())
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		entries := s.entries(audit.ActionRevoke)
		s.Require().NotEmpty(entries)
		s.Equal(p.ID, *entries[0].PermissionID)
	})

	s.Run("recipient cannot revoke", func() {
		p, _ := s.grant(models.TypePersistent)
		_, err := s.svc.Revoke(s.ctx, p.ID, recipientDID.String())
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unknown permission is NotFound", func() {
		_, err := s.svc.Revoke(s.ctx, id.NewPermissionID(), ownerDID.String())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestUpdate() {
	s.Run("owner extends expiry", func() {
		p, _ := s.grant(models.TypePersistent)
		later := s.now.Add(48 * time.Hour)
		desc := "extended"
		updated, err := s.svc.Update(s.ctx, &models.UpdateRequest{
			PermissionID: p.ID,
			ActorDID:     ownerDID.String(),
			ExpiresAt:    &later,
			Description:  &desc,
		})
		s.Require().NoError(err)
		s.Equal(later, *updated.ExpiresAt)
		s.Equal("extended", updated.Description)

		entries := s.entries(audit.ActionUpdate)
		s.Require().NotEmpty(entries)
		s.Equal(p.ID, *entries[0].PermissionID)
	})

	s.Run("non-owner is Forbidden", func() {
		p, _ := s.grant(models.TypePersistent)
		_, err := s.svc.Update(s.ctx, &models.UpdateRequest{PermissionID: p.ID, ActorDID: recipientDID.String(), ClearExpiry: true})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("revoked permission cannot be updated", func() {
		p, _ := s.grant(models.TypePersistent)
		_, err := s.svc.Revoke(s.ctx, p.ID, ownerDID.String())
		s.Require().NoError(err)
		_, err = s.svc.Update(s.ctx, &models.UpdateRequest{PermissionID: p.ID, ActorDID: ownerDID.String(), ClearExpiry: true})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("past expiry is InvalidInput", func() {
		p, _ := s.grant(models.TypePersistent)
		past := s.now.Add(-time.Hour)
		_, err := s.svc.Update(s.ctx, &models.UpdateRequest{PermissionID: p.ID, ActorDID: ownerDID.String(), ExpiresAt: &past})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) access(p *models.Permission, c *credmodels.Credential, recipient id.DID) (*models.AccessResult, error) {
	return s.svc.Access(s.ctx, &models.AccessRequest{
		PermissionID: p.ID,
		RecipientDID: recipient.String(),
		CredentialID: c.ID.String(),
	})
}

func (s *ServiceSuite) TestAccess() {
	s.Run("partial grant discloses only allowed fields with a valid proof", func() {
		p, c := s.grant(models.TypePartial)
		res, err := s.access(p, c, recipientDID)
		s.Require().NoError(err)
		s.Equal([]string{"degree"}, res.Fields)
		s.Equal(map[string]any{"degree": "BSc"}, res.Claims)
		s.False(res.Consumed)
		s.Len(res.Proof.Digests, 3)

		vm, ok := s.doc.FindVerificationMethod(c.Proof.VerificationMethod)
		s.Require().True(ok)
		key := proof.VerificationKey{Type: vm.Type, PublicKeyMultibase: vm.PublicKeyMultibase}
		s.NoError(s.proofs.VerifyDisclosure(s.ctx, key, res.Proof))

		entries := s.entries(audit.ActionAccess)
		s.Require().NotEmpty(entries)
		s.Equal(recipientDID, entries[0].ActorDID)
		s.Equal(ownerDID, entries[0].TargetDID)
		s.Equal(c.ID, *entries[0].CredentialID)
	})

	s.Run("persistent grant discloses everything and stays active", func() {
		p, c := s.grant(models.TypePersistent)
		for range 2 {
			res, err := s.access(p, c, recipientDID)
			s.Require().NoError(err)
			s.Equal([]string{"degree", "gpa", "name"}, res.Fields)
			s.Equal(models.StatusActive, res.Status)
		}
	})

	s.Run("one-time grant is consumed by the first access", func() {
		p, c := s.grant(models.TypeOneTime)
		res, err := s.access(p, c, recipientDID)
		s.Require().NoError(err)
		s.True(res.Consumed)
		s.Equal(models.StatusExpired, res.Status)

		_, err = s.access(p, c, recipientDID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("only the recipient may access", func() {
		p, c := s.grant(models.TypePersistent)
		_, err := s.access(p, c, ownerDID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("ungranted credential is Forbidden", func() {
		p, _ := s.grant(models.TypePersistent)
		other := s.issueCredential()
		_, err := s.access(p, other, recipientDID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("revoked permission is Forbidden", func() {
		p, c := s.grant(models.TypePersistent)
		_, err := s.svc.Revoke(s.ctx, p.ID, ownerDID.String())
		s.Require().NoError(err)
		_, err = s.access(p, c, recipientDID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("expired permission is Expired", func() {
		soon := s.now.Add(time.Minute)
		p, c := s.grant(models.TypePersistent, func(r *models.SetRequest) { r.ExpiresAt = &soon })
		later := requestcontext.WithTime(context.Background(), s.now.Add(time.Hour))
		_, err := s.svc.Access(later, &models.AccessRequest{
			PermissionID: p.ID,
			RecipientDID: recipientDID.String(),
			CredentialID: c.ID.String(),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeExpired))
	})

	s.Run("revoked credential is Forbidden", func() {
		p, c := s.grant(models.TypePersistent)
		off := false
		_, err := s.credentials.Revoke(s.ctx, &credmodels.RevokeRequest{
			CredentialID:  c.ID,
			RevokedBy:     issuerDID.String(),
			AnchorOnChain: &off,
		})
		s.Require().NoError(err)
		_, err = s.access(p, c, recipientDID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("credential of another subject is Forbidden", func() {
		c := s.issueCredential()
		p, err := s.svc.Set(s.ctx, &models.SetRequest{
			OwnerDID:     "did:email:impostor",
			RecipientDID: recipientDID.String(),
			Type:         string(models.TypePersistent),
			Grants:       []models.GrantInput{readGrant(c.ID)},
		})
		s.Require().NoError(err)
		_, err = s.access(p, c, recipientDID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("grant without read scope is Forbidden", func() {
		c := s.issueCredential()
		p, err := s.svc.Set(s.ctx, s.setRequest(models.TypePersistent, models.GrantInput{
			CredentialID: c.ID.String(), Scopes: []string{"verify"},
		}))
		s.Require().NoError(err)
		_, err = s.access(p, c, recipientDID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ServiceSuite) TestConcurrentOneTimeAccessHasSingleWinner() {
	p, c := s.grant(models.TypeOneTime)
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.access(p, c, recipientDID); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), successes.Load())
}

func (s *ServiceSuite) TestAuditQuery() {
	for range 3 {
		s.grant(models.TypePersistent)
	}
	p, _ := s.grant(models.TypePersistent)

	s.Run("newest first with paging", func() {
		page, err := s.svc.Audit(s.ctx, audit.Filter{Action: audit.ActionSet, Limit: 2})
		s.Require().NoError(err)
		s.Equal(4, page.Total)
		s.Equal(1, page.Page)
		s.Require().Len(page.Entries, 2)
		s.Equal(p.ID, *page.Entries[0].PermissionID)

		second, err := s.svc.Audit(s.ctx, audit.Filter{Action: audit.ActionSet, Limit: 2, Page: 2})
		s.Require().NoError(err)
		s.Len(second.Entries, 2)
		s.NotEqual(page.Entries[1].ID, second.Entries[0].ID)
	})

	s.Run("filters combine", func() {
		page, err := s.svc.Audit(s.ctx, audit.Filter{PermissionID: &p.ID, OwnerDID: ownerDID})
		s.Require().NoError(err)
		s.Equal(1, page.Total)
	})

	s.Run("limit above maximum is InvalidInput", func() {
		_, err := s.svc.Audit(s.ctx, audit.Filter{Limit: audit.MaxLimit + 1})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestAuditQueryAcrossActions() {
	at := func(minutes int) context.Context {
		return requestcontext.WithTime(context.Background(), s.now.Add(time.Duration(minutes)*time.Minute))
	}
	kept, _ := s.grant(models.TypePersistent)
	revoked, _ := s.grant(models.TypePersistent)

	_, err := s.svc.GetByDID(at(1), ownerDID.String())
	s.Require().NoError(err)
	note := "renewed"
	_, err = s.svc.Update(at(2), &models.UpdateRequest{PermissionID: kept.ID, ActorDID: ownerDID.String(), Description: &note})
	s.Require().NoError(err)
	_, err = s.svc.Revoke(at(3), revoked.ID, ownerDID.String())
	s.Require().NoError(err)
	_, err = s.svc.GetByDID(at(4), recipientDID.String())
	s.Require().NoError(err)

	s.Run("action type selects only its own entries", func() {
		for action, want := range map[audit.ActionType]int{
			audit.ActionSet:    2,
			audit.ActionAccess: 2,
			audit.ActionUpdate: 1,
			audit.ActionRevoke: 1,
			audit.ActionAll:    6,
		} {
			page, err := s.svc.Audit(s.ctx, audit.Filter{Action: action, Limit: audit.MaxLimit})
			s.Require().NoError(err)
			s.Equal(want, page.Total, action)
			s.Len(page.Entries, want, action)
			for _, e := range page.Entries {
				if action != audit.ActionAll {
					s.Equal(action, e.Action)
				}
			}
		}
	})

	s.Run("pages are slices of the full newest-first listing", func() {
		all := s.entries(audit.ActionAll)
		s.Require().Len(all, 6)
		s.Equal(audit.ActionAccess, all[0].Action)
		s.Equal(audit.ActionRevoke, all[1].Action)
		s.Equal(audit.ActionUpdate, all[2].Action)
		for i := 1; i < len(all); i++ {
			s.False(all[i].Timestamp.After(all[i-1].Timestamp))
		}

		const limit = 4
		for pageNo, want := range [][]audit.Entry{all[:limit], all[limit:], {}} {
			page, err := s.svc.Audit(s.ctx, audit.Filter{Page: pageNo + 1, Limit: limit})
			s.Require().NoError(err)
			s.Equal(6, page.Total)
			s.Require().Len(page.Entries, len(want))
			for i := range want {
				s.Equal(want[i].ID, page.Entries[i].ID)
			}
		}
	})
}

type DependencySuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	auditLog    *mocks.MockAuditLog
	credentials *mocks.MockCredentialReader
	prover      *mocks.MockDisclosureProver
	store       *store.InMemory
	svc         *service.Service
	ctx         context.Context
}

func TestDependencySuite(t *testing.T) {
	suite.Run(t, new(DependencySuite))
}

func (s *DependencySuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.auditLog = mocks.NewMockAuditLog(s.ctrl)
	s.credentials = mocks.NewMockCredentialReader(s.ctrl)
	s.prover = mocks.NewMockDisclosureProver(s.ctrl)
	s.store = store.NewInMemory()
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	s.svc = service.New(s.store, s.auditLog,
		service.WithDisclosure(s.credentials, s.prover),
		service.WithProofTimeout(20*time.Millisecond),
	)
}

func (s *DependencySuite) oneTime() (*models.Permission, *credmodels.Credential) {
	c := &credmodels.Credential{
		ID:      id.NewCredentialID(),
		Issuer:  issuerDID,
		Subject: ownerDID,
		Claims:  map[string]any{"name": "Ada"},
		Status:  credmodels.StatusActive,
		Proof:   credmodels.Proof{VerificationMethod: didmodels.KeyID(issuerDID, 1)},
	}
	off := false
	p, err := s.svc.Set(s.ctx, &models.SetRequest{
		OwnerDID:     ownerDID.String(),
		RecipientDID: recipientDID.String(),
		Type:         string(models.TypeOneTime),
		Grants:       []models.GrantInput{readGrant(c.ID)},
		Audit:        &off,
	})
	s.Require().NoError(err)
	return p, c
}

func (s *DependencySuite) TestAuditFailureDoesNotFailTheOperation() {
	s.auditLog.EXPECT().Record(gomock.Any(), gomock.Any()).Return(audit.Entry{}, errors.New("audit store down"))
	p, err := s.svc.Set(s.ctx, &models.SetRequest{
		OwnerDID:     ownerDID.String(),
		RecipientDID: recipientDID.String(),
		Type:         string(models.TypePersistent),
		Grants:       []models.GrantInput{readGrant(id.NewCredentialID())},
	})
	s.Require().NoError(err)

	stored, err := s.store.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, stored.Status)
}

func (s *DependencySuite) TestProofFailureLeavesOneTimeGrantUnused() {
	p, c := s.oneTime()
	s.credentials.EXPECT().Get(gomock.Any(), c.ID).Return(c, nil)
	s.prover.EXPECT().GenerateProof(gomock.Any(), c.Proof.VerificationMethod, c.Claims, []string{"name"}).
		DoAndReturn(func(ctx context.Context, _ string, _ map[string]any, _ []string) (*proof.DisclosureProof, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	_, err := s.svc.Access(s.ctx, &models.AccessRequest{
		PermissionID: p.ID,
		RecipientDID: recipientDID.String(),
		CredentialID: c.ID.String(),
	})
	s.True(dErrors.HasCode(err, dErrors.CodeDependencyFailure))

	stored, err := s.store.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, stored.Status)
	s.Nil(stored.ConsumedAt)
}

func (s *DependencySuite) TestMissingCredentialIsNotConsumed() {
	p, c := s.oneTime()
	s.credentials.EXPECT().Get(gomock.Any(), c.ID).Return(nil, dErrors.New(dErrors.CodeNotFound, "credential not found"))

	_, err := s.svc.Access(s.ctx, &models.AccessRequest{
		PermissionID: p.ID,
		RecipientDID: recipientDID.String(),
		CredentialID: c.ID.String(),
	})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	stored, err := s.store.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, stored.Status)
}

func (s *DependencySuite) TestAccessWithoutDisclosureIsInternal() {
	svc := service.New(s.store, s.auditLog)
	_, err := svc.Access(s.ctx, &models.AccessRequest{PermissionID: id.NewPermissionID()})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
