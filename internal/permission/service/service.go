// Package service implements the permission manager: granting scoped,
// field-level access to credentials and recording every lifecycle event in
// the audit log.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"attestor/internal/audit"
	credmodels "attestor/internal/credential/models"
	permmetrics "attestor/internal/permission/metrics"
	"attestor/internal/permission/models"
	"attestor/internal/proof"
	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
	"attestor/pkg/platform/sentinel"
	"attestor/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, p *models.Permission) error
	FindByID(ctx context.Context, pid id.PermissionID) (*models.Permission, error)
	ListByDID(ctx context.Context, did id.DID) ([]*models.Permission, error)
	Execute(ctx context.Context, pid id.PermissionID, validate func(*models.Permission) error, mutate func(*models.Permission)) (*models.Permission, error)
}

// AuditLog is the sink for lifecycle events and the source for audit queries.
type AuditLog interface {
	Record(ctx context.Context, entry audit.Entry) (audit.Entry, error)
	Query(ctx context.Context, filter audit.Filter) (*audit.Page, error)
}

type CredentialReader interface {
	Get(ctx context.Context, cid id.CredentialID) (*credmodels.Credential, error)
}

// DisclosureProver produces selective-disclosure proofs.
type DisclosureProver interface {
	GenerateProof(ctx context.Context, keyID string, claims map[string]any, fields []string) (*proof.DisclosureProof, error)
}

const defaultProofTimeout = 2 * time.Second

var errUnchanged = errors.New("permission unchanged")

// Service is the permission manager.
type Service struct {
	store        Store
	audit        AuditLog
	credentials  CredentialReader
	prover       DisclosureProver
	logger       *slog.Logger
	metrics      *permmetrics.Metrics
	proofTimeout time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *permmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithDisclosure enables Access: credentials are read from reader and
// disclosed with proofs from prover.
func WithDisclosure(reader CredentialReader, prover DisclosureProver) Option {
	return func(s *Service) {
		s.credentials = reader
		s.prover = prover
	}
}

func WithProofTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.proofTimeout = d
		}
	}
}

func New(store Store, auditLog AuditLog, opts ...Option) *Service {
	s := &Service{
		store:        store,
		audit:        auditLog,
		logger:       slog.Default(),
		proofTimeout: defaultProofTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set stores a new active permission. Referenced credentials are not checked
// against the credential store. The Set audit entry is written after the
// permission is stored and its failure does not undo the grant.
func (s *Service) Set(ctx context.Context, req *models.SetRequest) (*models.Permission, error) {
	req.Normalize()
	grants, err := req.Validate()
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	p := &models.Permission{
		ID:           id.NewPermissionID(),
		OwnerDID:     id.DID(req.OwnerDID),
		RecipientDID: id.DID(req.RecipientDID),
		Type:         models.Type(req.Type),
		Grants:       grants,
		Status:       models.StatusActive,
		Description:  req.Description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.ExpiresAt != nil {
		exp := req.ExpiresAt.UTC()
		p.ExpiresAt = &exp
	}

	if err := s.store.Create(ctx, p); err != nil {
		return nil, wrapStoreErr(err, "failed to store permission")
	}
	s.metrics.IncGranted(string(p.Type))
	s.logAudit(ctx, "permission_set",
		"permission_id", p.ID,
		"owner_did", p.OwnerDID,
		"recipient_did", p.RecipientDID,
		"type", p.Type,
	)

	if req.WantsAudit() {
		s.record(ctx, audit.Entry{
			Action:       audit.ActionSet,
			ActorDID:     p.OwnerDID,
			TargetDID:    p.RecipientDID,
			CredentialID: firstCredential(p),
			PermissionID: &p.ID,
			Details: map[string]any{
				"type":           string(p.Type),
				"credential_ids": credentialIDStrings(p),
				"expires_at":     p.ExpiresAt,
				"description":    p.Description,
			},
		})
	}
	return p, nil
}

// GetByDID returns every permission the DID owns or receives, with expired
// ones promoted, and records one Access entry for the query.
func (s *Service) GetByDID(ctx context.Context, rawDID string) ([]*models.Permission, error) {
	did, err := id.ParseDIDSyntax(rawDID)
	if err != nil {
		return nil, err
	}
	list, err := s.store.ListByDID(ctx, did)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to list permissions")
	}
	if len(list) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "no permissions found for DID")
	}

	now := requestcontext.Now(ctx)
	for i, p := range list {
		if !p.NeedsExpiry(now) {
			continue
		}
		updated, err := s.expire(ctx, p.ID, now)
		if err != nil {
			return nil, err
		}
		list[i] = updated
	}

	s.record(ctx, audit.Entry{
		Action:   audit.ActionAccess,
		ActorDID: did,
		Details: map[string]any{
			"operation": "get_by_did",
			"count":     len(list),
		},
	})
	return list, nil
}

// Get returns one permission with its status brought up to date.
func (s *Service) Get(ctx context.Context, pid id.PermissionID) (*models.Permission, error) {
	p, err := s.store.FindByID(ctx, pid)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load permission")
	}
	now := requestcontext.Now(ctx)
	if !p.NeedsExpiry(now) {
		return p, nil
	}
	return s.expire(ctx, pid, now)
}

// Audit queries the audit log. Filters are conjunctive; results are newest first.
func (s *Service) Audit(ctx context.Context, filter audit.Filter) (*audit.Page, error) {
	return s.audit.Query(ctx, filter)
}

// Revoke is the owner-only terminal transition.
func (s *Service) Revoke(ctx context.Context, pid id.PermissionID, rawBy string) (*models.Permission, error) {
	by, err := id.ParseDIDSyntax(rawBy)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	p, err := s.store.Execute(ctx, pid,
		func(p *models.Permission) error { return p.CanRevoke(by) },
		func(p *models.Permission) { p.ApplyRevocation(now) },
	)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to revoke permission")
	}

	s.metrics.IncRevoked()
	s.logAudit(ctx, "permission_revoked", "permission_id", pid, "owner_did", by)
	s.record(ctx, audit.Entry{
		Action:       audit.ActionRevoke,
		ActorDID:     by,
		TargetDID:    p.RecipientDID,
		CredentialID: firstCredential(p),
		PermissionID: &p.ID,
		Details:      map[string]any{"credential_ids": credentialIDStrings(p)},
	})
	return p, nil
}

// Update changes the expiry or description of an active permission.
func (s *Service) Update(ctx context.Context, req *models.UpdateRequest) (*models.Permission, error) {
	now := requestcontext.Now(ctx)
	if err := req.Validate(now); err != nil {
		return nil, err
	}
	by, err := id.ParseDIDSyntax(req.ActorDID)
	if err != nil {
		return nil, err
	}
	p, err := s.store.Execute(ctx, req.PermissionID,
		func(p *models.Permission) error { return p.CanUpdate(by, now) },
		func(p *models.Permission) { p.ApplyUpdate(req, now) },
	)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to update permission")
	}

	details := map[string]any{"expires_at": p.ExpiresAt}
	if req.Description != nil {
		details["description"] = p.Description
	}
	s.logAudit(ctx, "permission_updated", "permission_id", p.ID, "owner_did", by)
	s.record(ctx, audit.Entry{
		Action:       audit.ActionUpdate,
		ActorDID:     by,
		TargetDID:    p.RecipientDID,
		PermissionID: &p.ID,
		Details:      details,
	})
	return p, nil
}

// Access discloses the granted fields of a credential to the recipient with
// a selective-disclosure proof. A one-time permission is consumed by the
// first successful access; concurrent accesses yield one winner.
func (s *Service) Access(ctx context.Context, req *models.AccessRequest) (*models.AccessResult, error) {
	if s.credentials == nil || s.prover == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "credential disclosure is not configured")
	}
	recipient, err := id.ParseDIDSyntax(req.RecipientDID)
	if err != nil {
		return nil, err
	}
	cid, err := id.ParseCredentialID(req.CredentialID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	p, err := s.Get(ctx, req.PermissionID)
	if err != nil {
		return nil, err
	}
	grant, err := p.CanAccess(recipient, cid, now)
	if err != nil {
		s.metrics.IncAccess("denied")
		return nil, err
	}

	cred, err := s.credentials.Get(ctx, cid)
	if err != nil {
		return nil, err
	}
	if cred.Subject != p.OwnerDID {
		s.metrics.IncAccess("denied")
		return nil, dErrors.New(dErrors.CodeForbidden, "credential does not belong to the permission owner")
	}
	switch cred.Status {
	case credmodels.StatusRevoked:
		s.metrics.IncAccess("denied")
		return nil, dErrors.New(dErrors.CodeForbidden, "credential has been revoked")
	case credmodels.StatusExpired:
		s.metrics.IncAccess("denied")
		return nil, dErrors.New(dErrors.CodeExpired, "credential has expired")
	}

	fields := grant.DisclosedFields(cred.Claims)
	proofCtx, cancel := context.WithTimeout(ctx, s.proofTimeout)
	disclosure, err := s.prover.GenerateProof(proofCtx, cred.Proof.VerificationMethod, cred.Claims, fields)
	cancel()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDependencyFailure, "failed to generate disclosure proof")
	}

	// Re-check under the permission's lock; a concurrent access may have
	// consumed a one-time grant while the proof was generated.
	p, err = s.store.Execute(ctx, p.ID,
		func(cur *models.Permission) error {
			_, err := cur.CanAccess(recipient, cid, now)
			return err
		},
		func(cur *models.Permission) { cur.ApplyAccess(now) },
	)
	if err != nil {
		s.metrics.IncAccess("denied")
		return nil, wrapStoreErr(err, "failed to record access")
	}

	s.metrics.IncAccess("granted")
	s.logAudit(ctx, "permission_accessed",
		"permission_id", p.ID,
		"credential_id", cid,
		"recipient_did", recipient,
	)
	s.record(ctx, audit.Entry{
		Action:       audit.ActionAccess,
		ActorDID:     recipient,
		TargetDID:    p.OwnerDID,
		CredentialID: &cid,
		PermissionID: &p.ID,
		Details: map[string]any{
			"operation": "access",
			"fields":    fields,
			"consumed":  p.ConsumedAt != nil,
		},
	})

	return &models.AccessResult{
		PermissionID: p.ID,
		CredentialID: cid,
		Issuer:       cred.Issuer,
		Subject:      cred.Subject,
		Claims:       disclosure.Disclosed,
		Fields:       fields,
		Proof:        disclosure,
		Consumed:     p.ConsumedAt != nil,
		Status:       p.Status,
	}, nil
}

func (s *Service) expire(ctx context.Context, pid id.PermissionID, now time.Time) (*models.Permission, error) {
	updated, err := s.store.Execute(ctx, pid,
		func(p *models.Permission) error {
			if !p.NeedsExpiry(now) {
				return errUnchanged
			}
			return nil
		},
		func(p *models.Permission) { p.ApplyExpiry(now) },
	)
	switch {
	case err == nil:
		s.metrics.IncExpired()
		return updated, nil
	case errors.Is(err, errUnchanged):
		p, err := s.store.FindByID(ctx, pid)
		if err != nil {
			return nil, wrapStoreErr(err, "failed to load permission")
		}
		return p, nil
	default:
		return nil, wrapStoreErr(err, "failed to expire permission")
	}
}

// record writes an audit entry. Failures are logged and counted; the caller's
// effect is already stored.
func (s *Service) record(ctx context.Context, entry audit.Entry) {
	if s.audit == nil {
		return
	}
	if _, err := s.audit.Record(ctx, entry); err != nil {
		s.metrics.IncAuditFailure()
		s.logger.ErrorContext(ctx, "failed to write audit entry",
			"action", entry.Action,
			"actor_did", entry.ActorDID,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func firstCredential(p *models.Permission) *id.CredentialID {
	if len(p.Grants) == 0 {
		return nil
	}
	cid := p.Grants[0].CredentialID
	return &cid
}

func credentialIDStrings(p *models.Permission) []string {
	ids := p.CredentialIDs()
	out := make([]string, len(ids))
	for i, cid := range ids {
		out[i] = cid.String()
	}
	return out
}

func wrapStoreErr(err error, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "permission not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "permission already exists")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeDependencyFailure, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, event, args...)
	}
}
