// Package service issues, reads, revokes and shares credentials.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"attestor/internal/anchor"
	credmetrics "attestor/internal/credential/metrics"
	"attestor/internal/credential/models"
	"attestor/internal/credential/share"
	didmodels "attestor/internal/did/models"
	"attestor/internal/proof"
	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
	"attestor/pkg/platform/canonhash"
	"attestor/pkg/platform/sentinel"
	"attestor/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, c *models.Credential) error
	FindByID(ctx context.Context, cid id.CredentialID) (*models.Credential, error)
	Execute(ctx context.Context, cid id.CredentialID, validate func(*models.Credential) error, mutate func(*models.Credential)) (*models.Credential, error)
}

// IssuerResolver resolves the issuer DID to its current document.
type IssuerResolver interface {
	Resolve(ctx context.Context, did id.DID) (*didmodels.Document, error)
}

// Signer is the part of the proof capability issuance uses.
type Signer interface {
	Sign(ctx context.Context, keyID string, payload []byte) (proof.Signature, error)
}

const (
	defaultResolveTimeout = 2 * time.Second
	defaultProofTimeout   = 2 * time.Second
	defaultAnchorTimeout  = 3 * time.Second

	renderFormatQR = "qr"
)

var errUnchanged = errors.New("credential unchanged")

// Service owns the credential lifecycle.
type Service struct {
	store          Store
	resolver       IssuerResolver
	signer         Signer
	anchorer       anchor.Anchorer
	shares         *share.TokenService
	shareBaseURL   string
	logger         *slog.Logger
	metrics        *credmetrics.Metrics
	resolveTimeout time.Duration
	proofTimeout   time.Duration
	anchorTimeout  time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *credmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAnchorer(a anchor.Anchorer) Option {
	return func(s *Service) {
		if a != nil {
			s.anchorer = a
		}
	}
}

// WithShareLinks enables Share and ResolveShare. Links are baseURL/<token>.
func WithShareLinks(tokens *share.TokenService, baseURL string) Option {
	return func(s *Service) {
		s.shares = tokens
		s.shareBaseURL = baseURL
	}
}

// WithTimeouts bounds issuer resolution, signing and anchoring. Zero keeps the default.
func WithTimeouts(resolve, sign, anchorTimeout time.Duration) Option {
	return func(s *Service) {
		if resolve > 0 {
			s.resolveTimeout = resolve
		}
		if sign > 0 {
			s.proofTimeout = sign
		}
		if anchorTimeout > 0 {
			s.anchorTimeout = anchorTimeout
		}
	}
}

func New(store Store, resolver IssuerResolver, signer Signer, opts ...Option) *Service {
	s := &Service{
		store:          store,
		resolver:       resolver,
		signer:         signer,
		anchorer:       anchor.Disabled{},
		logger:         slog.Default(),
		resolveTimeout: defaultResolveTimeout,
		proofTimeout:   defaultProofTimeout,
		anchorTimeout:  defaultAnchorTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue signs and stores a new active credential. The issuer must resolve and
// its current authentication key signs the canonical payload.
func (s *Service) Issue(ctx context.Context, req *models.IssueRequest) (*models.Credential, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	issuer := id.DID(req.Issuer)

	doc, err := s.resolveIssuer(ctx, issuer)
	if err != nil {
		return nil, err
	}
	keyID := doc.CurrentKeyID()
	if keyID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidIssuer, "issuer has no authentication key")
	}

	claims, err := models.NormalizeClaims(req.Claims)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "claims are invalid")
	}
	now := requestcontext.Now(ctx)
	c := &models.Credential{
		ID:       id.NewCredentialID(),
		Type:     req.Type,
		Issuer:   issuer,
		Subject:  id.DID(req.Subject),
		Claims:   claims,
		IssuedAt: now,
		Status:   models.StatusActive,
	}
	if req.ExpiresAt != nil {
		exp := req.ExpiresAt.UTC()
		c.ExpiresAt = &exp
	}

	payload, err := c.SigningPayload()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode credential")
	}
	sig, err := s.sign(ctx, keyID, payload)
	if err != nil {
		return nil, err
	}
	c.Proof = models.Proof{
		Type:               sig.ProofType,
		Created:            now,
		VerificationMethod: keyID,
		ProofPurpose:       models.ProofPurposeAssert,
		ProofValue:         sig.Value,
	}

	if req.WantsAnchor() {
		ref, err := s.anchor(ctx, "issue", canonhash.SumBytes(payload))
		if err != nil && req.RequireAnchor {
			return nil, dErrors.Wrap(err, dErrors.CodeDependencyFailure, "failed to anchor credential")
		}
		c.AnchorRef = ref
	}

	if err := s.store.Create(ctx, c); err != nil {
		return nil, wrapStoreErr(err, "failed to store credential")
	}

	s.metrics.IncIssued(c.Type)
	s.logAudit(ctx, "credential_issued",
		"credential_id", c.ID,
		"issuer", c.Issuer,
		"subject", c.Subject,
		"anchored", c.AnchorRef != "",
	)
	return c, nil
}

// Get returns the credential, promoting an expired active credential to
// Expired in the store the first time it is observed.
func (s *Service) Get(ctx context.Context, cid id.CredentialID) (*models.Credential, error) {
	c, err := s.store.FindByID(ctx, cid)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load credential")
	}
	now := requestcontext.Now(ctx)
	if !c.NeedsExpiry(now) {
		return c, nil
	}

	updated, err := s.store.Execute(ctx, cid,
		func(cur *models.Credential) error {
			if !cur.NeedsExpiry(now) {
				return errUnchanged
			}
			return nil
		},
		func(cur *models.Credential) { cur.ApplyExpiry(now) },
	)
	switch {
	case err == nil:
		s.metrics.IncExpired()
		s.logAudit(ctx, "credential_expired", "credential_id", cid)
		return updated, nil
	case errors.Is(err, errUnchanged):
		c, err = s.store.FindByID(ctx, cid)
		if err != nil {
			return nil, wrapStoreErr(err, "failed to load credential")
		}
		return c, nil
	default:
		return nil, wrapStoreErr(err, "failed to update credential")
	}
}

// Revoke is the issuer-only, terminal transition. The receipt is built from
// the committed record; the optional revocation anchor runs after commit and
// is recorded in a second update.
func (s *Service) Revoke(ctx context.Context, req *models.RevokeRequest) (*models.RevocationReceipt, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	by := id.DID(req.RevokedBy)
	now := requestcontext.Now(ctx)

	revoked, err := s.store.Execute(ctx, req.CredentialID,
		func(c *models.Credential) error { return c.CanRevoke(by) },
		func(c *models.Credential) { c.ApplyRevocation(by, req.Reason, now) },
	)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to revoke credential")
	}

	receipt := &models.RevocationReceipt{
		CredentialID: revoked.ID,
		Status:       revoked.Status,
		RevokedAt:    revoked.Revocation.RevokedAt,
		RevokedBy:    revoked.Revocation.RevokedBy,
		Reason:       revoked.Revocation.Reason,
		AnchorStatus: models.AnchorSkipped,
	}
	s.metrics.IncRevoked()
	s.logAudit(ctx, "credential_revoked",
		"credential_id", revoked.ID,
		"revoked_by", by,
	)

	if req.WantsAnchor() {
		s.anchorRevocation(ctx, revoked, receipt)
	}
	return receipt, nil
}

func (s *Service) anchorRevocation(ctx context.Context, c *models.Credential, receipt *models.RevocationReceipt) {
	hash, _, err := canonhash.SumObject(map[string]any{
		"event":         "revoke",
		"credential_id": c.ID.String(),
		"revoked_by":    c.Revocation.RevokedBy.String(),
		"revoked_at":    c.Revocation.RevokedAt,
	})
	if err != nil {
		receipt.AnchorStatus = models.AnchorFailed
		return
	}
	ref, err := s.anchor(ctx, "revoke", hash)
	if err != nil {
		if !errors.Is(err, anchor.ErrDisabled) {
			receipt.AnchorStatus = models.AnchorFailed
		}
		return
	}
	_, err = s.store.Execute(ctx, c.ID,
		func(cur *models.Credential) error {
			if cur.Revocation == nil || cur.Revocation.AnchorRef != "" {
				return errUnchanged
			}
			return nil
		},
		func(cur *models.Credential) { cur.Revocation.AnchorRef = ref },
	)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to record revocation anchor",
			"credential_id", c.ID,
			"anchor_ref", ref,
			"error", err,
		)
	}
	receipt.AnchorStatus = models.AnchorAnchored
	receipt.AnchorRef = ref
}

// Share returns a signed, bounded-lifetime link to the credential. It does not
// change the credential.
func (s *Service) Share(ctx context.Context, cid id.CredentialID) (*models.ShareDescriptor, error) {
	if s.shares == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "share links are not configured")
	}
	if _, err := s.store.FindByID(ctx, cid); err != nil {
		return nil, wrapStoreErr(err, "failed to load credential")
	}
	token, shareID, expiresAt, err := s.shares.Issue(cid, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign share token")
	}
	url := s.shareBaseURL + "/" + token

	s.metrics.IncShares()
	s.logAudit(ctx, "credential_shared",
		"credential_id", cid,
		"share_id", shareID,
	)
	return &models.ShareDescriptor{
		CredentialID: cid,
		ShareID:      shareID,
		Token:        token,
		URL:          url,
		ExpiresAt:    expiresAt,
		Render:       models.RenderHint{Format: renderFormatQR, Content: url},
	}, nil
}

// ResolveShare validates a share token and returns the credential it names.
func (s *Service) ResolveShare(ctx context.Context, token string) (*models.Credential, error) {
	if s.shares == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "share links are not configured")
	}
	claims, err := s.shares.Validate(token, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	cid, err := id.ParseCredentialID(claims.CredentialID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid share token")
	}
	return s.Get(ctx, cid)
}

func (s *Service) resolveIssuer(ctx context.Context, issuer id.DID) (*didmodels.Document, error) {
	resolveCtx, cancel := context.WithTimeout(ctx, s.resolveTimeout)
	defer cancel()
	doc, err := s.resolver.Resolve(resolveCtx, issuer)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || dErrors.HasCode(err, dErrors.CodeDependencyFailure) {
			return nil, dErrors.Wrap(err, dErrors.CodeDependencyFailure, "issuer resolution failed")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidIssuer, "issuer DID does not resolve")
	}
	if doc == nil {
		return nil, dErrors.New(dErrors.CodeInvalidIssuer, "issuer DID does not resolve")
	}
	return doc, nil
}

func (s *Service) sign(ctx context.Context, keyID string, payload []byte) (proof.Signature, error) {
	signCtx, cancel := context.WithTimeout(ctx, s.proofTimeout)
	defer cancel()
	sig, err := s.signer.Sign(signCtx, keyID, payload)
	if err != nil {
		if errors.Is(err, proof.ErrUnknownKey) {
			return proof.Signature{}, dErrors.Wrap(err, dErrors.CodeInvalidIssuer, "issuer signing key is not held by this service")
		}
		return proof.Signature{}, dErrors.Wrap(err, dErrors.CodeDependencyFailure, "failed to sign credential")
	}
	return sig, nil
}

// anchor returns "" and the error on failure; callers decide whether it matters.
func (s *Service) anchor(ctx context.Context, event, hash string) (string, error) {
	anchorCtx, cancel := context.WithTimeout(ctx, s.anchorTimeout)
	defer cancel()
	ref, err := s.anchorer.Anchor(anchorCtx, hash)
	if err != nil {
		if !errors.Is(err, anchor.ErrDisabled) {
			s.metrics.IncAnchor(event, "failed")
			s.logger.WarnContext(ctx, "ledger anchoring failed",
				"event", event,
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return "", err
	}
	s.metrics.IncAnchor(event, "anchored")
	return ref, nil
}

func wrapStoreErr(err error, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "credential not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "credential already exists")
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
