// Package service implements the DID registry: registration, resolution,
// recovery and key rotation.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	didmetrics "attestor/internal/did/metrics"
	"attestor/internal/did/models"
	"attestor/internal/proof"
	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
	"attestor/pkg/platform/sentinel"
	"attestor/pkg/requestcontext"
)

type Store interface {
	CreateIfIdentifierAvailable(ctx context.Context, rec *models.Record) error
	FindByDID(ctx context.Context, did id.DID) (*models.Record, error)
	Execute(ctx context.Context, did id.DID, validate func(*models.Record) error, mutate func(*models.Record)) (*models.Record, error)
}

// KeyGenerator is the part of the proof capability the registry uses.
type KeyGenerator interface {
	GenerateKeyPair(ctx context.Context, method id.DIDMethod, keyID string) (proof.PublicKey, error)
	DiscardKey(ctx context.Context, keyID string) error
}

// CacheInvalidator drops cached documents after the registry changes one.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, did id.DID)
}

const (
	defaultKeyTimeout = 2 * time.Second

	// defaultMinRecoveryFactors accepts any single matching proof of control.
	defaultMinRecoveryFactors = 1
)

// Service is the DID registry.
type Service struct {
	store       Store
	keys        KeyGenerator
	invalidator CacheInvalidator
	logger      *slog.Logger
	metrics     *didmetrics.Metrics
	keyTimeout  time.Duration
	minFactors  int
	bcryptCost  int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *didmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithCacheInvalidator(inv CacheInvalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

// WithKeyTimeout bounds each call to the key generator.
func WithKeyTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.keyTimeout = d
		}
	}
}

// WithMinRecoveryFactors sets how many independent proofs of control a
// recovery needs. Values below 1 are ignored.
func WithMinRecoveryFactors(n int) Option {
	return func(s *Service) {
		if n >= 1 {
			s.minFactors = n
		}
	}
}

// WithBcryptCost sets the cost used to hash security answers.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

func New(store Store, keys KeyGenerator, opts ...Option) *Service {
	s := &Service{
		store:      store,
		keys:       keys,
		logger:     slog.Default(),
		keyTimeout: defaultKeyTimeout,
		minFactors: defaultMinRecoveryFactors,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a DID for the request's primary identifier. The identifier
// check and insert are one atomic store operation, so concurrent registrations
// of the same identifier yield exactly one success.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.Record, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ident, err := req.PrimaryIdentifier()
	if err != nil {
		return nil, err
	}
	did := ident.DID()

	// Fast path; the authoritative check is the insert below.
	if _, err := s.store.FindByDID(ctx, did); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "identifier is already registered")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check identifier")
	}

	info := models.Info{
		DID:            did,
		Method:         ident.Method(),
		IdentifierKind: ident.Kind,
		IdentifierHash: ident.Hash(),
	}
	if req.RecoveryEmail != "" {
		email, err := models.NormalizeEmail(req.RecoveryEmail)
		if err != nil {
			return nil, err
		}
		info.RecoveryIdentifierHash = models.RecoveryIdentifierHash(email)
	}
	if info.SecurityAnswers, err = models.HashSecurityAnswers(req.SecurityQuestions, s.bcryptCost); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash security answers")
	}

	keyID := models.KeyID(did, 1)
	pub, err := s.generateKey(ctx, info.Method, keyID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	info.CreatedAt = now
	info.UpdatedAt = now
	rec := &models.Record{
		Info:     info,
		Document: models.NewDocument(did, pub.Type, pub.Multibase),
	}

	if err := s.store.CreateIfIdentifierAvailable(ctx, rec); err != nil {
		s.discardKey(ctx, keyID)
		if errors.Is(err, sentinel.ErrAlreadyUsed) || errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "identifier is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register DID")
	}

	s.metrics.IncRegistration(string(info.Method))
	s.logAudit(ctx, "did_registered",
		"did", did,
		"method", info.Method,
		"identifier_kind", info.IdentifierKind,
	)
	return rec, nil
}

// Resolve returns the current document for did.
func (s *Service) Resolve(ctx context.Context, did id.DID) (*models.Document, error) {
	rec, err := s.find(ctx, did)
	if err != nil {
		return nil, err
	}
	return rec.Document, nil
}

// PublicInfo returns the registry info with recovery material stripped, plus the document.
func (s *Service) PublicInfo(ctx context.Context, did id.DID) (*models.PublicInfo, *models.Document, error) {
	rec, err := s.find(ctx, did)
	if err != nil {
		return nil, nil, err
	}
	info := rec.Info.Public()
	return &info, rec.Document, nil
}

// Recover checks the supplied proofs of control against the configured
// policy and marks the DID verified when enough of them match.
func (s *Service) Recover(ctx context.Context, req *models.RecoverRequest) (*models.Record, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	did := id.DID(req.DID)

	// bcrypt comparisons run before the store lock is taken.
	rec, err := s.find(ctx, did)
	if err != nil {
		return nil, err
	}
	matched := rec.Info.MatchedFactors(req)
	if matched < s.minFactors {
		s.metrics.IncRecovery("rejected")
		s.logger.WarnContext(ctx, "did recovery rejected",
			"did", did,
			"matched_factors", matched,
			"required_factors", s.minFactors,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "recovery proof rejected")
	}

	now := requestcontext.Now(ctx)
	updated, err := s.store.Execute(ctx, did,
		func(*models.Record) error { return nil },
		func(r *models.Record) { r.Info.ApplyRecovery(now) },
	)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to record recovery")
	}

	s.metrics.IncRecovery("recovered")
	s.logAudit(ctx, "did_recovered",
		"did", did,
		"matched_factors", matched,
	)
	return updated, nil
}

// RotateKey adds a fresh key to the document and makes it the authentication
// method. Earlier keys remain listed so existing proofs keep verifying.
func (s *Service) RotateKey(ctx context.Context, did id.DID) (*models.Document, error) {
	rec, err := s.find(ctx, did)
	if err != nil {
		return nil, err
	}
	keyID := rec.Document.NextKeyID()
	pub, err := s.generateKey(ctx, did.Method(), keyID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	updated, err := s.store.Execute(ctx, did,
		func(r *models.Record) error {
			if r.Document.NextKeyID() != keyID {
				return dErrors.New(dErrors.CodeConflict, "concurrent key rotation")
			}
			return nil
		},
		func(r *models.Record) {
			r.Document.ApplyKeyRotation(keyID, pub.Type, pub.Multibase)
			r.Info.UpdatedAt = now
		},
	)
	if err != nil {
		s.discardKey(ctx, keyID)
		return nil, wrapStoreErr(err, "failed to rotate key")
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, did)
	}

	s.logAudit(ctx, "did_key_rotated",
		"did", did,
		"key_id", keyID,
	)
	return updated.Document, nil
}

func (s *Service) find(ctx context.Context, did id.DID) (*models.Record, error) {
	rec, err := s.store.FindByDID(ctx, did)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load DID")
	}
	return rec, nil
}

func (s *Service) generateKey(ctx context.Context, method id.DIDMethod, keyID string) (proof.PublicKey, error) {
	keyCtx, cancel := context.WithTimeout(ctx, s.keyTimeout)
	defer cancel()
	pub, err := s.keys.GenerateKeyPair(keyCtx, method, keyID)
	if err != nil {
		if errors.Is(err, proof.ErrKeyExists) {
			return proof.PublicKey{}, dErrors.New(dErrors.CodeConflict, "identifier is already registered")
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return proof.PublicKey{}, dErrors.Wrap(err, dErrors.CodeDependencyFailure, "key generation timed out")
		}
		return proof.PublicKey{}, dErrors.Wrap(err, dErrors.CodeDependencyFailure, "key generation failed")
	}
	return pub, nil
}

func (s *Service) discardKey(ctx context.Context, keyID string) {
	if err := s.keys.DiscardKey(ctx, keyID); err != nil {
		s.logger.WarnContext(ctx, "failed to discard unused key", "key_id", keyID, "error", err)
	}
}

func wrapStoreErr(err error, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "DID not found")
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
