// Package verification decides whether a credential or DID is currently
// trustworthy. Every check runs in a fixed order and every outcome,
// including collaborator failures and panics, is a result rather than an error.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"attestor/internal/audit"
	credmodels "attestor/internal/credential/models"
	didmodels "attestor/internal/did/models"
	"attestor/internal/proof"
	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
	"attestor/pkg/requestcontext"
)

var tracer = otel.Tracer("attestor/verification")

type CredentialReader interface {
	Get(ctx context.Context, cid id.CredentialID) (*credmodels.Credential, error)
}

type DIDResolver interface {
	Resolve(ctx context.Context, did id.DID) (*didmodels.Document, error)
}

type ProofVerifier interface {
	Verify(ctx context.Context, key proof.VerificationKey, payload []byte, signature string) error
}

type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) (audit.Entry, error)
}

const (
	defaultResolveTimeout = 2 * time.Second
	defaultProofTimeout   = 2 * time.Second

	kindCredential = "credential"
	kindDID        = "did"
)

// Service runs the credential and DID verification pipelines.
type Service struct {
	credentials    CredentialReader
	resolver       DIDResolver
	verifier       ProofVerifier
	audit          AuditRecorder
	logger         *slog.Logger
	metrics        *Metrics
	resolveTimeout time.Duration
	proofTimeout   time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAuditRecorder records an Access entry for verifications that name a permission.
func WithAuditRecorder(a AuditRecorder) Option {
	return func(s *Service) { s.audit = a }
}

// WithTimeouts bounds DID resolution and proof verification. A timeout fails
// the verification; it is not retried.
func WithTimeouts(resolve, verify time.Duration) Option {
	return func(s *Service) {
		if resolve > 0 {
			s.resolveTimeout = resolve
		}
		if verify > 0 {
			s.proofTimeout = verify
		}
	}
}

func New(credentials CredentialReader, resolver DIDResolver, verifier ProofVerifier, opts ...Option) *Service {
	s := &Service{
		credentials:    credentials,
		resolver:       resolver,
		verifier:       verifier,
		logger:         slog.Default(),
		resolveTimeout: defaultResolveTimeout,
		proofTimeout:   defaultProofTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// VerifyCredential runs, in order: load, issuer presence, issuer resolution,
// signature, expiration, revocation. Hard failures short-circuit; expiration
// and revocation downgrade the result to Partial.
func (s *Service) VerifyCredential(ctx context.Context, req *CredentialRequest) (result *CredentialResult) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "verification.credential")
	defer span.End()

	result = &CredentialResult{
		Details:   make(map[string]any),
		CheckedAt: requestcontext.Now(ctx),
	}
	var cred *credmodels.Credential

	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "verification panicked",
				"panic", fmt.Sprint(r),
				"request_id", requestcontext.RequestID(ctx),
			)
			result.fail(StepInternal, "verification failed: internal error")
		}
		step, _ := result.Details["step"].(string)
		span.SetAttributes(
			attribute.String("verification.status", string(result.Status)),
			attribute.Bool("verification.signature_valid", result.SignatureValid),
		)
		if result.Status == StatusFailed {
			span.SetStatus(codes.Error, result.Message)
		}
		s.metrics.observe(kindCredential, result.Status, step, time.Since(start))
		s.recordAccess(ctx, req, cred, result)
	}()

	cred = s.verifyCredential(ctx, req, result)
	return result
}

func (s *Service) verifyCredential(ctx context.Context, req *CredentialRequest, result *CredentialResult) *credmodels.Credential {
	if req == nil {
		result.fail(StepRequest, "verification request is required")
		return nil
	}
	if req.PermissionID != "" {
		if _, err := id.ParsePermissionID(req.PermissionID); err != nil {
			result.fail(StepRequest, "invalid permission identifier")
			return nil
		}
	}

	// 1. credential
	cred, ok := s.loadCredential(ctx, req, result)
	if !ok {
		return cred
	}
	if !cred.ID.IsNil() {
		cid := cred.ID
		result.CredentialID = &cid
	}

	// 2. issuer present
	if cred.Issuer.IsNil() {
		result.fail(StepIssuer, "verification failed: missing issuer")
		return cred
	}
	result.Issuer = cred.Issuer

	// 3. issuer resolution
	var doc *didmodels.Document
	if req.verifyIssuer() {
		var err error
		if doc, err = s.resolve(ctx, cred.Issuer); err != nil {
			result.fail(StepIssuer, "verification failed: issuer verification failed", "error", errorCode(err))
			return cred
		}
		result.IssuerVerified = true
	}

	// 4. signature
	if !s.checkSignature(ctx, req, cred, doc, result) {
		return cred
	}
	result.SignatureValid = true

	// 5. expiration
	now := requestcontext.Now(ctx)
	result.Expired = cred.ExpiresAt != nil && cred.ExpiresAt.Before(now)
	if cred.ExpiresAt != nil {
		result.Details["expires_at"] = *cred.ExpiresAt
	}

	// 6. revocation
	if req.checkRevocation() {
		result.Revoked = s.currentStatus(ctx, req, cred) == credmodels.StatusRevoked
		result.Details["revocation_checked"] = true
	}

	// 7. decision
	switch {
	case result.Revoked && result.Expired:
		result.Status = StatusPartial
		result.Message = "signature valid but credential has been revoked and has expired"
	case result.Revoked:
		result.Status = StatusPartial
		result.Message = "signature valid but credential has been revoked"
	case result.Expired:
		result.Status = StatusPartial
		result.Message = "signature valid but credential has expired"
	default:
		result.Status = StatusSuccess
		result.Message = "credential verified"
	}
	return cred
}

func (s *Service) loadCredential(ctx context.Context, req *CredentialRequest, result *CredentialResult) (*credmodels.Credential, bool) {
	_, span := tracer.Start(ctx, "verification.load_credential")
	defer span.End()

	if req.Credential != nil {
		result.Details["source"] = "inline"
		return req.Credential.Clone(), true
	}
	if strings.TrimSpace(req.CredentialID) == "" {
		result.fail(StepCredential, "verification failed: credential reference is required")
		return nil, false
	}
	cid, err := id.ParseCredentialID(strings.TrimSpace(req.CredentialID))
	if err != nil {
		result.fail(StepCredential, "verification failed: invalid credential identifier")
		return nil, false
	}
	result.Details["source"] = "store"
	cred, err := s.credentials.Get(ctx, cid)
	if err != nil {
		span.RecordError(err)
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			result.fail(StepCredential, "verification failed: credential not found")
		} else {
			result.fail(StepCredential, "verification failed: credential lookup failed", "error", errorCode(err))
		}
		return nil, false
	}
	return cred, true
}

func (s *Service) checkSignature(ctx context.Context, req *CredentialRequest, cred *credmodels.Credential, doc *didmodels.Document, result *CredentialResult) bool {
	ctx, span := tracer.Start(ctx, "verification.signature")
	defer span.End()

	p := cred.Proof
	if req.Proof != nil {
		p = *req.Proof
	}
	if p.IsZero() {
		result.fail(StepSignature, "verification failed: signature invalid", "reason", "missing proof")
		return false
	}

	if doc == nil {
		// Issuer verification was skipped; the key still has to come from somewhere.
		var err error
		if doc, err = s.resolve(ctx, cred.Issuer); err != nil {
			result.fail(StepSignature, "verification failed: signature invalid", "reason", "issuer key unavailable")
			return false
		}
	}
	if !strings.HasPrefix(p.VerificationMethod, cred.Issuer.String()+"#") && !strings.HasPrefix(p.VerificationMethod, "#") {
		result.fail(StepSignature, "verification failed: signature invalid", "reason", "verification method is not the issuer's")
		return false
	}
	vm, ok := doc.FindVerificationMethod(p.VerificationMethod)
	if !ok {
		result.fail(StepSignature, "verification failed: signature invalid", "reason", "unknown verification method")
		return false
	}

	payload, err := cred.SigningPayload()
	if err != nil {
		result.fail(StepSignature, "verification failed: signature invalid", "reason", "credential is not encodable")
		return false
	}
	verifyCtx, cancel := context.WithTimeout(ctx, s.proofTimeout)
	defer cancel()
	err = s.verifier.Verify(verifyCtx, proof.VerificationKey{Type: vm.Type, PublicKeyMultibase: vm.PublicKeyMultibase}, payload, p.ProofValue)
	if err != nil {
		span.RecordError(err)
		reason := "signature mismatch"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "proof verification timed out"
		}
		result.fail(StepSignature, "verification failed: signature invalid", "reason", reason)
		return false
	}
	result.Details["verification_method"] = vm.ID
	return true
}

// currentStatus prefers the stored record, so an inline copy cannot hide a revocation.
func (s *Service) currentStatus(ctx context.Context, req *CredentialRequest, cred *credmodels.Credential) credmodels.Status {
	if req.Credential == nil || cred.ID.IsNil() {
		return cred.Status
	}
	stored, err := s.credentials.Get(ctx, cred.ID)
	if err != nil {
		return cred.Status
	}
	return stored.Status
}

func (s *Service) resolve(ctx context.Context, did id.DID) (*didmodels.Document, error) {
	ctx, span := tracer.Start(ctx, "verification.resolve_did", trace.WithAttributes(attribute.String("did.method", did.Method().String())))
	defer span.End()

	resolveCtx, cancel := context.WithTimeout(ctx, s.resolveTimeout)
	defer cancel()
	doc, err := s.resolver.Resolve(resolveCtx, did)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if doc == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "DID not found")
	}
	return doc, nil
}

func (s *Service) recordAccess(ctx context.Context, req *CredentialRequest, cred *credmodels.Credential, result *CredentialResult) {
	if s.audit == nil || req == nil || req.PermissionID == "" {
		return
	}
	pid, err := id.ParsePermissionID(req.PermissionID)
	if err != nil {
		return
	}
	actor, _ := id.ParseDIDSyntax(req.VerifierDID)
	entry := audit.Entry{
		Action:       audit.ActionAccess,
		ActorDID:     actor,
		PermissionID: &pid,
		CredentialID: result.CredentialID,
		Details: map[string]any{
			"operation": "verify_credential",
			"status":    string(result.Status),
			"message":   result.Message,
		},
	}
	if cred != nil {
		entry.TargetDID = cred.Subject
		if entry.ActorDID.IsNil() {
			entry.ActorDID = cred.Subject
		}
	}
	if entry.ActorDID.IsNil() {
		s.logger.WarnContext(ctx, "verification audit skipped: no acting DID", "permission_id", pid)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "verification audit panicked",
				"permission_id", pid,
				"panic", fmt.Sprint(r),
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}()
	if _, err := s.audit.Record(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to audit verification",
			"permission_id", pid,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func errorCode(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return string(dErrors.CodeTimeout)
	}
	return string(dErrors.CodeOf(err))
}
