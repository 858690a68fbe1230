package verification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	didmodels "attestor/internal/did/models"
	"attestor/internal/proof"
	id "attestor/pkg/domain"
	"attestor/pkg/requestcontext"
)

// VerifyDID checks syntax and method, resolves the document and, for
// authenticate and full modes, checks proof of control.
func (s *Service) VerifyDID(ctx context.Context, req *DIDRequest) (result *DIDResult) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "verification.did")
	defer span.End()

	result = &DIDResult{
		Details:   make(map[string]any),
		CheckedAt: requestcontext.Now(ctx),
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "did verification panicked",
				"panic", fmt.Sprint(r),
				"request_id", requestcontext.RequestID(ctx),
			)
			result.fail("DID verification failed: internal error")
			result.Details["step"] = StepInternal
		}
		step, _ := result.Details["step"].(string)
		span.SetAttributes(
			attribute.String("verification.status", string(result.Status)),
			attribute.String("verification.mode", string(result.Mode)),
		)
		if result.Status == StatusFailed {
			span.SetStatus(codes.Error, result.Message)
		}
		s.metrics.observe(kindDID, result.Status, step, time.Since(start))
	}()

	s.verifyDID(ctx, req, result)
	return result
}

func (s *Service) verifyDID(ctx context.Context, req *DIDRequest, result *DIDResult) {
	if req == nil {
		result.fail("DID verification request is required", "step", StepRequest)
		return
	}
	mode, ok := ParseDIDMode(req.Mode)
	if !ok {
		result.fail("unsupported verification mode", "step", StepRequest)
		return
	}
	result.Mode = mode

	did, err := id.ParseDIDSyntax(req.DID)
	if err != nil {
		result.fail("invalid DID format", "step", StepRequest)
		return
	}
	result.DID = did
	result.Method = did.Method()
	if !did.Method().IsSupported() {
		result.fail("unsupported DID method", "step", StepRequest, "supported_methods", id.SupportedMethods())
		return
	}

	doc, err := s.resolve(ctx, did)
	if err != nil {
		result.fail("DID resolution failed", "step", StepIssuer, "error", errorCode(err))
		return
	}
	result.Document = doc
	result.Controller = doc.Controller
	result.PublicKeys = doc.VerificationMethod

	if mode == ModeResolve {
		result.Status = StatusSuccess
		result.Message = "DID resolved"
		return
	}

	if msg := s.checkControl(ctx, req, doc); msg != "" {
		result.fail(msg, "step", StepSignature)
		return
	}
	if mode == ModeFull {
		if msg := checkConsistency(did, doc); msg != "" {
			result.fail(msg, "step", StepIssuer)
			return
		}
	}
	result.Authenticated = true
	result.Status = StatusSuccess
	result.Message = "DID verified"
}

// checkControl returns "" when the authentication key is usable and, if a
// challenge was signed, the signature verifies.
func (s *Service) checkControl(ctx context.Context, req *DIDRequest, doc *didmodels.Document) string {
	if len(doc.Authentication) == 0 {
		return "DID document has no authentication method"
	}
	for _, ref := range doc.Authentication {
		vm, ok := doc.FindVerificationMethod(ref)
		if !ok || vm.PublicKeyMultibase == "" {
			return "authentication method has no key material"
		}
	}

	challenge, signature := strings.TrimSpace(req.Challenge), strings.TrimSpace(req.Signature)
	if challenge == "" && signature == "" {
		return ""
	}
	if challenge == "" || signature == "" {
		return "challenge and signature must be supplied together"
	}
	vm, _ := doc.FindVerificationMethod(doc.CurrentKeyID())
	verifyCtx, cancel := context.WithTimeout(ctx, s.proofTimeout)
	defer cancel()
	key := proof.VerificationKey{Type: vm.Type, PublicKeyMultibase: vm.PublicKeyMultibase}
	if err := s.verifier.Verify(verifyCtx, key, []byte(challenge), signature); err != nil {
		return "proof of control failed"
	}
	return ""
}

func checkConsistency(did id.DID, doc *didmodels.Document) string {
	if doc.ID != did {
		return "DID document subject does not match"
	}
	for _, vm := range doc.VerificationMethod {
		if !strings.HasPrefix(vm.ID, did.String()+"#") {
			return "verification method belongs to another DID"
		}
		if vm.Controller != doc.Controller && vm.Controller != did {
			return "verification method has a foreign controller"
		}
	}
	return ""
}
