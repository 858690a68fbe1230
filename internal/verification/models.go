package verification

import (
	"strings"
	"time"

	credmodels "attestor/internal/credential/models"
	didmodels "attestor/internal/did/models"
	id "attestor/pkg/domain"
)

// Status is the outcome of a verification.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Pipeline steps, reported in failed results.
const (
	StepRequest    = "request"
	StepCredential = "credential"
	StepIssuer     = "issuer"
	StepSignature  = "signature"
	StepExpiration = "expiration"
	StepRevocation = "revocation"
	StepInternal   = "internal"
)

// CredentialRequest verifies a stored credential by ID or an inline one.
// Proof, when set, replaces the credential's embedded proof.
type CredentialRequest struct {
	CredentialID    string                 `json:"credential_id,omitempty"`
	Credential      *credmodels.Credential `json:"credential,omitempty"`
	Proof           *credmodels.Proof      `json:"proof,omitempty"`
	CheckRevocation *bool                  `json:"check_revocation_status,omitempty"`
	VerifyIssuer    *bool                  `json:"verify_issuer,omitempty"`
	PermissionID    string                 `json:"permission_id,omitempty"`
	VerifierDID     string                 `json:"verifier_did,omitempty"`
}

func (r *CredentialRequest) checkRevocation() bool {
	return r.CheckRevocation == nil || *r.CheckRevocation
}

func (r *CredentialRequest) verifyIssuer() bool {
	return r.VerifyIssuer == nil || *r.VerifyIssuer
}

// CredentialResult is always returned; failures are a status, never an error.
type CredentialResult struct {
	Status         Status           `json:"status"`
	Message        string           `json:"message"`
	CredentialID   *id.CredentialID `json:"credential_id,omitempty"`
	Issuer         id.DID           `json:"issuer,omitempty"`
	IssuerVerified bool             `json:"issuer_verified"`
	SignatureValid bool             `json:"signature_valid"`
	Expired        bool             `json:"expired"`
	Revoked        bool             `json:"revoked"`
	Details        map[string]any   `json:"details"`
	CheckedAt      time.Time        `json:"checked_at"`
}

func (r *CredentialResult) fail(step, msg string, details ...any) *CredentialResult {
	r.Status = StatusFailed
	r.Message = msg
	r.Details["step"] = step
	for i := 0; i+1 < len(details); i += 2 {
		if k, ok := details[i].(string); ok {
			r.Details[k] = details[i+1]
		}
	}
	return r
}

// DIDMode selects how much of a DID is checked.
type DIDMode string

const (
	ModeResolve      DIDMode = "resolve"
	ModeAuthenticate DIDMode = "authenticate"
	ModeFull         DIDMode = "full"
)

// ParseDIDMode accepts the three modes case-insensitively. Empty means resolve.
func ParseDIDMode(s string) (DIDMode, bool) {
	switch m := DIDMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeResolve, true
	case ModeResolve, ModeAuthenticate, ModeFull:
		return m, true
	}
	return "", false
}

// DIDRequest verifies a DID. Challenge and Signature, when both set, must be
// a signature over Challenge by the DID's authentication key.
type DIDRequest struct {
	DID       string `json:"did"`
	Mode      string `json:"method,omitempty"`
	Challenge string `json:"challenge,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// DIDResult reports the document and, past resolve mode, proof of control.
type DIDResult struct {
	Status        Status                         `json:"status"`
	Message       string                         `json:"message"`
	DID           id.DID                         `json:"did,omitempty"`
	Method        id.DIDMethod                   `json:"method,omitempty"`
	Mode          DIDMode                        `json:"mode"`
	Document      *didmodels.Document            `json:"document,omitempty"`
	Controller    id.DID                         `json:"controller,omitempty"`
	PublicKeys    []didmodels.VerificationMethod `json:"public_keys,omitempty"`
	Authenticated bool                           `json:"authenticated"`
	Details       map[string]any                 `json:"details"`
	CheckedAt     time.Time                      `json:"checked_at"`
}

func (r *DIDResult) fail(msg string, details ...any) *DIDResult {
	r.Status = StatusFailed
	r.Message = msg
	for i := 0; i+1 < len(details); i += 2 {
		if k, ok := details[i].(string); ok {
			r.Details[k] = details[i+1]
		}
	}
	return r
}
