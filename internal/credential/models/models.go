package models

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"time"

	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
	"attestor/pkg/platform/canonhash"
)

// Status is the lifecycle state of a credential.
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusRevoked Status = "revoked"
)

const (
	DefaultType        = "VerifiableCredential"
	ProofPurposeAssert = "assertionMethod"
	maxClaims          = 100
)

// Proof is the issuer's signature over the credential's signing payload.
// It is immutable once attached.
type Proof struct {
	Type               string    `json:"type"`
	Created            time.Time `json:"created"`
	VerificationMethod string    `json:"verificationMethod"`
	ProofPurpose       string    `json:"proofPurpose"`
	ProofValue         string    `json:"proofValue"`
}

func (p Proof) IsZero() bool {
	return p.ProofValue == "" && p.VerificationMethod == ""
}

// Revocation records who revoked a credential, when and why.
type Revocation struct {
	RevokedAt time.Time `json:"revoked_at"`
	RevokedBy id.DID    `json:"revoked_by"`
	Reason    string    `json:"reason,omitempty"`
	AnchorRef string    `json:"anchor_ref,omitempty"`
}

// Credential is an issued credential.
//
// Invariants:
//   - Revoked is terminal and only the issuer may revoke
//   - Active becomes Expired once ExpiresAt <= now; the store is updated the
//     first time this is observed
//   - Proof never changes after issuance
type Credential struct {
	ID         id.CredentialID `json:"id"`
	Type       string          `json:"type"`
	Issuer     id.DID          `json:"issuer"`
	Subject    id.DID          `json:"subject"`
	Claims     map[string]any  `json:"claims"`
	IssuedAt   time.Time       `json:"issued_at"`
	ExpiresAt  *time.Time      `json:"expires_at,omitempty"`
	Status     Status          `json:"status"`
	Proof      Proof           `json:"proof"`
	AnchorRef  string          `json:"anchor_ref,omitempty"`
	Revocation *Revocation     `json:"revocation,omitempty"`
}

// ExpiredAt reports whether the expiration has been reached at now.
func (c *Credential) ExpiredAt(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// NeedsExpiry reports whether the stored status must be promoted to Expired.
func (c *Credential) NeedsExpiry(now time.Time) bool {
	return c.Status == StatusActive && c.ExpiredAt(now)
}

// ApplyExpiry promotes an active, expired credential. It is a no-op otherwise,
// so calling it twice is safe.
func (c *Credential) ApplyExpiry(now time.Time) {
	if c.NeedsExpiry(now) {
		c.Status = StatusExpired
	}
}

// CanRevoke checks the revoke transition. An already revoked credential is a
// conflict regardless of who asks.
func (c *Credential) CanRevoke(by id.DID) error {
	if c.Status == StatusRevoked {
		return dErrors.New(dErrors.CodeConflict, "credential is already revoked")
	}
	if by != c.Issuer {
		return dErrors.New(dErrors.CodeForbidden, "only the issuer can revoke a credential")
	}
	return nil
}

// ApplyRevocation marks the credential revoked. Call CanRevoke first.
func (c *Credential) ApplyRevocation(by id.DID, reason string, now time.Time) {
	c.Status = StatusRevoked
	c.Revocation = &Revocation{RevokedAt: now, RevokedBy: by, Reason: reason}
}

func (c *Credential) Clone() *Credential {
	if c == nil {
		return nil
	}
	out := *c
	out.Claims = maps.Clone(c.Claims)
	if c.ExpiresAt != nil {
		t := *c.ExpiresAt
		out.ExpiresAt = &t
	}
	if c.Revocation != nil {
		r := *c.Revocation
		out.Revocation = &r
	}
	return &out
}

type signingPayload struct {
	ID      string         `json:"id"`
	Issuer  string         `json:"issuer"`
	Subject string         `json:"subject"`
	Claims  map[string]any `json:"claims"`
}

// SigningPayload is the canonical encoding of (id, issuer, subject, claims)
// that the proof signs.
func (c *Credential) SigningPayload() ([]byte, error) {
	claims := c.Claims
	if claims == nil {
		claims = map[string]any{}
	}
	return canonhash.Encode(signingPayload{
		ID:      c.ID.String(),
		Issuer:  c.Issuer.String(),
		Subject: c.Subject.String(),
		Claims:  claims,
	})
}

// NormalizeClaims round-trips claims through JSON so the stored and the
// decoded forms encode identically.
func NormalizeClaims(claims map[string]any) (map[string]any, error) {
	if len(claims) == 0 {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("claims are not JSON encodable: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// IssueRequest asks for a new credential. AnchorOnChain defaults to true;
// anchoring failures only fail the request when RequireAnchor is set.
type IssueRequest struct {
	Issuer        string         `json:"issuer_did"`
	Subject       string         `json:"subject_did"`
	Type          string         `json:"type,omitempty"`
	Claims        map[string]any `json:"claims"`
	ExpiresAt     *time.Time     `json:"expiration_date,omitempty"`
	AnchorOnChain *bool          `json:"anchor_on_chain,omitempty"`
	RequireAnchor bool           `json:"require_anchor,omitempty"`
}

func (r *IssueRequest) Normalize() {
	if r == nil {
		return
	}
	r.Issuer = strings.TrimSpace(r.Issuer)
	r.Subject = strings.TrimSpace(r.Subject)
	r.Type = strings.TrimSpace(r.Type)
	if r.Type == "" {
		r.Type = DefaultType
	}
}

func (r *IssueRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if _, err := id.ParseDID(r.Issuer); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "issuer_did is invalid")
	}
	if _, err := id.ParseDIDSyntax(r.Subject); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "subject_did is invalid")
	}
	if len(r.Claims) > maxClaims {
		return dErrors.New(dErrors.CodeInvalidInput, "too many claims")
	}
	for k := range r.Claims {
		if strings.TrimSpace(k) == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "claim names must not be empty")
		}
	}
	return nil
}

// WantsAnchor reports whether the request asks for on-chain anchoring.
func (r *IssueRequest) WantsAnchor() bool {
	return r.RequireAnchor || r.AnchorOnChain == nil || *r.AnchorOnChain
}

// RevokeRequest asks the issuer-only revoke transition.
type RevokeRequest struct {
	CredentialID  id.CredentialID `json:"-"`
	RevokedBy     string          `json:"revoked_by"`
	Reason        string          `json:"reason,omitempty"`
	AnchorOnChain *bool           `json:"anchor_on_chain,omitempty"`
}

func (r *RevokeRequest) Normalize() {
	if r == nil {
		return
	}
	r.RevokedBy = strings.TrimSpace(r.RevokedBy)
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *RevokeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.CredentialID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "credential id is required")
	}
	if _, err := id.ParseDIDSyntax(r.RevokedBy); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "revoked_by is invalid")
	}
	if len(r.Reason) > 500 {
		return dErrors.New(dErrors.CodeInvalidInput, "reason is too long")
	}
	return nil
}

func (r *RevokeRequest) WantsAnchor() bool {
	return r.AnchorOnChain == nil || *r.AnchorOnChain
}

// AnchorStatus reports what happened to an anchoring request.
type AnchorStatus string

const (
	AnchorAnchored AnchorStatus = "anchored"
	AnchorSkipped  AnchorStatus = "skipped"
	AnchorFailed   AnchorStatus = "failed"
)

// RevocationReceipt is the result of a successful revoke.
type RevocationReceipt struct {
	CredentialID id.CredentialID `json:"credential_id"`
	Status       Status          `json:"status"`
	RevokedAt    time.Time       `json:"revoked_at"`
	RevokedBy    id.DID          `json:"revoked_by"`
	Reason       string          `json:"reason,omitempty"`
	AnchorStatus AnchorStatus    `json:"anchor_status"`
	AnchorRef    string          `json:"anchor_ref,omitempty"`
}

// RenderHint tells a client how to present a share link out of band.
type RenderHint struct {
	Format  string `json:"format"`
	Content string `json:"content"`
}

// ShareDescriptor is a bounded-lifetime handle on a credential.
type ShareDescriptor struct {
	CredentialID id.CredentialID `json:"credential_id"`
	ShareID      string          `json:"share_id"`
	Token        string          `json:"token"`
	URL          string          `json:"url"`
	ExpiresAt    time.Time       `json:"expires_at"`
	Render       RenderHint      `json:"render"`
}
