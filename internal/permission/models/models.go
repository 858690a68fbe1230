package models

import (
	"slices"
	"strings"
	"time"

	"attestor/internal/proof"
	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
	pkgstrings "attestor/pkg/platform/strings"
)

// Type is the grant kind.
type Type string

const (
	TypeOneTime    Type = "one_time"
	TypePersistent Type = "persistent"
	TypePartial    Type = "partial"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeOneTime, TypePersistent, TypePartial:
		return true
	}
	return false
}

// Scope is what a recipient may do with a granted credential.
type Scope string

const (
	ScopeRead   Scope = "read"
	ScopeWrite  Scope = "write"
	ScopeShare  Scope = "share"
	ScopeVerify Scope = "verify"
)

func (s Scope) IsValid() bool {
	switch s {
	case ScopeRead, ScopeWrite, ScopeShare, ScopeVerify:
		return true
	}
	return false
}

type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusRevoked Status = "revoked"
)

const (
	maxGrants      = 50
	maxDescription = 500
)

// CredentialGrant is one credential with its scopes and, optionally, the only
// claim names the recipient may see.
type CredentialGrant struct {
	CredentialID id.CredentialID `json:"credential_id"`
	Scopes       []Scope         `json:"scopes"`
	Fields       []string        `json:"fields,omitempty"`
}

func (g CredentialGrant) HasScope(scope Scope) bool {
	return slices.Contains(g.Scopes, scope)
}

// DisclosedFields returns the claim names the grant allows, in sorted order.
// An empty allow-list allows every claim.
func (g CredentialGrant) DisclosedFields(claims map[string]any) []string {
	var out []string
	if len(g.Fields) == 0 {
		for name := range claims {
			out = append(out, name)
		}
	} else {
		for _, f := range g.Fields {
			if _, ok := claims[f]; ok {
				out = append(out, f)
			}
		}
	}
	slices.Sort(out)
	return out
}

// Permission is a grant from owner to recipient.
//
// Invariants:
//   - Revoked is terminal and only the owner may revoke or update
//   - Active becomes Expired once ExpiresAt < now, promoted in the store once
//   - a one-time grant is Expired after its first successful access
type Permission struct {
	ID           id.PermissionID   `json:"id"`
	OwnerDID     id.DID            `json:"owner_did"`
	RecipientDID id.DID            `json:"recipient_did"`
	Type         Type              `json:"type"`
	Grants       []CredentialGrant `json:"credential_grants"`
	Status       Status            `json:"status"`
	Description  string            `json:"description,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	ExpiresAt    *time.Time        `json:"expires_at,omitempty"`
	ConsumedAt   *time.Time        `json:"consumed_at,omitempty"`
	RevokedAt    *time.Time        `json:"revoked_at,omitempty"`
}

// Involves reports whether did is the owner or the recipient.
func (p *Permission) Involves(did id.DID) bool {
	return p.OwnerDID == did || p.RecipientDID == did
}

// CredentialIDs lists the granted credentials in grant order.
func (p *Permission) CredentialIDs() []id.CredentialID {
	out := make([]id.CredentialID, len(p.Grants))
	for i, g := range p.Grants {
		out[i] = g.CredentialID
	}
	return out
}

// Grant returns the grant for cid.
func (p *Permission) Grant(cid id.CredentialID) (CredentialGrant, bool) {
	for _, g := range p.Grants {
		if g.CredentialID == cid {
			return g, true
		}
	}
	return CredentialGrant{}, false
}

func (p *Permission) ExpiredAt(now time.Time) bool {
	return p.ExpiresAt != nil && p.ExpiresAt.Before(now)
}

func (p *Permission) NeedsExpiry(now time.Time) bool {
	return p.Status == StatusActive && p.ExpiredAt(now)
}

// ApplyExpiry promotes an active, expired permission. It is a no-op otherwise.
func (p *Permission) ApplyExpiry(now time.Time) {
	if p.NeedsExpiry(now) {
		p.Status = StatusExpired
		p.UpdatedAt = now
	}
}

func (p *Permission) CanRevoke(by id.DID) error {
	if p.Status == StatusRevoked {
		return dErrors.New(dErrors.CodeConflict, "permission is already revoked")
	}
	if by != p.OwnerDID {
		return dErrors.New(dErrors.CodeForbidden, "only the owner can revoke a permission")
	}
	return nil
}

func (p *Permission) ApplyRevocation(now time.Time) {
	p.Status = StatusRevoked
	p.RevokedAt = &now
	p.UpdatedAt = now
}

// CanUpdate allows the owner to change an active permission.
func (p *Permission) CanUpdate(by id.DID, now time.Time) error {
	if by != p.OwnerDID {
		return dErrors.New(dErrors.CodeForbidden, "only the owner can update a permission")
	}
	if p.Status != StatusActive || p.ExpiredAt(now) {
		return dErrors.New(dErrors.CodeConflict, "only active permissions can be updated")
	}
	return nil
}

func (p *Permission) ApplyUpdate(req *UpdateRequest, now time.Time) {
	if req.ClearExpiry {
		p.ExpiresAt = nil
	} else if req.ExpiresAt != nil {
		exp := req.ExpiresAt.UTC()
		p.ExpiresAt = &exp
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	p.UpdatedAt = now
}

// CanAccess checks that recipient may read cid now and returns the grant.
func (p *Permission) CanAccess(recipient id.DID, cid id.CredentialID, now time.Time) (CredentialGrant, error) {
	if recipient != p.RecipientDID {
		return CredentialGrant{}, dErrors.New(dErrors.CodeForbidden, "caller is not the permission recipient")
	}
	switch {
	case p.Status == StatusRevoked:
		return CredentialGrant{}, dErrors.New(dErrors.CodeForbidden, "permission has been revoked")
	case p.ConsumedAt != nil:
		return CredentialGrant{}, dErrors.New(dErrors.CodeConflict, "one-time permission has already been used")
	case p.Status == StatusExpired || p.ExpiredAt(now):
		return CredentialGrant{}, dErrors.New(dErrors.CodeExpired, "permission has expired")
	}
	g, ok := p.Grant(cid)
	if !ok {
		return CredentialGrant{}, dErrors.New(dErrors.CodeForbidden, "credential is not covered by this permission")
	}
	if !g.HasScope(ScopeRead) {
		return CredentialGrant{}, dErrors.New(dErrors.CodeForbidden, "permission does not allow reading this credential")
	}
	return g, nil
}

// ApplyAccess consumes a one-time permission.
func (p *Permission) ApplyAccess(now time.Time) {
	if p.Type == TypeOneTime {
		p.Status = StatusExpired
		p.ConsumedAt = &now
		p.UpdatedAt = now
	}
}

func (p *Permission) Clone() *Permission {
	if p == nil {
		return nil
	}
	out := *p
	out.Grants = make([]CredentialGrant, len(p.Grants))
	for i, g := range p.Grants {
		out.Grants[i] = CredentialGrant{
			CredentialID: g.CredentialID,
			Scopes:       slices.Clone(g.Scopes),
			Fields:       slices.Clone(g.Fields),
		}
	}
	out.ExpiresAt = cloneTime(p.ExpiresAt)
	out.ConsumedAt = cloneTime(p.ConsumedAt)
	out.RevokedAt = cloneTime(p.RevokedAt)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// GrantInput is the wire form of a credential grant.
type GrantInput struct {
	CredentialID string   `json:"credential_id"`
	Scopes       []string `json:"scopes"`
	Fields       []string `json:"fields,omitempty"`
}

// SetRequest creates a permission. Audit defaults to true.
type SetRequest struct {
	OwnerDID     string       `json:"owner_did"`
	RecipientDID string       `json:"recipient_did"`
	Type         string       `json:"type"`
	Grants       []GrantInput `json:"credential_grants"`
	ExpiresAt    *time.Time   `json:"expires_at,omitempty"`
	Description  string       `json:"description,omitempty"`
	Audit        *bool        `json:"audit,omitempty"`
}

func (r *SetRequest) Normalize() {
	if r == nil {
		return
	}
	r.OwnerDID = strings.TrimSpace(r.OwnerDID)
	r.RecipientDID = strings.TrimSpace(r.RecipientDID)
	r.Type = strings.ToLower(strings.TrimSpace(r.Type))
	r.Description = strings.TrimSpace(r.Description)
	for i := range r.Grants {
		r.Grants[i].CredentialID = strings.TrimSpace(r.Grants[i].CredentialID)
		r.Grants[i].Scopes = pkgstrings.DedupeAndTrimLower(r.Grants[i].Scopes)
		r.Grants[i].Fields = pkgstrings.DedupeAndTrim(r.Grants[i].Fields)
	}
}

func (r *SetRequest) WantsAudit() bool {
	return r.Audit == nil || *r.Audit
}

// Validate checks the request and returns the parsed grants.
func (r *SetRequest) Validate() ([]CredentialGrant, error) {
	if r == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if _, err := id.ParseDIDSyntax(r.OwnerDID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "owner_did is invalid")
	}
	if _, err := id.ParseDIDSyntax(r.RecipientDID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "recipient_did is invalid")
	}
	t := Type(r.Type)
	if !t.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "type must be one_time, persistent or partial")
	}
	if len(r.Grants) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "at least one credential grant is required")
	}
	if len(r.Grants) > maxGrants {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "too many credential grants")
	}
	if len(r.Description) > maxDescription {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "description is too long")
	}

	grants := make([]CredentialGrant, 0, len(r.Grants))
	seen := make(map[id.CredentialID]struct{}, len(r.Grants))
	for _, in := range r.Grants {
		cid, err := id.ParseCredentialID(in.CredentialID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "credential_id is invalid")
		}
		if _, dup := seen[cid]; dup {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "credential granted twice: "+cid.String())
		}
		seen[cid] = struct{}{}
		if len(in.Scopes) == 0 {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "each grant needs at least one scope")
		}
		scopes := make([]Scope, len(in.Scopes))
		for i, s := range in.Scopes {
			scopes[i] = Scope(s)
			if !scopes[i].IsValid() {
				return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid scope: "+s)
			}
		}
		if t == TypePartial && len(in.Fields) == 0 {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "partial grants must list fields")
		}
		grants = append(grants, CredentialGrant{CredentialID: cid, Scopes: scopes, Fields: in.Fields})
	}
	return grants, nil
}

// UpdateRequest changes expiry or description. ClearExpiry wins over ExpiresAt.
type UpdateRequest struct {
	PermissionID id.PermissionID `json:"-"`
	ActorDID     string          `json:"actor_did"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
	ClearExpiry  bool            `json:"clear_expiry,omitempty"`
	Description  *string         `json:"description,omitempty"`
}

func (r *UpdateRequest) Validate(now time.Time) error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.PermissionID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "permission id is required")
	}
	if _, err := id.ParseDIDSyntax(r.ActorDID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "actor_did is invalid")
	}
	if r.ExpiresAt == nil && !r.ClearExpiry && r.Description == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "nothing to update")
	}
	if r.ExpiresAt != nil && !r.ClearExpiry && r.ExpiresAt.Before(now) {
		return dErrors.New(dErrors.CodeInvalidInput, "expires_at must not be in the past")
	}
	if r.Description != nil {
		d := strings.TrimSpace(*r.Description)
		if len(d) > maxDescription {
			return dErrors.New(dErrors.CodeInvalidInput, "description is too long")
		}
		r.Description = &d
	}
	return nil
}

// AccessRequest reads a granted credential as the recipient.
type AccessRequest struct {
	PermissionID id.PermissionID `json:"-"`
	RecipientDID string          `json:"recipient_did"`
	CredentialID string          `json:"credential_id"`
}

// AccessResult is the recipient's view of a granted credential: only the
// allowed claims, with a proof that they belong to the issued credential.
type AccessResult struct {
	PermissionID id.PermissionID        `json:"permission_id"`
	CredentialID id.CredentialID        `json:"credential_id"`
	Issuer       id.DID                 `json:"issuer"`
	Subject      id.DID                 `json:"subject"`
	Claims       map[string]any         `json:"claims"`
	Fields       []string               `json:"fields"`
	Proof        *proof.DisclosureProof `json:"proof"`
	Consumed     bool                   `json:"consumed"`
	Status       Status                 `json:"permission_status"`
}
