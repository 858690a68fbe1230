// Package domain holds identity primitives shared across modules.
//
// Typed identifiers wrap uuid.UUID so a CredentialID can never be passed where a
// PermissionID is expected. All Parse* functions are trust-boundary validators:
// they reject empty, malformed and nil UUIDs with CodeInvalidInput.
package domain

import (
	"github.com/google/uuid"

	dErrors "attestor/pkg/domain-errors"
)

type (
	CredentialID uuid.UUID
	PermissionID uuid.UUID
	AuditEntryID uuid.UUID
)

func NewCredentialID() CredentialID { return CredentialID(uuid.New()) }
func NewPermissionID() PermissionID { return PermissionID(uuid.New()) }
func NewAuditEntryID() AuditEntryID { return AuditEntryID(uuid.New()) }

func (id CredentialID) String() string { return uuid.UUID(id).String() }
func (id PermissionID) String() string { return uuid.UUID(id).String() }
func (id AuditEntryID) String() string { return uuid.UUID(id).String() }

func (id CredentialID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id PermissionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id AuditEntryID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id CredentialID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id PermissionID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id AuditEntryID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *CredentialID) UnmarshalText(b []byte) error {
	parsed, err := ParseCredentialID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *PermissionID) UnmarshalText(b []byte) error {
	parsed, err := ParsePermissionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *AuditEntryID) UnmarshalText(b []byte) error {
	parsed, err := ParseAuditEntryID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func ParseCredentialID(s string) (CredentialID, error) {
	u, err := parseUUID(s, "credential ID")
	return CredentialID(u), err
}

func ParsePermissionID(s string) (PermissionID, error) {
	u, err := parseUUID(s, "permission ID")
	return PermissionID(u), err
}

func ParseAuditEntryID(s string) (AuditEntryID, error) {
	u, err := parseUUID(s, "audit entry ID")
	return AuditEntryID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" must not be nil")
	}
	return u, nil
}
