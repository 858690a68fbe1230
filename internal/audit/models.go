package audit

import (
	"math"
	"strings"
	"time"

	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
)

// ActionType classifies an audit entry.
type ActionType string

const (
	ActionSet    ActionType = "set"
	ActionAccess ActionType = "access"
	ActionRevoke ActionType = "revoke"
	ActionUpdate ActionType = "update"

	// ActionAll is a filter value only; entries never carry it.
	ActionAll ActionType = "all"
)

func (a ActionType) IsValid() bool {
	switch a {
	case ActionSet, ActionAccess, ActionRevoke, ActionUpdate:
		return true
	}
	return false
}

// ParseActionType accepts any entry action plus "all". Empty means all.
func ParseActionType(s string) (ActionType, error) {
	a := ActionType(strings.ToLower(strings.TrimSpace(s)))
	if a == "" || a == ActionAll {
		return ActionAll, nil
	}
	if !a.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "action_type must be one of set, access, revoke, update, all")
	}
	return a, nil
}

// ClientInfo is the network metadata of the request that produced an entry.
type ClientInfo struct {
	IP             string `json:"ip,omitempty"`
	UserAgent      string `json:"user_agent,omitempty"`
	Browser        string `json:"browser,omitempty"`
	BrowserVersion string `json:"browser_version,omitempty"`
	OS             string `json:"os,omitempty"`
	Mobile         bool   `json:"mobile,omitempty"`
	Bot            bool   `json:"bot,omitempty"`
}

func (c *ClientInfo) IsZero() bool {
	return c == nil || (c.IP == "" && c.UserAgent == "")
}

// Entry is one immutable audit record.
type Entry struct {
	ID           id.AuditEntryID  `json:"id"`
	Timestamp    time.Time        `json:"timestamp"`
	Action       ActionType       `json:"action"`
	ActorDID     id.DID           `json:"actor_did"`
	TargetDID    id.DID           `json:"target_did,omitempty"`
	CredentialID *id.CredentialID `json:"credential_id,omitempty"`
	PermissionID *id.PermissionID `json:"permission_id,omitempty"`
	Details      map[string]any   `json:"details,omitempty"`
	Client       *ClientInfo      `json:"client,omitempty"`
}

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Filter selects entries. Every supplied criterion must match; date bounds are inclusive.
// OwnerDID matches the acting DID and RecipientDID the target DID.
type Filter struct {
	StartDate    *time.Time
	EndDate      *time.Time
	OwnerDID     id.DID
	RecipientDID id.DID
	CredentialID *id.CredentialID
	PermissionID *id.PermissionID
	Action       ActionType
	Page         int
	Limit        int
}

// Normalize applies defaults for paging and action.
func (f *Filter) Normalize() {
	if f.Action == "" {
		f.Action = ActionAll
	}
	if f.Page <= 0 {
		f.Page = DefaultPage
	}
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
}

// Validate checks ranges. Call after Normalize.
func (f *Filter) Validate() error {
	if f.Limit > MaxLimit {
		return dErrors.New(dErrors.CodeInvalidInput, "limit must be at most 100")
	}
	if f.Action != ActionAll && !f.Action.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid action type")
	}
	if f.StartDate != nil && f.EndDate != nil && f.StartDate.After(*f.EndDate) {
		return dErrors.New(dErrors.CodeInvalidInput, "start_date must not be after end_date")
	}
	return nil
}

// Offset is the number of entries skipped before the requested page. Pages
// too far out to address saturate at math.MaxInt and read as empty.
func (f *Filter) Offset() int {
	if f.Page <= 1 || f.Limit <= 0 {
		return 0
	}
	if f.Page-1 > math.MaxInt/f.Limit {
		return math.MaxInt
	}
	return (f.Page - 1) * f.Limit
}

// Matches reports whether e satisfies every criterion in f.
func (f *Filter) Matches(e Entry) bool {
	if f.StartDate != nil && e.Timestamp.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && e.Timestamp.After(*f.EndDate) {
		return false
	}
	if f.OwnerDID != "" && e.ActorDID != f.OwnerDID {
		return false
	}
	if f.RecipientDID != "" && e.TargetDID != f.RecipientDID {
		return false
	}
	if f.CredentialID != nil && (e.CredentialID == nil || *e.CredentialID != *f.CredentialID) {
		return false
	}
	if f.PermissionID != nil && (e.PermissionID == nil || *e.PermissionID != *f.PermissionID) {
		return false
	}
	if f.Action != "" && f.Action != ActionAll && e.Action != f.Action {
		return false
	}
	return true
}

// Page is one slice of a filtered, newest-first result.
type Page struct {
	Entries []Entry `json:"logs"`
	Total   int     `json:"total"`
	Page    int     `json:"page"`
	Limit   int     `json:"limit"`
}
