package handler

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"attestor/internal/audit"
	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
)

// parseAuditFilter reads the audit query string. Dates are RFC 3339 or
// YYYY-MM-DD; a bare end date covers that whole day.
func parseAuditFilter(q url.Values) (audit.Filter, error) {
	var f audit.Filter
	var err error

	if v := q.Get("start_date"); v != "" {
		t, _, err := parseTime(v)
		if err != nil {
			return f, dErrors.New(dErrors.CodeInvalidInput, "start_date is invalid")
		}
		f.StartDate = &t
	}
	if v := q.Get("end_date"); v != "" {
		t, dateOnly, err := parseTime(v)
		if err != nil {
			return f, dErrors.New(dErrors.CodeInvalidInput, "end_date is invalid")
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.EndDate = &t
	}
	if v := q.Get("owner_did"); v != "" {
		if f.OwnerDID, err = id.ParseDIDSyntax(v); err != nil {
			return f, err
		}
	}
	if v := q.Get("recipient_did"); v != "" {
		if f.RecipientDID, err = id.ParseDIDSyntax(v); err != nil {
			return f, err
		}
	}
	if v := q.Get("credential_id"); v != "" {
		cid, err := id.ParseCredentialID(v)
		if err != nil {
			return f, err
		}
		f.CredentialID = &cid
	}
	if v := q.Get("permission_id"); v != "" {
		pid, err := id.ParsePermissionID(v)
		if err != nil {
			return f, err
		}
		f.PermissionID = &pid
	}
	if v := q.Get("action_type"); v != "" {
		if f.Action, err = audit.ParseActionType(v); err != nil {
			return f, err
		}
	}
	if f.Page, err = intParam(q, "page"); err != nil {
		return f, err
	}
	if f.Limit, err = intParam(q, "limit"); err != nil {
		return f, err
	}
	return f, nil
}

func parseTime(v string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	return t, true, err
}

func intParam(q url.Values, name string) (int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, name+" must be a positive integer")
	}
	return n, nil
}
