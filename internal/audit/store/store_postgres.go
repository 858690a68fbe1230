package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"attestor/internal/audit"
	"attestor/internal/platform/postgres"
	id "attestor/pkg/domain"
	"attestor/pkg/platform/sentinel"
	txcontext "attestor/pkg/platform/tx"
)

// PostgresStore appends entries to audit_entries and, in the same transaction,
// to audit_outbox so the outbox worker can stream them.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry audit.Entry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}
	var client []byte
	if entry.Client != nil {
		if client, err = json.Marshal(entry.Client); err != nil {
			return fmt.Errorf("marshal audit client: %w", err)
		}
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	return txcontext.Run(ctx, s.db, 0, func(ctx context.Context) error {
		exec := txcontext.Executor(ctx, s.db)
		_, err := exec.ExecContext(ctx, `
			INSERT INTO audit_entries (id, timestamp, action, actor_did, target_did, credential_id, permission_id, details, client)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			uuid.UUID(entry.ID),
			entry.Timestamp,
			string(entry.Action),
			string(entry.ActorDID),
			nullString(string(entry.TargetDID)),
			credentialUUID(entry.CredentialID),
			permissionUUID(entry.PermissionID),
			details,
			nullBytes(client),
		)
		if err != nil {
			if postgres.IsUniqueViolation(err) {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("insert audit entry: %w", err)
		}

		_, err = exec.ExecContext(ctx, `
			INSERT INTO audit_outbox (id, entry_id, payload, created_at)
			VALUES ($1, $2, $3, $4)`,
			uuid.New(), uuid.UUID(entry.ID), payload, time.Now(),
		)
		if err != nil {
			return fmt.Errorf("insert audit outbox: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) Query(ctx context.Context, filter audit.Filter) ([]audit.Entry, int, error) {
	where, args := buildWhere(filter)
	exec := txcontext.Executor(ctx, s.db)

	var total int
	if err := exec.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_entries"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	pageArgs := append(args, filter.Limit, filter.Offset())
	query := `
		SELECT id, timestamp, action, actor_did, target_did, credential_id, permission_id, details, client
		FROM audit_entries` + where + `
		ORDER BY timestamp DESC, seq DESC
		LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)

	rows, err := exec.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]audit.Entry, 0, filter.Limit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, total, nil
}

func buildWhere(f audit.Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		clauses = append(clauses, strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(args))))
	}
	if f.StartDate != nil {
		add("timestamp >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		add("timestamp <= ?", *f.EndDate)
	}
	if f.OwnerDID != "" {
		add("actor_did = ?", string(f.OwnerDID))
	}
	if f.RecipientDID != "" {
		add("target_did = ?", string(f.RecipientDID))
	}
	if f.CredentialID != nil {
		add("credential_id = ?", uuid.UUID(*f.CredentialID))
	}
	if f.PermissionID != nil {
		add("permission_id = ?", uuid.UUID(*f.PermissionID))
	}
	if f.Action != "" && f.Action != audit.ActionAll {
		add("action = ?", string(f.Action))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (audit.Entry, error) {
	var (
		e            audit.Entry
		entryID      uuid.UUID
		action       string
		actor        string
		target       sql.NullString
		credentialID uuid.NullUUID
		permissionID uuid.NullUUID
		details      []byte
		client       []byte
	)
	if err := row.Scan(&entryID, &e.Timestamp, &action, &actor, &target, &credentialID, &permissionID, &details, &client); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return audit.Entry{}, sentinel.ErrNotFound
		}
		return audit.Entry{}, fmt.Errorf("scan audit entry: %w", err)
	}
	e.ID = id.AuditEntryID(entryID)
	e.Action = audit.ActionType(action)
	e.ActorDID = id.DID(actor)
	e.TargetDID = id.DID(target.String)
	if credentialID.Valid {
		cid := id.CredentialID(credentialID.UUID)
		e.CredentialID = &cid
	}
	if permissionID.Valid {
		pid := id.PermissionID(permissionID.UUID)
		e.PermissionID = &pid
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return audit.Entry{}, fmt.Errorf("unmarshal audit details: %w", err)
		}
	}
	if len(client) > 0 {
		e.Client = &audit.ClientInfo{}
		if err := json.Unmarshal(client, e.Client); err != nil {
			return audit.Entry{}, fmt.Errorf("unmarshal audit client: %w", err)
		}
	}
	e.Timestamp = e.Timestamp.UTC()
	return e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func credentialUUID(cid *id.CredentialID) uuid.NullUUID {
	if cid == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*cid), Valid: true}
}

func permissionUUID(pid *id.PermissionID) uuid.NullUUID {
	if pid == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*pid), Valid: true}
}

// ClaimPending locks up to limit unpublished outbox rows, hands them to publish
// and marks them published when publish succeeds. Concurrent workers skip rows
// locked by each other.
func (s *PostgresStore) ClaimPending(ctx context.Context, limit int, publish func(context.Context, []audit.OutboxRecord) error) (int, error) {
	var claimed int
	err := txcontext.Run(ctx, s.db, 0, func(ctx context.Context) error {
		exec := txcontext.Executor(ctx, s.db)
		rows, err := exec.QueryContext(ctx, `
			SELECT id, payload FROM audit_outbox
			WHERE published_at IS NULL
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED`, limit)
		if err != nil {
			return fmt.Errorf("select audit outbox: %w", err)
		}
		var records []audit.OutboxRecord
		for rows.Next() {
			var rec audit.OutboxRecord
			if err := rows.Scan(&rec.ID, &rec.Payload); err != nil {
				rows.Close()
				return fmt.Errorf("scan audit outbox: %w", err)
			}
			records = append(records, rec)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate audit outbox: %w", err)
		}
		if len(records) == 0 {
			return nil
		}

		if err := publish(ctx, records); err != nil {
			return err
		}

		ids := make([]string, len(records))
		for i, rec := range records {
			ids[i] = rec.ID.String()
		}
		if _, err := exec.ExecContext(ctx,
			`UPDATE audit_outbox SET published_at = $1 WHERE id = ANY($2::uuid[])`,
			time.Now(), pq.Array(ids),
		); err != nil {
			return fmt.Errorf("mark audit outbox published: %w", err)
		}
		claimed = len(records)
		return nil
	})
	return claimed, err
}
