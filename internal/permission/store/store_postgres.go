package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"attestor/internal/permission/models"
	"attestor/internal/platform/postgres"
	id "attestor/pkg/domain"
	"attestor/pkg/platform/sentinel"
	txcontext "attestor/pkg/platform/tx"
)

// PostgresStore persists permissions. Grants are JSONB; the granted credential
// IDs are mirrored into a text[] column for indexed lookups.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectPermission = `
	SELECT id, owner_did, recipient_did, type, grants, status, description,
	       created_at, updated_at, expires_at, consumed_at, revoked_at
	FROM permissions`

func (s *PostgresStore) Create(ctx context.Context, p *models.Permission) error {
	grants, err := json.Marshal(p.Grants)
	if err != nil {
		return fmt.Errorf("marshal grants: %w", err)
	}
	_, err = txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO permissions (id, owner_did, recipient_did, type, grants, credential_ids, status, description,
		                         created_at, updated_at, expires_at, consumed_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		uuid.UUID(p.ID),
		p.OwnerDID.String(),
		p.RecipientDID.String(),
		string(p.Type),
		grants,
		pq.Array(credentialIDStrings(p)),
		string(p.Status),
		p.Description,
		p.CreatedAt,
		p.UpdatedAt,
		p.ExpiresAt,
		p.ConsumedAt,
		p.RevokedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert permission: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, pid id.PermissionID) (*models.Permission, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, selectPermission+` WHERE id = $1`, uuid.UUID(pid))
	return scanPermission(row)
}

func (s *PostgresStore) ListByDID(ctx context.Context, did id.DID) ([]*models.Permission, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx,
		selectPermission+` WHERE owner_did = $1 OR recipient_did = $1 ORDER BY created_at, id`, did.String())
	if err != nil {
		return nil, fmt.Errorf("query permissions: %w", err)
	}
	defer rows.Close()

	var out []*models.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permissions: %w", err)
	}
	return out, nil
}

// Execute locks the row for the duration of validate and mutate.
func (s *PostgresStore) Execute(ctx context.Context, pid id.PermissionID, validate func(*models.Permission) error, mutate func(*models.Permission)) (*models.Permission, error) {
	var out *models.Permission
	err := txcontext.Run(ctx, s.db, 0, func(ctx context.Context) error {
		exec := txcontext.Executor(ctx, s.db)
		p, err := scanPermission(exec.QueryRowContext(ctx, selectPermission+` WHERE id = $1 FOR UPDATE`, uuid.UUID(pid)))
		if err != nil {
			return err
		}
		if err := validate(p); err != nil {
			return err
		}
		mutate(p)

		_, err = exec.ExecContext(ctx, `
			UPDATE permissions
			SET status = $2, description = $3, updated_at = $4, expires_at = $5, consumed_at = $6, revoked_at = $7
			WHERE id = $1`,
			uuid.UUID(pid),
			string(p.Status),
			p.Description,
			p.UpdatedAt,
			p.ExpiresAt,
			p.ConsumedAt,
			p.RevokedAt,
		)
		if err != nil {
			return fmt.Errorf("update permission: %w", err)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func credentialIDStrings(p *models.Permission) []string {
	ids := p.CredentialIDs()
	out := make([]string, len(ids))
	for i, cid := range ids {
		out[i] = cid.String()
	}
	return out
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPermission(row rowScanner) (*models.Permission, error) {
	var (
		p          models.Permission
		pid        uuid.UUID
		owner      string
		recipient  string
		permType   string
		status     string
		grants     []byte
		expiresAt  sql.NullTime
		consumedAt sql.NullTime
		revokedAt  sql.NullTime
	)
	err := row.Scan(&pid, &owner, &recipient, &permType, &grants, &status, &p.Description,
		&p.CreatedAt, &p.UpdatedAt, &expiresAt, &consumedAt, &revokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan permission: %w", err)
	}
	p.ID = id.PermissionID(pid)
	p.OwnerDID = id.DID(owner)
	p.RecipientDID = id.DID(recipient)
	p.Type = models.Type(permType)
	p.Status = models.Status(status)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	p.ExpiresAt = utcPtr(expiresAt)
	p.ConsumedAt = utcPtr(consumedAt)
	p.RevokedAt = utcPtr(revokedAt)
	if err := json.Unmarshal(grants, &p.Grants); err != nil {
		return nil, fmt.Errorf("unmarshal grants: %w", err)
	}
	return &p, nil
}

func utcPtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
