package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"attestor/internal/credential/models"
	"attestor/internal/platform/postgres"
	id "attestor/pkg/domain"
	"attestor/pkg/platform/sentinel"
	txcontext "attestor/pkg/platform/tx"
)

// PostgresStore persists credentials in the credentials table. Claims and
// proof are JSONB; the revocation is flattened into nullable columns.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectCredential = `
	SELECT id, type, issuer, subject, claims, issued_at, expires_at, status, proof, anchor_ref,
	       revoked_at, revoked_by, revocation_reason, revocation_anchor_ref
	FROM credentials`

func (s *PostgresStore) Create(ctx context.Context, c *models.Credential) error {
	claims, proofJSON, err := encodeCredential(c)
	if err != nil {
		return err
	}
	_, err = txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO credentials (id, type, issuer, subject, claims, issued_at, expires_at, status, proof, anchor_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.UUID(c.ID),
		c.Type,
		c.Issuer.String(),
		c.Subject.String(),
		claims,
		c.IssuedAt,
		nullTime(c.ExpiresAt),
		string(c.Status),
		proofJSON,
		nullString(c.AnchorRef),
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, cid id.CredentialID) (*models.Credential, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, selectCredential+` WHERE id = $1`, uuid.UUID(cid))
	return scanCredential(row)
}

// Execute locks the row for the duration of validate and mutate.
func (s *PostgresStore) Execute(ctx context.Context, cid id.CredentialID, validate func(*models.Credential) error, mutate func(*models.Credential)) (*models.Credential, error) {
	var out *models.Credential
	err := txcontext.Run(ctx, s.db, 0, func(ctx context.Context) error {
		exec := txcontext.Executor(ctx, s.db)
		c, err := scanCredential(exec.QueryRowContext(ctx, selectCredential+` WHERE id = $1 FOR UPDATE`, uuid.UUID(cid)))
		if err != nil {
			return err
		}
		if err := validate(c); err != nil {
			return err
		}
		mutate(c)

		var (
			revokedAt     sql.NullTime
			revokedBy     sql.NullString
			reason        sql.NullString
			revocationRef sql.NullString
		)
		if r := c.Revocation; r != nil {
			revokedAt = sql.NullTime{Time: r.RevokedAt, Valid: true}
			revokedBy = nullString(r.RevokedBy.String())
			reason = nullString(r.Reason)
			revocationRef = nullString(r.AnchorRef)
		}
		_, err = exec.ExecContext(ctx, `
			UPDATE credentials
			SET status = $2, anchor_ref = $3, revoked_at = $4, revoked_by = $5,
			    revocation_reason = $6, revocation_anchor_ref = $7
			WHERE id = $1`,
			uuid.UUID(cid),
			string(c.Status),
			nullString(c.AnchorRef),
			revokedAt,
			revokedBy,
			reason,
			revocationRef,
		)
		if err != nil {
			return fmt.Errorf("update credential: %w", err)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func encodeCredential(c *models.Credential) (claims, proofJSON []byte, err error) {
	m := c.Claims
	if m == nil {
		m = map[string]any{}
	}
	if claims, err = json.Marshal(m); err != nil {
		return nil, nil, fmt.Errorf("marshal claims: %w", err)
	}
	if proofJSON, err = json.Marshal(c.Proof); err != nil {
		return nil, nil, fmt.Errorf("marshal proof: %w", err)
	}
	return claims, proofJSON, nil
}

func scanCredential(row *sql.Row) (*models.Credential, error) {
	var (
		c             models.Credential
		cid           uuid.UUID
		issuer        string
		subject       string
		status        string
		claims        []byte
		proofJSON     []byte
		expiresAt     sql.NullTime
		anchorRef     sql.NullString
		revokedAt     sql.NullTime
		revokedBy     sql.NullString
		reason        sql.NullString
		revocationRef sql.NullString
	)
	err := row.Scan(&cid, &c.Type, &issuer, &subject, &claims, &c.IssuedAt, &expiresAt, &status,
		&proofJSON, &anchorRef, &revokedAt, &revokedBy, &reason, &revocationRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan credential: %w", err)
	}
	c.ID = id.CredentialID(cid)
	c.Issuer = id.DID(issuer)
	c.Subject = id.DID(subject)
	c.Status = models.Status(status)
	c.AnchorRef = anchorRef.String
	c.IssuedAt = c.IssuedAt.UTC()
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		c.ExpiresAt = &t
	}
	if revokedAt.Valid {
		c.Revocation = &models.Revocation{
			RevokedAt: revokedAt.Time.UTC(),
			RevokedBy: id.DID(revokedBy.String),
			Reason:    reason.String,
			AnchorRef: revocationRef.String,
		}
	}
	if err := json.Unmarshal(claims, &c.Claims); err != nil {
		return nil, fmt.Errorf("unmarshal claims: %w", err)
	}
	if err := json.Unmarshal(proofJSON, &c.Proof); err != nil {
		return nil, fmt.Errorf("unmarshal proof: %w", err)
	}
	c.Proof.Created = c.Proof.Created.UTC()
	return &c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
