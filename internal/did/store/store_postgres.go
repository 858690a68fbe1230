package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"attestor/internal/did/models"
	"attestor/internal/platform/postgres"
	id "attestor/pkg/domain"
	"attestor/pkg/platform/sentinel"
	txcontext "attestor/pkg/platform/tx"
)

// PostgresStore persists DID records in the dids table. The document is kept as JSONB.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectRecord = `
	SELECT did, method, identifier_kind, identifier_hash, recovery_identifier_hash,
	       security_answers, verified, document, created_at, updated_at
	FROM dids`

func (s *PostgresStore) CreateIfIdentifierAvailable(ctx context.Context, rec *models.Record) error {
	answers, document, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	_, err = txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO dids (did, method, identifier_kind, identifier_hash, recovery_identifier_hash,
		                  security_answers, verified, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.Info.DID.String(),
		string(rec.Info.Method),
		string(rec.Info.IdentifierKind),
		rec.Info.IdentifierHash,
		sql.NullString{String: rec.Info.RecoveryIdentifierHash, Valid: rec.Info.RecoveryIdentifierHash != ""},
		answers,
		rec.Info.Verified,
		document,
		rec.Info.CreatedAt,
		rec.Info.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert did: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByDID(ctx context.Context, did id.DID) (*models.Record, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, selectRecord+` WHERE did = $1`, did.String())
	return scanRecord(row)
}

// Execute locks the row for the duration of validate and mutate.
func (s *PostgresStore) Execute(ctx context.Context, did id.DID, validate func(*models.Record) error, mutate func(*models.Record)) (*models.Record, error) {
	var out *models.Record
	err := txcontext.Run(ctx, s.db, 0, func(ctx context.Context) error {
		exec := txcontext.Executor(ctx, s.db)
		rec, err := scanRecord(exec.QueryRowContext(ctx, selectRecord+` WHERE did = $1 FOR UPDATE`, did.String()))
		if err != nil {
			return err
		}
		if err := validate(rec); err != nil {
			return err
		}
		mutate(rec)

		answers, document, err := encodeRecord(rec)
		if err != nil {
			return err
		}
		_, err = exec.ExecContext(ctx, `
			UPDATE dids
			SET recovery_identifier_hash = $2, security_answers = $3, verified = $4, document = $5, updated_at = $6
			WHERE did = $1`,
			did.String(),
			sql.NullString{String: rec.Info.RecoveryIdentifierHash, Valid: rec.Info.RecoveryIdentifierHash != ""},
			answers,
			rec.Info.Verified,
			document,
			rec.Info.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update did: %w", err)
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func encodeRecord(rec *models.Record) (answers, document []byte, err error) {
	list := rec.Info.SecurityAnswers
	if list == nil {
		list = []models.SecurityAnswer{}
	}
	if answers, err = json.Marshal(list); err != nil {
		return nil, nil, fmt.Errorf("marshal security answers: %w", err)
	}
	if document, err = json.Marshal(rec.Document); err != nil {
		return nil, nil, fmt.Errorf("marshal did document: %w", err)
	}
	return answers, document, nil
}

func scanRecord(row *sql.Row) (*models.Record, error) {
	var (
		rec          models.Record
		did          string
		method       string
		kind         string
		recoveryHash sql.NullString
		answers      []byte
		document     []byte
	)
	err := row.Scan(&did, &method, &kind, &rec.Info.IdentifierHash, &recoveryHash,
		&answers, &rec.Info.Verified, &document, &rec.Info.CreatedAt, &rec.Info.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan did: %w", err)
	}
	rec.Info.DID = id.DID(did)
	rec.Info.Method = id.DIDMethod(method)
	rec.Info.IdentifierKind = models.IdentifierKind(kind)
	rec.Info.RecoveryIdentifierHash = recoveryHash.String
	rec.Info.CreatedAt = rec.Info.CreatedAt.UTC()
	rec.Info.UpdatedAt = rec.Info.UpdatedAt.UTC()
	if err := json.Unmarshal(answers, &rec.Info.SecurityAnswers); err != nil {
		return nil, fmt.Errorf("unmarshal security answers: %w", err)
	}
	if len(rec.Info.SecurityAnswers) == 0 {
		rec.Info.SecurityAnswers = nil
	}
	rec.Document = &models.Document{}
	if err := json.Unmarshal(document, rec.Document); err != nil {
		return nil, fmt.Errorf("unmarshal did document: %w", err)
	}
	return &rec, nil
}
