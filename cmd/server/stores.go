package main

import (
	"context"
	"database/sql"
	"log/slog"

	"attestor/internal/audit"
	auditstore "attestor/internal/audit/store"
	credservice "attestor/internal/credential/service"
	credstore "attestor/internal/credential/store"
	didservice "attestor/internal/did/service"
	didstore "attestor/internal/did/store"
	permservice "attestor/internal/permission/service"
	permstore "attestor/internal/permission/store"
	"attestor/internal/platform/config"
	"attestor/internal/platform/postgres"
)

// storeSet is the persistence backing every service. Outbox and Ping are nil
// for in-memory stores.
type storeSet struct {
	DIDs        didservice.Store
	Credentials credservice.Store
	Permissions permservice.Store
	Audit       audit.Store
	Outbox      audit.OutboxSource
	Ping        func(ctx context.Context) error

	db *sql.DB
}

// openStores uses Postgres when a database URL is configured and in-memory
// stores otherwise.
func openStores(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*storeSet, error) {
	if cfg.URL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		return &storeSet{
			DIDs:        didstore.NewInMemory(),
			Credentials: credstore.NewInMemory(),
			Permissions: permstore.NewInMemory(),
			Audit:       auditstore.NewInMemoryStore(),
		}, nil
	}

	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	auditStore := auditstore.NewPostgres(db)
	return &storeSet{
		DIDs:        didstore.NewPostgres(db),
		Credentials: credstore.NewPostgres(db),
		Permissions: permstore.NewPostgres(db),
		Audit:       auditStore,
		Outbox:      auditStore,
		Ping:        db.PingContext,
		db:          db,
	}, nil
}

func (s *storeSet) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}
