package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"legal-clinic/internal/audit"
	"legal-clinic/pkg/utils"
)

//go:embed schema.sql
var schemaSQL string

// PostgresStore runs units of work as SERIALIZABLE transactions so that
// "read series maximum, insert next" cannot race between requests.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

// EnsureSchema creates missing tables. It is idempotent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Do(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	err := utils.WithTx(ctx, s.db, utils.Serializable, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, pgRepos(tx))
	})
	return storageErr(err)
}

func (s *PostgresStore) Direct() Repos { return pgRepos(s.db) }

// DB exposes the pool for health checks.
func (s *PostgresStore) DB() *sql.DB { return s.db }

func pgRepos(db utils.DBTX) Repos {
	return Repos{
		Staff:         pgStaff{db},
		Clients:       pgClients{db},
		Consultations: pgConsultations{db},
		Evidence:      pgEvidence{db},
		SocialWork:    pgSocialWork{db},
		Sectors:       pgSectors{db},
		Audit:         auditAppender{audit.NewPostgresRepo(db)},
	}
}

type auditAppender struct{ repo *audit.PostgresRepo }

func (a auditAppender) Append(ctx context.Context, e audit.Entry) error {
	return storageErr(a.repo.Append(ctx, e))
}
