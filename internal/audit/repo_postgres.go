package audit

import (
	"context"

	"legal-clinic/pkg/utils"
)

// PostgresRepo appends to the audit_entries table. Pass a *sql.Tx to
// write inside a business transaction, or a *sql.DB for standalone entries.
type PostgresRepo struct {
	db utils.DBTX
}

func NewPostgresRepo(db utils.DBTX) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Entry) error {
	const q = `
INSERT INTO audit_entries (id, actor_id, action, entity, description, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`
	_, err := r.db.ExecContext(ctx, q, e.ID, e.ActorID, string(e.Action), e.Entity, e.Description, e.CreatedAt)
	return err
}
