package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo appends events to the audit_events table. Insert-only;
// retention is an external concern.

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_events
		   (id, type, call_id, actor, from_status, to_status, reason, message, metadata, created_at)
		 VALUES ($1, $2, NULLIF($3, '')::uuid, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''),
		         NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), $10)`,
		e.ID, string(e.Type), e.CallID, e.Actor, e.FromStatus, e.ToStatus,
		e.Reason, e.Message, e.Metadata, e.CreatedAt,
	)
	return err
}
