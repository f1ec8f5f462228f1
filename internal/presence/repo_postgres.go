package presence

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresRepo persists presence in the user_presence table.

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Upsert(ctx context.Context, p Presence) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_presence (username, status, socket_id, updated_at)
		 VALUES ($1, $2, NULLIF($3, ''), $4)
		 ON CONFLICT (username) DO UPDATE SET
		   status = EXCLUDED.status,
		   socket_id = EXCLUDED.socket_id,
		   updated_at = EXCLUDED.updated_at`,
		p.Username, p.Status, p.SocketID, p.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, username string) (Presence, error) {
	var (
		p        Presence
		socketID sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT username, status, socket_id, updated_at
		 FROM user_presence WHERE username = $1`,
		username,
	).Scan(&p.Username, &p.Status, &socketID, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Presence{}, ErrNotFound
	}
	if err != nil {
		return Presence{}, err
	}
	p.SocketID = socketID.String
	return p, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]Presence, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT username, status, socket_id, updated_at
		 FROM user_presence ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Presence, 0)
	for rows.Next() {
		var (
			p        Presence
			socketID sql.NullString
		)
		if err := rows.Scan(&p.Username, &p.Status, &socketID, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.SocketID = socketID.String
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) MarkStaleOffline(ctx context.Context, cutoff, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE user_presence
		 SET status = 'offline', updated_at = $2
		 WHERE status = 'online' AND updated_at < $1`,
		cutoff, now,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
