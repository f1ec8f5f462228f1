package contacts

import (
	"context"
	"database/sql"
	"time"
)

// PostgresRepo persists contact edges in the user_contacts table.

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Add(ctx context.Context, userID, contactUserID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_contacts (user_id, contact_user_id, is_favorite, created_at)
		 VALUES ($1, $2, FALSE, $3)
		 ON CONFLICT (user_id, contact_user_id) DO NOTHING`,
		userID, contactUserID, at,
	)
	return err
}

func (r *PostgresRepo) Remove(ctx context.Context, userID, contactUserID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM user_contacts WHERE user_id = $1 AND contact_user_id = $2`,
		userID, contactUserID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *PostgresRepo) SetFavorite(ctx context.Context, userID, contactUserID string, favorite bool) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE user_contacts SET is_favorite = $3
		 WHERE user_id = $1 AND contact_user_id = $2`,
		userID, contactUserID, favorite,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *PostgresRepo) List(ctx context.Context, userID string) ([]Contact, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, contact_user_id, is_favorite, created_at
		 FROM user_contacts
		 WHERE user_id = $1
		 ORDER BY is_favorite DESC, created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Contact, 0)
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.UserID, &c.ContactUserID, &c.IsFavorite, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Exists(ctx context.Context, userID, contactUserID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM user_contacts WHERE user_id = $1 AND contact_user_id = $2
		 )`,
		userID, contactUserID,
	).Scan(&exists)
	return exists, err
}
