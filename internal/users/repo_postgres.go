package users

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresRepo persists users in the users table.

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Insert(ctx context.Context, u User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, display_name, device_type, last_seen, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Username, u.DisplayName, u.DeviceType, u.LastSeen, u.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) GetByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, display_name, device_type, last_seen, created_at
		 FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.DisplayName, &u.DeviceType, &u.LastSeen, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (User, error) {
	var u User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, display_name, device_type, last_seen, created_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Username, &u.DisplayName, &u.DeviceType, &u.LastSeen, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (r *PostgresRepo) TouchLastSeen(ctx context.Context, username string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_seen = $2 WHERE username = $1`,
		username, at,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) UpdateDisplayName(ctx context.Context, username, displayName string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET display_name = $2 WHERE username = $1`,
		username, displayName,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Search(ctx context.Context, query, exclude string, limit int) ([]User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, username, display_name, device_type, last_seen, created_at
		 FROM users
		 WHERE (username ILIKE '%' || $1 || '%' OR display_name ILIKE '%' || $1 || '%')
		   AND ($2 = '' OR username != $2)
		 ORDER BY username
		 LIMIT $3`,
		query, exclude, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *PostgresRepo) ListActive(ctx context.Context, limit int) ([]User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, username, display_name, device_type, last_seen, created_at
		 FROM users ORDER BY last_seen DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func scanUsers(rows *sql.Rows) ([]User, error) {
	out := make([]User, 0)
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.DeviceType, &u.LastSeen, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
