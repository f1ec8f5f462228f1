package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"smarttv-backend/pkg/utils"
)

// PostgresRepo persists calls in the calls table.
//
// Transitions are single conditional UPDATE statements: the WHERE clause
// re-checks state (and role) so that a concurrent terminal write makes
// the statement affect zero rows instead of clobbering it.

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

// createAttempts bounds the supersede retry loop. Two concurrent
// initiates for the same pair race on calls_active_pair_idx; the loser
// gets a unique violation and retries, now seeing the winner's row in
// its UPDATE.
const createAttempts = 3

func (r *PostgresRepo) CreateSuperseding(ctx context.Context, c Call) ([]string, error) {
	var (
		superseded []string
		err        error
	)
	for attempt := 0; attempt < createAttempts; attempt++ {
		superseded, err = r.createSuperseding(ctx, c)
		if !isUniqueViolation(err) {
			break
		}
	}
	return superseded, err
}

func (r *PostgresRepo) createSuperseding(ctx context.Context, c Call) ([]string, error) {
	var superseded []string
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`UPDATE calls
			 SET status = 'cancelled', ended_at = $3
			 WHERE ((caller = $1 AND callee = $2) OR (caller = $2 AND callee = $1))
			   AND status IN ('pending', 'accepted')
			 RETURNING call_id`,
			c.Caller, c.Callee, c.CreatedAt,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			superseded = append(superseded, id)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO calls (call_id, caller, callee, status, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			c.CallID, c.Caller, c.Callee, c.Status, c.CreatedAt,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return superseded, nil
}

const callColumns = `call_id, caller, callee, status, COALESCE(room_handle, ''), created_at, answered_at, ended_at, duration_seconds`

func (r *PostgresRepo) Get(ctx context.Context, callID string) (Call, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+callColumns+` FROM calls WHERE call_id = $1`, callID)
	c, err := scanCall(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Call{}, ErrNotFound
	}
	return c, err
}

func (r *PostgresRepo) ListPendingFor(ctx context.Context, callee string) ([]Call, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+callColumns+` FROM calls
		 WHERE callee = $1 AND status = 'pending'
		 ORDER BY created_at DESC`,
		callee,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCalls(rows)
}

func (r *PostgresRepo) ListAcceptedWithRoom(ctx context.Context) ([]Call, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+callColumns+` FROM calls
		 WHERE status = 'accepted' AND room_handle IS NOT NULL
		 ORDER BY answered_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCalls(rows)
}

func (r *PostgresRepo) MarkAccepted(ctx context.Context, callID, callee, roomHandle string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE calls
		 SET status = 'accepted', answered_at = $4, room_handle = $3
		 WHERE call_id = $1 AND callee = $2 AND status = 'pending'`,
		callID, callee, roomHandle, at,
	)
	return oneRow(res, err)
}

func (r *PostgresRepo) MarkDeclined(ctx context.Context, callID, callee string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE calls
		 SET status = 'declined', ended_at = $3
		 WHERE call_id = $1 AND callee = $2 AND status = 'pending'`,
		callID, callee, at,
	)
	return oneRow(res, err)
}

func (r *PostgresRepo) MarkCancelled(ctx context.Context, callID, caller string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE calls
		 SET status = 'cancelled', ended_at = $3
		 WHERE call_id = $1 AND caller = $2 AND status = 'pending'`,
		callID, caller, at,
	)
	return oneRow(res, err)
}

func (r *PostgresRepo) MarkEnded(ctx context.Context, callID string, durationSeconds int, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE calls
		 SET status = 'ended', ended_at = $3, duration_seconds = $2
		 WHERE call_id = $1 AND status = 'accepted'`,
		callID, durationSeconds, at,
	)
	return oneRow(res, err)
}

func (r *PostgresRepo) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM calls
		 WHERE status IN ('declined', 'cancelled', 'ended', 'missed')
		   AND created_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// 23505 is the SQLSTATE for unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func oneRow(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(row rowScanner) (Call, error) {
	var (
		c        Call
		answered sql.NullTime
		ended    sql.NullTime
		duration sql.NullInt64
	)
	err := row.Scan(&c.CallID, &c.Caller, &c.Callee, &c.Status, &c.RoomHandle,
		&c.CreatedAt, &answered, &ended, &duration)
	if err != nil {
		return Call{}, err
	}
	if answered.Valid {
		t := answered.Time
		c.AnsweredAt = &t
	}
	if ended.Valid {
		t := ended.Time
		c.EndedAt = &t
	}
	if duration.Valid {
		d := int(duration.Int64)
		c.DurationSeconds = &d
	}
	return c, nil
}

func scanCalls(rows *sql.Rows) ([]Call, error) {
	out := make([]Call, 0)
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
