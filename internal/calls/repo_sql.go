package calls

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"healthmate/pkg/utils"

	"github.com/jackc/pgx/v5/pgconn"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS calls (
	call_id          TEXT PRIMARY KEY,
	join_url         TEXT NOT NULL DEFAULT '',
	mock             BOOLEAN NOT NULL DEFAULT FALSE,
	fallback_reason  TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL,
	duration         INTEGER NOT NULL DEFAULT 0,
	created_at       BIGINT NOT NULL,
	updated_at       BIGINT NOT NULL,
	ended_at         BIGINT
)`,
	`CREATE TABLE IF NOT EXISTS call_events (
	call_id     TEXT NOT NULL,
	status      TEXT NOT NULL,
	created_at  BIGINT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS call_events_call_id ON call_events (call_id)`,
}

// SQLRepo stores calls through database/sql. Timestamps are unix
// milliseconds so the same schema runs on Postgres and sqlite.
type SQLRepo struct {
	db     *sql.DB
	driver string
}

func NewSQLRepo(db *sql.DB, driver string) *SQLRepo {
	return &SQLRepo{db: db, driver: driver}
}

func (r *SQLRepo) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("calls: migrate: %w", err)
		}
	}
	return nil
}

func (r *SQLRepo) Create(ctx context.Context, c Call) error {
	if c.CallID == "" {
		return ErrInvalidArgument
	}
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, r.q(`
INSERT INTO calls (call_id, join_url, mock, fallback_reason, status, duration, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			c.CallID, c.JoinURL, c.Mock, c.FallbackReason, string(c.Status), c.DurationSeconds,
			c.CreatedAt.UnixMilli(), c.UpdatedAt.UnixMilli(),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyExists
			}
			return fmt.Errorf("calls: insert: %w", err)
		}
		return r.appendEvent(ctx, tx, c.CallID, c.Status, c.CreatedAt)
	})
}

func (r *SQLRepo) Get(ctx context.Context, callID string) (Call, error) {
	return r.get(ctx, r.db, callID)
}

func (r *SQLRepo) Transition(ctx context.Context, callID string, to CallStatus, at time.Time, durationSeconds int) (Call, error) {
	var out Call
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		c, err := r.get(ctx, tx, callID)
		if err != nil {
			return err
		}
		if !CanTransition(c.Status, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, to)
		}

		c.Status = to
		c.UpdatedAt = at
		var ended sql.NullInt64
		if to.Terminal() {
			e := at
			c.EndedAt = &e
			c.DurationSeconds = durationSeconds
			ended = sql.NullInt64{Int64: at.UnixMilli(), Valid: true}
		}

		if _, err := tx.ExecContext(ctx, r.q(`
UPDATE calls SET status = ?, duration = ?, updated_at = ?, ended_at = ? WHERE call_id = ?`),
			string(c.Status), c.DurationSeconds, at.UnixMilli(), ended, callID,
		); err != nil {
			return fmt.Errorf("calls: update: %w", err)
		}
		if err := r.appendEvent(ctx, tx, callID, to, at); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return Call{}, err
	}
	return out, nil
}

// History returns the recorded statuses of a call in order.
func (r *SQLRepo) History(ctx context.Context, callID string) ([]CallStatus, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`SELECT status FROM call_events WHERE call_id = ? ORDER BY created_at`), callID)
	if err != nil {
		return nil, fmt.Errorf("calls: history: %w", err)
	}
	defer rows.Close()
	var out []CallStatus
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("calls: history scan: %w", err)
		}
		out = append(out, CallStatus(s))
	}
	return out, rows.Err()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const callColumns = `call_id, join_url, mock, fallback_reason, status, duration, created_at, updated_at, ended_at`

func (r *SQLRepo) get(ctx context.Context, db queryer, callID string) (Call, error) {
	row := db.QueryRowContext(ctx, r.q(`SELECT `+callColumns+` FROM calls WHERE call_id = ?`), callID)
	c, err := scanCall(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Call{}, ErrNotFound
	}
	if err != nil {
		return Call{}, fmt.Errorf("calls: get: %w", err)
	}
	return c, nil
}

// ListCreated returns calls created in [from, to), oldest first.
func (r *SQLRepo) ListCreated(ctx context.Context, from, to time.Time) ([]Call, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`SELECT `+callColumns+` FROM calls
WHERE created_at >= ? AND created_at < ? ORDER BY created_at, call_id`), from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("calls: list: %w", err)
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, fmt.Errorf("calls: list scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCall(row scanner) (Call, error) {
	var (
		c                Call
		status           string
		created, updated int64
		ended            sql.NullInt64
	)
	if err := row.Scan(
		&c.CallID, &c.JoinURL, &c.Mock, &c.FallbackReason, &status, &c.DurationSeconds,
		&created, &updated, &ended,
	); err != nil {
		return Call{}, err
	}
	c.Status = CallStatus(status)
	c.CreatedAt = time.UnixMilli(created).UTC()
	c.UpdatedAt = time.UnixMilli(updated).UTC()
	if ended.Valid {
		e := time.UnixMilli(ended.Int64).UTC()
		c.EndedAt = &e
	}
	return c, nil
}

func (r *SQLRepo) appendEvent(ctx context.Context, tx *sql.Tx, callID string, status CallStatus, at time.Time) error {
	if _, err := tx.ExecContext(ctx, r.q(`INSERT INTO call_events (call_id, status, created_at) VALUES (?, ?, ?)`),
		callID, string(status), at.UnixMilli(),
	); err != nil {
		return fmt.Errorf("calls: insert event: %w", err)
	}
	return nil
}

func (r *SQLRepo) q(query string) string { return utils.Rebind(r.driver, query) }

// isUniqueViolation recognises duplicate keys from pgx and from sqlite.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
