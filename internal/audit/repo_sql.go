package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"healthmate/pkg/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id          TEXT PRIMARY KEY,
	type        TEXT NOT NULL,
	call_id     TEXT NOT NULL DEFAULT '',
	provider_id TEXT NOT NULL DEFAULT '',
	ip_address  TEXT NOT NULL DEFAULT '',
	reason      TEXT NOT NULL DEFAULT '',
	message     TEXT NOT NULL DEFAULT '',
	metadata    TEXT NOT NULL DEFAULT '',
	created_at  BIGINT NOT NULL
)`

// SQLRepo stores events in audit_events. It only inserts.
type SQLRepo struct {
	db     *sql.DB
	driver string
}

func NewSQLRepo(db *sql.DB, driver string) *SQLRepo {
	return &SQLRepo{db: db, driver: driver}
}

func (r *SQLRepo) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("audit: migrate: %w", err)
	}
	return nil
}

func (r *SQLRepo) Append(ctx context.Context, e Event) error {
	q := utils.Rebind(r.driver, `
INSERT INTO audit_events (id, type, call_id, provider_id, ip_address, reason, message, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, q,
		e.ID, string(e.Type), e.CallID, e.ProviderID, e.IPAddress,
		e.Reason, e.Message, e.Metadata, e.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("audit: append: %w", err)
	}
	return nil
}

const eventColumns = `id, type, call_id, provider_id, ip_address, reason, message, metadata, created_at`

func (r *SQLRepo) ListByCall(ctx context.Context, callID string) ([]Event, error) {
	q := utils.Rebind(r.driver, `SELECT `+eventColumns+` FROM audit_events WHERE call_id = ? ORDER BY created_at, id`)
	return r.list(ctx, q, callID)
}

// ListRange returns events created in [from, to), oldest first.
func (r *SQLRepo) ListRange(ctx context.Context, from, to time.Time) ([]Event, error) {
	q := utils.Rebind(r.driver, `SELECT `+eventColumns+` FROM audit_events
WHERE created_at >= ? AND created_at < ? ORDER BY created_at, id`)
	return r.list(ctx, q, from.UnixMilli(), to.UnixMilli())
}

func (r *SQLRepo) list(ctx context.Context, q string, args ...any) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e       Event
			typ     string
			created int64
		)
		if err := rows.Scan(&e.ID, &typ, &e.CallID, &e.ProviderID, &e.IPAddress, &e.Reason, &e.Message, &e.Metadata, &created); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		e.Type = EventType(typ)
		e.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
