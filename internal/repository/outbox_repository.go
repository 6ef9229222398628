package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// OutboxRepo stores lifecycle events next to the state change that
// produced them.  The relay worker drains PENDING rows and marks them SENT.
type OutboxRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewOutboxRepo constructs an OutboxRepo with the given DB handle.
func NewOutboxRepo(db *sql.DB) *OutboxRepo {
	return &OutboxRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// InsertEventTx writes ev inside tx.  The caller commits or rolls back.
func (r *OutboxRepo) InsertEventTx(ctx context.Context, tx *sql.Tx, ev model.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	const q = `INSERT INTO outbox_events (event_id, event_type, aggregate_id, payload, status, created_at)
	           VALUES (?, ?, ?, ?, 'PENDING', ?)`
	if _, err := tx.ExecContext(ctx, q, ev.ID, ev.Type, ev.ReservationID, payload, r.now()); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// PendingEvents returns up to limit unsent events, oldest first.
func (r *OutboxRepo) PendingEvents(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	const q = `SELECT id, payload FROM outbox_events WHERE status = 'PENDING' ORDER BY id LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending events: %w", err)
	}
	defer rows.Close()

	var out []model.OutboxEvent
	for rows.Next() {
		var (
			rowID   uint64
			payload []byte
		)
		if err := rows.Scan(&rowID, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var ev model.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", rowID, err)
		}
		out = append(out, model.OutboxEvent{RowID: rowID, Event: ev})
	}
	return out, rows.Err()
}

// MarkSent flags a row as delivered.
func (r *OutboxRepo) MarkSent(ctx context.Context, rowID uint64) error {
	const q = `UPDATE outbox_events SET status = 'SENT', sent_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, r.now(), rowID); err != nil {
		return fmt.Errorf("mark event %d sent: %w", rowID, err)
	}
	return nil
}
