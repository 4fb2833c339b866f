package sqlite

import (
	"context"
	"fmt"

	"canvassync/domain/canvas"
)

// The offline queue is a durable FIFO table rather than a serialized blob:
// enqueue and drain never race through a read-modify-write of one key, and
// rowid order gives replay order for free. The UNIQUE(op, canvas_id)
// constraint makes re-enqueueing a pending canvas a no-op.

// Enqueue appends a pending operation, deduplicating per operation and
// canvas.
func (s *Store) Enqueue(ctx context.Context, op canvas.SyncOp, canvasID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_queue (op, canvas_id, enqueued_at) VALUES (?, ?, ?)`,
		string(op), canvasID, canvas.NowMillis(),
	)
	if err != nil {
		return fmt.Errorf("enqueue %s for %s: %w", op, canvasID, err)
	}
	return nil
}

// All returns pending entries in enqueue order.
func (s *Store) All(ctx context.Context) ([]canvas.SyncQueueEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, op, canvas_id, enqueued_at FROM sync_queue ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list sync queue: %w", err)
	}
	defer rows.Close()

	var out []canvas.SyncQueueEntry
	for rows.Next() {
		var e canvas.SyncQueueEntry
		var op string
		if err := rows.Scan(&e.ID, &op, &e.CanvasID, &e.EnqueuedAt); err != nil {
			return nil, fmt.Errorf("scan sync queue entry: %w", err)
		}
		e.Op = canvas.SyncOp(op)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Clear empties the queue.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sync_queue`); err != nil {
		return fmt.Errorf("clear sync queue: %w", err)
	}
	return nil
}
