package memory

import (
	"context"
	"sync"

	"canvassync/application/ports"
	"canvassync/domain/canvas"
)

// Queue is a ports.SyncQueue held in memory, FIFO with per-canvas dedup.
// The durable variant lives in the sqlite store; this one backs tests and
// the offline development mode where persistence across restarts does not
// matter.
type Queue struct {
	mu      sync.Mutex
	entries []canvas.SyncQueueEntry
	nextID  int64
}

var _ ports.SyncQueue = (*Queue)(nil)

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{nextID: 1}
}

// Enqueue appends an entry unless one with the same operation and canvas is
// already pending.
func (q *Queue) Enqueue(ctx context.Context, op canvas.SyncOp, canvasID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.entries {
		if e.Op == op && e.CanvasID == canvasID {
			return nil
		}
	}
	q.entries = append(q.entries, canvas.SyncQueueEntry{
		ID:         q.nextID,
		Op:         op,
		CanvasID:   canvasID,
		EnqueuedAt: canvas.NowMillis(),
	})
	q.nextID++
	return nil
}

// All returns the pending entries in enqueue order.
func (q *Queue) All(ctx context.Context) ([]canvas.SyncQueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]canvas.SyncQueueEntry(nil), q.entries...), nil
}

// Clear drops every pending entry.
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = nil
	return nil
}
