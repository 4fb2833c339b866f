package canvas

// SyncOp is the kind of deferred sync operation held in the offline queue.
type SyncOp string

// SyncOpCanvas re-pushes one canvas (canvas row, nodes and chat sessions)
// after a failed push. It is currently the only queued operation kind.
const SyncOpCanvas SyncOp = "sync_canvas"

// SyncQueueEntry is a pending operation persisted locally until connectivity
// returns. Entries are local-only and never synced themselves.
type SyncQueueEntry struct {
	ID         int64  `json:"id"`
	Op         SyncOp `json:"op"`
	CanvasID   string `json:"canvasId"`
	EnqueuedAt int64  `json:"enqueuedAt"`
}
