// Package ports declares the interfaces the synchronization engine depends
// on. Implementations live under infrastructure/persistence; the engine
// never imports them directly.
package ports

import (
	"context"

	"canvassync/domain/canvas"
)

// LocalStore is the durable on-device store. Operations are low-latency but
// still take a context because every store call is a suspension point for
// the engine. Lookups return (nil, nil) when the record is absent.
type LocalStore interface {
	GetAllCanvases(ctx context.Context) ([]*canvas.Canvas, error)
	GetCanvas(ctx context.Context, id string) (*canvas.Canvas, error)
	// PutCanvas inserts or replaces the canvas row, keyed by id.
	PutCanvas(ctx context.Context, c *canvas.Canvas) error
	// DeleteCanvas hard-deletes the canvas and cascades to its nodes, chat
	// sessions and any queued sync entries.
	DeleteCanvas(ctx context.Context, id string) error

	GetCanvasNodes(ctx context.Context, canvasID string) ([]*canvas.Node, error)
	GetNode(ctx context.Context, id string) (*canvas.Node, error)
	PutNode(ctx context.Context, n *canvas.Node) error
	DeleteNode(ctx context.Context, id string) error

	GetChatSessions(ctx context.Context, canvasID string) ([]*canvas.ChatSession, error)
	PutChatSession(ctx context.Context, s *canvas.ChatSession) error
	UpdateChatSession(ctx context.Context, id string, patch canvas.ChatSessionPatch) error
	DeleteChatSession(ctx context.Context, id string) error
}

// RemoteStore is the client for the canonical backend. Every write is scoped
// by the owning user id; authorization is enforced by the backend's policy
// layer, not here. All writes are idempotent upserts keyed by record id —
// the engine's safety under overlapping syncs depends on that property.
type RemoteStore interface {
	// GetAllCanvases lists the user's canvases, excluding soft-deleted ones.
	GetAllCanvases(ctx context.Context, userID string) ([]*canvas.Canvas, error)
	GetCanvas(ctx context.Context, id string) (*canvas.Canvas, error)
	// CreateCanvas creates a canvas remotely. A non-empty id is used as-is
	// so local and remote identifiers stay equal; timestamps are set by the
	// server. Returns the id of the created canvas.
	CreateCanvas(ctx context.Context, userID, name, id string) (string, error)
	UpdateCanvas(ctx context.Context, id, name string) error
	// DeleteCanvas soft-deletes; the row stays but vanishes from listings.
	DeleteCanvas(ctx context.Context, id string) error

	GetCanvasNodes(ctx context.Context, canvasID string) ([]*canvas.Node, error)
	// BulkUpsertNodes replaces each node row keyed by node id. Not a diff:
	// unchanged nodes are re-sent every cycle by design.
	BulkUpsertNodes(ctx context.Context, userID, canvasID string, nodes []*canvas.Node) error

	GetChatSessions(ctx context.Context, canvasID string) ([]*canvas.ChatSession, error)
	SaveChatSession(ctx context.Context, userID, canvasID string, s *canvas.ChatSession) error
}

// SyncQueue is the persisted offline queue, drained when connectivity
// returns. FIFO; enqueueing an operation already pending for the same canvas
// is a no-op.
type SyncQueue interface {
	Enqueue(ctx context.Context, op canvas.SyncOp, canvasID string) error
	All(ctx context.Context) ([]canvas.SyncQueueEntry, error)
	Clear(ctx context.Context) error
}

// Connectivity reports whether the device currently has network access. The
// periodic sync loop skips ticks entirely while offline.
type Connectivity interface {
	Online() bool
}
