// Package canvas holds the data model shared by the local store, the remote
// store client and the synchronization engine: canvases, nodes, chat sessions
// and the offline sync queue entry.
//
// All timestamps are epoch milliseconds. Records present in both stores are
// reconciled by comparing UpdatedAt; the strictly newer copy wins.
package canvas

import (
	"time"

	"github.com/google/uuid"
)

// Canvas is the top-level addressable document unit. It owns its nodes by
// reference only; node bodies live in the node table.
type Canvas struct {
	ID        string   `json:"id"`
	UserID    string   `json:"userId"`
	Name      string   `json:"name"`
	NodeIDs   []string `json:"nodeIds"`
	Deleted   bool     `json:"deleted,omitempty"` // soft-delete marker, remote only
	CreatedAt int64    `json:"createdAt"`
	UpdatedAt int64    `json:"updatedAt"`
}

// NewCanvas creates a canvas with a caller-assigned id. Ids are generated on
// the client so the local and remote copies never diverge and no id
// translation is needed when pushing.
func NewCanvas(userID, name string) *Canvas {
	now := NowMillis()
	return &Canvas{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		NodeIDs:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch refreshes the modification timestamp.
func (c *Canvas) Touch() {
	c.UpdatedAt = NowMillis()
}

// AddNodeRef registers a node id on the canvas. Adding an id that is already
// present is a no-op; the reference set is unordered.
func (c *Canvas) AddNodeRef(nodeID string) {
	for _, id := range c.NodeIDs {
		if id == nodeID {
			return
		}
	}
	c.NodeIDs = append(c.NodeIDs, nodeID)
	c.Touch()
}

// RemoveNodeRef drops a node id from the canvas reference set.
func (c *Canvas) RemoveNodeRef(nodeID string) {
	for i, id := range c.NodeIDs {
		if id == nodeID {
			c.NodeIDs = append(c.NodeIDs[:i], c.NodeIDs[i+1:]...)
			c.Touch()
			return
		}
	}
}

// NowMillis returns the current time as epoch milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
