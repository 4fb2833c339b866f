package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvassync/domain/canvas"
)

func TestLocalStoreCopiesOnReadAndWrite(t *testing.T) {
	s := NewLocalStore()
	ctx := context.Background()

	c := canvas.NewCanvas("user-1", "Notes")
	c.AddNodeRef("n1")
	require.NoError(t, s.PutCanvas(ctx, c))

	// Mutating the caller's copy must not reach stored state.
	c.Name = "mutated"
	c.NodeIDs[0] = "tampered"

	got, err := s.GetCanvas(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Notes", got.Name)
	assert.Equal(t, []string{"n1"}, got.NodeIDs)

	// And mutating a read copy must not either.
	got.Name = "also mutated"
	again, err := s.GetCanvas(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Notes", again.Name)
}

func TestLocalStoreCascadeDelete(t *testing.T) {
	s := NewLocalStore()
	ctx := context.Background()

	c := canvas.NewCanvas("user-1", "Notes")
	require.NoError(t, s.PutCanvas(ctx, c))
	n, err := canvas.NewNode(c.ID, "user-1", canvas.NodeTypeText, "body",
		canvas.Position{}, canvas.Size{Width: 300, Height: 150})
	require.NoError(t, err)
	require.NoError(t, s.PutNode(ctx, n))
	require.NoError(t, s.PutChatSession(ctx, canvas.NewChatSession(c.ID, "user-1", "Chat", nil)))

	require.NoError(t, s.DeleteCanvas(ctx, c.ID))

	nodes, err := s.GetCanvasNodes(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, nodes)
	sessions, err := s.GetChatSessions(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestQueueDedupAndOrder(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, canvas.SyncOpCanvas, "c1"))
	require.NoError(t, q.Enqueue(ctx, canvas.SyncOpCanvas, "c2"))
	require.NoError(t, q.Enqueue(ctx, canvas.SyncOpCanvas, "c1"))

	entries, err := q.All(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "c1", entries[0].CanvasID)
	assert.Equal(t, "c2", entries[1].CanvasID)

	require.NoError(t, q.Clear(ctx))
	entries, err = q.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
