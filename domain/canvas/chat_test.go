package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChatSession(t *testing.T) {
	s := NewChatSession("canvas-1", "user-1", "Brainstorm", []string{"n1", "n2"})

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "canvas-1", s.CanvasID)
	assert.True(t, s.Open)
	assert.Equal(t, []string{"n1", "n2"}, s.InitialNodeSnapshot)
	assert.Equal(t, s.CreatedAt, s.StartTimestamp)
	assert.NotNil(t, s.Messages)
	assert.Empty(t, s.Messages)
}

func TestAppendMessage(t *testing.T) {
	s := NewChatSession("canvas-1", "user-1", "Brainstorm", nil)
	before := s.UpdatedAt

	s.AppendMessage(ChatMessage{Role: RoleUser, Content: "make a plan"})

	require.Len(t, s.Messages, 1)
	m := s.Messages[0]
	assert.NotEmpty(t, m.ID, "missing message id is generated")
	assert.NotZero(t, m.Timestamp)
	assert.GreaterOrEqual(t, s.UpdatedAt, before)

	// Preset id and timestamp pass through untouched.
	s.AppendMessage(ChatMessage{ID: "m2", Role: RoleAssistant, Content: "ok", Timestamp: 42})
	require.Len(t, s.Messages, 2)
	assert.Equal(t, "m2", s.Messages[1].ID)
	assert.Equal(t, int64(42), s.Messages[1].Timestamp)
}

func TestChatSessionPatchApply(t *testing.T) {
	s := NewChatSession("canvas-1", "user-1", "Brainstorm", nil)
	s.AppendMessage(ChatMessage{Role: RoleUser, Content: "hi"})

	name := "Renamed"
	open := false
	window := WindowRect{
		Position: Position{X: 40, Y: 60},
		Size:     Size{Width: 420, Height: 600},
	}
	s.Apply(ChatSessionPatch{Name: &name, Open: &open, Window: &window})

	assert.Equal(t, "Renamed", s.Name)
	assert.False(t, s.Open)
	assert.Equal(t, window, s.Window)
	assert.Len(t, s.Messages, 1, "nil patch fields leave state untouched")

	// Replacing messages wholesale.
	msgs := []ChatMessage{}
	s.Apply(ChatSessionPatch{Messages: &msgs})
	assert.Empty(t, s.Messages)
	assert.Equal(t, "Renamed", s.Name)
}
