package canvas

import (
	"encoding/json"

	"github.com/google/uuid"
)

// MessageRole identifies the author of a chat message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// ToolCallStatus is the confirmation state of a tool call recorded on a
// message.
type ToolCallStatus string

const (
	ToolCallPending   ToolCallStatus = "pending"
	ToolCallConfirmed ToolCallStatus = "confirmed"
	ToolCallRejected  ToolCallStatus = "rejected"
)

// ToolCall records one structured tool invocation made by the assistant,
// including the node ids it ended up creating on the canvas.
type ToolCall struct {
	ID             string          `json:"id"`
	Tool           string          `json:"tool"`
	Input          json.RawMessage `json:"input,omitempty"`
	CreatedNodeIDs []string        `json:"createdNodeIds,omitempty"`
	Status         ToolCallStatus  `json:"status"`
}

// Attachment is a transient reference handed to the assistant, usually
// pointing at a node on the canvas.
type Attachment struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Ref   string `json:"ref"`
	Label string `json:"label,omitempty"`
}

// ChatMessage is embedded in a ChatSession; it is not an independent sync
// unit and travels with its session.
type ChatMessage struct {
	ID          string       `json:"id"`
	Role        MessageRole  `json:"role"`
	Content     string       `json:"content"`
	Timestamp   int64        `json:"timestamp"`
	Attachments []Attachment `json:"attachments,omitempty"`
	ToolCalls   []ToolCall   `json:"toolCalls,omitempty"`
}

// WindowRect is the persisted chat window geometry so the UI survives a
// reload in the same place.
type WindowRect struct {
	Position Position `json:"position"`
	Size     Size     `json:"size"`
}

// ChatSession is one conversation bound to a canvas.
//
// StartTimestamp and InitialNodeSnapshot record which nodes existed when the
// session's initial context was captured; the UI diffs against them for
// incremental context. The sync engine carries them opaquely.
type ChatSession struct {
	ID                  string        `json:"id"`
	CanvasID            string        `json:"canvasId"`
	UserID              string        `json:"userId"`
	Name                string        `json:"name"`
	Messages            []ChatMessage `json:"messages"`
	Open                bool          `json:"open"`
	Window              WindowRect    `json:"window"`
	StartTimestamp      int64         `json:"startTimestamp"`
	InitialNodeSnapshot []string      `json:"initialNodeSnapshot,omitempty"`
	Attachments         []Attachment  `json:"attachments,omitempty"`
	CreatedAt           int64         `json:"createdAt"`
	UpdatedAt           int64         `json:"updatedAt"`
}

// NewChatSession opens a session against a canvas, snapshotting the node ids
// present at that moment.
func NewChatSession(canvasID, userID, name string, nodeSnapshot []string) *ChatSession {
	now := NowMillis()
	return &ChatSession{
		ID:                  uuid.NewString(),
		CanvasID:            canvasID,
		UserID:              userID,
		Name:                name,
		Messages:            []ChatMessage{},
		Open:                true,
		StartTimestamp:      now,
		InitialNodeSnapshot: nodeSnapshot,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// AppendMessage adds a message and refreshes the session timestamp.
func (s *ChatSession) AppendMessage(m ChatMessage) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp == 0 {
		m.Timestamp = NowMillis()
	}
	s.Messages = append(s.Messages, m)
	s.UpdatedAt = NowMillis()
}

// ChatSessionPatch is a partial update; nil fields are left untouched.
type ChatSessionPatch struct {
	Name        *string        `json:"name,omitempty"`
	Open        *bool          `json:"open,omitempty"`
	Window      *WindowRect    `json:"window,omitempty"`
	Messages    *[]ChatMessage `json:"messages,omitempty"`
	Attachments *[]Attachment  `json:"attachments,omitempty"`
}

// Apply copies the patch onto the session and refreshes its timestamp.
func (s *ChatSession) Apply(p ChatSessionPatch) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Open != nil {
		s.Open = *p.Open
	}
	if p.Window != nil {
		s.Window = *p.Window
	}
	if p.Messages != nil {
		s.Messages = *p.Messages
	}
	if p.Attachments != nil {
		s.Attachments = *p.Attachments
	}
	s.UpdatedAt = NowMillis()
}
