// Package memory provides in-memory implementations of the store ports.
// They back the engine's tests and the daemon's offline development mode;
// nothing here survives a process restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"canvassync/application/ports"
	"canvassync/domain/canvas"
	"canvassync/pkg/errors"
)

// LocalStore is a map-backed ports.LocalStore. Records are copied on the
// way in and out so callers cannot mutate stored state through shared
// pointers.
type LocalStore struct {
	mu       sync.RWMutex
	canvases map[string]*canvas.Canvas
	nodes    map[string]*canvas.Node
	sessions map[string]*canvas.ChatSession
}

var _ ports.LocalStore = (*LocalStore)(nil)

// NewLocalStore creates an empty store.
func NewLocalStore() *LocalStore {
	return &LocalStore{
		canvases: make(map[string]*canvas.Canvas),
		nodes:    make(map[string]*canvas.Node),
		sessions: make(map[string]*canvas.ChatSession),
	}
}

func (s *LocalStore) GetAllCanvases(ctx context.Context) ([]*canvas.Canvas, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*canvas.Canvas, 0, len(s.canvases))
	for _, c := range s.canvases {
		out = append(out, copyCanvas(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

func (s *LocalStore) GetCanvas(ctx context.Context, id string) (*canvas.Canvas, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.canvases[id]
	if !ok {
		return nil, nil
	}
	return copyCanvas(c), nil
}

func (s *LocalStore) PutCanvas(ctx context.Context, c *canvas.Canvas) error {
	if c == nil || c.ID == "" {
		return errors.New(errors.KindValidation, "memory.PutCanvas", "canvas id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canvases[c.ID] = copyCanvas(c)
	return nil
}

// DeleteCanvas hard-deletes the canvas and cascades to its nodes and chat
// sessions.
func (s *LocalStore) DeleteCanvas(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.canvases, id)
	for nid, n := range s.nodes {
		if n.CanvasID == id {
			delete(s.nodes, nid)
		}
	}
	for sid, sess := range s.sessions {
		if sess.CanvasID == id {
			delete(s.sessions, sid)
		}
	}
	return nil
}

func (s *LocalStore) GetCanvasNodes(ctx context.Context, canvasID string) ([]*canvas.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*canvas.Node
	for _, n := range s.nodes {
		if n.CanvasID == canvasID {
			out = append(out, copyNode(n))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

func (s *LocalStore) GetNode(ctx context.Context, id string) (*canvas.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, nil
	}
	return copyNode(n), nil
}

func (s *LocalStore) PutNode(ctx context.Context, n *canvas.Node) error {
	if n == nil || n.ID == "" {
		return errors.New(errors.KindValidation, "memory.PutNode", "node id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.ID] = copyNode(n)
	return nil
}

func (s *LocalStore) DeleteNode(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nodes, id)
	return nil
}

func (s *LocalStore) GetChatSessions(ctx context.Context, canvasID string) ([]*canvas.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*canvas.ChatSession
	for _, sess := range s.sessions {
		if sess.CanvasID == canvasID {
			out = append(out, copySession(sess))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

func (s *LocalStore) PutChatSession(ctx context.Context, sess *canvas.ChatSession) error {
	if sess == nil || sess.ID == "" {
		return errors.New(errors.KindValidation, "memory.PutChatSession", "session id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = copySession(sess)
	return nil
}

func (s *LocalStore) UpdateChatSession(ctx context.Context, id string, patch canvas.ChatSessionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return errors.Newf(errors.KindNotFound, "memory.UpdateChatSession", "chat session %s", id)
	}
	updated := copySession(sess)
	updated.Apply(patch)
	s.sessions[id] = updated
	return nil
}

func (s *LocalStore) DeleteChatSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func copyCanvas(c *canvas.Canvas) *canvas.Canvas {
	out := *c
	out.NodeIDs = append([]string(nil), c.NodeIDs...)
	return &out
}

func copyNode(n *canvas.Node) *canvas.Node {
	out := *n
	out.Connections = append([]string(nil), n.Connections...)
	out.ChildrenIDs = append([]string(nil), n.ChildrenIDs...)
	if n.Style != nil {
		st := *n.Style
		out.Style = &st
	}
	if n.AI != nil {
		ai := *n.AI
		out.AI = &ai
	}
	if n.MindMap != nil {
		mm := *n.MindMap
		out.MindMap = &mm
	}
	return &out
}

func copySession(s *canvas.ChatSession) *canvas.ChatSession {
	out := *s
	out.Messages = append([]canvas.ChatMessage(nil), s.Messages...)
	out.InitialNodeSnapshot = append([]string(nil), s.InitialNodeSnapshot...)
	out.Attachments = append([]canvas.Attachment(nil), s.Attachments...)
	return &out
}
