package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"canvassync/application/ports"
	"canvassync/domain/canvas"
	"canvassync/pkg/errors"
)

// RemoteStore is a map-backed ports.RemoteStore with server-assigned
// timestamps, soft deletes and upsert-by-id semantics matching the real
// backend. Used by the engine's tests and the daemon's offline mode.
type RemoteStore struct {
	mu       sync.RWMutex
	canvases map[string]*canvas.Canvas
	nodes    map[string]*canvas.Node
	sessions map[string]*canvas.ChatSession
}

var _ ports.RemoteStore = (*RemoteStore)(nil)

// NewRemoteStore creates an empty store.
func NewRemoteStore() *RemoteStore {
	return &RemoteStore{
		canvases: make(map[string]*canvas.Canvas),
		nodes:    make(map[string]*canvas.Node),
		sessions: make(map[string]*canvas.ChatSession),
	}
}

// SeedCanvas installs a canvas verbatim, timestamps included. Fixture
// support for tests and development seeding; the engine itself only goes
// through the ports.RemoteStore surface.
func (s *RemoteStore) SeedCanvas(c *canvas.Canvas) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canvases[c.ID] = copyCanvas(c)
}

// SeedNode installs a node verbatim.
func (s *RemoteStore) SeedNode(n *canvas.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.ID] = copyNode(n)
}

// SeedChatSession installs a chat session verbatim.
func (s *RemoteStore) SeedChatSession(sess *canvas.ChatSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = copySession(sess)
}

// GetAllCanvases lists the user's canvases, excluding soft-deleted ones.
func (s *RemoteStore) GetAllCanvases(ctx context.Context, userID string) ([]*canvas.Canvas, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*canvas.Canvas
	for _, c := range s.canvases {
		if c.UserID == userID && !c.Deleted {
			out = append(out, copyCanvas(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

func (s *RemoteStore) GetCanvas(ctx context.Context, id string) (*canvas.Canvas, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.canvases[id]
	if !ok || c.Deleted {
		return nil, nil
	}
	return copyCanvas(c), nil
}

// CreateCanvas creates a canvas with server-generated timestamps. A
// non-empty id is honored as-is.
func (s *RemoteStore) CreateCanvas(ctx context.Context, userID, name, id string) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	now := canvas.NowMillis()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canvases[id] = &canvas.Canvas{
		ID:        id,
		UserID:    userID,
		Name:      name,
		NodeIDs:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id, nil
}

func (s *RemoteStore) UpdateCanvas(ctx context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.canvases[id]
	if !ok {
		return errors.Newf(errors.KindNotFound, "memory.UpdateCanvas", "canvas %s", id)
	}
	c.Name = name
	c.UpdatedAt = canvas.NowMillis()
	return nil
}

// DeleteCanvas soft-deletes: the row stays but disappears from listings.
func (s *RemoteStore) DeleteCanvas(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.canvases[id]
	if !ok {
		return nil
	}
	c.Deleted = true
	c.UpdatedAt = canvas.NowMillis()
	return nil
}

func (s *RemoteStore) GetCanvasNodes(ctx context.Context, canvasID string) ([]*canvas.Node, error) {
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

// BulkUpsertNodes replaces each row keyed by node id.
func (s *RemoteStore) BulkUpsertNodes(ctx context.Context, userID, canvasID string, nodes []*canvas.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range nodes {
		if n.ID == "" {
			return errors.New(errors.KindValidation, "memory.BulkUpsertNodes", "node id is required")
		}
		cp := copyNode(n)
		cp.UserID = userID
		cp.CanvasID = canvasID
		s.nodes[n.ID] = cp
	}
	return nil
}

func (s *RemoteStore) GetChatSessions(ctx context.Context, canvasID string) ([]*canvas.ChatSession, error) {
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

func (s *RemoteStore) SaveChatSession(ctx context.Context, userID, canvasID string, sess *canvas.ChatSession) error {
	if sess == nil || sess.ID == "" {
		return errors.New(errors.KindValidation, "memory.SaveChatSession", "session id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := copySession(sess)
	cp.UserID = userID
	cp.CanvasID = canvasID
	s.sessions[sess.ID] = cp
	return nil
}
