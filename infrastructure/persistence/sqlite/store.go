// Package sqlite implements the durable on-device LocalStore and the
// offline SyncQueue on a single SQLite database. Nested record fields are
// stored as a JSON document per row next to the columns the store queries
// by (ids, canvas ownership, timestamps).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"canvassync/application/ports"
	"canvassync/domain/canvas"
)

const schema = `
CREATE TABLE IF NOT EXISTS canvases (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	data       TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS nodes (
	id         TEXT PRIMARY KEY,
	canvas_id  TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	data       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_nodes_canvas ON nodes(canvas_id);
CREATE TABLE IF NOT EXISTS chat_sessions (
	id         TEXT PRIMARY KEY,
	canvas_id  TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	data       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_sessions_canvas ON chat_sessions(canvas_id);
CREATE TABLE IF NOT EXISTS sync_queue (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	op          TEXT NOT NULL,
	canvas_id   TEXT NOT NULL,
	enqueued_at INTEGER NOT NULL,
	UNIQUE(op, canvas_id) ON CONFLICT IGNORE
);
`

// Store implements ports.LocalStore and ports.SyncQueue on one database
// handle. SQLite serializes writers itself; there is no store-level lock.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

var (
	_ ports.LocalStore = (*Store)(nil)
	_ ports.SyncQueue  = (*Store)(nil)
)

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for an ephemeral store.
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	logger.Info("local store opened", zap.String("path", path))
	return &Store{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetAllCanvases(ctx context.Context) ([]*canvas.Canvas, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM canvases ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list canvases: %w", err)
	}
	defer rows.Close()

	var out []*canvas.Canvas
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan canvas: %w", err)
		}
		var c canvas.Canvas
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode canvas: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *Store) GetCanvas(ctx context.Context, id string) (*canvas.Canvas, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM canvases WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get canvas %s: %w", id, err)
	}
	var c canvas.Canvas
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode canvas %s: %w", id, err)
	}
	return &c, nil
}

func (s *Store) PutCanvas(ctx context.Context, c *canvas.Canvas) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("put canvas: id is required")
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode canvas %s: %w", c.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO canvases (id, user_id, created_at, updated_at, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			data = excluded.data
	`, c.ID, c.UserID, c.CreatedAt, c.UpdatedAt, raw)
	if err != nil {
		return fmt.Errorf("put canvas %s: %w", c.ID, err)
	}
	return nil
}

// DeleteCanvas hard-deletes the canvas and cascades to its nodes, chat
// sessions and any queued sync entries, in one transaction.
func (s *Store) DeleteCanvas(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete canvas %s: %w", id, err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM nodes WHERE canvas_id = ?`,
		`DELETE FROM chat_sessions WHERE canvas_id = ?`,
		`DELETE FROM sync_queue WHERE canvas_id = ?`,
		`DELETE FROM canvases WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("delete canvas %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *Store) GetCanvasNodes(ctx context.Context, canvasID string) ([]*canvas.Node, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM nodes WHERE canvas_id = ? ORDER BY created_at`, canvasID)
	if err != nil {
		return nil, fmt.Errorf("list nodes for %s: %w", canvasID, err)
	}
	defer rows.Close()

	var out []*canvas.Node
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		var n canvas.Node
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("decode node: %w", err)
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (s *Store) GetNode(ctx context.Context, id string) (*canvas.Node, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM nodes WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get node %s: %w", id, err)
	}
	var n canvas.Node
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("decode node %s: %w", id, err)
	}
	return &n, nil
}

func (s *Store) PutNode(ctx context.Context, n *canvas.Node) error {
	if n == nil || n.ID == "" {
		return fmt.Errorf("put node: id is required")
	}
	if err := n.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode node %s: %w", n.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO nodes (id, canvas_id, created_at, updated_at, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			canvas_id = excluded.canvas_id,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			data = excluded.data
	`, n.ID, n.CanvasID, n.CreatedAt, n.UpdatedAt, raw)
	if err != nil {
		return fmt.Errorf("put node %s: %w", n.ID, err)
	}
	return nil
}

func (s *Store) DeleteNode(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete node %s: %w", id, err)
	}
	return nil
}

func (s *Store) GetChatSessions(ctx context.Context, canvasID string) ([]*canvas.ChatSession, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM chat_sessions WHERE canvas_id = ? ORDER BY created_at`, canvasID)
	if err != nil {
		return nil, fmt.Errorf("list chat sessions for %s: %w", canvasID, err)
	}
	defer rows.Close()

	var out []*canvas.ChatSession
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan chat session: %w", err)
		}
		var sess canvas.ChatSession
		if err := json.Unmarshal(raw, &sess); err != nil {
			return nil, fmt.Errorf("decode chat session: %w", err)
		}
		out = append(out, &sess)
	}
	return out, rows.Err()
}

func (s *Store) PutChatSession(ctx context.Context, sess *canvas.ChatSession) error {
	if sess == nil || sess.ID == "" {
		return fmt.Errorf("put chat session: id is required")
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode chat session %s: %w", sess.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (id, canvas_id, created_at, updated_at, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			canvas_id = excluded.canvas_id,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			data = excluded.data
	`, sess.ID, sess.CanvasID, sess.CreatedAt, sess.UpdatedAt, raw)
	if err != nil {
		return fmt.Errorf("put chat session %s: %w", sess.ID, err)
	}
	return nil
}

// UpdateChatSession applies a partial update in a read-modify-write
// transaction.
func (s *Store) UpdateChatSession(ctx context.Context, id string, patch canvas.ChatSessionPatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update chat session %s: %w", id, err)
	}
	defer tx.Rollback()

	var raw []byte
	err = tx.QueryRowContext(ctx, `SELECT data FROM chat_sessions WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update chat session %s: not found", id)
	}
	if err != nil {
		return fmt.Errorf("update chat session %s: %w", id, err)
	}
	var sess canvas.ChatSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return fmt.Errorf("decode chat session %s: %w", id, err)
	}
	sess.Apply(patch)
	raw, err = json.Marshal(&sess)
	if err != nil {
		return fmt.Errorf("encode chat session %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE chat_sessions SET updated_at = ?, data = ? WHERE id = ?`, sess.UpdatedAt, raw, id); err != nil {
		return fmt.Errorf("update chat session %s: %w", id, err)
	}
	return tx.Commit()
}

func (s *Store) DeleteChatSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete chat session %s: %w", id, err)
	}
	return nil
}
