package canvas

import (
	"github.com/google/uuid"

	"canvassync/pkg/errors"
)

// NodeType discriminates the node variants placed on a canvas.
type NodeType string

const (
	NodeTypeText    NodeType = "text"
	NodeTypeSticky  NodeType = "sticky"
	NodeTypeMindMap NodeType = "mindmap"
)

// Valid reports whether t is one of the supported node types. The legacy
// "ai-generated" type is not accepted; AI provenance is carried by the
// AIProvenance field on any node type instead.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeText, NodeTypeSticky, NodeTypeMindMap:
		return true
	default:
		return false
	}
}

// Orientation is the direction a mind-map tree expands in.
type Orientation string

const (
	OrientationHorizontal Orientation = "horizontal" // children extend rightward
	OrientationVertical   Orientation = "vertical"   // children extend downward
)

// Position is a point in canvas coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the rendered extent of a node.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Style carries optional per-node rendering overrides. Nil pointers mean
// "inherit the default rendering".
type Style struct {
	FontSize        *float64 `json:"fontSize,omitempty"`
	FontWeight      *string  `json:"fontWeight,omitempty"`
	TextColor       *string  `json:"textColor,omitempty"`
	BackgroundColor *string  `json:"backgroundColor,omitempty"`
}

// AIProvenance records how an AI-created node came to exist.
type AIProvenance struct {
	Source      string `json:"source"`
	Prompt      string `json:"prompt,omitempty"`
	Timestamp   int64  `json:"timestamp"`
	DerivedFrom string `json:"derivedFrom,omitempty"`
}

// MindMapMeta carries the tree bookkeeping for mind-map nodes.
type MindMapMeta struct {
	Level       int         `json:"level"` // root = 0
	Collapsed   bool        `json:"collapsed"`
	Order       int         `json:"order"` // sibling order index
	Orientation Orientation `json:"orientation,omitempty"`
}

// Node is a single content unit on a canvas.
//
// ChildrenIDs and ParentID must agree: every id listed in a parent's
// ChildrenIDs has its ParentID pointing back. Mutate the relationship only
// through AttachChild/DetachChild so both sides stay consistent.
type Node struct {
	ID          string        `json:"id"`
	CanvasID    string        `json:"canvasId"`
	UserID      string        `json:"userId"`
	Type        NodeType      `json:"type"`
	Content     string        `json:"content"`
	Position    Position      `json:"position"`
	Size        Size          `json:"size"`
	Connections []string      `json:"connections,omitempty"` // may reference missing nodes without error
	Color       string        `json:"color,omitempty"`
	Style       *Style        `json:"style,omitempty"`
	AI          *AIProvenance `json:"ai,omitempty"`
	ParentID    string        `json:"parentId,omitempty"`
	ChildrenIDs []string      `json:"childrenIds,omitempty"`
	MindMap     *MindMapMeta  `json:"mindMap,omitempty"`
	CreatedAt   int64         `json:"createdAt"`
	UpdatedAt   int64         `json:"updatedAt"`
}

// NewNode creates a node with a caller-assigned id and fresh timestamps.
func NewNode(canvasID, userID string, t NodeType, content string, pos Position, size Size) (*Node, error) {
	if canvasID == "" {
		return nil, errors.New(errors.KindValidation, "canvas.NewNode", "canvas id is required")
	}
	if !t.Valid() {
		return nil, errors.Newf(errors.KindValidation, "canvas.NewNode", "unsupported node type %q", t)
	}
	now := NowMillis()
	return &Node{
		ID:        uuid.NewString(),
		CanvasID:  canvasID,
		UserID:    userID,
		Type:      t,
		Content:   content,
		Position:  pos,
		Size:      size,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Touch refreshes the modification timestamp. Every field-level update must
// call this so last-writer-wins reconciliation sees the edit.
func (n *Node) Touch() {
	n.UpdatedAt = NowMillis()
}

// IsMindMapRoot reports whether the node anchors a mind-map tree.
func (n *Node) IsMindMapRoot() bool {
	return n.Type == NodeTypeMindMap && n.ParentID == "" &&
		(n.MindMap == nil || n.MindMap.Level == 0)
}

// Validate checks structural invariants before a node is persisted.
func (n *Node) Validate() error {
	const op = "canvas.Node.Validate"
	if n.ID == "" {
		return errors.New(errors.KindValidation, op, "node id is required")
	}
	if n.CanvasID == "" {
		return errors.New(errors.KindValidation, op, "canvas id is required")
	}
	switch n.Type {
	case NodeTypeText, NodeTypeSticky:
		if n.MindMap != nil {
			return errors.Newf(errors.KindValidation, op, "%s node carries mind-map metadata", n.Type)
		}
	case NodeTypeMindMap:
		// metadata optional on roots, required below level 0
		if n.ParentID != "" && n.MindMap == nil {
			return errors.New(errors.KindValidation, op, "non-root mind-map node missing metadata")
		}
	default:
		return errors.Newf(errors.KindValidation, op, "unsupported node type %q", n.Type)
	}
	return nil
}

// AttachChild links child under parent, keeping ParentID and ChildrenIDs
// consistent on both sides. The child is appended at the end of the sibling
// order.
func AttachChild(parent, child *Node) {
	if parent == nil || child == nil || parent.ID == child.ID {
		return
	}
	for _, id := range parent.ChildrenIDs {
		if id == child.ID {
			return
		}
	}
	parent.ChildrenIDs = append(parent.ChildrenIDs, child.ID)
	child.ParentID = parent.ID
	level := 1
	if parent.MindMap != nil {
		level = parent.MindMap.Level + 1
	}
	orientation := OrientationHorizontal
	if parent.MindMap != nil && parent.MindMap.Orientation != "" {
		orientation = parent.MindMap.Orientation
	}
	if child.MindMap == nil {
		child.MindMap = &MindMapMeta{}
	}
	child.MindMap.Level = level
	child.MindMap.Order = len(parent.ChildrenIDs) - 1
	child.MindMap.Orientation = orientation
	parent.Touch()
	child.Touch()
}

// DetachChild removes the link between parent and child on both sides.
// Sibling order indexes of the remaining children are left as-is; layout
// orders by index with stable ties, so gaps are harmless.
func DetachChild(parent, child *Node) {
	if parent == nil || child == nil {
		return
	}
	for i, id := range parent.ChildrenIDs {
		if id == child.ID {
			parent.ChildrenIDs = append(parent.ChildrenIDs[:i], parent.ChildrenIDs[i+1:]...)
			child.ParentID = ""
			parent.Touch()
			child.Touch()
			return
		}
	}
}
