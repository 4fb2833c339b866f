// Package services holds the canvas-mutating application services that sit
// between the UI/LLM layer and the local store: collision-aware node
// placement for structured create-node intents, and mind-map network
// creation from a nested outline.
package services

import (
	"context"

	"go.uber.org/zap"

	"canvassync/application/ports"
	"canvassync/domain/canvas"
	"canvassync/domain/layout"
	"canvassync/pkg/errors"
)

// DefaultNodeSize is used when an intent does not specify one.
var DefaultNodeSize = canvas.Size{Width: 300, Height: 150}

// NodeIntent is one structured "create node" instruction, typically decoded
// from an assistant tool call.
type NodeIntent struct {
	Type      canvas.NodeType  `json:"type" validate:"required"`
	Content   string           `json:"content"`
	Size      *canvas.Size     `json:"size,omitempty"`
	Preferred *canvas.Position `json:"preferred,omitempty"`
	Color     string           `json:"color,omitempty"`
	Prompt    string           `json:"prompt,omitempty"`
}

// PlacementService creates nodes on a canvas without manual positioning.
type PlacementService struct {
	local  ports.LocalStore
	logger *zap.Logger
}

// NewPlacementService wires the service.
func NewPlacementService(local ports.LocalStore, logger *zap.Logger) *PlacementService {
	return &PlacementService{local: local, logger: logger}
}

// PlaceNodes creates one node per intent, each placed by the allocator
// against the canvas content as it grows. When call is non-nil the created
// node ids are recorded on it and its status moves to confirmed; persisting
// the updated message is the caller's job since the call lives inside a
// chat session document.
func (s *PlacementService) PlaceNodes(ctx context.Context, canvasID, userID string, intents []NodeIntent, call *canvas.ToolCall) ([]*canvas.Node, error) {
	const op = "services.PlaceNodes"
	c, err := s.local.GetCanvas(ctx, canvasID)
	if err != nil {
		return nil, errors.Wrap(errors.KindStore, op, err).WithCanvas(canvasID)
	}
	if c == nil {
		return nil, errors.Newf(errors.KindNotFound, op, "canvas %s", canvasID)
	}
	existing, err := s.local.GetCanvasNodes(ctx, canvasID)
	if err != nil {
		return nil, errors.Wrap(errors.KindStore, op, err).WithCanvas(canvasID)
	}

	created := make([]*canvas.Node, 0, len(intents))
	for _, intent := range intents {
		size := DefaultNodeSize
		if intent.Size != nil {
			size = *intent.Size
		}
		pos := layout.FindNonOverlappingPosition(layout.Request{
			Width:     size.Width,
			Height:    size.Height,
			Nodes:     existing,
			Preferred: intent.Preferred,
		})

		n, err := canvas.NewNode(canvasID, userID, intent.Type, intent.Content, pos, size)
		if err != nil {
			return created, err
		}
		n.Color = intent.Color
		n.AI = &canvas.AIProvenance{
			Source:    "tool_call",
			Prompt:    intent.Prompt,
			Timestamp: n.CreatedAt,
		}
		if err := s.local.PutNode(ctx, n); err != nil {
			return created, errors.Wrap(errors.KindStore, op, err).WithCanvas(canvasID)
		}
		c.AddNodeRef(n.ID)
		existing = append(existing, n)
		created = append(created, n)
	}

	if err := s.local.PutCanvas(ctx, c); err != nil {
		return created, errors.Wrap(errors.KindStore, op, err).WithCanvas(canvasID)
	}

	if call != nil {
		for _, n := range created {
			call.CreatedNodeIDs = append(call.CreatedNodeIDs, n.ID)
		}
		call.Status = canvas.ToolCallConfirmed
	}
	s.logger.Info("nodes placed",
		zap.String("canvasID", canvasID),
		zap.Int("count", len(created)),
	)
	return created, nil
}

// DeleteNode removes a node and repairs every structure that referenced it:
// the canvas reference set, the parent's child list, and sibling
// Connections entries are left dangling on purpose — connection references
// may point at missing nodes without error.
func (s *PlacementService) DeleteNode(ctx context.Context, canvasID, nodeID string) error {
	const op = "services.DeleteNode"
	n, err := s.local.GetNode(ctx, nodeID)
	if err != nil {
		return errors.Wrap(errors.KindStore, op, err).WithCanvas(canvasID)
	}
	if n == nil {
		return nil
	}

	if n.ParentID != "" {
		parent, err := s.local.GetNode(ctx, n.ParentID)
		if err != nil {
			return errors.Wrap(errors.KindStore, op, err).WithCanvas(canvasID)
		}
		if parent != nil {
			canvas.DetachChild(parent, n)
			if err := s.local.PutNode(ctx, parent); err != nil {
				return errors.Wrap(errors.KindStore, op, err).WithCanvas(canvasID)
			}
		}
	}

	c, err := s.local.GetCanvas(ctx, canvasID)
	if err != nil {
		return errors.Wrap(errors.KindStore, op, err).WithCanvas(canvasID)
	}
	if c != nil {
		c.RemoveNodeRef(nodeID)
		if err := s.local.PutCanvas(ctx, c); err != nil {
			return errors.Wrap(errors.KindStore, op, err).WithCanvas(canvasID)
		}
	}

	if err := s.local.DeleteNode(ctx, nodeID); err != nil {
		return errors.Wrap(errors.KindStore, op, err).WithCanvas(canvasID)
	}
	return nil
}
