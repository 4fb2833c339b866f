package services

import (
	"context"

	"go.uber.org/zap"

	"canvassync/application/ports"
	"canvassync/domain/canvas"
	"canvassync/domain/layout"
	"canvassync/pkg/errors"
)

// Default node dimensions for generated mind-map entries. Children shrink
// slightly relative to the root so deep trees stay readable.
var (
	MindMapRootSize  = canvas.Size{Width: 220, Height: 80}
	MindMapChildSize = canvas.Size{Width: 180, Height: 60}
)

// placementRetries bounds the up/down nudge search per created child.
const placementRetries = 8

// Outline is a nested mind-map description, the shape the LLM layer emits.
type Outline struct {
	Content  string    `json:"content"`
	Children []Outline `json:"children,omitempty"`
}

// MindMapService creates mind-map node trees on a canvas.
type MindMapService struct {
	local  ports.LocalStore
	logger *zap.Logger
}

// NewMindMapService wires the service.
func NewMindMapService(local ports.LocalStore, logger *zap.Logger) *MindMapService {
	return &MindMapService{local: local, logger: logger}
}

// CreateNetwork creates a mind-map tree top-down: the root placed by the
// general allocator (which reserves the large root footprint), every child
// placed near its ideal tree offset with bounded collision nudging against
// mind-map nodes only. Placement is best-effort — when the nudge budget is
// exhausted the overlap is accepted rather than failing the creation.
//
// Parent/child links are maintained through canvas.AttachChild so ParentID
// and ChildrenIDs never disagree.
func (s *MindMapService) CreateNetwork(ctx context.Context, canvasID, userID, rootLabel string, children []Outline, orientation canvas.Orientation) (*canvas.Node, error) {
	const op = "services.CreateNetwork"
	if orientation == "" {
		orientation = canvas.OrientationHorizontal
	}
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

	rootPos := layout.FindNonOverlappingPosition(layout.Request{
		Width:  layout.MindMapRootReservedWidth,
		Height: layout.MindMapRootReservedHeight,
		Nodes:  existing,
	})
	root, err := canvas.NewNode(canvasID, userID, canvas.NodeTypeMindMap, rootLabel, rootPos, MindMapRootSize)
	if err != nil {
		return nil, err
	}
	root.MindMap = &canvas.MindMapMeta{Level: 0, Orientation: orientation}

	all := append(existing, root)
	created := []*canvas.Node{root}
	all, created, err = s.createChildren(canvasID, userID, root, children, all, created)
	if err != nil {
		return nil, err
	}

	for _, n := range created {
		if err := s.local.PutNode(ctx, n); err != nil {
			return nil, errors.Wrap(errors.KindStore, op, err).WithCanvas(canvasID)
		}
		c.AddNodeRef(n.ID)
	}
	if err := s.local.PutCanvas(ctx, c); err != nil {
		return nil, errors.Wrap(errors.KindStore, op, err).WithCanvas(canvasID)
	}

	s.logger.Info("mind map created",
		zap.String("canvasID", canvasID),
		zap.String("rootID", root.ID),
		zap.Int("nodes", len(created)),
	)
	return root, nil
}

// createChildren walks the outline depth-first, placing each child near its
// ideal offset from the parent.
func (s *MindMapService) createChildren(canvasID, userID string, parent *canvas.Node, outlines []Outline, all, created []*canvas.Node) ([]*canvas.Node, []*canvas.Node, error) {
	orientation := canvas.OrientationHorizontal
	if parent.MindMap != nil && parent.MindMap.Orientation != "" {
		orientation = parent.MindMap.Orientation
	}

	for i, o := range outlines {
		desired := childOffset(parent, i, orientation)
		pos := layout.FindMindMapChildPosition(all, desired, MindMapChildSize, placementRetries)

		child, err := canvas.NewNode(canvasID, userID, canvas.NodeTypeMindMap, o.Content, pos, MindMapChildSize)
		if err != nil {
			return all, created, err
		}
		canvas.AttachChild(parent, child)

		all = append(all, child)
		created = append(created, child)
		all, created, err = s.createChildren(canvasID, userID, child, o.Children, all, created)
		if err != nil {
			return all, created, err
		}
	}
	return all, created, nil
}

// childOffset is the ideal position of the i-th child before collision
// nudging: one level gap along the flow axis, siblings fanned out along the
// stacking axis.
func childOffset(parent *canvas.Node, index int, orientation canvas.Orientation) canvas.Position {
	if orientation == canvas.OrientationVertical {
		return canvas.Position{
			X: parent.Position.X + float64(index)*(MindMapChildSize.Width+layout.VerticalSiblingGap),
			Y: parent.Position.Y + parent.Size.Height + layout.VerticalLevelGap,
		}
	}
	return canvas.Position{
		X: parent.Position.X + parent.Size.Width + layout.HorizontalLevelGap,
		Y: parent.Position.Y + float64(index)*(MindMapChildSize.Height+layout.HorizontalSiblingGap),
	}
}

// Relayout recomputes the whole tree's positions with the pure tree layout
// and applies them to the store. Used after collapse/expand or reordering.
func (s *MindMapService) Relayout(ctx context.Context, canvasID, rootID string, orientation canvas.Orientation) error {
	const op = "services.Relayout"
	nodes, err := s.local.GetCanvasNodes(ctx, canvasID)
	if err != nil {
		return errors.Wrap(errors.KindStore, op, err).WithCanvas(canvasID)
	}
	positions := layout.CalculateMindMapLayout(nodes, rootID, orientation)
	byID := make(map[string]*canvas.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	for id, pos := range positions {
		n := byID[id]
		if n == nil || n.Position == pos {
			continue
		}
		n.Position = pos
		n.Touch()
		if err := s.local.PutNode(ctx, n); err != nil {
			return errors.Wrap(errors.KindStore, op, err).WithCanvas(canvasID)
		}
	}
	return nil
}
