// Package layout computes non-overlapping placements for new canvas content
// and tree layouts for mind maps. Everything here is pure and synchronous:
// the allocator never touches a store and never fails — every search path
// terminates in a deterministic fallback, because refusing to place content
// would be worse than an imperfect position.
package layout

import (
	"canvassync/domain/canvas"
)

const (
	// DefaultSpacing is the margin added to all four sides of a footprint
	// before the overlap test.
	DefaultSpacing = 50.0

	// A root mind-map node reserves a much larger footprint than its stored
	// size so descendants created later have room to expand into.
	MindMapRootReservedWidth  = 2000.0
	MindMapRootReservedHeight = 1200.0

	spiralStep     = 120.0
	spiralMaxRings = 16
)

// DefaultOrigin is where the first node on an empty canvas lands when no
// preferred position is given.
var DefaultOrigin = canvas.Position{X: 100, Y: 100}

// Request describes one placement query.
type Request struct {
	Width     float64
	Height    float64
	Nodes     []*canvas.Node
	Preferred *canvas.Position
}

// FindNonOverlappingPosition returns a position at which a Width×Height
// rectangle does not overlap any existing node footprint (padded by
// DefaultSpacing). Placement prefers the area around the most recently
// created node, trying the eight canonical offsets first, then a ring search
// outward, and finally a spot beyond the bottom-right extent of everything,
// which cannot collide by construction.
func FindNonOverlappingPosition(req Request) canvas.Position {
	if len(req.Nodes) == 0 {
		if req.Preferred != nil {
			return *req.Preferred
		}
		return DefaultOrigin
	}

	if req.Preferred != nil && !collides(req.Preferred.X, req.Preferred.Y, req.Width, req.Height, req.Nodes) {
		return *req.Preferred
	}

	anchor := newestNode(req.Nodes)
	aw, ah := footprint(anchor)

	// Offset priority follows left-to-right reading flow: right wins, then
	// below, then the diagonals and the remaining sides.
	candidates := []canvas.Position{
		{X: anchor.Position.X + aw + DefaultSpacing, Y: anchor.Position.Y},                       // right
		{X: anchor.Position.X, Y: anchor.Position.Y + ah + DefaultSpacing},                       // below
		{X: anchor.Position.X + aw + DefaultSpacing, Y: anchor.Position.Y + ah + DefaultSpacing}, // below-right
		{X: anchor.Position.X - req.Width - DefaultSpacing, Y: anchor.Position.Y},                // left
		{X: anchor.Position.X, Y: anchor.Position.Y - req.Height - DefaultSpacing},               // above
		{X: anchor.Position.X + aw + DefaultSpacing, Y: anchor.Position.Y - req.Height - DefaultSpacing},        // above-right
		{X: anchor.Position.X - req.Width - DefaultSpacing, Y: anchor.Position.Y - req.Height - DefaultSpacing}, // above-left
		{X: anchor.Position.X - req.Width - DefaultSpacing, Y: anchor.Position.Y + ah + DefaultSpacing},         // below-left
	}
	for _, c := range candidates {
		if !collides(c.X, c.Y, req.Width, req.Height, req.Nodes) {
			return c
		}
	}

	if pos, ok := spiralSearch(anchor.Position, req); ok {
		return pos
	}

	// Exhaustion fallback: just past the maximum extent of all nodes.
	maxX, maxY := maxExtent(req.Nodes)
	return canvas.Position{X: maxX + DefaultSpacing, Y: maxY + DefaultSpacing}
}

// spiralSearch scans grid cells ring by ring around the center. Only the
// outer edge of each ring is visited; the interior was covered by the
// smaller rings before it.
func spiralSearch(center canvas.Position, req Request) (canvas.Position, bool) {
	for ring := 1; ring <= spiralMaxRings; ring++ {
		for dy := -ring; dy <= ring; dy++ {
			for dx := -ring; dx <= ring; dx++ {
				if dx > -ring && dx < ring && dy > -ring && dy < ring {
					continue
				}
				x := center.X + float64(dx)*spiralStep
				y := center.Y + float64(dy)*spiralStep
				if !collides(x, y, req.Width, req.Height, req.Nodes) {
					return canvas.Position{X: x, Y: y}, true
				}
			}
		}
	}
	return canvas.Position{}, false
}

// FindMindMapChildPosition places a new mind-map child near desired,
// nudging downward and then upward in spacing-sized steps when the spot is
// taken. Only mind-map nodes participate in this collision check; text and
// sticky notes are visually distinct enough to tolerate proximity. When the
// retry budget runs out the last candidate is accepted, overlap and all.
func FindMindMapChildPosition(nodes []*canvas.Node, desired canvas.Position, size canvas.Size, maxTries int) canvas.Position {
	mindmap := nodes[:0:0]
	for _, n := range nodes {
		if n.Type == canvas.NodeTypeMindMap {
			mindmap = append(mindmap, n)
		}
	}

	pos := desired
	for try := 0; try < maxTries; try++ {
		if !collidesExact(pos.X, pos.Y, size.Width, size.Height, mindmap) {
			return pos
		}
		pos.Y += size.Height + DefaultSpacing
	}
	pos = desired
	for try := 0; try < maxTries; try++ {
		pos.Y -= size.Height + DefaultSpacing
		if !collidesExact(pos.X, pos.Y, size.Width, size.Height, mindmap) {
			return pos
		}
	}
	return desired
}

// collides reports whether a rectangle at (x,y) overlaps any node footprint
// once both are padded by DefaultSpacing. Two axis-aligned rectangles
// overlap iff their padded extents intersect on both axes.
func collides(x, y, w, h float64, nodes []*canvas.Node) bool {
	for _, n := range nodes {
		nw, nh := footprint(n)
		if x < n.Position.X+nw+DefaultSpacing &&
			x+w+DefaultSpacing > n.Position.X &&
			y < n.Position.Y+nh+DefaultSpacing &&
			y+h+DefaultSpacing > n.Position.Y {
			return true
		}
	}
	return false
}

// collidesExact is the same test against stored node sizes only. Mind-map
// children are placed inside their own root's reserved area, so the root
// reservation must not participate here.
func collidesExact(x, y, w, h float64, nodes []*canvas.Node) bool {
	for _, n := range nodes {
		if x < n.Position.X+n.Size.Width+DefaultSpacing &&
			x+w+DefaultSpacing > n.Position.X &&
			y < n.Position.Y+n.Size.Height+DefaultSpacing &&
			y+h+DefaultSpacing > n.Position.Y {
			return true
		}
	}
	return false
}

// footprint is the occupied extent of a node for collision purposes. Root
// mind-map nodes reserve a large fixed area; this is a heuristic
// reservation, not a computed bound of the subtree.
func footprint(n *canvas.Node) (w, h float64) {
	if n.IsMindMapRoot() {
		return MindMapRootReservedWidth, MindMapRootReservedHeight
	}
	return n.Size.Width, n.Size.Height
}

func newestNode(nodes []*canvas.Node) *canvas.Node {
	newest := nodes[0]
	for _, n := range nodes[1:] {
		if n.CreatedAt > newest.CreatedAt {
			newest = n
		}
	}
	return newest
}

func maxExtent(nodes []*canvas.Node) (maxX, maxY float64) {
	first := nodes[0]
	fw, fh := footprint(first)
	maxX, maxY = first.Position.X+fw, first.Position.Y+fh
	for _, n := range nodes[1:] {
		w, h := footprint(n)
		if x := n.Position.X + w; x > maxX {
			maxX = x
		}
		if y := n.Position.Y + h; y > maxY {
			maxY = y
		}
	}
	return maxX, maxY
}
