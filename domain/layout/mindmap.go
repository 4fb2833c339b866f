package layout

import (
	"sort"

	"canvassync/domain/canvas"
)

// Gaps between siblings and between levels, per orientation.
const (
	HorizontalSiblingGap = 80.0
	HorizontalLevelGap   = 200.0
	VerticalSiblingGap   = 100.0
	VerticalLevelGap     = 150.0
)

// CalculateMindMapLayout assigns absolute positions to the subtree rooted at
// rootID so that no two subtrees overlap along the stacking axis. The root
// keeps its stored position; every other laid-out node gets a new one.
//
// Horizontal orientation stacks children vertically to the right of their
// parent, each child subtree centered on the cross axis relative to the
// parent. Vertical orientation is the same rotated a quarter turn. Collapsed
// nodes contribute their own extent but none of their descendants, which are
// excluded from the result entirely.
//
// The function is pure: it returns the computed positions and mutates
// nothing. Callers apply them to the store.
func CalculateMindMapLayout(nodes []*canvas.Node, rootID string, orientation canvas.Orientation) map[string]canvas.Position {
	byID := make(map[string]*canvas.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	root, ok := byID[rootID]
	if !ok {
		return map[string]canvas.Position{}
	}

	l := &treeLayouter{
		byID:        byID,
		orientation: orientation,
		extents:     make(map[string]float64),
		out:         make(map[string]canvas.Position),
		visited:     make(map[string]bool),
	}
	l.measure(root)
	l.place(root, root.Position)
	return l.out
}

type treeLayouter struct {
	byID        map[string]*canvas.Node
	orientation canvas.Orientation
	extents     map[string]float64 // subtree extent along the stacking axis
	out         map[string]canvas.Position
	visited     map[string]bool
}

// children resolves a node's ordered child list, skipping dangling ids and
// treating collapsed nodes as childless.
func (l *treeLayouter) children(n *canvas.Node) []*canvas.Node {
	if n.MindMap != nil && n.MindMap.Collapsed {
		return nil
	}
	kids := make([]*canvas.Node, 0, len(n.ChildrenIDs))
	for _, id := range n.ChildrenIDs {
		if c, ok := l.byID[id]; ok {
			kids = append(kids, c)
		}
	}
	sort.SliceStable(kids, func(i, j int) bool {
		return siblingOrder(kids[i]) < siblingOrder(kids[j])
	})
	return kids
}

func siblingOrder(n *canvas.Node) int {
	if n.MindMap == nil {
		return 0
	}
	return n.MindMap.Order
}

// measure computes each subtree's extent along the stacking axis:
// max(own extent, sum of child extents plus gaps).
func (l *treeLayouter) measure(n *canvas.Node) float64 {
	if l.visited[n.ID] {
		return l.extents[n.ID] // cycle guard; a corrupt tree must not spin
	}
	l.visited[n.ID] = true

	own := l.crossExtent(n)
	kids := l.children(n)
	if len(kids) == 0 {
		l.extents[n.ID] = own
		return own
	}
	total := 0.0
	for i, c := range kids {
		if i > 0 {
			total += l.siblingGap()
		}
		total += l.measure(c)
	}
	if own > total {
		total = own
	}
	l.extents[n.ID] = total
	return total
}

// place pins n so that its subtree occupies the slot starting at slotStart
// on the stacking axis, with n itself centered within the slot, then lays
// out its children one level further along the flow axis.
func (l *treeLayouter) place(n *canvas.Node, pos canvas.Position) {
	if _, done := l.out[n.ID]; done {
		return // cycle guard, mirrors measure
	}
	l.out[n.ID] = pos
	kids := l.children(n)
	if len(kids) == 0 {
		return
	}

	subtree := l.extents[n.ID]
	if l.orientation == canvas.OrientationVertical {
		cursor := pos.X + l.crossExtent(n)/2 - subtree/2
		y := pos.Y + n.Size.Height + VerticalLevelGap
		for _, c := range kids {
			ext := l.extents[c.ID]
			cx := cursor + ext/2 - c.Size.Width/2
			l.place(c, canvas.Position{X: cx, Y: y})
			cursor += ext + VerticalSiblingGap
		}
		return
	}

	cursor := pos.Y + l.crossExtent(n)/2 - subtree/2
	x := pos.X + n.Size.Width + HorizontalLevelGap
	for _, c := range kids {
		ext := l.extents[c.ID]
		cy := cursor + ext/2 - c.Size.Height/2
		l.place(c, canvas.Position{X: x, Y: cy})
		cursor += ext + HorizontalSiblingGap
	}
}

func (l *treeLayouter) crossExtent(n *canvas.Node) float64 {
	if l.orientation == canvas.OrientationVertical {
		return n.Size.Width
	}
	return n.Size.Height
}

func (l *treeLayouter) siblingGap() float64 {
	if l.orientation == canvas.OrientationVertical {
		return VerticalSiblingGap
	}
	return HorizontalSiblingGap
}

// AllDescendantIDs walks ChildrenIDs breadth-first from rootID and returns
// every reachable descendant id (excluding the root itself). Dangling ids
// are skipped; revisits are suppressed so a corrupt cyclic tree terminates.
func AllDescendantIDs(nodes []*canvas.Node, rootID string) []string {
	byID := make(map[string]*canvas.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	root, ok := byID[rootID]
	if !ok {
		return nil
	}

	var out []string
	seen := map[string]bool{rootID: true}
	queue := append([]string(nil), root.ChildrenIDs...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		n, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, id)
		queue = append(queue, n.ChildrenIDs...)
	}
	return out
}
