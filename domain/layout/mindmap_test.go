package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvassync/domain/canvas"
)

func mindNode(id string, x, y, w, h float64, level, order int, children ...string) *canvas.Node {
	return &canvas.Node{
		ID:          id,
		CanvasID:    "canvas-1",
		Type:        canvas.NodeTypeMindMap,
		Position:    canvas.Position{X: x, Y: y},
		Size:        canvas.Size{Width: w, Height: h},
		ChildrenIDs: children,
		MindMap:     &canvas.MindMapMeta{Level: level, Order: order},
	}
}

func TestCalculateMindMapLayoutHorizontal(t *testing.T) {
	nodes := []*canvas.Node{
		mindNode("root", 0, 0, 200, 100, 0, 0, "c1", "c2"),
		mindNode("c1", 0, 0, 100, 50, 1, 0),
		mindNode("c2", 0, 0, 100, 50, 1, 1),
	}

	out := CalculateMindMapLayout(nodes, "root", canvas.OrientationHorizontal)

	require.Len(t, out, 3)
	assert.Equal(t, canvas.Position{X: 0, Y: 0}, out["root"])
	// One level gap to the right; the two subtrees (50+80+50 = 180) are
	// centered on the root's vertical midline.
	assert.Equal(t, canvas.Position{X: 400, Y: -40}, out["c1"])
	assert.Equal(t, canvas.Position{X: 400, Y: 90}, out["c2"])
}

func TestCalculateMindMapLayoutVertical(t *testing.T) {
	nodes := []*canvas.Node{
		mindNode("root", 0, 0, 200, 100, 0, 0, "c1", "c2"),
		mindNode("c1", 0, 0, 100, 50, 1, 0),
		mindNode("c2", 0, 0, 100, 50, 1, 1),
	}

	out := CalculateMindMapLayout(nodes, "root", canvas.OrientationVertical)

	require.Len(t, out, 3)
	assert.Equal(t, canvas.Position{X: 0, Y: 0}, out["root"])
	assert.Equal(t, canvas.Position{X: -50, Y: 250}, out["c1"])
	assert.Equal(t, canvas.Position{X: 150, Y: 250}, out["c2"])
}

func TestCalculateMindMapLayoutTranslationInvariant(t *testing.T) {
	build := func(rootX, rootY float64) []*canvas.Node {
		return []*canvas.Node{
			mindNode("root", rootX, rootY, 200, 100, 0, 0, "c1", "c2"),
			mindNode("c1", 0, 0, 100, 50, 1, 0, "g1"),
			mindNode("c2", 0, 0, 120, 40, 1, 1),
			mindNode("g1", 0, 0, 90, 30, 2, 0),
		}
	}

	base := CalculateMindMapLayout(build(0, 0), "root", canvas.OrientationHorizontal)
	moved := CalculateMindMapLayout(build(1000, -500), "root", canvas.OrientationHorizontal)

	require.Len(t, moved, len(base))
	for id, pos := range base {
		assert.Equal(t, canvas.Position{X: pos.X + 1000, Y: pos.Y - 500}, moved[id], id)
	}
}

func TestCalculateMindMapLayoutDeterministic(t *testing.T) {
	nodes := []*canvas.Node{
		mindNode("root", 10, 20, 200, 100, 0, 0, "c1", "c2"),
		mindNode("c1", 0, 0, 100, 50, 1, 0),
		mindNode("c2", 0, 0, 100, 50, 1, 1),
	}

	first := CalculateMindMapLayout(nodes, "root", canvas.OrientationHorizontal)
	second := CalculateMindMapLayout(nodes, "root", canvas.OrientationHorizontal)

	assert.Equal(t, first, second)
}

func TestCalculateMindMapLayoutExcludesCollapsedSubtrees(t *testing.T) {
	collapsed := mindNode("c1", 0, 0, 100, 50, 1, 0, "g1")
	collapsed.MindMap.Collapsed = true
	nodes := []*canvas.Node{
		mindNode("root", 0, 0, 200, 100, 0, 0, "c1", "c2"),
		collapsed,
		mindNode("c2", 0, 0, 100, 50, 1, 1),
		mindNode("g1", 0, 0, 90, 30, 2, 0),
	}

	out := CalculateMindMapLayout(nodes, "root", canvas.OrientationHorizontal)

	assert.Contains(t, out, "c1")
	assert.Contains(t, out, "c2")
	assert.NotContains(t, out, "g1")
}

func TestCalculateMindMapLayoutOrdersSiblingsByIndex(t *testing.T) {
	// Listed out of order in ChildrenIDs; the sibling order index decides.
	nodes := []*canvas.Node{
		mindNode("root", 0, 0, 200, 100, 0, 0, "second", "first"),
		mindNode("second", 0, 0, 100, 50, 1, 1),
		mindNode("first", 0, 0, 100, 50, 1, 0),
	}

	out := CalculateMindMapLayout(nodes, "root", canvas.OrientationHorizontal)

	assert.Less(t, out["first"].Y, out["second"].Y)
}

func TestCalculateMindMapLayoutUnknownRoot(t *testing.T) {
	nodes := []*canvas.Node{mindNode("root", 0, 0, 200, 100, 0, 0)}

	out := CalculateMindMapLayout(nodes, "missing", canvas.OrientationHorizontal)

	assert.Empty(t, out)
}

func TestCalculateMindMapLayoutSkipsDanglingChildren(t *testing.T) {
	nodes := []*canvas.Node{
		mindNode("root", 0, 0, 200, 100, 0, 0, "ghost", "c1"),
		mindNode("c1", 0, 0, 100, 50, 1, 0),
	}

	out := CalculateMindMapLayout(nodes, "root", canvas.OrientationHorizontal)

	require.Len(t, out, 2)
	assert.NotContains(t, out, "ghost")
}

func TestCalculateMindMapLayoutTerminatesOnCycle(t *testing.T) {
	nodes := []*canvas.Node{
		mindNode("root", 0, 0, 200, 100, 0, 0, "c1"),
		mindNode("c1", 0, 0, 100, 50, 1, 0, "root"),
	}

	out := CalculateMindMapLayout(nodes, "root", canvas.OrientationHorizontal)

	assert.Contains(t, out, "c1")
}

func TestAllDescendantIDs(t *testing.T) {
	nodes := []*canvas.Node{
		mindNode("root", 0, 0, 200, 100, 0, 0, "a", "c"),
		mindNode("a", 0, 0, 100, 50, 1, 0, "b"),
		mindNode("b", 0, 0, 100, 50, 2, 0),
		mindNode("c", 0, 0, 100, 50, 1, 1),
	}

	assert.Equal(t, []string{"a", "c", "b"}, AllDescendantIDs(nodes, "root"))
}

func TestAllDescendantIDsEdgeCases(t *testing.T) {
	t.Run("unknown root", func(t *testing.T) {
		assert.Nil(t, AllDescendantIDs(nil, "missing"))
	})

	t.Run("dangling child id", func(t *testing.T) {
		nodes := []*canvas.Node{
			mindNode("root", 0, 0, 200, 100, 0, 0, "ghost", "a"),
			mindNode("a", 0, 0, 100, 50, 1, 0),
		}
		assert.Equal(t, []string{"a"}, AllDescendantIDs(nodes, "root"))
	})

	t.Run("cycle terminates", func(t *testing.T) {
		nodes := []*canvas.Node{
			mindNode("root", 0, 0, 200, 100, 0, 0, "a"),
			mindNode("a", 0, 0, 100, 50, 1, 0, "root"),
		}
		assert.Equal(t, []string{"a"}, AllDescendantIDs(nodes, "root"))
	})
}
