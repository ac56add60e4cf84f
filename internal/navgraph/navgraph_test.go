package navgraph

import (
	"bytes"
	"strings"
	"testing"

	"github.com/elektrokombinacija/fleetctl/internal/geometry"
	"github.com/elektrokombinacija/fleetctl/internal/grid"
	"github.com/stretchr/testify/require"
)

func tenByTenWithCenterObstacle(t *testing.T) *grid.Grid {
	t.Helper()
	rows := make([]string, 10)
	for y := 0; y < 10; y++ {
		row := strings.Repeat(".", 10)
		if y == 5 {
			row = row[:5] + "#" + row[6:]
		}
		rows[y] = row
	}
	g, err := grid.Load(strings.NewReader("10 10\n" + strings.Join(rows, "\n") + "\n"))
	require.NoError(t, err)
	g.Inflate(geometry.Decimeters, 0.0)
	return g
}

// E1: decomposing a 10x10 grid with a single obstacle at (5,5) with zero
// robot radius is connected and reaches every node from node 0 (§8
// invariant 3). The rectangular-decomposition algorithm in §4.2, applied
// literally, produces four convex regions around the single blocked cell
// (one spanning the rows above it, three filling the split region below
// it) rather than the two a coarser reading suggests; see DESIGN.md.
func TestBuildE1ConnectedDecomposition(t *testing.T) {
	g := tenByTenWithCenterObstacle(t)
	nav := Build(g)

	require.Len(t, nav.Nodes, 4)
	require.NoError(t, nav.Validate())
}

func TestRectanglesAdjacentSharedEdge(t *testing.T) {
	a := rectangle{x: 0, y: 0, w: 10, h: 5}
	b := rectangle{x: 0, y: 5, w: 5, h: 5}
	require.True(t, rectanglesAdjacent(a, b))
}

func TestRectanglesAdjacentDiagonalNotAdjacent(t *testing.T) {
	a := rectangle{x: 0, y: 0, w: 5, h: 5}
	b := rectangle{x: 5, y: 5, w: 5, h: 5}
	require.False(t, rectanglesAdjacent(a, b))
}

func TestRemoveOrphansPrunesAndRemaps(t *testing.T) {
	nav := New()
	n0 := nav.AddNode(geometry.Coord{X: 0, Y: 0})
	n1 := nav.AddNode(geometry.Coord{X: 1, Y: 0})
	orphan := nav.AddNode(geometry.Coord{X: 99, Y: 99})
	_ = orphan
	nav.AddEdge(n0, n1, 1.0)

	removed := nav.RemoveOrphans()
	require.Equal(t, 1, removed)
	require.Len(t, nav.Nodes, 2)
	require.NoError(t, nav.Validate())
}

func TestNearestNodeTieBreaksToFirst(t *testing.T) {
	nav := New()
	nav.AddNode(geometry.Coord{X: 0, Y: 0})
	nav.AddNode(geometry.Coord{X: 10, Y: 0})

	id, _, ok := nav.NearestNode(geometry.Coord{X: 5, Y: 0})
	require.True(t, ok)
	require.Equal(t, NodeID(0), id)
}

func TestCSVRoundTrip(t *testing.T) {
	nav := New()
	a := nav.AddNode(geometry.Coord{X: 1, Y: 2})
	b := nav.AddNode(geometry.Coord{X: 3, Y: 4})
	nav.AddEdge(a, b, 2.5)

	var buf bytes.Buffer
	require.NoError(t, nav.WriteCSV(&buf))

	nav2, err := ReadCSV(&buf)
	require.NoError(t, err)
	require.Equal(t, nav.Nodes, nav2.Nodes)
	require.ElementsMatch(t, nav.Adj[a], nav2.Adj[a])
	require.ElementsMatch(t, nav.Adj[b], nav2.Adj[b])
}

func TestValidateRejectsAsymmetricEdge(t *testing.T) {
	nav := New()
	nav.AddNode(geometry.Coord{X: 0, Y: 0})
	nav.AddNode(geometry.Coord{X: 1, Y: 0})
	nav.Adj[0] = append(nav.Adj[0], Edge{Target: 1, Cost: 1})
	// deliberately omit the reverse edge

	err := nav.Validate()
	require.Error(t, err)
}
