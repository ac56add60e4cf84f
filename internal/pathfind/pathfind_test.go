package pathfind

import (
	"strings"
	"testing"

	"github.com/elektrokombinacija/fleetctl/internal/geometry"
	"github.com/elektrokombinacija/fleetctl/internal/grid"
	"github.com/elektrokombinacija/fleetctl/internal/navgraph"
	"github.com/stretchr/testify/require"
)

func openGrid(t *testing.T, size int) *grid.Grid {
	t.Helper()
	rows := make([]string, size)
	for y := 0; y < size; y++ {
		rows[y] = strings.Repeat(".", size)
	}
	g, err := grid.Load(strings.NewReader(
		"" + itoa(size) + " " + itoa(size) + "\n" + strings.Join(rows, "\n") + "\n"))
	require.NoError(t, err)
	g.Inflate(geometry.Decimeters, 0.0)
	return g
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestFindStraightLineOnOpenGrid(t *testing.T) {
	g := openGrid(t, 20)
	res := Find(g, geometry.Coord{X: 0, Y: 0}, geometry.Coord{X: 15, Y: 0}, 5)

	require.True(t, res.Success)
	require.Equal(t, geometry.Coord{X: 0, Y: 0}, res.Path[0])
	require.Equal(t, geometry.Coord{X: 15, Y: 0}, res.Path[len(res.Path)-1])
	require.InDelta(t, 15.0, res.Length, 0.5)
}

func TestFindFailsWhenStartBlocked(t *testing.T) {
	g := openGrid(t, 10)
	res := Find(g, geometry.Coord{X: -1, Y: -1}, geometry.Coord{X: 5, Y: 5}, 5)
	require.False(t, res.Success)
}

func TestFindAnyAngleShortcutsAroundWall(t *testing.T) {
	size := 20
	rows := make([]string, size)
	for y := 0; y < size; y++ {
		row := []byte(strings.Repeat(".", size))
		if y >= 0 && y < 12 {
			row[10] = '#'
		}
		rows[y] = string(row)
	}
	g, err := grid.Load(strings.NewReader(itoa(size) + " " + itoa(size) + "\n" + strings.Join(rows, "\n") + "\n"))
	require.NoError(t, err)
	g.Inflate(geometry.Decimeters, 0.0)

	res := Find(g, geometry.Coord{X: 5, Y: 0}, geometry.Coord{X: 15, Y: 0}, 5)
	require.True(t, res.Success)
	// must detour below the wall and back, so strictly longer than the
	// straight-line distance of 10.
	require.Greater(t, res.Length, 10.0)
}

// TestFindSatisfiesE4LineOfSightShortcutBudget reproduces E4 directly:
// 20x20 empty inflated grid, start (1,1) goal (18,18). Neither coordinate
// sits on the step-5 lattice from the other, so this also exercises the
// within-one-step goal relaxation on a realistic any-angle shortcut case.
func TestFindSatisfiesE4LineOfSightShortcutBudget(t *testing.T) {
	g := openGrid(t, 20)
	start, goal := geometry.Coord{X: 1, Y: 1}, geometry.Coord{X: 18, Y: 18}
	res := Find(g, start, goal, 5)

	require.True(t, res.Success)
	require.LessOrEqual(t, res.Length, start.DistanceTo(goal)*1.02)
	require.LessOrEqual(t, res.NodesExpanded, 200)
}

// TestFindConnectsAdjacentNavGraphCentroids reproduces the decomposition in
// spec §8's E1 scenario (10x10 grid, single obstacle at (5,5)): its
// rectangle centroids are not multiples of the step size apart (e.g. (5,2)
// to (2,7) has a diff of (-3,5)), matching what a live RequestSync call
// does between two navgraph nodes. Find must still connect them.
func TestFindConnectsAdjacentNavGraphCentroids(t *testing.T) {
	size := 10
	rows := make([]string, size)
	for y := 0; y < size; y++ {
		row := []byte(strings.Repeat(".", size))
		if y == 5 {
			row[5] = '#'
		}
		rows[y] = string(row)
	}
	g, err := grid.Load(strings.NewReader(itoa(size) + " " + itoa(size) + "\n" + strings.Join(rows, "\n") + "\n"))
	require.NoError(t, err)
	g.Inflate(geometry.Decimeters, 0.0)

	nav := navgraph.Build(g)
	require.GreaterOrEqual(t, len(nav.Nodes), 2)

	// every adjacent pair in the decomposition must be directly
	// path-findable, regardless of whether their centroids happen to land
	// on the same step lattice.
	tested := 0
	for _, n := range nav.Nodes {
		for _, e := range nav.Adj[n.ID] {
			target := nav.Nodes[e.Target].Centroid
			res := Find(g, n.Centroid, target, 5)
			require.Truef(t, res.Success, "expected a path from %v to %v", n.Centroid, target)
			tested++
		}
	}
	require.Greater(t, tested, 0, "decomposition produced no adjacency to exercise")
}

func TestLineOfSightClearOnOpenGrid(t *testing.T) {
	g := openGrid(t, 10)
	require.True(t, lineOfSight(g, geometry.Coord{X: 0, Y: 0}, geometry.Coord{X: 9, Y: 9}))
}

func TestLineOfSightBlockedByObstacle(t *testing.T) {
	size := 10
	rows := make([]string, size)
	for y := 0; y < size; y++ {
		row := []byte(strings.Repeat(".", size))
		row[5] = '#'
		rows[y] = string(row)
	}
	g, err := grid.Load(strings.NewReader(itoa(size) + " " + itoa(size) + "\n" + strings.Join(rows, "\n") + "\n"))
	require.NoError(t, err)
	g.Inflate(geometry.Decimeters, 0.0)

	require.False(t, lineOfSight(g, geometry.Coord{X: 0, Y: 0}, geometry.Coord{X: 9, Y: 0}))
}
