// Package pathfind implements the any-angle Theta* pathfinder (C5): a
// standard A* search over the inflated grid whose neighbor relaxation step
// reassigns parents across line-of-sight shortcuts.
//
// Grounded on internal/algo/astar.go in the teacher for the heap.Interface
// open-set idiom (here adapted to a pure spatial search, no time dimension)
// and on original_source/backend/layer1 for the line-of-sight/Bresenham
// rule and any-angle parent reassignment.
package pathfind

import (
	"container/heap"
	"fmt"
	"time"

	"github.com/elektrokombinacija/fleetctl/internal/geometry"
	"github.com/elektrokombinacija/fleetctl/internal/grid"
)

// Error signals the open set emptied before reaching the goal.
type Error struct {
	Start, Goal geometry.Coord
}

func (e *Error) Error() string {
	return fmt.Sprintf("pathfind: no path from %v to %v", e.Start, e.Goal)
}

// Result is the outcome of a single Find call.
type Result struct {
	Path          []geometry.Coord
	Success       bool
	Length        float64
	NodesExpanded int
	ComputeTime   time.Duration
}

// defaultStep is the grid-step size in pixels between candidate waypoints
// when Find is called with step <= 0.
const defaultStep = 5

type node struct {
	pos    geometry.Coord
	g      float64 // cost from start
	f      float64 // g + heuristic
	parent geometry.Coord
	hasParent bool
}

type openHeap struct {
	items []*node
}

func newOpenHeap() *openHeap {
	return &openHeap{}
}

func (h openHeap) Len() int { return len(h.items) }
func (h openHeap) Less(i, j int) bool {
	if h.items[i].f != h.items[j].f {
		return h.items[i].f < h.items[j].f
	}
	// deterministic tie-break, matching the teacher's astarHeap ordering
	if h.items[i].pos.Y != h.items[j].pos.Y {
		return h.items[i].pos.Y < h.items[j].pos.Y
	}
	return h.items[i].pos.X < h.items[j].pos.X
}
func (h openHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *openHeap) Push(x interface{}) {
	h.items = append(h.items, x.(*node))
}
func (h *openHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	return item
}

var neighborOffsets = [8]geometry.Coord{
	{X: 1, Y: 0}, {X: -1, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: -1},
	{X: 1, Y: 1}, {X: 1, Y: -1}, {X: -1, Y: 1}, {X: -1, Y: -1},
}

// Find runs Theta* from start to goal at the given step size (pixels).
// step <= 0 uses the default 5px step.
func Find(g *grid.Grid, start, goal geometry.Coord, step int) Result {
	begin := time.Now()
	if step <= 0 {
		step = defaultStep
	}

	if !g.IsAccessibleSafe(start) || !g.IsAccessibleSafe(goal) {
		return Result{Success: false, ComputeTime: time.Since(begin)}
	}

	open := newOpenHeap()
	closed := make(map[geometry.Coord]bool)
	best := make(map[geometry.Coord]*node)

	startNode := &node{pos: start, g: 0, f: start.DistanceTo(goal)}
	heap.Push(open, startNode)
	best[start] = startNode

	expanded := 0
	var goalNode *node

	for open.Len() > 0 {
		cur := heap.Pop(open).(*node)
		if closed[cur.pos] {
			continue
		}
		closed[cur.pos] = true
		expanded++

		if cur.pos == goal {
			goalNode = cur
			break
		}

		// The lattice of candidate nodes reachable from start is every
		// point offset by an integer multiple of step in each axis, so an
		// arbitrary goal (e.g. a navgraph rectangle centroid) will usually
		// never land exactly on it. Finish as soon as an expanded node is
		// within one step of the literal goal with clear line of sight,
		// closing the last segment directly to it.
		if d := cur.pos.DistanceTo(goal); d <= float64(step) && lineOfSight(g, cur.pos, goal) {
			parentPos := cur.pos
			gCost := cur.g + d
			if cur.hasParent && lineOfSight(g, cur.parent, goal) {
				if candidateG := costToParent(best, cur.parent) + cur.parent.DistanceTo(goal); candidateG < gCost {
					gCost = candidateG
					parentPos = cur.parent
				}
			}
			goalNode = &node{pos: goal, g: gCost, f: gCost, parent: parentPos, hasParent: true}
			best[goal] = goalNode
			break
		}

		for _, off := range neighborOffsets {
			np := geometry.Coord{X: cur.pos.X + off.X*step, Y: cur.pos.Y + off.Y*step}
			if closed[np] || !g.IsAccessibleSafe(np) {
				continue
			}
			if !lineOfSight(g, cur.pos, np) {
				continue
			}

			// Any-angle relaxation: prefer linking np directly to cur's
			// parent when that segment has clear line of sight.
			parentPos := cur.pos
			gCost := cur.g + cur.pos.DistanceTo(np)
			if cur.hasParent && lineOfSight(g, cur.parent, np) {
				candidateG := costToParent(best, cur.parent) + cur.parent.DistanceTo(np)
				if candidateG < gCost {
					gCost = candidateG
					parentPos = cur.parent
				}
			}

			existing, seen := best[np]
			if !seen || gCost < existing.g {
				n := &node{
					pos:       np,
					g:         gCost,
					f:         gCost + np.DistanceTo(goal),
					parent:    parentPos,
					hasParent: true,
				}
				best[np] = n
				heap.Push(open, n)
			}
		}
	}

	result := Result{NodesExpanded: expanded}
	if goalNode == nil {
		result.Success = false
		result.ComputeTime = time.Since(begin)
		return result
	}

	path := reconstruct(best, goalNode)
	path = smooth(g, path)
	result.Path = path
	result.Success = true
	result.Length = pathLength(path)
	result.ComputeTime = time.Since(begin)
	return result
}

func costToParent(best map[geometry.Coord]*node, pos geometry.Coord) float64 {
	if n, ok := best[pos]; ok {
		return n.g
	}
	return 0
}

func reconstruct(best map[geometry.Coord]*node, goal *node) []geometry.Coord {
	var rev []geometry.Coord
	cur := goal
	for {
		rev = append(rev, cur.pos)
		if !cur.hasParent || cur.parent == cur.pos {
			break
		}
		parent, ok := best[cur.parent]
		if !ok {
			break
		}
		if parent.pos == cur.pos {
			break
		}
		cur = parent
	}
	path := make([]geometry.Coord, len(rev))
	for i, c := range rev {
		path[len(rev)-1-i] = c
	}
	return path
}

// smooth removes waypoints that are redundant given direct line of sight
// between their neighbors (§4.5 post-process step).
func smooth(g *grid.Grid, path []geometry.Coord) []geometry.Coord {
	if len(path) < 3 {
		return path
	}
	out := []geometry.Coord{path[0]}
	i := 0
	for i < len(path)-1 {
		j := i + 1
		for j+1 < len(path) && lineOfSight(g, path[i], path[j+1]) {
			j++
		}
		out = append(out, path[j])
		i = j
	}
	return out
}

func pathLength(path []geometry.Coord) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += path[i-1].DistanceTo(path[i])
	}
	return total
}

// lineOfSight rasterizes the segment a->b with Bresenham's algorithm and
// reports whether every traversed cell is accessible in the inflated grid.
func lineOfSight(g *grid.Grid, a, b geometry.Coord) bool {
	x0, y0 := a.X, a.Y
	x1, y1 := b.X, b.Y

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := sign(x1 - x0)
	sy := sign(y1 - y0)
	err := dx + dy

	x, y := x0, y0
	for {
		if !g.IsAccessibleSafe(geometry.Coord{X: x, Y: y}) {
			return false
		}
		if x == x1 && y == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
	return true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
