// Package navgraph builds and represents the sparse navigation graph (C2):
// a rectangular decomposition of the inflated grid into convex free-space
// regions, connected where two regions share a border segment.
//
// Grounded on backend/layer1/{NavMesh,NavMeshGenerator}.{hh,cc} in
// original_source/: greedy row-major rectangle growth, O(n^2) adjacency
// test, BFS-based orphan pruning with ID remapping.
package navgraph

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/elektrokombinacija/fleetctl/internal/geometry"
	"github.com/elektrokombinacija/fleetctl/internal/grid"
)

// NodeID identifies a node in the graph.
type NodeID int

// Node is a walkable region represented by its integer centroid.
type Node struct {
	ID       NodeID
	Centroid geometry.Coord
}

// Edge is a directed adjacency with a traversal cost.
type Edge struct {
	Target NodeID
	Cost   float64
}

// NavGraph is an undirected sparse graph of walkable regions.
type NavGraph struct {
	Nodes []Node
	Adj   [][]Edge // Adj[i] holds every edge out of node i
}

// New returns an empty graph.
func New() *NavGraph {
	return &NavGraph{}
}

// AddNode appends a node at the given centroid and returns its ID.
func (g *NavGraph) AddNode(centroid geometry.Coord) NodeID {
	id := NodeID(len(g.Nodes))
	g.Nodes = append(g.Nodes, Node{ID: id, Centroid: centroid})
	g.Adj = append(g.Adj, nil)
	return id
}

// AddEdge inserts a bidirectional edge between two existing nodes.
func (g *NavGraph) AddEdge(a, b NodeID, cost float64) {
	if int(a) < 0 || int(a) >= len(g.Adj) || int(b) < 0 || int(b) >= len(g.Adj) {
		return
	}
	g.Adj[a] = append(g.Adj[a], Edge{Target: b, Cost: cost})
	g.Adj[b] = append(g.Adj[b], Edge{Target: a, Cost: cost})
}

// Neighbors returns the edges leaving a node.
func (g *NavGraph) Neighbors(n NodeID) []Edge {
	if int(n) < 0 || int(n) >= len(g.Adj) {
		return nil
	}
	return g.Adj[n]
}

// NearestNode performs a linear scan over centroids and returns the
// closest node to coord. Ties prefer the smaller distance found first
// (i.e. the first node encountered at the minimum distance wins), matching
// NavMesh::GetNodeIdAt. Returns ok=false for an empty graph.
func (g *NavGraph) NearestNode(coord geometry.Coord) (NodeID, float64, bool) {
	if len(g.Nodes) == 0 {
		return 0, 0, false
	}
	best := g.Nodes[0].ID
	bestDist := coord.DistanceTo(g.Nodes[0].Centroid)
	for _, n := range g.Nodes[1:] {
		d := coord.DistanceTo(n.Centroid)
		if d < bestDist {
			bestDist = d
			best = n.ID
		}
	}
	return best, bestDist, true
}

// RemoveOrphans keeps only the nodes reachable from node 0 (BFS), remaps
// IDs contiguously in their original relative order, and rewrites every
// edge. Returns the number of nodes removed.
func (g *NavGraph) RemoveOrphans() int {
	if len(g.Nodes) == 0 {
		return 0
	}

	reachable := make([]bool, len(g.Nodes))
	queue := []NodeID{0}
	reachable[0] = true
	for len(queue) > 0 {
		cur := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		for _, e := range g.Adj[cur] {
			if !reachable[e.Target] {
				reachable[e.Target] = true
				queue = append(queue, e.Target)
			}
		}
	}

	oldToNew := make([]int, len(g.Nodes))
	newID := 0
	orphans := 0
	for i, ok := range reachable {
		if ok {
			oldToNew[i] = newID
			newID++
		} else {
			oldToNew[i] = -1
			orphans++
		}
	}
	if orphans == 0 {
		return 0
	}

	newNodes := make([]Node, 0, newID)
	for i, n := range g.Nodes {
		if oldToNew[i] != -1 {
			n.ID = NodeID(oldToNew[i])
			newNodes = append(newNodes, n)
		}
	}

	newAdj := make([][]Edge, newID)
	for i, edges := range g.Adj {
		if oldToNew[i] == -1 {
			continue
		}
		for _, e := range edges {
			if oldToNew[e.Target] == -1 {
				continue
			}
			newAdj[oldToNew[i]] = append(newAdj[oldToNew[i]], Edge{
				Target: NodeID(oldToNew[e.Target]),
				Cost:   e.Cost,
			})
		}
	}

	g.Nodes = newNodes
	g.Adj = newAdj
	return orphans
}

// WriteCSV exports the graph topology, one line per node:
// NodeID, CentroidX, CentroidY, target:cost|target:cost...
func (g *NavGraph) WriteCSV(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("# NavGraph export\n# NodeID, CentroidX, CentroidY, Neighbors(ID:Cost|ID:Cost...)\n"); err != nil {
		return err
	}
	for _, n := range g.Nodes {
		var neighbors []string
		for _, e := range g.Adj[n.ID] {
			neighbors = append(neighbors, fmt.Sprintf("%d:%g", e.Target, e.Cost))
		}
		if _, err := fmt.Fprintf(bw, "%d, %d, %d, %s\n", n.ID, n.Centroid.X, n.Centroid.Y, strings.Join(neighbors, "|")); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadCSV parses the format written by WriteCSV back into a graph.
func ReadCSV(r io.Reader) (*NavGraph, error) {
	g := New()
	scanner := bufio.NewScanner(r)

	type pending struct {
		from    NodeID
		targets []string
	}
	var rows []pending

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ",", 4)
		if len(parts) < 3 {
			return nil, fmt.Errorf("navgraph: malformed csv row %q", line)
		}
		id, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("navgraph: bad node id %q: %w", parts[0], err)
		}
		x, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("navgraph: bad centroid x %q: %w", parts[1], err)
		}
		y, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			return nil, fmt.Errorf("navgraph: bad centroid y %q: %w", parts[2], err)
		}
		got := g.AddNode(geometry.Coord{X: x, Y: y})
		if int(got) != id {
			return nil, fmt.Errorf("navgraph: csv node ids must be contiguous from 0, got %d at position %d", id, got)
		}
		var neighborField string
		if len(parts) == 4 {
			neighborField = strings.TrimSpace(parts[3])
		}
		var targets []string
		if neighborField != "" {
			targets = strings.Split(neighborField, "|")
		}
		rows = append(rows, pending{from: got, targets: targets})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	// Edges were written in both directions already; re-adding them via
	// AddEdge would duplicate each undirected edge, so add directed-only.
	for _, row := range rows {
		for _, t := range row.targets {
			tp := strings.SplitN(t, ":", 2)
			if len(tp) != 2 {
				continue
			}
			target, err := strconv.Atoi(tp[0])
			if err != nil {
				continue
			}
			cost, err := strconv.ParseFloat(tp[1], 64)
			if err != nil {
				continue
			}
			g.Adj[row.from] = append(g.Adj[row.from], Edge{Target: NodeID(target), Cost: cost})
		}
	}
	return g, nil
}

// rectangle is an internal working region used by Build.
type rectangle struct {
	x, y, w, h int
}

func (r rectangle) centroid() geometry.Coord {
	return geometry.Coord{X: r.x + r.w/2, Y: r.y + r.h/2}
}

// rectanglesAdjacent reports whether two rectangles share a positive-length
// border segment, checking the horizontal and vertical axes independently
// (ported from NavMeshGenerator.cc's RectangleRegion::IsNeighbor).
func rectanglesAdjacent(a, b rectangle) bool {
	xOverlap := a.x < b.x+b.w && a.x+a.w > b.x
	touchesVertical := a.y+a.h == b.y || a.y == b.y+b.h
	if xOverlap && touchesVertical {
		return true
	}
	yOverlap := a.y < b.y+b.h && a.y+a.h > b.y
	touchesHorizontal := a.x+a.w == b.x || a.x == b.x+b.w
	return yOverlap && touchesHorizontal
}

// Build performs the rectangular decomposition described in §4.2: scan
// row-major, grow each unconsumed free cell into a maximal rectangle
// (expand width until an obstacle, then expand height while the whole row
// below remains free), emit one node per rectangle at its centroid, link
// adjacent rectangles with a Euclidean-distance edge, then prune orphans.
func Build(g *grid.Grid) *NavGraph {
	w, h := g.Width(), g.Height()
	remaining := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if g.IsAccessibleSafe(geometry.Coord{X: x, Y: y}) {
				remaining[y*w+x] = true
			}
		}
	}

	var regions []rectangle
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !remaining[y*w+x] {
				continue
			}
			width := 0
			for x+width < w && remaining[y*w+(x+width)] {
				width++
			}
			height := 1
			for y+height < h {
				rowFree := true
				for k := 0; k < width; k++ {
					if !remaining[(y+height)*w+(x+k)] {
						rowFree = false
						break
					}
				}
				if !rowFree {
					break
				}
				height++
			}
			regions = append(regions, rectangle{x: x, y: y, w: width, h: height})
			for dy := 0; dy < height; dy++ {
				for dx := 0; dx < width; dx++ {
					remaining[(y+dy)*w+(x+dx)] = false
				}
			}
		}
	}

	nav := New()
	for _, r := range regions {
		nav.AddNode(r.centroid())
	}
	for i := 0; i < len(regions); i++ {
		for j := i + 1; j < len(regions); j++ {
			if rectanglesAdjacent(regions[i], regions[j]) {
				cost := regions[i].centroid().DistanceTo(regions[j].centroid())
				nav.AddEdge(NodeID(i), NodeID(j), cost)
			}
		}
	}

	nav.RemoveOrphans()
	return nav
}

// GraphError signals the grid produced no usable navigation graph.
type GraphError struct {
	Msg string
}

func (e *GraphError) Error() string { return "navgraph: " + e.Msg }

// Validate checks the post-build invariants from §8 (2,3): every edge is
// bidirectional with equal positive cost, and node 0 reaches every node.
func (g *NavGraph) Validate() error {
	if len(g.Nodes) == 0 {
		return &GraphError{Msg: "empty graph, no connected component"}
	}
	for u, edges := range g.Adj {
		for _, e := range edges {
			if int(e.Target) == u {
				return &GraphError{Msg: fmt.Sprintf("self-loop at node %d", u)}
			}
			if e.Cost <= 0 {
				return &GraphError{Msg: fmt.Sprintf("non-positive edge cost %g from %d to %d", e.Cost, u, e.Target)}
			}
			if !hasReverse(g, NodeID(u), e) {
				return &GraphError{Msg: fmt.Sprintf("edge %d->%d has no reverse", u, e.Target)}
			}
		}
	}
	reachable := bfsReachable(g)
	for i := range g.Nodes {
		if !reachable[i] {
			return &GraphError{Msg: fmt.Sprintf("node %d unreachable from node 0", i)}
		}
	}
	return nil
}

func hasReverse(g *NavGraph, from NodeID, e Edge) bool {
	for _, back := range g.Adj[e.Target] {
		if back.Target == from && back.Cost == e.Cost {
			return true
		}
	}
	return false
}

func bfsReachable(g *NavGraph) []bool {
	reachable := make([]bool, len(g.Nodes))
	if len(reachable) == 0 {
		return reachable
	}
	queue := []NodeID{0}
	reachable[0] = true
	for len(queue) > 0 {
		cur := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		for _, e := range g.Adj[cur] {
			if !reachable[e.Target] {
				reachable[e.Target] = true
				queue = append(queue, e.Target)
			}
		}
	}
	return reachable
}
