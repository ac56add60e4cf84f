// Package costmatrix implements the all-pairs shortest-path cache (C4) used
// by the VRP solvers to score candidate routes without re-running Dijkstra
// on every evaluation.
//
// Grounded on internal/algo/astar.go in the teacher for the
// container/heap-based priority queue idiom, applied here to plain
// (non-space-time) Dijkstra over navgraph.NavGraph.
package costmatrix

import (
	"container/heap"
	"math"

	"github.com/elektrokombinacija/fleetctl/internal/navgraph"
)

// Inf is the cost reported between two nodes with no connecting path.
const Inf = math.MaxFloat64

// Matrix caches shortest-path costs between a fixed set of "interesting"
// nodes (POI-resolved nodes, robot start positions). Entries not covered by
// Precompute are filled lazily by AddRow.
type Matrix struct {
	nav  *navgraph.NavGraph
	rows map[navgraph.NodeID]map[navgraph.NodeID]float64
}

// New creates an empty matrix bound to a graph.
func New(nav *navgraph.NavGraph) *Matrix {
	return &Matrix{nav: nav, rows: make(map[navgraph.NodeID]map[navgraph.NodeID]float64)}
}

// Precompute runs single-source Dijkstra from every node in ids and caches
// the resulting row. Already-cached nodes are skipped.
func (m *Matrix) Precompute(ids []navgraph.NodeID) {
	for _, id := range ids {
		m.AddRow(id)
	}
}

// AddRow computes (if not already cached) and returns the shortest-path
// costs from source to every node in the graph.
func (m *Matrix) AddRow(source navgraph.NodeID) map[navgraph.NodeID]float64 {
	if row, ok := m.rows[source]; ok {
		return row
	}
	row := dijkstra(m.nav, source)
	m.rows[source] = row
	return row
}

// Get returns the cached shortest-path cost from a to b, computing the row
// for a on demand if it is missing. Returns Inf if b is unreachable from a.
func (m *Matrix) Get(a, b navgraph.NodeID) float64 {
	row, ok := m.rows[a]
	if !ok {
		row = m.AddRow(a)
	}
	if c, ok := row[b]; ok {
		return c
	}
	return Inf
}

// Rows reports how many source nodes currently have a cached row, for tests
// and diagnostics.
func (m *Matrix) Rows() int { return len(m.rows) }

// NodeWithDist pairs a node with a tentative distance, ordered by distance
// then by node id (matching the teacher's deterministic tie-break in
// astarNode/astarHeap).
type NodeWithDist struct {
	Node navgraph.NodeID
	Dist float64
}

type nodeHeap []NodeWithDist

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].Dist != h[j].Dist {
		return h[i].Dist < h[j].Dist
	}
	return h[i].Node < h[j].Node
}
func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x interface{}) {
	*h = append(*h, x.(NodeWithDist))
}
func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func dijkstra(nav *navgraph.NavGraph, source navgraph.NodeID) map[navgraph.NodeID]float64 {
	dist := make(map[navgraph.NodeID]float64, len(nav.Nodes))
	visited := make(map[navgraph.NodeID]bool, len(nav.Nodes))
	dist[source] = 0

	h := &nodeHeap{{Node: source, Dist: 0}}
	heap.Init(h)

	for h.Len() > 0 {
		cur := heap.Pop(h).(NodeWithDist)
		if visited[cur.Node] {
			continue
		}
		visited[cur.Node] = true

		for _, e := range nav.Neighbors(cur.Node) {
			alt := cur.Dist + e.Cost
			if existing, ok := dist[e.Target]; !ok || alt < existing {
				dist[e.Target] = alt
				heap.Push(h, NodeWithDist{Node: e.Target, Dist: alt})
			}
		}
	}
	return dist
}
