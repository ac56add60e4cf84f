package avoidance

import (
	"testing"

	"github.com/elektrokombinacija/fleetctl/internal/geometry"
	"github.com/stretchr/testify/require"
)

func TestFilterNoNeighborsPassesThroughClamped(t *testing.T) {
	p := DefaultParams()
	out := Filter(p, geometry.Vec2{}, 3, geometry.Vec2{X: 100, Y: 0}, nil)
	require.InDelta(t, p.MaxSpeed, out.Length(), 1e-6)
}

func TestFilterStopsWithinStopDistance(t *testing.T) {
	p := DefaultParams()
	me := geometry.Vec2{X: 0, Y: 0}
	neighbor := Neighbor{Position: geometry.Vec2{X: 5, Y: 0}, Radius: 3}
	// surface distance = 5 - 3(me) - 3(neighbor) = -1 < stop_distance
	out := Filter(p, me, 3, geometry.Vec2{X: 10, Y: 0}, []Neighbor{neighbor})
	require.InDelta(t, computeRepulsionX(p, me, neighbor), out.X, 1e-9)
}

// computeRepulsionX isolates the repulsion-only contribution for the
// stop-distance test above, since Filter zeroes vPref but still adds
// repulsion afterward.
func computeRepulsionX(p Params, me geometry.Vec2, n Neighbor) float64 {
	diff := me.Sub(n.Position)
	dist := diff.Length()
	weight := 1.0 / (dist * dist)
	rep := diff.Normalized().Scale(weight).Scale(p.Responsiveness)
	return rep.X
}

func TestFilterSlowsLinearlyInSlowdownBand(t *testing.T) {
	p := DefaultParams()
	p.Responsiveness = 0 // isolate the slowdown scaling from repulsion
	me := geometry.Vec2{X: 0, Y: 0}
	// surface distance exactly midway between stop and slowdown
	mid := (p.StopDistance + p.SlowdownDistance) / 2
	neighbor := Neighbor{Position: geometry.Vec2{X: mid, Y: 0}}
	out := Filter(p, me, 0, geometry.Vec2{X: 10, Y: 0}, []Neighbor{neighbor})
	require.InDelta(t, 5.0, out.X, 0.01)
}

func TestFilterClampsToMaxSpeed(t *testing.T) {
	p := DefaultParams()
	out := Filter(p, geometry.Vec2{}, 0, geometry.Vec2{X: 1000, Y: 0}, nil)
	require.InDelta(t, p.MaxSpeed, out.Length(), 1e-6)
}
