package physics

import (
	"testing"
	"time"

	"github.com/elektrokombinacija/fleetctl/internal/avoidance"
	"github.com/elektrokombinacija/fleetctl/internal/geometry"
	"github.com/stretchr/testify/require"
)

// recordingBody counts how many neighbors it observed on its last update,
// and moves at a constant velocity so tests can assert positions.
type recordingBody struct {
	pos          geometry.Vec2
	vel          geometry.Vec2
	lastNeighbors int
}

func (b *recordingBody) Position() geometry.Vec2 { return b.pos }
func (b *recordingBody) Velocity() geometry.Vec2 { return b.vel }
func (b *recordingBody) Update(dt float64, neighbors []avoidance.Neighbor) {
	b.lastNeighbors = len(neighbors)
	b.pos = b.pos.Add(b.vel.Scale(dt))
}

func TestRunSingleTickDiscoversNeighborsWithinRadius(t *testing.T) {
	l := New(10)
	a := &recordingBody{pos: geometry.Vec2{X: 0, Y: 0}}
	b := &recordingBody{pos: geometry.Vec2{X: 5, Y: 0}}
	c := &recordingBody{pos: geometry.Vec2{X: 100, Y: 0}}
	l.AddBody("a", a, 1)
	l.AddBody("b", b, 1)
	l.AddBody("c", c, 1)

	l.RunSingleTick()

	require.Equal(t, 1, a.lastNeighbors) // sees b, not c
	require.Equal(t, 1, b.lastNeighbors) // sees a, not c
	require.Equal(t, 0, c.lastNeighbors)
}

func TestRunSingleTickUsesSameSnapshotForAllBodies(t *testing.T) {
	// Both bodies move toward each other at high speed; if neighbor
	// discovery used post-update positions, a's view of b (and vice versa)
	// would differ from what a pre-tick snapshot would show.
	l := New(15)
	a := &recordingBody{pos: geometry.Vec2{X: 0, Y: 0}, vel: geometry.Vec2{X: 1000, Y: 0}}
	b := &recordingBody{pos: geometry.Vec2{X: 10, Y: 0}, vel: geometry.Vec2{X: -1000, Y: 0}}
	l.AddBody("a", a, 1)
	l.AddBody("b", b, 1)

	l.RunSingleTick()

	require.Equal(t, 1, a.lastNeighbors)
	require.Equal(t, 1, b.lastNeighbors)
}

func TestRunTicksAccumulatesStats(t *testing.T) {
	l := New(10)
	l.AddBody("a", &recordingBody{}, 1)
	l.RunTicks(5)

	stats := l.Stats()
	require.Equal(t, 5, stats.TickCount)
	require.GreaterOrEqual(t, stats.TotalTime, time.Duration(0))
}

func TestOnTickFires(t *testing.T) {
	l := New(10)
	l.AddBody("a", &recordingBody{}, 1)

	var lastIndex int
	calls := 0
	l.OnTick(func(tickIndex int, dt time.Duration) {
		lastIndex = tickIndex
		calls++
		require.Equal(t, DefaultDt, dt)
	})

	l.RunTicks(3)
	require.Equal(t, 3, calls)
	require.Equal(t, 2, lastIndex)
}

func TestRunForDurationRoundsUpToWholeTicks(t *testing.T) {
	l := New(10)
	l.AddBody("a", &recordingBody{}, 1)
	l.RunForDuration(120 * time.Millisecond) // 120ms / 50ms = 2.4 -> 3 ticks

	require.Equal(t, 3, l.Stats().TickCount)
}
