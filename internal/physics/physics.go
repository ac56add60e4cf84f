// Package physics implements the fixed-tick simulation loop (C9) that
// drives every registered RobotDriver, computing neighbor lists atomically
// with respect to driver updates.
//
// Grounded on internal/sim/simulator.go in the teacher: a
// sync.Mutex-guarded struct with SimulationConfig/SimulationMetrics fields
// and a context-cancellable run loop, adapted here to a pull-based
// run_ticks/run_for_duration API instead of a background goroutine.
package physics

import (
	"time"

	"github.com/elektrokombinacija/fleetctl/internal/avoidance"
	"github.com/elektrokombinacija/fleetctl/internal/geometry"
)

// Body is anything the physics loop can tick: a position/velocity/radius
// snapshot for neighbor discovery, plus an Update hook. driver.Driver
// satisfies this interface.
type Body interface {
	Position() geometry.Vec2
	Velocity() geometry.Vec2
	Update(dt float64, neighbors []avoidance.Neighbor)
}

// Stats accumulates loop-level statistics across ticks.
type Stats struct {
	TickCount   int
	TotalTime   time.Duration
	MaxTickTime time.Duration
}

// AvgTickTime returns the mean wall-clock duration per tick.
func (s Stats) AvgTickTime() time.Duration {
	if s.TickCount == 0 {
		return 0
	}
	return s.TotalTime / time.Duration(s.TickCount)
}

// OnTickFunc is invoked once per tick, after the driver updates complete.
type OnTickFunc func(tickIndex int, dt time.Duration)

// Loop owns a set of bodies and a fixed dt (default 50ms, §4.9).
type Loop struct {
	Dt             time.Duration
	NeighborRadius float64

	bodies []namedBody
	onTick OnTickFunc
	stats  Stats
}

type namedBody struct {
	id   string
	body Body
	radius float64
}

// DefaultDt is §4.9's stated default tick period.
const DefaultDt = 50 * time.Millisecond

// New creates a loop with the default tick period and a neighbor radius.
func New(neighborRadius float64) *Loop {
	return &Loop{Dt: DefaultDt, NeighborRadius: neighborRadius}
}

// AddBody registers a driver with the loop, along with its collision
// radius used for neighbor discovery.
func (l *Loop) AddBody(id string, body Body, radius float64) {
	l.bodies = append(l.bodies, namedBody{id: id, body: body, radius: radius})
}

// OnTick registers the per-tick callback.
func (l *Loop) OnTick(fn OnTickFunc) { l.onTick = fn }

// Stats returns a snapshot of the accumulated loop statistics.
func (l *Loop) Stats() Stats { return l.stats }

// RunSingleTick executes exactly one tick: builds every body's neighbor
// list from the positions observed at the start of the tick (so no driver
// sees another's post-update state within the same tick), then updates
// every body, then fires on_tick.
func (l *Loop) RunSingleTick() {
	begin := time.Now()
	dtSeconds := l.Dt.Seconds()

	snapshot := make([]struct {
		pos geometry.Vec2
		vel geometry.Vec2
	}, len(l.bodies))
	for i, b := range l.bodies {
		snapshot[i].pos = b.body.Position()
		snapshot[i].vel = b.body.Velocity()
	}

	for i, b := range l.bodies {
		var neighbors []avoidance.Neighbor
		for j, other := range l.bodies {
			if i == j {
				continue
			}
			d := snapshot[i].pos.Sub(snapshot[j].pos).Length()
			if d <= l.NeighborRadius {
				neighbors = append(neighbors, avoidance.Neighbor{
					Position: snapshot[j].pos,
					Velocity: snapshot[j].vel,
					Radius:   other.radius,
				})
			}
		}
		b.body.Update(dtSeconds, neighbors)
	}

	elapsed := time.Since(begin)
	l.stats.TickCount++
	l.stats.TotalTime += elapsed
	if elapsed > l.stats.MaxTickTime {
		l.stats.MaxTickTime = elapsed
	}

	if l.onTick != nil {
		l.onTick(l.stats.TickCount-1, l.Dt)
	}
}

// RunTicks executes n ticks in sequence.
func (l *Loop) RunTicks(n int) {
	for i := 0; i < n; i++ {
		l.RunSingleTick()
	}
}

// RunForDuration executes ceil(duration/Dt) ticks, enough to cover the
// requested simulated duration.
func (l *Loop) RunForDuration(duration time.Duration) {
	if l.Dt <= 0 {
		return
	}
	n := int((duration + l.Dt - 1) / l.Dt)
	l.RunTicks(n)
}
