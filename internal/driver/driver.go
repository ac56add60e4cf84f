// Package driver implements the per-robot motion state machine (C8):
// IDLE/COMPUTING_PATH/MOVING/STUCK/COLLISION_WAIT, driven by fixed-Δt ticks
// from the physics loop and serviced by the path service for goal
// computation.
//
// Grounded on internal/core/robot.go in the teacher (battery/state field
// layout, value-based position updates) and §4.8.
package driver

import (
	"fmt"

	"github.com/elektrokombinacija/fleetctl/internal/avoidance"
	"github.com/elektrokombinacija/fleetctl/internal/geometry"
	"github.com/elektrokombinacija/fleetctl/internal/navgraph"
	"github.com/elektrokombinacija/fleetctl/internal/pathservice"
)

// State is a RobotDriver lifecycle state.
type State int

const (
	Idle State = iota
	ComputingPath
	Moving
	Stuck
	CollisionWait
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case ComputingPath:
		return "COMPUTING_PATH"
	case Moving:
		return "MOVING"
	case Stuck:
		return "STUCK"
	case CollisionWait:
		return "COLLISION_WAIT"
	default:
		return "UNKNOWN"
	}
}

// Config holds the per-driver tunables; defaults are the §4.8
// decimeter-resolution values.
type Config struct {
	MaxSpeed         float64
	Accel            float64
	WaypointThreshold float64
	GoalThreshold    float64
	Radius           float64
	Avoidance        avoidance.Params
}

// DefaultConfig returns §4.8's stated decimeter-resolution defaults.
func DefaultConfig() Config {
	return Config{
		MaxSpeed:          16,
		Accel:             8,
		WaypointThreshold: 5,
		GoalThreshold:     3,
		Radius:            3,
		Avoidance:         avoidance.DefaultParams(),
	}
}

// GoalError is returned by SetGoal for an unknown node.
type GoalError struct {
	Node navgraph.NodeID
}

func (e *GoalError) Error() string { return fmt.Sprintf("driver: unknown goal node %d", e.Node) }

// ArrivalCallback fires when a driver reaches its goal.
type ArrivalCallback func(robotID string, goalNode navgraph.NodeID)

// Driver is one robot's motion state machine.
type Driver struct {
	RobotID string
	Config  Config

	nav *navgraph.NavGraph
	svc *pathservice.Service

	state    State
	pos      geometry.Vec2
	vel      geometry.Vec2
	goalNode navgraph.NodeID
	hasGoal  bool
	path     []geometry.Coord
	pathIdx  int
	onArrive ArrivalCallback
}

// New creates a driver at the given starting position.
func New(robotID string, nav *navgraph.NavGraph, svc *pathservice.Service, start geometry.Vec2, cfg Config) *Driver {
	return &Driver{
		RobotID: robotID,
		Config:  cfg,
		nav:     nav,
		svc:     svc,
		state:   Idle,
		pos:     start,
	}
}

// State returns the current lifecycle state.
func (d *Driver) State() State { return d.state }

// Position returns the driver's current continuous position.
func (d *Driver) Position() geometry.Vec2 { return d.pos }

// Velocity returns the driver's current velocity.
func (d *Driver) Velocity() geometry.Vec2 { return d.vel }

// OnArrive registers the callback fired when the driver reaches its goal.
func (d *Driver) OnArrive(cb ArrivalCallback) { d.onArrive = cb }

// SetGoal synchronously requests a path to the target node's centroid and
// transitions COMPUTING_PATH -> MOVING on success or -> STUCK on failure.
func (d *Driver) SetGoal(node navgraph.NodeID) error {
	if int(node) < 0 || int(node) >= len(d.nav.Nodes) {
		return &GoalError{Node: node}
	}

	d.state = ComputingPath
	d.goalNode = node
	d.hasGoal = true

	target := d.nav.Nodes[node].Centroid
	result := d.svc.RequestSync(d.pos.Coord(), target, 0)
	if !result.Success {
		d.state = Stuck
		return nil
	}

	d.path = result.Path
	d.pathIdx = 0
	d.state = Moving
	return nil
}

// CancelGoal returns the driver to IDLE and clears any in-flight path.
func (d *Driver) CancelGoal() {
	d.state = Idle
	d.hasGoal = false
	d.path = nil
	d.pathIdx = 0
	d.vel = geometry.Vec2{}
}

// Update advances the state machine by one tick of duration dt, filtering
// the preferred velocity through the avoidance layer against neighbors and
// integrating position with bounded acceleration (§4.8/§4.9).
func (d *Driver) Update(dt float64, neighbors []avoidance.Neighbor) {
	switch d.state {
	case Idle, Stuck, CollisionWait:
		d.vel = geometry.Vec2{}
		return
	case Moving:
		d.updateMoving(dt, neighbors)
	}
}

func (d *Driver) updateMoving(dt float64, neighbors []avoidance.Neighbor) {
	if d.pathIdx >= len(d.path) {
		d.arrive()
		return
	}

	target := geometry.FromCoord(d.path[d.pathIdx])
	toTarget := target.Sub(d.pos)
	dist := toTarget.Length()

	isFinal := d.pathIdx == len(d.path)-1
	threshold := d.Config.WaypointThreshold
	if isFinal {
		threshold = d.Config.GoalThreshold
	}
	if dist < threshold {
		if isFinal {
			d.arrive()
			return
		}
		d.pathIdx++
		return
	}

	vPref := toTarget.Normalized().Scale(d.Config.MaxSpeed)
	vFiltered := avoidance.Filter(d.Config.Avoidance, d.pos, d.Config.Radius, vPref, neighbors)

	d.vel = integrateVelocity(d.vel, vFiltered, d.Config.Accel, dt)
	d.pos = d.pos.Add(d.vel.Scale(dt))
}

func (d *Driver) arrive() {
	d.state = Idle
	d.vel = geometry.Vec2{}
	goal := d.goalNode
	d.hasGoal = false
	d.path = nil
	d.pathIdx = 0
	if d.onArrive != nil {
		d.onArrive(d.RobotID, goal)
	}
}

// integrateVelocity moves the current velocity toward target, clamped by
// the maximum change accel*dt can produce this tick.
func integrateVelocity(current, target geometry.Vec2, accel, dt float64) geometry.Vec2 {
	delta := target.Sub(current)
	maxDelta := accel * dt
	return current.Add(delta.ClampLength(maxDelta))
}
