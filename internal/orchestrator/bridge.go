package orchestrator

import (
	"github.com/elektrokombinacija/fleetctl/internal/driver"
	"github.com/elektrokombinacija/fleetctl/internal/task"
)

// runPhysicsTick is the physics-thread cadence (§4.9/§4.11): feed idle
// drivers their next itinerary node, advance the physics loop one tick,
// then snap agents back onto the nav graph and emit telemetry.
func (o *Orchestrator) runPhysicsTick() {
	o.fleetMu.Lock()
	for _, id := range o.robotOrder {
		o.feedL2ToL3Locked(o.robots[id])
	}
	o.fleetMu.Unlock()

	o.physicsLoop.RunSingleTick()

	dt := o.physicsLoop.Dt.Seconds()
	o.fleetMu.Lock()
	for _, id := range o.robotOrder {
		o.syncL3ToL2Locked(o.robots[id], dt)
	}
	tick := o.physicsLoop.Stats().TickCount
	o.fleetMu.Unlock()

	if o.cfg.TelemetryEveryNTicks > 0 && tick%o.cfg.TelemetryEveryNTicks == 0 {
		o.writeTelemetry(tick)
	}
}

// feedL2ToL3Locked pops the robot's next itinerary node and issues it as
// the driver's goal, if the driver is free to accept one. Must be called
// with fleetMu held.
func (o *Orchestrator) feedL2ToL3Locked(r *robotEntry) {
	if r.driver.State() != driver.Idle {
		return
	}
	node, ok := r.agent.PopNextNode()
	if !ok {
		return
	}
	if err := r.driver.SetGoal(node); err != nil {
		o.log.Warnw("feed_L2_to_L3: set_goal rejected", "robot", r.agent.ID, "node", node, "err", err)
	}
}

// syncL3ToL2Locked snaps the agent's logical node onto the driver's
// nearest nav-graph node, drains battery by dt/BatteryLifespanS of a full
// charge if the driver is moving this tick, and derives the agent's coarse status. Must be
// called with fleetMu held.
func (o *Orchestrator) syncL3ToL2Locked(r *robotEntry, dt float64) {
	if node, _, ok := o.nav.NearestNode(r.driver.Position().Coord()); ok {
		r.agent.CurrentNodeID = node
	}

	if speed := r.driver.Velocity().Length(); speed > 0 && r.agent.BatteryLifespanS > 0 {
		r.agent.BatteryPercent -= 100 * dt / r.agent.BatteryLifespanS
		if r.agent.BatteryPercent < 0 {
			r.agent.BatteryPercent = 0
		}
	}

	if len(r.agent.Itinerary) == 0 && r.driver.State() == driver.Idle {
		r.agent.Status = task.StatusIdle
	} else {
		r.agent.Status = task.StatusMoving
	}
}

// onDriverArrive fires on the physics thread whenever a driver reaches
// its goal. Every second arrival completes a task (source leg, then
// destination leg); the user callback runs outside the fleet lock.
func (o *Orchestrator) onDriverArrive(robotID string) {
	o.fleetMu.Lock()
	r, ok := o.robots[robotID]
	if !ok {
		o.fleetMu.Unlock()
		return
	}

	r.arrivalCount++
	var completedID string
	completed := false
	if r.arrivalCount%2 == 0 {
		if id, ok := r.agent.PopCompletedTask(); ok {
			completedID = id
			completed = true
			o.completedTasks++
		}
	}
	cb := o.onTaskCompleted
	o.fleetMu.Unlock()

	if completed && cb != nil {
		cb(robotID, completedID)
	}
}

// runObstacleTick refreshes the dynamic obstacle view. The spec leaves
// this as a named extension point with no required behavior (§9 open
// question); it only advances the tick counter reported by Stats.
func (o *Orchestrator) runObstacleTick() {
	o.dynMu.Lock()
	o.obstacleTicks++
	o.dynMu.Unlock()
}
