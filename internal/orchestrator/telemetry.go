package orchestrator

import "github.com/elektrokombinacija/fleetctl/internal/telemetry"

// writeTelemetry snapshots every robot's physical state and hands it to
// the configured sink. hasPackage toggles on the odd/even parity of a
// robot's waypoint-arrival count: odd means it has picked up but not yet
// dropped off its current task.
func (o *Orchestrator) writeTelemetry(tick int) {
	o.fleetMu.Lock()
	robots := make([]telemetry.RobotSnapshot, 0, len(o.robotOrder))
	for _, id := range o.robotOrder {
		r := o.robots[id]
		pos := r.driver.Position()
		vel := r.driver.Velocity()
		robots = append(robots, telemetry.RobotSnapshot{
			ID:          id,
			X:           pos.X,
			Y:           pos.Y,
			VX:          vel.X,
			VY:          vel.Y,
			Status:      r.agent.Status.String(),
			DriverState: r.driver.State().String(),
			Battery:     r.agent.BatteryPercent,
			HasPackage:  r.arrivalCount%2 == 1,
		})
	}
	o.fleetMu.Unlock()

	if err := o.sink.Write(telemetry.Snapshot{Tick: tick, Robots: robots}); err != nil {
		o.log.Warnw("telemetry write failed", "tick", tick, "err", err)
	}
}
