package orchestrator

import (
	"github.com/elektrokombinacija/fleetctl/internal/navgraph"
	"github.com/elektrokombinacija/fleetctl/internal/task"
	"github.com/elektrokombinacija/fleetctl/internal/vrp"
)

// runStrategicTick is the strategic-thread cadence (§4.11): check for a
// full re-plan trigger (Scenario A), then drain the injection queue into
// a cheap insertion batch (Scenario B) or a background re-plan (Scenario
// C), then poll any re-plan already in flight.
func (o *Orchestrator) runStrategicTick() {
	o.fleetMu.Lock()
	o.strategicTicks++
	o.fleetMu.Unlock()

	o.maybeRunScenarioA()
	o.processInjection()
	o.pollBackgroundReplan()
}

// maybeRunScenarioA triggers a full, synchronous VRP solve either on the
// very first pending tasks (no initial solve yet) or whenever any robot's
// itinerary has gone empty while pending tasks remain. The solve re-plans
// over every robot's outstanding (not-yet-started) work plus the pending
// queue, matching Scenario C's background re-plan in everything but
// running synchronously on the strategic thread.
func (o *Orchestrator) maybeRunScenarioA() {
	o.fleetMu.Lock()
	o.tasksMu.Lock()

	anyIdleEmpty := false
	for _, id := range o.robotOrder {
		if len(o.robots[id].agent.Itinerary) == 0 {
			anyIdleEmpty = true
			break
		}
	}
	trigger := len(o.pending) > 0 && (!o.hasInitialSolve || anyIdleEmpty)

	if !trigger {
		o.tasksMu.Unlock()
		o.fleetMu.Unlock()
		return
	}

	extra := o.pending
	o.pending = nil
	outstanding, robots := o.buildOutstandingAndRobotsLocked(extra)
	o.tasksMu.Unlock()
	o.fleetMu.Unlock()

	result := o.solver.Solve(toVRPTasks(outstanding), robots, o.costs)
	o.applySolution(outstanding, result)

	o.fleetMu.Lock()
	o.hasInitialSolve = true
	o.fleetMu.Unlock()

	if !result.IsFeasible {
		o.log.Warnw("scenario A full re-plan returned infeasible", "algorithm", result.AlgorithmName, "tasks", len(outstanding))
	}
}

// processInjection drains the injection queue, if any, into either a
// synchronous cheap insertion (Scenario B, batch <= threshold) or a
// background full re-plan (Scenario C, larger batches). If a background
// re-plan is already in flight, the batch is left queued for the next
// tick rather than starting a second one (§4.11 rule 4).
func (o *Orchestrator) processInjection() {
	if o.replanInProgress.Load() {
		return
	}

	o.injectionMu.Lock()
	batch := o.injection
	o.injection = nil
	o.injectionMu.Unlock()

	if len(batch) == 0 {
		return
	}

	if len(batch) <= o.cfg.BatchThreshold {
		o.runScenarioB(batch)
		return
	}
	o.runScenarioC(batch)
}

// runScenarioB performs cheap insertion: for each newly-injected task in
// turn, find the single cheapest (robot, position) slot across every
// robot's current flexible route and commit it immediately, applied in
// ascending insertion-cost order (§4.11). Each insertion is computed and
// applied atomically under fleetMu.
func (o *Orchestrator) runScenarioB(batch []task.Task) {
	o.fleetMu.Lock()
	defer o.fleetMu.Unlock()

	robots := make([]vrp.RobotSpec, 0, len(o.robotOrder))
	routes := make(map[string][]vrp.Task, len(o.robotOrder))
	for _, id := range o.robotOrder {
		r := o.robots[id]
		start, route := effectiveStartAndRoute(r)
		routes[id] = route
		robots = append(robots, o.robotSpecLocked(r, start))
	}

	remaining := append([]task.Task(nil), batch...)
	for len(remaining) > 0 {
		bestIdx := -1
		var best vrp.InsertionResult
		for i, t := range remaining {
			vt := vrp.Task{ID: t.ID, Src: t.SourceNode, Dst: t.DestNode}
			cand := vrp.CheapestInsertion(o.costs, robots, routes, o.chargingNodes, vt)
			if cand.OK && (bestIdx == -1 || cand.Cost < best.Cost) {
				bestIdx, best = i, cand
			}
		}
		if bestIdx == -1 {
			o.log.Warnw("scenario B: no robot can reach remaining injected tasks", "remaining", len(remaining))
			o.tasksMu.Lock()
			o.pending = append(o.pending, remaining...)
			o.tasksMu.Unlock()
			break
		}

		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
		routes[best.RobotID] = best.Route
		o.applyRouteLocked(best.RobotID, best.Route)
	}
}

// runScenarioC spawns a background re-plan over every outstanding task
// (every robot's current flexible route, plus the residual pending queue,
// plus the injected batch) and the full robot roster. The strategic
// thread polls pollBackgroundReplan for the result rather than blocking.
func (o *Orchestrator) runScenarioC(batch []task.Task) {
	o.replanInProgress.Store(true)
	o.log.Infow("scenario C: starting background re-plan", "batch_size", len(batch))

	o.fleetMu.Lock()
	o.tasksMu.Lock()
	extra := append(append([]task.Task(nil), batch...), o.pending...)
	o.pending = nil
	outstanding, robots := o.buildOutstandingAndRobotsLocked(extra)
	o.tasksMu.Unlock()
	o.fleetMu.Unlock()

	solver, costs := o.solver, o.costs
	resultCh := make(chan vrp.Result, 1)
	go func() {
		resultCh <- solver.Solve(toVRPTasks(outstanding), robots, costs)
	}()

	o.backgroundOutstanding = outstanding
	o.backgroundResultCh = resultCh
}

// pollBackgroundReplan checks whether a Scenario C solve has finished
// and, if so, commits it. If the orchestrator has been stopped in the
// meantime, the result is discarded (§5 cancellation semantics).
func (o *Orchestrator) pollBackgroundReplan() {
	if !o.replanInProgress.Load() || o.backgroundResultCh == nil {
		return
	}

	select {
	case result := <-o.backgroundResultCh:
		outstanding := o.backgroundOutstanding
		o.backgroundResultCh = nil
		o.backgroundOutstanding = nil
		o.replanInProgress.Store(false)

		if !o.isRunning.Load() {
			o.log.Infow("scenario C: discarding re-plan result, orchestrator stopped")
			return
		}

		o.applySolution(outstanding, result)
		if !result.IsFeasible {
			o.log.Warnw("scenario C background re-plan returned infeasible", "algorithm", result.AlgorithmName, "tasks", len(outstanding))
		}
		o.log.Infow("scenario C: background re-plan committed", "tasks", len(outstanding))
	default:
	}
}

// applySolution matches a solver Result's flattened node-pair itineraries
// back to task ids (the Result itself only carries node sequences) and
// commits each robot's new flexible route, preserving any in-flight leg.
// Shared by Scenario A and Scenario C, which are otherwise identical
// operations at different cadences.
func (o *Orchestrator) applySolution(tasksUsed []task.Task, result vrp.Result) {
	pool := make(map[[2]navgraph.NodeID][]string, len(tasksUsed))
	for _, t := range tasksUsed {
		key := [2]navgraph.NodeID{t.SourceNode, t.DestNode}
		pool[key] = append(pool[key], t.ID)
	}

	o.fleetMu.Lock()
	defer o.fleetMu.Unlock()
	for _, id := range o.robotOrder {
		nodes, ok := result.Assignments[id]
		if !ok {
			continue
		}
		route := make([]vrp.Task, 0, len(nodes)/2)
		for i := 0; i+1 < len(nodes); i += 2 {
			key := [2]navgraph.NodeID{nodes[i], nodes[i+1]}
			ids := pool[key]
			if len(ids) == 0 {
				continue
			}
			route = append(route, vrp.Task{ID: ids[0], Src: nodes[i], Dst: nodes[i+1]})
			pool[key] = ids[1:]
		}
		o.applyRouteLocked(id, route)
	}
}

// effectiveStartAndRoute splits a robot's itinerary into its pinned
// in-flight leg (the single node remaining of a task already underway,
// which re-planning must never touch) and its flexible route (complete
// task pairs not yet started). If the itinerary length is even, the
// robot has no in-flight leg and the whole itinerary is flexible.
func effectiveStartAndRoute(r *robotEntry) (navgraph.NodeID, []vrp.Task) {
	itin := r.agent.Itinerary
	ids := r.agent.AssignedTasks
	start := r.agent.CurrentNodeID
	if len(itin)%2 == 1 {
		start = itin[0]
		itin = itin[1:]
		if len(ids) > 0 {
			ids = ids[1:]
		}
	}

	route := make([]vrp.Task, 0, len(itin)/2)
	for i := 0; i+1 < len(itin) && i/2 < len(ids); i += 2 {
		route = append(route, vrp.Task{ID: ids[i/2], Src: itin[i], Dst: itin[i+1]})
	}
	return start, route
}

// applyRouteLocked rewrites a robot's flexible route, re-prepending its
// pinned in-flight leg (if any) so re-planning never interrupts a goal
// already committed to the driver. Must be called with fleetMu held.
func (o *Orchestrator) applyRouteLocked(robotID string, route []vrp.Task) {
	r, ok := o.robots[robotID]
	if !ok {
		return
	}

	var itin []navgraph.NodeID
	var ids []string
	if len(r.agent.Itinerary)%2 == 1 {
		itin = append(itin, r.agent.Itinerary[0])
		if len(r.agent.AssignedTasks) > 0 {
			ids = append(ids, r.agent.AssignedTasks[0])
		}
	}
	for _, t := range route {
		itin = append(itin, t.Src, t.Dst)
		ids = append(ids, t.ID)
	}
	r.agent.Itinerary = itin
	r.agent.AssignedTasks = ids
}

// buildOutstandingAndRobotsLocked collects every not-yet-started task
// (extra, plus each robot's existing flexible route) and the matching
// RobotSpec roster with pinned-leg-adjusted starts, for a full re-plan.
// Must be called with fleetMu and tasksMu held.
func (o *Orchestrator) buildOutstandingAndRobotsLocked(extra []task.Task) ([]task.Task, []vrp.RobotSpec) {
	outstanding := append([]task.Task(nil), extra...)
	robots := make([]vrp.RobotSpec, 0, len(o.robotOrder))
	for _, id := range o.robotOrder {
		r := o.robots[id]
		start, route := effectiveStartAndRoute(r)
		for _, vt := range route {
			outstanding = append(outstanding, task.Task{ID: vt.ID, SourceNode: vt.Src, DestNode: vt.Dst})
		}
		robots = append(robots, o.robotSpecLocked(r, start))
	}
	return outstanding, robots
}

func (o *Orchestrator) robotSpecLocked(r *robotEntry, start navgraph.NodeID) vrp.RobotSpec {
	return vrp.RobotSpec{
		ID:                r.agent.ID,
		Start:             start,
		Battery:           r.agent.BatteryPercent / 100,
		LowThreshold:      o.cfg.BatteryLowThreshold,
		EnergyPerDistance: energyPerDistance(r.agent, o.cfg.SpeedPxPerSec),
		RechargeCost:      r.agent.RechargeTimeS * o.cfg.SpeedPxPerSec,
	}
}

func energyPerDistance(a *task.Agent, speedPxPerSec float64) float64 {
	if a.BatteryLifespanS <= 0 || speedPxPerSec <= 0 {
		return 0
	}
	return 1.0 / (a.BatteryLifespanS * speedPxPerSec)
}

func toVRPTasks(tasks []task.Task) []vrp.Task {
	out := make([]vrp.Task, len(tasks))
	for i, t := range tasks {
		out[i] = vrp.Task{ID: t.ID, Src: t.SourceNode, Dst: t.DestNode}
	}
	return out
}
