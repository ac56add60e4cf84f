package vrp

import "github.com/elektrokombinacija/fleetctl/internal/navgraph"

// InsertionResult is the cheapest place to add one new task into an
// existing per-robot task list, used by C11's Scenario B (§4.11 cheap
// insertion). Route is the candidate robot's full ordered task list with t
// already inserted at Pos.
type InsertionResult struct {
	RobotID string
	Pos     int
	Cost    float64
	Route   []Task
	OK      bool
}

// CheapestInsertion scans every (robot, position) pair across the given
// routes and returns the lowest-cost slot for t, evaluating cost with the
// same charging-aware battery simulation the greedy seed uses (§4.10's
// "insertion cost across all robots' existing itineraries, including the
// charging-detour check", referenced from §4.11 Scenario B). Ties prefer
// the robot with fewer tasks, then the smaller robot id (§4.10
// tie-breaking, reused here since Scenario B is itself an insertion
// decision).
func CheapestInsertion(costs CostSource, robots []RobotSpec, routes map[string][]Task, chargingNodes []navgraph.NodeID, t Task) InsertionResult {
	best := InsertionResult{Cost: Inf}
	for _, r := range robots {
		route := routes[r.ID]
		for pos := 0; pos <= len(route); pos++ {
			cost := insertionCostWithCharging(costs, r, chargingNodes, route, pos, t)
			if cost >= Inf {
				continue
			}
			better := !best.OK || cost < best.Cost
			tie := best.OK && cost == best.Cost &&
				(len(route) < len(routes[best.RobotID]) ||
					(len(route) == len(routes[best.RobotID]) && r.ID < best.RobotID))
			if better || tie {
				best = InsertionResult{
					RobotID: r.ID,
					Pos:     pos,
					Cost:    cost,
					Route:   withTaskAt(route, pos, t),
					OK:      true,
				}
			}
		}
	}
	return best
}

func insertionCostWithCharging(costs CostSource, r RobotSpec, chargers []navgraph.NodeID, route []Task, pos int, t Task) float64 {
	before, beforeOK := routeCostWithCharging(costs, r, chargers, route)
	after, afterOK := routeCostWithCharging(costs, r, chargers, withTaskAt(route, pos, t))
	if !afterOK {
		return Inf
	}
	if !beforeOK {
		return after
	}
	return after - before
}

// routeCostWithCharging replays an ordered task list through the greedy
// seed's battery simulation, so Scenario B's insertion cost accounts for
// the same forced-recharge detours the initial solve would have taken.
func routeCostWithCharging(costs CostSource, r RobotSpec, chargers []navgraph.NodeID, route []Task) (float64, bool) {
	sim := newBatterySim(r)
	for _, t := range route {
		if _, ok := sim.appendTask(costs, chargers, t); !ok {
			return Inf, false
		}
	}
	return sim.totalCost, true
}

func withTaskAt(route []Task, pos int, t Task) []Task {
	out := make([]Task, 0, len(route)+1)
	out = append(out, route[:pos]...)
	out = append(out, t)
	out = append(out, route[pos:]...)
	return out
}
