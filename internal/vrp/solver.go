// Package vrp implements the fleet task-assignment solver (C10): given a
// set of pickup/dropoff tasks, a robot roster, and a cost matrix, produce
// per-robot itineraries minimizing makespan.
//
// Grounded on original_source/backend/layer2/include/ALNS.hh for the
// destroy/repair semantics and on internal/algo/solver.go in the teacher
// for the pluggable Solver interface pattern (there: {Solve(*Instance)
// *Solution; Name() string} for MAPF conflict resolution; here: the
// analogous shape for task-to-robot assignment).
package vrp

import (
	"math"
	"time"

	"github.com/elektrokombinacija/fleetctl/internal/navgraph"
)

// Task is one pickup-to-dropoff job.
type Task struct {
	ID  string
	Src navgraph.NodeID
	Dst navgraph.NodeID
}

// RobotSpec is the subset of robot state the solver needs: identity,
// starting node, and battery model for the charging-aware greedy seed.
type RobotSpec struct {
	ID                string
	Start             navgraph.NodeID
	Battery           float64 // fraction in [0,1], current charge
	LowThreshold      float64 // fraction below which a recharge is forced
	EnergyPerDistance float64 // battery fraction consumed per cost unit traveled
	RechargeCost      float64 // route-cost penalty representing recharge dwell time
}

// CostSource is the subset of costmatrix.Matrix the solver needs, kept as
// an interface so tests can substitute a small hand-built matrix.
type CostSource interface {
	Get(a, b navgraph.NodeID) float64
}

// Inf mirrors costmatrix.Inf for callers that only import this package.
const Inf = math.MaxFloat64

// Result is the outcome of a Solve call (§4.10 VRPResult).
type Result struct {
	Assignments   map[string][]navgraph.NodeID
	Makespan      float64
	TotalDistance float64
	ComputeTime   time.Duration
	IsFeasible    bool
	IsOptimal     bool
	AlgorithmName string
}

// Solver is implemented by every pluggable VRP strategy.
type Solver interface {
	Solve(tasks []Task, robots []RobotSpec, costs CostSource) Result
	Name() string
}

// solution maps each robot id to its ordered list of assigned tasks. It is
// the internal working representation shared by every solver; Result's
// node-id itinerary is derived from it at the end via expand.
type solution map[string][]Task

func (s solution) clone() solution {
	out := make(solution, len(s))
	for k, v := range s {
		cp := make([]Task, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// RouteCost implements §4.10's per-route cost formula:
// C(start,t0.src) + Σ [C(ti.src,ti.dst) + (has next ? C(ti.dst,t(i+1).src) : 0)].
// A +Inf term anywhere makes the whole route infeasible.
func RouteCost(costs CostSource, start navgraph.NodeID, tasks []Task) (float64, bool) {
	if len(tasks) == 0 {
		return 0, true
	}
	total := 0.0
	pos := start
	for _, t := range tasks {
		toSrc := costs.Get(pos, t.Src)
		if toSrc >= Inf {
			return Inf, false
		}
		total += toSrc
		legCost := costs.Get(t.Src, t.Dst)
		if legCost >= Inf {
			return Inf, false
		}
		total += legCost
		pos = t.Dst
	}
	return total, true
}

func robotIDs(robots []RobotSpec) []string {
	ids := make([]string, len(robots))
	for i, r := range robots {
		ids[i] = r.ID
	}
	return ids
}

func startOf(robots []RobotSpec, id string) navgraph.NodeID {
	for _, r := range robots {
		if r.ID == id {
			return r.Start
		}
	}
	return 0
}

// evaluate computes makespan/total distance/feasibility for a full
// solution. A robot whose route is infeasible marks the solution
// infeasible and contributes to neither makespan nor total.
func evaluate(sol solution, robots []RobotSpec, costs CostSource) (makespan, total float64, feasible bool) {
	feasible = true
	for _, r := range robots {
		cost, ok := RouteCost(costs, r.Start, sol[r.ID])
		if !ok {
			feasible = false
			continue
		}
		total += cost
		if cost > makespan {
			makespan = cost
		}
	}
	return
}

// expand converts a solution into the §4.10 node-id itinerary format,
// [src, dst, src, dst, ...], per robot.
func expand(sol solution) map[string][]navgraph.NodeID {
	out := make(map[string][]navgraph.NodeID, len(sol))
	for id, tasks := range sol {
		route := make([]navgraph.NodeID, 0, len(tasks)*2)
		for _, t := range tasks {
			route = append(route, t.Src, t.Dst)
		}
		out[id] = route
	}
	return out
}

func finalize(sol solution, robots []RobotSpec, costs CostSource, name string, elapsed time.Duration) Result {
	makespan, total, feasible := evaluate(sol, robots, costs)
	return Result{
		Assignments:   expand(sol),
		Makespan:      makespan,
		TotalDistance: total,
		ComputeTime:   elapsed,
		IsFeasible:    feasible,
		IsOptimal:     false,
		AlgorithmName: name,
	}
}

// emptyResult handles the §4.10 |tasks|=0 edge case uniformly across
// solvers.
func emptyResult(name string) Result {
	return Result{
		Assignments:   map[string][]navgraph.NodeID{},
		IsFeasible:    true,
		AlgorithmName: name,
	}
}

// anyTaskUnreachable implements §4.10's infeasibility trigger: a task is
// unreachable if every robot's start->src or src->dst leg is +Inf.
func anyTaskUnreachable(tasks []Task, robots []RobotSpec, costs CostSource) bool {
	if len(robots) == 0 {
		return len(tasks) > 0
	}
	for _, t := range tasks {
		reachable := false
		for _, r := range robots {
			if costs.Get(r.Start, t.Src) < Inf && costs.Get(t.Src, t.Dst) < Inf {
				reachable = true
				break
			}
		}
		if !reachable {
			return true
		}
	}
	return false
}
