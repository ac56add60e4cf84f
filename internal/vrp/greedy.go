package vrp

import (
	"math/rand"
	"time"

	"github.com/elektrokombinacija/fleetctl/internal/navgraph"
)

// Greedy is the §4.10 greedy-seed construction heuristic, also usable
// standalone as the fallback/baseline Solver. Restarts shuffles the task
// order and keeps the best of the resulting solutions (multi-start).
type Greedy struct {
	Restarts      int
	ChargingNodes []navgraph.NodeID
	Rand          *rand.Rand
}

// NewGreedy returns a Greedy solver with a deterministic RNG seed so runs
// are reproducible.
func NewGreedy(restarts int, chargingNodes []navgraph.NodeID, seed int64) *Greedy {
	if restarts <= 0 {
		restarts = 1
	}
	return &Greedy{Restarts: restarts, ChargingNodes: chargingNodes, Rand: rand.New(rand.NewSource(seed))}
}

func (g *Greedy) Name() string { return "greedy" }

func (g *Greedy) Solve(tasks []Task, robots []RobotSpec, costs CostSource) Result {
	begin := time.Now()
	if len(tasks) == 0 {
		return emptyResult(g.Name())
	}

	var best solution
	bestMakespan := Inf
	for i := 0; i < g.Restarts; i++ {
		order := append([]Task(nil), tasks...)
		if i > 0 {
			g.Rand.Shuffle(len(order), func(a, b int) { order[a], order[b] = order[b], order[a] })
		}
		sol := g.constructOne(order, robots, costs)
		makespan, _, _ := evaluate(sol, robots, costs)
		if makespan < bestMakespan {
			bestMakespan = makespan
			best = sol
		}
	}

	res := finalize(best, robots, costs, g.Name(), time.Since(begin))
	if anyTaskUnreachable(tasks, robots, costs) {
		res.IsFeasible = false
	}
	return res
}

// constructOne assigns each task, in the given order, to the robot whose
// new route completion time is smallest, using battery-aware route
// simulation to account for forced charging stops (§4.10 greedy seed).
func (g *Greedy) constructOne(order []Task, robots []RobotSpec, costs CostSource) solution {
	sol := make(solution, len(robots))
	state := make(map[string]*batterySim, len(robots))
	for _, r := range robots {
		sol[r.ID] = nil
		state[r.ID] = newBatterySim(r)
	}

	for _, t := range order {
		bestRobot := ""
		bestCost := Inf
		bestTaskCount := -1
		for _, r := range robots {
			trial := state[r.ID].clone()
			if _, ok := trial.appendTask(costs, g.ChargingNodes, t); !ok {
				continue
			}
			newTotal := trial.totalCost
			taskCount := len(sol[r.ID])
			if newTotal < bestCost ||
				(newTotal == bestCost && (bestRobot == "" || taskCount < bestTaskCount)) ||
				(newTotal == bestCost && taskCount == bestTaskCount && r.ID < bestRobot) {
				bestCost = newTotal
				bestRobot = r.ID
				bestTaskCount = taskCount
			}
		}
		if bestRobot == "" {
			// No robot can reach this task at all; drop it from the
			// itinerary, §4.10's per-task infeasibility still surfaces via
			// anyTaskUnreachable on the caller side.
			continue
		}
		state[bestRobot].appendTask(costs, g.ChargingNodes, t)
		sol[bestRobot] = append(sol[bestRobot], t)
	}
	return sol
}

// batterySim tracks a robot's simulated position/battery while greedily
// constructing its route, inserting a charging detour whenever the next
// task would drop the battery below LowThreshold (§4.10).
type batterySim struct {
	robot     RobotSpec
	pos       navgraph.NodeID
	battery   float64
	totalCost float64
}

func newBatterySim(r RobotSpec) *batterySim {
	return &batterySim{robot: r, pos: r.Start, battery: r.Battery}
}

func (b *batterySim) clone() *batterySim {
	cp := *b
	return &cp
}

// appendTask extends the simulated route by one task, inserting a charging
// stop first if needed. Returns the incremental cost and false if the task
// is unreachable from the robot's current simulated position.
func (b *batterySim) appendTask(costs CostSource, chargers []navgraph.NodeID, t Task) (float64, bool) {
	before := b.totalCost

	toSrc := costs.Get(b.pos, t.Src)
	toDst := costs.Get(t.Src, t.Dst)
	if toSrc >= Inf || toDst >= Inf {
		return 0, false
	}

	projected := b.battery - (toSrc+toDst)*b.robot.EnergyPerDistance
	if projected < b.robot.LowThreshold && len(chargers) > 0 {
		charger, dist := nearestReachable(costs, b.pos, chargers)
		if dist < Inf {
			b.totalCost += dist + b.robot.RechargeCost
			b.pos = charger
			b.battery = 1.0
			toSrc = costs.Get(b.pos, t.Src)
			if toSrc >= Inf {
				return 0, false
			}
		}
	}

	b.totalCost += toSrc
	b.battery -= toSrc * b.robot.EnergyPerDistance
	b.pos = t.Src

	b.totalCost += toDst
	b.battery -= toDst * b.robot.EnergyPerDistance
	b.pos = t.Dst

	return b.totalCost - before, true
}

func nearestReachable(costs CostSource, from navgraph.NodeID, candidates []navgraph.NodeID) (navgraph.NodeID, float64) {
	best := candidates[0]
	bestDist := Inf
	for _, c := range candidates {
		d := costs.Get(from, c)
		if d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best, bestDist
}
