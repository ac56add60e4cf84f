package vrp

import (
	"math/rand"
	"sort"
	"time"

	"github.com/elektrokombinacija/fleetctl/internal/navgraph"
)

// ALNS is the primary solver (§4.10): Adaptive Large Neighborhood Search
// over a round-robin initial solution, alternating worst/random removal
// with regret-2 insertion and greedy (improvement-only) acceptance.
//
// Grounded on original_source/backend/layer2/include/ALNS.hh for the
// destroy/repair contract.
type ALNS struct {
	Iterations      int
	DestroyFraction float64 // ρ, default 0.25
	RandomDestroyP  float64 // probability of random (vs. worst) removal per iteration
	Rand            *rand.Rand
}

// NewALNS returns an ALNS solver with the §4.10-recommended defaults.
func NewALNS(iterations int, seed int64) *ALNS {
	if iterations <= 0 {
		iterations = 200
	}
	return &ALNS{
		Iterations:      iterations,
		DestroyFraction: 0.25,
		RandomDestroyP:  0.15,
		Rand:            rand.New(rand.NewSource(seed)),
	}
}

func (a *ALNS) Name() string { return "alns" }

func (a *ALNS) Solve(tasks []Task, robots []RobotSpec, costs CostSource) Result {
	begin := time.Now()
	if len(tasks) == 0 {
		return emptyResult(a.Name())
	}

	current := roundRobinInitial(tasks, robots)
	best := current.clone()
	bestMakespan, _, _ := evaluate(best, robots, costs)
	currentMakespan := bestMakespan

	for iter := 0; iter < a.Iterations; iter++ {
		removed, partial := a.destroy(current, robots, costs)
		repaired := a.repair(partial, removed, robots, costs)

		makespan, _, _ := evaluate(repaired, robots, costs)
		if makespan < currentMakespan {
			current = repaired
			currentMakespan = makespan
			if makespan < bestMakespan {
				best = repaired.clone()
				bestMakespan = makespan
			}
		}
	}

	res := finalize(best, robots, costs, a.Name(), time.Since(begin))
	if anyTaskUnreachable(tasks, robots, costs) {
		res.IsFeasible = false
	}
	return res
}

func roundRobinInitial(tasks []Task, robots []RobotSpec) solution {
	sol := make(solution, len(robots))
	if len(robots) == 0 {
		return sol
	}
	for _, r := range robots {
		sol[r.ID] = nil
	}
	for i, t := range tasks {
		r := robots[i%len(robots)]
		sol[r.ID] = append(sol[r.ID], t)
	}
	return sol
}

type placedTask struct {
	robotID string
	index   int
	task    Task
	saving  float64
}

// destroy removes ⌈ρ·|T|⌉ tasks, by worst-removal-saving most of the time
// and uniformly at random otherwise (§4.10 diversification).
func (a *ALNS) destroy(sol solution, robots []RobotSpec, costs CostSource) ([]Task, solution) {
	partial := sol.clone()

	var placed []placedTask
	for _, r := range robots {
		route := partial[r.ID]
		for i, t := range route {
			prev := startOf(robots, r.ID)
			if i > 0 {
				prev = route[i-1].Dst
			}
			var next *Task
			if i+1 < len(route) {
				next = &route[i+1]
			}
			placed = append(placed, placedTask{
				robotID: r.ID,
				index:   i,
				task:    t,
				saving:  removalSaving(costs, prev, t, next),
			})
		}
	}
	if len(placed) == 0 {
		return nil, partial
	}

	count := int(ceilFrac(float64(len(placed)) * a.DestroyFraction))
	if count < 1 {
		count = 1
	}
	if count > len(placed) {
		count = len(placed)
	}

	if a.Rand.Float64() < a.RandomDestroyP {
		a.Rand.Shuffle(len(placed), func(i, j int) { placed[i], placed[j] = placed[j], placed[i] })
	} else {
		sort.Slice(placed, func(i, j int) bool { return placed[i].saving > placed[j].saving })
	}

	toRemove := placed[:count]
	removedSet := make(map[string]map[string]bool, len(robots))
	for _, pt := range toRemove {
		if removedSet[pt.robotID] == nil {
			removedSet[pt.robotID] = make(map[string]bool)
		}
		removedSet[pt.robotID][pt.task.ID] = true
	}

	var removed []Task
	for _, r := range robots {
		set := removedSet[r.ID]
		if len(set) == 0 {
			continue
		}
		kept := partial[r.ID][:0:0]
		for _, t := range partial[r.ID] {
			if set[t.ID] {
				removed = append(removed, t)
			} else {
				kept = append(kept, t)
			}
		}
		partial[r.ID] = kept
	}
	return removed, partial
}

func removalSaving(costs CostSource, prev navgraph.NodeID, t Task, next *Task) float64 {
	before := costs.Get(prev, t.Src) + costs.Get(t.Src, t.Dst)
	after := 0.0
	if next != nil {
		before += costs.Get(t.Dst, next.Src)
		after = costs.Get(prev, next.Src)
	}
	return before - after
}

// repair reinserts every removed task using Regret-2 insertion: compute
// every (robot, position) insertion cost, take the top two, insert the
// task with the largest regret (2nd-best minus best) at its best slot, and
// repeat until every task is placed (§4.10).
func (a *ALNS) repair(sol solution, removed []Task, robots []RobotSpec, costs CostSource) solution {
	pending := append([]Task(nil), removed...)
	for len(pending) > 0 {
		bestTaskIdx := -1
		var bestRobot string
		bestPos := 0
		bestRegret := -1.0
		bestCost := Inf

		for ti, t := range pending {
			type candidate struct {
				robot string
				pos   int
				cost  float64
			}
			var options []candidate
			for _, r := range robots {
				route := sol[r.ID]
				for pos := 0; pos <= len(route); pos++ {
					cost := insertionCost(costs, robots, r.ID, route, pos, t)
					options = append(options, candidate{robot: r.ID, pos: pos, cost: cost})
				}
			}
			sort.Slice(options, func(i, j int) bool { return options[i].cost < options[j].cost })
			if len(options) == 0 {
				continue
			}
			regret := 0.0
			if len(options) > 1 {
				regret = options[1].cost - options[0].cost
			}
			if regret > bestRegret || (regret == bestRegret && options[0].cost < bestCost) {
				bestRegret = regret
				bestTaskIdx = ti
				bestRobot = options[0].robot
				bestPos = options[0].pos
				bestCost = options[0].cost
			}
		}

		if bestTaskIdx < 0 {
			break
		}
		t := pending[bestTaskIdx]
		pending = append(pending[:bestTaskIdx], pending[bestTaskIdx+1:]...)

		route := sol[bestRobot]
		newRoute := make([]Task, 0, len(route)+1)
		newRoute = append(newRoute, route[:bestPos]...)
		newRoute = append(newRoute, t)
		newRoute = append(newRoute, route[bestPos:]...)
		sol[bestRobot] = newRoute
	}
	return sol
}

func insertionCost(costs CostSource, robots []RobotSpec, robotID string, route []Task, pos int, t Task) float64 {
	withTask := make([]Task, 0, len(route)+1)
	withTask = append(withTask, route[:pos]...)
	withTask = append(withTask, t)
	withTask = append(withTask, route[pos:]...)

	start := startOf(robots, robotID)
	before, beforeOK := RouteCost(costs, start, route)
	after, afterOK := RouteCost(costs, start, withTask)
	if !afterOK {
		return Inf
	}
	if !beforeOK {
		return after
	}
	return after - before
}

func ceilFrac(v float64) float64 {
	i := float64(int(v))
	if v > i {
		return i + 1
	}
	return i
}
