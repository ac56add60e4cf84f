package vrp

import (
	"math/rand"
	"time"
)

// HillClimbing implements §4.10's Hill Climbing strategy: start greedy,
// scan every inter-robot transfer/swap and intra-robot reorder, accept the
// first improving move found (steepest-descent is also conformant; this
// port uses first-improvement for speed on larger fleets), and restart
// from a randomly perturbed copy of the best solution on a plateau. It
// runs MaxRestarts climbs in total (the first from the greedy seed),
// whether or not they improve.
type HillClimbing struct {
	MaxRestarts int
	Rand        *rand.Rand
}

// NewHillClimbing returns a Hill Climbing solver with workable defaults.
func NewHillClimbing(seed int64) *HillClimbing {
	return &HillClimbing{MaxRestarts: 10, Rand: rand.New(rand.NewSource(seed))}
}

func (h *HillClimbing) Name() string { return "hill_climbing" }

func (h *HillClimbing) Solve(tasks []Task, robots []RobotSpec, costs CostSource) Result {
	begin := time.Now()
	if len(tasks) == 0 {
		return emptyResult(h.Name())
	}

	seeder := NewGreedy(1, nil, h.Rand.Int63())
	best := seeder.constructOne(tasks, robots, costs)
	bestMakespan, _, _ := evaluate(best, robots, costs)

	for restart := 0; restart < h.MaxRestarts; restart++ {
		current := best.clone()
		if restart > 0 {
			current = perturb(current, robots, h.Rand)
		}
		currentMakespan, _, _ := evaluate(current, robots, costs)

		h.climb(&current, &currentMakespan, robots, costs)
		if currentMakespan < bestMakespan {
			bestMakespan = currentMakespan
			best = current.clone()
		}
	}

	res := finalize(best, robots, costs, h.Name(), time.Since(begin))
	if anyTaskUnreachable(tasks, robots, costs) {
		res.IsFeasible = false
	}
	return res
}

// climb repeatedly applies the first improving move from the full
// neighborhood until none remains, mutating current/currentMakespan
// in place. Returns whether any improving move was ever applied.
func (h *HillClimbing) climb(current *solution, currentMakespan *float64, robots []RobotSpec, costs CostSource) bool {
	improvedAny := false
	for {
		moves := allMoves(*current, robots)
		improvedThisPass := false
		for _, m := range moves {
			candidate := m.apply(*current)
			makespan, _, _ := evaluate(candidate, robots, costs)
			if makespan < *currentMakespan {
				*current = candidate
				*currentMakespan = makespan
				improvedThisPass = true
				improvedAny = true
				break
			}
		}
		if !improvedThisPass {
			return improvedAny
		}
	}
}

// perturb applies a handful of random moves to escape a plateau before the
// next restart's climb.
func perturb(sol solution, robots []RobotSpec, rng *rand.Rand) solution {
	current := sol
	for i := 0; i < 3; i++ {
		m, ok := randomMove(current, robots, rng)
		if !ok {
			break
		}
		current = m.apply(current)
	}
	return current
}
