package vrp

import (
	"math"
	"math/rand"
	"time"
)

// SimulatedAnnealing implements §4.10's SA strategy: start greedy, sample
// one random neighbor per iteration, accept unconditionally if it improves
// or with probability exp(-Δ/T) otherwise, cool T by a factor α every
// IterationsPerTemp iterations, stop once T falls below MinTemp.
type SimulatedAnnealing struct {
	InitialTemp        float64
	MinTemp            float64
	CoolingFactor      float64 // α ∈ (0.9, 1)
	IterationsPerTemp  int
	Rand               *rand.Rand
}

// NewSimulatedAnnealing returns an SA solver with workable defaults.
func NewSimulatedAnnealing(seed int64) *SimulatedAnnealing {
	return &SimulatedAnnealing{
		InitialTemp:       100,
		MinTemp:           0.5,
		CoolingFactor:     0.95,
		IterationsPerTemp: 20,
		Rand:              rand.New(rand.NewSource(seed)),
	}
}

func (s *SimulatedAnnealing) Name() string { return "simulated_annealing" }

func (s *SimulatedAnnealing) Solve(tasks []Task, robots []RobotSpec, costs CostSource) Result {
	begin := time.Now()
	if len(tasks) == 0 {
		return emptyResult(s.Name())
	}

	seeder := NewGreedy(1, nil, s.Rand.Int63())
	current := seeder.constructOne(tasks, robots, costs)
	currentMakespan, _, _ := evaluate(current, robots, costs)
	best := current.clone()
	bestMakespan := currentMakespan

	temp := s.InitialTemp
	for temp >= s.MinTemp {
		for i := 0; i < s.IterationsPerTemp; i++ {
			m, ok := randomMove(current, robots, s.Rand)
			if !ok {
				break
			}
			candidate := m.apply(current)
			makespan, _, _ := evaluate(candidate, robots, costs)

			delta := makespan - currentMakespan
			if delta < 0 || s.Rand.Float64() < math.Exp(-delta/temp) {
				current = candidate
				currentMakespan = makespan
				if makespan < bestMakespan {
					bestMakespan = makespan
					best = candidate.clone()
				}
			}
		}
		temp *= s.CoolingFactor
	}

	res := finalize(best, robots, costs, s.Name(), time.Since(begin))
	if anyTaskUnreachable(tasks, robots, costs) {
		res.IsFeasible = false
	}
	return res
}
