package vrp

import (
	"math/rand"
	"time"
)

// Tabu implements §4.10's Tabu Search: start greedy, sample K neighbors per
// iteration via the three shared move types, accept the best non-tabu
// neighbor (or a tabu one that beats the best-ever solution, aspiration),
// remember each accepted move's reverse on a FIFO tabu list for Tenure
// iterations, and stop after MaxNoImprove iterations without improvement.
type Tabu struct {
	NeighborsPerIter int
	Tenure           int
	MaxNoImprove     int
	Rand             *rand.Rand
}

// NewTabu returns a Tabu solver with workable defaults.
func NewTabu(seed int64) *Tabu {
	return &Tabu{NeighborsPerIter: 20, Tenure: 15, MaxNoImprove: 100, Rand: rand.New(rand.NewSource(seed))}
}

func (t *Tabu) Name() string { return "tabu" }

type tabuEntry struct {
	m       move
	expires int
}

func (t *Tabu) Solve(tasks []Task, robots []RobotSpec, costs CostSource) Result {
	begin := time.Now()
	if len(tasks) == 0 {
		return emptyResult(t.Name())
	}

	seed := NewGreedy(1, nil, t.Rand.Int63())
	seedResult := seed.constructOne(tasks, robots, costs)
	current := seedResult
	currentMakespan, _, _ := evaluate(current, robots, costs)
	best := current.clone()
	bestMakespan := currentMakespan

	var tabuList []tabuEntry
	noImprove := 0
	iter := 0
	for noImprove < t.MaxNoImprove {
		iter++
		var bestNeighbor solution
		var bestNeighborMove move
		bestNeighborMakespan := Inf
		foundAny := false

		for k := 0; k < t.NeighborsPerIter; k++ {
			m, ok := randomMove(current, robots, t.Rand)
			if !ok {
				break
			}
			candidate := m.apply(current)
			makespan, _, _ := evaluate(candidate, robots, costs)

			tabu := isTabu(tabuList, m)
			aspirate := makespan < bestMakespan
			if tabu && !aspirate {
				continue
			}
			if makespan < bestNeighborMakespan {
				bestNeighborMakespan = makespan
				bestNeighbor = candidate
				bestNeighborMove = m
				foundAny = true
			}
		}

		if !foundAny {
			break
		}

		tabuList = appendTabu(tabuList, bestNeighborMove.reverse(current), t.Tenure, iter)
		current = bestNeighbor
		currentMakespan = bestNeighborMakespan
		tabuList = expireTabu(tabuList, iter)

		if currentMakespan < bestMakespan {
			bestMakespan = currentMakespan
			best = current.clone()
			noImprove = 0
		} else {
			noImprove++
		}
	}

	res := finalize(best, robots, costs, t.Name(), time.Since(begin))
	if anyTaskUnreachable(tasks, robots, costs) {
		res.IsFeasible = false
	}
	return res
}

func isTabu(list []tabuEntry, m move) bool {
	for _, e := range list {
		if sameMove(e.m, m) {
			return true
		}
	}
	return false
}

func sameMove(a, b move) bool {
	return a.kind == b.kind && a.robotA == b.robotA && a.robotB == b.robotB && a.indexA == b.indexA && a.indexB == b.indexB
}

func appendTabu(list []tabuEntry, m move, tenure, iter int) []tabuEntry {
	return append(list, tabuEntry{m: m, expires: iter + tenure})
}

func expireTabu(list []tabuEntry, iter int) []tabuEntry {
	out := list[:0]
	for _, e := range list {
		if e.expires > iter {
			out = append(out, e)
		}
	}
	return out
}
