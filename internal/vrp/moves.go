package vrp

import "math/rand"

// moveKind enumerates the three neighborhood moves shared by Tabu Search,
// Simulated Annealing, and Hill Climbing (§4.10).
type moveKind int

const (
	moveTransfer moveKind = iota // move one task from robot A to robot B
	moveSwap                     // exchange one task each between robot A and B
	moveReorder                  // swap two tasks within the same robot's route
)

// move is a reversible edit to a solution; apply returns the mutated copy
// and reverse is the move that undoes it (used for the tabu list).
type move struct {
	kind       moveKind
	robotA     string
	robotB     string
	indexA     int
	indexB     int
}

// reverse builds the move that undoes m, given the solution m is about to
// be applied to. For a transfer, the task lands at the end of B's route, so
// the undo index is B's route length before the move; it must be resolved
// here rather than hardcoded, or the stored reverse is never a legal,
// matchable move. Reorder is self-inverse under the identical index pair
// (apply just swaps them back), so the reverse is the same tuple, not the
// indices flipped.
func (m move) reverse(sol solution) move {
	switch m.kind {
	case moveTransfer:
		return move{kind: moveTransfer, robotA: m.robotB, robotB: m.robotA, indexA: len(sol[m.robotB])}
	case moveSwap:
		return move{kind: moveSwap, robotA: m.robotA, robotB: m.robotB, indexA: m.indexA, indexB: m.indexB}
	default: // moveReorder
		return move{kind: moveReorder, robotA: m.robotA, indexA: m.indexA, indexB: m.indexB}
	}
}

// apply returns a new solution with the move performed. robotIDs must list
// every robot with a non-nil (possibly empty) route in sol.
func (m move) apply(sol solution) solution {
	out := sol.clone()
	switch m.kind {
	case moveTransfer:
		a := out[m.robotA]
		idx := m.indexA
		if idx < 0 || idx >= len(a) {
			return out
		}
		task := a[idx]
		out[m.robotA] = append(a[:idx:idx], a[idx+1:]...)
		out[m.robotB] = append(out[m.robotB], task)
	case moveSwap:
		a, b := out[m.robotA], out[m.robotB]
		if m.indexA < 0 || m.indexA >= len(a) || m.indexB < 0 || m.indexB >= len(b) {
			return out
		}
		a[m.indexA], b[m.indexB] = b[m.indexB], a[m.indexA]
	case moveReorder:
		a := out[m.robotA]
		if m.indexA < 0 || m.indexA >= len(a) || m.indexB < 0 || m.indexB >= len(a) {
			return out
		}
		a[m.indexA], a[m.indexB] = a[m.indexB], a[m.indexA]
	}
	return out
}

// randomMove samples one of the three move kinds uniformly, picking
// non-empty routes/indices at random. Returns ok=false if no legal move of
// any kind exists (e.g. fewer than two robots with tasks).
func randomMove(sol solution, robots []RobotSpec, rng *rand.Rand) (move, bool) {
	ids := robotIDs(robots)
	if len(ids) == 0 {
		return move{}, false
	}

	kinds := []moveKind{moveTransfer, moveSwap, moveReorder}
	rng.Shuffle(len(kinds), func(i, j int) { kinds[i], kinds[j] = kinds[j], kinds[i] })

	for _, k := range kinds {
		switch k {
		case moveTransfer:
			nonEmpty := idsWithTasks(sol, ids)
			if len(nonEmpty) == 0 || len(ids) < 2 {
				continue
			}
			a := nonEmpty[rng.Intn(len(nonEmpty))]
			b := ids[rng.Intn(len(ids))]
			if a == b {
				continue
			}
			idx := rng.Intn(len(sol[a]))
			return move{kind: moveTransfer, robotA: a, robotB: b, indexA: idx}, true
		case moveSwap:
			nonEmpty := idsWithTasks(sol, ids)
			if len(nonEmpty) < 2 {
				continue
			}
			a := nonEmpty[rng.Intn(len(nonEmpty))]
			b := nonEmpty[rng.Intn(len(nonEmpty))]
			if a == b {
				continue
			}
			return move{kind: moveSwap, robotA: a, robotB: b, indexA: rng.Intn(len(sol[a])), indexB: rng.Intn(len(sol[b]))}, true
		case moveReorder:
			candidates := idsWithAtLeast(sol, ids, 2)
			if len(candidates) == 0 {
				continue
			}
			a := candidates[rng.Intn(len(candidates))]
			n := len(sol[a])
			i := rng.Intn(n)
			j := rng.Intn(n)
			for j == i {
				j = rng.Intn(n)
			}
			return move{kind: moveReorder, robotA: a, indexA: i, indexB: j}, true
		}
	}
	return move{}, false
}

func idsWithTasks(sol solution, ids []string) []string {
	var out []string
	for _, id := range ids {
		if len(sol[id]) > 0 {
			out = append(out, id)
		}
	}
	return out
}

func idsWithAtLeast(sol solution, ids []string, n int) []string {
	var out []string
	for _, id := range ids {
		if len(sol[id]) >= n {
			out = append(out, id)
		}
	}
	return out
}

// allMoves enumerates every legal move for Hill Climbing's exhaustive scan.
func allMoves(sol solution, robots []RobotSpec) []move {
	ids := robotIDs(robots)
	var moves []move
	for _, a := range ids {
		for i := range sol[a] {
			for _, b := range ids {
				if a == b {
					continue
				}
				moves = append(moves, move{kind: moveTransfer, robotA: a, robotB: b, indexA: i})
			}
		}
	}
	for _, a := range ids {
		for _, b := range ids {
			if a >= b {
				continue
			}
			for i := range sol[a] {
				for j := range sol[b] {
					moves = append(moves, move{kind: moveSwap, robotA: a, robotB: b, indexA: i, indexB: j})
				}
			}
		}
	}
	for _, a := range ids {
		n := len(sol[a])
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				moves = append(moves, move{kind: moveReorder, robotA: a, indexA: i, indexB: j})
			}
		}
	}
	return moves
}
