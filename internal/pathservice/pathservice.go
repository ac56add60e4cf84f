// Package pathservice implements the single-instance path request queue
// (C6): a FIFO of pending Theta* requests served one at a time by
// ProcessNext, with a blocking RequestSync convenience wrapper.
//
// Grounded on internal/sim/simulator.go in the teacher for the
// sync.Mutex-guarded shared-state pattern used to serialize access to a
// single long-lived worker.
package pathservice

import (
	"sync"

	"github.com/google/uuid"

	"github.com/elektrokombinacija/fleetctl/internal/geometry"
	"github.com/elektrokombinacija/fleetctl/internal/grid"
	"github.com/elektrokombinacija/fleetctl/internal/pathfind"
)

// Request is one queued path computation.
type Request struct {
	ReqID    string
	Start    geometry.Coord
	End      geometry.Coord
	Step     int
	Callback func(pathfind.Result)
	done     chan pathfind.Result
}

// Service owns the shared inflated grid and the FIFO request queue. A
// process-wide single instance is expected (§4.6); ProcessNext serializes
// itself with a mutex so concurrent callers never race the same Pathfinder
// call.
type Service struct {
	mu    sync.Mutex
	grid  *grid.Grid
	queue []*Request
}

// New binds a path service to the grid every request is solved against.
func New(g *grid.Grid) *Service {
	return &Service{grid: g}
}

// Enqueue appends a new request to the FIFO and returns its generated id.
// callback may be nil if the caller only intends to use the completion
// signal (via RequestSync) or will poll separately.
func (s *Service) Enqueue(start, end geometry.Coord, step int, callback func(pathfind.Result)) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := &Request{
		ReqID:    uuid.NewString(),
		Start:    start,
		End:      end,
		Step:     step,
		Callback: callback,
	}
	s.queue = append(s.queue, req)
	return req.ReqID
}

// PendingCount reports how many requests are waiting.
func (s *Service) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// ProcessNext pops the oldest request, if any, runs the Pathfinder against
// the shared grid, and delivers the result through its callback. Returns
// false if the queue was empty.
func (s *Service) ProcessNext() bool {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return false
	}
	req := s.queue[0]
	s.queue = s.queue[1:]
	g := s.grid
	s.mu.Unlock()

	result := pathfind.Find(g, req.Start, req.End, req.Step)

	if req.Callback != nil {
		req.Callback(result)
	}
	if req.done != nil {
		req.done <- result
	}
	return true
}

// RequestSync enqueues a request and blocks until it is processed,
// returning its result directly. §4.6 expects at most one worker in
// practice (drivers poll ProcessNext themselves); RequestSync additionally
// drives the queue itself between waits so a caller with no other worker
// running still makes progress, and so it still works correctly if another
// goroutine is concurrently calling ProcessNext.
func (s *Service) RequestSync(start, end geometry.Coord, step int) pathfind.Result {
	done := make(chan pathfind.Result, 1)

	s.mu.Lock()
	req := &Request{
		ReqID: uuid.NewString(),
		Start: start,
		End:   end,
		Step:  step,
		done:  done,
	}
	s.queue = append(s.queue, req)
	s.mu.Unlock()

	for {
		select {
		case result := <-done:
			return result
		default:
			if !s.ProcessNext() {
				// Nothing left to process but our own result hasn't
				// arrived yet; another worker must be mid-flight on it.
				return <-done
			}
		}
	}
}

// DrainAll calls ProcessNext until the queue is empty, a convenience for
// tests and for a single-threaded CLI run loop.
func (s *Service) DrainAll() int {
	n := 0
	for s.ProcessNext() {
		n++
	}
	return n
}
