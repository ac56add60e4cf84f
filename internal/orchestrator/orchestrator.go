// Package orchestrator implements C11: the three-thread fleet controller
// that bridges the logical Layer-P view (internal/task.Agent) and the
// physical Layer-D view (internal/driver.Driver), and drives Scenario
// A/B/C re-planning over the C10 solver.
//
// Grounded on original_source/backend/layer3/include/Orchestrator.hh for
// the thread/lock layout and on the teacher's internal/sim simulation
// loop for the goroutine-per-cadence pattern (there: MAPF step loop with
// a single ticker; here: three independently-paced loops sharing
// mutex-guarded state per §5).
package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/elektrokombinacija/fleetctl/internal/costmatrix"
	"github.com/elektrokombinacija/fleetctl/internal/driver"
	"github.com/elektrokombinacija/fleetctl/internal/geometry"
	"github.com/elektrokombinacija/fleetctl/internal/navgraph"
	"github.com/elektrokombinacija/fleetctl/internal/pathservice"
	"github.com/elektrokombinacija/fleetctl/internal/physics"
	"github.com/elektrokombinacija/fleetctl/internal/poi"
	"github.com/elektrokombinacija/fleetctl/internal/task"
	"github.com/elektrokombinacija/fleetctl/internal/telemetry"
	"github.com/elektrokombinacija/fleetctl/internal/vrp"
)

// Config holds the per-loop cadences and re-planning parameters (derived
// from internal/config.Config by the caller, since the resolution/units
// conversion from a warehouse config to pixel-space belongs to whoever
// owns the Grid/NavGraph construction, not to the orchestrator).
type Config struct {
	StrategicInterval    time.Duration
	PhysicsInterval      time.Duration
	ObstacleInterval     time.Duration
	BatchThreshold       int
	BatteryLowThreshold  float64 // fraction in [0,1]
	SpeedPxPerSec        float64
	NeighborRadius       float64
	TelemetryEveryNTicks int
}

// DefaultConfig mirrors §6's documented tick-interval defaults.
func DefaultConfig() Config {
	return Config{
		StrategicInterval:    time.Second,
		PhysicsInterval:      physics.DefaultDt,
		ObstacleInterval:     time.Second,
		BatchThreshold:       5,
		BatteryLowThreshold:  0.2,
		SpeedPxPerSec:        16,
		NeighborRadius:       40,
		TelemetryEveryNTicks: 1,
	}
}

// robotEntry pairs a robot's logical agent with its physical driver, plus
// the bookkeeping the orchestrator needs to turn arrival edges into
// completed-task events.
type robotEntry struct {
	agent        *task.Agent
	driver       *driver.Driver
	arrivalCount int
}

// Stats reports the orchestrator's running counters, used by fleetctl's
// `stats` command and by batch-mode completion summaries.
type Stats struct {
	StrategicTicks int
	PhysicsTicks   int
	ObstacleTicks  int
	CompletedTasks int
	SimulatedTime  time.Duration
}

// RobotInfo is a read-only snapshot of one robot's state, used by
// fleetctl's `status` command.
type RobotInfo struct {
	ID               string
	Status           string
	DriverState      string
	BatteryPercent   float64
	CurrentNode      navgraph.NodeID
	ItineraryLength  int
	AssignedTaskLen  int
}

// Orchestrator owns the shared fleet state and drives it across three
// independently-paced loops: strategic (re-planning), physics (motion +
// the L2<->L3 bridge), and obstacle (dynamic-map refresh, currently a
// no-op extension point per §9's open question).
type Orchestrator struct {
	log *zap.SugaredLogger

	nav     *navgraph.NavGraph
	poiReg  *poi.Registry
	costs   *costmatrix.Matrix
	pathSvc *pathservice.Service
	solver  vrp.Solver
	sink    telemetry.Sink

	physicsLoop   *physics.Loop
	cfg           Config
	chargingNodes []navgraph.NodeID

	fleetMu         sync.Mutex
	robots          map[string]*robotEntry
	robotOrder      []string
	hasInitialSolve bool
	strategicTicks  int
	completedTasks  int
	onTaskCompleted func(robotID, taskID string)

	dynMu         sync.Mutex
	obstacleTicks int

	tasksMu sync.Mutex
	pending []task.Task

	injectionMu sync.Mutex
	injection   []task.Task

	replanInProgress      atomic.Bool
	backgroundResultCh    chan vrp.Result
	backgroundOutstanding []task.Task

	isRunning atomic.Bool
}

// New constructs an Orchestrator over already-built, immutably-shared
// static layers (nav graph, POI registry, cost matrix, path service) per
// §3's lifecycle-and-ownership rule. sink and log may be nil.
func New(nav *navgraph.NavGraph, poiReg *poi.Registry, costs *costmatrix.Matrix, pathSvc *pathservice.Service, solver vrp.Solver, sink telemetry.Sink, log *zap.SugaredLogger, cfg Config) *Orchestrator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	physicsLoop := physics.New(cfg.NeighborRadius)
	physicsLoop.Dt = cfg.PhysicsInterval

	return &Orchestrator{
		log:           log.Named("orchestrator"),
		nav:           nav,
		poiReg:        poiReg,
		costs:         costs,
		pathSvc:       pathSvc,
		solver:        solver,
		sink:          sink,
		physicsLoop:   physicsLoop,
		cfg:           cfg,
		chargingNodes: poiReg.NodesOfType(poi.Charging, true),
		robots:        make(map[string]*robotEntry),
	}
}

// AddRobot registers a robot starting at node start, with a physical
// driver built against the shared nav graph and path service.
func (o *Orchestrator) AddRobot(id string, start navgraph.NodeID, driverCfg driver.Config, batteryLifespanS, rechargeTimeS float64) {
	startPos := o.nav.Nodes[start].Centroid

	d := driver.New(id, o.nav, o.pathSvc, geometry.FromCoord(startPos), driverCfg)
	agent := task.NewAgent(id, start, batteryLifespanS, rechargeTimeS)
	entry := &robotEntry{agent: agent, driver: d}
	d.OnArrive(func(robotID string, goalNode navgraph.NodeID) {
		o.onDriverArrive(robotID)
	})

	o.fleetMu.Lock()
	o.robots[id] = entry
	o.robotOrder = append(o.robotOrder, id)
	o.fleetMu.Unlock()

	o.physicsLoop.AddBody(id, d, driverCfg.Radius)
}

// OnTaskCompleted registers the callback fired when a robot finishes a
// pickup+dropoff pair (§4.11 on_task_completed).
func (o *Orchestrator) OnTaskCompleted(cb func(robotID, taskID string)) {
	o.fleetMu.Lock()
	o.onTaskCompleted = cb
	o.fleetMu.Unlock()
}

// SetPendingTasks enqueues tasks loaded at startup, ahead of the initial
// solve (§4.11 Scenario A trigger 1).
func (o *Orchestrator) SetPendingTasks(tasks []task.Task) {
	o.tasksMu.Lock()
	o.pending = append(o.pending, tasks...)
	o.tasksMu.Unlock()
}

// InjectTasks enqueues newly-arrived tasks for the next strategic tick's
// batch (§4.11 injection queue).
func (o *Orchestrator) InjectTasks(tasks []task.Task) {
	o.injectionMu.Lock()
	o.injection = append(o.injection, tasks...)
	o.injectionMu.Unlock()
}

// Run drives all three loops until ctx is cancelled or Stop is called.
func (o *Orchestrator) Run(ctx context.Context) {
	o.isRunning.Store(true)
	var wg sync.WaitGroup
	wg.Add(3)

	go func() { defer wg.Done(); o.loopAt(ctx, o.cfg.StrategicInterval, o.runStrategicTick) }()
	go func() { defer wg.Done(); o.loopAt(ctx, o.cfg.PhysicsInterval, o.runPhysicsTick) }()
	go func() { defer wg.Done(); o.loopAt(ctx, o.cfg.ObstacleInterval, o.runObstacleTick) }()

	wg.Wait()
}

// Stop flips the is_running flag checked at the top of each loop
// iteration (§5 cancellation). In-flight background re-plans complete
// but their results are discarded once stopped.
func (o *Orchestrator) Stop() { o.isRunning.Store(false) }

func (o *Orchestrator) loopAt(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for o.isRunning.Load() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !o.isRunning.Load() {
				return
			}
			fn()
		}
	}
}

// StepStrategic, StepPhysics and StepObstacle run one iteration of each
// loop synchronously, for batch mode (§6 batchMode: no sleeps) and for
// deterministic tests.
func (o *Orchestrator) StepStrategic() { o.runStrategicTick() }
func (o *Orchestrator) StepPhysics()   { o.runPhysicsTick() }
func (o *Orchestrator) StepObstacle()  { o.runObstacleTick() }

// IsAllTasksComplete reports whether the pending and injection queues are
// empty, every itinerary is empty, every driver is idle, and no
// background re-plan is in flight (§4.11).
func (o *Orchestrator) IsAllTasksComplete() bool {
	o.tasksMu.Lock()
	pendingEmpty := len(o.pending) == 0
	o.tasksMu.Unlock()

	o.injectionMu.Lock()
	injectionEmpty := len(o.injection) == 0
	o.injectionMu.Unlock()

	if o.replanInProgress.Load() {
		return false
	}

	o.fleetMu.Lock()
	defer o.fleetMu.Unlock()
	for _, id := range o.robotOrder {
		r := o.robots[id]
		if len(r.agent.Itinerary) != 0 || r.driver.State() != driver.Idle {
			return false
		}
	}
	return pendingEmpty && injectionEmpty
}

// Stats returns the current counters.
func (o *Orchestrator) Stats() Stats {
	pStats := o.physicsLoop.Stats()

	o.dynMu.Lock()
	obstacleTicks := o.obstacleTicks
	o.dynMu.Unlock()

	o.fleetMu.Lock()
	defer o.fleetMu.Unlock()
	return Stats{
		StrategicTicks: o.strategicTicks,
		PhysicsTicks:   pStats.TickCount,
		ObstacleTicks:  obstacleTicks,
		CompletedTasks: o.completedTasks,
		SimulatedTime:  time.Duration(pStats.TickCount) * o.physicsLoop.Dt,
	}
}

// RobotInfos returns a read-only snapshot of every robot's state.
func (o *Orchestrator) RobotInfos() []RobotInfo {
	o.fleetMu.Lock()
	defer o.fleetMu.Unlock()

	out := make([]RobotInfo, 0, len(o.robotOrder))
	for _, id := range o.robotOrder {
		r := o.robots[id]
		out = append(out, RobotInfo{
			ID:              id,
			Status:          r.agent.Status.String(),
			DriverState:     r.driver.State().String(),
			BatteryPercent:  r.agent.BatteryPercent,
			CurrentNode:     r.agent.CurrentNodeID,
			ItineraryLength: len(r.agent.Itinerary),
			AssignedTaskLen: len(r.agent.AssignedTasks),
		})
	}
	return out
}
