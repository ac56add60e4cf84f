// Command fleetctl runs the autonomous mobile robot fleet orchestrator
// (C11) against a map, POI registry, and task file, per §6's CLI surface.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/elektrokombinacija/fleetctl/internal/config"
	"github.com/elektrokombinacija/fleetctl/internal/costmatrix"
	"github.com/elektrokombinacija/fleetctl/internal/driver"
	"github.com/elektrokombinacija/fleetctl/internal/fleetlog"
	"github.com/elektrokombinacija/fleetctl/internal/grid"
	"github.com/elektrokombinacija/fleetctl/internal/navgraph"
	"github.com/elektrokombinacija/fleetctl/internal/orchestrator"
	"github.com/elektrokombinacija/fleetctl/internal/pathservice"
	"github.com/elektrokombinacija/fleetctl/internal/poi"
	"github.com/elektrokombinacija/fleetctl/internal/task"
	"github.com/elektrokombinacija/fleetctl/internal/telemetry"
	"github.com/elektrokombinacija/fleetctl/internal/vrp"
)

func main() {
	app := &cli.App{
		Name:  "fleetctl",
		Usage: "run an autonomous mobile robot fleet simulation",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to a system configuration JSON file"},
			&cli.StringFlag{Name: "tasks", Usage: "path to a task JSON file, overrides the config's taskPath"},
			&cli.StringFlag{Name: "from-json", Usage: "alias for --tasks"},
			&cli.IntFlag{Name: "robots", Usage: "number of robots, overrides the config's numRobots (0 = auto)"},
			&cli.DurationFlag{Name: "duration", Usage: "wall-clock duration to run before stopping"},
			&cli.BoolFlag{Name: "batch", Usage: "disable real-time pacing, step as fast as possible, stop once all tasks complete"},
			&cli.BoolFlag{Name: "demo", Usage: "run a small built-in demo scenario instead of loading files from disk"},
			&cli.BoolFlag{Name: "cli", Usage: "start an interactive REPL after startup"},
			&cli.StringFlag{Name: "telemetry", Usage: "path to write telemetry JSON-Lines; disabled if omitted"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn, or error"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "fleetctl:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	log := fleetlog.New(c.String("log-level"))
	defer log.Sync() //nolint:errcheck

	var scenario *scenario
	var err error
	if c.Bool("demo") {
		scenario, err = buildDemoScenario(log)
	} else {
		scenario, err = buildScenarioFromFlags(c, log)
	}
	if err != nil {
		return cli.Exit(fmt.Sprintf("init: %v", err), 1)
	}

	orch := scenario.orchestrator
	orch.SetPendingTasks(scenario.tasks)

	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt)
	defer cancel()

	switch {
	case c.Bool("batch"):
		runBatch(ctx, orch, log)
	case c.Bool("cli"):
		runRepl(ctx, orch, scenario.nav, log)
	default:
		runRealtime(ctx, orch, c.Duration("duration"), log)
	}

	stats := orch.Stats()
	log.Infow("run finished",
		"strategic_ticks", stats.StrategicTicks,
		"physics_ticks", stats.PhysicsTicks,
		"completed_tasks", stats.CompletedTasks,
		"simulated_time", stats.SimulatedTime)
	return nil
}

// scenario bundles everything buildScenarioFromFlags/buildDemoScenario
// construct: the wired orchestrator plus the nav graph (needed by the
// REPL's `inject` command to pick valid node pairs) and the initial
// task list.
type scenario struct {
	orchestrator *orchestrator.Orchestrator
	nav          *navgraph.NavGraph
	tasks        []task.Task
}

func buildScenarioFromFlags(c *cli.Context, log *zap.SugaredLogger) (*scenario, error) {
	cfgPath := c.String("config")
	if cfgPath == "" {
		return nil, fmt.Errorf("--config is required unless --demo is set")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	mapFile, err := os.Open(cfg.MapPath)
	if err != nil {
		return nil, fmt.Errorf("opening map: %w", err)
	}
	defer mapFile.Close()
	g, err := grid.Load(mapFile)
	if err != nil {
		return nil, fmt.Errorf("loading map: %w", err)
	}
	g.Inflate(cfg.MapResolution, cfg.RobotRadiusMeters)

	nav := navgraph.Build(g)
	if n := nav.RemoveOrphans(); n > 0 {
		log.Warnw("removed orphan nav-graph nodes unreachable from the rest of the graph", "count", n)
	}

	poiReg := poi.NewRegistry(log)
	if cfg.POIConfigPath != "" {
		poiFile, err := os.Open(cfg.POIConfigPath)
		if err != nil {
			return nil, fmt.Errorf("opening poi config: %w", err)
		}
		defer poiFile.Close()
		if err := poiReg.LoadFromJSON(poiFile); err != nil {
			log.Warnw("some POIs failed to load", "err", err)
		}
		poiReg.ValidateAndMap(nav, g, 0)
	}

	costs := costmatrix.New(nav)
	ids := make([]navgraph.NodeID, len(nav.Nodes))
	for i, n := range nav.Nodes {
		ids[i] = n.ID
	}
	costs.Precompute(ids)

	pathSvc := pathservice.New(g)

	taskPath := c.String("tasks")
	if taskPath == "" {
		taskPath = c.String("from-json")
	}
	if taskPath == "" {
		taskPath = cfg.TaskPath
	}
	var tasks []task.Task
	if taskPath != "" {
		taskFile, err := os.Open(taskPath)
		if err != nil {
			return nil, fmt.Errorf("opening tasks: %w", err)
		}
		defer taskFile.Close()
		tasks, err = task.LoadFromJSON(taskFile, poiReg, log)
		if err != nil {
			log.Warnw("some tasks failed to load", "err", err)
		}
	}

	solver := vrp.NewALNS(200, 1)

	sink := telemetry.Sink(telemetry.NopSink{})
	if path := c.String("telemetry"); path != "" {
		fileSink, err := telemetry.NewFileSink(path, log)
		if err != nil {
			return nil, fmt.Errorf("opening telemetry sink: %w", err)
		}
		sink = fileSink
	}

	orchCfg := orchestrator.DefaultConfig()
	orchCfg.StrategicInterval = time.Duration(cfg.WarehouseTickMs) * time.Millisecond
	orchCfg.PhysicsInterval = time.Duration(cfg.OrcaTickMs) * time.Millisecond
	orchCfg.ObstacleInterval = time.Duration(cfg.ObstacleTickMs) * time.Millisecond
	orchCfg.BatchThreshold = cfg.BatchThreshold
	orchCfg.SpeedPxPerSec = cfg.RobotSpeedMps / cfg.MapResolution.MetersPerPixel()

	orch := orchestrator.New(nav, poiReg, costs, pathSvc, solver, sink, log, orchCfg)

	numRobots := c.Int("robots")
	if numRobots <= 0 {
		numRobots = cfg.NumRobots
	}
	if numRobots <= 0 {
		numRobots = autoRobotCount(poiReg)
	}
	driverCfg := driver.DefaultConfig()
	driverCfg.Radius = cfg.RobotRadiusMeters / cfg.MapResolution.MetersPerPixel()
	seedRobots(orch, nav, poiReg, numRobots, driverCfg)

	return &scenario{orchestrator: orch, nav: nav, tasks: tasks}, nil
}

// autoRobotCount picks a default fleet size from the charging-station
// count when numRobots is 0 ("auto", §6), falling back to a small
// constant if the POI registry has none configured.
func autoRobotCount(poiReg *poi.Registry) int {
	if n := len(poiReg.NodesOfType(poi.Charging, false)); n > 0 {
		return n * 2
	}
	return 3
}

func seedRobots(orch *orchestrator.Orchestrator, nav *navgraph.NavGraph, poiReg *poi.Registry, n int, driverCfg driver.Config) {
	starts := poiReg.NodesOfType(poi.Charging, true)
	for i := 0; i < n; i++ {
		var start navgraph.NodeID
		switch {
		case len(starts) > 0:
			start = starts[i%len(starts)]
		case len(nav.Nodes) > 0:
			start = nav.Nodes[i%len(nav.Nodes)].ID
		}
		orch.AddRobot(fmt.Sprintf("robot-%d", i), start, driverCfg, 600, 90)
	}
}

func runBatch(ctx context.Context, orch *orchestrator.Orchestrator, log *zap.SugaredLogger) {
	const maxSteps = 2_000_000
	for i := 0; i < maxSteps; i++ {
		if ctx.Err() != nil {
			log.Infow("batch run interrupted", "steps", i)
			return
		}
		orch.StepStrategic()
		orch.StepPhysics()
		orch.StepObstacle()
		if orch.IsAllTasksComplete() {
			log.Infow("batch run complete, all tasks finished", "steps", i+1)
			return
		}
	}
	log.Warnw("batch run hit its step ceiling without completing every task", "steps", maxSteps)
}

func runRealtime(ctx context.Context, orch *orchestrator.Orchestrator, duration time.Duration, log *zap.SugaredLogger) {
	runCtx := ctx
	if duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	done := make(chan struct{})
	go func() {
		orch.Run(runCtx)
		close(done)
	}()

	<-runCtx.Done()
	orch.Stop()
	<-done
}
