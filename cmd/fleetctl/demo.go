package main

import (
	"strings"

	"go.uber.org/zap"

	"github.com/elektrokombinacija/fleetctl/internal/costmatrix"
	"github.com/elektrokombinacija/fleetctl/internal/driver"
	"github.com/elektrokombinacija/fleetctl/internal/geometry"
	"github.com/elektrokombinacija/fleetctl/internal/grid"
	"github.com/elektrokombinacija/fleetctl/internal/navgraph"
	"github.com/elektrokombinacija/fleetctl/internal/orchestrator"
	"github.com/elektrokombinacija/fleetctl/internal/pathservice"
	"github.com/elektrokombinacija/fleetctl/internal/poi"
	"github.com/elektrokombinacija/fleetctl/internal/task"
	"github.com/elektrokombinacija/fleetctl/internal/telemetry"
	"github.com/elektrokombinacija/fleetctl/internal/vrp"
)

// buildDemoScenario assembles a small, self-contained warehouse (no map,
// POI, or task files required) for `--demo` runs: an open 24x24 grid,
// one charging station, and three seed tasks between the corner docks.
func buildDemoScenario(log *zap.SugaredLogger) (*scenario, error) {
	const size = 24
	rows := make([]string, size)
	for y := range rows {
		rows[y] = strings.Repeat(".", size)
	}
	g, err := grid.Load(strings.NewReader("24 24\n" + strings.Join(rows, "\n") + "\n"))
	if err != nil {
		return nil, err
	}
	g.Inflate(geometry.Decimeters, 0)

	nav := navgraph.Build(g)
	nav.RemoveOrphans()

	poiReg := poi.NewRegistry(log)
	corner := func(x, y int) geometry.Coord { return geometry.Coord{X: x, Y: y} }
	mustAdd := func(id string, typ poi.Type, c geometry.Coord) {
		if err := poiReg.Add(id, typ, c, true, nil); err != nil {
			log.Warnw("demo POI rejected", "id", id, "err", err)
		}
	}
	mustAdd("charger-1", poi.Charging, corner(1, 1))
	mustAdd("dock-a", poi.Pickup, corner(1, size-2))
	mustAdd("dock-b", poi.Dropoff, corner(size-2, 1))
	mustAdd("dock-c", poi.Dropoff, corner(size-2, size-2))
	poiReg.ValidateAndMap(nav, g, 0)

	costs := costmatrix.New(nav)
	ids := make([]navgraph.NodeID, len(nav.Nodes))
	for i, n := range nav.Nodes {
		ids[i] = n.ID
	}
	costs.Precompute(ids)

	pathSvc := pathservice.New(g)
	solver := vrp.NewGreedy(8, poiReg.NodesOfType(poi.Charging, true), 1)

	orchCfg := orchestrator.DefaultConfig()
	orch := orchestrator.New(nav, poiReg, costs, pathSvc, solver, telemetry.Sink(telemetry.NopSink{}), log, orchCfg)

	driverCfg := driver.DefaultConfig()
	seedRobots(orch, nav, poiReg, 3, driverCfg)

	dockA, _ := poiReg.NodeForPOI("dock-a")
	dockB, _ := poiReg.NodeForPOI("dock-b")
	dockC, _ := poiReg.NodeForPOI("dock-c")

	tasks := []task.Task{
		{ID: "demo-1", SourceNode: dockA, DestNode: dockB},
		{ID: "demo-2", SourceNode: dockB, DestNode: dockC},
		{ID: "demo-3", SourceNode: dockC, DestNode: dockA},
	}

	return &scenario{orchestrator: orch, nav: nav, tasks: tasks}, nil
}
