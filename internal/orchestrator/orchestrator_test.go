package orchestrator

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elektrokombinacija/fleetctl/internal/costmatrix"
	"github.com/elektrokombinacija/fleetctl/internal/driver"
	"github.com/elektrokombinacija/fleetctl/internal/geometry"
	"github.com/elektrokombinacija/fleetctl/internal/grid"
	"github.com/elektrokombinacija/fleetctl/internal/navgraph"
	"github.com/elektrokombinacija/fleetctl/internal/pathservice"
	"github.com/elektrokombinacija/fleetctl/internal/poi"
	"github.com/elektrokombinacija/fleetctl/internal/task"
	"github.com/elektrokombinacija/fleetctl/internal/vrp"
)

func testFleet(t *testing.T) (*navgraph.NavGraph, *costmatrix.Matrix, *pathservice.Service, *poi.Registry) {
	t.Helper()
	rows := make([]string, 20)
	for y := range rows {
		rows[y] = strings.Repeat(".", 20)
	}
	g, err := grid.Load(strings.NewReader("20 20\n" + strings.Join(rows, "\n") + "\n"))
	require.NoError(t, err)
	g.Inflate(geometry.Decimeters, 0.0)

	nav := navgraph.Build(g)
	costs := costmatrix.New(nav)
	ids := make([]navgraph.NodeID, len(nav.Nodes))
	for i, n := range nav.Nodes {
		ids[i] = n.ID
	}
	costs.Precompute(ids)

	svc := pathservice.New(g)
	reg := poi.NewRegistry(nil)
	return nav, costs, svc, reg
}

func newTestOrchestrator(t *testing.T, n int) (*Orchestrator, *navgraph.NavGraph) {
	t.Helper()
	nav, costs, svc, reg := testFleet(t)
	cfg := DefaultConfig()
	cfg.BatchThreshold = 2
	o := New(nav, reg, costs, svc, vrp.NewGreedy(1, nil, 1), nil, zap.NewNop().Sugar(), cfg)

	for i := 0; i < n && i < len(nav.Nodes); i++ {
		o.AddRobot(fmt.Sprintf("r%d", i), nav.Nodes[i].ID, driver.DefaultConfig(), 600, 60)
	}
	return o, nav
}

func TestNewOrchestratorStartsAllTasksComplete(t *testing.T) {
	o, _ := newTestOrchestrator(t, 2)
	require.True(t, o.IsAllTasksComplete())
}

func TestScenarioAAssignsPendingTasksAndDrivesThemToCompletion(t *testing.T) {
	o, nav := newTestOrchestrator(t, 2)
	last := nav.Nodes[len(nav.Nodes)-1].ID
	first := nav.Nodes[0].ID

	o.SetPendingTasks([]task.Task{{ID: "t1", SourceNode: first, DestNode: last}})
	require.False(t, o.IsAllTasksComplete())

	var completedRobot, completedTask string
	o.OnTaskCompleted(func(robotID, taskID string) {
		completedRobot, completedTask = robotID, taskID
	})

	o.StepStrategic()

	assigned := false
	for _, info := range o.RobotInfos() {
		if info.ItineraryLength > 0 {
			assigned = true
		}
	}
	require.True(t, assigned, "scenario A should have assigned the pending task to a robot")

	for i := 0; i < 5000 && completedTask == ""; i++ {
		o.StepPhysics()
	}
	require.Equal(t, "t1", completedTask)
	require.NotEmpty(t, completedRobot)

	require.True(t, o.IsAllTasksComplete())
}

func TestInjectTasksBelowThresholdUsesCheapInsertion(t *testing.T) {
	o, nav := newTestOrchestrator(t, 2)
	first, second := nav.Nodes[0].ID, nav.Nodes[len(nav.Nodes)-1].ID

	o.InjectTasks([]task.Task{{ID: "inject-1", SourceNode: first, DestNode: second}})
	o.StepStrategic()

	assigned := false
	for _, info := range o.RobotInfos() {
		if info.ItineraryLength > 0 {
			assigned = true
		}
	}
	require.True(t, assigned, "scenario B cheap insertion should have assigned the injected task")
}

func TestObstacleTickIsANoOpThatAdvancesTheCounter(t *testing.T) {
	o, _ := newTestOrchestrator(t, 1)
	before := o.Stats().ObstacleTicks
	o.StepObstacle()
	require.Equal(t, before+1, o.Stats().ObstacleTicks)
}

func TestStatsReflectsStrategicAndPhysicsTicks(t *testing.T) {
	o, _ := newTestOrchestrator(t, 1)
	o.StepStrategic()
	o.StepPhysics()
	o.StepPhysics()

	stats := o.Stats()
	require.Equal(t, 1, stats.StrategicTicks)
	require.Equal(t, 2, stats.PhysicsTicks)
}
