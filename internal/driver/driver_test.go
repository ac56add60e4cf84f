package driver

import (
	"strings"
	"testing"

	"github.com/elektrokombinacija/fleetctl/internal/geometry"
	"github.com/elektrokombinacija/fleetctl/internal/grid"
	"github.com/elektrokombinacija/fleetctl/internal/navgraph"
	"github.com/elektrokombinacija/fleetctl/internal/pathservice"
	"github.com/stretchr/testify/require"
)

func openNavAndService(t *testing.T) (*navgraph.NavGraph, *pathservice.Service) {
	t.Helper()
	rows := make([]string, 20)
	for y := range rows {
		rows[y] = strings.Repeat(".", 20)
	}
	g, err := grid.Load(strings.NewReader("20 20\n" + strings.Join(rows, "\n") + "\n"))
	require.NoError(t, err)
	g.Inflate(geometry.Decimeters, 0.0)
	nav := navgraph.Build(g)
	return nav, pathservice.New(g)
}

func TestSetGoalRejectsUnknownNode(t *testing.T) {
	nav, svc := openNavAndService(t)
	d := New("r1", nav, svc, geometry.Vec2{}, DefaultConfig())

	err := d.SetGoal(navgraph.NodeID(999))
	require.Error(t, err)
	require.Equal(t, Idle, d.State())
}

func TestSetGoalTransitionsToMoving(t *testing.T) {
	nav, svc := openNavAndService(t)
	d := New("r1", nav, svc, geometry.Vec2{X: 0, Y: 0}, DefaultConfig())

	err := d.SetGoal(nav.Nodes[0].ID)
	require.NoError(t, err)
	require.Equal(t, Moving, d.State())
}

func TestCancelGoalReturnsToIdle(t *testing.T) {
	nav, svc := openNavAndService(t)
	d := New("r1", nav, svc, geometry.Vec2{X: 0, Y: 0}, DefaultConfig())
	require.NoError(t, d.SetGoal(nav.Nodes[0].ID))

	d.CancelGoal()
	require.Equal(t, Idle, d.State())
	require.Equal(t, geometry.Vec2{}, d.Velocity())
}

func TestUpdateMovesTowardGoalAndArrives(t *testing.T) {
	nav, svc := openNavAndService(t)
	cfg := DefaultConfig()
	d := New("r1", nav, svc, geometry.Vec2{X: 0, Y: 0}, cfg)

	arrived := false
	d.OnArrive(func(id string, node navgraph.NodeID) { arrived = true })

	require.NoError(t, d.SetGoal(nav.Nodes[0].ID))

	for i := 0; i < 10000 && d.State() == Moving; i++ {
		d.Update(0.05, nil)
	}
	require.True(t, arrived)
	require.Equal(t, Idle, d.State())
}

func TestIdleUpdateIsNoOp(t *testing.T) {
	nav, svc := openNavAndService(t)
	d := New("r1", nav, svc, geometry.Vec2{X: 5, Y: 5}, DefaultConfig())
	d.Update(0.05, nil)
	require.Equal(t, geometry.Vec2{X: 5, Y: 5}, d.Position())
}
