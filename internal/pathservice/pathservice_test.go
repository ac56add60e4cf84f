package pathservice

import (
	"strings"
	"testing"

	"github.com/elektrokombinacija/fleetctl/internal/geometry"
	"github.com/elektrokombinacija/fleetctl/internal/grid"
	"github.com/elektrokombinacija/fleetctl/internal/pathfind"
	"github.com/stretchr/testify/require"
)

func openGrid(t *testing.T) *grid.Grid {
	t.Helper()
	rows := make([]string, 20)
	for y := range rows {
		rows[y] = strings.Repeat(".", 20)
	}
	g, err := grid.Load(strings.NewReader("20 20\n" + strings.Join(rows, "\n") + "\n"))
	require.NoError(t, err)
	g.Inflate(geometry.Decimeters, 0.0)
	return g
}

func TestEnqueueThenProcessNextDeliversViaCallback(t *testing.T) {
	svc := New(openGrid(t))

	var got pathfind.Result
	called := false
	reqID := svc.Enqueue(geometry.Coord{X: 0, Y: 0}, geometry.Coord{X: 10, Y: 0}, 5, func(r pathfind.Result) {
		got = r
		called = true
	})
	require.NotEmpty(t, reqID)
	require.Equal(t, 1, svc.PendingCount())

	processed := svc.ProcessNext()
	require.True(t, processed)
	require.Equal(t, 0, svc.PendingCount())
	require.True(t, called)
	require.True(t, got.Success)
}

func TestProcessNextReturnsFalseWhenEmpty(t *testing.T) {
	svc := New(openGrid(t))
	require.False(t, svc.ProcessNext())
}

func TestRequestSyncDrivesOwnQueue(t *testing.T) {
	svc := New(openGrid(t))
	result := svc.RequestSync(geometry.Coord{X: 0, Y: 0}, geometry.Coord{X: 15, Y: 0}, 5)
	require.True(t, result.Success)
	require.Equal(t, 0, svc.PendingCount())
}

func TestDrainAllProcessesEverything(t *testing.T) {
	svc := New(openGrid(t))
	svc.Enqueue(geometry.Coord{X: 0, Y: 0}, geometry.Coord{X: 5, Y: 0}, 5, nil)
	svc.Enqueue(geometry.Coord{X: 0, Y: 0}, geometry.Coord{X: 10, Y: 0}, 5, nil)

	n := svc.DrainAll()
	require.Equal(t, 2, n)
	require.Equal(t, 0, svc.PendingCount())
}
