package poi

import (
	"strings"
	"testing"

	"github.com/elektrokombinacija/fleetctl/internal/geometry"
	"github.com/elektrokombinacija/fleetctl/internal/grid"
	"github.com/elektrokombinacija/fleetctl/internal/navgraph"
	"github.com/stretchr/testify/require"
)

func tenByTenWithCenterObstacle(t *testing.T) *grid.Grid {
	t.Helper()
	rows := make([]string, 10)
	for y := 0; y < 10; y++ {
		row := strings.Repeat(".", 10)
		if y == 5 {
			row = row[:5] + "#" + row[6:]
		}
		rows[y] = row
	}
	g, err := grid.Load(strings.NewReader("10 10\n" + strings.Join(rows, "\n") + "\n"))
	require.NoError(t, err)
	g.Inflate(geometry.Decimeters, 0.0)
	return g
}

func TestParseTypeSynonymAndFallback(t *testing.T) {
	require.Equal(t, Charging, ParseType("CHARGER"))
	require.Equal(t, Charging, ParseType("charging"))
	require.Equal(t, Pickup, ParseType("PICKUP"))
	require.Equal(t, Dropoff, ParseType("dropoff"))
	require.Equal(t, Pickup, ParseType("something_unknown"))
	require.Equal(t, Pickup, ParseType(""))
}

func TestAddRejectsDuplicateID(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Add("p1", Pickup, geometry.Coord{X: 1, Y: 1}, true, nil))

	err := r.Add("p1", Dropoff, geometry.Coord{X: 2, Y: 2}, true, nil)
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "p1", perr.ID)
}

// E2-grounded: a POI placed squarely on an inflated-unsafe cell is
// auto-disabled rather than rejected outright (§4.3).
func TestValidateAndMapDisablesUnsafePOI(t *testing.T) {
	g := tenByTenWithCenterObstacle(t)
	g.Inflate(geometry.Decimeters, 0.15)
	nav := navgraph.Build(g)

	r := NewRegistry(nil)
	require.NoError(t, r.Add("unsafe", Pickup, geometry.Coord{X: 5, Y: 5}, true, nil))
	require.NoError(t, r.Add("safe", Dropoff, geometry.Coord{X: 2, Y: 2}, true, nil))

	r.ValidateAndMap(nav, g, 0)

	unsafe, ok := r.ByID("unsafe")
	require.True(t, ok)
	require.False(t, unsafe.IsActive)
	require.False(t, unsafe.HasNode)

	safe, ok := r.ByID("safe")
	require.True(t, ok)
	require.True(t, safe.IsActive)
	require.True(t, safe.HasNode)
}

func TestValidateAndMapRejectsBeyondMaxDistance(t *testing.T) {
	g := tenByTenWithCenterObstacle(t)
	nav := navgraph.Build(g)

	r := NewRegistry(nil)
	require.NoError(t, r.Add("far", Pickup, geometry.Coord{X: 0, Y: 0}, true, nil))

	r.ValidateAndMap(nav, g, 0.001)

	far, ok := r.ByID("far")
	require.True(t, ok)
	require.False(t, far.IsActive)
}

func TestNodesOfTypeAndPOIsAtNode(t *testing.T) {
	g := tenByTenWithCenterObstacle(t)
	nav := navgraph.Build(g)

	r := NewRegistry(nil)
	require.NoError(t, r.Add("charge1", Charging, geometry.Coord{X: 0, Y: 0}, true, nil))
	require.NoError(t, r.Add("pick1", Pickup, geometry.Coord{X: 0, Y: 1}, true, nil))
	r.ValidateAndMap(nav, g, 0)

	chargers := r.NodesOfType(Charging, true)
	require.Len(t, chargers, 1)

	pois := r.POIsAtNode(chargers[0])
	found := false
	for _, p := range pois {
		if p.ID == "charge1" {
			found = true
		}
	}
	require.True(t, found)
}

func TestLoadFromJSONAggregatesPerEntryErrors(t *testing.T) {
	doc := `{
		"pois": [
			{"id": "a", "type": "PICKUP", "x": 0, "y": 0},
			{"id": "a", "type": "DROPOFF", "x": 1, "y": 1},
			{"id": "b", "type": "CHARGER", "x": 2, "y": 2}
		]
	}`
	r := NewRegistry(nil)
	err := r.LoadFromJSON(strings.NewReader(doc))
	require.Error(t, err)

	_, ok := r.ByID("a")
	require.True(t, ok)
	b, ok := r.ByID("b")
	require.True(t, ok)
	require.Equal(t, Charging, b.Type)
}
