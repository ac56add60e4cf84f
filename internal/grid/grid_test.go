package grid

import (
	"bytes"
	"strings"
	"testing"

	"github.com/elektrokombinacija/fleetctl/internal/geometry"
	"github.com/stretchr/testify/require"
)

func tenByTenWithCenterObstacle() string {
	rows := make([]string, 10)
	for y := 0; y < 10; y++ {
		row := strings.Repeat(".", 10)
		if y == 5 {
			row = row[:5] + "#" + row[6:]
		}
		rows[y] = row
	}
	return "10 10\n" + strings.Join(rows, "\n") + "\n"
}

func TestLoadParsesDimensionsAndCells(t *testing.T) {
	g, err := Load(strings.NewReader(tenByTenWithCenterObstacle()))
	require.NoError(t, err)
	require.Equal(t, 10, g.Width())
	require.Equal(t, 10, g.Height())
	require.False(t, g.IsAccessibleStatic(geometry.Coord{X: 5, Y: 5}))
	require.True(t, g.IsAccessibleStatic(geometry.Coord{X: 0, Y: 0}))
}

func TestLoadRejectsUnknownCharacter(t *testing.T) {
	_, err := Load(strings.NewReader("2 1\nXY\n"))
	require.Error(t, err)
	var lerr *LoadError
	require.ErrorAs(t, err, &lerr)
	require.Equal(t, ErrParse, lerr.Kind)
}

func TestLoadRejectsRowLengthMismatch(t *testing.T) {
	_, err := Load(strings.NewReader("3 1\n..\n"))
	require.Error(t, err)
}

// E1: zero radius inflation leaves the grid unchanged (invariant 1, §8).
func TestInflateZeroRadiusIsIdentity(t *testing.T) {
	g, err := Load(strings.NewReader(tenByTenWithCenterObstacle()))
	require.NoError(t, err)
	g.Inflate(geometry.Decimeters, 0.0)

	require.Equal(t, g.RawStatic(), g.RawInflated())
	require.Equal(t, 0, g.InflationRadiusPixels())
}

// E2: a modest robot radius should close off the obstacle's surroundings.
func TestInflateClosesNeighborsOfObstacle(t *testing.T) {
	g, err := Load(strings.NewReader(tenByTenWithCenterObstacle()))
	require.NoError(t, err)
	g.Inflate(geometry.Decimeters, 0.15) // 0.15m / 0.1 m/px = ceil(1.5) = 2px

	require.False(t, g.IsAccessibleSafe(geometry.Coord{X: 5, Y: 5}))
	require.False(t, g.IsAccessibleSafe(geometry.Coord{X: 4, Y: 5}))
	require.False(t, g.IsAccessibleSafe(geometry.Coord{X: 6, Y: 5}))
}

// Invariant 1 (§8): inflated(c) ⇒ static(c).
func TestInflatedImpliesStatic(t *testing.T) {
	g, err := Load(strings.NewReader(tenByTenWithCenterObstacle()))
	require.NoError(t, err)
	g.Inflate(geometry.Decimeters, 0.3)

	for i := range g.RawInflated() {
		if g.RawInflated()[i] {
			require.True(t, g.RawStatic()[i], "cell %d accessible when inflated but not static", i)
		}
	}
}

func TestBitmapRoundTrip(t *testing.T) {
	g, err := Load(strings.NewReader(tenByTenWithCenterObstacle()))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, g.WriteBitmap(&buf))

	g2, err := Load(&buf)
	require.NoError(t, err)
	require.Equal(t, g.RawStatic(), g2.RawStatic())
}

func TestInflationStats(t *testing.T) {
	g, err := Load(strings.NewReader(tenByTenWithCenterObstacle()))
	require.NoError(t, err)
	g.Inflate(geometry.Decimeters, 0.15)

	orig, inflatedCount, closed := g.InflationStats()
	require.Equal(t, 99, orig)
	require.Less(t, inflatedCount, orig)
	require.Equal(t, orig-inflatedCount, closed)
}
