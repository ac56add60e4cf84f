// Package grid implements the static occupancy map (C1) and its
// safety-inflated configuration-space view.
//
// Grounded on backend/layer1/{StaticBitMap,InflatedBitMap}.{hh,cc} in
// original_source/: first line "W H", then H rows of '#'/'.'; inflation by
// precomputed disk offsets plus an independent top/bottom, left/right
// border pass.
package grid

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/elektrokombinacija/fleetctl/internal/geometry"
)

// ErrKind classifies a LoadError.
type ErrKind int

const (
	ErrIO ErrKind = iota
	ErrParse
	ErrEmptyGrid
)

// LoadError is returned for any failure while parsing a bitmap.
type LoadError struct {
	Kind ErrKind
	Msg  string
}

func (e *LoadError) Error() string { return "grid: " + e.Msg }

func newLoadErr(kind ErrKind, format string, args ...interface{}) *LoadError {
	return &LoadError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Grid holds the static obstacle buffer and its robot-radius-inflated
// safety view. Both buffers are W*H flat booleans where true means
// accessible. Constructed once, read-only thereafter.
type Grid struct {
	width, height    int
	resolution       geometry.Resolution
	static           []bool // true = accessible (free)
	inflated         []bool // true = accessible after inflation
	inflationRadiusPx int
}

// Width returns the grid width in pixels.
func (g *Grid) Width() int { return g.width }

// Height returns the grid height in pixels.
func (g *Grid) Height() int { return g.height }

// Resolution returns the pixel-to-meters resolution.
func (g *Grid) Resolution() geometry.Resolution { return g.resolution }

// InflationRadiusPixels returns the number of pixels obstacles were grown by.
func (g *Grid) InflationRadiusPixels() int { return g.inflationRadiusPx }

func (g *Grid) inBounds(c geometry.Coord) bool {
	return c.X >= 0 && c.X < g.width && c.Y >= 0 && c.Y < g.height
}

func (g *Grid) index(c geometry.Coord) int { return c.Y*g.width + c.X }

// IsAccessibleStatic reports whether a cell is free in the raw bitmap.
func (g *Grid) IsAccessibleStatic(c geometry.Coord) bool {
	if !g.inBounds(c) {
		return false
	}
	return g.static[g.index(c)]
}

// IsAccessibleSafe reports whether a cell is free in the inflated view.
func (g *Grid) IsAccessibleSafe(c geometry.Coord) bool {
	if !g.inBounds(c) {
		return false
	}
	return g.inflated[g.index(c)]
}

// RawStatic exposes the raw static buffer (read-only use expected).
func (g *Grid) RawStatic() []bool { return g.static }

// RawInflated exposes the raw inflated buffer (read-only use expected).
func (g *Grid) RawInflated() []bool { return g.inflated }

// Load parses the §6 bitmap format from r: first line "W H", then
// exactly H lines of exactly W characters ('.' free, '#' obstacle).
func Load(r io.Reader) (*Grid, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		return nil, newLoadErr(ErrIO, "empty input, expected dimensions header")
	}
	var w, h int
	if _, err := fmt.Sscanf(scanner.Text(), "%d %d", &w, &h); err != nil {
		return nil, newLoadErr(ErrParse, "invalid dimensions header %q: %v", scanner.Text(), err)
	}
	if w <= 0 || h <= 0 {
		return nil, newLoadErr(ErrEmptyGrid, "dimensions must be positive, got %dx%d", w, h)
	}

	static := make([]bool, w*h)
	rows := 0
	for scanner.Scan() && rows < h {
		line := scanner.Text()
		if len(line) != w {
			return nil, newLoadErr(ErrParse, "row %d has length %d, want %d", rows, len(line), w)
		}
		for x, ch := range line {
			switch ch {
			case '.':
				static[rows*w+x] = true
			case '#':
				static[rows*w+x] = false
			default:
				return nil, newLoadErr(ErrParse, "unknown character %q at row %d col %d", ch, rows, x)
			}
		}
		rows++
	}
	if err := scanner.Err(); err != nil {
		return nil, newLoadErr(ErrIO, "reading bitmap: %v", err)
	}
	if rows != h {
		return nil, newLoadErr(ErrParse, "expected %d rows, got %d", h, rows)
	}

	return &Grid{width: w, height: h, static: static}, nil
}

// WriteBitmap serializes the static buffer back into the §6 text format,
// satisfying the load→export→reload round-trip property (§8).
func (g *Grid) WriteBitmap(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%d %d\n", g.width, g.height); err != nil {
		return err
	}
	var sb strings.Builder
	sb.Grow(g.width)
	for y := 0; y < g.height; y++ {
		sb.Reset()
		for x := 0; x < g.width; x++ {
			if g.static[y*g.width+x] {
				sb.WriteByte('.')
			} else {
				sb.WriteByte('#')
			}
		}
		sb.WriteByte('\n')
		if _, err := bw.WriteString(sb.String()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Inflate computes the safety-inflated view in-place, given the robot
// radius in meters. ρ = ceil(robotRadiusMeters / metersPerPixel); every
// cell within ρ of an obstacle (disk, not square) is blocked, plus a
// ρ-pixel border on all four sides of the map.
func (g *Grid) Inflate(resolution geometry.Resolution, robotRadiusMeters float64) {
	g.resolution = resolution
	metersPerPixel := resolution.MetersPerPixel()
	rho := int(math.Ceil(robotRadiusMeters / metersPerPixel))
	g.inflationRadiusPx = rho

	inflated := make([]bool, len(g.static))
	copy(inflated, g.static)

	type offset struct{ dx, dy int }
	var offsets []offset
	rho2 := rho * rho
	for dy := -rho; dy <= rho; dy++ {
		for dx := -rho; dx <= rho; dx++ {
			if dx*dx+dy*dy <= rho2 {
				offsets = append(offsets, offset{dx, dy})
			}
		}
	}

	w, h := g.width, g.height
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if g.static[y*w+x] {
				continue // only obstacles inflate their surroundings
			}
			for _, o := range offsets {
				nx, ny := x+o.dx, y+o.dy
				if nx >= 0 && nx < w && ny >= 0 && ny < h {
					inflated[ny*w+nx] = false
				}
			}
		}
	}

	// Boundary inflation: independent top/bottom then left/right passes,
	// mirroring InflatedBitMap.cc exactly (not a uniform border helper).
	for y := 0; y < rho && y < h; y++ {
		for x := 0; x < w; x++ {
			inflated[y*w+x] = false
			bottomY := h - 1 - y
			if bottomY >= 0 && bottomY != y {
				inflated[bottomY*w+x] = false
			}
		}
	}
	for x := 0; x < rho && x < w; x++ {
		for y := rho; y < h-rho; y++ {
			if y < 0 || y >= h {
				continue
			}
			inflated[y*w+x] = false
			rightX := w - 1 - x
			if rightX >= 0 && rightX != x {
				inflated[y*w+rightX] = false
			}
		}
	}

	g.inflated = inflated
}

// InflationStats returns the walkable-cell counts before and after
// inflation, and the number of cells closed.
func (g *Grid) InflationStats() (originalWalkable, inflatedWalkable, closed int) {
	for i := range g.static {
		if g.static[i] {
			originalWalkable++
		}
		if g.inflated[i] {
			inflatedWalkable++
		}
	}
	closed = originalWalkable - inflatedWalkable
	return
}
