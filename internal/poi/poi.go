// Package poi implements the POI registry (C3): named pickup/dropoff/
// charging locations resolved against the navigation graph and validated
// for safety.
//
// Grounded on backend/layer1/POIRegistry.{hh,cc} in original_source/: type
// synonyms, safety validation (auto-disable unsafe POIs), nearest-node
// linear scan, secondary type/node indices.
package poi

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/elektrokombinacija/fleetctl/internal/geometry"
	"github.com/elektrokombinacija/fleetctl/internal/grid"
	"github.com/elektrokombinacija/fleetctl/internal/navgraph"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Type classifies a point of interest.
type Type int

const (
	Pickup Type = iota
	Dropoff
	Charging
)

func (t Type) String() string {
	switch t {
	case Pickup:
		return "PICKUP"
	case Dropoff:
		return "DROPOFF"
	case Charging:
		return "CHARGING"
	default:
		return "UNKNOWN"
	}
}

// ParseType parses a POI type string case-insensitively, with the legacy
// synonym CHARGER -> CHARGING. Unknown strings fall back to Pickup, matching
// POIRegistry::StringToType's permissive default (see SPEC_FULL.md).
func ParseType(s string) Type {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CHARGING", "CHARGER":
		return Charging
	case "PICKUP":
		return Pickup
	case "DROPOFF":
		return Dropoff
	default:
		return Pickup
	}
}

// Error reports a non-fatal POI-ingest problem (duplicate or missing id);
// ingest continues past these (§7 POIError).
type Error struct {
	ID  string
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("poi %s: %s", e.ID, e.Msg) }

// POI is a named location with a type, resolved against the nav graph.
type POI struct {
	ID             string
	Type           Type
	WorldCoords    geometry.Coord
	NearestNodeID  navgraph.NodeID
	HasNode        bool
	IsActive       bool
	Metadata       map[string]string
}

// Registry indexes POIs by id, type, and resolved node.
type Registry struct {
	log *zap.SugaredLogger

	byID    map[string]int
	all     []POI
	byType  map[Type][]int
	byNode  map[navgraph.NodeID][]int
}

// NewRegistry creates an empty registry.
func NewRegistry(log *zap.SugaredLogger) *Registry {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Registry{
		log:    log.Named("poi"),
		byID:   make(map[string]int),
		byType: make(map[Type][]int),
		byNode: make(map[navgraph.NodeID][]int),
	}
}

// rawPOI mirrors the §6 POI JSON entry shape.
type rawPOI struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	X        int               `json:"x"`
	Y        int               `json:"y"`
	Active   *bool             `json:"active"`
	Metadata map[string]string `json:"metadata"`
}

type rawFile struct {
	POI              []rawPOI `json:"poi"`
	POIs             []rawPOI `json:"pois"`
	PointsOfInterest []rawPOI `json:"points_of_interest"`
}

// LoadFromJSON parses the §6 POI JSON format from r, accepting any of the
// "poi"/"pois"/"points_of_interest" array keys. A duplicate id fails only
// that entry (§7); other entries still load. Returns the aggregate of all
// per-entry failures via multierr, or nil if every entry loaded.
func (r *Registry) LoadFromJSON(reader io.Reader) error {
	var raw rawFile
	dec := json.NewDecoder(reader)
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("poi: invalid json: %w", err)
	}

	entries := raw.POI
	if len(entries) == 0 {
		entries = raw.POIs
	}
	if len(entries) == 0 {
		entries = raw.PointsOfInterest
	}

	var errs error
	loaded := 0
	for _, e := range entries {
		if e.ID == "" {
			errs = multierr.Append(errs, &Error{ID: "<empty>", Msg: "missing id"})
			continue
		}
		active := true
		if e.Active != nil {
			active = *e.Active
		}
		if err := r.Add(e.ID, ParseType(e.Type), geometry.Coord{X: e.X, Y: e.Y}, active, e.Metadata); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		loaded++
	}
	r.log.Infow("loaded POI file", "count", loaded, "total_entries", len(entries))
	return errs
}

// Add registers a new POI. Duplicate ids are rejected (§7).
func (r *Registry) Add(id string, typ Type, coords geometry.Coord, active bool, metadata map[string]string) error {
	if _, exists := r.byID[id]; exists {
		r.log.Warnw("duplicate POI id, skipping", "id", id)
		return &Error{ID: id, Msg: "duplicate id"}
	}

	idx := len(r.all)
	r.all = append(r.all, POI{
		ID:          id,
		Type:        typ,
		WorldCoords: coords,
		IsActive:    active,
		Metadata:    metadata,
	})
	r.byID[id] = idx
	r.byType[typ] = append(r.byType[typ], idx)
	return nil
}

// ValidateAndMap resolves every POI against the nav graph, auto-disabling
// any POI whose coordinate is unsafe (§4.3). maxDistance <= 0 disables the
// distance-rejection check.
func (r *Registry) ValidateAndMap(nav *navgraph.NavGraph, safety *grid.Grid, maxDistance float64) {
	r.byNode = make(map[navgraph.NodeID][]int)

	for i := range r.all {
		p := &r.all[i]
		if !safety.IsAccessibleSafe(p.WorldCoords) {
			r.log.Errorw("CRITICAL: POI unsafe, auto-disabling", "id", p.ID, "x", p.WorldCoords.X, "y", p.WorldCoords.Y)
			p.IsActive = false
			p.HasNode = false
			continue
		}

		nodeID, dist, ok := nav.NearestNode(p.WorldCoords)
		if !ok {
			r.log.Warnw("no nav graph nodes to map POI to", "id", p.ID)
			p.IsActive = false
			p.HasNode = false
			continue
		}
		if maxDistance > 0 && dist > maxDistance {
			r.log.Warnw("POI too far from nearest node, disabling", "id", p.ID, "distance", dist, "max", maxDistance)
			p.IsActive = false
			p.HasNode = false
			continue
		}

		p.NearestNodeID = nodeID
		p.HasNode = true
		if p.IsActive {
			r.byNode[nodeID] = append(r.byNode[nodeID], i)
		}
	}
}

// ByID returns the POI with the given id.
func (r *Registry) ByID(id string) (POI, bool) {
	idx, ok := r.byID[id]
	if !ok {
		return POI{}, false
	}
	return r.all[idx], true
}

// NodeForPOI returns the resolved node id for a POI.
func (r *Registry) NodeForPOI(id string) (navgraph.NodeID, bool) {
	p, ok := r.ByID(id)
	if !ok || !p.HasNode {
		return 0, false
	}
	return p.NearestNodeID, true
}

// POIsAtNode returns every active POI resolved to a given node.
func (r *Registry) POIsAtNode(node navgraph.NodeID) []POI {
	idxs := r.byNode[node]
	out := make([]POI, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, r.all[i])
	}
	return out
}

// NodesOfType returns the sorted, unique set of nav-graph nodes hosting a
// POI of the given type. activeOnly restricts to currently active POIs.
func (r *Registry) NodesOfType(t Type, activeOnly bool) []navgraph.NodeID {
	seen := make(map[navgraph.NodeID]bool)
	for _, idx := range r.byType[t] {
		p := r.all[idx]
		if !p.HasNode {
			continue
		}
		if activeOnly && !p.IsActive {
			continue
		}
		seen[p.NearestNodeID] = true
	}
	nodes := make([]navgraph.NodeID, 0, len(seen))
	for n := range seen {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	return nodes
}

// All returns every registered POI (active and inactive).
func (r *Registry) All() []POI {
	out := make([]POI, len(r.all))
	copy(out, r.all)
	return out
}
