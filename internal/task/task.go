// Package task implements the logical Layer-P data model (Task and
// RobotAgent) plus the §6 Task JSON ingest contract (string-id and legacy
// numeric-id variants), resolved against a POI registry.
//
// Grounded on backend/layer2/Task.hh and backend/layer2/RobotAgent.hh in
// original_source/ for the field layout, and on internal/poi's
// LoadFromJSON (the teacher's own per-entry multierr aggregation pattern)
// for ingest error handling.
package task

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/elektrokombinacija/fleetctl/internal/navgraph"
	"github.com/elektrokombinacija/fleetctl/internal/poi"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Task is one pickup-to-dropoff job, resolved to nav-graph nodes.
type Task struct {
	ID            string
	SourceNode    navgraph.NodeID
	DestNode      navgraph.NodeID
	SourceIDStr   string // original POI id, if resolved via string ids
	DestIDStr     string
}

// Status is a RobotAgent's logical Layer-P status.
type Status int

const (
	StatusIdle Status = iota
	StatusMoving
	StatusCharging
	StatusWaiting
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusMoving:
		return "MOVING"
	case StatusCharging:
		return "CHARGING"
	case StatusWaiting:
		return "WAITING"
	default:
		return "UNKNOWN"
	}
}

// Agent is the logical Layer-P view of a robot (§3 RobotAgent): identity,
// current node, battery, and the itinerary/assigned-task queues the
// orchestrator drives against. It has no physical position of its own;
// that lives in the driver package's Driver.
type Agent struct {
	ID               string
	CurrentNodeID    navgraph.NodeID
	BatteryPercent   float64
	BatteryLifespanS float64 // seconds of continuous motion on a full charge
	RechargeTimeS    float64 // seconds to recharge from 0 to 100%
	Itinerary        []navgraph.NodeID
	AssignedTasks    []string
	Status           Status
}

// NewAgent returns an idle agent starting at node, battery full.
func NewAgent(id string, start navgraph.NodeID, batteryLifespanS, rechargeTimeS float64) *Agent {
	return &Agent{
		ID:               id,
		CurrentNodeID:    start,
		BatteryPercent:   100,
		BatteryLifespanS: batteryLifespanS,
		RechargeTimeS:    rechargeTimeS,
		Status:           StatusIdle,
	}
}

// PushItinerary appends nodes to the agent's itinerary and records the task
// id as assigned.
func (a *Agent) PushItinerary(taskID string, nodes ...navgraph.NodeID) {
	a.Itinerary = append(a.Itinerary, nodes...)
	a.AssignedTasks = append(a.AssignedTasks, taskID)
}

// PopNextNode removes and returns the front itinerary node, if any.
func (a *Agent) PopNextNode() (navgraph.NodeID, bool) {
	if len(a.Itinerary) == 0 {
		return 0, false
	}
	n := a.Itinerary[0]
	a.Itinerary = a.Itinerary[1:]
	return n, true
}

// PopCompletedTask removes and returns the oldest still-assigned task id.
// Called by the orchestrator when a robot finishes a pickup+dropoff pair
// (every two waypoints visited, §4.11).
func (a *Agent) PopCompletedTask() (string, bool) {
	if len(a.AssignedTasks) == 0 {
		return "", false
	}
	id := a.AssignedTasks[0]
	a.AssignedTasks = a.AssignedTasks[1:]
	return id, true
}

// Error reports a non-fatal task-ingest problem (§7: unresolved id ->
// drop + WARN).
type Error struct {
	TaskRef string
	Msg     string
}

func (e *Error) Error() string { return fmt.Sprintf("task %s: %s", e.TaskRef, e.Msg) }

// rawTask mirrors the §6 Task JSON entry. source/destination arrive as
// either a POI id string or a legacy integer node id, so both are decoded
// into json.RawMessage and disambiguated by resolve.
type rawTask struct {
	ID          json.Number     `json:"id"`
	Source      json.RawMessage `json:"source"`
	Destination json.RawMessage `json:"destination"`
}

type rawFile struct {
	Tasks []rawTask `json:"tasks"`
}

// LoadFromJSON parses the §6 Task JSON format, resolving string ids via
// registry and accepting the legacy integer node-id variant directly.
// Tasks with unresolved ids are dropped with a warning (§7 POIError
// analog); the aggregate of per-entry errors is returned via multierr, or
// nil if every entry loaded.
func LoadFromJSON(reader io.Reader, registry *poi.Registry, log *zap.SugaredLogger) ([]Task, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	log = log.Named("task")

	var raw rawFile
	dec := json.NewDecoder(reader)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("task: invalid json: %w", err)
	}

	var errs error
	out := make([]Task, 0, len(raw.Tasks))
	for i, rt := range raw.Tasks {
		ref := rt.ID.String()
		if ref == "" {
			ref = fmt.Sprintf("#%d", i)
		}

		srcNode, srcStr, err := resolveEndpoint(rt.Source, registry)
		if err != nil {
			errs = multierr.Append(errs, &Error{TaskRef: ref, Msg: fmt.Sprintf("source: %v", err)})
			log.Warnw("dropping task with unresolved source", "task", ref, "err", err)
			continue
		}
		dstNode, dstStr, err := resolveEndpoint(rt.Destination, registry)
		if err != nil {
			errs = multierr.Append(errs, &Error{TaskRef: ref, Msg: fmt.Sprintf("destination: %v", err)})
			log.Warnw("dropping task with unresolved destination", "task", ref, "err", err)
			continue
		}

		out = append(out, Task{
			ID:          ref,
			SourceNode:  srcNode,
			DestNode:    dstNode,
			SourceIDStr: srcStr,
			DestIDStr:   dstStr,
		})
	}
	log.Infow("loaded tasks", "count", len(out), "total_entries", len(raw.Tasks))
	return out, errs
}

// resolveEndpoint accepts either a quoted POI id string (resolved via
// registry) or a bare integer (treated as a legacy node id directly).
func resolveEndpoint(raw json.RawMessage, registry *poi.Registry) (navgraph.NodeID, string, error) {
	if len(raw) == 0 {
		return 0, "", fmt.Errorf("missing endpoint")
	}

	var asStr string
	if err := json.Unmarshal(raw, &asStr); err == nil {
		if registry == nil {
			return 0, "", fmt.Errorf("POI id %q given but no registry to resolve against", asStr)
		}
		node, ok := registry.NodeForPOI(asStr)
		if !ok {
			return 0, "", fmt.Errorf("unresolved POI id %q", asStr)
		}
		return node, asStr, nil
	}

	var asInt int
	if err := json.Unmarshal(raw, &asInt); err == nil {
		return navgraph.NodeID(asInt), "", nil
	}

	return 0, "", fmt.Errorf("endpoint is neither a string id nor an integer node id")
}
