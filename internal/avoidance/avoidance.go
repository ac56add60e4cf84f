// Package avoidance implements the simplified reciprocal local-avoidance
// filter (C7): it corrects a driver's preferred velocity against nearby
// neighbors before the physics loop integrates it.
//
// Grounded on §4.7 and on internal/core/robot.go in the teacher for the
// Vec2-based velocity arithmetic idiom.
package avoidance

import "github.com/elektrokombinacija/fleetctl/internal/geometry"

// Neighbor is another driver observed this tick.
type Neighbor struct {
	Position geometry.Vec2
	Velocity geometry.Vec2
	Radius   float64
}

// Params configures the avoidance filter (§4.7).
type Params struct {
	SafetyMargin    float64
	TimeHorizon     float64
	MaxSpeed        float64
	Responsiveness  float64
	StopDistance    float64
	SlowdownDistance float64
}

// DefaultParams returns decimeter-resolution defaults consistent with
// RobotDriver's §4.8 defaults (max_speed ≈ 16 px/s).
func DefaultParams() Params {
	return Params{
		SafetyMargin:     2,
		TimeHorizon:      1.0,
		MaxSpeed:         16,
		Responsiveness:   1.0,
		StopDistance:     4,
		SlowdownDistance: 12,
	}
}

// Filter corrects vPref given the driver's own position/radius and its
// currently observed neighbors, returning the velocity to integrate this
// tick (§4.7 steps i-v).
func Filter(p Params, myPos geometry.Vec2, myRadius float64, vPref geometry.Vec2, neighbors []Neighbor) geometry.Vec2 {
	out := vPref

	nearestSurfaceDist := 0.0
	hasNeighbor := false
	for _, n := range neighbors {
		d := myPos.Sub(n.Position).Length() - myRadius - n.Radius
		if !hasNeighbor || d < nearestSurfaceDist {
			nearestSurfaceDist = d
			hasNeighbor = true
		}
	}

	if hasNeighbor {
		switch {
		case nearestSurfaceDist < p.StopDistance:
			out = geometry.Vec2{}
		case nearestSurfaceDist < p.SlowdownDistance:
			span := p.SlowdownDistance - p.StopDistance
			scale := 0.0
			if span > 0 {
				scale = (nearestSurfaceDist - p.StopDistance) / span
			}
			out = out.Scale(scale)
		}
	}

	var repulsion geometry.Vec2
	for _, n := range neighbors {
		diff := myPos.Sub(n.Position)
		dist := diff.Length()
		if dist <= 1e-6 {
			continue
		}
		weight := 1.0 / (dist * dist)
		repulsion = repulsion.Add(diff.Normalized().Scale(weight))
	}
	out = out.Add(repulsion.Scale(p.Responsiveness))

	return out.ClampLength(p.MaxSpeed)
}
