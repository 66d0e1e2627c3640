// Package geometry implements the region geometry used by feasibility testing,
// extraction simulation and reporting. All functions are pure.
package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/piwi3910/PitPlan/internal/model"
)

// ring converts a footprint to an orb ring. The ring is left open; orb's
// containment test closes it implicitly.
func ring(f model.Footprint) orb.Ring {
	r := make(orb.Ring, len(f))
	for i, v := range f {
		r[i] = orb.Point{v.X, v.Y}
	}
	return r
}

// FootprintContains reports whether (x, y) lies inside the footprint using an
// even-odd ray cast. Points on the boundary count as inside.
func FootprintContains(f model.Footprint, x, y float64) bool {
	if !f.Valid() {
		return false
	}
	return planar.RingContains(ring(f), orb.Point{x, y})
}

// PointInRegion reports whether p lies inside the region's prism.
func PointInRegion(p model.Point, r model.Region) bool {
	if p.Z < r.MinZ || p.Z > r.MaxZ {
		return false
	}
	return FootprintContains(r.Footprint, p.X, p.Y)
}

// RegionCenter returns the centre of the footprint's bounding box. It is the
// reference origin for every directional computation on the region.
func RegionCenter(r model.Region) model.Vertex {
	if len(r.Footprint) == 0 {
		return model.Vertex{}
	}
	c := ring(r.Footprint).Bound().Center()
	return model.Vertex{X: c[0], Y: c[1]}
}

// BearingVector returns the unit vector for an integer-degree bearing,
// measured counterclockwise from +X.
func BearingVector(angle int) model.Vertex {
	rad := float64(model.NormalizeAngle(float64(angle))) * math.Pi / 180
	return model.Vertex{X: math.Cos(rad), Y: math.Sin(rad)}
}

// DistanceToBoundary returns how far the footprint extends from origin along
// direction: the maximum projection of its vertices onto direction.
func DistanceToBoundary(f model.Footprint, origin, direction model.Vertex) float64 {
	if len(f) == 0 {
		return 0
	}
	best := math.Inf(-1)
	for _, v := range f {
		d := (v.X-origin.X)*direction.X + (v.Y-origin.Y)*direction.Y
		if d > best {
			best = d
		}
	}
	return best
}

// RegionPoints returns the points inside the region, preserving input order.
func RegionPoints(r model.Region, points []model.Point) []model.Point {
	if !r.Footprint.Valid() {
		return nil
	}
	rg := ring(r.Footprint)
	bound := rg.Bound()
	var out []model.Point
	for _, p := range points {
		if p.Z < r.MinZ || p.Z > r.MaxZ {
			continue
		}
		pt := orb.Point{p.X, p.Y}
		if !bound.Contains(pt) {
			continue
		}
		if planar.RingContains(rg, pt) {
			out = append(out, p)
		}
	}
	return out
}

// ComputeRegionStats counts the region's member points and summarizes their grades.
func ComputeRegionStats(r model.Region, points []model.Point) model.RegionStats {
	members := RegionPoints(r, points)
	if len(members) == 0 {
		return model.RegionStats{}
	}
	stats := model.RegionStats{
		PointCount: len(members),
		MinW:       members[0].W,
		MaxW:       members[0].W,
	}
	var sum float64
	for _, p := range members {
		sum += p.W
		stats.MinW = math.Min(stats.MinW, p.W)
		stats.MaxW = math.Max(stats.MaxW, p.W)
	}
	stats.AvgW = sum / float64(len(members))
	return stats
}
