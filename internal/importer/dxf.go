package importer

import (
	"fmt"
	"math"
	"sort"

	"github.com/piwi3910/PitPlan/internal/model"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/entity"
)

// segment represents a line segment between two vertices, used for
// chaining disconnected LINE entities into closed footprints.
type segment struct {
	start model.Vertex
	end   model.Vertex
}

// minFootprintExtent is the smallest bounding box side accepted for a region.
const minFootprintExtent = 0.01

// ImportRegionsDXF imports region footprints from a DXF file. Each closed shape
// (LWPOLYLINE, CIRCLE, or chain of connected LINEs/ARCs) becomes a Region
// spanning minZ to maxZ. Footprints keep their world coordinates.
func ImportRegionsDXF(path string, minZ, maxZ float64) ImportResult {
	result := ImportResult{}

	if math.IsNaN(minZ) || math.IsNaN(maxZ) {
		result.Errors = append(result.Errors, "Region elevation range must be numeric")
		return result
	}

	drawing, err := dxf.Open(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open DXF file: %v", err))
		return result
	}

	entities := drawing.Entities()
	if len(entities) == 0 {
		result.Errors = append(result.Errors, "DXF file contains no entities")
		return result
	}

	var footprints []model.Footprint
	var segments []segment

	for _, ent := range entities {
		switch e := ent.(type) {
		case *entity.LwPolyline:
			fp := lwPolylineToFootprint(e)
			if len(fp) >= 3 {
				footprints = append(footprints, fp)
			} else {
				result.Warnings = append(result.Warnings,
					"Skipped LWPOLYLINE with fewer than 3 vertices")
			}

		case *entity.Circle:
			footprints = append(footprints, circleToFootprint(e, 64))

		case *entity.Arc:
			pts := arcToVertices(e, 32)
			if len(pts) >= 2 {
				segments = append(segments, verticesToSegments(pts)...)
			}

		case *entity.Line:
			segments = append(segments, segment{
				start: model.Vertex{X: e.Start[0], Y: e.Start[1]},
				end:   model.Vertex{X: e.End[0], Y: e.End[1]},
			})
		}
	}

	// Chain loose segments (LINEs and ARCs) into closed footprints
	footprints = append(footprints, chainSegments(segments, 0.01)...)

	if len(footprints) == 0 {
		result.Errors = append(result.Errors, "No closed shapes found in DXF file")
		return result
	}

	regionNum := 0
	for _, fp := range footprints {
		min, max := fp.BoundingBox()
		width := max.X - min.X
		depth := max.Y - min.Y
		if width < minFootprintExtent || depth < minFootprintExtent {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Skipped degenerate shape (%.2f x %.2f)", width, depth))
			continue
		}

		regionNum++
		result.Regions = append(result.Regions,
			model.NewRegion(fmt.Sprintf("DXF Region %d", regionNum), fp, minZ, maxZ))
	}

	return result
}

// lwPolylineToFootprint converts a DXF LWPOLYLINE entity to a footprint.
// A non-zero bulge on a vertex turns the edge leaving it into an arc.
func lwPolylineToFootprint(lw *entity.LwPolyline) model.Footprint {
	n := len(lw.Vertices)
	fp := make(model.Footprint, 0, n)
	for i, v := range lw.Vertices {
		from := model.Vertex{X: v[0], Y: v[1]}
		if i >= len(lw.Bulges) || math.Abs(lw.Bulges[i]) <= 1e-9 {
			fp = append(fp, from)
			continue
		}
		w := lw.Vertices[(i+1)%n]
		arc := bulgeArcVertices(from, model.Vertex{X: w[0], Y: w[1]}, lw.Bulges[i], 32)
		fp = append(fp, arc[:len(arc)-1]...)
	}
	return dropClosingVertex(fp)
}

// bulgeArcVertices generates vertices along an arc defined by two endpoints and a
// DXF bulge factor. The bulge is the tangent of 1/4 the included angle.
func bulgeArcVertices(p1, p2 model.Vertex, bulge float64, numSegments int) []model.Vertex {
	chord := math.Hypot(p2.X-p1.X, p2.Y-p1.Y)
	if chord < 1e-9 {
		return []model.Vertex{p1, p2}
	}

	// Signed sweep: positive bulge runs counter-clockwise
	sweep := 4 * math.Atan(bulge)
	nx := -(p2.Y - p1.Y) / chord
	ny := (p2.X - p1.X) / chord
	offset := chord / 2 / math.Tan(sweep/2)
	center := model.Vertex{
		X: (p1.X+p2.X)/2 + nx*offset,
		Y: (p1.Y+p2.Y)/2 + ny*offset,
	}

	radius := math.Hypot(p1.X-center.X, p1.Y-center.Y)
	start := math.Atan2(p1.Y-center.Y, p1.X-center.X)
	pts := sweepPoints(center, radius, start, sweep, numSegments)
	// Land exactly on the next vertex
	pts[numSegments] = p2
	return pts
}

// sweepPoints samples steps+1 points on a circle, starting at angle start
// (radians) and turning by sweep.
func sweepPoints(center model.Vertex, r, start, sweep float64, steps int) []model.Vertex {
	pts := make([]model.Vertex, steps+1)
	for i := range pts {
		a := start + sweep*float64(i)/float64(steps)
		pts[i] = model.Vertex{X: center.X + r*math.Cos(a), Y: center.Y + r*math.Sin(a)}
	}
	return pts
}

// circleToFootprint approximates a circle as a regular polygon.
func circleToFootprint(c *entity.Circle, numSegments int) model.Footprint {
	center := model.Vertex{X: c.Center[0], Y: c.Center[1]}
	pts := sweepPoints(center, c.Radius, 0, 2*math.Pi, numSegments)
	return model.Footprint(pts[:numSegments])
}

// arcToVertices converts a DXF ARC entity to a series of vertices. DXF arcs
// always run counter-clockwise from the start angle to the end angle.
func arcToVertices(a *entity.Arc, numSegments int) []model.Vertex {
	center := model.Vertex{X: a.Circle.Center[0], Y: a.Circle.Center[1]}
	from := a.Angle[0] * math.Pi / 180
	sweep := math.Mod(a.Angle[1]-a.Angle[0], 360)
	if sweep <= 0 {
		sweep += 360
	}
	return sweepPoints(center, a.Circle.Radius, from, sweep*math.Pi/180, numSegments)
}

func verticesToSegments(pts []model.Vertex) []segment {
	segs := make([]segment, 0, len(pts)-1)
	for i := 0; i < len(pts)-1; i++ {
		segs = append(segs, segment{start: pts[i], end: pts[i+1]})
	}
	return segs
}

// chainSegments connects individual segments into closed footprints.
// tolerance is the maximum distance between endpoints to consider them connected.
// Open chains are discarded.
func chainSegments(segs []segment, tolerance float64) []model.Footprint {
	if len(segs) == 0 {
		return nil
	}

	used := make([]bool, len(segs))
	var footprints []model.Footprint

	for {
		startIdx := -1
		for i, u := range used {
			if !u {
				startIdx = i
				break
			}
		}
		if startIdx == -1 {
			break
		}

		chain := []model.Vertex{segs[startIdx].start, segs[startIdx].end}
		used[startIdx] = true

		changed := true
		for changed {
			changed = false
			tail := chain[len(chain)-1]

			for i, seg := range segs {
				if used[i] {
					continue
				}
				if verticesClose(tail, seg.start, tolerance) {
					chain = append(chain, seg.end)
					used[i] = true
					changed = true
					break
				}
				if verticesClose(tail, seg.end, tolerance) {
					chain = append(chain, seg.start)
					used[i] = true
					changed = true
					break
				}
			}
		}

		if len(chain) < 4 || !verticesClose(chain[0], chain[len(chain)-1], tolerance) {
			continue
		}
		footprints = append(footprints, model.Footprint(chain[:len(chain)-1]))
	}

	// Largest first for a stable ordering
	sort.SliceStable(footprints, func(i, j int) bool {
		return footprintArea(footprints[i]) > footprintArea(footprints[j])
	})

	return footprints
}

// dropClosingVertex removes a final vertex that repeats the first one.
func dropClosingVertex(fp model.Footprint) model.Footprint {
	if len(fp) > 3 && verticesClose(fp[0], fp[len(fp)-1], 1e-9) {
		return fp[:len(fp)-1]
	}
	return fp
}

func verticesClose(a, b model.Vertex, tolerance float64) bool {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx+dy*dy) <= tolerance
}

// footprintArea computes the absolute area of a polygon using the shoelace formula.
func footprintArea(fp model.Footprint) float64 {
	n := len(fp)
	if n < 3 {
		return 0
	}
	var area float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += fp[i].X * fp[j].Y
		area -= fp[j].X * fp[i].Y
	}
	return math.Abs(area) / 2
}
