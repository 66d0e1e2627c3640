package engine

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/piwi3910/PitPlan/internal/geometry"
	"github.com/piwi3910/PitPlan/internal/model"
)

// ComputePlanStats simulates the plan against the point set and returns what
// each item extracts. Items on the same region draw from a shared pool in plan
// order, so a later item only sees what earlier items left behind. Valid start
// angle tables are read from the regions.
//
// Items on unknown regions, with zero quantity or against an exhausted pool
// extract nothing. The function is pure and safe for concurrent use.
func ComputePlanStats(regions []model.Region, plan []model.PlanItem, points []model.Point) model.PlanOutcome {
	outcome := model.PlanOutcome{Items: make([]model.ItemOutcome, 0, len(plan))}
	pools := make(map[string][]model.Point)

	var counts, grades []float64
	for _, item := range plan {
		angle := model.NormalizeAngle(float64(item.Angle))
		res := model.ItemOutcome{
			ItemID:            item.ID,
			RegionKey:         item.RegionKey,
			Angle:             angle,
			RequestedQuantity: max(item.Quantity, 0),
		}

		region := model.FindRegion(regions, item.RegionKey)
		if region == nil {
			outcome.Items = append(outcome.Items, res)
			continue
		}
		res.InvalidStart = invalidStart(region.ValidStartAngles, angle)

		pool, ok := pools[region.Key]
		if !ok {
			pool = geometry.RegionPoints(*region, points)
		}

		dir := geometry.BearingVector(angle)
		taken, rest := extract(pool, dir, res.RequestedQuantity)
		pools[region.Key] = rest

		if len(taken) > 0 {
			res.ExtractedPoints = taken
			res.ExtractedPointCount = len(taken)
			res.ExtractedAverageGrade = meanGrade(taken)
			res.ExtractionFootprint = geometry.ClipFootprintByHalfPlane(region.Footprint, dir, minProjection(taken, dir))

			counts = append(counts, float64(res.ExtractedPointCount))
			grades = append(grades, res.ExtractedAverageGrade)
			outcome.ExtractedPointCount += res.ExtractedPointCount
		}
		outcome.Items = append(outcome.Items, res)
	}

	if outcome.ExtractedPointCount > 0 {
		outcome.AverageGrade = stat.Mean(grades, counts)
	}
	return outcome
}

// invalidStart reports whether the table marks the angle as obstructed.
// Incomplete tables carry no information and never flag an item.
func invalidStart(table []bool, angle int) bool {
	if len(table) < model.AngleTableSize {
		return false
	}
	return !table[angle]
}

// depthOrder returns the pool indices sorted by depth from the far boundary
// along dir, shallowest first. Ties keep pool order.
func depthOrder(pool []model.Point, dir model.Vertex) []int {
	proj := make([]float64, len(pool))
	for i, p := range pool {
		proj[i] = p.X*dir.X + p.Y*dir.Y
	}
	order := make([]int, len(pool))
	for i := range order {
		order[i] = i
	}
	// depth = maxProj - proj, so ascending depth is descending projection
	sort.SliceStable(order, func(a, b int) bool {
		return proj[order[a]] > proj[order[b]]
	})
	return order
}

// extract takes up to quantity points from the pool along dir and returns the
// taken points plus the remaining pool in its original order.
func extract(pool []model.Point, dir model.Vertex, quantity int) (taken, rest []model.Point) {
	if quantity <= 0 || len(pool) == 0 {
		return nil, pool
	}
	order := depthOrder(pool, dir)
	n := min(quantity, len(pool))

	removed := make([]bool, len(pool))
	taken = make([]model.Point, n)
	for i := 0; i < n; i++ {
		taken[i] = pool[order[i]]
		removed[order[i]] = true
	}
	rest = make([]model.Point, 0, len(pool)-n)
	for i, p := range pool {
		if !removed[i] {
			rest = append(rest, p)
		}
	}
	return taken, rest
}

func meanGrade(points []model.Point) float64 {
	w := make([]float64, len(points))
	for i, p := range points {
		w[i] = p.W
	}
	return stat.Mean(w, nil)
}

func minProjection(points []model.Point, dir model.Vertex) float64 {
	m := points[0].X*dir.X + points[0].Y*dir.Y
	for _, p := range points[1:] {
		m = min(m, p.X*dir.X+p.Y*dir.Y)
	}
	return m
}

// RegionSummary aggregates a plan outcome per region for reports.
type RegionSummary struct {
	RegionKey     string
	Name          string
	PointCount    int
	Extracted     int
	Remaining     int
	AverageGrade  float64 // mean grade of the extracted points
	ItemCount     int
	InvalidStarts int
}

// SummarizeRegions groups item outcomes by region, in region order.
// Regions without items are included with zero extraction.
func SummarizeRegions(regions []model.Region, outcome model.PlanOutcome) []RegionSummary {
	type acc struct {
		counts, grades []float64
		summary        RegionSummary
	}
	byKey := make(map[string]*acc, len(regions))
	out := make([]*acc, len(regions))
	for i, r := range regions {
		a := &acc{summary: RegionSummary{RegionKey: r.Key, Name: r.Name, PointCount: r.PointCount}}
		out[i] = a
		if _, dup := byKey[r.Key]; !dup {
			byKey[r.Key] = a
		}
	}

	for _, it := range outcome.Items {
		a, ok := byKey[it.RegionKey]
		if !ok {
			continue
		}
		a.summary.ItemCount++
		if it.InvalidStart {
			a.summary.InvalidStarts++
		}
		if it.ExtractedPointCount > 0 {
			a.summary.Extracted += it.ExtractedPointCount
			a.counts = append(a.counts, float64(it.ExtractedPointCount))
			a.grades = append(a.grades, it.ExtractedAverageGrade)
		}
	}

	summaries := make([]RegionSummary, len(out))
	for i, a := range out {
		s := a.summary
		if s.Extracted > 0 {
			s.AverageGrade = stat.Mean(a.grades, a.counts)
		}
		s.Remaining = max(s.PointCount-s.Extracted, 0)
		summaries[i] = s
	}
	return summaries
}
