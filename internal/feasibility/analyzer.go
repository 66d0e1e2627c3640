// Package feasibility computes, per region, which approach bearings have a
// start position clear of the point cloud.
package feasibility

import (
	"sync"

	"github.com/piwi3910/PitPlan/internal/geometry"
	"github.com/piwi3910/PitPlan/internal/model"
)

// ComputeValidStartAngles returns the valid start angle table for a region.
// For every integer bearing a start position is placed standoff beyond the
// footprint boundary; the bearing is valid when no point lies within clearance
// (horizontal distance) of that position.
func ComputeValidStartAngles(region model.Region, points []model.Point, standoff, clearance float64) [model.AngleTableSize]bool {
	s := model.FeasibilitySettings{StandoffDistance: standoff, ClearanceRadius: clearance}.Normalize()
	return computeWithIndex(region, NewPointIndex(points, s.ClearanceRadius), s)
}

func computeWithIndex(region model.Region, idx *PointIndex, s model.FeasibilitySettings) [model.AngleTableSize]bool {
	var table [model.AngleTableSize]bool
	if idx.Len() == 0 || !region.Footprint.Valid() {
		for i := range table {
			table[i] = true
		}
		return table
	}

	center := geometry.RegionCenter(region)
	for angle := 0; angle < model.AngleTableSize; angle++ {
		dir := geometry.BearingVector(angle)
		reach := geometry.DistanceToBoundary(region.Footprint, center, dir) + s.StandoffDistance
		x := center.X + dir.X*reach
		y := center.Y + dir.Y*reach
		table[angle] = !idx.AnyWithin(x, y, s.ClearanceRadius)
	}
	return table
}

// ValidAngles lists the bearings marked valid in a table, in ascending order.
func ValidAngles(table []bool) []int {
	var out []int
	for i, ok := range table {
		if ok {
			out = append(out, i)
		}
	}
	return out
}

// Analyzer computes valid start angle tables for regions against one point set.
// Tables are cached so that a region is only reanalyzed when its geometry,
// the point set or the settings change. Safe for concurrent use.
type Analyzer struct {
	set      model.PointSet
	settings model.FeasibilitySettings
	cache    *Cache

	once  sync.Once
	index *PointIndex
}

// NewAnalyzer creates an analyzer for the point set. A nil cache gets a private one.
func NewAnalyzer(set model.PointSet, settings model.FeasibilitySettings, cache *Cache) *Analyzer {
	if cache == nil {
		cache = NewCache()
	}
	return &Analyzer{
		set:      set,
		settings: settings.Normalize(),
		cache:    cache,
	}
}

// Settings returns the normalized settings the analyzer uses.
func (a *Analyzer) Settings() model.FeasibilitySettings {
	return a.settings
}

func (a *Analyzer) pointIndex() *PointIndex {
	a.once.Do(func() {
		a.index = NewPointIndex(a.set.Points, a.settings.ClearanceRadius)
	})
	return a.index
}

// Analyze returns the valid start angle table for the region.
func (a *Analyzer) Analyze(region model.Region) []bool {
	key := CacheKey{
		Fingerprint: region.Fingerprint(),
		PointSetID:  a.set.ID,
		Standoff:    a.settings.StandoffDistance,
		Clearance:   a.settings.ClearanceRadius,
	}
	if table, ok := a.cache.Get(key); ok {
		return table[:]
	}
	table := computeWithIndex(region, a.pointIndex(), a.settings)
	a.cache.Put(key, table)
	return table[:]
}

// AnalyzeAll returns copies of the regions with their statistics and valid
// start angle tables filled in.
func (a *Analyzer) AnalyzeAll(regions []model.Region) []model.Region {
	out := make([]model.Region, len(regions))
	for i, r := range regions {
		r.Footprint = r.Footprint.Clone()
		r.ApplyStats(geometry.ComputeRegionStats(r, a.set.Points))
		r.ValidStartAngles = a.Analyze(r)
		out[i] = r
	}
	return out
}
