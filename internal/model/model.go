package model

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/google/uuid"
)

// AngleTableSize is the number of integer-degree bearings in a valid start angle table.
const AngleTableSize = 360

// Point is one sample of the point cloud. W is the grade carried by the sample.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// PointSet is an immutable collection of points supplied once per session.
// ID identifies the revision of the set so derived tables can be invalidated
// when the cloud changes.
type PointSet struct {
	ID     string  `json:"id"`
	Points []Point `json:"points"`
}

// NewPointSet wraps points in a PointSet with a fresh revision id.
func NewPointSet(points []Point) PointSet {
	return PointSet{
		ID:     uuid.New().String()[:8],
		Points: points,
	}
}

// Vertex represents a 2D coordinate of a footprint.
type Vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dot returns the dot product of two vectors.
func (v Vertex) Dot(o Vertex) float64 {
	return v.X*o.X + v.Y*o.Y
}

// Footprint is the horizontal outline of a region as an ordered vertex sequence.
// It is implicitly closed: the last vertex connects back to the first.
type Footprint []Vertex

// Valid reports whether the footprint has enough vertices to bound an area.
func (f Footprint) Valid() bool {
	return len(f) >= 3
}

// BoundingBox returns the min and max corners of the footprint.
func (f Footprint) BoundingBox() (min, max Vertex) {
	if len(f) == 0 {
		return Vertex{}, Vertex{}
	}
	min = f[0]
	max = f[0]
	for _, v := range f[1:] {
		if v.X < min.X {
			min.X = v.X
		}
		if v.Y < min.Y {
			min.Y = v.Y
		}
		if v.X > max.X {
			max.X = v.X
		}
		if v.Y > max.Y {
			max.Y = v.Y
		}
	}
	return min, max
}

// Clone returns a copy of the footprint.
func (f Footprint) Clone() Footprint {
	if f == nil {
		return nil
	}
	out := make(Footprint, len(f))
	copy(out, f)
	return out
}

// Region is a named vertical prism: a footprint extruded between MinZ and MaxZ.
// The statistics and the valid start angle table are derived from the point set.
type Region struct {
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	Footprint Footprint `json:"footprint"`
	MinZ      float64   `json:"minZ"`
	MaxZ      float64   `json:"maxZ"`

	PointCount int     `json:"pointCount"`
	MinW       float64 `json:"minW"`
	MaxW       float64 `json:"maxW"`
	AvgW       float64 `json:"avgW"`

	ValidStartAngles []bool `json:"validStartAngles,omitempty"`
}

// NewRegion creates a region with a generated key.
func NewRegion(name string, footprint Footprint, minZ, maxZ float64) Region {
	if minZ > maxZ {
		minZ, maxZ = maxZ, minZ
	}
	return Region{
		Key:       uuid.New().String()[:8],
		Name:      name,
		Footprint: footprint,
		MinZ:      minZ,
		MaxZ:      maxZ,
	}
}

// RegionStats holds the membership statistics of a region.
type RegionStats struct {
	PointCount int     `json:"pointCount"`
	MinW       float64 `json:"minW"`
	MaxW       float64 `json:"maxW"`
	AvgW       float64 `json:"avgW"`
}

// ApplyStats copies membership statistics into the region.
func (r *Region) ApplyStats(s RegionStats) {
	r.PointCount = s.PointCount
	r.MinW = s.MinW
	r.MaxW = s.MaxW
	r.AvgW = s.AvgW
}

// MaxQuantity is the largest number of points a plan can remove from the region.
func (r Region) MaxQuantity() int {
	return r.PointCount
}

// Fingerprint hashes the geometric definition of the region. Two regions with
// the same fingerprint produce the same membership and feasibility results.
func (r Region) Fingerprint() uint64 {
	h := fnv.New64a()
	h.Write([]byte(r.Key))
	var buf [8]byte
	put := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		h.Write(buf[:])
	}
	for _, v := range r.Footprint {
		put(v.X)
		put(v.Y)
	}
	put(r.MinZ)
	put(r.MaxZ)
	return h.Sum64()
}

// AngleValid reports whether the table marks the angle as unobstructed.
// Tables shorter than AngleTableSize carry no constraint.
func (r Region) AngleValid(angle int) bool {
	if len(r.ValidStartAngles) < AngleTableSize {
		return true
	}
	return r.ValidStartAngles[NormalizeAngle(float64(angle))]
}

// FindRegion returns the region with the given key, or nil.
func FindRegion(regions []Region, key string) *Region {
	for i := range regions {
		if regions[i].Key == key {
			return &regions[i]
		}
	}
	return nil
}

// NormalizeAngle rounds a bearing to an integer degree in [0, 360).
// Non-finite input maps to 0.
func NormalizeAngle(angle float64) int {
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return 0
	}
	a := int(math.Mod(math.Round(angle), AngleTableSize))
	if a < 0 {
		a += AngleTableSize
	}
	return a
}

// PlanItem is one extraction assignment: remove Quantity points from a region
// approaching along bearing Angle.
type PlanItem struct {
	ID        string `json:"id"`
	RegionKey string `json:"regionKey"`
	Angle     int    `json:"angle"`
	Quantity  int    `json:"quantity"`
}

// NewPlanItem creates a plan item with a generated id and a normalized angle.
func NewPlanItem(regionKey string, angle, quantity int) PlanItem {
	if quantity < 0 {
		quantity = 0
	}
	return PlanItem{
		ID:        uuid.New().String()[:8],
		RegionKey: regionKey,
		Angle:     NormalizeAngle(float64(angle)),
		Quantity:  quantity,
	}
}

// SanitizePlan returns a copy of the plan with normalized angles and
// non-negative quantities.
func SanitizePlan(items []PlanItem) []PlanItem {
	out := make([]PlanItem, len(items))
	for i, it := range items {
		it.Angle = NormalizeAngle(float64(it.Angle))
		if it.Quantity < 0 {
			it.Quantity = 0
		}
		out[i] = it
	}
	return out
}

// ClampPlanToRegions reduces quantities so that the cumulative quantity of all
// items on a region never exceeds the region's point count. Earlier items keep
// their share; later items absorb the reduction. Items on unknown regions are
// left untouched.
func ClampPlanToRegions(items []PlanItem, regions []Region) []PlanItem {
	out := SanitizePlan(items)
	used := make(map[string]int)
	for i := range out {
		r := FindRegion(regions, out[i].RegionKey)
		if r == nil {
			continue
		}
		remaining := r.MaxQuantity() - used[r.Key]
		if remaining < 0 {
			remaining = 0
		}
		if out[i].Quantity > remaining {
			out[i].Quantity = remaining
		}
		used[r.Key] += out[i].Quantity
	}
	return out
}

// ItemOutcome is the simulated result of one plan item.
type ItemOutcome struct {
	ItemID                string    `json:"itemId"`
	RegionKey             string    `json:"regionKey"`
	Angle                 int       `json:"angle"`
	RequestedQuantity     int       `json:"requestedQuantity"`
	ExtractedPointCount   int       `json:"extractedPointCount"`
	ExtractedAverageGrade float64   `json:"extractedAverageGrade"`
	InvalidStart          bool      `json:"invalidStart"`
	ExtractedPoints       []Point   `json:"-"`
	ExtractionFootprint   Footprint `json:"extractionFootprint,omitempty"`
}

// PlanOutcome holds the simulated result of a whole plan. It is derived and never persisted.
type PlanOutcome struct {
	Items               []ItemOutcome `json:"items"`
	ExtractedPointCount int           `json:"extractedPointCount"`
	AverageGrade        float64       `json:"averageGrade"`
}

// InvalidStartCount returns the number of items approaching from an obstructed bearing.
func (o PlanOutcome) InvalidStartCount() int {
	n := 0
	for _, it := range o.Items {
		if it.InvalidStart {
			n++
		}
	}
	return n
}

// Targets are the operator's goals for the optimizer.
type Targets struct {
	PointCount   int     `json:"pointCount"`
	AverageGrade float64 `json:"averageGrade"`
}

// ProjectVersion is the current version of the project file format.
const ProjectVersion = 1

// Project ties everything together for save/load.
type Project struct {
	Version     int                 `json:"version"`
	Name        string              `json:"name"`
	PointSource string              `json:"pointSource,omitempty"` // path of the point file the regions were analyzed against
	Regions     []Region            `json:"regions"`
	Plan        []PlanItem          `json:"plan"`
	Feasibility FeasibilitySettings `json:"feasibility"`
	Genetic     GeneticConfig       `json:"genetic"`
	Targets     Targets             `json:"targets"`
}

func NewProject() Project {
	return Project{
		Version:     ProjectVersion,
		Name:        "Untitled",
		Regions:     []Region{},
		Plan:        []PlanItem{},
		Feasibility: DefaultFeasibilitySettings(),
		Genetic:     DefaultGeneticConfig(),
	}
}
