package engine

import (
	"context"
	"math"
	"time"

	"github.com/piwi3910/PitPlan/internal/geometry"
	"github.com/piwi3910/PitPlan/internal/model"
)

// OptimizerRegion is one region as seen by the plan optimizer.
//
// When Region and Points are set, extracted grades come from simulating the
// extraction against the points. Otherwise every extracted point is assumed
// to carry AverageGrade.
type OptimizerRegion struct {
	Key              string        `json:"key"`
	MaxQuantity      float64       `json:"maxQuantity"`
	ValidStartAngles []bool        `json:"validStartAngles"`
	AverageGrade     float64       `json:"averageGrade"`
	Region           *model.Region `json:"region,omitempty"`
	Points           []model.Point `json:"points,omitempty"`
}

// RegionsFromModel builds optimizer inputs from analyzed regions.
func RegionsFromModel(regions []model.Region, points []model.Point) []OptimizerRegion {
	out := make([]OptimizerRegion, 0, len(regions))
	for i := range regions {
		r := regions[i]
		out = append(out, OptimizerRegion{
			Key:              r.Key,
			MaxQuantity:      float64(r.MaxQuantity()),
			ValidStartAngles: r.ValidStartAngles,
			AverageGrade:     r.AvgW,
			Region:           &r,
			Points:           geometry.RegionPoints(r, points),
		})
	}
	return out
}

// Status is the state of an optimizer run.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusConverged
	StatusStallExhausted
	StatusGenerationCapReached
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusConverged:
		return "converged"
	case StatusStallExhausted:
		return "stall-exhausted"
	case StatusGenerationCapReached:
		return "generation-cap-reached"
	case StatusCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Candidate is a plan proposed by the optimizer with its evaluated totals.
type Candidate struct {
	Items        []model.PlanItem `json:"items"`
	TotalPoints  int              `json:"totalPoints"`
	AverageGrade float64          `json:"averageGrade"`
	Score        float64          `json:"score"`
}

// Result is the outcome of GeneratePlan. Completed is false only when the run
// was cancelled.
type Result struct {
	Candidate
	Status      Status `json:"status"`
	Completed   bool   `json:"completed"`
	Generations int    `json:"generations"`
}

// Options tune a single optimizer run. The zero value uses the default
// configuration and a time-based seed.
type Options struct {
	Config *model.GeneticConfig
	Seed   *uint32

	// OnProgress is called every Config.ProgressEvery generations.
	OnProgress func(generation int, best Candidate)
	// ShouldStop is polled once per generation.
	ShouldStop func() bool
	// OnYield is called every Config.YieldEvery generations, after the
	// generation is complete.
	OnYield func(generation int)
}

// emptyCandidate is returned when no region can be optimized.
func emptyCandidate() Candidate {
	return Candidate{Items: []model.PlanItem{}, Score: math.Inf(1)}
}

// GeneratePlan searches for a plan whose extracted point count and average
// grade approach the targets. Regions with an empty key, a non-finite or
// non-positive maximum quantity, or an incomplete valid start angle table are
// ignored. When nothing is left the result is an empty candidate scoring +Inf.
//
// The run is single-threaded. Cancellation through ctx or opts.ShouldStop is
// checked once per generation and returns the best candidate found so far.
func GeneratePlan(ctx context.Context, regions []OptimizerRegion, targetPointCount int, targetAverageGrade float64, opts Options) Result {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := model.DefaultGeneticConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	cfg = cfg.Clamp()

	prepared := prepareRegions(regions)
	if len(prepared) == 0 {
		return Result{Candidate: emptyCandidate(), Status: StatusIdle, Completed: true}
	}

	var seed uint32
	if opts.Seed != nil {
		seed = *opts.Seed
	} else {
		seed = uint32(time.Now().UnixNano())
	}

	if math.IsNaN(targetAverageGrade) || math.IsInf(targetAverageGrade, 0) {
		targetAverageGrade = 0
	}

	ga := newGeneticOptimizer(cfg, prepared, max(targetPointCount, 0), targetAverageGrade, seed)
	return ga.run(ctx, opts)
}

// optRegion is a filtered and prepared optimizer region.
type optRegion struct {
	key          string
	max          int
	validAngles  []int
	averageGrade float64

	// pool is non-nil when grades are simulated from points
	pool []model.Point
	// prefix caches, per angle, cumulative grade sums of the pool in
	// extraction order. At most prefixCap angles are held; the least
	// recently used one is evicted first.
	prefix    map[int]*prefixEntry
	prefixCap int
	tick      uint64
}

type prefixEntry struct {
	sums    []float64
	lastUse uint64
}

// prefixBudget bounds the number of cached prefix sums per region.
const prefixBudget = 1 << 21

func prefixCapacity(poolSize int) int {
	return max(1, min(model.AngleTableSize, prefixBudget/(poolSize+1)))
}

func prepareRegions(regions []OptimizerRegion) []*optRegion {
	var out []*optRegion
	seen := make(map[string]bool, len(regions))
	for _, r := range regions {
		if r.Key == "" || seen[r.Key] {
			continue
		}
		if math.IsNaN(r.MaxQuantity) || math.IsInf(r.MaxQuantity, 0) || r.MaxQuantity <= 0 {
			continue
		}
		if len(r.ValidStartAngles) < model.AngleTableSize {
			continue
		}
		maxQty := int(math.Floor(r.MaxQuantity))
		if maxQty < 1 {
			continue
		}
		seen[r.Key] = true

		valid := make([]int, 0, model.AngleTableSize)
		for a := 0; a < model.AngleTableSize; a++ {
			if r.ValidStartAngles[a] {
				valid = append(valid, a)
			}
		}
		if len(valid) == 0 {
			valid = []int{0}
		}

		or := &optRegion{
			key:          r.Key,
			max:          maxQty,
			validAngles:  valid,
			averageGrade: r.AverageGrade,
		}
		if math.IsNaN(or.averageGrade) || math.IsInf(or.averageGrade, 0) {
			or.averageGrade = 0
		}
		if r.Region != nil && len(r.Points) > 0 {
			or.pool = geometry.RegionPoints(*r.Region, r.Points)
			if or.pool == nil {
				or.pool = []model.Point{}
			}
			or.prefix = make(map[int]*prefixEntry)
			or.prefixCap = prefixCapacity(len(or.pool))
		}
		out = append(out, or)
	}
	return out
}

// extract returns how many points an item of the given quantity removes and
// the sum of their grades.
func (r *optRegion) extract(angle, quantity int) (int, float64) {
	if quantity <= 0 {
		return 0, 0
	}
	if r.pool == nil {
		return quantity, float64(quantity) * r.averageGrade
	}
	sums := r.prefixSums(angle)
	n := min(quantity, len(sums)-1)
	return n, sums[n]
}

func (r *optRegion) prefixSums(angle int) []float64 {
	r.tick++
	if e, ok := r.prefix[angle]; ok {
		e.lastUse = r.tick
		return e.sums
	}
	if len(r.prefix) >= r.prefixCap {
		oldest, oldestUse := -1, uint64(math.MaxUint64)
		for a, e := range r.prefix {
			if e.lastUse < oldestUse {
				oldest, oldestUse = a, e.lastUse
			}
		}
		delete(r.prefix, oldest)
	}
	order := depthOrder(r.pool, geometry.BearingVector(angle))
	sums := make([]float64, len(order)+1)
	for i, idx := range order {
		sums[i+1] = sums[i] + r.pool[idx].W
	}
	r.prefix[angle] = &prefixEntry{sums: sums, lastUse: r.tick}
	return sums
}

// nearestValidAngle snaps an angle to the closest valid angle by circular distance.
func (r *optRegion) nearestValidAngle(angle int) int {
	best := r.validAngles[0]
	bestDist := model.AngleTableSize
	for _, a := range r.validAngles {
		d := a - angle
		if d < 0 {
			d = -d
		}
		if d > model.AngleTableSize/2 {
			d = model.AngleTableSize - d
		}
		if d == 0 {
			return a
		}
		if d < bestDist {
			best, bestDist = a, d
		}
	}
	return best
}
