package model

import "math"

// FeasibilitySettings control how approach bearings are tested against the point cloud.
type FeasibilitySettings struct {
	StandoffDistance float64 `json:"standoff_distance"` // distance beyond the region boundary where an approach starts
	ClearanceRadius  float64 `json:"clearance_radius"`  // horizontal radius that must be free of points around the start
}

// DefaultFeasibilitySettings returns sensible default parameters.
func DefaultFeasibilitySettings() FeasibilitySettings {
	return FeasibilitySettings{
		StandoffDistance: 5.0,
		ClearanceRadius:  2.0,
	}
}

// Normalize replaces negative or non-finite distances with zero.
func (s FeasibilitySettings) Normalize() FeasibilitySettings {
	s.StandoffDistance = nonNegative(s.StandoffDistance)
	s.ClearanceRadius = nonNegative(s.ClearanceRadius)
	return s
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// GeneticConfig holds parameters for the genetic plan optimizer.
type GeneticConfig struct {
	PopulationSize   int     `json:"population_size"`
	Generations      int     `json:"generations"`
	MutationRate     float64 `json:"mutation_rate"`
	EliteCount       int     `json:"elite_count"`
	StallGenerations int     `json:"stall_generations"` // stop after this many generations without improvement
	TournamentSize   int     `json:"tournament_size"`
	SparsityPenalty  float64 `json:"sparsity_penalty"` // score added per region with a non-zero quantity
	ProgressEvery    int     `json:"progress_every"`   // progress callback cadence in generations
	YieldEvery       int     `json:"yield_every"`      // cooperative yield cadence in generations
}

// DefaultGeneticConfig returns sensible default parameters.
func DefaultGeneticConfig() GeneticConfig {
	return GeneticConfig{
		PopulationSize:   60,
		Generations:      200,
		MutationRate:     0.15,
		EliteCount:       2,
		StallGenerations: 40,
		TournamentSize:   3,
		SparsityPenalty:  0.01,
		ProgressEvery:    10,
		YieldEvery:       25,
	}
}

// Hyperparameter ranges. Values outside are clamped, never rejected.
const (
	MinPopulationSize   = 4
	MaxPopulationSize   = 1000
	MinGenerations      = 1
	MaxGenerations      = 10000
	MinStallGenerations = 1
	MaxStallGenerations = 10000
	MinTournamentSize   = 2
	MaxTournamentSize   = 10
	MinCadence          = 1
	MaxCadence          = 1000
)

// Clamp returns a copy of the config with every field forced into its legal range.
// Zero-valued fields take their default so a partially filled config stays usable.
func (c GeneticConfig) Clamp() GeneticConfig {
	def := DefaultGeneticConfig()

	c.PopulationSize = clampInt(orDefault(c.PopulationSize, def.PopulationSize), MinPopulationSize, MaxPopulationSize)
	c.Generations = clampInt(orDefault(c.Generations, def.Generations), MinGenerations, MaxGenerations)
	c.StallGenerations = clampInt(orDefault(c.StallGenerations, def.StallGenerations), MinStallGenerations, MaxStallGenerations)
	c.TournamentSize = clampInt(orDefault(c.TournamentSize, def.TournamentSize), MinTournamentSize, MaxTournamentSize)
	c.ProgressEvery = clampInt(orDefault(c.ProgressEvery, def.ProgressEvery), MinCadence, MaxCadence)
	c.YieldEvery = clampInt(orDefault(c.YieldEvery, def.YieldEvery), MinCadence, MaxCadence)
	c.EliteCount = clampInt(c.EliteCount, 0, c.PopulationSize-1)

	c.MutationRate = clampFloat(c.MutationRate, def.MutationRate, 0, 1)
	c.SparsityPenalty = clampFloat(c.SparsityPenalty, def.SparsityPenalty, 0, 1)
	return c
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, def, lo, hi float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return math.Max(lo, math.Min(hi, v))
}
