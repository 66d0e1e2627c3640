package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/piwi3910/PitPlan/internal/model"
)

// ComparisonScenario defines a named optimizer configuration to compare.
type ComparisonScenario struct {
	Name   string
	Config model.GeneticConfig
}

// ComparisonResult holds the optimizer result and derived errors for a
// single scenario.
type ComparisonResult struct {
	Scenario   ComparisonScenario
	Result     Result
	ItemCount  int
	CountError int     // extracted points minus target
	GradeError float64 // average grade minus target
}

// CompareScenarios runs the optimizer once per scenario with the same inputs
// and seed, and returns the results in scenario order. A cancelled context
// stops the remaining scenarios.
func CompareScenarios(ctx context.Context, scenarios []ComparisonScenario, regions []OptimizerRegion, targets model.Targets, seed *uint32) []ComparisonResult {
	results := make([]ComparisonResult, 0, len(scenarios))

	for _, scenario := range scenarios {
		if ctx.Err() != nil {
			break
		}
		cfg := scenario.Config
		res := GeneratePlan(ctx, regions, targets.PointCount, targets.AverageGrade, Options{
			Config: &cfg,
			Seed:   seed,
		})

		gradeErr := res.AverageGrade - targets.AverageGrade
		if math.IsInf(res.Score, 1) {
			gradeErr = 0
		}
		results = append(results, ComparisonResult{
			Scenario:   scenario,
			Result:     res,
			ItemCount:  len(res.Items),
			CountError: res.TotalPoints - targets.PointCount,
			GradeError: gradeErr,
		})
	}

	return results
}

// BestScenario returns the index of the lowest scoring completed result, or -1.
func BestScenario(results []ComparisonResult) int {
	best := -1
	for i, r := range results {
		if !r.Result.Completed {
			continue
		}
		if best < 0 || r.Result.Score < results[best].Result.Score {
			best = i
		}
	}
	return best
}

// BuildDefaultScenarios generates a set of comparison scenarios based on
// the current configuration, varying key parameters to show what-if alternatives.
func BuildDefaultScenarios(base model.GeneticConfig) []ComparisonScenario {
	base = base.Clamp()
	scenarios := []ComparisonScenario{
		{
			Name:   "Current Settings",
			Config: base,
		},
	}

	// Scenario: Larger population
	if base.PopulationSize < model.MaxPopulationSize {
		larger := base
		larger.PopulationSize = min(base.PopulationSize*2, model.MaxPopulationSize)
		scenarios = append(scenarios, ComparisonScenario{
			Name:   fmt.Sprintf("Population %d", larger.PopulationSize),
			Config: larger,
		})
	}

	// Scenario: More exploration
	if base.MutationRate < 0.5 {
		explore := base
		explore.MutationRate = math.Min(base.MutationRate*2, 1)
		if explore.MutationRate == 0 {
			explore.MutationRate = 0.1
		}
		scenarios = append(scenarios, ComparisonScenario{
			Name:   fmt.Sprintf("Mutation %.2f", explore.MutationRate),
			Config: explore,
		})
	}

	// Scenario: No sparsity penalty
	if base.SparsityPenalty > 0 {
		dense := base
		dense.SparsityPenalty = 0
		scenarios = append(scenarios, ComparisonScenario{
			Name:   "No Sparsity Penalty",
			Config: dense,
		})
	}

	// Scenario: Longer run
	if base.Generations < model.MaxGenerations {
		longer := base
		longer.Generations = min(base.Generations*2, model.MaxGenerations)
		longer.StallGenerations = min(base.StallGenerations*2, model.MaxStallGenerations)
		scenarios = append(scenarios, ComparisonScenario{
			Name:   fmt.Sprintf("%d Generations", longer.Generations),
			Config: longer,
		})
	}

	return scenarios
}
