package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/PitPlan/internal/model"
)

func TestBuildDefaultScenarios(t *testing.T) {
	base := model.DefaultGeneticConfig()
	scenarios := BuildDefaultScenarios(base)

	require.Len(t, scenarios, 5)
	assert.Equal(t, "Current Settings", scenarios[0].Name)
	assert.Equal(t, base, scenarios[0].Config)
	assert.Equal(t, 120, scenarios[1].Config.PopulationSize)
	assert.InDelta(t, 0.3, scenarios[2].Config.MutationRate, 1e-12)
	assert.Equal(t, 0.0, scenarios[3].Config.SparsityPenalty)
	assert.Equal(t, 400, scenarios[4].Config.Generations)
}

func TestBuildDefaultScenarios_SkipsPointlessVariants(t *testing.T) {
	base := model.DefaultGeneticConfig()
	base.PopulationSize = model.MaxPopulationSize
	base.MutationRate = 0.8
	base.SparsityPenalty = 0
	base.Generations = model.MaxGenerations

	scenarios := BuildDefaultScenarios(base)
	require.Len(t, scenarios, 1)
}

func TestCompareScenarios(t *testing.T) {
	regions := []OptimizerRegion{
		{Key: "a", MaxQuantity: 120, ValidStartAngles: onlyValid(45), AverageGrade: 1},
		{Key: "b", MaxQuantity: 80, ValidStartAngles: onlyValid(90), AverageGrade: 4},
	}
	targets := model.Targets{PointCount: 160, AverageGrade: 2.5}

	fast := model.DefaultGeneticConfig()
	fast.Generations = 10
	scenarios := []ComparisonScenario{
		{Name: "fast", Config: fast},
		{Name: "default", Config: model.DefaultGeneticConfig()},
	}

	results := CompareScenarios(context.Background(), scenarios, regions, targets, seed(17))
	require.Len(t, results, 2)

	for _, r := range results {
		assert.True(t, r.Result.Completed)
		assert.Equal(t, r.Result.TotalPoints-160, r.CountError)
		assert.Equal(t, len(r.Result.Items), r.ItemCount)
		assert.InDelta(t, r.Result.AverageGrade-2.5, r.GradeError, 1e-12)
	}
	assert.Equal(t, "fast", results[0].Scenario.Name)

	best := BestScenario(results)
	require.GreaterOrEqual(t, best, 0)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Result.Score, results[best].Result.Score)
	}
}

func TestCompareScenarios_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := CompareScenarios(ctx, BuildDefaultScenarios(model.DefaultGeneticConfig()), twoRegionScenario(), model.Targets{PointCount: 10}, nil)
	assert.Empty(t, results)
	assert.Equal(t, -1, BestScenario(results))
}
