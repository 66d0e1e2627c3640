package main

import (
	"fmt"
	"math"
	"os"

	"github.com/piwi3910/PitPlan/internal/engine"
	"github.com/piwi3910/PitPlan/internal/executor"
	"github.com/piwi3910/PitPlan/internal/feasibility"
	"github.com/piwi3910/PitPlan/internal/importer"
	"github.com/piwi3910/PitPlan/internal/model"
)

func printImportReport(path string, res importer.ImportResult) {
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "%s: warning: %s\n", path, w)
	}
	if len(res.Errors) == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %d problems\n", path, len(res.Errors))
	for i, e := range res.Errors {
		if i == 10 {
			fmt.Fprintf(os.Stderr, "  ... %d more\n", len(res.Errors)-i)
			break
		}
		fmt.Fprintf(os.Stderr, "  %s\n", e)
	}
}

func printRegions(regions []model.Region) {
	fmt.Printf("%-10s %-20s %8s %10s %10s %10s %8s\n", "KEY", "NAME", "POINTS", "MIN W", "MAX W", "AVG W", "BEARINGS")
	for _, r := range regions {
		bearings := model.AngleTableSize
		if len(r.ValidStartAngles) > 0 {
			bearings = len(feasibility.ValidAngles(r.ValidStartAngles))
		}
		fmt.Printf("%-10s %-20s %8d %10.3f %10.3f %10.3f %8d\n",
			shortKey(r.Key), r.Name, r.PointCount, r.MinW, r.MaxW, r.AvgW, bearings)
	}
}

func printProgress(m executor.Message) {
	if m.Best == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "generation %5d  points %7d  grade %8.4f  score %s\n",
		m.Generation, m.Best.TotalPoints, m.Best.AverageGrade, formatScore(m.Best.Score))
}

func printResult(res engine.Result, targets model.Targets) {
	fmt.Printf("Status:       %s after %d generations\n", res.Status, res.Generations)
	fmt.Printf("Target:       %d points at grade %.4f\n", targets.PointCount, targets.AverageGrade)
	fmt.Printf("Best plan:    %d points at grade %.4f (score %s)\n", res.TotalPoints, res.AverageGrade, formatScore(res.Score))
	if !res.Completed {
		fmt.Println("Run was cancelled; the project was not changed.")
		return
	}
	if len(res.Items) == 0 {
		fmt.Println("No plan: no region can supply points.")
	}
}

func printOutcome(p model.Project, outcome model.PlanOutcome) {
	fmt.Printf("%-10s %-20s %6s %8s %10s %10s\n", "ITEM", "REGION", "ANGLE", "QTY", "EXTRACTED", "GRADE")
	for _, it := range outcome.Items {
		name := it.RegionKey
		if r := model.FindRegion(p.Regions, it.RegionKey); r != nil {
			name = r.Name
		}
		flag := ""
		if it.InvalidStart {
			flag = "  obstructed"
		}
		fmt.Printf("%-10s %-20s %6d %8d %10d %10.4f%s\n",
			shortKey(it.ItemID), name, it.Angle, it.RequestedQuantity, it.ExtractedPointCount, it.ExtractedAverageGrade, flag)
	}
	fmt.Println()

	fmt.Printf("%-20s %8s %10s %10s %10s %6s\n", "REGION", "POINTS", "EXTRACTED", "REMAINING", "GRADE", "ITEMS")
	for _, s := range engine.SummarizeRegions(p.Regions, outcome) {
		fmt.Printf("%-20s %8d %10d %10d %10.4f %6d\n", s.Name, s.PointCount, s.Extracted, s.Remaining, s.AverageGrade, s.ItemCount)
	}
	fmt.Println()

	fmt.Printf("Extracted:    %d points (target %d)\n", outcome.ExtractedPointCount, p.Targets.PointCount)
	fmt.Printf("Average grade: %.4f (target %.4f)\n", outcome.AverageGrade, p.Targets.AverageGrade)
	if n := outcome.InvalidStartCount(); n > 0 {
		fmt.Printf("WARNING: %d items start from an obstructed bearing\n", n)
	}
}

func printComparison(results []engine.ComparisonResult, best int) {
	fmt.Printf("  %-22s %-22s %6s %8s %10s %10s %10s\n", "SCENARIO", "STATUS", "ITEMS", "POINTS", "COUNT ERR", "GRADE ERR", "SCORE")
	for i, r := range results {
		marker := " "
		if i == best {
			marker = "*"
		}
		fmt.Printf("%s %-22s %-22s %6d %8d %+10d %+10.4f %10s\n",
			marker, r.Scenario.Name, r.Result.Status, r.ItemCount, r.Result.TotalPoints,
			r.CountError, r.GradeError, formatScore(r.Result.Score))
	}
}

func printPresets(presets []model.OptimizerPreset, defaultPreset string) {
	fmt.Printf("  %-16s %-9s %6s %6s %6s %8s  %s\n", "NAME", "SOURCE", "POP", "GENS", "STALL", "MUTATION", "DESCRIPTION")
	for _, p := range presets {
		marker := " "
		if p.Name == defaultPreset {
			marker = "*"
		}
		source := "custom"
		if p.IsBuiltIn {
			source = "built-in"
		}
		fmt.Printf("%s %-16s %-9s %6d %6d %6d %8.3f  %s\n", marker, p.Name, source,
			p.Config.PopulationSize, p.Config.Generations, p.Config.StallGenerations, p.Config.MutationRate, p.Description)
	}
}

func formatScore(score float64) string {
	if math.IsInf(score, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.6f", score)
}

func shortKey(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}
