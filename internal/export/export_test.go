package export

import (
	"os"
	"testing"

	"github.com/piwi3910/PitPlan/internal/engine"
	"github.com/piwi3910/PitPlan/internal/geometry"
	"github.com/piwi3910/PitPlan/internal/model"
)

func square(x0, y0, size float64) model.Footprint {
	return model.Footprint{
		{X: x0, Y: y0},
		{X: x0 + size, Y: y0},
		{X: x0 + size, Y: y0 + size},
		{X: x0, Y: y0 + size},
	}
}

// gridPoints fills a square with one point per unit cell; grade grows with x.
func gridPoints(x0, y0, size float64) []model.Point {
	var pts []model.Point
	for i := 0; i < int(size); i++ {
		for j := 0; j < int(size); j++ {
			pts = append(pts, model.Point{X: x0 + float64(i) + 0.5, Y: y0 + float64(j) + 0.5, Z: 5, W: float64(i)})
		}
	}
	return pts
}

// buildTestPlan creates a two-region project and its simulated outcome. The
// south item approaches from an obstructed bearing.
func buildTestPlan(t *testing.T) (model.Project, model.PlanOutcome) {
	t.Helper()

	points := append(gridPoints(0, 0, 10), gridPoints(20, 0, 10)...)

	north := model.Region{Key: "north", Name: "North Bench", Footprint: square(0, 0, 10), MinZ: 0, MaxZ: 10}
	south := model.Region{Key: "south", Name: "South Bench", Footprint: square(20, 0, 10), MinZ: 0, MaxZ: 10}
	south.ValidStartAngles = make([]bool, model.AngleTableSize)
	for a := range south.ValidStartAngles {
		south.ValidStartAngles[a] = a != 90
	}

	regions := []model.Region{north, south}
	for i := range regions {
		regions[i].ApplyStats(geometry.ComputeRegionStats(regions[i], points))
	}

	project := model.NewProject()
	project.Name = "Test Pit"
	project.Regions = regions
	project.Plan = []model.PlanItem{
		{ID: "n1", RegionKey: "north", Angle: 0, Quantity: 30},
		{ID: "n2", RegionKey: "north", Angle: 180, Quantity: 20},
		{ID: "s1", RegionKey: "south", Angle: 90, Quantity: 10},
		{ID: "x1", RegionKey: "missing", Angle: 0, Quantity: 5},
	}
	project.Targets = model.Targets{PointCount: 60, AverageGrade: 4.5}

	outcome := engine.ComputePlanStats(project.Regions, project.Plan, points)
	if outcome.ExtractedPointCount != 60 {
		t.Fatalf("fixture extracted %d points, want 60", outcome.ExtractedPointCount)
	}
	return project, outcome
}

func assertFileWritten(t *testing.T, path string, minSize int64) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("file was not created: %v", err)
	}
	if info.Size() < minSize {
		t.Errorf("file seems too small: %d bytes", info.Size())
	}
}
