package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yofu/dxf"

	"github.com/piwi3910/PitPlan/internal/model"
	"github.com/piwi3910/PitPlan/internal/project"
)

// writeFixture creates a point file with two 10x10 blocks of points, grade 1
// on the west block and grade 3 on the east block, and a DXF with their outlines.
func writeFixture(t *testing.T) (dir, points, regions string) {
	t.Helper()
	dir = t.TempDir()
	t.Setenv("HOME", dir)

	var sb strings.Builder
	sb.WriteString("easting,northing,elevation,grade\n")
	for _, block := range []struct{ x0, grade float64 }{{0, 1}, {30, 3}} {
		for i := 0; i < 10; i++ {
			for j := 0; j < 10; j++ {
				fmt.Fprintf(&sb, "%.1f,%.1f,5,%.1f\n", block.x0+float64(i)+0.5, float64(j)+0.5, block.grade)
			}
		}
	}
	points = filepath.Join(dir, "blocks.csv")
	require.NoError(t, os.WriteFile(points, []byte(sb.String()), 0644))

	d := dxf.NewDrawing()
	for _, x0 := range []float64{0, 30} {
		_, err := d.LwPolyline(true, []float64{x0, 0}, []float64{x0 + 10, 0}, []float64{x0 + 10, 10}, []float64{x0, 10})
		require.NoError(t, err)
	}
	regions = filepath.Join(dir, "regions.dxf")
	require.NoError(t, d.SaveAs(regions))
	return dir, points, regions
}

func analyzeFixture(t *testing.T) string {
	t.Helper()
	dir, points, regions := writeFixture(t)
	path := filepath.Join(dir, "pit"+project.FileExtension)
	err := runAnalyze(path, analyzeOptions{
		points:    points,
		regions:   regions,
		minZ:      0,
		maxZ:      10,
		standoff:  -1,
		clearance: -1,
	})
	require.NoError(t, err)
	return path
}

func TestRunAnalyze_CreatesProject(t *testing.T) {
	path := analyzeFixture(t)

	p, err := project.LoadProject(path)
	require.NoError(t, err)
	assert.Equal(t, "pit", p.Name)
	require.Len(t, p.Regions, 2)
	for _, r := range p.Regions {
		assert.Equal(t, 100, r.PointCount)
		assert.Len(t, r.ValidStartAngles, 360)
	}

	cfg, err := project.LoadAppConfig(project.DefaultConfigPath())
	require.NoError(t, err)
	require.NotEmpty(t, cfg.RecentProjects)
	assert.Equal(t, "pit"+project.FileExtension, filepath.Base(cfg.RecentProjects[0]))
}

func TestRunAnalyze_RequiresRegions(t *testing.T) {
	dir, points, _ := writeFixture(t)
	err := runAnalyze(filepath.Join(dir, "empty.pitplan"), analyzeOptions{points: points, standoff: -1, clearance: -1})
	assert.Error(t, err)
}

func TestRunOptimize_SavesPlan(t *testing.T) {
	path := analyzeFixture(t)

	err := runOptimize(context.Background(), path, optimizeOptions{
		targetCount: 100,
		targetGrade: 2,
		seed:        7,
		seedSet:     true,
		preset:      "Quick",
	})
	require.NoError(t, err)

	p, err := project.LoadProject(path)
	require.NoError(t, err)
	assert.NotEmpty(t, p.Plan)
	assert.Equal(t, 100, p.Targets.PointCount)
	assert.Equal(t, 2.0, p.Targets.AverageGrade)
}

func TestRunOptimize_DryRunLeavesProject(t *testing.T) {
	path := analyzeFixture(t)

	err := runOptimize(context.Background(), path, optimizeOptions{targetCount: 50, targetGrade: 1, preset: "Quick", dryRun: true})
	require.NoError(t, err)

	p, err := project.LoadProject(path)
	require.NoError(t, err)
	assert.Empty(t, p.Plan)
}

func TestRunOptimize_UnknownPreset(t *testing.T) {
	path := analyzeFixture(t)
	err := runOptimize(context.Background(), path, optimizeOptions{preset: "Nope"})
	assert.ErrorContains(t, err, "unknown preset")
}

func TestRunStatsCompareAndExport(t *testing.T) {
	path := analyzeFixture(t)
	require.NoError(t, runOptimize(context.Background(), path, optimizeOptions{
		targetCount: 80, targetGrade: 2, seed: 3, seedSet: true, preset: "Quick",
	}))

	assert.NoError(t, runStats(path, false))
	assert.NoError(t, runStats(path, true))
	assert.NoError(t, runCompare(context.Background(), path, 5))

	for _, format := range []string{"svg", "xlsx", "dxf"} {
		require.NoError(t, runExport(path, format, "", 4), format)
		out := strings.TrimSuffix(path, filepath.Ext(path)) + exportExtensions[format]
		info, err := os.Stat(out)
		require.NoError(t, err, format)
		assert.Positive(t, info.Size(), format)
	}

	assert.Error(t, runExport(path, "gcode", "", 4))
}

func TestLoadProjectWithPoints_ClampsStoredPlan(t *testing.T) {
	path := analyzeFixture(t)
	p, err := project.LoadProject(path)
	require.NoError(t, err)
	require.Len(t, p.Regions, 2)

	key := p.Regions[0].Key
	p.Regions[0].PointCount = 500
	p.Plan = []model.PlanItem{
		model.NewPlanItem(key, 0, 80),
		model.NewPlanItem(key, 90, 60),
		model.NewPlanItem("missing", 0, 999),
	}
	require.NoError(t, project.SaveProject(path, p))

	loaded, set, err := loadProjectWithPoints(path)
	require.NoError(t, err)
	assert.Len(t, set.Points, 200)
	assert.Equal(t, 100, loaded.Regions[0].PointCount, "stale stats are refreshed from the cloud")
	require.Len(t, loaded.Plan, 3)
	assert.Equal(t, 80, loaded.Plan[0].Quantity)
	assert.Equal(t, 20, loaded.Plan[1].Quantity)
	assert.Equal(t, 999, loaded.Plan[2].Quantity)

	require.NoError(t, runStats(path, true))
}

func TestLoadPoints_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte("x,y,z,grade\n"), 0644))

	_, err := loadPoints(path)
	assert.ErrorContains(t, err, "no points found")
}

func TestProjectPoints_NoSource(t *testing.T) {
	_, err := projectPoints("pit.pitplan", model.NewProject())
	assert.Error(t, err)
}

func TestPresetCommands(t *testing.T) {
	path := analyzeFixture(t)
	p, err := project.LoadProject(path)
	require.NoError(t, err)
	p.Genetic.PopulationSize = 77
	require.NoError(t, project.SaveProject(path, p))

	require.NoError(t, runPresetSave("Site A", "tuned for the west pit", path))
	assert.ErrorContains(t, runPresetSave("Quick", "", ""), "built in")

	shared := filepath.Join(t.TempDir(), "site-a.json")
	require.NoError(t, runPresetExport("Site A", shared))
	assert.ErrorContains(t, runPresetExport("Nope", shared), "unknown preset")

	// Importing onto a clean machine adds the preset
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, runPresetImport(shared))

	presets, err := project.AllPresets(project.DefaultPresetsPath())
	require.NoError(t, err)
	found := model.FindPreset(presets, "Site A")
	require.NotNil(t, found)
	assert.Equal(t, 77, found.Config.PopulationSize)
	assert.Equal(t, "tuned for the west pit", found.Description)
	assert.False(t, found.IsBuiltIn)
	assert.NoError(t, runPresets())
}

func TestBackupCommands(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := model.DefaultAppConfig()
	cfg.ReportAuthor = "Survey Team"
	require.NoError(t, project.SaveAppConfig(project.DefaultConfigPath(), cfg))
	require.NoError(t, runPresetSave("Night", "", ""))

	backup := filepath.Join(t.TempDir(), "pitplan-backup.json")
	require.NoError(t, runBackupExport(backup))

	t.Setenv("HOME", t.TempDir())
	require.NoError(t, runBackupImport(backup))

	restored, err := project.LoadAppConfig(project.DefaultConfigPath())
	require.NoError(t, err)
	assert.Equal(t, "Survey Team", restored.ReportAuthor)
	custom, err := project.LoadPresets(project.DefaultPresetsPath())
	require.NoError(t, err)
	require.Len(t, custom, 1)
	assert.Equal(t, "Night", custom[0].Name)

	assert.Error(t, runBackupImport(filepath.Join(t.TempDir(), "missing.json")))
}
