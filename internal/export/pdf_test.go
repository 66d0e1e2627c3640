package export

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/piwi3910/PitPlan/internal/model"
)

func TestExportPDF_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.pdf")
	project, outcome := buildTestPlan(t)

	if err := ExportPDF(path, project, outcome); err != nil {
		t.Fatalf("ExportPDF returned error: %v", err)
	}
	// Two region pages and the summary page
	assertFileWritten(t, path, 1000)
}

func TestExportPDF_NoRegions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pdf")

	err := ExportPDF(path, model.NewProject(), model.PlanOutcome{})
	if err == nil {
		t.Fatal("expected error for project without regions, got nil")
	}
}

func TestExportPDF_EmptyPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.pdf")
	project, _ := buildTestPlan(t)

	if err := ExportPDF(path, project, model.PlanOutcome{}); err != nil {
		t.Fatalf("ExportPDF returned error: %v", err)
	}
	assertFileWritten(t, path, 500)
}

func TestExportPDF_ManyItems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "many.pdf")
	project, outcome := buildTestPlan(t)

	// More items than colors and more rows than fit beside the drawing
	for i := 0; i < 40; i++ {
		outcome.Items = append(outcome.Items, model.ItemOutcome{
			ItemID:            fmt.Sprintf("extra-%d", i),
			RegionKey:         "north",
			Angle:             i * 9,
			RequestedQuantity: 1,
		})
	}

	if err := ExportPDF(path, project, outcome); err != nil {
		t.Fatalf("ExportPDF returned error: %v", err)
	}
	assertFileWritten(t, path, 1000)
}

func TestItemsForRegion(t *testing.T) {
	_, outcome := buildTestPlan(t)

	if got := len(itemsForRegion(outcome, "north")); got != 2 {
		t.Errorf("itemsForRegion(north) = %d items, want 2", got)
	}
	if got := len(itemsForRegion(outcome, "nowhere")); got != 0 {
		t.Errorf("itemsForRegion(nowhere) = %d items, want 0", got)
	}
}

func TestViewport_FlipsY(t *testing.T) {
	vp := newViewport(model.Vertex{X: 0, Y: 0}, model.Vertex{X: 10, Y: 10}, 0, 0, 100, 100)

	top := vp.point(model.Vertex{X: 0, Y: 10})
	bottom := vp.point(model.Vertex{X: 10, Y: 0})
	if top.X != 0 || top.Y != 0 {
		t.Errorf("north-west corner maps to %+v, want (0, 0)", top)
	}
	if bottom.X != 100 || bottom.Y != 100 {
		t.Errorf("south-east corner maps to %+v, want (100, 100)", bottom)
	}
}
