package export

import (
	"fmt"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/table"

	"github.com/piwi3910/PitPlan/internal/model"
)

// DXF layer names.
const (
	RegionLayer     = "REGIONS"
	ExtractionLayer = "EXTRACTIONS"
	ObstructedLayer = "OBSTRUCTED"
)

// ExportDXF writes region footprints and extraction footprints as closed
// LWPOLYLINEs in world coordinates. Extractions from obstructed bearings go to
// their own layer.
func ExportDXF(path string, project model.Project, outcome model.PlanOutcome) error {
	d := dxf.NewDrawing()

	layers := []struct {
		name  string
		color color.ColorNumber
	}{
		{RegionLayer, color.White},
		{ExtractionLayer, color.Green},
		{ObstructedLayer, color.Red},
	}
	for _, l := range layers {
		if _, err := d.AddLayer(l.name, l.color, table.LT_CONTINUOUS, false); err != nil {
			return fmt.Errorf("failed to add layer %s: %w", l.name, err)
		}
	}

	written := 0
	if err := d.ChangeLayer(RegionLayer); err != nil {
		return fmt.Errorf("failed to select layer %s: %w", RegionLayer, err)
	}
	for _, r := range project.Regions {
		if !r.Footprint.Valid() {
			continue
		}
		if err := polyline(d, r.Footprint); err != nil {
			return fmt.Errorf("failed to write region %s: %w", r.Key, err)
		}
		written++
	}

	for _, it := range outcome.Items {
		if len(it.ExtractionFootprint) < 3 {
			continue
		}
		layer := ExtractionLayer
		if it.InvalidStart {
			layer = ObstructedLayer
		}
		if err := d.ChangeLayer(layer); err != nil {
			return fmt.Errorf("failed to select layer %s: %w", layer, err)
		}
		if err := polyline(d, it.ExtractionFootprint); err != nil {
			return fmt.Errorf("failed to write item %s: %w", it.ItemID, err)
		}
		written++
	}

	if written == 0 {
		return fmt.Errorf("no footprints to export")
	}
	if err := d.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write DXF: %w", err)
	}
	return nil
}

func polyline(d *dxf.Drawing, f model.Footprint) error {
	vertices := make([][]float64, len(f))
	for i, v := range f {
		vertices[i] = []float64{v.X, v.Y}
	}
	_, err := d.LwPolyline(true, vertices...)
	return err
}
