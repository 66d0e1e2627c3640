package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/PitPlan/internal/engine"
	"github.com/piwi3910/PitPlan/internal/model"
)

const (
	planSheet    = "Plan"
	regionsSheet = "Regions"
)

var (
	planHeaders    = []interface{}{"Item", "Region", "Angle", "Requested", "Extracted", "Average Grade", "Obstructed"}
	regionsHeaders = []interface{}{"Key", "Name", "Min Z", "Max Z", "Points", "Min Grade", "Avg Grade", "Max Grade", "Extracted", "Remaining", "Extracted Grade", "Valid Bearings"}
)

// ExportXLSX writes the plan outcome and the per-region figures to a workbook
// with a "Plan" sheet and a "Regions" sheet.
func ExportXLSX(path string, project model.Project, outcome model.PlanOutcome) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), planSheet); err != nil {
		return fmt.Errorf("failed to create plan sheet: %w", err)
	}
	if _, err := f.NewSheet(regionsSheet); err != nil {
		return fmt.Errorf("failed to create regions sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E6E6E6"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeRows(f, planSheet, header, planHeaders, planRows(outcome)); err != nil {
		return err
	}
	if err := writeRows(f, regionsSheet, header, regionsHeaders, regionRows(project, outcome)); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func planRows(outcome model.PlanOutcome) [][]interface{} {
	rows := make([][]interface{}, 0, len(outcome.Items)+1)
	for _, it := range outcome.Items {
		rows = append(rows, []interface{}{
			it.ItemID, it.RegionKey, it.Angle, it.RequestedQuantity,
			it.ExtractedPointCount, it.ExtractedAverageGrade, it.InvalidStart,
		})
	}
	rows = append(rows, []interface{}{
		"Total", "", "", "", outcome.ExtractedPointCount, outcome.AverageGrade, outcome.InvalidStartCount(),
	})
	return rows
}

func regionRows(project model.Project, outcome model.PlanOutcome) [][]interface{} {
	summaries := engine.SummarizeRegions(project.Regions, outcome)
	rows := make([][]interface{}, len(project.Regions))
	for i, r := range project.Regions {
		s := summaries[i]
		rows[i] = []interface{}{
			r.Key, r.Name, r.MinZ, r.MaxZ, r.PointCount, r.MinW, r.AvgW, r.MaxW,
			s.Extracted, s.Remaining, s.AverageGrade, validBearingCount(r),
		}
	}
	return rows
}

// validBearingCount counts unobstructed bearings. A missing table counts as all valid.
func validBearingCount(r model.Region) int {
	if len(r.ValidStartAngles) < model.AngleTableSize {
		return model.AngleTableSize
	}
	n := 0
	for _, ok := range r.ValidStartAngles[:model.AngleTableSize] {
		if ok {
			n++
		}
	}
	return n
}

func writeRows(f *excelize.File, sheet string, headerStyle int, headers []interface{}, rows [][]interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
