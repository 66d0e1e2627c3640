// Package export provides functionality for exporting extraction plans and
// their simulated outcomes to various file formats.
package export

import (
	"fmt"
	"math"

	"github.com/go-pdf/fpdf"
	"github.com/piwi3910/PitPlan/internal/engine"
	"github.com/piwi3910/PitPlan/internal/model"
)

// itemColor represents an RGB color for an extraction footprint.
type itemColor struct {
	R, G, B int
}

// itemColors is the color scheme shared by every rendered report.
var itemColors = []itemColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	drawAreaTop  = marginTop + headerHeight + 5.0
	tableWidth   = 105.0
)

// ExportPDF generates a PDF report of a plan. Each region with plan items is
// rendered on its own page with its footprint, the extraction footprints and
// an item table, followed by a summary page with overall statistics.
func ExportPDF(path string, project model.Project, outcome model.PlanOutcome) error {
	if len(project.Regions) == 0 {
		return fmt.Errorf("no regions to export")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	for _, r := range project.Regions {
		items := itemsForRegion(outcome, r.Key)
		if len(items) == 0 {
			continue
		}
		pdf.AddPage()
		renderRegionPage(pdf, r, items)
	}

	pdf.AddPage()
	renderSummaryPage(pdf, project, outcome)

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

// itemsForRegion returns the outcomes of the items assigned to a region.
func itemsForRegion(outcome model.PlanOutcome, key string) []model.ItemOutcome {
	var items []model.ItemOutcome
	for _, it := range outcome.Items {
		if it.RegionKey == key {
			items = append(items, it)
		}
	}
	return items
}

// viewport maps world coordinates into a page rectangle, flipping Y so north is up.
type viewport struct {
	scale            float64
	minX, maxY       float64
	offsetX, offsetY float64
}

func newViewport(min, max model.Vertex, x, y, w, h float64) viewport {
	spanX := math.Max(max.X-min.X, 1e-9)
	spanY := math.Max(max.Y-min.Y, 1e-9)
	scale := math.Min(w/spanX, h/spanY)
	return viewport{
		scale:   scale,
		minX:    min.X,
		maxY:    max.Y,
		offsetX: x + (w-spanX*scale)/2,
		offsetY: y + (h-spanY*scale)/2,
	}
}

func (v viewport) point(p model.Vertex) fpdf.PointType {
	return fpdf.PointType{
		X: v.offsetX + (p.X-v.minX)*v.scale,
		Y: v.offsetY + (v.maxY-p.Y)*v.scale,
	}
}

func (v viewport) polygon(f model.Footprint) []fpdf.PointType {
	pts := make([]fpdf.PointType, len(f))
	for i, p := range f {
		pts[i] = v.point(p)
	}
	return pts
}

// renderRegionPage draws a single region and its plan items on the current page.
func renderRegionPage(pdf *fpdf.Fpdf, r model.Region, items []model.ItemOutcome) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("Region %s (z %.1f to %.1f)", regionTitle(r), r.MinZ, r.MaxZ)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	stats := fmt.Sprintf("Points: %d | Grade min %.3f / avg %.3f / max %.3f | Items: %d",
		r.PointCount, r.MinW, r.AvgW, r.MaxW, len(items))
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, stats, "", 0, "L", false, 0, "")

	drawWidth := pageWidth - marginLeft - marginRight - tableWidth - 5
	drawHeight := pageHeight - drawAreaTop - marginBottom
	if r.Footprint.Valid() {
		min, max := r.Footprint.BoundingBox()
		vp := newViewport(min, max, marginLeft, drawAreaTop, drawWidth, drawHeight)

		pdf.SetFillColor(235, 225, 205)
		pdf.SetDrawColor(100, 100, 100)
		pdf.SetLineWidth(0.5)
		pdf.Polygon(vp.polygon(r.Footprint), "FD")

		pdf.SetLineWidth(0.3)
		for i, it := range items {
			col := itemColors[i%len(itemColors)]
			if len(it.ExtractionFootprint) >= 3 {
				pdf.SetFillColor(col.R, col.G, col.B)
				pdf.SetDrawColor(30, 30, 30)
				pdf.SetAlpha(0.5, "Normal")
				pdf.Polygon(vp.polygon(it.ExtractionFootprint), "FD")
				pdf.SetAlpha(1, "Normal")
			}
			pdf.SetFillColor(col.R, col.G, col.B)
			for _, p := range it.ExtractedPoints {
				c := vp.point(model.Vertex{X: p.X, Y: p.Y})
				pdf.Circle(c.X, c.Y, 0.4, "F")
			}
		}
	}

	drawItemTable(pdf, items, pageWidth-marginRight-tableWidth, drawAreaTop)
}

// drawItemTable renders the per-item figures next to the region drawing.
func drawItemTable(pdf *fpdf.Fpdf, items []model.ItemOutcome, x, y float64) {
	colWidths := []float64{8, 22, 15, 20, 20, 20}
	headers := []string{"", "Item", "Angle", "Requested", "Extracted", "Grade"}

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	xPos := x
	for i, h := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], 6, h, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += 6

	pdf.SetFont("Helvetica", "", 8)
	for i, it := range items {
		if y > pageHeight-marginBottom-6 {
			pdf.SetXY(x, y)
			pdf.CellFormat(tableWidth, 5, fmt.Sprintf("... %d more items", len(items)-i), "", 0, "L", false, 0, "")
			return
		}

		col := itemColors[i%len(itemColors)]
		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.Rect(x, y, colWidths[0], 6, "FD")

		angle := fmt.Sprintf("%d\xb0", it.Angle)
		if it.InvalidStart {
			angle += " !"
		}
		row := []string{
			it.ItemID,
			angle,
			fmt.Sprintf("%d", it.RequestedQuantity),
			fmt.Sprintf("%d", it.ExtractedPointCount),
			fmt.Sprintf("%.3f", it.ExtractedAverageGrade),
		}
		if it.InvalidStart {
			pdf.SetTextColor(200, 0, 0)
		}
		xPos = x + colWidths[0]
		for j, cell := range row {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j+1], 6, cell, "1", 0, "C", false, 0, "")
			xPos += colWidths[j+1]
		}
		pdf.SetTextColor(0, 0, 0)
		y += 6
	}
}

// renderSummaryPage draws the final summary page with overall statistics.
func renderSummaryPage(pdf *fpdf.Fpdf, project model.Project, outcome model.PlanOutcome) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, "Extraction Plan Summary: "+project.Name, "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Overall Statistics", "", 0, "L", false, 0, "")
	y += 9

	summaryItems := []struct {
		label string
		value string
	}{
		{"Plan Items", fmt.Sprintf("%d", len(outcome.Items))},
		{"Extracted Points", fmt.Sprintf("%d (target %d)", outcome.ExtractedPointCount, project.Targets.PointCount)},
		{"Average Grade", fmt.Sprintf("%.4f (target %.4f)", outcome.AverageGrade, project.Targets.AverageGrade)},
		{"Obstructed Starts", fmt.Sprintf("%d", outcome.InvalidStartCount())},
		{"Standoff / Clearance", fmt.Sprintf("%.2f / %.2f", project.Feasibility.StandoffDistance, project.Feasibility.ClearanceRadius)},
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range summaryItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(80, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}

	y += 5

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Region Breakdown", "", 0, "L", false, 0, "")
	y += 9

	colWidths := []float64{60, 30, 30, 30, 35, 30, 30}
	headers := []string{"Region", "Points", "Extracted", "Remaining", "Avg Grade", "Items", "Obstructed"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], 6, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += 6

	pdf.SetFont("Helvetica", "", 9)
	for i, s := range engine.SummarizeRegions(project.Regions, outcome) {
		if y > pageHeight-marginBottom-10 {
			pdf.AddPage()
			y = marginTop
		}
		xPos = marginLeft
		rowData := []string{
			summaryTitle(s),
			fmt.Sprintf("%d", s.PointCount),
			fmt.Sprintf("%d", s.Extracted),
			fmt.Sprintf("%d", s.Remaining),
			fmt.Sprintf("%.4f", s.AverageGrade),
			fmt.Sprintf("%d", s.ItemCount),
			fmt.Sprintf("%d", s.InvalidStarts),
		}

		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		for j, cell := range rowData {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], 6, cell, "1", 0, "C", true, 0, "")
			xPos += colWidths[j]
		}
		y += 6
	}

	if n := outcome.InvalidStartCount(); n > 0 {
		y += 8
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(200, 0, 0)
		pdf.SetXY(marginLeft, y)
		pdf.CellFormat(200, 7, fmt.Sprintf("WARNING: %d items start from an obstructed bearing", n), "", 0, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, "Generated by PitPlan - Extraction Plan Optimizer", "", 0, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

func regionTitle(r model.Region) string {
	if r.Name != "" {
		return r.Name
	}
	return r.Key
}

func summaryTitle(s engine.RegionSummary) string {
	if s.Name != "" {
		return s.Name
	}
	return s.RegionKey
}
