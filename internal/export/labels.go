package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/piwi3910/PitPlan/internal/model"
	qrcode "github.com/skip2/go-qrcode"
)

// LabelInfo holds the data encoded into each plan item label's QR code.
type LabelInfo struct {
	ItemID       string  `json:"item"`
	RegionKey    string  `json:"region"`
	RegionName   string  `json:"region_name"`
	Angle        int     `json:"angle_deg"`
	Quantity     int     `json:"quantity"`
	Extracted    int     `json:"extracted"`
	AverageGrade float64 `json:"grade"`
	InvalidStart bool    `json:"obstructed"`
}

// Label layout constants for Avery 5160-compatible labels (3 columns, 10 rows per page).
// Each label cell is approximately 66.7mm x 25.4mm on US Letter paper.
const (
	labelMarginTop  = 12.7 // mm
	labelMarginLeft = 4.8  // mm
	labelWidth      = 66.7 // mm per label
	labelHeight     = 25.4 // mm per label
	labelCols       = 3
	labelRows       = 10
	labelsPerPage   = labelCols * labelRows
	qrSize          = 20.0 // QR code size in mm
	labelPadding    = 2.0  // mm internal padding
)

// ExportLabels generates a PDF of QR-coded labels, one per plan item with a
// non-zero extraction. Each label carries the region, bearing and quantities
// in text and as a JSON QR payload.
func ExportLabels(path string, project model.Project, outcome model.PlanOutcome) error {
	labels := CollectLabelInfos(project, outcome)
	if len(labels) == 0 {
		return fmt.Errorf("no plan items to generate labels for")
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, label := range labels {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		posOnPage := i % labelsPerPage
		col := posOnPage % labelCols
		row := posOnPage / labelCols

		x := labelMarginLeft + float64(col)*labelWidth
		y := labelMarginTop + float64(row)*labelHeight

		if err := renderLabel(pdf, x, y, i, label); err != nil {
			return fmt.Errorf("failed to render label for %q: %w", label.ItemID, err)
		}
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("failed to write labels: %w", err)
	}
	return nil
}

// renderLabel draws a single label at the given position.
func renderLabel(pdf *fpdf.Fpdf, x, y float64, index int, info LabelInfo) error {
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelWidth, labelHeight, "D")

	qrData, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal label info: %w", err)
	}

	qrPNG, err := qrcode.Encode(string(qrData), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	// Item ids need not be unique across a hand-edited plan
	imgName := fmt.Sprintf("qr_%d_%s", index, info.ItemID)
	pdf.RegisterImageOptionsReader(imgName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))

	qrX := x + labelWidth - qrSize - labelPadding
	qrY := y + (labelHeight-qrSize)/2
	pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	textX := x + labelPadding
	textW := labelWidth - qrSize - 3*labelPadding

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(textX, y+labelPadding)

	title := info.RegionName
	if title == "" {
		title = info.RegionKey
	}
	if pdf.GetStringWidth(title) > textW {
		for len(title) > 0 && pdf.GetStringWidth(title+"...") > textW {
			title = title[:len(title)-1]
		}
		title += "..."
	}
	pdf.CellFormat(textW, 4.5, title, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetXY(textX, y+labelPadding+5)
	pdf.CellFormat(textW, 3.5, fmt.Sprintf("Bearing %d\xb0, %d of %d pts", info.Angle, info.Extracted, info.Quantity), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(textX, y+labelPadding+9)
	pdf.CellFormat(textW, 3, fmt.Sprintf("Item %s, grade %.3f", info.ItemID, info.AverageGrade), "", 1, "L", false, 0, "")

	if info.InvalidStart {
		pdf.SetXY(textX, y+labelPadding+12.5)
		pdf.SetFont("Helvetica", "I", 6)
		pdf.SetTextColor(200, 0, 0)
		pdf.CellFormat(textW, 3, "Obstructed start", "", 0, "L", false, 0, "")
	}

	pdf.SetTextColor(0, 0, 0)

	return nil
}

// CollectLabelInfos extracts label information for every item that removes points.
func CollectLabelInfos(project model.Project, outcome model.PlanOutcome) []LabelInfo {
	var labels []LabelInfo
	for _, it := range outcome.Items {
		if it.ExtractedPointCount == 0 {
			continue
		}
		info := LabelInfo{
			ItemID:       it.ItemID,
			RegionKey:    it.RegionKey,
			Angle:        it.Angle,
			Quantity:     it.RequestedQuantity,
			Extracted:    it.ExtractedPointCount,
			AverageGrade: it.ExtractedAverageGrade,
			InvalidStart: it.InvalidStart,
		}
		if r := model.FindRegion(project.Regions, it.RegionKey); r != nil {
			info.RegionName = r.Name
		}
		labels = append(labels, info)
	}
	return labels
}
