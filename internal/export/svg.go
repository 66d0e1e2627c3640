package export

import (
	"fmt"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"

	"github.com/piwi3910/PitPlan/internal/model"
)

// pathRenderer is implemented by both the svg and rasterizer renderers.
type pathRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// planMap holds the world extent of a plan drawing. Canvas coordinates share
// the world orientation (y up), shifted so the extent starts at the padding.
type planMap struct {
	project model.Project
	outcome model.PlanOutcome

	minX, minY    float64
	width, height float64
	padding       float64
	lineWidth     float64
}

func newPlanMap(project model.Project, outcome model.PlanOutcome) (*planMap, error) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, r := range project.Regions {
		if !r.Footprint.Valid() {
			continue
		}
		lo, hi := r.Footprint.BoundingBox()
		minX, minY = math.Min(minX, lo.X), math.Min(minY, lo.Y)
		maxX, maxY = math.Max(maxX, hi.X), math.Max(maxY, hi.Y)
	}
	if math.IsInf(minX, 1) {
		return nil, fmt.Errorf("no region footprints to render")
	}

	span := math.Max(maxX-minX, maxY-minY)
	if span <= 0 {
		span = 1
	}
	padding := span * 0.05
	return &planMap{
		project:   project,
		outcome:   outcome,
		minX:      minX,
		minY:      minY,
		width:     maxX - minX + 2*padding,
		height:    maxY - minY + 2*padding,
		padding:   padding,
		lineWidth: span / 400,
	}, nil
}

func (m *planMap) toCanvas(x, y float64) (float64, float64) {
	return x - m.minX + m.padding, y - m.minY + m.padding
}

func (m *planMap) footprintPath(f model.Footprint) *canvas.Path {
	p := &canvas.Path{}
	for i, v := range f {
		cx, cy := m.toCanvas(v.X, v.Y)
		if i == 0 {
			p.MoveTo(cx, cy)
		} else {
			p.LineTo(cx, cy)
		}
	}
	p.Close()
	return p
}

func rgba(c itemColor, alpha uint8) color.RGBA {
	// canvas expects premultiplied colors
	scale := func(v int) uint8 { return uint8(v * int(alpha) / 255) }
	return color.RGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: alpha}
}

// render draws the plan: region footprints, extraction footprints, then extracted points.
func (m *planMap) render(r pathRenderer) {
	bg := canvas.DefaultStyle
	bg.Fill = canvas.Paint{Color: canvas.White}
	r.RenderPath(canvas.Rectangle(m.width, m.height), bg, canvas.Identity)

	regionStyle := canvas.DefaultStyle
	regionStyle.Fill = canvas.Paint{Color: color.RGBA{R: 235, G: 225, B: 205, A: 255}}
	regionStyle.Stroke = canvas.Paint{Color: canvas.Gray}
	regionStyle.StrokeWidth = m.lineWidth
	for _, reg := range m.project.Regions {
		if reg.Footprint.Valid() {
			r.RenderPath(m.footprintPath(reg.Footprint), regionStyle, canvas.Identity)
		}
	}

	for i, it := range m.outcome.Items {
		col := itemColors[i%len(itemColors)]
		if len(it.ExtractionFootprint) >= 3 {
			style := canvas.DefaultStyle
			style.Fill = canvas.Paint{Color: rgba(col, 128)}
			style.Stroke = canvas.Paint{Color: rgba(col, 255)}
			style.StrokeWidth = m.lineWidth
			if it.InvalidStart {
				style.Dashes = []float64{4 * m.lineWidth, 2 * m.lineWidth}
			}
			r.RenderPath(m.footprintPath(it.ExtractionFootprint), style, canvas.Identity)
		}

		dot := canvas.DefaultStyle
		dot.Fill = canvas.Paint{Color: rgba(col, 255)}
		dot.Stroke = canvas.Paint{Color: canvas.Transparent}
		for _, p := range it.ExtractedPoints {
			cx, cy := m.toCanvas(p.X, p.Y)
			r.RenderPath(canvas.Circle(m.lineWidth*1.5).Translate(cx, cy), dot, canvas.Identity)
		}
	}
}

// RenderPlanSVG writes a plan map as SVG: region footprints, extraction
// footprints (dashed when the start bearing is obstructed) and extracted points.
func RenderPlanSVG(w io.Writer, project model.Project, outcome model.PlanOutcome) error {
	m, err := newPlanMap(project, outcome)
	if err != nil {
		return err
	}

	renderer := svg.New(w, m.width, m.height, nil)
	m.render(renderer)
	if err := renderer.Close(); err != nil {
		return fmt.Errorf("failed to write SVG: %w", err)
	}
	return nil
}

// RenderPlanPNG rasterizes the same plan map. dpmm is the resolution in
// pixels per world unit.
func RenderPlanPNG(w io.Writer, project model.Project, outcome model.PlanOutcome, dpmm float64) error {
	m, err := newPlanMap(project, outcome)
	if err != nil {
		return err
	}
	if !(dpmm > 0) || math.IsInf(dpmm, 0) {
		dpmm = 1
	}

	rast := rasterizer.New(m.width, m.height, canvas.DPMM(dpmm), canvas.DefaultColorSpace)
	m.render(rast)
	if err := png.Encode(w, rast); err != nil {
		return fmt.Errorf("failed to write PNG: %w", err)
	}
	return nil
}
