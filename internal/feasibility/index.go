package feasibility

import (
	"math"

	"github.com/piwi3910/PitPlan/internal/model"
)

// maxGridCells bounds the memory used by the grid when the clearance radius is
// tiny compared to the extent of the cloud.
const maxGridCells = 1 << 22

// PointIndex is a uniform XY grid over a point set for horizontal proximity
// queries. Each cell stores the indices of the points that fall in it.
type PointIndex struct {
	points   []model.Point
	cellSize float64
	minX     float64
	minY     float64
	gridW    int
	gridH    int
	cells    [][]int32
}

// NewPointIndex builds a grid with the given cell size. A non-positive cell
// size produces an index that answers every query by scanning all points.
// Points with a non-finite X or Y can never be within range of a query and
// are left out.
func NewPointIndex(points []model.Point, cellSize float64) *PointIndex {
	idx := &PointIndex{points: finitePoints(points)}
	points = idx.points
	if len(points) == 0 || !(cellSize > 0) || math.IsInf(cellSize, 0) {
		return idx
	}

	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}

	// Grow cells until the grid fits the budget. Spans too wide to measure
	// fall back to scanning.
	for {
		w := math.Floor((maxX-minX)/cellSize) + 1
		h := math.Floor((maxY-minY)/cellSize) + 1
		if math.IsInf(w*h, 0) || math.IsNaN(w*h) {
			return idx
		}
		if w*h <= maxGridCells {
			idx.gridW, idx.gridH = int(w), int(h)
			break
		}
		cellSize *= 2
	}

	idx.cellSize = cellSize
	idx.minX, idx.minY = minX, minY
	idx.cells = make([][]int32, idx.gridW*idx.gridH)
	for i, p := range points {
		c := idx.cellOf(p.X, p.Y)
		idx.cells[c] = append(idx.cells[c], int32(i))
	}
	return idx
}

func finitePoints(points []model.Point) []model.Point {
	for i, p := range points {
		if !finiteXY(p) {
			out := make([]model.Point, i, len(points))
			copy(out, points[:i])
			for _, q := range points[i+1:] {
				if finiteXY(q) {
					out = append(out, q)
				}
			}
			return out
		}
	}
	return points
}

func finiteXY(p model.Point) bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

func (idx *PointIndex) cellOf(x, y float64) int {
	cx := int((x - idx.minX) / idx.cellSize)
	cy := int((y - idx.minY) / idx.cellSize)
	return cy*idx.gridW + cx
}

// Len returns the number of indexed points.
func (idx *PointIndex) Len() int {
	return len(idx.points)
}

// AnyWithin reports whether any point lies at horizontal distance strictly
// less than r from (x, y).
func (idx *PointIndex) AnyWithin(x, y, r float64) bool {
	if len(idx.points) == 0 || !(r > 0) {
		return false
	}
	r2 := r * r
	if idx.cells == nil {
		for _, p := range idx.points {
			if within(p, x, y, r2) {
				return true
			}
		}
		return false
	}

	x0 := clampCell(int(math.Floor((x-r-idx.minX)/idx.cellSize)), idx.gridW)
	x1 := clampCell(int(math.Floor((x+r-idx.minX)/idx.cellSize)), idx.gridW)
	y0 := clampCell(int(math.Floor((y-r-idx.minY)/idx.cellSize)), idx.gridH)
	y1 := clampCell(int(math.Floor((y+r-idx.minY)/idx.cellSize)), idx.gridH)
	if x+r < idx.minX || y+r < idx.minY {
		return false
	}

	for cy := y0; cy <= y1; cy++ {
		row := cy * idx.gridW
		for cx := x0; cx <= x1; cx++ {
			for _, i := range idx.cells[row+cx] {
				if within(idx.points[i], x, y, r2) {
					return true
				}
			}
		}
	}
	return false
}

func within(p model.Point, x, y, r2 float64) bool {
	dx := p.X - x
	dy := p.Y - y
	return dx*dx+dy*dy < r2
}

func clampCell(c, n int) int {
	if c < 0 {
		return 0
	}
	if c >= n {
		return n - 1
	}
	return c
}
