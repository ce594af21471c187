package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Shape is the row/column extent of a grid.
type Shape struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// Cells returns Rows*Cols.
func (s Shape) Cells() int { return s.Rows * s.Cols }

func (s Shape) String() string { return fmt.Sprintf("%dx%d", s.Rows, s.Cols) }

// Grid is a dense floating-point raster (elevation, slope, aspect).
// NaN marks NoData.
type Grid struct {
	m *mat.Dense
}

// NewGrid allocates a zero-filled grid.
func NewGrid(rows, cols int) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyGrid, rows, cols)
	}
	return &Grid{m: mat.NewDense(rows, cols, nil)}, nil
}

// NewGridFromData builds a grid from row-major values. The slice is copied.
func NewGridFromData(rows, cols int, data []float64) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyGrid, rows, cols)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("%w: %d values for %dx%d grid", ErrShapeMismatch, len(data), rows, cols)
	}
	buf := make([]float64, len(data))
	copy(buf, data)
	return &Grid{m: mat.NewDense(rows, cols, buf)}, nil
}

// GridFromRows builds a grid from a slice of equal-length rows.
func GridFromRows(rows [][]float64) (*Grid, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyGrid
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrShapeMismatch, i, len(row), cols)
		}
		data = append(data, row...)
	}
	return &Grid{m: mat.NewDense(len(rows), cols, data)}, nil
}

// FilledGrid returns a grid with every cell set to v.
func FilledGrid(rows, cols int, v float64) (*Grid, error) {
	g, err := NewGrid(rows, cols)
	if err != nil {
		return nil, err
	}
	data := g.m.RawMatrix().Data
	for i := range data {
		data[i] = v
	}
	return g, nil
}

// Shape reports the grid extent. A nil grid has a zero shape.
func (g *Grid) Shape() Shape {
	if g.isEmpty() {
		return Shape{}
	}
	r, c := g.m.Dims()
	return Shape{Rows: r, Cols: c}
}

// At returns the value at (row, col).
func (g *Grid) At(row, col int) float64 { return g.m.At(row, col) }

// Set stores v at (row, col).
func (g *Grid) Set(row, col int, v float64) { g.m.Set(row, col, v) }

// Data returns a row-major copy of the cells.
func (g *Grid) Data() []float64 {
	s := g.Shape()
	out := make([]float64, 0, s.Cells())
	for r := 0; r < s.Rows; r++ {
		out = append(out, g.row(r)...)
	}
	return out
}

// Matrix exposes the grid as a read-only gonum matrix.
func (g *Grid) Matrix() mat.Matrix { return g.m }

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	return &Grid{m: mat.DenseCopyOf(g.m)}
}

// NoDataCount returns the number of NaN cells.
func (g *Grid) NoDataCount() int {
	n := 0
	s := g.Shape()
	for r := 0; r < s.Rows; r++ {
		for _, v := range g.row(r) {
			if IsNoData(v) {
				n++
			}
		}
	}
	return n
}

// row returns the backing slice of a row without copying.
func (g *Grid) row(r int) []float64 {
	raw := g.m.RawMatrix()
	start := r * raw.Stride
	return raw.Data[start : start+raw.Cols]
}

func (g *Grid) isEmpty() bool {
	return g == nil || g.m == nil || g.m.IsEmpty()
}

// IsNoData reports whether v is the floating-point NoData marker.
func IsNoData(v float64) bool { return math.IsNaN(v) }

// RiskLevel is a cell value on the ordinal risk scale. Zero is NoData.
type RiskLevel uint8

const (
	RiskNoData RiskLevel = iota
	RiskVeryLow
	RiskLow
	RiskModerate
	RiskHigh
	RiskVeryHigh
)

// ClassifiedLevels lists the levels a valid classification can produce.
var ClassifiedLevels = [...]RiskLevel{RiskVeryLow, RiskLow, RiskModerate, RiskHigh, RiskVeryHigh}

// Valid reports whether l is NoData or one of the five classes.
func (l RiskLevel) Valid() bool { return l <= RiskVeryHigh }

func (l RiskLevel) String() string {
	switch l {
	case RiskNoData:
		return "NoData"
	case RiskVeryLow:
		return "Very Low"
	case RiskLow:
		return "Low"
	case RiskModerate:
		return "Moderate"
	case RiskHigh:
		return "High"
	case RiskVeryHigh:
		return "Very High"
	default:
		return fmt.Sprintf("RiskLevel(%d)", uint8(l))
	}
}

// RiskGrid is a raster of risk levels.
type RiskGrid struct {
	rows, cols int
	cells      []RiskLevel
}

// NewRiskGrid allocates a grid filled with RiskNoData.
func NewRiskGrid(rows, cols int) (*RiskGrid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyGrid, rows, cols)
	}
	return &RiskGrid{rows: rows, cols: cols, cells: make([]RiskLevel, rows*cols)}, nil
}

// NewRiskGridFromData builds a risk grid from row-major levels, rejecting
// values outside 0..5. The slice is copied.
func NewRiskGridFromData(rows, cols int, data []RiskLevel) (*RiskGrid, error) {
	g, err := NewRiskGrid(rows, cols)
	if err != nil {
		return nil, err
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("%w: %d values for %dx%d grid", ErrShapeMismatch, len(data), rows, cols)
	}
	for i, l := range data {
		if !l.Valid() {
			return nil, fmt.Errorf("%w: %d at row %d col %d", ErrInvalidRiskLevel, l, i/cols, i%cols)
		}
	}
	copy(g.cells, data)
	return g, nil
}

// RiskGridFromRows builds a risk grid from equal-length rows.
func RiskGridFromRows(rows [][]RiskLevel) (*RiskGrid, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyGrid
	}
	cols := len(rows[0])
	data := make([]RiskLevel, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrShapeMismatch, i, len(row), cols)
		}
		data = append(data, row...)
	}
	return NewRiskGridFromData(len(rows), cols, data)
}

// FilledRiskGrid returns a grid with every cell set to l.
func FilledRiskGrid(rows, cols int, l RiskLevel) (*RiskGrid, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRiskLevel, l)
	}
	g, err := NewRiskGrid(rows, cols)
	if err != nil {
		return nil, err
	}
	for i := range g.cells {
		g.cells[i] = l
	}
	return g, nil
}

// Shape reports the grid extent. A nil grid has a zero shape.
func (g *RiskGrid) Shape() Shape {
	if g == nil {
		return Shape{}
	}
	return Shape{Rows: g.rows, Cols: g.cols}
}

// At returns the level at (row, col).
func (g *RiskGrid) At(row, col int) RiskLevel { return g.cells[row*g.cols+col] }

// Data returns a row-major copy of the levels.
func (g *RiskGrid) Data() []RiskLevel {
	out := make([]RiskLevel, len(g.cells))
	copy(out, g.cells)
	return out
}

func (g *RiskGrid) set(row, col int, l RiskLevel) { g.cells[row*g.cols+col] = l }

func (g *RiskGrid) isEmpty() bool { return g == nil || len(g.cells) == 0 }

// sameShape returns ErrShapeMismatch unless every shape equals the first.
func sameShape(shapes ...Shape) error {
	for i := 1; i < len(shapes); i++ {
		if shapes[i] != shapes[0] {
			return fmt.Errorf("%w: %s vs %s", ErrShapeMismatch, shapes[0], shapes[i])
		}
	}
	return nil
}

// RiskGridFromGrid converts a floating-point raster of risk codes. NaN becomes
// RiskNoData; any other value must be a whole number in 0..5.
func RiskGridFromGrid(g *Grid) (*RiskGrid, error) {
	if g.isEmpty() {
		return nil, ErrEmptyGrid
	}
	s := g.Shape()
	out, err := NewRiskGrid(s.Rows, s.Cols)
	if err != nil {
		return nil, err
	}
	for r := 0; r < s.Rows; r++ {
		for c, v := range g.row(r) {
			if IsNoData(v) {
				continue
			}
			if v != math.Trunc(v) || v < 0 || v > float64(RiskVeryHigh) {
				return nil, fmt.Errorf("%w: %v at row %d col %d", ErrInvalidRiskLevel, v, r, c)
			}
			out.set(r, c, RiskLevel(v))
		}
	}
	return out, nil
}

// Float converts the levels to a floating-point grid, mapping RiskNoData to NaN.
func (g *RiskGrid) Float() *Grid {
	data := make([]float64, len(g.cells))
	for i, l := range g.cells {
		if l == RiskNoData {
			data[i] = math.NaN()
			continue
		}
		data[i] = float64(l)
	}
	return &Grid{m: mat.NewDense(g.rows, g.cols, data)}
}
