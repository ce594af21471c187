package domain

import (
	"fmt"
	"math"
)

// Georef places a grid on the ground. XLL/YLL is the lower-left corner of the
// lower-left cell; row 0 is the northern edge. Projection is an opaque CRS
// description (WKT) carried through unchanged.
type Georef struct {
	XLL        float64 `json:"xll"`
	YLL        float64 `json:"yll"`
	CellSize   float64 `json:"cell_size"`
	Projection string  `json:"projection,omitempty"`
}

// Validate checks that the cell size can be used for gradient computation.
func (g Georef) Validate() error {
	if !(g.CellSize > 0) || math.IsInf(g.CellSize, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidCellSize, g.CellSize)
	}
	return nil
}
