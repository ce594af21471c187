package domain

import (
	"fmt"
	"math"
)

// weightSumTolerance bounds how far Weights may drift from summing to 1.
const weightSumTolerance = 1e-6

// Weights are the per-layer factors of the weighted overlay.
type Weights struct {
	Slope      float64 `json:"slope"`
	Aspect     float64 `json:"aspect"`
	Vegetation float64 `json:"vegetation"`
}

// DefaultWeights ranks slope first, fuel load second and solar exposure third.
func DefaultWeights() Weights {
	return Weights{Slope: 0.45, Aspect: 0.25, Vegetation: 0.30}
}

// Sum returns Slope + Aspect + Vegetation.
func (w Weights) Sum() float64 { return w.Slope + w.Aspect + w.Vegetation }

// Validate checks that every weight is finite and non-negative and that they
// sum to 1. WeightedOverlay does not call it; callers do, before computing.
func (w Weights) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{{"slope", w.Slope}, {"aspect", w.Aspect}, {"vegetation", w.Vegetation}} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return fmt.Errorf("%w: %s weight %v", ErrInvalidWeights, f.name, f.v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("%w: weights sum to %v, want 1", ErrInvalidWeights, sum)
	}
	return nil
}

// CombineLevels applies the overlay formula to one cell: NoData in any layer
// gives NoData, otherwise the weighted sum is rounded half away from zero and
// clamped to 1..5.
func CombineLevels(slope, aspect, veg RiskLevel, w Weights) RiskLevel {
	if slope == RiskNoData || aspect == RiskNoData || veg == RiskNoData {
		return RiskNoData
	}
	raw := w.Slope*float64(slope) + w.Aspect*float64(aspect) + w.Vegetation*float64(veg)
	rounded := math.Round(raw)
	switch {
	case math.IsNaN(rounded) || rounded < float64(RiskVeryLow):
		return RiskVeryLow
	case rounded > float64(RiskVeryHigh):
		return RiskVeryHigh
	default:
		return RiskLevel(rounded)
	}
}

// WeightedOverlay combines the three layers cell by cell with CombineLevels.
func WeightedOverlay(slope, aspect, veg *RiskGrid, w Weights) (*RiskGrid, error) {
	if slope.isEmpty() || aspect.isEmpty() || veg.isEmpty() {
		return nil, ErrEmptyGrid
	}
	if err := sameShape(slope.Shape(), aspect.Shape(), veg.Shape()); err != nil {
		return nil, err
	}

	out, err := NewRiskGrid(slope.rows, slope.cols)
	if err != nil {
		return nil, err
	}
	for i := range out.cells {
		out.cells[i] = CombineLevels(slope.cells[i], aspect.cells[i], veg.cells[i], w)
	}
	return out, nil
}
