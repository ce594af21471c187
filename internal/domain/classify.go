package domain

import (
	"fmt"
	"math"
)

// band is a half-open interval [lo, hi) tagged with the level it maps to.
type band struct {
	lo, hi float64
	level  RiskLevel
}

// ladder is an ordered list of bands; the first band containing a value wins.
// Values matching no band get fallback.
type ladder struct {
	bands    []band
	fallback RiskLevel
}

func (l ladder) classify(v float64) RiskLevel {
	if IsNoData(v) {
		return RiskNoData
	}
	for _, b := range l.bands {
		if v >= b.lo && v < b.hi {
			return b.level
		}
	}
	return l.fallback
}

var slopeLadder = ladder{
	bands: []band{
		{math.Inf(-1), 5, RiskVeryLow},
		{5, 15, RiskLow},
		{15, 25, RiskModerate},
		{25, 35, RiskHigh},
		{35, math.Inf(1), RiskVeryHigh},
	},
	// +Inf is the only value left over.
	fallback: RiskVeryHigh,
}

// The flat sentinel is matched by its own zero-width band ahead of the
// compass sectors. Anything outside the east/south/west sectors is north.
var aspectLadder = ladder{
	bands: []band{
		{AspectFlat, math.Nextafter(AspectFlat, 0), RiskLow},
		{45, 135, RiskModerate},
		{135, 225, RiskVeryHigh},
		{225, 315, RiskHigh},
	},
	fallback: RiskLow,
}

// ClassifySlopeValue maps a slope in degrees to a risk level.
func ClassifySlopeValue(deg float64) RiskLevel { return slopeLadder.classify(deg) }

// ClassifyAspectValue maps a compass bearing, or AspectFlat, to a risk level.
func ClassifyAspectValue(bearing float64) RiskLevel { return aspectLadder.classify(bearing) }

// ClassifySlope reclassifies a slope grid.
func ClassifySlope(slope *Grid) (*RiskGrid, error) {
	return classifyGrid(slope, slopeLadder)
}

// ClassifyAspect reclassifies an aspect grid.
func ClassifyAspect(aspect *Grid) (*RiskGrid, error) {
	return classifyGrid(aspect, aspectLadder)
}

func classifyGrid(g *Grid, l ladder) (*RiskGrid, error) {
	if g.isEmpty() {
		return nil, ErrEmptyGrid
	}
	shape := g.Shape()
	out, err := NewRiskGrid(shape.Rows, shape.Cols)
	if err != nil {
		return nil, err
	}
	for r := 0; r < shape.Rows; r++ {
		for c, v := range g.row(r) {
			out.set(r, c, l.classify(v))
		}
	}
	return out, nil
}

// VegetationLayer is the vegetation/fuel risk input to the overlay.
type VegetationLayer struct {
	Risk *RiskGrid

	// Default is true when no fuel data was supplied and every valid cell was
	// filled with DefaultVegetationRisk. Treat such a layer as low confidence.
	Default bool
}

// DefaultVegetationRisk fills the vegetation layer when no fuel data exists.
const DefaultVegetationRisk = RiskModerate

// ClassifyVegetation builds the vegetation layer for the grid ref (normally
// the slope grid). A nil fuel grid yields the Moderate placeholder on every
// cell where ref has data; otherwise fuel is shape-checked and used as-is.
func ClassifyVegetation(ref *Grid, fuel *RiskGrid) (VegetationLayer, error) {
	if ref.isEmpty() {
		return VegetationLayer{}, ErrEmptyGrid
	}
	shape := ref.Shape()

	if fuel != nil {
		if fuel.isEmpty() {
			return VegetationLayer{}, ErrEmptyGrid
		}
		if err := sameShape(shape, fuel.Shape()); err != nil {
			return VegetationLayer{}, fmt.Errorf("vegetation layer: %w", err)
		}
		risk, err := NewRiskGridFromData(shape.Rows, shape.Cols, fuel.cells)
		if err != nil {
			return VegetationLayer{}, fmt.Errorf("vegetation layer: %w", err)
		}
		return VegetationLayer{Risk: risk}, nil
	}

	risk, err := NewRiskGrid(shape.Rows, shape.Cols)
	if err != nil {
		return VegetationLayer{}, err
	}
	for r := 0; r < shape.Rows; r++ {
		for c, v := range ref.row(r) {
			if !IsNoData(v) {
				risk.set(r, c, DefaultVegetationRisk)
			}
		}
	}
	return VegetationLayer{Risk: risk, Default: true}, nil
}

// FuelModel is a categorical fuel class code as stored in a fuel raster.
type FuelModel int

const (
	FuelUrban  FuelModel = 1
	FuelBarren FuelModel = 2
	FuelGrass  FuelModel = 3
	FuelShrub  FuelModel = 4
	FuelForest FuelModel = 5
)

var fuelRisk = map[FuelModel]RiskLevel{
	FuelUrban:  RiskVeryLow,
	FuelBarren: RiskVeryLow,
	FuelGrass:  RiskModerate,
	FuelShrub:  RiskHigh,
	FuelForest: RiskVeryHigh,
}

// ClassifyFuelModel converts a grid of fuel class codes to vegetation risk.
// NaN, fractional and unknown codes become NoData.
func ClassifyFuelModel(codes *Grid) (*RiskGrid, error) {
	if codes.isEmpty() {
		return nil, ErrEmptyGrid
	}
	shape := codes.Shape()
	out, err := NewRiskGrid(shape.Rows, shape.Cols)
	if err != nil {
		return nil, err
	}
	for r := 0; r < shape.Rows; r++ {
		for c, v := range codes.row(r) {
			if IsNoData(v) || v != math.Trunc(v) {
				continue
			}
			out.set(r, c, fuelRisk[FuelModel(v)])
		}
	}
	return out, nil
}
