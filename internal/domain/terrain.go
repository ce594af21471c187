package domain

import (
	"fmt"
	"math"
)

const (
	// FlatSlopeDegrees is the slope below which aspect is reported as AspectFlat.
	FlatSlopeDegrees = 1.0

	// AspectFlat marks a cell too flat to have a meaningful bearing.
	AspectFlat = -1.0

	maxSlopeDegrees = 90.0
)

// Terrain holds the derivatives of one elevation grid.
type Terrain struct {
	Slope  *Grid // degrees from horizontal
	Aspect *Grid // compass bearing of the downslope direction, or AspectFlat
}

type terrainConfig struct {
	workers int
}

// TerrainOption tunes DeriveTerrain.
type TerrainOption func(*terrainConfig)

// WithWorkers spreads rows over n goroutines. Results are identical to a
// single-threaded run.
func WithWorkers(n int) TerrainOption {
	return func(c *terrainConfig) { c.workers = n }
}

// DeriveTerrain computes slope and aspect from elev using Horn's method.
// cellSize is the ground distance between adjacent cells, equal in both axes.
// The input grid is not modified.
func DeriveTerrain(elev *Grid, cellSize float64, opts ...TerrainOption) (Terrain, error) {
	if elev.isEmpty() {
		return Terrain{}, ErrEmptyGrid
	}
	if !(cellSize > 0) || math.IsInf(cellSize, 0) {
		return Terrain{}, fmt.Errorf("%w: %v", ErrInvalidCellSize, cellSize)
	}

	var cfg terrainConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	shape := elev.Shape()
	slope, err := NewGrid(shape.Rows, shape.Cols)
	if err != nil {
		return Terrain{}, err
	}
	aspect, err := NewGrid(shape.Rows, shape.Cols)
	if err != nil {
		return Terrain{}, err
	}

	denom := 8 * cellSize
	forEachRow(shape.Rows, cfg.workers, func(r int) {
		north := elev.row(clampIndex(r-1, shape.Rows))
		here := elev.row(r)
		south := elev.row(clampIndex(r+1, shape.Rows))
		slopeRow := slope.row(r)
		aspectRow := aspect.row(r)

		for c := 0; c < shape.Cols; c++ {
			w := clampIndex(c-1, shape.Cols)
			e := clampIndex(c+1, shape.Cols)

			dzdx := ((north[e] + 2*here[e] + south[e]) - (north[w] + 2*here[w] + south[w])) / denom
			dzdy := ((south[w] + 2*south[c] + south[e]) - (north[w] + 2*north[c] + north[e])) / denom

			s, a := slopeAspect(dzdx, dzdy)
			if IsNoData(here[c]) {
				s, a = math.NaN(), math.NaN()
			}
			slopeRow[c] = s
			aspectRow[c] = a
		}
	})

	return Terrain{Slope: slope, Aspect: aspect}, nil
}

// slopeAspect converts a gradient into slope degrees and a compass bearing.
// A NaN gradient yields NaN for both.
func slopeAspect(dzdx, dzdy float64) (slope, aspect float64) {
	if math.IsNaN(dzdx) || math.IsNaN(dzdy) {
		return math.NaN(), math.NaN()
	}

	slope = degrees(math.Atan(math.Hypot(dzdx, dzdy)))
	slope = math.Min(math.Max(slope, 0), maxSlopeDegrees)

	if slope < FlatSlopeDegrees {
		return slope, AspectFlat
	}

	aspect = 90 - degrees(math.Atan2(dzdy, -dzdx))
	if aspect < 0 {
		aspect += 360
	}
	if aspect >= 360 {
		aspect -= 360
	}
	return slope, aspect
}

// clampIndex extends the grid edge outward: -1 reads row 0, n reads row n-1.
func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
