package domain

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCellSize = 10.0

// planeGrid builds a rows x cols grid with z = base + dr*row + dc*col.
func planeGrid(t *testing.T, rows, cols int, base, dr, dc float64) *Grid {
	t.Helper()
	g, err := NewGrid(rows, cols)
	require.NoError(t, err)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			g.Set(r, c, base+dr*float64(r)+dc*float64(c))
		}
	}
	return g
}

func TestDeriveTerrain_FlatGrid(t *testing.T) {
	elev, err := FilledGrid(3, 3, 100)
	require.NoError(t, err)

	terrain, err := DeriveTerrain(elev, testCellSize)
	require.NoError(t, err)

	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			assert.Equal(t, 0.0, terrain.Slope.At(r, c))
			assert.Equal(t, AspectFlat, terrain.Aspect.At(r, c))
		}
	}
}

func TestDeriveTerrain_PlaneOrientation(t *testing.T) {
	tests := []struct {
		name   string
		dr, dc float64
		aspect float64
	}{
		{"falls to the east", 0, -10, 90},
		{"falls to the south", -10, 0, 180},
		{"falls to the west", 0, 10, 270},
		{"falls to the north", 10, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			elev := planeGrid(t, 5, 5, 500, tt.dr, tt.dc)
			terrain, err := DeriveTerrain(elev, testCellSize)
			require.NoError(t, err)

			// A 10 m rise per 10 m cell is a 45 degree slope.
			for r := 1; r < 4; r++ {
				for c := 1; c < 4; c++ {
					assert.InDelta(t, 45.0, terrain.Slope.At(r, c), 1e-9)
					assert.InDelta(t, 0, bearingDiff(tt.aspect, terrain.Aspect.At(r, c)), 1e-9)
				}
			}
		})
	}
}

func TestDeriveTerrain_EdgeCellsExtendTheBorder(t *testing.T) {
	elev := planeGrid(t, 3, 3, 100, 0, -10)
	terrain, err := DeriveTerrain(elev, testCellSize)
	require.NoError(t, err)

	// The western column only sees one step of fall: dz/dx = -0.5.
	assert.InDelta(t, degrees(math.Atan(0.5)), terrain.Slope.At(1, 0), 1e-9)
	assert.InDelta(t, 45.0, terrain.Slope.At(1, 1), 1e-9)
}

func TestDeriveTerrain_GentleSlopeIsFlat(t *testing.T) {
	elev := planeGrid(t, 4, 4, 100, 0.01, -0.02)
	terrain, err := DeriveTerrain(elev, testCellSize)
	require.NoError(t, err)

	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			assert.Less(t, terrain.Slope.At(r, c), FlatSlopeDegrees)
			assert.Equal(t, AspectFlat, terrain.Aspect.At(r, c))
		}
	}
}

func TestDeriveTerrain_NoDataPropagates(t *testing.T) {
	elev := planeGrid(t, 5, 5, 100, 3, -7)
	elev.Set(1, 1, math.NaN())

	terrain, err := DeriveTerrain(elev, testCellSize)
	require.NoError(t, err)

	for r := 0; r <= 2; r++ {
		for c := 0; c <= 2; c++ {
			assert.True(t, IsNoData(terrain.Slope.At(r, c)), "slope at %d,%d", r, c)
			assert.True(t, IsNoData(terrain.Aspect.At(r, c)), "aspect at %d,%d", r, c)
		}
	}
	assert.False(t, IsNoData(terrain.Slope.At(3, 3)))
	assert.False(t, IsNoData(terrain.Aspect.At(4, 4)))
}

func TestDeriveTerrain_AllNoData(t *testing.T) {
	elev, err := FilledGrid(2, 3, math.NaN())
	require.NoError(t, err)

	terrain, err := DeriveTerrain(elev, testCellSize)
	require.NoError(t, err)
	assert.Equal(t, 6, terrain.Slope.NoDataCount())
	assert.Equal(t, 6, terrain.Aspect.NoDataCount())
}

func TestDeriveTerrain_SingleCell(t *testing.T) {
	elev, err := FilledGrid(1, 1, 250)
	require.NoError(t, err)

	terrain, err := DeriveTerrain(elev, 30)
	require.NoError(t, err)
	assert.Equal(t, 0.0, terrain.Slope.At(0, 0))
	assert.Equal(t, AspectFlat, terrain.Aspect.At(0, 0))
}

func TestDeriveTerrain_Preconditions(t *testing.T) {
	elev, err := FilledGrid(3, 3, 1)
	require.NoError(t, err)

	t.Run("nil grid", func(t *testing.T) {
		_, err := DeriveTerrain(nil, testCellSize)
		require.ErrorIs(t, err, ErrEmptyGrid)
	})

	t.Run("zero-value grid", func(t *testing.T) {
		_, err := DeriveTerrain(&Grid{}, testCellSize)
		require.ErrorIs(t, err, ErrEmptyGrid)
	})

	for _, cs := range []float64{0, -10, math.NaN(), math.Inf(1)} {
		_, err := DeriveTerrain(elev, cs)
		require.ErrorIs(t, err, ErrInvalidCellSize, "cell size %v", cs)
	}
}

func TestDeriveTerrain_OutputRanges(t *testing.T) {
	elev, err := SyntheticElevation(40, 55, DefaultSyntheticOptions())
	require.NoError(t, err)
	elev.Set(10, 10, math.NaN())
	elev.Set(0, 54, math.NaN())

	// A coarse cell size keeps many cells under the flat threshold.
	for _, cs := range []float64{1, 10, 400} {
		terrain, err := DeriveTerrain(elev, cs)
		require.NoError(t, err)

		s := terrain.Slope.Shape()
		assert.Equal(t, elev.Shape(), s)
		for r := 0; r < s.Rows; r++ {
			for c := 0; c < s.Cols; c++ {
				slope, aspect := terrain.Slope.At(r, c), terrain.Aspect.At(r, c)
				if IsNoData(slope) {
					assert.True(t, IsNoData(aspect))
					continue
				}
				assert.GreaterOrEqual(t, slope, 0.0)
				assert.LessOrEqual(t, slope, 90.0)
				if slope < FlatSlopeDegrees {
					assert.Equal(t, AspectFlat, aspect)
					continue
				}
				assert.GreaterOrEqual(t, aspect, 0.0)
				assert.Less(t, aspect, 360.0)
			}
		}
	}
}

func TestDeriveTerrain_DeterministicAcrossWorkers(t *testing.T) {
	elev, err := SyntheticElevation(33, 21, DefaultSyntheticOptions())
	require.NoError(t, err)
	elev.Set(5, 5, math.NaN())
	before := bits(elev.Data())

	serial, err := DeriveTerrain(elev, testCellSize)
	require.NoError(t, err)

	for _, workers := range []int{1, 2, 4, 7, 64} {
		parallel, err := DeriveTerrain(elev, testCellSize, WithWorkers(workers))
		require.NoError(t, err)
		if diff := cmp.Diff(bits(serial.Slope.Data()), bits(parallel.Slope.Data())); diff != "" {
			t.Fatalf("slope differs with %d workers (-serial +parallel):\n%s", workers, diff)
		}
		if diff := cmp.Diff(bits(serial.Aspect.Data()), bits(parallel.Aspect.Data())); diff != "" {
			t.Fatalf("aspect differs with %d workers (-serial +parallel):\n%s", workers, diff)
		}
	}

	assert.Equal(t, before, bits(elev.Data()), "input grid must not be modified")
}

func TestSlopeAspect(t *testing.T) {
	tests := []struct {
		name       string
		dzdx, dzdy float64
		slope      float64
		aspect     float64
	}{
		{"zero gradient", 0, 0, 0, AspectFlat},
		{"north-east downslope", -1, 1, degrees(math.Atan(math.Sqrt2)), 45},
		{"south-west downslope", 1, -1, degrees(math.Atan(math.Sqrt2)), 225},
		{"vertical wall", math.Inf(-1), 0, 90, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slope, aspect := slopeAspect(tt.dzdx, tt.dzdy)
			assert.InDelta(t, tt.slope, slope, 1e-9)
			assert.InDelta(t, tt.aspect, aspect, 1e-9)
		})
	}

	t.Run("NaN gradient", func(t *testing.T) {
		slope, aspect := slopeAspect(math.NaN(), 0)
		assert.True(t, IsNoData(slope))
		assert.True(t, IsNoData(aspect))
	})
}

// bearingDiff is the absolute angle between two bearings, so 0 and 359.999 are close.
func bearingDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	return math.Min(d, 360-d)
}

func bits(values []float64) []uint64 {
	out := make([]uint64, len(values))
	for i, v := range values {
		out[i] = math.Float64bits(v)
	}
	return out
}
