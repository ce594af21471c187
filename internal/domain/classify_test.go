package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySlopeValue(t *testing.T) {
	tests := []struct {
		name     string
		slope    float64
		expected RiskLevel
	}{
		{"flat", 0, RiskVeryLow},
		{"just under 5", 4.999, RiskVeryLow},
		{"exactly 5", 5, RiskLow},
		{"mid low", 10, RiskLow},
		{"just under 15", 14.999, RiskLow},
		{"exactly 15", 15, RiskModerate},
		{"exactly 25", 25, RiskHigh},
		{"just under 35", 34.999, RiskHigh},
		{"exactly 35", 35, RiskVeryHigh},
		{"vertical", 90, RiskVeryHigh},
		{"beyond range", 120, RiskVeryHigh},
		{"infinite", math.Inf(1), RiskVeryHigh},
		{"negative", -3, RiskVeryLow},
		{"NoData", math.NaN(), RiskNoData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifySlopeValue(tt.slope))
		})
	}
}

func TestClassifySlopeValue_LowBandIsTwo(t *testing.T) {
	for v := 5.0; v < 15; v += 0.125 {
		assert.Equal(t, RiskLow, ClassifySlopeValue(v), "slope %v", v)
	}
}

func TestClassifyAspectValue(t *testing.T) {
	tests := []struct {
		name     string
		aspect   float64
		expected RiskLevel
	}{
		{"flat sentinel", AspectFlat, RiskLow},
		{"due north", 0, RiskLow},
		{"north just under 45", 44.999, RiskLow},
		{"exactly 45", 45, RiskModerate},
		{"due east", 90, RiskModerate},
		{"east just under 135", 134.999, RiskModerate},
		{"exactly 135", 135, RiskVeryHigh},
		{"due south", 180, RiskVeryHigh},
		{"south just under 225", 224.999, RiskVeryHigh},
		{"exactly 225", 225, RiskHigh},
		{"due west", 270, RiskHigh},
		{"west just under 315", 314.999, RiskHigh},
		{"exactly 315", 315, RiskLow},
		{"just under 360", 359.999, RiskLow},
		{"wrapped 360", 360, RiskLow},
		{"negative bearing", -5, RiskLow},
		{"NoData", math.NaN(), RiskNoData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyAspectValue(tt.aspect))
		})
	}
}

func TestClassifySlope_Grid(t *testing.T) {
	slope, err := GridFromRows([][]float64{
		{0, 5, 15},
		{25, 35, math.NaN()},
	})
	require.NoError(t, err)

	risk, err := ClassifySlope(slope)
	require.NoError(t, err)

	assert.Equal(t, Shape{Rows: 2, Cols: 3}, risk.Shape())
	assert.Equal(t, []RiskLevel{1, 2, 3, 4, 5, 0}, risk.Data())
}

func TestClassifyAspect_Grid(t *testing.T) {
	aspect, err := GridFromRows([][]float64{
		{AspectFlat, 10, 90},
		{180, 270, math.NaN()},
	})
	require.NoError(t, err)

	risk, err := ClassifyAspect(aspect)
	require.NoError(t, err)

	assert.Equal(t, []RiskLevel{2, 2, 3, 5, 4, 0}, risk.Data())
}

func TestClassify_EmptyGrid(t *testing.T) {
	_, err := ClassifySlope(nil)
	require.ErrorIs(t, err, ErrEmptyGrid)

	_, err = ClassifyAspect(&Grid{})
	require.ErrorIs(t, err, ErrEmptyGrid)
}

func TestClassify_NeverProducesZeroForValidInput(t *testing.T) {
	elev, err := SyntheticElevation(30, 30, DefaultSyntheticOptions())
	require.NoError(t, err)
	terrain, err := DeriveTerrain(elev, 2)
	require.NoError(t, err)

	slopeRisk, err := ClassifySlope(terrain.Slope)
	require.NoError(t, err)
	aspectRisk, err := ClassifyAspect(terrain.Aspect)
	require.NoError(t, err)

	for _, l := range slopeRisk.Data() {
		assert.NotEqual(t, RiskNoData, l)
	}
	for _, l := range aspectRisk.Data() {
		assert.NotEqual(t, RiskNoData, l)
	}
}

func TestClassifyVegetation(t *testing.T) {
	ref, err := GridFromRows([][]float64{
		{1, math.NaN()},
		{40, 12},
	})
	require.NoError(t, err)

	t.Run("placeholder when no fuel data", func(t *testing.T) {
		layer, err := ClassifyVegetation(ref, nil)
		require.NoError(t, err)
		assert.True(t, layer.Default)
		assert.Equal(t, []RiskLevel{3, 0, 3, 3}, layer.Risk.Data())
	})

	t.Run("supplied fuel risk", func(t *testing.T) {
		fuel, err := RiskGridFromRows([][]RiskLevel{{1, 5}, {0, 4}})
		require.NoError(t, err)

		layer, err := ClassifyVegetation(ref, fuel)
		require.NoError(t, err)
		assert.False(t, layer.Default)
		assert.Equal(t, []RiskLevel{1, 5, 0, 4}, layer.Risk.Data())
	})

	t.Run("shape mismatch", func(t *testing.T) {
		fuel, err := FilledRiskGrid(3, 2, RiskHigh)
		require.NoError(t, err)

		_, err = ClassifyVegetation(ref, fuel)
		require.ErrorIs(t, err, ErrShapeMismatch)
	})

	t.Run("empty reference", func(t *testing.T) {
		_, err := ClassifyVegetation(nil, nil)
		require.ErrorIs(t, err, ErrEmptyGrid)
	})
}

func TestClassifyFuelModel(t *testing.T) {
	codes, err := GridFromRows([][]float64{
		{float64(FuelUrban), float64(FuelBarren), float64(FuelGrass)},
		{float64(FuelShrub), float64(FuelForest), math.NaN()},
		{9, 3.5, 0},
	})
	require.NoError(t, err)

	risk, err := ClassifyFuelModel(codes)
	require.NoError(t, err)
	assert.Equal(t, []RiskLevel{1, 1, 3, 4, 5, 0, 0, 0, 0}, risk.Data())
}
