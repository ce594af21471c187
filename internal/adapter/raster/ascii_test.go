package raster

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/fire-risk-etl/internal/domain"
)

const sampleGrid = `ncols 3
nrows 2
xllcorner 500000
yllcorner 4100000.5
cellsize 10
NODATA_value -9999
1 2.5 -9999
4 5 6
`

func TestDecode(t *testing.T) {
	g, h, err := Decode(strings.NewReader(sampleGrid))
	require.NoError(t, err)

	assert.Equal(t, domain.Shape{Rows: 2, Cols: 3}, g.Shape())
	assert.Equal(t, 2.5, g.At(0, 1))
	assert.True(t, domain.IsNoData(g.At(0, 2)))
	assert.Equal(t, 6.0, g.At(1, 2))
	assert.Equal(t, domain.Georef{XLL: 500000, YLL: 4100000.5, CellSize: 10}, h.Georef())
}

func TestDecode_CenterRegisteredAndFreeLayout(t *testing.T) {
	src := "NCOLS 2 NROWS 2 XLLCENTER 5 YLLCENTER 5 CELLSIZE 10\n1 2 3\n4"
	g, h, err := Decode(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 2, 3, 4}, g.Data())
	assert.False(t, h.HasNoData)
	assert.Equal(t, domain.Georef{XLL: 0, YLL: 0, CellSize: 10}, h.Georef())
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing cellsize", "ncols 1 nrows 1 xllcorner 0 yllcorner 0\n1"},
		{"missing yll", "ncols 1 nrows 1 xllcorner 0 cellsize 1\n1"},
		{"bad ncols", "ncols x nrows 1 xllcorner 0 yllcorner 0 cellsize 1\n1"},
		{"key without value", "ncols"},
		{"too few cells", "ncols 2 nrows 2 xllcorner 0 yllcorner 0 cellsize 1\n1 2 3"},
		{"too many cells", "ncols 1 nrows 1 xllcorner 0 yllcorner 0 cellsize 1\n1 2"},
		{"bad cell", "ncols 2 nrows 1 xllcorner 0 yllcorner 0 cellsize 1\n1 abc"},
		{"negative nrows", "ncols 5 nrows -1 xllcorner 0 yllcorner 0 cellsize 1\n1 2 3"},
		{"zero ncols", "ncols 0 nrows 3 xllcorner 0 yllcorner 0 cellsize 1\n"},
		{"product overflows", "ncols 4294967296 nrows 4294967296 xllcorner 0 yllcorner 0 cellsize 1\n1"},
		{"exceeds cell cap", "ncols 65536 nrows 65536 xllcorner 0 yllcorner 0 cellsize 1\n1"},
		{"zero cellsize", "ncols 1 nrows 1 xllcorner 0 yllcorner 0 cellsize 0\n1"},
		{"negative cellsize", "ncols 1 nrows 1 xllcorner 0 yllcorner 0 cellsize -10\n1"},
		{"NaN cellsize", "ncols 1 nrows 1 xllcorner 0 yllcorner 0 cellsize NaN\n1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(strings.NewReader(tt.src))
			require.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	g, err := domain.GridFromRows([][]float64{{1.25, math.NaN()}, {-3, 1e-7}})
	require.NoError(t, err)
	ref := domain.Georef{XLL: 10, YLL: 20, CellSize: 30}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, g, ref, FloatNoData))
	assert.Contains(t, buf.String(), "NODATA_value -9999\n1.25 -9999\n")

	back, h, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, ref, h.Georef())
	assert.Equal(t, 1.25, back.At(0, 0))
	assert.True(t, domain.IsNoData(back.At(0, 1)))
	assert.Equal(t, 1e-7, back.At(1, 1))
}

func TestEncodeRisk(t *testing.T) {
	risk, err := domain.RiskGridFromRows([][]domain.RiskLevel{{0, 1}, {5, 3}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodeRisk(&buf, risk, domain.Georef{CellSize: 1}))
	assert.True(t, strings.HasSuffix(buf.String(), "NODATA_value 0\n0 1\n5 3\n"), buf.String())
}

func TestEncode_EmptyGrid(t *testing.T) {
	var buf bytes.Buffer
	require.ErrorIs(t, Encode(&buf, nil, domain.Georef{}, FloatNoData), domain.ErrEmptyGrid)
}
