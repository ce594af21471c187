// Package raster reads and writes grids as Esri ASCII rasters, optionally
// gzip-compressed, with the CRS kept in a .prj sidecar.
package raster

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/fire-risk-etl/internal/domain"
)

// Default NoData markers written to the header.
const (
	FloatNoData = -9999.0
	RiskNoData  = 0.0
)

// ErrFormat is returned for malformed raster files.
var ErrFormat = errors.New("malformed ascii grid")

// MaxCells bounds the grid size a header may declare.
const MaxCells = 1 << 28

// Header is the parsed Esri ASCII grid header.
type Header struct {
	Cols      int
	Rows      int
	XLL       float64
	YLL       float64
	Center    bool // XLL/YLL given as the centre of the lower-left cell
	CellSize  float64
	NoData    float64
	HasNoData bool
}

// Georef converts the header to a corner-registered georeference.
func (h Header) Georef() domain.Georef {
	ref := domain.Georef{XLL: h.XLL, YLL: h.YLL, CellSize: h.CellSize}
	if h.Center {
		ref.XLL -= h.CellSize / 2
		ref.YLL -= h.CellSize / 2
	}
	return ref
}

// Decode parses an ASCII grid. Cells equal to the header's NoData value
// become NaN.
func Decode(r io.Reader) (*domain.Grid, Header, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)

	h, first, err := decodeHeader(sc)
	if err != nil {
		return nil, Header{}, err
	}

	n := h.Rows * h.Cols
	data := make([]float64, 0, n)
	tok, ok := first, first != ""
	for ok {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, Header{}, fmt.Errorf("%w: cell %d: %q", ErrFormat, len(data), tok)
		}
		if len(data) == n {
			return nil, Header{}, fmt.Errorf("%w: more than %d cells", ErrFormat, n)
		}
		if h.HasNoData && v == h.NoData {
			v = math.NaN()
		}
		data = append(data, v)

		ok = sc.Scan()
		tok = sc.Text()
	}
	if err := sc.Err(); err != nil {
		return nil, Header{}, fmt.Errorf("read cells: %w", err)
	}
	if len(data) != n {
		return nil, Header{}, fmt.Errorf("%w: got %d cells, want %d", ErrFormat, len(data), n)
	}

	g, err := domain.NewGridFromData(h.Rows, h.Cols, data)
	if err != nil {
		return nil, Header{}, err
	}
	return g, h, nil
}

// decodeHeader consumes key/value pairs and returns the first data token.
func decodeHeader(sc *bufio.Scanner) (Header, string, error) {
	var h Header
	seen := map[string]bool{}

	for sc.Scan() {
		key := strings.ToLower(sc.Text())
		switch key {
		case "ncols", "nrows", "xllcorner", "yllcorner", "xllcenter", "yllcenter", "cellsize", "nodata_value":
		default:
			if err := checkHeader(h, seen); err != nil {
				return Header{}, "", err
			}
			return h, sc.Text(), nil
		}

		if !sc.Scan() {
			return Header{}, "", fmt.Errorf("%w: %s has no value", ErrFormat, key)
		}
		val := sc.Text()
		seen[key] = true

		var err error
		switch key {
		case "ncols":
			h.Cols, err = strconv.Atoi(val)
		case "nrows":
			h.Rows, err = strconv.Atoi(val)
		case "xllcorner", "xllcenter":
			h.XLL, err = strconv.ParseFloat(val, 64)
			h.Center = key == "xllcenter"
		case "yllcorner", "yllcenter":
			h.YLL, err = strconv.ParseFloat(val, 64)
		case "cellsize":
			h.CellSize, err = strconv.ParseFloat(val, 64)
		case "nodata_value":
			h.NoData, err = strconv.ParseFloat(val, 64)
			h.HasNoData = true
		}
		if err != nil {
			return Header{}, "", fmt.Errorf("%w: %s %q", ErrFormat, key, val)
		}
	}
	if err := sc.Err(); err != nil {
		return Header{}, "", fmt.Errorf("read header: %w", err)
	}
	if err := checkHeader(h, seen); err != nil {
		return Header{}, "", err
	}
	return h, "", nil
}

func checkHeader(h Header, seen map[string]bool) error {
	for _, key := range []string{"ncols", "nrows", "cellsize"} {
		if !seen[key] {
			return fmt.Errorf("%w: missing %s", ErrFormat, key)
		}
	}
	if !seen["xllcorner"] && !seen["xllcenter"] {
		return fmt.Errorf("%w: missing xllcorner", ErrFormat)
	}
	if !seen["yllcorner"] && !seen["yllcenter"] {
		return fmt.Errorf("%w: missing yllcorner", ErrFormat)
	}
	if h.Rows <= 0 || h.Cols <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrFormat, h.Rows, h.Cols)
	}
	if h.Rows > MaxCells/h.Cols {
		return fmt.Errorf("%w: %dx%d exceeds %d cells", ErrFormat, h.Rows, h.Cols, MaxCells)
	}
	if !(h.CellSize > 0) || math.IsInf(h.CellSize, 0) {
		return fmt.Errorf("%w: cellsize %v", ErrFormat, h.CellSize)
	}
	return nil
}

// Encode writes g as an ASCII grid. NaN cells are written as noData.
func Encode(w io.Writer, g *domain.Grid, ref domain.Georef, noData float64) error {
	s := g.Shape()
	if s.Cells() == 0 {
		return domain.ErrEmptyGrid
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ncols %d\nnrows %d\n", s.Cols, s.Rows)
	fmt.Fprintf(bw, "xllcorner %s\nyllcorner %s\n", formatFloat(ref.XLL), formatFloat(ref.YLL))
	fmt.Fprintf(bw, "cellsize %s\nNODATA_value %s\n", formatFloat(ref.CellSize), formatFloat(noData))

	buf := make([]byte, 0, 32)
	for r := 0; r < s.Rows; r++ {
		for c := 0; c < s.Cols; c++ {
			if c > 0 {
				bw.WriteByte(' ')
			}
			v := g.At(r, c)
			if domain.IsNoData(v) {
				v = noData
			}
			buf = strconv.AppendFloat(buf[:0], v, 'g', -1, 64)
			bw.Write(buf)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// EncodeRisk writes a risk grid with integer cells and NoData 0.
func EncodeRisk(w io.Writer, g *domain.RiskGrid, ref domain.Georef) error {
	return Encode(w, g.Float(), ref, RiskNoData)
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
