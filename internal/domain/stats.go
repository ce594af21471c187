package domain

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Distribution counts cells per risk level. Counts is indexed by RiskLevel.
type Distribution struct {
	Counts [RiskVeryHigh + 1]int `json:"counts"`
}

// NewDistribution tallies g.
func NewDistribution(g *RiskGrid) Distribution {
	var d Distribution
	if g == nil {
		return d
	}
	for _, l := range g.cells {
		d.Counts[l]++
	}
	return d
}

// Total is the number of cells, NoData included.
func (d Distribution) Total() int {
	n := 0
	for _, c := range d.Counts {
		n += c
	}
	return n
}

// Classified is the number of cells with a level of 1..5.
func (d Distribution) Classified() int { return d.Total() - d.Counts[RiskNoData] }

// Percent is the share of all cells at level l, in percent.
func (d Distribution) Percent(l RiskLevel) float64 {
	return percent(d.Counts[l], d.Total())
}

// PercentOfClassified is the share of classified cells at level l, in percent.
func (d Distribution) PercentOfClassified(l RiskLevel) float64 {
	return percent(d.Counts[l], d.Classified())
}

func percent(n, of int) float64 {
	if of == 0 {
		return 0
	}
	return float64(n) / float64(of) * 100
}

// GridSummary describes the valid cells of a floating-point grid. Min, Max
// and Mean are NaN when every cell is NoData.
type GridSummary struct {
	Min    float64
	Max    float64
	Mean   float64
	Valid  int
	NoData int
}

// Summarize computes NaN-aware statistics for g.
func Summarize(g *Grid) GridSummary {
	var values []float64
	noData := 0
	s := g.Shape()
	for r := 0; r < s.Rows; r++ {
		for _, v := range g.row(r) {
			if IsNoData(v) {
				noData++
				continue
			}
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		nan := math.NaN()
		return GridSummary{Min: nan, Max: nan, Mean: nan, NoData: noData}
	}
	return GridSummary{
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Mean:   stat.Mean(values, nil),
		Valid:  len(values),
		NoData: noData,
	}
}
