package domain

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// SyntheticOptions shapes a generated test terrain.
type SyntheticOptions struct {
	BaseElevation float64 // metres added after normalisation
	Variation     float64 // metres between the lowest and highest cell
	NoiseSigma    float64 // standard deviation of the per-cell noise before normalisation
	Seed          uint64
}

// DefaultSyntheticOptions gives a 300–400 m terrain with seed 42.
func DefaultSyntheticOptions() SyntheticOptions {
	return SyntheticOptions{BaseElevation: 300, Variation: 100, NoiseSigma: 5, Seed: 42}
}

// SyntheticElevation builds a hills-and-valleys elevation grid from summed
// sines plus seeded Gaussian noise. The same options always produce the same
// grid, which makes it usable as a test fixture.
func SyntheticElevation(rows, cols int, opts SyntheticOptions) (*Grid, error) {
	g, err := NewGrid(rows, cols)
	if err != nil {
		return nil, err
	}

	noise := distuv.Normal{
		Mu:    0,
		Sigma: opts.NoiseSigma,
		Src:   rand.NewPCG(opts.Seed, opts.Seed),
	}
	xs := linspace(0, 10, cols)
	ys := linspace(0, 10, rows)

	data := g.m.RawMatrix().Data
	for r, y := range ys {
		for c, x := range xs {
			v := math.Sin(x*1.5)*math.Cos(y*1.2)*30 +
				math.Sin(x*3.0+y*2.5)*15 +
				math.Cos(x*0.8-y*1.5)*25 +
				math.Sin(x*4.2)*math.Cos(y*3.8)*10
			if opts.NoiseSigma > 0 {
				v += noise.Rand()
			}
			data[r*cols+c] = v
		}
	}

	lo := floats.Min(data)
	floats.AddConst(-lo, data)
	if hi := floats.Max(data); hi > 0 {
		floats.Scale(opts.Variation/hi, data)
	}
	floats.AddConst(opts.BaseElevation, data)
	return g, nil
}

func linspace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	floats.Span(out, lo, hi)
	return out
}
