// Command validate re-reads a workflow output directory and checks that the
// rasters agree with each other: shapes and georeference match, terrain values
// are in range, each risk layer matches its classification ladder, and the
// final layer matches the weighted overlay with NoData propagated.
//
// Usage:
//
//	go run ./cmd/validate -dir data_processed/raster \
//	  [-weight-slope 0.45 -weight-aspect 0.25 -weight-vegetation 0.30]
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/couchcryptid/fire-risk-etl/internal/adapter/raster"
	"github.com/couchcryptid/fire-risk-etl/internal/domain"
	"github.com/couchcryptid/fire-risk-etl/internal/pipeline"
)

// maxReported caps the per-phase error listing.
const maxReported = 20

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
	total  int
}

func (p *phase) errorf(format string, args ...any) {
	p.total++
	if len(p.errors) < maxReported {
		p.errors = append(p.errors, fmt.Sprintf(format, args...))
	}
}

func (p *phase) passed() bool { return p.total == 0 }

// outputs holds every raster of one run.
type outputs struct {
	slope, aspect                  *domain.Grid
	slopeRisk, aspectRisk, vegRisk *domain.RiskGrid
	fireRisk                       *domain.RiskGrid
	refs                           map[string]domain.Georef
}

// layer maps a risk layer name to its raster.
func (o *outputs) layer(name string) *domain.RiskGrid {
	switch name {
	case domain.LayerSlope:
		return o.slopeRisk
	case domain.LayerAspect:
		return o.aspectRisk
	case domain.LayerVegetation:
		return o.vegRisk
	case domain.LayerFinal:
		return o.fireRisk
	}
	return nil
}

func main() {
	dir := flag.String("dir", "", "workflow output directory")
	defaults := domain.DefaultWeights()
	ws := flag.Float64("weight-slope", defaults.Slope, "slope weight used by the run")
	wa := flag.Float64("weight-aspect", defaults.Aspect, "aspect weight used by the run")
	wv := flag.Float64("weight-vegetation", defaults.Vegetation, "vegetation weight used by the run")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(1)
	}

	w := domain.Weights{Slope: *ws, Aspect: *wa, Vegetation: *wv}
	os.Exit(run(os.Stdout, *dir, w))
}

func run(out io.Writer, dir string, w domain.Weights) int {
	fmt.Fprintln(out, "=== Fire Risk Output Validation ===")
	fmt.Fprintln(out)

	if err := w.Validate(); err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}

	o, err := load(dir)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateAlignment(o),
		validateTerrain(o),
		validateClassification(o),
		validateOverlay(o, w),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", p.total)
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	s := o.slope.Shape()
	fmt.Fprintf(out, "\nGrid: %d x %d cells, cell size %v\n", s.Rows, s.Cols, o.refs[pipeline.OutputSlope].CellSize)
	fmt.Fprintf(out, "  %-12s", "layer")
	for _, l := range domain.ClassifiedLevels {
		fmt.Fprintf(out, " %10s", l)
	}
	fmt.Fprintf(out, " %10s\n", domain.RiskNoData)
	for _, name := range domain.RiskLayers {
		d := domain.NewDistribution(o.layer(name))
		fmt.Fprintf(out, "  %-12s", name)
		for _, l := range domain.ClassifiedLevels {
			fmt.Fprintf(out, " %10d", d.Counts[l])
		}
		fmt.Fprintf(out, " %10d\n", d.Counts[domain.RiskNoData])
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
		if p.total > len(p.errors) {
			fmt.Fprintf(out, "  ... %d more\n", p.total-len(p.errors))
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

func load(dir string) (*outputs, error) {
	o := &outputs{refs: map[string]domain.Georef{}}

	floats := []struct {
		name string
		dst  **domain.Grid
	}{
		{pipeline.OutputSlope, &o.slope},
		{pipeline.OutputAspect, &o.aspect},
	}
	for _, f := range floats {
		store, path, err := locate(dir, f.name)
		if err != nil {
			return nil, err
		}
		g, ref, err := store.ReadGrid(path)
		if err != nil {
			return nil, err
		}
		*f.dst = g
		o.refs[f.name] = ref
	}

	risks := []struct {
		name string
		dst  **domain.RiskGrid
	}{
		{pipeline.OutputSlopeRisk, &o.slopeRisk},
		{pipeline.OutputAspectRisk, &o.aspectRisk},
		{pipeline.OutputVegetationRisk, &o.vegRisk},
		{pipeline.OutputFireRisk, &o.fireRisk},
	}
	for _, r := range risks {
		store, path, err := locate(dir, r.name)
		if err != nil {
			return nil, err
		}
		g, ref, err := store.ReadRiskGrid(path)
		if err != nil {
			return nil, err
		}
		*r.dst = g
		o.refs[r.name] = ref
	}
	return o, nil
}

// locate finds name.asc or name.asc.gz in dir.
func locate(dir, name string) (*raster.Store, string, error) {
	for _, compress := range []bool{false, true} {
		store := raster.NewStore(dir, compress)
		path := store.Path(name)
		if _, err := os.Stat(path); err == nil {
			return store, path, nil
		}
	}
	return nil, "", fmt.Errorf("%w: %s raster not found in %s", pipeline.ErrMissingInput, name, filepath.Clean(dir))
}

func validateAlignment(o *outputs) *phase {
	p := &phase{name: "Shape and georeference agreement"}
	want := o.slope.Shape()
	wantRef := o.refs[pipeline.OutputSlope]

	shapes := map[string]domain.Shape{
		pipeline.OutputAspect:         o.aspect.Shape(),
		pipeline.OutputSlopeRisk:      o.slopeRisk.Shape(),
		pipeline.OutputAspectRisk:     o.aspectRisk.Shape(),
		pipeline.OutputVegetationRisk: o.vegRisk.Shape(),
		pipeline.OutputFireRisk:       o.fireRisk.Shape(),
	}
	for name, s := range shapes {
		if s != want {
			p.errorf("%s is %s, slope is %s", name, s, want)
		}
		if ref := o.refs[name]; ref != wantRef {
			p.errorf("%s georeference %+v differs from slope %+v", name, ref, wantRef)
		}
	}
	if err := wantRef.Validate(); err != nil {
		p.errorf("slope georeference: %v", err)
	}
	return p
}

func validateTerrain(o *outputs) *phase {
	p := &phase{name: "Terrain value ranges"}
	if o.slope.Shape() != o.aspect.Shape() {
		p.errorf("slope and aspect shapes differ")
		return p
	}

	s := o.slope.Shape()
	for r := 0; r < s.Rows; r++ {
		for c := 0; c < s.Cols; c++ {
			slope, aspect := o.slope.At(r, c), o.aspect.At(r, c)
			if domain.IsNoData(slope) != domain.IsNoData(aspect) {
				p.errorf("(%d,%d): NoData in only one of slope %v / aspect %v", r, c, slope, aspect)
				continue
			}
			if domain.IsNoData(slope) {
				continue
			}
			if slope < 0 || slope > 90 {
				p.errorf("(%d,%d): slope %v outside [0,90]", r, c, slope)
			}
			switch {
			case slope < domain.FlatSlopeDegrees && aspect != domain.AspectFlat:
				p.errorf("(%d,%d): slope %v below flat threshold but aspect %v", r, c, slope, aspect)
			case slope >= domain.FlatSlopeDegrees && (aspect < 0 || aspect >= 360):
				p.errorf("(%d,%d): aspect %v outside [0,360)", r, c, aspect)
			}
		}
	}
	return p
}

func validateClassification(o *outputs) *phase {
	p := &phase{name: "Slope and aspect classification"}
	s := o.slope.Shape()
	if o.slopeRisk.Shape() != s || o.aspectRisk.Shape() != s || o.aspect.Shape() != s {
		p.errorf("shapes differ, classification not checked")
		return p
	}

	for r := 0; r < s.Rows; r++ {
		for c := 0; c < s.Cols; c++ {
			if want, got := domain.ClassifySlopeValue(o.slope.At(r, c)), o.slopeRisk.At(r, c); want != got {
				p.errorf("(%d,%d): slope %v classified %d, want %d", r, c, o.slope.At(r, c), got, want)
			}
			if want, got := domain.ClassifyAspectValue(o.aspect.At(r, c)), o.aspectRisk.At(r, c); want != got {
				p.errorf("(%d,%d): aspect %v classified %d, want %d", r, c, o.aspect.At(r, c), got, want)
			}
		}
	}
	return p
}

func validateOverlay(o *outputs, w domain.Weights) *phase {
	p := &phase{name: "Weighted overlay and NoData propagation"}
	s := o.fireRisk.Shape()
	if o.slopeRisk.Shape() != s || o.aspectRisk.Shape() != s || o.vegRisk.Shape() != s {
		p.errorf("shapes differ, overlay not checked")
		return p
	}

	for r := 0; r < s.Rows; r++ {
		for c := 0; c < s.Cols; c++ {
			sl, as, vg := o.slopeRisk.At(r, c), o.aspectRisk.At(r, c), o.vegRisk.At(r, c)
			want := domain.CombineLevels(sl, as, vg, w)
			if got := o.fireRisk.At(r, c); got != want {
				p.errorf("(%d,%d): final %d, want %d from %d/%d/%d", r, c, got, want, sl, as, vg)
			}
		}
	}
	return p
}
