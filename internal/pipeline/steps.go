package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"

	"github.com/couchcryptid/fire-risk-etl/internal/domain"
)

// run carries state between the steps of one workflow run.
type run struct {
	w      *Workflow
	opts   RunOptions
	report *domain.RunReport
	logger *slog.Logger

	terrainOut *domain.Terrain
	ref        domain.Georef
}

func (r *run) terrain() error {
	elev, ref, err := r.read(r.opts.DEMPath, "elevation", "")
	if err != nil {
		return err
	}
	r.describe(elev, ref)
	logSummary(r.logger, "elevation", elev)

	t, err := domain.DeriveTerrain(elev, ref.CellSize, domain.WithWorkers(r.opts.Workers))
	if err != nil {
		return fmt.Errorf("derive terrain: %w", err)
	}
	logSummary(r.logger, OutputSlope, t.Slope)
	logSummary(r.logger, OutputAspect, t.Aspect)

	if err := r.writeGrid(OutputSlope, t.Slope, ref); err != nil {
		return err
	}
	if err := r.writeGrid(OutputAspect, t.Aspect, ref); err != nil {
		return err
	}

	r.terrainOut = &t
	r.ref = ref
	return nil
}

func (r *run) risk() error {
	t, ref, err := r.loadTerrain()
	if err != nil {
		return err
	}

	slopeRisk, err := domain.ClassifySlope(t.Slope)
	if err != nil {
		return fmt.Errorf("classify slope: %w", err)
	}
	aspectRisk, err := domain.ClassifyAspect(t.Aspect)
	if err != nil {
		return fmt.Errorf("classify aspect: %w", err)
	}
	veg, err := r.vegetation(t.Slope)
	if err != nil {
		return err
	}
	if veg.Default {
		r.logger.Warn("no vegetation data, using moderate placeholder layer",
			"level", domain.DefaultVegetationRisk.String())
	}
	r.report.VegetationDefault = veg.Default

	final, err := domain.WeightedOverlay(slopeRisk, aspectRisk, veg.Risk, r.opts.Weights)
	if err != nil {
		return fmt.Errorf("weighted overlay: %w", err)
	}

	layers := []struct {
		layer  string
		output string
		grid   *domain.RiskGrid
	}{
		{domain.LayerSlope, OutputSlopeRisk, slopeRisk},
		{domain.LayerAspect, OutputAspectRisk, aspectRisk},
		{domain.LayerVegetation, OutputVegetationRisk, veg.Risk},
		{domain.LayerFinal, OutputFireRisk, final},
	}
	for _, l := range layers {
		path, err := r.w.store.WriteRiskGrid(l.output, l.grid, ref)
		if err != nil {
			return fmt.Errorf("write %s: %w", l.output, err)
		}
		r.logger.Info("raster written", "layer", l.output, "path", path)

		d := domain.NewDistribution(l.grid)
		r.report.Layers[l.layer] = d
		r.recordDistribution(l.layer, d)
	}
	return nil
}

// loadTerrain reuses the terrain step's output or reads it back from the store.
func (r *run) loadTerrain() (domain.Terrain, domain.Georef, error) {
	if r.terrainOut != nil {
		return *r.terrainOut, r.ref, nil
	}

	slope, ref, err := r.read(r.w.store.Path(OutputSlope), OutputSlope, StepTerrain)
	if err != nil {
		return domain.Terrain{}, domain.Georef{}, err
	}
	aspect, _, err := r.read(r.w.store.Path(OutputAspect), OutputAspect, StepTerrain)
	if err != nil {
		return domain.Terrain{}, domain.Georef{}, err
	}
	r.describe(slope, ref)
	return domain.Terrain{Slope: slope, Aspect: aspect}, ref, nil
}

func (r *run) vegetation(ref *domain.Grid) (domain.VegetationLayer, error) {
	if r.opts.VegetationPath == "" {
		return domain.ClassifyVegetation(ref, nil)
	}

	var (
		fuel *domain.RiskGrid
		err  error
	)
	if r.opts.FuelModel {
		var codes *domain.Grid
		if codes, _, err = r.read(r.opts.VegetationPath, "fuel model", ""); err == nil {
			fuel, err = domain.ClassifyFuelModel(codes)
		}
	} else {
		fuel, _, err = r.w.store.ReadRiskGrid(r.opts.VegetationPath)
		err = missing(err, r.opts.VegetationPath, "vegetation", "")
	}
	if err != nil {
		return domain.VegetationLayer{}, fmt.Errorf("load vegetation: %w", err)
	}
	return domain.ClassifyVegetation(ref, fuel)
}

// read loads a raster, turning a missing file into ErrMissingInput.
func (r *run) read(path, what, producer string) (*domain.Grid, domain.Georef, error) {
	g, ref, err := r.w.store.ReadGrid(path)
	if err != nil {
		return nil, domain.Georef{}, missing(err, path, what, producer)
	}
	return g, ref, nil
}

func missing(err error, path, what, producer string) error {
	if err == nil || !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if producer != "" {
		return fmt.Errorf("%w: %s raster %s not found, run the %s step first", ErrMissingInput, what, path, producer)
	}
	return fmt.Errorf("%w: %s raster %s not found", ErrMissingInput, what, path)
}

func (r *run) writeGrid(name string, g *domain.Grid, ref domain.Georef) error {
	path, err := r.w.store.WriteGrid(name, g, ref)
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	r.logger.Info("raster written", "layer", name, "path", path)
	return nil
}

func (r *run) describe(g *domain.Grid, ref domain.Georef) {
	s := g.Shape()
	r.report.Shape = s
	r.report.CellSize = ref.CellSize
	r.logger.Info("raster loaded", "rows", s.Rows, "cols", s.Cols, "cell_size", ref.CellSize)
}

func (r *run) recordDistribution(layer string, d domain.Distribution) {
	m := r.w.metrics
	m.CellsProcessed.WithLabelValues(layer).Add(float64(d.Total()))
	m.NoDataCells.WithLabelValues(layer).Add(float64(d.Counts[domain.RiskNoData]))

	// The final layer reports shares of classified cells only.
	pct := d.Percent
	if layer == domain.LayerFinal {
		pct = d.PercentOfClassified
	}

	attrs := []any{"layer", layer, "classified", d.Classified(), "nodata", d.Counts[domain.RiskNoData]}
	for _, l := range domain.ClassifiedLevels {
		attrs = append(attrs, slog.Group(levelKey(l),
			"cells", d.Counts[l],
			"percent", strconv.FormatFloat(pct(l), 'f', 1, 64),
		))
		if layer == domain.LayerFinal {
			m.FinalRiskCells.WithLabelValues(strconv.Itoa(int(l))).Set(float64(d.Counts[l]))
		}
	}
	r.logger.Info("risk distribution", attrs...)
}

func logSummary(logger *slog.Logger, name string, g *domain.Grid) {
	s := domain.Summarize(g)
	if s.Valid == 0 {
		logger.Warn("grid has no valid cells", "layer", name, "nodata", s.NoData)
		return
	}
	logger.Info("grid summary",
		"layer", name,
		"min", s.Min,
		"max", s.Max,
		"mean", s.Mean,
		"valid", s.Valid,
		"nodata", s.NoData,
	)
}

// levelKey turns "Very Low" into "very_low".
func levelKey(l domain.RiskLevel) string {
	return strings.ReplaceAll(strings.ToLower(l.String()), " ", "_")
}
