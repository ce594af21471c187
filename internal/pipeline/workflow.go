package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/couchcryptid/fire-risk-etl/internal/domain"
	"github.com/couchcryptid/fire-risk-etl/internal/observability"
)

// Step names, in execution order.
const (
	StepTerrain = "terrain"
	StepRisk    = "risk"

	totalSteps = 2
)

// Output raster names.
const (
	OutputSlope          = "slope"
	OutputAspect         = "aspect"
	OutputSlopeRisk      = "slope_risk"
	OutputAspectRisk     = "aspect_risk"
	OutputVegetationRisk = "vegetation_risk"
	OutputFireRisk       = "fire_risk"
)

// ErrMissingInput is returned when a step's input raster does not exist.
var ErrMissingInput = errors.New("missing input")

// RasterStore reads input rasters and writes named outputs.
type RasterStore interface {
	ReadGrid(path string) (*domain.Grid, domain.Georef, error)
	ReadRiskGrid(path string) (*domain.RiskGrid, domain.Georef, error)
	WriteGrid(name string, g *domain.Grid, ref domain.Georef) (string, error)
	WriteRiskGrid(name string, g *domain.RiskGrid, ref domain.Georef) (string, error)
	Path(name string) string
}

// Recorder persists finished run reports.
type Recorder interface {
	Record(ctx context.Context, report domain.RunReport) error
}

// Publisher announces finished run reports.
type Publisher interface {
	Publish(ctx context.Context, report domain.RunReport) error
}

// RunOptions selects inputs and steps for one run.
type RunOptions struct {
	DEMPath        string
	VegetationPath string // optional; empty uses the moderate placeholder layer
	FuelModel      bool   // VegetationPath holds fuel-model codes rather than risk levels
	Weights        domain.Weights
	Workers        int
	SkipTerrain    bool
	SkipRisk       bool
}

// Workflow runs the terrain and risk steps against a raster store.
type Workflow struct {
	store     RasterStore
	recorder  Recorder
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu     sync.Mutex
	ready  atomic.Bool
	latest atomic.Pointer[domain.RunReport]
}

// Option configures optional Workflow collaborators.
type Option func(*Workflow)

// WithRecorder stores every finished run report.
func WithRecorder(r Recorder) Option {
	return func(w *Workflow) { w.recorder = r }
}

// WithPublisher publishes every finished run report.
func WithPublisher(p Publisher) Option {
	return func(w *Workflow) { w.publisher = p }
}

// New creates a Workflow over store with the given observability.
func New(store RasterStore, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Workflow {
	w := &Workflow{
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// CheckReadiness returns nil once a run has succeeded, or an error describing
// why the service is not yet ready.
func (w *Workflow) CheckReadiness(_ context.Context) error {
	if !w.ready.Load() {
		return errors.New("no workflow run has succeeded yet")
	}
	return nil
}

// LatestReport returns the most recent run report, if any.
func (w *Workflow) LatestReport() (domain.RunReport, bool) {
	r := w.latest.Load()
	if r == nil {
		return domain.RunReport{}, false
	}
	return *r, true
}

// Run executes the requested steps in order, stopping at the first failure.
// Runs are serialised. The returned report is complete even when err is set.
func (w *Workflow) Run(ctx context.Context, opts RunOptions) (domain.RunReport, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.metrics.PipelineRunning.Set(1)
	defer w.metrics.PipelineRunning.Set(0)

	report := domain.RunReport{
		ID:        uuid.NewString(),
		StartedAt: clock.Now().UTC(),
		Weights:   opts.Weights,
		Layers:    map[string]domain.Distribution{},
	}
	logger := w.logger.With("run_id", report.ID)
	logger.Info("workflow started",
		"dem", opts.DEMPath,
		"skip_terrain", opts.SkipTerrain,
		"skip_risk", opts.SkipRisk,
	)

	err := w.runSteps(ctx, logger, opts, &report)
	w.finish(ctx, logger, &report, err)
	return report, err
}

func (w *Workflow) runSteps(ctx context.Context, logger *slog.Logger, opts RunOptions, report *domain.RunReport) error {
	if err := opts.Weights.Validate(); err != nil {
		// Rejected weights may hold NaN or Inf, which neither JSON nor the ledger can carry.
		report.Weights = domain.Weights{}
		return err
	}

	r := &run{w: w, opts: opts, report: report, logger: logger}
	steps := []struct {
		name string
		skip bool
		fn   func() error
	}{
		{StepTerrain, opts.SkipTerrain, r.terrain},
		{StepRisk, opts.SkipRisk, r.risk},
	}

	for _, s := range steps {
		if s.skip {
			logger.Info("step skipped", "step", s.name)
			report.Steps = append(report.Steps, domain.StepReport{Name: s.name, Status: domain.StatusSkipped})
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		logger.Info("step started", "step", s.name)
		start := clock.Now()
		err := s.fn()
		elapsed := clock.Since(start)
		w.metrics.StepDuration.WithLabelValues(s.name).Observe(elapsed.Seconds())

		step := domain.StepReport{Name: s.name, Status: domain.StatusSucceeded, Duration: elapsed}
		if err != nil {
			step.Status = domain.StatusFailed
			step.Error = err.Error()
			report.Steps = append(report.Steps, step)
			logger.Error("step failed", "step", s.name, "duration", elapsed, "error", err)
			return fmt.Errorf("%s step: %w", s.name, err)
		}
		report.Steps = append(report.Steps, step)
		logger.Info("step completed", "step", s.name, "duration", elapsed)
	}
	return nil
}

// finish stamps the report, updates metrics and readiness, and hands the
// report to the configured sinks. Sink failures are only logged.
func (w *Workflow) finish(ctx context.Context, logger *slog.Logger, report *domain.RunReport, err error) {
	report.FinishedAt = clock.Now().UTC()
	report.Status = domain.StatusSucceeded
	if err != nil {
		report.Status = domain.StatusFailed
		report.Error = err.Error()
	}

	w.metrics.RunsTotal.WithLabelValues(string(report.Status)).Inc()
	if report.Status == domain.StatusSucceeded {
		w.metrics.LastSuccess.Set(float64(report.FinishedAt.Unix()))
		w.ready.Store(true)
	}

	stored := *report
	w.latest.Store(&stored)

	logger.Info("workflow finished",
		"status", report.Status,
		"completed", fmt.Sprintf("%d/%d", report.StepsSucceeded(), totalSteps),
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)

	// Reporting outlives a cancelled run so the outcome is still recorded.
	ctx = context.WithoutCancel(ctx)
	if w.recorder != nil {
		if err := w.recorder.Record(ctx, *report); err != nil {
			logger.Error("record run failed", "error", err)
		}
	}
	if w.publisher != nil {
		if err := w.publisher.Publish(ctx, *report); err != nil {
			logger.Error("publish run summary failed", "error", err)
		}
	}
}
