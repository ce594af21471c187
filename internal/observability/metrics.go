package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fire_risk"

// Metrics holds the Prometheus counters, histograms, and gauges for the risk workflow.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec   // labels: status={succeeded,failed}
	StepDuration    *prometheus.HistogramVec // labels: step={terrain,risk}
	CellsProcessed  *prometheus.CounterVec   // labels: layer={slope,aspect,vegetation,final}
	NoDataCells     *prometheus.CounterVec   // labels: layer
	FinalRiskCells  *prometheus.GaugeVec     // labels: level={1..5}
	PipelineRunning prometheus.Gauge
	LastSuccess     prometheus.Gauge
}

// NewMetrics creates and registers all workflow metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can
// build as many as they need without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Workflow runs by final status.",
		}, []string{"status"}),
		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of each workflow step.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"step"}),
		CellsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cells_processed_total",
			Help:      "Cells written per output layer.",
		}, []string{"layer"}),
		NoDataCells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodata_cells_total",
			Help:      "NoData cells per output layer.",
		}, []string{"layer"}),
		FinalRiskCells: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "final_risk_cells",
			Help:      "Cells per level in the most recent final risk layer.",
		}, []string{"level"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a workflow run is in progress, 0 otherwise.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time the last successful run finished.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RunsTotal,
		m.StepDuration,
		m.CellsProcessed,
		m.NoDataCells,
		m.FinalRiskCells,
		m.PipelineRunning,
		m.LastSuccess,
	}
}
