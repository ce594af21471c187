package domain

import "time"

// Risk layer names, used for reporting and metric labels.
const (
	LayerSlope      = "slope"
	LayerAspect     = "aspect"
	LayerVegetation = "vegetation"
	LayerFinal      = "final"
)

// RiskLayers lists the layer names in overlay order.
var RiskLayers = []string{LayerSlope, LayerAspect, LayerVegetation, LayerFinal}

// Status is the outcome of a workflow run or of one of its steps.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// StepReport records one workflow step.
type StepReport struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Duration time.Duration `json:"duration_ns"`
	Error    string        `json:"error,omitempty"`
}

// RunReport summarises a workflow run for the ledger, the summary topic and
// the HTTP API.
type RunReport struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`

	Steps []StepReport `json:"steps"`

	Weights           Weights                 `json:"weights"`
	Shape             Shape                   `json:"shape"`
	CellSize          float64                 `json:"cell_size,omitempty"`
	VegetationDefault bool                    `json:"vegetation_default"`
	Layers            map[string]Distribution `json:"layers,omitempty"`
}

// StepsSucceeded counts steps that ran to completion.
func (r RunReport) StepsSucceeded() int {
	n := 0
	for _, s := range r.Steps {
		if s.Status == StatusSucceeded {
			n++
		}
	}
	return n
}
