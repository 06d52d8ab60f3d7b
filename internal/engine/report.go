package engine

import (
	"strings"
	"time"

	"git.home.luguber.info/inful/sitepipe/internal/execcache"
)

// Outcome is the overall result of a run.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomePartial  Outcome = "partial"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// PipelineStatus is the result of one pipeline within a run.
type PipelineStatus string

const (
	StatusSucceeded PipelineStatus = "succeeded"
	StatusFailed    PipelineStatus = "failed"
	StatusSkipped   PipelineStatus = "skipped"
	StatusCanceled  PipelineStatus = "canceled"
)

// PipelineResult summarizes one pipeline execution.
type PipelineResult struct {
	Name         string         `json:"name"`
	Status       PipelineStatus `json:"status"`
	DocumentsIn  int            `json:"documents_in"`
	DocumentsOut int            `json:"documents_out"`
	Reused       int            `json:"reused,omitempty"`
	Created      int            `json:"created"`
	Duration     time.Duration  `json:"duration"`
	Error        string         `json:"error,omitempty"`
	Err          error          `json:"-"`
}

// Report summarizes a run.
type Report struct {
	RunID     string           `json:"run_id"`
	Start     time.Time        `json:"start"`
	End       time.Time        `json:"end"`
	Outcome   Outcome          `json:"outcome"`
	Pipelines []PipelineResult `json:"pipelines"`
	Cache     execcache.Stats  `json:"cache"`
}

// Duration returns the run's wall time.
func (r *Report) Duration() time.Duration { return r.End.Sub(r.Start) }

// Result returns the result for the named pipeline.
func (r *Report) Result(name string) (PipelineResult, bool) {
	for _, p := range r.Pipelines {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return PipelineResult{}, false
}

// deriveOutcome sets Outcome. A run is partial only when later pipelines were
// allowed to continue past a failure; an aborted run is failed.
func (r *Report) deriveOutcome(continueOnError bool) {
	var ok, failed, canceled int
	for _, p := range r.Pipelines {
		switch p.Status {
		case StatusSucceeded:
			ok++
		case StatusFailed:
			failed++
		case StatusCanceled:
			canceled++
		}
	}
	switch {
	case canceled > 0:
		r.Outcome = OutcomeCanceled
	case failed == 0:
		r.Outcome = OutcomeSuccess
	case continueOnError && ok > 0:
		r.Outcome = OutcomePartial
	default:
		r.Outcome = OutcomeFailed
	}
}
