package engine

import (
	"time"

	"git.home.luguber.info/inful/sitepipe/internal/metrics"
)

// Observer receives callbacks around a run. Callbacks run synchronously on
// the engine goroutine, except OnModuleComplete which may be called from
// ForEach workers for nested modules.
type Observer interface {
	OnRunStart(runID string)
	OnPipelineStart(runID, pipeline string)
	OnModuleComplete(pipeline, module, path string, d time.Duration, err error)
	OnPipelineComplete(runID string, result PipelineResult)
	OnRunComplete(report *Report)
}

// NoopObserver is a no-op implementation.
type NoopObserver struct{}

func (NoopObserver) OnRunStart(string)                                             {}
func (NoopObserver) OnPipelineStart(string, string)                                {}
func (NoopObserver) OnModuleComplete(string, string, string, time.Duration, error) {}
func (NoopObserver) OnPipelineComplete(string, PipelineResult)                     {}
func (NoopObserver) OnRunComplete(*Report)                                         {}

// RecorderObserver adapts metrics.Recorder into an Observer.
type RecorderObserver struct{ Recorder metrics.Recorder }

func (r RecorderObserver) OnRunStart(string)              {}
func (r RecorderObserver) OnPipelineStart(string, string) {}

func (r RecorderObserver) OnModuleComplete(pipeline, module, _ string, d time.Duration, _ error) {
	if r.Recorder != nil {
		r.Recorder.ObserveModuleDuration(pipeline, module, d)
	}
}

func (r RecorderObserver) OnPipelineComplete(_ string, res PipelineResult) {
	if r.Recorder == nil {
		return
	}
	r.Recorder.ObservePipelineDuration(res.Name, res.Duration)
	r.Recorder.IncPipelineResult(res.Name, resultLabel(res.Status))
	r.Recorder.AddDocumentsOutput(res.Name, res.DocumentsOut)
}

func (r RecorderObserver) OnRunComplete(report *Report) {
	if r.Recorder == nil {
		return
	}
	r.Recorder.ObserveRunDuration(report.Duration())
	r.Recorder.IncRunOutcome(string(report.Outcome))
	r.Recorder.AddCacheStats(report.Cache.Hits, report.Cache.Misses, report.Cache.Evictions)
}

func resultLabel(s PipelineStatus) metrics.ResultLabel {
	switch s {
	case StatusSucceeded:
		return metrics.ResultSuccess
	case StatusSkipped:
		return metrics.ResultSkipped
	case StatusCanceled:
		return metrics.ResultCanceled
	default:
		return metrics.ResultFailed
	}
}

// observers fans callbacks out to several observers.
type observers []Observer

func (o observers) OnRunStart(runID string) {
	for _, ob := range o {
		ob.OnRunStart(runID)
	}
}

func (o observers) OnPipelineStart(runID, pipeline string) {
	for _, ob := range o {
		ob.OnPipelineStart(runID, pipeline)
	}
}

func (o observers) OnModuleComplete(pipeline, module, path string, d time.Duration, err error) {
	for _, ob := range o {
		ob.OnModuleComplete(pipeline, module, path, d, err)
	}
}

func (o observers) OnPipelineComplete(runID string, res PipelineResult) {
	for _, ob := range o {
		ob.OnPipelineComplete(runID, res)
	}
}

func (o observers) OnRunComplete(report *Report) {
	for _, ob := range o {
		ob.OnRunComplete(report)
	}
}
