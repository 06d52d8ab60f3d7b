package metrics

import "time"

// ResultLabel enumerates pipeline result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultSkipped  ResultLabel = "skipped"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for engine runs. Implementations must
// be safe for concurrent use.
type Recorder interface {
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome string) // success|partial|failed|canceled
	ObservePipelineDuration(pipeline string, d time.Duration)
	IncPipelineResult(pipeline string, result ResultLabel)
	ObserveModuleDuration(pipeline, module string, d time.Duration)
	AddDocumentsOutput(pipeline string, n int)
	AddCacheStats(hits, misses, evictions int64)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveRunDuration(time.Duration)                    {}
func (NoopRecorder) IncRunOutcome(string)                                {}
func (NoopRecorder) ObservePipelineDuration(string, time.Duration)       {}
func (NoopRecorder) IncPipelineResult(string, ResultLabel)               {}
func (NoopRecorder) ObserveModuleDuration(string, string, time.Duration) {}
func (NoopRecorder) AddDocumentsOutput(string, int)                      {}
func (NoopRecorder) AddCacheStats(int64, int64, int64)                   {}
