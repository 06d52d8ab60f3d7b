package eventstore

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/sitepipe/internal/engine"
)

// Event types.
const (
	TypeRunStarted        = "RunStarted"
	TypePipelineCompleted = "PipelineCompleted"
	TypeRunCompleted      = "RunCompleted"
)

// PipelineCompletedPayload is the payload of TypePipelineCompleted.
type PipelineCompletedPayload struct {
	Pipeline     string `json:"pipeline"`
	Status       string `json:"status"`
	DocumentsIn  int    `json:"documents_in"`
	DocumentsOut int    `json:"documents_out"`
	DurationMS   int64  `json:"duration_ms"`
	Error        string `json:"error,omitempty"`
}

// RunCompletedPayload is the payload of TypeRunCompleted.
type RunCompletedPayload struct {
	Outcome     string `json:"outcome"`
	DurationMS  int64  `json:"duration_ms"`
	Pipelines   int    `json:"pipelines"`
	Documents   int    `json:"documents"`
	CacheHits   int64  `json:"cache_hits"`
	CacheMisses int64  `json:"cache_misses"`
	Evictions   int64  `json:"cache_evictions"`
}

// NewPipelineCompleted builds the payload for a pipeline result.
func NewPipelineCompleted(res engine.PipelineResult) ([]byte, error) {
	payload, err := json.Marshal(PipelineCompletedPayload{
		Pipeline:     res.Name,
		Status:       string(res.Status),
		DocumentsIn:  res.DocumentsIn,
		DocumentsOut: res.DocumentsOut,
		DurationMS:   res.Duration.Milliseconds(),
		Error:        res.Error,
	})
	if err != nil {
		return nil, storeError(err, "marshal PipelineCompleted payload")
	}
	return payload, nil
}

// NewRunCompleted builds the payload for a run report.
func NewRunCompleted(report *engine.Report) ([]byte, error) {
	docs := 0
	for _, p := range report.Pipelines {
		docs += p.DocumentsOut
	}
	payload, err := json.Marshal(RunCompletedPayload{
		Outcome:     string(report.Outcome),
		DurationMS:  report.Duration().Milliseconds(),
		Pipelines:   len(report.Pipelines),
		Documents:   docs,
		CacheHits:   report.Cache.Hits,
		CacheMisses: report.Cache.Misses,
		Evictions:   report.Cache.Evictions,
	})
	if err != nil {
		return nil, storeError(err, "marshal RunCompleted payload")
	}
	return payload, nil
}

func durationMS(ms int64) time.Duration { return time.Duration(ms) * time.Millisecond }
