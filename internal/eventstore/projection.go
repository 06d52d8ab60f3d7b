package eventstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// StatusRunning marks a run without a RunCompleted event.
const StatusRunning = "running"

// RunSummary is a read model of one run.
type RunSummary struct {
	RunID       string                     `json:"run_id"`
	Status      string                     `json:"status"`
	StartedAt   time.Time                  `json:"started_at"`
	CompletedAt *time.Time                 `json:"completed_at,omitempty"`
	Duration    time.Duration              `json:"duration,omitempty"`
	Documents   int                        `json:"documents"`
	CacheHits   int64                      `json:"cache_hits"`
	CacheMisses int64                      `json:"cache_misses"`
	Pipelines   []PipelineCompletedPayload `json:"pipelines,omitempty"`
}

// RunHistoryProjection maintains a bounded in-memory view of run history,
// reconstructed from the event store.
type RunHistoryProjection struct {
	mu      sync.RWMutex
	store   Store
	runs    map[string]*RunSummary
	maxSize int
}

// NewRunHistoryProjection creates a projection keeping at most maxSize
// completed runs.
func NewRunHistoryProjection(store Store, maxSize int) *RunHistoryProjection {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &RunHistoryProjection{store: store, runs: make(map[string]*RunSummary), maxSize: maxSize}
}

// Rebuild reconstructs the projection from every stored event.
func (p *RunHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = make(map[string]*RunSummary)
	for _, e := range events {
		p.applyLocked(e)
	}
	p.pruneLocked()
	return nil
}

// Apply processes a single event.
func (p *RunHistoryProjection) Apply(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyLocked(e)
	p.pruneLocked()
}

func (p *RunHistoryProjection) applyLocked(e Event) {
	runID := e.RunID()
	if runID == "" {
		return
	}
	summary, ok := p.runs[runID]
	if !ok {
		summary = &RunSummary{RunID: runID, Status: StatusRunning, StartedAt: e.Timestamp()}
		p.runs[runID] = summary
	}

	switch e.Type() {
	case TypeRunStarted:
		summary.StartedAt = e.Timestamp()
	case TypePipelineCompleted:
		var payload PipelineCompletedPayload
		if err := json.Unmarshal(e.Payload(), &payload); err == nil {
			summary.Pipelines = append(summary.Pipelines, payload)
		}
	case TypeRunCompleted:
		var payload RunCompletedPayload
		if err := json.Unmarshal(e.Payload(), &payload); err != nil {
			return
		}
		done := e.Timestamp()
		summary.CompletedAt = &done
		summary.Status = payload.Outcome
		summary.Duration = durationMS(payload.DurationMS)
		summary.Documents = payload.Documents
		summary.CacheHits = payload.CacheHits
		summary.CacheMisses = payload.CacheMisses
	}
}

// pruneLocked drops the oldest completed runs beyond maxSize. Running runs
// are kept.
func (p *RunHistoryProjection) pruneLocked() {
	completed := p.sortedLocked(func(s *RunSummary) bool { return s.Status != StatusRunning })
	for _, s := range completed[min(len(completed), p.maxSize):] {
		delete(p.runs, s.RunID)
	}
}

func (p *RunHistoryProjection) sortedLocked(keep func(*RunSummary) bool) []*RunSummary {
	out := make([]*RunSummary, 0, len(p.runs))
	for _, s := range p.runs {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].RunID > out[j].RunID
	})
	return out
}

// History returns up to limit runs, newest first. A limit <= 0 returns all.
func (p *RunHistoryProjection) History(limit int) []RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	sorted := p.sortedLocked(func(*RunSummary) bool { return true })
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make([]RunSummary, len(sorted))
	for i, s := range sorted {
		out[i] = *s
	}
	return out
}

// Get returns the summary of one run.
func (p *RunHistoryProjection) Get(runID string) (RunSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.runs[runID]
	if !ok {
		return RunSummary{}, false
	}
	return *s, true
}
