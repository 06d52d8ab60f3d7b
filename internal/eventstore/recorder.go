package eventstore

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/sitepipe/internal/engine"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
)

const appendTimeout = 5 * time.Second

// Recorder is an engine observer that appends run events to a Store.
// Append failures are logged and never fail the run.
type Recorder struct {
	engine.NoopObserver

	store  Store
	logger *slog.Logger
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger}
}

func (r *Recorder) OnRunStart(runID string) {
	r.append(runID, TypeRunStarted, nil)
}

func (r *Recorder) OnPipelineComplete(runID string, res engine.PipelineResult) {
	payload, err := NewPipelineCompleted(res)
	if err != nil {
		r.logger.Warn("Failed to encode history event", logfields.Error(err))
		return
	}
	r.append(runID, TypePipelineCompleted, payload)
}

func (r *Recorder) OnRunComplete(report *engine.Report) {
	payload, err := NewRunCompleted(report)
	if err != nil {
		r.logger.Warn("Failed to encode history event", logfields.Error(err))
		return
	}
	r.append(report.RunID, TypeRunCompleted, payload)
}

func (r *Recorder) append(runID, eventType string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()
	if err := r.store.Append(ctx, runID, eventType, payload, nil); err != nil {
		r.logger.Warn("Failed to record history event",
			logfields.RunID(runID),
			slog.String("event_type", eventType),
			logfields.Error(err))
	}
}
