package build

import (
	"context"
	"time"

	"git.home.luguber.info/inful/sitepipe/internal/config"
	"git.home.luguber.info/inful/sitepipe/internal/engine"
)

// BuildService is the canonical interface for executing site builds.
type BuildService interface {
	// Run executes every configured pipeline once and returns a BuildResult
	// even when the error is non-nil.
	Run(ctx context.Context, req BuildRequest) (*BuildResult, error)
}

// BuildRequest contains all inputs required to execute a build.
type BuildRequest struct {
	// Config is the loaded configuration for this build. A different pointer
	// than the previous request rebuilds the engine.
	Config *config.Config

	// OutputDir overrides the configured output directory.
	OutputDir string

	// Trigger records why the build ran.
	Trigger Trigger

	Options BuildOptions
}

// BuildOptions provides optional build behavior modifiers.
type BuildOptions struct {
	// NoCache disables the execution cache and its persistent store.
	NoCache bool
}

// Trigger names the source of a build.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerWatch     Trigger = "watch"
	TriggerScheduled Trigger = "scheduled"
)

// BuildResult contains the outcome of a build execution.
type BuildResult struct {
	Status BuildStatus

	// Report is the engine report; nil when the build failed before any
	// pipeline ran.
	Report *engine.Report

	RunID      string
	OutputPath string

	// Documents is the number of documents output across all pipelines.
	Documents int

	Duration  time.Duration
	StartTime time.Time
	EndTime   time.Time
}

// BuildStatus represents the outcome of a build execution.
type BuildStatus string

const (
	BuildStatusSuccess   BuildStatus = "success"
	BuildStatusPartial   BuildStatus = "partial"
	BuildStatusFailed    BuildStatus = "failed"
	BuildStatusCancelled BuildStatus = "cancelled"
)

// IsTerminal returns true if the status represents a final state.
func (s BuildStatus) IsTerminal() bool {
	return s == BuildStatusSuccess || s == BuildStatusPartial ||
		s == BuildStatusFailed || s == BuildStatusCancelled
}

// IsSuccess returns true if every pipeline succeeded.
func (s BuildStatus) IsSuccess() bool {
	return s == BuildStatusSuccess
}

func statusFor(o engine.Outcome) BuildStatus {
	switch o {
	case engine.OutcomeSuccess:
		return BuildStatusSuccess
	case engine.OutcomePartial:
		return BuildStatusPartial
	case engine.OutcomeCanceled:
		return BuildStatusCancelled
	default:
		return BuildStatusFailed
	}
}
