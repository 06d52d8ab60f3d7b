package engine

import (
	"git.home.luguber.info/inful/sitepipe/internal/document"
)

// Pipeline is a named, ordered list of modules.
type Pipeline struct {
	Name    string
	Modules []Module

	// DependsOn names pipelines that must execute before this one.
	DependsOn []string

	// ProcessOnce skips documents from the first module whose fingerprint is
	// unchanged since the previous run and reuses that run's results.
	ProcessOnce bool
}

// pipelineState is what the engine keeps for a pipeline between runs.
type pipelineState struct {
	// outputs is the published output; retained holds outputs plus the
	// documents they reference, each retained once.
	outputs  []*document.Document
	retained []*document.Document

	processed map[string]processedEntry
}

type processedEntry struct {
	fingerprint string
	results     []*document.Document
}

func (s *pipelineState) publish(outputs []*document.Document) error {
	flat := document.Flatten(outputs)
	retainEach(flat)
	err := releaseEach(s.retained)
	s.outputs = outputs
	s.retained = flat
	return err
}

func (s *pipelineState) clear() error {
	err := releaseEach(s.retained)
	s.outputs = nil
	s.retained = nil
	s.processed = nil
	return err
}
