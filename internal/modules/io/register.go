package io

import (
	"git.home.luguber.info/inful/sitepipe/internal/engine"
	"git.home.luguber.info/inful/sitepipe/internal/registry"
)

type patternArgs struct {
	Patterns []string `mapstructure:"patterns"`
}

// Register adds the file modules to r.
func Register(r *registry.Registry) {
	r.Register("read_files", "reads files from the input directory", func(a *registry.Args) (engine.Module, error) {
		var cfg patternArgs
		if err := a.Decode(&cfg); err != nil {
			return nil, err
		}
		return NewReadFiles(cfg.Patterns...)
	})
	r.Register("write_files", "writes documents to the output directory", func(a *registry.Args) (engine.Module, error) {
		var cfg struct {
			Extension string `mapstructure:"extension"`
		}
		if err := a.Decode(&cfg); err != nil {
			return nil, err
		}
		return &WriteFiles{Extension: cfg.Extension}, nil
	})
	r.Register("copy_files", "copies input files to the output directory", func(a *registry.Args) (engine.Module, error) {
		var cfg patternArgs
		if err := a.Decode(&cfg); err != nil {
			return nil, err
		}
		return NewCopyFiles(cfg.Patterns...)
	})
}
