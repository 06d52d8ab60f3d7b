package content

import (
	"fmt"
	"regexp"

	"git.home.luguber.info/inful/sitepipe/internal/engine"
	"git.home.luguber.info/inful/sitepipe/internal/registry"
)

func setFactory(mode Mode) registry.Factory {
	return func(a *registry.Args) (engine.Module, error) {
		var cfg struct {
			Value string `mapstructure:"value"`
		}
		if err := a.Decode(&cfg); err != nil {
			return nil, err
		}
		return &Set{Value: cfg.Value, Mode: mode}, nil
	}
}

// Register adds the content modules to r.
func Register(r *registry.Registry) {
	r.Register("content", "replaces document content", setFactory(Replace))
	r.Register("append", "appends to document content", setFactory(Append))
	r.Register("prepend", "prepends to document content", setFactory(Prepend))
	r.Register("replace", "replaces text or regular expression matches in content", func(a *registry.Args) (engine.Module, error) {
		var cfg struct {
			Search string `mapstructure:"search"`
			With   string `mapstructure:"with"`
			Regex  bool   `mapstructure:"regex"`
		}
		if err := a.Decode(&cfg); err != nil {
			return nil, err
		}
		if cfg.Search == "" {
			return nil, fmt.Errorf("search is required")
		}
		m := &Substitute{Search: cfg.Search, With: cfg.With}
		if cfg.Regex {
			re, err := regexp.Compile(cfg.Search)
			if err != nil {
				return nil, err
			}
			m.Pattern = re
		}
		return m, nil
	})
	r.Register("meta", "sets a metadata value or copies it from another key", func(a *registry.Args) (engine.Module, error) {
		var cfg struct {
			Key   string `mapstructure:"key"`
			Value any    `mapstructure:"value"`
			From  string `mapstructure:"from"`
		}
		if err := a.Decode(&cfg); err != nil {
			return nil, err
		}
		if cfg.Key == "" {
			return nil, fmt.Errorf("key is required")
		}
		return &Meta{Key: cfg.Key, Value: cfg.Value, From: cfg.From}, nil
	})
	r.Register("title", "derives a title from the file name when missing", func(a *registry.Args) (engine.Module, error) {
		var cfg struct {
			Key string `mapstructure:"key"`
		}
		if err := a.Decode(&cfg); err != nil {
			return nil, err
		}
		return &Title{Key: cfg.Key}, nil
	})
	r.Register("layout", "renders documents through a Go html/template", func(a *registry.Args) (engine.Module, error) {
		var cfg struct {
			File     string `mapstructure:"file"`
			Template string `mapstructure:"template"`
		}
		if err := a.Decode(&cfg); err != nil {
			return nil, err
		}
		if (cfg.File == "") == (cfg.Template == "") {
			return nil, fmt.Errorf("exactly one of file and template is required")
		}
		return &Layout{File: cfg.File, Template: cfg.Template}, nil
	})
}
