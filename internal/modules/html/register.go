package html

import (
	"fmt"

	"git.home.luguber.info/inful/sitepipe/internal/engine"
	"git.home.luguber.info/inful/sitepipe/internal/registry"
)

// Register adds the HTML modules to r.
func Register(r *registry.Registry) {
	r.Register("headings", "extracts heading texts into metadata", func(a *registry.Args) (engine.Module, error) {
		var cfg struct {
			Level int `mapstructure:"level"`
		}
		if err := a.Decode(&cfg); err != nil {
			return nil, err
		}
		if cfg.Level < 0 || cfg.Level > 6 {
			return nil, fmt.Errorf("level must be between 1 and 6")
		}
		return &Headings{Level: cfg.Level}, nil
	})
	r.Register("excerpt", "stores the first matching element as the excerpt", func(a *registry.Args) (engine.Module, error) {
		var cfg struct {
			Selector string `mapstructure:"selector"`
		}
		if err := a.Decode(&cfg); err != nil {
			return nil, err
		}
		if _, err := ParseSelector(cfg.Selector); err != nil {
			return nil, err
		}
		return &Excerpt{Selector: cfg.Selector}, nil
	})
}
