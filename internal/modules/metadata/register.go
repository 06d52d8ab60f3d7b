package metadata

import (
	"git.home.luguber.info/inful/sitepipe/internal/engine"
	"git.home.luguber.info/inful/sitepipe/internal/registry"
)

// Register adds the metadata modules to r.
func Register(r *registry.Registry) {
	r.Register("front_matter", "moves YAML front matter into metadata", func(a *registry.Args) (engine.Module, error) {
		var cfg struct{}
		if err := a.Decode(&cfg); err != nil {
			return nil, err
		}
		return FrontMatter{}, nil
	})
	r.Register("yaml", "parses content as YAML into metadata", func(a *registry.Args) (engine.Module, error) {
		var cfg struct {
			Key string `mapstructure:"key"`
		}
		if err := a.Decode(&cfg); err != nil {
			return nil, err
		}
		return &YAML{Key: cfg.Key}, nil
	})
	r.Register("fingerprint", "stores a content fingerprint in metadata", func(a *registry.Args) (engine.Module, error) {
		var cfg struct {
			Exclude []string `mapstructure:"exclude"`
		}
		if err := a.Decode(&cfg); err != nil {
			return nil, err
		}
		return &Fingerprint{Exclude: cfg.Exclude}, nil
	})
}
