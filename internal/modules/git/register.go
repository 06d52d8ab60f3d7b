package git

import (
	"fmt"

	"git.home.luguber.info/inful/sitepipe/internal/engine"
	"git.home.luguber.info/inful/sitepipe/internal/registry"
)

// Register adds the git_commits module to r.
func Register(r *registry.Registry) {
	r.Register("git_commits", "adds or outputs commit history from a git repository", func(a *registry.Args) (engine.Module, error) {
		var cfg struct {
			Repository string `mapstructure:"repository"`
			Mode       string `mapstructure:"mode"`
		}
		if err := a.Decode(&cfg); err != nil {
			return nil, err
		}
		mode := Mode(cfg.Mode)
		switch mode {
		case "":
			mode = ModeMetadata
		case ModeMetadata, ModeDocuments:
		default:
			return nil, fmt.Errorf("mode must be %q or %q, got %q", ModeMetadata, ModeDocuments, cfg.Mode)
		}
		return &Commits{Repository: cfg.Repository, Mode: mode}, nil
	})
}
