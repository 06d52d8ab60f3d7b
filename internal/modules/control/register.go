package control

import (
	"fmt"

	"git.home.luguber.info/inful/sitepipe/internal/engine"
	"git.home.luguber.info/inful/sitepipe/internal/registry"
)

type childArgs struct {
	Modules []any `mapstructure:"modules"`
}

type predicateArgs struct {
	Key    string  `mapstructure:"key"`
	Equals *string `mapstructure:"equals"`
	Exists *bool   `mapstructure:"exists"`
	Glob   string  `mapstructure:"glob"`
}

func (a predicateArgs) predicate() (Predicate, error) {
	p := Predicate{Key: a.Key, Equals: a.Equals, Exists: a.Exists}
	if a.Glob != "" {
		g, err := CompileGlob(a.Glob)
		if err != nil {
			return Predicate{}, err
		}
		p.Glob = g
	}
	if p.Key == "" && p.Glob == nil {
		return Predicate{}, fmt.Errorf("key or glob is required")
	}
	return p, nil
}

func children(a *registry.Args) ([]engine.Module, error) {
	var cfg childArgs
	if err := a.Decode(&cfg); err != nil {
		return nil, err
	}
	return a.Modules("", cfg.Modules)
}

// Register adds the control modules to r.
func Register(r *registry.Registry) {
	r.Register("branch", "runs child modules and outputs the original inputs", func(a *registry.Args) (engine.Module, error) {
		mods, err := children(a)
		if err != nil {
			return nil, err
		}
		return &Branch{Modules: mods}, nil
	})
	r.Register("concat", "outputs the inputs followed by the output of child modules", func(a *registry.Args) (engine.Module, error) {
		mods, err := children(a)
		if err != nil {
			return nil, err
		}
		return &Concat{Modules: mods}, nil
	})
	r.Register("for_each", "runs child modules once per input document", func(a *registry.Args) (engine.Module, error) {
		mods, err := children(a)
		if err != nil {
			return nil, err
		}
		return &ForEach{Modules: mods}, nil
	})
	r.Register("if", "routes documents through child modules by a metadata predicate", func(a *registry.Args) (engine.Module, error) {
		var cfg struct {
			Key     string  `mapstructure:"key"`
			Equals  *string `mapstructure:"equals"`
			Exists  *bool   `mapstructure:"exists"`
			Glob    string  `mapstructure:"glob"`
			Modules []any   `mapstructure:"modules"`
			Else    []any   `mapstructure:"else"`
		}
		if err := a.Decode(&cfg); err != nil {
			return nil, err
		}
		pred, err := predicateArgs{Key: cfg.Key, Equals: cfg.Equals, Exists: cfg.Exists, Glob: cfg.Glob}.predicate()
		if err != nil {
			return nil, err
		}
		then, err := a.Modules("", cfg.Modules)
		if err != nil {
			return nil, err
		}
		otherwise, err := a.Modules("else", cfg.Else)
		if err != nil {
			return nil, err
		}
		return &If{Predicate: pred, Then: then, Else: otherwise}, nil
	})
	r.Register("where", "keeps documents matching a metadata predicate or path glob", func(a *registry.Args) (engine.Module, error) {
		var cfg predicateArgs
		if err := a.Decode(&cfg); err != nil {
			return nil, err
		}
		pred, err := cfg.predicate()
		if err != nil {
			return nil, err
		}
		return &Where{Predicate: pred}, nil
	})
	r.Register("order_by", "sorts documents by a metadata value", func(a *registry.Args) (engine.Module, error) {
		var cfg struct {
			Key        string `mapstructure:"key"`
			Descending bool   `mapstructure:"descending"`
		}
		if err := a.Decode(&cfg); err != nil {
			return nil, err
		}
		if cfg.Key == "" {
			return nil, fmt.Errorf("key is required")
		}
		return &OrderBy{Key: cfg.Key, Descending: cfg.Descending}, nil
	})
	r.Register("take", "keeps the first documents", func(a *registry.Args) (engine.Module, error) {
		var cfg struct {
			Count int `mapstructure:"count"`
		}
		if err := a.Decode(&cfg); err != nil {
			return nil, err
		}
		return &Take{Count: cfg.Count}, nil
	})
	r.Register("documents", "outputs the documents of other pipelines", func(a *registry.Args) (engine.Module, error) {
		var cfg struct {
			Pipelines []string `mapstructure:"pipelines"`
		}
		if err := a.Decode(&cfg); err != nil {
			return nil, err
		}
		return &Documents{Pipelines: cfg.Pipelines}, nil
	})
	r.Register("combine", "merges all inputs into one document", func(a *registry.Args) (engine.Module, error) {
		var cfg struct {
			Separator string `mapstructure:"separator"`
		}
		if err := a.Decode(&cfg); err != nil {
			return nil, err
		}
		return &Combine{Separator: cfg.Separator}, nil
	})
	r.Register("group_by", "outputs one document per distinct metadata value", func(a *registry.Args) (engine.Module, error) {
		var cfg struct {
			Key string `mapstructure:"key"`
		}
		if err := a.Decode(&cfg); err != nil {
			return nil, err
		}
		if cfg.Key == "" {
			return nil, fmt.Errorf("key is required")
		}
		return &GroupBy{Key: cfg.Key}, nil
	})
	r.Register("paginate", "outputs one document per page of inputs", func(a *registry.Args) (engine.Module, error) {
		var cfg struct {
			Size int `mapstructure:"size"`
		}
		if err := a.Decode(&cfg); err != nil {
			return nil, err
		}
		if cfg.Size < 1 {
			return nil, fmt.Errorf("size must be positive, got %d", cfg.Size)
		}
		return &Paginate{Size: cfg.Size}, nil
	})
}
