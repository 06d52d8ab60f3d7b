package config

// Example returns the configuration written by Init: a small blog with posts
// rendered from Markdown and static assets copied through.
func Example() Config {
	cfg := Defaults()
	cfg.Parallelism = 4
	cfg.Settings = map[string]any{"SiteTitle": "My Site"}
	cfg.Pipelines = []PipelineConfig{
		{
			Name: "posts",
			Modules: []any{
				map[string]any{"read_files": map[string]any{"patterns": []string{"posts/**/*.md"}}},
				"front_matter",
				map[string]any{"where": map[string]any{"key": "draft", "exists": false}},
				"title",
				"markdown",
				"excerpt",
				map[string]any{"order_by": map[string]any{"key": "date", "descending": true}},
				map[string]any{"layout": map[string]any{"file": "layouts/post.html"}},
				map[string]any{"write_files": map[string]any{"extension": ".html"}},
			},
		},
		{
			Name:        "assets",
			ProcessOnce: true,
			Modules: []any{
				map[string]any{"copy_files": map[string]any{"patterns": []string{"static/**"}}},
			},
		},
	}
	return cfg
}
