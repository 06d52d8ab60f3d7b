package commands

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepipe/internal/config"
	"git.home.luguber.info/inful/sitepipe/internal/eventstore"
	"git.home.luguber.info/inful/sitepipe/internal/testutil"
)

const testConfig = `
input: in
output: out
logging: {level: error}
pipelines:
  - name: posts
    modules:
      - read_files: {patterns: ["posts/*.md"]}
      - front_matter
      - markdown
      - write_files: {extension: .html}
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cli := &CLI{}
	var out bytes.Buffer
	g := &Global{Out: &out}
	parser, err := kong.New(cli,
		kong.Name("sitepipe"),
		kong.Vars{"version": "test"},
		kong.Bind(g, cli),
		kong.Exit(func(int) {}),
	)
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	if err != nil {
		return "", err
	}
	err = kctx.Run()
	return out.String(), err
}

func siteDir(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"sitepipe.yaml":  testConfig,
		"in/posts/a.md":  "---\ntitle: A\n---\n# A\n",
		"in/posts/b.md":  "# B\n",
		"in/static/x.js": "1",
	})
	return dir, filepath.Join(dir, "sitepipe.yaml")
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sitepipe.yaml")

	out, err := run(t, "-c", path, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote example configuration")
	testutil.NewFileAssertions(t, filepath.Dir(path)).AssertFileContains("sitepipe.yaml", "read_files")

	_, err = run(t, "-c", path, "init")
	require.Error(t, err)

	_, err = run(t, "-c", path, "init", "--force")
	require.NoError(t, err)
}

func TestModules(t *testing.T) {
	out, err := run(t, "modules")
	require.NoError(t, err)
	for _, name := range []string{"markdown", "front_matter", "git_commits", "read_files", "layout"} {
		assert.Contains(t, out, name)
	}
}

func TestBuildThenHistory(t *testing.T) {
	dir, cfgPath := siteDir(t)

	out, err := run(t, "-c", cfgPath, "build")
	require.NoError(t, err)
	assert.Contains(t, out, "Build success: 2 documents")
	assert.Contains(t, out, "posts")
	testutil.NewFileAssertions(t, filepath.Join(dir, "out")).
		AssertFileExists("posts/a.html").
		AssertFileExists("posts/b.html")

	alt := filepath.Join(dir, "alt")
	_, err = run(t, "-c", cfgPath, "build", "-o", alt, "--no-cache")
	require.NoError(t, err)
	testutil.NewFileAssertions(t, alt).AssertFileExists("posts/a.html")

	out, err = run(t, "-c", cfgPath, "history", "--json")
	require.NoError(t, err)
	var runs []eventstore.RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, "success", runs[0].Status)

	out, err = run(t, "-c", cfgPath, "history", "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, runs[0].RunID)
	assert.NotContains(t, out, runs[1].RunID)
}

func TestBuildFailureReturnsError(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"sitepipe.yaml": "pipelines:\n  - name: p\n    modules: [nope]\n",
	})
	_, err := run(t, "-c", filepath.Join(dir, "sitepipe.yaml"), "build")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestVisualize(t *testing.T) {
	dir, cfgPath := siteDir(t)

	out, err := run(t, "-c", cfgPath, "visualize", "-f", "mermaid")
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "Pipeline: posts")

	file := filepath.Join(dir, "pipes.txt")
	_, err = run(t, "-c", cfgPath, "visualize", "-o", file)
	require.NoError(t, err)
	testutil.NewFileAssertions(t, dir).AssertFileContains("pipes.txt", "Total: 4 modules across 1 pipelines")
}

func TestHistoryDisabled(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"sitepipe.yaml": "history: {enabled: false}\npipelines:\n  - name: p\n    modules: [markdown]\n",
	})
	_, err := run(t, "-c", filepath.Join(dir, "sitepipe.yaml"), "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history")
}

func TestWatchPreviewAddr(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"sitepipe.yaml": "preview: {addr: '127.0.0.1:9999'}\npipelines:\n  - name: p\n    modules: [markdown]\n",
	})
	cfg, err := config.Load(filepath.Join(dir, "sitepipe.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9999", (&WatchCmd{}).previewAddr(cfg))
	assert.Equal(t, "localhost:1", (&WatchCmd{Addr: "localhost:1"}).previewAddr(cfg))

	cli := &CLI{}
	parser, err := kong.New(cli, kong.Vars{"version": "test"}, kong.Bind(&Global{}, cli))
	require.NoError(t, err)
	_, err = parser.Parse([]string{"watch", "--serve"})
	require.NoError(t, err)
	assert.True(t, cli.Watch.Serve)
	assert.Empty(t, cli.Watch.Addr)
}
