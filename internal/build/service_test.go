package build

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepipe/internal/config"
	"git.home.luguber.info/inful/sitepipe/internal/engine"
	serrors "git.home.luguber.info/inful/sitepipe/internal/errors"
	"git.home.luguber.info/inful/sitepipe/internal/eventstore"
	"git.home.luguber.info/inful/sitepipe/internal/testutil"
)

const siteConfig = `
input: in
output: out
pipelines:
  - name: posts
    modules:
      - read_files: {patterns: ["posts/*.md"]}
      - front_matter
      - markdown
      - write_files: {extension: .html}
`

func loadSite(t *testing.T, body string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFiles(t, filepath.Join(dir, "in"), map[string]string{
		"posts/hello.md": "---\ntitle: Hello\n---\n# Hello\n\nworld\n",
		"posts/bye.md":   "# Bye\n",
	})
	cfg, err := config.Parse([]byte(body))
	require.NoError(t, err)
	cfg.SetBaseDir(dir)
	return cfg
}

func newService() *DefaultBuildService {
	return NewBuildService().WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type runObserver struct {
	engine.NoopObserver
	mu   sync.Mutex
	runs []*engine.Report
}

func (o *runObserver) OnRunComplete(r *engine.Report) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs = append(o.runs, r)
}

func TestBuildStatus_IsSuccess(t *testing.T) {
	tests := []struct {
		status   BuildStatus
		expected bool
	}{
		{BuildStatusSuccess, true},
		{BuildStatusPartial, false},
		{BuildStatusFailed, false},
		{BuildStatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.IsSuccess())
			assert.True(t, tt.status.IsTerminal())
		})
	}
}

func TestDefaultBuildService_Run_NilConfig(t *testing.T) {
	result, err := newService().Run(context.Background(), BuildRequest{})
	require.Error(t, err)
	assert.Equal(t, BuildStatusFailed, result.Status)
	assert.True(t, serrors.IsCategory(err, serrors.CategoryConfig))
}

func TestDefaultBuildService_Run_WritesSiteAndRecordsHistory(t *testing.T) {
	cfg := loadSite(t, siteConfig)
	obs := &runObserver{}
	svc := newService().WithObserver(obs)

	first, err := svc.Run(context.Background(), BuildRequest{Config: cfg})
	require.NoError(t, err)
	assert.Equal(t, BuildStatusSuccess, first.Status)
	assert.Equal(t, 2, first.Documents)
	assert.Equal(t, cfg.OutputDir(), first.OutputPath)
	assert.NotEmpty(t, first.RunID)

	testutil.NewFileAssertions(t, cfg.OutputDir()).
		AssertFileContains("posts/hello.html", "<h1 id=\"hello\">Hello</h1>").
		AssertFileExists("posts/bye.html")

	eng := svc.Engine()
	second, err := svc.Run(context.Background(), BuildRequest{Config: cfg, Trigger: TriggerWatch})
	require.NoError(t, err)
	assert.Same(t, eng, svc.Engine(), "same configuration reuses the engine")
	assert.Positive(t, second.Report.Cache.Hits, "rendered markdown is cached between runs")
	assert.NotEqual(t, first.RunID, second.RunID)

	require.NoError(t, svc.Close())
	assert.Len(t, obs.runs, 2)

	store, err := eventstore.NewSQLiteStore(cfg.HistoryPath())
	require.NoError(t, err)
	defer store.Close()
	proj := eventstore.NewRunHistoryProjection(store, 10)
	require.NoError(t, proj.Rebuild(context.Background()))
	history := proj.History(10)
	require.Len(t, history, 2)
	assert.Equal(t, second.RunID, history[0].RunID)
	assert.Equal(t, string(engine.OutcomeSuccess), history[0].Status)
	assert.Equal(t, 2, history[0].Documents)
}

func TestDefaultBuildService_Run_CachePersistsAcrossServices(t *testing.T) {
	cfg := loadSite(t, siteConfig)

	svc := newService()
	_, err := svc.Run(context.Background(), BuildRequest{Config: cfg})
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	svc = newService()
	defer svc.Close()
	result, err := svc.Run(context.Background(), BuildRequest{Config: cfg})
	require.NoError(t, err)
	assert.Positive(t, result.Report.Cache.Hits, "cache restored from the on-disk store")
}

func TestDefaultBuildService_Run_NoCache(t *testing.T) {
	cfg := loadSite(t, siteConfig)
	svc := newService()
	defer svc.Close()

	req := BuildRequest{Config: cfg, Options: BuildOptions{NoCache: true}}
	_, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	result, err := svc.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Zero(t, result.Report.Cache.Hits)
	testutil.NewFileAssertions(t, cfg.BaseDir()).AssertFileNotExists(".sitepipe/cache")
}

func TestDefaultBuildService_Run_OutputOverrideRebuildsEngine(t *testing.T) {
	cfg := loadSite(t, siteConfig)
	svc := newService()
	defer svc.Close()

	_, err := svc.Run(context.Background(), BuildRequest{Config: cfg})
	require.NoError(t, err)
	first := svc.Engine()

	alt := filepath.Join(cfg.BaseDir(), "alt")
	result, err := svc.Run(context.Background(), BuildRequest{Config: cfg, OutputDir: alt})
	require.NoError(t, err)
	assert.NotSame(t, first, svc.Engine())
	assert.Equal(t, alt, result.OutputPath)
	testutil.NewFileAssertions(t, alt).AssertFileExists("posts/hello.html")
}

func TestDefaultBuildService_Run_UnknownModule(t *testing.T) {
	cfg := loadSite(t, `
pipelines:
  - name: broken
    modules: [does_not_exist]
`)
	svc := newService()
	defer svc.Close()

	result, err := svc.Run(context.Background(), BuildRequest{Config: cfg})
	require.Error(t, err)
	assert.Equal(t, BuildStatusFailed, result.Status)
	assert.Nil(t, result.Report)
	assert.Contains(t, err.Error(), "does_not_exist")
}

func TestDefaultBuildService_Run_PartialWithContinueOnError(t *testing.T) {
	cfg := loadSite(t, `
continue_on_error: true
history: {enabled: false}
pipelines:
  - name: broken
    modules:
      - layout: {file: missing.html}
      - read_files: {patterns: ["posts/*.md"]}
      - layout: {file: missing.html}
  - name: posts
    modules:
      - read_files: {patterns: ["posts/*.md"]}
`)
	svc := newService()
	defer svc.Close()

	result, err := svc.Run(context.Background(), BuildRequest{Config: cfg})
	require.Error(t, err)
	assert.Equal(t, BuildStatusPartial, result.Status)
	assert.Equal(t, 2, result.Documents)
	assert.False(t, result.Status.IsSuccess())
}

func TestDefaultBuildService_Run_AbortedRunIsFailed(t *testing.T) {
	cfg := loadSite(t, `
history: {enabled: false}
pipelines:
  - name: posts
    modules:
      - read_files: {patterns: ["posts/*.md"]}
  - name: broken
    modules:
      - read_files: {patterns: ["posts/*.md"]}
      - layout: {file: missing.html}
  - name: later
    modules:
      - read_files: {patterns: ["posts/*.md"]}
`)
	svc := newService()
	defer svc.Close()

	result, err := svc.Run(context.Background(), BuildRequest{Config: cfg})
	require.Error(t, err)
	assert.Equal(t, BuildStatusFailed, result.Status)
	later, ok := result.Report.Result("later")
	require.True(t, ok)
	assert.Equal(t, engine.StatusSkipped, later.Status)
}

func TestDefaultBuildService_Run_MixedCaseDependency(t *testing.T) {
	cfg := loadSite(t, `
history: {enabled: false}
pipelines:
  - name: index
    depends_on: [Posts]
    modules:
      - documents: {pipelines: [POSTS]}
  - name: posts
    modules:
      - read_files: {patterns: ["posts/*.md"]}
`)
	svc := newService()
	defer svc.Close()

	result, err := svc.Run(context.Background(), BuildRequest{Config: cfg})
	require.NoError(t, err)
	assert.Equal(t, BuildStatusSuccess, result.Status)
	require.Len(t, result.Report.Pipelines, 2)
	assert.Equal(t, "posts", result.Report.Pipelines[0].Name)
	index, _ := result.Report.Result("index")
	assert.Equal(t, 2, index.DocumentsOut)
}

func TestDefaultBuildService_NATSFailureDoesNotBlockBuild(t *testing.T) {
	cfg := loadSite(t, siteConfig)
	cfg.Events.NATSURL = "nats://127.0.0.1:1"
	svc := newService()
	svc.natsConnect = func(string, string, *slog.Logger) (engine.Observer, io.Closer, error) {
		return nil, nil, errors.New("connection refused")
	}
	defer svc.Close()

	result, err := svc.Run(context.Background(), BuildRequest{Config: cfg})
	require.NoError(t, err)
	assert.Equal(t, BuildStatusSuccess, result.Status)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestDefaultBuildService_NATSObserverAttached(t *testing.T) {
	cfg := loadSite(t, siteConfig)
	cfg.Events.NATSURL = "nats://example:4222"
	obs := &runObserver{}
	closed := false
	svc := newService()
	svc.natsConnect = func(url, subject string, _ *slog.Logger) (engine.Observer, io.Closer, error) {
		assert.Equal(t, "nats://example:4222", url)
		assert.Equal(t, "sitepipe.runs", subject)
		return obs, closerFunc(func() error { closed = true; return nil }), nil
	}

	_, err := svc.Run(context.Background(), BuildRequest{Config: cfg})
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	assert.Len(t, obs.runs, 1)
	assert.True(t, closed)
}
