package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "git.home.luguber.info/inful/sitepipe/internal/errors"
)

const minimalConfig = `
pipelines:
  - name: posts
    modules:
      - read_files: {patterns: ["posts/*.md"]}
      - markdown
`

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_AppliesDefaultsAndResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(writeConfig(t, dir, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "input"), cfg.InputDir())
	assert.Equal(t, filepath.Join(dir, "output"), cfg.OutputDir())
	assert.Equal(t, filepath.Join(dir, ".sitepipe", "cache"), cfg.CacheDir())
	assert.Equal(t, filepath.Join(dir, ".sitepipe", "cache", "tmp"), cfg.TempDirPath())
	assert.Equal(t, filepath.Join(dir, ".sitepipe", "history.db"), cfg.HistoryPath())
	assert.True(t, cfg.Cache.IsEnabled())
	assert.Equal(t, int64(8<<20), cfg.Cache.SpillThreshold)
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
	assert.Equal(t, LogFormatText, cfg.Logging.Format)
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, "sitepipe.runs", cfg.Events.Subject)

	require.Len(t, cfg.Pipelines, 1)
	p, ok := cfg.Pipeline("POSTS")
	require.True(t, ok)
	assert.Len(t, p.Modules, 2)
	assert.Equal(t, "markdown", p.Modules[1])
}

func TestLoad_ExplicitValuesWin(t *testing.T) {
	dir := t.TempDir()
	body := `
input: /abs/in
output: site
parallelism: 2
cache: {enabled: false, dir: tmp/cache}
history: {enabled: false}
logging: {level: DEBUG, format: json}
watch: {debounce: 1s, interval: 5m}
` + minimalConfig
	cfg, err := Load(writeConfig(t, dir, body))
	require.NoError(t, err)

	assert.Equal(t, "/abs/in", cfg.InputDir())
	assert.Equal(t, filepath.Join(dir, "site"), cfg.OutputDir())
	assert.Equal(t, 2, cfg.Parallelism)
	assert.False(t, cfg.Cache.IsEnabled())
	assert.Equal(t, filepath.Join(dir, "tmp", "cache"), cfg.CacheDir())
	assert.Empty(t, cfg.HistoryPath())
	assert.Equal(t, LogLevelDebug, cfg.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, 5*time.Minute, cfg.Watch.Interval)
}

func TestLoad_ExpandsEnvironmentAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SITEPIPE_TEST_OUT=from-dotenv\nSITEPIPE_TEST_IN=dotenv-in\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"), []byte("SITEPIPE_TEST_OUT=from-local\n"), 0o600))
	t.Setenv("SITEPIPE_TEST_TITLE", "Process Title")
	t.Cleanup(func() {
		_ = os.Unsetenv("SITEPIPE_TEST_OUT")
		_ = os.Unsetenv("SITEPIPE_TEST_IN")
	})

	body := "input: ${SITEPIPE_TEST_IN}\noutput: ${SITEPIPE_TEST_OUT}\nsettings: {title: \"${SITEPIPE_TEST_TITLE}\"}\n" + minimalConfig
	cfg, err := Load(writeConfig(t, dir, body))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "from-local"), cfg.OutputDir(), ".env.local wins over .env")
	assert.Equal(t, filepath.Join(dir, "dotenv-in"), cfg.InputDir())
	assert.Equal(t, "Process Title", cfg.Settings["title"])
}

func TestLoad_LeavesBareDollarReferences(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("t", "expanded")
	t.Setenv("SITEPIPE_TEST_EXT", ".htm")
	body := `
pipelines:
  - name: posts
    modules:
      - replace: {search: 'v(\d)', with: 'ver$1', regex: true}
      - layout: {template: '{{ $t := .Meta.Title }}{{ $t }}'}
      - write_files: {extension: '${SITEPIPE_TEST_EXT}'}
`
	cfg, err := Load(writeConfig(t, dir, body))
	require.NoError(t, err)

	mods := cfg.Pipelines[0].Modules
	require.Len(t, mods, 3)
	assert.Equal(t, "ver$1", mods[0].(map[string]any)["replace"].(map[string]any)["with"])
	assert.Equal(t, "{{ $t := .Meta.Title }}{{ $t }}", mods[1].(map[string]any)["layout"].(map[string]any)["template"])
	assert.Equal(t, ".htm", mods[2].(map[string]any)["write_files"].(map[string]any)["extension"])
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, serrors.IsCategory(err, serrors.CategoryConfig))
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("outptu: x\n" + minimalConfig))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outptu")
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	body := `
parallelism: -1
logging: {level: loud, format: xml}
pipelines:
  - name: a
    depends_on: [missing]
    modules: [markdown]
  - name: A
    modules: [markdown]
  - name: ""
    modules: []
  - name: empty
`
	_, err := Parse([]byte(body))
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{"parallelism", "logging.level", "logging.format", "missing", "pipelines[2].name", "empty.modules"} {
		assert.Contains(t, msg, want)
	}
	assert.True(t, serrors.IsCategory(err, serrors.CategoryValidation))
}

func TestValidate_RequiresPipelines(t *testing.T) {
	_, err := Parse([]byte("input: in\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipelines")
}

func TestInit_WritesLoadableExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site", DefaultFile)
	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Pipelines, 2)
	assert.Equal(t, 4, cfg.Parallelism)

	err = Init(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	require.NoError(t, Init(path, true))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LoggingConfig{Level: LogLevelWarn, Format: LogFormatJSON}.NewLogger(&buf, false)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"), "json handler")
	assert.Contains(t, out, `"k":"v"`)

	buf.Reset()
	LoggingConfig{Level: LogLevelError}.NewLogger(&buf, true).Debug("verbose")
	assert.Contains(t, buf.String(), "msg=verbose")
}

func TestNormalizeLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelInfo, NormalizeLogLevel(""))
	assert.Equal(t, LogLevelWarn, NormalizeLogLevel(" Warning "))
	assert.Equal(t, LogLevel("loud"), NormalizeLogLevel("loud"))
	assert.Equal(t, LogFormatJSON, NormalizeLogFormat("JSON"))
}
