package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	serrors "git.home.luguber.info/inful/sitepipe/internal/errors"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "sitepipe.yaml"

// Config is the sitepipe project configuration.
type Config struct {
	Input           string           `yaml:"input"`
	Output          string           `yaml:"output"`
	TempDir         string           `yaml:"temp_dir,omitempty"`
	Parallelism     int              `yaml:"parallelism,omitempty"`
	ContinueOnError bool             `yaml:"continue_on_error,omitempty"`
	Settings        map[string]any   `yaml:"settings,omitempty"`
	Cache           CacheConfig      `yaml:"cache"`
	History         HistoryConfig    `yaml:"history"`
	Events          EventsConfig     `yaml:"events"`
	Logging         LoggingConfig    `yaml:"logging"`
	Watch           WatchConfig      `yaml:"watch,omitempty"`
	Preview         PreviewConfig    `yaml:"preview,omitempty"`
	Pipelines       []PipelineConfig `yaml:"pipelines"`

	// baseDir anchors relative paths; it is the directory of the loaded file.
	baseDir string
}

// CacheConfig controls the execution cache and its on-disk store.
type CacheConfig struct {
	Enabled        *bool  `yaml:"enabled,omitempty"`
	Dir            string `yaml:"dir,omitempty"`
	SpillThreshold int64  `yaml:"spill_threshold,omitempty"`
}

// IsEnabled reports whether caching is on; unset means on.
func (c CacheConfig) IsEnabled() bool { return c.Enabled == nil || *c.Enabled }

// HistoryConfig points at the SQLite run history.
type HistoryConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Path    string `yaml:"path,omitempty"`
	Limit   int    `yaml:"limit,omitempty"`
}

// EventsConfig enables NATS run notifications when NATSURL is set.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level,omitempty"`
	Format LogFormat `yaml:"format,omitempty"`
}

// WatchConfig tunes the watch command.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce,omitempty"`
	Interval time.Duration `yaml:"interval,omitempty"`
	Ignore   []string      `yaml:"ignore,omitempty"`
}

// PreviewConfig configures the preview server used by watch --serve.
type PreviewConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// PipelineConfig declares one pipeline. Modules holds registry specs: either
// a bare module name or a single-key map of name to arguments.
type PipelineConfig struct {
	Name        string   `yaml:"name"`
	DependsOn   []string `yaml:"depends_on,omitempty"`
	ProcessOnce bool     `yaml:"process_once,omitempty"`
	Modules     []any    `yaml:"modules"`
}

// Defaults returns the values applied to unset fields.
func Defaults() Config {
	enabled, history := true, true
	return Config{
		Input:  "input",
		Output: "output",
		Cache: CacheConfig{
			Enabled:        &enabled,
			Dir:            filepath.Join(".sitepipe", "cache"),
			SpillThreshold: 8 << 20,
		},
		History: HistoryConfig{
			Enabled: &history,
			Path:    filepath.Join(".sitepipe", "history.db"),
			Limit:   100,
		},
		Events:  EventsConfig{Subject: "sitepipe.runs"},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
			Ignore:   []string{".git", ".sitepipe"},
		},
		Preview: PreviewConfig{Addr: "127.0.0.1:8080"},
	}
}

// Load reads the configuration at path. Environment files next to it are
// loaded first, ${VAR} references are expanded, defaults fill unset fields and
// the result is validated.
func Load(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, serrors.FileSystemError("resolve", path, err)
	}
	if err := loadEnvFiles(filepath.Dir(abs)); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, serrors.ConfigNotFound(path)
		}
		return nil, serrors.FileSystemError("read", path, err)
	}

	cfg, err := Parse([]byte(expandEnv(string(data))))
	if err != nil {
		return nil, err
	}
	cfg.baseDir = filepath.Dir(abs)
	return cfg, nil
}

// Parse decodes, defaults and validates configuration bytes. Relative paths
// resolve against the working directory until a base directory is set.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, serrors.Wrap(err, serrors.CategoryConfig, serrors.SeverityError, "parse configuration")
	}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset fields from Defaults and normalizes enumerations.
func (c *Config) ApplyDefaults() error {
	if err := mergo.Merge(c, Defaults()); err != nil {
		return serrors.InternalError("apply configuration defaults", err)
	}
	c.Logging.Level = NormalizeLogLevel(string(c.Logging.Level))
	c.Logging.Format = NormalizeLogFormat(string(c.Logging.Format))
	return nil
}

// SetBaseDir anchors relative paths at dir.
func (c *Config) SetBaseDir(dir string) { c.baseDir = dir }

// BaseDir returns the directory relative paths resolve against.
func (c *Config) BaseDir() string { return c.baseDir }

// Resolve returns p anchored at the base directory unless already absolute.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.baseDir, p)
}

func (c *Config) InputDir() string  { return c.Resolve(c.Input) }
func (c *Config) OutputDir() string { return c.Resolve(c.Output) }
func (c *Config) CacheDir() string  { return c.Resolve(c.Cache.Dir) }

// HistoryPath returns "" when the history store is disabled.
func (c *Config) HistoryPath() string {
	if c.History.Enabled != nil && !*c.History.Enabled {
		return ""
	}
	return c.Resolve(c.History.Path)
}

// TempDirPath returns the spill directory, defaulting to a folder under the
// cache directory.
func (c *Config) TempDirPath() string {
	if c.TempDir != "" {
		return c.Resolve(c.TempDir)
	}
	return filepath.Join(c.CacheDir(), "tmp")
}

// Pipeline returns the named pipeline declaration.
func (c *Config) Pipeline(name string) (PipelineConfig, bool) {
	for _, p := range c.Pipelines {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return PipelineConfig{}, false
}

// Init writes an example configuration to path.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return serrors.New(serrors.CategoryConfig, serrors.SeverityError,
			fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", path))
	}
	data, err := yaml.Marshal(Example())
	if err != nil {
		return serrors.InternalError("marshal example configuration", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return serrors.FileSystemError("mkdir", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return serrors.FileSystemError("write", path, err)
	}
	return nil
}
