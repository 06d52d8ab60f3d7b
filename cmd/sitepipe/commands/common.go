// Package commands implements the sitepipe command line.
package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitepipe/internal/config"
)

// Global is state shared by every subcommand.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"sitepipe.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build     BuildCmd     `cmd:"" help:"Run every pipeline once"`
	Watch     WatchCmd     `cmd:"" help:"Rebuild on input changes, optionally serving the site with live reload"`
	Init      InitCmd      `cmd:"" help:"Write an example configuration file"`
	Modules   ModulesCmd   `cmd:"" help:"List the available module types"`
	Visualize VisualizeCmd `cmd:"" help:"Print the pipeline structure (text, mermaid, dot, json)"`
	History   HistoryCmd   `cmd:"" help:"List past runs from the history store"`
}

// AfterApply runs after flag parsing; it installs a logger until the
// configuration supplies its own settings.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	g.Logger = config.LoggingConfig{}.NewLogger(os.Stderr, c.Verbose)
	slog.SetDefault(g.Logger)
	return nil
}

// loadConfig reads the configuration and switches logging to its settings.
func (c *CLI) loadConfig(g *Global) (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	g.Logger = cfg.Logging.NewLogger(os.Stderr, c.Verbose)
	slog.SetDefault(g.Logger)
	return cfg, nil
}

func (g *Global) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}
