package commands

import (
	"fmt"
	"os"

	"git.home.luguber.info/inful/sitepipe/internal/build"
	serrors "git.home.luguber.info/inful/sitepipe/internal/errors"
	"git.home.luguber.info/inful/sitepipe/internal/modules"
	"git.home.luguber.info/inful/sitepipe/internal/visualize"
)

// VisualizeCmd implements the 'visualize' command.
type VisualizeCmd struct {
	Format string `short:"f" help:"Output format: text, mermaid, dot, json" default:"text" enum:"text,mermaid,dot,json"`
	Output string `short:"o" help:"Output file path (prints to stdout if not specified)" type:"path"`
}

// Run executes the visualize command.
func (cmd *VisualizeCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	eng, err := build.NewEngine(cfg, modules.NewRegistry())
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	pipelines, err := visualize.Describe(eng)
	if err != nil {
		return err
	}
	output, err := visualize.Render(visualize.Format(cmd.Format), pipelines)
	if err != nil {
		return fmt.Errorf("failed to visualize pipelines: %w", err)
	}

	if cmd.Output == "" {
		_, err := fmt.Fprint(g.out(), output)
		return err
	}
	if err := os.WriteFile(cmd.Output, []byte(output), 0o600); err != nil {
		return serrors.FileSystemError("write", cmd.Output, err)
	}
	g.Logger.Info("Pipeline visualization written", "file", cmd.Output, "format", cmd.Format)
	return nil
}
