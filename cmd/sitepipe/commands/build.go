package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/sitepipe/internal/build"
	serrors "git.home.luguber.info/inful/sitepipe/internal/errors"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output  string `short:"o" help:"Override the configured output directory" type:"path"`
	NoCache bool   `name:"no-cache" help:"Disable the execution cache for this run"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := build.NewBuildService().WithLogger(g.Logger)
	result, runErr := svc.Run(ctx, build.BuildRequest{
		Config:    cfg,
		OutputDir: b.Output,
		Trigger:   build.TriggerManual,
		Options:   build.BuildOptions{NoCache: b.NoCache},
	})
	if err := svc.Close(); err != nil {
		g.Logger.Warn("Closing build service failed", "error", err)
	}
	if result != nil && result.Report != nil {
		printResult(g.out(), result)
	}
	if runErr == nil {
		return nil
	}
	if _, ok := serrors.As(runErr); ok {
		return runErr
	}
	return serrors.PipelineFailed("build", runErr).WithSeverity(serrors.SeverityError)
}

func printResult(w io.Writer, r *build.BuildResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PIPELINE\tSTATUS\tIN\tOUT\tREUSED\tDURATION")
	for _, p := range r.Report.Pipelines {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			p.Name, p.Status, p.DocumentsIn, p.DocumentsOut, p.Reused, p.Duration.Round(time.Millisecond))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "Build %s: %d documents written to %s in %s (run %s, cache %d hits / %d misses)\n",
		r.Status, r.Documents, r.OutputPath, r.Duration.Round(time.Millisecond), r.RunID,
		r.Report.Cache.Hits, r.Report.Cache.Misses)
}
