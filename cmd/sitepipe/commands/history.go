package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	serrors "git.home.luguber.info/inful/sitepipe/internal/errors"
	"git.home.luguber.info/inful/sitepipe/internal/eventstore"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int  `short:"n" help:"Number of runs to show (0 uses history.limit)" default:"0"`
	JSON  bool `help:"Print runs as JSON"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	path := cfg.HistoryPath()
	if path == "" {
		return serrors.ValidationFailed("history.enabled", "run history is disabled in the configuration")
	}
	limit := h.Limit
	if limit <= 0 {
		limit = cfg.History.Limit
	}

	store, err := eventstore.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	proj := eventstore.NewRunHistoryProjection(store, limit)
	if err := proj.Rebuild(context.Background()); err != nil {
		return err
	}
	runs := proj.History(limit)

	if h.JSON {
		enc := json.NewEncoder(g.out())
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(g.out(), "No runs recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(g.out(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTATUS\tSTARTED\tDURATION\tDOCUMENTS\tCACHE HITS\tCACHE MISSES")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			r.RunID, r.Status, r.StartedAt.Local().Format(time.DateTime),
			r.Duration.Round(time.Millisecond), r.Documents, r.CacheHits, r.CacheMisses)
	}
	return tw.Flush()
}
