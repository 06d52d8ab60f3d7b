package commands

import (
	"fmt"
	"text/tabwriter"

	"git.home.luguber.info/inful/sitepipe/internal/modules"
)

// ModulesCmd implements the 'modules' command.
type ModulesCmd struct{}

func (m *ModulesCmd) Run(g *Global) error {
	tw := tabwriter.NewWriter(g.out(), 0, 0, 2, ' ', 0)
	for _, e := range modules.NewRegistry().Entries() {
		fmt.Fprintf(tw, "%s\t%s\n", e.Name, e.Description)
	}
	return tw.Flush()
}
