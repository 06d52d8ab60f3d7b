package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitepipe/cmd/sitepipe/commands"
	serrors "git.home.luguber.info/inful/sitepipe/internal/errors"
	"git.home.luguber.info/inful/sitepipe/internal/version"
)

func main() {
	cli := &commands.CLI{}
	global := &commands.Global{Logger: slog.Default(), Out: os.Stdout}
	parser := kong.Must(cli,
		kong.Name("sitepipe"),
		kong.Description("Static site pipelines: read, transform and write documents through configurable module chains."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global, cli),
	)
	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if err := kctx.Run(); err != nil {
		serrors.NewCLIErrorAdapter(cli.Verbose, global.Logger).HandleError(err)
	}
}
