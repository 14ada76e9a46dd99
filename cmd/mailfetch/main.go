package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/bscott/mailfetch/internal/cli"
)

func main() {
	var c cli.CLI

	parser := kong.Must(&c,
		kong.Name("mailfetch"),
		kong.Description(cli.Description),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	// Handle --help-json before parsing so required args need not be given
	for _, arg := range os.Args[1:] {
		if arg == "--help-json" {
			if err := cli.PrintHelpJSON(os.Stdout, parser.Model); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	ctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		parser.FatalIfErrorf(err)
	}

	execCtx, err := cli.NewContext(&c.Globals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := ctx.Run(execCtx); err != nil {
		execCtx.Formatter.PrintError(err)
		os.Exit(1)
	}
}
