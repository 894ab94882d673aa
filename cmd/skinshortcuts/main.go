// Command skinshortcuts compiles a skin's declarative menu/widget/
// background/template configuration plus a user customization overlay
// into the runtime include XML a media-center skinning engine consumes.
// Structured the way cmd/fleetctl's entry point is: one *cli.Command
// constructor per subcommand, shared flags factored into flags.go.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "skinshortcuts",
		Usage: "compile skin menu configuration into runtime includes",
		Commands: []*cli.Command{
			buildCommand(),
			resetAllCommand(),
			resetMenusCommand(),
			resetViewsCommand(),
			clearCustomWidgetCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
