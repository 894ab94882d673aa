package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/skinshortcuts/build/internal/content"
	"github.com/skinshortcuts/build/internal/pipeline"
)

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "compile the skin's menu configuration and user overlay into the includes file",
		Flags: []cli.Flag{
			skinDirFlag(),
			outputFlag(),
			userDataFlag(),
			hashFileFlag(),
			forceFlag(),
			logLevelFlag(),
			logJSONFlag(),
		},
		Action: func(c *cli.Context) error {
			cfg := buildConfig(c)
			ok, err := pipeline.Build(cfg, buildLogger(c), content.NopProvider{})
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("build did not complete")
			}
			return nil
		},
	}
}
