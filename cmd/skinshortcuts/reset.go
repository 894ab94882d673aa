package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/skinshortcuts/build/internal/buildlog"
	"github.com/skinshortcuts/build/internal/config"
	"github.com/skinshortcuts/build/internal/content"
	"github.com/skinshortcuts/build/internal/pipeline"
)

func resetAllCommand() *cli.Command {
	return &cli.Command{
		Name:  "reset-all",
		Usage: "discard every menu customization and view selection, then rebuild",
		Flags: []cli.Flag{
			skinDirFlag(),
			outputFlag(),
			userDataFlag(),
			hashFileFlag(),
			logLevelFlag(),
			logJSONFlag(),
		},
		Action: func(c *cli.Context) error {
			return runReset(c, pipeline.ResetAll)
		},
	}
}

func resetMenusCommand() *cli.Command {
	return &cli.Command{
		Name:  "reset-menus",
		Usage: "discard menu customizations, keeping view selections, then rebuild",
		Flags: []cli.Flag{
			skinDirFlag(),
			outputFlag(),
			userDataFlag(),
			hashFileFlag(),
			logLevelFlag(),
			logJSONFlag(),
		},
		Action: func(c *cli.Context) error {
			return runReset(c, pipeline.ResetMenus)
		},
	}
}

func resetViewsCommand() *cli.Command {
	return &cli.Command{
		Name:  "reset-views",
		Usage: "discard view selections, keeping menu customizations, then rebuild",
		Flags: []cli.Flag{
			skinDirFlag(),
			outputFlag(),
			userDataFlag(),
			hashFileFlag(),
			logLevelFlag(),
			logJSONFlag(),
		},
		Action: func(c *cli.Context) error {
			return runReset(c, pipeline.ResetViews)
		},
	}
}

type resetFunc func(cfg *config.Config, logger *buildlog.Logger, provider content.Provider) (bool, error)

func runReset(c *cli.Context, fn resetFunc) error {
	cfg := buildConfig(c)
	ok, err := fn(cfg, buildLogger(c), content.NopProvider{})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("reset did not complete")
	}
	return nil
}

func clearCustomWidgetCommand() *cli.Command {
	return &cli.Command{
		Name:      "clear-custom-widget",
		Usage:     "revert one item's custom widget slot to the skin default, then rebuild",
		UsageText: "skinshortcuts clear-custom-widget --config DIR --output DIR --menu NAME --item NAME [--suffix .N]",
		Flags: []cli.Flag{
			skinDirFlag(),
			outputFlag(),
			userDataFlag(),
			hashFileFlag(),
			logLevelFlag(),
			logJSONFlag(),
			&cli.StringFlag{Name: "menu", Required: true, Usage: "parent menu name"},
			&cli.StringFlag{Name: "item", Required: true, Usage: "item name to clear the custom widget from"},
			&cli.StringFlag{Name: "suffix", Usage: "widget slot suffix, e.g. \".2\" for the second slot"},
		},
		Action: func(c *cli.Context) error {
			cfg := buildConfig(c)
			ok, err := pipeline.ClearCustomWidget(cfg, buildLogger(c), content.NopProvider{}, c.String("menu"), c.String("item"), c.String("suffix"))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("clear-custom-widget did not complete")
			}
			return nil
		},
	}
}
