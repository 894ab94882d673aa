package main

import (
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/skinshortcuts/build/internal/buildlog"
	"github.com/skinshortcuts/build/internal/config"
)

func skinDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"skin-dir"},
		EnvVars:  []string{"SKINSHORTCUTS_SKIN_DIR"},
		Usage:    "directory containing menus.xml, widgets.xml, backgrounds.xml, properties.xml, templates.xml, views.xml",
		Required: true,
	}
}

func outputFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:     "output",
		EnvVars:  []string{"SKINSHORTCUTS_OUTPUT"},
		Usage:    "directory to write the compiled includes file to; repeatable",
		Required: true,
	}
}

func userDataFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "user-data",
		EnvVars: []string{"SKINSHORTCUTS_USER_DATA"},
		Usage:   "path to the user customization overlay JSON file",
	}
}

func hashFileFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "hash-file",
		EnvVars: []string{"SKINSHORTCUTS_HASH_FILE"},
		Value:   ".skinshortcuts-hashes.yml",
		Usage:   "path to the rebuild fingerprint file",
	}
}

func forceFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "force",
		Usage: "rebuild even if the rebuild gate reports nothing changed",
	}
}

func logLevelFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "log-level",
		Value: "info",
		Usage: "debug, info, warn, or error",
	}
}

func logJSONFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "log-json",
		Usage: "emit structured JSON logs instead of a console writer",
	}
}

// buildConfig assembles a config.Config directly from CLI flags, bypassing
// config.Load's file/environment layering - a single-shot CLI invocation
// has no config file of its own to layer over.
func buildConfig(c *cli.Context) *config.Config {
	return &config.Config{
		SkinDir:      c.String("config"),
		OutputPaths:  splitOutputPaths(c.StringSlice("output")),
		UserDataPath: c.String("user-data"),
		HashFilePath: c.String("hash-file"),
		Force:        c.Bool("force"),
	}
}

// splitOutputPaths accepts both a repeated --output flag and a single
// comma-separated --output value, matching the "--output
// <path>[,<path>...]" invocation surface.
func splitOutputPaths(raw []string) []string {
	var out []string
	for _, r := range raw {
		out = append(out, strings.Split(r, ",")...)
	}
	return out
}

func buildLogger(c *cli.Context) *buildlog.Logger {
	return buildlog.New(buildlog.Options{
		Level: c.String("log-level"),
		JSON:  c.Bool("log-json"),
	})
}
