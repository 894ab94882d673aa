package main

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/urfave/cli/v2"
)

func testContext(t *testing.T, args map[string]string, slices map[string][]string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for name, v := range args {
		set.String(name, v, "")
	}
	for name := range slices {
		set.Var(cli.NewStringSlice(slices[name]...), name, "")
	}
	set.Bool("force", args["force"] == "true", "")
	return cli.NewContext(nil, set, nil)
}

func TestBuildConfigReadsFlagsIntoConfig(t *testing.T) {
	c := testContext(t, map[string]string{
		"config":    "/skins/default",
		"user-data": "/skins/default/userdata.json",
		"hash-file": "/skins/default/.hashes.yml",
	}, map[string][]string{
		"output": {"/skins/default/includes"},
	})

	cfg := buildConfig(c)
	assert.Equal(t, "/skins/default", cfg.SkinDir)
	assert.Equal(t, []string{"/skins/default/includes"}, cfg.OutputPaths)
	assert.Equal(t, "/skins/default/userdata.json", cfg.UserDataPath)
	assert.Equal(t, "/skins/default/.hashes.yml", cfg.HashFilePath)
	assert.False(t, cfg.Force)
}

func TestBuildLoggerReturnsLoggerForLevelFlag(t *testing.T) {
	c := testContext(t, map[string]string{"log-level": "debug"}, nil)
	logger := buildLogger(c)
	assert.NotNil(t, logger)
}
