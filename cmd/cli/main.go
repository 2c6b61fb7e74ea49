package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"market-curves/internal/config"
)

//nolint:all
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// cfg is loaded once in the app's Before hook.
var cfg *config.Config

var configFlag = &cli.StringFlag{
	Name:    "config",
	Usage:   "path to YAML config",
	EnvVars: []string{"CURVES_CONFIG"},
}

func main() {
	app := cli.NewApp()
	app.Name = "curves"
	app.Usage = "build bid/offer curves and find market clearing points"
	app.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	app.Flags = []cli.Flag{configFlag}
	app.Before = func(ctx *cli.Context) error {
		c, err := config.Load(ctx.String(configFlag.Name))
		if err != nil {
			return err
		}
		level, err := log.ParseLevel(c.LogLevel)
		if err != nil {
			return err
		}
		log.SetLevel(level)
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		cfg = c
		return nil
	}
	app.Commands = append(
		app.Commands,
		curvesCmd,
		crossCmd,
		distanceCmd,
		statsCmd,
		weatherCmd,
		regionsCmd,
		publishCmd,
	)

	if err := app.Run(os.Args); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
