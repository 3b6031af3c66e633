package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/fwforge/fwtools/internal/logger"
)

var (
	logLevel  string
	logFormat string
	debug     bool
)

func logFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("RELINKER_LOG_LEVEL"),
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Aliases:     []string{"d"},
			Usage:       "shorthand for --log-level debug",
			Destination: &debug,
		},
	}
}

// fileConfig is the --config file, loaded before the logger so that its
// log settings apply.
var fileConfig Config

func setupLogger(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		cfg, err := loadConfig(path)
		if err != nil {
			return ctx, fmt.Errorf("config %s: %w", path, err)
		}
		fileConfig = cfg
		applyLogConfig(cmd, cfg)
	}

	log, err := logger.FromOptions(os.Stderr, logger.Options{
		Level:  logLevel,
		Format: logFormat,
		Debug:  debug,
		Tool:   "relinker",
	})
	if err != nil {
		return ctx, err
	}
	return logger.WithContext(ctx, log), nil
}
