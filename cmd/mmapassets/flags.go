package main

import (
	"context"
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
			Sources:     cli.EnvVars("MMAPASSETS_LOG_LEVEL"),
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

func setupLogger(tool string) cli.BeforeFunc {
	return func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		log, err := logger.FromOptions(os.Stderr, logger.Options{
			Level:  logLevel,
			Format: logFormat,
			Debug:  debug,
			Tool:   tool,
		})
		if err != nil {
			return ctx, err
		}
		return logger.WithContext(ctx, log), nil
	}
}

// blobFlags describe the blob layout shared by pack and inspect.
func blobFlags(nameLength, dimensionBytes, blobVersion *int) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "name-length", Usage: "bytes reserved for each asset name", Value: 32, Destination: nameLength},
		&cli.IntFlag{Name: "dimension-bytes", Usage: "width/height field size (2 or 4)", Value: 2, Destination: dimensionBytes},
		&cli.IntFlag{Name: "blob-version", Usage: "blob layout version (1 = no length field, 2)", Value: 2, Destination: blobVersion},
	}
}
