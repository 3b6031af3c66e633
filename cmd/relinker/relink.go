package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/fwforge/fwtools/internal/logger"
	"github.com/fwforge/fwtools/internal/manifest"
	"github.com/fwforge/fwtools/internal/relink"
)

func relinkCmd() *cli.Command {
	var a args

	flags := []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "relinker.yaml with default arguments"},
		&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "linker script template", Destination: &a.input},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "linker script to write", Destination: &a.output},
		&cli.StringFlag{Name: "library", Aliases: []string{"l"}, Usage: "library manifest (library,path)", Destination: &a.library},
		&cli.StringFlag{Name: "object", Aliases: []string{"b"}, Usage: "object manifest (library,object,path)", Destination: &a.object},
		&cli.StringFlag{Name: "function", Aliases: []string{"f"}, Usage: "function manifest (library,object,function,option)", Destination: &a.function},
		&cli.StringFlag{Name: "sdkconfig", Aliases: []string{"s"}, Usage: "sdkconfig evaluated against the option column", Destination: &a.sdkconfig},
		&cli.StringFlag{Name: "objdump", Aliases: []string{"g"}, Usage: "toolchain objdump", Value: "objdump", Destination: &a.objdump},
		&cli.StringFlag{Name: "target", Usage: "target chip (esp32c3, esp32s3, ...)", Sources: cli.EnvVars("IDF_TARGET"), Destination: &a.target},
		&cli.StringFlag{Name: "idf-version", Usage: "ESP-IDF version selecting the marker variant", Sources: cli.EnvVars("IDF_VERSION"), Destination: &a.idfVersion},
		&cli.StringFlag{Name: "markers", Usage: "marker table replacing the built-in one", Destination: &a.markers},
		&cli.BoolFlag{
			Name:        "missing-function-info",
			Aliases:     []string{"missing_function_info"},
			Usage:       "warn about functions missing from the objects instead of failing",
			Destination: &a.tolerant,
		},
		&cli.BoolFlag{
			Name:        "link-to-iram",
			Aliases:     []string{"link_to_iram"},
			Usage:       "link the listed functions into IRAM instead of removing them from it",
			Destination: &a.linkToIRAM,
		},
		&cli.IntFlag{Name: "workers", Usage: "parallel symbol dumps (0 = GOMAXPROCS)", Destination: &a.workers},
	}

	return &cli.Command{
		Name:   "relinker",
		Usage:  "Move functions between IRAM and flash by rewriting a linker script template",
		Flags:  append(flags, logFlags()...),
		Before: setupLogger,
		Action: func(ctx context.Context, c *cli.Command) error {
			applyConfig(c, fileConfig, &a)
			log := logger.FromContext(ctx)

			dir := relink.ToFlash
			if a.linkToIRAM {
				dir = relink.ToIRAM
			}
			log.Debug("arguments",
				"input", a.input,
				"output", a.output,
				"library", a.library,
				"object", a.object,
				"function", a.function,
				"sdkconfig", a.sdkconfig,
				"objdump", a.objdump,
				"target", a.target,
				"idf_version", a.idfVersion,
				"tolerant", a.tolerant)

			res, err := relink.Run(ctx, relink.Options{
				Config: relink.Config{
					Objdump:    a.objdump,
					IDFVersion: a.idfVersion,
					Target:     a.target,
					Tolerant:   a.tolerant,
				},
				Template:  a.input,
				Output:    a.output,
				Manifest:  manifest.Files{Library: a.library, Object: a.object, Function: a.function},
				SDKConfig: a.sdkconfig,
				Direction: dir,
				Markers:   a.markers,
				Workers:   a.workers,
				Logger:    log,
			})
			if err != nil {
				return err
			}
			for _, lib := range res.Filtered {
				log.Debug("template excludes library", "library", lib)
			}
			return nil
		},
	}
}

// markersCmd reads --target, --idf-version and --markers from the root
// command.
func markersCmd() *cli.Command {
	return &cli.Command{
		Name:  "markers",
		Usage: "Print the markers selected for a target and ESP-IDF version",
		Action: func(ctx context.Context, c *cli.Command) error {
			t := relink.DefaultMarkerTable()
			if path := c.String("markers"); path != "" {
				var err error
				if t, err = relink.LoadMarkerTable(path); err != nil {
					return err
				}
			}
			out, err := yaml.Marshal(t.Lookup(c.String("idf-version"), c.String("target")))
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
}
