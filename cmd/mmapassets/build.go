package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/fwforge/fwtools/internal/assets"
	"github.com/fwforge/fwtools/internal/buildcfg"
	"github.com/fwforge/fwtools/internal/logger"
	"github.com/fwforge/fwtools/pkg/assetblob"
)

func buildCmd() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Convert and pack an asset directory as configured by a build config",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "build config file (.json, .yaml)"},
			&cli.StringFlag{Name: "assets", Aliases: []string{"a"}, Usage: "asset directory"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "partition image to write"},
			&cli.StringFlag{Name: "include-dir", Usage: "directory for the generated header"},
			&cli.StringFlag{Name: "name", Usage: "partition name used in the header"},
			&cli.StringFlag{Name: "partition-size", Usage: "partition capacity, hex or decimal"},
			&cli.StringSliceFlag{Name: "formats", Usage: "file extensions to pack"},
			&cli.IntFlag{Name: "name-length", Usage: "bytes reserved for each asset name"},
			&cli.IntFlag{Name: "split-height", Usage: "strip height of split images (0 = one strip)"},
			&cli.BoolFlag{Name: "spng", Usage: "convert png to split png"},
			&cli.BoolFlag{Name: "sjpg", Usage: "convert jpg to split jpg"},
			&cli.BoolFlag{Name: "qoi", Usage: "convert images to qoi"},
			&cli.BoolFlag{Name: "sqoi", Usage: "convert images to split qoi"},
			&cli.BoolFlag{Name: "pjpg", Usage: "convert png to pjpg"},
			&cli.IntFlag{Name: "jpeg-quality", Usage: "jpeg quality for split jpg strips"},
			&cli.IntFlag{Name: "pjpg-quality", Usage: "pjpg colour quality"},
			&cli.IntFlag{Name: "pjpg-alpha-quality", Usage: "pjpg alpha quality"},
			&cli.BoolFlag{Name: "complexity-check", Usage: "classify alpha before pjpg conversion", Value: true},
			&cli.IntFlag{Name: "blob-version", Usage: "blob layout version (1, 2)"},
			&cli.IntFlag{Name: "dimension-bytes", Usage: "width/height field size (2 or 4)"},
			&cli.StringSliceFlag{Name: "include", Usage: "glob of files to pack (relative to the asset dir)"},
			&cli.StringSliceFlag{Name: "exclude", Usage: "glob of files to skip"},
			&cli.IntFlag{Name: "workers", Usage: "parallel conversions (0 = GOMAXPROCS)"},
			&cli.BoolFlag{Name: "print-config", Usage: "print the effective config and exit"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			log := logger.FromContext(ctx).WithGroup("build")
			cfg, err := loadBuildConfig(c)
			if err != nil {
				return err
			}
			if c.Bool("print-config") {
				out, err := cfg.Marshal()
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			res, err := assets.Build(ctx, cfg, log)
			if err != nil {
				return err
			}
			for conv, n := range res.Converted {
				log.Debug("conversions", "kind", string(conv), "count", n)
			}
			printPackResult(cfg.ImageFile, cfg.HeaderPath(), res.PackResult)
			return nil
		},
	}
}

func packCmd() *cli.Command {
	var (
		output         string
		header         string
		name           string
		partitionSize  string
		formats        []string
		include        []string
		exclude        []string
		nameLength     int
		dimensionBytes int
		blobVersion    int
	)

	return &cli.Command{
		Name:      "pack",
		Usage:     "Pack the files of a directory as they are",
		ArgsUsage: "<dir>",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "partition image to write", Required: true, Destination: &output},
			&cli.StringFlag{Name: "header", Usage: "generated header path (default: <output dir>/include/mmap_generate_<name>.h)", Destination: &header},
			&cli.StringFlag{Name: "name", Usage: "partition name used in the header", Value: buildcfg.DefaultHeaderName, Destination: &name},
			&cli.StringFlag{Name: "partition-size", Usage: "partition capacity, hex or decimal", Value: buildcfg.DefaultPartitionSize, Destination: &partitionSize},
			&cli.StringSliceFlag{Name: "formats", Usage: "file extensions to pack", Value: strings.Split(buildcfg.DefaultFormats, ","), Destination: &formats},
			&cli.StringSliceFlag{Name: "include", Usage: "glob of files to pack", Destination: &include},
			&cli.StringSliceFlag{Name: "exclude", Usage: "glob of files to skip", Destination: &exclude},
		}, blobFlags(&nameLength, &dimensionBytes, &blobVersion)...),
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.NArg() != 1 {
				return cli.Exit("error: pack takes exactly one directory", 1)
			}
			dir := c.Args().First()

			cfg := buildcfg.Config{
				ImageFile:       output,
				AssetsSize:      partitionSize,
				HeaderAssetName: name,
			}
			capacity, err := cfg.PartitionSize()
			if err != nil {
				return err
			}
			if header == "" {
				header = cfg.HeaderPath()
			}

			res, err := assets.Pack(ctx, dir, assets.Filter{Formats: formats, Include: include, Exclude: exclude}, assets.PackOptions{
				BlobPath:   output,
				HeaderPath: header,
				Name:       cfg.HeaderName(),
				Blob: assetblob.Options{
					Version:        assetblob.Version(blobVersion),
					NameLength:     nameLength,
					DimensionBytes: dimensionBytes,
				},
				PartitionSize: capacity,
				Logger:        logger.FromContext(ctx).WithGroup("pack"),
			})
			if err != nil {
				return err
			}
			printPackResult(output, header, res)
			return nil
		},
	}
}

func printPackResult(blob, header string, res *assets.PackResult) {
	fmt.Printf("%-6s %-32s %10s %10s %6s %6s\n", "index", "name", "size", "offset", "width", "height")
	for i, f := range res.Files {
		stored := f.Stored
		if f.Truncated {
			stored += " (truncated)"
		}
		fmt.Printf("%-6d %-32s %10d %10d %6d %6d\n", i, stored, f.Size, f.Offset, f.Width, f.Height)
	}
	fmt.Printf("\nimage:    %s (%d bytes)\n", filepath.Clean(blob), res.Size)
	fmt.Printf("header:   %s\n", filepath.Clean(header))
	fmt.Printf("checksum: 0x%04X\n", res.Checksum)
	fmt.Printf("digest:   %s\n", res.Digest)
}
