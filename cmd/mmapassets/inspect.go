package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/opencontainers/go-digest"
	"github.com/urfave/cli/v3"

	"github.com/fwforge/fwtools/internal/pjpg"
	"github.com/fwforge/fwtools/pkg/assetblob"
	"github.com/fwforge/fwtools/pkg/splitimg"
)

type inspectEntry struct {
	Index  int           `json:"index"`
	Name   string        `json:"name"`
	Size   uint32        `json:"size"`
	Offset uint32        `json:"offset"`
	Width  uint32        `json:"width"`
	Height uint32        `json:"height"`
	Format string        `json:"format"`
	Digest digest.Digest `json:"digest"`
}

type inspectReport struct {
	File     string         `json:"file"`
	Size     int            `json:"size"`
	Count    uint32         `json:"count"`
	Checksum string         `json:"checksum"`
	Length   uint32         `json:"length,omitempty"`
	Digest   digest.Digest  `json:"digest"`
	Entries  []inspectEntry `json:"entries"`
}

// payloadFormat names the container an asset is stored in.
func payloadFormat(name string, data []byte) string {
	if codec, ok := splitimg.CodecOf(data); ok {
		return codec.String()
	}
	if pjpg.IsPJPG(data) {
		return "pjpg"
	}
	if ext := filepath.Ext(name); ext != "" {
		return ext[1:]
	}
	return "raw"
}

func inspectCmd() *cli.Command {
	var (
		asJSON         bool
		nameLength     int
		dimensionBytes int
		blobVersion    int
		extract        string
	)

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Verify a partition image and list its directory table",
		ArgsUsage: "<image>",
		Flags: append([]cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print the report as JSON", Destination: &asJSON},
			&cli.StringFlag{Name: "extract", Usage: "write every asset into this directory", Destination: &extract},
		}, blobFlags(&nameLength, &dimensionBytes, &blobVersion)...),
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.NArg() != 1 {
				return cli.Exit("error: inspect takes exactly one image", 1)
			}
			path := c.Args().First()
			blob, err := assetblob.Open(path, assetblob.Options{
				Version:        assetblob.Version(blobVersion),
				NameLength:     nameLength,
				DimensionBytes: dimensionBytes,
			})
			if err != nil {
				return fmt.Errorf("inspect %s: %w", path, err)
			}
			defer func() { _ = blob.Close() }()

			report := inspectReport{
				File:     path,
				Size:     len(blob.Data),
				Count:    blob.Header.Count,
				Checksum: fmt.Sprintf("0x%04X", blob.Header.Checksum),
				Length:   blob.Header.Length,
				Digest:   digest.FromBytes(blob.Data),
			}
			for i, e := range blob.Entries() {
				data := blob.AssetData(i)
				report.Entries = append(report.Entries, inspectEntry{
					Index:  i,
					Name:   e.Name,
					Size:   e.Size,
					Offset: e.Offset,
					Width:  e.Width,
					Height: e.Height,
					Format: payloadFormat(e.Name, data),
					Digest: digest.FromBytes(data),
				})
				if extract != "" {
					if err := os.MkdirAll(extract, 0o755); err != nil {
						return err
					}
					if err := os.WriteFile(filepath.Join(extract, filepath.Base(e.Name)), data, 0o644); err != nil {
						return err
					}
				}
			}

			if asJSON {
				out, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			fmt.Printf("image:    %s (%d bytes)\n", report.File, report.Size)
			fmt.Printf("assets:   %d\n", report.Count)
			fmt.Printf("checksum: %s (ok)\n", report.Checksum)
			fmt.Printf("digest:   %s\n\n", report.Digest)
			fmt.Printf("%-6s %-32s %-6s %10s %10s %6s %6s\n", "index", "name", "format", "size", "offset", "width", "height")
			for _, e := range report.Entries {
				fmt.Printf("%-6d %-32s %-6s %10d %10d %6d %6d\n", e.Index, e.Name, e.Format, e.Size, e.Offset, e.Width, e.Height)
			}
			return nil
		},
	}
}
