package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/fwforge/fwtools/internal/version"
	"github.com/fwforge/fwtools/pkg/assetblob"
	"github.com/fwforge/fwtools/pkg/splitimg"

	"github.com/urfave/cli/v3"
)

func versionCmd() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print version information and the default blob layout",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			printVersion(os.Stdout)
			return nil
		},
	}
}

func printVersion(w io.Writer) {
	info := version.Resolve()
	fmt.Fprintf(w, "mmapassets  %s\n", info.Version)
	if info.Commit != "" {
		fmt.Fprintf(w, "commit:     %s\n", info.Commit)
	}
	if info.BuildTime != "" {
		fmt.Fprintf(w, "build time: %s\n", info.BuildTime)
	}
	opts := assetblob.DefaultOptions()
	fmt.Fprintf(w, "blob:       v%d, %d byte names, %d byte dimensions\n", opts.Version, opts.NameLength, opts.DimensionBytes)
	fmt.Fprintf(w, "codecs:     %s pjpg\n", strings.Join(splitimg.CodecNames(), " "))
	fmt.Fprintf(w, "go:         %s\n", runtime.Version())
}
