package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/fwforge/fwtools/internal/relink"
	"github.com/fwforge/fwtools/internal/version"

	"github.com/urfave/cli/v3"
)

func versionCmd() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print version information and the embedded marker table",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			printVersion(os.Stdout)
			return nil
		},
	}
}

func printVersion(w io.Writer) {
	info := version.Resolve()
	fmt.Fprintf(w, "relinker    %s\n", info.Version)
	if info.Commit != "" {
		fmt.Fprintf(w, "commit:     %s\n", info.Commit)
	}
	if info.BuildTime != "" {
		fmt.Fprintf(w, "build time: %s\n", info.BuildTime)
	}
	fmt.Fprintf(w, "markers:    %s\n", relink.DefaultMarkerDigest().Encoded()[:12])
	if targets := relink.DefaultMarkerTable().Targets(); len(targets) > 0 {
		fmt.Fprintf(w, "overrides:  %s\n", strings.Join(targets, " "))
	}
	fmt.Fprintf(w, "go:         %s\n", runtime.Version())
}
