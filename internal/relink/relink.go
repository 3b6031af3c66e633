// Package relink rewrites an ESP-IDF linker script template so that chosen
// functions move between IRAM and flash.
//
// The template is scanned line by line by a small state machine. The
// substrings it reacts to come from a marker table keyed by toolchain
// version and target chip, so new toolchain releases need a table entry
// rather than code.
package relink

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fwforge/fwtools/internal/atomicfile"
	"github.com/fwforge/fwtools/internal/logger"
	"github.com/fwforge/fwtools/internal/manifest"
	"github.com/fwforge/fwtools/internal/objdump"
	"github.com/fwforge/fwtools/internal/sdkconfig"
	"github.com/fwforge/fwtools/internal/symbols"
)

// Config is the toolchain context of a run.
type Config struct {
	// Objdump is the objdump binary; "objdump" on PATH when empty.
	Objdump    string
	IDFVersion string
	Target     string
	// Tolerant skips manifest functions missing from every dump instead
	// of failing.
	Tolerant bool
}

type Options struct {
	Config

	Template  string
	Output    string
	Manifest  manifest.Files
	SDKConfig string
	Direction Direction
	// Markers is an optional marker table file replacing the embedded one.
	Markers string
	Workers int

	// Runner overrides the objdump tool built from Config.Objdump.
	Runner objdump.Runner
	Logger logger.Logger
}

type Result struct {
	Targets  []Target
	Filtered []string
	Markers  Markers
	// Unchanged is set when no function was selected and the template was
	// copied as is.
	Unchanged bool
}

func (o Options) validate() error {
	for name, v := range map[string]string{
		"template":          o.Template,
		"output":            o.Output,
		"library manifest":  o.Manifest.Library,
		"object manifest":   o.Manifest.Object,
		"function manifest": o.Manifest.Function,
	} {
		if v == "" {
			return fmt.Errorf("%w: %s path not set", ErrMissingInput, name)
		}
	}
	return nil
}

// Run resolves the manifest against the toolchain and writes the rewritten
// template to opts.Output.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	log := logger.OrDiscard(opts.Logger).With("direction", opts.Direction.String())

	table := DefaultMarkerTable()
	if opts.Markers != "" {
		var err error
		if table, err = LoadMarkerTable(opts.Markers); err != nil {
			return nil, err
		}
	}
	markers := table.Lookup(opts.IDFVersion, opts.Target)
	log.Debug("markers selected", "idf_version", opts.IDFVersion, "target", opts.Target, "iram_open", markers.IRAMOpen)

	raw, err := os.ReadFile(opts.Template)
	if err != nil {
		return nil, fmt.Errorf("relink: read template: %w", err)
	}
	text := string(raw)
	lines := splitLines(text)
	filter := ParseFilter(lines, markers)

	man, err := manifest.Load(opts.Manifest)
	if err != nil {
		return nil, err
	}
	sdk := sdkconfig.New()
	if opts.SDKConfig != "" {
		if sdk, err = sdkconfig.Load(opts.SDKConfig); err != nil {
			return nil, err
		}
	}

	runner := opts.Runner
	if runner == nil {
		runner = objdump.NewTool(opts.Objdump)
	}
	resolver := symbols.NewResolver(runner, opts.Tolerant, log)
	model, err := symbols.Generate(ctx, man, sdk, resolver, symbols.GenerateOptions{Workers: opts.Workers, Logger: log})
	if err != nil {
		return nil, err
	}
	targets, err := BuildTargets(ctx, runner, model, filter, opts.Direction, log)
	if err != nil {
		return nil, err
	}

	out, err := Rewrite(lines, markers, filter, targets, opts.Direction)
	if err != nil {
		return nil, err
	}
	res := &Result{Targets: targets, Filtered: filter.Libraries(), Markers: markers}

	result := joinLines(out, text)
	if len(targets) == 0 {
		// Markers are still checked above; with nothing to move the
		// template is copied verbatim.
		result = text
		res.Unchanged = true
	}
	if err := atomicfile.WriteFile(opts.Output, []byte(result), 0o644); err != nil {
		return nil, fmt.Errorf("relink: write %s: %w", opts.Output, err)
	}
	for _, t := range targets {
		log.Debug("relocated", "object", t.Desc, "sections", t.Relocated, "remaining", t.Remaining)
	}
	log.Info("linker script written", "output", opts.Output, "targets", len(targets), "unchanged", res.Unchanged)
	return res, nil
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// joinLines keeps the template's trailing newline.
func joinLines(lines []string, template string) string {
	s := strings.Join(lines, "\n")
	if strings.HasSuffix(template, "\n") {
		s += "\n"
	}
	return s
}
