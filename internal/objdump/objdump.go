// Package objdump runs the toolchain's objdump and parses its symbol table
// (-t) and section header (-h) listings.
package objdump

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

var ErrToolFailed = errors.New("objdump: tool failed")

// Runner runs objdump with the given arguments and returns its stdout.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// Tool runs a real objdump binary.
type Tool struct {
	Path string
}

func NewTool(path string) *Tool {
	if path == "" {
		path = "objdump"
	}
	return &Tool{Path: path}
}

// ToolError carries the failed invocation and whatever it wrote to stderr.
type ToolError struct {
	Path   string
	Args   []string
	Status int
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("objdump: %s %s: %v", e.Path, strings.Join(e.Args, " "), e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *ToolError) Unwrap() []error { return []error{ErrToolFailed, e.Err} }

// Run executes the tool with LC_ALL=C so section and symbol listings are
// not localised.
func (t *Tool) Run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, t.Path, args...)
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		te := &ToolError{Path: t.Path, Args: args, Status: -1, Stderr: stderr.String(), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			te.Status = exitErr.ExitCode()
		}
		return nil, te
	}
	return stdout.Bytes(), nil
}

// Symbols runs "objdump -t path" and parses the result.
func Symbols(ctx context.Context, r Runner, path string) ([]Symbol, error) {
	out, err := r.Run(ctx, "-t", path)
	if err != nil {
		return nil, err
	}
	return ParseSymbols(out)
}

// Sections runs "objdump -h path" and parses the result.
func Sections(ctx context.Context, r Runner, path string) (*SectionDB, error) {
	out, err := r.Run(ctx, "-h", path)
	if err != nil {
		return nil, err
	}
	return ParseSections(out)
}
