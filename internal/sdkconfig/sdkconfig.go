// Package sdkconfig reads Kconfig output files and evaluates the option
// predicates used by the relinker function manifest.
package sdkconfig

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	ErrMalformed       = errors.New("sdkconfig: malformed line")
	ErrMalformedOption = errors.New("sdkconfig: malformed option expression")
)

const prefix = "CONFIG_"

// Config holds the options set in an sdkconfig file. Options written as
// "# CONFIG_X is not set" are recorded as disabled.
type Config struct {
	values   map[string]string
	disabled map[string]bool
}

func New() *Config {
	return &Config{values: map[string]string{}, disabled: map[string]bool{}}
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sdkconfig: %w", err)
	}
	defer f.Close()
	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Parse(r io.Reader) (*Config, error) {
	cfg := New()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			body := strings.TrimSpace(strings.TrimPrefix(line, "#"))
			if name, ok := strings.CutSuffix(body, " is not set"); ok && strings.HasPrefix(name, prefix) {
				cfg.disabled[name] = true
			}
			continue
		}
		name, value, ok := strings.Cut(line, "=")
		if !ok || !strings.HasPrefix(name, prefix) || !validName(name) {
			return nil, fmt.Errorf("%w: line %d: %q", ErrMalformed, n, line)
		}
		cfg.Set(name, value)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("sdkconfig: %w", err)
	}
	return cfg, nil
}

func (c *Config) Set(name, value string) {
	c.values[name] = value
	delete(c.disabled, name)
}

func (c *Config) lookup(name string) (string, bool) {
	if v, ok := c.values[name]; ok {
		return v, true
	}
	if !strings.HasPrefix(name, prefix) {
		v, ok := c.values[prefix+name]
		return v, ok
	}
	return "", false
}

// Enabled reports whether the option is set. The CONFIG_ prefix is
// optional.
func (c *Config) Enabled(name string) bool {
	_, ok := c.lookup(name)
	return ok
}

// Value returns the raw value, with surrounding quotes removed.
func (c *Config) Value(name string) (string, bool) {
	v, ok := c.lookup(name)
	return strings.Trim(v, `"`), ok
}

// Disabled reports whether the file explicitly marks the option as not set.
func (c *Config) Disabled(name string) bool {
	if c.disabled[name] {
		return true
	}
	return !strings.HasPrefix(name, prefix) && c.disabled[prefix+name]
}

// Eval evaluates an option predicate: terms are option names, optionally
// negated with '!', joined by "&&"; "||" separates alternatives. An empty
// expression is true.
func (c *Config) Eval(expr string) (bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true, nil
	}
	// Every term is checked even after the result is known, so a typo in
	// a later alternative is never silently ignored.
	result := false
	for alt := range strings.SplitSeq(expr, "||") {
		ok, err := c.evalAnd(alt, expr)
		if err != nil {
			return false, err
		}
		result = result || ok
	}
	return result, nil
}

func (c *Config) evalAnd(alt, expr string) (bool, error) {
	result := true
	for term := range strings.SplitSeq(alt, "&&") {
		term = strings.TrimSpace(term)
		negate := false
		for strings.HasPrefix(term, "!") {
			negate = !negate
			term = strings.TrimSpace(term[1:])
		}
		if !validName(term) {
			return false, fmt.Errorf("%w: %q", ErrMalformedOption, expr)
		}
		if c.Enabled(term) == negate {
			result = false
		}
	}
	return result, nil
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '_' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
