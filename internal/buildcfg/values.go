package buildcfg

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Int accepts both numbers and numeric strings; the build system writes
// name_length and split_height as strings.
type Int int

func (i *Int) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	if s == "" || s == "null" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("buildcfg: not an integer: %s", b)
	}
	*i = Int(n)
	return nil
}

func (i *Int) UnmarshalYAML(node *yaml.Node) error {
	if node.Value == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("buildcfg: line %d: not an integer: %q", node.Line, node.Value)
	}
	*i = Int(n)
	return nil
}

// Bool accepts JSON/YAML booleans and the strings CMake produces
// ("true", "ON", "1", ...).
type Bool bool

func (v *Bool) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	if s == "null" {
		return nil
	}
	parsed, err := parseBool(s)
	if err != nil {
		return err
	}
	*v = Bool(parsed)
	return nil
}

func (v *Bool) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := parseBool(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*v = Bool(parsed)
	return nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "on", "yes", "y", "1":
		return true, nil
	case "false", "off", "no", "n", "0", "":
		return false, nil
	}
	return false, fmt.Errorf("buildcfg: not a boolean: %q", s)
}
