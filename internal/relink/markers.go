package relink

import (
	_ "crypto/sha256"
	_ "embed"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/opencontainers/go-digest"
	"gopkg.in/yaml.v3"
)

//go:embed markers.yaml
var defaultMarkers []byte

// Markers are the substrings the rewriter looks for in a template. Their
// exact text varies between toolchain releases and chips.
type Markers struct {
	// IRAMOpen starts the IRAM text output section.
	IRAMOpen string `yaml:"iram_open"`
	// IRAMClose ends the region scanned when moving code out of IRAM.
	IRAMClose string `yaml:"iram_close"`
	// IRAMRegionEnd closes the IRAM text output section.
	IRAMRegionEnd string `yaml:"iram_region_end"`
	// IRAMRule is the default placement rule for .iram1 sections.
	IRAMRule string `yaml:"iram_rule"`
	// ExcludeRuleOpen and ExcludeRuleClose both occur in the variant of
	// IRAMRule that already excludes some libraries.
	ExcludeRuleOpen  string `yaml:"exclude_rule_open"`
	ExcludeRuleClose string `yaml:"exclude_rule_close"`
	// FlashAnchor is the flash text rule before which relocated code goes.
	FlashAnchor string `yaml:"flash_anchor"`
	// TextStart is the line after which the IRAM exclusion rule goes.
	TextStart string `yaml:"text_start"`
	// RodataAnchor, when set, is the rule before which rodata of code moved
	// into IRAM is placed.
	RodataAnchor string `yaml:"rodata_anchor"`
	// Skip lists rules dropped from the moved IRAM block.
	Skip []string `yaml:"skip"`
}

// IsIRAMRule reports whether line is the IRAM placement rule, plain or with
// an EXCLUDE_FILE list.
func (m Markers) IsIRAMRule(line string) bool {
	if strings.Contains(line, m.IRAMRule) {
		return true
	}
	return m.isExcludeRule(line)
}

func (m Markers) isExcludeRule(line string) bool {
	return m.ExcludeRuleOpen != "" && m.ExcludeRuleClose != "" &&
		strings.Contains(line, m.ExcludeRuleOpen) && strings.Contains(line, m.ExcludeRuleClose)
}

func (m Markers) skip(line string) bool {
	for _, s := range m.Skip {
		if strings.Contains(line, s) {
			return true
		}
	}
	return false
}

func (m Markers) validate() error {
	for name, v := range map[string]string{
		"iram_open":       m.IRAMOpen,
		"iram_close":      m.IRAMClose,
		"iram_region_end": m.IRAMRegionEnd,
		"iram_rule":       m.IRAMRule,
		"flash_anchor":    m.FlashAnchor,
		"text_start":      m.TextStart,
	} {
		if v == "" {
			return fmt.Errorf("%w: marker %s is empty", ErrInvalidMarkers, name)
		}
	}
	return nil
}

// merge overlays the non-empty fields of o. A non-nil empty Skip clears
// the list.
func (m Markers) merge(o Markers) Markers {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&m.IRAMOpen, o.IRAMOpen)
	set(&m.IRAMClose, o.IRAMClose)
	set(&m.IRAMRegionEnd, o.IRAMRegionEnd)
	set(&m.IRAMRule, o.IRAMRule)
	set(&m.ExcludeRuleOpen, o.ExcludeRuleOpen)
	set(&m.ExcludeRuleClose, o.ExcludeRuleClose)
	set(&m.FlashAnchor, o.FlashAnchor)
	set(&m.TextStart, o.TextStart)
	set(&m.RodataAnchor, o.RodataAnchor)
	if o.Skip != nil {
		m.Skip = append([]string(nil), o.Skip...)
	}
	return m
}

// MarkerOverride replaces some markers for a toolchain version and chip.
// "*" or an empty key matches anything.
type MarkerOverride struct {
	IDFVersion string `yaml:"idf_version"`
	Target     string `yaml:"target"`
	Markers    `yaml:",inline"`
}

// MarkerTable is the set of marker variants known to the rewriter.
type MarkerTable struct {
	Default   Markers          `yaml:"default"`
	Overrides []MarkerOverride `yaml:"overrides"`
}

// DefaultMarkerTable returns the embedded table.
func DefaultMarkerTable() *MarkerTable {
	t, err := ParseMarkerTable(defaultMarkers)
	if err != nil {
		panic(fmt.Sprintf("relink: embedded marker table: %v", err))
	}
	return t
}

// DefaultMarkerDigest is the digest of the embedded marker table.
func DefaultMarkerDigest() digest.Digest { return digest.FromBytes(defaultMarkers) }

// Targets lists the chips that have overrides, sorted.
func (t *MarkerTable) Targets() []string {
	var out []string
	for _, o := range t.Overrides {
		if o.Target != "" && o.Target != "*" && !slices.Contains(out, o.Target) {
			out = append(out, o.Target)
		}
	}
	slices.Sort(out)
	return out
}

// LoadMarkerTable reads a table from a YAML file.
func LoadMarkerTable(path string) (*MarkerTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("relink: read markers: %w", err)
	}
	t, err := ParseMarkerTable(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func ParseMarkerTable(data []byte) (*MarkerTable, error) {
	var t MarkerTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMarkers, err)
	}
	if err := t.Default.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Lookup merges every override matching (version, target) over the
// default, least specific first.
func (t *MarkerTable) Lookup(version, target string) Markers {
	type match struct {
		rank int
		m    Markers
	}
	var matches []match
	for _, o := range t.Overrides {
		vs := versionScore(o.IDFVersion, version)
		ts := targetScore(o.Target, target)
		if vs < 0 || ts < 0 {
			continue
		}
		matches = append(matches, match{rank: vs*2 + ts, m: o.Markers})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].rank < matches[j].rank })

	m := t.Default.merge(Markers{})
	for _, mt := range matches {
		m = m.merge(mt.m)
	}
	return m
}

// versionScore ranks how well an override key matches a version: 2 exact,
// 1 release prefix, 0 wildcard, -1 no match.
func versionScore(key, version string) int {
	version = strings.TrimPrefix(version, "v")
	key = strings.TrimPrefix(key, "v")
	switch {
	case key == "" || key == "*":
		return 0
	case key == version:
		return 2
	case strings.HasPrefix(version, key+"."):
		return 1
	}
	return -1
}

func targetScore(key, target string) int {
	switch {
	case key == "" || key == "*":
		return 0
	case strings.EqualFold(key, target):
		return 1
	}
	return -1
}
