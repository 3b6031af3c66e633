package relink

import (
	"maps"
	"regexp"
	"slices"
	"strings"
)

var excludeList = regexp.MustCompile(`\(EXCLUDE_FILE\((.*)\) \.iram1 `)

// Filter is the set of libraries the template already excludes from its
// IRAM placement rule. Their objects are never relocated.
type Filter struct {
	// Desc is the EXCLUDE_FILE list as written in the template.
	Desc string
	libs map[string]struct{}
}

// ParseFilter reads the exclusion list of the first EXCLUDE_FILE variant
// of the IRAM rule.
func ParseFilter(lines []string, m Markers) *Filter {
	f := &Filter{libs: map[string]struct{}{}}
	for _, l := range lines {
		if !m.isExcludeRule(l) {
			continue
		}
		match := excludeList.FindStringSubmatch(l)
		if match == nil {
			continue
		}
		f.Desc = strings.TrimSpace(match[1])
		for tok := range strings.FieldsSeq(f.Desc) {
			lib, _, _ := strings.Cut(strings.TrimLeft(tok, "*"), ":")
			lib = strings.TrimRight(lib, "*")
			if lib != "" {
				f.libs[lib] = struct{}{}
			}
		}
		break
	}
	return f
}

// Match reports whether lib is excluded by the template.
func (f *Filter) Match(lib string) bool {
	if f == nil {
		return false
	}
	_, ok := f.libs[lib]
	return ok
}

func (f *Filter) Libraries() []string {
	if f == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(f.libs))
}

func (f *Filter) desc() string {
	if f == nil {
		return ""
	}
	return f.Desc
}
