package relink

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/fwforge/fwtools/internal/logger"
	"github.com/fwforge/fwtools/internal/objdump"
	"github.com/fwforge/fwtools/internal/symbols"
)

// Direction selects the rewrite algorithm.
type Direction int

const (
	// ToFlash removes the selected functions from IRAM.
	ToFlash Direction = iota
	// ToIRAM links the selected functions into IRAM.
	ToIRAM
)

func (d Direction) String() string {
	if d == ToIRAM {
		return "iram"
	}
	return "flash"
}

const textGroup = ".literal .literal.* .text .text.*"

// Target is one object whose sections are relocated.
type Target struct {
	Library string
	Object  string
	// Stem is the object name up to its first dot.
	Stem string
	// Desc is the linker input descriptor, "*lib:stem.*" or "*lib:" when
	// the whole library moves.
	Desc string
	// Relocated are the sections that move.
	Relocated []string
	// Sections are the object's code sections from the archive.
	Sections []string
	// Remaining are Sections minus Relocated, sorted.
	Remaining []string
	// Whole targets move every listed section and are not added to
	// exclusion lists.
	Whole bool
}

func (t Target) rule(secs []string) string {
	return "    " + t.Desc + "(" + strings.Join(secs, " ") + ")"
}

func stem(object string) string {
	s, _, _ := strings.Cut(object, ".")
	return s
}

func descriptor(lib, object string) string {
	return "*" + lib + ":" + stem(object) + ".*"
}

// archives caches "objdump -h" of each library.
type archives struct {
	runner objdump.Runner
	dbs    map[string]*objdump.SectionDB
}

func (a *archives) sections(ctx context.Context, path string) (*objdump.SectionDB, error) {
	if db, ok := a.dbs[path]; ok {
		return db, nil
	}
	db, err := objdump.Sections(ctx, a.runner, path)
	if err != nil {
		return nil, err
	}
	a.dbs[path] = db
	return db, nil
}

// BuildTargets turns the resolved model into rewrite targets, skipping
// libraries the filter excludes and objects with nothing to move.
func BuildTargets(ctx context.Context, r objdump.Runner, model *symbols.Model, f *Filter, dir Direction, log logger.Logger) ([]Target, error) {
	log = logger.OrDiscard(log)
	ar := &archives{runner: r, dbs: map[string]*objdump.SectionDB{}}

	var out []Target
	for _, lib := range model.Libraries {
		if f.Match(lib.Name) {
			log.Warn("library excluded by template, skipping", "library", lib.Name)
			continue
		}
		for _, obj := range lib.Objects {
			relocated := obj.Names()
			if len(relocated) == 0 {
				log.Debug("no resolved functions, skipping", "library", lib.Name, "object", obj.Name)
				continue
			}

			if dir == ToIRAM && obj.All() {
				t := Target{
					Library:   lib.Name,
					Object:    obj.Name,
					Stem:      stem(obj.Name),
					Desc:      descriptor(lib.Name, obj.Name),
					Relocated: relocated,
					Remaining: relocated,
					Whole:     true,
				}
				if obj.Name == "*" {
					t.Desc = "*" + lib.Name + ":"
				}
				out = append(out, t)
				continue
			}

			db, err := ar.sections(ctx, lib.Path)
			if err != nil {
				return nil, err
			}
			secs := db.ObjectSections(obj.Name)
			if len(secs) == 0 {
				return nil, fmt.Errorf("%w: %s in %s", ErrNoSections, obj.Name, lib.Path)
			}
			out = append(out, newTarget(lib.Name, obj.Name, secs, relocated))
		}
	}
	return out, nil
}

func newTarget(lib, object string, archiveSecs, relocated []string) Target {
	t := Target{
		Library:   lib,
		Object:    object,
		Stem:      stem(object),
		Desc:      descriptor(lib, object),
		Relocated: relocated,
	}
	// Only sections of the same kind as the relocated ones can remain.
	kinds := []string{".iram1.", ".text.", ".literal."}
	if strings.HasPrefix(relocated[0], ".iram1") {
		kinds = kinds[:1]
	}
	for _, s := range archiveSecs {
		for _, k := range kinds {
			if strings.Contains(s, k) {
				t.Sections = append(t.Sections, s)
				break
			}
		}
	}
	for _, s := range t.Sections {
		if !relocates(relocated, s) && !slices.Contains(t.Remaining, s) {
			t.Remaining = append(t.Remaining, s)
		}
	}
	slices.Sort(t.Remaining)
	return t
}

// relocates reports whether sec is covered by one of the relocated names.
// Group names such as ".iram1.*" are input section patterns.
func relocates(relocated []string, sec string) bool {
	for _, p := range relocated {
		if ok, _ := path.Match(p, sec); ok {
			return true
		}
	}
	return false
}

// moved lists the relocated names followed by the archive sections they
// cover.
func (t Target) moved() []string {
	out := slices.Clone(t.Relocated)
	for _, s := range t.Sections {
		if !slices.Contains(out, s) && !slices.Contains(t.Remaining, s) {
			out = append(out, s)
		}
	}
	return out
}

func filterSections(secs []string, kind string) []string {
	var out []string
	for _, s := range secs {
		if strings.Contains(s, kind) {
			out = append(out, s)
		}
	}
	return out
}
