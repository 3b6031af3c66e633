// Package symbols maps manifest functions to the sections that hold them,
// using objdump symbol tables of the candidate object files.
package symbols

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fwforge/fwtools/internal/logger"
	"github.com/fwforge/fwtools/internal/objdump"
)

var ErrSymbolNotFound = errors.New("symbols: function not found")

// Group aliases name a whole class of sections instead of a symbol.
var aliases = map[string]string{
	"*":             ".literal .literal.* .text .text.*",
	".text.*":       ".literal .literal.* .text .text.*",
	".iram1.*":      ".iram1 .iram1.*",
	".wifi0iram.*":  ".wifi0iram .wifi0iram.*",
	".wifirxiram.*": ".wifirxiram .wifirxiram.*",
}

// Section is the resolution of one manifest function.
type Section struct {
	Function string
	// Name is the section holding the function, or the space-separated
	// section list for a group alias. Empty when not found.
	Name string
	// All is set for group aliases: the whole object moves, not a single
	// function.
	All bool
}

func (s Section) Found() bool { return s.Name != "" }

// Names expands the section into the input section names a linker rule
// must list. A function in an .iram1.N section is placed by that section;
// a function compiled with -ffunction-sections has a .literal and a .text
// section named after it.
func (s Section) Names() []string {
	if !s.Found() {
		return nil
	}
	if s.All {
		return strings.Fields(s.Name)
	}
	fn, ok := strings.CutPrefix(s.Name, ".text.")
	if !ok || strings.Contains(s.Name, ".iram1.") {
		return []string{s.Name}
	}
	return []string{".literal." + fn, ".text." + fn}
}

// Resolver looks functions up in objdump symbol tables. Dumps are cached
// per path and shared between goroutines.
type Resolver struct {
	runner   objdump.Runner
	tolerant bool
	log      logger.Logger

	mu    sync.Mutex
	dumps map[string]*dump
}

type dump struct {
	once sync.Once
	syms []objdump.Symbol
	err  error
}

// NewResolver returns a resolver. In tolerant mode a function missing from
// every dump is logged and skipped; otherwise it is an error.
func NewResolver(r objdump.Runner, tolerant bool, log logger.Logger) *Resolver {
	return &Resolver{runner: r, tolerant: tolerant, log: logger.OrDiscard(log), dumps: map[string]*dump{}}
}

func (r *Resolver) symbols(ctx context.Context, path string) ([]objdump.Symbol, error) {
	r.mu.Lock()
	d, ok := r.dumps[path]
	if !ok {
		d = &dump{}
		r.dumps[path] = d
	}
	r.mu.Unlock()

	d.once.Do(func() {
		d.syms, d.err = objdump.Symbols(ctx, r.runner, path)
	})
	return d.syms, d.err
}

// Resolve finds the section of function in the first candidate path whose
// dump defines it.
func (r *Resolver) Resolve(ctx context.Context, library, object string, paths []string, function string) (Section, error) {
	if list, ok := aliases[function]; ok {
		return Section{Function: function, Name: list, All: true}, nil
	}
	for _, p := range paths {
		syms, err := r.symbols(ctx, p)
		if err != nil {
			return Section{}, err
		}
		if s, ok := objdump.Lookup(syms, function); ok {
			return Section{Function: function, Name: s.Section}, nil
		}
	}
	if r.tolerant {
		r.log.Warn("function not found, skipping", "library", library, "object", object, "function", function)
		return Section{Function: function}, nil
	}
	return Section{}, fmt.Errorf("%w: %s in %s:%s", ErrSymbolNotFound, function, library, object)
}
