package symbols

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/fwforge/fwtools/internal/logger"
	"github.com/fwforge/fwtools/internal/manifest"
	"github.com/fwforge/fwtools/internal/sdkconfig"
)

// Object is one object file with the functions selected from it.
type Object struct {
	Library   string
	Name      string
	Paths     []string
	Functions []Section
}

// All reports whether any selected entry is a group alias.
func (o *Object) All() bool {
	for _, f := range o.Functions {
		if f.All {
			return true
		}
	}
	return false
}

// Sections returns the resolved section of each found function, in
// manifest order.
func (o *Object) Sections() []Section {
	out := make([]Section, 0, len(o.Functions))
	for _, f := range o.Functions {
		if f.Found() {
			out = append(out, f)
		}
	}
	return out
}

// Names flattens Sections into input section names.
func (o *Object) Names() []string {
	var out []string
	for _, s := range o.Sections() {
		out = append(out, s.Names()...)
	}
	return out
}

type Library struct {
	Name    string
	Path    string
	Objects []*Object
}

// Model is the resolved manifest: libraries and objects in first-mention
// order.
type Model struct {
	Libraries []*Library
}

type GenerateOptions struct {
	Workers int
	Logger  logger.Logger
}

// Generate selects the manifest functions whose option holds under cfg and
// resolves each to its section. Objects are resolved in parallel; the
// model keeps manifest order.
func Generate(ctx context.Context, m *manifest.Manifest, cfg *sdkconfig.Config, r *Resolver, opts GenerateOptions) (*Model, error) {
	log := logger.OrDiscard(opts.Logger)
	if cfg == nil {
		cfg = sdkconfig.New()
	}

	model := &Model{}
	libs := map[string]*Library{}
	objs := map[[2]string]*Object{}
	var order []*Object
	want := map[*Object][]string{}

	for _, fn := range m.Functions {
		ok, err := cfg.Eval(fn.Option)
		if err != nil {
			return nil, fmt.Errorf("function manifest line %d: %w", fn.Line, err)
		}
		if !ok {
			log.Debug("option not met, skipping", "function", fn.Function, "option", fn.Option)
			continue
		}

		lib, seen := libs[fn.Library]
		if !seen {
			path, err := m.LibraryPath(fn.Library)
			if err != nil {
				return nil, err
			}
			lib = &Library{Name: fn.Library, Path: path}
			libs[fn.Library] = lib
			model.Libraries = append(model.Libraries, lib)
		}

		key := [2]string{fn.Library, fn.Object}
		obj, seen := objs[key]
		if !seen {
			paths, err := m.ObjectPaths(fn.Library, fn.Object)
			if err != nil {
				return nil, err
			}
			obj = &Object{Library: fn.Library, Name: fn.Object, Paths: paths}
			objs[key] = obj
			lib.Objects = append(lib.Objects, obj)
			order = append(order, obj)
		}
		want[obj] = append(want[obj], fn.Function)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, obj := range order {
		funcs := want[obj]
		g.Go(func() error {
			resolved := make([]Section, 0, len(funcs))
			for _, f := range funcs {
				s, err := r.Resolve(gctx, obj.Library, obj.Name, obj.Paths, f)
				if err != nil {
					return err
				}
				resolved = append(resolved, s)
			}
			obj.Functions = resolved
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, obj := range order {
		log.Debug("resolved object", "library", obj.Library, "object", obj.Name, "sections", obj.Names())
	}
	return model, nil
}
