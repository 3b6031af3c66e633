// Package manifest reads the relinker's CSV manifests:
//
//	library.csv   library,path
//	object.csv    library,object,path
//	function.csv  library,object,function,option
//
// A header row whose first cell is "library" is skipped, as are blank lines
// and lines starting with '#'.
package manifest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrMalformedRow = errors.New("manifest: malformed row")
	ErrUnknown      = errors.New("manifest: unknown entry")
)

// AnyObject in object.csv supplies paths for objects without their own row.
const AnyObject = "*"

type Library struct {
	Name string
	Path string
}

type Object struct {
	Library string
	Name    string
	Path    string
}

type Function struct {
	Library  string
	Object   string
	Function string
	// Option is an sdkconfig predicate; empty means always.
	Option string
	// Line is the 1-based line in function.csv, for diagnostics.
	Line int
}

func NewLibrary(fields []string) (Library, error) {
	if err := need(fields, 2, "library,path"); err != nil {
		return Library{}, err
	}
	return Library{Name: fields[0], Path: fields[1]}, nil
}

func NewObject(fields []string) (Object, error) {
	if err := need(fields, 3, "library,object,path"); err != nil {
		return Object{}, err
	}
	return Object{Library: fields[0], Name: fields[1], Path: fields[2]}, nil
}

func NewFunction(fields []string) (Function, error) {
	if err := need(fields, 3, "library,object,function[,option]"); err != nil {
		return Function{}, err
	}
	f := Function{Library: fields[0], Object: fields[1], Function: fields[2]}
	if len(fields) > 3 {
		f.Option = fields[3]
	}
	return f, nil
}

func need(fields []string, n int, layout string) error {
	if len(fields) < n {
		return fmt.Errorf("%w: want %s, got %d fields", ErrMalformedRow, layout, len(fields))
	}
	for i := range n {
		if fields[i] == "" {
			return fmt.Errorf("%w: field %d of %s is empty", ErrMalformedRow, i+1, layout)
		}
	}
	return nil
}

// readRows calls visit for every data row with its fields trimmed.
func readRows(r io.Reader, visit func(line int, fields []string) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedRow, err)
		}
		line, _ := cr.FieldPos(0)
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		if first {
			first = false
			if strings.EqualFold(rec[0], "library") {
				continue
			}
		}
		if len(rec) == 1 && rec[0] == "" {
			continue
		}
		if err := visit(line, rec); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
}

func ReadLibraries(r io.Reader) ([]Library, error) {
	var out []Library
	err := readRows(r, func(_ int, f []string) error {
		lib, err := NewLibrary(f)
		out = append(out, lib)
		return err
	})
	return out, err
}

func ReadObjects(r io.Reader) ([]Object, error) {
	var out []Object
	err := readRows(r, func(_ int, f []string) error {
		obj, err := NewObject(f)
		out = append(out, obj)
		return err
	})
	return out, err
}

func ReadFunctions(r io.Reader) ([]Function, error) {
	var out []Function
	err := readRows(r, func(line int, f []string) error {
		fn, err := NewFunction(f)
		fn.Line = line
		out = append(out, fn)
		return err
	})
	return out, err
}

// Manifest is the three files loaded together.
type Manifest struct {
	Libraries []Library
	Objects   []Object
	Functions []Function

	libs map[string]string
	objs map[[2]string][]string
}

// Files names the manifest inputs. Relative paths inside the CSVs are
// resolved against BaseDir when it is set.
type Files struct {
	Library  string
	Object   string
	Function string
	BaseDir  string
}

func Load(files Files) (*Manifest, error) {
	m := &Manifest{}
	if err := readFile(files.Library, func(r io.Reader) (err error) {
		m.Libraries, err = ReadLibraries(r)
		return err
	}); err != nil {
		return nil, err
	}
	if err := readFile(files.Object, func(r io.Reader) (err error) {
		m.Objects, err = ReadObjects(r)
		return err
	}); err != nil {
		return nil, err
	}
	if err := readFile(files.Function, func(r io.Reader) (err error) {
		m.Functions, err = ReadFunctions(r)
		return err
	}); err != nil {
		return nil, err
	}
	if files.BaseDir != "" {
		for i := range m.Libraries {
			m.Libraries[i].Path = resolve(files.BaseDir, m.Libraries[i].Path)
		}
		for i := range m.Objects {
			m.Objects[i].Path = resolve(files.BaseDir, m.Objects[i].Path)
		}
	}
	m.index()
	return m, nil
}

// New builds a manifest from records already in memory.
func New(libs []Library, objs []Object, funcs []Function) *Manifest {
	m := &Manifest{Libraries: libs, Objects: objs, Functions: funcs}
	m.index()
	return m
}

func (m *Manifest) index() {
	m.libs = make(map[string]string, len(m.Libraries))
	for _, l := range m.Libraries {
		m.libs[l.Name] = l.Path
	}
	m.objs = make(map[[2]string][]string, len(m.Objects))
	for _, o := range m.Objects {
		k := [2]string{o.Library, o.Name}
		m.objs[k] = append(m.objs[k], o.Path)
	}
}

// LibraryPath returns the archive path of a library.
func (m *Manifest) LibraryPath(lib string) (string, error) {
	p, ok := m.libs[lib]
	if !ok {
		return "", fmt.Errorf("%w: library %s not in library manifest", ErrUnknown, lib)
	}
	return p, nil
}

// ObjectPaths returns the candidate object files for (lib, obj), falling
// back to the library's "*" row.
func (m *Manifest) ObjectPaths(lib, obj string) ([]string, error) {
	if p, ok := m.objs[[2]string{lib, obj}]; ok {
		return p, nil
	}
	if p, ok := m.objs[[2]string{lib, AnyObject}]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: object %s:%s not in object manifest", ErrUnknown, lib, obj)
}

func readFile(path string, parse func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	defer f.Close()
	if err := parse(f); err != nil {
		return fmt.Errorf("manifest: %s: %w", path, err)
	}
	return nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
