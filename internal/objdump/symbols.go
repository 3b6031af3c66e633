package objdump

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const Undefined = "*UND*"

// Symbol is one line of an "objdump -t" listing.
type Symbol struct {
	Value   uint64
	Binding byte // 'l', 'g', 'u', '!' or ' '
	Weak    bool
	Type    byte // 'F', 'f', 'O' or ' '
	Section string
	Size    uint64
	Name    string
	// Object is the archive member the symbol came from, if any.
	Object string
}

func (s Symbol) Defined() bool { return s.Section != Undefined }

// IsCode reports whether the symbol is a function or data object, the two
// kinds a manifest entry can name.
func (s Symbol) IsCode() bool { return s.Type == 'F' || s.Type == 'O' }

// value, 7 flag columns, section, size, name.
var symbolLine = regexp.MustCompile(`^([0-9a-fA-F]+) (.{7}) (\S+)\s+([0-9a-fA-F]+)\s+(.+)$`)

var objectHeader = regexp.MustCompile(`^(\S+):\s+file format \S+`)

// ParseSymbols extracts every symbol line; headers and blank lines are
// skipped.
func ParseSymbols(out []byte) ([]Symbol, error) {
	var syms []Symbol
	object := ""
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if m := objectHeader.FindStringSubmatch(line); m != nil {
			object = m[1]
			continue
		}
		m := symbolLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		value, err := strconv.ParseUint(m[1], 16, 64)
		if err != nil {
			continue
		}
		size, err := strconv.ParseUint(m[4], 16, 64)
		if err != nil {
			continue
		}
		flags := m[2]
		name := strings.TrimSpace(m[5])
		// Visibility markers precede the name, e.g. ".hidden foo".
		if f := strings.Fields(name); len(f) > 1 {
			name = f[len(f)-1]
		}
		syms = append(syms, Symbol{
			Value:   value,
			Binding: flags[0],
			Weak:    flags[1] == 'w',
			Type:    flags[6],
			Section: m[3],
			Size:    size,
			Name:    name,
			Object:  object,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("objdump: symbol table: %w", err)
	}
	return syms, nil
}

// Lookup returns the first defined function or object symbol called name.
func Lookup(syms []Symbol, name string) (Symbol, bool) {
	for _, s := range syms {
		if s.Name == name && s.Defined() && s.IsCode() {
			return s, true
		}
	}
	return Symbol{}, false
}
