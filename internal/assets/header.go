package assets

import (
	"bytes"
	"fmt"
	"strings"
)

// Identifier upper-cases s and replaces every character that cannot appear
// in a C identifier with '_'.
func Identifier(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// HeaderFileName is the generated header's file name for a partition.
func HeaderFileName(name string) string {
	return "mmap_generate_" + name + ".h"
}

// GenerateHeader renders the C header listing every asset in table order.
// files are the full asset names; the enum is derived from them even when
// the table had to truncate. An empty list gets no enum, C does not allow one.
func GenerateHeader(name string, files []string, checksum uint32) []byte {
	prefix := "MMAP_" + Identifier(name)

	var buf bytes.Buffer
	buf.WriteString("/*\n * This file is automatically generated by mmapassets, do not edit.\n */\n\n")
	buf.WriteString("#pragma once\n\n")
	fmt.Fprintf(&buf, "#define %-40s %d\n", prefix+"_FILES", len(files))
	fmt.Fprintf(&buf, "#define %-40s 0x%04X\n", prefix+"_CHECKSUM", checksum)
	if len(files) == 0 {
		return buf.Bytes()
	}

	buf.WriteString("\n")
	fmt.Fprintf(&buf, "enum %s_LISTS {\n", prefix)
	for i, f := range files {
		fmt.Fprintf(&buf, "    %-40s /*!< %s */\n", fmt.Sprintf("%s_%s = %d,", prefix, Identifier(f), i), f)
	}
	buf.WriteString("};\n")
	return buf.Bytes()
}
