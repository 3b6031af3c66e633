package objdump

import (
	"bufio"
	"bytes"
	"fmt"
	"path"
	"regexp"
	"strings"
)

// maxLine bounds a single line of objdump output.
const maxLine = 1 << 20

var (
	archiveHeader = regexp.MustCompile(`^In archive (.+):$`)
	sectionRow    = regexp.MustCompile(`^\s*\d+\s+(\S+)\s+[0-9a-fA-F]+\s`)
)

// SectionDB maps archive members to their section names, in listing order.
type SectionDB struct {
	Archive string
	objects []string
	secs    map[string][]string
}

// ParseSections reads "objdump -h" output for an archive or a single
// object file.
func ParseSections(out []byte) (*SectionDB, error) {
	db := &SectionDB{secs: map[string][]string{}}
	cur := ""
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if m := archiveHeader.FindStringSubmatch(line); m != nil {
			db.Archive = m[1]
			continue
		}
		if m := objectHeader.FindStringSubmatch(line); m != nil {
			cur = m[1]
			if _, ok := db.secs[cur]; !ok {
				db.objects = append(db.objects, cur)
				db.secs[cur] = nil
			}
			continue
		}
		if cur == "" {
			continue
		}
		if m := sectionRow.FindStringSubmatch(line); m != nil {
			db.secs[cur] = append(db.secs[cur], m[1])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("objdump: section listing: %w", err)
	}
	return db, nil
}

// Objects lists the member names in listing order.
func (db *SectionDB) Objects() []string { return db.objects }

// Sections returns the sections of the member compiled from obj. obj may
// be a bare stem ("tasks") or carry a source suffix ("tasks.c"); members
// named obj+".o", obj+".obj" or obj+".*.obj" match.
func (db *SectionDB) Sections(obj string) []string {
	var out []string
	for _, member := range db.objects {
		if memberMatches(member, obj) {
			out = append(out, db.secs[member]...)
		}
	}
	return out
}

func memberMatches(member, obj string) bool {
	if member == obj+".o" || member == obj+".obj" {
		return true
	}
	ok, _ := path.Match(escapeGlob(obj)+".*.obj", member)
	return ok
}

func escapeGlob(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`)
	return r.Replace(s)
}

// ObjectSections looks up a manifest object name the way the linker
// fragment generator does: first as "<stem>.c", then as the bare stem.
func (db *SectionDB) ObjectSections(object string) []string {
	stem, _, _ := strings.Cut(object, ".")
	if secs := db.Sections(stem + ".c"); len(secs) > 0 {
		return secs
	}
	return db.Sections(stem)
}
