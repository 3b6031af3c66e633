package relink

import (
	"fmt"
	"strings"
)

// State is the position of the scanner relative to the IRAM text section.
type State int

const (
	OutsideIRAM State = iota
	InsideIRAM
)

func (s State) String() string {
	if s == InsideIRAM {
		return "inside-iram"
	}
	return "outside-iram"
}

// Rewrite applies the algorithm for dir to the template lines.
func Rewrite(lines []string, m Markers, f *Filter, targets []Target, dir Direction) ([]string, error) {
	if dir == ToIRAM {
		return Include(lines, m, targets)
	}
	return Exclude(lines, m, f, targets)
}

// Exclude moves the targets' relocated sections out of IRAM. Inside the
// IRAM section the placement rule becomes an EXCLUDE_FILE rule plus
// explicit includes of what stays, per-object rules lose the relocated
// sections, and library-wide EXCLUDE_FILE rules gain the target
// descriptors. The relocated sections are listed once before the first
// flash anchor.
func Exclude(lines []string, m Markers, f *Filter, targets []Target) ([]string, error) {
	var excluded, iramInclude, flashInclude []string
	for _, t := range targets {
		if len(filterSections(t.Relocated, ".iram1.")) > 0 {
			excluded = append(excluded, t.Desc)
		}
		if secs := filterSections(t.Remaining, ".iram1."); len(secs) > 0 {
			iramInclude = append(iramInclude, t.rule(secs))
		}
		flashInclude = append(flashInclude, t.rule(t.Relocated))
	}
	list := joinNonEmpty(f.desc(), strings.Join(excluded, " "))
	iramRule := fmt.Sprintf("    *(EXCLUDE_FILE(%s) .iram1.*) *(EXCLUDE_FILE(%s) .iram1)", list, list)

	out := make([]string, 0, len(lines)+len(iramInclude)+len(flashInclude)+2)
	state := OutsideIRAM
	var opened, closed, ruled, flashed bool
	for _, l := range lines {
		switch {
		case strings.Contains(l, m.IRAMOpen):
			state, opened = InsideIRAM, true
			out = append(out, l)
		case state == InsideIRAM && strings.Contains(l, m.IRAMClose):
			state, closed = OutsideIRAM, true
			out = append(out, l)
		case m.IsIRAMRule(l):
			if state != InsideIRAM {
				out = append(out, l)
				continue
			}
			ruled = true
			if list == "" {
				out = append(out, l)
			} else {
				out = append(out, iramRule)
			}
			out = append(out, iramInclude...)
		case strings.Contains(l, m.FlashAnchor):
			if !flashed && len(flashInclude) > 0 {
				out = append(out, flashInclude...)
				out = append(out, "")
			}
			flashed = true
			out = append(out, l)
		case state == InsideIRAM:
			out = append(out, stripRule(l, targets)...)
		default:
			out = append(out, l)
		}
	}

	switch {
	case !opened:
		return nil, &MarkerError{Marker: "iram_open", Text: m.IRAMOpen}
	case !closed:
		return nil, &MarkerError{Marker: "iram_close", Text: m.IRAMClose}
	case !ruled:
		return nil, &MarkerError{Marker: "iram_rule", Text: m.IRAMRule}
	case !flashed:
		return nil, &MarkerError{Marker: "flash_anchor", Text: m.FlashAnchor}
	}
	return out, nil
}

// stripRule rewrites one IRAM placement line for the targets. It returns
// no lines when the rule is left without sections.
func stripRule(l string, targets []Target) []string {
	for _, t := range targets {
		if strings.Contains(l, t.Desc) {
			if strings.Contains(l, textGroup) {
				if len(t.Remaining) == 0 {
					return nil
				}
				return []string{strings.ReplaceAll(l, textGroup, strings.Join(t.Remaining, " "))}
			}
			if strings.Contains(l, t.Desc+"("+strings.Join(t.Relocated, " ")+")") {
				return nil
			}
			replaced := false
			for _, s := range t.moved() {
				if strings.Contains(l, s+" ") {
					l = strings.ReplaceAll(l, s+" ", "")
					replaced = true
				}
				if strings.Contains(l, s+")") {
					l = strings.ReplaceAll(l, s+")", ")")
					replaced = true
				}
			}
			if strings.Contains(l, "( )") || strings.Contains(l, "()") {
				return nil
			}
			if replaced {
				return []string{l}
			}
			continue
		}

		if libraryExclude(l, t) {
			var extra []string
			for _, o := range targets {
				if !libraryExclude(l, o) {
					continue
				}
				l = strings.ReplaceAll(l, "EXCLUDE_FILE(", "EXCLUDE_FILE("+o.Desc+" ")
				if len(o.Remaining) > 0 {
					extra = append(extra, o.rule(o.Remaining))
				}
			}
			return append([]string{l}, extra...)
		}
	}
	return []string{l}
}

// libraryExclude reports whether l is a library-wide EXCLUDE_FILE rule of
// t's library that does not yet mention t's object.
func libraryExclude(l string, t Target) bool {
	return strings.Contains(l, "*"+t.Library+":(EXCLUDE_FILE") && !strings.Contains(l, t.Stem)
}

// Include links the targets into IRAM. Their rules replace the IRAM
// placement rule; the rest of the IRAM section moves in front of the
// flash anchor, minus the skip list; an EXCLUDE_FILE rule after the text
// start keeps the default .iram1 rule from claiming the targets again.
func Include(lines []string, m Markers, targets []Target) ([]string, error) {
	var iramIn, rodataIn, excluded []string
	for _, t := range targets {
		iramIn = append(iramIn, t.rule(t.Relocated))
		rodataIn = append(rodataIn, t.rule([]string{".rodata", ".rodata.*", ".sdata2", ".sdata2.*", ".srodata", ".srodata.*"}))
		if !t.Whole {
			excluded = append(excluded, t.Desc)
		}
	}
	list := strings.Join(excluded, " ")
	iramEx := fmt.Sprintf("    *(EXCLUDE_FILE(%s) .iram1 EXCLUDE_FILE(%s) .iram1.*)", list, list)

	out := make([]string, 0, len(lines)+len(iramIn)+len(rodataIn)+3)
	var moved []string
	state := OutsideIRAM
	var opened, ruled, ended, started, flashed, rodata bool
	moving := false
	for _, l := range lines {
		if state == InsideIRAM {
			switch {
			case strings.Contains(l, m.IRAMRegionEnd):
				state, moving, ended = OutsideIRAM, false, true
				out = append(out, l)
			case moving:
				if !m.skip(l) {
					moved = append(moved, l)
				}
			case strings.Contains(l, m.IRAMRule):
				ruled, moving = true, true
				out = append(out, iramIn...)
				out = append(out, "")
				moved = append(moved, l)
			default:
				out = append(out, l)
			}
			continue
		}

		switch {
		case strings.Contains(l, m.IRAMOpen) && !opened:
			state, opened = InsideIRAM, true
		case strings.Contains(l, m.TextStart):
			started = true
			out = append(out, l)
			if list != "" {
				out = append(out, "", iramEx)
			}
			continue
		case strings.Contains(l, m.FlashAnchor):
			if ended && !flashed {
				out = append(out, moved...)
				moved = nil
			}
			flashed = true
		case m.RodataAnchor != "" && !rodata && strings.Contains(l, m.RodataAnchor):
			rodata = true
			out = append(out, rodataIn...)
		}
		out = append(out, l)
	}

	switch {
	case !opened:
		return nil, &MarkerError{Marker: "iram_open", Text: m.IRAMOpen}
	case !ruled:
		return nil, &MarkerError{Marker: "iram_rule", Text: m.IRAMRule}
	case !ended:
		return nil, &MarkerError{Marker: "iram_region_end", Text: m.IRAMRegionEnd}
	case !started:
		return nil, &MarkerError{Marker: "text_start", Text: m.TextStart}
	case !flashed || len(moved) > 0:
		return nil, &MarkerError{Marker: "flash_anchor", Text: m.FlashAnchor}
	}
	return out, nil
}

func joinNonEmpty(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
