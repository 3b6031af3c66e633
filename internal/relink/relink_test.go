package relink

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwforge/fwtools/internal/manifest"
	"github.com/fwforge/fwtools/internal/objdump"
	"github.com/fwforge/fwtools/internal/symbols"
)

const template = `SECTIONS
{
  .iram0.text :
  {
    _iram_start = ABSOLUTE(.);
    *(.iram1 .iram1.*)
    *libfreertos.a:tasks.*(.literal .literal.* .text .text.*)
    *libfreertos.a:queue.*(.literal.xQueueSend .text.xQueueSend .literal.xQueueReceive .text.xQueueReceive)
    *libriscv.a:interrupt.*(.literal .literal.* .text .text.*)
    *libriscv.a:vectors.*(.literal .literal.* .text .text.*)
    _iram_text_end = ABSOLUTE(.);
  } > iram0_0_seg

  .dram0.data :
  {
    *(.data .data.*)
  } > dram0_0_seg

  .flash.text :
  {
    _stext = .;
    _text_start = ABSOLUTE(.);
    *(EXCLUDE_FILE(*libfreertos.a:tasks.*) .literal EXCLUDE_FILE(*libfreertos.a:tasks.*) .text)
    *(.stub .gnu.warning .gnu.linkonce.literal.* .gnu.linkonce.t.*.literal .gnu.linkonce.t.*)
  } > default_code_seg
}
`

const archiveDump = `In archive libfreertos.a:

tasks.c.obj:     file format elf32-littleriscv

Sections:
Idx Name          Size      VMA       LMA       File off  Algn
  0 .text         00000000  00000000  00000000  00000034  2**1
  1 .iram1.5      0000001c  00000000  00000000  00000034  2**1
  2 .iram1.6      0000001c  00000000  00000000  00000050  2**1
  3 .text.xTaskGetTickCount 00000010  00000000  00000000  00000070  2**1
  4 .literal.xTaskGetTickCount 00000004  00000000  00000000  00000080  2**2

queue.c.obj:     file format elf32-littleriscv

Sections:
Idx Name          Size      VMA       LMA       File off  Algn
  0 .text.xQueueSend 00000040  00000000  00000000  00000034  2**1
  1 .literal.xQueueSend 00000008  00000000  00000000  00000074  2**2
  2 .text.xQueueReceive 00000040  00000000  00000000  0000007c  2**1
  3 .literal.xQueueReceive 00000008  00000000  00000000  000000bc  2**2
`

const tasksSymbols = `
tasks.c.obj:     file format elf32-littleriscv

SYMBOL TABLE:
00000000 g     F .iram1.5	0000001c vTaskDelay
00000000 g     F .text.xTaskGetTickCount	00000010 xTaskGetTickCount
`

const queueSymbols = `
queue.c.obj:     file format elf32-littleriscv

SYMBOL TABLE:
00000000 g     F .text.xQueueSend	00000040 xQueueSend
`

type fakeObjdump struct {
	out map[string]string
}

func (f *fakeObjdump) Run(_ context.Context, args ...string) ([]byte, error) {
	key := strings.Join(args, " ")
	out, ok := f.out[key]
	if !ok {
		return nil, errors.New("unexpected objdump " + key)
	}
	return []byte(out), nil
}

func newFake() *fakeObjdump {
	return &fakeObjdump{out: map[string]string{
		"-h /lib/libfreertos.a": archiveDump,
		"-t /obj/tasks.c.obj":   tasksSymbols,
		"-t /obj/queue.c.obj":   queueSymbols,
	}}
}

func lines(s string) []string { return splitLines(s) }

func defaultMarkers() Markers { return DefaultMarkerTable().Lookup("5.1", "esp32c3") }

func archiveDB(t *testing.T) *objdump.SectionDB {
	t.Helper()
	db, err := objdump.ParseSections([]byte(archiveDump))
	require.NoError(t, err)
	return db
}

func TestNewTarget(t *testing.T) {
	db := archiveDB(t)

	tasks := newTarget("libfreertos.a", "tasks.c.obj", db.ObjectSections("tasks.c.obj"), []string{".iram1.5"})
	assert.Equal(t, "*libfreertos.a:tasks.*", tasks.Desc)
	assert.Equal(t, "tasks", tasks.Stem)
	assert.Equal(t, []string{".iram1.5", ".iram1.6"}, tasks.Sections)
	assert.Equal(t, []string{".iram1.6"}, tasks.Remaining)

	queue := newTarget("libfreertos.a", "queue.c.obj", db.ObjectSections("queue.c.obj"),
		[]string{".literal.xQueueSend", ".text.xQueueSend"})
	assert.Equal(t, []string{".literal.xQueueReceive", ".text.xQueueReceive"}, queue.Remaining)
}

func testTargets(t *testing.T) []Target {
	db := archiveDB(t)
	return []Target{
		newTarget("libfreertos.a", "tasks.c.obj", db.ObjectSections("tasks.c.obj"), []string{".iram1.5"}),
		newTarget("libfreertos.a", "queue.c.obj", db.ObjectSections("queue.c.obj"),
			[]string{".literal.xQueueSend", ".text.xQueueSend"}),
	}
}

func TestExclude(t *testing.T) {
	in := lines(template)
	out, err := Exclude(in, defaultMarkers(), ParseFilter(in, defaultMarkers()), testTargets(t))
	require.NoError(t, err)
	got := strings.Join(out, "\n")

	assert.Contains(t, got,
		"    *(EXCLUDE_FILE(*libfreertos.a:tasks.*) .iram1.*) *(EXCLUDE_FILE(*libfreertos.a:tasks.*) .iram1)\n"+
			"    *libfreertos.a:tasks.*(.iram1.6)\n"+
			"    *libfreertos.a:tasks.*(.iram1.6)\n"+
			"    *libfreertos.a:queue.*(.literal.xQueueReceive .text.xQueueReceive)\n")
	assert.Contains(t, got,
		"    *libfreertos.a:tasks.*(.iram1.5)\n"+
			"    *libfreertos.a:queue.*(.literal.xQueueSend .text.xQueueSend)\n"+
			"\n"+
			"    *(.stub .gnu.warning")
	assert.NotContains(t, got, "*(.iram1 .iram1.*)")
	assert.Contains(t, got, "*libriscv.a:vectors.*(.literal .literal.* .text .text.*)", "other rules are untouched")
	assert.Contains(t, got, "*(EXCLUDE_FILE(*libfreertos.a:tasks.*) .literal EXCLUDE_FILE(*libfreertos.a:tasks.*) .text)",
		"rules outside IRAM are untouched")
}

func TestExcludeDropsEmptyRule(t *testing.T) {
	tgt := Target{
		Library:   "libfoo.a",
		Object:    "bar.c.obj",
		Stem:      "bar",
		Desc:      "*libfoo.a:bar.*",
		Relocated: []string{".literal.f", ".text.f"},
	}
	in := lines(`  .iram0.text :
  {
    *(.iram1 .iram1.*)
    *libfoo.a:bar.*(.literal.f .text.f)
    *libfoo.a:bar.*(.text.f .literal.f)
  } > iram0_0_seg
  .dram0.data :
    *(.stub .gnu.warning)`)
	out, err := Exclude(in, defaultMarkers(), nil, []Target{tgt})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"  .iram0.text :",
		"  {",
		"    *(.iram1 .iram1.*)",
		"  } > iram0_0_seg",
		"  .dram0.data :",
		"    *libfoo.a:bar.*(.literal.f .text.f)",
		"",
		"    *(.stub .gnu.warning)",
	}, out)
}

func TestExcludeLibraryWideRule(t *testing.T) {
	tgt := Target{
		Library:   "libfoo.a",
		Stem:      "bar",
		Desc:      "*libfoo.a:bar.*",
		Relocated: []string{".iram1.1"},
		Remaining: []string{".iram1.2"},
	}
	got := stripRule("    *libfoo.a:(EXCLUDE_FILE(*libfoo.a:baz.*) .iram1 .iram1.*)", []Target{tgt})
	assert.Equal(t, []string{
		"    *libfoo.a:(EXCLUDE_FILE(*libfoo.a:bar.* *libfoo.a:baz.*) .iram1 .iram1.*)",
		"    *libfoo.a:bar.*(.iram1.2)",
	}, got)
}

func TestFilter(t *testing.T) {
	in := lines(`    *(EXCLUDE_FILE(*libfreertos.a *libesp_ringbuf.a:*) .iram1 EXCLUDE_FILE(*libfreertos.a *libesp_ringbuf.a:*) .iram1.*)`)
	f := ParseFilter(in, defaultMarkers())
	assert.True(t, f.Match("libfreertos.a"))
	assert.True(t, f.Match("libesp_ringbuf.a"))
	assert.False(t, f.Match("libfree.a"), "token match, not substring")
	assert.Equal(t, []string{"libesp_ringbuf.a", "libfreertos.a"}, f.Libraries())
	assert.Equal(t, "*libfreertos.a *libesp_ringbuf.a:*", f.Desc)

	var none *Filter
	assert.False(t, none.Match("libfreertos.a"))
}

func TestExcludeKeepsFilterInRule(t *testing.T) {
	tmpl := strings.Replace(template, "*(.iram1 .iram1.*)",
		"*(EXCLUDE_FILE(*libesp_ringbuf.a) .iram1 EXCLUDE_FILE(*libesp_ringbuf.a) .iram1.*)", 1)
	in := lines(tmpl)
	m := defaultMarkers()
	out, err := Exclude(in, m, ParseFilter(in, m), testTargets(t)[:1])
	require.NoError(t, err)
	assert.Contains(t, strings.Join(out, "\n"),
		"    *(EXCLUDE_FILE(*libesp_ringbuf.a *libfreertos.a:tasks.*) .iram1.*) *(EXCLUDE_FILE(*libesp_ringbuf.a *libfreertos.a:tasks.*) .iram1)")
}

func TestInclude(t *testing.T) {
	targets := []Target{
		newTarget("libfreertos.a", "tasks.c.obj", archiveDB(t).ObjectSections("tasks.c.obj"),
			[]string{".literal.xTaskGetTickCount", ".text.xTaskGetTickCount"}),
		{
			Library:   "libfoo.a",
			Object:    "*",
			Desc:      "*libfoo.a:",
			Relocated: []string{".literal", ".literal.*", ".text", ".text.*"},
			Whole:     true,
		},
	}
	out, err := Include(lines(template), defaultMarkers(), targets)
	require.NoError(t, err)

	want := `SECTIONS
{
  .iram0.text :
  {
    _iram_start = ABSOLUTE(.);
    *libfreertos.a:tasks.*(.literal.xTaskGetTickCount .text.xTaskGetTickCount)
    *libfoo.a:(.literal .literal.* .text .text.*)

  } > iram0_0_seg

  .dram0.data :
  {
    *(.data .data.*)
  } > dram0_0_seg

  .flash.text :
  {
    _stext = .;
    _text_start = ABSOLUTE(.);

    *(EXCLUDE_FILE(*libfreertos.a:tasks.*) .iram1 EXCLUDE_FILE(*libfreertos.a:tasks.*) .iram1.*)
    *(EXCLUDE_FILE(*libfreertos.a:tasks.*) .literal EXCLUDE_FILE(*libfreertos.a:tasks.*) .text)
    *(.iram1 .iram1.*)
    *libfreertos.a:tasks.*(.literal .literal.* .text .text.*)
    *libfreertos.a:queue.*(.literal.xQueueSend .text.xQueueSend .literal.xQueueReceive .text.xQueueReceive)
    _iram_text_end = ABSOLUTE(.);
    *(.stub .gnu.warning .gnu.linkonce.literal.* .gnu.linkonce.t.*.literal .gnu.linkonce.t.*)
  } > default_code_seg
}`
	assert.Equal(t, want, strings.Join(out, "\n"))
}

func TestIncludeXtensaKeepsVectors(t *testing.T) {
	m := DefaultMarkerTable().Lookup("5.1", "esp32s3")
	assert.Empty(t, m.Skip)
	out, err := Include(lines(template), m, testTargets(t)[:1])
	require.NoError(t, err)
	assert.Contains(t, strings.Join(out, "\n"), "*libriscv.a:vectors")
}

func TestIncludeRodataAnchor(t *testing.T) {
	m := defaultMarkers()
	m.RodataAnchor = "*(.data .data.*)"
	out, err := Include(lines(template), m, testTargets(t)[:1])
	require.NoError(t, err)
	assert.Contains(t, strings.Join(out, "\n"),
		"    *libfreertos.a:tasks.*(.rodata .rodata.* .sdata2 .sdata2.* .srodata .srodata.*)\n    *(.data .data.*)")
}

func TestMissingMarkers(t *testing.T) {
	m := defaultMarkers()
	cases := []struct {
		name   string
		remove string
		dir    Direction
		marker string
	}{
		{"exclude open", ".iram0.text :", ToFlash, "iram_open"},
		{"exclude close", ".dram0.data :", ToFlash, "iram_close"},
		{"exclude rule", "*(.iram1 .iram1.*)", ToFlash, "iram_rule"},
		{"exclude flash", "*(.stub .gnu.warning", ToFlash, "flash_anchor"},
		{"include open", ".iram0.text :", ToIRAM, "iram_open"},
		{"include rule", "*(.iram1 .iram1.*)", ToIRAM, "iram_rule"},
		{"include end", "} > iram0_0_seg", ToIRAM, "iram_region_end"},
		{"include text start", "_text_start = ABSOLUTE(.);", ToIRAM, "text_start"},
		{"include flash", "*(.stub .gnu.warning", ToIRAM, "flash_anchor"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := lines(strings.ReplaceAll(template, tc.remove, "/* removed */"))
			_, err := Rewrite(in, m, nil, testTargets(t), tc.dir)
			require.ErrorIs(t, err, ErrMarkerNotFound)
			var me *MarkerError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, tc.marker, me.Marker)
		})
	}
}

func TestMarkerTableLookup(t *testing.T) {
	table, err := ParseMarkerTable([]byte(`
default:
  iram_open: ".iram0.text :"
  iram_close: ".dram0.data :"
  iram_region_end: "} > iram0_0_seg"
  iram_rule: "*(.iram1 .iram1.*)"
  flash_anchor: "(.stub .gnu.warning"
  text_start: " _text_start = ABSOLUTE(.);"
  skip: ["a"]
overrides:
  - idf_version: "5.0"
    target: "*"
    iram_region_end: "} > iram0_0_seg_v50"
  - idf_version: "5.0.1"
    target: esp32c3
    flash_anchor: "(.stub)"
  - idf_version: "*"
    target: esp32c3
    iram_region_end: "} > c3_seg"
    skip: []
`))
	require.NoError(t, err)

	m := table.Lookup("5.0.1", "esp32c3")
	assert.Equal(t, "} > iram0_0_seg_v50", m.IRAMRegionEnd, "version beats chip wildcard")
	assert.Equal(t, "(.stub)", m.FlashAnchor)
	assert.Empty(t, m.Skip)

	m = table.Lookup("v5.0.3", "esp32")
	assert.Equal(t, "} > iram0_0_seg_v50", m.IRAMRegionEnd)
	assert.Equal(t, "(.stub .gnu.warning", m.FlashAnchor)
	assert.Equal(t, []string{"a"}, m.Skip)

	m = table.Lookup("5.3", "esp32c3")
	assert.Equal(t, "} > c3_seg", m.IRAMRegionEnd)

	m = table.Lookup("5.10", "esp32")
	assert.Equal(t, "} > iram0_0_seg", m.IRAMRegionEnd, "no override matches 5.10")

	_, err = ParseMarkerTable([]byte("default:\n  iram_open: x\n"))
	require.ErrorIs(t, err, ErrInvalidMarkers)
}

func TestDefaultMarkerTable(t *testing.T) {
	m := DefaultMarkerTable().Lookup("", "esp32c6")
	assert.Equal(t, ".iram0.text :", m.IRAMOpen)
	assert.Equal(t, []string{"libriscv.a:interrupt", "libriscv.a:vectors"}, m.Skip)
	assert.True(t, m.IsIRAMRule("    *(EXCLUDE_FILE(*libfoo.a) .iram1 EXCLUDE_FILE(*libfoo.a) .iram1.*)"))

	assert.Equal(t, []string{"esp32", "esp32s2", "esp32s3"}, DefaultMarkerTable().Targets())
	require.NoError(t, DefaultMarkerDigest().Validate())
}

func TestBuildTargets(t *testing.T) {
	model := &symbols.Model{Libraries: []*symbols.Library{
		{Name: "libfreertos.a", Path: "/lib/libfreertos.a", Objects: []*symbols.Object{
			{Library: "libfreertos.a", Name: "tasks.c.obj", Functions: []symbols.Section{{Function: "vTaskDelay", Name: ".iram1.5"}}},
			{Library: "libfreertos.a", Name: "queue.c.obj", Functions: []symbols.Section{{Function: "gone"}}},
		}},
		{Name: "libfoo.a", Path: "/lib/libfoo.a", Objects: []*symbols.Object{
			{Library: "libfoo.a", Name: "*", Functions: []symbols.Section{{Function: "*", Name: textGroup, All: true}}},
		}},
		{Name: "libesp_ringbuf.a", Path: "/lib/libesp_ringbuf.a", Objects: []*symbols.Object{
			{Library: "libesp_ringbuf.a", Name: "ringbuf.c.obj", Functions: []symbols.Section{{Function: "f", Name: ".iram1.0"}}},
		}},
	}}
	f := ParseFilter(lines("*(EXCLUDE_FILE(*libesp_ringbuf.a) .iram1 EXCLUDE_FILE(*libesp_ringbuf.a) .iram1.*)"), defaultMarkers())

	targets, err := BuildTargets(context.Background(), newFake(), model, f, ToIRAM, nil)
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, "*libfreertos.a:tasks.*", targets[0].Desc)
	assert.Equal(t, []string{".iram1.6"}, targets[0].Remaining)
	assert.True(t, targets[1].Whole)
	assert.Equal(t, "*libfoo.a:", targets[1].Desc)

	model.Libraries[0].Objects[0].Name = "list.c.obj"
	_, err = BuildTargets(context.Background(), newFake(), model, f, ToFlash, nil)
	require.ErrorIs(t, err, ErrNoSections)
}

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func runOptions(t *testing.T, functions string) Options {
	t.Helper()
	dir := t.TempDir()
	return Options{
		Config:   Config{Target: "esp32c3", IDFVersion: "5.1"},
		Template: writeFixture(t, dir, "sections.ld.in", template),
		Output:   filepath.Join(dir, "out", "sections.ld"),
		Manifest: manifest.Files{
			Library:  writeFixture(t, dir, "library.csv", "library,path\nlibfreertos.a,/lib/libfreertos.a\n"),
			Object:   writeFixture(t, dir, "object.csv", "library,object,path\nlibfreertos.a,tasks.c.obj,/obj/tasks.c.obj\nlibfreertos.a,queue.c.obj,/obj/queue.c.obj\n"),
			Function: writeFixture(t, dir, "function.csv", functions),
		},
		SDKConfig: writeFixture(t, dir, "sdkconfig", "CONFIG_FREERTOS_PLACE_FUNCTIONS_INTO_FLASH=y\n"),
		Runner:    newFake(),
	}
}

func TestRunEmptyManifestIsNoop(t *testing.T) {
	for _, dir := range []Direction{ToFlash, ToIRAM} {
		opts := runOptions(t, "library,object,function,option\n")
		opts.Direction = dir
		res, err := Run(context.Background(), opts)
		require.NoError(t, err)
		assert.True(t, res.Unchanged)

		got, err := os.ReadFile(opts.Output)
		require.NoError(t, err)
		assert.Equal(t, template, string(got))
	}
}

func TestRunUnmetOptionIsNoop(t *testing.T) {
	opts := runOptions(t, "libfreertos.a,tasks.c.obj,vTaskDelay,CONFIG_UNSET_OPTION\n")
	res, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, res.Unchanged)
}

func TestRunMissingMarkersFails(t *testing.T) {
	opts := runOptions(t, "")
	require.NoError(t, os.WriteFile(opts.Template, []byte("SECTIONS\n{\n}\n"), 0o644))
	_, err := Run(context.Background(), opts)
	require.ErrorIs(t, err, ErrMarkerNotFound)
	_, statErr := os.Stat(opts.Output)
	assert.True(t, os.IsNotExist(statErr), "no output on failure")
}

func TestRunToFlash(t *testing.T) {
	opts := runOptions(t, "libfreertos.a,tasks.c.obj,vTaskDelay,FREERTOS_PLACE_FUNCTIONS_INTO_FLASH\n"+
		"libfreertos.a,queue.c.obj,xQueueSend,\n")
	res, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, res.Targets, 2)

	got, err := os.ReadFile(opts.Output)
	require.NoError(t, err)
	assert.Contains(t, string(got), "    *libfreertos.a:tasks.*(.iram1.5)\n")
	assert.True(t, strings.HasSuffix(string(got), "}\n"))
}

func TestNewTargetGroupPatterns(t *testing.T) {
	db := archiveDB(t)

	iram := newTarget("libfreertos.a", "tasks.c.obj", db.ObjectSections("tasks.c.obj"), []string{".iram1", ".iram1.*"})
	assert.Equal(t, []string{".iram1.5", ".iram1.6"}, iram.Sections)
	assert.Empty(t, iram.Remaining)
	assert.Equal(t, []string{".iram1", ".iram1.*", ".iram1.5", ".iram1.6"}, iram.moved())

	text := newTarget("libfreertos.a", "tasks.c.obj", db.ObjectSections("tasks.c.obj"), strings.Fields(textGroup))
	assert.Equal(t, []string{".iram1.5", ".iram1.6"}, text.Remaining)

	queue := newTarget("libfreertos.a", "queue.c.obj", db.ObjectSections("queue.c.obj"), strings.Fields(textGroup))
	assert.Empty(t, queue.Remaining)
}

// iramBlock returns the text between the IRAM section open and its region end.
func iramBlock(t *testing.T, script string) string {
	t.Helper()
	start := strings.Index(script, ".iram0.text :")
	require.GreaterOrEqual(t, start, 0)
	end := strings.Index(script[start:], "} > iram0_0_seg")
	require.GreaterOrEqual(t, end, 0)
	return script[start : start+end]
}

func TestRunToFlashGroups(t *testing.T) {
	tests := []struct {
		name      string
		functions string
		iram      []string
		notIRAM   []string
		flash     []string
	}{
		{
			name:      "iram group",
			functions: "libfreertos.a,tasks.c.obj,.iram1.*,\n",
			iram:      []string{"*(EXCLUDE_FILE(*libfreertos.a:tasks.*) .iram1.*) *(EXCLUDE_FILE(*libfreertos.a:tasks.*) .iram1)"},
			notIRAM:   []string{".iram1.5", ".iram1.6", "*libfreertos.a:tasks.*("},
			flash:     []string{"    *libfreertos.a:tasks.*(.iram1 .iram1.*)\n"},
		},
		{
			name:      "text group",
			functions: "libfreertos.a,tasks.c.obj,.text.*,\n",
			iram:      []string{"    *libfreertos.a:tasks.*(.iram1.5 .iram1.6)\n"},
			notIRAM:   []string{"xTaskGetTickCount", "*libfreertos.a:tasks.*(.literal"},
			flash:     []string{"    *libfreertos.a:tasks.*(.literal .literal.* .text .text.*)\n"},
		},
		{
			name:      "whole object",
			functions: "libfreertos.a,queue.c.obj,*,\n",
			notIRAM:   []string{"xQueueSend", "xQueueReceive", "*libfreertos.a:queue.*"},
			flash:     []string{"    *libfreertos.a:queue.*(.literal .literal.* .text .text.*)\n"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := runOptions(t, tc.functions)
			res, err := Run(context.Background(), opts)
			require.NoError(t, err)
			require.Len(t, res.Targets, 1)
			assert.False(t, res.Unchanged)

			out, err := os.ReadFile(opts.Output)
			require.NoError(t, err)
			got := string(out)
			block := iramBlock(t, got)
			for _, want := range tc.iram {
				assert.Contains(t, block, want)
			}
			for _, gone := range tc.notIRAM {
				assert.NotContains(t, block, gone)
			}
			for _, want := range tc.flash {
				assert.Contains(t, got[strings.Index(got, "} > iram0_0_seg"):], want)
			}
			assert.Contains(t, block, "*libriscv.a:vectors.*(.literal .literal.* .text .text.*)")
		})
	}
}

func TestRunStrictMissingFunction(t *testing.T) {
	opts := runOptions(t, "libfreertos.a,tasks.c.obj,vTaskMissing,\n")
	_, err := Run(context.Background(), opts)
	require.ErrorIs(t, err, symbols.ErrSymbolNotFound)

	opts.Tolerant = true
	res, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, res.Unchanged)
}

func TestRunMissingInputs(t *testing.T) {
	opts := runOptions(t, "")
	opts.Manifest.Object = ""
	_, err := Run(context.Background(), opts)
	require.ErrorIs(t, err, ErrMissingInput)

	opts = runOptions(t, "")
	opts.Manifest.Library = filepath.Join(t.TempDir(), "nope.csv")
	_, err = Run(context.Background(), opts)
	require.Error(t, err)
}
