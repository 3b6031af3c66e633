package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	printVersion(&buf)
	out := buf.String()

	for _, want := range []string{
		"mmapassets  ",
		"blob:       v2, 32 byte names, 2 byte dimensions\n",
		"codecs:     sjpg spng sqoi qoi pjpg\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got: %s", want, out)
		}
	}
}
