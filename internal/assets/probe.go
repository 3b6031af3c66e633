package assets

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "github.com/fwforge/fwtools/internal/qoi"
	"github.com/fwforge/fwtools/internal/pjpg"
	"github.com/fwforge/fwtools/pkg/splitimg"
)

// Dimensions returns the pixel size of an asset without decoding it. Split
// containers and PJPG files are read from their headers; other images go
// through the registered image decoders. Anything else is 0x0.
func Dimensions(data []byte) (width, height uint32) {
	if w, h, ok := splitimg.Dimensions(data); ok {
		return uint32(w), uint32(h)
	}
	if w, h, ok := pjpg.Dimensions(data); ok {
		return uint32(w), uint32(h)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width < 0 || cfg.Height < 0 {
		return 0, 0
	}
	return uint32(cfg.Width), uint32(cfg.Height)
}
