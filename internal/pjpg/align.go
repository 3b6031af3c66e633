package pjpg

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
)

type PadMode string

const (
	PadTransparent PadMode = "transparent"
	PadColor       PadMode = "color"
)

func ParsePadMode(s string) (PadMode, error) {
	switch PadMode(strings.ToLower(s)) {
	case "", PadTransparent:
		return PadTransparent, nil
	case PadColor:
		return PadColor, nil
	}
	return "", fmt.Errorf("pjpg: unknown pad mode %q", s)
}

// AlignedSize rounds both dimensions up to a multiple of Alignment.
func AlignedSize(w, h int) (int, int) {
	return (w + Alignment - 1) / Alignment * Alignment, (h + Alignment - 1) / Alignment * Alignment
}

// Aligned reports whether both dimensions are multiples of Alignment.
func Aligned(w, h int) bool {
	return w%Alignment == 0 && h%Alignment == 0
}

// Align returns img as NRGBA padded on the right and bottom up to the next
// 16 pixel boundary. padded is false when img was already aligned.
func Align(img image.Image, mode PadMode, fill color.NRGBA) (out *image.NRGBA, padded bool) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	aw, ah := AlignedSize(w, h)

	out = image.NewNRGBA(image.Rect(0, 0, aw, ah))
	if mode == PadColor {
		draw.Draw(out, out.Bounds(), image.NewUniform(fill), image.Point{}, draw.Src)
	}
	// Pixel copy keeps straight alpha exact; draw.Draw round-trips through
	// premultiplied colour.
	for y := range h {
		for x := range w {
			out.SetNRGBA(x, y, color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA))
		}
	}
	return out, aw != w || ah != h
}
