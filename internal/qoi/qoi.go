// Package qoi implements the "Quite OK Image" format (qoiformat.org) used for
// the QOI and split-QOI asset variants. Importing the package registers the
// format with the image package.
package qoi

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
)

const (
	magic      = "qoif"
	headerSize = 14

	opIndex = 0x00
	opDiff  = 0x40
	opLuma  = 0x80
	opRun   = 0xc0
	opRGB   = 0xfe
	opRGBA  = 0xff
	mask2   = 0xc0

	// Guards against absurd headers before allocating.
	maxPixels = 400_000_000
)

var (
	ErrInvalidHeader = errors.New("qoi: invalid header")
	ErrTruncated     = errors.New("qoi: truncated stream")
)

var padding = [8]byte{0, 0, 0, 0, 0, 0, 0, 1}

func init() {
	image.RegisterFormat("qoi", magic, Decode, DecodeConfig)
}

type pixel struct{ r, g, b, a uint8 }

func (p pixel) hash() int {
	return (int(p.r)*3 + int(p.g)*5 + int(p.b)*7 + int(p.a)*11) % 64
}

// Encode writes img as a 4-channel sRGB QOI stream.
func Encode(w io.Writer, img image.Image) error {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width <= 0 || height <= 0 {
		return fmt.Errorf("qoi: empty image %dx%d", width, height)
	}
	if width*height > maxPixels {
		return fmt.Errorf("qoi: image %dx%d too large", width, height)
	}

	bw := bufio.NewWriter(w)
	var hdr [headerSize]byte
	copy(hdr[0:4], magic)
	binary.BigEndian.PutUint32(hdr[4:8], uint32(width))
	binary.BigEndian.PutUint32(hdr[8:12], uint32(height))
	hdr[12] = 4
	hdr[13] = 0
	if _, err := bw.Write(hdr[:]); err != nil {
		return err
	}

	var index [64]pixel
	prev := pixel{0, 0, 0, 255}
	run := 0
	total := width * height
	n := 0

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			px := pixel{c.R, c.G, c.B, c.A}
			n++

			if px == prev {
				run++
				if run == 62 || n == total {
					_ = bw.WriteByte(opRun | byte(run-1))
					run = 0
				}
				continue
			}

			if run > 0 {
				_ = bw.WriteByte(opRun | byte(run-1))
				run = 0
			}

			h := px.hash()
			if index[h] == px {
				_ = bw.WriteByte(opIndex | byte(h))
				prev = px
				continue
			}
			index[h] = px

			if px.a != prev.a {
				_, _ = bw.Write([]byte{opRGBA, px.r, px.g, px.b, px.a})
				prev = px
				continue
			}

			vr := int8(px.r - prev.r)
			vg := int8(px.g - prev.g)
			vb := int8(px.b - prev.b)
			vgr := vr - vg
			vgb := vb - vg

			switch {
			case vr > -3 && vr < 2 && vg > -3 && vg < 2 && vb > -3 && vb < 2:
				_ = bw.WriteByte(opDiff | byte(vr+2)<<4 | byte(vg+2)<<2 | byte(vb+2))
			case vgr > -9 && vgr < 8 && vg > -33 && vg < 32 && vgb > -9 && vgb < 8:
				_, _ = bw.Write([]byte{opLuma | byte(vg+32), byte(vgr+8)<<4 | byte(vgb+8)})
			default:
				_, _ = bw.Write([]byte{opRGB, px.r, px.g, px.b})
			}
			prev = px
		}
	}

	if _, err := bw.Write(padding[:]); err != nil {
		return err
	}
	return bw.Flush()
}

func readHeader(r io.Reader) (image.Config, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return image.Config{}, ErrInvalidHeader
	}
	if string(hdr[0:4]) != magic {
		return image.Config{}, ErrInvalidHeader
	}
	w := binary.BigEndian.Uint32(hdr[4:8])
	h := binary.BigEndian.Uint32(hdr[8:12])
	if w == 0 || h == 0 || uint64(w)*uint64(h) > maxPixels {
		return image.Config{}, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidHeader, w, h)
	}
	if hdr[12] != 3 && hdr[12] != 4 {
		return image.Config{}, fmt.Errorf("%w: %d channels", ErrInvalidHeader, hdr[12])
	}
	return image.Config{ColorModel: color.NRGBAModel, Width: int(w), Height: int(h)}, nil
}

// DecodeConfig returns the dimensions stored in a QOI header.
func DecodeConfig(r io.Reader) (image.Config, error) {
	return readHeader(r)
}

// Decode decodes a QOI stream into an *image.NRGBA.
func Decode(r io.Reader) (image.Image, error) {
	br := bufio.NewReader(r)
	cfg, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))

	var index [64]pixel
	px := pixel{0, 0, 0, 255}
	run := 0
	read := func() (byte, error) {
		c, err := br.ReadByte()
		if err != nil {
			return 0, ErrTruncated
		}
		return c, nil
	}

	for i := 0; i < len(img.Pix); i += 4 {
		if run > 0 {
			run--
		} else {
			b1, err := read()
			if err != nil {
				return nil, err
			}
			switch {
			case b1 == opRGB:
				var rgb [3]byte
				if _, err := io.ReadFull(br, rgb[:]); err != nil {
					return nil, ErrTruncated
				}
				px.r, px.g, px.b = rgb[0], rgb[1], rgb[2]
			case b1 == opRGBA:
				var rgba [4]byte
				if _, err := io.ReadFull(br, rgba[:]); err != nil {
					return nil, ErrTruncated
				}
				px = pixel{rgba[0], rgba[1], rgba[2], rgba[3]}
			case b1&mask2 == opIndex:
				px = index[b1]
			case b1&mask2 == opDiff:
				px.r += (b1>>4)&0x03 - 2
				px.g += (b1>>2)&0x03 - 2
				px.b += b1&0x03 - 2
			case b1&mask2 == opLuma:
				b2, err := read()
				if err != nil {
					return nil, err
				}
				vg := (b1 & 0x3f) - 32
				px.r += vg - 8 + (b2>>4)&0x0f
				px.g += vg
				px.b += vg - 8 + b2&0x0f
			case b1&mask2 == opRun:
				run = int(b1 & 0x3f)
			}
			index[px.hash()] = px
		}
		img.Pix[i+0] = px.r
		img.Pix[i+1] = px.g
		img.Pix[i+2] = px.b
		img.Pix[i+3] = px.a
	}
	return img, nil
}
