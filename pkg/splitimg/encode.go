package splitimg

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"

	"github.com/fwforge/fwtools/internal/qoi"
)

// DefaultJPEGQuality matches the quality the firmware decoders are tuned for.
const DefaultJPEGQuality = 90

// Options controls how an image is cut and encoded.
type Options struct {
	// StripHeight is the height of each strip in pixels. 0 means a single
	// strip covering the whole image.
	StripHeight int
	// JPEGQuality is used by SJPG, 1..100. 0 selects DefaultJPEGQuality.
	JPEGQuality int
}

// StripCount returns how many strips an image of the given height is cut
// into.
func StripCount(height, stripHeight int) int {
	if stripHeight <= 0 || height <= 0 {
		return 1
	}
	return (height + stripHeight - 1) / stripHeight
}

// Encode cuts img into horizontal strips, encodes each with the codec and
// returns the container bytes. For QOI the result is a bare QOI stream.
func Encode(img image.Image, codec Codec, opts Options) ([]byte, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > 0xFFFF || h > 0xFFFF {
		return nil, fmt.Errorf("%w: image is %dx%d", ErrTooLarge, w, h)
	}
	if opts.StripHeight < 0 || opts.StripHeight > 0xFFFF {
		return nil, fmt.Errorf("%w: strip height %d", ErrTooLarge, opts.StripHeight)
	}

	if codec == QOI {
		var buf bytes.Buffer
		if err := qoi.Encode(&buf, img); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	if !codec.Split() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, uint8(codec))
	}

	stripHeight := opts.StripHeight
	if stripHeight == 0 {
		stripHeight = h
	}
	n := StripCount(h, opts.StripHeight)
	if n > 0xFFFF {
		return nil, fmt.Errorf("%w: %d strips", ErrTooLarge, n)
	}

	hdr := &Header{
		Codec:        codec,
		Version:      Version,
		Width:        uint16(w),
		Height:       uint16(h),
		Strips:       uint16(n),
		StripHeight:  uint16(stripHeight),
		StripLengths: make([]uint16, n),
	}

	var payload bytes.Buffer
	for i := range n {
		y0 := b.Min.Y + i*stripHeight
		y1 := min(y0+stripHeight, b.Max.Y)
		strip := crop(img, image.Rect(b.Min.X, y0, b.Max.X, y1))

		before := payload.Len()
		if err := encodeStrip(&payload, strip, codec, opts.JPEGQuality); err != nil {
			return nil, fmt.Errorf("splitimg: strip %d: %w", i, err)
		}
		size := payload.Len() - before
		if size > 0xFFFF {
			return nil, fmt.Errorf("%w: strip %d is %d bytes, use a smaller split height", ErrTooLarge, i, size)
		}
		hdr.StripLengths[i] = uint16(size)
	}

	out := encodeHeader(hdr)
	return append(out, payload.Bytes()...), nil
}

func encodeStrip(buf *bytes.Buffer, img image.Image, codec Codec, quality int) error {
	switch codec {
	case SJPG:
		if quality <= 0 {
			quality = DefaultJPEGQuality
		}
		return jpeg.Encode(buf, img, &jpeg.Options{Quality: quality})
	case SPNG:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		return enc.Encode(buf, img)
	case SQOI:
		return qoi.Encode(buf, img)
	}
	return ErrUnknownCodec
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

func crop(img image.Image, r image.Rectangle) image.Image {
	if s, ok := img.(subImager); ok {
		return s.SubImage(r)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}
