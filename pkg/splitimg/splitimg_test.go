package splitimg

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwforge/fwtools/internal/qoi"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 3), G: uint8(y * 5), B: uint8(x ^ y), A: 255})
		}
	}
	return img
}

func TestEncodeStripInvariants(t *testing.T) {
	tests := []struct {
		name        string
		codec       Codec
		height      int
		stripHeight int
		wantStrips  int
	}{
		{"png exact", SPNG, 64, 16, 4},
		{"png remainder", SPNG, 70, 16, 5},
		{"png single", SPNG, 40, 0, 1},
		{"jpeg", SJPG, 33, 8, 5},
		{"qoi", SQOI, 20, 7, 3},
		{"strip taller than image", SQOI, 10, 32, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := Encode(testImage(24, tc.height), tc.codec, Options{StripHeight: tc.stripHeight})
			require.NoError(t, err)

			c, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, tc.codec, c.Header.Codec)
			assert.Equal(t, "V1.00", c.Header.Version)
			assert.Equal(t, uint16(24), c.Header.Width)
			assert.Equal(t, uint16(tc.height), c.Header.Height)
			assert.Equal(t, tc.wantStrips, int(c.Header.Strips))
			assert.Len(t, c.Header.StripLengths, tc.wantStrips)
			assert.Equal(t, len(data)-c.Header.Size(), c.Header.PayloadSize())
		})
	}
}

func TestStripsDecodeIndependently(t *testing.T) {
	src := testImage(16, 20)
	data, err := Encode(src, SPNG, Options{StripHeight: 8})
	require.NoError(t, err)

	c, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, c.Strips, 3)

	heights := []int{8, 8, 4}
	for i, strip := range c.Strips {
		img, err := png.Decode(bytes.NewReader(strip))
		require.NoError(t, err)
		assert.Equal(t, 16, img.Bounds().Dx())
		assert.Equal(t, heights[i], img.Bounds().Dy())

		want := src.NRGBAAt(3, i*8+1)
		got := color.NRGBAModel.Convert(img.At(img.Bounds().Min.X+3, img.Bounds().Min.Y+1)).(color.NRGBA)
		assert.Equal(t, want, got, "strip %d", i)
	}
}

func TestSJPGStripsAreJPEG(t *testing.T) {
	data, err := Encode(testImage(32, 32), SJPG, Options{StripHeight: 16, JPEGQuality: 50})
	require.NoError(t, err)
	c, err := Decode(data)
	require.NoError(t, err)
	for _, strip := range c.Strips {
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(strip))
		require.NoError(t, err)
		assert.Equal(t, 16, cfg.Height)
	}
}

func TestHeaderLayout(t *testing.T) {
	data, err := Encode(testImage(300, 2), SQOI, Options{StripHeight: 1})
	require.NoError(t, err)

	assert.Equal(t, []byte("_SQOI__\x00V1.00\x00"), data[:WidthOffset])
	assert.Equal(t, []byte{0x2C, 0x01}, data[14:16])
	assert.Equal(t, []byte{0x02, 0x00}, data[16:18])
	assert.Equal(t, []byte{0x02, 0x00}, data[18:20])
	assert.Equal(t, []byte{0x01, 0x00}, data[20:22])

	w, h, ok := Dimensions(data)
	require.True(t, ok)
	assert.Equal(t, uint16(300), w)
	assert.Equal(t, uint16(2), h)
}

func TestQOIHasNoHeader(t *testing.T) {
	data, err := Encode(testImage(5, 5), QOI, Options{StripHeight: 2})
	require.NoError(t, err)
	assert.Equal(t, []byte("qoif"), data[:4])

	_, ok := CodecOf(data)
	assert.False(t, ok)
	_, err = Decode(data)
	assert.ErrorIs(t, err, ErrNotContainer)

	img, err := qoi.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 5, 5), img.Bounds())
}

func TestEncodeSubImageOrigin(t *testing.T) {
	src := testImage(20, 20)
	sub := src.SubImage(image.Rect(4, 4, 14, 12))
	data, err := Encode(sub, SPNG, Options{StripHeight: 4})
	require.NoError(t, err)
	c, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, uint16(10), c.Header.Width)
	assert.Equal(t, uint16(8), c.Header.Height)
	assert.Equal(t, 2, len(c.Strips))
}

func TestDecodeRejectsCorruptPayload(t *testing.T) {
	data, err := Encode(testImage(8, 8), SPNG, Options{StripHeight: 4})
	require.NoError(t, err)

	_, err = Decode(data[:len(data)-1])
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = Decode(data[:HeaderSize-1])
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestParseCodec(t *testing.T) {
	for in, want := range map[string]Codec{".sjpg": SJPG, "SPNG": SPNG, "sqoi": SQOI, ".qoi": QOI} {
		got, err := ParseCodec(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseCodec("webp")
	assert.ErrorIs(t, err, ErrUnknownCodec)
}

func TestStripCount(t *testing.T) {
	assert.Equal(t, 1, StripCount(100, 0))
	assert.Equal(t, 1, StripCount(100, 100))
	assert.Equal(t, 2, StripCount(101, 100))
	assert.Equal(t, 13, StripCount(100, 8))
}
