// Package pjpg converts RGBA images to the PJPG container: a baseline RGB
// JPEG followed by a grayscale JPEG of the alpha channel.
//
//	magic:[7]byte version:u8 width:u16 height:u16
//	rgb_len:u32 alpha_len:u32 pad:[2]byte
//	rgb jpeg, alpha jpeg
//
// All integers are little-endian.
package pjpg

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	Magic         = "_PJPG__"
	FormatVersion = 1
	HeaderSize    = 22
	// WidthOffset is where width and height start, right after the version.
	WidthOffset = 8
	// Alignment is the block size the hardware decoder requires.
	Alignment = 16
)

var (
	ErrNotPJPG  = errors.New("pjpg: not a PJPG file")
	ErrCorrupt  = errors.New("pjpg: corrupt file")
	ErrTooLarge = errors.New("pjpg: image exceeds 65535 pixels")
)

type Header struct {
	Version  uint8
	Width    uint16
	Height   uint16
	RGBLen   uint32
	AlphaLen uint32
}

func (h Header) encode() []byte {
	out := make([]byte, HeaderSize)
	copy(out, Magic)
	out[7] = h.Version
	binary.LittleEndian.PutUint16(out[8:], h.Width)
	binary.LittleEndian.PutUint16(out[10:], h.Height)
	binary.LittleEndian.PutUint32(out[12:], h.RGBLen)
	binary.LittleEndian.PutUint32(out[16:], h.AlphaLen)
	return out
}

// IsPJPG reports whether data starts with the PJPG magic.
func IsPJPG(data []byte) bool {
	return len(data) >= len(Magic) && string(data[:len(Magic)]) == Magic
}

// Dimensions reads width and height from a PJPG header.
func Dimensions(data []byte) (width, height uint16, ok bool) {
	if !IsPJPG(data) || len(data) < WidthOffset+4 {
		return 0, 0, false
	}
	return binary.LittleEndian.Uint16(data[WidthOffset:]), binary.LittleEndian.Uint16(data[WidthOffset+2:]), true
}

// Split parses the header and returns the two JPEG streams. The slices
// alias data.
func Split(data []byte) (Header, []byte, []byte, error) {
	if !IsPJPG(data) {
		return Header{}, nil, nil, ErrNotPJPG
	}
	if len(data) < HeaderSize {
		return Header{}, nil, nil, fmt.Errorf("%w: %d byte header", ErrCorrupt, len(data))
	}
	h := Header{
		Version:  data[7],
		Width:    binary.LittleEndian.Uint16(data[8:]),
		Height:   binary.LittleEndian.Uint16(data[10:]),
		RGBLen:   binary.LittleEndian.Uint32(data[12:]),
		AlphaLen: binary.LittleEndian.Uint32(data[16:]),
	}
	body := data[HeaderSize:]
	if uint64(h.RGBLen)+uint64(h.AlphaLen) != uint64(len(body)) {
		return Header{}, nil, nil, fmt.Errorf("%w: lengths %d+%d, body is %d bytes", ErrCorrupt, h.RGBLen, h.AlphaLen, len(body))
	}
	return h, body[:h.RGBLen], body[h.RGBLen:], nil
}
