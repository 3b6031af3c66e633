// Package splitimg encodes images into the strip-based streaming containers
// read by the firmware image decoders.
//
// A container is a fixed header followed by independently decodable strips:
//
//	magic:[7]byte 0x00 version:[6]byte
//	width:u16 height:u16 strips:u16 strip_height:u16
//	strips x length:u16
//	payload
//
// The NUL after the 7-byte magic puts width at byte 14, which is where the
// packer and the firmware read dimensions without decoding the image.
package splitimg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

type Codec uint8

const (
	SJPG Codec = iota + 1
	SPNG
	SQOI
	// QOI is the direct single-frame variant: the output is a bare QOI
	// stream without a container header.
	QOI
)

const (
	MagicLen    = 7
	Version     = "V1.00\x00"
	WidthOffset = 14
	// HeaderSize is the fixed part of the header, before the strip table.
	HeaderSize = MagicLen + 1 + len(Version) + 8
)

var (
	ErrUnknownCodec = errors.New("splitimg: unknown codec")
	ErrNotContainer = errors.New("splitimg: not a split container")
	ErrCorrupt      = errors.New("splitimg: corrupt container")
	ErrTooLarge     = errors.New("splitimg: field exceeds 16 bits")
)

var codecs = []struct {
	codec Codec
	name  string
	magic string
	ext   string
}{
	{SJPG, "sjpg", "_SJPG__", ".sjpg"},
	{SPNG, "spng", "_SPNG__", ".spng"},
	{SQOI, "sqoi", "_SQOI__", ".sqoi"},
	{QOI, "qoi", "", ".qoi"},
}

func (c Codec) String() string {
	for _, d := range codecs {
		if d.codec == c {
			return d.name
		}
	}
	return fmt.Sprintf("codec(%d)", uint8(c))
}

// Magic returns the 7-byte container tag, or "" for QOI.
func (c Codec) Magic() string {
	for _, d := range codecs {
		if d.codec == c {
			return d.magic
		}
	}
	return ""
}

// Ext returns the file extension used for the codec's output, with the dot.
func (c Codec) Ext() string {
	for _, d := range codecs {
		if d.codec == c {
			return d.ext
		}
	}
	return ""
}

// Split reports whether the codec produces a container with a header.
func (c Codec) Split() bool { return c == SJPG || c == SPNG || c == SQOI }

// CodecNames lists the names ParseCodec accepts.
func CodecNames() []string {
	names := make([]string, len(codecs))
	for i, d := range codecs {
		names[i] = d.name
	}
	return names
}

// ParseCodec accepts the codec name with or without a leading dot.
func ParseCodec(s string) (Codec, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")
	for _, d := range codecs {
		if d.name == s {
			return d.codec, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCodec, s)
}

// Header is the decoded container header.
type Header struct {
	Codec        Codec
	Version      string
	Width        uint16
	Height       uint16
	Strips       uint16
	StripHeight  uint16
	StripLengths []uint16
}

// Size is the encoded header size including the strip table.
func (h *Header) Size() int { return HeaderSize + 2*len(h.StripLengths) }

// PayloadSize is the sum of all strip lengths.
func (h *Header) PayloadSize() int {
	n := 0
	for _, l := range h.StripLengths {
		n += int(l)
	}
	return n
}

func encodeHeader(h *Header) []byte {
	out := make([]byte, h.Size())
	copy(out[0:MagicLen], h.Codec.Magic())
	out[MagicLen] = 0
	copy(out[MagicLen+1:MagicLen+1+len(Version)], Version)
	p := out[WidthOffset:]
	binary.LittleEndian.PutUint16(p[0:2], h.Width)
	binary.LittleEndian.PutUint16(p[2:4], h.Height)
	binary.LittleEndian.PutUint16(p[4:6], h.Strips)
	binary.LittleEndian.PutUint16(p[6:8], h.StripHeight)
	for i, l := range h.StripLengths {
		binary.LittleEndian.PutUint16(out[HeaderSize+2*i:], l)
	}
	return out
}

// CodecOf returns the split codec whose magic starts data.
func CodecOf(data []byte) (Codec, bool) {
	if len(data) < MagicLen {
		return 0, false
	}
	for _, d := range codecs {
		if d.magic != "" && string(data[:MagicLen]) == d.magic {
			return d.codec, true
		}
	}
	return 0, false
}

// Dimensions reads width and height from a container header without
// decoding any strip.
func Dimensions(data []byte) (width, height uint16, ok bool) {
	if _, isSplit := CodecOf(data); !isSplit || len(data) < WidthOffset+4 {
		return 0, 0, false
	}
	return binary.LittleEndian.Uint16(data[WidthOffset:]), binary.LittleEndian.Uint16(data[WidthOffset+2:]), true
}

// ParseHeader decodes and validates a container header.
func ParseHeader(data []byte) (*Header, error) {
	codec, ok := CodecOf(data)
	if !ok {
		return nil, ErrNotContainer
	}
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d byte header", ErrCorrupt, len(data))
	}
	p := data[WidthOffset:]
	h := &Header{
		Codec:       codec,
		Version:     strings.TrimRight(string(data[MagicLen+1:WidthOffset]), "\x00"),
		Width:       binary.LittleEndian.Uint16(p[0:2]),
		Height:      binary.LittleEndian.Uint16(p[2:4]),
		Strips:      binary.LittleEndian.Uint16(p[4:6]),
		StripHeight: binary.LittleEndian.Uint16(p[6:8]),
	}
	if len(data) < HeaderSize+2*int(h.Strips) {
		return nil, fmt.Errorf("%w: strip table truncated", ErrCorrupt)
	}
	h.StripLengths = make([]uint16, h.Strips)
	for i := range h.StripLengths {
		h.StripLengths[i] = binary.LittleEndian.Uint16(data[HeaderSize+2*i:])
	}
	return h, nil
}

// Container is a decoded container with its strips split out.
type Container struct {
	Header *Header
	Strips [][]byte
}

// Decode parses a container and slices its payload into strips. The strips
// alias data.
func Decode(data []byte) (*Container, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	payload := data[h.Size():]
	if h.PayloadSize() != len(payload) {
		return nil, fmt.Errorf("%w: strip lengths sum to %d, payload is %d bytes", ErrCorrupt, h.PayloadSize(), len(payload))
	}
	strips := make([][]byte, len(h.StripLengths))
	off := 0
	for i, l := range h.StripLengths {
		strips[i] = payload[off : off+int(l)]
		off += int(l)
	}
	return &Container{Header: h, Strips: strips}, nil
}
