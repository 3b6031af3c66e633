// Package assetblob implements the memory-mappable asset blob consumed by
// firmware.
//
// A blob is a small header, a fixed-width directory table and the concatenated
// asset bytes:
//
//	count:u32 checksum:u32 [length:u32 (v2)]
//	N x { name:[NameLength]byte size:u32 offset:u32 width height }
//	data
//
// All integers are little-endian. width and height are u16 or u32 depending on
// Options.DimensionBytes. checksum is the byte sum of table and data, masked to
// 16 bits. offset is relative to the start of data.
package assetblob

import (
	"encoding/binary"
	"fmt"
)

type Version uint8

const (
	// V1 has no data length field.
	V1 Version = 1
	// V2 stores the length of table+data after the checksum.
	V2 Version = 2
)

const (
	DefaultNameLength     = 32
	DefaultDimensionBytes = 2

	checksumMask = 0xFFFF
)

// Options describe the layout of a blob. Encoder and decoder must agree on
// them; they are not stored in the blob.
type Options struct {
	Version        Version
	NameLength     int
	DimensionBytes int
}

// DefaultOptions is the v2 layout with 32 byte names and u16 dimensions.
func DefaultOptions() Options {
	return Options{Version: V2, NameLength: DefaultNameLength, DimensionBytes: DefaultDimensionBytes}
}

func (o Options) withDefaults() Options {
	if o.Version == 0 {
		o.Version = V2
	}
	if o.NameLength == 0 {
		o.NameLength = DefaultNameLength
	}
	if o.DimensionBytes == 0 {
		o.DimensionBytes = DefaultDimensionBytes
	}
	return o
}

// Validate reports whether the layout can be encoded.
func (o Options) Validate() error {
	o = o.withDefaults()
	if o.Version != V1 && o.Version != V2 {
		return fmt.Errorf("%w: version %d", ErrInvalidOptions, o.Version)
	}
	if o.NameLength < 1 || o.NameLength > 255 {
		return fmt.Errorf("%w: name length %d", ErrInvalidOptions, o.NameLength)
	}
	if o.DimensionBytes != 2 && o.DimensionBytes != 4 {
		return fmt.Errorf("%w: dimension bytes %d (want 2 or 4)", ErrInvalidOptions, o.DimensionBytes)
	}
	return nil
}

// HeaderSize is the number of bytes before the directory table.
func (o Options) HeaderSize() int {
	if o.withDefaults().Version == V1 {
		return 8
	}
	return 12
}

// EntrySize is the size of one directory table record.
func (o Options) EntrySize() int {
	o = o.withDefaults()
	return o.NameLength + 4 + 4 + 2*o.DimensionBytes
}

// Entry is one directory table record.
type Entry struct {
	Name   string
	Size   uint32
	Offset uint32
	Width  uint32
	Height uint32
}

// Header is the fixed prefix of a blob.
type Header struct {
	Count    uint32
	Checksum uint32
	// Length is only present in V2 blobs.
	Length uint32
}

// Checksum is the additive checksum stored in the header: the sum of all
// bytes masked to 16 bits.
func Checksum(p []byte) uint32 {
	var sum uint32
	for _, b := range p {
		sum += uint32(b)
	}
	return sum & checksumMask
}

// FitName returns name as stored in a table of the given width and whether it
// had to be truncated. Truncation keeps whole bytes; a name that exactly fills
// the field is stored without a NUL terminator.
func FitName(name string, n int) (string, bool) {
	if len(name) <= n {
		return name, false
	}
	return name[:n], true
}

func encodeHeader(dst []byte, h Header, o Options) bool {
	if len(dst) < o.HeaderSize() {
		return false
	}
	binary.LittleEndian.PutUint32(dst[0:4], h.Count)
	binary.LittleEndian.PutUint32(dst[4:8], h.Checksum)
	if o.withDefaults().Version == V2 {
		binary.LittleEndian.PutUint32(dst[8:12], h.Length)
	}
	return true
}

func decodeHeader(src []byte, o Options) (Header, bool) {
	if len(src) < o.HeaderSize() {
		return Header{}, false
	}
	h := Header{
		Count:    binary.LittleEndian.Uint32(src[0:4]),
		Checksum: binary.LittleEndian.Uint32(src[4:8]),
	}
	if o.withDefaults().Version == V2 {
		h.Length = binary.LittleEndian.Uint32(src[8:12])
	}
	return h, true
}

func encodeEntry(dst []byte, e Entry, o Options) bool {
	o = o.withDefaults()
	if len(dst) < o.EntrySize() {
		return false
	}
	name, _ := FitName(e.Name, o.NameLength)
	clear(dst[:o.NameLength])
	copy(dst[:o.NameLength], name)
	p := dst[o.NameLength:]
	binary.LittleEndian.PutUint32(p[0:4], e.Size)
	binary.LittleEndian.PutUint32(p[4:8], e.Offset)
	if o.DimensionBytes == 2 {
		if e.Width > 0xFFFF || e.Height > 0xFFFF {
			return false
		}
		binary.LittleEndian.PutUint16(p[8:10], uint16(e.Width))
		binary.LittleEndian.PutUint16(p[10:12], uint16(e.Height))
	} else {
		binary.LittleEndian.PutUint32(p[8:12], e.Width)
		binary.LittleEndian.PutUint32(p[12:16], e.Height)
	}
	return true
}

func decodeEntry(src []byte, o Options) (Entry, bool) {
	o = o.withDefaults()
	if len(src) < o.EntrySize() {
		return Entry{}, false
	}
	raw := src[:o.NameLength]
	n := 0
	for n < len(raw) && raw[n] != 0 {
		n++
	}
	p := src[o.NameLength:]
	e := Entry{
		Name:   string(raw[:n]),
		Size:   binary.LittleEndian.Uint32(p[0:4]),
		Offset: binary.LittleEndian.Uint32(p[4:8]),
	}
	if o.DimensionBytes == 2 {
		e.Width = uint32(binary.LittleEndian.Uint16(p[8:10]))
		e.Height = uint32(binary.LittleEndian.Uint16(p[10:12]))
	} else {
		e.Width = binary.LittleEndian.Uint32(p[8:12])
		e.Height = binary.LittleEndian.Uint32(p[12:16])
	}
	return e, true
}
