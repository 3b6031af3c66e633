package assetblob

import (
	"errors"
	"fmt"
	"math"
)

// Asset is one input to Encode. Name is stored as given, truncated to the
// table's name width.
type Asset struct {
	Name   string
	Data   []byte
	Width  uint32
	Height uint32
}

// Encoded is the result of Encode.
type Encoded struct {
	Bytes   []byte
	Header  Header
	Entries []Entry
	// Truncated lists the original names that did not fit the name field.
	Truncated []string
}

// Encode lays out assets in the given order. Callers own the ordering; the
// packer sorts by extension and base name before calling.
func Encode(assets []Asset, opts Options) (*Encoded, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	if uint64(len(assets)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d assets", ErrFieldOverflow, len(assets))
	}

	tableSize := len(assets) * opts.EntrySize()
	dataSize := 0
	for i := range assets {
		dataSize += len(assets[i].Data)
	}
	combined := uint64(tableSize) + uint64(dataSize)
	if combined > math.MaxUint32 {
		return nil, fmt.Errorf("%w: table and data are %d bytes", ErrFieldOverflow, combined)
	}

	hdrSize := opts.HeaderSize()
	out := make([]byte, hdrSize+int(combined))
	table := out[hdrSize : hdrSize+tableSize]
	data := out[hdrSize+tableSize:]

	enc := &Encoded{Entries: make([]Entry, 0, len(assets))}
	seen := make(map[string]string, len(assets))
	var offset uint32
	for i := range assets {
		a := &assets[i]
		name, truncated := FitName(a.Name, opts.NameLength)
		if truncated {
			enc.Truncated = append(enc.Truncated, a.Name)
		}
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w: %s and %s are both stored as %q", ErrDuplicateName, prev, a.Name, name)
		}
		seen[name] = a.Name
		e := Entry{
			Name:   name,
			Size:   uint32(len(a.Data)),
			Offset: offset,
			Width:  a.Width,
			Height: a.Height,
		}
		rec := table[i*opts.EntrySize() : (i+1)*opts.EntrySize()]
		if !encodeEntry(rec, e, opts) {
			return nil, fmt.Errorf("%w: %s is %dx%d, too large for %d byte dimensions",
				ErrFieldOverflow, a.Name, a.Width, a.Height, opts.DimensionBytes)
		}
		copy(data[offset:], a.Data)
		offset += e.Size
		enc.Entries = append(enc.Entries, e)
	}

	enc.Header = Header{
		Count:    uint32(len(assets)),
		Checksum: Checksum(out[hdrSize:]),
		Length:   uint32(combined),
	}
	if !encodeHeader(out[:hdrSize], enc.Header, opts) {
		return nil, errors.New("assetblob: encode header failed")
	}
	if opts.Version == V1 {
		enc.Header.Length = 0
	}
	enc.Bytes = out
	return enc, nil
}
