package assetblob

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Blob is a decoded asset blob. Entry data slices alias the blob bytes.
type Blob struct {
	Data    []byte
	Header  Header
	entries []Entry
	opts    Options
	mmapped bool
}

// Open maps a blob read-only and validates it.
// If mmap is unavailable, it falls back to ReadAt-based loading.
// The returned blob must be closed to release any mapping.
func Open(path string, opts Options) (*Blob, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size64 := stat.Size()
	if size64 < int64(opts.HeaderSize()) || size64 > int64(int(^uint(0)>>1)) {
		return nil, ErrCorruptBlob
	}
	size := int(size64)

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		b, parseErr := decode(data, opts, true)
		if parseErr != nil {
			_ = unix.Munmap(data)
			return nil, parseErr
		}
		return b, nil
	}

	return OpenReaderAt(f, size64, opts)
}

// OpenReaderAt loads and validates a blob from a random-access reader without mmap.
func OpenReaderAt(r io.ReaderAt, size int64, opts Options) (*Blob, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if size < 0 || size > int64(int(^uint(0)>>1)) {
		return nil, ErrCorruptBlob
	}
	data := make([]byte, size)
	if _, err := r.ReadAt(data, 0); err != nil && err != io.EOF {
		return nil, err
	}
	return decode(data, opts, false)
}

// Decode validates an in-memory blob. The returned Blob aliases data.
func Decode(data []byte, opts Options) (*Blob, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return decode(data, opts, false)
}

func decode(data []byte, opts Options, mmapped bool) (*Blob, error) {
	opts = opts.withDefaults()
	hdrSize := opts.HeaderSize()
	hdr, ok := decodeHeader(data, opts)
	if !ok {
		return nil, ErrCorruptBlob
	}

	body := data[hdrSize:]
	if opts.Version == V2 && uint64(hdr.Length) != uint64(len(body)) {
		return nil, fmt.Errorf("%w: length field %d, have %d bytes", ErrCorruptBlob, hdr.Length, len(body))
	}

	tableSize := uint64(hdr.Count) * uint64(opts.EntrySize())
	if tableSize > uint64(len(body)) {
		return nil, fmt.Errorf("%w: %d entries do not fit in %d bytes", ErrCorruptBlob, hdr.Count, len(body))
	}
	if sum := Checksum(body); sum != hdr.Checksum {
		return nil, fmt.Errorf("%w: stored %#04x, computed %#04x", ErrChecksumMismatch, hdr.Checksum, sum)
	}

	dataLen := uint64(len(body)) - tableSize
	entries := make([]Entry, hdr.Count)
	for i := range entries {
		start := i * opts.EntrySize()
		e, ok := decodeEntry(body[start:start+opts.EntrySize()], opts)
		if !ok {
			return nil, ErrCorruptBlob
		}
		end := uint64(e.Offset) + uint64(e.Size)
		if end > dataLen {
			return nil, fmt.Errorf("%w: entry %d (%s) out of bounds", ErrCorruptBlob, i, e.Name)
		}
		entries[i] = e
	}

	return &Blob{
		Data:    data,
		Header:  hdr,
		entries: entries,
		opts:    opts,
		mmapped: mmapped,
	}, nil
}

// Close releases any mmap backing.
func (b *Blob) Close() error {
	if b == nil || b.Data == nil {
		return nil
	}
	var err error
	if b.mmapped {
		err = unix.Munmap(b.Data)
	}
	b.Data = nil
	b.entries = nil
	b.mmapped = false
	return err
}

// Len returns the number of directory entries.
func (b *Blob) Len() int { return len(b.entries) }

// Entries returns a copy of the directory table in table order.
func (b *Blob) Entries() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Entry returns the i-th directory entry.
func (b *Blob) Entry(i int) Entry { return b.entries[i] }

// AssetData returns a zero-copy slice of the i-th asset payload.
// The caller must not retain it after Close.
func (b *Blob) AssetData(i int) []byte {
	if b == nil || b.Data == nil || i < 0 || i >= len(b.entries) {
		return nil
	}
	base := b.opts.HeaderSize() + len(b.entries)*b.opts.EntrySize()
	e := b.entries[i]
	start := base + int(e.Offset)
	return b.Data[start : start+int(e.Size)]
}

// Find returns the index of the entry with the given stored name.
func (b *Blob) Find(name string) (int, error) {
	for i := range b.entries {
		if b.entries[i].Name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrAssetNotFound, name)
}

// TableSize is the size in bytes of the directory table.
func (b *Blob) TableSize() int { return len(b.entries) * b.opts.EntrySize() }
