package assetblob

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testAssets() []Asset {
	return []Asset{
		{Name: "logo.png", Data: []byte{0x89, 'P', 'N', 'G', 1, 2, 3}, Width: 64, Height: 32},
		{Name: "font.bin", Data: []byte("glyphs"), Width: 0, Height: 0},
		{Name: "bg.sjpg", Data: bytes.Repeat([]byte{0xAB}, 300), Width: 320, Height: 240},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	for _, opts := range []Options{
		{Version: V1, NameLength: 32, DimensionBytes: 2},
		{Version: V2, NameLength: 32, DimensionBytes: 2},
		{Version: V2, NameLength: 16, DimensionBytes: 4},
	} {
		assets := testAssets()
		enc, err := Encode(assets, opts)
		if err != nil {
			t.Fatalf("encode %+v: %v", opts, err)
		}

		b, err := Decode(enc.Bytes, opts)
		if err != nil {
			t.Fatalf("decode %+v: %v", opts, err)
		}
		if b.Len() != len(assets) {
			t.Fatalf("entry count: got %d want %d", b.Len(), len(assets))
		}

		var sizes int
		for i, a := range assets {
			e := b.Entry(i)
			if e.Name != a.Name || int(e.Size) != len(a.Data) || e.Width != a.Width || e.Height != a.Height {
				t.Fatalf("entry %d mismatch: got %+v want %s/%d/%dx%d", i, e, a.Name, len(a.Data), a.Width, a.Height)
			}
			if !bytes.Equal(b.AssetData(i), a.Data) {
				t.Fatalf("entry %d payload mismatch", i)
			}
			sizes += int(e.Size)
		}
		if sizes+b.TableSize() != len(enc.Bytes)-opts.HeaderSize() {
			t.Fatalf("sizes+table = %d, blob-header = %d", sizes+b.TableSize(), len(enc.Bytes)-opts.HeaderSize())
		}
	}
}

func TestOffsetsAreCumulative(t *testing.T) {
	t.Parallel()

	enc, err := Encode(testAssets(), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	var want uint32
	for i, e := range enc.Entries {
		if e.Offset != want {
			t.Fatalf("entry %d offset: got %d want %d", i, e.Offset, want)
		}
		want += e.Size
	}
}

func TestHeaderLayoutLittleEndian(t *testing.T) {
	t.Parallel()

	opts := Options{Version: V2, NameLength: 8, DimensionBytes: 2}
	enc, err := Encode([]Asset{{Name: "a.png", Data: []byte{1, 2, 3}, Width: 0x0102, Height: 0x0304}}, opts)
	if err != nil {
		t.Fatal(err)
	}
	raw := enc.Bytes

	if raw[0] != 1 || raw[1] != 0 || raw[2] != 0 || raw[3] != 0 {
		t.Fatalf("count is not little-endian u32: %x", raw[0:4])
	}
	// table(8+4+4+2+2) + data(3)
	if raw[8] != 23 || raw[9] != 0 {
		t.Fatalf("length field: %x", raw[8:12])
	}
	entry := raw[12:]
	if string(entry[:5]) != "a.png" || entry[5] != 0 || entry[7] != 0 {
		t.Fatalf("name field not NUL padded: %q", entry[:8])
	}
	if entry[8] != 3 || entry[12] != 0 {
		t.Fatalf("size/offset: %x", entry[8:16])
	}
	if entry[16] != 0x02 || entry[17] != 0x01 || entry[18] != 0x04 || entry[19] != 0x03 {
		t.Fatalf("dimensions are not little-endian u16: %x", entry[16:20])
	}

	var sum uint32
	for _, b := range raw[12:] {
		sum += uint32(b)
	}
	if got := uint32(raw[4]) | uint32(raw[5])<<8; got != sum&0xFFFF {
		t.Fatalf("checksum: got %#x want %#x", got, sum&0xFFFF)
	}
	if raw[6] != 0 || raw[7] != 0 {
		t.Fatalf("checksum upper bytes must be zero: %x", raw[4:8])
	}
}

func TestChecksumDetectsSingleByteChange(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	enc, err := Encode(testAssets(), opts)
	if err != nil {
		t.Fatal(err)
	}
	orig := Checksum(enc.Bytes[opts.HeaderSize():])

	for _, pos := range []int{opts.HeaderSize(), opts.HeaderSize() + 40, len(enc.Bytes) - 1} {
		mutated := bytes.Clone(enc.Bytes)
		mutated[pos] ^= 0x01
		if Checksum(mutated[opts.HeaderSize():]) == orig {
			t.Fatalf("checksum unchanged after flipping byte %d", pos)
		}
		if _, err := Decode(mutated, opts); !errors.Is(err, ErrChecksumMismatch) {
			t.Fatalf("decode of mutated blob: got %v want ErrChecksumMismatch", err)
		}
	}
}

func TestChecksumKnownValue(t *testing.T) {
	t.Parallel()

	p := bytes.Repeat([]byte{0xFF}, 300)
	// 300*255 = 76500 = 0x12AD4
	if got := Checksum(p); got != 0x2AD4 {
		t.Fatalf("checksum: got %#x want 0x2ad4", got)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	t.Parallel()

	a, err := Encode(testAssets(), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Encode(testAssets(), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Bytes, b.Bytes) {
		t.Fatal("two encodes of the same input differ")
	}
}

func TestEncodeTruncatesLongNames(t *testing.T) {
	t.Parallel()

	opts := Options{Version: V2, NameLength: 6}
	enc, err := Encode([]Asset{{Name: "very_long_name.png", Data: []byte{1}}}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(enc.Truncated) != 1 || enc.Truncated[0] != "very_long_name.png" {
		t.Fatalf("truncated list: %v", enc.Truncated)
	}
	b, err := Decode(enc.Bytes, opts)
	if err != nil {
		t.Fatal(err)
	}
	if b.Entry(0).Name != "very_l" {
		t.Fatalf("stored name: %q", b.Entry(0).Name)
	}
}

func TestEncodeRejectsDuplicateStoredNames(t *testing.T) {
	t.Parallel()

	opts := Options{NameLength: 8}
	_, err := Encode([]Asset{
		{Name: "background_day.png", Data: []byte{1}},
		{Name: "background_night.png", Data: []byte{2}},
	}, opts)
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("got %v want ErrDuplicateName", err)
	}
	if _, err := Encode([]Asset{{Name: "a.bin"}, {Name: "a.bin"}}, DefaultOptions()); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("exact duplicate: got %v want ErrDuplicateName", err)
	}
}

func TestEncodeEmpty(t *testing.T) {
	t.Parallel()

	for _, opts := range []Options{{Version: V1}, DefaultOptions()} {
		enc, err := Encode(nil, opts)
		if err != nil {
			t.Fatal(err)
		}
		if len(enc.Bytes) != opts.HeaderSize() {
			t.Fatalf("v%d: empty blob is %d bytes, want %d", opts.Version, len(enc.Bytes), opts.HeaderSize())
		}
		if enc.Header.Count != 0 || enc.Header.Checksum != 0 {
			t.Fatalf("v%d: header %+v", opts.Version, enc.Header)
		}
		b, err := Decode(enc.Bytes, opts)
		if err != nil {
			t.Fatal(err)
		}
		if b.Len() != 0 {
			t.Fatalf("v%d: decoded %d entries", opts.Version, b.Len())
		}
	}
}

func TestEncodeRejectsWideDimensions(t *testing.T) {
	t.Parallel()

	_, err := Encode([]Asset{{Name: "x", Width: 70000, Height: 1}}, Options{DimensionBytes: 2})
	if !errors.Is(err, ErrFieldOverflow) {
		t.Fatalf("got %v want ErrFieldOverflow", err)
	}
	if _, err := Encode([]Asset{{Name: "x", Width: 70000, Height: 1}}, Options{DimensionBytes: 4}); err != nil {
		t.Fatalf("u32 dimensions: %v", err)
	}
}

func TestInvalidOptions(t *testing.T) {
	t.Parallel()

	for _, o := range []Options{{Version: 3}, {DimensionBytes: 3}, {NameLength: -1}} {
		if _, err := Encode(nil, o); !errors.Is(err, ErrInvalidOptions) {
			t.Fatalf("%+v: got %v want ErrInvalidOptions", o, err)
		}
	}
}

func TestDecodeRejectsTruncatedBlob(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	enc, err := Encode(testAssets(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(enc.Bytes[:len(enc.Bytes)-10], opts); !errors.Is(err, ErrCorruptBlob) {
		t.Fatalf("got %v want ErrCorruptBlob", err)
	}
	if _, err := Decode(enc.Bytes[:4], opts); !errors.Is(err, ErrCorruptBlob) {
		t.Fatalf("short header: got %v want ErrCorruptBlob", err)
	}
}

func TestOpenMappedFile(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	enc, err := Encode(testAssets(), opts)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "assets.bin")
	if err := os.WriteFile(path, enc.Bytes, 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := Open(path, opts)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			t.Fatalf("close: %v", cerr)
		}
	}()

	i, err := b.Find("bg.sjpg")
	if err != nil {
		t.Fatal(err)
	}
	if e := b.Entry(i); e.Width != 320 || e.Height != 240 {
		t.Fatalf("bg.sjpg dimensions: %dx%d", e.Width, e.Height)
	}
	if _, err := b.Find("missing.png"); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("got %v want ErrAssetNotFound", err)
	}
}

func TestOpenReaderAt(t *testing.T) {
	t.Parallel()

	opts := Options{Version: V1}
	enc, err := Encode(testAssets(), opts)
	if err != nil {
		t.Fatal(err)
	}
	b, err := OpenReaderAt(bytes.NewReader(enc.Bytes), int64(len(enc.Bytes)), opts)
	if err != nil {
		t.Fatal(err)
	}
	if b.mmapped {
		t.Fatal("OpenReaderAt should not mmap")
	}
	if b.Header.Count != 3 || b.Header.Length != 0 {
		t.Fatalf("header: %+v", b.Header)
	}
}
