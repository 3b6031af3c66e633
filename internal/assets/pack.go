// Package assets packs a directory of encoded assets into the firmware blob
// and its generated C header, and runs the full conversion pipeline in front
// of the packer.
package assets

import (
	"cmp"
	"context"
	_ "crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/opencontainers/go-digest"

	"github.com/fwforge/fwtools/internal/atomicfile"
	"github.com/fwforge/fwtools/internal/logger"
	"github.com/fwforge/fwtools/pkg/assetblob"
)

// Source is one asset ready to be packed.
type Source struct {
	Name string
	Data []byte
}

// SortSources orders sources by (extension, base name). The order fixes
// offsets in the blob and the enum values in the header.
func SortSources(src []Source) {
	slices.SortStableFunc(src, func(a, b Source) int {
		ea, eb := filepath.Ext(a.Name), filepath.Ext(b.Name)
		if c := cmp.Compare(ea, eb); c != 0 {
			return c
		}
		return cmp.Compare(strings.TrimSuffix(a.Name, ea), strings.TrimSuffix(b.Name, eb))
	})
}

// Filter selects files by extension and doublestar globs matched against
// the slash-separated path relative to the asset directory.
type Filter struct {
	// Formats are lower-case extensions with the dot. Empty accepts all.
	Formats []string
	Include []string
	Exclude []string
}

func (f Filter) Validate() error {
	for _, p := range append(slices.Clone(f.Include), f.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("assets: invalid glob %q", p)
		}
	}
	return nil
}

// Match reports whether rel (slash-separated) passes the filter.
func (f Filter) Match(rel string) bool {
	if len(f.Formats) > 0 && !slices.Contains(f.Formats, strings.ToLower(filepath.Ext(rel))) {
		return false
	}
	if len(f.Include) > 0 && !matchAny(f.Include, rel) {
		return false
	}
	return !matchAny(f.Exclude, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// ReadDir loads the regular files directly inside dir that pass the
// filter. Any read error aborts.
func ReadDir(ctx context.Context, dir string, filter Filter) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}
	var out []Source
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.Type().IsRegular() || !filter.Match(e.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("assets: %w", err)
		}
		out = append(out, Source{Name: e.Name(), Data: data})
	}
	return out, nil
}

// walkDir lists regular files under root that pass the filter, as paths
// relative to root, in lexical order.
func walkDir(root string, filter Filter) ([]string, error) {
	var rels []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if filter.Match(filepath.ToSlash(rel)) {
			rels = append(rels, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}
	return rels, nil
}

type PackOptions struct {
	// BlobPath is where the blob is written. Empty skips writing.
	BlobPath string
	// HeaderPath is where the C header is written. Empty skips writing.
	HeaderPath string
	// Name is the partition name used in header identifiers.
	Name string
	Blob assetblob.Options
	// PartitionSize is the capacity in bytes. 0 disables the check.
	PartitionSize int64
	Logger        logger.Logger
}

// File describes one packed asset.
type File struct {
	Name      string
	Stored    string
	Size      uint32
	Offset    uint32
	Width     uint32
	Height    uint32
	Truncated bool
}

type PackResult struct {
	Files    []File
	Checksum uint32
	Size     int64
	Digest   digest.Digest
	Blob     []byte
	Header   []byte
}

// Pack reads every matching file in dir and packs it.
func Pack(ctx context.Context, dir string, filter Filter, opts PackOptions) (*PackResult, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	src, err := ReadDir(ctx, dir, filter)
	if err != nil {
		return nil, err
	}
	return PackSources(ctx, src, opts)
}

// PackSources sorts src, encodes the blob and header, checks the partition
// size and only then writes both outputs.
func PackSources(ctx context.Context, src []Source, opts PackOptions) (*PackResult, error) {
	log := logger.OrDiscard(opts.Logger)
	if len(src) == 0 {
		log.Warn("no assets, packing an empty blob")
	}
	if opts.Name == "" {
		opts.Name = "assets"
	}

	src = slices.Clone(src)
	SortSources(src)
	if err := checkNames(src, opts.Blob.NameLength); err != nil {
		return nil, err
	}

	in := make([]assetblob.Asset, len(src))
	names := make([]string, len(src))
	for i, s := range src {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w, h := Dimensions(s.Data)
		in[i] = assetblob.Asset{Name: s.Name, Data: s.Data, Width: w, Height: h}
		names[i] = s.Name
		log.Debug("asset", "name", s.Name, "size", len(s.Data), "width", w, "height", h)
	}

	enc, err := assetblob.Encode(in, opts.Blob)
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}
	for _, n := range enc.Truncated {
		log.Warn("asset name truncated", "name", n, "max", opts.Blob.NameLength)
	}

	size := int64(len(enc.Bytes))
	if opts.PartitionSize > 0 && size > opts.PartitionSize {
		return nil, newPartitionError(size, opts.PartitionSize)
	}

	res := &PackResult{
		Files:    make([]File, len(enc.Entries)),
		Checksum: enc.Header.Checksum,
		Size:     size,
		Digest:   digest.FromBytes(enc.Bytes),
		Blob:     enc.Bytes,
		Header:   GenerateHeader(opts.Name, names, enc.Header.Checksum),
	}
	for i, e := range enc.Entries {
		res.Files[i] = File{
			Name:      names[i],
			Stored:    e.Name,
			Size:      e.Size,
			Offset:    e.Offset,
			Width:     e.Width,
			Height:    e.Height,
			Truncated: e.Name != names[i],
		}
	}

	if opts.BlobPath != "" {
		if err := atomicfile.WriteFile(opts.BlobPath, res.Blob, 0o644); err != nil {
			return nil, fmt.Errorf("assets: write blob: %w", err)
		}
	}
	if opts.HeaderPath != "" {
		if err := atomicfile.WriteFile(opts.HeaderPath, res.Header, 0o644); err != nil {
			return nil, fmt.Errorf("assets: write header: %w", err)
		}
	}

	log.Info("packed assets",
		"files", len(res.Files),
		"size", res.Size,
		"checksum", fmt.Sprintf("0x%04X", res.Checksum),
		"digest", res.Digest.String())
	if opts.PartitionSize > 0 {
		log.Info("partition usage", "used", size, "capacity", opts.PartitionSize,
			"percent", fmt.Sprintf("%.1f", float64(size)*100/float64(opts.PartitionSize)))
	}
	return res, nil
}

// checkNames rejects sources that would share a table name once truncated
// to nameLength, or a header identifier.
func checkNames(src []Source, nameLength int) error {
	if nameLength == 0 {
		nameLength = assetblob.DefaultNameLength
	}
	stored := make(map[string]string, len(src))
	idents := make(map[string]string, len(src))
	for _, s := range src {
		name, _ := assetblob.FitName(s.Name, nameLength)
		if prev, ok := stored[name]; ok {
			return fmt.Errorf("%w: %s and %s are both stored as %q", ErrNameCollision, prev, s.Name, name)
		}
		stored[name] = s.Name
		id := Identifier(s.Name)
		if prev, ok := idents[id]; ok {
			return fmt.Errorf("%w: %s and %s both become %s in the header", ErrNameCollision, prev, s.Name, id)
		}
		idents[id] = s.Name
	}
	return nil
}
