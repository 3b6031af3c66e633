// Package buildcfg loads the asset build configuration. JSON files use the
// key names of the build_config JSON emitted by the firmware build system;
// YAML files use the same keys.
package buildcfg

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/fwforge/fwtools/pkg/assetblob"
)

const (
	DefaultPartitionSize = "0x1000000"
	DefaultFormats       = ".png,.jpg"
	DefaultHeaderName    = "assets"
	DefaultJPEGQuality   = 90
	DefaultPJPGQuality   = 85
)

var ErrInvalid = errors.New("buildcfg: invalid configuration")

type Config struct {
	ProjectDir  string `json:"project_dir,omitempty" yaml:"project_dir,omitempty"`
	IncludePath string `json:"include_path" yaml:"include_path"`
	AssetsPath  string `json:"assets_path" yaml:"assets_path"`
	ImageFile   string `json:"image_file" yaml:"image_file"`
	// AssetsSize is the partition capacity as a hex (or decimal) string.
	AssetsSize    string `json:"assets_size" yaml:"assets_size"`
	SupportFormat string `json:"support_format" yaml:"support_format"`
	NameLength    Int    `json:"name_length" yaml:"name_length"`
	SplitHeight   Int    `json:"split_height" yaml:"split_height"`

	SupportSPNG Bool `json:"support_spng" yaml:"support_spng"`
	SupportSJPG Bool `json:"support_sjpg" yaml:"support_sjpg"`
	SupportQOI  Bool `json:"support_qoi" yaml:"support_qoi"`
	SupportSQOI Bool `json:"support_sqoi" yaml:"support_sqoi"`
	SupportPJPG Bool `json:"support_pjpg" yaml:"support_pjpg"`

	HeaderAssetName string `json:"header_asset_name" yaml:"header_asset_name"`

	JPEGQuality      Int   `json:"jpeg_quality,omitempty" yaml:"jpeg_quality,omitempty"`
	PJPGQuality      Int   `json:"pjpg_quality,omitempty" yaml:"pjpg_quality,omitempty"`
	PJPGAlphaQuality Int   `json:"pjpg_alpha_quality,omitempty" yaml:"pjpg_alpha_quality,omitempty"`
	ComplexityCheck  *Bool `json:"pjpg_complexity_check,omitempty" yaml:"pjpg_complexity_check,omitempty"`

	BlobVersion    Int `json:"blob_version,omitempty" yaml:"blob_version,omitempty"`
	DimensionBytes Int `json:"dimension_bytes,omitempty" yaml:"dimension_bytes,omitempty"`

	Include []string `json:"include,omitempty" yaml:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	Workers Int      `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// Default returns the values the standalone build uses when nothing is set.
func Default() Config {
	return Config{
		AssetsSize:       DefaultPartitionSize,
		SupportFormat:    DefaultFormats,
		NameLength:       assetblob.DefaultNameLength,
		HeaderAssetName:  DefaultHeaderName,
		JPEGQuality:      DefaultJPEGQuality,
		PJPGQuality:      DefaultPJPGQuality,
		PJPGAlphaQuality: DefaultPJPGQuality,
		BlobVersion:      Int(assetblob.V2),
		DimensionBytes:   assetblob.DefaultDimensionBytes,
	}
}

// Load reads path as JSON or YAML depending on its extension. Keys missing
// from the file keep their Default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("buildcfg: %w", err)
	}
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("buildcfg: parse %s: %w", path, err)
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// resolvePaths makes relative paths relative to the config file's project
// dir, or to the file's own directory.
func (c *Config) resolvePaths(dir string) {
	base := dir
	if c.ProjectDir != "" {
		base = c.ProjectDir
		if !filepath.IsAbs(base) {
			base = filepath.Join(dir, base)
		}
	}
	for _, p := range []*string{&c.AssetsPath, &c.ImageFile, &c.IncludePath} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// Marshal renders the configuration as indented JSON.
func (c Config) Marshal() ([]byte, error) {
	return json.MarshalIndent(c, "", "    ")
}

// PartitionSize parses AssetsSize. "0x" prefixed values are hex.
func (c Config) PartitionSize() (int64, error) {
	s := strings.TrimSpace(c.AssetsSize)
	if s == "" {
		s = DefaultPartitionSize
	}
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: assets_size %q", ErrInvalid, c.AssetsSize)
	}
	return n, nil
}

// Formats returns the supported extensions, lower-cased with a leading dot.
func (c Config) Formats() []string {
	var out []string
	for f := range strings.SplitSeq(c.SupportFormat, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		if !strings.HasPrefix(f, ".") {
			f = "." + f
		}
		out = append(out, f)
	}
	return out
}

func (c Config) HeaderName() string {
	if c.HeaderAssetName == "" {
		return DefaultHeaderName
	}
	return c.HeaderAssetName
}

// HeaderPath is where the generated C header is written.
func (c Config) HeaderPath() string {
	dir := c.IncludePath
	if dir == "" {
		dir = filepath.Join(filepath.Dir(c.ImageFile), "include")
	}
	return filepath.Join(dir, "mmap_generate_"+c.HeaderName()+".h")
}

func (c Config) BlobOptions() assetblob.Options {
	return assetblob.Options{
		Version:        assetblob.Version(c.BlobVersion),
		NameLength:     int(c.NameLength),
		DimensionBytes: int(c.DimensionBytes),
	}
}

func (c Config) ComplexityCheckEnabled() bool {
	return c.ComplexityCheck == nil || bool(*c.ComplexityCheck)
}

// Validate reports the first problem found.
func (c Config) Validate() error {
	if c.AssetsPath == "" {
		return fmt.Errorf("%w: assets_path is required", ErrInvalid)
	}
	if c.ImageFile == "" {
		return fmt.Errorf("%w: image_file is required", ErrInvalid)
	}
	if _, err := c.PartitionSize(); err != nil {
		return err
	}
	if len(c.Formats()) == 0 {
		return fmt.Errorf("%w: support_format is empty", ErrInvalid)
	}
	if c.SplitHeight < 0 || c.SplitHeight > 0xFFFF {
		return fmt.Errorf("%w: split_height %d", ErrInvalid, c.SplitHeight)
	}
	for _, q := range []struct {
		name string
		v    Int
	}{{"jpeg_quality", c.JPEGQuality}, {"pjpg_quality", c.PJPGQuality}, {"pjpg_alpha_quality", c.PJPGAlphaQuality}} {
		if q.v < 0 || q.v > 100 {
			return fmt.Errorf("%w: %s %d not in 1..100", ErrInvalid, q.name, q.v)
		}
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers %d", ErrInvalid, c.Workers)
	}
	if err := c.BlobOptions().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	// Each source type may have at most one conversion target.
	if n := count(c.SupportSPNG, c.SupportSQOI, c.SupportQOI, c.SupportPJPG); n > 1 {
		return fmt.Errorf("%w: support_spng, support_sqoi, support_qoi and support_pjpg are mutually exclusive", ErrInvalid)
	}
	if n := count(c.SupportSJPG, c.SupportSQOI, c.SupportQOI); n > 1 {
		return fmt.Errorf("%w: support_sjpg, support_sqoi and support_qoi are mutually exclusive", ErrInvalid)
	}
	return nil
}

func count(flags ...Bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
