package assets

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/fwforge/fwtools/internal/buildcfg"
	"github.com/fwforge/fwtools/internal/logger"
	"github.com/fwforge/fwtools/internal/pjpg"
	"github.com/fwforge/fwtools/pkg/splitimg"
)

// Conversion is what happens to one source file during a build.
type Conversion string

const (
	Copy    Conversion = "copy"
	ToSplit Conversion = "split"
	ToQOI   Conversion = "qoi"
	ToPJPG  Conversion = "pjpg"
)

// Plan decides the conversion for a source file from the support flags.
func Plan(cfg buildcfg.Config, name string) (Conversion, splitimg.Codec) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		switch {
		case cfg.SupportSPNG:
			return ToSplit, splitimg.SPNG
		case cfg.SupportSQOI:
			return ToSplit, splitimg.SQOI
		case cfg.SupportQOI:
			return ToQOI, splitimg.QOI
		case cfg.SupportPJPG:
			return ToPJPG, 0
		}
	case ".jpg", ".jpeg":
		switch {
		case cfg.SupportSJPG:
			return ToSplit, splitimg.SJPG
		case cfg.SupportSQOI:
			return ToSplit, splitimg.SQOI
		case cfg.SupportQOI:
			return ToQOI, splitimg.QOI
		}
	}
	return Copy, 0
}

// BuildResult is the outcome of Build.
type BuildResult struct {
	*PackResult
	Converted map[Conversion]int
	PJPG      PJPGStats
}

type PJPGStats struct {
	Converted int64
	Adjusted  int64
	CopiedPNG int64
}

// Build converts every supported file under cfg.AssetsPath according to the
// support flags and packs the results. Conversions run in parallel; the
// packed order only depends on the output names. Any failure aborts before
// anything is written.
func Build(ctx context.Context, cfg buildcfg.Config, log logger.Logger) (*BuildResult, error) {
	log = logger.OrDiscard(log)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	capacity, err := cfg.PartitionSize()
	if err != nil {
		return nil, err
	}

	filter := Filter{Formats: cfg.Formats(), Include: cfg.Include, Exclude: cfg.Exclude}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	rels, err := walkDir(cfg.AssetsPath, filter)
	if err != nil {
		return nil, err
	}
	if len(rels) == 0 {
		return nil, fmt.Errorf("%w in %s (formats %s)", ErrNoAssets, cfg.AssetsPath, cfg.SupportFormat)
	}
	log.Info("building assets", "dir", cfg.AssetsPath, "files", len(rels))

	conv := pjpg.NewConverter(pjpg.Options{
		JPEGQuality:     int(cfg.PJPGQuality),
		AlphaQuality:    int(cfg.PJPGAlphaQuality),
		ComplexityCheck: cfg.ComplexityCheckEnabled(),
		PadMode:         pjpg.PadTransparent,
		Logger:          log.WithGroup("pjpg"),
	})

	workers := int(cfg.Workers)
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([]Source, len(rels))
	kinds := make([]Conversion, len(rels))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rel := range rels {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, kind, err := convertFile(cfg, conv, filepath.Join(cfg.AssetsPath, rel))
			if err != nil {
				return fmt.Errorf("assets: %s: %w", rel, err)
			}
			log.Debug("staged", "source", rel, "asset", src.Name, "conversion", string(kind), "size", len(src.Data))
			out[i], kinds[i] = src, kind
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]string, len(out))
	counts := make(map[Conversion]int)
	for i, s := range out {
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("%w: %s and %s both produce %s", ErrNameCollision, prev, rels[i], s.Name)
		}
		seen[s.Name] = rels[i]
		counts[kinds[i]]++
	}

	res, err := PackSources(ctx, out, PackOptions{
		BlobPath:      cfg.ImageFile,
		HeaderPath:    cfg.HeaderPath(),
		Name:          cfg.HeaderName(),
		Blob:          cfg.BlobOptions(),
		PartitionSize: capacity,
		Logger:        log,
	})
	if err != nil {
		return nil, err
	}

	br := &BuildResult{
		PackResult: res,
		Converted:  counts,
		PJPG: PJPGStats{
			Converted: conv.Stats.Converted.Load(),
			Adjusted:  conv.Stats.Adjusted.Load(),
			CopiedPNG: conv.Stats.CopiedPNG.Load(),
		},
	}
	if conv.Stats.Total.Load() > 0 {
		log.Info("pjpg conversion",
			"converted", br.PJPG.Converted,
			"adjusted", br.PJPG.Adjusted,
			"kept_png", br.PJPG.CopiedPNG)
	}
	return br, nil
}

func convertFile(cfg buildcfg.Config, conv *pjpg.Converter, path string) (Source, Conversion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, "", err
	}
	name := filepath.Base(path)
	base := strings.TrimSuffix(name, filepath.Ext(name))

	kind, codec := Plan(cfg, name)
	switch kind {
	case Copy:
		return Source{Name: name, Data: data}, Copy, nil

	case ToPJPG:
		res, err := conv.ConvertPNG(data)
		if err != nil {
			return Source{}, "", err
		}
		if res.Format == pjpg.FormatPNG {
			return Source{Name: name, Data: res.Data}, Copy, nil
		}
		return Source{Name: base + ".pjpg", Data: res.Data}, ToPJPG, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Source{}, "", fmt.Errorf("decode: %w", err)
	}
	enc, err := splitimg.Encode(img, codec, splitimg.Options{
		StripHeight: int(cfg.SplitHeight),
		JPEGQuality: int(cfg.JPEGQuality),
	})
	if err != nil {
		return Source{}, "", err
	}
	return Source{Name: base + codec.Ext(), Data: enc}, kind, nil
}
