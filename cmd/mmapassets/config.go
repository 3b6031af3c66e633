package main

import (
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/fwforge/fwtools/internal/buildcfg"
)

// loadBuildConfig reads the config file, if any, and lets explicitly set
// flags override its values.
func loadBuildConfig(c *cli.Command) (buildcfg.Config, error) {
	cfg := buildcfg.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = buildcfg.Load(path); err != nil {
			return cfg, err
		}
	}
	applyBuildFlags(c, &cfg)
	return cfg, nil
}

func applyBuildFlags(c *cli.Command, cfg *buildcfg.Config) {
	str := func(flag string, dst *string) {
		if c.IsSet(flag) {
			*dst = c.String(flag)
		}
	}
	num := func(flag string, dst *buildcfg.Int) {
		if c.IsSet(flag) {
			*dst = buildcfg.Int(c.Int(flag))
		}
	}
	flag := func(name string, dst *buildcfg.Bool) {
		if c.IsSet(name) {
			*dst = buildcfg.Bool(c.Bool(name))
		}
	}

	str("assets", &cfg.AssetsPath)
	str("output", &cfg.ImageFile)
	str("include-dir", &cfg.IncludePath)
	str("name", &cfg.HeaderAssetName)
	str("partition-size", &cfg.AssetsSize)
	if c.IsSet("formats") {
		cfg.SupportFormat = strings.Join(c.StringSlice("formats"), ",")
	}
	num("name-length", &cfg.NameLength)
	num("split-height", &cfg.SplitHeight)
	num("jpeg-quality", &cfg.JPEGQuality)
	num("pjpg-quality", &cfg.PJPGQuality)
	num("pjpg-alpha-quality", &cfg.PJPGAlphaQuality)
	num("blob-version", &cfg.BlobVersion)
	num("dimension-bytes", &cfg.DimensionBytes)
	num("workers", &cfg.Workers)
	flag("spng", &cfg.SupportSPNG)
	flag("sjpg", &cfg.SupportSJPG)
	flag("qoi", &cfg.SupportQOI)
	flag("sqoi", &cfg.SupportSQOI)
	flag("pjpg", &cfg.SupportPJPG)
	if c.IsSet("complexity-check") {
		v := buildcfg.Bool(c.Bool("complexity-check"))
		cfg.ComplexityCheck = &v
	}
	if c.IsSet("include") {
		cfg.Include = c.StringSlice("include")
	}
	if c.IsSet("exclude") {
		cfg.Exclude = c.StringSlice("exclude")
	}
}
