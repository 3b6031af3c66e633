package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/fwforge/fwtools/internal/alpha"
	"github.com/fwforge/fwtools/internal/atomicfile"
	"github.com/fwforge/fwtools/internal/logger"
	"github.com/fwforge/fwtools/internal/pjpg"
	_ "github.com/fwforge/fwtools/internal/qoi"
	"github.com/fwforge/fwtools/pkg/splitimg"
)

func decodeImage(path string) (image.Image, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, data, nil
}

// outputPath replaces the extension of in with ext unless out is given.
func outputPath(in, out, ext string) string {
	if out != "" {
		return out
	}
	return strings.TrimSuffix(in, filepath.Ext(in)) + ext
}

func splitCmd() *cli.Command {
	var (
		codecName   string
		stripHeight int
		quality     int
		output      string
	)

	return &cli.Command{
		Name:      "split",
		Usage:     "Encode one image as a split (strip by strip) container",
		ArgsUsage: "<image>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "codec", Usage: "sjpg, spng, sqoi or qoi", Value: "spng", Destination: &codecName},
			&cli.IntFlag{Name: "strip-height", Aliases: []string{"H"}, Usage: "rows per strip (0 = one strip)", Value: 16, Destination: &stripHeight},
			&cli.IntFlag{Name: "quality", Usage: "jpeg quality for sjpg strips", Value: splitimg.DefaultJPEGQuality, Destination: &quality},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file (default: input with the codec extension)", Destination: &output},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.NArg() != 1 {
				return cli.Exit("error: split takes exactly one image", 1)
			}
			in := c.Args().First()
			codec, err := splitimg.ParseCodec(codecName)
			if err != nil {
				return err
			}
			img, _, err := decodeImage(in)
			if err != nil {
				return err
			}
			data, err := splitimg.Encode(img, codec, splitimg.Options{StripHeight: stripHeight, JPEGQuality: quality})
			if err != nil {
				return err
			}
			out := outputPath(in, output, codec.Ext())
			if err := atomicfile.WriteFile(out, data, 0o644); err != nil {
				return err
			}

			b := img.Bounds()
			logger.FromContext(ctx).Info("split image written",
				"output", out,
				"codec", codec.String(),
				"width", b.Dx(),
				"height", b.Dy(),
				"strips", splitimg.StripCount(b.Dy(), stripHeight),
				"size", len(data))
			return nil
		},
	}
}

func pjpgCmd() *cli.Command {
	var (
		output       string
		quality      int
		alphaQuality int
		noCheck      bool
		pad          string
		padColor     string
	)

	return &cli.Command{
		Name:      "pjpg",
		Usage:     "Convert a png with alpha to the PJPG container",
		ArgsUsage: "<png>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file (default: input with .pjpg)", Destination: &output},
			&cli.IntFlag{Name: "quality", Usage: "colour jpeg quality", Value: pjpg.DefaultJPEGQuality, Destination: &quality},
			&cli.IntFlag{Name: "alpha-quality", Usage: "alpha jpeg quality", Value: pjpg.DefaultAlphaQuality, Destination: &alphaQuality},
			&cli.BoolFlag{Name: "no-complexity-check", Usage: "always convert, skip alpha classification", Destination: &noCheck},
			&cli.StringFlag{Name: "pad", Usage: "padding to a 16 pixel grid (transparent, color)", Value: "transparent", Destination: &pad},
			&cli.StringFlag{Name: "pad-color", Usage: "RRGGBB fill for --pad color", Value: "000000", Destination: &padColor},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.NArg() != 1 {
				return cli.Exit("error: pjpg takes exactly one png", 1)
			}
			in := c.Args().First()
			mode, err := pjpg.ParsePadMode(pad)
			if err != nil {
				return err
			}
			fill, err := parseHexColor(padColor)
			if err != nil {
				return err
			}
			log := logger.FromContext(ctx).WithGroup("pjpg")

			src, err := os.ReadFile(in)
			if err != nil {
				return err
			}
			conv := pjpg.NewConverter(pjpg.Options{
				JPEGQuality:     quality,
				AlphaQuality:    alphaQuality,
				ComplexityCheck: !noCheck,
				PadMode:         mode,
				PadColor:        fill,
				Logger:          log,
			})
			res, err := conv.ConvertPNG(src)
			if err != nil {
				return err
			}

			ext := ".pjpg"
			if res.Format == pjpg.FormatPNG {
				ext = ".png"
				if output == "" {
					log.Warn("alpha too complex, keeping png", "input", in)
					return nil
				}
			}
			out := outputPath(in, output, ext)
			if err := atomicfile.WriteFile(out, res.Data, 0o644); err != nil {
				return err
			}
			args := []any{"output", out, "format", string(res.Format), "width", res.Width, "height", res.Height,
				"padded", res.Padded, "size", len(res.Data)}
			if res.Strategy != nil {
				args = append(args, "risk", string(res.Strategy.RiskLevel), "alpha_quality", res.AlphaQuality)
			}
			log.Info("converted", args...)
			return nil
		},
	}
}

func parseHexColor(s string) (color.NRGBA, error) {
	fill := color.NRGBA{A: 0xFF}
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return fill, fmt.Errorf("invalid colour %q (want RRGGBB)", s)
	}
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &fill.R, &fill.G, &fill.B); err != nil {
		return fill, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return fill, nil
}

type analyzeReport struct {
	File     string          `json:"file"`
	Analysis *alpha.Analysis `json:"analysis"`
	Strategy alpha.Strategy  `json:"strategy"`
}

func analyzeCmd() *cli.Command {
	var asJSON bool

	return &cli.Command{
		Name:      "analyze",
		Usage:     "Score the alpha channel of images for PJPG conversion",
		ArgsUsage: "<image>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print the full analysis as JSON", Destination: &asJSON},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.NArg() == 0 {
				return cli.Exit("error: analyze needs at least one image", 1)
			}
			thresholds := alpha.DefaultThresholds()
			var reports []analyzeReport
			for _, path := range c.Args().Slice() {
				img, _, err := decodeImage(path)
				if err != nil {
					return err
				}
				a := alpha.Analyze(img)
				reports = append(reports, analyzeReport{File: path, Analysis: a, Strategy: thresholds.Decide(a)})
			}

			if asJSON {
				out, err := json.MarshalIndent(reports, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}
			for _, r := range reports {
				fmt.Printf("%s: %dx%d risk=%.3f level=%s action=%s", r.File, r.Analysis.Width, r.Analysis.Height,
					r.Analysis.CombinedRisk, r.Strategy.RiskLevel, r.Strategy.Action)
				if r.Strategy.AlphaQuality > 0 {
					fmt.Printf(" alpha_quality=%d", r.Strategy.AlphaQuality)
				}
				fmt.Println()
				if len(r.Analysis.RiskFactors) > 0 {
					fmt.Printf("  factors: %s\n", strings.Join(r.Analysis.RiskFactors, ", "))
				}
			}
			return nil
		},
	}
}
