package pjpg

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync/atomic"

	"github.com/fwforge/fwtools/internal/alpha"
	"github.com/fwforge/fwtools/internal/logger"
)

const (
	DefaultJPEGQuality  = 85
	DefaultAlphaQuality = 85
)

type Options struct {
	JPEGQuality  int
	AlphaQuality int
	// ComplexityCheck runs the alpha classifier before converting.
	ComplexityCheck bool
	Thresholds      alpha.Thresholds
	PadMode         PadMode
	PadColor        color.NRGBA
	Logger          logger.Logger
}

func DefaultOptions() Options {
	return Options{
		JPEGQuality:     DefaultJPEGQuality,
		AlphaQuality:    DefaultAlphaQuality,
		ComplexityCheck: true,
		Thresholds:      alpha.DefaultThresholds(),
		PadMode:         PadTransparent,
	}
}

type Format string

const (
	FormatPJPG Format = "pjpg"
	FormatPNG  Format = "png"
)

// Result is the outcome of one conversion.
type Result struct {
	Format Format
	Data   []byte
	Width  int
	Height int
	Padded bool

	RGBSize      int
	AlphaSize    int
	AlphaQuality int

	// Analysis and Strategy are nil when the complexity check is off.
	Analysis *alpha.Analysis
	Strategy *alpha.Strategy
}

// Stats counts conversions. It is safe for concurrent use.
type Stats struct {
	Total     atomic.Int64
	Converted atomic.Int64
	Adjusted  atomic.Int64
	CopiedPNG atomic.Int64
	Failed    atomic.Int64
}

// Converter is safe for concurrent use; per-image quality adjustments do
// not leak into later conversions.
type Converter struct {
	opts  Options
	log   logger.Logger
	Stats Stats
}

func NewConverter(opts Options) *Converter {
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = DefaultJPEGQuality
	}
	if opts.AlphaQuality <= 0 {
		opts.AlphaQuality = DefaultAlphaQuality
	}
	if opts.Thresholds == (alpha.Thresholds{}) {
		opts.Thresholds = alpha.DefaultThresholds()
	}
	return &Converter{opts: opts, log: logger.OrDiscard(opts.Logger)}
}

// ConvertPNG decodes src and converts it. When the classifier refuses the
// image, Data is src unchanged.
func (c *Converter) ConvertPNG(src []byte) (*Result, error) {
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		c.Stats.Total.Add(1)
		c.Stats.Failed.Add(1)
		return nil, fmt.Errorf("pjpg: decode: %w", err)
	}
	return c.convert(img, src)
}

// Convert converts img. When the classifier refuses the image, Data is the
// aligned image encoded as PNG.
func (c *Converter) Convert(img image.Image) (*Result, error) {
	return c.convert(img, nil)
}

func (c *Converter) convert(img image.Image, src []byte) (*Result, error) {
	c.Stats.Total.Add(1)
	res, err := c.doConvert(img, src)
	if err != nil {
		c.Stats.Failed.Add(1)
		return nil, err
	}
	switch {
	case res.Format == FormatPNG:
		c.Stats.CopiedPNG.Add(1)
	case res.Strategy != nil && res.Strategy.Action == alpha.ConvertWithAdjustment:
		c.Stats.Adjusted.Add(1)
	default:
		c.Stats.Converted.Add(1)
	}
	return res, nil
}

func (c *Converter) doConvert(img image.Image, src []byte) (*Result, error) {
	aligned, padded := Align(img, c.opts.PadMode, c.opts.PadColor)
	w, h := aligned.Bounds().Dx(), aligned.Bounds().Dy()
	if w > 0xFFFF || h > 0xFFFF {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, w, h)
	}
	if padded {
		c.log.Debug("aligned image", "from", fmt.Sprintf("%dx%d", img.Bounds().Dx(), img.Bounds().Dy()), "to", fmt.Sprintf("%dx%d", w, h))
	}

	res := &Result{Width: w, Height: h, Padded: padded}
	alphaQuality := c.opts.AlphaQuality

	if c.opts.ComplexityCheck {
		a := alpha.Analyze(aligned)
		s := c.opts.Thresholds.Decide(a)
		res.Analysis, res.Strategy = a, &s
		c.log.Debug("alpha complexity",
			"score", a.ComplexityScore,
			"unique", a.UniqueValues,
			"edge", a.EdgeComplexity,
			"risk", s.RiskLevel,
			"reason", s.Reason)

		switch s.Action {
		case alpha.CopyAsPNG:
			res.Format = FormatPNG
			if src != nil {
				res.Data = src
				return res, nil
			}
			var buf bytes.Buffer
			enc := png.Encoder{CompressionLevel: png.BestCompression}
			if err := enc.Encode(&buf, aligned); err != nil {
				return nil, fmt.Errorf("pjpg: encode png: %w", err)
			}
			res.Data = buf.Bytes()
			return res, nil
		case alpha.ConvertWithAdjustment:
			alphaQuality = s.AlphaQuality
		}
	}

	rgb, alphaPlane := separate(aligned)

	var rgbBuf, alphaBuf bytes.Buffer
	if err := jpeg.Encode(&rgbBuf, rgb, &jpeg.Options{Quality: c.opts.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("pjpg: encode rgb: %w", err)
	}
	if err := jpeg.Encode(&alphaBuf, alphaPlane, &jpeg.Options{Quality: alphaQuality}); err != nil {
		return nil, fmt.Errorf("pjpg: encode alpha: %w", err)
	}

	hdr := Header{
		Version:  FormatVersion,
		Width:    uint16(w),
		Height:   uint16(h),
		RGBLen:   uint32(rgbBuf.Len()),
		AlphaLen: uint32(alphaBuf.Len()),
	}
	out := make([]byte, 0, HeaderSize+rgbBuf.Len()+alphaBuf.Len())
	out = append(out, hdr.encode()...)
	out = append(out, rgbBuf.Bytes()...)
	out = append(out, alphaBuf.Bytes()...)

	res.Format = FormatPJPG
	res.Data = out
	res.RGBSize = rgbBuf.Len()
	res.AlphaSize = alphaBuf.Len()
	res.AlphaQuality = alphaQuality
	return res, nil
}

// separate splits straight-alpha pixels into an opaque RGB image and an
// alpha plane. Colour is kept unmultiplied so fully transparent pixels
// still carry their RGB.
func separate(img *image.NRGBA) (*image.RGBA, *image.Gray) {
	b := img.Bounds()
	rgb := image.NewRGBA(b)
	a := image.NewGray(b)
	for i, j := 0, 0; i < len(img.Pix); i, j = i+4, j+1 {
		rgb.Pix[i+0] = img.Pix[i+0]
		rgb.Pix[i+1] = img.Pix[i+1]
		rgb.Pix[i+2] = img.Pix[i+2]
		rgb.Pix[i+3] = 0xFF
		a.Pix[j] = img.Pix[i+3]
	}
	return rgb, a
}
