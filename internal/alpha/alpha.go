// Package alpha scores how hard an image's alpha channel is for the
// hardware PJPG decode path and picks a conversion strategy from the score.
package alpha

import (
	"fmt"
	"image"
	"image/color"
)

// Distribution describes how alpha values are spread over the image.
type Distribution struct {
	TransparentRatio float64
	OpaqueRatio      float64
	SemiRatio        float64

	ExtremeOpaque  bool
	ExtremeSemi    bool
	ComplexSemi    bool
	HighDispersion bool

	// Extremeness is the sum of the weights of the flags that are set.
	Extremeness float64
	Reasons     []string
}

// Analysis is the result of Analyze.
type Analysis struct {
	Width, Height int

	UniqueValues    int
	UniqueRatio     float64
	EdgeComplexity  float64
	ComplexityScore float64

	HasTransparency bool
	Min, Max        uint8
	Mean            float64

	UIIcon       bool
	Distribution Distribution

	// CombinedRisk weighs ComplexityScore against Distribution.Extremeness.
	CombinedRisk float64
	RiskFactors  []string
}

// Analyze computes alpha statistics for img. Images without an alpha
// channel are treated as fully opaque.
func Analyze(img image.Image) *Analysis {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	a := &Analysis{Width: w, Height: h}
	if w <= 0 || h <= 0 {
		return a
	}

	plane := alphaPlane(img)
	total := float64(len(plane))

	var hist [256]int
	var sum float64
	a.Min, a.Max = 255, 0
	for _, v := range plane {
		hist[v]++
		sum += float64(v)
		a.Min = min(a.Min, v)
		a.Max = max(a.Max, v)
	}
	for _, n := range hist {
		if n > 0 {
			a.UniqueValues++
		}
	}
	a.Mean = sum / total
	a.HasTransparency = a.Min < 255
	a.UniqueRatio = float64(a.UniqueValues) / total

	a.UIIcon = looksLikeUIIcon(w, h, hist, len(plane))
	a.EdgeComplexity = (meanGradient(plane, w, h, 1, 0) + meanGradient(plane, w, h, 0, 1)) / 255.0
	if a.UIIcon {
		a.ComplexityScore = a.UniqueRatio*0.4 + a.EdgeComplexity*0.6*0.7
	} else {
		a.ComplexityScore = a.UniqueRatio*0.3 + a.EdgeComplexity*0.7
	}

	a.Distribution = distribution(hist, len(plane), a.UniqueValues)
	a.CombinedRisk = a.ComplexityScore*0.3 + a.Distribution.Extremeness*0.7
	a.RiskFactors = append([]string{
		fmt.Sprintf("Base complexity: %.3f", a.ComplexityScore),
		fmt.Sprintf("Extremeness score: %.3f", a.Distribution.Extremeness),
	}, a.Distribution.Reasons...)
	return a
}

func alphaPlane(img image.Image) []uint8 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	plane := make([]uint8, 0, w*h)

	if n, ok := img.(*image.NRGBA); ok {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := n.Pix[n.PixOffset(b.Min.X, y):n.PixOffset(b.Min.X, y)+4*w]
			for i := 3; i < len(row); i += 4 {
				plane = append(plane, row[i])
			}
		}
		return plane
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			plane = append(plane, color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA).A)
		}
	}
	return plane
}

// meanGradient is the mean forward difference along (dx, dy). Differences
// are taken modulo 256, which is what the decoder calibration data was
// measured with. A dimension of 1 has no differences and contributes 0.
func meanGradient(plane []uint8, w, h, dx, dy int) float64 {
	var sum float64
	n := 0
	for y := 0; y+dy < h; y++ {
		for x := 0; x+dx < w; x++ {
			sum += float64(plane[(y+dy)*w+x+dx] - plane[y*w+x])
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func looksLikeUIIcon(w, h int, hist [256]int, total int) bool {
	t := float64(total)
	transparent := float64(hist[0]) / t
	opaque := float64(hist[255]) / t
	semi := 1 - transparent - opaque
	shape := 1 - transparent

	score := 0
	if w <= 200 && h <= 200 {
		score++
	}
	if transparent+opaque > 0.7 && semi < 0.3 {
		score += 2
	}
	if shape > 0.1 && shape < 0.8 {
		score++
	}
	return score >= 2
}

func distribution(hist [256]int, total, unique int) Distribution {
	t := float64(total)
	d := Distribution{
		TransparentRatio: float64(hist[0]) / t,
		OpaqueRatio:      float64(hist[255]) / t,
	}
	d.SemiRatio = float64(total-hist[0]-hist[255]) / t

	d.ExtremeOpaque = d.OpaqueRatio > 0.7 && d.SemiRatio < 0.15
	d.ExtremeSemi = d.SemiRatio > 0.75 && d.OpaqueRatio < 0.1
	d.ComplexSemi = d.SemiRatio > 0.6 && unique > 120
	d.HighDispersion = float64(unique)/t > 0.0001 && unique > 100

	if d.ExtremeOpaque {
		d.Extremeness += 0.8
		d.Reasons = append(d.Reasons, fmt.Sprintf("Extremely biased toward opaque(%.1f%%)", d.OpaqueRatio*100))
	}
	if d.ExtremeSemi {
		d.Extremeness += 1.0
		d.Reasons = append(d.Reasons, fmt.Sprintf("Extremely biased toward semi-transparent(%.1f%%)", d.SemiRatio*100))
	}
	if d.ComplexSemi {
		d.Extremeness += 0.6
		d.Reasons = append(d.Reasons, fmt.Sprintf("Complex semi-transparent(%.1f%%, %d alpha types)", d.SemiRatio*100, unique))
	}
	if d.HighDispersion {
		d.Extremeness += 0.4
		d.Reasons = append(d.Reasons, fmt.Sprintf("Over-dispersed alpha values(%d types)", unique))
	}
	return d
}
