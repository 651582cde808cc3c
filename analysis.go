package image2nord

import (
	"image"
	"image/color"
	"math"

	"github.com/cenkalti/dominantcolor"
	"github.com/ericpauley/go-quantize/quantize"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// Info summarizes an image for automatic option selection.
type Info struct {
	// Brightness is the mean linear luminance of opaque pixels, in [0,1].
	Brightness float64
	// Contrast is the standard deviation of linear luminance.
	Contrast float64
	// ToneSpread is the mean pairwise Lab distance between the image's tone
	// cluster centers. Small values indicate a narrow, smooth tonal range.
	ToneSpread float64
	// Dominant holds up to four dominant colors, strongest first.
	Dominant []color.NRGBA
	// EffectiveColors counts distinct colors surviving a 64-color median
	// cut, a cheap proxy for "already flat" artwork.
	EffectiveColors int
}

const (
	analysisMaxSamples = 12000
	toneClusters       = 3
)

// Analyze samples img and derives the statistics OptionsForImage consumes.
// A nil or empty image yields a zero Info.
func Analyze(img image.Image) Info {
	var info Info
	if img == nil {
		return info
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return info
	}

	step := 1
	if w*h > analysisMaxSamples {
		step = int(math.Sqrt(float64(w*h)/float64(analysisMaxSamples))) + 1
	}
	var sum, sumSq float64
	var n int
	dataset := make(clusters.Observations, 0, analysisMaxSamples)
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			r16, g16, b16, a16 := img.At(x, y).RGBA()
			if a16 == 0 {
				continue
			}
			c := colorful.Color{
				R: float64(r16) / 65535.0,
				G: float64(g16) / 65535.0,
				B: float64(b16) / 65535.0,
			}
			lr, lg, lb := c.LinearRgb()
			yl := 0.2126*lr + 0.7152*lg + 0.0722*lb
			sum += yl
			sumSq += yl * yl
			n++
			l, la, lbb := c.Lab()
			dataset = append(dataset, clusters.Coordinates{l, la, lbb})
		}
	}
	if n == 0 {
		return info
	}
	mean := sum / float64(n)
	info.Brightness = mean
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	info.Contrast = math.Sqrt(variance)
	info.ToneSpread = toneSpread(dataset)

	for _, c := range dominantcolor.FindWeight(img, 8) {
		info.Dominant = append(info.Dominant, color.NRGBA{R: c.RGBA.R, G: c.RGBA.G, B: c.RGBA.B, A: 0xFF})
		if len(info.Dominant) == 4 {
			break
		}
	}

	q := quantize.MedianCutQuantizer{}
	info.EffectiveColors = len(q.Quantize(make(color.Palette, 0, 64), img))
	return info
}

// toneSpread clusters the Lab samples and returns the mean pairwise distance
// between cluster centers in Lab units (L scaled to [0,100]).
func toneSpread(dataset clusters.Observations) float64 {
	if len(dataset) < toneClusters {
		return 0
	}
	km := kmeans.New()
	cc, err := km.Partition(dataset, toneClusters)
	if err != nil || len(cc) < 2 {
		return 0
	}
	var total float64
	var pairs int
	for i := 0; i < len(cc); i++ {
		for j := i + 1; j < len(cc); j++ {
			ci, cj := cc[i].Center, cc[j].Center
			if len(ci) < 3 || len(cj) < 3 {
				continue
			}
			dl := ci[0] - cj[0]
			da := ci[1] - cj[1]
			db := ci[2] - cj[2]
			total += math.Sqrt(dl*dl+da*da+db*db) * 100.0
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return total / float64(pairs)
}

// OptionsForImage derives remap settings from image statistics. Flat artwork
// maps cleanly without dithering; smooth low-contrast photographs need full
// error diffusion to avoid banding.
func OptionsForImage(info Info) Options {
	opts := DefaultOptions()
	switch {
	case info.EffectiveColors > 0 && info.EffectiveColors <= NumEntries:
		opts.Dither = 0
	case info.ToneSpread > 0 && info.ToneSpread < 25 && info.Contrast < 0.1:
		opts.Dither = 1
	default:
		opts.Dither = 0.85
	}
	if info.Brightness < 0.06 && opts.Dither > 0.6 {
		// Heavy dithering reads as noise in very dark frames.
		opts.Dither = 0.6
	}
	return opts
}
