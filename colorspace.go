package image2nord

import (
	"github.com/lucasb-eyer/go-colorful"
)

// labImage stores interleaved CIE L*a*b* triplets in raster order.
// L is in [0,100]; a and b are centered on zero.
type labImage struct {
	W, H int
	Pix  []float32 // len == W*H*3
}

func labOffset(w, x, y int) int {
	return (y*w + x) * 3
}

// Representable Lab ranges. Error diffusion can push accumulated values
// outside them; clampLab pulls the values back before palette lookup.
const (
	labLMin  = 0
	labLMax  = 100
	labABMin = -128
	labABMax = 128
)

func clampLab(l, a, b float32) (float32, float32, float32) {
	if l < labLMin {
		l = labLMin
	}
	if l > labLMax {
		l = labLMax
	}
	if a < labABMin {
		a = labABMin
	}
	if a > labABMax {
		a = labABMax
	}
	if b < labABMin {
		b = labABMin
	}
	if b > labABMax {
		b = labABMax
	}
	return l, a, b
}

// rgbToLab converts one 8-bit sRGB pixel to Lab against the D65 white point.
func rgbToLab(r, g, b uint8) (float64, float64, float64) {
	l, a, bb := colorful.Color{
		R: float64(r) / 255.0,
		G: float64(g) / 255.0,
		B: float64(b) / 255.0,
	}.Lab()
	return l * 100.0, a * 100.0, bb * 100.0
}

// labToRGB converts Lab coordinates back to 8-bit sRGB, clamping colors that
// fall outside the sRGB gamut.
func labToRGB(l, a, b float64) (uint8, uint8, uint8) {
	return colorful.Lab(l/100.0, a/100.0, b/100.0).Clamped().RGB255()
}

// toLab converts an 8-bit buffer to a Lab plane. Alpha is not represented in
// the plane; callers that need it keep the source buffer around.
func toLab(src *Buffer) (*labImage, error) {
	if err := src.validate(); err != nil {
		return nil, err
	}
	lab := &labImage{W: src.W, H: src.H, Pix: make([]float32, src.W*src.H*3)}
	si := 0
	for di := 0; di < len(lab.Pix); di += 3 {
		l, a, b := rgbToLab(src.Pix[si], src.Pix[si+1], src.Pix[si+2])
		lab.Pix[di] = float32(l)
		lab.Pix[di+1] = float32(a)
		lab.Pix[di+2] = float32(b)
		si += src.Channels
	}
	return lab, nil
}

// fromLab converts a Lab plane back to an 8-bit buffer with the requested
// channel count. Alpha comes out opaque; the remap path restores source
// alpha separately.
func fromLab(lab *labImage, channels int) (*Buffer, error) {
	dst, err := NewBuffer(lab.W, lab.H, channels)
	if err != nil {
		return nil, err
	}
	di := 0
	for si := 0; si < len(lab.Pix); si += 3 {
		r, g, b := labToRGB(float64(lab.Pix[si]), float64(lab.Pix[si+1]), float64(lab.Pix[si+2]))
		dst.Pix[di] = r
		dst.Pix[di+1] = g
		dst.Pix[di+2] = b
		if channels == 4 {
			dst.Pix[di+3] = 0xFF
		}
		di += channels
	}
	return dst, nil
}
