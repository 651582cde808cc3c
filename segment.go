package image2nord

import (
	"context"
	"fmt"
	"time"

	"github.com/nfnt/resize"

	"github.com/zp33dy/image2nord/internal/slic"
)

// Class is a coarse semantic segmentation label.
type Class uint8

const (
	ClassUnknown Class = iota
	ClassSky
	ClassFoliage
	ClassSkin
	ClassWater
	ClassBuilt
)

// numClasses counts the classes the engine understands, ClassUnknown
// included.
const numClasses = 6

var classNames = [numClasses]string{"unknown", "sky", "foliage", "skin", "water", "built"}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// LabelMap holds one Class per pixel of the image it was derived from.
type LabelMap struct {
	W, H    int
	Classes []Class // len == W*H
}

// At returns the class at (x, y).
func (m *LabelMap) At(x, y int) Class {
	return m.Classes[y*m.W+x]
}

// Histogram returns pixel totals for the classes present in the map.
func (m *LabelMap) Histogram() map[Class]int {
	out := make(map[Class]int)
	for _, c := range m.Classes {
		out[c]++
	}
	return out
}

// segmenter runs the model once per image and turns its scores into a
// full-resolution label map.
type segmenter struct {
	model       Model
	timeout     time.Duration
	refine      bool
	superpixels int
}

// segment produces a label map for src, or an error wrapping
// ErrModelInference when the model cannot deliver one.
func (s *segmenter) segment(ctx context.Context, src *Buffer, lab *labImage) (*LabelMap, error) {
	mw, mh := s.model.InputSize()
	if mw <= 0 || mh <= 0 {
		return nil, fmt.Errorf("%w: model input size %dx%d", ErrModelInference, mw, mh)
	}
	k := s.model.Classes()
	if k <= 0 || k > numClasses {
		return nil, fmt.Errorf("%w: model scores %d classes, engine understands %d", ErrModelInference, k, numClasses)
	}
	tensor := modelTensor(src, mw, mh)

	ictx := ctx
	cancel := func() {}
	if s.timeout > 0 {
		ictx, cancel = context.WithTimeout(ctx, s.timeout)
	}
	scores, err := s.model.Infer(ictx, tensor)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelInference, err)
	}
	if len(scores) != mw*mh*k {
		return nil, fmt.Errorf("%w: score length %d, want %d", ErrModelInference, len(scores), mw*mh*k)
	}

	labels := argmaxLabels(scores, mw, mh, k)
	labels = upscaleLabels(labels, src.W, src.H)
	if s.refine {
		labels = refineByRegions(labels, lab, s.superpixels)
	}
	return labels, nil
}

// modelTensor downscales src to the model's input size and normalizes it to
// an interleaved RGB plane in [0,1].
func modelTensor(src *Buffer, mw, mh int) []float32 {
	img := resize.Resize(uint(mw), uint(mh), src.Image(), resize.Bilinear)
	t := make([]float32, mw*mh*3)
	b := img.Bounds()
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			t[i] = float32(r) / 65535.0
			t[i+1] = float32(g) / 65535.0
			t[i+2] = float32(bl) / 65535.0
			i += 3
		}
	}
	return t
}

// argmaxLabels picks the best-scoring class per pixel. Ties go to the lowest
// class index.
func argmaxLabels(scores []float32, w, h, k int) *LabelMap {
	m := &LabelMap{W: w, H: h, Classes: make([]Class, w*h)}
	for i := 0; i < w*h; i++ {
		best := scores[i*k]
		bi := 0
		for j := 1; j < k; j++ {
			if s := scores[i*k+j]; s > best {
				best = s
				bi = j
			}
		}
		m.Classes[i] = Class(bi)
	}
	return m
}

// upscaleLabels stretches a label map to the target size by nearest neighbor,
// which keeps labels crisp across the scale jump.
func upscaleLabels(src *LabelMap, w, h int) *LabelMap {
	if src.W == w && src.H == h {
		return src
	}
	dst := &LabelMap{W: w, H: h, Classes: make([]Class, w*h)}
	for y := 0; y < h; y++ {
		sy := y * src.H / h
		row := sy * src.W
		for x := 0; x < w; x++ {
			sx := x * src.W / w
			dst.Classes[y*w+x] = src.Classes[row+sx]
		}
	}
	return dst
}

// refineByRegions snaps labels to superpixel boundaries: every pixel of a
// region takes the region's majority class. This cleans up the blocky edges
// left by nearest-neighbor upscaling.
func refineByRegions(labels *LabelMap, lab *labImage, superpixels int) *LabelMap {
	if superpixels <= 0 {
		superpixels = defaultSuperpixels
	}
	sm := slic.Segment(lab.Pix, lab.W, lab.H, superpixels)
	if sm.N <= 0 {
		return labels
	}
	hist := make([][numClasses]int, sm.N)
	for i, r := range sm.Regions {
		hist[r][labels.Classes[i]]++
	}
	vote := make([]Class, sm.N)
	for r := range hist {
		bi, bn := 0, -1
		for c := 0; c < numClasses; c++ {
			if hist[r][c] > bn {
				bi = c
				bn = hist[r][c]
			}
		}
		vote[r] = Class(bi)
	}
	out := &LabelMap{W: labels.W, H: labels.H, Classes: make([]Class, len(labels.Classes))}
	for i, r := range sm.Regions {
		out.Classes[i] = vote[r]
	}
	return out
}
