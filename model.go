package image2nord

import (
	"context"
	"encoding/gob"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/gift"
	"github.com/klauspost/compress/zstd"
	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/mat"
)

// Model is the opaque inference boundary for semantic segmentation. The
// engine feeds it a normalized RGB tensor at the model's preferred input size
// and reads back per-pixel class scores. Implementations own architecture and
// weights; the engine never retrains or introspects them.
type Model interface {
	// InputSize returns the width and height the model expects.
	InputSize() (w, h int)
	// Classes returns the number of classes scored per pixel. Score index k
	// corresponds to Class(k).
	Classes() int
	// Infer scores tensor, an interleaved RGB plane of InputSize() shape with
	// values in [0,1], and returns w*h*Classes() scores in pixel-major order.
	// Implementations should honor ctx cancellation.
	Infer(ctx context.Context, tensor []float32) ([]float32, error)
}

// Per-pixel feature indices of the built-in linear model.
const (
	featL = iota // lightness, [0,1]
	featA        // green-red opponent axis
	featB        // blue-yellow opponent axis
	featX        // horizontal position, [0,1]
	featY        // vertical position, [0,1]
	featEdge     // local Sobel edge strength, [0,1]
	modelFeatures
)

// defaultWeights are hand-tuned heuristics scoring each class from the pixel
// features, feature-major. They favor obvious cases (blue top of frame is
// sky, green is foliage, busy texture is built) and leave ambiguous pixels to
// the unknown bias.
var defaultWeights = [modelFeatures][numClasses]float64{
	featL:    {0, 0.8, -0.2, 0.4, -0.6, 0.1},
	featA:    {0, 0.0, -2.0, 1.2, -0.3, -0.1},
	featB:    {0, -1.5, 0.3, 0.8, -1.2, -0.1},
	featX:    {0, 0, 0, 0, 0, 0},
	featY:    {0, -1.0, 0.3, 0, 0.8, 0},
	featEdge: {0, -0.5, 0.3, -0.3, -0.4, 2.0},
}

var defaultBias = [numClasses]float64{0.15, -0.2, -0.25, -0.5, -0.45, -0.35}

// LinearModel is the built-in segmentation model: one linear layer over six
// per-pixel features (Lab color, frame position, edge strength). It ships
// with conservative heuristic weights and can load trained weights from a
// compressed artifact.
type LinearModel struct {
	inW, inH int
	weights  *mat.Dense // modelFeatures x numClasses
	bias     []float64  // numClasses
}

// NewLinearModel returns the built-in model with its default weights.
func NewLinearModel() *LinearModel {
	w := mat.NewDense(modelFeatures, numClasses, nil)
	for f := 0; f < modelFeatures; f++ {
		for k := 0; k < numClasses; k++ {
			w.Set(f, k, defaultWeights[f][k])
		}
	}
	bias := make([]float64, numClasses)
	copy(bias, defaultBias[:])
	return &LinearModel{
		inW:     defaultModelInput,
		inH:     defaultModelInput,
		weights: w,
		bias:    bias,
	}
}

// InputSize returns the model's expected tensor shape.
func (m *LinearModel) InputSize() (int, int) { return m.inW, m.inH }

// Classes returns the number of scored classes.
func (m *LinearModel) Classes() int { return numClasses }

// Infer scores every pixel of the tensor against all classes.
func (m *LinearModel) Infer(ctx context.Context, tensor []float32) ([]float32, error) {
	w, h := m.inW, m.inH
	if len(tensor) != w*h*3 {
		return nil, fmt.Errorf("tensor length %d, want %d", len(tensor), w*h*3)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	edges := m.edgeStrength(tensor)
	feats := mat.NewDense(w*h, modelFeatures, nil)
	for y := 0; y < h; y++ {
		fy := 0.0
		if h > 1 {
			fy = float64(y) / float64(h-1)
		}
		for x := 0; x < w; x++ {
			i := y*w + x
			c := colorful.Color{
				R: float64(tensor[i*3]),
				G: float64(tensor[i*3+1]),
				B: float64(tensor[i*3+2]),
			}
			l, a, b := c.Lab()
			fx := 0.0
			if w > 1 {
				fx = float64(x) / float64(w-1)
			}
			feats.Set(i, featL, l)
			feats.Set(i, featA, a)
			feats.Set(i, featB, b)
			feats.Set(i, featX, fx)
			feats.Set(i, featY, fy)
			feats.Set(i, featEdge, edges[i])
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var scores mat.Dense
	scores.Mul(feats, m.weights)
	out := make([]float32, w*h*numClasses)
	for i := 0; i < w*h; i++ {
		for k := 0; k < numClasses; k++ {
			out[i*numClasses+k] = float32(scores.At(i, k) + m.bias[k])
		}
	}
	return out, nil
}

// edgeStrength runs a Sobel operator over the tensor and returns one
// normalized magnitude per pixel.
func (m *LinearModel) edgeStrength(tensor []float32) []float64 {
	w, h := m.inW, m.inH
	src := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		src.Pix[i*4] = uint8(tensor[i*3]*255 + 0.5)
		src.Pix[i*4+1] = uint8(tensor[i*3+1]*255 + 0.5)
		src.Pix[i*4+2] = uint8(tensor[i*3+2]*255 + 0.5)
		src.Pix[i*4+3] = 0xFF
	}
	dst := image.NewRGBA(src.Bounds())
	gift.New(gift.Sobel()).Draw(dst, src)
	edges := make([]float64, w*h)
	for i := range edges {
		sum := int(dst.Pix[i*4]) + int(dst.Pix[i*4+1]) + int(dst.Pix[i*4+2])
		edges[i] = float64(sum) / (3 * 255)
	}
	return edges
}

// linearArtifact is the serialized weight bundle, gob-encoded inside a zstd
// stream.
type linearArtifact struct {
	InputW, InputH int
	Features       int
	Classes        int
	Weights        []float64 // Features*Classes values, feature-major
	Bias           []float64
}

// EncodeLinearModel writes the model's weights as a compressed artifact.
func EncodeLinearModel(w io.Writer, m *LinearModel) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	art := linearArtifact{
		InputW:   m.inW,
		InputH:   m.inH,
		Features: modelFeatures,
		Classes:  numClasses,
		Weights:  make([]float64, 0, modelFeatures*numClasses),
		Bias:     append([]float64(nil), m.bias...),
	}
	for f := 0; f < modelFeatures; f++ {
		for k := 0; k < numClasses; k++ {
			art.Weights = append(art.Weights, m.weights.At(f, k))
		}
	}
	if err := gob.NewEncoder(zw).Encode(art); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// DecodeLinearModel reads a weight artifact produced by EncodeLinearModel.
func DecodeLinearModel(r io.Reader) (*LinearModel, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: weights artifact: %v", ErrConfiguration, err)
	}
	defer zr.Close()
	var art linearArtifact
	if err := gob.NewDecoder(zr).Decode(&art); err != nil {
		return nil, fmt.Errorf("%w: weights artifact: %v", ErrConfiguration, err)
	}
	if art.Features != modelFeatures || art.Classes != numClasses {
		return nil, fmt.Errorf("%w: weights artifact shape %dx%d, want %dx%d",
			ErrConfiguration, art.Features, art.Classes, modelFeatures, numClasses)
	}
	if art.InputW <= 0 || art.InputH <= 0 {
		return nil, fmt.Errorf("%w: weights artifact input %dx%d", ErrConfiguration, art.InputW, art.InputH)
	}
	if len(art.Weights) != art.Features*art.Classes || len(art.Bias) != art.Classes {
		return nil, fmt.Errorf("%w: weights artifact is truncated", ErrConfiguration)
	}
	w := mat.NewDense(modelFeatures, numClasses, art.Weights)
	return &LinearModel{
		inW:     art.InputW,
		inH:     art.InputH,
		weights: w,
		bias:    art.Bias,
	}, nil
}

// LoadLinearModel reads a weight artifact from disk.
func LoadLinearModel(path string) (*LinearModel, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeLinearModel(f)
}
