package image2nord

import (
	"fmt"
	"image"
	"image/color"
)

// Buffer stores an owned, tightly packed 8-bit sRGB image in raster order.
// Channels is 3 (RGB) or 4 (RGBA); alpha, when present, passes through the
// pipeline untouched.
type Buffer struct {
	W, H     int
	Channels int     // interleaved samples per pixel, 3 or 4
	Pix      []uint8 // len == W*H*Channels
}

// NewBuffer allocates a zeroed buffer of the given shape.
func NewBuffer(w, h, channels int) (*Buffer, error) {
	if channels != 3 && channels != 4 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, channels)
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrUnsupportedFormat, w, h)
	}
	if w > maxImagePixels/h {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrResourceExhaustion, w, h, maxImagePixels)
	}
	return &Buffer{
		W:        w,
		H:        h,
		Channels: channels,
		Pix:      make([]uint8, w*h*channels),
	}, nil
}

// FromImage copies img into a 4-channel buffer, unpremultiplying alpha where
// the source carries it.
func FromImage(img image.Image) (*Buffer, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrUnsupportedFormat)
	}
	b := img.Bounds()
	buf, err := NewBuffer(b.Dx(), b.Dy(), 4)
	if err != nil {
		return nil, err
	}
	if src, ok := img.(*image.NRGBA); ok {
		for y := 0; y < buf.H; y++ {
			si := src.PixOffset(b.Min.X, b.Min.Y+y)
			di := y * buf.W * 4
			copy(buf.Pix[di:di+buf.W*4], src.Pix[si:si+buf.W*4])
		}
		return buf, nil
	}
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			buf.Pix[i] = c.R
			buf.Pix[i+1] = c.G
			buf.Pix[i+2] = c.B
			buf.Pix[i+3] = c.A
			i += 4
		}
	}
	return buf, nil
}

// Image converts the buffer back to a standard library image. 3-channel
// buffers come out fully opaque.
func (b *Buffer) Image() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, b.W, b.H))
	if b.Channels == 4 {
		copy(out.Pix, b.Pix)
		return out
	}
	si := 0
	for di := 0; di < len(out.Pix); di += 4 {
		out.Pix[di] = b.Pix[si]
		out.Pix[di+1] = b.Pix[si+1]
		out.Pix[di+2] = b.Pix[si+2]
		out.Pix[di+3] = 0xFF
		si += 3
	}
	return out
}

func (b *Buffer) offset(x, y int) int {
	return (y*b.W + x) * b.Channels
}

func (b *Buffer) validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrUnsupportedFormat)
	}
	if b.Channels != 3 && b.Channels != 4 {
		return fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, b.Channels)
	}
	if b.W <= 0 || b.H <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrUnsupportedFormat, b.W, b.H)
	}
	if b.W > maxImagePixels/b.H {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrResourceExhaustion, b.W, b.H, maxImagePixels)
	}
	if len(b.Pix) != b.W*b.H*b.Channels {
		return fmt.Errorf("%w: pixel slice length %d does not match %dx%dx%d",
			ErrUnsupportedFormat, len(b.Pix), b.W, b.H, b.Channels)
	}
	return nil
}
