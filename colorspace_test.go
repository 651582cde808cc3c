package image2nord

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestLabRoundTrip(t *testing.T) {
	// Sample the sRGB cube on a coarse grid plus the exact channel extremes.
	vals := []uint8{0, 1, 51, 102, 128, 153, 204, 254, 255}
	for _, r := range vals {
		for _, g := range vals {
			for _, b := range vals {
				l, la, lb := rgbToLab(r, g, b)
				rr, rg, rb := labToRGB(l, la, lb)
				if absDiff(r, rr) > 1 || absDiff(g, rg) > 1 || absDiff(b, rb) > 1 {
					t.Fatalf("round trip #%02X%02X%02X became #%02X%02X%02X", r, g, b, rr, rg, rb)
				}
			}
		}
	}
}

func TestLabRoundTripPalette(t *testing.T) {
	p, err := NewPalette()
	if err != nil {
		t.Fatalf("new palette: %v", err)
	}

	for id := Nord0; id < NumEntries; id++ {
		e := p.Entry(id)
		r, g, b := labToRGB(e.L, e.A, e.B)
		if absDiff(e.RGB.R, r) > 1 || absDiff(e.RGB.G, g) > 1 || absDiff(e.RGB.B, b) > 1 {
			t.Fatalf("%s: round trip #%02X%02X%02X became #%02X%02X%02X",
				id, e.RGB.R, e.RGB.G, e.RGB.B, r, g, b)
		}
	}
}

func TestGraysStayNeutral(t *testing.T) {
	// The sRGB matrix and the reference white disagree in the far decimals,
	// so grays keep a tiny residual chroma.
	for _, v := range []uint8{0, 32, 96, 160, 224, 255} {
		_, a, b := rgbToLab(v, v, v)
		if a > 0.05 || a < -0.05 || b > 0.05 || b < -0.05 {
			t.Fatalf("gray %d has chroma (%f,%f)", v, a, b)
		}
	}

	if l, _, _ := rgbToLab(255, 255, 255); l < 99.9 || l > 100.1 {
		t.Fatalf("white lightness %f", l)
	}

	if l, _, _ := rgbToLab(0, 0, 0); l > 0.1 || l < -0.1 {
		t.Fatalf("black lightness %f", l)
	}
}

func TestClampLab(t *testing.T) {
	l, a, b := clampLab(-5, 300, -300)
	if l != 0 || a != 128 || b != -128 {
		t.Fatalf("clamp produced (%f,%f,%f)", l, a, b)
	}

	l, a, b = clampLab(50, -10, 10)
	if l != 50 || a != -10 || b != 10 {
		t.Fatalf("clamp altered in-range values (%f,%f,%f)", l, a, b)
	}
}

func TestBufferLabRoundTrip(t *testing.T) {
	for _, channels := range []int{3, 4} {
		src, err := NewBuffer(4, 3, channels)
		if err != nil {
			t.Fatalf("new buffer: %v", err)
		}

		for i := 0; i < len(src.Pix); i++ {
			src.Pix[i] = uint8(i * 19)
		}

		lab, err := toLab(src)
		if err != nil {
			t.Fatalf("to lab: %v", err)
		}

		if lab.W != src.W || lab.H != src.H || len(lab.Pix) != src.W*src.H*3 {
			t.Fatalf("lab plane shape %dx%d len %d", lab.W, lab.H, len(lab.Pix))
		}

		out, err := fromLab(lab, channels)
		if err != nil {
			t.Fatalf("from lab: %v", err)
		}

		for y := 0; y < src.H; y++ {
			for x := 0; x < src.W; x++ {
				si := src.offset(x, y)
				for c := 0; c < 3; c++ {
					if absDiff(src.Pix[si+c], out.Pix[si+c]) > 1 {
						t.Fatalf("channels=%d pixel (%d,%d) channel %d: %d became %d",
							channels, x, y, c, src.Pix[si+c], out.Pix[si+c])
					}
				}
			}
		}
	}
}

func TestNewBufferRejectsBadShapes(t *testing.T) {
	if _, err := NewBuffer(4, 4, 2); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format for 2 channels, got %v", err)
	}

	if _, err := NewBuffer(0, 4, 3); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format for zero width, got %v", err)
	}

	if _, err := NewBuffer(1<<15, 1<<15, 3); !errors.Is(err, ErrResourceExhaustion) {
		t.Fatalf("expected resource exhaustion, got %v", err)
	}
}

func TestBufferValidateLength(t *testing.T) {
	b := &Buffer{W: 2, H: 2, Channels: 3, Pix: make([]uint8, 5)}
	if err := b.validate(); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format for short pixel slice, got %v", err)
	}

	var nb *Buffer
	if err := nb.validate(); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format for nil buffer, got %v", err)
	}
}

func TestFromImage(t *testing.T) {
	if _, err := FromImage(nil); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format for nil image, got %v", err)
	}

	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for i := 0; i < len(src.Pix); i++ {
		src.Pix[i] = uint8(i * 7)
	}

	buf, err := FromImage(src)
	if err != nil {
		t.Fatalf("from image: %v", err)
	}

	if buf.W != 3 || buf.H != 2 || buf.Channels != 4 {
		t.Fatalf("unexpected buffer shape %dx%dx%d", buf.W, buf.H, buf.Channels)
	}

	for i := 0; i < len(src.Pix); i++ {
		if buf.Pix[i] != src.Pix[i] {
			t.Fatalf("pixel byte %d: %d != %d", i, buf.Pix[i], src.Pix[i])
		}
	}

	// Non-NRGBA sources go through the generic conversion path. Opaque
	// pixels survive it exactly.
	rgba := image.NewRGBA(image.Rect(0, 0, 2, 2))
	rgba.SetRGBA(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	rgba.SetRGBA(1, 0, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	rgba.SetRGBA(0, 1, color.RGBA{R: 0, G: 0, B: 0, A: 255})
	rgba.SetRGBA(1, 1, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	buf, err = FromImage(rgba)
	if err != nil {
		t.Fatalf("from rgba image: %v", err)
	}

	if buf.Pix[0] != 10 || buf.Pix[1] != 20 || buf.Pix[2] != 30 || buf.Pix[3] != 255 {
		t.Fatalf("unexpected first pixel %v", buf.Pix[:4])
	}
}

func TestBufferImage(t *testing.T) {
	b3, err := NewBuffer(2, 1, 3)
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}

	b3.Pix = []uint8{10, 20, 30, 40, 50, 60}

	img := b3.Image()
	want := []uint8{10, 20, 30, 255, 40, 50, 60, 255}
	for i, v := range want {
		if img.Pix[i] != v {
			t.Fatalf("3-channel image byte %d: %d != %d", i, img.Pix[i], v)
		}
	}

	b4, err := NewBuffer(1, 1, 4)
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}

	b4.Pix = []uint8{1, 2, 3, 128}

	img = b4.Image()
	if img.Pix[3] != 128 {
		t.Fatalf("alpha lost: %v", img.Pix)
	}
}
