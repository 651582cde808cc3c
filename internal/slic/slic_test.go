package slic

import (
	"testing"
)

// labPlane builds an interleaved Lab plane from a per-pixel lightness
// function, leaving chroma at zero.
func labPlane(w, h int, l func(x, y int) float32) []float32 {
	pix := make([]float32, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pix[(y*w+x)*3] = l(x, y)
		}
	}
	return pix
}

func TestSegmentCoversEveryPixel(t *testing.T) {
	w, h := 32, 32
	pix := labPlane(w, h, func(x, y int) float32 {
		return float32(x+y) * 100 / float32(w+h)
	})

	m := Segment(pix, w, h, 16)
	if m.W != w || m.H != h {
		t.Fatalf("map is %dx%d", m.W, m.H)
	}
	if len(m.Regions) != w*h {
		t.Fatalf("region slice holds %d entries", len(m.Regions))
	}
	if m.N < 2 {
		t.Fatalf("expected several regions, got %d", m.N)
	}

	counts := make([]int, m.N)
	for i, r := range m.Regions {
		if r < 0 || int(r) >= m.N {
			t.Fatalf("pixel %d labeled %d outside [0,%d)", i, r, m.N)
		}
		counts[r]++
	}

	// Labels are dense: every region owns at least one pixel.
	for r, n := range counts {
		if n == 0 {
			t.Fatalf("region %d is empty", r)
		}
	}
}

func TestSegmentRegionsAreConnected(t *testing.T) {
	w, h := 32, 24
	pix := labPlane(w, h, func(x, y int) float32 {
		if x < w/2 {
			return 20
		}
		return 80
	})

	m := Segment(pix, w, h, 12)

	counts := make([]int, m.N)
	for _, r := range m.Regions {
		counts[r]++
	}

	// Flood fill from one seed per region must reach the region's full
	// pixel count.
	seen := make([]bool, w*h)
	dx4 := [4]int{-1, 0, 1, 0}
	dy4 := [4]int{0, -1, 0, 1}
	for start := 0; start < w*h; start++ {
		if seen[start] {
			continue
		}
		r := m.Regions[start]
		queue := []int{start}
		seen[start] = true
		reached := 0
		for len(queue) > 0 {
			cur := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			reached++
			cx, cy := cur%w, cur/w
			for k := 0; k < 4; k++ {
				nx, ny := cx+dx4[k], cy+dy4[k]
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				ni := ny*w + nx
				if !seen[ni] && m.Regions[ni] == r {
					seen[ni] = true
					queue = append(queue, ni)
				}
			}
		}
		if reached != counts[r] {
			t.Fatalf("region %d splits into disconnected parts: reached %d of %d", r, reached, counts[r])
		}
	}
}

func TestSegmentDeterministic(t *testing.T) {
	w, h := 24, 24
	pix := labPlane(w, h, func(x, y int) float32 {
		return float32((x*7+y*13)%100)
	})

	a := Segment(pix, w, h, 9)
	b := Segment(pix, w, h, 9)
	if a.N != b.N {
		t.Fatalf("region counts differ: %d vs %d", a.N, b.N)
	}
	for i := range a.Regions {
		if a.Regions[i] != b.Regions[i] {
			t.Fatalf("pixel %d labeled %d then %d", i, a.Regions[i], b.Regions[i])
		}
	}
}

func TestSegmentUniformImage(t *testing.T) {
	w, h := 8, 8
	pix := labPlane(w, h, func(x, y int) float32 { return 50 })

	m := Segment(pix, w, h, 1)
	if m.N != 1 {
		t.Fatalf("uniform image produced %d regions", m.N)
	}
	for i, r := range m.Regions {
		if r != 0 {
			t.Fatalf("pixel %d labeled %d", i, r)
		}
	}
}

func TestSegmentDegenerateInput(t *testing.T) {
	// Short plane: no panic, no regions.
	m := Segment(make([]float32, 5), 4, 4, 4)
	if m.N != 0 {
		t.Fatalf("short plane produced %d regions", m.N)
	}

	// Zero dimensions.
	m = Segment(nil, 0, 0, 4)
	if m.N != 0 || len(m.Regions) != 0 {
		t.Fatalf("empty plane produced %d regions", m.N)
	}

	// Non-positive region count defaults to a single region.
	pix := labPlane(4, 4, func(x, y int) float32 { return 10 })
	m = Segment(pix, 4, 4, 0)
	if m.N < 1 {
		t.Fatalf("count 0 produced %d regions", m.N)
	}
}
