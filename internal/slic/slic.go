// Package slic partitions a CIE Lab image plane into compact superpixel
// regions using simple linear iterative clustering.
package slic

import "math"

// Map assigns every pixel of a W x H image to one of N regions.
type Map struct {
	W, H    int
	N       int     // number of regions
	Regions []int32 // len == W*H, region index per pixel, in [0,N)
}

// kIterations is the fixed number of assignment/update rounds. SLIC
// converges quickly; ten rounds is the customary budget.
const kIterations = 10

// compactness balances color distance against spatial distance. It assumes
// L in [0,100].
const compactness = 40.0

type center struct {
	l, a, b, cx, cy float64
}

// Segment clusters the interleaved Lab plane (len == w*h*3, L in [0,100])
// into roughly count compact regions and returns the per-pixel assignment.
// The result is deterministic for a given input.
func Segment(labPix []float32, w, h, count int) *Map {
	if w <= 0 || h <= 0 || len(labPix) < w*h*3 {
		return &Map{W: w, H: h}
	}
	if count <= 0 {
		count = 1
	}
	step := int(math.Sqrt(float64(w*h) / float64(count)))
	if step < 1 {
		step = 1
	}

	centers := seedCenters(labPix, w, h, step)
	clusters := make([]int32, w*h)
	dist := make([]float64, w*h)

	for it := 0; it < kIterations; it++ {
		for i := range clusters {
			clusters[i] = -1
			dist[i] = math.MaxFloat64
		}
		assign(labPix, w, h, step, centers, clusters, dist)
		recenter(labPix, w, h, centers, clusters)
	}

	regions, n := enforceConnectivity(clusters, w, h, len(centers))
	return &Map{W: w, H: h, N: n, Regions: regions}
}

// seedCenters lays centers on a regular grid, nudging each to the lowest
// local gradient in its 3x3 neighborhood so seeds avoid edges.
func seedCenters(labPix []float32, w, h, step int) []center {
	var centers []center
	for cy := step; cy < h-step/2; cy += step {
		for cx := step; cx < w-step/2; cx += step {
			minGrad := math.MaxFloat64
			lx, ly := cx, cy
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := cx+dx, cy+dy
					if nx < 0 || nx >= w-1 || ny < 0 || ny >= h-1 {
						continue
					}
					here := float64(labPix[(ny*w+nx)*3])
					below := float64(labPix[((ny+1)*w+nx)*3])
					right := float64(labPix[(ny*w+nx+1)*3])
					grad := math.Abs(below-here) + math.Abs(right-here)
					if grad < minGrad {
						minGrad = grad
						lx, ly = nx, ny
					}
				}
			}
			off := (ly*w + lx) * 3
			centers = append(centers, center{
				l:  float64(labPix[off]),
				a:  float64(labPix[off+1]),
				b:  float64(labPix[off+2]),
				cx: float64(lx),
				cy: float64(ly),
			})
		}
	}
	if len(centers) == 0 {
		cx, cy := w/2, h/2
		off := (cy*w + cx) * 3
		centers = append(centers, center{
			l:  float64(labPix[off]),
			a:  float64(labPix[off+1]),
			b:  float64(labPix[off+2]),
			cx: float64(cx),
			cy: float64(cy),
		})
	}
	return centers
}

func assign(labPix []float32, w, h, step int, centers []center, clusters []int32, dist []float64) {
	ns := float64(step)
	for ci := range centers {
		c := &centers[ci]
		x0 := int(c.cx) - step
		x1 := int(c.cx) + step
		y0 := int(c.cy) - step
		y1 := int(c.cy) + step
		if x0 < 0 {
			x0 = 0
		}
		if x1 > w {
			x1 = w
		}
		if y0 < 0 {
			y0 = 0
		}
		if y1 > h {
			y1 = h
		}
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				off := (y*w + x) * 3
				dl := float64(labPix[off]) - c.l
				da := float64(labPix[off+1]) - c.a
				db := float64(labPix[off+2]) - c.b
				dx := float64(x) - c.cx
				dy := float64(y) - c.cy
				dc := dl*dl + da*da + db*db
				ds := dx*dx + dy*dy
				d := dc/(compactness*compactness) + ds/(ns*ns)
				pi := y*w + x
				if d < dist[pi] {
					dist[pi] = d
					clusters[pi] = int32(ci)
				}
			}
		}
	}
}

func recenter(labPix []float32, w, h int, centers []center, clusters []int32) {
	type acc struct {
		l, a, b, sx, sy float64
		n               int
	}
	sums := make([]acc, len(centers))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			ci := clusters[y*w+x]
			if ci < 0 {
				continue
			}
			off := (y*w + x) * 3
			sums[ci].l += float64(labPix[off])
			sums[ci].a += float64(labPix[off+1])
			sums[ci].b += float64(labPix[off+2])
			sums[ci].sx += float64(x)
			sums[ci].sy += float64(y)
			sums[ci].n++
		}
	}
	for ci := range centers {
		if sums[ci].n == 0 {
			continue
		}
		n := float64(sums[ci].n)
		centers[ci] = center{
			l:  sums[ci].l / n,
			a:  sums[ci].a / n,
			b:  sums[ci].b / n,
			cx: sums[ci].sx / n,
			cy: sums[ci].sy / n,
		}
	}
}

// enforceConnectivity flood-fills the raw assignment into connected regions
// with dense labels, absorbing fragments well below the expected region size
// into an adjacent region.
func enforceConnectivity(clusters []int32, w, h, centerCount int) ([]int32, int) {
	minSize := (w * h) / centerCount
	if minSize < 1 {
		minSize = 1
	}
	dx4 := [4]int{-1, 0, 1, 0}
	dy4 := [4]int{0, -1, 0, 1}

	regions := make([]int32, w*h)
	for i := range regions {
		regions[i] = -1
	}
	label := int32(0)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			start := y*w + x
			if regions[start] != -1 {
				continue
			}
			regions[start] = label
			adj := label
			for k := 0; k < 4; k++ {
				nx, ny := x+dx4[k], y+dy4[k]
				if nx >= 0 && nx < w && ny >= 0 && ny < h {
					if v := regions[ny*w+nx]; v >= 0 {
						adj = v
						break
					}
				}
			}
			elems := make([]int, 1, 64)
			elems[0] = start
			for c := 0; c < len(elems); c++ {
				cur := elems[c]
				cx := cur % w
				cy := cur / w
				for k := 0; k < 4; k++ {
					nx, ny := cx+dx4[k], cy+dy4[k]
					if nx >= 0 && nx < w && ny >= 0 && ny < h {
						ni := ny*w + nx
						if regions[ni] == -1 && clusters[cur] == clusters[ni] {
							regions[ni] = label
							elems = append(elems, ni)
						}
					}
				}
			}
			if len(elems) <= minSize>>2 && adj != label {
				for _, e := range elems {
					regions[e] = adj
				}
				label--
			}
			label++
		}
	}
	return regions, int(label)
}
