package image2nord

// kernelTap is one error-diffusion target relative to the current pixel.
type kernelTap struct {
	dx, dy int
	weight float32
}

// floydSteinberg distributes quantization error to the four forward
// neighbors in raster order. The weights sum to exactly 1, so the error
// leaving a pixel equals the error produced there; fractions aimed outside
// the image are dropped.
var floydSteinberg = [4]kernelTap{
	{dx: 1, dy: 0, weight: 7.0 / 16},
	{dx: -1, dy: 1, weight: 3.0 / 16},
	{dx: 0, dy: 1, weight: 5.0 / 16},
	{dx: 1, dy: 1, weight: 1.0 / 16},
}

// diffuseError adds the residual at (x, y), already scaled by the dither
// strength, onto the forward neighbors in the Lab plane.
func diffuseError(lab *labImage, x, y int, dl, da, db float32) {
	if dl == 0 && da == 0 && db == 0 {
		return
	}
	for _, t := range floydSteinberg {
		nx := x + t.dx
		ny := y + t.dy
		if nx < 0 || nx >= lab.W || ny >= lab.H {
			continue
		}
		off := labOffset(lab.W, nx, ny)
		lab.Pix[off] += dl * t.weight
		lab.Pix[off+1] += da * t.weight
		lab.Pix[off+2] += db * t.weight
	}
}
