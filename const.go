package image2nord

const (
	// maxImagePixels bounds single-image allocations. 268 Mpx covers 16K
	// square input while keeping the float32 Lab plane under 3.5 GiB.
	maxImagePixels = 1 << 28

	// tieEpsilon is the squared-distance window within which palette
	// candidates count as equidistant and the lowest entry ID wins.
	tieEpsilon = 1e-9
)

const (
	defaultDither      = 1.0
	defaultSuperpixels = 256
	defaultModelInput  = 64
)
