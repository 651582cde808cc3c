package image2nord

import "errors"

// Sentinel errors returned (possibly wrapped) by the engine. Callers should
// match them with errors.Is.
var (
	// ErrUnsupportedFormat reports an input whose shape or channel layout the
	// engine cannot process.
	ErrUnsupportedFormat = errors.New("image2nord: unsupported image format")

	// ErrModelInference reports a segmentation model failure. The remap
	// pipeline absorbs it and falls back to unsegmented mapping; it surfaces
	// only from Engine.Segment.
	ErrModelInference = errors.New("image2nord: model inference failed")

	// ErrConfiguration reports option values that cannot describe a valid
	// pipeline.
	ErrConfiguration = errors.New("image2nord: invalid configuration")

	// ErrResourceExhaustion reports an input that exceeds the per-image
	// resource limits.
	ErrResourceExhaustion = errors.New("image2nord: resource limit exceeded")
)
