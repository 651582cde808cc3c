package image2nord

import (
	"fmt"
	"log/slog"
	"time"
)

const defaultSegmentTimeout = 10 * time.Second

// Options configures an Engine. The zero value is a valid configuration: a
// pure nearest-color mapper with dithering and segmentation off.
type Options struct {
	// Dither scales how much quantization error diffuses to neighboring
	// pixels, from 0 (off) to 1 (full Floyd-Steinberg).
	Dither float32

	// Segmentation routes pixels to class-specific palette subsets using
	// Model. When Model is nil the built-in linear model is used.
	Segmentation bool
	Model        Model
	// SegmentTimeout bounds a single inference call. 0 means no limit.
	SegmentTimeout time.Duration
	// RefineRegions snaps segmentation labels to superpixel boundaries,
	// trading extra work for cleaner region edges.
	RefineRegions bool
	// Superpixels is the approximate region count for refinement. 0 picks a
	// default.
	Superpixels int

	// Affinities overrides the class-to-subset routing table. Classes
	// missing from the map may use the full palette.
	Affinities map[Class]EntrySet

	// Workers caps concurrently processed images in RemapAll. 0 means
	// GOMAXPROCS.
	Workers int

	// Logger receives pipeline diagnostics. nil silences them.
	Logger *slog.Logger

	// OnProgress, when set, is called after each stage of a single remap.
	// Callbacks arrive from the goroutine running that remap.
	OnProgress func(stage Stage, done, total int)
}

// DefaultOptions returns the settings the command line tool starts from:
// full dithering, segmentation off.
func DefaultOptions() Options {
	return Options{
		Dither:         defaultDither,
		SegmentTimeout: defaultSegmentTimeout,
		Superpixels:    defaultSuperpixels,
	}
}

// DefaultAffinities returns the stock class routing: skies and water stay on
// the cool side of the palette, foliage leans on the green and yellow
// accents, skin tones on the warm ones. Unknown and built pixels may use the
// whole palette.
func DefaultAffinities() map[Class]EntrySet {
	return map[Class]EntrySet{
		ClassUnknown: AllEntries,
		ClassSky:     PolarNight | SnowStorm | Frost,
		ClassFoliage: PolarNight | Entries(Nord7, Nord13, Nord14),
		ClassSkin:    PolarNight | SnowStorm | Entries(Nord11, Nord12, Nord13, Nord15),
		ClassWater:   PolarNight | SnowStorm | Frost,
		ClassBuilt:   AllEntries,
	}
}

func (o *Options) validate() error {
	if o.Dither < 0 || o.Dither > 1 {
		return fmt.Errorf("%w: dither strength %v outside [0,1]", ErrConfiguration, o.Dither)
	}
	if o.SegmentTimeout < 0 {
		return fmt.Errorf("%w: negative segment timeout", ErrConfiguration)
	}
	if o.Superpixels < 0 {
		return fmt.Errorf("%w: negative superpixel count", ErrConfiguration)
	}
	if o.Workers < 0 {
		return fmt.Errorf("%w: negative worker count", ErrConfiguration)
	}
	for class, set := range o.Affinities {
		if int(class) >= numClasses {
			return fmt.Errorf("%w: affinity for unknown class %d", ErrConfiguration, uint8(class))
		}
		if set == 0 {
			return fmt.Errorf("%w: empty palette subset for class %s", ErrConfiguration, class)
		}
	}
	return nil
}
