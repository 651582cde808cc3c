package image2nord

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"runtime"
	"sync"
)

// Stage identifies a phase of a single image remap, in pipeline order.
type Stage int

const (
	StageConvert Stage = iota // sRGB to Lab conversion
	StageSegment              // model inference and label map construction
	StageMap                  // palette resolution and dithering
	StageEncode               // palette indexes to output buffer
)

var stageNames = [...]string{"convert", "segment", "map", "encode"}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Engine remaps images onto the Nord palette. It is immutable after New and
// safe for concurrent use.
type Engine struct {
	opts     Options
	pal      *Palette
	affinity [numClasses]EntrySet
	seg      *segmenter // nil when segmentation is off
	log      *slog.Logger
}

// New validates opts and builds an engine around a freshly constructed
// palette.
func New(opts Options) (*Engine, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	pal, err := NewPalette()
	if err != nil {
		return nil, err
	}
	e := &Engine{opts: opts, pal: pal, log: opts.Logger}
	if e.log == nil {
		e.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	affinities := opts.Affinities
	if affinities == nil {
		affinities = DefaultAffinities()
	}
	for i := range e.affinity {
		e.affinity[i] = AllEntries
	}
	for class, set := range affinities {
		e.affinity[class] = set
	}

	if opts.Segmentation {
		m := opts.Model
		if m == nil {
			m = NewLinearModel()
		}
		if k := m.Classes(); k <= 0 || k > numClasses {
			return nil, fmt.Errorf("%w: model scores %d classes, engine understands %d", ErrConfiguration, k, numClasses)
		}
		e.seg = &segmenter{
			model:       m,
			timeout:     opts.SegmentTimeout,
			refine:      opts.RefineRegions,
			superpixels: opts.Superpixels,
		}
	}
	return e, nil
}

// Palette returns the engine's palette table.
func (e *Engine) Palette() *Palette {
	return e.pal
}

// Remap converts src into a new buffer of the same shape whose every pixel
// carries one of the 16 palette colors. The input is never modified; on
// error no output is produced.
func (e *Engine) Remap(ctx context.Context, src *Buffer) (*Buffer, error) {
	if err := src.validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	total := 3
	if e.seg != nil {
		total = 4
	}
	done := 0
	report := func(s Stage) {
		done++
		if e.opts.OnProgress != nil {
			e.opts.OnProgress(s, done, total)
		}
	}

	lab, err := toLab(src)
	if err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}
	report(StageConvert)

	var labels *LabelMap
	if e.seg != nil {
		labels, err = e.seg.segment(ctx, src, lab)
		if err != nil {
			e.log.Warn("segmentation failed, mapping without regions", "err", err)
			labels = nil
		}
		report(StageSegment)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var idx []EntryID
	if e.opts.Dither > 0 {
		idx = e.resolveSerial(lab, labels, e.opts.Dither)
	} else {
		idx = e.resolveParallel(lab, labels, e.workerCount())
	}
	report(StageMap)

	dst, err := e.writeIndexed(src, idx)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	report(StageEncode)
	return dst, nil
}

// RemapImage adapts Remap to standard library images.
func (e *Engine) RemapImage(ctx context.Context, img image.Image) (*image.NRGBA, error) {
	src, err := FromImage(img)
	if err != nil {
		return nil, err
	}
	dst, err := e.Remap(ctx, src)
	if err != nil {
		return nil, err
	}
	return dst.Image(), nil
}

// Segment runs only the segmentation stage and returns its label map.
// Unlike Remap, which falls back to unsegmented mapping, it reports model
// failures to the caller as ErrModelInference.
func (e *Engine) Segment(ctx context.Context, src *Buffer) (*LabelMap, error) {
	if e.seg == nil {
		return nil, fmt.Errorf("%w: segmentation is not enabled", ErrConfiguration)
	}
	if err := src.validate(); err != nil {
		return nil, err
	}
	lab, err := toLab(src)
	if err != nil {
		return nil, err
	}
	return e.seg.segment(ctx, src, lab)
}

// writeIndexed materializes palette indexes into an output buffer, carrying
// source alpha through untouched. Output pixels are the palette's native
// sRGB values, so no inverse conversion error creeps in.
func (e *Engine) writeIndexed(src *Buffer, idx []EntryID) (*Buffer, error) {
	dst, err := NewBuffer(src.W, src.H, src.Channels)
	if err != nil {
		return nil, err
	}
	di := 0
	for i, id := range idx {
		ent := &e.pal.entries[id]
		dst.Pix[di] = ent.RGB.R
		dst.Pix[di+1] = ent.RGB.G
		dst.Pix[di+2] = ent.RGB.B
		if src.Channels == 4 {
			dst.Pix[di+3] = src.Pix[i*4+3]
		}
		di += src.Channels
	}
	return dst, nil
}

func (e *Engine) workerCount() int {
	if e.opts.Workers > 0 {
		return e.opts.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Job is one unit of batch work.
type Job struct {
	ID  string
	Src *Buffer
}

// JobResult pairs a job ID with its outcome. Exactly one of Out and Err is
// set.
type JobResult struct {
	ID  string
	Out *Buffer
	Err error
}

// RemapAll processes jobs on a bounded worker pool and returns results in
// job order. A failing job never disturbs the others. Cancelling ctx stops
// new jobs from starting; every job that did not run gets ctx.Err().
func (e *Engine) RemapAll(ctx context.Context, jobs []Job) []JobResult {
	results := make([]JobResult, len(jobs))
	sem := make(chan struct{}, e.workerCount())
	var wg sync.WaitGroup
	for i := range jobs {
		stop := ctx.Err() != nil
		if !stop {
			select {
			case <-ctx.Done():
				stop = true
			case sem <- struct{}{}:
			}
		}
		if stop {
			for j := i; j < len(jobs); j++ {
				results[j] = JobResult{ID: jobs[j].ID, Err: ctx.Err()}
			}
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			out, err := e.Remap(ctx, jobs[i].Src)
			results[i] = JobResult{ID: jobs[i].ID, Out: out, Err: err}
			e.log.Debug("job finished", "job", jobs[i].ID, "ok", err == nil)
		}(i)
	}
	wg.Wait()
	return results
}
