// image2nord converts images to the Nord color palette.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zp33dy/image2nord"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "convert":
		if err := runConvert(os.Args[2:]); err != nil {
			fail(err)
		}
	case "analyze":
		if err := runAnalyze(os.Args[2:]); err != nil {
			fail(err)
		}
	case "segment":
		if err := runSegment(os.Args[2:]); err != nil {
			fail(err)
		}
	case "palette":
		if err := runPalette(os.Args[2:]); err != nil {
			fail(err)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: image2nord <command> [args]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  convert -out output.png [-dither 1.0] [-auto] [-segment] [-model weights.zst] [-refine] [-v] input.png")
	fmt.Fprintln(os.Stderr, "  convert -out-dir dir [options] input1.png input2.jpg ...")
	fmt.Fprintln(os.Stderr, "  analyze input.png")
	fmt.Fprintln(os.Stderr, "  segment [-model weights.zst] [-refine] input.png")
	fmt.Fprintln(os.Stderr, "  palette [-out swatch.png] [-tile 64]")
}

type convertFlags struct {
	dither      float64
	auto        bool
	segment     bool
	modelPath   string
	timeout     time.Duration
	refine      bool
	superpixels int
	workers     int
	verbose     bool
}

func (cf *convertFlags) register(fs *flag.FlagSet) {
	fs.Float64Var(&cf.dither, "dither", 1.0, "error diffusion strength, 0 to 1")
	fs.BoolVar(&cf.auto, "auto", false, "derive settings from image statistics")
	fs.BoolVar(&cf.segment, "segment", false, "enable segmentation-aware mapping")
	fs.StringVar(&cf.modelPath, "model", "", "segmentation weights artifact (built-in weights if empty)")
	fs.DurationVar(&cf.timeout, "timeout", 10*time.Second, "segmentation inference timeout")
	fs.BoolVar(&cf.refine, "refine", false, "snap segmentation labels to superpixel regions")
	fs.IntVar(&cf.superpixels, "superpixels", 0, "approximate superpixel count for -refine")
	fs.IntVar(&cf.workers, "workers", 0, "parallel image jobs, 0 for GOMAXPROCS")
	fs.BoolVar(&cf.verbose, "v", false, "verbose logging")
}

func (cf *convertFlags) options() (image2nord.Options, error) {
	opts := image2nord.DefaultOptions()
	opts.Dither = float32(cf.dither)
	opts.Segmentation = cf.segment
	opts.SegmentTimeout = cf.timeout
	opts.RefineRegions = cf.refine
	if cf.superpixels > 0 {
		opts.Superpixels = cf.superpixels
	}
	opts.Workers = cf.workers
	opts.Logger = newLogger(cf.verbose)
	if cf.modelPath != "" {
		m, err := image2nord.LoadLinearModel(cf.modelPath)
		if err != nil {
			return opts, err
		}
		opts.Model = m
		opts.Segmentation = true
	}
	return opts, nil
}

func newLogger(verbose bool) *slog.Logger {
	lvl := slog.LevelWarn
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func runConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	outPath := fs.String("out", "", "output image")
	outDir := fs.String("out-dir", "", "output directory for batch conversion")
	var cf convertFlags
	cf.register(fs)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	inputs := fs.Args()
	if len(inputs) == 0 {
		return errors.New("missing input image")
	}
	if *outPath == "" && *outDir == "" {
		return errors.New("missing -out or -out-dir")
	}
	if *outPath != "" && len(inputs) > 1 {
		return errors.New("-out takes a single input, use -out-dir for several")
	}

	opts, err := cf.options()
	if err != nil {
		return err
	}
	if cf.auto {
		img, err := readImage(inputs[0])
		if err != nil {
			return err
		}
		auto := image2nord.OptionsForImage(image2nord.Analyze(img))
		opts.Dither = auto.Dither
	}
	eng, err := image2nord.New(opts)
	if err != nil {
		return err
	}

	if *outPath != "" {
		img, err := readImage(inputs[0])
		if err != nil {
			return err
		}
		out, err := eng.RemapImage(context.Background(), img)
		if err != nil {
			return err
		}
		return writeImage(*outPath, out, eng.Palette())
	}

	jobs := make([]image2nord.Job, 0, len(inputs))
	for _, in := range inputs {
		img, err := readImage(in)
		if err != nil {
			return fmt.Errorf("%s: %w", in, err)
		}
		src, err := image2nord.FromImage(img)
		if err != nil {
			return fmt.Errorf("%s: %w", in, err)
		}
		jobs = append(jobs, image2nord.Job{ID: in, Src: src})
	}
	results := eng.RemapAll(context.Background(), jobs)
	var failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", res.ID, res.Err)
			continue
		}
		name := strings.TrimSuffix(filepath.Base(res.ID), filepath.Ext(res.ID)) + ".png"
		dst := filepath.Join(*outDir, name)
		if err := writeImage(dst, res.Out.Image(), eng.Palette()); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(results))
	}
	return nil
}

func runAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("missing input image")
	}
	img, err := readImage(fs.Arg(0))
	if err != nil {
		return err
	}
	info := image2nord.Analyze(img)
	auto := image2nord.OptionsForImage(info)
	report := struct {
		Brightness      float64  `json:"brightness"`
		Contrast        float64  `json:"contrast"`
		ToneSpread      float64  `json:"tone_spread"`
		EffectiveColors int      `json:"effective_colors"`
		Dominant        []string `json:"dominant"`
		SuggestedDither float32  `json:"suggested_dither"`
	}{
		Brightness:      info.Brightness,
		Contrast:        info.Contrast,
		ToneSpread:      info.ToneSpread,
		EffectiveColors: info.EffectiveColors,
		SuggestedDither: auto.Dither,
	}
	for _, c := range info.Dominant {
		report.Dominant = append(report.Dominant, fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B))
	}
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(payload))
	return nil
}

func runSegment(args []string) error {
	fs := flag.NewFlagSet("segment", flag.ContinueOnError)
	var cf convertFlags
	cf.register(fs)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("missing input image")
	}
	cf.segment = true
	opts, err := cf.options()
	if err != nil {
		return err
	}
	eng, err := image2nord.New(opts)
	if err != nil {
		return err
	}
	img, err := readImage(fs.Arg(0))
	if err != nil {
		return err
	}
	src, err := image2nord.FromImage(img)
	if err != nil {
		return err
	}
	labels, err := eng.Segment(context.Background(), src)
	if err != nil {
		return err
	}
	total := labels.W * labels.H
	for class, count := range labels.Histogram() {
		fmt.Fprintf(os.Stdout, "%-8s %6.2f%%\n", class, 100*float64(count)/float64(total))
	}
	return nil
}

func runPalette(args []string) error {
	fs := flag.NewFlagSet("palette", flag.ContinueOnError)
	outPath := fs.String("out", "", "write a swatch strip image instead of text")
	tile := fs.Int("tile", 64, "swatch tile size in pixels")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	pal, err := image2nord.NewPalette()
	if err != nil {
		return err
	}
	if *outPath == "" {
		for _, e := range pal.All() {
			fmt.Fprintf(os.Stdout, "%-7s %s\n", e.ID, e.Hex())
		}
		return nil
	}
	if *tile <= 0 {
		*tile = 64
	}
	img := image.NewNRGBA(image.Rect(0, 0, *tile*image2nord.NumEntries, *tile))
	for id := image2nord.Nord0; id <= image2nord.Nord15; id++ {
		c := pal.Entry(id).RGB
		x0 := int(id) * *tile
		for y := 0; y < *tile; y++ {
			for x := x0; x < x0+*tile; x++ {
				img.SetNRGBA(x, y, c)
			}
		}
	}
	return writeImage(*outPath, img, pal)
}

func readImage(path string) (image.Image, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// paletteQuantizer pins GIF encoding to the engine palette instead of
// letting the encoder derive one.
type paletteQuantizer struct {
	pal color.Palette
}

func (q paletteQuantizer) Quantize(color.Palette, image.Image) color.Palette {
	return q.pal
}

func writeImage(path string, img image.Image, pal *image2nord.Palette) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gif":
		return gif.Encode(f, img, &gif.Options{
			NumColors: image2nord.NumEntries,
			Quantizer: paletteQuantizer{pal: pal.Colors()},
		})
	case ".jpg", ".jpeg":
		return jpeg.Encode(f, img, &jpeg.Options{Quality: 95})
	default:
		return png.Encode(f, img)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
