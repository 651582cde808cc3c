package image2nord_test

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/zp33dy/image2nord"
)

func ExampleEngine_RemapImage() {
	eng, err := image2nord.New(image2nord.DefaultOptions())
	if err != nil {
		return
	}
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF})
	img.SetNRGBA(1, 1, color.NRGBA{R: 0x30, G: 0x34, B: 0x3F, A: 0xFF})

	out, err := eng.RemapImage(context.Background(), img)
	if err != nil {
		return
	}
	fmt.Printf("%dx%d\n", out.Rect.Dx(), out.Rect.Dy())
	// Output: 2x2
}

func ExamplePalette_NearestRGB() {
	pal, err := image2nord.NewPalette()
	if err != nil {
		return
	}
	id := pal.NearestRGB(0xEC, 0xEF, 0xF4, image2nord.AllEntries)
	fmt.Println(id)
	// Output: nord6
}
