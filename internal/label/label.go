// Package label renders text lines into a 1-bit image suitable for the
// raster print path.
package label

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/courierhq/fieldlink/internal/bitmap"
)

const (
	margin = 4
	// Gray values below this count as an inked pixel.
	inkThreshold = 0x80
)

// Image is a rendered label backed by a grayscale raster. It implements
// bitmap.Source: bit 1 means ink.
type Image struct {
	gray *image.Gray
}

func (i *Image) Width() int  { return i.gray.Bounds().Dx() }
func (i *Image) Height() int { return i.gray.Bounds().Dy() }

func (i *Image) Bit(x, y int) byte {
	if i.gray.GrayAt(x, y).Y < inkThreshold {
		return 1
	}
	return 0
}

// Render draws lines of text left-aligned onto a white backdrop of the given
// printhead width. Height follows from the line count.
func Render(lines []string, width int) (*Image, error) {
	if width <= 0 {
		return nil, fmt.Errorf("label width must be positive, got %d", width)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("label has no lines")
	}

	face := basicfont.Face7x13
	lineHeight := face.Height + 2
	height := len(lines)*lineHeight + 2*margin

	gray := image.NewGray(image.Rect(0, 0, width, height))
	for i := range gray.Pix {
		gray.Pix[i] = 0xff
	}

	drawer := font.Drawer{
		Dst:  gray,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(margin, margin+face.Ascent+i*lineHeight)
		drawer.DrawString(line)
	}

	return &Image{gray: gray}, nil
}

// Rasterize renders and packs in one step.
func Rasterize(lines []string, width int) (*bitmap.Packed, error) {
	img, err := Render(lines, width)
	if err != nil {
		return nil, err
	}
	return bitmap.Pack(img), nil
}
