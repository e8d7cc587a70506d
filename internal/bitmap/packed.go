// Package bitmap packs 1-bit label images into the row-padded, MSB-first
// byte layout thermal printheads consume.
package bitmap

import "fmt"

const bitsPerWord = 8

// Source is any readable 1-bit image. Bit returns 0 or 1.
type Source interface {
	Width() int
	Height() int
	Bit(x, y int) byte
}

// Packed is a bitmap packed 8 pixels per byte, each row padded to a whole
// number of bytes (the stride).
type Packed struct {
	data   []byte
	width  int
	height int
	stride int
}

func (p *Packed) Width() int  { return p.width }
func (p *Packed) Height() int { return p.height }
func (p *Packed) Stride() int { return p.stride }
func (p *Packed) Data() []byte { return p.data }

func (p *Packed) Bit(x, y int) byte {
	return (p.data[y*p.stride+x/bitsPerWord] >> (bitsPerWord - 1 - x%bitsPerWord)) & 1
}

func (p *Packed) String() string {
	return fmt.Sprintf("Packed(%dx%d)", p.width, p.height)
}

// Chunk takes a horizontal slice of rows [start, start+height), sharing the
// underlying data. Printheads accept a bounded number of rows per raster
// command, so large bitmaps are sent as a sequence of chunks.
func (p *Packed) Chunk(start, height int) *Packed {
	return &Packed{
		data:   p.data[p.stride*start : p.stride*(start+height)],
		width:  p.width,
		height: height,
		stride: p.stride,
	}
}

// Pack copies src into the packed wire layout. Bits are placed MSB-first so
// a row narrower than its padded width leaves the trailing pad bits zero.
func Pack(src Source) *Packed {
	width, height := src.Width(), src.Height()
	stride := (width + bitsPerWord - 1) / bitsPerWord
	data := make([]byte, stride*height)

	for y := 0; y < height; y++ {
		row := y * stride
		for x := 0; x < width; x++ {
			if src.Bit(x, y) != 0 {
				data[row+x/bitsPerWord] |= 1 << (bitsPerWord - 1 - x%bitsPerWord)
			}
		}
	}

	return &Packed{data: data, width: width, height: height, stride: stride}
}
