// Package imagesink is an in-memory console.Sink backed by a
// github.com/fogleman/gg drawing context over an image.RGBA backbuffer.
// It is the reference Sink used by internal/kernel's tests.
package imagesink

import (
	"image"
	"image/color"
	"iter"

	"github.com/fogleman/gg"

	"omphalos/internal/console"
)

// Sink is an in-memory pixel sink sized at construction time.
type Sink struct {
	ctx *gg.Context
	w   int
	h   int
}

// New creates a Sink of the given pixel dimensions, backed by a
// gg.Context over an image.RGBA buffer.
func New(width, height int) *Sink {
	return &Sink{ctx: gg.NewContext(width, height), w: width, h: height}
}

// BoundingBox reports the sink's fixed pixel rectangle.
func (s *Sink) BoundingBox() console.Rectangle {
	return console.Rectangle{Origin: console.Point{}, Width: s.w, Height: s.h}
}

// DrawIter writes every pixel of the sequence into the backbuffer,
// silently dropping anything outside the bounding box.
func (s *Sink) DrawIter(pixels iter.Seq2[console.Point, console.Color]) {
	box := s.BoundingBox()
	im := s.ctx.Image().(*image.RGBA)
	pixels(func(p console.Point, c console.Color) bool {
		if box.Contains(p) {
			im.Set(p.X, p.Y, rgb565ToRGBA(c))
		}
		return true
	})
}

// Clear fills the entire bounding box with color.
func (s *Sink) Clear(c console.Color) {
	s.ctx.SetColor(rgb565ToRGBA(c))
	s.ctx.Clear()
}

// Image exposes the backing RGBA image, for tests asserting on pixel
// content.
func (s *Sink) Image() *image.RGBA {
	return s.ctx.Image().(*image.RGBA)
}

func rgb565ToRGBA(c console.Color) color.RGBA {
	r5 := (c >> 11) & 0x1F
	g6 := (c >> 5) & 0x3F
	b5 := c & 0x1F
	r := uint8(r5<<3 | r5>>2)
	g := uint8(g6<<2 | g6>>4)
	b := uint8(b5<<3 | b5>>2)
	return color.RGBA{R: r, G: g, B: b, A: 0xFF}
}
