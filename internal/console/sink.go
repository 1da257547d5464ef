// Package console implements the line-buffered text renderer and the
// pixel-sink / driver contracts it is the sole consumer of in this scope.
package console

import "iter"

// Color is an RGB565 pixel value.
type Color uint16

// Point is a pixel coordinate in a Sink's address space.
type Point struct{ X, Y int }

// Rectangle is an origin plus a size.
type Rectangle struct {
	Origin Point
	Width  int
	Height int
}

// Contains reports whether p falls within r.
func (r Rectangle) Contains(p Point) bool {
	return p.X >= r.Origin.X && p.X < r.Origin.X+r.Width &&
		p.Y >= r.Origin.Y && p.Y < r.Origin.Y+r.Height
}

// Sink is the pixel-sink contract the console draws onto. Implementations
// never fail: points outside the bounding box are silently clipped by
// DrawIter.
type Sink interface {
	// BoundingBox is stable for the lifetime of the sink.
	BoundingBox() Rectangle
	// DrawIter consumes a finite sequence of (point, color) pairs.
	DrawIter(pixels iter.Seq2[Point, Color])
	// Clear fills the entire bounding box with color.
	Clear(color Color)
}
