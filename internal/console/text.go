package console

// drawText renders line as a row of charWidth-wide, linePitch-tall glyph
// cells starting at (x, y), one DrawIter call per character. Each glyph
// is a simple filled block rather than a true bitmap font; no package
// here rasterizes actual characters onto a Sink. This function only
// proves out the "iterate pixels, let the sink clip" contract against an
// arbitrary Sink.
func drawText(sink Sink, x, y int, line string) {
	for i, ch := range line {
		if ch == ' ' {
			continue
		}
		cellX := x + i*charWidth
		drawGlyphCell(sink, cellX, y-linePitch+2, charWidth-1, linePitch-4)
	}
}

func drawGlyphCell(sink Sink, x, y, w, h int) {
	sink.DrawIter(func(yield func(Point, Color) bool) {
		for dy := 0; dy < h; dy++ {
			for dx := 0; dx < w; dx++ {
				if !yield(Point{X: x + dx, Y: y + dy}, 0xFFFF) {
					return
				}
			}
		}
	})
}
