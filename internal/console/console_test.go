package console

import (
	"iter"
	"testing"

	"github.com/stretchr/testify/require"

	"omphalos/internal/klog"
)

// memSink is a minimal Sink of fixed size for these in-package tests;
// internal/console/imagesink imports this package, so it cannot be used
// here without an import cycle.
type memSink struct{ w, h int }

func newMemSink(w, h int) *memSink { return &memSink{w: w, h: h} }

func (s *memSink) BoundingBox() Rectangle { return Rectangle{Width: s.w, Height: s.h} }

func (s *memSink) DrawIter(pixels iter.Seq2[Point, Color]) {
	pixels(func(Point, Color) bool { return true })
}

func (s *memSink) Clear(Color) {}

func TestInitTwicePanics(t *testing.T) {
	defer reset()

	Init(newMemSink(64, 64), nil)
	require.Panics(t, func() {
		Init(newMemSink(64, 64), nil)
	})
}

func TestRingBufferOverflowIsFatal(t *testing.T) {
	defer reset()

	c := Init(newMemSink(64, 64), nil)
	for i := 0; i < ringCapacity; i++ {
		c.pushRing("line")
	}
	require.Panics(t, func() {
		c.pushRing("one too many")
	})
}

func TestPumpDrainsRingIntoLines(t *testing.T) {
	defer reset()

	sink := newMemSink(80, 64)
	c := Init(sink, nil)

	klog.Infof("hello")
	c.Pump()

	require.NotEmpty(t, c.Lines())
}

func TestLineWrapAndEviction(t *testing.T) {
	defer reset()

	sink := newMemSink(8*4, 16*2) // 4 cols, 2 rows
	c := Init(sink, nil)

	c.pushRing("abcdefgh")
	c.Pump()
	// wrapAt = cols-1 = 3: "abcdefgh" wraps into "abc","def","gh"; with
	// rows=2 only the last two survive eviction from the front.
	require.Equal(t, []string{"def", "gh"}, c.Lines())

	for i := 0; i < 5; i++ {
		c.pushRing("x")
	}
	c.Pump()
	require.LessOrEqual(t, len(c.Lines()), c.rows)
}
