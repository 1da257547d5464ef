package console

import (
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"omphalos/internal/arch"
	"omphalos/internal/heap"
	"omphalos/internal/klog"
	"omphalos/internal/task"
)

// ringCapacity is the fixed size of the log-record ring buffer. Overflow
// is a fatal assertion.
const ringCapacity = 16

// consoleStackSize is the stack reserved for the console's own scheduler
// task — the dedicated thread that owns Pump.
const consoleStackSize = 4096

const (
	charWidth  = 8
	linePitch  = 16
)

// Console is the line-buffered text renderer: a ring buffer fed by the
// kernel logger on one side, and a pixel sink redrawn from the current
// line list on the other.
type Console struct {
	sink  Sink
	lines []string
	rows  int
	cols  int
	dirty atomic.Bool

	ring      [ringCapacity]string
	ringHead  int
	ringCount int
}

var active *Console

// Init takes ownership of sink, wires the logger's print hook to this
// console's ring buffer, registers a dedicated scheduler task for the
// console out of region so it actually participates in round-robin
// alongside every other kernel thread, and returns the Console. Calling
// Init a second time without a matching reset panics — the logger print
// hook, like the TaskManager, is a process-global singleton.
//
// region may be nil, and no task is registered if the scheduler hasn't
// been started yet (task.Initialized reports false) — both cases are for
// tests that only exercise the ring buffer/redraw logic standalone. A
// booted kernel always starts the scheduler before calling Init, so this
// path is not taken in normal operation.
func Init(sink Sink, region *heap.Region) *Console {
	if active != nil {
		panic("console: Init called more than once")
	}

	box := sink.BoundingBox()
	c := &Console{
		sink: sink,
		cols: box.Width / charWidth,
		rows: box.Height / linePitch,
	}
	active = c

	klog.SetHook(func(level logrus.Level, line string) {
		c.pushRing(line)
	})

	if region != nil && task.Initialized() {
		if ctx := arch.CreateThread(region, 0, 0, consoleStackSize); ctx != nil {
			task.CreateProcess("console", task.NewThread(ctx))
		} else {
			klog.Warnf("console: no stack space to register a scheduler task; log pump runs unscheduled")
		}
	}

	return c
}

// pushRing appends line to the ring buffer under a critical section.
// Overflow (more than ringCapacity unconsumed records) is fatal.
func (c *Console) pushRing(line string) {
	arch.Critical(func() {
		if c.ringCount == ringCapacity {
			panic("console: log ring buffer overflow")
		}
		idx := (c.ringHead + c.ringCount) % ringCapacity
		c.ring[idx] = line
		c.ringCount++
	})
}

// popRing removes and returns the oldest pending record, or ("", false)
// if the ring is empty.
func (c *Console) popRing() (string, bool) {
	if c.ringCount == 0 {
		return "", false
	}
	line := c.ring[c.ringHead]
	c.ringHead = (c.ringHead + 1) % ringCapacity
	c.ringCount--
	return line, true
}

// Pump drains the ring buffer into the line list — wrapping at cols-1 or
// on '\n', evicting from the front once more than rows lines accumulate —
// then, if anything changed, clears and redraws the sink. This is the
// body the console's dedicated task loops on forever.
//
// The ring-buffer drain and the sink redraw are two separate critical
// sections, so a slow Sink.DrawIter never blocks klog producers.
func (c *Console) Pump() {
	changed := false
	arch.Critical(func() {
		for {
			line, ok := c.popRing()
			if !ok {
				break
			}
			c.appendLine(line)
			changed = true
		}
	})
	if changed {
		c.dirty.Store(true)
	}

	if c.dirty.CompareAndSwap(true, false) {
		c.redraw()
	}
}

// appendLine wraps line at cols-1 (or on '\n') into the line list,
// evicting from the front once the list exceeds rows entries.
func (c *Console) appendLine(line string) {
	wrapAt := c.cols - 1
	if wrapAt < 1 {
		wrapAt = 1
	}

	for _, segment := range strings.Split(line, "\n") {
		for len(segment) > wrapAt {
			c.lines = append(c.lines, segment[:wrapAt])
			segment = segment[wrapAt:]
		}
		c.lines = append(c.lines, segment)
	}

	if c.rows > 0 {
		for len(c.lines) > c.rows {
			c.lines = c.lines[1:]
		}
	}
}

// redraw clears the sink and redraws every retained line top-to-bottom on
// an 8-pixel-wide monospaced font over a 16-pixel line pitch.
func (c *Console) redraw() {
	c.sink.Clear(0)
	for i, line := range c.lines {
		drawText(c.sink, 0, (i+1)*linePitch, line)
	}
}

// Lines returns a copy of the currently retained line list, for tests.
func (c *Console) Lines() []string {
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}

// reset tears the console singleton down. Only for tests.
func reset() { active = nil }
