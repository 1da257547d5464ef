package arch

import (
	"sync"
	"time"
)

// Hooks are the scheduler's entry points the one global setup_multitasking
// installs on the real hardware: NextTask advances to the next runnable
// thread, CurrentCtx reports whichever thread's context is selected.
// Both the periodic timer and the voluntary-yield primitive funnel into
// the same switch routine built from them.
type Hooks struct {
	NextTask   func()
	CurrentCtx func() *ThreadContext
}

// liveFrame stands in for the register file physically live on the core
// at any moment — the thing an interrupt's trap-frame save/reload
// actually moves in and out of. Go has no such shared mutable hardware
// register file for goroutines to contend over, so this package-level
// cell is the stand-in, exactly as criticalMu stands in for masking
// interrupts and time.Ticker stands in for the timer device.
var liveFrame ThreadContext

// Controller owns the periodic timer goroutine standing in for the timer
// interrupt, and the software-yield channel standing in for the
// dedicated yield interrupt.
type Controller struct {
	hooks  Hooks
	ticker *time.Ticker
	yield  chan struct{}
	done   chan struct{}
	once   sync.Once
}

// SetupMultitasking installs hooks as the active scheduling globals,
// starts a periodic ticker at tickHz standing in for the timer interrupt,
// and immediately triggers one switch so the calling (kernel) thread has
// a valid saved context, matching the original's "trigger an immediate
// yield" step.
func SetupMultitasking(tickHz int, hooks Hooks) *Controller {
	c := &Controller{
		hooks: hooks,
		yield: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	if tickHz > 0 {
		c.ticker = time.NewTicker(time.Second / time.Duration(tickHz))
		go c.run()
	}

	c.switchNow()
	return c
}

func (c *Controller) run() {
	for {
		select {
		case <-c.done:
			return
		case <-c.yield:
			c.switchNow()
		case <-c.ticker.C:
			c.switchNow()
		}
	}
}

// switchNow is the routine both ISRs funnel into: save the outgoing
// thread's trap frame out of liveFrame, advance the scheduler, then
// reload the newly current thread's saved frame into liveFrame. The
// first call (from SetupMultitasking) saves into the kernel thread's
// context, giving it a valid saved frame; a nil context on either side
// is skipped.
func (c *Controller) switchNow() {
	Critical(func() {
		if before := c.hooks.CurrentCtx(); before != nil {
			before.Save(&liveFrame)
		}
		c.hooks.NextTask()
		if after := c.hooks.CurrentCtx(); after != nil {
			liveFrame.Save(after)
		}
	})
}

// LiveFrame returns the register frame currently live on the core, for
// diagnostics and tests asserting that a switch actually moved a frame.
func LiveFrame() *ThreadContext { return &liveFrame }

// Yield raises the software interrupt dedicated to voluntary yield. It is
// the single instruction thread bodies use to give up the remainder of
// their time slice.
func (c *Controller) Yield() {
	select {
	case c.yield <- struct{}{}:
	default:
	}
}

// Stop halts the periodic timer goroutine. Not part of the original
// contract (threads and the scheduler run forever) — provided only so
// tests can tear a Controller down cleanly.
func (c *Controller) Stop() {
	c.once.Do(func() {
		if c.ticker != nil {
			c.ticker.Stop()
		}
		close(c.done)
	})
}
