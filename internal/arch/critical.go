// Package arch is the portable stand-in for the "architecture interface"
// the scheduler and allocator are specified against: a thread-context
// primitive, a critical-section primitive ("all interrupts masked on this
// core"), and the timer/yield machinery that drives preemption. None of
// it talks to real hardware — on this host, a goroutine is the closest
// thing to a hardware thread of execution, a mutex is the closest thing
// to masking interrupts, and a time.Ticker is the closest thing to a
// periodic timer device.
package arch

import "sync"

var criticalMu sync.Mutex

// Critical holds all interrupts masked on this core for the duration of
// fn's execution. Every access to the allocator's free list, the
// TaskManager, the current-context cell and the console's line list goes
// through this.
func Critical(fn func()) {
	criticalMu.Lock()
	defer criticalMu.Unlock()
	fn()
}

// WithCritical is Critical for callers that need to return a value out of
// the masked section.
func WithCritical[T any](fn func() T) T {
	criticalMu.Lock()
	defer criticalMu.Unlock()
	return fn()
}
