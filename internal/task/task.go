// Package task implements the round-robin scheduler: Thread, Process and
// the single TaskManager instance, per the two-level advance algorithm
// (thread within process, then process).
package task

import (
	"sync/atomic"

	"omphalos/internal/arch"
	"omphalos/internal/klog"
)

var (
	nextProcessID uint32
	nextThreadID  uint32
)

// Thread owns a context until process teardown, which never happens in
// current scope.
type Thread struct {
	ID      uint32
	Context *arch.ThreadContext
}

// NewThread allocates a fresh thread ID and wraps ctx.
func NewThread(ctx *arch.ThreadContext) *Thread {
	return &Thread{ID: atomic.AddUint32(&nextThreadID, 1) - 1, Context: ctx}
}

// Process owns an ordered sequence of threads and round-robins among them.
type Process struct {
	ID                 uint32
	Name               string
	Threads            []*Thread
	currentThreadIndex int
}

// NewProcess allocates a fresh process ID. initial must be non-nil: every
// process has at least one thread for its entire lifetime.
func NewProcess(name string, initial *Thread) *Process {
	return &Process{
		ID:      atomic.AddUint32(&nextProcessID, 1) - 1,
		Name:    name,
		Threads: []*Thread{initial},
	}
}

// CurrentThread returns the process's currently selected thread.
func (p *Process) CurrentThread() *Thread { return p.Threads[p.currentThreadIndex] }

// addThread appends a thread to the process, bracketed by the memory
// fence the original uses around every push into a task list. Go's
// memory model gives happens-before ordering for free across a mutex
// boundary, so this is a plain append guarded by the TaskManager's own
// critical section (see the package-level AddThread).
func (p *Process) addThread(t *Thread) {
	p.Threads = append(p.Threads, t)
}

// TaskManager is the single scheduler instance. Re-initialisation is a
// fatal error.
type TaskManager struct {
	Processes           []*Process
	currentProcessIndex int
	currentProcessID    uint32
	currentThreadID     uint32
}

var (
	instance    *TaskManager
	initialized bool
	currentCtx  *arch.ThreadContext
)

// InitKernelTask must be called exactly once. It wraps the
// currently-running kernel thread as a one-thread "kernel" process,
// seeds the TaskManager with it, publishes its context as current, and
// hands control to arch.SetupMultitasking. Calling it a second time
// panics.
func InitKernelTask(tickHz int) *Controller {
	if initialized {
		panic("task: InitKernelTask called more than once")
	}
	initialized = true

	// The kernel thread's frame will be populated on first preemption —
	// it is not produced via arch.CreateThread, since the kernel thread
	// is already running on its own stack.
	kernelCtx := &arch.ThreadContext{}
	kernelThread := NewThread(kernelCtx)
	kernelProcess := NewProcess("kernel", kernelThread)

	instance = &TaskManager{
		Processes:        []*Process{kernelProcess},
		currentProcessID: kernelProcess.ID,
		currentThreadID:  kernelThread.ID,
	}
	currentCtx = kernelCtx

	klog.Infof("task: kernel task initialised (process %d, thread %d)", kernelProcess.ID, kernelThread.ID)

	ctrl := arch.SetupMultitasking(tickHz, arch.Hooks{
		NextTask:   NextTask,
		CurrentCtx: currentContextLocked,
	})
	return &Controller{inner: ctrl}
}

// Controller wraps the architecture's multitasking controller so callers
// outside this package never import internal/arch directly for it.
type Controller struct{ inner *arch.Controller }

// Yield raises the voluntary-yield software interrupt.
func (c *Controller) Yield() { c.inner.Yield() }

// Stop halts the periodic timer; not part of the original contract, only
// for clean test teardown.
func (c *Controller) Stop() { c.inner.Stop() }

// reset tears the singleton down. Only for tests.
func reset() {
	instance = nil
	initialized = false
	currentCtx = nil
	nextProcessID = 0
	nextThreadID = 0
}

// CurrentContext returns the context of the thread currently selected to
// run. Never nil after InitKernelTask.
func CurrentContext() *arch.ThreadContext {
	return arch.WithCritical(func() *arch.ThreadContext { return currentCtx })
}

// Initialized reports whether InitKernelTask has run. Callers that want
// to register a task of their own (console.Init, for the console's log
// pump) check this first, since CreateProcess dereferences the
// TaskManager singleton and can't be called before it exists.
func Initialized() bool { return initialized }

// currentContextLocked is CurrentContext without taking the critical
// section itself — for arch.Hooks.CurrentCtx, which arch.Controller.
// switchNow already calls from inside its own held critical section
// (the same contract NextTask documents below).
func currentContextLocked() *arch.ThreadContext { return currentCtx }

// CurrentIDs reports the process and thread ID the scheduler is currently
// on, for diagnostics and tests.
func CurrentIDs() (processID, threadID uint32) {
	ids := arch.WithCritical(func() [2]uint32 {
		return [2]uint32{instance.currentProcessID, instance.currentThreadID}
	})
	return ids[0], ids[1]
}

// CreateProcess creates a new process owning initial as its sole thread
// and appends it to the TaskManager.
func CreateProcess(name string, initial *Thread) *Process {
	p := NewProcess(name, initial)
	arch.Critical(func() {
		instance.Processes = append(instance.Processes, p)
	})
	return p
}

// AddThread appends thread to process's thread list.
func AddThread(process *Process, thread *Thread) {
	arch.Critical(func() {
		process.addThread(thread)
	})
}

// NextTask implements the two-level round-robin advance:
//  1. Advance the thread index within the current process; if that
//     changes the selected thread, install it and return.
//  2. Otherwise advance the process index; if that changes the selected
//     process, install its current thread.
//  3. If neither changes (one process, one thread), stay put.
//
// Must be called with the TaskManager's critical section already held
// (arch.Controller.switchNow holds it for the whole routine).
func NextTask() {
	tm := instance
	proc := tm.Processes[tm.currentProcessIndex]

	before := proc.currentThreadIndex
	proc.currentThreadIndex = (proc.currentThreadIndex + 1) % len(proc.Threads)
	if proc.currentThreadIndex != before {
		installCurrent(tm, proc)
		return
	}

	beforeProc := tm.currentProcessIndex
	tm.currentProcessIndex = (tm.currentProcessIndex + 1) % len(tm.Processes)
	if tm.currentProcessIndex != beforeProc {
		installCurrent(tm, tm.Processes[tm.currentProcessIndex])
		return
	}
	// Exactly one process, one thread: remain on the current context.
}

func installCurrent(tm *TaskManager, proc *Process) {
	thread := proc.CurrentThread()
	tm.currentProcessID = proc.ID
	tm.currentThreadID = thread.ID
	currentCtx = thread.Context
}
