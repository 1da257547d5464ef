//go:build unix

package arch

import (
	"golang.org/x/sys/unix"

	"omphalos/internal/klog"
)

// CriticalSignalMasked is an alternative critical section offered on unix
// hosts: in addition to the portable mutex in Critical, it blocks every
// signal for the calling OS thread around fn, which is the closest a
// userspace process can get to "mask all interrupts on this core." It is
// not used by the allocator/scheduler/console themselves (Critical is),
// but is available to callers that want the host not to interrupt a
// section with a delivered signal.
func CriticalSignalMasked(fn func()) {
	var full unix.Sigset_t
	for i := range full.Val {
		full.Val[i] = ^uint64(0)
	}

	var old unix.Sigset_t
	if err := unix.PthreadSigmask(unix.SIG_SETMASK, &full, &old); err != nil {
		klog.Warnf("arch: pthread_sigmask failed: %v", err)
		Critical(fn)
		return
	}
	defer func() {
		_ = unix.PthreadSigmask(unix.SIG_SETMASK, &old, nil)
	}()

	Critical(fn)
}
