package task

import (
	"testing"

	"github.com/stretchr/testify/require"

	"omphalos/internal/arch"
	"omphalos/internal/heap"
)

func freshRegion(t *testing.T) *heap.Region {
	t.Helper()
	buf := make([]byte, 8192)
	r := heap.NewRegion(buf)
	r.AddFreeRegion(0, uint32(len(buf)))
	return r
}

func createTestContext(t *testing.T, region *heap.Region) *arch.ThreadContext {
	t.Helper()
	ctx := arch.CreateThread(region, 0, 0, 4096)
	require.NotNil(t, ctx)
	return ctx
}

func TestInitKernelTaskTwicePanics(t *testing.T) {
	defer reset()

	ctrl := InitKernelTask(0)
	defer ctrl.Stop()

	require.Panics(t, func() {
		InitKernelTask(0)
	})
}

func TestCurrentContextNeverNilAfterInit(t *testing.T) {
	defer reset()

	ctrl := InitKernelTask(0)
	defer ctrl.Stop()

	require.NotNil(t, CurrentContext())
}

func TestNextTaskStaysOnSingleThread(t *testing.T) {
	defer reset()

	ctrl := InitKernelTask(0)
	defer ctrl.Stop()

	pid, tid := CurrentIDs()
	NextTask()
	pid2, tid2 := CurrentIDs()
	require.Equal(t, pid, pid2)
	require.Equal(t, tid, tid2)
}

func TestNextTaskRoundRobinsWithinProcess(t *testing.T) {
	defer reset()

	ctrl := InitKernelTask(0)
	defer ctrl.Stop()

	region := freshRegion(t)
	extraCtx := createTestContext(t, region)
	extraThread := NewThread(extraCtx)

	_, kernelTID := CurrentIDs()
	kernelProc := instance.Processes[0]
	AddThread(kernelProc, extraThread)

	NextTask()
	_, tid := CurrentIDs()
	require.Equal(t, extraThread.ID, tid)
	require.NotEqual(t, kernelTID, tid)

	// Every thread named by current_thread_id exists in the current process.
	found := false
	for _, th := range instance.Processes[instance.currentProcessIndex].Threads {
		if th.ID == tid {
			found = true
		}
	}
	require.True(t, found)
}

func TestNextTaskRoundRobinsAcrossProcesses(t *testing.T) {
	defer reset()

	ctrl := InitKernelTask(0)
	defer ctrl.Stop()

	region := freshRegion(t)
	secondCtx := createTestContext(t, region)
	secondThread := NewThread(secondCtx)
	secondProcess := CreateProcess("worker", secondThread)

	pidBefore, _ := CurrentIDs()
	NextTask()
	pidAfter, tidAfter := CurrentIDs()

	require.NotEqual(t, pidBefore, pidAfter)
	require.Equal(t, secondProcess.ID, pidAfter)
	require.Equal(t, secondThread.ID, tidAfter)
}
