package kernel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"omphalos/internal/console"
	"omphalos/internal/console/imagesink"
	"omphalos/internal/task"
)

type fakeDisplayDriver struct {
	console.BaseDriver
	name    string
	failErr error
}

func (d *fakeDisplayDriver) Name() string { return d.name }

func (d *fakeDisplayDriver) Start() ([]console.Resource, error) {
	if d.failErr != nil {
		return nil, d.failErr
	}
	return []console.Resource{{Display: imagesink.New(64, 32)}}, nil
}

func TestInitBringsUpHeapAndConsole(t *testing.T) {
	driver := &fakeDisplayDriver{name: "fake-display"}
	ctrl := Init(PlatformData{}, BoardData{Drivers: []console.Driver{driver}}, 0)
	defer ctrl.Stop()

	require.NotNil(t, SRAMRegion())
	require.Nil(t, PSRAMRegion())
	require.NotNil(t, ctrl)

	require.NotPanics(t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		Run(ctx, 5*time.Millisecond)
	})
}

func TestConsoleTaskParticipatesInRoundRobin(t *testing.T) {
	// A separate Init call from TestInitBringsUpHeapAndConsole's would
	// panic (the scheduler/console singletons are process-global), so
	// this asserts against the state that test already set up.
	_, tidBefore := task.CurrentIDs()
	task.NextTask()
	_, tidAfter := task.CurrentIDs()
	require.NotEqual(t, tidBefore, tidAfter, "console's registered task should be reachable by round-robin")
}

func TestDriverStartFailurePanics(t *testing.T) {
	// The panic fires while iterating drivers, before the scheduler or
	// console singletons are touched, so this is safe to run regardless
	// of whether an earlier test already initialized them.
	driver := &fakeDisplayDriver{name: "broken", failErr: errors.New("no ack from controller")}
	require.Panics(t, func() {
		Init(PlatformData{}, BoardData{Drivers: []console.Driver{driver}}, 0)
	})
}
