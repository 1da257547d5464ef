// Package kernel wires the allocator, board drivers, scheduler and
// console together into the sequence the arch layer hands control to
// once clocks, timers, logging and the heap are ready.
package kernel

import (
	"context"
	"fmt"
	"time"

	"omphalos/internal/console"
	"omphalos/internal/heap"
	"omphalos/internal/klog"
	"omphalos/internal/task"
)

// sramHeapWords matches the board's 64K-word (256KB) SRAM heap.
const sramHeapWords = 64 * 1024

const sramHeapBytes = sramHeapWords * 4

// PlatformData is handed to Init by the arch layer once clocks, timers,
// logging and PSRAM (if any) are ready.
type PlatformData struct {
	ExternalRAMStart uint32
	ExternalRAMSize  uint32
}

// BoardData carries the board's already-constructed drivers; real boards
// build this from their own peripheral setup, board.Init() just hands
// them back in the order they should start.
type BoardData struct {
	Drivers []console.Driver
}

// Init returns the drivers ready to be started.
func (b BoardData) Init() []console.Driver { return b.Drivers }

var (
	sramRegion    *heap.Region
	psramRegion   *heap.Region
	activeConsole *console.Console
)

// SRAMRegion returns the heap region backing general-purpose allocation.
func SRAMRegion() *heap.Region { return sramRegion }

// PSRAMRegion returns the external RAM region, or nil if the platform has
// none. This region exists but is never routed to a general-purpose
// Alloc/Free entry point — callers that want it address it directly.
func PSRAMRegion() *heap.Region { return psramRegion }

// Init starts the kernel: heap allocator, board drivers, the scheduler,
// and the console (if any display resource was exposed), in that order.
// A driver that fails to start is a fatal condition, per the arch
// layer's own panic-on-driver-failure contract.
func Init(platformData PlatformData, boardData BoardData, tickHz int) *task.Controller {
	klog.Infof("OmphalOS kernel starting...")

	sramRegion = heap.NewRegion(make([]byte, sramHeapBytes))
	sramRegion.AddFreeRegion(0, sramHeapBytes)

	if platformData.ExternalRAMSize > 0 {
		psramRegion = heap.NewPSRAM(make([]byte, platformData.ExternalRAMSize))
		psramRegion.AddFreeRegion(0, platformData.ExternalRAMSize)
	}
	klog.Infof("heap allocator initialized")

	drivers := boardData.Init()
	klog.Infof("%d drivers detected for this board", len(drivers))

	var allResources []console.Resource
	for _, d := range drivers {
		klog.Infof("starting driver: %s", d.Name())
		resources, err := d.Start()
		if err != nil {
			panic(fmt.Sprintf("driver failed to start: %v", err))
		}
		klog.Infof("driver started successfully - exposed resources: %v", resources)
		allResources = append(allResources, resources...)
	}

	klog.Tracef("kernel task init")
	ctrl := task.InitKernelTask(tickHz)

	for _, r := range allResources {
		if r.Display != nil {
			activeConsole = console.Init(r.Display, sramRegion)
		}
	}

	klog.Infof("init done")
	return ctrl
}

// Run pumps the console's log-to-screen loop until ctx is cancelled,
// standing in for the arch layer's `loop {}` — actual scheduling happens
// asynchronously on the scheduler's own ticker goroutine.
func Run(ctx context.Context, pumpInterval time.Duration) {
	ticker := time.NewTicker(pumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if activeConsole != nil {
				activeConsole.Pump()
			}
		}
	}
}
