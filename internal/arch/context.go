package arch

import (
	"encoding/binary"

	"omphalos/internal/heap"
)

// ThreadContext is a saved architectural register frame plus the base of
// the owning thread's stack allocation. The register file is modelled on
// the RV32 integer file, since internal/riscv's interpreter is the
// reference "architecture" this port schedules against — the scheduler
// never interprets register contents itself, it only swaps whole frames.
type ThreadContext struct {
	Regs [32]uint32
	PC   uint32

	stackBase uint32 // offset into the owning heap.Region
	stackSize uint32 // bytes requested by the caller, excluding the 4-byte header
}

// StackAllocSize is the total number of bytes reserved for a thread's
// stack, including the 4-byte header that records the allocation size for
// a future free. Stacks are never freed in current scope, but the header
// is written regardless, matching the original's bookkeeping.
func StackAllocSize(stackSize uint32) uint32 { return stackSize + 4 }

const stackAlign = 16

// CreateThread allocates a zeroed context and a 16-byte-aligned stack of
// stackSize+4 bytes from region. The first 4 bytes of the stack record the
// allocation size. The saved PC is entry; param is placed in x10 (a0),
// the RV32 ABI's first argument register. The returned stack pointer
// (x2 / sp) is the top of the usable stack, truncated to 16-byte
// alignment.
func CreateThread(region *heap.Region, entry, param, stackSize uint32) *ThreadContext {
	allocSize := StackAllocSize(stackSize)
	base := WithCritical(func() uint32 { return region.Alloc(allocSize, stackAlign) })
	if base == heap.NoAlloc {
		return nil
	}

	header := region.Bytes(base, 4)
	binary.LittleEndian.PutUint32(header, allocSize)

	top := base + 4 + stackSize
	sp := top &^ (stackAlign - 1)

	ctx := &ThreadContext{stackBase: base, stackSize: stackSize}
	ctx.PC = entry
	ctx.Regs[2] = sp
	ctx.Regs[10] = param
	return ctx
}

// StackBase reports the offset of the thread's stack allocation within
// its owning region, for diagnostics and for a future free().
func (c *ThreadContext) StackBase() uint32 { return c.stackBase }

// Save overwrites c's register frame in place with src's — the "snapshot
// the trap frame" half of a context switch.
func (c *ThreadContext) Save(src *ThreadContext) {
	c.Regs = src.Regs
	c.PC = src.PC
}
