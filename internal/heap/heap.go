// Package heap implements the kernel's free-list allocator: first-fit
// search, LIFO insertion on free, no coalescing. Free-list nodes are
// written in place inside the memory they describe, exactly as the
// allocator they're cloned from does it — they are raw addresses, not Go
// values with a GC-visible pointer graph, so every access below goes
// through unsafe.Pointer/uintptr arithmetic over the region's backing
// byte slice.
package heap

import (
	"unsafe"

	"omphalos/internal/klog"
)

// noNext marks the end of the free list. It must be distinct from every
// legal node offset, including 0 — a region can legitimately be added at
// offset 0 (the start of the backing memory), so 0 cannot double as the
// empty-list/no-next sentinel the way it did in an earlier revision of
// this allocator.
const noNext = ^uint32(0)

// NoAlloc is returned by Alloc when the request cannot be satisfied. Like
// noNext, it must be distinct from every legal offset.
const NoAlloc = ^uint32(0)

// node is placed in-place at the start of every free region.
type node struct {
	size uint32
	next uint32 // offset from region base, noNext means "no next"
}

const (
	// NodeSize is the size, in bytes, of the sentinel structure threaded
	// through the free list.
	NodeSize = uint32(unsafe.Sizeof(node{}))
	// NodeAlign is the alignment required of every free-list node.
	NodeAlign = uint32(unsafe.Alignof(node{}))
)

// Region is a single contiguous span of memory managed by one free list.
// A Region is not safe for concurrent use by itself — callers serialise
// access with arch.Critical, exactly as the allocator's caller does. Region
// cannot import that critical-section primitive directly: internal/arch
// itself depends on internal/heap (to back a thread's stack allocation),
// so the lock has to be applied from the call site, not from within Alloc
// and Free, to avoid an import cycle.
type Region struct {
	mem       []byte
	base      uintptr
	headNext  uint32 // offset of first free node, noNext = empty
	allocated uint32 // bytes currently handed out, diagnostic only
}

// NewRegion creates an empty free list over buf. The caller must add at
// least one free region with AddFreeRegion before any Alloc can succeed.
func NewRegion(buf []byte) *Region {
	var base uintptr
	if len(buf) > 0 {
		base = uintptr(unsafe.Pointer(&buf[0]))
	}
	return &Region{mem: buf, base: base, headNext: noNext}
}

// NewPSRAM constructs a second heap region (external RAM).
// internal/kernel records it but allocates nothing from it; it is fully
// usable standalone through its own Alloc/Free methods.
func NewPSRAM(buf []byte) *Region { return NewRegion(buf) }

func alignUp(v, align uint32) uint32 {
	return (v + align - 1) &^ (align - 1)
}

func alignDown(v, align uint32) uint32 {
	return v &^ (align - 1)
}

func (r *Region) ptrAt(off uint32) unsafe.Pointer {
	return unsafe.Pointer(r.base + uintptr(off))
}

func (r *Region) nodeAt(off uint32) *node {
	return (*node)(r.ptrAt(off))
}

// AddFreeRegion registers [addr, addr+size) as free, linking it at the
// head of the list (LIFO, no address ordering — no coalescing with
// neighbours is attempted). addr is an offset relative to the region's
// base. A misaligned addr is a fatal assertion, matching the original's
// alignment assert. A region smaller than one node is dropped with a
// logged warning: it can never be reclaimed.
func (r *Region) AddFreeRegion(addr, size uint32) {
	if addr%NodeAlign != 0 {
		panic("heap: add_free_region: address is not node-aligned")
	}
	if size < NodeSize {
		klog.Warnf("heap: dropping free region of %d bytes at offset %#x: smaller than one node", size, addr)
		return
	}
	n := r.nodeAt(addr)
	n.size = size
	n.next = r.headNext
	r.headNext = addr
}

// foundRegion describes a free-list node once located, with its list position
// for removal.
type foundRegion struct {
	addr   uint32
	size   uint32
	prev   uint32 // offset of the node whose `next` points at addr; unused if addr is the head
	isHead bool
}

// findRegion performs a first-fit linear scan for a free region that can
// satisfy size bytes aligned to align, returning the allocation start
// offset and the free-list bookkeeping needed to unlink it.
func (r *Region) findRegion(size, align uint32) (foundRegion, uint32, bool) {
	prev := noNext
	isHead := true
	cur := r.headNext
	for cur != noNext {
		n := r.nodeAt(cur)
		allocStart := alignUp(cur, align)
		allocEnd, overflow := addOverflow(allocStart, size)
		regionEnd, overflow2 := addOverflow(cur, n.size)
		if !overflow && !overflow2 && allocEnd <= regionEnd {
			excess := regionEnd - allocEnd
			if excess == 0 || excess >= NodeSize {
				return foundRegion{addr: cur, size: n.size, prev: prev, isHead: isHead}, allocStart, true
			}
		}
		prev = cur
		isHead = false
		cur = n.next
	}
	return foundRegion{}, NoAlloc, false
}

func addOverflow(a, b uint32) (uint32, bool) {
	sum := a + b
	return sum, sum < a
}

func (r *Region) unlink(f foundRegion) {
	n := r.nodeAt(f.addr)
	if f.isHead {
		r.headNext = n.next
		return
	}
	r.nodeAt(f.prev).next = n.next
}

// sizeAlign normalises a requested (size, align) per the allocator's
// layout rules: alignment is raised to at least the node alignment, size
// is raised to at least the node size and padded to a multiple of the
// resulting alignment.
func sizeAlign(size, align uint32) (uint32, uint32) {
	if align < NodeAlign {
		align = NodeAlign
	}
	if size < NodeSize {
		size = NodeSize
	}
	size = alignUp(size, align)
	return size, align
}

// Alloc returns the offset of a newly allocated region of the requested
// size and alignment, or NoAlloc if the request cannot be satisfied. Not
// safe for concurrent use — the caller is responsible for serialising
// access (e.g. with arch.Critical), as Region's doc comment describes.
func (r *Region) Alloc(size, align uint32) uint32 {
	size, align = sizeAlign(size, align)
	found, allocStart, ok := r.findRegion(size, align)
	if !ok {
		return NoAlloc
	}
	r.unlink(found)

	regionEnd := found.addr + found.size
	allocEnd := allocStart + size
	if excess := regionEnd - allocEnd; excess > 0 {
		r.AddFreeRegion(allocEnd, excess)
	}
	r.allocated += size
	return allocStart
}

// Free re-registers [offset, offset+size) as a free region. No coalescing
// with neighbouring free regions is performed. Not safe for concurrent
// use — see Alloc.
func (r *Region) Free(offset, size uint32) {
	size, _ = sizeAlign(size, NodeAlign)
	r.AddFreeRegion(offset, size)
	if r.allocated >= size {
		r.allocated -= size
	}
}

// Bytes returns the offset's backing slice of the given length, for
// callers that need to read/write through the allocation (e.g. the
// context primitive writing a stack's header word).
func (r *Region) Bytes(offset, length uint32) []byte {
	return r.mem[offset : offset+length]
}

// Len reports the total size of the region's backing memory in bytes.
func (r *Region) Len() uint32 { return uint32(len(r.mem)) }
