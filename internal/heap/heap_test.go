package heap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocReturnsRegionStartThenAdvances(t *testing.T) {
	buf := make([]byte, 1024)
	r := NewRegion(buf)
	r.AddFreeRegion(0, 1024)

	a := r.Alloc(128, NodeAlign)
	require.Equal(t, uint32(0), a)

	b := r.Alloc(128, NodeAlign)
	require.Equal(t, uint32(128), b)

	r.Free(a, 128)

	// Freeing a leaves two nodes: the just-freed 128 bytes at a, and the
	// remaining tail starting at 256 — both reachable, neither merged.
	c := r.Alloc(128, NodeAlign)
	require.Equal(t, uint32(0), c, "LIFO insertion returns the most recently freed region first")
}

func TestAllocExhaustionReturnsNoAlloc(t *testing.T) {
	buf := make([]byte, 64)
	r := NewRegion(buf)
	r.AddFreeRegion(0, 64)

	require.NotEqual(t, NoAlloc, r.Alloc(32, NodeAlign))
	got := r.Alloc(64, NodeAlign)
	require.Equal(t, NoAlloc, got)
}

func TestAddFreeRegionDropsUndersizedRegion(t *testing.T) {
	buf := make([]byte, 64)
	r := NewRegion(buf)
	r.AddFreeRegion(0, 1) // smaller than NodeSize, silently dropped

	require.Equal(t, NoAlloc, r.Alloc(1, NodeAlign))
}

func TestAddFreeRegionMisalignedPanics(t *testing.T) {
	buf := make([]byte, 64)
	r := NewRegion(buf)

	require.Panics(t, func() {
		r.AddFreeRegion(3, 32)
	})
}

func TestFreeThenAllocRoundTrips(t *testing.T) {
	buf := make([]byte, 256)
	r := NewRegion(buf)
	r.AddFreeRegion(0, 256)

	a := r.Alloc(64, NodeAlign)
	require.NotEqual(t, NoAlloc, a)
	r.Free(a, 64)
	b := r.Alloc(64, NodeAlign)
	require.Equal(t, a, b)
}

func TestNoOverlapBetweenSimultaneouslyLiveAllocations(t *testing.T) {
	buf := make([]byte, 512)
	r := NewRegion(buf)
	r.AddFreeRegion(0, 512)

	var live []struct{ start, size uint32 }
	for i := 0; i < 4; i++ {
		start := r.Alloc(64, NodeAlign)
		require.NotEqual(t, NoAlloc, start)
		for _, l := range live {
			overlap := start < l.start+l.size && l.start < start+64
			require.False(t, overlap, "allocation overlaps a live region")
		}
		live = append(live, struct{ start, size uint32 }{start, 64})
	}
}

func TestSingleRegionScenario(t *testing.T) {
	// Scenario 6: a single 1024-byte region; two 128-byte allocations land
	// at A and A+128; freeing the first leaves two free nodes.
	buf := make([]byte, 1024)
	r := NewRegion(buf)
	r.AddFreeRegion(0, 1024)

	a := r.Alloc(128, NodeAlign)
	require.Equal(t, uint32(0), a)

	b := r.Alloc(128, NodeAlign)
	require.Equal(t, uint32(128), b)

	r.Free(a, 128)

	// head -> a (128 bytes) -> remaining tail at 256 (768 bytes)
	require.Equal(t, a, r.headNext)
	head := r.nodeAt(r.headNext)
	require.Equal(t, uint32(128), head.size)
	tail := r.nodeAt(head.next)
	require.Equal(t, uint32(1024-256), tail.size)
}
