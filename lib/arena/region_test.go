package arena

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionAllocate(t *testing.T) {
	r := NewRegion(WithBlockSize(1 << 10))
	type allocation struct {
		ptr  unsafe.Pointer
		size int
	}
	sizes := []int{1, 7, 8, 40, 123, 512, 4096}
	allocs := make([]allocation, 0, len(sizes))
	for _, sz := range sizes {
		p := r.Allocate(sz, 8)
		require.NotNil(t, p)
		assert.Zero(t, uintptr(p)%8)
		// fill with a marker to check overlap later
		buf := unsafe.Slice((*byte)(p), sz)
		for i := range buf {
			buf[i] = byte(sz)
		}
		allocs = append(allocs, allocation{p, sz})
	}
	// every allocation must still hold its own marker: no overlap, no move
	for _, a := range allocs {
		buf := unsafe.Slice((*byte)(a.ptr), a.size)
		for i := range buf {
			assert.Equal(t, byte(a.size), buf[i])
		}
	}
	r.Free()
}

func TestRegionAlignment(t *testing.T) {
	r := NewRegion(WithBlockSize(1 << 12))
	for _, align := range []int{1, 2, 4, 8, 16, 32, 64} {
		// odd sizes force padding before the next aligned allocation
		r.Allocate(3, 1)
		p := r.Allocate(16, align)
		assert.Zero(t, uintptr(p)%uintptr(align), "align %d", align)
	}
	r.Free()
}

func TestRegionTwoBlocksScenario(t *testing.T) {
	// three 40-byte allocations against 64-byte blocks: the first fills
	// block one, the doubled second block takes the other two
	r := NewRegion(WithBlockSize(64))
	p1 := r.Allocate(40, 1)
	p2 := r.Allocate(40, 1)
	p3 := r.Allocate(40, 1)
	assert.Len(t, r.blocks, 2)
	// all three stay valid and distinct
	*(*int32)(p1) = 1
	*(*int32)(p2) = 2
	*(*int32)(p3) = 3
	assert.Equal(t, int32(1), *(*int32)(p1))
	assert.Equal(t, int32(2), *(*int32)(p2))
	assert.Equal(t, int32(3), *(*int32)(p3))
	r.Free()
}

func TestRegionOversizeAllocation(t *testing.T) {
	r := NewRegion(WithBlockSize(64))
	p := r.Allocate(1<<16, 8)
	require.NotNil(t, p)
	buf := unsafe.Slice((*byte)(p), 1<<16)
	buf[0], buf[1<<16-1] = 0xab, 0xcd
	assert.Equal(t, byte(0xab), buf[0])
	assert.Equal(t, byte(0xcd), buf[1<<16-1])
	r.Free()
}

func TestRegionReset(t *testing.T) {
	r := NewRegion(WithBlockSize(256))
	p1 := r.Allocate(64, 8)
	*(*int64)(p1) = 1234
	r.Reset()
	// cursor rewound: same address comes back, zeroed
	p2 := r.Allocate(64, 8)
	assert.Equal(t, p1, p2)
	assert.Equal(t, int64(0), *(*int64)(p2))
	r.Free()
}

func TestRegionReleaseNoop(t *testing.T) {
	r := NewRegion(WithBlockSize(256))
	p1 := r.Allocate(16, 8)
	r.Release(p1, 16)
	// release must not rewind the cursor
	p2 := r.Allocate(16, 8)
	assert.NotEqual(t, p1, p2)
	r.Free()
}

func TestRegionZeroSize(t *testing.T) {
	r := NewRegion()
	assert.Nil(t, r.Allocate(0, 8))
	assert.Nil(t, r.Allocate(-1, 8))
	assert.Len(t, r.blocks, 0)
}

func TestAllocTyped(t *testing.T) {
	type point struct{ x, y int64 }
	r := NewRegion(WithBlockSize(1 << 10))
	pts := make([]*point, 0, 100)
	for i := 0; i < 100; i++ {
		p := Alloc[point](r)
		require.NotNil(t, p)
		p.x, p.y = int64(i), int64(-i)
		pts = append(pts, p)
	}
	for i, p := range pts {
		assert.Equal(t, int64(i), p.x)
		assert.Equal(t, int64(-i), p.y)
	}
	r.Free()
}

func TestAllocSlice(t *testing.T) {
	r := NewRegion(WithBlockSize(1 << 10))
	s := AllocSlice[int64](r, 3, 10)
	assert.Len(t, s, 3)
	assert.Equal(t, 10, cap(s))
	for i := range s {
		assert.Equal(t, int64(0), s[i])
	}
	s = append(s, 42)
	assert.Equal(t, int64(42), s[3])

	assert.Nil(t, AllocSlice[byte](r, 0, 0))
	r.Free()
}
