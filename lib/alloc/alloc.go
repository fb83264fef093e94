package alloc

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

/*
	Allocator is the two-level allocation abstraction shared by the rest of
	the toolkit. An Allocator hands out raw, stably-addressed memory; it is
	up to the caller (usually a Korobka or a Value) to run destructors
	before the memory goes away.

	Two backends implement it: the default Heap allocator below, which
	frees each allocation individually on Release, and arena.Region, for
	which Release of a single allocation is a no-op because regions free
	in bulk.

	Allocation never returns an error. Memory exhaustion at this layer is
	not a recoverable condition: the runtime aborts the process, which is
	exactly the failure policy we want.
*/

type Allocator interface {
	// Allocate reserves size bytes aligned to align. The returned address
	// is stable and zeroed.
	Allocate(size, align int) unsafe.Pointer
	// Release returns a single allocation to the allocator. Implementations
	// that free in bulk may treat this as a no-op.
	Release(ptr unsafe.Pointer, size int)
}

// TypedAllocator is implemented by allocators that can hand out memory
// carrying proper pointer maps for a concrete Go type, keeping any Go
// pointers stored in the payload visible to the collector. Raw Allocate
// memory does not have that property; callers storing pointerful payloads
// should prefer this path when the allocator offers it.
type TypedAllocator interface {
	Allocator
	AllocateTyped(t reflect.Type) unsafe.Pointer
}

var heapStats = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "alloc_heap_stats",
	Help: "Live allocation counts and bytes of the default heap allocator",
}, []string{"metric"})

// Heap is the default allocator: every allocation comes from the Go
// runtime and is pinned until Release, so the raw address stays valid
// even if no traced pointer to it remains.
type Heap struct {
	mu    sync.Mutex
	live  map[unsafe.Pointer]any
	count atomic.Int64
	bytes atomic.Int64
}

var defaultHeap = &Heap{live: make(map[unsafe.Pointer]any)}

// Default returns the process-wide heap allocator.
func Default() *Heap {
	return defaultHeap
}

func (h *Heap) Allocate(size, align int) unsafe.Pointer {
	if size <= 0 {
		return nil
	}
	// runtime allocations are already 8-byte (often 16-byte) aligned;
	// over-allocate and offset for anything stricter
	buf := make([]byte, size+align)
	base := uintptr(unsafe.Pointer(&buf[0]))
	off := 0
	if align > 1 {
		off = (align - int(base)%align) % align
	}
	ptr := unsafe.Pointer(&buf[off])
	h.pin(ptr, buf, size)
	return ptr
}

func (h *Heap) AllocateTyped(t reflect.Type) unsafe.Pointer {
	v := reflect.New(t)
	ptr := unsafe.Pointer(v.Pointer())
	h.pin(ptr, v, int(t.Size()))
	return ptr
}

func (h *Heap) Release(ptr unsafe.Pointer, size int) {
	if ptr == nil {
		return
	}
	h.mu.Lock()
	_, ok := h.live[ptr]
	if ok {
		delete(h.live, ptr)
	}
	h.mu.Unlock()
	if !ok {
		zap.L().Warn("heap release of unknown pointer", zap.Uintptr("ptr", uintptr(ptr)))
		return
	}
	heapStats.WithLabelValues("live_allocs").Set(float64(h.count.Dec()))
	heapStats.WithLabelValues("live_bytes").Set(float64(h.bytes.Sub(int64(size))))
}

func (h *Heap) pin(ptr unsafe.Pointer, backing any, size int) {
	h.mu.Lock()
	h.live[ptr] = backing
	h.mu.Unlock()
	heapStats.WithLabelValues("live_allocs").Set(float64(h.count.Inc()))
	heapStats.WithLabelValues("live_bytes").Set(float64(h.bytes.Add(int64(size))))
}

// LiveAllocs reports the number of pinned heap allocations.
func (h *Heap) LiveAllocs() int64 {
	return h.count.Load()
}
