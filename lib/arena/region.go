package arena

import (
	"sync"
	"unsafe"

	fastrand "github.com/detailyang/fastrand-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"korobka/lib/utils/slice"
)

/*
	Region is a bump-pointer allocator for payloads of differing sizes.
	Memory is handed out by advancing a cursor through a list of blocks;
	there is no per-allocation free. Everything comes back at once when
	the region is freed, which makes allocation nearly free and gives
	every returned address a simple lifetime rule: it is valid, and never
	moves, until the region itself is freed.

	Blocks grow geometrically from the configured block size, so a region
	that ends up holding a lot converges to a handful of large blocks
	instead of a long chain of small ones.

	A Region carries no internal locking. It is meant to be confined to
	one goroutine (typically one region per request or per interpreter);
	sharing one across goroutines requires synchronization on the caller's
	side.

	It may not be a good fit when:

	1. Individual allocations are much bigger than the block size. Those
	   get a dedicated block each and gain nothing from the region.

	2. Lifetimes are mixed: one long-lived object keeps every block of the
	   region alive. Regions want everything in them to die together.
*/

var regionStats = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "arena_region_stats",
	Help: "Aggregate stats about memory regions",
}, []string{"metric"})

var regionSummaryStats = promauto.NewSummaryVec(prometheus.SummaryOpts{
	Name: "arena_region_summary",
	Help: "Per-region stats observed at free time",
	Objectives: map[float64]float64{
		0.50: 0.05,
		0.90: 0.05,
		0.99: 0.01,
	},
}, []string{"metric"})

const (
	// DefaultBlockSize is the initial block size of a region unless
	// overridden with WithBlockSize.
	DefaultBlockSize = 1 << 20

	// blocks stop doubling once they reach this size
	maxBlockSize = 1 << 26

	samplerate = 1024
)

func shouldReport() bool {
	return fastrand.FastRand()&(samplerate-1) == 0
}

type Region struct {
	blockSize int
	nextSize  int
	blocks    [][]byte
	used      []int
	pinned    []any
}

// pool of default-sized blocks shared by all regions; oddly-sized blocks
// are never pooled
var blockpool = sync.Pool{New: func() any {
	return make([]byte, DefaultBlockSize)
}}

type RegionOption func(*Region)

// WithBlockSize sets the size of the first block; later blocks double
// from there.
func WithBlockSize(n int) RegionOption {
	return func(r *Region) {
		r.blockSize = n
		r.nextSize = n
	}
}

func NewRegion(opts ...RegionOption) *Region {
	if shouldReport() {
		regionStats.WithLabelValues("new").Add(float64(samplerate))
	}
	r := &Region{
		blockSize: DefaultBlockSize,
		nextSize:  DefaultBlockSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Allocate reserves size bytes aligned to align from the region. The
// returned memory is zeroed and its address is stable until Free or
// Reset. Never fails: if the host is out of memory the runtime aborts,
// and there is nothing useful to do about that here.
func (r *Region) Allocate(size, align int) unsafe.Pointer {
	if size <= 0 {
		return nil
	}
	report := shouldReport()
	if report {
		regionStats.WithLabelValues("alloc").Add(float64(samplerate))
	}
	if len(r.blocks) > 0 {
		if p := r.carve(len(r.blocks)-1, size, align); p != nil {
			return p
		}
	}
	// current block exhausted; append a new one sized to fit
	if report {
		regionStats.WithLabelValues("alloc_new_block").Add(float64(samplerate))
	}
	sz := r.nextSize
	if r.nextSize < maxBlockSize {
		r.nextSize *= 2
	}
	if sz < size+align {
		sz = size + align
		if report {
			regionStats.WithLabelValues("alloc_oversize").Add(float64(samplerate))
		}
	}
	var block []byte
	if sz == DefaultBlockSize {
		block = blockpool.Get().([]byte)
	} else {
		block = make([]byte, sz)
	}
	r.blocks = append(r.blocks, block)
	r.used = append(r.used, 0)
	return r.carve(len(r.blocks)-1, size, align)
}

// carve tries to cut size aligned bytes out of block i, returning nil if
// the block is too full.
func (r *Region) carve(i, size, align int) unsafe.Pointer {
	block := r.blocks[i]
	base := uintptr(unsafe.Pointer(&block[0]))
	start := r.used[i]
	if align > 1 {
		if rem := int((base + uintptr(start)) % uintptr(align)); rem != 0 {
			start += align - rem
		}
	}
	if start+size > len(block) {
		return nil
	}
	r.used[i] = start + size
	return unsafe.Pointer(&block[start])
}

// Release is the single-allocation release of the Allocator contract.
// Regions free in bulk, so it is a no-op.
func (r *Region) Release(ptr unsafe.Pointer, size int) {}

// Pin ties a garbage-collected object's lifetime to the region. The
// blocks hold raw bytes, so a Go object referenced only from region
// memory is invisible to the collector; pinning it keeps it alive until
// the region is Reset or Freed.
func (r *Region) Pin(obj any) {
	r.pinned = append(r.pinned, obj)
}

// Reset rewinds every block's cursor so the region's memory can be
// reused without going back to the runtime. All previously returned
// addresses become invalid. This is a documented contract, not something
// the region can check: the caller must guarantee no live reference
// remains.
func (r *Region) Reset() {
	for i, block := range r.blocks {
		slice.Fill(block[:r.used[i]], 0)
		r.used[i] = 0
	}
	r.pinned = nil
}

// Free returns all blocks of the region. Default-sized blocks are zeroed
// and pooled for the next region; anything else goes back to the
// runtime. The region is empty but usable afterwards.
func (r *Region) Free() {
	if shouldReport() {
		r.reportStats()
	}
	blocks := r.blocks
	r.blocks = nil
	r.used = nil
	r.pinned = nil
	r.nextSize = r.blockSize
	for _, block := range blocks {
		if len(block) != DefaultBlockSize {
			continue
		}
		// zero before pooling: a stale pointer kept alive through the
		// pool is a memory leak
		slice.Fill(block, 0)
		blockpool.Put(block)
	}
}

func (r *Region) reportStats() {
	regionSummaryStats.WithLabelValues("num_blocks").Observe(float64(len(r.blocks)))
	used, total := 0, 0
	for i := range r.blocks {
		used += r.used[i]
		total += len(r.blocks[i])
	}
	regionSummaryStats.WithLabelValues("used_bytes").Observe(float64(used))
	regionSummaryStats.WithLabelValues("allocated_bytes").Observe(float64(total))
	useFraction := float64(0)
	if total > 0 {
		useFraction = float64(used) / float64(total)
	}
	regionSummaryStats.WithLabelValues("use_fraction").Observe(useFraction)
}

// Alloc allocates a zeroed T inside the region.
//
// The region stores raw bytes: the collector does not see pointers held
// by T, so a payload that references other heap objects needs those
// referents kept alive by the host (or allocated in the region as well).
// This ideally would be a method on Region itself but go doesn't support
// generic type parameters on methods.
func Alloc[T any](r *Region) *T {
	var zero T
	p := r.Allocate(int(unsafe.Sizeof(zero)), int(unsafe.Alignof(zero)))
	return (*T)(p)
}

// AllocSlice allocates a []T of the given length and capacity inside the
// region. Same pointer-visibility caveat as Alloc.
func AllocSlice[T any](r *Region, len_, cap_ int) []T {
	if cap_ < len_ {
		cap_ = len_
	}
	if cap_ == 0 {
		return nil
	}
	var zero T
	p := r.Allocate(int(unsafe.Sizeof(zero))*cap_, int(unsafe.Alignof(zero)))
	return unsafe.Slice((*T)(p), cap_)[:len_]
}
