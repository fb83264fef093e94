package arena

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/raulk/clock"
	"go.uber.org/atomic"

	"korobka/lib/utils/slice"
)

// Typed is a bump allocator specialized to one element type. The stride
// is fixed once by the type parameter, so there is no per-allocation
// bookkeeping at all: a block is a []T and the cursor is its length.
//
// Like Region, a Typed arena hands out addresses that stay valid and
// never move until Reset or Free, carries no internal locking beyond the
// atomic stat counters, and reclaims memory only in bulk.
type Typed[T any] struct {
	perBlock int
	blocks   [][]T
	allocs   atomic.Int64
	nblocks  atomic.Int64
}

var typedStats = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "arena_typed_stats",
	Help: "Stats about typed arenas",
}, []string{"metric", "name"})

type typedConfig struct {
	clock  clock.Clock
	report bool
}

type TypedOption func(*typedConfig)

// WithClock substitutes the clock driving the periodic stats reporter.
// Tests use a mock clock to step it deterministically.
func WithClock(c clock.Clock) TypedOption {
	return func(cfg *typedConfig) {
		cfg.clock = c
	}
}

// WithReporting starts a goroutine that publishes the arena's counters
// every minute. Meant for process-lifetime arenas, not per-request ones.
func WithReporting() TypedOption {
	return func(cfg *typedConfig) {
		cfg.report = true
	}
}

// NewTyped creates a Typed arena whose blocks hold perBlock elements.
func NewTyped[T any](perBlock int, opts ...TypedOption) *Typed[T] {
	if perBlock <= 0 {
		perBlock = 1024
	}
	cfg := typedConfig{clock: clock.New()}
	for _, opt := range opts {
		opt(&cfg)
	}
	ret := &Typed[T]{perBlock: perBlock}
	if cfg.report {
		go ret.report(cfg.clock)
	}
	return ret
}

// Alloc bump-allocates one zeroed slot. The address is stable until the
// arena is Reset or Freed.
func (a *Typed[T]) Alloc() *T {
	a.allocs.Inc()
	n := len(a.blocks)
	if n == 0 || len(a.blocks[n-1]) == a.perBlock {
		a.blocks = append(a.blocks, make([]T, 0, a.perBlock))
		a.nblocks.Inc()
		n++
	}
	var zero T
	a.blocks[n-1] = append(a.blocks[n-1], zero)
	block := a.blocks[n-1]
	return &block[len(block)-1]
}

// Reset rewinds every block for reuse. Same unchecked contract as
// Region.Reset: no returned address may be live.
func (a *Typed[T]) Reset() {
	var zero T
	for i := range a.blocks {
		full := a.blocks[i][:cap(a.blocks[i])]
		slice.Fill(full, zero)
		a.blocks[i] = full[:0]
	}
}

// Free drops all blocks back to the runtime.
func (a *Typed[T]) Free() {
	a.blocks = nil
	a.nblocks.Store(0)
}

// report publishes arena counters every minute.
func (a *Typed[T]) report(ck clock.Clock) {
	var zero T
	name := fmt.Sprintf("%T_%d", zero, a.perBlock)
	sz := int64(unsafe.Sizeof(zero))
	ticker := ck.Ticker(time.Minute)
	defer ticker.Stop()
	for ; true; <-ticker.C {
		typedStats.WithLabelValues("allocs", name).Set(float64(a.allocs.Load()))
		typedStats.WithLabelValues("blocks", name).Set(float64(a.nblocks.Load()))
		typedStats.WithLabelValues("size_bytes", name).Set(float64(a.nblocks.Load() * int64(a.perBlock) * sz))
	}
}
