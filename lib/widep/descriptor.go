package widep

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Descriptor is the process-wide record describing one concrete payload
// type: its size, alignment, and optional destructor and clone hooks.
// Descriptors are never duplicated: there is exactly one per Go type,
// and pointer identity of the descriptor is the type-check key used by
// every downcast in the toolkit.
type Descriptor struct {
	name  string
	typ   reflect.Type
	size  uintptr
	align uintptr
	hash  uint64
	drop  func(unsafe.Pointer)
	clone func(unsafe.Pointer) unsafe.Pointer
}

var (
	mu       sync.RWMutex
	registry = make(map[reflect.Type]*Descriptor)
	count    atomic.Int64
)

type Option[T any] func(*Descriptor)

// WithDrop registers a destructor. It runs when an owning handle to a T
// payload is dropped.
func WithDrop[T any](fn func(*T)) Option[T] {
	return func(d *Descriptor) {
		d.drop = func(p unsafe.Pointer) {
			fn((*T)(p))
		}
	}
}

// WithClone registers a clone function. Owning handles use it to
// duplicate their payload; without it, clone attempts fail.
func WithClone[T any](fn func(*T) T) Option[T] {
	return func(d *Descriptor) {
		d.clone = func(p unsafe.Pointer) unsafe.Pointer {
			c := fn((*T)(p))
			return unsafe.Pointer(&c)
		}
	}
}

// For returns the unique descriptor for T, registering it on first use.
// Options are applied only on that first registration; later calls get
// the existing descriptor unchanged. Re-stating the same hooks on every
// call is fine. A later call whose options would have added a hook the
// descriptor does not carry logs a warning, since that is almost
// certainly a registration-order bug in the host.
func For[T any](opts ...Option[T]) *Descriptor {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	mu.RLock()
	d, ok := registry[typ]
	mu.RUnlock()
	if ok {
		if len(opts) > 0 {
			var probe Descriptor
			for _, opt := range opts {
				opt(&probe)
			}
			if (probe.drop != nil && d.drop == nil) || (probe.clone != nil && d.clone == nil) {
				zap.L().Warn("descriptor already registered, options ignored",
					zap.String("type", typ.String()))
			}
		}
		return d
	}
	mu.Lock()
	defer mu.Unlock()
	if d, ok = registry[typ]; ok {
		return d
	}
	d = &Descriptor{
		name:  typ.String(),
		typ:   typ,
		size:  typ.Size(),
		align: uintptr(typ.Align()),
		hash:  xxhash.Sum64String(typ.String()),
	}
	for _, opt := range opts {
		opt(d)
	}
	registry[typ] = d
	count.Inc()
	return d
}

// Registered reports how many descriptors the process has registered.
func Registered() int64 {
	return count.Load()
}

func (d *Descriptor) Name() string       { return d.name }
func (d *Descriptor) Type() reflect.Type { return d.typ }
func (d *Descriptor) Size() uintptr      { return d.size }
func (d *Descriptor) Align() uintptr     { return d.align }

// Hash is a stable hash of the descriptor's type name, cheap to use as a
// metrics or log key.
func (d *Descriptor) Hash() uint64 { return d.hash }

func (d *Descriptor) HasDrop() bool  { return d.drop != nil }
func (d *Descriptor) HasClone() bool { return d.clone != nil }

// Drop runs the registered destructor on the payload at p, if any.
func (d *Descriptor) Drop(p unsafe.Pointer) {
	if d.drop != nil && p != nil {
		d.drop(p)
	}
}

// Clone duplicates the payload at p onto the Go heap, returning the
// address of the copy. Callers must have checked HasClone.
func (d *Descriptor) Clone(p unsafe.Pointer) unsafe.Pointer {
	return d.clone(p)
}
