// Package korobka provides a single-ownership box over a type-erased
// payload. A Korobka allocates its payload from a pluggable allocator,
// remembers the payload's descriptor, and on Drop runs the descriptor's
// destructor and hands the memory back: an actual free for the
// default heap allocator, a no-op for region-backed boxes whose memory
// is reclaimed in bulk.
//
// A Korobka must not be copied by assignment: two boxes owning the same
// payload would run the destructor twice. Move is the one sanctioned way
// to transfer ownership; it leaves the source empty, and dropping an
// empty box does nothing.
package korobka

import (
	"fmt"
	"unsafe"

	"github.com/samber/mo"

	"korobka/lib/alloc"
	"korobka/lib/widep"
)

type Korobka struct {
	wide widep.WidePointer
	mem  alloc.Allocator
}

// TypeMismatchError reports an IntoInner against a box holding a
// different payload type.
type TypeMismatchError struct {
	Want string
	Got  string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: want %s, got %s", e.Want, e.Got)
}

// ErrEmpty is returned by IntoInner on an empty (moved-from or dropped)
// box.
var ErrEmpty = fmt.Errorf("korobka is empty")

// NewIn moves v into storage obtained from a, recording T's descriptor.
// Options register the descriptor's destructor or clone hook on first
// use of T.
//
// When the allocator can hand out typed memory (the default heap
// allocator can), the payload keeps proper pointer maps and any Go
// pointers inside v stay visible to the collector. Raw allocators such
// as arena regions store the payload as untyped bytes; with those, a
// payload holding Go pointers needs its referents kept alive by the
// host.
func NewIn[T any](a alloc.Allocator, v T, opts ...widep.Option[T]) Korobka {
	d := widep.For[T](opts...)
	size := int(d.Size())
	if size == 0 {
		size = 1
	}
	var p unsafe.Pointer
	if ta, ok := a.(alloc.TypedAllocator); ok {
		p = ta.AllocateTyped(d.Type())
	} else {
		p = a.Allocate(size, int(d.Align()))
	}
	*(*T)(p) = v
	return Korobka{wide: widep.Make(p, d), mem: a}
}

// New boxes v with the default heap allocator.
func New[T any](v T, opts ...widep.Option[T]) Korobka {
	return NewIn(alloc.Default(), v, opts...)
}

// IsEmpty reports whether the box has been moved from, consumed, or
// dropped.
func (k *Korobka) IsEmpty() bool {
	return k.wide.IsNull()
}

// Wide returns the box's wide pointer. The box keeps ownership.
func (k *Korobka) Wide() widep.WidePointer {
	return k.wide
}

// Allocator returns the allocator backing the box's payload; nil for an
// empty box.
func (k *Korobka) Allocator() alloc.Allocator {
	return k.mem
}

// Move transfers ownership out of k, leaving it empty. Dropping the
// moved-from box is a no-op.
func (k *Korobka) Move() Korobka {
	moved := *k
	k.wide = widep.WidePointer{}
	k.mem = nil
	return moved
}

// Drop runs the payload's destructor and releases its memory. Dropping
// an empty box is a no-op, so Drop is safe to defer unconditionally.
func (k *Korobka) Drop() {
	if k.wide.IsNull() {
		return
	}
	d := k.wide.Descriptor()
	d.Drop(k.wide.Data())
	k.mem.Release(k.wide.Data(), int(d.Size()))
	k.wide = widep.WidePointer{}
	k.mem = nil
}

// Ref returns a typed reference to the payload, with the same downcast
// contract as widep.Downcast.
func Ref[T any](k *Korobka) mo.Option[*T] {
	return widep.Downcast[T](k.wide)
}

// IntoInner consumes the box and returns the payload by value. The
// destructor does not run (ownership of the payload passes to the
// caller) but the backing memory is released. The type check always
// runs here, even in the unchecked build: this is an error-reporting
// operation, not a fast path.
func IntoInner[T any](k *Korobka) (T, error) {
	var zero T
	if k.wide.IsNull() {
		return zero, ErrEmpty
	}
	d := k.wide.Descriptor()
	if want := widep.For[T](); d != want {
		return zero, &TypeMismatchError{Want: want.Name(), Got: d.Name()}
	}
	v := *(*T)(k.wide.Data())
	k.mem.Release(k.wide.Data(), int(d.Size()))
	k.wide = widep.WidePointer{}
	k.mem = nil
	return v, nil
}
