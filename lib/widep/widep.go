// Package widep provides a two-word type-erased handle: a payload
// address paired with a type descriptor address. The pair is all that is
// needed to interpret, destroy, or downcast the payload, so type erasure
// costs two words and no extra indirection, with no central dispatch
// table anywhere.
//
// A WidePointer does not own anything. Ownership is layered on top of it
// by korobka.Korobka or by an arena's lifetime; the only invariant here
// is that while the descriptor is non-nil, the data address points to a
// live value of the described type for as long as the pointer is read.
package widep

import (
	"fmt"
	"unsafe"

	"github.com/samber/mo"
)

type WidePointer struct {
	data unsafe.Pointer
	desc *Descriptor
}

// Make is pure construction; it allocates nothing.
func Make(data unsafe.Pointer, desc *Descriptor) WidePointer {
	return WidePointer{data: data, desc: desc}
}

func (wp WidePointer) IsNull() bool {
	return wp.data == nil
}

func (wp WidePointer) Data() unsafe.Pointer {
	return wp.data
}

func (wp WidePointer) Descriptor() *Descriptor {
	return wp.desc
}

// Equal is address plus descriptor identity, not deep value equality.
func (wp WidePointer) Equal(other WidePointer) bool {
	return wp.data == other.data && wp.desc == other.desc
}

func (wp WidePointer) String() string {
	name := "<nil>"
	if wp.desc != nil {
		name = wp.desc.name
	}
	return fmt.Sprintf("WidePointer(0x%X, %s)", uintptr(wp.data), name)
}

// Downcast returns a typed reference to the payload iff the stored
// descriptor is T's descriptor. In the default build the identity check
// always runs; in the unchecked build (-tags unchecked) it compiles out
// and the caller must have proven the type by other means, such as the
// tag of an enclosing value.
func Downcast[T any](wp WidePointer) mo.Option[*T] {
	if wp.data == nil {
		return mo.None[*T]()
	}
	if Checked && wp.desc != For[T]() {
		return mo.None[*T]()
	}
	return mo.Some((*T)(wp.data))
}
