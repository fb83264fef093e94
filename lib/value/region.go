package value

import (
	"unsafe"

	"korobka/lib/arena"
	"korobka/lib/widep"
)

// The *In factories below build borrowing Values whose payloads live in
// a region: dropping such a Value never touches the payload, the region
// reclaims everything in bulk, and the Value must not outlive the
// region.
//
// Region memory is untyped bytes, so element payloads that reference the
// Go heap (an owning HeapString element inside an arena array, say) are
// invisible to the collector from inside the region; the host must keep
// such elements' owners alive for the region's lifetime.

// FromStringIn copies s into the region; short strings stay inline
// exactly as in FromString.
func FromStringIn(r *arena.Region, s string) Value {
	if len(s) <= smallCap {
		return FromString(s)
	}
	buf := arena.AllocSlice[byte](r, len(s), len(s))
	copy(buf, s)
	hdr := arena.Alloc[string](r)
	*hdr = *(*string)(unsafe.Pointer(&buf))
	return Value{tag: HeapString, wide: widep.Make(unsafe.Pointer(hdr), strDesc)}
}

// FromArrayIn copies the element buffer into the region.
func FromArrayIn(r *arena.Region, elems []Value) Value {
	buf := arena.AllocSlice[Value](r, len(elems), len(elems))
	copy(buf, elems)
	hdr := arena.Alloc[List](r)
	*hdr = List(buf)
	return Value{tag: Array, wide: widep.Make(unsafe.Pointer(hdr), listDesc)}
}

// FromObjectIn scopes an Object value to the region. The field mapping
// itself is a runtime map object, which cannot live inside raw region
// bytes, so it is pinned to the region instead: it stays alive exactly
// as long as the region does.
func FromObjectIn(r *arena.Region, fields map[string]Value) Value {
	d := make(Dict, len(fields))
	for k, v := range fields {
		d[k] = v
	}
	r.Pin(d)
	hdr := arena.Alloc[Dict](r)
	*hdr = d
	return Value{tag: Object, wide: widep.Make(unsafe.Pointer(hdr), dictDesc)}
}
