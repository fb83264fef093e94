package value

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"unsafe"

	"github.com/samber/lo"

	"korobka/lib/alloc"
	"korobka/lib/korobka"
	"korobka/lib/widep"
)

// Tag identifies the active variant of a Value.
type Tag uint8

const (
	Void Tag = iota
	Bool
	Int
	Float
	InlineString
	HeapString
	Array
	Object
	Foreign
)

func (t Tag) String() string {
	switch t {
	case Void:
		return "Void"
	case Bool:
		return "Bool"
	case Int:
		return "Int"
	case Float:
		return "Float"
	case InlineString:
		return "InlineString"
	case HeapString:
		return "HeapString"
	case Array:
		return "Array"
	case Object:
		return "Object"
	case Foreign:
		return "Foreign"
	default:
		return "Unknown"
	}
}

// List and Dict are the payload types behind Array and Object values.
type (
	List []Value
	Dict map[string]Value
)

// smallCap is the inline string capacity; anything longer goes through a
// wide pointer.
const smallCap = 15

// Value is the tagged dynamic value: scalars live inline, strings up to
// smallCap bytes live in the small buffer, and everything else hangs off
// the wide pointer. The active tag decides which field is meaningful.
//
// Heap-backed Values either own their payload (built by FromString,
// FromArray, FromObject, FromKorobka: dropping them runs the payload's
// destructor) or merely reference arena memory (built by the *In
// factories: dropping them is a no-op for the payload; the region
// reclaims it in bulk).
type Value struct {
	tag   Tag
	owns  bool
	n     uint8
	small [smallCap]byte
	word  uint64
	wide  widep.WidePointer
	mem   alloc.Allocator
}

// descriptors of the built-in heap payload types, registered once
var (
	strDesc  = widep.For[string]()
	listDesc = widep.For[List]()
	dictDesc = widep.For[Dict]()
)

// Nil returns the Void value.
func Nil() Value {
	return Value{tag: Void}
}

func FromBool(b bool) Value {
	v := Value{tag: Bool}
	if b {
		v.word = 1
	}
	return v
}

func FromInt(i int64) Value {
	return Value{tag: Int, word: uint64(i)}
}

func FromFloat(f float64) Value {
	return Value{tag: Float, word: math.Float64bits(f)}
}

// FromString stores s inline when it fits, otherwise on the heap as an
// owning value.
func FromString(s string) Value {
	if len(s) <= smallCap {
		v := Value{tag: InlineString, n: uint8(len(s))}
		copy(v.small[:], s)
		return v
	}
	p := new(string)
	*p = s
	return Value{tag: HeapString, owns: true, wide: widep.Make(unsafe.Pointer(p), strDesc)}
}

// FromArray builds an owning Array value. The elements are taken as-is:
// ownership of any owning element passes to the array, and the caller
// must not drop them separately.
func FromArray(elems []Value) Value {
	l := make(List, len(elems))
	copy(l, elems)
	p := new(List)
	*p = l
	return Value{tag: Array, owns: true, wide: widep.Make(unsafe.Pointer(p), listDesc)}
}

// FromObject builds an owning Object value. Same ownership transfer as
// FromArray.
func FromObject(fields map[string]Value) Value {
	d := make(Dict, len(fields))
	for k, v := range fields {
		d[k] = v
	}
	p := new(Dict)
	*p = d
	return Value{tag: Object, owns: true, wide: widep.Make(unsafe.Pointer(p), dictDesc)}
}

// FromKorobka adopts the box's payload as an owning Foreign value. The
// box is moved from and left empty; dropping the Value runs the
// descriptor's destructor and releases the memory to the box's
// allocator.
func FromKorobka(k *korobka.Korobka) Value {
	moved := k.Move()
	return Value{tag: Foreign, owns: true, wide: moved.Wide(), mem: moved.Allocator()}
}

// BorrowForeign wraps a wide pointer as a non-owning Foreign value. The
// payload must outlive the Value; dropping the Value never touches it.
func BorrowForeign(wp widep.WidePointer) Value {
	return Value{tag: Foreign, wide: wp}
}

// Drop releases the value's payload. For owning heap-backed variants it
// runs the descriptor's destructor and, if the payload came from an
// explicit allocator, releases the memory; for scalars and borrowing
// values it only clears the slot. The value becomes Void.
func (v *Value) Drop() {
	if v.owns && !v.wide.IsNull() {
		d := v.wide.Descriptor()
		d.Drop(v.wide.Data())
		if v.mem != nil {
			v.mem.Release(v.wide.Data(), int(d.Size()))
		}
	}
	*v = Value{}
}

// Set overwrites the slot with nv, first dropping the old payload if the
// slot owned one.
func (v *Value) Set(nv Value) {
	v.Drop()
	*v = nv
}

// Owns reports whether dropping the value would run its payload's
// destructor.
func (v Value) Owns() bool {
	return v.owns
}

// Wide returns the value's wide pointer; null for scalar and inline
// variants. The value keeps ownership.
func (v Value) Wide() widep.WidePointer {
	return v.wide
}

// Equal is deep equality for scalars, strings and containers. Foreign
// values compare by wide pointer (address + descriptor), never deeply.
func (v Value) Equal(other Value) bool {
	switch v.tag {
	case Void:
		return other.tag == Void
	case Bool, Int:
		return other.tag == v.tag && other.word == v.word
	case Float:
		return other.tag == Float &&
			math.Float64frombits(v.word) == math.Float64frombits(other.word)
	case InlineString, HeapString:
		if other.tag != InlineString && other.tag != HeapString {
			return false
		}
		return v.str() == other.str()
	case Array:
		if other.tag != Array {
			return false
		}
		l, r := v.list(), other.list()
		if len(l) != len(r) {
			return false
		}
		for i := range l {
			if !l[i].Equal(r[i]) {
				return false
			}
		}
		return true
	case Object:
		if other.tag != Object {
			return false
		}
		l, r := v.dict(), other.dict()
		if len(l) != len(r) {
			return false
		}
		for k, lv := range l {
			if rv, ok := r[k]; !(ok && lv.Equal(rv)) {
				return false
			}
		}
		return true
	case Foreign:
		return other.tag == Foreign && v.wide.Equal(other.wide)
	default:
		return false
	}
}

// Clone duplicates the value. Scalars and inline strings copy; borrowing
// values clone as borrows of the same payload; owning containers deep
// clone; owning Foreign values need a clone function on their
// descriptor, otherwise ErrNotCloneable.
func (v Value) Clone() (Value, error) {
	switch v.tag {
	case Void, Bool, Int, Float, InlineString:
		return v, nil
	}
	if !v.owns {
		return v, nil
	}
	switch v.tag {
	case HeapString:
		return FromString(v.str()), nil
	case Array:
		src := v.list()
		out := make([]Value, len(src))
		for i := range src {
			c, err := src[i].Clone()
			if err != nil {
				return Value{}, err
			}
			out[i] = c
		}
		return FromArray(out), nil
	case Object:
		src := v.dict()
		out := make(map[string]Value, len(src))
		for k := range src {
			c, err := src[k].Clone()
			if err != nil {
				return Value{}, err
			}
			out[k] = c
		}
		return FromObject(out), nil
	default: // Foreign
		d := v.wide.Descriptor()
		if !d.HasClone() {
			return Value{}, notCloneable(d.Name())
		}
		p := d.Clone(v.wide.Data())
		return Value{tag: Foreign, owns: true, wide: widep.Make(p, d)}, nil
	}
}

// unchecked internal accessors; the caller has switched on the tag
func (v Value) str() string {
	if v.tag == InlineString {
		return string(v.small[:v.n])
	}
	return *(*string)(v.wide.Data())
}

func (v Value) list() List {
	return *(*List)(v.wide.Data())
}

func (v Value) dict() Dict {
	return *(*Dict)(v.wide.Data())
}

// String renders the value in a JSON-like form, Foreign values as
// Foreign(<type>).
func (v Value) String() string {
	var sb strings.Builder
	v.format(&sb)
	return sb.String()
}

func (v Value) format(sb *strings.Builder) {
	switch v.tag {
	case Void:
		sb.WriteString("null")
	case Bool:
		if v.word != 0 {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case Int:
		sb.WriteString(strconv.FormatInt(int64(v.word), 10))
	case Float:
		sb.WriteString(strconv.FormatFloat(math.Float64frombits(v.word), 'g', -1, 64))
	case InlineString, HeapString:
		sb.WriteString(strconv.Quote(v.str()))
	case Array:
		sb.WriteByte('[')
		for i, e := range v.list() {
			if i > 0 {
				sb.WriteByte(',')
			}
			e.format(sb)
		}
		sb.WriteByte(']')
	case Object:
		d := v.dict()
		keys := lo.Keys(d)
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Quote(k))
			sb.WriteByte(':')
			d[k].format(sb)
		}
		sb.WriteByte('}')
	case Foreign:
		sb.WriteString("Foreign(")
		if d := v.wide.Descriptor(); d != nil {
			sb.WriteString(d.Name())
		}
		sb.WriteByte(')')
	}
}
