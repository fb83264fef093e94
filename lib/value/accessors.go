package value

import (
	"math"

	"github.com/samber/mo"

	"korobka/lib/widep"
)

// Tag returns the active variant. Always succeeds, O(1).
func (v Value) Tag() Tag {
	return v.tag
}

// IsNil reports whether the value is Void.
func (v Value) IsNil() bool {
	return v.tag == Void
}

// The accessors below return the variant's field when the tag matches.
// In the default build a mismatch is reported as *TypeMismatchError with
// the expected and actual tags; in the unchecked build the check is
// compiled out and a mismatch reads garbage; that profile is reserved
// for call sites that have already switched on Tag().

func (v Value) AsBool() (bool, error) {
	if widep.Checked && v.tag != Bool {
		return false, mismatch(Bool, v.tag)
	}
	return v.word != 0, nil
}

func (v Value) AsInt() (int64, error) {
	if widep.Checked && v.tag != Int {
		return 0, mismatch(Int, v.tag)
	}
	return int64(v.word), nil
}

func (v Value) AsFloat() (float64, error) {
	if widep.Checked && v.tag != Float {
		return 0, mismatch(Float, v.tag)
	}
	return math.Float64frombits(v.word), nil
}

// AsStr accepts both string representations; callers never care which
// side of the inline threshold a string landed on.
func (v Value) AsStr() (string, error) {
	if widep.Checked && v.tag != InlineString && v.tag != HeapString {
		return "", mismatch(InlineString, v.tag)
	}
	return v.str(), nil
}

// AsArray returns the element buffer. The Value keeps ownership of the
// elements; the caller must not drop them and must not append (copy
// first to grow).
func (v Value) AsArray() (List, error) {
	if widep.Checked && v.tag != Array {
		return nil, mismatch(Array, v.tag)
	}
	return v.list(), nil
}

// AsObject returns the field mapping. Same ownership rules as AsArray.
func (v Value) AsObject() (Dict, error) {
	if widep.Checked && v.tag != Object {
		return nil, mismatch(Object, v.tag)
	}
	return v.dict(), nil
}

// AsNumber is the numeric coercion point: Left for Int, Right for Float.
func (v Value) AsNumber() (mo.Either[int64, float64], error) {
	switch v.tag {
	case Int:
		return mo.Left[int64, float64](int64(v.word)), nil
	case Float:
		return mo.Right[int64, float64](math.Float64frombits(v.word)), nil
	default:
		var zero mo.Either[int64, float64]
		return zero, mismatch(Int, v.tag)
	}
}

// AsForeign returns a typed reference to a Foreign payload. The tag
// check follows the accessor contract above; the descriptor identity
// check follows the widep.Downcast contract.
func AsForeign[T any](v Value) (*T, error) {
	if widep.Checked && v.tag != Foreign {
		return nil, mismatch(Foreign, v.tag)
	}
	if p, ok := widep.Downcast[T](v.wide).Get(); ok {
		return p, nil
	}
	got := ""
	if d := v.wide.Descriptor(); d != nil {
		got = d.Name()
	}
	return nil, &TypeMismatchError{
		Want:     Foreign,
		Got:      v.tag,
		WantType: widep.For[T]().Name(),
		GotType:  got,
	}
}
