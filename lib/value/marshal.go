package value

import (
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"

	"korobka/lib/utils/binary"
)

// Compact binary encoding: one wire tag byte per value, numbers in the
// 7-bit packed format from lib/utils/binary, strings and containers
// uvarint-length-prefixed. Object keys are sorted, so the encoding is
// canonical and byte-comparable. Both string representations share one
// wire tag; which side of the inline threshold a string lands on after a
// round trip depends only on its length.

const (
	wireNull uint8 = iota
	wireBool
	wireInt
	wireFloat
	wireString
	wireArray
	wireObject
)

// Marshal serializes the value into the compact binary form. Foreign
// values are not serializable and fail with ErrUnsupported.
func Marshal(v Value) ([]byte, error) {
	return appendBinary(nil, v)
}

func appendBinary(dst []byte, v Value) ([]byte, error) {
	switch v.tag {
	case Void:
		return append(dst, wireNull), nil
	case Bool:
		b := byte(0)
		if v.word != 0 {
			b = 1
		}
		return append(dst, wireBool, b), nil
	case Int:
		nb, err := binary.Num2Bytes(int64(v.word))
		if err != nil {
			return nil, err
		}
		dst = append(dst, wireInt)
		dst = binary.AppendUvarint(dst, uint64(len(nb)))
		return append(dst, nb...), nil
	case Float:
		nb, err := binary.Num2Bytes(math.Float64frombits(v.word))
		if err != nil {
			return nil, err
		}
		dst = append(dst, wireFloat)
		dst = binary.AppendUvarint(dst, uint64(len(nb)))
		return append(dst, nb...), nil
	case InlineString, HeapString:
		dst = append(dst, wireString)
		return binary.AppendString(dst, v.str()), nil
	case Array:
		l := v.list()
		dst = append(dst, wireArray)
		dst = binary.AppendUvarint(dst, uint64(len(l)))
		for _, e := range l {
			var err error
			dst, err = appendBinary(dst, e)
			if err != nil {
				return nil, err
			}
		}
		return dst, nil
	case Object:
		d := v.dict()
		keys := lo.Keys(d)
		sort.Strings(keys)
		dst = append(dst, wireObject)
		dst = binary.AppendUvarint(dst, uint64(len(keys)))
		for _, k := range keys {
			dst = binary.AppendString(dst, k)
			var err error
			dst, err = appendBinary(dst, d[k])
			if err != nil {
				return nil, err
			}
		}
		return dst, nil
	default: // Foreign
		name := "null foreign"
		if d := v.wide.Descriptor(); d != nil {
			name = d.Name()
		}
		return nil, unsupported(name)
	}
}

// Unmarshal reconstructs a Value from the compact binary form. It never
// produces Foreign values.
func Unmarshal(data []byte) (Value, error) {
	v, n, err := readBinary(data)
	if err != nil {
		return Value{}, err
	}
	if n != len(data) {
		return Value{}, fmt.Errorf("trailing garbage after value: %d of %d bytes read", n, len(data))
	}
	return v, nil
}

func readBinary(b []byte) (Value, int, error) {
	if len(b) == 0 {
		return Value{}, 0, fmt.Errorf("empty buffer")
	}
	tag, b := b[0], b[1:]
	switch tag {
	case wireNull:
		return Nil(), 1, nil
	case wireBool:
		if len(b) < 1 {
			return Value{}, 0, fmt.Errorf("truncated bool")
		}
		return FromBool(b[0] != 0), 2, nil
	case wireInt:
		nb, n, err := readNumBytes(b)
		if err != nil {
			return Value{}, 0, fmt.Errorf("invalid int: %w", err)
		}
		return FromInt(binary.ParseInteger(nb)), 1 + n, nil
	case wireFloat:
		nb, n, err := readNumBytes(b)
		if err != nil {
			return Value{}, 0, fmt.Errorf("invalid float: %w", err)
		}
		return FromFloat(binary.ParseFloat(nb)), 1 + n, nil
	case wireString:
		s, n, err := binary.ReadString(b)
		if err != nil {
			return Value{}, 0, err
		}
		return FromString(s), 1 + n, nil
	case wireArray:
		count, n, err := binary.ReadUvarint(b)
		if err != nil {
			return Value{}, 0, err
		}
		read := n
		// cap the pre-allocation by the remaining input: every element
		// takes at least one byte, so a forged count cannot force a
		// huge slice before the reads below run out of buffer
		hint := count
		if rem := uint64(len(b) - read); hint > rem {
			hint = rem
		}
		elems := make([]Value, 0, hint)
		for i := uint64(0); i < count; i++ {
			e, sz, err := readBinary(b[read:])
			if err != nil {
				return Value{}, 0, err
			}
			elems = append(elems, e)
			read += sz
		}
		return FromArray(elems), 1 + read, nil
	case wireObject:
		count, n, err := binary.ReadUvarint(b)
		if err != nil {
			return Value{}, 0, err
		}
		read := n
		fields := make(map[string]Value, count)
		for i := uint64(0); i < count; i++ {
			k, sz, err := binary.ReadString(b[read:])
			if err != nil {
				return Value{}, 0, err
			}
			read += sz
			f, sz, err := readBinary(b[read:])
			if err != nil {
				return Value{}, 0, err
			}
			read += sz
			fields[k] = f
		}
		return FromObject(fields), 1 + read, nil
	default:
		return Value{}, 0, fmt.Errorf("unknown wire tag %d", tag)
	}
}

func readNumBytes(b []byte) ([]byte, int, error) {
	len_, n, err := binary.ReadUvarint(b)
	if err != nil {
		return nil, 0, err
	}
	if len_ == 0 {
		return nil, 0, fmt.Errorf("empty number")
	}
	if uint64(len(b)-n) < len_ {
		return nil, 0, fmt.Errorf("truncated number")
	}
	return b[n : n+int(len_)], n + int(len_), nil
}
