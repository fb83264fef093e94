package binary

import (
	"encoding/binary"
	"fmt"
	"math"
)

// AppendUvarint appends n to dst in unsigned varint encoding.
func AppendUvarint(dst []byte, n uint64) []byte {
	var buf [10]byte
	sz := binary.PutUvarint(buf[:], n)
	return append(dst, buf[:sz]...)
}

// ReadUvarint reads a uvarint from b, returning the value and the number
// of bytes consumed.
func ReadUvarint(b []byte) (uint64, int, error) {
	n, sz := binary.Uvarint(b)
	if sz <= 0 {
		return 0, 0, fmt.Errorf("invalid uvarint")
	}
	return n, sz, nil
}

// AppendString appends s to dst as a uvarint length prefix followed by
// the raw bytes.
func AppendString(dst []byte, s string) []byte {
	dst = AppendUvarint(dst, uint64(len(s)))
	return append(dst, s...)
}

// ReadString reads a length-prefixed string from b. The returned string
// copies out of b, so b may be reused afterwards.
func ReadString(b []byte) (string, int, error) {
	len_, n, err := ReadUvarint(b)
	if err != nil {
		return "", 0, fmt.Errorf("invalid string: %w", err)
	}
	if uint64(len(b)-n) < len_ {
		return "", 0, fmt.Errorf("buffer too small")
	}
	return string(b[n : n+int(len_)]), n + int(len_), nil
}

func reverseArray(arr []byte) []byte {
	for i, j := 0, len(arr)-1; i < j; i, j = i+1, j-1 {
		arr[i], arr[j] = arr[j], arr[i]
	}
	return arr
}

// Num2Bytes encodes a number into a compact byte string.
// The first 2 bits of the first byte are left for the caller's type tag,
// the 3rd bit carries the sign. The remaining bits are packed 7 bits per
// byte with the top bit set on all continuation bytes, so the encoding
// never collides with ASCII.
func Num2Bytes[T int64 | float64](num T) ([]byte, error) {
	sign := uint8(0)
	if num < 0 {
		sign = 0x20
		num = -num
	}

	tmpBuf := make([]byte, 8)
	switch any(num).(type) {
	case int64:
		binary.BigEndian.PutUint64(tmpBuf, uint64(num))
	case float64:
		binary.BigEndian.PutUint64(tmpBuf, math.Float64bits(float64(num)))
	default:
		return nil, fmt.Errorf("invalid type")
	}

	var buf []byte
	for i := 0; i < 8; i++ {
		if tmpBuf[i] != 0 {
			buf = tmpBuf[i:]
			break
		}
	}
	carry := uint8(0)
	var ret []byte
	// number of bits currently held in carry
	numShift := 0
	for i := len(buf) - 1; i >= 0; i-- {
		temp := ((buf[i] << numShift) | carry) & 0x7f
		carry = buf[i] >> (7 - numShift)
		if i > 0 {
			// continuation bytes always have their top bit set
			temp = temp | 0x80
		}
		ret = append(ret, temp)
		numShift += 1
	}
	if carry != 0 {
		ret[len(ret)-1] = ret[len(ret)-1] | 0x80
		ret = append(ret, carry)
	}
	ret = reverseArray(ret)
	if len(ret) > 0 && (ret[0]&0xE0) == 0 {
		ret[0] = ret[0] | sign
		return ret, nil
	}
	if len(ret) > 1 {
		ret[0] = ret[0] | 0x80
	}
	ret = append([]byte{0}, ret...)
	ret[0] = ret[0] | sign
	return ret, nil
}

// ParseInteger decodes an integer previously encoded with Num2Bytes.
func ParseInteger(data []byte) int64 {
	var v int64
	v = int64(data[0] & 0x1f)
	if len(data) > 1 {
		for i := 1; i < len(data); i++ {
			v = v<<7 | int64(data[i]&0x7f)
		}
	}
	if (data[0] & 0x20) == 0 {
		return v
	}
	return -v
}

// ParseFloat decodes a float previously encoded with Num2Bytes.
func ParseFloat(data []byte) float64 {
	var v uint64
	v = uint64(data[0] & 0x1f)
	if len(data) > 1 {
		for i := 1; i < len(data); i++ {
			v = v<<7 | uint64(data[i]&0x7f)
		}
	}
	d := math.Float64frombits(v)
	if (data[0] & 0x20) == 0 {
		return d
	}
	return -d
}
