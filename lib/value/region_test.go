package value

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"korobka/lib/arena"
)

func TestFromStringIn(t *testing.T) {
	r := arena.NewRegion(arena.WithBlockSize(1 << 10))
	defer r.Free()

	long := strings.Repeat("region", 10)
	v := FromStringIn(r, long)
	assert.Equal(t, HeapString, v.Tag())
	assert.False(t, v.Owns())

	got, err := v.AsStr()
	require.NoError(t, err)
	assert.Equal(t, long, got)

	// short strings stay inline and never touch the region
	s := FromStringIn(r, "tiny")
	assert.Equal(t, InlineString, s.Tag())

	// dropping a borrow leaves the region's contents untouched
	v2 := FromStringIn(r, long)
	v.Drop()
	got, err = v2.AsStr()
	require.NoError(t, err)
	assert.Equal(t, long, got)
}

func TestFromArrayIn(t *testing.T) {
	r := arena.NewRegion(arena.WithBlockSize(1 << 10))
	defer r.Free()

	v := FromArrayIn(r, []Value{FromInt(1), FromInt(2), FromInt(3)})
	assert.Equal(t, Array, v.Tag())
	assert.False(t, v.Owns())
	assert.True(t, v.Equal(FromArray([]Value{FromInt(1), FromInt(2), FromInt(3)})))

	// a borrow's clone shares the payload
	c, err := v.Clone()
	require.NoError(t, err)
	assert.True(t, c.Wide().Equal(v.Wide()))
}

func TestFromObjectIn(t *testing.T) {
	r := arena.NewRegion(arena.WithBlockSize(1 << 10))
	defer r.Free()

	v := FromObjectIn(r, map[string]Value{"a": FromInt(1), "b": FromString("two")})
	assert.Equal(t, Object, v.Tag())
	assert.False(t, v.Owns())

	d, err := v.AsObject()
	require.NoError(t, err)
	assert.Len(t, d, 2)
	assert.True(t, d["a"].Equal(FromInt(1)))

	// serializes like any other object
	data, err := ToJSON(v)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":"two"}`, string(data))
}

func TestRegionValuesReuseAfterReset(t *testing.T) {
	r := arena.NewRegion(arena.WithBlockSize(1 << 10))
	defer r.Free()

	long := strings.Repeat("x", 64)
	v1 := FromStringIn(r, long)
	_, err := v1.AsStr()
	require.NoError(t, err)

	// after Reset all prior values are dead by contract; the region can
	// be reused for fresh ones
	r.Reset()
	v2 := FromStringIn(r, strings.Repeat("y", 64))
	got, err := v2.AsStr()
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("y", 64), got)
}
