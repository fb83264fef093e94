package value

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"korobka/lib/korobka"
	"korobka/lib/widep"
)

func TestJSONRoundtrip(t *testing.T) {
	t.Parallel()
	scenarios := []Value{
		Nil(),
		FromBool(true),
		FromBool(false),
		FromInt(0),
		FromInt(-114514),
		FromFloat(2.5),
		FromFloat(-0.125),
		FromString(""),
		FromString("hello"),
		FromString(strings.Repeat("long", 10)),
		FromString(`quotes " and \ slashes`),
		FromArray(nil),
		FromArray([]Value{FromInt(1), FromString("two"), Nil(), FromBool(true)}),
		FromObject(map[string]Value{}),
		FromObject(map[string]Value{
			"num":  FromFloat(1.5),
			"list": FromArray([]Value{FromInt(7)}),
			"nest": FromObject(map[string]Value{"deep": FromString("ok")}),
		}),
	}
	for _, v := range scenarios {
		data, err := ToJSON(v)
		require.NoError(t, err, v.String())
		got, err := FromJSON(data)
		require.NoError(t, err, v.String())
		assert.True(t, v.Equal(got), "%s -> %s -> %s", v, data, got)
	}
}

func TestJSONArrayScenario(t *testing.T) {
	t.Parallel()
	v := FromArray([]Value{FromInt(1), FromInt(2), FromInt(3)})
	data, err := ToJSON(v)
	require.NoError(t, err)
	assert.Equal(t, `[1,2,3]`, string(data))

	got, err := FromJSON(data)
	require.NoError(t, err)
	require.Equal(t, Array, got.Tag())
	l, err := got.AsArray()
	require.NoError(t, err)
	require.Len(t, l, 3)
	for i, want := range []int64{1, 2, 3} {
		n, err := l[i].AsInt()
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
}

func TestJSONFloatsStayFloats(t *testing.T) {
	t.Parallel()
	data, err := ToJSON(FromFloat(1.0))
	require.NoError(t, err)
	assert.Equal(t, `1.0`, string(data))

	got, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, Float, got.Tag())

	got, err = FromJSON([]byte(`3`))
	require.NoError(t, err)
	assert.Equal(t, Int, got.Tag())

	got, err = FromJSON([]byte(`1e3`))
	require.NoError(t, err)
	assert.Equal(t, Float, got.Tag())
}

func TestJSONCanonicalKeys(t *testing.T) {
	t.Parallel()
	v := FromObject(map[string]Value{"b": FromInt(2), "a": FromInt(1), "c": FromInt(3)})
	data, err := ToJSON(v)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2,"c":3}`, string(data))
}

func TestJSONInvalidInput(t *testing.T) {
	t.Parallel()
	for _, s := range []string{``, `{`, `[1,`, `"unterminated`} {
		_, err := FromJSON([]byte(s))
		assert.Error(t, err, "input %q", s)
	}
}

type endpoint struct {
	host string
	port int
}

func TestJSONForeign(t *testing.T) {
	k := korobka.New(endpoint{host: "localhost", port: 8080})
	v := FromKorobka(&k)
	defer v.Drop()

	// no hook: unsupported
	_, err := ToJSON(v)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupported))

	// containers holding it fail the same way
	arr := FromArray([]Value{v})
	_, err = ToJSON(arr)
	assert.True(t, errors.Is(err, ErrUnsupported))

	// with a hook the host decides the form
	RegisterJSONHook(widep.For[endpoint](), func(data unsafe.Pointer) ([]byte, error) {
		e := (*endpoint)(data)
		return []byte(fmt.Sprintf(`"%s:%d"`, e.host, e.port)), nil
	})
	data, err := ToJSON(arr)
	require.NoError(t, err)
	assert.Equal(t, `["localhost:8080"]`, string(data))

	// decoding never resurrects a Foreign value
	got, err := FromJSON(data)
	require.NoError(t, err)
	l, err := got.AsArray()
	require.NoError(t, err)
	assert.Equal(t, InlineString, l[0].Tag())
}
