package value

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"
	"unsafe"

	"github.com/buger/jsonparser"
	"github.com/samber/lo"

	"korobka/lib/widep"
)

// JSONHook converts a Foreign payload into its JSON form. Hooks are
// registered per descriptor; a Foreign value with no hook is not
// serializable and ToJSON fails with ErrUnsupported.
type JSONHook func(data unsafe.Pointer) ([]byte, error)

var jsonHooks = struct {
	sync.RWMutex
	m map[*widep.Descriptor]JSONHook
}{m: make(map[*widep.Descriptor]JSONHook)}

// RegisterJSONHook installs fn as d's JSON converter. Registering again
// replaces the previous hook.
func RegisterJSONHook(d *widep.Descriptor, fn JSONHook) {
	jsonHooks.Lock()
	jsonHooks.m[d] = fn
	jsonHooks.Unlock()
}

func jsonHookFor(d *widep.Descriptor) (JSONHook, bool) {
	jsonHooks.RLock()
	fn, ok := jsonHooks.m[d]
	jsonHooks.RUnlock()
	return fn, ok
}

// ToJSON serializes the value. Object keys come out sorted, so the
// encoding is canonical. Foreign values need a registered hook.
func ToJSON(v Value) ([]byte, error) {
	return appendJSON(nil, v)
}

func appendJSON(dst []byte, v Value) ([]byte, error) {
	switch v.tag {
	case Void:
		return append(dst, "null"...), nil
	case Bool:
		if v.word != 0 {
			return append(dst, "true"...), nil
		}
		return append(dst, "false"...), nil
	case Int:
		return strconv.AppendInt(dst, int64(v.word), 10), nil
	case Float:
		f := math.Float64frombits(v.word)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("float %v: %w", f, ErrUnsupported)
		}
		start := len(dst)
		dst = strconv.AppendFloat(dst, f, 'g', -1, 64)
		// keep floats recognizable as floats on the way back in
		if !hasFloatSyntax(dst[start:]) {
			dst = append(dst, ".0"...)
		}
		return dst, nil
	case InlineString, HeapString:
		return strconv.AppendQuote(dst, v.str()), nil
	case Array:
		dst = append(dst, '[')
		for i, e := range v.list() {
			if i > 0 {
				dst = append(dst, ',')
			}
			var err error
			dst, err = appendJSON(dst, e)
			if err != nil {
				return nil, err
			}
		}
		return append(dst, ']'), nil
	case Object:
		d := v.dict()
		keys := lo.Keys(d)
		sort.Strings(keys)
		dst = append(dst, '{')
		for i, k := range keys {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = strconv.AppendQuote(dst, k)
			dst = append(dst, ':')
			var err error
			dst, err = appendJSON(dst, d[k])
			if err != nil {
				return nil, err
			}
		}
		return append(dst, '}'), nil
	default: // Foreign
		desc := v.wide.Descriptor()
		if desc == nil {
			return nil, unsupported("null foreign")
		}
		if fn, ok := jsonHookFor(desc); ok {
			out, err := fn(v.wide.Data())
			if err != nil {
				return nil, fmt.Errorf("json hook for %s: %w", desc.Name(), err)
			}
			return append(dst, out...), nil
		}
		return nil, unsupported(desc.Name())
	}
}

func hasFloatSyntax(b []byte) bool {
	for _, c := range b {
		if c == '.' || c == 'e' || c == 'E' {
			return true
		}
	}
	return false
}

// FromJSON parses data into a Value. Scalars and containers reconstruct
// directly; Foreign values are never reconstructed; a host that needs
// them decodes the plain value and builds the payload itself.
func FromJSON(data []byte) (Value, error) {
	vdata, vtype, _, err := jsonparser.Get(data)
	if err != nil {
		return Value{}, err
	}
	return parseJSON(vdata, vtype)
}

func parseJSON(vdata []byte, vtype jsonparser.ValueType) (Value, error) {
	switch vtype {
	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(vdata)
		if err != nil {
			return Value{}, err
		}
		return FromBool(b), nil
	case jsonparser.Number:
		if i, err := jsonparser.ParseInt(vdata); err == nil && !hasFloatSyntax(vdata) {
			return FromInt(i), nil
		}
		f, err := jsonparser.ParseFloat(vdata)
		if err != nil {
			return Value{}, err
		}
		return FromFloat(f), nil
	case jsonparser.String:
		s, err := jsonparser.ParseString(vdata)
		if err != nil {
			return Value{}, err
		}
		return FromString(s), nil
	case jsonparser.Array:
		var elems []Value
		var errs []error
		handler := func(edata []byte, etype jsonparser.ValueType, _ int, err error) {
			if err != nil {
				errs = append(errs, err)
				return
			}
			e, err := parseJSON(edata, etype)
			if err != nil {
				errs = append(errs, err)
				return
			}
			elems = append(elems, e)
		}
		if _, err := jsonparser.ArrayEach(vdata, handler); err != nil {
			return Value{}, err
		}
		if len(errs) != 0 {
			return Value{}, errs[0]
		}
		return FromArray(elems), nil
	case jsonparser.Object:
		fields := make(map[string]Value)
		handler := func(key []byte, fdata []byte, ftype jsonparser.ValueType, _ int) error {
			k, err := jsonparser.ParseString(key)
			if err != nil {
				return err
			}
			f, err := parseJSON(fdata, ftype)
			if err != nil {
				return err
			}
			fields[k] = f
			return nil
		}
		if err := jsonparser.ObjectEach(vdata, handler); err != nil {
			return Value{}, err
		}
		return FromObject(fields), nil
	case jsonparser.Null:
		return Nil(), nil
	default:
		return Value{}, fmt.Errorf("unknown json type %v", vtype)
	}
}
