// Package ctyconv converts between cty values and plain Go/JSON data, the
// shapes every transport and store outside the engine works with.
package ctyconv

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Null is the untyped null used for "no value".
var Null = cty.NullVal(cty.DynamicPseudoType)

// FromJSON decodes a JSON document into a cty value. Empty input is null.
func FromJSON(data []byte) (cty.Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Null, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return cty.NilVal, fmt.Errorf("decoding json: %w", err)
	}
	if dec.More() {
		return cty.NilVal, fmt.Errorf("decoding json: unexpected data after top-level value")
	}
	return FromGo(raw)
}

// ToJSON encodes a cty value as JSON. Unknown values are rejected.
func ToJSON(v cty.Value) ([]byte, error) {
	raw, err := ToGo(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(raw)
}

// FromGo converts a native Go value into a cty value. Maps become objects and
// slices become tuples so that heterogeneous data survives the trip.
func FromGo(v any) (cty.Value, error) {
	switch t := v.(type) {
	case nil:
		return Null, nil
	case cty.Value:
		if t == cty.NilVal {
			return Null, nil
		}
		return t, nil
	case string:
		return cty.StringVal(t), nil
	case bool:
		return cty.BoolVal(t), nil
	case json.Number:
		return cty.ParseNumberVal(t.String())
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return gocty.ToCtyValue(t, cty.Number)
	case []any:
		if len(t) == 0 {
			return cty.EmptyTupleVal, nil
		}
		vals := make([]cty.Value, len(t))
		for i, e := range t {
			cv, err := FromGo(e)
			if err != nil {
				return cty.NilVal, fmt.Errorf("[%d]: %w", i, err)
			}
			vals[i] = cv
		}
		return cty.TupleVal(vals), nil
	case []string:
		items := make([]any, len(t))
		for i, s := range t {
			items[i] = s
		}
		return FromGo(items)
	case map[string]any:
		if len(t) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, len(t))
		for k, e := range t {
			cv, err := FromGo(e)
			if err != nil {
				return cty.NilVal, fmt.Errorf("%s: %w", k, err)
			}
			attrs[k] = cv
		}
		return cty.ObjectVal(attrs), nil
	case map[string]string:
		return StringMap(t), nil
	}

	// Anything else goes through its JSON form.
	data, err := json.Marshal(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to convert %T: %w", v, err)
	}
	return FromJSON(data)
}

// ToGo converts a cty value into plain Go data: nil, string, bool, int64,
// float64, []any or map[string]any.
func ToGo(v cty.Value) (any, error) {
	if v == cty.NilVal {
		return nil, nil
	}
	v, _ = v.UnmarkDeep()
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not known")
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty == cty.Number:
		return number(v.AsBigFloat()), nil
	case ty.IsListType() || ty.IsSetType() || ty.IsTupleType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			gv, err := ToGo(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, gv)
		}
		return out, nil
	case ty.IsMapType() || ty.IsObjectType():
		out := make(map[string]any, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			gv, err := ToGo(ev)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k.AsString(), err)
			}
			out[k.AsString()] = gv
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
}

// StringMap builds an object value from a string map. A nil or empty map
// yields an empty object.
func StringMap(m map[string]string) cty.Value {
	if len(m) == 0 {
		return cty.EmptyObjectVal
	}
	attrs := make(map[string]cty.Value, len(m))
	for k, v := range m {
		attrs[k] = cty.StringVal(v)
	}
	return cty.ObjectVal(attrs)
}

// Keys returns the sorted attribute or key names of an object or map value.
func Keys(v cty.Value) []string {
	if v.IsNull() || !v.IsKnown() || !(v.Type().IsObjectType() || v.Type().IsMapType()) {
		return nil
	}
	var keys []string
	for it := v.ElementIterator(); it.Next(); {
		k, _ := it.Element()
		keys = append(keys, k.AsString())
	}
	sort.Strings(keys)
	return keys
}

// Attr returns the named attribute of an object or map value, or Null when
// v is null, unknown, not object-like, or lacks the attribute.
func Attr(v cty.Value, name string) cty.Value {
	if v.IsNull() || !v.IsKnown() {
		return Null
	}
	ty := v.Type()
	switch {
	case ty.IsObjectType():
		if !ty.HasAttribute(name) {
			return Null
		}
		return v.GetAttr(name)
	case ty.IsMapType():
		key := cty.StringVal(name)
		if !v.HasIndex(key).True() {
			return Null
		}
		return v.Index(key)
	}
	return Null
}

// AttrString returns the named attribute as a string, or def when it is
// missing or null.
func AttrString(v cty.Value, name, def string) (string, error) {
	a := Attr(v, name)
	if a.IsNull() {
		return def, nil
	}
	s, err := convert.Convert(a, cty.String)
	if err != nil {
		return "", fmt.Errorf("attribute %q: %w", name, err)
	}
	if !s.IsKnown() {
		return "", fmt.Errorf("attribute %q is unknown", name)
	}
	return s.AsString(), nil
}

func number(f *big.Float) any {
	if f.IsInt() {
		if i, acc := f.Int64(); acc == big.Exact {
			return i
		}
	}
	out, _ := f.Float64()
	return out
}
