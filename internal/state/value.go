package state

import (
	"fmt"
	"time"
)

// Kind discriminates the closed set of types a document field may hold.
type Kind int

const (
	KindString Kind = iota
	KindInteger
	KindDouble
	KindBool
	KindTime
	KindMap
	KindList
)

// Value is one document field: a tagged union over the kinds every
// supported backend can store losslessly.
type Value struct {
	kind Kind
	str  string
	i    int64
	f    float64
	b    bool
	t    time.Time
	m    Document
	l    []Value
}

// Document maps field names to values; it is the unit stored under a
// collection name and document identifier.
type Document map[string]Value

func String(s string) Value       { return Value{kind: KindString, str: s} }
func Integer(i int64) Value       { return Value{kind: KindInteger, i: i} }
func Double(f float64) Value      { return Value{kind: KindDouble, f: f} }
func Bool(b bool) Value           { return Value{kind: KindBool, b: b} }
func Timestamp(t time.Time) Value { return Value{kind: KindTime, t: t} }
func Map(d Document) Value        { return Value{kind: KindMap, m: d} }
func List(vs ...Value) Value      { return Value{kind: KindList, l: vs} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsString() (string, bool)  { return v.str, v.kind == KindString }
func (v Value) AsInteger() (int64, bool)  { return v.i, v.kind == KindInteger }
func (v Value) AsDouble() (float64, bool) { return v.f, v.kind == KindDouble }
func (v Value) AsBool() (bool, bool)      { return v.b, v.kind == KindBool }
func (v Value) AsTime() (time.Time, bool) { return v.t, v.kind == KindTime }
func (v Value) AsMap() (Document, bool)   { return v.m, v.kind == KindMap }
func (v Value) AsList() ([]Value, bool)   { return v.l, v.kind == KindList }

// Native lowers the value to the dynamic shape the store drivers accept.
func (v Value) Native() interface{} {
	switch v.kind {
	case KindString:
		return v.str
	case KindInteger:
		return v.i
	case KindDouble:
		return v.f
	case KindBool:
		return v.b
	case KindTime:
		return v.t
	case KindMap:
		return v.m.Native()
	case KindList:
		out := make([]interface{}, len(v.l))
		for i, e := range v.l {
			out[i] = e.Native()
		}
		return out
	}
	return nil
}

// FromNative lifts driver output (or decoded JSON) into a Value. Integer
// widths normalize to int64, float32 to float64. Types outside the union
// are rejected.
func FromNative(x interface{}) (Value, error) {
	switch t := x.(type) {
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case int:
		return Integer(int64(t)), nil
	case int32:
		return Integer(int64(t)), nil
	case int64:
		return Integer(t), nil
	case float32:
		return Double(float64(t)), nil
	case float64:
		return Double(t), nil
	case time.Time:
		return Timestamp(t), nil
	case map[string]interface{}:
		d, err := DocumentFromNative(t)
		if err != nil {
			return Value{}, err
		}
		return Map(d), nil
	case []interface{}:
		vs := make([]Value, len(t))
		for i, e := range t {
			v, err := FromNative(e)
			if err != nil {
				return Value{}, err
			}
			vs[i] = v
		}
		return List(vs...), nil
	default:
		return Value{}, fmt.Errorf("state: unsupported value type %T", x)
	}
}

func (v Value) clone() Value {
	switch v.kind {
	case KindMap:
		v.m = v.m.Clone()
	case KindList:
		l := make([]Value, len(v.l))
		for i, e := range v.l {
			l[i] = e.clone()
		}
		v.l = l
	}
	return v
}

// Native lowers the document to map[string]interface{} for the drivers.
func (d Document) Native() map[string]interface{} {
	out := make(map[string]interface{}, len(d))
	for k, v := range d {
		out[k] = v.Native()
	}
	return out
}

// DocumentFromNative lifts a driver field mapping into a Document.
func DocumentFromNative(m map[string]interface{}) (Document, error) {
	d := make(Document, len(m))
	for k, x := range m {
		v, err := FromNative(x)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		d[k] = v
	}
	return d, nil
}

// Clone deep-copies the document; the in-memory backend relies on this to
// keep callers from aliasing stored state.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v.clone()
	}
	return out
}
