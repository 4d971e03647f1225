// Package rpcvalue implements the SHV dynamic value model: a tagged union
// of twelve variants with an optional, insertion-ordered metadata envelope.
//
// The central type is RpcValue, a Value plus an optional *MetaMap. Both the
// Cpon and the ChainPack codecs read and write RpcValues; the value model
// itself carries no serialization logic.
//
// Variants map to Go types as follows:
//
//	Null      rpcvalue.Null
//	Bool      rpcvalue.Bool
//	Int       rpcvalue.Int      (int64)
//	UInt      rpcvalue.UInt     (uint64)
//	Double    rpcvalue.Double   (float64)
//	Decimal   rpcvalue.Decimal  (packed mantissa/exponent)
//	DateTime  rpcvalue.DateTime (packed epoch-msec/offset)
//	String    rpcvalue.String   (UTF-8 text)
//	Blob      rpcvalue.Blob     (raw bytes)
//	List      rpcvalue.List
//	Map       rpcvalue.Map      (string keys, sorted on the wire)
//	IMap      rpcvalue.IMap     (int32 keys, sorted on the wire)
//
// Map and IMap are native Go maps; both codecs sort keys at emission time so
// that output is deterministic. MetaMap preserves insertion order.
package rpcvalue

import "sort"

// Value is the tagged union of all variant types. It is a sealed interface;
// the only implementations are the variant types of this package.
type Value interface {
	// TypeName reports the variant name, e.g. "Int" or "Map".
	TypeName() string

	isValue()
}

// Null is the single-inhabitant null variant.
type Null struct{}

// Bool is the boolean variant.
type Bool bool

// Int is the signed 64-bit integer variant.
type Int int64

// UInt is the unsigned 64-bit integer variant.
type UInt uint64

// Double is the IEEE-754 binary64 variant.
type Double float64

// String is the UTF-8 text variant. It is distinct from Blob in both
// serialization formats.
type String string

// Blob is the raw byte sequence variant. Unlike String it carries no UTF-8
// requirement.
type Blob []byte

// List is an ordered sequence of rich values.
type List []RpcValue

// Map maps string keys to rich values. Iteration order is undefined; the
// codecs emit entries in ascending key order.
type Map map[string]RpcValue

// IMap maps int32 keys to rich values. The codecs emit entries in ascending
// key order.
type IMap map[int32]RpcValue

func (Null) isValue()     {}
func (Bool) isValue()     {}
func (Int) isValue()      {}
func (UInt) isValue()     {}
func (Double) isValue()   {}
func (Decimal) isValue()  {}
func (DateTime) isValue() {}
func (String) isValue()   {}
func (Blob) isValue()     {}
func (List) isValue()     {}
func (Map) isValue()      {}
func (IMap) isValue()     {}

func (Null) TypeName() string     { return "Null" }
func (Bool) TypeName() string     { return "Bool" }
func (Int) TypeName() string      { return "Int" }
func (UInt) TypeName() string     { return "UInt" }
func (Double) TypeName() string   { return "Double" }
func (Decimal) TypeName() string  { return "Decimal" }
func (DateTime) TypeName() string { return "DateTime" }
func (String) TypeName() string   { return "String" }
func (Blob) TypeName() string     { return "Blob" }
func (List) TypeName() string     { return "List" }
func (Map) TypeName() string      { return "Map" }
func (IMap) TypeName() string     { return "IMap" }

// RpcValue is a rich value: a Value with an optional metadata envelope.
// The zero RpcValue is Null with no metadata.
type RpcValue struct {
	meta  *MetaMap
	value Value
}

// New wraps a Value into an RpcValue without metadata. A nil Value becomes
// Null.
func New(v Value) RpcValue {
	if v == nil {
		v = Null{}
	}

	return RpcValue{value: v}
}

// Value returns the underlying variant. It never returns nil.
func (rv RpcValue) Value() Value {
	if rv.value == nil {
		return Null{}
	}

	return rv.value
}

// Meta returns the metadata envelope, or nil when the value carries none.
// An empty envelope is semantically the same as none: Equal, the writers
// and the codecs all treat the two alike.
func (rv RpcValue) Meta() *MetaMap {
	return rv.meta
}

// SetMeta attaches a metadata envelope; nil clears it. An empty map may be
// attached and filled afterwards.
func (rv *RpcValue) SetMeta(m *MetaMap) {
	rv.meta = m
}

// ClearMeta drops the metadata envelope.
func (rv *RpcValue) ClearMeta() {
	rv.meta = nil
}

// TypeName reports the variant name of the underlying value.
func (rv RpcValue) TypeName() string { return rv.Value().TypeName() }

// IsNull reports whether the underlying value is Null.
func (rv RpcValue) IsNull() bool {
	_, ok := rv.Value().(Null)
	return ok
}

// IsInt reports whether the underlying value is Int.
func (rv RpcValue) IsInt() bool {
	_, ok := rv.Value().(Int)
	return ok
}

// IsString reports whether the underlying value is String.
func (rv RpcValue) IsString() bool {
	_, ok := rv.Value().(String)
	return ok
}

// Bool returns the boolean payload, or false for any other variant.
func (rv RpcValue) Bool() bool {
	if b, ok := rv.Value().(Bool); ok {
		return bool(b)
	}

	return false
}

// Int returns the integer payload. UInt is coerced; any other variant
// yields 0.
func (rv RpcValue) Int() int64 {
	switch v := rv.Value().(type) {
	case Int:
		return int64(v)
	case UInt:
		return int64(v)
	default:
		return 0
	}
}

// UInt returns the unsigned payload. A non-negative Int is coerced; any
// other variant yields 0.
func (rv RpcValue) UInt() uint64 {
	switch v := rv.Value().(type) {
	case UInt:
		return uint64(v)
	case Int:
		if v >= 0 {
			return uint64(v)
		}
	}

	return 0
}

// Double returns the float payload, or 0 for any other variant.
func (rv RpcValue) Double() float64 {
	if d, ok := rv.Value().(Double); ok {
		return float64(d)
	}

	return 0
}

// Decimal returns the decimal payload, or the zero decimal.
func (rv RpcValue) Decimal() Decimal {
	if d, ok := rv.Value().(Decimal); ok {
		return d
	}

	return NewDecimal(0, 0)
}

// DateTime returns the date-time payload, or the zero date-time.
func (rv RpcValue) DateTime() DateTime {
	if d, ok := rv.Value().(DateTime); ok {
		return d
	}

	return DateTime(0)
}

// Str returns the text payload of a String, or "".
func (rv RpcValue) Str() string {
	if s, ok := rv.Value().(String); ok {
		return string(s)
	}

	return ""
}

// Bytes returns the payload of a Blob, or nil.
func (rv RpcValue) Bytes() []byte {
	if b, ok := rv.Value().(Blob); ok {
		return []byte(b)
	}

	return nil
}

// List returns the list payload, or nil.
func (rv RpcValue) List() List {
	if l, ok := rv.Value().(List); ok {
		return l
	}

	return nil
}

// Map returns the string-keyed map payload, or nil.
func (rv RpcValue) Map() Map {
	if m, ok := rv.Value().(Map); ok {
		return m
	}

	return nil
}

// IMap returns the int-keyed map payload, or nil.
func (rv RpcValue) IMap() IMap {
	if m, ok := rv.Value().(IMap); ok {
		return m
	}

	return nil
}

// Equal reports deep equality: the metadata envelopes must match as ordered
// pair sequences and the values must match variant-wise.
func (rv RpcValue) Equal(other RpcValue) bool {
	if !rv.meta.Equal(other.meta) {
		return false
	}

	return valueEqual(rv.Value(), other.Value())
}

func valueEqual(a, b Value) bool {
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case UInt:
		bv, ok := b.(UInt)
		return ok && av == bv
	case Double:
		bv, ok := b.(Double)
		return ok && av == bv
	case Decimal:
		bv, ok := b.(Decimal)
		return ok && av == bv
	case DateTime:
		bv, ok := b.(DateTime)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Blob:
		bv, ok := b.(Blob)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}

		return true
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !av[i].Equal(bv[i]) {
				return false
			}
		}

		return true
	case Map:
		bv, ok := b.(Map)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			ov, found := bv[k]
			if !found || !v.Equal(ov) {
				return false
			}
		}

		return true
	case IMap:
		bv, ok := b.(IMap)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			ov, found := bv[k]
			if !found || !v.Equal(ov) {
				return false
			}
		}

		return true
	}

	return false
}

// Clone produces a deep copy. Composite variants are copied through their
// owned containers; the metadata envelope is copied pair by pair.
func (rv RpcValue) Clone() RpcValue {
	out := RpcValue{value: cloneValue(rv.Value())}
	if rv.meta != nil {
		out.meta = rv.meta.Clone()
	}

	return out
}

func cloneValue(v Value) Value {
	switch val := v.(type) {
	case Blob:
		b := make(Blob, len(val))
		copy(b, val)

		return b
	case List:
		l := make(List, len(val))
		for i := range val {
			l[i] = val[i].Clone()
		}

		return l
	case Map:
		m := make(Map, len(val))
		for k, item := range val {
			m[k] = item.Clone()
		}

		return m
	case IMap:
		m := make(IMap, len(val))
		for k, item := range val {
			m[k] = item.Clone()
		}

		return m
	default:
		return v
	}
}

// SortedKeys returns the map's keys in ascending order. Both codecs emit
// Map entries in this order.
func (m Map) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// SortedKeys returns the map's keys in ascending order. Both codecs emit
// IMap entries in this order.
func (m IMap) SortedKeys() []int32 {
	keys := make([]int32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return keys
}
