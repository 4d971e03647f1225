package rpcvalue

// MetaKey is a MetaMap key: either an int32 or a string. The two kinds are
// distinct; IntKey(1) and StrKey("1") never match each other.
type MetaKey struct {
	str   string
	num   int32
	isStr bool
}

// IntKey makes an integer metadata key.
func IntKey(k int32) MetaKey { return MetaKey{num: k} }

// StrKey makes a string metadata key.
func StrKey(k string) MetaKey { return MetaKey{str: k, isStr: true} }

// IsString reports whether the key is of the string kind.
func (k MetaKey) IsString() bool { return k.isStr }

// Int returns the integer payload; 0 for string keys.
func (k MetaKey) Int() int32 {
	if k.isStr {
		return 0
	}

	return k.num
}

// Str returns the string payload; "" for integer keys.
func (k MetaKey) Str() string { return k.str }

// MetaPair is one (key, value) entry of a MetaMap.
type MetaPair struct {
	Key   MetaKey
	Value RpcValue
}

// MetaMap is the metadata envelope attachable to any RpcValue: an
// insertion-ordered sequence of unique (key, value) pairs with linear
// lookup. The expected population is small, a handful of routing tags.
//
// Re-inserting an existing key overwrites the value in place and keeps the
// key's original position.
type MetaMap struct {
	pairs []MetaPair
}

// NewMetaMap creates an empty MetaMap.
func NewMetaMap() *MetaMap { return &MetaMap{} }

// Len returns the number of pairs. A nil map has length 0.
func (m *MetaMap) Len() int {
	if m == nil {
		return 0
	}

	return len(m.pairs)
}

// IsEmpty reports whether the map holds no pairs. A nil map is empty;
// an empty map is semantically "no metadata".
func (m *MetaMap) IsEmpty() bool { return m.Len() == 0 }

// Insert sets key to value, overwriting in place when the key exists.
// It returns the map to allow chaining.
func (m *MetaMap) Insert(key MetaKey, value RpcValue) *MetaMap {
	if ix := m.find(key); ix >= 0 {
		m.pairs[ix].Value = value
		return m
	}
	m.pairs = append(m.pairs, MetaPair{Key: key, Value: value})

	return m
}

// SetInt is shorthand for Insert(IntKey(key), value).
func (m *MetaMap) SetInt(key int32, value RpcValue) *MetaMap {
	return m.Insert(IntKey(key), value)
}

// SetStr is shorthand for Insert(StrKey(key), value).
func (m *MetaMap) SetStr(key string, value RpcValue) *MetaMap {
	return m.Insert(StrKey(key), value)
}

// Remove deletes the pair with the given key, returning its value and
// whether it was present.
func (m *MetaMap) Remove(key MetaKey) (RpcValue, bool) {
	ix := m.find(key)
	if ix < 0 {
		return RpcValue{}, false
	}
	v := m.pairs[ix].Value
	m.pairs = append(m.pairs[:ix], m.pairs[ix+1:]...)

	return v, true
}

// Value looks the key up, reporting whether it was found.
func (m *MetaMap) Value(key MetaKey) (RpcValue, bool) {
	ix := m.find(key)
	if ix < 0 {
		return RpcValue{}, false
	}

	return m.pairs[ix].Value, true
}

// IntValue is shorthand for Value(IntKey(key)).
func (m *MetaMap) IntValue(key int32) (RpcValue, bool) {
	return m.Value(IntKey(key))
}

// ValueOr looks the key up, falling back to def when absent.
func (m *MetaMap) ValueOr(key MetaKey, def RpcValue) RpcValue {
	if v, ok := m.Value(key); ok {
		return v
	}

	return def
}

// Pairs returns the pairs in insertion order. The slice is owned by the
// map; callers must not mutate it.
func (m *MetaMap) Pairs() []MetaPair {
	if m == nil {
		return nil
	}

	return m.pairs
}

func (m *MetaMap) find(key MetaKey) int {
	if m == nil {
		return -1
	}
	for i, p := range m.pairs {
		if p.Key.isStr == key.isStr && p.Key.num == key.num && p.Key.str == key.str {
			return i
		}
	}

	return -1
}

// Equal compares two maps as ordered sequences of pairs. Nil and empty
// compare equal.
func (m *MetaMap) Equal(other *MetaMap) bool {
	if m.Len() != other.Len() {
		return false
	}
	if m.Len() == 0 {
		return true
	}
	for i, p := range m.pairs {
		op := other.pairs[i]
		if p.Key != op.Key || !p.Value.Equal(op.Value) {
			return false
		}
	}

	return true
}

// Clone deep-copies the map.
func (m *MetaMap) Clone() *MetaMap {
	out := NewMetaMap()
	if m == nil {
		return out
	}
	out.pairs = make([]MetaPair, len(m.pairs))
	for i, p := range m.pairs {
		out.pairs[i] = MetaPair{Key: p.Key, Value: p.Value.Clone()}
	}

	return out
}
