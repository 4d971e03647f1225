package rpcvalue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRpcValue_ZeroValueIsNull(t *testing.T) {
	var rv RpcValue
	require.True(t, rv.IsNull())
	require.Equal(t, "Null", rv.TypeName())
	require.Nil(t, rv.Meta())
}

func TestRpcValue_Accessors(t *testing.T) {
	require.True(t, New(Bool(true)).Bool())
	require.Equal(t, int64(123), New(Int(123)).Int())
	require.Equal(t, uint64(123), New(UInt(123)).UInt())
	require.Equal(t, 12.3, New(Double(12.3)).Double())
	require.Equal(t, "foo", New(String("foo")).Str())
	require.Equal(t, []byte{1, 2}, New(Blob{1, 2}).Bytes())

	dt := DateTimeNow()
	require.Equal(t, dt, New(dt).DateTime())
	dc := NewDecimal(123, -1)
	require.Equal(t, dc, New(dc).Decimal())

	lst := List{New(Int(1)), New(String("foo"))}
	require.Len(t, New(lst).List(), 2)

	m := Map{"foo": New(Int(123)), "bar": New(String("foo"))}
	require.Len(t, New(m).Map(), 2)

	im := IMap{1: New(Int(123)), 2: New(String("foo"))}
	require.Len(t, New(im).IMap(), 2)
}

func TestRpcValue_AccessorDefaults(t *testing.T) {
	rv := New(String("not a number"))
	require.Equal(t, int64(0), rv.Int())
	require.Equal(t, uint64(0), rv.UInt())
	require.Equal(t, 0.0, rv.Double())
	require.False(t, rv.Bool())
	require.Nil(t, rv.List())
	require.Nil(t, rv.Map())
	require.Equal(t, "", New(Int(1)).Str())
}

func TestRpcValue_IntUIntCoercion(t *testing.T) {
	require.Equal(t, int64(7), New(UInt(7)).Int())
	require.Equal(t, uint64(7), New(Int(7)).UInt())
	require.Equal(t, uint64(0), New(Int(-7)).UInt())
}

func TestRpcValue_SortedKeys(t *testing.T) {
	m := Map{"foo": New(Int(1)), "bar": New(Int(2)), "baz": New(Int(3))}
	require.Equal(t, []string{"bar", "baz", "foo"}, m.SortedKeys())

	im := IMap{10: New(Int(1)), -3: New(Int(2)), 2: New(Int(3))}
	require.Equal(t, []int32{-3, 2, 10}, im.SortedKeys())
}

func TestRpcValue_Equal(t *testing.T) {
	a := New(List{New(Int(1)), New(Map{"k": New(String("v"))})})
	b := New(List{New(Int(1)), New(Map{"k": New(String("v"))})})
	require.True(t, a.Equal(b))

	c := New(List{New(Int(1)), New(Map{"k": New(String("w"))})})
	require.False(t, a.Equal(c))

	// variants never compare equal across kinds
	require.False(t, New(Int(1)).Equal(New(UInt(1))))
	require.False(t, New(String("1")).Equal(New(Blob("1"))))

	// metadata participates in equality as an ordered sequence
	withMeta := New(Int(1))
	withMeta.SetMeta(NewMetaMap().SetInt(1, New(String("foo"))))
	require.False(t, withMeta.Equal(New(Int(1))))

	sameMeta := New(Int(1))
	sameMeta.SetMeta(NewMetaMap().SetInt(1, New(String("foo"))))
	require.True(t, withMeta.Equal(sameMeta))
}

func TestRpcValue_EmptyMetaIsNoMeta(t *testing.T) {
	rv := New(Int(1))
	rv.SetMeta(NewMetaMap())
	require.True(t, rv.Meta().IsEmpty())
	require.True(t, rv.Equal(New(Int(1))))
}

func TestRpcValue_CloneIsDeep(t *testing.T) {
	orig := New(Map{"lst": New(List{New(Blob{1, 2, 3})})})
	orig.SetMeta(NewMetaMap().SetInt(1, New(Int(1))))

	cl := orig.Clone()
	require.True(t, orig.Equal(cl))

	cl.Map()["lst"].List()[0].Bytes()[0] = 9
	require.Equal(t, byte(1), orig.Map()["lst"].List()[0].Bytes()[0])

	cl.Meta().SetInt(1, New(Int(2)))
	v, _ := orig.Meta().IntValue(1)
	require.Equal(t, int64(1), v.Int())
}
