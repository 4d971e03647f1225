package chainpack

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/silicon-heaven/shvproto-go/rpcvalue"
)

func pack(t *testing.T, rv rpcvalue.RpcValue) []byte {
	t.Helper()
	data, err := ToChainPack(rv)
	require.NoError(t, err)

	return data
}

func unpack(t *testing.T, data []byte) rpcvalue.RpcValue {
	t.Helper()
	rv, err := FromChainPack(data)
	require.NoError(t, err)

	return rv
}

func requireRoundTrip(t *testing.T, rv rpcvalue.RpcValue) {
	t.Helper()
	back := unpack(t, pack(t, rv))
	require.True(t, rv.Equal(back), "round trip of %s", rv.TypeName())
}

func requireKind(t *testing.T, err error, kind rpcvalue.ErrorKind) {
	t.Helper()
	var re *rpcvalue.ReadError
	require.True(t, errors.As(err, &re), "error %v is not a ReadError", err)
	require.Equal(t, kind, re.Kind, "kind of %v", err)
}

func TestChainPack_KnownEncodings(t *testing.T) {
	require.Equal(t, []byte{SchemaNull}, pack(t, rpcvalue.New(rpcvalue.Null{})))
	require.Equal(t, []byte{SchemaTrue}, pack(t, rpcvalue.New(rpcvalue.Bool(true))))
	require.Equal(t, []byte{SchemaFalse}, pack(t, rpcvalue.New(rpcvalue.Bool(false))))

	// tiny ranges
	require.Equal(t, []byte{0x00}, pack(t, rpcvalue.New(rpcvalue.UInt(0))))
	for n := uint64(0); n < 64; n++ {
		require.Equal(t, []byte{byte(n)}, pack(t, rpcvalue.New(rpcvalue.UInt(n))))
	}
	for n := int64(0); n < 64; n++ {
		require.Equal(t, []byte{byte(n) + 64}, pack(t, rpcvalue.New(rpcvalue.Int(n))))
	}

	// first values past the tiny ranges
	require.Equal(t, []byte{SchemaUInt, 0x40}, pack(t, rpcvalue.New(rpcvalue.UInt(64))))
	require.Equal(t, []byte{SchemaInt, 0x80, 0x40}, pack(t, rpcvalue.New(rpcvalue.Int(64))))

	// negative ints never use the tiny range
	require.Equal(t, []byte{SchemaInt, 0x41}, pack(t, rpcvalue.New(rpcvalue.Int(-1))))

	// string and blob carry distinct schema bytes
	require.Equal(t, []byte{SchemaString, 0x03, 'f', 'o', 'o'},
		pack(t, rpcvalue.New(rpcvalue.String("foo"))))
	require.Equal(t, []byte{SchemaBlob, 0x02, 0x01, 0xFF},
		pack(t, rpcvalue.New(rpcvalue.Blob{0x01, 0xFF})))

	// containers terminate with 0xFF
	require.Equal(t, []byte{SchemaList, 0x41, 0x42, SchemaTerm},
		pack(t, rpcvalue.New(rpcvalue.List{
			rpcvalue.New(rpcvalue.Int(1)),
			rpcvalue.New(rpcvalue.Int(2)),
		})))
}

func TestChainPack_UIntSweep(t *testing.T) {
	for i := 0; i < 64; i++ {
		n := uint64(1)<<i + 1
		requireRoundTrip(t, rpcvalue.New(rpcvalue.UInt(n)))
	}
	requireRoundTrip(t, rpcvalue.New(rpcvalue.UInt(math.MaxUint64)))
}

func TestChainPack_IntSweep(t *testing.T) {
	for _, sig := range []int64{1, -1} {
		for i := 0; i < 62; i++ {
			n := sig*(int64(1)<<i) + 1
			requireRoundTrip(t, rpcvalue.New(rpcvalue.Int(n)))
		}
	}
	requireRoundTrip(t, rpcvalue.New(rpcvalue.Int(math.MaxInt64)))
	requireRoundTrip(t, rpcvalue.New(rpcvalue.Int(math.MinInt64+1)))
}

func TestChainPack_Doubles(t *testing.T) {
	values := []float64{0, 1, -1, 12.3, -12.3, math.MaxFloat64, math.SmallestNonzeroFloat64,
		math.Inf(1), math.Inf(-1)}
	for _, v := range values {
		requireRoundTrip(t, rpcvalue.New(rpcvalue.Double(v)))
	}

	// double is 8 bytes IEEE-754 little-endian after the schema byte
	enc := pack(t, rpcvalue.New(rpcvalue.Double(1.0)))
	require.Equal(t, []byte{SchemaDouble, 0, 0, 0, 0, 0, 0, 0xF0, 0x3F}, enc)
}

func TestChainPack_Decimals(t *testing.T) {
	const mantissa = -123456
	for exp := int8(1); exp <= 16; exp++ {
		requireRoundTrip(t, rpcvalue.New(rpcvalue.NewDecimal(mantissa, exp)))
	}
	requireRoundTrip(t, rpcvalue.New(rpcvalue.NewDecimal(0, 0)))
	requireRoundTrip(t, rpcvalue.New(rpcvalue.NewDecimal(1, -128)))
	requireRoundTrip(t, rpcvalue.New(rpcvalue.NewDecimal(-1, 127)))
}

func TestChainPack_DateTimes(t *testing.T) {
	bodies := []string{
		"2018-02-02T00:00:00.001Z",
		"2018-02-02T01:00:00.001+01",
		"1970-01-01T00:00:00Z",
		"2041-03-04T00:00:00.123-1015",
		"1938-02-02T00:00:00Z",
	}
	for _, body := range bodies {
		dt, err := rpcvalue.ParseDateTime(body)
		require.NoError(t, err)
		requireRoundTrip(t, rpcvalue.New(dt))
	}
}

func TestChainPack_Strings(t *testing.T) {
	values := []string{"", "hello", "\t\r", "\x00", "ěščřžýáí", string(make([]byte, 1000))}
	for _, v := range values {
		requireRoundTrip(t, rpcvalue.New(rpcvalue.String(v)))
	}
}

func TestChainPack_Containers(t *testing.T) {
	requireRoundTrip(t, rpcvalue.New(rpcvalue.List{}))
	requireRoundTrip(t, rpcvalue.New(rpcvalue.Map{}))
	requireRoundTrip(t, rpcvalue.New(rpcvalue.IMap{}))

	requireRoundTrip(t, rpcvalue.New(rpcvalue.Map{
		"foo": rpcvalue.New(rpcvalue.Int(123)),
		"bar": rpcvalue.New(rpcvalue.List{rpcvalue.New(rpcvalue.Bool(true))}),
	}))
	requireRoundTrip(t, rpcvalue.New(rpcvalue.IMap{
		-5:  rpcvalue.New(rpcvalue.String("neg")),
		300: rpcvalue.New(rpcvalue.Null{}),
	}))
}

func TestChainPack_SortedEmission(t *testing.T) {
	a := pack(t, rpcvalue.New(rpcvalue.Map{
		"a": rpcvalue.New(rpcvalue.Int(1)),
		"b": rpcvalue.New(rpcvalue.Int(2)),
	}))
	b := pack(t, rpcvalue.New(rpcvalue.Map{
		"b": rpcvalue.New(rpcvalue.Int(2)),
		"a": rpcvalue.New(rpcvalue.Int(1)),
	}))
	require.Equal(t, a, b)
}

func TestChainPack_MetaEnvelope(t *testing.T) {
	rv := rpcvalue.New(rpcvalue.IMap{2: rpcvalue.New(rpcvalue.String("x"))})
	meta := rpcvalue.NewMetaMap()
	meta.SetInt(1, rpcvalue.New(rpcvalue.Int(7)))
	meta.SetStr("tag", rpcvalue.New(rpcvalue.String("v")))
	rv.SetMeta(meta)

	requireRoundTrip(t, rv)

	enc := pack(t, rv)
	require.Equal(t, SchemaMetaMap, enc[0])

	// nested meta on a list element
	inner := rpcvalue.New(rpcvalue.Int(9))
	innerMeta := rpcvalue.NewMetaMap()
	innerMeta.SetInt(7, rpcvalue.New(rpcvalue.Int(8)))
	inner.SetMeta(innerMeta)
	requireRoundTrip(t, rpcvalue.New(rpcvalue.List{rpcvalue.New(rpcvalue.Int(3)), inner}))
}

func TestChainPack_ReaderErrors(t *testing.T) {
	cases := []struct {
		in   []byte
		kind rpcvalue.ErrorKind
	}{
		{[]byte{}, rpcvalue.KindUnexpectedEOF},
		{[]byte{SchemaUInt}, rpcvalue.KindUnexpectedEOF},
		{[]byte{SchemaList, 0x41}, rpcvalue.KindUnexpectedEOF},
		{[]byte{SchemaTerm}, rpcvalue.KindInvalidChar},
		{[]byte{135}, rpcvalue.KindSchemaByte},
		{[]byte{142}, rpcvalue.KindSchemaByte},
		{[]byte{143}, rpcvalue.KindSchemaByte},
		{[]byte{SchemaString, 0x02, 0xFF, 0xFE}, rpcvalue.KindInvalidString},
		{[]byte{SchemaMap, 0x41, SchemaNull, SchemaTerm}, rpcvalue.KindInvalidKey},
		{[]byte{SchemaIMap, SchemaString, 0x01, 'a', SchemaNull, SchemaTerm}, rpcvalue.KindInvalidKey},
	}
	for _, tc := range cases {
		_, err := FromChainPack(tc.in)
		require.Error(t, err, "decode of % x", tc.in)
		requireKind(t, err, tc.kind)
	}
}

func TestChainPack_LegacyBoolSchema(t *testing.T) {
	rv, err := FromChainPack([]byte{SchemaBool, 0x01})
	require.NoError(t, err)
	require.True(t, rv.Bool())

	rv, err = FromChainPack([]byte{SchemaBool, 0x00})
	require.NoError(t, err)
	require.False(t, rv.Bool())
}

func TestChainPack_NestingDepthBound(t *testing.T) {
	data := make([]byte, maxNestingDepth+1)
	for i := range data {
		data[i] = SchemaList
	}
	_, err := FromChainPack(data)
	require.Error(t, err)
}
