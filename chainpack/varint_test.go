package chainpack

import (
	"bytes"
	"math"
	"math/bits"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/silicon-heaven/shvproto-go/rpcvalue"
)

func packUInt(t *testing.T, n uint64) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteUIntData(n))

	return buf.Bytes()
}

func packInt(t *testing.T, n int64) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).writeIntData(n))

	return buf.Bytes()
}

func TestVarUint_SizeLaw(t *testing.T) {
	// encoded length equals bytesNeeded(significant bits) for every
	// boundary-adjacent value
	var values []uint64
	for k := 0; k < 64; k++ {
		v := uint64(1) << k
		values = append(values, v-1, v, v+1)
	}
	values = append(values, 0, math.MaxUint64)

	for _, v := range values {
		enc := packUInt(t, v)
		require.Len(t, enc, bytesNeeded(bits.Len64(v)), "size of %d", v)

		rd := NewReader(bytes.NewReader(enc))
		dec, err := rd.ReadUIntData()
		require.NoError(t, err, "decode of %d", v)
		require.Equal(t, v, dec, "round trip of %d", v)
	}
}

func TestVarUint_KnownEncodings(t *testing.T) {
	cases := []struct {
		n    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7F}},
		{128, []byte{0x80, 0x80}},
		{0x3FFF, []byte{0xBF, 0xFF}},
		{0x4000, []byte{0xC0, 0x40, 0x00}},
		{0x1FFFFF, []byte{0xDF, 0xFF, 0xFF}},
		{0x200000, []byte{0xE0, 0x20, 0x00, 0x00}},
		{0xFFFFFFF, []byte{0xEF, 0xFF, 0xFF, 0xFF}},
		{0x10000000, []byte{0xF0, 0x10, 0x00, 0x00, 0x00}},
		{0xFFFFFFFF, []byte{0xF0, 0xFF, 0xFF, 0xFF, 0xFF}},
		{0x100000000, []byte{0xF1, 0x01, 0x00, 0x00, 0x00, 0x00}},
		{math.MaxUint64, []byte{0xF4, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, packUInt(t, tc.n), "encoding of %d", tc.n)
	}
}

func TestVarInt_SignLaw(t *testing.T) {
	values := []int64{0, 1, -1, 63, -63, 64, -64, 65, -65, math.MaxInt64, math.MinInt64 + 1}
	for k := 0; k < 63; k++ {
		v := int64(1) << k
		values = append(values, v-1, v, v+1, -(v - 1), -v, -(v + 1))
	}

	for _, v := range values {
		enc := packInt(t, v)
		rd := NewReader(bytes.NewReader(enc))
		dec, err := rd.readIntData()
		require.NoError(t, err, "decode of %d", v)
		require.Equal(t, v, dec, "round trip of %d", v)
	}
}

func TestVarInt_MinInt64Unsupported(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, NewWriter(&buf).writeIntData(math.MinInt64))
}

func TestVarUint_ReservedPrefix(t *testing.T) {
	rd := NewReader(bytes.NewReader([]byte{0xFF}))
	_, err := rd.ReadUIntData()
	requireKind(t, err, rpcvalue.KindIntegerOverflow)
}

func TestVarUint_OversizedPayload(t *testing.T) {
	// prefix n=5 declares a 9-byte payload, beyond 64 bits
	rd := NewReader(bytes.NewReader([]byte{0xF5, 1, 2, 3, 4, 5, 6, 7, 8, 9}))
	_, err := rd.ReadUIntData()
	requireKind(t, err, rpcvalue.KindIntegerOverflow)
}
