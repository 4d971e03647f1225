package compress

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func samplePayload() []byte {
	// repetitive, compressible payload resembling a chainpack frame burst
	var buf bytes.Buffer
	for i := 0; i < 64; i++ {
		buf.WriteString("i{1:123,2:\"baz\",3:\"foo/bar/baz\"}")
		buf.WriteByte(byte(i))
	}

	return buf.Bytes()
}

func TestCodecs_RoundTrip(t *testing.T) {
	payload := samplePayload()
	for _, typ := range []Type{TypeNone, TypeZstd, TypeS2, TypeLZ4} {
		codec, err := New(typ)
		require.NoError(t, err, "codec %s", typ)

		compressed, err := codec.Compress(nil, payload)
		require.NoError(t, err, "compress with %s", typ)

		restored, err := codec.Decompress(nil, compressed, len(payload))
		require.NoError(t, err, "decompress with %s", typ)
		require.Equal(t, payload, restored, "round trip with %s", typ)
	}
}

func TestCodecs_AppendPreservesPrefix(t *testing.T) {
	payload := samplePayload()
	for _, typ := range []Type{TypeNone, TypeZstd, TypeS2, TypeLZ4} {
		codec, err := New(typ)
		require.NoError(t, err)

		prefix := []byte("header:")
		compressed, err := codec.Compress(append([]byte{}, prefix...), payload)
		require.NoError(t, err, "compress with %s", typ)
		require.Equal(t, prefix, compressed[:len(prefix)], "compress prefix with %s", typ)

		restored, err := codec.Decompress(append([]byte{}, prefix...), compressed[len(prefix):], len(payload))
		require.NoError(t, err, "decompress with %s", typ)
		require.Equal(t, prefix, restored[:len(prefix)], "decompress prefix with %s", typ)
		require.Equal(t, payload, restored[len(prefix):], "payload with %s", typ)
	}
}

func TestCodecs_CompressionShrinksPayload(t *testing.T) {
	payload := samplePayload()
	for _, typ := range []Type{TypeZstd, TypeS2, TypeLZ4} {
		codec, err := New(typ)
		require.NoError(t, err)
		compressed, err := codec.Compress(nil, payload)
		require.NoError(t, err)
		require.Less(t, len(compressed), len(payload), "ratio with %s", typ)
	}
}

func TestLZ4_IncompressibleInput(t *testing.T) {
	noise := make([]byte, 64)
	for i := range noise {
		noise[i] = byte(i)
	}
	codec := NewLZ4Codec()
	_, err := codec.Compress(nil, noise)
	require.True(t, errors.Is(err, ErrIncompressible))
}

func TestCodecs_WrongRawSizeRejected(t *testing.T) {
	payload := samplePayload()
	for _, typ := range []Type{TypeNone, TypeZstd, TypeS2, TypeLZ4} {
		codec, err := New(typ)
		require.NoError(t, err)
		compressed, err := codec.Compress(nil, payload)
		require.NoError(t, err)

		_, err = codec.Decompress(nil, compressed, len(payload)+1)
		require.Error(t, err, "size check with %s", typ)
	}
}

func TestCodecs_GarbageInputFails(t *testing.T) {
	garbage := []byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01, 0x02}
	for _, typ := range []Type{TypeZstd, TypeLZ4} {
		codec, err := New(typ)
		require.NoError(t, err)
		_, err = codec.Decompress(nil, garbage, 1024)
		require.Error(t, err, "garbage with %s", typ)
	}
}

func TestType_Unknown(t *testing.T) {
	_, err := New(Type(200))
	require.Error(t, err)
}

func TestType_String(t *testing.T) {
	require.Equal(t, "none", TypeNone.String())
	require.Equal(t, "zstd", TypeZstd.String())
	require.Equal(t, "s2", TypeS2.String())
	require.Equal(t, "lz4", TypeLZ4.String())
}
