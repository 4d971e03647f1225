package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByteBuffer_Write(t *testing.T) {
	bb := Get()
	defer Put(bb)

	n, err := bb.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.NoError(t, bb.WriteByte('!'))
	require.Equal(t, 6, bb.Len())
	require.Equal(t, "hello!", bb.String())
	require.Equal(t, []byte("hello!"), bb.Bytes())
}

func TestByteBuffer_Reset(t *testing.T) {
	bb := Get()
	defer Put(bb)

	_, err := bb.Write([]byte("data"))
	require.NoError(t, err)
	c := cap(bb.B)
	bb.Reset()
	require.Equal(t, 0, bb.Len())
	require.Equal(t, c, cap(bb.B))
}

func TestPool_GetReturnsEmptyBuffer(t *testing.T) {
	bb := Get()
	_, err := bb.Write([]byte("leftover"))
	require.NoError(t, err)
	Put(bb)

	again := Get()
	defer Put(again)
	require.Equal(t, 0, again.Len())
}

func TestPool_OversizedBuffersDropped(t *testing.T) {
	bb := &ByteBuffer{B: make([]byte, 0, maxRetainedSize+1)}
	Put(bb) // must not panic; buffer is silently dropped
	Put(nil)
}
