package rpcmessage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/silicon-heaven/shvproto-go/rpcvalue"
)

func testRequest(t *testing.T) *Message {
	t.Helper()
	msg := NewRequest("foo/bar", "baz", rpcvalue.New(rpcvalue.Int(123)))
	msg.PushCallerID(4)

	return msg
}

func TestFrame_RoundTrip(t *testing.T) {
	for _, protocol := range []Protocol{ProtocolChainPack, ProtocolCpon} {
		msg := testRequest(t)
		frame, err := FrameFromMessage(protocol, msg)
		require.NoError(t, err, "protocol %s", protocol)
		require.Equal(t, protocol, frame.Protocol)

		back, err := frame.ToMessage()
		require.NoError(t, err, "protocol %s", protocol)
		require.True(t, msg.AsRpcValue().Equal(back.AsRpcValue()), "protocol %s", protocol)
	}
}

func TestFrame_WireRoundTrip(t *testing.T) {
	for _, protocol := range []Protocol{ProtocolChainPack, ProtocolCpon} {
		msg := testRequest(t)
		frame, err := FrameFromMessage(protocol, msg)
		require.NoError(t, err)
		wire, err := frame.Bytes()
		require.NoError(t, err)

		consumed, parsed, err := ParseFrame(wire)
		require.NoError(t, err, "protocol %s", protocol)
		require.NotNil(t, parsed)
		require.Equal(t, len(wire), consumed)
		require.Equal(t, protocol, parsed.Protocol)
		require.True(t, frame.Meta.Equal(parsed.Meta))
		require.Equal(t, frame.Data, parsed.Data)

		back, err := parsed.ToMessage()
		require.NoError(t, err)
		require.True(t, msg.AsRpcValue().Equal(back.AsRpcValue()))
	}
}

// TestFrame_PartialRead is the incremental-feed property: every strict
// prefix of a valid frame yields "need more data", the complete buffer
// yields the frame, and trailing bytes are left unconsumed.
func TestFrame_PartialRead(t *testing.T) {
	msg := testRequest(t)
	frame, err := FrameFromMessage(ProtocolChainPack, msg)
	require.NoError(t, err)
	wire, err := frame.Bytes()
	require.NoError(t, err)

	for n := 0; n < len(wire); n++ {
		consumed, parsed, err := ParseFrame(wire[:n])
		require.NoError(t, err, "prefix of %d bytes", n)
		require.Nil(t, parsed, "prefix of %d bytes", n)
		require.Zero(t, consumed, "prefix of %d bytes", n)
	}

	withTrailer := append(append([]byte{}, wire...), 0xAB, 0xCD)
	consumed, parsed, err := ParseFrame(withTrailer)
	require.NoError(t, err)
	require.NotNil(t, parsed)
	require.Equal(t, len(wire), consumed)
}

func TestFrame_InvalidProtocol(t *testing.T) {
	// varuint length 4, protocol byte 9, three payload bytes, one trailing byte
	_, _, err := ParseFrame([]byte{0x04, 0x09, 0x00, 0x00, 0x00, 0x00})
	require.Error(t, err)
}

func TestFrame_BytesLengthCoversPayload(t *testing.T) {
	msg := testRequest(t)
	frame, err := FrameFromMessage(ProtocolChainPack, msg)
	require.NoError(t, err)
	wire, err := frame.Bytes()
	require.NoError(t, err)

	// first byte is a 1-byte varuint length for any small frame
	require.Less(t, int(wire[0]), 128)
	require.Equal(t, int(wire[0]), len(wire)-1)
	require.Equal(t, byte(ProtocolChainPack), wire[1])
}
