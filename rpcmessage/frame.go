package rpcmessage

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/silicon-heaven/shvproto-go/chainpack"
	"github.com/silicon-heaven/shvproto-go/cpon"
	"github.com/silicon-heaven/shvproto-go/internal/pool"
	"github.com/silicon-heaven/shvproto-go/rpcvalue"
)

// Protocol selects the serialization of a frame's payload.
type Protocol byte

const (
	// ProtocolChainPack is the binary serialization.
	ProtocolChainPack Protocol = 1
	// ProtocolCpon is the textual serialization.
	ProtocolCpon Protocol = 2
)

func (p Protocol) String() string {
	switch p {
	case ProtocolChainPack:
		return "ChainPack"
	case ProtocolCpon:
		return "Cpon"
	}

	return fmt.Sprintf("Protocol(%d)", byte(p))
}

// ErrMissingMeta is returned by ParseFrame when the frame payload does not
// start with a metadata envelope.
var ErrMissingMeta = errors.New("rpcmessage: frame payload has no meta map")

// minFrameLen is the shortest well-formed message frame: length byte,
// protocol byte, empty meta map (two bytes), empty IMap value (two bytes).
// A shorter buffer always means "need more".
const minFrameLen = 6

// Frame is the wire unit of the protocol. On the wire it is laid out as
//
//	varuint(length) || protocol byte || meta map || value
//
// where the varuint length covers everything after it. The metadata is
// kept decoded so brokers can route without touching the value, which
// stays as raw Data until ToMessage.
type Frame struct {
	Protocol Protocol
	Meta     *rpcvalue.MetaMap
	Data     []byte
}

// NewFrame assembles a frame from already serialized value data.
func NewFrame(protocol Protocol, meta *rpcvalue.MetaMap, data []byte) *Frame {
	return &Frame{Protocol: protocol, Meta: meta, Data: data}
}

// FrameFromMessage serializes a message's value into a frame of the given
// protocol. The message's metadata envelope is carried decoded.
func FrameFromMessage(protocol Protocol, msg *Message) (*Frame, error) {
	buf := pool.Get()
	defer pool.Put(buf)
	switch protocol {
	case ProtocolChainPack:
		if err := chainpack.NewWriter(buf).WriteValue(msg.AsRpcValue().Value()); err != nil {
			return nil, err
		}
	case ProtocolCpon:
		if err := cpon.NewWriter(buf).WriteValue(msg.AsRpcValue().Value()); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("rpcmessage: invalid protocol %d", byte(protocol))
	}
	data := make([]byte, buf.Len())
	copy(data, buf.Bytes())

	return &Frame{
		Protocol: protocol,
		Meta:     msg.AsRpcValue().Meta().Clone(),
		Data:     data,
	}, nil
}

// ToMessage decodes the frame's value data and reattaches the metadata.
func (f *Frame) ToMessage() (*Message, error) {
	var rv rpcvalue.RpcValue
	var err error
	switch f.Protocol {
	case ProtocolChainPack:
		rv, err = chainpack.NewReader(bytes.NewReader(f.Data)).Read()
	case ProtocolCpon:
		rv, err = cpon.NewReader(bytes.NewReader(f.Data)).Read()
	default:
		return nil, fmt.Errorf("rpcmessage: invalid protocol %d", byte(f.Protocol))
	}
	if err != nil {
		return nil, err
	}
	rv.SetMeta(f.Meta.Clone())

	return &Message{rv: rv}, nil
}

// Bytes serializes the frame for the wire: the varuint length prefix, the
// protocol byte, the metadata envelope and the value data.
func (f *Frame) Bytes() ([]byte, error) {
	payload := pool.Get()
	defer pool.Put(payload)
	if err := payload.WriteByte(byte(f.Protocol)); err != nil {
		return nil, err
	}
	meta := f.Meta
	if meta == nil {
		meta = rpcvalue.NewMetaMap()
	}
	switch f.Protocol {
	case ProtocolChainPack:
		if err := chainpack.NewWriter(payload).WriteMeta(meta); err != nil {
			return nil, err
		}
	case ProtocolCpon:
		if err := cpon.NewWriter(payload).WriteMeta(meta); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("rpcmessage: invalid protocol %d", byte(f.Protocol))
	}
	if _, err := payload.Write(f.Data); err != nil {
		return nil, err
	}

	out := pool.Get()
	defer pool.Put(out)
	if err := chainpack.NewWriter(out).WriteUIntData(uint64(payload.Len())); err != nil {
		return nil, err
	}
	if _, err := out.Write(payload.Bytes()); err != nil {
		return nil, err
	}
	frame := make([]byte, out.Len())
	copy(frame, out.Bytes())

	return frame, nil
}

// ParseFrame extracts the first complete frame from buf. It returns the
// number of bytes consumed and the frame, or (0, nil, nil) when the buffer
// does not yet hold a complete frame; short buffers are never an error.
func ParseFrame(buf []byte) (int, *Frame, error) {
	if len(buf) < minFrameLen {
		return 0, nil, nil
	}

	br := bytes.NewReader(buf)
	lengthReader := chainpack.NewReader(br)
	msgLen, err := lengthReader.ReadUIntData()
	if err != nil {
		var re *rpcvalue.ReadError
		if errors.As(err, &re) && re.Kind == rpcvalue.KindUnexpectedEOF {
			return 0, nil, nil
		}

		return 0, nil, err
	}
	headerLen := lengthReader.Pos()
	frameLen := headerLen + int(msgLen)
	if len(buf) < frameLen {
		return 0, nil, nil
	}

	protocol := Protocol(buf[headerLen])
	rest := buf[headerLen+1 : frameLen]

	var meta *rpcvalue.MetaMap
	var metaLen int
	switch protocol {
	case ProtocolChainPack:
		rd := chainpack.NewReader(bytes.NewReader(rest))
		meta, err = rd.TryReadMeta()
		metaLen = rd.Pos()
	case ProtocolCpon:
		rd := cpon.NewReader(bytes.NewReader(rest))
		meta, err = rd.TryReadMeta()
		metaLen = rd.Pos()
	default:
		return 0, nil, fmt.Errorf("rpcmessage: invalid protocol %d", byte(protocol))
	}
	if err != nil {
		return 0, nil, err
	}
	if meta == nil {
		return 0, nil, ErrMissingMeta
	}

	data := make([]byte, len(rest)-metaLen)
	copy(data, rest[metaLen:])

	return frameLen, &Frame{Protocol: protocol, Meta: meta, Data: data}, nil
}
