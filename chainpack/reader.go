package chainpack

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"unicode/utf8"

	"github.com/silicon-heaven/shvproto-go/internal/stream"
	"github.com/silicon-heaven/shvproto-go/rpcvalue"
)

// Reader parses ChainPack bytes into rich values. It dispatches on the
// first byte of each value: the tiny-integer ranges decode immediately,
// named schema bytes select a per-variant subparser, and SchemaTerm at a
// container-content position closes the container.
type Reader struct {
	br    *stream.Reader
	depth int
}

// NewReader creates a Reader consuming from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: stream.NewReader(r)}
}

// FromChainPack parses a single rich value from the given bytes.
func FromChainPack(data []byte) (rpcvalue.RpcValue, error) {
	return NewReader(bytes.NewReader(data)).Read()
}

// Read parses one rich value: an optional metadata envelope followed by a
// value.
func (rd *Reader) Read() (rpcvalue.RpcValue, error) {
	meta, err := rd.TryReadMeta()
	if err != nil {
		return rpcvalue.RpcValue{}, err
	}
	val, err := rd.readValue()
	if err != nil {
		return rpcvalue.RpcValue{}, err
	}
	rv := rpcvalue.New(val)
	rv.SetMeta(meta)

	return rv, nil
}

// TryReadMeta parses a metadata envelope if one follows, returning nil when
// the next byte does not open one. Keys are discriminated by their own
// schema byte: integers become int keys, strings and blobs string keys.
func (rd *Reader) TryReadMeta() (*rpcvalue.MetaMap, error) {
	if rd.br.PeekByte() != SchemaMetaMap {
		return nil, nil
	}
	if err := rd.enter(); err != nil {
		return nil, err
	}
	defer rd.leave()
	if _, err := rd.br.GetByte(); err != nil {
		return nil, err
	}

	m := rpcvalue.NewMetaMap()
	for {
		if rd.br.PeekByte() == SchemaTerm {
			if _, err := rd.br.GetByte(); err != nil {
				return nil, err
			}
			break
		}
		key, err := rd.readValue()
		if err != nil {
			return nil, err
		}
		val, err := rd.Read()
		if err != nil {
			return nil, err
		}
		switch k := key.(type) {
		case rpcvalue.Int:
			m.SetInt(int32(k), val)
		case rpcvalue.UInt:
			m.SetInt(int32(k), val)
		case rpcvalue.String:
			m.SetStr(string(k), val)
		case rpcvalue.Blob:
			if !utf8.Valid(k) {
				return nil, rd.newError(rpcvalue.KindInvalidKey, "invalid UTF-8 in meta key")
			}
			m.SetStr(string(k), val)
		default:
			return nil, rd.newError(rpcvalue.KindInvalidKey,
				"invalid meta key of type %s", key.TypeName())
		}
	}

	return m, nil
}

// Pos returns the number of bytes consumed so far.
func (rd *Reader) Pos() int { return rd.br.Pos() }

func (rd *Reader) newError(kind rpcvalue.ErrorKind, format string, args ...any) *rpcvalue.ReadError {
	return rd.br.NewError(kind, format, args...)
}

func (rd *Reader) enter() error {
	rd.depth++
	if rd.depth > maxNestingDepth {
		return rd.newError(rpcvalue.KindInvalidChar, "container nesting too deep")
	}

	return nil
}

func (rd *Reader) leave() { rd.depth-- }

func (rd *Reader) readValue() (rpcvalue.Value, error) {
	b, err := rd.br.GetByte()
	if err != nil {
		return nil, err
	}
	switch {
	case b < 64:
		return rpcvalue.UInt(b), nil
	case b < 128:
		return rpcvalue.Int(b - 64), nil
	}

	switch b {
	case SchemaNull:
		return rpcvalue.Null{}, nil
	case SchemaTrue:
		return rpcvalue.Bool(true), nil
	case SchemaFalse:
		return rpcvalue.Bool(false), nil
	case SchemaBool:
		// legacy explicit form: one payload byte
		pb, err := rd.br.GetByte()
		if err != nil {
			return nil, err
		}

		return rpcvalue.Bool(pb != 0), nil
	case SchemaUInt:
		n, _, err := rd.readUIntData()
		if err != nil {
			return nil, err
		}

		return rpcvalue.UInt(n), nil
	case SchemaInt:
		n, err := rd.readIntData()
		if err != nil {
			return nil, err
		}

		return rpcvalue.Int(n), nil
	case SchemaDouble:
		var buf [8]byte
		if err := rd.readFull(buf[:]); err != nil {
			return nil, err
		}

		return rpcvalue.Double(math.Float64frombits(binary.LittleEndian.Uint64(buf[:]))), nil
	case SchemaDecimal:
		mantissa, err := rd.readIntData()
		if err != nil {
			return nil, err
		}
		exponent, err := rd.readIntData()
		if err != nil {
			return nil, err
		}

		return rpcvalue.NewDecimal(mantissa, int8(exponent)), nil
	case SchemaDateTime:
		packed, err := rd.readIntData()
		if err != nil {
			return nil, err
		}

		return rpcvalue.DateTime(packed), nil
	case SchemaString:
		buf, err := rd.readBlobData()
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(buf) {
			return nil, rd.newError(rpcvalue.KindInvalidString, "invalid UTF-8 in string")
		}

		return rpcvalue.String(buf), nil
	case SchemaBlob:
		buf, err := rd.readBlobData()
		if err != nil {
			return nil, err
		}

		return rpcvalue.Blob(buf), nil
	case SchemaList:
		return rd.readList()
	case SchemaMap:
		return rd.readMap()
	case SchemaIMap:
		return rd.readIMap()
	case SchemaTerm:
		return nil, rd.newError(rpcvalue.KindInvalidChar, "unexpected container terminator")
	default:
		return nil, rd.newError(rpcvalue.KindSchemaByte, "undefined packing schema byte 0x%02x", b)
	}
}

// readUIntData decodes a bare varuint, additionally reporting how many
// bytes it occupied so the varint decoder can locate the sign bit.
func (rd *Reader) readUIntData() (uint64, int, error) {
	head, err := rd.br.GetByte()
	if err != nil {
		return 0, 0, err
	}

	var val uint64
	var extra int
	switch {
	case head < 0x80:
		return uint64(head), 1, nil
	case head < 0xC0:
		val = uint64(head & 0x3F)
		extra = 1
	case head < 0xE0:
		val = uint64(head & 0x1F)
		extra = 2
	case head < 0xF0:
		val = uint64(head & 0x0F)
		extra = 3
	default:
		n := int(head & 0x0F)
		if n == 0x0F {
			return 0, 0, rd.newError(rpcvalue.KindIntegerOverflow, "reserved varuint length prefix")
		}
		extra = n + 4
		if extra > 8 {
			return 0, 0, rd.newError(rpcvalue.KindIntegerOverflow,
				"varuint payload of %d bytes exceeds 64 bits", extra)
		}
	}
	for i := 0; i < extra; i++ {
		b, err := rd.br.GetByte()
		if err != nil {
			return 0, 0, err
		}
		val = val<<8 | uint64(b)
	}

	return val, extra + 1, nil
}

// ReadUIntData decodes a bare varuint with no schema byte. The frame layer
// uses it for length prefixes.
func (rd *Reader) ReadUIntData() (uint64, error) {
	n, _, err := rd.readUIntData()

	return n, err
}

// readIntData decodes a bare varint: parse as varuint, then strip the sign
// bit sitting at the expanded bit length of the encoded size.
func (rd *Reader) readIntData() (int64, error) {
	val, byteCnt, err := rd.readUIntData()
	if err != nil {
		return 0, err
	}
	var signPos int
	if byteCnt <= 4 {
		signPos = byteCnt*7 - 1
	} else {
		signPos = (byteCnt-1)*8 - 1
	}
	mask := uint64(1) << signPos
	if val&mask != 0 {
		return -int64(val &^ mask), nil
	}

	return int64(val), nil
}

func (rd *Reader) readFull(buf []byte) error {
	for i := range buf {
		b, err := rd.br.GetByte()
		if err != nil {
			return err
		}
		buf[i] = b
	}

	return nil
}

func (rd *Reader) readBlobData() ([]byte, error) {
	n, _, err := rd.readUIntData()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, min(n, 4096))
	for i := uint64(0); i < n; i++ {
		b, err := rd.br.GetByte()
		if err != nil {
			return nil, err
		}
		buf = append(buf, b)
	}

	return buf, nil
}

func (rd *Reader) readList() (rpcvalue.Value, error) {
	if err := rd.enter(); err != nil {
		return nil, err
	}
	defer rd.leave()
	lst := rpcvalue.List{}
	for {
		if rd.br.PeekByte() == SchemaTerm {
			if _, err := rd.br.GetByte(); err != nil {
				return nil, err
			}

			return lst, nil
		}
		v, err := rd.Read()
		if err != nil {
			return nil, err
		}
		lst = append(lst, v)
	}
}

func (rd *Reader) readMap() (rpcvalue.Value, error) {
	if err := rd.enter(); err != nil {
		return nil, err
	}
	defer rd.leave()
	m := rpcvalue.Map{}
	for {
		if rd.br.PeekByte() == SchemaTerm {
			if _, err := rd.br.GetByte(); err != nil {
				return nil, err
			}

			return m, nil
		}
		key, err := rd.readValue()
		if err != nil {
			return nil, err
		}
		skey, ok := key.(rpcvalue.String)
		if !ok {
			return nil, rd.newError(rpcvalue.KindInvalidKey,
				"map key must be a string, got %s", key.TypeName())
		}
		val, err := rd.Read()
		if err != nil {
			return nil, err
		}
		m[string(skey)] = val // duplicate keys: later wins
	}
}

func (rd *Reader) readIMap() (rpcvalue.Value, error) {
	if err := rd.enter(); err != nil {
		return nil, err
	}
	defer rd.leave()
	m := rpcvalue.IMap{}
	for {
		if rd.br.PeekByte() == SchemaTerm {
			if _, err := rd.br.GetByte(); err != nil {
				return nil, err
			}

			return m, nil
		}
		key, err := rd.readValue()
		if err != nil {
			return nil, err
		}
		var ikey int32
		switch k := key.(type) {
		case rpcvalue.Int:
			ikey = int32(k)
		case rpcvalue.UInt:
			ikey = int32(k)
		default:
			return nil, rd.newError(rpcvalue.KindInvalidKey,
				"IMap key must be an integer, got %s", key.TypeName())
		}
		val, err := rd.Read()
		if err != nil {
			return nil, err
		}
		m[ikey] = val
	}
}
