package chainpack

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/bits"

	"github.com/silicon-heaven/shvproto-go/internal/pool"
	"github.com/silicon-heaven/shvproto-go/internal/stream"
	"github.com/silicon-heaven/shvproto-go/rpcvalue"
)

// Writer emits rich values in the ChainPack binary format. Map and IMap
// entries go out in ascending key order and MetaMap pairs in insertion
// order, so emission is byte-for-byte deterministic.
type Writer struct {
	bw *stream.Writer
}

// NewWriter creates a Writer targeting w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: stream.NewWriter(w)}
}

// ToChainPack serializes a rich value to ChainPack bytes.
func ToChainPack(v rpcvalue.RpcValue) ([]byte, error) {
	buf := pool.Get()
	defer pool.Put(buf)
	if err := NewWriter(buf).Write(v); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())

	return out, nil
}

// Count returns the number of bytes written so far.
func (wr *Writer) Count() int { return wr.bw.Count() }

// Write emits a rich value: the metadata envelope when present, then the
// value.
func (wr *Writer) Write(v rpcvalue.RpcValue) error {
	if m := v.Meta(); !m.IsEmpty() {
		if err := wr.WriteMeta(m); err != nil {
			return err
		}
	}

	return wr.WriteValue(v.Value())
}

// WriteMeta emits a metadata envelope: integer keys as ChainPack ints,
// string keys as ChainPack strings, pairs in insertion order.
func (wr *Writer) WriteMeta(m *rpcvalue.MetaMap) error {
	if err := wr.bw.WriteByte(SchemaMetaMap); err != nil {
		return err
	}
	for _, p := range m.Pairs() {
		if p.Key.IsString() {
			if err := wr.writeString(p.Key.Str()); err != nil {
				return err
			}
		} else {
			if err := wr.writeInt(int64(p.Key.Int())); err != nil {
				return err
			}
		}
		if err := wr.Write(p.Value); err != nil {
			return err
		}
	}

	return wr.bw.WriteByte(SchemaTerm)
}

// WriteValue emits a bare value without its metadata envelope.
func (wr *Writer) WriteValue(val rpcvalue.Value) error {
	switch v := val.(type) {
	case rpcvalue.Null:
		return wr.bw.WriteByte(SchemaNull)
	case rpcvalue.Bool:
		if v {
			return wr.bw.WriteByte(SchemaTrue)
		}

		return wr.bw.WriteByte(SchemaFalse)
	case rpcvalue.Int:
		return wr.writeInt(int64(v))
	case rpcvalue.UInt:
		return wr.writeUInt(uint64(v))
	case rpcvalue.Double:
		return wr.writeDouble(float64(v))
	case rpcvalue.Decimal:
		return wr.writeDecimal(v)
	case rpcvalue.DateTime:
		return wr.writeDateTime(v)
	case rpcvalue.String:
		return wr.writeString(string(v))
	case rpcvalue.Blob:
		return wr.writeBlob(v)
	case rpcvalue.List:
		return wr.writeList(v)
	case rpcvalue.Map:
		return wr.writeMap(v)
	case rpcvalue.IMap:
		return wr.writeIMap(v)
	default:
		return wr.bw.WriteByte(SchemaNull)
	}
}

/*
Varuint layout; payload bytes are big-endian, most significant first.

	 0 ...  7 bits  1 byte   |0|x|x|x|x|x|x|x|
	 8 ... 14 bits  2 bytes  |1|0|x|x|x|x|x|x| |x|x|x|x|x|x|x|x|
	15 ... 21 bits  3 bytes  |1|1|0|x|x|x|x|x| + 2 bytes
	22 ... 28 bits  4 bytes  |1|1|1|0|x|x|x|x| + 3 bytes
	29+       bits  5+ bytes |1|1|1|1|n|n|n|n| + n+4 bytes
	                         n == 0 means a 4-byte (32-bit) payload,
	                         n == 15 is reserved.
*/

// bytesNeeded returns the encoded size for a value of the given significant
// bit length.
func bytesNeeded(bitLen int) int {
	if bitLen == 0 {
		return 1
	}
	if bitLen <= 28 {
		return (bitLen-1)/7 + 1
	}

	return (bitLen-1)/8 + 2
}

// expandBitLen returns the largest bit length encodable in the same number
// of bytes as bitLen. The varint sign bit sits at this position.
func expandBitLen(bitLen int) int {
	cnt := bytesNeeded(bitLen)
	if bitLen <= 28 {
		return cnt*7 - 1
	}

	return (cnt-1)*8 - 1
}

func (wr *Writer) writeUIntDataHelper(num uint64, bitLen int) error {
	byteCnt := bytesNeeded(bitLen)
	var buf [10]byte
	for i := byteCnt - 1; i >= 0; i-- {
		buf[i] = byte(num)
		num >>= 8
	}
	if bitLen <= 28 {
		mask := uint(0xf0) << (4 - byteCnt)
		buf[0] &= byte(^mask)
		mask <<= 1
		buf[0] |= byte(mask)
	} else {
		buf[0] = byte(0xf0 | (byteCnt - 5))
	}

	return wr.bw.WriteBytes(buf[:byteCnt])
}

// WriteUIntData emits a bare varuint with no schema byte. The frame layer
// uses it for length prefixes.
func (wr *Writer) WriteUIntData(num uint64) error {
	return wr.writeUIntDataHelper(num, bits.Len64(num))
}

// writeIntData emits a bare varint: the magnitude with a sign bit OR-ed in
// at the expanded bit length position.
func (wr *Writer) writeIntData(num int64) error {
	neg := num < 0
	var mag uint64
	if neg {
		mag = uint64(-(num + 1)) + 1
	} else {
		mag = uint64(num)
	}

	bitLen := bits.Len64(mag) + 1 // sign bit
	if bitLen > 64 {
		return fmt.Errorf("chainpack: int %d out of varint range", num)
	}
	if neg {
		mag |= uint64(1) << expandBitLen(bitLen)
	}

	return wr.writeUIntDataHelper(mag, bitLen)
}

func (wr *Writer) writeInt(n int64) error {
	if n >= 0 && n < 64 {
		return wr.bw.WriteByte(byte(n) + 64)
	}
	if err := wr.bw.WriteByte(SchemaInt); err != nil {
		return err
	}

	return wr.writeIntData(n)
}

func (wr *Writer) writeUInt(n uint64) error {
	if n < 64 {
		return wr.bw.WriteByte(byte(n))
	}
	if err := wr.bw.WriteByte(SchemaUInt); err != nil {
		return err
	}

	return wr.WriteUIntData(n)
}

func (wr *Writer) writeDouble(n float64) error {
	if err := wr.bw.WriteByte(SchemaDouble); err != nil {
		return err
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(n))

	return wr.bw.WriteBytes(buf[:])
}

func (wr *Writer) writeDecimal(d rpcvalue.Decimal) error {
	if err := wr.bw.WriteByte(SchemaDecimal); err != nil {
		return err
	}
	mantissa, exponent := d.Decode()
	if err := wr.writeIntData(mantissa); err != nil {
		return err
	}

	return wr.writeIntData(int64(exponent))
}

func (wr *Writer) writeDateTime(dt rpcvalue.DateTime) error {
	if err := wr.bw.WriteByte(SchemaDateTime); err != nil {
		return err
	}

	return wr.writeIntData(int64(dt))
}

func (wr *Writer) writeString(s string) error {
	if err := wr.bw.WriteByte(SchemaString); err != nil {
		return err
	}
	if err := wr.WriteUIntData(uint64(len(s))); err != nil {
		return err
	}

	return wr.bw.WriteString(s)
}

func (wr *Writer) writeBlob(b rpcvalue.Blob) error {
	if err := wr.bw.WriteByte(SchemaBlob); err != nil {
		return err
	}
	if err := wr.WriteUIntData(uint64(len(b))); err != nil {
		return err
	}

	return wr.bw.WriteBytes(b)
}

func (wr *Writer) writeList(lst rpcvalue.List) error {
	if err := wr.bw.WriteByte(SchemaList); err != nil {
		return err
	}
	for _, v := range lst {
		if err := wr.Write(v); err != nil {
			return err
		}
	}

	return wr.bw.WriteByte(SchemaTerm)
}

func (wr *Writer) writeMap(m rpcvalue.Map) error {
	if err := wr.bw.WriteByte(SchemaMap); err != nil {
		return err
	}
	for _, k := range m.SortedKeys() {
		if err := wr.writeString(k); err != nil {
			return err
		}
		if err := wr.Write(m[k]); err != nil {
			return err
		}
	}

	return wr.bw.WriteByte(SchemaTerm)
}

func (wr *Writer) writeIMap(m rpcvalue.IMap) error {
	if err := wr.bw.WriteByte(SchemaIMap); err != nil {
		return err
	}
	for _, k := range m.SortedKeys() {
		if err := wr.writeInt(int64(k)); err != nil {
			return err
		}
		if err := wr.Write(m[k]); err != nil {
			return err
		}
	}

	return wr.bw.WriteByte(SchemaTerm)
}
