// Package journal records RPC wire frames into an append-only stream for
// traffic capture and replay. Each frame becomes one self-contained record
// with an xxHash64 checksum and optional block compression, so a journal
// survives truncation at any record boundary and detects corruption within
// one.
package journal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"

	"github.com/silicon-heaven/shvproto-go/compress"
)

// Record layout, little-endian:
//
//	offset size field
//	0      2    magic 0xACF1
//	2      1    codec type
//	3      4    raw payload length
//	7      4    stored payload length
//	11     8    xxHash64 of the raw payload
//	19     n    stored payload
//
// The codec byte is per record: a writer configured for compression still
// stores a record raw when compressing it would not pay, typical for the
// small high-entropy frames of an idle connection.
const (
	recordMagic  uint16 = 0xACF1
	headerSize          = 19
	maxRecordLen        = 64 * 1024 * 1024
)

var (
	// ErrBadMagic means the stream position does not start a record.
	ErrBadMagic = errors.New("journal: bad record magic")
	// ErrChecksum means a record's payload does not match its checksum.
	ErrChecksum = errors.New("journal: record checksum mismatch")
)

// Writer appends frame records to an underlying stream.
type Writer struct {
	w       io.Writer
	codec   compress.Codec
	ctype   compress.Type
	scratch []byte
}

// NewWriter creates a journal writer compressing payloads with the given
// codec type.
func NewWriter(w io.Writer, t compress.Type) (*Writer, error) {
	codec, err := compress.New(t)
	if err != nil {
		return nil, err
	}

	return &Writer{w: w, codec: codec, ctype: t}, nil
}

// Append writes one frame as a record. The frame bytes are stored exactly
// as they appeared on the wire; compression applies per record and falls
// back to raw storage when the frame does not shrink.
func (jw *Writer) Append(frame []byte) error {
	if len(frame) > maxRecordLen {
		return fmt.Errorf("journal: frame of %d bytes exceeds record limit", len(frame))
	}

	ctype := compress.TypeNone
	stored := frame
	if jw.ctype != compress.TypeNone {
		buf, err := jw.codec.Compress(jw.scratch[:0], frame)
		switch {
		case errors.Is(err, compress.ErrIncompressible):
			// keep the record raw
		case err != nil:
			return err
		default:
			jw.scratch = buf[:0]
			if len(buf) < len(frame) {
				ctype = jw.ctype
				stored = buf
			}
		}
	}

	var hdr [headerSize]byte
	binary.LittleEndian.PutUint16(hdr[0:2], recordMagic)
	hdr[2] = byte(ctype)
	binary.LittleEndian.PutUint32(hdr[3:7], uint32(len(frame)))
	binary.LittleEndian.PutUint32(hdr[7:11], uint32(len(stored)))
	binary.LittleEndian.PutUint64(hdr[11:19], xxhash.Sum64(frame))

	if _, err := jw.w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := jw.w.Write(stored); err != nil {
		return err
	}

	return nil
}

// Reader replays frame records from an underlying stream.
type Reader struct {
	r      io.Reader
	codecs map[compress.Type]compress.Codec
}

// NewReader creates a journal reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, codecs: make(map[compress.Type]compress.Codec)}
}

func (jr *Reader) codec(t compress.Type) (compress.Codec, error) {
	if c, ok := jr.codecs[t]; ok {
		return c, nil
	}
	c, err := compress.New(t)
	if err != nil {
		return nil, err
	}
	jr.codecs[t] = c

	return c, nil
}

// Next returns the next recorded frame. It returns io.EOF cleanly at the
// end of the journal and io.ErrUnexpectedEOF for a record cut short.
func (jr *Reader) Next() ([]byte, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(jr.r, hdr[:1]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}

		return nil, err
	}
	if _, err := io.ReadFull(jr.r, hdr[1:]); err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}

		return nil, err
	}

	if binary.LittleEndian.Uint16(hdr[0:2]) != recordMagic {
		return nil, ErrBadMagic
	}
	ctype := compress.Type(hdr[2])
	rawLen := binary.LittleEndian.Uint32(hdr[3:7])
	storedLen := binary.LittleEndian.Uint32(hdr[7:11])
	sum := binary.LittleEndian.Uint64(hdr[11:19])
	if rawLen > maxRecordLen || storedLen > maxRecordLen {
		return nil, fmt.Errorf("journal: record of %d/%d bytes exceeds record limit", rawLen, storedLen)
	}

	stored := make([]byte, storedLen)
	if _, err := io.ReadFull(jr.r, stored); err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}

		return nil, err
	}

	codec, err := jr.codec(ctype)
	if err != nil {
		return nil, err
	}
	frame, err := codec.Decompress(make([]byte, 0, rawLen), stored, int(rawLen))
	if err != nil {
		return nil, err
	}
	if uint32(len(frame)) != rawLen || xxhash.Sum64(frame) != sum {
		return nil, ErrChecksum
	}

	return frame, nil
}
