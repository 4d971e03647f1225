// Package stream provides the byte source and byte sink shared by the Cpon
// and ChainPack codecs: one byte of look-ahead, line/column tracking for
// error locations, and a written-byte counter.
package stream

import (
	"fmt"
	"io"

	"github.com/silicon-heaven/shvproto-go/rpcvalue"
)

// Reader is a byte source with single-byte look-ahead. It tracks the line
// and column of the byte about to be consumed; a newline resets the column
// and advances the line.
type Reader struct {
	r      io.Reader
	peeked int16 // -1 when no byte is buffered
	pos    int   // bytes handed out through GetByte
	line   int
	col    int
}

// NewReader wraps r. Callers that care about read performance should pass
// an already buffered reader; Reader issues single-byte reads.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, peeked: -1}
}

// PeekByte returns the next byte without consuming it, or 0 on end of
// stream or read failure. One byte of look-ahead is all the codecs need.
func (r *Reader) PeekByte() byte {
	if r.peeked >= 0 {
		return byte(r.peeked)
	}
	var arr [1]byte
	n, _ := r.r.Read(arr[:])
	if n == 0 {
		return 0
	}
	r.peeked = int16(arr[0])

	return arr[0]
}

// GetByte consumes and returns the next byte. End of stream surfaces as a
// KindUnexpectedEOF error, other failures as KindIO, both located at the
// current line and column.
func (r *Reader) GetByte() (byte, error) {
	var b byte
	if r.peeked >= 0 {
		b = byte(r.peeked)
		r.peeked = -1
	} else {
		var arr [1]byte
		n, err := r.r.Read(arr[:])
		if n == 0 {
			if err == nil || err == io.EOF {
				return 0, r.NewError(rpcvalue.KindUnexpectedEOF, "unexpected end of stream")
			}

			return 0, r.NewError(rpcvalue.KindIO, err.Error())
		}
		b = arr[0]
	}
	r.pos++
	if b == '\n' {
		r.line++
		r.col = 0
	} else {
		r.col++
	}

	return b, nil
}

// Pos returns the number of bytes consumed so far. A peeked but not yet
// consumed byte does not count.
func (r *Reader) Pos() int { return r.pos }

// Line returns the current 0-based line.
func (r *Reader) Line() int { return r.line }

// Column returns the current 0-based column.
func (r *Reader) Column() int { return r.col }

// NewError builds a ReadError at the current source location.
func (r *Reader) NewError(kind rpcvalue.ErrorKind, format string, args ...any) *rpcvalue.ReadError {
	return &rpcvalue.ReadError{
		Kind: kind,
		Msg:  fmt.Sprintf(format, args...),
		Line: r.line,
		Col:  r.col,
	}
}
