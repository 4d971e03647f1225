// Package compress provides the block codecs behind the frame journal.
//
// The journal stores every record's raw frame length in the record header,
// so the decoded size is always known before decompression starts. The
// Codec interface passes that size through, which lets every
// implementation allocate its output exactly once instead of guessing.
//
// Both operations are append-style: output is appended to dst (which may
// be nil) and the extended slice is returned, so the journal writer can
// recycle one scratch buffer across records.
//
// A Codec instance may keep private scratch state and is not safe for
// concurrent use; create one instance per goroutine.
package compress

import (
	"errors"
	"fmt"
)

// Type identifies a compression codec on disk.
type Type uint8

const (
	// TypeNone stores payloads verbatim.
	TypeNone Type = iota
	// TypeZstd is Zstandard: the best ratio, for archived journals.
	TypeZstd
	// TypeS2 is the Snappy-compatible S2 format: fastest, for live capture.
	TypeS2
	// TypeLZ4 is LZ4 block compression: a middle ground.
	TypeLZ4
)

func (t Type) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeZstd:
		return "zstd"
	case TypeS2:
		return "s2"
	case TypeLZ4:
		return "lz4"
	}

	return fmt.Sprintf("Type(%d)", uint8(t))
}

// ErrIncompressible reports input the block format cannot shrink. The
// journal reacts by storing the record raw; other callers may treat it
// the same way.
var ErrIncompressible = errors.New("compress: input not compressible")

// Codec compresses and decompresses whole payloads.
type Codec interface {
	// Compress appends the compressed form of src to dst and returns the
	// extended slice. It may return ErrIncompressible when storing src
	// verbatim would be smaller.
	Compress(dst, src []byte) ([]byte, error)

	// Decompress appends the decoded form of src to dst and returns the
	// extended slice. rawSize is the exact decoded size as recorded next
	// to the payload; input that decodes to any other size is an error.
	Decompress(dst, src []byte, rawSize int) ([]byte, error)
}

// New returns a fresh codec instance for a type tag.
func New(t Type) (Codec, error) {
	switch t {
	case TypeNone:
		return NoneCodec{}, nil
	case TypeZstd:
		return NewZstdCodec()
	case TypeS2:
		return NewS2Codec(), nil
	case TypeLZ4:
		return NewLZ4Codec(), nil
	}

	return nil, fmt.Errorf("compress: unknown codec type %d", uint8(t))
}
