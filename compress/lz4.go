package compress

import (
	"fmt"
	"slices"

	"github.com/pierrec/lz4/v4"
)

// LZ4Codec compresses with LZ4 block encoding: faster than zstd, tighter
// than S2. The embedded lz4.Compressor keeps its match tables across
// calls, which is the state that makes an instance single-goroutine.
type LZ4Codec struct {
	c lz4.Compressor
}

var _ Codec = (*LZ4Codec)(nil)

// NewLZ4Codec creates a new LZ4 codec.
func NewLZ4Codec() *LZ4Codec {
	return &LZ4Codec{}
}

// Compress appends src as a single LZ4 block to dst. The block format has
// no stored-literal mode, so input that does not shrink is reported as
// ErrIncompressible instead of being written larger than it came.
func (c *LZ4Codec) Compress(dst, src []byte) ([]byte, error) {
	off := len(dst)
	bound := lz4.CompressBlockBound(len(src))
	dst = slices.Grow(dst, bound)
	n, err := c.c.CompressBlock(src, dst[off:off+bound])
	if err != nil {
		return nil, err
	}
	if n == 0 || n >= len(src) {
		return nil, ErrIncompressible
	}

	return dst[:off+n], nil
}

// Decompress appends the decoded block to dst. The recorded size makes
// the output buffer exact: the block either fills it or is corrupt.
func (c *LZ4Codec) Decompress(dst, src []byte, rawSize int) ([]byte, error) {
	off := len(dst)
	dst = slices.Grow(dst, rawSize)
	n, err := lz4.UncompressBlock(src, dst[off:off+rawSize])
	if err != nil {
		return nil, err
	}
	if n != rawSize {
		return nil, fmt.Errorf("compress: lz4 block decodes to %d bytes, record says %d", n, rawSize)
	}

	return dst[:off+rawSize], nil
}
