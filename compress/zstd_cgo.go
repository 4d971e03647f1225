//go:build cgo

package compress

import (
	"fmt"

	"github.com/valyala/gozstd"
)

// archiveLevel trades encode speed for ratio; journals are written once
// and read rarely.
const archiveLevel = 9

// ZstdCodec compresses with Zstandard, the highest-ratio codec here. Use
// it for journals kept around: long-term captures, regression corpora,
// anything read rarely and stored long.
//
// This cgo build delegates to libzstd, whose one-shot calls already
// append to the destination slice; interoperates with the pure-Go build.
type ZstdCodec struct{}

var _ Codec = (*ZstdCodec)(nil)

// NewZstdCodec creates a new Zstandard codec.
func NewZstdCodec() (*ZstdCodec, error) {
	return &ZstdCodec{}, nil
}

// Compress appends the zstd frame for src to dst.
func (c *ZstdCodec) Compress(dst, src []byte) ([]byte, error) {
	return gozstd.CompressLevel(dst, src, archiveLevel), nil
}

// Decompress appends the decoded payload to dst, rejecting payloads that
// decode to a size other than the recorded one.
func (c *ZstdCodec) Decompress(dst, src []byte, rawSize int) ([]byte, error) {
	off := len(dst)
	out, err := gozstd.Decompress(dst, src)
	if err != nil {
		return nil, err
	}
	if len(out)-off != rawSize {
		return nil, fmt.Errorf("compress: zstd payload decodes to %d bytes, record says %d", len(out)-off, rawSize)
	}

	return out, nil
}
