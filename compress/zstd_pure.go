//go:build !cgo

package compress

import (
	"fmt"
	"slices"

	"github.com/klauspost/compress/zstd"
)

// maxDecodedSize bounds what a single zstd payload may decode to. It
// matches the journal's record limit; a frame can never legitimately be
// larger.
const maxDecodedSize = 64 * 1024 * 1024

// ZstdCodec compresses with Zstandard, the highest-ratio codec here. Use
// it for journals kept around: long-term captures, regression corpora,
// anything read rarely and stored long.
//
// This pure-Go build owns one klauspost encoder/decoder pair per
// instance, created once and reused for every record the instance sees.
type ZstdCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

var _ Codec = (*ZstdCodec)(nil)

// NewZstdCodec creates a new Zstandard codec. Journals favour ratio over
// speed, so the encoder runs at the better-compression level.
func NewZstdCodec() (*ZstdCodec, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
	)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderMaxMemory(maxDecodedSize),
	)
	if err != nil {
		enc.Close()
		return nil, err
	}

	return &ZstdCodec{enc: enc, dec: dec}, nil
}

// Compress appends the zstd frame for src to dst.
func (c *ZstdCodec) Compress(dst, src []byte) ([]byte, error) {
	return c.enc.EncodeAll(src, dst), nil
}

// Decompress appends the decoded payload to dst, growing it to the
// recorded size up front and rejecting payloads that decode to any other
// size.
func (c *ZstdCodec) Decompress(dst, src []byte, rawSize int) ([]byte, error) {
	off := len(dst)
	out, err := c.dec.DecodeAll(src, slices.Grow(dst, rawSize))
	if err != nil {
		return nil, err
	}
	if len(out)-off != rawSize {
		return nil, fmt.Errorf("compress: zstd payload decodes to %d bytes, record says %d", len(out)-off, rawSize)
	}

	return out, nil
}
