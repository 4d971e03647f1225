package compress

import (
	"fmt"
	"slices"

	"github.com/klauspost/compress/s2"
)

// S2Codec compresses with the Snappy-compatible S2 block format. It is
// the fastest codec here, suited to live journal capture.
type S2Codec struct{}

var _ Codec = S2Codec{}

// NewS2Codec creates a new S2 codec.
func NewS2Codec() S2Codec {
	return S2Codec{}
}

// Compress appends the S2 encoding of src to dst. The destination is
// grown to the format's worst-case bound up front so the encoder works
// in place.
func (S2Codec) Compress(dst, src []byte) ([]byte, error) {
	off := len(dst)
	dst = slices.Grow(dst, s2.MaxEncodedLen(len(src)))
	enc := s2.Encode(dst[off:cap(dst)], src)

	return dst[:off+len(enc)], nil
}

// Decompress appends the decoded block to dst. The block's declared size
// is checked against the recorded size before anything is allocated, so
// a corrupted length field cannot trigger an oversized decode.
func (S2Codec) Decompress(dst, src []byte, rawSize int) ([]byte, error) {
	declared, err := s2.DecodedLen(src)
	if err != nil {
		return nil, err
	}
	if declared != rawSize {
		return nil, fmt.Errorf("compress: s2 block declares %d bytes, record says %d", declared, rawSize)
	}

	off := len(dst)
	dst = slices.Grow(dst, rawSize)
	dec, err := s2.Decode(dst[off:cap(dst)], src)
	if err != nil {
		return nil, err
	}

	return dst[:off+len(dec)], nil
}
