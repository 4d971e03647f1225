package compress

import "fmt"

// NoneCodec passes payloads through untouched. Journals written with it
// remain greppable, which is worth more than disk space while debugging.
type NoneCodec struct{}

var _ Codec = NoneCodec{}

// Compress appends src to dst verbatim.
func (NoneCodec) Compress(dst, src []byte) ([]byte, error) {
	return append(dst, src...), nil
}

// Decompress appends src to dst verbatim after checking it against the
// recorded size.
func (NoneCodec) Decompress(dst, src []byte, rawSize int) ([]byte, error) {
	if len(src) != rawSize {
		return nil, fmt.Errorf("compress: raw record holds %d bytes, header says %d", len(src), rawSize)
	}

	return append(dst, src...), nil
}
