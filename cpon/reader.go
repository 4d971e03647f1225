// Package cpon implements the textual serialization format of the SHV value
// model: a superset of JSON with comments, decorative separators, decimals,
// date-times, integer-keyed maps and metadata envelopes.
package cpon

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/silicon-heaven/shvproto-go/internal/stream"
	"github.com/silicon-heaven/shvproto-go/rpcvalue"
)

// maxNestingDepth bounds container recursion so hostile input cannot
// exhaust the native stack.
const maxNestingDepth = 96

// Reader parses Cpon text into rich values. Between any two lexemes it
// silently consumes whitespace, `,`, `:`, line comments and non-nesting
// block comments, which makes separators purely decorative.
type Reader struct {
	br    *stream.Reader
	depth int
}

// NewReader creates a Reader consuming from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: stream.NewReader(r)}
}

// FromCpon parses a single rich value from the given text.
func FromCpon(s string) (rpcvalue.RpcValue, error) {
	return NewReader(strings.NewReader(s)).Read()
}

// Read parses one rich value: an optional metadata envelope followed by a
// value. No partial values are returned; any malformation yields a
// *rpcvalue.ReadError with the source location.
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
// the next token does not open one.
func (rd *Reader) TryReadMeta() (*rpcvalue.MetaMap, error) {
	if err := rd.skipWhiteInsignificant(); err != nil {
		return nil, err
	}
	if rd.br.PeekByte() != '<' {
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
		if err := rd.skipWhiteInsignificant(); err != nil {
			return nil, err
		}
		if rd.br.PeekByte() == '>' {
			if _, err := rd.br.GetByte(); err != nil {
				return nil, err
			}
			break
		}
		key, err := rd.Read()
		if err != nil {
			return nil, err
		}
		if err := rd.skipWhiteInsignificant(); err != nil {
			return nil, err
		}
		val, err := rd.Read()
		if err != nil {
			return nil, err
		}
		switch key.Value().(type) {
		case rpcvalue.Int, rpcvalue.UInt:
			m.SetInt(int32(key.Int()), val)
		case rpcvalue.String:
			m.SetStr(key.Str(), val)
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
	if err := rd.skipWhiteInsignificant(); err != nil {
		return nil, err
	}
	b := rd.br.PeekByte()
	switch {
	case b >= '0' && b <= '9' || b == '+' || b == '-':
		return rd.readNumber()
	case b == '"':
		return rd.readString()
	case b == '[':
		return rd.readList()
	case b == '{':
		return rd.readMap()
	case b == 'i':
		return rd.readIMap()
	case b == 'd':
		return rd.readDateTime()
	case b == 'b':
		return rd.readBlob()
	case b == 't':
		return rd.readToken("true", rpcvalue.Bool(true))
	case b == 'f':
		return rd.readToken("false", rpcvalue.Bool(false))
	case b == 'n':
		return rd.readToken("null", rpcvalue.Null{})
	case b == 0:
		// force the EOF (or I/O) error out of the source
		_, err := rd.br.GetByte()
		return nil, err
	default:
		return nil, rd.newError(rpcvalue.KindInvalidChar, "invalid char '%c'", b)
	}
}

// skipWhiteInsignificant consumes everything that separates lexemes:
// control and space characters, the decorative ',' and ':', and the two
// comment flavours.
func (rd *Reader) skipWhiteInsignificant() error {
	for {
		b := rd.br.PeekByte()
		if b == 0 {
			return nil
		}
		if b <= ' ' {
			if _, err := rd.br.GetByte(); err != nil {
				return err
			}
			continue
		}
		switch b {
		case '/':
			if _, err := rd.br.GetByte(); err != nil {
				return err
			}
			if err := rd.skipComment(); err != nil {
				return err
			}
		case ':', ',':
			if _, err := rd.br.GetByte(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (rd *Reader) skipComment() error {
	b, err := rd.br.GetByte()
	if err != nil {
		return err
	}
	switch b {
	case '*':
		for {
			b, err := rd.br.GetByte()
			if err != nil {
				return err
			}
			if b == '*' {
				b, err := rd.br.GetByte()
				if err != nil {
					return err
				}
				if b == '/' {
					return nil
				}
			}
		}
	case '/':
		for {
			b, err := rd.br.GetByte()
			if err != nil {
				return err
			}
			if b == '\n' {
				return nil
			}
		}
	default:
		return rd.newError(rpcvalue.KindInvalidChar, "malformed comment")
	}
}

// readStringBytes consumes a quoted string body including both quotes and
// resolves escapes. The escape vocabulary is \\ \" \n \r \t \0; any other
// escaped character stands for itself.
func (rd *Reader) readStringBytes() ([]byte, error) {
	if _, err := rd.br.GetByte(); err != nil { // eat "
		return nil, err
	}
	var buf []byte
	for {
		b, err := rd.br.GetByte()
		if err != nil {
			return nil, err
		}
		switch b {
		case '\\':
			b, err := rd.br.GetByte()
			if err != nil {
				return nil, err
			}
			switch b {
			case '\\':
				buf = append(buf, '\\')
			case '"':
				buf = append(buf, '"')
			case 'n':
				buf = append(buf, '\n')
			case 'r':
				buf = append(buf, '\r')
			case 't':
				buf = append(buf, '\t')
			case '0':
				buf = append(buf, 0)
			default:
				buf = append(buf, b)
			}
		case '"':
			return buf, nil
		default:
			buf = append(buf, b)
		}
	}
}

func (rd *Reader) readString() (rpcvalue.Value, error) {
	buf, err := rd.readStringBytes()
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(buf) {
		return nil, rd.newError(rpcvalue.KindInvalidString, "invalid UTF-8 in string")
	}

	return rpcvalue.String(buf), nil
}

// readBlob consumes the b"…" form: hex pairs between the quotes.
func (rd *Reader) readBlob() (rpcvalue.Value, error) {
	if _, err := rd.br.GetByte(); err != nil { // eat 'b'
		return nil, err
	}
	b, err := rd.br.GetByte()
	if err != nil {
		return nil, err
	}
	if b != '"' {
		return nil, rd.newError(rpcvalue.KindInvalidChar, "wrong Blob prefix, '\"' expected")
	}
	var blob rpcvalue.Blob
	hi := -1
	for {
		b, err := rd.br.GetByte()
		if err != nil {
			return nil, err
		}
		if b == '"' {
			if hi >= 0 {
				return nil, rd.newError(rpcvalue.KindInvalidString, "odd number of hex digits in blob")
			}

			return blob, nil
		}
		nib := hexNibble(b)
		if nib < 0 {
			return nil, rd.newError(rpcvalue.KindInvalidString, "invalid hex digit '%c' in blob", b)
		}
		if hi < 0 {
			hi = nib
		} else {
			blob = append(blob, byte(hi<<4|nib))
			hi = -1
		}
	}
}

func hexNibble(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10
	}

	return -1
}

// readInt accumulates an unsigned integer literal, switching to base 16
// after a leading 0x. It reports the digit count so callers can tell an
// empty literal apart from zero. With allowSign false any '+' or '-' at the
// front is an error; that is the strict form used at integer-key positions.
func (rd *Reader) readInt(allowSign bool) (val uint64, neg bool, digits int, err error) {
	base := uint64(10)
	n := 0
loop:
	for {
		b := rd.br.PeekByte()
		switch {
		case b == 0:
			break loop
		case b == '+' || b == '-':
			if n != 0 {
				break loop
			}
			if !allowSign {
				return 0, false, 0, rd.newError(rpcvalue.KindInvalidNumber, "unexpected sign")
			}
			c, gerr := rd.br.GetByte()
			if gerr != nil {
				return 0, false, 0, gerr
			}
			if c == '-' {
				neg = true
			}
		case b == 'x':
			if n != 1 || val != 0 {
				break loop
			}
			if _, gerr := rd.br.GetByte(); gerr != nil {
				return 0, false, 0, gerr
			}
			base = 16
		case b >= '0' && b <= '9':
			if _, gerr := rd.br.GetByte(); gerr != nil {
				return 0, false, 0, gerr
			}
			val = val*base + uint64(b-'0')
			digits++
		case b >= 'A' && b <= 'F':
			if base != 16 {
				break loop
			}
			if _, gerr := rd.br.GetByte(); gerr != nil {
				return 0, false, 0, gerr
			}
			val = val*base + uint64(b-'A') + 10
			digits++
		case b >= 'a' && b <= 'f':
			if base != 16 {
				break loop
			}
			if _, gerr := rd.br.GetByte(); gerr != nil {
				return 0, false, 0, gerr
			}
			val = val*base + uint64(b-'a') + 10
			digits++
		default:
			break loop
		}
		n++
	}

	return val, neg, digits, nil
}

// readNumber parses an Int, UInt or Decimal literal. A decimal point or an
// exponent marker makes the result a Decimal, the lossless textual
// representation; a trailing 'u' makes it a UInt.
func (rd *Reader) readNumber() (rpcvalue.Value, error) {
	var (
		exponent  int64
		decimals  uint64
		decCnt    int
		isDecimal bool
		isUint    bool
		isNeg     bool
	)

	switch rd.br.PeekByte() {
	case '+':
		if _, err := rd.br.GetByte(); err != nil {
			return nil, err
		}
	case '-':
		isNeg = true
		if _, err := rd.br.GetByte(); err != nil {
			return nil, err
		}
	}

	mantissa, _, digits, err := rd.readInt(true)
	if err != nil {
		return nil, err
	}
	if digits == 0 {
		return nil, rd.newError(rpcvalue.KindInvalidNumber, "number should contain at least one digit")
	}

	const (
		stateMantissa = iota
		stateDecimals
	)
	state := stateMantissa
loop:
	for {
		switch rd.br.PeekByte() {
		case 'u':
			isUint = true
			if _, err := rd.br.GetByte(); err != nil {
				return nil, err
			}
			break loop
		case '.':
			if state != stateMantissa {
				return nil, rd.newError(rpcvalue.KindInvalidNumber, "unexpected decimal point")
			}
			state = stateDecimals
			isDecimal = true
			if _, err := rd.br.GetByte(); err != nil {
				return nil, err
			}
			d, _, cnt, err := rd.readInt(false)
			if err != nil {
				return nil, err
			}
			decimals = d
			decCnt = cnt
		case 'e', 'E':
			isDecimal = true
			if _, err := rd.br.GetByte(); err != nil {
				return nil, err
			}
			e, eneg, cnt, err := rd.readInt(true)
			if err != nil {
				return nil, err
			}
			if cnt == 0 {
				return nil, rd.newError(rpcvalue.KindInvalidNumber, "malformed number exponential part")
			}
			exponent = int64(e)
			if eneg {
				exponent = -exponent
			}
			break loop
		default:
			break loop
		}
	}

	if isDecimal {
		for i := 0; i < decCnt; i++ {
			mantissa *= 10
		}
		mantissa += decimals
		snum := int64(mantissa)
		if isNeg {
			snum = -snum
		}

		return rpcvalue.NewDecimal(snum, int8(exponent-int64(decCnt))), nil
	}
	if isUint {
		return rpcvalue.UInt(mantissa), nil
	}
	snum := int64(mantissa)
	if isNeg {
		snum = -snum
	}

	return rpcvalue.Int(snum), nil
}

func (rd *Reader) readList() (rpcvalue.Value, error) {
	if err := rd.enter(); err != nil {
		return nil, err
	}
	defer rd.leave()
	if _, err := rd.br.GetByte(); err != nil { // eat '['
		return nil, err
	}
	lst := rpcvalue.List{}
	for {
		if err := rd.skipWhiteInsignificant(); err != nil {
			return nil, err
		}
		if rd.br.PeekByte() == ']' {
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
	if _, err := rd.br.GetByte(); err != nil { // eat '{'
		return nil, err
	}
	m := rpcvalue.Map{}
	for {
		if err := rd.skipWhiteInsignificant(); err != nil {
			return nil, err
		}
		if rd.br.PeekByte() == '}' {
			if _, err := rd.br.GetByte(); err != nil {
				return nil, err
			}

			return m, nil
		}
		if rd.br.PeekByte() != '"' {
			return nil, rd.newError(rpcvalue.KindInvalidKey, "map key must be a string")
		}
		key, err := rd.readStringBytes()
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(key) {
			return nil, rd.newError(rpcvalue.KindInvalidString, "invalid UTF-8 in map key")
		}
		if err := rd.skipWhiteInsignificant(); err != nil {
			return nil, err
		}
		val, err := rd.Read()
		if err != nil {
			return nil, err
		}
		m[string(key)] = val // duplicate keys: later wins
	}
}

func (rd *Reader) readIMap() (rpcvalue.Value, error) {
	if err := rd.enter(); err != nil {
		return nil, err
	}
	defer rd.leave()
	if _, err := rd.br.GetByte(); err != nil { // eat 'i'
		return nil, err
	}
	b, err := rd.br.GetByte()
	if err != nil {
		return nil, err
	}
	if b != '{' {
		return nil, rd.newError(rpcvalue.KindInvalidChar, "wrong IMap prefix, '{' expected")
	}
	m := rpcvalue.IMap{}
	for {
		if err := rd.skipWhiteInsignificant(); err != nil {
			return nil, err
		}
		if rd.br.PeekByte() == '}' {
			if _, err := rd.br.GetByte(); err != nil {
				return nil, err
			}

			return m, nil
		}
		key, _, digits, err := rd.readInt(false)
		if err != nil {
			return nil, err
		}
		if digits == 0 {
			return nil, rd.newError(rpcvalue.KindInvalidKey, "IMap key must be an unsigned integer")
		}
		if err := rd.skipWhiteInsignificant(); err != nil {
			return nil, err
		}
		val, err := rd.Read()
		if err != nil {
			return nil, err
		}
		m[int32(key)] = val
	}
}

func (rd *Reader) readDateTime() (rpcvalue.Value, error) {
	if _, err := rd.br.GetByte(); err != nil { // eat 'd'
		return nil, err
	}
	if rd.br.PeekByte() != '"' {
		return nil, rd.newError(rpcvalue.KindInvalidChar, "wrong DateTime prefix, '\"' expected")
	}
	body, err := rd.readStringBytes()
	if err != nil {
		return nil, err
	}
	dt, perr := rpcvalue.ParseDateTime(string(body))
	if perr != nil {
		return nil, rd.newError(rpcvalue.KindInvalidDateTime, "%s", perr.Error())
	}

	return dt, nil
}

func (rd *Reader) readToken(token string, val rpcvalue.Value) (rpcvalue.Value, error) {
	for i := 0; i < len(token); i++ {
		b, err := rd.br.GetByte()
		if err != nil {
			return nil, err
		}
		if b != token[i] {
			return nil, rd.newError(rpcvalue.KindInvalidChar, "incomplete '%s' literal", token)
		}
	}

	return val, nil
}
