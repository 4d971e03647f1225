package cpon

import (
	"encoding/hex"
	"io"
	"strconv"
	"strings"

	"github.com/silicon-heaven/shvproto-go/internal/pool"
	"github.com/silicon-heaven/shvproto-go/internal/stream"
	"github.com/silicon-heaven/shvproto-go/rpcvalue"
)

// Writer emits rich values as Cpon text.
//
// With an empty indent the output is compact: no whitespace at all, Map and
// IMap entries in ascending key order, MetaMap pairs in insertion order.
// Emission is therefore a pure function of the value.
//
// With a non-empty indent the writer pretty-prints: containers get one
// element per line at the current nesting depth, except "oneliner"
// containers (small and without nested containers) which stay on a single
// line with a space after each comma.
type Writer struct {
	bw     *stream.Writer
	indent string
	nest   int
}

// NewWriter creates a compact-mode Writer targeting w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: stream.NewWriter(w)}
}

// SetIndent switches pretty-printing on (non-empty) or off (empty).
func (wr *Writer) SetIndent(indent string) { wr.indent = indent }

// Count returns the number of bytes written so far.
func (wr *Writer) Count() int { return wr.bw.Count() }

// ToCpon serializes a rich value to compact Cpon text.
func ToCpon(v rpcvalue.RpcValue) (string, error) {
	return ToCponIndented(v, "")
}

// ToCponIndented serializes a rich value to Cpon text with the given
// pretty-print indent; an empty indent yields compact output.
func ToCponIndented(v rpcvalue.RpcValue, indent string) (string, error) {
	buf := pool.Get()
	defer pool.Put(buf)
	wr := NewWriter(buf)
	wr.SetIndent(indent)
	if err := wr.Write(v); err != nil {
		return "", err
	}

	return buf.String(), nil
}

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

// WriteMeta emits a metadata envelope in insertion order: integer keys as
// bare integers, string keys as Cpon strings.
func (wr *Writer) WriteMeta(m *rpcvalue.MetaMap) error {
	oneliner := isOnelinerMeta(m)
	if err := wr.bw.WriteByte('<'); err != nil {
		return err
	}
	wr.nest++
	for i, p := range m.Pairs() {
		if i > 0 {
			if err := wr.bw.WriteByte(','); err != nil {
				return err
			}
		}
		if err := wr.indentElement(oneliner, i == 0); err != nil {
			return err
		}
		if p.Key.IsString() {
			if err := wr.writeString(p.Key.Str()); err != nil {
				return err
			}
		} else {
			if err := wr.bw.WriteString(strconv.FormatInt(int64(p.Key.Int()), 10)); err != nil {
				return err
			}
		}
		if err := wr.bw.WriteByte(':'); err != nil {
			return err
		}
		if err := wr.Write(p.Value); err != nil {
			return err
		}
	}
	if err := wr.endBlock(oneliner); err != nil {
		return err
	}

	return wr.bw.WriteByte('>')
}

// WriteValue emits a bare value without its metadata envelope.
func (wr *Writer) WriteValue(val rpcvalue.Value) error {
	switch v := val.(type) {
	case rpcvalue.Null:
		return wr.bw.WriteString("null")
	case rpcvalue.Bool:
		if v {
			return wr.bw.WriteString("true")
		}

		return wr.bw.WriteString("false")
	case rpcvalue.Int:
		return wr.bw.WriteString(strconv.FormatInt(int64(v), 10))
	case rpcvalue.UInt:
		if err := wr.bw.WriteString(strconv.FormatUint(uint64(v), 10)); err != nil {
			return err
		}

		return wr.bw.WriteByte('u')
	case rpcvalue.Double:
		return wr.bw.WriteString(formatDouble(float64(v)))
	case rpcvalue.Decimal:
		return wr.bw.WriteString(v.String())
	case rpcvalue.DateTime:
		if err := wr.bw.WriteString(`d"`); err != nil {
			return err
		}
		if err := wr.bw.WriteString(v.String()); err != nil {
			return err
		}

		return wr.bw.WriteByte('"')
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
		return wr.bw.WriteString("null")
	}
}

func (wr *Writer) writeString(s string) error {
	if err := wr.bw.WriteByte('"'); err != nil {
		return err
	}
	for i := 0; i < len(s); i++ {
		b := s[i]
		var esc byte
		switch b {
		case 0:
			esc = '0'
		case '\\':
			esc = '\\'
		case '\t':
			esc = 't'
		case '\r':
			esc = 'r'
		case '\n':
			esc = 'n'
		case '"':
			esc = '"'
		default:
			if err := wr.bw.WriteByte(b); err != nil {
				return err
			}
			continue
		}
		if err := wr.bw.WriteByte('\\'); err != nil {
			return err
		}
		if err := wr.bw.WriteByte(esc); err != nil {
			return err
		}
	}

	return wr.bw.WriteByte('"')
}

func (wr *Writer) writeBlob(b rpcvalue.Blob) error {
	if err := wr.bw.WriteString(`b"`); err != nil {
		return err
	}
	if err := wr.bw.WriteString(hex.EncodeToString(b)); err != nil {
		return err
	}

	return wr.bw.WriteByte('"')
}

func (wr *Writer) writeList(lst rpcvalue.List) error {
	oneliner := isOnelinerList(lst)
	if err := wr.bw.WriteByte('['); err != nil {
		return err
	}
	wr.nest++
	for i, v := range lst {
		if i > 0 {
			if err := wr.bw.WriteByte(','); err != nil {
				return err
			}
		}
		if err := wr.indentElement(oneliner, i == 0); err != nil {
			return err
		}
		if err := wr.Write(v); err != nil {
			return err
		}
	}
	if err := wr.endBlock(oneliner); err != nil {
		return err
	}

	return wr.bw.WriteByte(']')
}

func (wr *Writer) writeMap(m rpcvalue.Map) error {
	oneliner := isOnelinerMap(m)
	if err := wr.bw.WriteByte('{'); err != nil {
		return err
	}
	wr.nest++
	for i, k := range m.SortedKeys() {
		if i > 0 {
			if err := wr.bw.WriteByte(','); err != nil {
				return err
			}
		}
		if err := wr.indentElement(oneliner, i == 0); err != nil {
			return err
		}
		if err := wr.writeString(k); err != nil {
			return err
		}
		if err := wr.bw.WriteByte(':'); err != nil {
			return err
		}
		if err := wr.Write(m[k]); err != nil {
			return err
		}
	}
	if err := wr.endBlock(oneliner); err != nil {
		return err
	}

	return wr.bw.WriteByte('}')
}

func (wr *Writer) writeIMap(m rpcvalue.IMap) error {
	oneliner := isOnelinerIMap(m)
	if err := wr.bw.WriteString("i{"); err != nil {
		return err
	}
	wr.nest++
	for i, k := range m.SortedKeys() {
		if i > 0 {
			if err := wr.bw.WriteByte(','); err != nil {
				return err
			}
		}
		if err := wr.indentElement(oneliner, i == 0); err != nil {
			return err
		}
		if err := wr.bw.WriteString(strconv.FormatInt(int64(k), 10)); err != nil {
			return err
		}
		if err := wr.bw.WriteByte(':'); err != nil {
			return err
		}
		if err := wr.Write(m[k]); err != nil {
			return err
		}
	}
	if err := wr.endBlock(oneliner); err != nil {
		return err
	}

	return wr.bw.WriteByte('}')
}

// indentElement positions the next element in pretty mode: a single space
// between oneliner siblings, otherwise a newline plus indentation at the
// current depth. Compact mode writes nothing.
func (wr *Writer) indentElement(oneliner, first bool) error {
	if wr.indent == "" {
		return nil
	}
	if oneliner {
		if first {
			return nil
		}

		return wr.bw.WriteByte(' ')
	}
	if err := wr.bw.WriteByte('\n'); err != nil {
		return err
	}
	for i := 0; i < wr.nest; i++ {
		if err := wr.bw.WriteString(wr.indent); err != nil {
			return err
		}
	}

	return nil
}

func (wr *Writer) endBlock(oneliner bool) error {
	wr.nest--
	if wr.indent == "" || oneliner {
		return nil
	}

	return wr.indentElement(false, false)
}

func isContainer(v rpcvalue.Value) bool {
	switch v.(type) {
	case rpcvalue.List, rpcvalue.Map, rpcvalue.IMap:
		return true
	}

	return false
}

func isOnelinerList(lst rpcvalue.List) bool {
	if len(lst) > 10 {
		return false
	}
	for _, v := range lst {
		if isContainer(v.Value()) {
			return false
		}
	}

	return true
}

func isOnelinerMap(m rpcvalue.Map) bool {
	if len(m) > 5 {
		return false
	}
	for _, v := range m {
		if isContainer(v.Value()) {
			return false
		}
	}

	return true
}

func isOnelinerIMap(m rpcvalue.IMap) bool {
	if len(m) > 5 {
		return false
	}
	for _, v := range m {
		if isContainer(v.Value()) {
			return false
		}
	}

	return true
}

func isOnelinerMeta(m *rpcvalue.MetaMap) bool {
	if m.Len() > 5 {
		return false
	}
	for _, p := range m.Pairs() {
		if isContainer(p.Value.Value()) {
			return false
		}
	}

	return true
}

// formatDouble renders a float in shortest scientific notation with a bare
// exponent: 1.25e1, -3e-2, 0e0. Infinities and NaN render as Go spells
// them; they have no Cpon reading.
func formatDouble(f float64) string {
	s := strconv.FormatFloat(f, 'e', -1, 64)
	i := strings.IndexByte(s, 'e')
	if i < 0 {
		return s
	}
	mant, exp := s[:i], s[i+1:]
	negExp := exp[0] == '-'
	exp = strings.TrimLeft(exp, "+-")
	exp = strings.TrimLeft(exp, "0")
	if exp == "" {
		exp = "0"
		negExp = false
	}
	if negExp {
		exp = "-" + exp
	}

	return mant + "e" + exp
}
