package rpcvalue

import (
	"math"
	"strconv"
	"strings"
)

// Decimal is an exact decimal number packed into a single int64: the signed
// mantissa occupies the high 56 bits, the signed exponent the low 8 bits.
// Packing into one word keeps the Value footprint small.
//
// The representable mantissa range is -2^55 <= m < 2^55; mantissas outside
// it wrap silently.
type Decimal int64

// NewDecimal packs mantissa and exponent into a Decimal.
func NewDecimal(mantissa int64, exponent int8) Decimal {
	return Decimal(mantissa<<8 | int64(uint8(exponent)))
}

// Decode unpacks the mantissa and exponent.
func (d Decimal) Decode() (mantissa int64, exponent int8) {
	return int64(d) >> 8, int8(int64(d) & 0xFF)
}

// Float64 returns the approximate floating-point value mantissa*10^exponent.
func (d Decimal) Float64() float64 {
	m, e := d.Decode()

	return float64(m) * math.Pow10(int(e))
}

// String renders the decimal in Cpon notation. Re-parsing the text recovers
// the same numeric value, and the identical mantissa and exponent except
// for a positive exponent written out as trailing zeros ("12300000." for
// NewDecimal(123, 5) re-parses as NewDecimal(12300000, 0)):
//
//	NewDecimal(1234, -1)  "123.4"
//	NewDecimal(123, -3)   "0.123"
//	NewDecimal(230, -2)   "2.30"
//	NewDecimal(1000000, 0)  "1000000."
//	NewDecimal(123, -11)  "123e-11"
func (d Decimal) String() string {
	mantissa, exponent := d.Decode()
	neg := false
	if mantissa < 0 {
		mantissa = -mantissa
		neg = true
	}
	s := strconv.FormatInt(mantissa, 10)

	n := len(s)
	decPlaces := -int(exponent)
	switch {
	case decPlaces > 0 && decPlaces < n:
		// insert decimal point
		dotIx := n - decPlaces
		s = s[:dotIx] + "." + s[dotIx:]
	case decPlaces > 0 && decPlaces <= 3:
		// prepend 0.00..
		s = "0." + strings.Repeat("0", decPlaces-n) + s
	case decPlaces < 0 && n+int(exponent) <= 9:
		// append trailing zeros and decimal point
		s = s + strings.Repeat("0", int(exponent)) + "."
	case decPlaces == 0:
		s += "."
	default:
		// exponential notation
		s = s + "e" + strconv.Itoa(int(exponent))
	}
	if neg {
		s = "-" + s
	}

	return s
}
