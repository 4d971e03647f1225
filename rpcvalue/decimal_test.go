package rpcvalue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecimal_PackRoundTrip(t *testing.T) {
	cases := []struct {
		mantissa int64
		exponent int8
	}{
		{0, 0},
		{1, 0},
		{-1, 0},
		{1234, -1},
		{-1234, -1},
		{123, 127},
		{123, -128},
		{-123456, 16},
		{1<<55 - 1, 3},
		{-(1 << 55), -3},
	}
	for _, tc := range cases {
		d := NewDecimal(tc.mantissa, tc.exponent)
		m, e := d.Decode()
		require.Equal(t, tc.mantissa, m, "mantissa of (%d, %d)", tc.mantissa, tc.exponent)
		require.Equal(t, tc.exponent, e, "exponent of (%d, %d)", tc.mantissa, tc.exponent)
	}
}

func TestDecimal_String(t *testing.T) {
	cases := []struct {
		mantissa int64
		exponent int8
		want     string
	}{
		{1234, -1, "123.4"},
		{123, -3, "0.123"},
		{-123, -3, "-0.123"},
		{12, -4, "12e-4"},
		{12, -3, "0.012"},
		{230, -2, "2.30"},
		{223, 0, "223."},
		{0, 0, "0."},
		{1000000, 0, "1000000."},
		{-1234567890, 0, "-1234567890."},
		{123, 5, "12300000."},
		{123, 7, "123e7"},
		{123, -11, "123e-11"},
		{-12, -5, "-12e-5"},
	}
	for _, tc := range cases {
		d := NewDecimal(tc.mantissa, tc.exponent)
		require.Equal(t, tc.want, d.String(), "render of (%d, %d)", tc.mantissa, tc.exponent)
	}
}

func TestDecimal_Float64(t *testing.T) {
	require.InDelta(t, 123.4, NewDecimal(1234, -1).Float64(), 1e-9)
	require.InDelta(t, -0.00012, NewDecimal(-12, -5).Float64(), 1e-12)
	require.InDelta(t, 0.0, NewDecimal(0, 3).Float64(), 1e-12)
}
