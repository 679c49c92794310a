package brl

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "R$ 0,00"},
		{"600", "R$ 600,00"},
		{"200", "R$ 200,00"},
		{"1234.56", "R$ 1.234,56"},
		{"1234567.891", "R$ 1.234.567,89"},
		{"999.999", "R$ 1.000,00"},
		{"-75", "R$ -75,00"},
		{"-0.001", "R$ 0,00"},
		{"100000", "R$ 100.000,00"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			require.Equal(t, tc.want, Format(decimal.RequireFromString(tc.in)))
		})
	}
}

func TestFormatFloat(t *testing.T) {
	require.Equal(t, "R$ 125,00", FormatFloat(125))
	require.Equal(t, "R$ 33,33", FormatFloat(100.0/3))
}
