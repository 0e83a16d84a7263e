package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{name: "european comma decimal", in: "1.234,56", want: "1234.56", wantOK: true},
		{name: "us dot decimal with thousands", in: "1,234.56", want: "1234.56", wantOK: true},
		{name: "plain dot decimal", in: "29.99", want: "29.99", wantOK: true},
		{name: "plain comma decimal", in: "24,90", want: "24.9", wantOK: true},
		{name: "single digit decimal", in: "24,9", want: "24.9", wantOK: true},
		{name: "integer", in: "1500", want: "1500", wantOK: true},
		{name: "comma thousands no decimals", in: "1,234", want: "1234", wantOK: true},
		{name: "dot thousands repeated", in: "1.234.567", want: "1234567", wantOK: true},
		{name: "currency token embedded", in: "$ 29.99", want: "29.99", wantOK: true},
		{name: "euro suffix", in: "1.234,56 €", want: "1234.56", wantOK: true},
		{name: "negative rejected", in: "-29.99", wantOK: false},
		{name: "words rejected", in: "call for price", wantOK: false},
		{name: "empty rejected", in: "", wantOK: false},
		{name: "lone separator rejected", in: ".", wantOK: false},
		{name: "broken grouping rejected", in: "12,34,56", wantOK: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParsePrice(tc.in)
			require.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				require.Equal(t, tc.want, got.String())
			}
		})
	}
}
