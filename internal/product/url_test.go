package product

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{
			name: "lowercases scheme and host",
			in:   "HTTPS://Shop.Example.COM/Widget",
			want: "https://shop.example.com/Widget",
		},
		{
			name: "strips default https port",
			in:   "https://shop.example.com:443/p/1",
			want: "https://shop.example.com/p/1",
		},
		{
			name: "strips fragment and sorts query",
			in:   "https://shop.example.com/p?b=2&a=1#reviews",
			want: "https://shop.example.com/p?a=1&b=2",
		},
		{
			name:    "rejects relative url",
			in:      "/images/one.jpg",
			wantErr: true,
		},
		{
			name:    "rejects non-http scheme",
			in:      "ftp://shop.example.com/file",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeURL(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestForceHTTPSRewritesPlainHTTP(t *testing.T) {
	t.Parallel()

	got, err := ForceHTTPS("http://cdn.example.com/img/1.jpg")
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/img/1.jpg", got)
}

func TestForceHTTPSRejectsOpaqueSchemes(t *testing.T) {
	t.Parallel()

	_, err := ForceHTTPS("data:image/png;base64,AAAA")
	require.Error(t, err)
}

func TestHostOf(t *testing.T) {
	t.Parallel()

	require.Equal(t, "shop.example.com", HostOf("https://Shop.Example.com/p/1"))
	require.Equal(t, "unknown", HostOf("::notaurl::"))
}
