package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shoplens/extractor/internal/product"
)

func TestNormalizePriceRoundTrips(t *testing.T) {
	t.Parallel()

	n := New()

	tests := []struct {
		name         string
		raw          product.RawExtraction
		wantAmount   string
		wantCurrency string
	}{
		{
			name: "european format with euro sign",
			raw: product.RawExtraction{
				TitleCandidates: []string{"Widget"},
				PriceCandidates: []string{"1.234,56 €"},
				CurrencyHints:   []string{"€"},
				PageURL:         "https://shop.example.fr/p",
			},
			wantAmount:   "1234.56",
			wantCurrency: "EUR",
		},
		{
			name: "us format with dollar sign",
			raw: product.RawExtraction{
				TitleCandidates: []string{"Widget"},
				PriceCandidates: []string{"$1,234.56"},
				CurrencyHints:   []string{"$"},
				PageURL:         "https://shop.example.com/p",
			},
			wantAmount:   "1234.56",
			wantCurrency: "USD",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			out, err := n.Normalize(tc.raw, product.Hints{})
			require.NoError(t, err)
			require.NotNil(t, out.Price)
			require.Equal(t, tc.wantAmount, out.Price.Amount.String())
			require.Equal(t, tc.wantCurrency, out.Price.Currency)
		})
	}
}

func TestNormalizeFallsThroughUnparseableCandidates(t *testing.T) {
	t.Parallel()

	raw := product.RawExtraction{
		TitleCandidates: []string{"Widget"},
		PriceCandidates: []string{"call us", "29.99"},
		CurrencyHints:   []string{"", "EUR"},
		PageURL:         "https://shop.example.com/p",
	}
	out, err := New().Normalize(raw, product.Hints{})
	require.NoError(t, err)
	require.NotNil(t, out.Price)
	require.Equal(t, "29.99", out.Price.Amount.String())
	require.Equal(t, "EUR", out.Price.Currency)
}

func TestNormalizeAbsentPriceIsNotAnError(t *testing.T) {
	t.Parallel()

	raw := product.RawExtraction{TitleCandidates: []string{"Widget"}}
	out, err := New().Normalize(raw, product.Hints{})
	require.NoError(t, err)
	require.Nil(t, out.Price)
}

func TestNormalizeEmptyTitleIsHardFailure(t *testing.T) {
	t.Parallel()

	raw := product.RawExtraction{TitleCandidates: []string{"", "   "}}
	_, err := New().Normalize(raw, product.Hints{})
	require.ErrorIs(t, err, product.ErrEmptyTitle)
}

func TestSanitizeHTMLWhitelist(t *testing.T) {
	t.Parallel()

	n := New()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "allowed tags survive",
			in:   "<p>Great <strong>widget</strong> with <em>flair</em></p><ul><li>one</li></ul>",
			want: "<p>Great <strong>widget</strong> with <em>flair</em></p><ul><li>one</li></ul>",
		},
		{
			name: "script stripped",
			in:   `<p>ok</p><script>alert("x")</script>`,
			want: "<p>ok</p>",
		},
		{
			name: "img stripped",
			in:   `<p>pic <img src="https://x.example/i.jpg"> here</p>`,
			want: "<p>pic  here</p>",
		},
		{
			name: "entities decoded before sanitizing",
			in:   "&lt;script&gt;alert(1)&lt;/script&gt;bold &amp; clear",
			want: "bold &amp; clear",
		},
		{
			name: "attributes dropped",
			in:   `<p onclick="evil()">text</p>`,
			want: "<p>text</p>",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, n.SanitizeHTML(tc.in))
		})
	}
}

func TestNormalizeImageURLs(t *testing.T) {
	t.Parallel()

	raw := product.RawExtraction{
		TitleCandidates: []string{"Widget"},
		ImageURLs: []string{
			"http://cdn.example.com/a.jpg",
			"https://cdn.example.com/a.jpg", // dup after https rewrite
			"https://cdn.example.com/b.jpg",
			"ftp://cdn.example.com/c.jpg", // undowngradeable scheme dropped
		},
		ImageCaptions: map[string]string{
			"http://cdn.example.com/a.jpg": "front view",
		},
	}

	out, err := New().Normalize(raw, product.Hints{})
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://cdn.example.com/a.jpg",
		"https://cdn.example.com/b.jpg",
	}, out.ImageURLs)
	require.Equal(t, "front view", out.ImageCaptions["https://cdn.example.com/a.jpg"])
}

func TestNormalizeDropsBlankAttributes(t *testing.T) {
	t.Parallel()

	raw := product.RawExtraction{
		TitleCandidates: []string{"Widget"},
		Attributes:      map[string]string{"brand": "Acme", "sku": "  ", "": "x"},
	}
	out, err := New().Normalize(raw, product.Hints{})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"brand": "Acme"}, out.Attributes)
}
