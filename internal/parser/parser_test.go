package parser

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

const pageURL = "https://shop.example.fr/products/widget-pro"

func TestTitlePriorityOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "og title wins over everything",
			html: `<html><head>
				<meta property="og:title" content="OG Widget">
				<meta name="twitter:title" content="Twitter Widget">
				<title>Title Widget</title>
				</head><body><h1>H1 Widget</h1></body></html>`,
			want: "OG Widget",
		},
		{
			name: "twitter title beats structured data",
			html: `<html><head>
				<meta name="twitter:title" content="Twitter Widget">
				<script type="application/ld+json">{"@type":"Product","name":"LD Widget"}</script>
				</head><body></body></html>`,
			want: "Twitter Widget",
		},
		{
			name: "structured data beats h1",
			html: `<html><head>
				<script type="application/ld+json">{"@type":"Product","name":"LD Widget"}</script>
				</head><body><h1>H1 Widget</h1></body></html>`,
			want: "LD Widget",
		},
		{
			name: "h1 beats title tag",
			html: `<html><head><title>Title Widget</title></head><body><h1> H1  Widget </h1></body></html>`,
			want: "H1 Widget",
		},
		{
			name: "title tag as last markup resort",
			html: `<html><head><title>Title Widget</title></head><body></body></html>`,
			want: "Title Widget",
		},
	}

	p := New()
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			raw := p.Parse(pageURL, []byte(tc.html))
			require.NotEmpty(t, raw.TitleCandidates)
			require.Equal(t, tc.want, raw.TitleCandidates[0])
		})
	}
}

func TestTitleFallsBackToDomain(t *testing.T) {
	t.Parallel()

	raw := New().Parse(pageURL, []byte(`<html><body><p>nothing here</p></body></html>`))
	require.NotEmpty(t, raw.TitleCandidates)
	require.Equal(t, "shop.example.fr", raw.TitleCandidates[0])
}

func TestLongMultibyteTitleStaysValidUTF8(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("ölgemälde à la ünïcode ", 40)
	html := fmt.Sprintf(`<html><head><meta property="og:title" content=%q></head></html>`, long)

	raw := New().Parse(pageURL, []byte(html))
	require.NotEmpty(t, raw.TitleCandidates)
	got := raw.TitleCandidates[0]
	require.True(t, utf8.ValidString(got))
	require.LessOrEqual(t, utf8.RuneCountInString(got), 500)
}

func TestTitleIsNeverEmptyEvenOnGarbage(t *testing.T) {
	t.Parallel()

	p := New()
	for _, input := range []string{"", "<<<<>>>", "\x00\x01\x02"} {
		raw := p.Parse(pageURL, []byte(input))
		require.NotEmpty(t, raw.TitleCandidates)
		require.NotEmpty(t, raw.TitleCandidates[0])
	}
}

func TestStructuredDataPriceRanksFirst(t *testing.T) {
	t.Parallel()

	html := `<html><head>
		<script type="application/ld+json">
		{"@context":"https://schema.org","@type":"Product","name":"Widget Pro",
		 "offers":{"@type":"Offer","price":"29.99","priceCurrency":"EUR"}}
		</script>
		</head><body><span class="price">99,00 €</span></body></html>`

	raw := New().Parse(pageURL, []byte(html))
	require.NotEmpty(t, raw.PriceCandidates)
	require.Equal(t, "29.99", raw.PriceCandidates[0])
	require.Equal(t, "EUR", raw.CurrencyHints[0])
}

func TestStructuredDataNumericPriceAndGraph(t *testing.T) {
	t.Parallel()

	html := `<html><head>
		<script type="application/ld+json">
		{"@graph":[{"@type":"WebSite"},{"@type":"Product","name":"Widget",
		 "offers":[{"@type":"Offer","price":49.5,"priceCurrency":"USD"}]}]}
		</script></head><body></body></html>`

	raw := New().Parse(pageURL, []byte(html))
	require.NotEmpty(t, raw.PriceCandidates)
	require.Equal(t, "49.5", raw.PriceCandidates[0])
	require.Equal(t, "USD", raw.CurrencyHints[0])
}

func TestVisibleTextPriceScan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		body         string
		wantPrice    string
		wantCurrency string
	}{
		{name: "euro suffix with comma decimal", body: `<p>Nur 1.234,56 € inkl. MwSt</p>`, wantPrice: "1.234,56", wantCurrency: "EUR"},
		{name: "dollar prefix", body: `<p>Now $1,234.56 only</p>`, wantPrice: "1,234.56", wantCurrency: "USD"},
		{name: "pound prefix", body: `<p>£89.99</p>`, wantPrice: "89.99", wantCurrency: "GBP"},
		{name: "iso code prefix", body: `<p>EUR 24,90</p>`, wantPrice: "24,90", wantCurrency: "EUR"},
	}

	p := New()
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			raw := p.Parse(pageURL, []byte("<html><body>"+tc.body+"</body></html>"))
			require.NotEmpty(t, raw.PriceCandidates)
			require.Equal(t, tc.wantPrice, raw.PriceCandidates[0])
			require.Equal(t, tc.wantCurrency, raw.CurrencyHints[0])
		})
	}
}

func TestPriceScanIgnoresScriptText(t *testing.T) {
	t.Parallel()

	html := `<html><body><script>var cfg = {"msg": "$9.99"};</script><p>no price shown</p></body></html>`
	raw := New().Parse(pageURL, []byte(html))
	require.Empty(t, raw.PriceCandidates)
}

func TestImagePriorityAndDedup(t *testing.T) {
	t.Parallel()

	html := `<html><head>
		<meta property="og:image" content="https://cdn.example.com/og-1.jpg">
		<meta property="og:image" content="https://cdn.example.com/og-2.jpg">
		<script type="application/ld+json">
		{"@type":"Product","name":"W","image":["https://cdn.example.com/ld-1.jpg","https://cdn.example.com/og-1.jpg"]}
		</script>
		</head><body>
		<img src="/inline-big.jpg" width="800" height="600" alt="big shot">
		<img src="/inline-small.jpg" width="50" height="50" alt="icon">
		</body></html>`

	raw := New().Parse(pageURL, []byte(html))
	require.Equal(t, []string{
		"https://cdn.example.com/og-1.jpg",
		"https://cdn.example.com/og-2.jpg",
		"https://cdn.example.com/ld-1.jpg",
		"https://shop.example.fr/inline-big.jpg",
	}, raw.ImageURLs)
	require.Equal(t, "big shot", raw.ImageCaptions["https://shop.example.fr/inline-big.jpg"])
}

func TestImageCandidateCap(t *testing.T) {
	t.Parallel()

	var head string
	for i := 0; i < 50; i++ {
		head += fmt.Sprintf(`<meta property="og:image" content="https://cdn.example.com/%d.jpg">`, i)
	}
	raw := New().Parse(pageURL, []byte("<html><head>"+head+"</head><body></body></html>"))
	require.Len(t, raw.ImageURLs, DefaultMaxImageCandidates)
	require.Equal(t, "https://cdn.example.com/0.jpg", raw.ImageURLs[0])

	small := New(WithMaxImageCandidates(5)).Parse(pageURL, []byte("<html><head>"+head+"</head><body></body></html>"))
	require.Len(t, small.ImageURLs, 5)
}

func TestAttributesFromStructuredDataOnly(t *testing.T) {
	t.Parallel()

	html := `<html><head>
		<script type="application/ld+json">
		{"@type":"Product","name":"W","brand":{"@type":"Brand","name":"Acme"},
		 "model":"W-100","sku":"SKU-1"}
		</script>
		</head><body>
		<div class="specs">Brand: NotThisOne</div>
		</body></html>`

	raw := New().Parse(pageURL, []byte(html))
	require.Equal(t, map[string]string{"brand": "Acme", "model": "W-100", "sku": "SKU-1"}, raw.Attributes)
}

func TestNoHeuristicAttributeGuessing(t *testing.T) {
	t.Parallel()

	html := `<html><body><p>Brand: Acme, SKU: 12345</p></body></html>`
	raw := New().Parse(pageURL, []byte(html))
	require.Empty(t, raw.Attributes)
}

func TestPageLanguageAndDescription(t *testing.T) {
	t.Parallel()

	html := `<html lang="fr-FR"><head>
		<meta property="og:description" content="Un widget magnifique">
		</head><body></body></html>`

	raw := New().Parse(pageURL, []byte(html))
	require.Equal(t, "fr-FR", raw.PageLanguage)
	require.Equal(t, "Un widget magnifique", raw.DescriptionHTML)
}
