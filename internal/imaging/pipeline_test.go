package imaging

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shoplens/extractor/internal/product"
)

type fakeBodyFetcher struct {
	bodies map[string][]byte
	errs   map[string]error
}

func (f *fakeBodyFetcher) Fetch(_ context.Context, rawURL string) ([]byte, string, error) {
	if err, ok := f.errs[rawURL]; ok {
		return nil, "", err
	}
	body, ok := f.bodies[rawURL]
	if !ok {
		return nil, "", errors.New("no body registered")
	}
	return body, "application/octet-stream", nil
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 0x40, A: 0xFF})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcessKeepsValidCandidatesInOrder(t *testing.T) {
	t.Parallel()
	fetcher := &fakeBodyFetcher{bodies: map[string][]byte{
		"https://cdn.example.com/a.png": pngBytes(t, 120, 90),
		"https://cdn.example.com/b.png": pngBytes(t, 90, 120),
	}}
	p := New(fetcher, Config{}, zap.NewNop())

	assets := p.Process(context.Background(), Input{
		URLs:     []string{"https://cdn.example.com/a.png", "https://cdn.example.com/b.png"},
		Captions: map[string]string{"https://cdn.example.com/b.png": "Side view"},
		Title:    "Widget Pro",
	})

	require.Len(t, assets, 2)
	require.Equal(t, "https://cdn.example.com/a.png", assets[0].SourceURL)
	require.Equal(t, "https://cdn.example.com/b.png", assets[1].SourceURL)
	require.Equal(t, "Widget Pro", assets[0].Alt)
	require.Equal(t, "Side view", assets[1].Alt)
	for _, a := range assets {
		require.False(t, a.Placeholder)
		require.NotEmpty(t, a.Data)
		require.Contains(t, []string{"image/webp", "image/jpeg"}, a.MIMEType)
	}
}

func TestProcessDropsNonImagePayload(t *testing.T) {
	t.Parallel()
	fetcher := &fakeBodyFetcher{bodies: map[string][]byte{
		"https://cdn.example.com/real.png": pngBytes(t, 50, 50),
		"https://cdn.example.com/fake.png": []byte("<html><body>not found</body></html>"),
	}}
	p := New(fetcher, Config{}, zap.NewNop())

	assets := p.Process(context.Background(), Input{
		URLs:  []string{"https://cdn.example.com/fake.png", "https://cdn.example.com/real.png"},
		Title: "Widget",
	})

	require.Len(t, assets, 1)
	require.Equal(t, "https://cdn.example.com/real.png", assets[0].SourceURL)
}

func TestProcessDropsOversizedPayload(t *testing.T) {
	t.Parallel()
	big := pngBytes(t, 400, 400)
	fetcher := &fakeBodyFetcher{bodies: map[string][]byte{
		"https://cdn.example.com/big.png": big,
	}}
	p := New(fetcher, Config{MaxBytes: len(big) - 1}, zap.NewNop())

	assets := p.Process(context.Background(), Input{
		URLs:  []string{"https://cdn.example.com/big.png"},
		Title: "Widget",
	})

	require.Len(t, assets, 1)
	require.True(t, assets[0].Placeholder)
}

func TestProcessSurvivesFetchFailures(t *testing.T) {
	t.Parallel()
	fetcher := &fakeBodyFetcher{
		bodies: map[string][]byte{
			"https://cdn.example.com/ok.png": pngBytes(t, 60, 40),
		},
		errs: map[string]error{
			"https://cdn.example.com/gone.png": errors.New("connection refused"),
		},
	}
	p := New(fetcher, Config{}, zap.NewNop())

	assets := p.Process(context.Background(), Input{
		URLs:  []string{"https://cdn.example.com/gone.png", "https://cdn.example.com/ok.png"},
		Title: "Widget",
	})

	require.Len(t, assets, 1)
	require.Equal(t, "https://cdn.example.com/ok.png", assets[0].SourceURL)
}

func TestProcessCapsAssetCount(t *testing.T) {
	t.Parallel()
	bodies := map[string][]byte{}
	urls := []string{
		"https://cdn.example.com/1.png",
		"https://cdn.example.com/2.png",
		"https://cdn.example.com/3.png",
	}
	for _, u := range urls {
		bodies[u] = pngBytes(t, 40, 40)
	}
	p := New(&fakeBodyFetcher{bodies: bodies}, Config{MaxImages: 2}, zap.NewNop())

	assets := p.Process(context.Background(), Input{URLs: urls, Title: "Widget"})

	require.Len(t, assets, 2)
	require.Equal(t, urls[0], assets[0].SourceURL)
	require.Equal(t, urls[1], assets[1].SourceURL)
}

func TestProcessSynthesizesPlaceholderWhenEmpty(t *testing.T) {
	t.Parallel()
	p := New(&fakeBodyFetcher{}, Config{}, zap.NewNop())

	assets := p.Process(context.Background(), Input{
		URLs:    []string{"https://cdn.example.com/missing.png"},
		Title:   "Ghost Product",
		PageURL: "http://shop.example.com/ghost-product",
	})

	require.Len(t, assets, 1)
	a := assets[0]
	require.True(t, a.Placeholder)
	require.Equal(t, "https://shop.example.com/ghost-product", a.SourceURL)
	require.NotEmpty(t, a.Data)
	require.Equal(t, "No image available for Ghost Product", a.Alt)

	var rec product.Record
	rec.Images = assets
	require.Equal(t, 0, rec.RealImageCount())
}

func TestPlaceholderSourceAttributesPage(t *testing.T) {
	t.Parallel()
	p := New(&fakeBodyFetcher{}, Config{}, zap.NewNop())

	asset, err := p.placeholderAsset(Input{
		Title:   "Widget",
		PageURL: "https://shop.example.com/widget?utm_source=mail",
	})
	require.NoError(t, err)
	require.True(t, asset.Placeholder)
	require.True(t, strings.HasPrefix(asset.SourceURL, "https://"), asset.SourceURL)
	require.NotEmpty(t, asset.SourceURL)
}

func TestBareAssetCarriesAttribution(t *testing.T) {
	t.Parallel()

	asset := bareAsset(Input{Title: "Widget", PageURL: "http://shop.example.com/widget"})
	require.True(t, asset.Placeholder)
	require.Equal(t, "https://shop.example.com/widget", asset.SourceURL)
	require.Equal(t, "No image available for Widget", asset.Alt)
	require.Equal(t, "image/jpeg", asset.MIMEType)
}

func TestProcessNoCandidatesYieldsPlaceholder(t *testing.T) {
	t.Parallel()
	p := New(&fakeBodyFetcher{}, Config{}, zap.NewNop())

	assets := p.Process(context.Background(), Input{Title: "Widget"})

	require.Len(t, assets, 1)
	require.True(t, assets[0].Placeholder)
}

func TestTranscodeNeverUpscales(t *testing.T) {
	t.Parallel()
	p := New(&fakeBodyFetcher{}, Config{MaxEdge: 1600}, zap.NewNop())

	enc, err := p.transcode(pngBytes(t, 100, 80))
	require.NoError(t, err)
	require.Equal(t, 100, enc.width)
	require.Equal(t, 80, enc.height)
}

func TestTranscodeResizesLongEdge(t *testing.T) {
	t.Parallel()
	p := New(&fakeBodyFetcher{}, Config{MaxEdge: 64}, zap.NewNop())

	enc, err := p.transcode(pngBytes(t, 200, 100))
	require.NoError(t, err)
	require.Equal(t, 64, enc.width)
	require.Equal(t, 32, enc.height)
}
