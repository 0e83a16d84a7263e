package imaging

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shoplens/extractor/internal/metrics"
	"github.com/shoplens/extractor/internal/product"
)

// BodyFetcher retrieves a URL's body through the transport layer. The
// transport coordinator satisfies this.
type BodyFetcher interface {
	Fetch(ctx context.Context, rawURL string) (body []byte, contentType string, err error)
}

// Config tunes the image pipeline. Zero values fall back to the defaults
// below.
type Config struct {
	// Concurrency bounds how many images of one product download at once.
	Concurrency int
	// MaxImages caps assets kept per product, in candidate priority order.
	MaxImages int
	// MaxEdge is the longest permitted output edge in pixels.
	MaxEdge int
	// MaxBytes rejects raw downloads larger than this.
	MaxBytes int
	// WebPQuality and JPEGQuality are encoder settings on a 0..100 scale.
	WebPQuality int
	JPEGQuality int
}

const (
	defaultConcurrency = 3
	defaultMaxImages   = 8
	defaultMaxEdge     = 1600
	defaultMaxBytes    = 10 << 20
	defaultWebPQuality = 80
	defaultJPEGQuality = 85
)

func (c *Config) applyDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.MaxImages <= 0 {
		c.MaxImages = defaultMaxImages
	}
	if c.MaxEdge <= 0 {
		c.MaxEdge = defaultMaxEdge
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = defaultMaxBytes
	}
	if c.WebPQuality <= 0 {
		c.WebPQuality = defaultWebPQuality
	}
	if c.JPEGQuality <= 0 {
		c.JPEGQuality = defaultJPEGQuality
	}
}

// Pipeline downloads, validates and re-encodes product image candidates.
type Pipeline struct {
	fetcher BodyFetcher
	cfg     Config
	logger  *zap.Logger
}

func New(fetcher BodyFetcher, cfg Config, logger *zap.Logger) *Pipeline {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{fetcher: fetcher, cfg: cfg, logger: logger}
}

// Input carries the image candidates for one product in priority order.
// PageURL is the product page the candidates came from; a synthesized
// placeholder records it as its source.
type Input struct {
	URLs     []string
	Captions map[string]string
	Title    string
	PageURL  string
}

// Process downloads the candidates concurrently, drops anything invalid, and
// returns the surviving assets in candidate order, capped at MaxImages. A
// candidate failure never fails the product; when nothing survives a single
// placeholder asset is synthesized instead.
func (p *Pipeline) Process(ctx context.Context, in Input) []product.ImageAsset {
	results := make([]*product.ImageAsset, len(in.URLs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for i, rawURL := range in.URLs {
		g.Go(func() error {
			asset, err := p.processOne(gctx, rawURL, in)
			if err != nil {
				metrics.ObserveImage("dropped")
				p.logger.Debug("image candidate dropped",
					zap.String("url", rawURL),
					zap.Error(err),
				)
				return nil
			}
			metrics.ObserveImage("kept")
			results[i] = &asset
			return nil
		})
	}
	// Workers only return nil; Wait is for completion, not error collection.
	_ = g.Wait()

	assets := make([]product.ImageAsset, 0, p.cfg.MaxImages)
	for _, r := range results {
		if r == nil {
			continue
		}
		assets = append(assets, *r)
		if len(assets) == p.cfg.MaxImages {
			break
		}
	}

	if len(assets) == 0 {
		placeholder, err := p.placeholderAsset(in)
		if err != nil {
			// Encoding the stand-in graphic should never fail, but a product
			// must still ship at least one asset if it does.
			p.logger.Error("synthesize placeholder", zap.Error(err))
			placeholder = bareAsset(in)
		}
		metrics.ObserveImage("placeholder")
		assets = append(assets, placeholder)
	}
	return assets
}

type imageError struct {
	reason string
}

func (e *imageError) Error() string { return e.reason }

func (p *Pipeline) processOne(ctx context.Context, rawURL string, in Input) (product.ImageAsset, error) {
	start := time.Now()
	body, _, err := p.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return product.ImageAsset{}, err
	}
	if len(body) > p.cfg.MaxBytes {
		return product.ImageAsset{}, &imageError{reason: "payload exceeds size limit"}
	}
	// Trust the bytes, not the server's Content-Type header.
	if detected := http.DetectContentType(body); !strings.HasPrefix(detected, "image/") {
		return product.ImageAsset{}, &imageError{reason: "payload is not an image: " + detected}
	}

	enc, err := p.transcode(body)
	if err != nil {
		return product.ImageAsset{}, err
	}

	asset := product.ImageAsset{
		Data:      enc.data,
		MIMEType:  enc.mimeType,
		Width:     enc.width,
		Height:    enc.height,
		Alt:       p.altText(rawURL, in),
		SourceURL: rawURL,
	}
	p.logger.Debug("image processed",
		zap.String("url", rawURL),
		zap.String("mime", enc.mimeType),
		zap.Int("width", enc.width),
		zap.Int("height", enc.height),
		zap.Duration("latency", time.Since(start)),
	)
	return asset, nil
}

// altText prefers the page's own caption for the image and falls back to the
// product title. Assets never ship without alt text.
func (p *Pipeline) altText(rawURL string, in Input) string {
	if caption := strings.TrimSpace(in.Captions[rawURL]); caption != "" {
		return caption
	}
	if in.Title != "" {
		return in.Title
	}
	return "Product image"
}
