// Package pipeline runs the full extraction flow for one product page:
// fetch, parse, normalize, process images, assemble, and hand the record to
// the configured sinks.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shoplens/extractor/internal/clock/system"
	idgen "github.com/shoplens/extractor/internal/id/uuid"
	"github.com/shoplens/extractor/internal/imaging"
	"github.com/shoplens/extractor/internal/metrics"
	"github.com/shoplens/extractor/internal/normalize"
	"github.com/shoplens/extractor/internal/parser"
	"github.com/shoplens/extractor/internal/product"
)

// BodyFetcher is the transport surface the orchestrator needs. The transport
// coordinator satisfies this.
type BodyFetcher interface {
	Fetch(ctx context.Context, rawURL string) (body []byte, contentType string, err error)
}

// ImageProcessor turns raw image candidates into encoded assets.
type ImageProcessor interface {
	Process(ctx context.Context, in imaging.Input) []product.ImageAsset
}

// Orchestrator wires the pipeline stages together. Only a failed root page
// fetch fails an extraction; every later stage degrades the record instead.
type Orchestrator struct {
	transport  BodyFetcher
	parser     *parser.Parser
	normalizer *normalize.Normalizer
	images     ImageProcessor

	store     product.RecordStore
	blobs     product.BlobStore
	publisher product.Publisher
	topic     string

	clock  product.Clock
	ids    product.IDGenerator
	logger *zap.Logger
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithRecordStore persists every assembled record. Store failures are logged
// and counted, never fatal.
func WithRecordStore(store product.RecordStore) Option {
	return func(o *Orchestrator) { o.store = store }
}

// WithBlobStore uploads encoded image bytes and records the resulting URIs
// on the assets.
func WithBlobStore(blobs product.BlobStore) Option {
	return func(o *Orchestrator) { o.blobs = blobs }
}

// WithPublisher emits a completion event per assembled record.
func WithPublisher(publisher product.Publisher, topic string) Option {
	return func(o *Orchestrator) {
		o.publisher = publisher
		o.topic = topic
	}
}

// WithClock overrides the time source.
func WithClock(clock product.Clock) Option {
	return func(o *Orchestrator) { o.clock = clock }
}

// WithIDGenerator overrides run ID generation.
func WithIDGenerator(ids product.IDGenerator) Option {
	return func(o *Orchestrator) { o.ids = ids }
}

func New(transport BodyFetcher, p *parser.Parser, n *normalize.Normalizer, images ImageProcessor, logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		transport:  transport,
		parser:     p,
		normalizer: n,
		images:     images,
		clock:      system.New(),
		ids:        idgen.NewGenerator(),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Extract runs the pipeline for one product page URL. The returned error is
// non-nil only when the root page could not be fetched or yielded no usable
// title; anything else produces a record with a degraded status.
func (o *Orchestrator) Extract(ctx context.Context, rawURL string, hints product.Hints) (product.Record, error) {
	runID, err := o.ids.NewID()
	if err != nil {
		return product.Record{}, fmt.Errorf("generate run id: %w", err)
	}
	log := o.logger.With(zap.String("run_id", runID), zap.String("url", rawURL))

	body, err := o.stage(log, "fetch", func() ([]byte, error) {
		b, _, err := o.transport.Fetch(ctx, rawURL)
		return b, err
	})
	if err != nil {
		log.Warn("page fetch failed", zap.Error(err))
		return product.Record{}, err
	}

	var raw product.RawExtraction
	o.timed("parse", func() {
		raw = o.parser.Parse(rawURL, body)
	})

	var norm normalize.Normalized
	var normErr error
	o.timed("normalize", func() {
		norm, normErr = o.normalizer.Normalize(raw, hints)
	})
	if normErr != nil {
		log.Warn("normalization failed", zap.Error(normErr))
		return product.Record{}, fmt.Errorf("normalize page: %w", normErr)
	}

	var assets []product.ImageAsset
	o.timed("images", func() {
		assets = o.images.Process(ctx, imaging.Input{
			URLs:     norm.ImageURLs,
			Captions: norm.ImageCaptions,
			Title:    norm.Title,
			PageURL:  rawURL,
		})
	})

	record := assemble(norm, assets, rawURL, runID, o.clock.Now())
	metrics.ObserveRecord(string(record.Status))
	log.Info("record assembled",
		zap.String("status", string(record.Status)),
		zap.String("signature", record.PayloadSignature),
		zap.Int("images", len(record.Images)),
		zap.Bool("has_price", record.Price != nil),
	)

	o.deliver(ctx, log, &record)
	return record, nil
}

// deliver hands the record to the configured sinks. Sink failures degrade
// observability, not the extraction result.
func (o *Orchestrator) deliver(ctx context.Context, log *zap.Logger, record *product.Record) {
	if o.blobs != nil {
		o.uploadImages(ctx, log, record)
	}
	if o.store != nil {
		if err := o.store.SaveRecord(ctx, *record); err != nil {
			metrics.ObserveRecordSinkError()
			log.Error("save record", zap.Error(err))
		}
	}
	if o.publisher != nil {
		if _, err := o.publisher.Publish(ctx, o.topic, record); err != nil {
			metrics.ObservePublishFailure()
			log.Error("publish record", zap.Error(err))
		}
	}
}

func (o *Orchestrator) uploadImages(ctx context.Context, log *zap.Logger, record *product.Record) {
	for i := range record.Images {
		asset := &record.Images[i]
		path := fmt.Sprintf("%s/%d", record.PayloadSignature, i)
		uri, err := o.blobs.PutObject(ctx, path, asset.MIMEType, asset.Data)
		if err != nil {
			metrics.ObserveRecordSinkError()
			log.Error("upload image", zap.String("path", path), zap.Error(err))
			continue
		}
		asset.BlobURI = uri
	}
}

// stage runs fn under a stage timer and returns its result.
func (o *Orchestrator) stage(log *zap.Logger, name string, fn func() ([]byte, error)) ([]byte, error) {
	start := time.Now()
	body, err := fn()
	latency := time.Since(start)
	metrics.ObserveStage(name, latency)
	log.Debug("stage finished",
		zap.String("stage", name),
		zap.Duration("latency", latency),
		zap.Bool("ok", err == nil),
	)
	return body, err
}

func (o *Orchestrator) timed(name string, fn func()) {
	start := time.Now()
	fn()
	metrics.ObserveStage(name, time.Since(start))
}
