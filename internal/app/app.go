// Package app initializes and holds the long-lived services of the
// extractor, acting as the dependency injection container for the CLI.
package app

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	gstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/shoplens/extractor/internal/api"
	memcache "github.com/shoplens/extractor/internal/cache/memory"
	rediscache "github.com/shoplens/extractor/internal/cache/redis"
	"github.com/shoplens/extractor/internal/config"
	collyfetcher "github.com/shoplens/extractor/internal/fetcher/colly"
	"github.com/shoplens/extractor/internal/imaging"
	"github.com/shoplens/extractor/internal/logging"
	"github.com/shoplens/extractor/internal/metrics"
	"github.com/shoplens/extractor/internal/normalize"
	"github.com/shoplens/extractor/internal/parser"
	"github.com/shoplens/extractor/internal/pipeline"
	"github.com/shoplens/extractor/internal/product"
	mempub "github.com/shoplens/extractor/internal/publisher/memory"
	pubsubpub "github.com/shoplens/extractor/internal/publisher/pubsub"
	"github.com/shoplens/extractor/internal/storage/gcs"
	"github.com/shoplens/extractor/internal/storage/local"
	memstore "github.com/shoplens/extractor/internal/storage/memory"
	"github.com/shoplens/extractor/internal/storage/postgres"
	"github.com/shoplens/extractor/internal/transport"
)

// App holds the wired extraction pipeline and its sinks.
type App struct {
	Config       config.Config
	Logger       *zap.Logger
	Coordinator  *transport.Coordinator
	Orchestrator *pipeline.Orchestrator
	Records      product.RecordStore

	closers []func() error
}

// New builds the full service graph from configuration. It fails fast when a
// configured backend cannot be initialized.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Format, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	metrics.Init()

	a := &App{Config: cfg, Logger: logger}
	a.closers = append(a.closers, func() error {
		_ = logger.Sync()
		return nil
	})

	cache, err := a.buildCache(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:   cfg.Transport.UserAgent,
		Timeout:     cfg.Transport.Timeout(),
		MaxBodySize: cfg.Transport.MaxBodyBytes,
	})
	a.Coordinator = transport.New(fetcher, cache, transport.Config{
		Timeout:     cfg.Transport.Timeout(),
		CacheTTL:    cfg.Transport.CacheTTL(),
		PerHostMax:  cfg.Transport.PerHostMax,
		PerHostQPS:  cfg.Transport.PerHostQPS,
		MaxBodySize: cfg.Transport.MaxBodyBytes,
	}, logger.Named("transport"))

	images := imaging.New(a.Coordinator, imaging.Config{
		Concurrency: cfg.Images.Concurrency,
		MaxImages:   cfg.Images.MaxImages,
		MaxEdge:     cfg.Images.MaxEdge,
		MaxBytes:    cfg.Images.MaxBytes,
		WebPQuality: cfg.Images.WebPQuality,
		JPEGQuality: cfg.Images.JPEGQuality,
	}, logger.Named("imaging"))

	opts, err := a.buildSinks(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a.Orchestrator = pipeline.New(
		a.Coordinator,
		parser.New(parser.WithMaxImageCandidates(cfg.Parser.MaxImageCandidates)),
		normalize.New(),
		images,
		logger.Named("pipeline"),
		opts...,
	)
	return a, nil
}

// Server builds the HTTP server on top of the wired pipeline.
func (a *App) Server() *api.Server {
	return api.NewServer(a.Orchestrator, a.Records, a.Logger.Named("api"), api.Config{
		RequestTimeout: a.Config.Transport.Timeout() * 6,
		AuthEnabled:    a.Config.Auth.Enabled,
		APIKey:         a.Config.Auth.APIKey,
	})
}

// Close releases all held resources in reverse construction order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("close resource", zap.Error(err))
		}
	}
}

func (a *App) buildCache(ctx context.Context, cfg config.Config, logger *zap.Logger) (product.ResponseCache, error) {
	switch cfg.Cache.Backend {
	case "redis":
		cache := rediscache.New(rediscache.Config{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		}, logger.Named("cache"))
		if err := cache.Ping(ctx); err != nil {
			return nil, fmt.Errorf("connect redis cache: %w", err)
		}
		a.closers = append(a.closers, cache.Close)
		return cache, nil
	default:
		return memcache.New(memcache.WithMaxEntries(cfg.Cache.MaxEntries)), nil
	}
}

func (a *App) buildSinks(ctx context.Context, cfg config.Config, logger *zap.Logger) ([]pipeline.Option, error) {
	var opts []pipeline.Option

	if cfg.DB.Enabled {
		store, err := postgres.NewRecordStore(ctx, postgres.Config{
			DSN:      cfg.DB.DSN,
			Table:    cfg.DB.Table,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize record store: %w", err)
		}
		a.closers = append(a.closers, func() error {
			store.Close()
			return nil
		})
		a.Records = store
	} else {
		a.Records = memstore.NewRecordStore()
	}
	opts = append(opts, pipeline.WithRecordStore(a.Records))

	blobs, err := a.buildBlobStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts = append(opts, pipeline.WithBlobStore(blobs))

	if cfg.PubSub.Enabled {
		client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		pub, err := pubsubpub.New(client)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pub.Close)
		opts = append(opts, pipeline.WithPublisher(pub, cfg.PubSub.Topic))
		logger.Info("completion events enabled",
			zap.String("project", cfg.PubSub.ProjectID),
			zap.String("topic", cfg.PubSub.Topic),
		)
	} else {
		opts = append(opts, pipeline.WithPublisher(mempub.New(), cfg.PubSub.Topic))
	}
	return opts, nil
}

func (a *App) buildBlobStore(ctx context.Context, cfg config.Config) (product.BlobStore, error) {
	switch cfg.Storage.BlobBackend {
	case "gcs":
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("connect gcs: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		return gcs.New(client, gcs.Config{
			Bucket: cfg.Storage.GCSBucket,
			Prefix: cfg.Storage.Prefix,
		})
	case "local":
		return local.New(local.Config{BaseDir: cfg.Storage.LocalDir})
	default:
		return memstore.NewBlobStore(), nil
	}
}
