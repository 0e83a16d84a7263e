package product

import (
	"context"
	"time"
)

// Fetcher performs one HTTP GET. Implementations do not retry, cache, or
// limit concurrency; that is the transport coordinator's job.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// ResponseCache stores successful fetch responses keyed by normalized URL.
type ResponseCache interface {
	Get(ctx context.Context, key string) (CachedResponse, bool)
	Set(ctx context.Context, key string, response CachedResponse)
}

// RecordStore persists assembled records idempotently.
type RecordStore interface {
	SaveRecord(ctx context.Context, record Record) error
	GetRecord(ctx context.Context, signature string) (Record, error)
}

// BlobStore writes encoded image bytes and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes completion events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (injectable for tests).
type Clock interface {
	Now() time.Time
}

// Sleeper blocks for a duration, honoring context cancellation
// (injectable so backoff tests need no real waiting).
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
