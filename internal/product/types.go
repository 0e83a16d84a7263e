// Package product defines the core types shared across the extraction pipeline.
package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordStatus describes the completeness of an assembled record.
type RecordStatus string

// Record status values.
const (
	StatusComplete        RecordStatus = "COMPLETE"
	StatusIncompleteMedia RecordStatus = "INCOMPLETE_MEDIA"
	StatusIncompletePrice RecordStatus = "INCOMPLETE_PRICE"
)

// Supported ISO 4217 currency codes. Prices in any other currency are
// treated as absent rather than guessed at.
const (
	CurrencyEUR = "EUR"
	CurrencyUSD = "USD"
	CurrencyGBP = "GBP"
)

// SupportedCurrency reports whether code is one of the currencies the
// pipeline emits.
func SupportedCurrency(code string) bool {
	switch code {
	case CurrencyEUR, CurrencyUSD, CurrencyGBP:
		return true
	}
	return false
}

// Hints are optional caller-supplied signals for ambiguous pages.
type Hints struct {
	Currency string `json:"currency,omitempty"`
	Language string `json:"language,omitempty"`
}

// FetchRequest captures one logical fetch through the transport layer.
type FetchRequest struct {
	URL     string
	Host    string
	Timeout time.Duration
}

// FetchResponse is the result of a single successful fetch attempt.
type FetchResponse struct {
	URL         string
	StatusCode  int
	ContentType string
	// RetryAfter carries the raw Retry-After header, set on 429 responses.
	RetryAfter string
	Body       []byte
	Duration   time.Duration
}

// CachedResponse is an immutable cache entry owned by the transport layer.
type CachedResponse struct {
	URL         string
	Body        []byte
	ContentType string
	FetchedAt   time.Time
	TTL         time.Duration
}

// Expired reports whether the entry is stale at the given instant.
func (c CachedResponse) Expired(now time.Time) bool {
	return now.After(c.FetchedAt.Add(c.TTL))
}

// RawExtraction holds the untyped candidates pulled from one HTML document.
// It is produced once by the parser, consumed by the normalizer and discarded.
type RawExtraction struct {
	// TitleCandidates are ordered best-first; the parser guarantees at
	// least one non-empty entry.
	TitleCandidates []string
	// PriceCandidates are raw price strings, e.g. "1.234,56" or "$29.99".
	PriceCandidates []string
	// CurrencyHints are explicit currency tokens found near prices,
	// ordered by the same priority as PriceCandidates.
	CurrencyHints []string
	// ImageURLs are raw candidate image URLs in priority order, deduped
	// by absolute URL but not yet normalized.
	ImageURLs []string
	// ImageCaptions maps an image URL to a caption, when the page
	// supplied one more specific than the product title.
	ImageCaptions map[string]string
	// DescriptionHTML is the raw description fragment, unsanitized.
	DescriptionHTML string
	// Attributes are brand/model/SKU pairs pulled from structured data.
	Attributes map[string]string
	// PageLanguage is the declared document language, if any.
	PageLanguage string
	// PageURL is the fetched document URL, used for TLD inference and
	// relative URL resolution.
	PageURL string
}

// PriceValue is a parsed, validated price.
type PriceValue struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// ImageAsset is one encoded, display-ready product image.
type ImageAsset struct {
	Data        []byte `json:"-"`
	MIMEType    string `json:"mime_type"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Alt         string `json:"alt"`
	SourceURL   string `json:"source_url"`
	Placeholder bool   `json:"placeholder,omitempty"`
	BlobURI     string `json:"blob_uri,omitempty"`
}

// Record is the final structured output of the pipeline for one source page.
type Record struct {
	Title            string            `json:"title"`
	DescriptionHTML  string            `json:"description_html,omitempty"`
	Price            *PriceValue       `json:"price,omitempty"`
	Images           []ImageAsset      `json:"images"`
	Attributes       map[string]string `json:"attributes,omitempty"`
	Status           RecordStatus      `json:"status"`
	PayloadSignature string            `json:"payload_signature"`
	SourceURL        string            `json:"source_url"`
	ExtractedAt      time.Time         `json:"extracted_at"`
	RunID            string            `json:"run_id,omitempty"`
}

// RealImageCount returns the number of non-placeholder images.
func (r Record) RealImageCount() int {
	n := 0
	for _, img := range r.Images {
		if !img.Placeholder {
			n++
		}
	}
	return n
}
