// Package normalize converts raw parser candidates into typed, sanitized
// values. Every transformation here is pure and deterministic; malformed
// input degrades a field to absent, it never raises.
package normalize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/shoplens/extractor/internal/product"
)

// Normalized is the typed output handed to the image pipeline and assembler.
type Normalized struct {
	Title           string
	DescriptionHTML string
	Price           *product.PriceValue
	ImageURLs       []string
	ImageCaptions   map[string]string
	Attributes      map[string]string
}

// Normalizer applies the full candidate-to-value transformation.
type Normalizer struct {
	sanitizer *bluemonday.Policy
}

// New creates a Normalizer.
func New() *Normalizer {
	return &Normalizer{sanitizer: newSanitizer()}
}

// Normalize resolves the best candidate for each field. The only hard
// failure is an empty title, which the parser's domain fallback should have
// prevented.
func (n *Normalizer) Normalize(raw product.RawExtraction, hints product.Hints) (Normalized, error) {
	title := firstNonEmpty(raw.TitleCandidates)
	if title == "" {
		return Normalized{}, product.ErrEmptyTitle
	}

	out := Normalized{
		Title:           title,
		DescriptionHTML: n.SanitizeHTML(raw.DescriptionHTML),
		Price:           n.normalizePrice(raw, hints),
		Attributes:      copyAttributes(raw.Attributes),
	}
	out.ImageURLs, out.ImageCaptions = normalizeImageURLs(raw.ImageURLs, raw.ImageCaptions)
	return out, nil
}

// normalizePrice walks the ranked candidates and returns the first one that
// parses to a non-negative amount in a supported currency.
func (n *Normalizer) normalizePrice(raw product.RawExtraction, hints product.Hints) *product.PriceValue {
	for i, candidate := range raw.PriceCandidates {
		amount, ok := ParsePrice(candidate)
		if !ok {
			continue
		}
		explicit := ""
		if i < len(raw.CurrencyHints) {
			explicit = raw.CurrencyHints[i]
		}
		code := ResolveCurrency(explicit, hints, raw.PageURL, raw.PageLanguage)
		if code == "" {
			continue
		}
		return &product.PriceValue{Amount: amount, Currency: code}
	}
	return nil
}

// normalizeImageURLs forces candidates to HTTPS and dedupes by normalized
// absolute form, preserving first-seen order. Captions follow their URL
// through the rewrite.
func normalizeImageURLs(rawURLs []string, rawCaptions map[string]string) ([]string, map[string]string) {
	urls := make([]string, 0, len(rawURLs))
	captions := map[string]string{}
	seen := map[string]struct{}{}

	for _, raw := range rawURLs {
		secure, err := product.ForceHTTPS(raw)
		if err != nil {
			continue
		}
		if _, dup := seen[secure]; dup {
			continue
		}
		seen[secure] = struct{}{}
		urls = append(urls, secure)
		if caption, ok := rawCaptions[raw]; ok && caption != "" {
			captions[secure] = caption
		}
	}
	return urls, captions
}

func firstNonEmpty(candidates []string) string {
	for _, c := range candidates {
		if s := strings.TrimSpace(c); s != "" {
			return s
		}
	}
	return ""
}

func copyAttributes(attrs map[string]string) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		if k = strings.TrimSpace(k); k == "" {
			continue
		}
		if v = strings.TrimSpace(v); v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
