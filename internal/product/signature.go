package product

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Signature computes the payload signature: a SHA-256 hex digest over a
// canonical serialization of the normalized fields. Timestamps, run IDs and
// retry counts are excluded so re-scraping unchanged source data yields an
// identical signature, which downstream consumers use for dedup and
// idempotent publishes.
func Signature(r Record) string {
	var b strings.Builder

	writeField(&b, "title", r.Title)
	if r.Price != nil {
		writeField(&b, "price", r.Price.Amount.String())
		writeField(&b, "currency", r.Price.Currency)
	} else {
		writeField(&b, "price", "")
		writeField(&b, "currency", "")
	}

	keys := make([]string, 0, len(r.Attributes))
	for k := range r.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeField(&b, "attr:"+k, r.Attributes[k])
	}

	for _, img := range r.Images {
		if img.Placeholder {
			continue
		}
		writeField(&b, "image", img.SourceURL)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// writeField appends one length-prefixed field so no concatenation of two
// values can collide with a different split of the same bytes.
func writeField(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteByte(0)
	b.WriteString(value)
	b.WriteByte(0)
}
