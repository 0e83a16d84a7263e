package normalize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// newSanitizer builds the description whitelist policy: a handful of
// text-structure tags and nothing else. Scripts, images, styles, event
// handlers, and every attribute are stripped.
func newSanitizer() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "ul", "li", "strong", "em")
	return p
}

// SanitizeHTML whitelists description markup. Entities are decoded first so
// the sanitizer sees literal text and encoded payloads cannot smuggle tags
// past it.
func (n *Normalizer) SanitizeHTML(fragment string) string {
	decoded := html.UnescapeString(fragment)
	return strings.TrimSpace(n.sanitizer.Sanitize(decoded))
}
