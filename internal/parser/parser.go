// Package parser extracts raw product candidates from one HTML document.
// It performs no network or other I/O; everything here is a pure function of
// the page bytes and URL.
package parser

import (
	"bytes"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/shoplens/extractor/internal/product"
)

// DefaultMaxImageCandidates bounds the raw image list before any network
// work happens. Tunable, not a contract.
const DefaultMaxImageCandidates = 32

const maxTitleLen = 500

// Parser turns HTML into a product.RawExtraction.
type Parser struct {
	maxImageCandidates int
}

// Option customizes a Parser.
type Option func(*Parser)

// WithMaxImageCandidates overrides the raw image candidate cap.
func WithMaxImageCandidates(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxImageCandidates = n
		}
	}
}

// New creates a Parser.
func New(opts ...Option) *Parser {
	p := &Parser{maxImageCandidates: DefaultMaxImageCandidates}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// page bundles the parsed document with everything the strategy functions
// need, so each strategy stays a pure func(page) value.
type page struct {
	doc      *goquery.Document
	pageURL  *url.URL
	products []structuredProduct
}

// Parse extracts all raw candidates from html. The returned extraction
// always carries at least one non-empty title candidate; the page domain is
// the fallback of last resort.
func (p *Parser) Parse(pageURL string, html []byte) product.RawExtraction {
	raw := product.RawExtraction{
		PageURL:       pageURL,
		ImageCaptions: map[string]string{},
		Attributes:    map[string]string{},
	}

	parsedURL, _ := url.Parse(pageURL)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		raw.TitleCandidates = []string{domainFallback(parsedURL)}
		return raw
	}

	pg := &page{doc: doc, pageURL: parsedURL, products: decodeStructuredData(doc)}

	raw.TitleCandidates = collectTitles(pg)
	raw.PriceCandidates, raw.CurrencyHints = collectPrices(pg)
	raw.ImageURLs = p.collectImages(pg, raw.ImageCaptions)
	raw.DescriptionHTML = collectDescription(pg)
	raw.Attributes = collectAttributes(pg)
	raw.PageLanguage = pageLanguage(doc)

	return raw
}

// titleStrategies are evaluated in priority order; the first non-empty
// result ranks first. Adding or reordering a source is a one-line change.
var titleStrategies = []func(*page) string{
	func(pg *page) string { return metaContent(pg.doc, `meta[property="og:title"]`) },
	func(pg *page) string { return metaContent(pg.doc, `meta[name="twitter:title"]`) },
	func(pg *page) string {
		for _, sp := range pg.products {
			if sp.Name != "" {
				return sp.Name
			}
		}
		return ""
	},
	func(pg *page) string { return microdataText(pg.doc, "name") },
	func(pg *page) string { return cleanText(pg.doc.Find("h1").First().Text()) },
	func(pg *page) string { return cleanText(pg.doc.Find("title").First().Text()) },
}

func collectTitles(pg *page) []string {
	var titles []string
	seen := map[string]struct{}{}
	for _, strategy := range titleStrategies {
		t := truncate(cleanText(strategy(pg)), maxTitleLen)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		titles = append(titles, t)
	}
	titles = append(titles, domainFallback(pg.pageURL))
	return titles
}

// priceHit is one candidate price string with an optional currency token
// found alongside it.
type priceHit struct {
	price    string
	currency string
}

// priceStrategies are evaluated in priority order; all hits are kept so the
// normalizer can fall through candidates that fail to parse.
var priceStrategies = []func(*page) []priceHit{
	structuredDataPrices,
	microdataPrices,
	markerPrices,
	visibleTextPrices,
}

func collectPrices(pg *page) (prices, currencies []string) {
	for _, strategy := range priceStrategies {
		for _, hit := range strategy(pg) {
			if hit.price == "" {
				continue
			}
			prices = append(prices, hit.price)
			currencies = append(currencies, hit.currency)
		}
	}
	return prices, currencies
}

func structuredDataPrices(pg *page) []priceHit {
	var hits []priceHit
	for _, sp := range pg.products {
		if sp.Price != "" {
			hits = append(hits, priceHit{price: sp.Price, currency: sp.Currency})
		}
	}
	return hits
}

func microdataPrices(pg *page) []priceHit {
	var hits []priceHit
	currency := metaContent(pg.doc, `meta[itemprop="priceCurrency"]`)
	if currency == "" {
		currency, _ = pg.doc.Find(`[itemprop="priceCurrency"]`).First().Attr("content")
	}
	pg.doc.Find(`[itemprop="price"]`).Each(func(_ int, s *goquery.Selection) {
		price, ok := s.Attr("content")
		if !ok || strings.TrimSpace(price) == "" {
			price = s.Text()
		}
		if price = cleanText(price); price != "" {
			hits = append(hits, priceHit{price: price, currency: strings.TrimSpace(currency)})
		}
	})
	return hits
}

// priceMarkerSelectors cover the class and data-attribute conventions common
// to storefront templates.
var priceMarkerSelectors = []string{
	`[data-price]`,
	".price",
	".product-price",
	".current-price",
	".price__current",
	".product__price",
	"#price",
	"span[class*='price']",
}

func markerPrices(pg *page) []priceHit {
	var hits []priceHit
	for _, sel := range priceMarkerSelectors {
		pg.doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text, ok := s.Attr("data-price")
			if !ok {
				text = s.Text()
			}
			hits = append(hits, scanPriceText(text)...)
			return len(hits) < 8
		})
	}
	return hits
}

var (
	symbolBeforeRe = regexp.MustCompile(`([€$£])\s?(\d{1,3}(?:[.,]\d{3})*(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?)`)
	symbolAfterRe  = regexp.MustCompile(`(\d{1,3}(?:[.,]\d{3})*(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?)\s?([€$£])`)
	codeNearbyRe   = regexp.MustCompile(`(EUR|USD|GBP)\s?(\d{1,3}(?:[.,]\d{3})*(?:[.,]\d{1,2})?)`)
)

var symbolCurrency = map[string]string{
	"€": product.CurrencyEUR,
	"$": product.CurrencyUSD,
	"£": product.CurrencyGBP,
}

func visibleTextPrices(pg *page) []priceHit {
	body := pg.doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	hits := scanPriceText(body.Text())
	if len(hits) > 8 {
		hits = hits[:8]
	}
	return hits
}

// scanPriceText finds currency-symbol-adjacent numeric patterns, e.g.
// "1.234,56 €" or "$1,234.56".
func scanPriceText(text string) []priceHit {
	var hits []priceHit
	for _, m := range symbolBeforeRe.FindAllStringSubmatch(text, 4) {
		hits = append(hits, priceHit{price: m[2], currency: symbolCurrency[m[1]]})
	}
	for _, m := range symbolAfterRe.FindAllStringSubmatch(text, 4) {
		hits = append(hits, priceHit{price: m[1], currency: symbolCurrency[m[2]]})
	}
	for _, m := range codeNearbyRe.FindAllStringSubmatch(text, 4) {
		hits = append(hits, priceHit{price: m[2], currency: m[1]})
	}
	return hits
}

// collectImages gathers candidates in priority order: OpenGraph images in
// document order, then structured-data images, then the largest inline
// <img> elements. Deduped by resolved absolute URL, capped.
func (p *Parser) collectImages(pg *page, captions map[string]string) []string {
	var ordered []string
	seen := map[string]struct{}{}

	add := func(raw, caption string) {
		abs := resolveURL(pg.pageURL, raw)
		if abs == "" {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		ordered = append(ordered, abs)
		if caption != "" {
			captions[abs] = caption
		}
	}

	pg.doc.Find(`meta[property="og:image"], meta[property="og:image:secure_url"]`).Each(func(_ int, s *goquery.Selection) {
		if content, ok := s.Attr("content"); ok {
			add(content, "")
		}
	})

	for _, sp := range pg.products {
		for _, img := range sp.Images {
			add(img, "")
		}
	}

	for _, inline := range inlineImages(pg.doc) {
		add(inline.src, inline.alt)
	}

	if len(ordered) > p.maxImageCandidates {
		ordered = ordered[:p.maxImageCandidates]
	}
	return ordered
}

type inlineImage struct {
	src  string
	alt  string
	area int
}

// inlineImages returns document <img> elements sorted largest-first by
// declared dimensions. Tiny images (icons, trackers) are skipped.
func inlineImages(doc *goquery.Document) []inlineImage {
	var imgs []inlineImage
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if src == "" || strings.HasPrefix(src, "data:") {
			return
		}
		w := intAttr(s, "width")
		h := intAttr(s, "height")
		area := w * h
		if (w > 0 && w < 100) || (h > 0 && h < 100) {
			return
		}
		alt, _ := s.Attr("alt")
		imgs = append(imgs, inlineImage{src: src, alt: cleanText(alt), area: area})
	})

	// Stable sort by declared area, undeclared (area 0) last in document
	// order.
	for i := 1; i < len(imgs); i++ {
		for j := i; j > 0 && imgs[j].area > imgs[j-1].area; j-- {
			imgs[j], imgs[j-1] = imgs[j-1], imgs[j]
		}
	}
	return imgs
}

func collectDescription(pg *page) string {
	for _, sp := range pg.products {
		if sp.Description != "" {
			return sp.Description
		}
	}
	if desc := metaContent(pg.doc, `meta[property="og:description"]`); desc != "" {
		return desc
	}
	if desc := metaContent(pg.doc, `meta[name="description"]`); desc != "" {
		return desc
	}
	if frag := pg.doc.Find(`[itemprop="description"]`).First(); frag.Length() > 0 {
		if html, err := frag.Html(); err == nil {
			return strings.TrimSpace(html)
		}
	}
	return ""
}

// collectAttributes pulls brand, model, and SKU from structured data only.
// Heuristic guesses are worse than omission here.
func collectAttributes(pg *page) map[string]string {
	attrs := map[string]string{}
	set := func(key, value string) {
		if value != "" && attrs[key] == "" {
			attrs[key] = value
		}
	}
	for _, sp := range pg.products {
		set("brand", sp.Brand)
		set("model", sp.Model)
		set("sku", sp.SKU)
	}
	set("brand", microdataText(pg.doc, "brand"))
	set("sku", microdataText(pg.doc, "sku"))
	return attrs
}

func pageLanguage(doc *goquery.Document) string {
	if lang, ok := doc.Find("html").First().Attr("lang"); ok {
		return strings.TrimSpace(lang)
	}
	return metaContent(doc, `meta[http-equiv="content-language"]`)
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return cleanText(content)
}

// microdataText reads an itemprop value scoped to a schema.org Product item.
func microdataText(doc *goquery.Document, prop string) string {
	sel := doc.Find(`[itemtype*="schema.org/Product"] [itemprop="` + prop + `"]`).First()
	if sel.Length() == 0 {
		return ""
	}
	if content, ok := sel.Attr("content"); ok && strings.TrimSpace(content) != "" {
		return cleanText(content)
	}
	return cleanText(sel.Text())
}

func resolveURL(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	return ref.String()
}

func domainFallback(u *url.URL) string {
	if u != nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return "unknown product"
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func cleanText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// truncate caps s at n runes, never splitting a multibyte character.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n]))
}

func intAttr(s *goquery.Selection, name string) int {
	v, ok := s.Attr(name)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(v), "px"))
	if err != nil {
		return 0
	}
	return n
}
