package parser

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// structuredProduct is the subset of a schema.org Product node the pipeline
// cares about, decoded leniently: real-world JSON-LD nests, wraps in @graph,
// and mixes strings with objects more or less at will.
type structuredProduct struct {
	Name        string
	Description string
	Brand       string
	Model       string
	SKU         string
	Price       string
	Currency    string
	Images      []string
}

// decodeStructuredData extracts schema.org Product nodes from all
// application/ld+json scripts in the document. Malformed blocks are skipped.
func decodeStructuredData(doc *goquery.Document) []structuredProduct {
	var products []structuredProduct
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var node any
		if err := json.Unmarshal([]byte(s.Text()), &node); err != nil {
			return
		}
		collectProducts(node, &products)
	})
	return products
}

func collectProducts(node any, out *[]structuredProduct) {
	switch v := node.(type) {
	case []any:
		for _, item := range v {
			collectProducts(item, out)
		}
	case map[string]any:
		if graph, ok := v["@graph"]; ok {
			collectProducts(graph, out)
		}
		if isProductType(v["@type"]) {
			*out = append(*out, decodeProduct(v))
		}
	}
}

func isProductType(t any) bool {
	switch v := t.(type) {
	case string:
		return strings.EqualFold(v, "Product")
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.EqualFold(s, "Product") {
				return true
			}
		}
	}
	return false
}

func decodeProduct(m map[string]any) structuredProduct {
	p := structuredProduct{
		Name:        stringValue(m["name"]),
		Description: stringValue(m["description"]),
		Brand:       nameValue(m["brand"]),
		Model:       nameValue(m["model"]),
		SKU:         stringValue(m["sku"]),
		Images:      stringList(m["image"]),
	}
	p.Price, p.Currency = decodeOffers(m["offers"])
	return p
}

// decodeOffers handles offers as a single object, a list, or an
// AggregateOffer carrying lowPrice.
func decodeOffers(node any) (price, currency string) {
	switch v := node.(type) {
	case []any:
		for _, item := range v {
			if p, c := decodeOffers(item); p != "" {
				return p, c
			}
		}
	case map[string]any:
		price = stringValue(v["price"])
		if price == "" {
			price = stringValue(v["lowPrice"])
		}
		currency = stringValue(v["priceCurrency"])
		if price == "" {
			if spec, ok := v["priceSpecification"]; ok {
				return decodeOffers(spec)
			}
		}
	}
	return price, currency
}

// stringValue renders scalar JSON values as trimmed strings. Numbers keep
// their JSON representation so "29.99" survives unchanged.
func stringValue(node any) string {
	switch v := node.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		// encoding/json decodes numbers as float64 by default; format
		// without exponent so price text stays parseable.
		return trimFloat(v)
	}
	return ""
}

// nameValue handles values that may be either a string or an object with a
// name property (brand and model commonly come both ways).
func nameValue(node any) string {
	if s := stringValue(node); s != "" {
		return s
	}
	if m, ok := node.(map[string]any); ok {
		return stringValue(m["name"])
	}
	return ""
}

func stringList(node any) []string {
	switch v := node.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	case []any:
		var out []string
		for _, item := range v {
			out = append(out, stringList(item)...)
		}
		return out
	case map[string]any:
		// ImageObject form: {"@type": "ImageObject", "url": "..."}
		if s := stringValue(v["url"]); s != "" {
			return []string{s}
		}
		if s := stringValue(v["contentUrl"]); s != "" {
			return []string{s}
		}
	}
	return nil
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
