package normalize

import (
	"net/url"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"

	"github.com/shoplens/extractor/internal/product"
)

// Currency inference priority when signals disagree: an explicit token on
// the page always wins, then a caller hint, then the shop's top-level
// domain, then the declared page language. Deterministic by construction.

var tldCurrency = map[string]string{
	"fr":  product.CurrencyEUR,
	"de":  product.CurrencyEUR,
	"it":  product.CurrencyEUR,
	"es":  product.CurrencyEUR,
	"nl":  product.CurrencyEUR,
	"be":  product.CurrencyEUR,
	"at":  product.CurrencyEUR,
	"ie":  product.CurrencyEUR,
	"fi":  product.CurrencyEUR,
	"pt":  product.CurrencyEUR,
	"uk":  product.CurrencyGBP,
	"us":  product.CurrencyUSD,
	"com": product.CurrencyUSD,
	"net": product.CurrencyUSD,
	"org": product.CurrencyUSD,
}

var symbolToken = map[string]string{
	"€": product.CurrencyEUR,
	"$": product.CurrencyUSD,
	"£": product.CurrencyGBP,
}

// ResolveCurrency returns a supported ISO 4217 code, or "" when no signal
// resolves to one.
func ResolveCurrency(explicit string, hints product.Hints, pageURL, pageLanguage string) string {
	if code := normalizeToken(explicit); code != "" {
		return code
	}
	if code := normalizeToken(hints.Currency); code != "" {
		return code
	}
	if code := currencyFromTLD(pageURL); code != "" {
		return code
	}
	lang := pageLanguage
	if lang == "" {
		lang = hints.Language
	}
	return currencyFromLanguage(lang)
}

// normalizeToken accepts a symbol or ISO code and returns a supported code.
func normalizeToken(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	if code, ok := symbolToken[token]; ok {
		return code
	}
	unit, err := currency.ParseISO(token)
	if err != nil {
		return ""
	}
	code := unit.String()
	if !product.SupportedCurrency(code) {
		return ""
	}
	return code
}

func currencyFromTLD(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	labels := strings.Split(host, ".")
	tld := labels[len(labels)-1]

	// "co.uk" style second-level domains defer to the country code.
	if tld == "uk" {
		return product.CurrencyGBP
	}
	return tldCurrency[tld]
}

func currencyFromLanguage(lang string) string {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return ""
	}

	if region, conf := tag.Region(); conf >= language.High && region.IsCountry() {
		switch region.String() {
		case "GB":
			return product.CurrencyGBP
		case "US":
			return product.CurrencyUSD
		case "FR", "DE", "IT", "ES", "NL", "BE", "AT", "IE", "FI", "PT":
			return product.CurrencyEUR
		}
	}

	base, _ := tag.Base()
	switch base.String() {
	case "fr", "de", "it", "es", "nl", "pt", "fi":
		return product.CurrencyEUR
	case "en":
		return product.CurrencyUSD
	}
	return ""
}
