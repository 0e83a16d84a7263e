// Package collyfetcher implements product.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/shoplens/extractor/internal/product"
)

// Config controls collector behavior.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	MaxBodySize int
}

// Fetcher performs single-shot HTTP GETs through a Colly collector. It does
// not retry, cache, or throttle; the transport coordinator layers those
// policies on top.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.AllowURLRevisit = true
	c.WithTransport(newHTTPTransport())

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Fetch executes one HTTP GET. A response carrying a non-2xx status is
// returned with a nil error; the caller classifies status codes. An error
// means the request never completed.
func (f *Fetcher) Fetch(ctx context.Context, request product.FetchRequest) (product.FetchResponse, error) {
	var (
		result   product.FetchResponse
		fetchErr error
	)
	start := time.Now()

	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = true
	collector.AllowURLRevisit = true
	if f.cfg.MaxBodySize > 0 {
		collector.MaxBodySize = f.cfg.MaxBodySize
	}

	timeout := request.Timeout
	if timeout == 0 {
		timeout = f.cfg.Timeout
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	collector.OnResponse(func(r *colly.Response) {
		result = product.FetchResponse{
			URL:         r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			ContentType: r.Headers.Get("Content-Type"),
			RetryAfter:  r.Headers.Get("Retry-After"),
			Body:        append([]byte(nil), r.Body...),
			Duration:    time.Since(start),
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			var contentType, retryAfter string
			var body []byte
			if r.Headers != nil {
				contentType = r.Headers.Get("Content-Type")
				retryAfter = r.Headers.Get("Retry-After")
			}
			if r.Body != nil {
				body = append([]byte(nil), r.Body...)
			}
			result = product.FetchResponse{
				URL:         request.URL,
				StatusCode:  r.StatusCode,
				ContentType: contentType,
				RetryAfter:  retryAfter,
				Body:        body,
				Duration:    time.Since(start),
			}
			return
		}
		fetchErr = err
	})

	if err := runCollector(ctx, collector, request.URL); err != nil {
		if result.StatusCode > 0 {
			return result, nil
		}
		return product.FetchResponse{}, err
	}
	if result.StatusCode > 0 {
		return result, nil
	}
	if fetchErr != nil {
		return product.FetchResponse{}, classify(fetchErr, request.URL)
	}
	return product.FetchResponse{}, fmt.Errorf("fetch %s: no response received", request.URL)
}

func runCollector(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return classify(ctx.Err(), url)
	case err := <-done:
		if err != nil {
			return classify(err, url)
		}
		return nil
	}
}

// classify maps transport-level failures onto the fetch error taxonomy so
// the coordinator can make retry decisions without string matching.
func classify(err error, url string) error {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout(),
		errors.Is(err, context.DeadlineExceeded):
		return &product.FetchError{Kind: product.FetchErrTimeout, URL: url, Attempts: 1, Err: err}
	default:
		return &product.FetchError{Kind: product.FetchErrNetwork, URL: url, Attempts: 1, Err: err}
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
