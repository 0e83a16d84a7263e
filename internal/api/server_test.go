package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shoplens/extractor/internal/product"
)

type stubExtractor struct {
	record product.Record
	err    error
	gotURL string
	hints  product.Hints
}

func (s *stubExtractor) Extract(_ context.Context, rawURL string, hints product.Hints) (product.Record, error) {
	s.gotURL = rawURL
	s.hints = hints
	if s.err != nil {
		return product.Record{}, s.err
	}
	return s.record, nil
}

type stubRecordStore struct {
	records map[string]product.Record
}

func (s *stubRecordStore) SaveRecord(_ context.Context, record product.Record) error {
	s.records[record.PayloadSignature] = record
	return nil
}

func (s *stubRecordStore) GetRecord(_ context.Context, signature string) (product.Record, error) {
	record, ok := s.records[signature]
	if !ok {
		return product.Record{}, product.ErrRecordNotFound
	}
	return record, nil
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestExtractReturnsRecord(t *testing.T) {
	t.Parallel()
	ext := &stubExtractor{record: product.Record{
		Title:            "Widget Pro",
		Status:           product.StatusComplete,
		PayloadSignature: "sig-1",
	}}
	srv := NewServer(ext, nil, zap.NewNop(), Config{})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/extract", map[string]string{
		"url":           "https://shop.example.com/widget",
		"currency_hint": "EUR",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "https://shop.example.com/widget", ext.gotURL)
	require.Equal(t, "EUR", ext.hints.Currency)

	var got product.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "Widget Pro", got.Title)
	require.Equal(t, product.StatusComplete, got.Status)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestExtractRejectsMissingURL(t *testing.T) {
	t.Parallel()
	srv := NewServer(&stubExtractor{}, nil, zap.NewNop(), Config{})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/extract", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExtractErrorMapping(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid url", &product.FetchError{Kind: product.FetchErrInvalidURL, URL: "x"}, http.StatusBadRequest},
		{"timeout", &product.FetchError{Kind: product.FetchErrTimeout, URL: "x"}, http.StatusGatewayTimeout},
		{"http status", &product.FetchError{Kind: product.FetchErrHTTPStatus, URL: "x", StatusCode: 500}, http.StatusBadGateway},
		{"network", &product.FetchError{Kind: product.FetchErrNetwork, URL: "x", Err: errors.New("refused")}, http.StatusBadGateway},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := NewServer(&stubExtractor{err: tc.err}, nil, zap.NewNop(), Config{})
			rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/extract", map[string]string{
				"url": "https://shop.example.com/widget",
			})
			require.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestGetRecord(t *testing.T) {
	t.Parallel()
	store := &stubRecordStore{records: map[string]product.Record{
		"sig-1": {Title: "Widget Pro", PayloadSignature: "sig-1"},
	}}
	srv := NewServer(&stubExtractor{}, store, zap.NewNop(), Config{})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/v1/records/sig-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got product.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "Widget Pro", got.Title)
}

func TestGetRecordNotFound(t *testing.T) {
	t.Parallel()
	store := &stubRecordStore{records: map[string]product.Record{}}
	srv := NewServer(&stubExtractor{}, store, zap.NewNop(), Config{})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/v1/records/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRecordWithoutStore(t *testing.T) {
	t.Parallel()
	srv := NewServer(&stubExtractor{}, nil, zap.NewNop(), Config{})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/v1/records/sig-1", nil)
	require.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	srv := NewServer(&stubExtractor{}, nil, zap.NewNop(), Config{})

	require.Equal(t, http.StatusOK, doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil).Code)
	require.Equal(t, http.StatusOK, doJSON(t, srv.Handler(), http.MethodGet, "/readyz", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	srv := NewServer(&stubExtractor{}, nil, zap.NewNop(), Config{})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyMiddleware(t *testing.T) {
	t.Parallel()
	srv := NewServer(&stubExtractor{}, nil, zap.NewNop(), Config{AuthEnabled: true, APIKey: "sekret"})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-API-Key", "sekret")
	ok := httptest.NewRecorder()
	srv.Handler().ServeHTTP(ok, req)
	require.Equal(t, http.StatusOK, ok.Code)
}
