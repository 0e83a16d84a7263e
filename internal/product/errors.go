package product

import (
	"errors"
	"fmt"
)

// FetchErrorKind classifies terminal fetch failures.
type FetchErrorKind string

// Fetch error kinds surfaced to callers.
const (
	FetchErrInvalidURL FetchErrorKind = "invalid_url"
	FetchErrTimeout    FetchErrorKind = "timeout"
	FetchErrHTTPStatus FetchErrorKind = "http_status"
	FetchErrNetwork    FetchErrorKind = "network"
)

// FetchError is the typed error returned when the root page (or an image)
// cannot be fetched. StatusCode is set only for http_status errors.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchErrHTTPStatus:
		return fmt.Sprintf("fetch %s: http status %d after %d attempt(s)", e.URL, e.StatusCode, e.Attempts)
	case FetchErrInvalidURL:
		return fmt.Sprintf("fetch %s: invalid url", e.URL)
	default:
		return fmt.Sprintf("fetch %s: %s after %d attempt(s): %v", e.URL, e.Kind, e.Attempts, e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a terminal fetch timeout.
func IsTimeout(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == FetchErrTimeout
}

// IsInvalidURL reports whether err marks a malformed or unsupported URL.
func IsInvalidURL(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == FetchErrInvalidURL
}

// ErrEmptyTitle is the only hard extraction failure: even the parser's
// domain-name fallback produced nothing.
var ErrEmptyTitle = errors.New("extraction produced an empty title")

// ErrRecordNotFound is returned by record stores on a miss.
var ErrRecordNotFound = errors.New("record not found")
