package domain

import "fmt"

// FailureKind classifies why a single document could not be retrieved.
type FailureKind string

const (
	// FailureHTMLPayload means the origin served a markup page (login
	// wall, CAPTCHA, error page) instead of the file.
	FailureHTMLPayload FailureKind = "html_payload"
	// FailureTooSmall means the payload was below the minimum size
	// threshold, indicating a truncated or placeholder file.
	FailureTooSmall FailureKind = "too_small"
	// FailureNetwork covers timeouts, connection failures, DNS failures
	// and non-2xx statuses.
	FailureNetwork FailureKind = "network_error"
	// FailureNotFound means the listing page itself could not be
	// retrieved, e.g. the ticker is not recognized.
	FailureNotFound FailureKind = "not_found"
	// FailureExhausted is terminal for one reference: every configured
	// fetch strategy failed.
	FailureExhausted FailureKind = "all_strategies_exhausted"
)

// FetchError is the typed failure value returned by fetch-level
// operations. Expected network and validation failures travel through
// this type; panics are reserved for programmer errors.
type FetchError struct {
	Kind   FailureKind
	Detail string
	URL    string
}

func NewFetchError(kind FailureKind, detail, url string) *FetchError {
	return &FetchError{Kind: kind, Detail: detail, URL: url}
}

func (e *FetchError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Detail, e.URL)
}

// IsRetryable reports whether another attempt could plausibly succeed.
func (e *FetchError) IsRetryable() bool {
	switch e.Kind {
	case FailureHTMLPayload, FailureTooSmall, FailureNetwork:
		return true
	default:
		return false
	}
}
