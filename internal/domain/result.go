package domain

import (
	"bytes"
	"fmt"
)

// MinDocumentSize is the smallest payload accepted as a genuine file.
// Anything below it is treated as a placeholder or truncated response.
const MinDocumentSize = 1024

// htmlSignatures are the document prefixes that mark a payload as a
// disguised block/error page rather than a file. Compared after
// trimming leading whitespace and lower-casing.
var htmlSignatures = [][]byte{
	[]byte("<!doctype html"),
	[]byte("<html"),
}

// ValidatePayload applies the uniform payload checks: a payload that
// opens like an HTML document is rejected as FailureHTMLPayload even if
// the transport reported success, and anything under MinDocumentSize is
// rejected as FailureTooSmall. Returns nil when the payload is
// acceptable.
func ValidatePayload(payload []byte) *FetchError {
	trimmed := bytes.ToLower(bytes.TrimSpace(payload))
	for _, sig := range htmlSignatures {
		if bytes.HasPrefix(trimmed, sig) {
			return NewFetchError(FailureHTMLPayload,
				"received an HTML login/error page instead of a file", "")
		}
	}
	if len(payload) < MinDocumentSize {
		return NewFetchError(FailureTooSmall,
			fmt.Sprintf("file size (%d bytes) is below threshold", len(payload)), "")
	}
	return nil
}

// RetrievalResult is the outcome of fetching one DocumentRef: either a
// named payload or a classified failure.
type RetrievalResult struct {
	FileName string
	Payload  []byte

	Kind   FailureKind
	Detail string
	Ref    DocumentRef
}

// SuccessResult builds the success variant.
func SuccessResult(fileName string, payload []byte, ref DocumentRef) RetrievalResult {
	return RetrievalResult{FileName: fileName, Payload: payload, Ref: ref}
}

// FailureResult builds the failure variant.
func FailureResult(kind FailureKind, detail string, ref DocumentRef) RetrievalResult {
	return RetrievalResult{Kind: kind, Detail: detail, Ref: ref}
}

// OK reports whether the retrieval succeeded.
func (r RetrievalResult) OK() bool {
	return r.Kind == ""
}

// FailureRecord describes one unrecoverable document failure for the
// caller's failure report.
type FailureRecord struct {
	URL      string      `json:"url"`
	Category Category    `json:"category"`
	BaseName string      `json:"base_name"`
	Kind     FailureKind `json:"kind"`
	Detail   string      `json:"detail"`
}
