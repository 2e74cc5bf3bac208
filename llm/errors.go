package llm

import (
	"errors"
	"fmt"
)

// Error kinds for classifying inference failures. Callers never receive a
// partial or empty success value alongside one of these.
var (
	// ErrUnavailable indicates a transport failure (connection refused,
	// timeout) before an HTTP response was obtained.
	ErrUnavailable = errors.New("inference backend unavailable")

	// ErrMalformedResponse indicates a 2xx body that does not parse as a
	// structured object.
	ErrMalformedResponse = errors.New("inference response is not a structured object")

	// ErrUnexpectedShape indicates a parsed 2xx body carrying neither a
	// "response" nor an "error" field.
	ErrUnexpectedShape = errors.New("inference response has neither response nor error")

	// ErrEmptyInput indicates caller misuse: empty text where content is
	// required.
	ErrEmptyInput = errors.New("input text is required")
)

// RequestFailedError is returned for non-2xx HTTP statuses. Status is
// checked before the body shape, so a 500 carrying {"error": ...} still
// surfaces as a RequestFailedError.
type RequestFailedError struct {
	StatusCode int
	Body       string
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("inference request failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// ReportedError is returned when the backend answers 2xx with an "error"
// field in the body.
type ReportedError struct {
	Detail string
}

func (e *ReportedError) Error() string {
	return fmt.Sprintf("inference backend reported error: %s", e.Detail)
}
