package analyzer

import (
	"errors"
	"fmt"
)

// User-facing strings. They match what the popup has always shown.
const (
	PromptEmptyInput = "Please enter a URL or paste Terms text first."
	MessageNetwork   = "Network error"
	DefaultFeedback  = "No feedback returned."
)

// ErrEmptyInput is returned when neither a URL nor text was supplied.
var ErrEmptyInput = errors.New("analyzer: url or text required")

// DecodeError reports a response body that could not be read as the JSON
// the service promises.
type DecodeError struct {
	Status      int
	ContentType string
	Body        string // raw body when the content type was not JSON
	Err         error  // JSON syntax error when it was
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Invalid JSON response (status %d)", e.Status)
	}
	return fmt.Sprintf("Unexpected content-type (%s)", e.ContentType)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// RemoteError is a non-2xx answer from the analysis service.
type RemoteError struct {
	Status  int
	Message string
	Cause   error // *DecodeError when the body could not be decoded
}

func (e *RemoteError) Error() string { return e.Message }

func (e *RemoteError) Unwrap() error { return e.Cause }

// NetworkError means no response was obtained at all.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UserMessage maps an Analyze error to the text shown in the error panel.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrEmptyInput) {
		return PromptEmptyInput
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Message
	}
	return MessageNetwork
}
