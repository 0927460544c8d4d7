package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Result is what a successful analysis yields.
type Result struct {
	Feedback string
	Score    *float64 // nil when the service sent none
}

// payload holds the fields the service may send, whatever the status.
type payload struct {
	feedback string
	score    *float64
	errMsg   string
}

func isJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "application/json")
}

// decodeBody reads the response body according to its declared content type.
// A body that cannot be decoded still produces a payload whose errMsg
// describes the problem, alongside a *DecodeError.
func decodeBody(status int, contentType string, raw []byte) (payload, error) {
	if !isJSON(contentType) {
		derr := &DecodeError{Status: status, ContentType: contentType, Body: string(raw)}
		return payload{errMsg: derr.Error()}, derr
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		derr := &DecodeError{Status: status, ContentType: contentType, Err: err}
		return payload{errMsg: derr.Error()}, derr
	}

	// Arrays, strings and null carry none of the known fields.
	obj, ok := v.(map[string]interface{})
	if !ok {
		return payload{}, nil
	}

	var p payload
	if s, ok := obj["feedback"].(string); ok {
		p.feedback = s
	}
	if f, ok := obj["score"].(float64); ok {
		p.score = &f
	}
	if s, ok := obj["error"].(string); ok {
		p.errMsg = s
	}
	return p, nil
}

func (p payload) result() Result {
	fb := p.feedback
	if fb == "" {
		fb = DefaultFeedback
	}
	return Result{Feedback: fb, Score: p.score}
}

func (p payload) remoteError(status int, cause error) *RemoteError {
	msg := p.errMsg
	if msg == "" {
		msg = fmt.Sprintf("Request failed: %d", status)
	}
	return &RemoteError{Status: status, Message: msg, Cause: cause}
}
