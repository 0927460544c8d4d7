package analyzer

import "strings"

// Request is the JSON body posted to /analyze_terms. Exactly one field is
// set.
type Request struct {
	URL  string `json:"url,omitempty"`
	Text string `json:"text,omitempty"`
}

// BuildRequest picks the body for the given inputs. A URL that is not blank
// wins over text; it is sent as typed.
func BuildRequest(url, text string) (Request, error) {
	if strings.TrimSpace(url) != "" {
		return Request{URL: url}, nil
	}
	if strings.TrimSpace(text) != "" {
		return Request{Text: text}, nil
	}
	return Request{}, ErrEmptyInput
}

// Kind names the field that will be sent, for logs.
func (r Request) Kind() string {
	if r.URL != "" {
		return "url"
	}
	return "text"
}
