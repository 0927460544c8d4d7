// Package session holds the view-model of the terms analyzer: one immutable
// State value moved between Idle, Loading, Succeeded and Failed by pure
// transition methods, and a Controller that drives a single request.
//
// Transitions:
//
//	Idle ──Begin──▶ Loading ──Complete──▶ Succeeded | Failed
//	  ▲                                        │
//	  └──────────── Begin (again) ◀────────────┘
package session

import (
	"errors"

	"esecure/internal/analyzer"
	"esecure/internal/browser"
)

// Status is the request lifecycle.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Tab query messages.
const (
	MessageTabUnavailable = "Browser tab query not available. Start Chrome with --remote-debugging-port or pass --debugger-url."
	MessageNoActiveTab    = "No active tab detected."
	MessageTabFailed      = "Unable to fetch current tab URL."
)

// Input is what the user typed.
type Input struct {
	URL  string
	Text string
}

// State is a snapshot of the analyzer view. Methods return a new value and
// never modify the receiver.
type State struct {
	Input  Input
	Status Status

	// Result is set only when Status is StatusSucceeded.
	Result *analyzer.Result

	// Err is the message for the error panel. Set only when Status is
	// StatusFailed.
	Err string

	// Notice is the blocking prompt shown when submit is attempted with no
	// input. It does not change Status.
	Notice string

	// Seq identifies the request started by the latest Begin.
	Seq uint64
}

// Loading reports whether a request is in flight.
func (s State) Loading() bool { return s.Status == StatusLoading }

// CanSubmit reports whether the analyze action is enabled.
func (s State) CanSubmit() bool { return !s.Loading() }

// WithURL replaces the URL field.
func (s State) WithURL(url string) State {
	s.Input.URL = url
	return s
}

// WithText replaces the text field.
func (s State) WithText(text string) State {
	s.Input.Text = text
	return s
}

// Begin starts a request. ok is false when nothing should be sent: either a
// request is already in flight, or the input is blank, in which case the
// returned state carries the prompt in Notice.
func (s State) Begin() (next State, req analyzer.Request, ok bool) {
	if s.Loading() {
		return s, analyzer.Request{}, false
	}
	req, err := analyzer.BuildRequest(s.Input.URL, s.Input.Text)
	if err != nil {
		s.Notice = analyzer.UserMessage(err)
		return s, analyzer.Request{}, false
	}
	s.Status = StatusLoading
	s.Result = nil
	s.Err = ""
	s.Notice = ""
	s.Seq++
	return s, req, true
}

// Complete applies the outcome of the request identified by seq. Outcomes of
// any other request, or arriving when nothing is loading, are ignored.
func (s State) Complete(seq uint64, res analyzer.Result, err error) State {
	if !s.Loading() || seq != s.Seq {
		return s
	}
	if err != nil {
		s.Status = StatusFailed
		s.Result = nil
		s.Err = analyzer.UserMessage(err)
		return s
	}
	s.Status = StatusSucceeded
	s.Result = &res
	s.Err = ""
	return s
}

// TabFetched puts the active tab URL into the input and clears any error.
func (s State) TabFetched(url string) State {
	s.Input.URL = url
	s.Notice = ""
	if s.Status == StatusFailed {
		s.Status = StatusIdle
		s.Err = ""
	}
	return s
}

// TabFailed reports a tab query failure in the error panel. Input is kept.
// A failure while a request is loading is dropped so the request outcome
// still owns the panel.
func (s State) TabFailed(err error) State {
	if s.Loading() {
		return s
	}
	s.Status = StatusFailed
	s.Result = nil
	s.Err = TabErrorMessage(err)
	return s
}

// DismissNotice clears the blank-input prompt.
func (s State) DismissNotice() State {
	s.Notice = ""
	return s
}

// TabErrorMessage maps a TabQuerier error to its user message.
func TabErrorMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, browser.ErrUnavailable):
		return MessageTabUnavailable
	case errors.Is(err, browser.ErrNoActiveTab):
		return MessageNoActiveTab
	default:
		return MessageTabFailed
	}
}
