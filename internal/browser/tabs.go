// Package browser exposes the "use current tab" capability. In a terminal
// there is no extension API, so the active tab is read from a Chrome
// instance started with --remote-debugging-port.
package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable means no browser capability is configured or reachable.
	ErrUnavailable = errors.New("browser tab query not available")

	// ErrNoActiveTab means the browser answered but has no usable tab.
	ErrNoActiveTab = errors.New("no active tab detected")
)

// TabQuerier returns the URL of the active browser tab.
type TabQuerier interface {
	ActiveTabURL(ctx context.Context) (string, error)
}

// Unavailable is the querier used when no browser is configured.
type Unavailable struct{}

// ActiveTabURL always fails with ErrUnavailable.
func (Unavailable) ActiveTabURL(context.Context) (string, error) {
	return "", ErrUnavailable
}

// Static reports a fixed URL.
type Static struct {
	URL string
}

// ActiveTabURL returns the fixed URL, or ErrNoActiveTab when it is empty.
func (s Static) ActiveTabURL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.URL == "" {
		return "", ErrNoActiveTab
	}
	return s.URL, nil
}

// Config selects and tunes the querier.
type Config struct {
	Enabled     bool
	DebuggerURL string
	Timeout     time.Duration
}

// New returns a DevTools querier when one is configured, Unavailable
// otherwise.
func New(cfg Config) TabQuerier {
	if !cfg.Enabled || cfg.DebuggerURL == "" {
		return Unavailable{}
	}
	return NewDevTools(cfg)
}
