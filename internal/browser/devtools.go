package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"esecure/internal/logging"

	"github.com/go-rod/rod"
)

// visibilityCheckTimeout bounds the per-page visibility check; background
// pages can be throttled.
const visibilityCheckTimeout = 2 * time.Second

// DevTools reads the active tab from a running Chrome over the DevTools
// protocol. It only attaches; it never launches or closes the browser.
type DevTools struct {
	cfg     Config
	resolve func(context.Context, string) (string, error)
}

// NewDevTools creates a DevTools querier.
func NewDevTools(cfg Config) *DevTools {
	return &DevTools{cfg: cfg, resolve: resolveControlURL}
}

// versionURL maps "9222", "host:9222" or "http://host:9222" to the
// /json/version endpoint of that debugger.
func versionURL(raw string) (*url.URL, error) {
	if _, err := strconv.Atoi(raw); err == nil {
		raw = "127.0.0.1:" + raw
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid debugger url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid debugger url %q: missing host", raw)
	}
	u.Path = "/json/version"
	u.RawQuery = ""
	return u, nil
}

// resolveControlURL turns a debugger address into the browser websocket URL
// by asking its /json/version endpoint. ws:// URLs are used as given. The
// websocket host is rewritten to the one configured, since Chrome reports
// its own bind address.
func resolveControlURL(ctx context.Context, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("no debugger url configured")
	}
	if strings.HasPrefix(raw, "ws://") || strings.HasPrefix(raw, "wss://") {
		return raw, nil
	}

	u, err := versionURL(raw)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: status %d", u, resp.StatusCode)
	}

	var version struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&version); err != nil {
		return "", fmt.Errorf("decode %s: %w", u, err)
	}
	ws, err := url.Parse(version.WebSocketDebuggerURL)
	if err != nil || ws.Host == "" {
		return "", fmt.Errorf("%s: no websocket debugger url", u)
	}
	ws.Host = u.Host
	return ws.String(), nil
}

// ActiveTabURL returns the URL of the visible page. Connection problems are
// reported as ErrUnavailable, an empty browser as ErrNoActiveTab.
func (d *DevTools) ActiveTabURL(ctx context.Context) (string, error) {
	// The timeout covers resolving as well as the websocket session.
	// Cancelling this context drops the websocket without closing Chrome.
	var cancel context.CancelFunc
	if d.cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	controlURL, err := d.resolve(ctx, d.cfg.DebuggerURL)
	if err != nil {
		logging.Get(logging.CategoryBrowser).Warn("resolve %q: %v", d.cfg.DebuggerURL, err)
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		logging.Get(logging.CategoryBrowser).Warn("connect %s: %v", controlURL, err)
		return "", fmt.Errorf("%w: connect to chrome: %v", ErrUnavailable, err)
	}

	pages, err := b.Pages()
	if err != nil {
		return "", fmt.Errorf("list pages: %w", err)
	}

	type candidate struct {
		page *rod.Page
		url  string
	}
	var candidates []candidate
	for _, p := range pages {
		info, err := p.Info()
		if err != nil {
			logging.BrowserDebug("page info: %v", err)
			continue
		}
		if !isUserPage(info.URL) {
			continue
		}
		candidates = append(candidates, candidate{page: p, url: info.URL})
	}
	if len(candidates) == 0 {
		return "", ErrNoActiveTab
	}

	for _, c := range candidates {
		obj, err := c.page.Timeout(visibilityCheckTimeout).Eval(`() => document.visibilityState`)
		if err != nil {
			logging.BrowserDebug("visibility check %s: %v", c.url, err)
			continue
		}
		if obj.Value.Str() == "visible" {
			logging.Browser("active tab %s", c.url)
			return c.url, nil
		}
	}

	logging.Browser("no visible tab, using first page %s", candidates[0].url)
	return candidates[0].url, nil
}

// isUserPage filters out browser-internal pages.
func isUserPage(u string) bool {
	if u == "" || u == "about:blank" {
		return false
	}
	for _, prefix := range []string{"chrome://", "chrome-extension://", "devtools://", "chrome-search://", "edge://"} {
		if strings.HasPrefix(u, prefix) {
			return false
		}
	}
	return true
}
