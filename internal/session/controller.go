package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"esecure/internal/analyzer"
	"esecure/internal/browser"
	"esecure/internal/logging"

	"golang.org/x/sync/semaphore"
)

// ErrBusy is returned by Submit while another request is in flight.
var ErrBusy = errors.New("session: analysis already in progress")

var (
	// errInterrupted completes a request whose Analyze call never returned.
	errInterrupted = errors.New("session: request interrupted")

	errNoClient = errors.New("session: no analyzer configured")
)

// Analyzer sends one analysis request.
type Analyzer interface {
	Analyze(ctx context.Context, req analyzer.Request) (analyzer.Result, error)
}

// Controller owns a State and runs at most one request at a time. It is safe
// for concurrent use.
type Controller struct {
	mu    sync.RWMutex
	state State

	client Analyzer
	tabs   browser.TabQuerier

	// inflight has weight 1; holding it means a request is running.
	inflight *semaphore.Weighted
}

// NewController creates a controller. A nil tabs querier behaves like
// browser.Unavailable.
func NewController(client Analyzer, tabs browser.TabQuerier) *Controller {
	if tabs == nil {
		tabs = browser.Unavailable{}
	}
	return &Controller{
		client:   client,
		tabs:     tabs,
		inflight: semaphore.NewWeighted(1),
	}
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// SetInput replaces the user input and dismisses the blank-input prompt.
// Input may change while a request is loading; the outcome still applies.
func (c *Controller) SetInput(in Input) {
	c.mu.Lock()
	c.state = c.state.WithURL(in.URL).WithText(in.Text).DismissNotice()
	c.mu.Unlock()
}

// SetClient swaps the analyzer used by the next request, for example after
// a config reload.
func (c *Controller) SetClient(client Analyzer) {
	c.mu.Lock()
	c.client = client
	c.mu.Unlock()
}

// SetTabs swaps the tab querier.
func (c *Controller) SetTabs(tabs browser.TabQuerier) {
	if tabs == nil {
		tabs = browser.Unavailable{}
	}
	c.mu.Lock()
	c.tabs = tabs
	c.mu.Unlock()
}

// Submit runs one analysis and returns the resulting state. Blank input
// returns analyzer.ErrEmptyInput without touching the network; a concurrent
// call returns ErrBusy. Remote and network failures are not errors here:
// they are reported through the returned state.
func (c *Controller) Submit(ctx context.Context) (State, error) {
	st, req, err := c.Start()
	if err != nil {
		return st, err
	}
	return c.Run(ctx, st.Seq, req), nil
}

// Start claims the in-flight slot and moves the state to Loading. On
// success the caller must call Run with the returned Seq and request,
// typically from another goroutine. Errors are ErrBusy and
// analyzer.ErrEmptyInput; neither leaves the slot held.
func (c *Controller) Start() (State, analyzer.Request, error) {
	if !c.inflight.TryAcquire(1) {
		logging.SessionDebug("submit ignored: request in flight")
		return c.State(), analyzer.Request{}, ErrBusy
	}

	c.mu.Lock()
	next, req, ok := c.state.Begin()
	c.state = next
	c.mu.Unlock()

	if !ok {
		c.inflight.Release(1)
		if next.Loading() {
			return next, req, ErrBusy
		}
		logging.SessionDebug("submit blocked: empty input")
		return next, req, analyzer.ErrEmptyInput
	}

	logging.Session("request %d started (%s)", next.Seq, req.Kind())
	logging.Audit(logging.AuditEvent{
		EventType: logging.AuditAnalysisSubmit,
		Seq:       next.Seq,
		Kind:      req.Kind(),
		Target:    req.URL,
		Success:   true,
	})
	return next, req, nil
}

// Run sends the request begun by Start, applies its outcome and releases
// the in-flight slot. The state leaves Loading even if the analyzer panics.
func (c *Controller) Run(ctx context.Context, seq uint64, req analyzer.Request) (st State) {
	defer c.inflight.Release(1)

	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	start := time.Now()
	res, aerr := analyzer.Result{}, error(errInterrupted)
	defer func() {
		c.mu.Lock()
		c.state = c.state.Complete(seq, res, aerr)
		st = c.state
		c.mu.Unlock()
		logging.Session("request %d %s in %s", seq, st.Status, time.Since(start))
		auditCompletion(seq, st, time.Since(start))
	}()

	if client == nil {
		aerr = &analyzer.NetworkError{Err: errNoClient}
		return st
	}
	res, aerr = client.Analyze(ctx, req)
	return st
}

// FetchTab asks the tab querier for the active URL and applies the answer.
// The querier error is returned alongside the updated state.
func (c *Controller) FetchTab(ctx context.Context) (State, error) {
	c.mu.RLock()
	tabs := c.tabs
	c.mu.RUnlock()

	url, err := tabs.ActiveTabURL(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		logging.Browser("tab query failed: %v", err)
		logging.Audit(logging.AuditEvent{EventType: logging.AuditTabError, Error: err.Error()})
		c.state = c.state.TabFailed(err)
		return c.state, err
	}
	logging.BrowserDebug("active tab: %s", url)
	logging.Audit(logging.AuditEvent{EventType: logging.AuditTabQuery, Target: url, Success: true})
	c.state = c.state.TabFetched(url)
	return c.state, nil
}

// auditCompletion records the outcome of request seq. A stale outcome that
// Complete dropped is not recorded.
func auditCompletion(seq uint64, st State, d time.Duration) {
	if st.Seq != seq || st.Loading() {
		return
	}
	e := logging.AuditEvent{Seq: seq, Duration: d}
	if st.Status == StatusSucceeded {
		e.EventType = logging.AuditAnalysisComplete
		e.Success = true
		if st.Result != nil && st.Result.Score != nil {
			e.Fields = map[string]interface{}{"score": *st.Result.Score}
		}
	} else {
		e.EventType = logging.AuditAnalysisError
		e.Error = st.Err
	}
	logging.Audit(e)
}
