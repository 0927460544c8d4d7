package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"esecure/internal/analyzer"
	"esecure/internal/browser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeAnalyzer records calls and optionally blocks until released.
type fakeAnalyzer struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	res     analyzer.Result
	err     error
	lastReq analyzer.Request
	mu      sync.Mutex
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req analyzer.Request) (analyzer.Result, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.lastReq = req
	f.mu.Unlock()
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	return f.res, f.err
}

type panicAnalyzer struct{}

func (panicAnalyzer) Analyze(context.Context, analyzer.Request) (analyzer.Result, error) {
	panic("boom")
}

func TestController_SubmitSuccess(t *testing.T) {
	fa := &fakeAnalyzer{res: analyzer.Result{Feedback: "Fine", Score: score(70)}}
	c := NewController(fa, nil)
	c.SetInput(Input{URL: "https://x.test"})

	st, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, st.Status)
	require.NotNil(t, st.Result)
	assert.Equal(t, "Fine", st.Result.Feedback)
	assert.Equal(t, analyzer.Request{URL: "https://x.test"}, fa.lastReq)
	assert.Equal(t, st, c.State())
}

func TestController_SubmitEmptyInput(t *testing.T) {
	fa := &fakeAnalyzer{}
	c := NewController(fa, nil)
	c.SetInput(Input{URL: "  ", Text: "\n"})

	st, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, analyzer.ErrEmptyInput)
	assert.Equal(t, StatusIdle, st.Status)
	assert.Equal(t, analyzer.PromptEmptyInput, st.Notice)
	assert.Equal(t, int32(0), fa.calls.Load())
}

func TestController_SubmitFailureIsState(t *testing.T) {
	fa := &fakeAnalyzer{err: &analyzer.RemoteError{Status: 418, Message: "Request failed: 418"}}
	c := NewController(fa, nil)
	c.SetInput(Input{Text: "terms"})

	st, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, st.Status)
	assert.Equal(t, "Request failed: 418", st.Err)
}

func TestController_SecondSubmitWhileLoading(t *testing.T) {
	fa := &fakeAnalyzer{
		started: make(chan struct{}),
		release: make(chan struct{}),
		res:     analyzer.Result{Feedback: "done"},
	}
	c := NewController(fa, nil)
	c.SetInput(Input{Text: "terms"})

	done := make(chan State)
	go func() {
		st, _ := c.Submit(context.Background())
		done <- st
	}()

	<-fa.started
	assert.True(t, c.State().Loading())

	st, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.True(t, st.Loading())

	close(fa.release)
	final := <-done
	assert.Equal(t, StatusSucceeded, final.Status)
	assert.Equal(t, int32(1), fa.calls.Load())
}

func TestController_PanicStillLeavesLoading(t *testing.T) {
	c := NewController(panicAnalyzer{}, nil)
	c.SetInput(Input{Text: "terms"})

	assert.Panics(t, func() { _, _ = c.Submit(context.Background()) })

	st := c.State()
	assert.Equal(t, StatusFailed, st.Status)
	assert.Equal(t, analyzer.MessageNetwork, st.Err)

	// the in-flight slot was released
	c.SetClient(&fakeAnalyzer{res: analyzer.Result{Feedback: "ok"}})
	st, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, st.Status)
}

func TestController_AgainstHTTPService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Text too short"}`))
	}))
	defer srv.Close()

	client := analyzer.NewClient(analyzer.Config{BaseURL: srv.URL, AccessToken: "t"}, analyzer.WithHTTPClient(srv.Client()))
	c := NewController(client, nil)
	c.SetInput(Input{Text: "hi"})

	st, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, st.Status)
	assert.Equal(t, "Text too short", st.Err)
	assert.Nil(t, st.Result)
}

func TestController_FetchTab(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c := NewController(&fakeAnalyzer{}, browser.Static{URL: "https://active.test"})
		st, err := c.FetchTab(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "https://active.test", st.Input.URL)
		assert.Empty(t, st.Err)
	})

	t.Run("unavailable", func(t *testing.T) {
		c := NewController(&fakeAnalyzer{}, nil)
		c.SetInput(Input{URL: "typed"})
		st, err := c.FetchTab(context.Background())
		assert.ErrorIs(t, err, browser.ErrUnavailable)
		assert.Equal(t, MessageTabUnavailable, st.Err)
		assert.Equal(t, "typed", st.Input.URL)
	})

	t.Run("no active tab", func(t *testing.T) {
		c := NewController(&fakeAnalyzer{}, browser.Static{})
		st, err := c.FetchTab(context.Background())
		assert.True(t, errors.Is(err, browser.ErrNoActiveTab))
		assert.Equal(t, MessageNoActiveTab, st.Err)
	})
}

func TestController_StartThenRun(t *testing.T) {
	fa := &fakeAnalyzer{res: analyzer.Result{Feedback: "Fine"}}
	c := NewController(fa, nil)
	c.SetInput(Input{URL: "https://x.test"})

	st, req, err := c.Start()
	require.NoError(t, err)
	assert.True(t, st.Loading())
	assert.Equal(t, analyzer.Request{URL: "https://x.test"}, req)

	_, _, err = c.Start()
	assert.ErrorIs(t, err, ErrBusy)

	// edits made while loading are kept and do not change the request
	c.SetInput(Input{URL: "https://x.test/edited"})
	assert.True(t, c.State().Loading())

	final := c.Run(context.Background(), st.Seq, req)
	assert.Equal(t, StatusSucceeded, final.Status)
	assert.Equal(t, "https://x.test/edited", final.Input.URL)
	assert.Equal(t, analyzer.Request{URL: "https://x.test"}, fa.lastReq)
	assert.Equal(t, int32(1), fa.calls.Load())

	_, _, err = c.Start()
	assert.NoError(t, err, "slot released after Run")
}

func TestController_StartEmptyInputReleasesSlot(t *testing.T) {
	c := NewController(&fakeAnalyzer{}, nil)

	_, _, err := c.Start()
	assert.ErrorIs(t, err, analyzer.ErrEmptyInput)
	assert.Equal(t, analyzer.PromptEmptyInput, c.State().Notice)

	c.SetInput(Input{Text: "terms"})
	assert.Empty(t, c.State().Notice, "editing dismisses the prompt")
	_, _, err = c.Start()
	assert.NoError(t, err)
}

func TestController_NilClientIsNetworkFailure(t *testing.T) {
	c := NewController(nil, nil)
	c.SetInput(Input{Text: "terms"})

	st, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, st.Status)
	assert.Equal(t, analyzer.MessageNetwork, st.Err)
}

func TestController_SetTabs(t *testing.T) {
	c := NewController(&fakeAnalyzer{}, nil)
	c.SetTabs(browser.Static{URL: "https://swapped.test"})

	st, err := c.FetchTab(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://swapped.test", st.Input.URL)

	c.SetTabs(nil)
	_, err = c.FetchTab(context.Background())
	assert.ErrorIs(t, err, browser.ErrUnavailable)
}
