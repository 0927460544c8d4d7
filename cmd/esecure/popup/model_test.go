package popup

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"esecure/cmd/esecure/ui"
	"esecure/internal/analyzer"
	"esecure/internal/browser"
	"esecure/internal/session"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingAnalyzer struct {
	calls atomic.Int32
	last  analyzer.Request
	res   analyzer.Result
	err   error
}

func (c *countingAnalyzer) Analyze(_ context.Context, req analyzer.Request) (analyzer.Result, error) {
	c.calls.Add(1)
	c.last = req
	return c.res, c.err
}

func newTestModel(client session.Analyzer, tabs browser.TabQuerier) Model {
	return New(context.Background(), Options{
		Client: client,
		Tabs:   tabs,
		Styles: ui.NewStyles(ui.DarkTheme()),
	})
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	result, ok := next.(Model)
	require.True(t, ok)
	return result, cmd
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

// drain runs cmd and any batched commands, feeding their messages back.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = drain(t, m, c)
		}
	case nil:
	default:
		m, _ = update(t, m, msg)
	}
	return m
}

func TestModel_EmptySubmitShowsNotice(t *testing.T) {
	client := &countingAnalyzer{}
	m := newTestModel(client, nil)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Nil(t, cmd)
	assert.Equal(t, analyzer.PromptEmptyInput, m.State().Notice)
	assert.Equal(t, session.StatusIdle, m.State().Status)
	assert.Contains(t, m.View(), analyzer.PromptEmptyInput)

	m = typeText(t, m, "x")
	assert.Empty(t, m.State().Notice)
	assert.Equal(t, int32(0), client.calls.Load())
}

func TestModel_EnterInURLFieldSubmits(t *testing.T) {
	score := 82.0
	client := &countingAnalyzer{res: analyzer.Result{Feedback: "Mostly fair.", Score: &score}}
	m := newTestModel(client, nil)
	m = typeText(t, m, "https://x.test")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.State().Loading())
	assert.Contains(t, m.View(), "Analyzing...")

	m = drain(t, m, cmd)
	assert.Equal(t, session.StatusSucceeded, m.State().Status)
	assert.Equal(t, int32(1), client.calls.Load())

	view := m.View()
	assert.Contains(t, view, "Safety Score")
	assert.Contains(t, view, "82/100")
	assert.NotContains(t, view, "Error:")
}

func TestModel_LoadingBlocksSecondSubmitOnly(t *testing.T) {
	client := &countingAnalyzer{res: analyzer.Result{Feedback: "ok"}}
	m := newTestModel(client, nil)
	m = typeText(t, m, "https://x.test")

	m, first := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, first)
	seq := m.State().Seq

	m, second := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Nil(t, second)
	assert.Equal(t, seq, m.State().Seq)

	// fields stay editable while loading
	m = typeText(t, m, "/zzz")
	assert.True(t, m.State().Loading())
	assert.Equal(t, "https://x.test/zzz", m.State().Input.URL)
	assert.Equal(t, "https://x.test/zzz", m.url.Value())
	assert.Contains(t, m.View(), "Analyzing...")

	m = drain(t, m, first)
	assert.Equal(t, int32(1), client.calls.Load())
	assert.Equal(t, session.StatusSucceeded, m.State().Status)
	assert.Equal(t, "https://x.test/zzz", m.State().Input.URL)
	assert.Equal(t, analyzer.Request{URL: "https://x.test"}, client.last)
}

func TestModel_FailureRendersErrorPanel(t *testing.T) {
	client := &countingAnalyzer{err: &analyzer.RemoteError{Status: 500, Message: "Request failed: 500"}}
	m := newTestModel(client, nil)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "We own your soul.")
	assert.Equal(t, "We own your soul.", m.State().Input.Text)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	m = drain(t, m, cmd)

	assert.Equal(t, session.StatusFailed, m.State().Status)
	view := m.View()
	assert.Contains(t, view, "Error:")
	assert.Contains(t, view, "Request failed: 500")
	assert.NotContains(t, view, "Safety Score")
}

func TestModel_StaleCompletionIgnored(t *testing.T) {
	m := newTestModel(&countingAnalyzer{}, nil)
	m = typeText(t, m, "https://x.test")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})

	m, _ = update(t, m, analysisDoneMsg{seq: m.State().Seq + 7})
	assert.True(t, m.State().Loading())
	assert.Nil(t, m.State().Result)
}

func TestModel_UseCurrentTab(t *testing.T) {
	t.Run("fills url", func(t *testing.T) {
		m := newTestModel(&countingAnalyzer{}, browser.Static{URL: "https://active.test/terms"})
		m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
		m = drain(t, m, cmd)

		assert.Equal(t, "https://active.test/terms", m.State().Input.URL)
		assert.Equal(t, "https://active.test/terms", m.url.Value())
		assert.Empty(t, m.State().Err)
	})

	t.Run("unavailable keeps input", func(t *testing.T) {
		m := newTestModel(&countingAnalyzer{}, nil)
		m = typeText(t, m, "typed")
		m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
		m = drain(t, m, cmd)

		assert.Equal(t, "typed", m.State().Input.URL)
		assert.Equal(t, session.MessageTabUnavailable, m.State().Err)
		assert.Contains(t, m.View(), "Browser tab query not available")
	})
}

func TestModel_ConfigChangedSwapsClient(t *testing.T) {
	old := &countingAnalyzer{}
	fresh := &countingAnalyzer{res: analyzer.Result{Feedback: "new backend"}}
	m := newTestModel(old, nil)

	m, _ = update(t, m, ConfigChangedMsg{Client: fresh})
	m = typeText(t, m, "https://x.test")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	m = drain(t, m, cmd)

	assert.Equal(t, int32(0), old.calls.Load())
	assert.Equal(t, int32(1), fresh.calls.Load())
	assert.Equal(t, "new backend", m.State().Result.Feedback)
}

func TestModel_ConfigChangedSwapsTabs(t *testing.T) {
	m := newTestModel(&countingAnalyzer{}, nil)

	m, _ = update(t, m, ConfigChangedMsg{Tabs: browser.Static{URL: "https://swapped.test"}})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	m = drain(t, m, cmd)

	assert.Equal(t, "https://swapped.test", m.url.Value())
	assert.Empty(t, m.State().Err)
}

func TestModel_QuitAndResize(t *testing.T) {
	m := newTestModel(nil, nil)

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 80, m.width)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_ViewChrome(t *testing.T) {
	view := newTestModel(nil, nil).View()
	assert.Contains(t, view, "ESECURE Terms Analyzer")
	assert.Contains(t, view, "ESECURE AI")
	assert.True(t, strings.Contains(view, "Analyze"))
}

func TestModel_NilClientFailsAsNetworkError(t *testing.T) {
	m := newTestModel(nil, nil)
	m = typeText(t, m, "https://x.test")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	m = drain(t, m, cmd)
	assert.Equal(t, analyzer.MessageNetwork, m.State().Err)
}
