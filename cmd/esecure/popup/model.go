// Package popup is the interactive terms analyzer: a URL field, a text
// area, an analyze action and a result or error panel.
package popup

import (
	"context"
	"strings"
	"time"

	"esecure/cmd/esecure/ui"
	"esecure/internal/browser"
	"esecure/internal/logging"
	"esecure/internal/session"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	title       = "ESECURE Terms Analyzer"
	description = "Analyze Terms & Conditions or Privacy Policy for safety and transparency."
	defaultWide = 56
)

type focusArea int

const (
	focusURL focusArea = iota
	focusText
)

// analysisDoneMsg reports that the request started with seq has finished.
type analysisDoneMsg struct {
	seq uint64
}

type tabDoneMsg struct {
	url string
	err error
}

// ConfigChangedMsg swaps the backends used by later actions. Nil fields are
// left as they were.
type ConfigChangedMsg struct {
	Client session.Analyzer
	Tabs   browser.TabQuerier
}

// Options configures a Model.
type Options struct {
	Client     session.Analyzer
	Tabs       browser.TabQuerier
	Styles     ui.Styles
	TabTimeout time.Duration

	// Initial input, e.g. from command line flags.
	URL  string
	Text string
}

// Model is the bubbletea model of the popup.
type Model struct {
	ctx   context.Context
	ctrl  *session.Controller
	state session.State

	tabTimeout time.Duration

	url     textinput.Model
	text    textarea.Model
	spinner spinner.Model
	help    help.Model
	keys    keyMap
	focus   focusArea

	styles   ui.Styles
	renderer ui.Renderer
	width    int
}

// New creates the popup model. ctx bounds every request it issues.
func New(ctx context.Context, opts Options) Model {
	ctrl := session.NewController(opts.Client, opts.Tabs)
	ctrl.SetInput(session.Input{URL: opts.URL, Text: opts.Text})

	ti := textinput.New()
	ti.Placeholder = "Enter or auto-detect website URL..."
	ti.Prompt = ""
	ti.Width = defaultWide - 4
	ti.SetValue(opts.URL)
	ti.Focus()

	ta := textarea.New()
	ta.Placeholder = "Paste terms & conditions here (optional)..."
	ta.ShowLineNumbers = false
	ta.SetWidth(defaultWide - 4)
	ta.SetHeight(6)
	ta.SetValue(opts.Text)
	ta.Blur()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = opts.Styles.Spinner

	return Model{
		ctx:        ctx,
		ctrl:       ctrl,
		state:      ctrl.State(),
		tabTimeout: opts.TabTimeout,
		url:        ti,
		text:       ta,
		spinner:    sp,
		help:       help.New(),
		keys:       defaultKeyMap(),
		styles:     opts.Styles,
		renderer:   ui.NewMarkdownRenderer(opts.Styles.Theme, defaultWide-6),
		width:      defaultWide,
	}
}

// State returns the current view-model snapshot.
func (m Model) State() session.State { return m.state }

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Next), key.Matches(msg, m.keys.Prev):
			return m.toggleFocus(), nil

		case key.Matches(msg, m.keys.UseTab):
			return m, m.fetchTab()

		case key.Matches(msg, m.keys.Analyze):
			return m.submit()

		case msg.Type == tea.KeyEnter && m.focus == focusURL:
			return m.submit()
		}

		// Fields stay editable while loading; only Analyze is disabled.
		var cmd tea.Cmd
		if m.focus == focusURL {
			m.url, cmd = m.url.Update(msg)
		} else {
			m.text, cmd = m.text.Update(msg)
		}
		m.ctrl.SetInput(m.input())
		m.state = m.ctrl.State()
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if m.width > 80 {
			m.width = 80
		}
		m.url.Width = m.width - 8
		m.text.SetWidth(m.width - 8)
		m.help.Width = m.width - 4
		m.renderer = ui.NewMarkdownRenderer(m.styles.Theme, m.width-10)
		return m, nil

	case spinner.TickMsg:
		if !m.state.Loading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case analysisDoneMsg:
		m.state = m.ctrl.State()
		logging.UI("analysis %d finished: %s", msg.seq, m.state.Status)
		return m, nil

	case tabDoneMsg:
		if msg.err == nil {
			m.url.SetValue(msg.url)
		}
		m.state = m.ctrl.State()
		return m, nil

	case ConfigChangedMsg:
		if msg.Client != nil {
			m.ctrl.SetClient(msg.Client)
		}
		if msg.Tabs != nil {
			m.ctrl.SetTabs(msg.Tabs)
		}
		logging.UI("backends updated from config")
		return m, nil
	}

	return m, nil
}

func (m Model) toggleFocus() Model {
	if m.focus == focusURL {
		m.focus = focusText
		m.url.Blur()
		m.text.Focus()
	} else {
		m.focus = focusURL
		m.text.Blur()
		m.url.Focus()
	}
	return m
}

func (m Model) input() session.Input {
	return session.Input{URL: m.url.Value(), Text: m.text.Value()}
}

// submit starts an analysis unless one is running or the input is blank.
func (m Model) submit() (tea.Model, tea.Cmd) {
	m.ctrl.SetInput(m.input())
	st, req, err := m.ctrl.Start()
	m.state = st
	if err != nil {
		logging.UI("submit not started: %v", err)
		return m, nil
	}

	logging.UI("analysis %d submitted (%s)", st.Seq, req.Kind())
	ctx, ctrl, seq := m.ctx, m.ctrl, st.Seq
	run := func() tea.Msg {
		ctrl.Run(ctx, seq, req)
		return analysisDoneMsg{seq: seq}
	}
	return m, tea.Batch(run, m.spinner.Tick)
}

func (m Model) fetchTab() tea.Cmd {
	ctx, ctrl, timeout := m.ctx, m.ctrl, m.tabTimeout
	return func() tea.Msg {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		st, err := ctrl.FetchTab(ctx)
		return tabDoneMsg{url: st.Input.URL, err: err}
	}
}

func (m Model) View() string {
	s := m.styles
	inner := m.width - 4

	var b strings.Builder
	b.WriteString(s.Title.Render(title))
	b.WriteString("\n")

	b.WriteString(m.fieldStyle(focusURL).Width(inner - 2).Render(m.url.View()))
	b.WriteString("\n")
	b.WriteString(s.Hint.Render("ctrl+t: Use Current Tab URL"))
	b.WriteString("\n\n")
	b.WriteString(s.Hint.Render(description))
	b.WriteString("\n")
	b.WriteString(m.fieldStyle(focusText).Width(inner - 2).Render(m.text.View()))
	b.WriteString("\n\n")

	if !m.state.CanSubmit() {
		b.WriteString(s.ButtonBusy.Render(m.spinner.View() + " Analyzing..."))
	} else {
		b.WriteString(s.Button.Render("Analyze"))
	}
	b.WriteString("\n")

	if m.state.Notice != "" {
		b.WriteString("\n")
		b.WriteString(s.Notice.Render(m.state.Notice))
		b.WriteString("\n")
	}

	if panel := ui.RenderPanel(s, m.state, m.renderer); panel != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(inner).Render(panel))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(s.Footer.Width(inner).Align(lipgloss.Center).Render("Powered by " + s.Brand.Render("ESECURE AI")))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return s.Frame.Width(m.width).Render(b.String())
}

func (m Model) fieldStyle(area focusArea) lipgloss.Style {
	if m.focus == area {
		return m.styles.FieldFocused
	}
	return m.styles.Field
}
