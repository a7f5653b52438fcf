package ui

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/five82/slip/internal/adviceslip"
	"github.com/five82/slip/internal/state"
)

const defaultRefresh = 50 * time.Millisecond

// Controller is what the UI needs from the application core.
type Controller interface {
	Snapshot() state.Snapshot
	Load(ctx context.Context) error
	RequestNewAdvice(ctx context.Context) error
	ShowAdvice(ctx context.Context, id int) error
	Retry(ctx context.Context) error
}

// Options configures the UI.
type Options struct {
	Context    context.Context
	Controller Controller
	ThemeName  string
	Refresh    time.Duration // snapshot polling interval
	Logger     *zap.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx     context.Context
	ctl     Controller
	logger  *zap.Logger
	refresh time.Duration

	// UI state
	theme   Theme
	keys    keyMap
	help    help.Model
	spinner spinner.Model
	idInput textinput.Model
	width   int
	height  int

	// Data state
	snapshot state.Snapshot

	busy      bool // an action started from the UI has not returned yet
	prompting bool
	showHelp  bool
	notice    string
}

// New creates a new Bubble Tea model. The first load starts in Init.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	refresh := opts.Refresh
	if refresh <= 0 {
		refresh = defaultRefresh
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	input := textinput.New()
	input.Placeholder = "advice id"
	input.Prompt = "# "
	input.CharLimit = 9
	input.Width = 12

	return Model{
		ctx:      ctx,
		ctl:      opts.Controller,
		logger:   logger,
		refresh:  refresh,
		theme:    GetTheme(opts.ThemeName),
		keys:     DefaultKeyMap(),
		help:     help.New(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		idInput:  input,
		busy:     opts.Controller != nil,
		snapshot: state.Snapshot{Current: adviceslip.Placeholder, Phase: state.PhaseLoading},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(m.refresh),
		m.spinner.Tick,
	}
	if m.ctl != nil {
		cmds = append(cmds,
			fetchSnapshotCmd(m.ctl),
			m.actionCmd("load", m.ctl.Load),
		)
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		var cmds []tea.Cmd
		if m.ctl != nil {
			cmds = append(cmds, fetchSnapshotCmd(m.ctl))
		}
		cmds = append(cmds, tickCmd(m.refresh))
		return m, tea.Batch(cmds...)

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		return m, nil

	case actionDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.logger.Debug("action failed", zap.String("action", msg.action), zap.Error(msg.err))
		}
		if m.ctl != nil {
			return m, fetchSnapshotCmd(m.ctl)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.prompting {
		return m.handlePromptKey(msg)
	}

	// Help overlay: quit still works, any other key closes it
	if m.showHelp && !key.Matches(msg, m.keys.Quit) {
		m.showHelp = false
		m.help.ShowAll = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		m.help.ShowAll = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		return m, nil

	case key.Matches(msg, m.keys.NewAdvice):
		if m.locked() {
			return m, nil
		}
		m.notice = ""
		m.busy = true
		return m, m.actionCmd("new", m.ctl.RequestNewAdvice)

	case key.Matches(msg, m.keys.Retry):
		if m.locked() || m.snapshot.Phase != state.PhaseFailed {
			return m, nil
		}
		m.notice = ""
		m.busy = true
		return m, m.actionCmd("retry", m.ctl.Retry)

	case key.Matches(msg, m.keys.JumpToID):
		if m.ctl == nil {
			return m, nil
		}
		m.prompting = true
		m.notice = ""
		m.idInput.SetValue("")
		return m, m.idInput.Focus()
	}

	return m, nil
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.prompting = false
		m.idInput.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		m.prompting = false
		m.idInput.Blur()
		id, err := parseAdviceID(m.idInput.Value())
		if err != nil {
			m.notice = err.Error()
			return m, nil
		}
		if m.locked() {
			return m, nil
		}
		m.notice = ""
		m.busy = true
		return m, m.actionCmd("show", func(ctx context.Context) error {
			return m.ctl.ShowAdvice(ctx, id)
		})
	}

	var cmd tea.Cmd
	m.idInput, cmd = m.idInput.Update(msg)
	return m, cmd
}

// locked reports whether a new action must wait, like the disabled dice
// button while advice is changing.
func (m Model) locked() bool {
	return m.ctl == nil || m.busy || m.snapshot.IsAnimating
}

type adviceIDError string

func (e adviceIDError) Error() string { return string(e) }

func parseAdviceID(raw string) (int, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "#")
	if raw == "" {
		return 0, adviceIDError("enter an advice id")
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id < 0 {
		return 0, adviceIDError("advice ids are non-negative numbers")
	}
	return id, nil
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type actionDoneMsg struct {
	action string
	err    error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(ctl Controller) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(ctl.Snapshot())
	}
}

func (m Model) actionCmd(name string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{action: name, err: fn(ctx)}
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or the
// context is cancelled.
func Run(opts Options) error {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(opts.Context))
	_, err := p.Run()
	if err != nil && opts.Context.Err() != nil {
		return nil
	}
	return err
}
