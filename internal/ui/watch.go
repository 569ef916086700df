package ui

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/Mohsinsiddi/launchpad/internal/launchpad"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// maxWatchEvents caps the journal tail shown under the project.
const maxWatchEvents = 8

// ProjectSnapshot is one poll of a watched project.
type ProjectSnapshot struct {
	Project *launchpad.Project
	Custody *big.Int
	Events  []launchpad.Event
	At      time.Time
}

// WatchErrMsg reports a failed poll. The model keeps its last snapshot.
type WatchErrMsg struct{ Err error }

type watchPollMsg struct{}

// Fetcher loads a fresh snapshot.
type Fetcher func() (ProjectSnapshot, error)

// WatchKeyMap binds the watch view's controls.
type WatchKeyMap struct {
	Refresh key.Binding
	Quit    key.Binding
}

func (k WatchKeyMap) ShortHelp() []key.Binding { return []key.Binding{k.Refresh, k.Quit} }

func (k WatchKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

var _ help.KeyMap = WatchKeyMap{}

// DefaultWatchKeyMap is r to refresh and q, esc or ctrl+c to quit.
func DefaultWatchKeyMap() WatchKeyMap {
	return WatchKeyMap{
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// WatchModel is the Bubble Tea model for the live project view.
type WatchModel struct {
	ProjectID uint64
	Interval  time.Duration
	KeyMap    WatchKeyMap

	fetch    Fetcher
	spinner  spinner.Model
	help     help.Model
	snap     *ProjectSnapshot
	err      error
	fetching bool
	quitting bool
}

// NewWatchModel builds a model that polls fetch every interval.
func NewWatchModel(id uint64, interval time.Duration, fetch Fetcher) WatchModel {
	return WatchModel{
		ProjectID: id,
		Interval:  interval,
		KeyMap:    DefaultWatchKeyMap(),
		fetch:     fetch,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(StyleAccent)),
		help:      help.New(),
		fetching:  true,
	}
}

func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load())
}

// load runs the fetcher off the UI loop.
func (m WatchModel) load() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		snap, err := fetch()
		if err != nil {
			return WatchErrMsg{Err: err}
		}
		return snap
	}
}

func (m WatchModel) schedule() tea.Cmd {
	return tea.Tick(m.Interval, func(time.Time) tea.Msg { return watchPollMsg{} })
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.KeyMap.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.KeyMap.Refresh) && !m.fetching:
			m.fetching = true
			return m, m.load()
		}

	case watchPollMsg:
		if m.fetching {
			return m, nil
		}
		m.fetching = true
		return m, m.load()

	case ProjectSnapshot:
		m.snap = &msg
		m.err = nil
		m.fetching = false
		return m, m.schedule()

	case WatchErrMsg:
		m.err = msg.Err
		m.fetching = false
		return m, m.schedule()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m WatchModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(StyleTitle.Render(fmt.Sprintf("Project #%d  ·  live", m.ProjectID)) + "\n")

	switch {
	case m.err != nil:
		sb.WriteString(Err(m.err.Error()) + "\n\n")
	case m.fetching:
		sb.WriteString(m.spinner.View() + StyleMeta.Render(" refreshing…") + "\n\n")
	case m.snap != nil:
		sb.WriteString(Meta("  updated "+m.snap.At.UTC().Format(time.TimeOnly)) + "\n\n")
	}

	if m.snap == nil {
		sb.WriteString(Meta("  waiting for first snapshot…") + "\n")
		return sb.String()
	}

	p := m.snap.Project
	sb.WriteString(ProjectBlock(p, m.snap.At, m.snap.Custody) + "\n")
	sb.WriteString(progressBar(p.TotalRaised, p.MaxCap, 40) + "\n\n")

	events := m.snap.Events
	if len(events) > maxWatchEvents {
		events = events[:maxWatchEvents]
	}
	if len(events) > 0 {
		sb.WriteString(EventTable(events))
	}
	sb.WriteString("\n" + m.help.View(m.KeyMap) + "\n")
	return sb.String()
}

// progressBar draws raised against cap.
func progressBar(raised, maxCap *big.Int, width int) string {
	filled := 0
	if maxCap.Sign() > 0 {
		n := new(big.Int).Mul(raised, big.NewInt(int64(width)))
		filled = int(n.Quo(n, maxCap).Int64())
	}
	filled = min(max(filled, 0), width)
	bar := StyleSuccess.Render(strings.Repeat("█", filled)) + StyleMeta.Render(strings.Repeat("░", width-filled))
	return "  " + padR(bar, width) + " " + Val(raised.String()) + Meta(" / "+maxCap.String())
}
