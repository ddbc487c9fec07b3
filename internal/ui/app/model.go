package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	sessiondto "pomo/internal/modules/session/dto"
	"pomo/internal/ui/components"
	"pomo/internal/ui/theme"
)

const (
	pollInterval = time.Second
	barWidth     = 32
)

type sessionPort interface {
	Status(ctx context.Context, sessionID string) (sessiondto.StatusOutput, error)
	Start(ctx context.Context, sessionID string) (sessiondto.SessionOutput, error)
	Pause(ctx context.Context, sessionID string) (sessiondto.SessionOutput, error)
	Resume(ctx context.Context, sessionID string) (sessiondto.SessionOutput, error)
	Stop(ctx context.Context, sessionID string) (sessiondto.SessionOutput, error)
	SwitchPeriod(ctx context.Context, sessionID string) (sessiondto.SessionOutput, error)
	SwitchIfExpired(ctx context.Context, sessionID string) (sessiondto.SwitchOutput, error)
}

// hints must stay in sync with the switch in executePalette.
var paletteHints = []string{"start", "pause", "resume", "stop", "switch"}

type tickMsg time.Time

type statusMsg struct {
	status sessiondto.StatusOutput
	err    error
}

type actionMsg struct {
	action string
	err    error
}

type keyMap struct {
	Toggle  key.Binding
	Switch  key.Binding
	Start   key.Binding
	Stop    key.Binding
	Help    key.Binding
	Palette key.Binding
	Quit    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Toggle:  key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "pause/resume")),
		Switch:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next period")),
		Start:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start")),
		Stop:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Palette: key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "palette")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Switch, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Switch},
		{k.Start, k.Stop},
		{k.Help, k.Palette, k.Quit},
	}
}

// Model is a countdown view over one session. It polls status every second
// and requests a period switch as soon as a running period reaches zero.
type Model struct {
	session   sessionPort
	sessionID string

	status    sessiondto.StatusOutput
	loaded    bool
	switching bool

	keys     keyMap
	help     help.Model
	showHelp bool
	palette  components.Palette
	message  string
	failed   bool
	width    int
	height   int
}

func NewModel(session sessionPort, sessionID string) Model {
	return Model{
		session:   session,
		sessionID: sessionID,
		keys:      defaultKeys(),
		help:      help.New(),
		palette:   components.NewPalette(paletteHints),
		message:   "ready",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchStatusCmd(), tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.palette.Visible() {
		var cmd tea.Cmd
		m.palette, cmd = m.palette.Update(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.palette.SetWidth(min(m.width-4, 60))
		m.help.Width = m.width

	case tickMsg:
		return m, tea.Batch(m.fetchStatusCmd(), tick())

	case statusMsg:
		if msg.err != nil {
			m.message, m.failed = "status: "+msg.err.Error(), true
			return m, nil
		}
		m.status = msg.status
		m.loaded = true
		if m.status.Expired() && !m.switching {
			m.switching = true
			return m, m.autoSwitchCmd()
		}

	case actionMsg:
		if msg.action == "switch" {
			m.switching = false
		}
		if msg.err != nil {
			m.message, m.failed = msg.action+" failed: "+msg.err.Error(), true
		} else {
			m.message, m.failed = msg.action+" ok", false
		}
		return m, m.fetchStatusCmd()

	case components.PaletteSubmitMsg:
		return m.executePalette(msg.Input)

	case components.PaletteCancelMsg:
		m.message = "ready"

	case tea.KeyMsg:
		if m.showHelp {
			if msg.String() == "?" || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.showHelp = true
		case key.Matches(msg, m.keys.Palette):
			return m, m.palette.Open()
		case key.Matches(msg, m.keys.Toggle):
			if m.status.Paused {
				return m, m.actionCmd("resume", m.session.Resume)
			}
			return m, m.actionCmd("pause", m.session.Pause)
		case key.Matches(msg, m.keys.Switch):
			return m, m.actionCmd("switch", m.session.SwitchPeriod)
		case key.Matches(msg, m.keys.Start):
			return m, m.actionCmd("start", m.session.Start)
		case key.Matches(msg, m.keys.Stop):
			return m, m.actionCmd("stop", m.session.Stop)
		}
	}
	return m, nil
}

func (m Model) executePalette(input string) (tea.Model, tea.Cmd) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "":
		return m, nil
	case "start":
		return m, m.actionCmd("start", m.session.Start)
	case "pause":
		return m, m.actionCmd("pause", m.session.Pause)
	case "resume":
		return m, m.actionCmd("resume", m.session.Resume)
	case "stop":
		return m, m.actionCmd("stop", m.session.Stop)
	case "switch":
		return m, m.actionCmd("switch", m.session.SwitchPeriod)
	default:
		m.message = "unknown command: " + input
		return m, nil
	}
}

func (m Model) View() string {
	statusBar := m.renderStatusBar()
	contentH := m.height - lipgloss.Height(statusBar)
	if contentH < 1 {
		contentH = 1
	}

	var content string
	switch {
	case m.showHelp:
		content = lipgloss.NewStyle().Width(m.width).Height(contentH).Render(m.help.View(m.keys))
	case m.palette.Visible():
		content = lipgloss.Place(m.width, contentH, lipgloss.Center, lipgloss.Center, m.palette.View())
	default:
		content = lipgloss.Place(m.width, contentH, lipgloss.Center, lipgloss.Center, m.renderTimer())
	}
	return lipgloss.JoinVertical(lipgloss.Left, content, statusBar)
}

func (m Model) renderTimer() string {
	if !m.loaded {
		return theme.Muted.Render("loading " + m.sessionID + "…")
	}
	s := m.status
	color := theme.PeriodColor(s.PeriodType)
	lines := []string{
		theme.Title.Render(strings.ToUpper(s.PeriodType)) + "  " + theme.Muted.Render(stateLabel(s)),
		"",
		lipgloss.NewStyle().Foreground(color).Bold(true).Render(FormatRemaining(s.TimeRemainingSeconds)),
		"",
		renderBar(elapsedFraction(s), color),
		"",
		theme.Muted.Render(fmt.Sprintf("%d focus periods done  ·  %dm focus / %dm rest", s.CompletedFocusPeriods, s.FocusMinutes, s.RestMinutes)),
	}
	return theme.Pane.Render(lipgloss.JoinVertical(lipgloss.Center, lines...))
}

func (m Model) renderStatusBar() string {
	message := m.message
	if m.failed {
		message = theme.Error.Render(message)
	}
	left := theme.Hot.Render("● "+m.sessionID) + "  " + message
	right := theme.Muted.Render("space:pause  n:next  ?:help  q:quit")
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	bar := left + strings.Repeat(" ", gap) + right
	return "\n" + lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar)
}

func (m Model) fetchStatusCmd() tea.Cmd {
	return func() tea.Msg {
		status, err := m.session.Status(context.Background(), m.sessionID)
		return statusMsg{status: status, err: err}
	}
}

func (m Model) actionCmd(action string, call func(context.Context, string) (sessiondto.SessionOutput, error)) tea.Cmd {
	return func() tea.Msg {
		_, err := call(context.Background(), m.sessionID)
		return actionMsg{action: action, err: err}
	}
}

// autoSwitchCmd leaves the decision to the server, which may already have
// advanced the period.
func (m Model) autoSwitchCmd() tea.Cmd {
	return func() tea.Msg {
		_, err := m.session.SwitchIfExpired(context.Background(), m.sessionID)
		return actionMsg{action: "switch", err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// FormatRemaining renders seconds as MM:SS, or H:MM:SS from one hour up.
func FormatRemaining(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func stateLabel(s sessiondto.StatusOutput) string {
	switch {
	case !s.Active:
		return "stopped"
	case s.Paused:
		return "paused"
	default:
		return "running"
	}
}

func elapsedFraction(s sessiondto.StatusOutput) float64 {
	minutes := s.FocusMinutes
	if s.PeriodType == "rest" {
		minutes = s.RestMinutes
	}
	total := float64(minutes) * 60
	if total <= 0 {
		return 0
	}
	f := 1 - float64(s.TimeRemainingSeconds)/total
	return max(0, min(1, f))
}

func renderBar(fraction float64, color lipgloss.Color) string {
	filled := int(fraction * barWidth)
	return lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		theme.Muted.Render(strings.Repeat("░", barWidth-filled))
}
