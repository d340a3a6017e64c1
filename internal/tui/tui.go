// Package tui provides the Bubble Tea presentation layer for kbchat. It only
// reads controller snapshots and emits user intents; all conversation state
// lives behind the controller.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"kbchat/internal/chat"
	"kbchat/internal/config"
	"kbchat/internal/controller"
	"kbchat/internal/export"
	"kbchat/internal/stream"
)

// ── Styles ────────────

var (
	// Title bar at the very top
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	// Sidebar
	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)

	activeSessionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("62")).
				Padding(0, 1)

	sessionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	// Transcript
	userLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33"))

	assistantLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("86"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	flashStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))
)

const sidebarWidth = 26

// ── Messages ────────────

// streamEventMsg carries one transport event into the update loop; ok is
// false once the stream channel closes.
type streamEventMsg struct {
	ev stream.Event
	ok bool
}

// configMsg carries a reloaded configuration.
type configMsg config.Config

// ── Model ────────────

// Model is the root Bubble Tea model for the chat client.
type Model struct {
	ctrl *controller.Controller
	cfg  config.Config
	log  *zap.Logger

	// events is the in-flight stream channel; nil while idle.
	events <-chan stream.Event
	// reloads delivers config snapshots from the fsnotify watcher; may be nil.
	reloads <-chan config.Config

	input      textarea.Model
	transcript viewport.Model
	spin       spinner.Model

	width  int
	height int
	ready  bool
	flash  string // transient status message (e.g. export result)
}

// New creates the TUI model around an already-constructed controller.
func New(ctrl *controller.Controller, cfg config.Config, reloads <-chan config.Config, log *zap.Logger) Model {
	if log == nil {
		log = zap.NewNop()
	}

	input := textarea.New()
	input.Placeholder = "Ask the knowledge base…"
	input.Prompt = "┃ "
	input.SetHeight(3)
	input.ShowLineNumbers = false
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return Model{
		ctrl:    ctrl,
		cfg:     cfg,
		log:     log,
		reloads: reloads,
		input:   input,
		spin:    spin,
	}
}

// ── Bubble Tea interface ────────────

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink}
	if m.reloads != nil {
		cmds = append(cmds, listenConfig(m.reloads))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.updateKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		m.refreshTranscript()
		return m, nil

	case streamEventMsg:
		if !msg.ok {
			// Channel closed: the terminal event was already applied.
			m.events = nil
			return m, nil
		}
		m.ctrl.Apply(msg.ev)
		m.refreshTranscript()
		return m, listenStream(m.events)

	case configMsg:
		m.cfg = config.Config(msg)
		m.ctrl.SetOpener(stream.NewClient(m.cfg.APIBase, m.cfg.Timeout(), m.log))
		m.flash = "config reloaded"
		m.log.Info("config reloaded", zap.String("api_base", m.cfg.APIBase))
		return m, listenConfig(m.reloads)

	case spinner.TickMsg:
		if !m.ctrl.Snapshot().Streaming {
			return m, nil // stop ticking once the stream settles
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.flash = ""

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "enter":
		return m.send()

	case "ctrl+n":
		m.ctrl.NewSession()
		m.refreshTranscript()
		return m, nil

	case "ctrl+x":
		m.ctrl.DeleteSession(m.ctrl.Snapshot().ActiveID)
		m.refreshTranscript()
		return m, nil

	case "ctrl+p", "ctrl+o":
		m.switchRelative(msg.String() == "ctrl+o")
		m.refreshTranscript()
		return m, nil

	case "ctrl+e":
		path, err := export.Write(m.ctrl.Snapshot().Active, "markdown", ".")
		if err != nil {
			m.flash = "export failed: " + err.Error()
		} else {
			m.flash = "exported " + path
		}
		return m, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// send forwards the composed text to the controller and starts listening for
// stream events. Rejected sends (blank text, stream already in flight) leave
// everything untouched.
func (m Model) send() (tea.Model, tea.Cmd) {
	events, ok := m.ctrl.Send(context.Background(), m.input.Value())
	if !ok {
		return m, nil
	}
	m.events = events
	m.input.Reset()
	m.refreshTranscript()
	return m, tea.Batch(listenStream(events), m.spin.Tick)
}

// switchRelative moves the active session to its neighbour in the list.
func (m *Model) switchRelative(next bool) {
	snap := m.ctrl.Snapshot()
	idx := 0
	for i, s := range snap.Sessions {
		if s.ID == snap.ActiveID {
			idx = i
			break
		}
	}
	if next {
		idx = (idx + 1) % len(snap.Sessions)
	} else {
		idx = (idx - 1 + len(snap.Sessions)) % len(snap.Sessions)
	}
	m.ctrl.SwitchSession(snap.Sessions[idx].ID)
}

// ── Commands ────────────

func listenStream(ch <-chan stream.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		return streamEventMsg{ev: ev, ok: ok}
	}
}

func listenConfig(ch <-chan config.Config) tea.Cmd {
	return func() tea.Msg {
		return configMsg(<-ch)
	}
}

// ── View ────────────

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render("  kbchat  " + m.cfg.APIBase)

	sidebar := m.renderSidebar()
	main := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, m.transcript.View())

	statusBar := m.renderStatusBar()

	return lipgloss.JoinVertical(lipgloss.Left, title, main, m.input.View(), statusBar)
}

// layout resizes the widgets for the current terminal dimensions.
// title(1) + input(3) + statusBar(1) = 5 fixed rows.
func (m *Model) layout() {
	mainHeight := m.height - 5
	if mainHeight < 1 {
		mainHeight = 1
	}
	m.transcript = viewport.New(m.width-sidebarWidth, mainHeight)
	m.input.SetWidth(m.width - 2)
}

func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}
	m.transcript.SetContent(m.renderTranscript())
	m.transcript.GotoBottom()
}

func (m Model) renderSidebar() string {
	snap := m.ctrl.Snapshot()
	var sb strings.Builder

	sb.WriteString(dimStyle.Render(" sessions") + "\n\n")
	for _, s := range snap.Sessions {
		label := truncate(s.Title, sidebarWidth-6)
		if s.ID == snap.ActiveID {
			sb.WriteString(activeSessionStyle.Render("▸ "+label) + "\n")
		} else {
			sb.WriteString(sessionStyle.Render("  "+label) + "\n")
		}
	}

	mainHeight := m.height - 5
	if mainHeight < 1 {
		mainHeight = 1
	}
	return sidebarStyle.Width(sidebarWidth - 2).Height(mainHeight).Render(sb.String())
}

func (m Model) renderTranscript() string {
	snap := m.ctrl.Snapshot()
	if len(snap.Active.Messages) == 0 {
		return dimStyle.Render("\n  Start the conversation — enter sends, ctrl+n opens a new session.")
	}

	width := m.width - sidebarWidth - 2
	if width < 10 {
		width = 10
	}
	wrap := lipgloss.NewStyle().Width(width).PaddingLeft(2)

	var sb strings.Builder
	for i, msg := range snap.Active.Messages {
		label := userLabelStyle.Render("You")
		if msg.Role == chat.RoleAssistant {
			label = assistantLabelStyle.Render("Assistant")
		}
		ts := timeStyle.Render(msg.CreatedAt.Format("15:04:05"))
		sb.WriteString(fmt.Sprintf("  %s  %s\n", label, ts))

		content := msg.Content
		if snap.Streaming && i == len(snap.Active.Messages)-1 && msg.Role == chat.RoleAssistant {
			content += cursorStyle.Render("▌")
		}
		if content == "" {
			content = dimStyle.Render("…")
		}
		sb.WriteString(wrap.Render(content) + "\n\n")
	}
	return sb.String()
}

func (m Model) renderStatusBar() string {
	hint := "  enter send  ctrl+n new  ctrl+p/o switch  ctrl+x delete  ctrl+e export  ctrl+c quit"
	left := hint
	if m.flash != "" {
		left = "  " + flashStyle.Render(m.flash)
	}

	right := ""
	if m.ctrl.Snapshot().Streaming {
		right = m.spin.View() + " streaming"
	}

	pad := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if pad < 1 {
		pad = 1
	}
	return statusBarStyle.Width(m.width).Render(left + strings.Repeat(" ", pad) + right)
}

// ── Helpers ────────────

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}

// Run starts the TUI.
func Run(ctrl *controller.Controller, cfg config.Config, reloads <-chan config.Config, log *zap.Logger) error {
	p := tea.NewProgram(New(ctrl, cfg, reloads, log), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
