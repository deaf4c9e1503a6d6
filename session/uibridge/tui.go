package uibridge

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"netplay-adapter/protocol"
)

var tuiTitleStyle = lipgloss.NewStyle().Bold(true)

type tuiModel struct {
	cfg        protocol.NetplayConfig
	haveConfig bool
	status     string
	quit       bool
	bridge     *Bridge
	spin       spinner.Model
}

func newTuiModel() tuiModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return tuiModel{spin: s}
}

func (m tuiModel) Init() tea.Cmd {
	return m.spin.Tick
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tuiStatusMsg:
		m.status = string(msg)
		return m, nil
	case tuiConfigMsg:
		m.cfg = msg.cfg
		m.haveConfig = true
		return m, nil
	case tea.KeyMsg:
		if !m.haveConfig {
			return m, nil
		}
		switch msg.String() {
		case "enter", "y":
			if m.bridge != nil {
				m.bridge.Confirm()
			}
			m.quit = true
			return m, tea.Quit
		case "esc", "n", "q", "ctrl+c":
			if m.bridge != nil {
				m.bridge.Reject()
			}
			m.quit = true
			return m, tea.Quit
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
}

func (m tuiModel) View() string {
	if m.quit {
		return ""
	}
	if !m.haveConfig {
		return fmt.Sprintf("%s %s\n", m.spin.View(), m.status)
	}
	return fmt.Sprintf(
		"%s\n\nSession %s — delay=%d rollback=%d\nNames: %s vs %s\n\n%s\n\n[enter/y] accept   [esc/n] decline\n",
		tuiTitleStyle.Render("Netplay session"),
		m.cfg.SessionID, m.cfg.Delay, m.cfg.Rollback,
		m.cfg.Names[0], m.cfg.Names[1],
		m.status,
	)
}

type tuiStatusMsg string
type tuiConfigMsg struct{ cfg protocol.NetplayConfig }

// Tui renders the confirmation prompt as a bubbletea full-screen program.
type Tui struct {
	bridge  *Bridge
	program *tea.Program
}

func NewTui() *Tui {
	return &Tui{}
}

func (t *Tui) Bind(bridge *Bridge) { t.bridge = bridge }

// ensureProgram starts the bubbletea program on whichever of ShowState or
// ShowConfig is called first — the handshake reports states (spinner-only
// screen) well before it has a config to show confirmation for.
func (t *Tui) ensureProgram() {
	if t.program != nil {
		return
	}
	model := newTuiModel()
	model.bridge = t.bridge
	t.program = tea.NewProgram(model, tea.WithAltScreen())
	go func() { _, _ = t.program.Run() }()
}

func (t *Tui) ShowConfig(cfg protocol.NetplayConfig) {
	t.ensureProgram()
	t.program.Send(tuiConfigMsg{cfg: cfg})
}

func (t *Tui) ShowState(status string) {
	t.ensureProgram()
	t.program.Send(tuiStatusMsg(status))
}

func (t *Tui) Close() {
	if t.program != nil {
		t.program.Quit()
	}
}
