// Package terminal runs a script as a full-screen terminal UI built on
// Bubble Tea. The runner is stepped on a timer; key presses advance dialogue
// and pick choices.
package terminal

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zurustar/vnscript/pkg/runner"
	"github.com/zurustar/vnscript/pkg/stage"
)

// TickInterval is how often the runner is stepped.
const TickInterval = 16 * time.Millisecond

// maxSteps bounds the runner steps taken per tick.
const maxSteps = 64

// maxTranscript is the number of output lines kept for display.
const maxTranscript = 500

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("24")).Padding(0, 1)
	speakerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("222"))
	cueStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	choiceStyle   = lipgloss.NewStyle().PaddingLeft(2)
	selectedStyle = lipgloss.NewStyle().PaddingLeft(2).Bold(true).Foreground(lipgloss.Color("226"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type tickMsg time.Time

// Model is the Bubble Tea model of a running script.
type Model struct {
	runner     *runner.Runner
	stage      *stage.Stage
	title      string
	timeout    time.Duration
	started    time.Time
	selected   int
	width      int
	height     int
	transcript []string
	timedOut   bool
	quitting   bool
}

// Option is a functional option for configuring the Model.
type Option func(*Model)

// WithTimeout quits after d. Zero disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(m *Model) {
		m.timeout = d
	}
}

// WithTitle sets the header text.
func WithTitle(title string) Option {
	return func(m *Model) {
		m.title = title
	}
}

// NewModel Modelを作成
func NewModel(r *runner.Runner, st *stage.Stage, opts ...Option) Model {
	m := Model{
		runner:  r,
		stage:   st,
		title:   "vnscript",
		started: time.Now(),
		height:  24,
		width:   80,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func tick() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		if m.timeout > 0 && time.Since(m.started) >= m.timeout {
			m.timedOut = true
			m.quitting = true
			return m, tea.Quit
		}
		m.step()
		return m, tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// step はランナーを入力待ちまで進め、ステージの変化を記録する
func (m *Model) step() {
	for i := 0; i < maxSteps && !m.runner.Suspended() && !m.runner.Finished(); i++ {
		m.runner.Step()
	}
	for _, e := range m.stage.Drain() {
		switch e.Kind {
		case stage.EventChoices:
			continue
		case stage.EventLine:
			m.appendLine(renderLine(e.Line))
		default:
			m.appendLine(cueStyle.Render(e.String()))
		}
	}
}

func (m *Model) appendLine(s string) {
	m.transcript = append(m.transcript, s)
	if len(m.transcript) > maxTranscript {
		m.transcript = m.transcript[len(m.transcript)-maxTranscript:]
	}
}

func renderLine(l stage.Line) string {
	if l.Speaker == "" {
		return l.Text
	}
	return speakerStyle.Render(l.Speaker) + "  " + l.Text
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c", "esc", "q":
		m.quitting = true
		return m, tea.Quit
	}

	choices := m.runner.PendingChoices()
	if len(choices) == 0 {
		switch key {
		case "enter", " ", "space":
			m.runner.Advance()
			m.step()
		}
		return m, nil
	}

	switch key {
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(choices)-1 {
			m.selected++
		}
	case "enter", " ", "space":
		m.choose(m.selected)
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			if i := int(key[0] - '1'); i < len(choices) {
				m.choose(i)
			}
		}
	}
	return m, nil
}

// choose は選択肢を確定する
func (m *Model) choose(index int) {
	choices := m.runner.PendingChoices()
	if err := m.runner.SelectChoice(index); err != nil {
		m.appendLine(errStyle.Render(err.Error()))
	} else {
		m.appendLine(cueStyle.Render("> " + choices[index].Text))
	}
	m.stage.ClearChoices()
	m.selected = 0
	m.step()
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	header := titleStyle.Render(m.title)
	var footer []string
	for i, c := range m.runner.PendingChoices() {
		label := fmt.Sprintf("%d. %s", i+1, c.Text)
		if i == m.selected {
			footer = append(footer, selectedStyle.Render("> "+label))
		} else {
			footer = append(footer, choiceStyle.Render("  "+label))
		}
	}
	footer = append(footer, statusStyle.Render(m.status()))

	// 残りの高さにトランスクリプトの末尾を表示する
	room := m.height - 1 - len(footer)
	if room < 1 {
		room = 1
	}
	body := m.transcript
	if len(body) > room {
		body = body[len(body)-room:]
	}

	parts := []string{header}
	parts = append(parts, body...)
	for i := len(body); i < room; i++ {
		parts = append(parts, "")
	}
	parts = append(parts, footer...)
	return strings.Join(parts, "\n")
}

func (m Model) status() string {
	switch m.runner.State() {
	case runner.StateAwaitingAdvance:
		return "enter: next  q: quit"
	case runner.StateAwaitingChoice:
		return "1-9/up/down/enter: choose  q: quit"
	case runner.StateFinished:
		return "[end]  q: quit"
	default:
		return "running"
	}
}

// TimedOut reports whether the model quit because of the timeout.
func (m Model) TimedOut() bool {
	return m.timedOut
}

// Run starts the terminal UI and blocks until the user quits.
func Run(m Model, opts ...tea.ProgramOption) (Model, error) {
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		return m, fmt.Errorf("tui: %w", err)
	}
	return final.(Model), nil
}
