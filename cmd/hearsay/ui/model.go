package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ExecFunc runs one console line and returns its output. quit ends the
// session.
type ExecFunc func(line string) (out string, quit bool, err error)

// Model is the bubbletea model of the console.
type Model struct {
	exec   ExecFunc
	title  string
	styles Styles

	input    textinput.Model
	viewport viewport.Model
	lines    []string
	history  []string
	histPos  int
	ready    bool
	quitting bool
}

// New creates a console model. title is shown in the header.
func New(title string, exec ExecFunc) Model {
	ti := textinput.New()
	ti.Placeholder = "say something, or help"
	ti.Prompt = "> "
	ti.CharLimit = 1024
	ti.Focus()

	return Model{
		exec:   exec,
		title:  title,
		styles: DefaultStyles(),
		input:  ti,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := msg.Height - 4
		if height < 1 {
			height = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.input.Width = msg.Width - 4
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyUp:
			m.recall(-1)
			return m, nil
		case tea.KeyDown:
			m.recall(1)
			return m, nil
		case tea.KeyEnter:
			if m.submit() {
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// submit runs the input line and reports whether the session should end.
func (m *Model) submit() bool {
	line := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	if line == "" {
		return false
	}
	m.history = append(m.history, line)
	m.histPos = len(m.history)

	out, quit, err := m.exec(line)
	m.lines = append(m.lines, m.styles.Input.Render("> "+line))
	if out != "" {
		m.lines = append(m.lines, m.renderOutput(strings.TrimRight(out, "\n")))
	}
	if err != nil {
		m.lines = append(m.lines, m.styles.Error.Render("error: "+err.Error()))
	}
	m.refresh()
	return quit
}

// renderOutput highlights the speech act line of a parse and flags typo
// fixes and category guesses.
func (m Model) renderOutput(out string) string {
	lines := strings.Split(out, "\n")
	for i, l := range lines {
		if rest, ok := strings.CutPrefix(l, "act:"); ok {
			lines[i] = m.styles.Muted.Render("act:") + m.styles.Act.Render(rest)
			continue
		}
		if strings.HasPrefix(l, "fix:") || strings.HasPrefix(l, "guess:") {
			lines[i] = m.styles.Warn.Render(l)
			continue
		}
		lines[i] = m.styles.Output.Render(l)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) recall(step int) {
	if len(m.history) == 0 {
		return
	}
	m.histPos += step
	if m.histPos < 0 {
		m.histPos = 0
	}
	if m.histPos >= len(m.history) {
		m.histPos = len(m.history)
		m.input.SetValue("")
		return
	}
	m.input.SetValue(m.history[m.histPos])
	m.input.CursorEnd()
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "starting..."
	}
	header := m.styles.Header.Render(m.title)
	footer := m.styles.Footer.Render("enter: run  up/down: history  esc: quit")
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		m.input.View(),
		footer,
	)
}

// Transcript returns everything shown so far.
func (m Model) Transcript() []string {
	return m.lines
}
