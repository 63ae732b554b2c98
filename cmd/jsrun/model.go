package main

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/multierr"
)

// Styling mirrors the engine's own interactive runner: a colored title
// banner, green for successful results, red for errors, dim help text.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// entry is one evaluated line's echo plus result, kept around so the
// scrollback shows the session's full history rather than just the latest
// result.
type entry struct {
	input  string
	output string
	isErr  bool
}

// replModel is the REPL's bubbletea model: a single input line and a
// growing scrollback of entries, evaluated against one long-lived session
// (see session for what carries over from one line to the next).
type replModel struct {
	sess    *session
	input   textinput.Model
	history []entry
	quitting bool
}

func newReplModel() *replModel {
	ti := textinput.New()
	ti.Placeholder = "1 + 1"
	ti.Prompt = "> "
	ti.Focus()
	ti.Width = 72
	return &replModel{
		sess:  newSession(),
		input: ti,
	}
}

func (m *replModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			if line == ":quit" || line == ":q" {
				m.quitting = true
				return m, tea.Quit
			}
			m.runLine(line)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// runLine dispatches a line of REPL input: ":bytecode <src>" disassembles
// without running, ":step <src>" runs with a live register/stack trace,
// anything else is evaluated as a script against the session's runtime.
func (m *replModel) runLine(line string) {
	switch {
	case strings.HasPrefix(line, ":bytecode "):
		src := strings.TrimPrefix(line, ":bytecode ")
		out, err := m.sess.disassemble(src)
		m.record(line, out, err)

	case strings.HasPrefix(line, ":step "):
		src := strings.TrimPrefix(line, ":step ")
		out, result, err := m.sess.trace(src)
		if err == nil {
			out += "=> " + m.sess.format(result)
		}
		m.record(line, out, err)

	default:
		v, err := m.sess.eval(line)
		if err != nil {
			m.record(line, "", err)
			return
		}
		m.record(line, m.sess.format(v), nil)
	}
}

func (m *replModel) record(input, output string, err error) {
	e := entry{input: input, output: output}
	if err != nil {
		e.output = err.Error()
		e.isErr = true
	}
	m.history = append(m.history, e)
}

func (m *replModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("jsrun"))
	b.WriteString(" interactive bytecode REPL\n\n")

	for _, e := range m.history {
		b.WriteString(promptStyle.Render("> " + e.input))
		b.WriteString("\n")
		if e.isErr {
			b.WriteString(errorStyle.Render(e.output))
		} else {
			b.WriteString(resultStyle.Render(e.output))
		}
		b.WriteString("\n")
	}

	if m.quitting {
		return b.String()
	}

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render(":bytecode <src> disassemble • :step <src> trace • :quit exit"))
	return b.String()
}

func runInteractive() error {
	m := newReplModel()
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, runErr := p.Run()
	return multierr.Combine(runErr, closeSession(m.sess))
}
