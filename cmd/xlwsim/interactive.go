package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/davidclayton/xlw/host"
)

var (
	bannerStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("#1D1D1D")).
			Background(lipgloss.Color("#21A366")).
			Padding(0, 1)
	nameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#21A366"))
	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F2C811"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7F7F7F"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E81123"))
)

type screen int

const (
	screenFunctions screen = iota
	screenArguments
	screenResult
)

// simModel is the bubbletea model: pick a registered function, type its
// arguments, see the result grid.
type simModel struct {
	sim    *simulator
	regs   []host.Registration
	cursor int
	screen screen

	fields []textinput.Model
	field  int

	res    callResult
	resErr error
}

type resultMsg struct {
	res callResult
	err error
}

func (m *simModel) Init() tea.Cmd { return nil }

func (m *simModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resultMsg:
		m.res, m.resErr = msg.res, msg.err
		m.screen = screenResult
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.screen {
		case screenFunctions:
			return m.onFunctionsKey(msg)
		case screenArguments:
			return m.onArgumentsKey(msg)
		case screenResult:
			return m.onResultKey(msg)
		}
	}
	return m, nil
}

func (m *simModel) onFunctionsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		m.cursor = max(m.cursor-1, 0)
	case "down", "j":
		m.cursor = min(m.cursor+1, len(m.regs)-1)
	case "enter":
		if len(m.regs) == 0 {
			return m, nil
		}
		m.openArguments()
		if len(m.fields) == 0 {
			return m, m.invoke
		}
		m.screen = screenArguments
	}
	return m, nil
}

func (m *simModel) onArgumentsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		return m, m.invoke
	case tea.KeyEsc:
		m.fields = nil
		m.screen = screenFunctions
		return m, nil
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
		step := 1
		if msg.Type == tea.KeyShiftTab || msg.Type == tea.KeyUp {
			step = len(m.fields) - 1
		}
		m.fields[m.field].Blur()
		m.field = (m.field + step) % len(m.fields)
		return m, m.fields[m.field].Focus()
	}
	var cmd tea.Cmd
	m.fields[m.field], cmd = m.fields[m.field].Update(msg)
	return m, cmd
}

func (m *simModel) onResultKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "enter", "esc":
		m.res, m.resErr = callResult{}, nil
		m.screen = screenFunctions
	case "r":
		// Call again with the same arguments.
		return m, m.invoke
	}
	return m, nil
}

func (m *simModel) openArguments() {
	reg := m.regs[m.cursor]
	m.fields = make([]textinput.Model, len(reg.ArgumentNames))
	for i, name := range reg.ArgumentNames {
		f := textinput.New()
		f.Prompt = fmt.Sprintf("%-10s ", name)
		f.Placeholder = "number, TRUE, #N/A, R1C1:R2C2 or text"
		if i < len(reg.ArgumentHelp) && reg.ArgumentHelp[i] != "" {
			f.Placeholder = reg.ArgumentHelp[i]
		}
		f.Width = 40
		m.fields[i] = f
	}
	m.field = 0
	if len(m.fields) > 0 {
		m.fields[0].Focus()
	}
}

// invoke runs as a tea.Cmd; the result comes back as a resultMsg.
func (m *simModel) invoke() tea.Msg {
	raw := make([]string, len(m.fields))
	for i, f := range m.fields {
		raw[i] = f.Value()
	}
	res, err := m.sim.call(m.regs[m.cursor].Name, raw)
	return resultMsg{res: res, err: err}
}

func (m *simModel) View() string {
	var b strings.Builder
	b.WriteString(bannerStyle.Render("xlwsim") + " " + dimStyle.Render(m.sim.abi.String()+" host") + "\n\n")

	switch m.screen {
	case screenFunctions:
		if len(m.regs) == 0 {
			b.WriteString("No functions registered.\n\n" + dimStyle.Render("q quit"))
			break
		}
		for i, r := range m.regs {
			line := nameStyle.Render(r.Name) + dimStyle.Render(" "+r.TypeText+" ("+strings.Join(r.ArgumentNames, ", ")+")")
			if i == m.cursor {
				b.WriteString(cursorStyle.Render("▸ ") + line + "\n")
			} else {
				b.WriteString("  " + line + "\n")
			}
		}
		if help := m.regs[m.cursor].Help; help != "" {
			b.WriteString("\n" + help + "\n")
		}
		b.WriteString("\n" + dimStyle.Render("↑/↓ move • enter choose • q quit"))

	case screenArguments:
		b.WriteString("=" + nameStyle.Render(m.regs[m.cursor].Name) + "(\n")
		for _, f := range m.fields {
			b.WriteString("  " + f.View() + "\n")
		}
		b.WriteString(")\n\n" + dimStyle.Render("tab/↓ next • shift+tab/↑ previous • enter call • esc back"))

	case screenResult:
		b.WriteString("=" + nameStyle.Render(m.regs[m.cursor].Name) + "\n\n")
		if m.resErr != nil {
			b.WriteString(failStyle.Render(m.resErr.Error()))
		} else {
			b.WriteString(dimStyle.Render(m.res.kind) + "\n" + renderMatrix(m.res.cells))
		}
		b.WriteString("\n\n" + dimStyle.Render("enter back • r recalculate • q quit"))
	}
	return b.String()
}

func runInteractive(sim *simulator) error {
	m := &simModel{sim: sim, regs: sim.host.Registrations()}
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
