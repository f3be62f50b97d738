package tui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/tensegrity/internal/solver"
	"github.com/san-kum/tensegrity/internal/structure"
	"github.com/san-kum/tensegrity/internal/viz"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

type state int

const (
	stateSelect state = iota
	stateActuate
)

// snapshot captures everything an actuation mutates, so reset can return
// to the loaded equilibrium exactly.
type snapshot struct {
	positions   [][]float64
	restLengths []float64
	forces      []float64
}

type model struct {
	state  state
	cursor int

	st     *structure.Structure
	slv    *solver.Solver
	source string
	named  []*structure.Connection

	selected *structure.Connection
	step     float64
	total    float64
	moves    int

	history []float64
	initial snapshot
	result  *solver.Result
	errMsg  string

	width  int
	height int
}

// New builds the interactive actuation app around an already solved
// structure.
func New(st *structure.Structure, slv *solver.Solver, source string) (*model, error) {
	named := st.Named()
	if len(named) == 0 {
		return nil, fmt.Errorf("tui: %s has no named connections to actuate", source)
	}

	return &model{
		state:   stateSelect,
		st:      st,
		slv:     slv,
		source:  source,
		named:   named,
		step:    0.05,
		initial: capture(st),
		width:   80,
		height:  24,
	}, nil
}

func capture(st *structure.Structure) snapshot {
	snap := snapshot{}
	for _, n := range st.Nodes {
		snap.positions = append(snap.positions, append([]float64(nil), n.Position...))
	}
	for _, c := range st.Connections {
		snap.restLengths = append(snap.restLengths, c.RestLength)
		snap.forces = append(snap.forces, c.Force)
	}
	return snap
}

func (m *model) restore() {
	for i, n := range m.st.Nodes {
		copy(n.Position, m.initial.positions[i])
	}
	for i, c := range m.st.Connections {
		c.RestLength = m.initial.restLengths[i]
		c.Force = m.initial.forces[i]
	}
	m.total = 0
	m.moves = 0
	m.history = nil
	m.result = nil
	m.errMsg = ""
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch m.state {
	case stateSelect:
		return m.selectKey(msg)
	case stateActuate:
		return m.actuateKey(msg)
	}
	return m, nil
}

func (m model) selectKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.named)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.selected = m.named[m.cursor]
		m.state = stateActuate
		m.history = []float64{m.selected.Force}
		return m, tea.ClearScreen
	}
	return m, nil
}

func (m model) actuateKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "escape", "c":
		m.state = stateSelect
		return m, tea.ClearScreen
	case "left", "h":
		m.actuate(-m.step)
	case "right", "l":
		m.actuate(m.step)
	case "+", "=":
		m.step = math.Min(m.step*2, 1)
	case "-", "_":
		m.step = math.Max(m.step/2, 0.001)
	case "r":
		m.restore()
		m.history = []float64{m.selected.Force}
		return m, tea.ClearScreen
	}
	return m, nil
}

// actuate applies one rest length change and re-solves. A failed solve
// rolls the change back so the on-screen state is always a solved one.
func (m *model) actuate(delta float64) {
	name := m.selected.Name
	if err := m.st.AdjustRestLength(name, delta); err != nil {
		m.errMsg = err.Error()
		return
	}

	res, err := m.slv.Solve()
	if err != nil {
		m.st.AdjustRestLength(name, -delta)
		m.errMsg = err.Error()
		return
	}

	m.errMsg = ""
	m.result = res
	m.total += delta
	m.moves++
	m.history = append(m.history, m.selected.Force)
	if len(m.history) > 120 {
		m.history = m.history[1:]
	}
}

func (m model) View() string {
	switch m.state {
	case stateSelect:
		return m.viewSelect()
	case stateActuate:
		return m.viewActuate()
	}
	return ""
}

func (m model) viewSelect() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("        " + viz.Title.Render("t e n s e g r i t y") + "\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("\n")
	b.WriteString("      " + dim.Render(m.source) + "\n\n")

	for i, c := range m.named {
		desc := fmt.Sprintf("%s  rest %.3f  force %+.3f", c.Kind(), c.RestLength, c.Force)
		if i == m.cursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-14s", c.Name)) + dim.Render(desc) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-14s", c.Name)) + dimmer.Render(desc) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(viz.KeyHint.Render("      ↑↓ select   enter actuate   q quit") + "\n")

	return b.String()
}

func (m model) viewActuate() string {
	var b strings.Builder

	status := viz.StatusConverged.Render("● solved")
	if m.errMsg != "" {
		status = viz.StatusFailed.Render("○ " + m.errMsg)
	}
	b.WriteString(fmt.Sprintf("\n   %s %s  %s\n",
		cyan.Render(m.selected.Name), dim.Render(m.source), status))

	cw := m.width - 6
	ch := m.height - 12
	if cw < 40 {
		cw = 40
	}
	if ch < 8 {
		ch = 8
	}
	for _, line := range strings.Split(strings.TrimRight(viz.Render(m.st, cw, ch), "\n"), "\n") {
		b.WriteString("   " + line + "\n")
	}
	b.WriteString("   " + viz.Separator(cw) + "\n")

	b.WriteString(fmt.Sprintf("\n   %s %s   %s %s   %s %s   %s %s\n",
		dim.Render("rest"), magenta.Render(fmt.Sprintf("%.3f", m.selected.RestLength)),
		dim.Render("length"), white.Render(fmt.Sprintf("%.3f", m.selected.GeometricLength())),
		dim.Render("force"), white.Render(fmt.Sprintf("%+.3f", m.selected.Force)),
		dim.Render("Σδ"), white.Render(fmt.Sprintf("%+.3f", m.total))))

	if m.result != nil {
		b.WriteString(fmt.Sprintf("   %s %s   %s %s   %s %s\n",
			viz.MetricLabel.Render("residual"), viz.MetricValue.Render(fmt.Sprintf("%.2e", m.result.Residual)),
			viz.MetricLabel.Render("bar err"), viz.MetricValue.Render(fmt.Sprintf("%.2e", m.result.BarViolation)),
			viz.MetricLabel.Render("energy"), viz.MetricValue.Render(fmt.Sprintf("%.4f", m.result.Energy))))
	}

	if len(m.history) > 1 {
		b.WriteString(fmt.Sprintf("   %s %s\n", dim.Render("tension"), cyan.Render(viz.Sparkline(m.history, 32))))
	}

	b.WriteString(fmt.Sprintf("\n   %s\n",
		viz.KeyHint.Render(fmt.Sprintf("←→ adjust %.3f   +- step   r reset   c back   q quit", m.step))))

	return b.String()
}

// Run starts the interactive actuation loop.
func Run(st *structure.Structure, slv *solver.Solver, source string) error {
	m, err := New(st, slv, source)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
