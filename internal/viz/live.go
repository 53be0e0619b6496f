package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/railsim/internal/dynamo"
	"github.com/san-kum/railsim/internal/rail"
	"github.com/san-kum/railsim/internal/sim"
)

const (
	corridorWidth   = 64
	corridorRows    = 9
	historyCapacity = 600
	stepsPerTick    = 16
)

var (
	liveCanvasStyle = lipgloss.NewStyle().Padding(1, 2)
	liveStatsStyle  = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2).Width(40)
	liveHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	liveLabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	liveValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	liveGraphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	liveHelpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
	contactStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

type TickMsg time.Time

// LiveModel steps the rail dynamics in real time and draws the robot inside
// the flange corridor, top down: flanges left and right, forward motion
// implied. Paused and single-step control via the keyboard.
type LiveModel struct {
	dyn        *rail.Dynamics
	contact    *rail.ContactModel
	integrator dynamo.Integrator
	params     rail.Params
	cfg        sim.Config

	state dynamo.State
	t     float64

	running bool
	done    bool

	yHistory []float64
	maxForce float64
	maxY     float64
}

func NewLiveModel(params rail.Params, cfg sim.Config, dyn *rail.Dynamics, contact *rail.ContactModel, integ dynamo.Integrator) LiveModel {
	y0 := cfg.InitialY
	if cfg.AutoOffset {
		y0 = sim.InitialOffset(cfg.Spacing, cfg.InitialTheta, params)
	}
	return LiveModel{
		dyn:        dyn,
		contact:    contact,
		integrator: integ,
		params:     params,
		cfg:        cfg,
		state:      dynamo.State{0, y0, cfg.InitialTheta, 0, 0, 0},
		running:    true,
		yHistory:   make([]float64, 0, historyCapacity),
	}
}

func (m LiveModel) Init() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "s":
			if !m.running {
				m.step(1)
			}
		case "r":
			return NewLiveModel(m.params, m.cfg, m.dyn, m.contact, m.integrator), nil
		}
	case TickMsg:
		if m.running && !m.done {
			m.step(stepsPerTick)
		}
		return m, tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

func (m *LiveModel) step(n int) {
	for i := 0; i < n; i++ {
		m.state = m.integrator.Step(m.dyn, m.state, m.t, m.cfg.Dt)
		m.t += m.cfg.Dt

		if !m.state.IsValid() || m.state[rail.IdxX] >= m.cfg.MaxDistance || m.t >= m.cfg.MaxDuration {
			m.done = true
			break
		}
	}

	y := m.state[rail.IdxY]
	if math.Abs(y) > m.maxY {
		m.maxY = math.Abs(y)
	}
	left, right := m.contact.Evaluate(m.state[rail.IdxX], y, m.state[rail.IdxVY])
	if f := math.Max(left.Total(), right.Total()); f > m.maxForce {
		m.maxForce = f
	}

	m.yHistory = append(m.yHistory, y*1000)
	if len(m.yHistory) > historyCapacity {
		m.yHistory = m.yHistory[1:]
	}
}

func (m LiveModel) View() string {
	canvas := m.drawCorridor()
	stats := m.drawStats()

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		liveCanvasStyle.Render(canvas),
		liveStatsStyle.Render(stats),
	)

	graph := ""
	if len(m.yHistory) > 2 {
		graph = liveGraphStyle.Render(asciigraph.Plot(m.yHistory,
			asciigraph.Height(6),
			asciigraph.Width(corridorWidth+40),
			asciigraph.Caption("lateral offset (mm)"),
		))
	}

	help := liveHelpStyle.Render("space pause  s step  r reset  q quit")
	return lipgloss.JoinVertical(lipgloss.Left, top, graph, help)
}

// drawCorridor maps the corridor [-(spacing+flange), +(spacing+flange)] onto
// the row axis and draws the robot's guide wheel pair at its lateral offset.
func (m LiveModel) drawCorridor() string {
	span := m.cfg.Spacing + m.params.FlangeHeight
	y := m.state[rail.IdxY]
	theta := m.state[rail.IdxTheta]

	rows := make([][]rune, corridorRows)
	for i := range rows {
		rows[i] = []rune(strings.Repeat(" ", corridorWidth))
	}

	// Flange walls at the top and bottom edges.
	for c := 0; c < corridorWidth; c++ {
		rows[0][c] = '='
		rows[corridorRows-1][c] = '='
	}

	mid := corridorRows / 2
	row := mid - int(math.Round(y/span*float64(mid-1)))
	if row < 1 {
		row = 1
	}
	if row > corridorRows-2 {
		row = corridorRows - 2
	}

	// The robot body with its skew shown as a front/rear spread.
	skew := int(math.Round(theta * 40))
	front := clampInt(row-skew, 1, corridorRows-2)
	col := corridorWidth / 2
	rows[row][col-4] = '['
	for c := col - 3; c <= col+3; c++ {
		rows[row][c] = '#'
	}
	rows[row][col+4] = ']'
	if front != row {
		rows[front][col+5] = '>'
	}

	var b strings.Builder
	b.WriteString(liveHeaderStyle.Render(fmt.Sprintf("rail corridor  spacing %.1f mm", m.cfg.Spacing*1000)))
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString(string(r))
		b.WriteString("\n")
	}
	return b.String()
}

func (m LiveModel) drawStats() string {
	left, right := m.contact.Evaluate(m.state[rail.IdxX], m.state[rail.IdxY], m.state[rail.IdxVY])

	var b strings.Builder
	b.WriteString(liveHeaderStyle.Render("state"))
	b.WriteString("\n")

	row := func(label, value string) {
		b.WriteString(liveLabelStyle.Render(label))
		b.WriteString(liveValueStyle.Render(value))
		b.WriteString("\n")
	}

	row("t", fmt.Sprintf("%.2f s", m.t))
	row("x", fmt.Sprintf("%.2f m", m.state[rail.IdxX]))
	row("y", fmt.Sprintf("%+.2f mm", m.state[rail.IdxY]*1000))
	row("theta", fmt.Sprintf("%+.2f mrad", m.state[rail.IdxTheta]*1000))
	row("vx", fmt.Sprintf("%.2f m/s", m.state[rail.IdxVX]))
	row("max |y|", fmt.Sprintf("%.2f mm", m.maxY*1000))
	row("max force", fmt.Sprintf("%.0f N", m.maxForce))

	if left.Total() > 0 || right.Total() > 0 {
		b.WriteString("\n")
		b.WriteString(contactStyle.Render("CONTACT"))
		b.WriteString("\n")
		row("left", fmt.Sprintf("%.0f N", left.Total()))
		row("right", fmt.Sprintf("%.0f N", right.Total()))
	}

	if m.done {
		b.WriteString("\n")
		b.WriteString(liveHeaderStyle.Render("run complete"))
	} else if !m.running {
		b.WriteString("\n")
		b.WriteString(liveValueStyle.Render("paused"))
	}

	return b.String()
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
