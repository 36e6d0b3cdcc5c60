package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-flowviz/pkg/engine"
	"github.com/dd0wney/cluso-flowviz/pkg/flowgraph"
	"github.com/dd0wney/cluso-flowviz/pkg/logging"
	"github.com/dd0wney/cluso-flowviz/pkg/render"
)

const (
	frameInterval = 33 * time.Millisecond
	panStep       = 48.0
	zoomStep      = 100.0
)

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FFFF")).
			Bold(true)

	selectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF00FF")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)
)

type keyMap struct {
	Quit    key.Binding
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	ZoomIn  key.Binding
	ZoomOut key.Binding
	Fit     key.Binding
	Reset   key.Binding
	Close   key.Binding
	Help    key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "pan up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "pan down"),
	),
	Left: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "pan left"),
	),
	Right: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "pan right"),
	),
	ZoomIn: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "zoom in"),
	),
	ZoomOut: key.NewBinding(
		key.WithKeys("-"),
		key.WithHelp("-", "zoom out"),
	),
	Fit: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "fit"),
	),
	Reset: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reset view"),
	),
	Close: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "close selection"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "more"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Fit, k.ZoomIn, k.ZoomOut, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.ZoomIn, k.ZoomOut, k.Fit, k.Reset},
		{k.Close, k.Help, k.Quit},
	}
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// model maps terminal cells to engine pixels. Two rows at the bottom hold
// the status line and help.
type model struct {
	engine  *engine.Engine
	surface *TerminalSurface
	frame   *render.Frame
	help    help.Model
	keys    keyMap
	cols    int
	rows    int
	last    time.Time
	err     error
}

func newModel(e *engine.Engine, surface *TerminalSurface) model {
	return model{
		engine:  e,
		surface: surface,
		help:    help.New(),
		keys:    keys,
	}
}

func (m model) Init() tea.Cmd {
	return tickCmd()
}

// pixel returns the screen position of the center of a terminal cell
func (m model) pixel(x, y int) flowgraph.Vec {
	return flowgraph.Vec{
		X: (float64(x) + 0.5) * m.surface.CellWidth,
		Y: (float64(y) + 0.5) * m.surface.CellHeight,
	}
}

func (m model) center() flowgraph.Vec {
	return flowgraph.Vec{
		X: float64(m.cols) * m.surface.CellWidth / 2,
		Y: float64(m.rows) * m.surface.CellHeight / 2,
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		m.cols, m.rows = msg.Width, max(msg.Height-2, 1)
		m.err = m.engine.Resize(float64(m.cols)*m.surface.CellWidth, float64(m.rows)*m.surface.CellHeight)
		return m, nil

	case tickMsg:
		now := time.Time(msg)
		delta := float64(frameInterval.Milliseconds())
		if !m.last.IsZero() {
			delta = float64(now.Sub(m.last).Milliseconds())
		}
		m.last = now
		m.frame, m.err = m.engine.Tick(delta)
		return m, tickCmd()

	case tea.MouseMsg:
		m.err = m.mouse(msg)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.engine.Dispose()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			m.err = m.engine.PanBy(flowgraph.Vec{Y: panStep})
		case key.Matches(msg, m.keys.Down):
			m.err = m.engine.PanBy(flowgraph.Vec{Y: -panStep})
		case key.Matches(msg, m.keys.Left):
			m.err = m.engine.PanBy(flowgraph.Vec{X: panStep})
		case key.Matches(msg, m.keys.Right):
			m.err = m.engine.PanBy(flowgraph.Vec{X: -panStep})
		case key.Matches(msg, m.keys.ZoomIn):
			m.err = m.engine.OnWheel(m.center(), -zoomStep)
		case key.Matches(msg, m.keys.ZoomOut):
			m.err = m.engine.OnWheel(m.center(), zoomStep)
		case key.Matches(msg, m.keys.Fit):
			m.err = m.engine.Fit()
		case key.Matches(msg, m.keys.Reset):
			m.err = m.engine.ResetView()
		case key.Matches(msg, m.keys.Close):
			m.err = m.engine.CloseSelection()
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil
	}
	return m, nil
}

func (m model) mouse(msg tea.MouseMsg) error {
	if msg.Y >= m.rows {
		return m.engine.OnPointerLeave()
	}
	at := m.pixel(msg.X, msg.Y)

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		return m.engine.OnWheel(at, -zoomStep)
	case msg.Button == tea.MouseButtonWheelDown:
		return m.engine.OnWheel(at, zoomStep)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		return m.engine.OnPointerDown(at, m.engine.HitTest(at))
	case msg.Action == tea.MouseActionRelease:
		return m.engine.OnPointerUp(at, m.engine.HitTest(at))
	case msg.Action == tea.MouseActionMotion:
		return m.engine.OnPointerMove(at, m.engine.HitTest(at))
	}
	return nil
}

func (m model) View() string {
	if m.frame == nil || m.cols == 0 {
		return "settling..."
	}

	var b strings.Builder
	if err := m.surface.Draw(&b, m.frame); err != nil {
		return errorStyle.Render(err.Error())
	}
	b.WriteByte('\n')
	b.WriteString(m.status())
	b.WriteByte('\n')
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m model) status() string {
	stats := m.frame.Stats
	line := statusStyle.Render(fmt.Sprintf("%d nodes  %d links  alpha %.3f  zoom %.2f  %s",
		stats.Nodes, stats.Links, stats.Alpha, m.frame.Transform.K, m.engine.State()))
	if sel := m.frame.Selection; sel != nil {
		name := sel.NodeID
		if n, ok := m.engine.Graph().Node(sel.NodeID); ok {
			name = fmt.Sprintf("%s  in %s  out %s", n.DisplayName, money(n.TotalInflow), money(n.TotalOutflow))
		}
		line += "  " + selectionStyle.Render(name)
	}
	if m.err != nil {
		line += "  " + errorStyle.Render(m.err.Error())
	}
	return line
}

// money formats a currency amount with a magnitude suffix
func money(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("$%.1fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("$%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("$%.1fK", v/1e3)
	}
	return fmt.Sprintf("$%.0f", v)
}

// tuiLogger never writes to the terminal the UI draws on. Without a log
// file it discards everything.
func tuiLogger(flags *globalFlags, path string) (logging.Logger, func() error, error) {
	if path == "" {
		return logging.NewNopLogger(), func() error { return nil }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return logging.NewJSONLogger(f, flags.level()), f.Close, nil
}

func tuiCmd(flags *globalFlags) *cobra.Command {
	var focus, logFile string

	cmd := &cobra.Command{
		Use:   "tui <descriptor>",
		Short: "Explore a flow network interactively in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			desc, err := flowgraph.LoadDescriptorFile(args[0])
			if err != nil {
				return err
			}

			logger, closeLog, err := tuiLogger(flags, logFile)
			if err != nil {
				return err
			}
			defer closeLog()

			e, err := engine.New(desc, engine.Options{
				Config:             cfg,
				Logger:             logger,
				InitialFocusNodeID: focus,
			})
			if err != nil {
				return err
			}
			defer e.Dispose()

			p := tea.NewProgram(newModel(e, NewTerminalSurface()), tea.WithAltScreen(), tea.WithMouseAllMotion())
			_, err = p.Run()
			return err
		},
	}
	cmd.Flags().StringVar(&focus, "focus", "", "node to focus once the layout settles")
	cmd.Flags().StringVar(&logFile, "log-file", "", "append JSON logs to this file; logs are discarded otherwise")
	return cmd
}
