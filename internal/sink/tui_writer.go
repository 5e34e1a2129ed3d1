package sink

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"rtt-collect/internal/measure"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a log line for the viewport.
type logMsg struct{ line string }

// resultMsg carries a host result for the table.
type resultMsg struct{ measure.HostResult }

// traceMsg carries a trace result.
type traceMsg struct{ measure.TraceResult }

const maxTableRows = 10

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	titleStyle  = lipgloss.NewStyle().Bold(true)
)

// TUIWriter renders results using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter. Quitting
// the TUI interrupts the process so a running collection stops.
func NewTUIWriter(runID string) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(runID), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// WriteResult implements ResultWriter.
func (w *TUIWriter) WriteResult(r measure.HostResult) error {
	w.program.Send(resultMsg{r})
	status := okStyle.Render("ok")
	detail := ""
	if r.OK {
		detail = fmt.Sprintf(" avg=%.2fms dist=%.1fkm", r.RTT.Avg, r.DistanceKM)
	} else {
		status = failedStyle.Render("failed")
	}
	w.program.Send(logMsg{line: fmt.Sprintf("%s %s %s%s",
		dimStyle.Render(r.Timestamp.Format(time.RFC3339)), r.Host, status, detail)})
	return nil
}

// WriteTrace implements TraceWriter.
func (w *TUIWriter) WriteTrace(t measure.TraceResult) error {
	w.program.Send(traceMsg{t})
	incs := make([]string, len(t.Increases))
	for i, v := range t.Increases {
		incs[i] = fmt.Sprintf("%+.2f", v)
	}
	w.program.Send(logMsg{line: fmt.Sprintf("%s trace %s hops=%d total=%.2fms %s",
		dimStyle.Render(t.Timestamp.Format(time.RFC3339)), t.Host, len(t.Hops), t.TotalRTT(), strings.Join(incs, " "))})
	return nil
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	runID      string
	table      table.Model
	vp         viewport.Model
	rows       []table.Row
	logs       []string
	probed     int
	failed     int
	traced     int
	rttSum     float64
	wrap       bool
	autoscroll bool
	height     int
	width      int
}

func newTUIModel(runID string) tuiModel {
	cols := []table.Column{
		{Title: "Host", Width: 18},
		{Title: "Status", Width: 7},
		{Title: "Avg RTT (ms)", Width: 12},
		{Title: "Distance (km)", Width: 13},
		{Title: "Location", Width: 24},
	}
	t := table.New(table.WithColumns(cols), table.WithHeight(maxTableRows+1))
	return tuiModel{
		runID:      runID,
		table:      t,
		vp:         viewport.New(0, 0),
		autoscroll: true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
		case "up", "k":
			m.vp.SetYOffset(m.vp.YOffset - 1)
		case "down", "j":
			m.vp.SetYOffset(m.vp.YOffset + 1)
		}
	case resultMsg:
		m.probed++
		row := table.Row{msg.Host, "failed", "-", "-", ""}
		if msg.OK {
			m.rttSum += msg.RTT.Avg
			row = table.Row{msg.Host, "ok",
				fmt.Sprintf("%.2f", msg.RTT.Avg),
				fmt.Sprintf("%.1f", msg.DistanceKM),
				placeName(msg.City, msg.Country)}
		} else {
			m.failed++
		}
		m.rows = append(m.rows, row)
		visible := m.rows
		if len(visible) > maxTableRows {
			visible = visible[len(visible)-maxTableRows:]
		}
		m.table.SetRows(visible)
	case traceMsg:
		m.traced++
	case logMsg:
		m.logs = append(m.logs, msg.line)
		m.refreshViewport()
	}
	return m, nil
}

func (m *tuiModel) updateViewportHeight() {
	h := m.height - lipgloss.Height(m.renderHeader()) - lipgloss.Height(m.table.View()) - 4
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
}

func (m *tuiModel) refreshViewport() {
	lines := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		if m.wrap && m.vp.Width > 0 {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) renderHeader() string {
	mean := 0.0
	if ok := m.probed - m.failed; ok > 0 {
		mean = m.rttSum / float64(ok)
	}
	return fmt.Sprintf("%s  run %s\nprobed %d  %s  %s  traced %d  mean avg rtt %.2fms",
		titleStyle.Render("rtt-collect"), dimStyle.Render(m.runID),
		m.probed,
		okStyle.Render(fmt.Sprintf("ok %d", m.probed-m.failed)),
		failedStyle.Render(fmt.Sprintf("failed %d", m.failed)),
		m.traced, mean)
}

func (m tuiModel) View() string {
	divider := strings.Repeat("─", m.width)
	help := dimStyle.Render("q quit • w wrap • s autoscroll • ↑/↓ scroll")
	return strings.Join([]string{
		m.renderHeader(),
		divider,
		m.table.View(),
		divider,
		m.vp.View(),
		help,
	}, "\n")
}
