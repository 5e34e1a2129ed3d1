// Writer implementation printing results to STDOUT
package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"rtt-collect/internal/measure"
)

// StdoutWriter prints results to STDOUT. On a terminal each result is a
// coloured summary line; otherwise it is one JSON object per line.
type StdoutWriter struct {
	out      io.Writer
	colorize bool
	styles   lineStyles
}

type lineStyles struct {
	time, host, ok, failed, value, hops lipgloss.Style
}

func newLineStyles(r *lipgloss.Renderer) lineStyles {
	return lineStyles{
		time:   r.NewStyle().Foreground(lipgloss.Color("8")),
		host:   r.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		ok:     r.NewStyle().Foreground(lipgloss.Color("10")),
		failed: r.NewStyle().Foreground(lipgloss.Color("9")),
		value:  r.NewStyle().Foreground(lipgloss.Color("11")),
		hops:   r.NewStyle().Foreground(lipgloss.Color("13")),
	}
}

// NewStdoutWriter creates a StdoutWriter. Colour output is used only when
// STDOUT is a terminal.
func NewStdoutWriter() *StdoutWriter {
	return newStdoutWriter(os.Stdout, term.IsTerminal(int(os.Stdout.Fd())))
}

func newStdoutWriter(out io.Writer, colorize bool) *StdoutWriter {
	return &StdoutWriter{out: out, colorize: colorize, styles: newLineStyles(lipgloss.NewRenderer(out))}
}

// WriteResult implements ResultWriter.
func (w *StdoutWriter) WriteResult(r measure.HostResult) error {
	if !w.colorize {
		return w.writeJSON(r)
	}
	_, err := fmt.Fprintln(w.out, w.resultLine(r))
	return err
}

// WriteTrace implements TraceWriter.
func (w *StdoutWriter) WriteTrace(t measure.TraceResult) error {
	if !w.colorize {
		return w.writeJSON(t)
	}
	_, err := fmt.Fprintln(w.out, w.traceLine(t))
	return err
}

func (w *StdoutWriter) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

func (w *StdoutWriter) resultLine(r measure.HostResult) string {
	s := w.styles
	ts := s.time.Render("[" + r.Timestamp.Format(time.RFC3339) + "]")
	host := s.host.Render(r.Host)
	if !r.OK {
		return fmt.Sprintf("%s %s %s", ts, host, s.failed.Render("failed"))
	}
	line := fmt.Sprintf("%s %s %s rtt=%s dist=%s",
		ts, host, s.ok.Render("ok"),
		s.value.Render(fmt.Sprintf("%.2f/%.2f/%.2fms", r.RTT.Min, r.RTT.Avg, r.RTT.Max)),
		s.value.Render(fmt.Sprintf("%.1fkm", r.DistanceKM)),
	)
	if place := placeName(r.City, r.Country); place != "" {
		line += " " + place
	}
	return line
}

func (w *StdoutWriter) traceLine(t measure.TraceResult) string {
	s := w.styles
	incs := make([]string, len(t.Increases))
	for i, v := range t.Increases {
		incs[i] = fmt.Sprintf("%.2f", v)
	}
	return fmt.Sprintf("%s %s %s total=%s [%s]",
		s.time.Render("["+t.Timestamp.Format(time.RFC3339)+"]"),
		s.host.Render(t.Host),
		s.hops.Render(fmt.Sprintf("hops=%d", len(t.Hops))),
		s.value.Render(fmt.Sprintf("%.2fms", t.TotalRTT())),
		strings.Join(incs, " "),
	)
}

func placeName(city, country string) string {
	switch {
	case city != "" && country != "":
		return city + ", " + country
	case city != "":
		return city
	default:
		return country
	}
}
