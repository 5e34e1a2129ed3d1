// Route tracing through the platform traceroute utility
package trace

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"rtt-collect/internal/logging"
)

// Tracer returns the average RTT of every responding hop on the path to host.
type Tracer interface {
	Trace(ctx context.Context, host string) ([]float64, error)
}

// runFunc executes a command and returns its standard output.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// ExecTracer runs tracert (Windows) or traceroute and parses its text output.
type ExecTracer struct {
	command string
	timeout time.Duration
	run     runFunc
}

// NewExecTracer creates an ExecTracer. An empty command selects the platform
// default; a zero timeout leaves the utility's own limits in place.
func NewExecTracer(command string, timeout time.Duration) *ExecTracer {
	if command == "" {
		command = defaultCommand
	}
	return &ExecTracer{command: command, timeout: timeout, run: runCommand}
}

// Trace runs the route trace. A nonzero exit status is not an error: whatever
// the utility printed is parsed. Failing to start the utility is.
func (t *ExecTracer) Trace(ctx context.Context, host string) ([]float64, error) {
	log := logging.FromContext(ctx)
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	out, err := t.run(ctx, t.command, traceArgs(host)...)
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("run %s: %w", t.command, err)
		}
		if ctx.Err() == context.DeadlineExceeded {
			log.Warn("trace timed out", "host", host, "timeout", t.timeout)
		} else {
			log.Debug("trace exited with error", "host", host, "err", err)
		}
	}
	hops := ParseHops(string(out))
	log.Debug("trace complete", "host", host, "hops", len(hops))
	return hops, nil
}

var msToken = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*ms\b`)

// ParseHops extracts one average RTT per output line carrying at least one
// "<n> ms" token. Lines without a token (timeouts, headers) are skipped and
// leave no placeholder. Averages are rounded to two decimals.
func ParseHops(output string) []float64 {
	var hops []float64
	for _, line := range strings.Split(output, "\n") {
		matches := msToken.FindAllStringSubmatch(line, -1)
		if len(matches) == 0 {
			continue
		}
		var sum float64
		for _, m := range matches {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			sum += v
		}
		hops = append(hops, round2(sum/float64(len(matches))))
	}
	return hops
}

// Increases converts cumulative hop RTTs into per-hop deltas: the first
// element is the first hop's RTT, every later one the change from the
// previous hop. Deltas may be negative.
func Increases(hops []float64) []float64 {
	out := make([]float64, len(hops))
	for i, h := range hops {
		if i == 0 {
			out[i] = h
			continue
		}
		out[i] = h - hops[i-1]
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
