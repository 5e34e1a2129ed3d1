// Echo probing through the platform ping utility
package probe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"rtt-collect/internal/logging"
	"rtt-collect/internal/measure"
)

// ErrProbeFailed reports a probe that ran but produced no usable RTT: the
// host did not answer, or the output could not be parsed. Callers skip the
// host; any other error is fatal.
var ErrProbeFailed = errors.New("probe failed")

// Prober measures echo round-trip times to a host.
type Prober interface {
	Probe(ctx context.Context, host string) (*measure.RTT, error)
}

// runFunc executes a command and returns its standard output.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// ExecProber runs the OS ping utility and parses its summary.
type ExecProber struct {
	command string
	count   int
	timeout time.Duration
	parsers []Parser
	run     runFunc
}

// NewExecProber creates an ExecProber sending count echoes per host. An empty
// command selects "ping"; a nil parser chain selects every known locale.
func NewExecProber(command string, count int, timeout time.Duration, parsers []Parser) *ExecProber {
	if command == "" {
		command = defaultCommand
	}
	if count <= 0 {
		count = 3
	}
	if parsers == nil {
		parsers, _ = Parsers(nil)
	}
	return &ExecProber{command: command, count: count, timeout: timeout, parsers: parsers, run: runCommand}
}

// Probe implements Prober.
func (p *ExecProber) Probe(ctx context.Context, host string) (*measure.RTT, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	out, err := p.run(ctx, p.command, pingArgs(host, p.count)...)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: %s %s: %v", ErrProbeFailed, p.command, host, err)
		}
		return nil, fmt.Errorf("run %s: %w", p.command, err)
	}
	rtt, ok := Parse(string(out), p.parsers)
	if !ok {
		logging.FromContext(ctx).Debug("unrecognised ping output", "host", host, "output", string(out))
		return nil, fmt.Errorf("%w: %s: no RTT summary in output", ErrProbeFailed, host)
	}
	return rtt, nil
}
