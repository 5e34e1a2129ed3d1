//go:build !windows

package trace

const defaultCommand = "traceroute"

func traceArgs(host string) []string {
	return []string{host}
}
