//go:build windows

package trace

const defaultCommand = "tracert"

func traceArgs(host string) []string {
	return []string{host}
}
