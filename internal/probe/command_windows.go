//go:build windows

package probe

import "strconv"

const defaultCommand = "ping"

func pingArgs(host string, count int) []string {
	return []string{host, "-n", strconv.Itoa(count)}
}
