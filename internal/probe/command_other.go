//go:build !windows

package probe

import "strconv"

const defaultCommand = "ping"

func pingArgs(host string, count int) []string {
	return []string{"-c", strconv.Itoa(count), host}
}
