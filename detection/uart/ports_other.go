//go:build !darwin

package uart

import "strings"

// filterPlatformPorts drops on-board UARTs that are never dev kits.
func filterPlatformPorts(ports []serialPort) []serialPort {
	out := ports[:0]
	for _, p := range ports {
		if !p.IsUSB && strings.HasPrefix(p.Name, "ttyS") {
			continue
		}
		out = append(out, p)
	}
	return out
}
