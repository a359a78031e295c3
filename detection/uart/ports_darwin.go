//go:build darwin

package uart

import (
	"strings"
)

// filterPlatformPorts keeps one node per device, preferring the call-out
// /dev/cu.* node over /dev/tty.* since only the former opens without
// waiting for carrier detect. Bluetooth and debug consoles are dropped.
func filterPlatformPorts(ports []serialPort) []serialPort {
	callout := make(map[string]bool)
	for _, p := range ports {
		if strings.HasPrefix(p.Path, "/dev/cu.") {
			callout[strings.TrimPrefix(p.Path, "/dev/cu.")] = true
		}
	}

	out := ports[:0]
	for _, p := range ports {
		if strings.HasPrefix(p.Path, "/dev/tty.") && callout[strings.TrimPrefix(p.Path, "/dev/tty.")] {
			continue
		}
		if !shouldIncludeMacOSDevice(p.Name) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func shouldIncludeMacOSDevice(deviceName string) bool {
	lowerName := strings.ToLower(deviceName)
	for _, pattern := range []string{"bluetooth", "console", "debug", "wlan"} {
		if strings.Contains(lowerName, pattern) {
			return false
		}
	}
	return true
}
