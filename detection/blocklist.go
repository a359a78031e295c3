// go-uwb
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-uwb.
//
// go-uwb is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-uwb is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-uwb; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package detection

import (
	"path/filepath"
	"strings"
)

// KnownDevice is a USB serial bridge shipped on a UWB dev kit.
type KnownDevice struct {
	VIDPID string
	Name   string
}

// KnownDevices lists dev kits that expose UCI over USB serial. A match
// raises detection confidence and makes the port eligible for Safe probing.
func KnownDevices() []KnownDevice {
	return []KnownDevice{
		{VIDPID: "1366:1015", Name: "SEGGER J-Link CDC (Qorvo DWM3001CDK)"},
		{VIDPID: "1366:0105", Name: "SEGGER J-Link CDC"},
		{VIDPID: "1FC9:0143", Name: "NXP MCU-Link (SR1xx evaluation kits)"},
		{VIDPID: "2FE3:0100", Name: "Zephyr CDC ACM (UCI firmware)"},
	}
}

// LookupKnownDevice returns the dev kit matching vidpid.
func LookupKnownDevice(vidpid string) (KnownDevice, bool) {
	vidpid = normalizeVIDPID(vidpid)
	for _, d := range KnownDevices() {
		if d.VIDPID == vidpid {
			return d, true
		}
	}
	return KnownDevice{}, false
}

// DefaultBlocklist returns USB serial devices that must never be probed.
// Writing a UCI command to them can reset or reconfigure the device.
// Format: VID:PID in hexadecimal (case-insensitive).
func DefaultBlocklist() []string {
	return []string{
		"1915:521F", // Nordic DFU bootloader
		"2341:0043", // Arduino Uno, resets on open
	}
}

// IsBlocked checks if a USB device is in the blocklist.
func IsBlocked(vidpid string, blocklist []string) bool {
	vidpid = normalizeVIDPID(vidpid)
	if vidpid == "" {
		return false
	}
	for _, blocked := range blocklist {
		if normalizeVIDPID(blocked) == vidpid {
			return true
		}
	}
	return false
}

func normalizeVIDPID(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ParseVIDPID extracts VID:PID from the descriptor formats reported by
// the various platforms: "VID:1234 PID:5678", "VID_1234&PID_5678",
// "vendor=1234 product=5678" and plain "1234:5678".
func ParseVIDPID(descriptor string) string {
	descriptor = strings.ToUpper(descriptor)

	vid := valueAfter(descriptor, "VID:", "VID_", "VID=", "VENDOR=")
	pid := valueAfter(descriptor, "PID:", "PID_", "PID=", "PRODUCT=")
	if vid != "" && pid != "" {
		return vid + ":" + pid
	}

	if parts := strings.Split(descriptor, ":"); len(parts) == 2 && isHex(parts[0]) && isHex(parts[1]) {
		return descriptor
	}
	return ""
}

func valueAfter(s string, prefixes ...string) string {
	for _, p := range prefixes {
		if idx := strings.Index(s, p); idx >= 0 {
			return extractHex(s[idx+len(p):])
		}
	}
	return ""
}

// extractHex returns the leading run of hex digits of s.
func extractHex(s string) string {
	end := 0
	for end < len(s) && isHexDigit(s[end]) {
		end++
	}
	return s[:end]
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return false
		}
	}
	return true
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

// IsPathIgnored checks if a device path should be ignored. Paths are
// compared cleaned and case-insensitively so COM ports match either way.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}
	device := normalizedPath(devicePath)
	for _, ignore := range ignorePaths {
		if ignore != "" && normalizedPath(ignore) == device {
			return true
		}
	}
	return false
}

func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
