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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	uwb "github.com/ZaparooProject/go-uwb"
	"github.com/ZaparooProject/go-uwb/detection"
	"github.com/ZaparooProject/go-uwb/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const firaBundle = `
protocol_name: fira
bundle_version: 1
protocol_version: "1.1"
session_id: 1
device_type: 1
device_role: 1
multi_node_mode: 0
device_address: 1540
dest_address_list: [1540]
vendor_id: [5, 120]
static_sts_iv: [26, 85, 119, 71, 126, 125]
`

func TestRun_Usage(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "usage: uwbctl")

	stderr.Reset()
	assert.Equal(t, 2, run([]string{"frobnicate"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), `unknown command "frobnicate"`)
}

func TestRun_Encode(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fira.yaml")
	require.NoError(t, os.WriteFile(path, []byte(firaBundle), 0o600))

	var stdout, stderr bytes.Buffer
	code := run([]string{"encode", "-uci", "1.1", path}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.True(t, strings.HasPrefix(stdout.String(), "params: "))
	assert.Contains(t, stdout.String(), "hex:")
}

func TestRun_EncodeErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("protocol_name: pigeon\nbundle_version: 1\n"), 0o600))

	tests := []struct {
		name string
		args []string
	}{
		{name: "no file", args: []string{"encode"}},
		{name: "missing file", args: []string{"encode", filepath.Join(dir, "nope.yaml")}},
		{name: "unknown protocol", args: []string{"encode", unknown}},
		{name: "bad version", args: []string{"encode", "-uci", "two", unknown}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var stdout, stderr bytes.Buffer
			assert.Equal(t, 1, run(tt.args, &stdout, &stderr))
			assert.Contains(t, stderr.String(), "uwbctl encode:")
		})
	}
}

func TestRun_DecodeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing hex", args: []string{"decode"}},
		{name: "bad hex", args: []string{"decode", "-hex", "zz"}},
		{name: "bad target", args: []string{"decode", "-target", "nope", "-hex", "00"}},
		{name: "truncated", args: []string{"decode", "-hex", "00 05 01"}},
		{name: "unknown protocol", args: []string{"decode", "-protocol", "pigeon", "-hex", "000101"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var stdout, stderr bytes.Buffer
			assert.Equal(t, 1, run(tt.args, &stdout, &stderr))
		})
	}
}

func TestParseHex(t *testing.T) {
	t.Parallel()

	b, err := parseHex("0x01:02 0A\n")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x0A}, b)
}

func TestOpenTransports(t *testing.T) {
	t.Parallel()

	t.Run("unknown transport", func(t *testing.T) {
		t.Parallel()
		cfg := config.Config{Radios: []config.Radio{{ID: "chip0", Transport: "carrier", Path: "/dev/null"}}}
		_, err := openTransports(cfg, nil)
		require.ErrorIs(t, err, uwb.ErrInvalidParameter)
	})

	t.Run("detection failure", func(t *testing.T) {
		t.Parallel()
		cfg := config.Config{AutoDetect: true}
		_, err := openTransports(cfg, func() ([]detection.DeviceInfo, error) {
			return nil, detection.ErrNoDevicesFound
		})
		require.ErrorIs(t, err, detection.ErrNoDevicesFound)
	})

	t.Run("nothing configured", func(t *testing.T) {
		t.Parallel()
		ts, err := openTransports(config.Config{}, nil)
		require.NoError(t, err)
		assert.Empty(t, ts)
	})
}

func TestWithWriteRetry(t *testing.T) {
	t.Parallel()

	mock := uwb.NewBlockingMockTransport()
	wrapped := withWriteRetry(mock)
	_, ok := wrapped.(*uwb.TransportWithRetry)
	require.True(t, ok)
	assert.Equal(t, uwb.TransportMock, wrapped.Type())

	mock.Unblock()
	require.NoError(t, mock.Close())
	assert.False(t, wrapped.IsConnected())
	assert.ErrorIs(t, wrapped.WritePacket([]byte{0x20, 0x02, 0x00, 0x00}), uwb.ErrTransportClosed)
}

func TestPrintDevices(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	printDevices(&out, []detection.DeviceInfo{{
		Transport:  uwb.TransportUART,
		Path:       "/dev/ttyACM0",
		Name:       "SEGGER J-Link CDC",
		Confidence: detection.High,
		Metadata:   map[string]string{"uci_version": "2.0.0", "mac_version": "1.3.0"},
	}})
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "/dev/ttyACM0")
	assert.Contains(t, lines[0], "high")
	assert.Contains(t, lines[1], "mac_version=1.3.0")
}
