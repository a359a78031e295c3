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
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ZaparooProject/go-uwb/detection"
	// Register detectors.
	_ "github.com/ZaparooProject/go-uwb/detection/chardev"
	_ "github.com/ZaparooProject/go-uwb/detection/uart"
	"github.com/ZaparooProject/go-uwb/internal/logging"
)

var modes = map[string]detection.Mode{
	"passive": detection.Passive,
	"safe":    detection.Safe,
	"full":    detection.Full,
}

func runDetect(args []string, stdout io.Writer) error {
	fs, debug := newFlagSet("detect")
	mode := fs.String("mode", "safe", "passive, safe or full")
	timeout := fs.Duration("timeout", 2*time.Second, "detection timeout")
	ignore := fs.String("ignore", "", "comma separated device paths to skip")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setupLogging(*debug, logging.Config{})

	m, ok := modes[*mode]
	if !ok {
		return fmt.Errorf("unknown mode %q", *mode)
	}
	opts := detection.DefaultOptions()
	opts.Mode = m
	opts.Timeout = *timeout
	if *ignore != "" {
		opts.IgnorePaths = strings.Split(*ignore, ",")
	}

	devices, err := detection.DetectAll(context.Background(), &opts)
	if err != nil {
		return err
	}
	printDevices(stdout, devices)
	return nil
}

func printDevices(w io.Writer, devices []detection.DeviceInfo) {
	for _, d := range devices {
		_, _ = fmt.Fprintf(w, "%-8s %-24s %-6s %s\n", d.Transport, d.Path, d.Confidence, d.Name)
		keys := make([]string, 0, len(d.Metadata))
		for k := range d.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			_, _ = fmt.Fprintf(w, "         %s=%s\n", k, d.Metadata[k])
		}
	}
}
