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

// Package chardev detects UWB chips exposed by a kernel driver as a UCI
// character device. Importing it registers the detector.
package chardev

import (
	"context"
	"path/filepath"
	"time"

	uwb "github.com/ZaparooProject/go-uwb"
	"github.com/ZaparooProject/go-uwb/detection"
)

const probeTimeout = 500 * time.Millisecond

// devicePatterns are the node names used by upstream UWB drivers.
var devicePatterns = []string{"/dev/uwb*", "/dev/sr1xx*", "/dev/srxxx*"}

type detector struct {
	glob  func(pattern string) ([]string, error)
	probe func(ctx context.Context, path string) (map[string]string, error)
}

// New creates a character device detector.
func New() detection.Detector {
	return &detector{glob: filepath.Glob, probe: probeDevice}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() uwb.TransportType {
	return uwb.TransportCharDev
}

// Detect lists matching device nodes. Any node found is a UWB driver, so
// entries start at Medium; a probe answer raises them to High.
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	if !supported {
		return nil, detection.ErrUnsupportedPlatform
	}

	var devices []detection.DeviceInfo
	for _, pattern := range devicePatterns {
		matches, err := d.glob(pattern)
		if err != nil {
			continue
		}
		for _, path := range matches {
			if ctx.Err() != nil {
				return devices, detection.ErrDetectionTimeout
			}
			if detection.IsPathIgnored(path, opts.IgnorePaths) {
				continue
			}
			devices = append(devices, d.describe(ctx, path, opts.Mode))
		}
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

func (d *detector) describe(ctx context.Context, path string, mode detection.Mode) detection.DeviceInfo {
	info := detection.DeviceInfo{
		Transport:  uwb.TransportCharDev,
		Path:       path,
		Name:       filepath.Base(path),
		Confidence: detection.Medium,
		Metadata:   map[string]string{},
	}
	if mode == detection.Passive {
		return info
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	meta, err := d.probe(probeCtx, path)
	if err != nil {
		info.Metadata["probe_error"] = err.Error()
		return info
	}
	info.Confidence = detection.High
	for k, v := range meta {
		info.Metadata[k] = v
	}
	return info
}
