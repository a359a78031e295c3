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

// Package uart detects UWB dev kits on USB serial ports. Importing it
// registers the detector with the detection package.
package uart

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	uwb "github.com/ZaparooProject/go-uwb"
	"github.com/ZaparooProject/go-uwb/detection"
	"github.com/ZaparooProject/go-uwb/internal/logging"
	"github.com/ZaparooProject/go-uwb/transport/uart"
	"go.bug.st/serial/enumerator"
)

const probeTimeout = 500 * time.Millisecond

// serialPort is one enumerated port with whatever USB metadata the
// platform reported.
type serialPort struct {
	Path         string
	Name         string
	VIDPID       string
	Product      string
	SerialNumber string
	IsUSB        bool
}

// detector implements detection.Detector for serial ports.
type detector struct {
	list  func(ctx context.Context) ([]serialPort, error)
	probe func(ctx context.Context, path string) (map[string]string, error)
}

// New creates a serial port detector.
func New() detection.Detector {
	return &detector{list: listPorts, probe: probePort}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() uwb.TransportType {
	return uwb.TransportUART
}

// Detect enumerates serial ports and, outside Passive mode, asks each
// eligible one for UCI device info.
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := d.list(ctx)
	if err != nil {
		return nil, err
	}

	logger := logging.Component("detection").With().Str("transport", "uart").Logger()
	var devices []detection.DeviceInfo
	for _, p := range ports {
		if ctx.Err() != nil {
			return devices, detection.ErrDetectionTimeout
		}
		info, ok := d.classify(ctx, p, opts)
		if !ok {
			logger.Debug().Str("path", p.Path).Str("vidpid", p.VIDPID).Msg("port skipped")
			continue
		}
		devices = append(devices, info)
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

// classify rates one port. Blocked and ignored ports are dropped; known
// dev kits start at Medium and become High when a probe answers.
func (d *detector) classify(ctx context.Context, p serialPort, opts *detection.Options) (detection.DeviceInfo, bool) {
	if detection.IsPathIgnored(p.Path, opts.IgnorePaths) || detection.IsBlocked(p.VIDPID, opts.Blocklist) {
		return detection.DeviceInfo{}, false
	}

	info := detection.DeviceInfo{
		Transport:  uwb.TransportUART,
		Path:       p.Path,
		Name:       p.Name,
		Confidence: detection.Low,
		Metadata:   map[string]string{},
	}
	if p.VIDPID != "" {
		info.Metadata["vidpid"] = p.VIDPID
	}
	if p.SerialNumber != "" {
		info.Metadata["serial"] = p.SerialNumber
	}
	if p.Product != "" {
		info.Name = p.Product
	}

	known, isKnown := detection.LookupKnownDevice(p.VIDPID)
	if isKnown {
		info.Confidence = detection.Medium
		info.Name = known.Name
	}

	eligible := opts.Mode == detection.Full || (opts.Mode == detection.Safe && isKnown)
	if !eligible {
		// Passive runs still list unknown USB ports so users can pick one.
		return info, isKnown || p.IsUSB
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	meta, err := d.probe(probeCtx, p.Path)
	if err != nil {
		return info, isKnown
	}
	info.Confidence = detection.High
	for k, v := range meta {
		info.Metadata[k] = v
	}
	return info, true
}

func probePort(ctx context.Context, path string) (map[string]string, error) {
	t, err := uart.New(path, uart.DefaultBaudRate)
	if err != nil {
		return nil, err
	}
	defer func() { _ = t.Close() }()
	return detection.Probe(ctx, t)
}

// listPorts enumerates serial ports with USB details where available.
func listPorts(_ context.Context) ([]serialPort, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, errors.Join(detection.ErrNoDevicesFound, err)
	}
	ports := make([]serialPort, 0, len(details))
	for _, d := range details {
		p := serialPort{
			Path:  d.Name,
			Name:  filepath.Base(d.Name),
			IsUSB: d.IsUSB,
		}
		if d.IsUSB {
			p.VIDPID = strings.ToUpper(d.VID + ":" + d.PID)
			p.Product = d.Product
			p.SerialNumber = d.SerialNumber
		}
		ports = append(ports, p)
	}
	return filterPlatformPorts(ports), nil
}
