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

// Package detection finds UWB chips attached to the host. Transport
// specific detectors register themselves on import:
//
//	import _ "github.com/ZaparooProject/go-uwb/detection/uart"
package detection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	uwb "github.com/ZaparooProject/go-uwb"
	"github.com/ZaparooProject/go-uwb/internal/logging"
	"github.com/ZaparooProject/go-uwb/uci"
)

var (
	// ErrNoDevicesFound is returned when detection completes without a match.
	ErrNoDevicesFound = errors.New("no UWB devices found")
	// ErrDetectionTimeout is returned when the context expires mid-scan.
	ErrDetectionTimeout = errors.New("device detection timed out")
	// ErrUnsupportedPlatform is returned by detectors that cannot run here.
	ErrUnsupportedPlatform = errors.New("detection not supported on this platform")
)

// Mode controls how intrusive detection may be.
type Mode int

const (
	// Passive only enumerates device nodes; nothing is opened.
	Passive Mode = iota
	// Safe opens candidates and asks for device info, which does not
	// change chip state.
	Safe
	// Full probes every candidate, including ones with unknown USB ids.
	Full
)

func (m Mode) String() string {
	switch m {
	case Passive:
		return "passive"
	case Safe:
		return "safe"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Confidence rates how likely a candidate is a UWB chip.
type Confidence int

const (
	Low Confidence = iota
	Medium
	High
)

func (c Confidence) String() string {
	switch c {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return fmt.Sprintf("confidence(%d)", int(c))
	}
}

// DeviceInfo describes one candidate.
type DeviceInfo struct {
	Metadata   map[string]string
	Transport  uwb.TransportType
	Path       string
	Name       string
	Confidence Confidence
}

// Options tunes a detection run.
type Options struct {
	Blocklist   []string
	IgnorePaths []string
	Timeout     time.Duration
	Mode        Mode
}

// DefaultOptions probes known dev kits only.
func DefaultOptions() Options {
	return Options{
		Mode:      Safe,
		Timeout:   2 * time.Second,
		Blocklist: DefaultBlocklist(),
	}
}

// Detector finds devices reachable over one transport.
type Detector interface {
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
	Transport() uwb.TransportType
}

var (
	registryMu sync.RWMutex
	registry   = map[uwb.TransportType]Detector{}
)

// RegisterDetector adds d, replacing any detector for the same transport.
func RegisterDetector(d Detector) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Transport()] = d
}

// Detectors returns the registered detectors ordered by transport name.
func Detectors() []Detector {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Detector, 0, len(registry))
	for _, d := range registry {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Transport() < out[j].Transport() })
	return out
}

// DetectAll runs every registered detector and merges their results,
// most confident first. Detector failures are logged and skipped unless
// nothing was found at all.
func DetectAll(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		o := DefaultOptions()
		opts = &o
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	logger := logging.Component("detection")
	var (
		found []DeviceInfo
		errs  []error
	)
	for _, d := range Detectors() {
		devices, err := d.Detect(ctx, opts)
		if err != nil && !errors.Is(err, ErrNoDevicesFound) && !errors.Is(err, ErrUnsupportedPlatform) {
			logger.Debug().Err(err).Str("transport", string(d.Transport())).Msg("detector failed")
			errs = append(errs, fmt.Errorf("%s: %w", d.Transport(), err))
		}
		found = append(found, devices...)
		if ctx.Err() != nil {
			break
		}
	}

	if len(found) == 0 {
		if ctx.Err() != nil {
			return nil, ErrDetectionTimeout
		}
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		return nil, ErrNoDevicesFound
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].Confidence > found[j].Confidence })
	return found, nil
}

// Probe asks the chip behind t for its device info without resetting it.
// On success the returned metadata holds the reported versions.
func Probe(ctx context.Context, t uwb.Transport) (map[string]string, error) {
	cmd := uci.EncodeControl(uci.MTCommand, uci.GIDCore, uci.OIDCoreDeviceInfo, nil)
	if err := uwb.AsTransportContext(t).WritePacketContext(ctx, cmd[0]); err != nil {
		return nil, fmt.Errorf("probe write: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("probe: %w", err)
		}
		pkt, err := t.ReadPacket()
		if errors.Is(err, uwb.ErrTransportTimeout) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("probe read: %w", err)
		}
		h, err := uci.ParseHeader(pkt)
		if err != nil {
			return nil, err
		}
		// Chips announce their state unprompted; skip anything else.
		if h.MT != uci.MTResponse || h.GID != uci.GIDCore || h.OID != uci.OIDCoreDeviceInfo {
			continue
		}
		payload := pkt[uci.HeaderLen:]
		if len(payload) < 9 || payload[0] != byte(uwb.StatusOk) {
			return nil, fmt.Errorf("%w: device info rejected", uwb.ErrCommunicationFailed)
		}
		return map[string]string{
			"uci_version": version(payload[1], payload[2]),
			"mac_version": version(payload[3], payload[4]),
			"phy_version": version(payload[5], payload[6]),
		}, nil
	}
}

// version formats a UCI generic version: major in the first octet, minor
// and maintenance in the nibbles of the second.
func version(major, minor byte) string {
	return fmt.Sprintf("%d.%d.%d", major, minor>>4, minor&0x0F)
}
