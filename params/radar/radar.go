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

// Package radar defines the parameters of UWB radar sessions. Radar
// configurations use a TLV layout with two byte lengths.
package radar

import (
	"github.com/ZaparooProject/go-uwb/params"
)

// Bundle versions.
const (
	OpenSessionBundleVersion   = 1
	SpecificationBundleVersion = 1
)

// SessionType is the vendor session type used for radar sessions.
const SessionType = 0xA1

// Radar configuration tags.
const (
	TagRadarTimingParams = 0x00
	TagSamplesPerSweep   = 0x01
	TagChannelNumber     = 0x02
	TagSweepOffset       = 0x03
	TagRframeConfig      = 0x04
	TagPreambleDuration  = 0x05
	TagPreambleCodeIndex = 0x06
	TagSessionPriority   = 0x07
	TagBitsPerSample     = 0x08
	TagPrfMode           = 0x09
	TagNumberOfBursts    = 0x0A
	TagRadarDataType     = 0x0B
)

// CapTagRadarSupport carries the supported radar data types.
const CapTagRadarSupport = 0xB0

// Radar data types.
const (
	DataTypeRadarSweepSamples = 0x00
)

// Sample widths.
const (
	BitsPerSample32 = 0x00
	BitsPerSample48 = 0x01
	BitsPerSample64 = 0x02
)

// OpenSessionConfig is the field set of a radar session.
type OpenSessionConfig struct {
	SessionID         uint32
	BurstPeriodMs     uint32
	SweepPeriodRstu   uint16
	SweepOffset       uint16
	NumberOfBursts    uint16
	SweepsPerBurst    uint8
	SamplesPerSweep   uint8
	Channel           uint8
	RframeConfig      uint8
	PreambleDuration  uint8
	PreambleCodeIndex uint8
	SessionPriority   uint8
	BitsPerSample     uint8
	PrfMode           uint8
	RadarDataType     uint8
}

// DefaultOpenSessionConfig returns a sweep-samples session on channel 9.
func DefaultOpenSessionConfig() OpenSessionConfig {
	return OpenSessionConfig{
		BurstPeriodMs:     1000,
		SweepPeriodRstu:   2000,
		SweepsPerBurst:    1,
		SamplesPerSweep:   64,
		Channel:           9,
		RframeConfig:      0x00,
		PreambleDuration:  0x01,
		PreambleCodeIndex: 25,
		SessionPriority:   255,
		BitsPerSample:     BitsPerSample32,
		PrfMode:           0x01,
		RadarDataType:     DataTypeRadarSweepSamples,
	}
}

// OpenSessionParams is a validated radar session request.
type OpenSessionParams struct {
	cfg OpenSessionConfig
}

// NewOpenSessionParams validates c.
func NewOpenSessionParams(c OpenSessionConfig) (*OpenSessionParams, error) {
	if c.BurstPeriodMs == 0 || c.SweepPeriodRstu == 0 || c.SweepsPerBurst == 0 {
		return nil, params.Invalidf("radar timing needs a burst period, sweep period and sweeps per burst")
	}
	if c.SamplesPerSweep == 0 {
		return nil, params.Invalidf("samples per sweep must be positive")
	}
	switch c.Channel {
	case 5, 6, 8, 9, 10, 12, 13, 14:
	default:
		return nil, params.Invalidf("invalid channel %d", c.Channel)
	}
	if c.BitsPerSample > BitsPerSample64 {
		return nil, params.Invalidf("invalid bits per sample %d", c.BitsPerSample)
	}
	if c.RadarDataType != DataTypeRadarSweepSamples {
		return nil, params.Invalidf("unsupported radar data type %d", c.RadarDataType)
	}
	return &OpenSessionParams{cfg: c}, nil
}

func (p *OpenSessionParams) Config() OpenSessionConfig { return p.cfg }

func (*OpenSessionParams) ProtocolName() string { return params.ProtocolRadar }

func (*OpenSessionParams) BundleVersion() int { return OpenSessionBundleVersion }

func (p *OpenSessionParams) SessionID() uint32 { return p.cfg.SessionID }

func (p *OpenSessionParams) ToBundle() params.Bundle {
	c := p.cfg
	b := params.NewBundle(params.ProtocolRadar, OpenSessionBundleVersion)
	b[params.KeySessionID] = int64(c.SessionID)
	b[params.KeySessionType] = SessionType
	b["burst_period"] = int64(c.BurstPeriodMs)
	b["sweep_period"] = int(c.SweepPeriodRstu)
	b["sweeps_per_burst"] = int(c.SweepsPerBurst)
	b["samples_per_sweep"] = int(c.SamplesPerSweep)
	b[params.KeyChannel] = int(c.Channel)
	b["sweep_offset"] = int(c.SweepOffset)
	b["rframe_config"] = int(c.RframeConfig)
	b["preamble_duration"] = int(c.PreambleDuration)
	b["preamble_code_index"] = int(c.PreambleCodeIndex)
	b["session_priority"] = int(c.SessionPriority)
	b["bits_per_sample"] = int(c.BitsPerSample)
	b["prf_mode"] = int(c.PrfMode)
	b["number_of_bursts"] = int(c.NumberOfBursts)
	b["radar_data_type"] = int(c.RadarDataType)
	return b
}

// OpenSessionFromBundle parses a bundle written by ToBundle.
func OpenSessionFromBundle(bundle params.Bundle) (*OpenSessionParams, error) {
	if err := bundle.CheckHeader(params.ProtocolRadar, OpenSessionBundleVersion); err != nil {
		return nil, err
	}
	r := params.NewReader(bundle)
	d := DefaultOpenSessionConfig()
	c := OpenSessionConfig{
		SessionID:         uint32(r.Int64(params.KeySessionID)),
		BurstPeriodMs:     uint32(r.Int64Or("burst_period", int64(d.BurstPeriodMs))),
		SweepPeriodRstu:   uint16(r.IntOr("sweep_period", int(d.SweepPeriodRstu))),
		SweepsPerBurst:    uint8(r.IntOr("sweeps_per_burst", int(d.SweepsPerBurst))),
		SamplesPerSweep:   uint8(r.IntOr("samples_per_sweep", int(d.SamplesPerSweep))),
		Channel:           uint8(r.IntOr(params.KeyChannel, int(d.Channel))),
		SweepOffset:       uint16(r.IntOr("sweep_offset", 0)),
		RframeConfig:      uint8(r.IntOr("rframe_config", int(d.RframeConfig))),
		PreambleDuration:  uint8(r.IntOr("preamble_duration", int(d.PreambleDuration))),
		PreambleCodeIndex: uint8(r.IntOr("preamble_code_index", int(d.PreambleCodeIndex))),
		SessionPriority:   uint8(r.IntOr("session_priority", int(d.SessionPriority))),
		BitsPerSample:     uint8(r.IntOr("bits_per_sample", int(d.BitsPerSample))),
		PrfMode:           uint8(r.IntOr("prf_mode", int(d.PrfMode))),
		NumberOfBursts:    uint16(r.IntOr("number_of_bursts", 0)),
		RadarDataType:     uint8(r.IntOr("radar_data_type", int(d.RadarDataType))),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return NewOpenSessionParams(c)
}

// SpecificationParams lists the radar capabilities of a radio.
type SpecificationParams struct {
	DataTypes []uint8
}

func (*SpecificationParams) ProtocolName() string { return params.ProtocolRadar }

func (*SpecificationParams) BundleVersion() int { return SpecificationBundleVersion }

// SupportsDataType reports whether t was advertised.
func (s *SpecificationParams) SupportsDataType(t uint8) bool {
	for _, v := range s.DataTypes {
		if v == t {
			return true
		}
	}
	return false
}

func (s *SpecificationParams) ToBundle() params.Bundle {
	b := params.NewBundle(params.ProtocolRadar, SpecificationBundleVersion)
	types := make([]int64, len(s.DataTypes))
	for i, t := range s.DataTypes {
		types[i] = int64(t)
	}
	b["radar_data_types"] = types
	return b
}

// SpecificationFromBundle parses a bundle written by ToBundle.
func SpecificationFromBundle(bundle params.Bundle) (*SpecificationParams, error) {
	if err := bundle.CheckHeader(params.ProtocolRadar, SpecificationBundleVersion); err != nil {
		return nil, err
	}
	r := params.NewReader(bundle)
	s := &SpecificationParams{DataTypes: r.Bytes("radar_data_types")}
	return s, r.Err()
}
