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

package fira

import (
	"sort"

	"github.com/ZaparooProject/go-uwb/params"
)

// SpecificationBundleVersion is the bundle schema of SpecificationParams.
const SpecificationBundleVersion = 1

// AoA capability bits.
const (
	AoaAzimuth90   = 1 << 0
	AoaAzimuth180  = 1 << 1
	AoaElevation   = 1 << 2
	AoaFomSupport  = 1 << 3
	AoaInterleaved = 1 << 4
)

// SpecificationParams is what a radio reports about its FiRa support.
// Bitmask fields keep the radio's encoding.
type SpecificationParams struct {
	Channels                 []uint8
	MinPhyVersion            params.ProtocolVersion
	MaxPhyVersion            params.ProtocolVersion
	MinMacVersion            params.ProtocolVersion
	MaxMacVersion            params.ProtocolVersion
	RangingMethods           uint32
	BprfParameterSets        uint32
	HprfParameterSets        uint64
	MaxMessageSize           uint16
	MaxDataPacketPayloadSize uint16
	DeviceRoles              uint16
	StsConfigs               uint8
	MultiNodeModes           uint8
	RangingTimeStructs       uint8
	ScheduledModes           uint8
	RframeConfigs            uint8
	CcConstraintLengths      uint8
	AoaCapabilities          uint8
	HoppingSupported         bool
	BlockStridingSupported   bool
	InitiationTimeSupported  bool
	ExtendedMacSupported     bool
}

// ProtocolName implements params.Params.
func (*SpecificationParams) ProtocolName() string { return params.ProtocolFira }

// BundleVersion implements params.Params.
func (*SpecificationParams) BundleVersion() int { return SpecificationBundleVersion }

// SupportsChannel reports whether ch was advertised.
func (s *SpecificationParams) SupportsChannel(ch uint8) bool {
	for _, c := range s.Channels {
		if c == ch {
			return true
		}
	}
	return false
}

// SupportsRole reports whether the device role bit is set.
func (s *SpecificationParams) SupportsRole(r DeviceRole) bool {
	return s.DeviceRoles&(1<<uint(r)) != 0
}

// SupportsAoa reports whether any AoA mode is available.
func (s *SpecificationParams) SupportsAoa() bool {
	return s.AoaCapabilities&(AoaAzimuth90|AoaAzimuth180|AoaElevation) != 0
}

// ChannelsFromBitmask expands a channel capability bitmask.
func ChannelsFromBitmask(mask byte) []uint8 {
	var out []uint8
	for ch, bit := range ChannelBit {
		if mask&(1<<bit) != 0 {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ChannelsToBitmask is the inverse of ChannelsFromBitmask.
func ChannelsToBitmask(channels []uint8) byte {
	var mask byte
	for _, ch := range channels {
		if bit, ok := ChannelBit[ch]; ok {
			mask |= 1 << bit
		}
	}
	return mask
}

// ToBundle implements params.Params.
func (s *SpecificationParams) ToBundle() params.Bundle {
	b := params.NewBundle(params.ProtocolFira, SpecificationBundleVersion)
	b["min_phy_version"] = s.MinPhyVersion.String()
	b["max_phy_version"] = s.MaxPhyVersion.String()
	b["min_mac_version"] = s.MinMacVersion.String()
	b["max_mac_version"] = s.MaxMacVersion.String()
	b["device_roles"] = int(s.DeviceRoles)
	b["ranging_methods"] = int64(s.RangingMethods)
	b["sts_configs"] = int(s.StsConfigs)
	b["multi_node_modes"] = int(s.MultiNodeModes)
	b["ranging_time_structs"] = int(s.RangingTimeStructs)
	b["scheduled_modes"] = int(s.ScheduledModes)
	b["hopping_supported"] = s.HoppingSupported
	b["block_striding_supported"] = s.BlockStridingSupported
	b["initiation_time_supported"] = s.InitiationTimeSupported
	b["channels"] = bytesToInts(s.Channels)
	b["rframe_configs"] = int(s.RframeConfigs)
	b["cc_constraint_lengths"] = int(s.CcConstraintLengths)
	b["bprf_parameter_sets"] = int64(s.BprfParameterSets)
	b["hprf_parameter_sets"] = int64(s.HprfParameterSets)
	b["aoa_capabilities"] = int(s.AoaCapabilities)
	b["extended_mac_supported"] = s.ExtendedMacSupported
	b["max_message_size"] = int(s.MaxMessageSize)
	b["max_data_packet_payload_size"] = int(s.MaxDataPacketPayloadSize)
	return b
}

// SpecificationFromBundle parses a bundle written by ToBundle.
func SpecificationFromBundle(bundle params.Bundle) (*SpecificationParams, error) {
	if err := bundle.CheckHeader(params.ProtocolFira, SpecificationBundleVersion); err != nil {
		return nil, err
	}
	r := params.NewReader(bundle)
	s := &SpecificationParams{
		MinPhyVersion:            r.Version("min_phy_version", ProtocolVersion11),
		MaxPhyVersion:            r.Version("max_phy_version", ProtocolVersion11),
		MinMacVersion:            r.Version("min_mac_version", ProtocolVersion11),
		MaxMacVersion:            r.Version("max_mac_version", ProtocolVersion11),
		DeviceRoles:              uint16(r.IntOr("device_roles", 0)),
		RangingMethods:           uint32(r.Int64Or("ranging_methods", 0)),
		StsConfigs:               uint8(r.IntOr("sts_configs", 0)),
		MultiNodeModes:           uint8(r.IntOr("multi_node_modes", 0)),
		RangingTimeStructs:       uint8(r.IntOr("ranging_time_structs", 0)),
		ScheduledModes:           uint8(r.IntOr("scheduled_modes", 0)),
		HoppingSupported:         r.BoolOr("hopping_supported", false),
		BlockStridingSupported:   r.BoolOr("block_striding_supported", false),
		InitiationTimeSupported:  r.BoolOr("initiation_time_supported", false),
		Channels:                 r.Bytes("channels"),
		RframeConfigs:            uint8(r.IntOr("rframe_configs", 0)),
		CcConstraintLengths:      uint8(r.IntOr("cc_constraint_lengths", 0)),
		BprfParameterSets:        uint32(r.Int64Or("bprf_parameter_sets", 0)),
		HprfParameterSets:        uint64(r.Int64Or("hprf_parameter_sets", 0)),
		AoaCapabilities:          uint8(r.IntOr("aoa_capabilities", 0)),
		ExtendedMacSupported:     r.BoolOr("extended_mac_supported", false),
		MaxMessageSize:           uint16(r.IntOr("max_message_size", 0)),
		MaxDataPacketPayloadSize: uint16(r.IntOr("max_data_packet_payload_size", 0)),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return s, nil
}
