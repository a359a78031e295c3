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

package codec

import (
	"github.com/ZaparooProject/go-uwb/params"
	"github.com/ZaparooProject/go-uwb/params/aliro"
	"github.com/ZaparooProject/go-uwb/params/ccc"
	"github.com/ZaparooProject/go-uwb/params/fira"
	"github.com/ZaparooProject/go-uwb/tlv"
)

func init() {
	for _, protocol := range []string{params.ProtocolCcc, params.ProtocolAliro} {
		Register(protocol, tlv.Short, cccEncoder(protocol), cccDecoder(protocol))
	}
}

// cccEncoder serves CCC and ALIRO. version is the UCI version of the
// radio; from 2.0 on the initiation time is sent as eight bytes.
func cccEncoder(protocol string) EncoderFunc {
	return func(p params.Params, version params.ProtocolVersion) (*tlv.Buffer, error) {
		var buf *tlv.Buffer
		switch v := p.(type) {
		case *ccc.OpenRangingParams:
			buf = encodeCccOpenRanging(v, protocol, version)
		case *ccc.StartRangingParams:
			buf = encodeCccStartRanging(v, version)
		default:
			return nil, unsupportedParams(protocol, p)
		}
		if err := buf.Err(); err != nil {
			return nil, err
		}
		return buf, nil
	}
}

func putInitiationTime(buf *tlv.Buffer, absUs uint64, relMs uint32, version params.ProtocolVersion) {
	if version.AtLeast(2, 0) {
		start := absUs
		if start == 0 {
			start = uint64(relMs)
		}
		buf.PutUint64(fira.TagUwbInitiationTime, start)
		return
	}
	buf.PutUint32(fira.TagUwbInitiationTime, relMs)
}

func encodeCccOpenRanging(p *ccc.OpenRangingParams, protocol string, version params.ProtocolVersion) *tlv.Buffer {
	c := p.Config()
	buf := tlv.NewBuffer(tlv.Short)

	buf.PutByte(fira.TagDeviceType, byte(fira.DeviceTypeController)).
		PutByte(fira.TagStsConfig, byte(fira.StsDynamic)).
		PutByte(fira.TagChannelNumber, byte(c.Channel)).
		PutByte(fira.TagNumberOfControlees, byte(c.NumResponderNodes)).
		PutUint32(fira.TagRangingInterval, uint32(c.RanMultiplier*ccc.RangingIntervalUnitMs)).
		PutByte(fira.TagDeviceRole, byte(fira.RoleInitiator)).
		PutByte(fira.TagMultiNodeMode, byte(fira.MultiNodeOneToMany)).
		PutByte(fira.TagSlotsPerRR, byte(c.NumSlotsPerRound)).
		PutByte(fira.TagKeyRotation, 1).
		PutByte(fira.TagHoppingMode, ccc.HoppingModeByte(c.HoppingConfigMode, c.HoppingSequence)).
		PutBytes(ccc.TagRangingProtocolVer, c.ProtocolVersion.Bytes()).
		PutUint16(ccc.TagUwbConfigID, uint16(c.UwbConfig)).
		PutByte(ccc.TagPulseShapeCombo, c.PulseShapeCombo.Byte()).
		PutUint16(ccc.TagUrskTTL, ccc.DefaultUrskTTL)

	if c.LastStsIndexUsed != 0 {
		buf.PutUint32(ccc.TagLastStsIndexUsed, uint32(c.LastStsIndexUsed))
	}
	if protocol == params.ProtocolAliro && c.StsIndex != 0 {
		buf.PutUint32(fira.TagStsIndex, uint32(c.StsIndex))
	}

	buf.PutUint16(fira.TagSlotDuration, uint16(c.NumChapsPerSlot*ccc.ChapsPerSlotRstu)).
		PutByte(fira.TagPreambleCodeIndex, byte(c.SyncCodeIndex))
	putInitiationTime(buf, c.AbsoluteInitiationTimeUs, c.InitiationTimeMs, version)
	putNotification(buf, c.Notification, fira.TagRangeDataNtfConfig,
		fira.TagRangeDataNtfProximityNear, fira.TagRangeDataNtfProximityFar, fira.TagRangeDataNtfAoaBound)
	return buf
}

func encodeCccStartRanging(p *ccc.StartRangingParams, version params.ProtocolVersion) *tlv.Buffer {
	buf := tlv.NewBuffer(tlv.Short)
	buf.PutUint32(fira.TagRangingInterval, uint32(p.RanMultiplier*ccc.RangingIntervalUnitMs))
	putInitiationTime(buf, p.AbsoluteInitiationTimeUs, p.InitiationTimeMs, version)
	return buf
}

// capTag maps a CCC capability tag to the tag the given protocol reports
// it under.
func capTag(protocol string, tag byte) byte {
	if protocol == params.ProtocolAliro {
		return tag + aliro.CapTagOffset
	}
	return tag
}

func cccDecoder(protocol string) DecoderFunc {
	return func(d *tlv.Decoded, target Target, _ params.ProtocolVersion) (params.Params, error) {
		switch target {
		case TargetSpecification:
			s, err := decodeCccSpecification(d, protocol)
			if err != nil {
				return nil, decodeFailure(protocol, err)
			}
			return s, nil
		case TargetRangingStarted:
			s, err := decodeCccRangingStarted(d)
			if err != nil {
				return nil, decodeFailure(protocol, err)
			}
			return s, nil
		default:
			return nil, unsupportedTarget(protocol, target)
		}
	}
}

func decodeCccRangingStarted(d *tlv.Decoded) (*ccc.RangingStartedParams, error) {
	hopKey, err := d.Uint32(ccc.TagHopModeKey)
	if err != nil {
		return nil, err
	}
	uwbTime0, err := d.Uint64(ccc.TagUwbTime0)
	if err != nil {
		return nil, err
	}
	stsIndex, err := d.Uint32(ccc.TagLastStsIndexUsed)
	if err != nil {
		return nil, err
	}
	sync, err := d.Byte(fira.TagPreambleCodeIndex)
	if err != nil {
		return nil, err
	}
	interval, err := d.Uint32(fira.TagRangingInterval)
	if err != nil {
		return nil, err
	}
	return &ccc.RangingStartedParams{
		HopModeKey:       hopKey,
		UwbTime0:         uwbTime0,
		StartingStsIndex: stsIndex,
		SyncCodeIndex:    int(sync),
		RanMultiplier:    int(interval / ccc.RangingIntervalUnitMs),
	}, nil
}

func decodeCccSpecification(d *tlv.Decoded, protocol string) (*ccc.SpecificationParams, error) {
	s := ccc.NewSpecification(protocol)

	versions := bytesOr(d, capTag(protocol, ccc.CapTagProtocolVersions))
	if len(versions)%2 != 0 {
		return nil, &tlv.FormatError{Op: "protocol versions", Got: len(versions)}
	}
	for i := 0; i < len(versions); i += 2 {
		s.ProtocolVersions = append(s.ProtocolVersions, params.Version(int(versions[i]), int(versions[i+1])))
	}

	configs := bytesOr(d, capTag(protocol, ccc.CapTagUwbConfigs))
	if len(configs)%2 != 0 {
		return nil, &tlv.FormatError{Op: "uwb configs", Got: len(configs)}
	}
	for i := 0; i < len(configs); i += 2 {
		s.UwbConfigs = append(s.UwbConfigs, int(configs[i])|int(configs[i+1])<<8)
	}

	for _, b := range bytesOr(d, capTag(protocol, ccc.CapTagPulseShapeCombos)) {
		s.PulseShapeCombos = append(s.PulseShapeCombos, ccc.PulseShapeComboFromByte(b))
	}

	slots := byteOr(d, capTag(protocol, ccc.CapTagSlotBitmask), 0)
	for i, chaps := range ccc.ChapsPerSlotValues {
		if slots&(1<<i) != 0 {
			s.ChapsPerSlot = append(s.ChapsPerSlot, chaps)
		}
	}

	syncCodes := littleEndian(bytesOr(d, capTag(protocol, ccc.CapTagSyncCodeIndexBitmask)))
	for i := 0; i < 32; i++ {
		if syncCodes&(1<<i) != 0 {
			s.SyncCodes = append(s.SyncCodes, i+1)
		}
	}

	channels := byteOr(d, capTag(protocol, ccc.CapTagChannelBitmask), 0)
	if channels&0x01 != 0 {
		s.Channels = append(s.Channels, ccc.Channel5)
	}
	if channels&0x02 != 0 {
		s.Channels = append(s.Channels, ccc.Channel9)
	}

	hopping := byteOr(d, capTag(protocol, ccc.CapTagHoppingConfigBitmask), 0)
	for _, m := range []struct {
		bit  byte
		mode int
	}{
		{ccc.CapHoppingNone, ccc.HoppingConfigModeNone},
		{ccc.CapHoppingContinuous, ccc.HoppingConfigModeContinuous},
		{ccc.CapHoppingAdaptive, ccc.HoppingConfigModeAdaptive},
	} {
		if hopping&m.bit != 0 {
			s.HoppingConfigModes = append(s.HoppingConfigModes, m.mode)
		}
	}
	if hopping&ccc.CapHoppingDefault != 0 {
		s.HoppingSequences = append(s.HoppingSequences, ccc.HoppingSequenceDefault)
	}
	if hopping&ccc.CapHoppingAes != 0 {
		s.HoppingSequences = append(s.HoppingSequences, ccc.HoppingSequenceAes)
	}

	s.RanMultiplier = int(byteOr(d, capTag(protocol, ccc.CapTagMinRanMultiplier), 0))
	return s, nil
}

// CccCapabilities encodes a CCC or ALIRO specification the way a radio
// reports it.
func CccCapabilities(s *ccc.SpecificationParams) *tlv.Buffer {
	protocol := s.ProtocolName()
	var versions, configs, combos []byte
	for _, v := range s.ProtocolVersions {
		versions = append(versions, v.Bytes()...)
	}
	for _, c := range s.UwbConfigs {
		configs = append(configs, tlv.Uint16ToLEBytes(uint16(c))...)
	}
	for _, c := range s.PulseShapeCombos {
		combos = append(combos, c.Byte())
	}

	var slots byte
	for i, chaps := range ccc.ChapsPerSlotValues {
		for _, v := range s.ChapsPerSlot {
			if v == chaps {
				slots |= 1 << i
			}
		}
	}
	var syncCodes uint32
	for _, c := range s.SyncCodes {
		if c >= 1 && c <= 32 {
			syncCodes |= 1 << (c - 1)
		}
	}
	var channels byte
	for _, ch := range s.Channels {
		switch ch {
		case ccc.Channel5:
			channels |= 0x01
		case ccc.Channel9:
			channels |= 0x02
		}
	}
	var hopping byte
	for _, m := range s.HoppingConfigModes {
		switch m {
		case ccc.HoppingConfigModeNone:
			hopping |= ccc.CapHoppingNone
		case ccc.HoppingConfigModeContinuous:
			hopping |= ccc.CapHoppingContinuous
		case ccc.HoppingConfigModeAdaptive:
			hopping |= ccc.CapHoppingAdaptive
		}
	}
	for _, seq := range s.HoppingSequences {
		switch seq {
		case ccc.HoppingSequenceDefault:
			hopping |= ccc.CapHoppingDefault
		case ccc.HoppingSequenceAes:
			hopping |= ccc.CapHoppingAes
		}
	}

	buf := tlv.NewBuffer(tlv.Short)
	buf.PutByte(capTag(protocol, ccc.CapTagSlotBitmask), slots).
		PutUint32(capTag(protocol, ccc.CapTagSyncCodeIndexBitmask), syncCodes).
		PutByte(capTag(protocol, ccc.CapTagHoppingConfigBitmask), hopping).
		PutByte(capTag(protocol, ccc.CapTagChannelBitmask), channels).
		PutBytes(capTag(protocol, ccc.CapTagProtocolVersions), versions).
		PutBytes(capTag(protocol, ccc.CapTagUwbConfigs), configs).
		PutBytes(capTag(protocol, ccc.CapTagPulseShapeCombos), combos).
		PutByte(capTag(protocol, ccc.CapTagMinRanMultiplier), byte(s.RanMultiplier))
	return buf
}
