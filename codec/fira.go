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
	"github.com/ZaparooProject/go-uwb/params/fira"
	"github.com/ZaparooProject/go-uwb/tlv"
)

func init() {
	Register(params.ProtocolFira, tlv.Short, EncoderFunc(encodeFira), DecoderFunc(decodeFira))
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// encodeFira ignores version: FiRa parameters carry their own protocol
// version.
func encodeFira(p params.Params, _ params.ProtocolVersion) (*tlv.Buffer, error) {
	var buf *tlv.Buffer
	switch v := p.(type) {
	case *fira.OpenSessionParams:
		buf = encodeFiraOpenSession(v)
	case *fira.ReconfigureParams:
		buf = encodeFiraReconfigure(v)
	default:
		return nil, unsupportedParams(params.ProtocolFira, p)
	}
	if err := buf.Err(); err != nil {
		return nil, err
	}
	return buf, nil
}

func encodeFiraOpenSession(p *fira.OpenSessionParams) *tlv.Buffer {
	c := p.Config()
	buf := tlv.NewBuffer(tlv.Short)

	buf.PutByte(fira.TagRangingRoundUsage, byte(c.RangingRoundUsage)).
		PutByte(fira.TagStsConfig, byte(c.StsConfig)).
		PutByte(fira.TagMultiNodeMode, byte(c.MultiNodeMode)).
		PutByte(fira.TagChannelNumber, c.Channel).
		PutBytes(fira.TagDeviceMacAddress, c.DeviceAddress).
		PutUint16(fira.TagSlotDuration, c.SlotDurationRstu).
		PutByte(fira.TagMacFcsType, c.FcsType).
		PutByte(fira.TagRangingRoundControl, c.RangingRoundControl()).
		PutByte(fira.TagAoaResultReq, c.AoaResultRequest).
		PutByte(fira.TagRangeDataNtfConfig, byte(c.Notification.Config)).
		PutUint16(fira.TagRangeDataNtfProximityNear, uint16(c.Notification.ProximityNear)).
		PutUint16(fira.TagRangeDataNtfProximityFar, uint16(c.Notification.ProximityFar)).
		PutByte(fira.TagDeviceRole, byte(c.DeviceRole)).
		PutByte(fira.TagRframeConfig, c.RframeConfig).
		PutByte(fira.TagRssiReporting, boolByte(c.RssiReporting)).
		PutByte(fira.TagPreambleCodeIndex, c.PreambleCodeIndex).
		PutByte(fira.TagSfdID, c.SfdID).
		PutByte(fira.TagPsduDataRate, c.PsduDataRate).
		PutByte(fira.TagPreambleDuration, c.PreambleDuration).
		PutByte(fira.TagRangingTimeStruct, c.RangingTimeStruct).
		PutByte(fira.TagSlotsPerRR, c.SlotsPerRangingRound).
		PutByte(fira.TagTxAdaptivePayloadPower, boolByte(c.TxAdaptivePayloadPower)).
		PutByte(fira.TagPrfMode, c.PrfMode).
		PutByte(fira.TagScheduledMode, c.ScheduledMode).
		PutByte(fira.TagKeyRotation, boolByte(c.KeyRotation)).
		PutByte(fira.TagKeyRotationRate, c.KeyRotationRate).
		PutByte(fira.TagSessionPriority, c.SessionPriority).
		PutByte(fira.TagMacAddressMode, c.MacAddressMode).
		PutByte(fira.TagNumberOfStsSegments, c.StsSegmentCount).
		PutUint16(fira.TagMaxRRRetry, c.MaxRangingRoundRetries).
		PutByte(fira.TagHoppingMode, c.HoppingMode).
		PutByte(fira.TagBlockStrideLength, c.BlockStrideLength).
		PutByte(fira.TagResultReportConfig, c.ResultReportConfig()).
		PutByte(fira.TagInBandTerminationAttemptCount, c.InBandTerminationAttemptCount).
		PutByte(fira.TagBprfPhrDataRate, c.BprfPhrDataRate).
		PutUint16(fira.TagMaxNumberOfMeasurements, c.MaxMeasurements).
		PutByte(fira.TagStsLength, c.StsLength)

	if c.DeviceRole != fira.RoleUtTag {
		buf.PutUint32(fira.TagRangingInterval, c.RangingIntervalMs)
	}

	if c.DeviceRole != fira.RoleDtTag {
		var dests []byte
		for _, a := range c.DestAddresses {
			dests = append(dests, a...)
		}
		buf.PutByte(fira.TagDeviceType, byte(c.DeviceType)).
			PutByte(fira.TagNumberOfControlees, byte(len(c.DestAddresses))).
			PutBytes(fira.TagDstMacAddress, dests)
		if c.ProtocolVersion.AtLeast(2, 0) {
			start := c.AbsoluteInitiationTimeUs
			if start == 0 {
				start = uint64(c.InitiationTimeMs)
			}
			buf.PutUint64(fira.TagUwbInitiationTime, start).
				PutByte(fira.TagLinkLayerMode, c.LinkLayerMode).
				PutByte(fira.TagApplicationDataEndpoint, c.ApplicationDataEndpoint)
		} else {
			buf.PutUint32(fira.TagUwbInitiationTime, c.InitiationTimeMs)
		}
	} else if len(c.DlTdoaRangingRounds) > 0 {
		rounds := append([]byte{byte(len(c.DlTdoaRangingRounds))}, c.DlTdoaRangingRounds...)
		buf.PutBytes(fira.TagDlTdoaTxActiveRangingRounds, rounds)
	}

	switch c.StsConfig {
	case fira.StsStatic:
		buf.PutBytes(fira.TagVendorID, c.VendorID).
			PutBytes(fira.TagStaticStsIV, c.StaticStsIV)
	case fira.StsProvisioned, fira.StsProvisionedIndividualKey:
		if c.SessionKey != nil {
			buf.PutBytes(fira.TagSessionKey, c.SessionKey)
		}
		if c.StsConfig == fira.StsProvisionedIndividualKey && c.SubSessionKey != nil {
			buf.PutUint32(fira.TagSubSessionID, c.SubSessionID).
				PutBytes(fira.TagSubSessionKey, c.SubSessionKey)
		}
	case fira.StsDynamicIndividualKey:
		buf.PutUint32(fira.TagSubSessionID, c.SubSessionID)
	}

	if c.Notification.Config.UsesAoa() {
		buf.PutBytes(fira.TagRangeDataNtfAoaBound, aoaBound(c.Notification))
	}

	if c.DeviceRole == fira.RoleUtTag {
		id := append([]byte{c.UlTdoaDeviceIDType}, c.UlTdoaDeviceID...)
		buf.PutUint32(fira.TagUlTdoaTxInterval, c.UlTdoaTxIntervalMs).
			PutUint32(fira.TagUlTdoaRandomWindow, c.UlTdoaRandomWindowMs).
			PutBytes(fira.TagUlTdoaDeviceID, id).
			PutByte(fira.TagUlTdoaTxTimestamp, c.UlTdoaTxTimestampType)
	}
	return buf
}

func encodeFiraReconfigure(p *fira.ReconfigureParams) *tlv.Buffer {
	buf := tlv.NewBuffer(tlv.Short)
	if v, ok := p.BlockStrideLength(); ok {
		buf.PutByte(fira.TagBlockStrideLength, v)
	}
	if v, ok := p.RangeDataNtfConfig(); ok {
		buf.PutByte(fira.TagRangeDataNtfConfig, byte(v))
	}
	if v, ok := p.ProximityNear(); ok {
		buf.PutUint16(fira.TagRangeDataNtfProximityNear, uint16(v))
	}
	if v, ok := p.ProximityFar(); ok {
		buf.PutUint16(fira.TagRangeDataNtfProximityFar, uint16(v))
	}
	if _, ok := p.AoaBounds(); ok {
		buf.PutBytes(fira.TagRangeDataNtfAoaBound, aoaBound(p.Notification()))
	}
	if v, ok := p.SuspendRangingRounds(); ok {
		buf.PutByte(fira.TagSuspendRangingRounds, v)
	}
	return buf
}

func decodeFira(d *tlv.Decoded, target Target, version params.ProtocolVersion) (params.Params, error) {
	switch target {
	case TargetOpenSession:
		p, err := decodeFiraOpenSession(d, version)
		if err != nil {
			return nil, decodeFailure(params.ProtocolFira, err)
		}
		return p, nil
	case TargetSpecification:
		return decodeFiraSpecification(d), nil
	default:
		return nil, unsupportedTarget(params.ProtocolFira, target)
	}
}

// decodeFiraOpenSession rebuilds the session configuration a radio reports.
// Fields the radio did not return keep their defaults; the session id is
// not part of the TLVs and stays zero.
//
// From 2.0 on a relative and an absolute initiation time share one 8-byte
// field, so the two cannot be told apart on the wire. An 8-byte value is
// always decoded into AbsoluteInitiationTimeUs with InitiationTimeMs left
// zero; both configurations encode to the same bytes.
func decodeFiraOpenSession(d *tlv.Decoded, version params.ProtocolVersion) (*fira.OpenSessionParams, error) {
	cfg := fira.DefaultOpenSessionConfig()

	if version.IsZero() {
		version = fira.ProtocolVersion11
	}
	cfg.ProtocolVersion = version

	cfg.RangingRoundUsage = fira.RangingRoundUsage(byteOr(d, fira.TagRangingRoundUsage, byte(cfg.RangingRoundUsage)))
	cfg.StsConfig = fira.StsConfig(byteOr(d, fira.TagStsConfig, byte(cfg.StsConfig)))
	cfg.MultiNodeMode = fira.MultiNodeMode(byteOr(d, fira.TagMultiNodeMode, byte(cfg.MultiNodeMode)))
	cfg.Channel = byteOr(d, fira.TagChannelNumber, cfg.Channel)
	cfg.SlotDurationRstu = uint16Or(d, fira.TagSlotDuration, cfg.SlotDurationRstu)
	cfg.FcsType = byteOr(d, fira.TagMacFcsType, cfg.FcsType)
	cfg.SetRangingRoundControl(byteOr(d, fira.TagRangingRoundControl, cfg.RangingRoundControl()))
	cfg.AoaResultRequest = byteOr(d, fira.TagAoaResultReq, cfg.AoaResultRequest)
	cfg.Notification.Config = params.RangeDataNtfConfig(byteOr(d, fira.TagRangeDataNtfConfig, byte(cfg.Notification.Config)))
	cfg.Notification.ProximityNear = int(uint16Or(d, fira.TagRangeDataNtfProximityNear, uint16(cfg.Notification.ProximityNear)))
	cfg.Notification.ProximityFar = int(uint16Or(d, fira.TagRangeDataNtfProximityFar, uint16(cfg.Notification.ProximityFar)))
	cfg.DeviceRole = fira.DeviceRole(byteOr(d, fira.TagDeviceRole, byte(cfg.DeviceRole)))
	cfg.RframeConfig = byteOr(d, fira.TagRframeConfig, cfg.RframeConfig)
	cfg.RssiReporting = byteOr(d, fira.TagRssiReporting, 0) != 0
	cfg.PreambleCodeIndex = byteOr(d, fira.TagPreambleCodeIndex, cfg.PreambleCodeIndex)
	cfg.SfdID = byteOr(d, fira.TagSfdID, cfg.SfdID)
	cfg.PsduDataRate = byteOr(d, fira.TagPsduDataRate, cfg.PsduDataRate)
	cfg.PreambleDuration = byteOr(d, fira.TagPreambleDuration, cfg.PreambleDuration)
	cfg.RangingTimeStruct = byteOr(d, fira.TagRangingTimeStruct, cfg.RangingTimeStruct)
	cfg.SlotsPerRangingRound = byteOr(d, fira.TagSlotsPerRR, cfg.SlotsPerRangingRound)
	cfg.TxAdaptivePayloadPower = byteOr(d, fira.TagTxAdaptivePayloadPower, 0) != 0
	cfg.PrfMode = byteOr(d, fira.TagPrfMode, cfg.PrfMode)
	cfg.ScheduledMode = byteOr(d, fira.TagScheduledMode, cfg.ScheduledMode)
	cfg.KeyRotation = byteOr(d, fira.TagKeyRotation, 0) != 0
	cfg.KeyRotationRate = byteOr(d, fira.TagKeyRotationRate, cfg.KeyRotationRate)
	cfg.SessionPriority = byteOr(d, fira.TagSessionPriority, cfg.SessionPriority)
	cfg.MacAddressMode = byteOr(d, fira.TagMacAddressMode, cfg.MacAddressMode)
	cfg.StsSegmentCount = byteOr(d, fira.TagNumberOfStsSegments, cfg.StsSegmentCount)
	cfg.MaxRangingRoundRetries = uint16Or(d, fira.TagMaxRRRetry, cfg.MaxRangingRoundRetries)
	cfg.HoppingMode = byteOr(d, fira.TagHoppingMode, cfg.HoppingMode)
	cfg.BlockStrideLength = byteOr(d, fira.TagBlockStrideLength, cfg.BlockStrideLength)
	cfg.SetResultReportConfig(byteOr(d, fira.TagResultReportConfig, cfg.ResultReportConfig()))
	cfg.InBandTerminationAttemptCount = byteOr(d, fira.TagInBandTerminationAttemptCount, cfg.InBandTerminationAttemptCount)
	cfg.BprfPhrDataRate = byteOr(d, fira.TagBprfPhrDataRate, cfg.BprfPhrDataRate)
	cfg.MaxMeasurements = uint16Or(d, fira.TagMaxNumberOfMeasurements, cfg.MaxMeasurements)
	cfg.StsLength = byteOr(d, fira.TagStsLength, cfg.StsLength)
	cfg.RangingIntervalMs = uint32Or(d, fira.TagRangingInterval, cfg.RangingIntervalMs)

	if cfg.DeviceRole == fira.RoleDtTag {
		cfg.DeviceType = fira.DeviceTypeDtTag
	}
	cfg.DeviceType = fira.DeviceType(byteOr(d, fira.TagDeviceType, byte(cfg.DeviceType)))

	addr, err := d.Bytes(fira.TagDeviceMacAddress)
	if err != nil {
		return nil, err
	}
	cfg.DeviceAddress = params.Address(addr)

	size := 2
	if cfg.MacAddressMode != fira.MacAddressModeShort {
		size = 8
	}
	var dests []byte
	for _, v := range d.All(fira.TagDstMacAddress) {
		dests = append(dests, v...)
	}
	if len(dests)%size != 0 {
		return nil, params.Invalidf("destination address list of %d bytes", len(dests))
	}
	for i := 0; i < len(dests); i += size {
		cfg.DestAddresses = append(cfg.DestAddresses, params.Address(dests[i:i+size]))
	}

	if start := bytesOr(d, fira.TagUwbInitiationTime); start != nil {
		switch len(start) {
		case 4:
			cfg.InitiationTimeMs = uint32(littleEndian(start))
		case 8:
			// 8 byte times only exist from 2.0 on; they round-trip as
			// absolute times.
			if !cfg.ProtocolVersion.AtLeast(2, 0) {
				cfg.ProtocolVersion = fira.ProtocolVersion20
			}
			cfg.AbsoluteInitiationTimeUs = littleEndian(start)
		default:
			return nil, &tlv.FormatError{Op: "initiation time", Got: len(start), Want: []int{4, 8}}
		}
	}
	cfg.LinkLayerMode = byteOr(d, fira.TagLinkLayerMode, cfg.LinkLayerMode)
	cfg.ApplicationDataEndpoint = byteOr(d, fira.TagApplicationDataEndpoint, cfg.ApplicationDataEndpoint)

	if rounds := bytesOr(d, fira.TagDlTdoaTxActiveRangingRounds); len(rounds) > 1 {
		cfg.DlTdoaRangingRounds = rounds[1:]
	}

	cfg.VendorID = bytesOr(d, fira.TagVendorID)
	cfg.StaticStsIV = bytesOr(d, fira.TagStaticStsIV)
	cfg.SessionKey = bytesOr(d, fira.TagSessionKey)
	cfg.SubSessionKey = bytesOr(d, fira.TagSubSessionKey)
	cfg.SubSessionID = uint32Or(d, fira.TagSubSessionID, 0)

	if b := bytesOr(d, fira.TagRangeDataNtfAoaBound); b != nil && !readAoaBound(b, &cfg.Notification) {
		return nil, &tlv.FormatError{Op: "AoA bound", Got: len(b), Want: []int{8}}
	}

	cfg.UlTdoaTxIntervalMs = uint32Or(d, fira.TagUlTdoaTxInterval, cfg.UlTdoaTxIntervalMs)
	cfg.UlTdoaRandomWindowMs = uint32Or(d, fira.TagUlTdoaRandomWindow, cfg.UlTdoaRandomWindowMs)
	if id := bytesOr(d, fira.TagUlTdoaDeviceID); len(id) > 0 {
		cfg.UlTdoaDeviceIDType = id[0]
		if len(id) > 1 {
			cfg.UlTdoaDeviceID = id[1:]
		}
	}
	cfg.UlTdoaTxTimestampType = byteOr(d, fira.TagUlTdoaTxTimestamp, cfg.UlTdoaTxTimestampType)

	return fira.NewOpenSessionParams(cfg)
}

func decodeFiraSpecification(d *tlv.Decoded) *fira.SpecificationParams {
	s := &fira.SpecificationParams{}
	if v := bytesOr(d, fira.CapTagPhyVersionRange); len(v) == 4 {
		s.MinPhyVersion = params.Version(int(v[0]), int(v[1]))
		s.MaxPhyVersion = params.Version(int(v[2]), int(v[3]))
	}
	if v := bytesOr(d, fira.CapTagMacVersionRange); len(v) == 4 {
		s.MinMacVersion = params.Version(int(v[0]), int(v[1]))
		s.MaxMacVersion = params.Version(int(v[2]), int(v[3]))
	}
	s.DeviceRoles = uint16(littleEndian(bytesOr(d, fira.CapTagDeviceRoles)))
	s.RangingMethods = uint32(littleEndian(bytesOr(d, fira.CapTagRangingMethod)))
	s.StsConfigs = byteOr(d, fira.CapTagStsConfig, 0)
	s.MultiNodeModes = byteOr(d, fira.CapTagMultiNodeModes, 0)
	s.RangingTimeStructs = byteOr(d, fira.CapTagRangingTimeStruct, 0)
	s.ScheduledModes = byteOr(d, fira.CapTagScheduledMode, 0)
	s.HoppingSupported = byteOr(d, fira.CapTagHoppingMode, 0) != 0
	s.BlockStridingSupported = byteOr(d, fira.CapTagBlockStriding, 0) != 0
	s.InitiationTimeSupported = byteOr(d, fira.CapTagUwbInitiationTime, 0) != 0
	s.Channels = fira.ChannelsFromBitmask(byteOr(d, fira.CapTagChannels, 0))
	s.RframeConfigs = byteOr(d, fira.CapTagRframeConfig, 0)
	s.CcConstraintLengths = byteOr(d, fira.CapTagCcConstraintLength, 0)
	s.BprfParameterSets = uint32(littleEndian(bytesOr(d, fira.CapTagBprfParameterSets)))
	s.HprfParameterSets = littleEndian(bytesOr(d, fira.CapTagHprfParameterSets))
	s.AoaCapabilities = byteOr(d, fira.CapTagAoaSupport, 0)
	s.ExtendedMacSupported = byteOr(d, fira.CapTagExtendedMacAddress, 0) != 0
	s.MaxMessageSize = uint16Or(d, fira.CapTagMaxMessageSize, 0)
	s.MaxDataPacketPayloadSize = uint16Or(d, fira.CapTagMaxDataPacketPayloadSz, 0)
	return s
}

// FiraCapabilities encodes a specification the way a radio reports it. It
// is the inverse of the specification decoder and backs the fake radios
// used in tests and by uwbctl.
func FiraCapabilities(s *fira.SpecificationParams) *tlv.Buffer {
	buf := tlv.NewBuffer(tlv.Short)
	buf.PutBytes(fira.CapTagPhyVersionRange, append(s.MinPhyVersion.Bytes(), s.MaxPhyVersion.Bytes()...)).
		PutBytes(fira.CapTagMacVersionRange, append(s.MinMacVersion.Bytes(), s.MaxMacVersion.Bytes()...)).
		PutUint16(fira.CapTagDeviceRoles, s.DeviceRoles).
		PutUint32(fira.CapTagRangingMethod, s.RangingMethods).
		PutByte(fira.CapTagStsConfig, s.StsConfigs).
		PutByte(fira.CapTagMultiNodeModes, s.MultiNodeModes).
		PutByte(fira.CapTagRangingTimeStruct, s.RangingTimeStructs).
		PutByte(fira.CapTagScheduledMode, s.ScheduledModes).
		PutByte(fira.CapTagHoppingMode, boolByte(s.HoppingSupported)).
		PutByte(fira.CapTagBlockStriding, boolByte(s.BlockStridingSupported)).
		PutByte(fira.CapTagUwbInitiationTime, boolByte(s.InitiationTimeSupported)).
		PutByte(fira.CapTagChannels, fira.ChannelsToBitmask(s.Channels)).
		PutByte(fira.CapTagRframeConfig, s.RframeConfigs).
		PutByte(fira.CapTagCcConstraintLength, s.CcConstraintLengths).
		PutUint32(fira.CapTagBprfParameterSets, s.BprfParameterSets).
		PutUint64(fira.CapTagHprfParameterSets, s.HprfParameterSets).
		PutByte(fira.CapTagAoaSupport, s.AoaCapabilities).
		PutByte(fira.CapTagExtendedMacAddress, boolByte(s.ExtendedMacSupported)).
		PutUint16(fira.CapTagMaxMessageSize, s.MaxMessageSize).
		PutUint16(fira.CapTagMaxDataPacketPayloadSz, s.MaxDataPacketPayloadSize)
	return buf
}
