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

// Package fira defines the FiRa parameter objects: open session,
// reconfiguration, controlee (multicast list) and capability parameters.
package fira

// SessionType values.
type SessionType byte

const (
	SessionTypeRanging              SessionType = 0x00
	SessionTypeRangingAndInBandData SessionType = 0x01
	SessionTypeDataTransfer         SessionType = 0x02
	SessionTypeRangingOnlyPhase     SessionType = 0x03
	SessionTypeInBandDataPhase      SessionType = 0x04
	SessionTypeRangingWithDataPhase SessionType = 0x05
	SessionTypeCcc                  SessionType = 0xA0
	SessionTypeRadar                SessionType = 0xA1
	SessionTypeAliro                SessionType = 0xA2
	SessionTypeDeviceTestMode       SessionType = 0xD0
)

// DeviceType values.
type DeviceType byte

const (
	DeviceTypeControlee  DeviceType = 0x00
	DeviceTypeController DeviceType = 0x01
	DeviceTypeDtTag      DeviceType = 0x02
)

// DeviceRole values.
type DeviceRole byte

const (
	RoleResponder               DeviceRole = 0x00
	RoleInitiator               DeviceRole = 0x01
	RoleUtSynchronizationAnchor DeviceRole = 0x02
	RoleUtAnchor                DeviceRole = 0x03
	RoleUtTag                   DeviceRole = 0x04
	RoleAdvertiser              DeviceRole = 0x05
	RoleObserver                DeviceRole = 0x06
	RoleDtAnchor                DeviceRole = 0x07
	RoleDtTag                   DeviceRole = 0x08
)

// IsTag reports whether the role is a one-way (TDoA) tag.
func (r DeviceRole) IsTag() bool {
	return r == RoleUtTag || r == RoleDtTag
}

// RangingRoundUsage values.
type RangingRoundUsage byte

const (
	RoundUsageUlTdoa            RangingRoundUsage = 0x00
	RoundUsageSsTwrDeferred     RangingRoundUsage = 0x01
	RoundUsageDsTwrDeferred     RangingRoundUsage = 0x02
	RoundUsageSsTwrNonDeferred  RangingRoundUsage = 0x03
	RoundUsageDsTwrNonDeferred  RangingRoundUsage = 0x04
	RoundUsageDlTdoa            RangingRoundUsage = 0x05
	RoundUsageOwrAoa            RangingRoundUsage = 0x06
	RoundUsageDataTransferPhase RangingRoundUsage = 0x09
)

// MultiNodeMode values.
type MultiNodeMode byte

const (
	MultiNodeUnicast    MultiNodeMode = 0x00
	MultiNodeOneToMany  MultiNodeMode = 0x01
	MultiNodeManyToMany MultiNodeMode = 0x02
)

// StsConfig values.
type StsConfig byte

const (
	StsStatic                   StsConfig = 0x00
	StsDynamic                  StsConfig = 0x01
	StsDynamicIndividualKey     StsConfig = 0x02
	StsProvisioned              StsConfig = 0x03
	StsProvisionedIndividualKey StsConfig = 0x04
)

// IsProvisioned reports whether keys are supplied by the host.
func (s StsConfig) IsProvisioned() bool {
	return s == StsProvisioned || s == StsProvisionedIndividualKey
}

// Frame and PHY settings.
const (
	RframeSP0 = 0x00
	RframeSP1 = 0x01
	RframeSP3 = 0x03

	PrfModeBPRF = 0x00
	PrfModeHPRF = 0x01

	PreambleDuration32  = 0x00
	PreambleDuration64  = 0x01
	StsLength32         = 0x00
	StsLength64         = 0x01
	StsLength128        = 0x02
	MacAddressModeShort = 0x00
	MacAddressModeExt   = 0x02

	RangingTimeStructInterval = 0x00
	RangingTimeStructBlock    = 0x01

	ScheduledModeContention = 0x00
	ScheduledModeTime       = 0x01

	UlTdoaDeviceIDNone  = 0x00
	UlTdoaDeviceID16Bit = 0x01
	UlTdoaDeviceID32Bit = 0x02
	UlTdoaDeviceID64Bit = 0x03

	TxTimestampNone  = 0x00
	TxTimestamp40Bit = 0x01
	TxTimestamp64Bit = 0x02
)

// Multicast list actions.
type MulticastAction byte

const (
	MulticastAdd                    MulticastAction = 0x00
	MulticastDelete                 MulticastAction = 0x01
	MulticastAddWith16ByteSubKey    MulticastAction = 0x02
	MulticastAddWith32ByteSubKey    MulticastAction = 0x03
	MulticastUpdateWith16ByteSubKey MulticastAction = 0x04
	MulticastUpdateWith32ByteSubKey MulticastAction = 0x05
)

// subKeyLength returns the key size an action requires, or 0 when keys are
// not carried.
func (a MulticastAction) subKeyLength() int {
	switch a {
	case MulticastAddWith16ByteSubKey, MulticastUpdateWith16ByteSubKey:
		return 16
	case MulticastAddWith32ByteSubKey, MulticastUpdateWith32ByteSubKey:
		return 32
	}
	return 0
}

// Application configuration tags.
const (
	TagDeviceType                    = 0x00
	TagRangingRoundUsage             = 0x01
	TagStsConfig                     = 0x02
	TagMultiNodeMode                 = 0x03
	TagChannelNumber                 = 0x04
	TagNumberOfControlees            = 0x05
	TagDeviceMacAddress              = 0x06
	TagDstMacAddress                 = 0x07
	TagSlotDuration                  = 0x08
	TagRangingInterval               = 0x09
	TagStsIndex                      = 0x0A
	TagMacFcsType                    = 0x0B
	TagRangingRoundControl           = 0x0C
	TagAoaResultReq                  = 0x0D
	TagRangeDataNtfConfig            = 0x0E
	TagRangeDataNtfProximityNear     = 0x0F
	TagRangeDataNtfProximityFar      = 0x10
	TagDeviceRole                    = 0x11
	TagRframeConfig                  = 0x12
	TagRssiReporting                 = 0x13
	TagPreambleCodeIndex             = 0x14
	TagSfdID                         = 0x15
	TagPsduDataRate                  = 0x16
	TagPreambleDuration              = 0x17
	TagLinkLayerMode                 = 0x18
	TagDataRepetitionCount           = 0x19
	TagRangingTimeStruct             = 0x1A
	TagSlotsPerRR                    = 0x1B
	TagTxAdaptivePayloadPower        = 0x1C
	TagRangeDataNtfAoaBound          = 0x1D
	TagResponderSlotIndex            = 0x1E
	TagPrfMode                       = 0x1F
	TagCapSizeRange                  = 0x20
	TagTxJitterWindowSize            = 0x21
	TagScheduledMode                 = 0x22
	TagKeyRotation                   = 0x23
	TagKeyRotationRate               = 0x24
	TagSessionPriority               = 0x25
	TagMacAddressMode                = 0x26
	TagVendorID                      = 0x27
	TagStaticStsIV                   = 0x28
	TagNumberOfStsSegments           = 0x29
	TagMaxRRRetry                    = 0x2A
	TagUwbInitiationTime             = 0x2B
	TagHoppingMode                   = 0x2C
	TagBlockStrideLength             = 0x2D
	TagResultReportConfig            = 0x2E
	TagInBandTerminationAttemptCount = 0x2F
	TagSubSessionID                  = 0x30
	TagBprfPhrDataRate               = 0x31
	TagMaxNumberOfMeasurements       = 0x32
	TagUlTdoaTxInterval              = 0x33
	TagUlTdoaRandomWindow            = 0x34
	TagStsLength                     = 0x35
	TagSuspendRangingRounds          = 0x36
	TagUlTdoaNtfReportConfig         = 0x37
	TagUlTdoaDeviceID                = 0x38
	TagUlTdoaTxTimestamp             = 0x39
	TagMinFramesPerRR                = 0x3A
	TagMtuSize                       = 0x3B
	TagInterFrameInterval            = 0x3C
	TagDlTdoaRangingMethod           = 0x3D
	TagDlTdoaTxTimestampConf         = 0x3E
	TagDlTdoaHopCount                = 0x3F
	TagDlTdoaAnchorCfo               = 0x40
	TagDlTdoaAnchorLocation          = 0x41
	TagDlTdoaTxActiveRangingRounds   = 0x42
	TagDlTdoaBlockSkipping           = 0x43
	TagSessionKey                    = 0x45
	TagSubSessionKey                 = 0x46
	TagSessionDataTransferStatusNtf  = 0x47
	TagSessionTimeBase               = 0x48
	TagApplicationDataEndpoint       = 0x4C
	TagOwrAoaMeasurementNtfPeriod    = 0x4D
)

// Capability tags reported by GET_CAPS_INFO.
const (
	CapTagPhyVersionRange        = 0x00
	CapTagMacVersionRange        = 0x01
	CapTagDeviceRoles            = 0x02
	CapTagRangingMethod          = 0x03
	CapTagStsConfig              = 0x04
	CapTagMultiNodeModes         = 0x05
	CapTagRangingTimeStruct      = 0x06
	CapTagScheduledMode          = 0x07
	CapTagHoppingMode            = 0x08
	CapTagBlockStriding          = 0x09
	CapTagUwbInitiationTime      = 0x0A
	CapTagChannels               = 0x0B
	CapTagRframeConfig           = 0x0C
	CapTagCcConstraintLength     = 0x0D
	CapTagBprfParameterSets      = 0x0E
	CapTagHprfParameterSets      = 0x0F
	CapTagAoaSupport             = 0x10
	CapTagExtendedMacAddress     = 0x11
	CapTagMaxMessageSize         = 0x12
	CapTagMaxDataPacketPayloadSz = 0x13
)

// validChannels lists the UWB channels a session may use.
var validChannels = map[uint8]bool{5: true, 6: true, 8: true, 9: true, 10: true, 12: true, 13: true, 14: true}

// ChannelBit maps a channel number to its capability bitmask position.
var ChannelBit = map[uint8]uint{5: 0, 6: 1, 8: 2, 9: 3, 10: 4, 12: 5, 13: 6, 14: 7}

func validPreambleIndex(i uint8) bool {
	return (i >= 9 && i <= 12) || (i >= 25 && i <= 32)
}
