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
	"github.com/ZaparooProject/go-uwb/params"
)

// OpenSessionBundleVersion is the bundle schema written by ToBundle.
const OpenSessionBundleVersion = 1

// Supported FiRa protocol versions.
var (
	ProtocolVersion10 = params.Version(1, 0)
	ProtocolVersion11 = params.Version(1, 1)
	ProtocolVersion20 = params.Version(2, 0)
)

// OpenSessionConfig is the plain field set of an open session request.
// It is only turned into an OpenSessionParams through the builder.
type OpenSessionConfig struct {
	DeviceAddress  params.Address
	DestAddresses  []params.Address
	VendorID       []byte
	StaticStsIV    []byte
	SessionKey     []byte
	SubSessionKey  []byte
	UlTdoaDeviceID []byte
	// DlTdoaRangingRounds lists the active ranging round indexes of a
	// DT-Tag.
	DlTdoaRangingRounds []byte

	Notification params.NotificationBounds

	ProtocolVersion          params.ProtocolVersion
	AbsoluteInitiationTimeUs uint64
	SessionID                uint32
	SubSessionID             uint32
	InitiationTimeMs         uint32
	RangingIntervalMs        uint32
	UlTdoaTxIntervalMs       uint32
	UlTdoaRandomWindowMs     uint32

	SlotDurationRstu       uint16
	MaxRangingRoundRetries uint16
	MaxMeasurements        uint16

	SessionType       SessionType
	DeviceType        DeviceType
	DeviceRole        DeviceRole
	RangingRoundUsage RangingRoundUsage
	MultiNodeMode     MultiNodeMode
	StsConfig         StsConfig

	Channel                       uint8
	PreambleCodeIndex             uint8
	RframeConfig                  uint8
	PrfMode                       uint8
	PreambleDuration              uint8
	SfdID                         uint8
	StsSegmentCount               uint8
	StsLength                     uint8
	PsduDataRate                  uint8
	BprfPhrDataRate               uint8
	FcsType                       uint8
	ScheduledMode                 uint8
	KeyRotationRate               uint8
	AoaResultRequest              uint8
	RangingTimeStruct             uint8
	SlotsPerRangingRound          uint8
	BlockStrideLength             uint8
	HoppingMode                   uint8
	SessionPriority               uint8
	MacAddressMode                uint8
	InBandTerminationAttemptCount uint8
	MeasurementReportType         uint8
	LinkLayerMode                 uint8
	ApplicationDataEndpoint       uint8
	UlTdoaDeviceIDType            uint8
	UlTdoaTxTimestampType         uint8

	TxAdaptivePayloadPower bool
	KeyRotation            bool
	RssiReporting          bool
	ResultReportMessage    bool
	ControlMessage         bool
	RangingControlPhase    bool
	TimeOfFlightReport     bool
	AzimuthReport          bool
	ElevationReport        bool
	AoaFomReport           bool
}

func (c OpenSessionConfig) clone() OpenSessionConfig {
	c.DeviceAddress = c.DeviceAddress.Clone()
	c.DestAddresses = params.CloneAddresses(c.DestAddresses)
	c.VendorID = params.CloneBytes(c.VendorID)
	c.StaticStsIV = params.CloneBytes(c.StaticStsIV)
	c.SessionKey = params.CloneBytes(c.SessionKey)
	c.SubSessionKey = params.CloneBytes(c.SubSessionKey)
	c.UlTdoaDeviceID = params.CloneBytes(c.UlTdoaDeviceID)
	c.DlTdoaRangingRounds = params.CloneBytes(c.DlTdoaRangingRounds)
	return c
}

// RangingRoundControl packs the ranging round control bitmap.
func (c *OpenSessionConfig) RangingRoundControl() byte {
	var v byte
	if c.ResultReportMessage {
		v |= 0x01
	}
	if c.ControlMessage {
		v |= 0x02
	}
	if c.RangingControlPhase {
		v |= 0x04
	}
	return v | (c.MeasurementReportType&0x01)<<7
}

// SetRangingRoundControl unpacks a ranging round control bitmap.
func (c *OpenSessionConfig) SetRangingRoundControl(v byte) {
	c.ResultReportMessage = v&0x01 != 0
	c.ControlMessage = v&0x02 != 0
	c.RangingControlPhase = v&0x04 != 0
	c.MeasurementReportType = v >> 7
}

// ResultReportConfig packs the result report bitmap.
func (c *OpenSessionConfig) ResultReportConfig() byte {
	var v byte
	for i, on := range []bool{c.TimeOfFlightReport, c.AzimuthReport, c.ElevationReport, c.AoaFomReport} {
		if on {
			v |= 1 << i
		}
	}
	return v
}

// SetResultReportConfig unpacks a result report bitmap.
func (c *OpenSessionConfig) SetResultReportConfig(v byte) {
	c.TimeOfFlightReport = v&0x01 != 0
	c.AzimuthReport = v&0x02 != 0
	c.ElevationReport = v&0x04 != 0
	c.AoaFomReport = v&0x08 != 0
}

// DefaultOpenSessionConfig returns the protocol defaults the builder
// starts from. Required fields are left zero.
func DefaultOpenSessionConfig() OpenSessionConfig {
	return defaultOpenSessionConfig()
}

func defaultOpenSessionConfig() OpenSessionConfig {
	return OpenSessionConfig{
		Notification:                  params.DefaultNotificationBounds(params.NtfEnable),
		SessionType:                   SessionTypeRanging,
		RangingRoundUsage:             RoundUsageDsTwrDeferred,
		StsConfig:                     StsStatic,
		SlotDurationRstu:              2400,
		RangingIntervalMs:             200,
		UlTdoaTxIntervalMs:            2000,
		Channel:                       9,
		PreambleCodeIndex:             10,
		RframeConfig:                  RframeSP3,
		PrfMode:                       PrfModeBPRF,
		PreambleDuration:              PreambleDuration64,
		SfdID:                         2,
		StsSegmentCount:               1,
		StsLength:                     StsLength64,
		ScheduledMode:                 ScheduledModeTime,
		AoaResultRequest:              1,
		RangingTimeStruct:             RangingTimeStructBlock,
		SlotsPerRangingRound:          25,
		SessionPriority:               50,
		MacAddressMode:                MacAddressModeShort,
		InBandTerminationAttemptCount: 1,
		ResultReportMessage:           true,
		ControlMessage:                true,
		TimeOfFlightReport:            true,
	}
}

// OpenSessionParams is a validated, immutable open session request.
type OpenSessionParams struct {
	cfg OpenSessionConfig
}

// Config returns a copy of every field.
func (p *OpenSessionParams) Config() OpenSessionConfig {
	return p.cfg.clone()
}

// ProtocolName implements params.Params.
func (*OpenSessionParams) ProtocolName() string {
	return params.ProtocolFira
}

// BundleVersion implements params.Params.
func (*OpenSessionParams) BundleVersion() int {
	return OpenSessionBundleVersion
}

// SessionID returns the session identifier.
func (p *OpenSessionParams) SessionID() uint32 {
	return p.cfg.SessionID
}

// SessionType returns the session type.
func (p *OpenSessionParams) SessionType() SessionType {
	return p.cfg.SessionType
}

// ProtocolVersion returns the FiRa version the session is configured for.
func (p *OpenSessionParams) ProtocolVersion() params.ProtocolVersion {
	return p.cfg.ProtocolVersion
}

// DeviceRole returns the local device role.
func (p *OpenSessionParams) DeviceRole() DeviceRole {
	return p.cfg.DeviceRole
}

// DeviceType returns controller, controlee or DT-Tag.
func (p *OpenSessionParams) DeviceType() DeviceType {
	return p.cfg.DeviceType
}

// ToBuilder returns a builder preloaded with every field, for deriving a
// modified copy.
func (p *OpenSessionParams) ToBuilder() *OpenSessionBuilder {
	b := &OpenSessionBuilder{cfg: p.cfg.clone()}
	b.protocolVersion.Set(p.cfg.ProtocolVersion)
	b.sessionID.Set(p.cfg.SessionID)
	b.deviceType.Set(p.cfg.DeviceType)
	b.deviceRole.Set(p.cfg.DeviceRole)
	b.multiNodeMode.Set(p.cfg.MultiNodeMode)
	b.deviceAddress.Set(p.cfg.DeviceAddress.Clone())
	return b
}

// OpenSessionBuilder assembles an OpenSessionParams. Protocol version,
// session id, device type, device role, multi-node mode and device
// address must be set explicitly.
type OpenSessionBuilder struct {
	deviceAddress   params.Required[params.Address]
	cfg             OpenSessionConfig
	protocolVersion params.Required[params.ProtocolVersion]
	sessionID       params.Required[uint32]
	deviceType      params.Required[DeviceType]
	deviceRole      params.Required[DeviceRole]
	multiNodeMode   params.Required[MultiNodeMode]
}

// NewOpenSessionBuilder returns a builder with protocol defaults.
func NewOpenSessionBuilder() *OpenSessionBuilder {
	return &OpenSessionBuilder{cfg: defaultOpenSessionConfig()}
}

func (b *OpenSessionBuilder) SetProtocolVersion(v params.ProtocolVersion) *OpenSessionBuilder {
	b.protocolVersion.Set(v)
	return b
}

func (b *OpenSessionBuilder) SetSessionID(id uint32) *OpenSessionBuilder {
	b.sessionID.Set(id)
	return b
}

func (b *OpenSessionBuilder) SetSessionType(t SessionType) *OpenSessionBuilder {
	b.cfg.SessionType = t
	return b
}

func (b *OpenSessionBuilder) SetDeviceType(t DeviceType) *OpenSessionBuilder {
	b.deviceType.Set(t)
	return b
}

func (b *OpenSessionBuilder) SetDeviceRole(r DeviceRole) *OpenSessionBuilder {
	b.deviceRole.Set(r)
	return b
}

func (b *OpenSessionBuilder) SetMultiNodeMode(m MultiNodeMode) *OpenSessionBuilder {
	b.multiNodeMode.Set(m)
	return b
}

func (b *OpenSessionBuilder) SetDeviceAddress(a params.Address) *OpenSessionBuilder {
	b.deviceAddress.Set(a.Clone())
	return b
}

func (b *OpenSessionBuilder) SetDestAddresses(addrs ...params.Address) *OpenSessionBuilder {
	b.cfg.DestAddresses = params.CloneAddresses(addrs)
	return b
}

func (b *OpenSessionBuilder) SetRangingRoundUsage(u RangingRoundUsage) *OpenSessionBuilder {
	b.cfg.RangingRoundUsage = u
	return b
}

func (b *OpenSessionBuilder) SetStsConfig(s StsConfig) *OpenSessionBuilder {
	b.cfg.StsConfig = s
	return b
}

func (b *OpenSessionBuilder) SetVendorID(id []byte) *OpenSessionBuilder {
	b.cfg.VendorID = params.CloneBytes(id)
	return b
}

func (b *OpenSessionBuilder) SetStaticStsIV(iv []byte) *OpenSessionBuilder {
	b.cfg.StaticStsIV = params.CloneBytes(iv)
	return b
}

func (b *OpenSessionBuilder) SetSessionKey(key []byte) *OpenSessionBuilder {
	b.cfg.SessionKey = params.CloneBytes(key)
	return b
}

// SetSubSession sets the sub-session id and, for provisioned individual
// keys, the sub-session key.
func (b *OpenSessionBuilder) SetSubSession(id uint32, key []byte) *OpenSessionBuilder {
	b.cfg.SubSessionID = id
	b.cfg.SubSessionKey = params.CloneBytes(key)
	return b
}

func (b *OpenSessionBuilder) SetChannel(ch uint8) *OpenSessionBuilder {
	b.cfg.Channel = ch
	return b
}

func (b *OpenSessionBuilder) SetPreambleCodeIndex(i uint8) *OpenSessionBuilder {
	b.cfg.PreambleCodeIndex = i
	return b
}

func (b *OpenSessionBuilder) SetRframeConfig(c uint8) *OpenSessionBuilder {
	b.cfg.RframeConfig = c
	return b
}

func (b *OpenSessionBuilder) SetSlotDurationRstu(d uint16) *OpenSessionBuilder {
	b.cfg.SlotDurationRstu = d
	return b
}

func (b *OpenSessionBuilder) SetRangingIntervalMs(ms uint32) *OpenSessionBuilder {
	b.cfg.RangingIntervalMs = ms
	return b
}

func (b *OpenSessionBuilder) SetSessionPriority(p uint8) *OpenSessionBuilder {
	b.cfg.SessionPriority = p
	return b
}

func (b *OpenSessionBuilder) SetBlockStrideLength(n uint8) *OpenSessionBuilder {
	b.cfg.BlockStrideLength = n
	return b
}

func (b *OpenSessionBuilder) SetHoppingMode(m uint8) *OpenSessionBuilder {
	b.cfg.HoppingMode = m
	return b
}

func (b *OpenSessionBuilder) SetMaxMeasurements(n uint16) *OpenSessionBuilder {
	b.cfg.MaxMeasurements = n
	return b
}

// SetInitiationTimeMs sets the relative initiation time.
func (b *OpenSessionBuilder) SetInitiationTimeMs(ms uint32) *OpenSessionBuilder {
	b.cfg.InitiationTimeMs = ms
	return b
}

// SetAbsoluteInitiationTimeUs sets the absolute initiation time used from
// FiRa 2.0 on. It takes precedence over the relative time when non-zero.
func (b *OpenSessionBuilder) SetAbsoluteInitiationTimeUs(us uint64) *OpenSessionBuilder {
	b.cfg.AbsoluteInitiationTimeUs = us
	return b
}

func (b *OpenSessionBuilder) SetLinkLayerMode(m uint8) *OpenSessionBuilder {
	b.cfg.LinkLayerMode = m
	return b
}

func (b *OpenSessionBuilder) SetApplicationDataEndpoint(e uint8) *OpenSessionBuilder {
	b.cfg.ApplicationDataEndpoint = e
	return b
}

func (b *OpenSessionBuilder) SetRangeDataNtfConfig(c params.RangeDataNtfConfig) *OpenSessionBuilder {
	b.cfg.Notification.Config = c
	return b
}

func (b *OpenSessionBuilder) SetRangeDataNtfProximityNear(cm int) *OpenSessionBuilder {
	b.cfg.Notification.ProximityNear = cm
	return b
}

func (b *OpenSessionBuilder) SetRangeDataNtfProximityFar(cm int) *OpenSessionBuilder {
	b.cfg.Notification.ProximityFar = cm
	return b
}

func (b *OpenSessionBuilder) SetRangeDataNtfAoaAzimuthLower(rad float64) *OpenSessionBuilder {
	b.cfg.Notification.AzimuthLower = rad
	return b
}

func (b *OpenSessionBuilder) SetRangeDataNtfAoaAzimuthUpper(rad float64) *OpenSessionBuilder {
	b.cfg.Notification.AzimuthUpper = rad
	return b
}

func (b *OpenSessionBuilder) SetRangeDataNtfAoaElevationLower(rad float64) *OpenSessionBuilder {
	b.cfg.Notification.ElevationLower = rad
	return b
}

func (b *OpenSessionBuilder) SetRangeDataNtfAoaElevationUpper(rad float64) *OpenSessionBuilder {
	b.cfg.Notification.ElevationUpper = rad
	return b
}

func (b *OpenSessionBuilder) SetUlTdoaTxIntervalMs(ms uint32) *OpenSessionBuilder {
	b.cfg.UlTdoaTxIntervalMs = ms
	return b
}

func (b *OpenSessionBuilder) SetUlTdoaRandomWindowMs(ms uint32) *OpenSessionBuilder {
	b.cfg.UlTdoaRandomWindowMs = ms
	return b
}

// SetUlTdoaDeviceID sets the UL-TDoA device id and its width selector.
func (b *OpenSessionBuilder) SetUlTdoaDeviceID(idType uint8, id []byte) *OpenSessionBuilder {
	b.cfg.UlTdoaDeviceIDType = idType
	b.cfg.UlTdoaDeviceID = params.CloneBytes(id)
	return b
}

func (b *OpenSessionBuilder) SetUlTdoaTxTimestampType(t uint8) *OpenSessionBuilder {
	b.cfg.UlTdoaTxTimestampType = t
	return b
}

func (b *OpenSessionBuilder) SetDlTdoaRangingRounds(indexes []byte) *OpenSessionBuilder {
	b.cfg.DlTdoaRangingRounds = params.CloneBytes(indexes)
	return b
}

// Apply edits any remaining field directly. Required fields set through
// Apply are ignored; use their setters.
func (b *OpenSessionBuilder) Apply(fn func(c *OpenSessionConfig)) *OpenSessionBuilder {
	fn(&b.cfg)
	return b
}

// Build validates the fields and returns the immutable parameters.
func (b *OpenSessionBuilder) Build() (*OpenSessionParams, error) {
	err := params.CheckRequired(
		params.Need("protocol_version", &b.protocolVersion),
		params.Need("session_id", &b.sessionID),
		params.Need("device_type", &b.deviceType),
		params.Need("device_role", &b.deviceRole),
		params.Need("multi_node_mode", &b.multiNodeMode),
		params.Need("device_address", &b.deviceAddress),
	)
	if err != nil {
		return nil, err
	}

	cfg := b.cfg.clone()
	cfg.ProtocolVersion = b.protocolVersion.Value()
	cfg.SessionID = b.sessionID.Value()
	cfg.DeviceType = b.deviceType.Value()
	cfg.DeviceRole = b.deviceRole.Value()
	cfg.MultiNodeMode = b.multiNodeMode.Value()
	cfg.DeviceAddress = b.deviceAddress.Value().Clone()

	if err := validateOpenSession(&cfg); err != nil {
		return nil, err
	}
	return &OpenSessionParams{cfg: cfg}, nil
}

func validateOpenSession(c *OpenSessionConfig) error {
	if c.ProtocolVersion.Major < 1 || c.ProtocolVersion.Major > 2 {
		return params.Invalidf("unsupported FiRa version %s", c.ProtocolVersion)
	}
	if err := c.Notification.Validate(); err != nil {
		return err
	}
	if !validChannels[c.Channel] {
		return params.Invalidf("invalid channel %d", c.Channel)
	}
	if !validPreambleIndex(c.PreambleCodeIndex) {
		return params.Invalidf("invalid preamble code index %d", c.PreambleCodeIndex)
	}
	if c.SessionPriority < 1 || c.SessionPriority > 100 {
		return params.Invalidf("session priority %d outside 1..100", c.SessionPriority)
	}

	wantAddrLen := 2
	if c.MacAddressMode != MacAddressModeShort {
		wantAddrLen = 8
	}
	if _, err := params.NewAddress(c.DeviceAddress); err != nil {
		return err
	}
	if len(c.DeviceAddress) != wantAddrLen {
		return params.Invalidf("device address is %d bytes, mac address mode needs %d", len(c.DeviceAddress), wantAddrLen)
	}
	for _, a := range c.DestAddresses {
		if len(a) != wantAddrLen {
			return params.Invalidf("destination address %s does not match mac address mode", a)
		}
	}
	if c.MultiNodeMode == MultiNodeUnicast && len(c.DestAddresses) > 1 {
		return params.Invalidf("unicast session with %d destinations", len(c.DestAddresses))
	}
	if c.DeviceType == DeviceTypeController && !c.DeviceRole.IsTag() && len(c.DestAddresses) == 0 {
		return params.Invalidf("controller needs at least one destination address")
	}
	if len(c.DestAddresses) > 0xFF {
		return params.Invalidf("too many destination addresses: %d", len(c.DestAddresses))
	}

	switch c.StsConfig {
	case StsStatic:
		if len(c.VendorID) != 2 {
			return params.Invalidf("static STS needs a 2 byte vendor id")
		}
		if len(c.StaticStsIV) != 6 {
			return params.Invalidf("static STS needs a 6 byte IV")
		}
	case StsProvisioned, StsProvisionedIndividualKey:
		if err := checkKeyLen("session key", c.SessionKey); err != nil {
			return err
		}
		if err := checkKeyLen("sub-session key", c.SubSessionKey); err != nil {
			return err
		}
	case StsDynamic, StsDynamicIndividualKey:
	default:
		return params.Invalidf("unknown STS config %d", c.StsConfig)
	}

	if c.AbsoluteInitiationTimeUs != 0 && !c.ProtocolVersion.AtLeast(2, 0) {
		return params.Invalidf("absolute initiation time needs FiRa 2.0")
	}

	if c.DeviceRole == RoleUtTag {
		want := map[uint8]int{UlTdoaDeviceIDNone: 0, UlTdoaDeviceID16Bit: 2, UlTdoaDeviceID32Bit: 4, UlTdoaDeviceID64Bit: 8}
		n, ok := want[c.UlTdoaDeviceIDType]
		if !ok || len(c.UlTdoaDeviceID) != n {
			return params.Invalidf("UL-TDoA device id type %d with %d bytes", c.UlTdoaDeviceIDType, len(c.UlTdoaDeviceID))
		}
		if c.UlTdoaTxTimestampType > TxTimestamp64Bit {
			return params.Invalidf("invalid UL-TDoA timestamp type %d", c.UlTdoaTxTimestampType)
		}
	}
	return nil
}

func checkKeyLen(name string, key []byte) error {
	if key != nil && len(key) != 16 && len(key) != 32 {
		return params.Invalidf("%s must be 16 or 32 bytes, got %d", name, len(key))
	}
	return nil
}

// NewOpenSessionParams validates a complete field set. Decoders use it
// when rebuilding parameters read back from a radio.
func NewOpenSessionParams(c OpenSessionConfig) (*OpenSessionParams, error) {
	cfg := c.clone()
	if err := validateOpenSession(&cfg); err != nil {
		return nil, err
	}
	return &OpenSessionParams{cfg: cfg}, nil
}
