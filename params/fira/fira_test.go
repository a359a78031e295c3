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
	"testing"

	"github.com/ZaparooProject/go-uwb/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseBuilder() *OpenSessionBuilder {
	return NewOpenSessionBuilder().
		SetProtocolVersion(ProtocolVersion11).
		SetSessionID(1).
		SetDeviceType(DeviceTypeController).
		SetDeviceRole(RoleResponder).
		SetMultiNodeMode(MultiNodeUnicast).
		SetDeviceAddress(params.MustAddress(0x04, 0x06)).
		SetDestAddresses(params.MustAddress(0x04, 0x06)).
		SetVendorID([]byte{0x05, 0x78}).
		SetStaticStsIV([]byte{0x1A, 0x55, 0x77, 0x47, 0x7E, 0x7D})
}

func TestOpenSessionBuilder_Required(t *testing.T) {
	t.Parallel()

	_, err := NewOpenSessionBuilder().Build()
	require.ErrorIs(t, err, params.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "device_address")
	assert.Contains(t, err.Error(), "session_id")

	p, err := baseBuilder().Build()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), p.SessionID())
	assert.Equal(t, RoleResponder, p.DeviceRole())
	assert.Equal(t, ProtocolVersion11, p.ProtocolVersion())
}

func TestOpenSessionBuilder_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mutate func(b *OpenSessionBuilder)
		name   string
	}{
		{name: "Bad_Channel", mutate: func(b *OpenSessionBuilder) { b.SetChannel(7) }},
		{name: "Bad_Preamble", mutate: func(b *OpenSessionBuilder) { b.SetPreambleCodeIndex(13) }},
		{name: "Zero_Priority", mutate: func(b *OpenSessionBuilder) { b.SetSessionPriority(0) }},
		{name: "Unicast_Many_Dest", mutate: func(b *OpenSessionBuilder) {
			b.SetDestAddresses(params.MustAddress(1, 2), params.MustAddress(3, 4))
		}},
		{name: "Controller_No_Dest", mutate: func(b *OpenSessionBuilder) { b.SetDestAddresses() }},
		{name: "Extended_Address_Short_Mode", mutate: func(b *OpenSessionBuilder) {
			b.SetDeviceAddress(params.MustAddress(1, 2, 3, 4, 5, 6, 7, 8))
		}},
		{name: "Static_Sts_No_Vendor", mutate: func(b *OpenSessionBuilder) { b.SetVendorID(nil) }},
		{name: "Static_Sts_Short_IV", mutate: func(b *OpenSessionBuilder) { b.SetStaticStsIV([]byte{1, 2}) }},
		{name: "Provisioned_Bad_Key", mutate: func(b *OpenSessionBuilder) {
			b.SetStsConfig(StsProvisioned).SetSessionKey(make([]byte, 10))
		}},
		{name: "Absolute_Time_V1", mutate: func(b *OpenSessionBuilder) { b.SetAbsoluteInitiationTimeUs(5) }},
		{name: "Proximity_Mode_Defaults", mutate: func(b *OpenSessionBuilder) {
			b.SetRangeDataNtfConfig(params.NtfProximityLevel)
		}},
		{name: "UT_Tag_Bad_Device_ID", mutate: func(b *OpenSessionBuilder) {
			b.SetDeviceRole(RoleUtTag).SetUlTdoaDeviceID(UlTdoaDeviceID32Bit, []byte{1, 2})
		}},
		{name: "Unsupported_Version", mutate: func(b *OpenSessionBuilder) {
			b.SetProtocolVersion(params.Version(3, 0))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := baseBuilder()
			tt.mutate(b)
			_, err := b.Build()
			require.ErrorIs(t, err, params.ErrInvalidArgument)
		})
	}
}

func TestOpenSessionParams_Immutable(t *testing.T) {
	t.Parallel()

	iv := []byte{0x1A, 0x55, 0x77, 0x47, 0x7E, 0x7D}
	p, err := baseBuilder().SetStaticStsIV(iv).Build()
	require.NoError(t, err)

	iv[0] = 0xFF
	cfg := p.Config()
	assert.Equal(t, byte(0x1A), cfg.StaticStsIV[0])

	cfg.StaticStsIV[0] = 0xEE
	assert.Equal(t, byte(0x1A), p.Config().StaticStsIV[0])

	derived, err := p.ToBuilder().SetChannel(5).Build()
	require.NoError(t, err)
	assert.Equal(t, uint8(5), derived.Config().Channel)
	assert.Equal(t, uint8(9), p.Config().Channel)
}

func TestOpenSessionBundle_RoundTrip(t *testing.T) {
	t.Parallel()

	p, err := baseBuilder().
		SetProtocolVersion(ProtocolVersion20).
		SetRangeDataNtfConfig(params.NtfProximityAoaLevel).
		SetRangeDataNtfAoaAzimuthLower(-1.5).
		SetRangeDataNtfAoaAzimuthUpper(2.5).
		SetAbsoluteInitiationTimeUs(1_000_000).
		SetLinkLayerMode(1).
		SetDlTdoaRangingRounds([]byte{1, 2}).
		Build()
	require.NoError(t, err)

	bundle := p.ToBundle()
	assert.Equal(t, params.ProtocolFira, bundle.ProtocolName())
	assert.Equal(t, OpenSessionBundleVersion, bundle.Version())

	got, err := OpenSessionFromBundle(bundle)
	require.NoError(t, err)
	assert.Equal(t, p.Config(), got.Config())
}

func TestOpenSessionBundle_WrongProtocol(t *testing.T) {
	t.Parallel()

	p, err := baseBuilder().Build()
	require.NoError(t, err)
	b := p.ToBundle()
	b[params.KeyProtocolName] = params.ProtocolCcc

	_, err = OpenSessionFromBundle(b)
	require.ErrorIs(t, err, params.ErrInvalidArgument)
}

func TestRangingRoundControlBits(t *testing.T) {
	t.Parallel()

	var c OpenSessionConfig
	c.SetRangingRoundControl(0x87)
	assert.True(t, c.ResultReportMessage)
	assert.True(t, c.ControlMessage)
	assert.True(t, c.RangingControlPhase)
	assert.Equal(t, uint8(1), c.MeasurementReportType)
	assert.Equal(t, byte(0x87), c.RangingRoundControl())

	c.SetResultReportConfig(0x0B)
	assert.Equal(t, byte(0x0B), c.ResultReportConfig())
	assert.False(t, c.ElevationReport)
}

func TestReconfigureBuilder(t *testing.T) {
	t.Parallel()

	p, err := NewReconfigureBuilder().
		SetBlockStrideLength(6).
		SetRangeDataNtfConfig(params.NtfProximityAoaLevel).
		SetRangeDataNtfProximityNear(4).
		SetRangeDataNtfProximityFar(6).
		SetRangeDataNtfAoaBounds(AoaBounds{AzimuthLower: -1.5, AzimuthUpper: 2.5, ElevationLower: -1.5, ElevationUpper: 1.2}).
		Build()
	require.NoError(t, err)

	stride, ok := p.BlockStrideLength()
	assert.True(t, ok)
	assert.Equal(t, uint8(6), stride)
	_, ok = p.SuspendRangingRounds()
	assert.False(t, ok)

	got, err := ReconfigureFromBundle(p.ToBundle())
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = NewReconfigureBuilder().SetRangeDataNtfProximityNear(4).Build()
	require.ErrorIs(t, err, params.ErrInvalidArgument)

	_, err = NewReconfigureBuilder().SetMulticastUpdate(MulticastAdd, nil, nil).Build()
	require.ErrorIs(t, err, params.ErrInvalidArgument)

	empty, err := NewReconfigureBuilder().Build()
	require.NoError(t, err)
	_, ok = empty.RangeDataNtfConfig()
	assert.False(t, ok)
}

func TestControleeBuilder(t *testing.T) {
	t.Parallel()

	addrs := []params.Address{params.MustAddress(1, 2), params.MustAddress(3, 4)}

	tests := []struct {
		build   func() *ControleeBuilder
		name    string
		wantErr bool
	}{
		{name: "Add", build: func() *ControleeBuilder {
			return NewControleeBuilder().SetAddresses(addrs...)
		}},
		{name: "Empty", wantErr: true, build: func() *ControleeBuilder {
			return NewControleeBuilder()
		}},
		{name: "Extended_Address", wantErr: true, build: func() *ControleeBuilder {
			return NewControleeBuilder().SetAddresses(params.MustAddress(1, 2, 3, 4, 5, 6, 7, 8))
		}},
		{name: "Id_Count_Mismatch", wantErr: true, build: func() *ControleeBuilder {
			return NewControleeBuilder().SetAddresses(addrs...).SetSubSessionIDs(1)
		}},
		{name: "Key_16", build: func() *ControleeBuilder {
			return NewControleeBuilder().SetAction(MulticastAddWith16ByteSubKey).
				SetAddresses(addrs...).SetSubSessionIDs(1, 2).SetSubSessionKeys(make([]byte, 32))
		}},
		{name: "Key_32_Wrong_Size", wantErr: true, build: func() *ControleeBuilder {
			return NewControleeBuilder().SetAction(MulticastAddWith32ByteSubKey).
				SetAddresses(addrs...).SetSubSessionIDs(1, 2).SetSubSessionKeys(make([]byte, 32))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := tt.build().Build()
			if tt.wantErr {
				require.ErrorIs(t, err, params.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)

			got, err := ControleeFromBundle(p.ToBundle())
			require.NoError(t, err)
			assert.Equal(t, p.Action(), got.Action())
			assert.Equal(t, p.Addresses(), got.Addresses())
			assert.Equal(t, p.SubSessionIDs(), got.SubSessionIDs())
			assert.Equal(t, p.SubSessionKeys(), got.SubSessionKeys())
		})
	}
}

func TestControleeParams_SubSessionKey(t *testing.T) {
	t.Parallel()

	keys := make([]byte, 32)
	for i := range keys {
		keys[i] = byte(i)
	}
	p, err := NewControleeBuilder().SetAction(MulticastUpdateWith16ByteSubKey).
		SetAddresses(params.MustAddress(1, 2), params.MustAddress(3, 4)).
		SetSubSessionIDs(7, 8).SetSubSessionKeys(keys).Build()
	require.NoError(t, err)
	assert.Equal(t, keys[16:], p.SubSessionKey(1))
	assert.Nil(t, p.SubSessionKey(2))
}

func TestChannelBitmask(t *testing.T) {
	t.Parallel()

	mask := ChannelsToBitmask([]uint8{5, 9, 99})
	assert.Equal(t, byte(0x09), mask)
	assert.Equal(t, []uint8{5, 9}, ChannelsFromBitmask(mask))
}

func TestSpecificationBundle_RoundTrip(t *testing.T) {
	t.Parallel()

	s := &SpecificationParams{
		MinPhyVersion:   ProtocolVersion11,
		MaxPhyVersion:   ProtocolVersion20,
		MinMacVersion:   ProtocolVersion11,
		MaxMacVersion:   ProtocolVersion20,
		Channels:        []uint8{5, 9},
		DeviceRoles:     0x03,
		AoaCapabilities: AoaAzimuth180 | AoaElevation,
		MaxMessageSize:  1024,
	}
	got, err := SpecificationFromBundle(s.ToBundle())
	require.NoError(t, err)
	assert.Equal(t, s, got)
	assert.True(t, got.SupportsRole(RoleInitiator))
	assert.False(t, got.SupportsRole(RoleUtTag))
	assert.True(t, got.SupportsAoa())
	assert.True(t, got.SupportsChannel(9))
}
