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

package ccc

import (
	"github.com/ZaparooProject/go-uwb/params"
)

// OpenRangingBundleVersion is the bundle schema of OpenRangingParams.
const OpenRangingBundleVersion = 1

const (
	keyUwbConfig          = "uwb_config"
	keyPulseShapeCombo    = "pulse_shape_combo"
	keyRanMultiplier      = "ran_multiplier"
	keyNumChapsPerSlot    = "num_chaps_per_slot"
	keyNumResponderNodes  = "num_responder_nodes"
	keyNumSlotsPerRound   = "num_slots_per_round"
	keySyncCodeIndex      = "sync_code_index"
	keyHoppingConfigMode  = "hopping_config_mode"
	keyHoppingSequence    = "hopping_sequence"
	keyStsIndex           = "sts_index"
	keyLastStsIndexUsed   = "last_sts_index_used"
	keyInitiationTimeMs   = "initiation_time_ms"
	keyAbsoluteInitTimeUs = "absolute_initiation_time_us"
	keyUwbTime0           = "uwb_time0"
	keyHopModeKey         = "hop_mode_key"
	keyStartingStsIndex   = "starting_sts_index"
	keyError              = "error"
)

// OpenRangingConfig is the field set of a CCC or ALIRO open ranging
// request.
type OpenRangingConfig struct {
	Notification             params.NotificationBounds
	ProtocolVersion          params.ProtocolVersion
	PulseShapeCombo          PulseShapeCombo
	AbsoluteInitiationTimeUs uint64
	InitiationTimeMs         uint32
	SessionID                uint32
	UwbConfig                int
	RanMultiplier            int
	Channel                  int
	NumChapsPerSlot          int
	NumResponderNodes        int
	NumSlotsPerRound         int
	SyncCodeIndex            int
	HoppingConfigMode        int
	HoppingSequence          int
	StsIndex                 int
	LastStsIndexUsed         int
}

// OpenRangingParams is a validated open ranging request. The same type
// serves ALIRO, which shares the CCC field set; ProtocolName tells them
// apart.
type OpenRangingParams struct {
	cfg      OpenRangingConfig
	protocol string
}

// Config returns a copy of every field.
func (p *OpenRangingParams) Config() OpenRangingConfig { return p.cfg }

// ProtocolName implements params.Params.
func (p *OpenRangingParams) ProtocolName() string { return p.protocol }

// BundleVersion implements params.Params.
func (*OpenRangingParams) BundleVersion() int { return OpenRangingBundleVersion }

func (p *OpenRangingParams) SessionID() uint32 { return p.cfg.SessionID }

func (p *OpenRangingParams) SessionType() int {
	if p.protocol == params.ProtocolAliro {
		return 0xA2
	}
	return SessionType
}

// ToBuilder returns a builder preloaded with every field.
func (p *OpenRangingParams) ToBuilder() *OpenRangingBuilder {
	b := NewOpenRangingBuilderFor(p.protocol)
	c := p.cfg
	b.SetProtocolVersion(c.ProtocolVersion).
		SetUwbConfig(c.UwbConfig).
		SetPulseShapeCombo(c.PulseShapeCombo).
		SetSessionID(c.SessionID).
		SetRanMultiplier(c.RanMultiplier).
		SetChannel(c.Channel).
		SetNumChapsPerSlot(c.NumChapsPerSlot).
		SetNumResponderNodes(c.NumResponderNodes).
		SetNumSlotsPerRound(c.NumSlotsPerRound).
		SetSyncCodeIndex(c.SyncCodeIndex).
		SetHoppingConfigMode(c.HoppingConfigMode).
		SetHoppingSequence(c.HoppingSequence)
	b.cfg = c
	return b
}

// OpenRangingBuilder assembles an OpenRangingParams.
type OpenRangingBuilder struct {
	protocol          string
	cfg               OpenRangingConfig
	protocolVersion   params.Required[params.ProtocolVersion]
	pulseShapeCombo   params.Required[PulseShapeCombo]
	sessionID         params.Required[uint32]
	uwbConfig         params.Required[int]
	ranMultiplier     params.Required[int]
	channel           params.Required[int]
	numChapsPerSlot   params.Required[int]
	numResponderNodes params.Required[int]
	numSlotsPerRound  params.Required[int]
	syncCodeIndex     params.Required[int]
	hoppingMode       params.Required[int]
	hoppingSequence   params.Required[int]
}

// NewOpenRangingBuilder returns a CCC builder.
func NewOpenRangingBuilder() *OpenRangingBuilder {
	return NewOpenRangingBuilderFor(params.ProtocolCcc)
}

// NewOpenRangingBuilderFor returns a builder producing parameters tagged
// with protocol, which must be ccc or aliro.
func NewOpenRangingBuilderFor(protocol string) *OpenRangingBuilder {
	return &OpenRangingBuilder{
		protocol: protocol,
		cfg: OpenRangingConfig{
			Notification: params.DefaultNotificationBounds(params.NtfEnable),
		},
	}
}

func (b *OpenRangingBuilder) SetProtocolVersion(v params.ProtocolVersion) *OpenRangingBuilder {
	b.protocolVersion.Set(v)
	return b
}

func (b *OpenRangingBuilder) SetUwbConfig(c int) *OpenRangingBuilder {
	b.uwbConfig.Set(c)
	return b
}

func (b *OpenRangingBuilder) SetPulseShapeCombo(c PulseShapeCombo) *OpenRangingBuilder {
	b.pulseShapeCombo.Set(c)
	return b
}

func (b *OpenRangingBuilder) SetSessionID(id uint32) *OpenRangingBuilder {
	b.sessionID.Set(id)
	return b
}

func (b *OpenRangingBuilder) SetRanMultiplier(m int) *OpenRangingBuilder {
	b.ranMultiplier.Set(m)
	return b
}

func (b *OpenRangingBuilder) SetChannel(ch int) *OpenRangingBuilder {
	b.channel.Set(ch)
	return b
}

func (b *OpenRangingBuilder) SetNumChapsPerSlot(n int) *OpenRangingBuilder {
	b.numChapsPerSlot.Set(n)
	return b
}

func (b *OpenRangingBuilder) SetNumResponderNodes(n int) *OpenRangingBuilder {
	b.numResponderNodes.Set(n)
	return b
}

func (b *OpenRangingBuilder) SetNumSlotsPerRound(n int) *OpenRangingBuilder {
	b.numSlotsPerRound.Set(n)
	return b
}

func (b *OpenRangingBuilder) SetSyncCodeIndex(i int) *OpenRangingBuilder {
	b.syncCodeIndex.Set(i)
	return b
}

func (b *OpenRangingBuilder) SetHoppingConfigMode(m int) *OpenRangingBuilder {
	b.hoppingMode.Set(m)
	return b
}

func (b *OpenRangingBuilder) SetHoppingSequence(s int) *OpenRangingBuilder {
	b.hoppingSequence.Set(s)
	return b
}

func (b *OpenRangingBuilder) SetStsIndex(i int) *OpenRangingBuilder {
	b.cfg.StsIndex = i
	return b
}

func (b *OpenRangingBuilder) SetLastStsIndexUsed(i int) *OpenRangingBuilder {
	b.cfg.LastStsIndexUsed = i
	return b
}

func (b *OpenRangingBuilder) SetInitiationTimeMs(ms uint32) *OpenRangingBuilder {
	b.cfg.InitiationTimeMs = ms
	return b
}

// SetAbsoluteInitiationTimeUs sets the absolute start time, used instead of
// the relative one by radios speaking UCI 2.0 or later.
func (b *OpenRangingBuilder) SetAbsoluteInitiationTimeUs(us uint64) *OpenRangingBuilder {
	b.cfg.AbsoluteInitiationTimeUs = us
	return b
}

// SetNotification replaces the notification mode and bounds.
func (b *OpenRangingBuilder) SetNotification(n params.NotificationBounds) *OpenRangingBuilder {
	b.cfg.Notification = n
	return b
}

// Build validates the fields.
func (b *OpenRangingBuilder) Build() (*OpenRangingParams, error) {
	if b.protocol != params.ProtocolCcc && b.protocol != params.ProtocolAliro {
		return nil, params.Invalidf("open ranging parameters for unknown protocol %q", b.protocol)
	}
	err := params.CheckRequired(
		params.Need("protocol_version", &b.protocolVersion),
		params.Need("uwb_config", &b.uwbConfig),
		params.Need("pulse_shape_combo", &b.pulseShapeCombo),
		params.Need("session_id", &b.sessionID),
		params.Need("ran_multiplier", &b.ranMultiplier),
		params.Need("channel", &b.channel),
		params.Need("num_chaps_per_slot", &b.numChapsPerSlot),
		params.Need("num_responder_nodes", &b.numResponderNodes),
		params.Need("num_slots_per_round", &b.numSlotsPerRound),
		params.Need("sync_code_index", &b.syncCodeIndex),
		params.Need("hopping_config_mode", &b.hoppingMode),
		params.Need("hopping_sequence", &b.hoppingSequence),
	)
	if err != nil {
		return nil, err
	}

	c := b.cfg
	c.ProtocolVersion = b.protocolVersion.Value()
	c.UwbConfig = b.uwbConfig.Value()
	c.PulseShapeCombo = b.pulseShapeCombo.Value()
	c.SessionID = b.sessionID.Value()
	c.RanMultiplier = b.ranMultiplier.Value()
	c.Channel = b.channel.Value()
	c.NumChapsPerSlot = b.numChapsPerSlot.Value()
	c.NumResponderNodes = b.numResponderNodes.Value()
	c.NumSlotsPerRound = b.numSlotsPerRound.Value()
	c.SyncCodeIndex = b.syncCodeIndex.Value()
	c.HoppingConfigMode = b.hoppingMode.Value()
	c.HoppingSequence = b.hoppingSequence.Value()

	if err := ValidateCommon(c.Channel, c.NumChapsPerSlot, c.SyncCodeIndex,
		c.HoppingConfigMode, c.HoppingSequence, c.RanMultiplier); err != nil {
		return nil, err
	}
	if c.UwbConfig != UwbConfig0 && c.UwbConfig != UwbConfig1 {
		return nil, params.Invalidf("unknown UWB config %d", c.UwbConfig)
	}
	if c.NumResponderNodes < 1 || c.NumResponderNodes > 0xFF {
		return nil, params.Invalidf("responder node count %d outside 1..255", c.NumResponderNodes)
	}
	if c.NumSlotsPerRound < 1 || c.NumSlotsPerRound > 0xFF {
		return nil, params.Invalidf("slots per round %d outside 1..255", c.NumSlotsPerRound)
	}
	if err := c.Notification.Validate(); err != nil {
		return nil, err
	}
	return &OpenRangingParams{cfg: c, protocol: b.protocol}, nil
}

// ToBundle implements params.Params.
func (p *OpenRangingParams) ToBundle() params.Bundle {
	c := p.cfg
	b := params.NewBundle(p.protocol, OpenRangingBundleVersion)
	b[params.KeyProtocolVersion] = c.ProtocolVersion.String()
	b[keyUwbConfig] = c.UwbConfig
	b[keyPulseShapeCombo] = FormatPulseShapeCombo(p.protocol, c.PulseShapeCombo)
	b[params.KeySessionID] = int64(c.SessionID)
	b[params.KeySessionType] = p.SessionType()
	b[keyRanMultiplier] = c.RanMultiplier
	b[params.KeyChannel] = c.Channel
	b[keyNumChapsPerSlot] = c.NumChapsPerSlot
	b[keyNumResponderNodes] = c.NumResponderNodes
	b[keyNumSlotsPerRound] = c.NumSlotsPerRound
	b[keySyncCodeIndex] = c.SyncCodeIndex
	b[keyHoppingConfigMode] = c.HoppingConfigMode
	b[keyHoppingSequence] = c.HoppingSequence
	b[keyStsIndex] = c.StsIndex
	b[keyLastStsIndexUsed] = c.LastStsIndexUsed
	b[keyInitiationTimeMs] = int64(c.InitiationTimeMs)
	b[keyAbsoluteInitTimeUs] = int64(c.AbsoluteInitiationTimeUs)
	c.Notification.WriteBundle(b)
	return b
}

// OpenRangingFromBundle parses a CCC or ALIRO bundle written by ToBundle.
func OpenRangingFromBundle(bundle params.Bundle) (*OpenRangingParams, error) {
	protocol := bundle.ProtocolName()
	if protocol != params.ProtocolAliro {
		protocol = params.ProtocolCcc
	}
	if err := bundle.CheckHeader(protocol, OpenRangingBundleVersion); err != nil {
		return nil, err
	}
	r := params.NewReader(bundle)
	combo, err := ParsePulseShapeCombo(protocol, r.String(keyPulseShapeCombo, ""))
	if err != nil {
		return nil, err
	}
	b := NewOpenRangingBuilderFor(protocol).
		SetProtocolVersion(r.Version(params.KeyProtocolVersion, ProtocolVersion1)).
		SetUwbConfig(r.Int(keyUwbConfig)).
		SetPulseShapeCombo(combo).
		SetSessionID(uint32(r.Int64(params.KeySessionID))).
		SetRanMultiplier(r.Int(keyRanMultiplier)).
		SetChannel(r.Int(params.KeyChannel)).
		SetNumChapsPerSlot(r.Int(keyNumChapsPerSlot)).
		SetNumResponderNodes(r.Int(keyNumResponderNodes)).
		SetNumSlotsPerRound(r.Int(keyNumSlotsPerRound)).
		SetSyncCodeIndex(r.Int(keySyncCodeIndex)).
		SetHoppingConfigMode(r.Int(keyHoppingConfigMode)).
		SetHoppingSequence(r.Int(keyHoppingSequence)).
		SetStsIndex(r.IntOr(keyStsIndex, 0)).
		SetLastStsIndexUsed(r.IntOr(keyLastStsIndexUsed, 0)).
		SetInitiationTimeMs(uint32(r.Int64Or(keyInitiationTimeMs, 0))).
		SetAbsoluteInitiationTimeUs(uint64(r.Int64Or(keyAbsoluteInitTimeUs, 0))).
		SetNotification(params.ReadNotificationBounds(r, params.NtfEnable))
	if err := r.Err(); err != nil {
		return nil, err
	}
	return b.Build()
}
