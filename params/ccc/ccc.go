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

// Package ccc defines the Car Connectivity Consortium digital key ranging
// parameters.
package ccc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ZaparooProject/go-uwb/params"
)

// SessionType is the vendor session type used for CCC sessions.
const SessionType = 0xA0

// UWB configuration ids.
const (
	UwbConfig0 = 0x0000
	UwbConfig1 = 0x0001
)

// Pulse shapes.
const (
	PulseShapeSymmetricalRootRaisedCosine = 0x0
	PulseShapePrecursorFree               = 0x1
	PulseShapePrecursorFreeSpecial        = 0x2
)

// Hopping config modes and sequences.
const (
	HoppingConfigModeNone       = 0
	HoppingConfigModeContinuous = 1
	HoppingConfigModeAdaptive   = 2

	HoppingSequenceDefault = 0
	HoppingSequenceAes     = 1
)

// Channels usable by CCC.
const (
	Channel5 = 5
	Channel9 = 9
)

// ChapsPerSlotValues lists the slot durations, in chaps, in capability bit
// order.
var ChapsPerSlotValues = []int{3, 4, 6, 8, 9, 12, 24}

// ProtocolVersion1 is the only CCC protocol major version in use.
var ProtocolVersion1 = params.Version(1, 0)

// PulseShapeCombo is the pair of initiator and responder pulse shapes.
type PulseShapeCombo struct {
	InitiatorTx int
	ResponderTx int
}

// Byte packs the combo as initiator<<4 | responder.
func (c PulseShapeCombo) Byte() byte {
	return byte(c.InitiatorTx&0x0F)<<4 | byte(c.ResponderTx&0x0F)
}

// PulseShapeComboFromByte unpacks Byte.
func PulseShapeComboFromByte(b byte) PulseShapeCombo {
	return PulseShapeCombo{InitiatorTx: int(b >> 4), ResponderTx: int(b & 0x0F)}
}

// FormatPulseShapeCombo renders the combo as "1.<protocol>.<i>.<r>".
func FormatPulseShapeCombo(protocol string, c PulseShapeCombo) string {
	return fmt.Sprintf("1.%s.%d.%d", protocol, c.InitiatorTx, c.ResponderTx)
}

// ParsePulseShapeCombo is the inverse of FormatPulseShapeCombo.
func ParsePulseShapeCombo(protocol, s string) (PulseShapeCombo, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 || parts[0] != "1" {
		return PulseShapeCombo{}, params.Invalidf("malformed pulse shape combo %q", s)
	}
	if parts[1] != protocol {
		return PulseShapeCombo{}, params.Invalidf("pulse shape combo %q is not for %s", s, protocol)
	}
	i, err := strconv.Atoi(parts[2])
	if err != nil {
		return PulseShapeCombo{}, params.Invalidf("malformed pulse shape combo %q", s)
	}
	r, err := strconv.Atoi(parts[3])
	if err != nil {
		return PulseShapeCombo{}, params.Invalidf("malformed pulse shape combo %q", s)
	}
	return PulseShapeCombo{InitiatorTx: i, ResponderTx: r}, nil
}

// HoppingModeByte returns the HOPPING_MODE app config value for a config
// mode and sequence.
func HoppingModeByte(mode, sequence int) byte {
	var b byte
	switch mode {
	case HoppingConfigModeContinuous:
		b = 0xA0
	case HoppingConfigModeAdaptive:
		b = 0xB0
	default:
		return 0
	}
	if sequence == HoppingSequenceAes {
		b |= 0x08
	}
	return b
}

// HoppingFromByte is the inverse of HoppingModeByte.
func HoppingFromByte(b byte) (mode, sequence int) {
	switch b & 0xF0 {
	case 0xA0:
		mode = HoppingConfigModeContinuous
	case 0xB0:
		mode = HoppingConfigModeAdaptive
	default:
		return HoppingConfigModeNone, HoppingSequenceDefault
	}
	if b&0x08 != 0 {
		sequence = HoppingSequenceAes
	}
	return mode, sequence
}

// Application configuration tags specific to CCC and ALIRO.
const (
	TagHopModeKey         = 0xA0
	TagUwbTime0           = 0xA1
	TagRangingProtocolVer = 0xA3
	TagUwbConfigID        = 0xA4
	TagPulseShapeCombo    = 0xA5
	TagUrskTTL            = 0xA6
	TagLastStsIndexUsed   = 0xA8
)

// Capability tags.
const (
	CapTagSlotBitmask          = 0xA0
	CapTagSyncCodeIndexBitmask = 0xA1
	CapTagHoppingConfigBitmask = 0xA2
	CapTagChannelBitmask       = 0xA3
	CapTagProtocolVersions     = 0xA4
	CapTagUwbConfigs           = 0xA5
	CapTagPulseShapeCombos     = 0xA6
	CapTagMinRanMultiplier     = 0xA7
)

// Hopping capability bits.
const (
	CapHoppingNone       = 0x80
	CapHoppingContinuous = 0x40
	CapHoppingAdaptive   = 0x20
	CapHoppingAes        = 0x10
	CapHoppingDefault    = 0x08
)

// DefaultUrskTTL is the URSK time-to-live, in minutes, sent with every
// session.
const DefaultUrskTTL = 0x2D0

// ChapsPerSlotRstu is the RSTU length of one chap.
const ChapsPerSlotRstu = 400

// RangingIntervalUnitMs converts the RAN multiplier to milliseconds.
const RangingIntervalUnitMs = 96

func validSyncCode(i int) bool { return i >= 1 && i <= 32 }

func validChaps(n int) bool {
	for _, v := range ChapsPerSlotValues {
		if v == n {
			return true
		}
	}
	return false
}

// ValidateCommon checks the fields CCC and ALIRO open requests share.
func ValidateCommon(channel, chapsPerSlot, syncCodeIndex, hoppingMode, hoppingSequence, ranMultiplier int) error {
	if channel != Channel5 && channel != Channel9 {
		return params.Invalidf("invalid channel %d", channel)
	}
	if !validChaps(chapsPerSlot) {
		return params.Invalidf("invalid chaps per slot %d", chapsPerSlot)
	}
	if !validSyncCode(syncCodeIndex) {
		return params.Invalidf("sync code index %d outside 1..32", syncCodeIndex)
	}
	if hoppingMode < HoppingConfigModeNone || hoppingMode > HoppingConfigModeAdaptive {
		return params.Invalidf("invalid hopping config mode %d", hoppingMode)
	}
	if hoppingSequence != HoppingSequenceDefault && hoppingSequence != HoppingSequenceAes {
		return params.Invalidf("invalid hopping sequence %d", hoppingSequence)
	}
	if ranMultiplier < 1 || ranMultiplier > 0xFF {
		return params.Invalidf("RAN multiplier %d outside 1..255", ranMultiplier)
	}
	return nil
}
