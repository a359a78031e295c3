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
	"encoding/binary"

	"github.com/ZaparooProject/go-uwb/params"
	"github.com/ZaparooProject/go-uwb/params/radar"
	"github.com/ZaparooProject/go-uwb/tlv"
)

func init() {
	Register(params.ProtocolRadar, tlv.Wide, EncoderFunc(encodeRadar), DecoderFunc(decodeRadar))
}

// radarTiming packs burst period, sweep period and sweeps per burst.
func radarTiming(c radar.OpenSessionConfig) []byte {
	out := binary.LittleEndian.AppendUint32(nil, c.BurstPeriodMs)
	out = binary.LittleEndian.AppendUint16(out, c.SweepPeriodRstu)
	return append(out, c.SweepsPerBurst)
}

func encodeRadar(p params.Params, _ params.ProtocolVersion) (*tlv.Buffer, error) {
	v, ok := p.(*radar.OpenSessionParams)
	if !ok {
		return nil, unsupportedParams(params.ProtocolRadar, p)
	}
	c := v.Config()
	buf := tlv.NewBuffer(tlv.Wide)
	buf.PutBytes(radar.TagRadarTimingParams, radarTiming(c)).
		PutByte(radar.TagSamplesPerSweep, c.SamplesPerSweep).
		PutByte(radar.TagChannelNumber, c.Channel).
		PutUint16(radar.TagSweepOffset, c.SweepOffset).
		PutByte(radar.TagRframeConfig, c.RframeConfig).
		PutByte(radar.TagPreambleDuration, c.PreambleDuration).
		PutByte(radar.TagPreambleCodeIndex, c.PreambleCodeIndex).
		PutByte(radar.TagSessionPriority, c.SessionPriority).
		PutByte(radar.TagBitsPerSample, c.BitsPerSample).
		PutByte(radar.TagPrfMode, c.PrfMode).
		PutUint16(radar.TagNumberOfBursts, c.NumberOfBursts).
		PutByte(radar.TagRadarDataType, c.RadarDataType)
	if err := buf.Err(); err != nil {
		return nil, err
	}
	return buf, nil
}

// decodeRadar handles open sessions in the two byte length layout. Radar
// capabilities arrive inside the one byte length capability report, so
// the specification target works on whatever the caller parsed.
func decodeRadar(d *tlv.Decoded, target Target, _ params.ProtocolVersion) (params.Params, error) {
	switch target {
	case TargetOpenSession:
		c := radar.DefaultOpenSessionConfig()
		if timing := bytesOr(d, radar.TagRadarTimingParams); timing != nil {
			if len(timing) != 7 {
				return nil, decodeFailure(params.ProtocolRadar,
					&tlv.FormatError{Op: "radar timing", Got: len(timing), Want: []int{7}})
			}
			c.BurstPeriodMs = binary.LittleEndian.Uint32(timing)
			c.SweepPeriodRstu = binary.LittleEndian.Uint16(timing[4:])
			c.SweepsPerBurst = timing[6]
		}
		c.SamplesPerSweep = byteOr(d, radar.TagSamplesPerSweep, c.SamplesPerSweep)
		c.Channel = byteOr(d, radar.TagChannelNumber, c.Channel)
		c.SweepOffset = uint16Or(d, radar.TagSweepOffset, c.SweepOffset)
		c.RframeConfig = byteOr(d, radar.TagRframeConfig, c.RframeConfig)
		c.PreambleDuration = byteOr(d, radar.TagPreambleDuration, c.PreambleDuration)
		c.PreambleCodeIndex = byteOr(d, radar.TagPreambleCodeIndex, c.PreambleCodeIndex)
		c.SessionPriority = byteOr(d, radar.TagSessionPriority, c.SessionPriority)
		c.BitsPerSample = byteOr(d, radar.TagBitsPerSample, c.BitsPerSample)
		c.PrfMode = byteOr(d, radar.TagPrfMode, c.PrfMode)
		c.NumberOfBursts = uint16Or(d, radar.TagNumberOfBursts, c.NumberOfBursts)
		c.RadarDataType = byteOr(d, radar.TagRadarDataType, c.RadarDataType)
		p, err := radar.NewOpenSessionParams(c)
		if err != nil {
			return nil, decodeFailure(params.ProtocolRadar, err)
		}
		return p, nil
	case TargetSpecification:
		return decodeRadarSpecification(d), nil
	default:
		return nil, unsupportedTarget(params.ProtocolRadar, target)
	}
}

func decodeRadarSpecification(d *tlv.Decoded) *radar.SpecificationParams {
	s := &radar.SpecificationParams{}
	mask := byteOr(d, radar.CapTagRadarSupport, 0)
	for i := uint8(0); i < 8; i++ {
		if mask&(1<<i) != 0 {
			s.DataTypes = append(s.DataTypes, i)
		}
	}
	return s
}

// RadarCapabilities encodes a radar specification as a capability record.
func RadarCapabilities(s *radar.SpecificationParams) *tlv.Buffer {
	var mask byte
	for _, t := range s.DataTypes {
		if t < 8 {
			mask |= 1 << t
		}
	}
	return tlv.NewBuffer(tlv.Short).PutByte(radar.CapTagRadarSupport, mask)
}
