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
	"slices"

	"github.com/ZaparooProject/go-uwb/params"
)

// SpecificationBundleVersion is the bundle schema of SpecificationParams.
const SpecificationBundleVersion = 1

// SpecificationParams lists the CCC options a radio supports. ALIRO radios
// report the same shape.
type SpecificationParams struct {
	ProtocolVersions   []params.ProtocolVersion
	UwbConfigs         []int
	PulseShapeCombos   []PulseShapeCombo
	ChapsPerSlot       []int
	SyncCodes          []int
	Channels           []int
	HoppingConfigModes []int
	HoppingSequences   []int
	RanMultiplier      int
	protocol           string
}

// NewSpecification returns an empty specification for ccc or aliro.
func NewSpecification(protocol string) *SpecificationParams {
	return &SpecificationParams{protocol: protocol}
}

func (s *SpecificationParams) ProtocolName() string {
	if s.protocol == "" {
		return params.ProtocolCcc
	}
	return s.protocol
}

func (*SpecificationParams) BundleVersion() int { return SpecificationBundleVersion }

// Supports reports whether an open request fits inside what the radio
// advertised.
func (s *SpecificationParams) Supports(p *OpenRangingParams) bool {
	c := p.Config()
	return slices.Contains(s.ProtocolVersions, c.ProtocolVersion) &&
		slices.Contains(s.UwbConfigs, c.UwbConfig) &&
		slices.Contains(s.PulseShapeCombos, c.PulseShapeCombo) &&
		slices.Contains(s.ChapsPerSlot, c.NumChapsPerSlot) &&
		slices.Contains(s.SyncCodes, c.SyncCodeIndex) &&
		slices.Contains(s.Channels, c.Channel) &&
		slices.Contains(s.HoppingConfigModes, c.HoppingConfigMode) &&
		slices.Contains(s.HoppingSequences, c.HoppingSequence)
}

func intsToInt64s(in []int) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

func int64sToInts(in []int64) []int {
	if len(in) == 0 {
		return nil
	}
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}

func (s *SpecificationParams) ToBundle() params.Bundle {
	protocol := s.ProtocolName()
	b := params.NewBundle(protocol, SpecificationBundleVersion)
	versions := make([]any, len(s.ProtocolVersions))
	for i, v := range s.ProtocolVersions {
		versions[i] = v.String()
	}
	combos := make([]any, len(s.PulseShapeCombos))
	for i, c := range s.PulseShapeCombos {
		combos[i] = FormatPulseShapeCombo(protocol, c)
	}
	b["protocol_versions"] = versions
	b["uwb_configs"] = intsToInt64s(s.UwbConfigs)
	b["pulse_shape_combos"] = combos
	b[keyRanMultiplier] = s.RanMultiplier
	b["chaps_per_slot"] = intsToInt64s(s.ChapsPerSlot)
	b["sync_codes"] = intsToInt64s(s.SyncCodes)
	b["channels"] = intsToInt64s(s.Channels)
	b["hopping_config_modes"] = intsToInt64s(s.HoppingConfigModes)
	b["hopping_sequences"] = intsToInt64s(s.HoppingSequences)
	return b
}

// SpecificationFromBundle parses a bundle written by ToBundle.
func SpecificationFromBundle(bundle params.Bundle) (*SpecificationParams, error) {
	protocol := bundle.ProtocolName()
	if protocol != params.ProtocolAliro {
		protocol = params.ProtocolCcc
	}
	if err := bundle.CheckHeader(protocol, SpecificationBundleVersion); err != nil {
		return nil, err
	}
	r := params.NewReader(bundle)
	s := NewSpecification(protocol)

	strs, err := stringList(bundle, "protocol_versions")
	if err != nil {
		return nil, err
	}
	for _, v := range strs {
		pv, err := params.ParseVersion(v)
		if err != nil {
			return nil, err
		}
		s.ProtocolVersions = append(s.ProtocolVersions, pv)
	}
	strs, err = stringList(bundle, "pulse_shape_combos")
	if err != nil {
		return nil, err
	}
	for _, v := range strs {
		c, err := ParsePulseShapeCombo(protocol, v)
		if err != nil {
			return nil, err
		}
		s.PulseShapeCombos = append(s.PulseShapeCombos, c)
	}
	s.UwbConfigs = int64sToInts(r.Int64s("uwb_configs"))
	s.RanMultiplier = r.IntOr(keyRanMultiplier, 0)
	s.ChapsPerSlot = int64sToInts(r.Int64s("chaps_per_slot"))
	s.SyncCodes = int64sToInts(r.Int64s("sync_codes"))
	s.Channels = int64sToInts(r.Int64s("channels"))
	s.HoppingConfigModes = int64sToInts(r.Int64s("hopping_config_modes"))
	s.HoppingSequences = int64sToInts(r.Int64s("hopping_sequences"))
	if err := r.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func stringList(b params.Bundle, key string) ([]string, error) {
	switch v := b[key].(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, len(v))
		for i, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, params.Invalidf("bundle key %q: element %d is %T", key, i, e)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, params.Invalidf("bundle key %q: not a string list", key)
	}
}
