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
	"github.com/ZaparooProject/go-uwb/params/radar"
	"github.com/ZaparooProject/go-uwb/tlv"
)

func init() {
	Register(params.ProtocolGeneric, tlv.Short, nil, DecoderFunc(decodeGeneric))
}

// GenericSpecificationBundleVersion is the bundle schema of
// GenericSpecification.
const GenericSpecificationBundleVersion = 1

// GenericSpecification is the decoded capability report of a radio. A nil
// member means the radio did not report that protocol.
type GenericSpecification struct {
	Fira  *fira.SpecificationParams
	Ccc   *ccc.SpecificationParams
	Aliro *ccc.SpecificationParams
	Radar *radar.SpecificationParams
}

func (*GenericSpecification) ProtocolName() string { return params.ProtocolGeneric }

func (*GenericSpecification) BundleVersion() int { return GenericSpecificationBundleVersion }

// ToBundle nests each reported protocol under its protocol name.
func (g *GenericSpecification) ToBundle() params.Bundle {
	b := params.NewBundle(params.ProtocolGeneric, GenericSpecificationBundleVersion)
	if g.Fira != nil {
		b[params.ProtocolFira] = g.Fira.ToBundle()
	}
	if g.Ccc != nil {
		b[params.ProtocolCcc] = g.Ccc.ToBundle()
	}
	if g.Aliro != nil {
		b[params.ProtocolAliro] = g.Aliro.ToBundle()
	}
	if g.Radar != nil {
		b[params.ProtocolRadar] = g.Radar.ToBundle()
	}
	return b
}

func nestedBundle(b params.Bundle, key string) (params.Bundle, bool) {
	switch v := b[key].(type) {
	case params.Bundle:
		return v, true
	case map[string]any:
		return params.Bundle(v), true
	}
	return nil, false
}

// GenericSpecificationFromBundle parses a bundle written by ToBundle.
func GenericSpecificationFromBundle(b params.Bundle) (*GenericSpecification, error) {
	if err := b.CheckHeader(params.ProtocolGeneric, GenericSpecificationBundleVersion); err != nil {
		return nil, err
	}
	g := &GenericSpecification{}
	var err error
	if nb, ok := nestedBundle(b, params.ProtocolFira); ok {
		if g.Fira, err = fira.SpecificationFromBundle(nb); err != nil {
			return nil, err
		}
	}
	if nb, ok := nestedBundle(b, params.ProtocolCcc); ok {
		if g.Ccc, err = ccc.SpecificationFromBundle(nb); err != nil {
			return nil, err
		}
	}
	if nb, ok := nestedBundle(b, params.ProtocolAliro); ok {
		if g.Aliro, err = aliro.SpecificationFromBundle(nb); err != nil {
			return nil, err
		}
	}
	if nb, ok := nestedBundle(b, params.ProtocolRadar); ok {
		if g.Radar, err = radar.SpecificationFromBundle(nb); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func hasAnyTag(d *tlv.Decoded, first, last byte) bool {
	for t := int(first); t <= int(last); t++ {
		if d.Has(byte(t)) {
			return true
		}
	}
	return false
}

func decodeGeneric(d *tlv.Decoded, target Target, version params.ProtocolVersion) (params.Params, error) {
	if target != TargetSpecification {
		return nil, unsupportedTarget(params.ProtocolGeneric, target)
	}
	g := &GenericSpecification{}
	if hasAnyTag(d, fira.CapTagPhyVersionRange, fira.CapTagMaxDataPacketPayloadSz) {
		g.Fira = decodeFiraSpecification(d)
	}
	for _, sub := range []struct {
		dst      **ccc.SpecificationParams
		protocol string
	}{
		{&g.Ccc, params.ProtocolCcc},
		{&g.Aliro, params.ProtocolAliro},
	} {
		if !hasAnyTag(d, capTag(sub.protocol, ccc.CapTagSlotBitmask), capTag(sub.protocol, ccc.CapTagMinRanMultiplier)) {
			continue
		}
		s, err := decodeCccSpecification(d, sub.protocol)
		if err != nil {
			return nil, decodeFailure(params.ProtocolGeneric, err)
		}
		*sub.dst = s
	}
	if d.Has(radar.CapTagRadarSupport) {
		g.Radar = decodeRadarSpecification(d)
	}
	return g, nil
}

// Capabilities encodes g as one capability report, the inverse of the
// generic specification decoder.
func Capabilities(g *GenericSpecification) []byte {
	var out []byte
	if g.Fira != nil {
		out = append(out, FiraCapabilities(g.Fira).Bytes()...)
	}
	if g.Ccc != nil {
		out = append(out, CccCapabilities(g.Ccc).Bytes()...)
	}
	if g.Aliro != nil {
		out = append(out, CccCapabilities(g.Aliro).Bytes()...)
	}
	if g.Radar != nil {
		out = append(out, RadarCapabilities(g.Radar).Bytes()...)
	}
	return out
}
