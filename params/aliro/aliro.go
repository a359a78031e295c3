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

// Package aliro defines the ALIRO access-control ranging parameters. ALIRO
// reuses the CCC field set and wire layout; the types here tag that shape
// with the aliro protocol name so the codec registry and bundles keep the
// two apart.
package aliro

import (
	"github.com/ZaparooProject/go-uwb/params"
	"github.com/ZaparooProject/go-uwb/params/ccc"
)

// SessionType is the vendor session type used for ALIRO sessions.
const SessionType = 0xA2

// CapTagOffset shifts the CCC capability tags into the range ALIRO radios
// report them in, so both can share one capability record.
const CapTagOffset = 0x40

// ProtocolVersion1 is the ALIRO protocol version in use.
var ProtocolVersion1 = params.Version(1, 0)

type (
	// OpenRangingParams is an ALIRO open ranging request.
	OpenRangingParams = ccc.OpenRangingParams
	// OpenRangingBuilder assembles ALIRO open ranging requests.
	OpenRangingBuilder = ccc.OpenRangingBuilder
	// SpecificationParams lists what an ALIRO radio supports.
	SpecificationParams = ccc.SpecificationParams
	// PulseShapeCombo is the initiator and responder pulse shape pair.
	PulseShapeCombo = ccc.PulseShapeCombo
)

// NewOpenRangingBuilder returns a builder for ALIRO parameters.
func NewOpenRangingBuilder() *OpenRangingBuilder {
	return ccc.NewOpenRangingBuilderFor(params.ProtocolAliro)
}

// NewSpecification returns an empty ALIRO specification.
func NewSpecification() *SpecificationParams {
	return ccc.NewSpecification(params.ProtocolAliro)
}

// FormatPulseShapeCombo renders c as "1.aliro.<initiator>.<responder>".
func FormatPulseShapeCombo(c PulseShapeCombo) string {
	return ccc.FormatPulseShapeCombo(params.ProtocolAliro, c)
}

// ParsePulseShapeCombo parses the "1.aliro.i.r" form.
func ParsePulseShapeCombo(s string) (PulseShapeCombo, error) {
	return ccc.ParsePulseShapeCombo(params.ProtocolAliro, s)
}

// OpenRangingFromBundle parses an ALIRO open ranging bundle.
func OpenRangingFromBundle(b params.Bundle) (*OpenRangingParams, error) {
	if err := b.CheckHeader(params.ProtocolAliro, ccc.OpenRangingBundleVersion); err != nil {
		return nil, err
	}
	return ccc.OpenRangingFromBundle(b)
}

// SpecificationFromBundle parses an ALIRO specification bundle.
func SpecificationFromBundle(b params.Bundle) (*SpecificationParams, error) {
	if err := b.CheckHeader(params.ProtocolAliro, ccc.SpecificationBundleVersion); err != nil {
		return nil, err
	}
	return ccc.SpecificationFromBundle(b)
}
