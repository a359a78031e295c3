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

// Bundle versions of the smaller CCC objects.
const (
	StartRangingBundleVersion   = 1
	RangingStartedBundleVersion = 1
	RangingErrorBundleVersion   = 1
)

// StartRangingParams restarts a previously opened session with a new RAN
// multiplier and start time.
type StartRangingParams struct {
	AbsoluteInitiationTimeUs uint64
	SessionID                uint32
	InitiationTimeMs         uint32
	RanMultiplier            int
}

// NewStartRangingParams validates the fields.
func NewStartRangingParams(p StartRangingParams) (*StartRangingParams, error) {
	if p.RanMultiplier < 1 || p.RanMultiplier > 0xFF {
		return nil, params.Invalidf("RAN multiplier %d outside 1..255", p.RanMultiplier)
	}
	return &p, nil
}

func (*StartRangingParams) ProtocolName() string { return params.ProtocolCcc }
func (*StartRangingParams) BundleVersion() int   { return StartRangingBundleVersion }

func (p *StartRangingParams) ToBundle() params.Bundle {
	b := params.NewBundle(params.ProtocolCcc, StartRangingBundleVersion)
	b[params.KeySessionID] = int64(p.SessionID)
	b[keyRanMultiplier] = p.RanMultiplier
	b[keyInitiationTimeMs] = int64(p.InitiationTimeMs)
	b[keyAbsoluteInitTimeUs] = int64(p.AbsoluteInitiationTimeUs)
	return b
}

// StartRangingFromBundle parses a bundle written by ToBundle.
func StartRangingFromBundle(bundle params.Bundle) (*StartRangingParams, error) {
	if err := bundle.CheckHeader(params.ProtocolCcc, StartRangingBundleVersion); err != nil {
		return nil, err
	}
	r := params.NewReader(bundle)
	p := StartRangingParams{
		SessionID:                uint32(r.Int64(params.KeySessionID)),
		RanMultiplier:            r.Int(keyRanMultiplier),
		InitiationTimeMs:         uint32(r.Int64Or(keyInitiationTimeMs, 0)),
		AbsoluteInitiationTimeUs: uint64(r.Int64Or(keyAbsoluteInitTimeUs, 0)),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return NewStartRangingParams(p)
}

// RangingStartedParams is what the radio reports once a CCC session has
// started: the negotiated hop key, STS index and UWB time base.
type RangingStartedParams struct {
	UwbTime0         uint64
	HopModeKey       uint32
	StartingStsIndex uint32
	SyncCodeIndex    int
	RanMultiplier    int
}

func (*RangingStartedParams) ProtocolName() string { return params.ProtocolCcc }
func (*RangingStartedParams) BundleVersion() int   { return RangingStartedBundleVersion }

func (p *RangingStartedParams) ToBundle() params.Bundle {
	b := params.NewBundle(params.ProtocolCcc, RangingStartedBundleVersion)
	b[keyHopModeKey] = int64(p.HopModeKey)
	b[keyStartingStsIndex] = int64(p.StartingStsIndex)
	b[keySyncCodeIndex] = p.SyncCodeIndex
	b[keyUwbTime0] = int64(p.UwbTime0)
	b[keyRanMultiplier] = p.RanMultiplier
	return b
}

// RangingStartedFromBundle parses a bundle written by ToBundle.
func RangingStartedFromBundle(bundle params.Bundle) (*RangingStartedParams, error) {
	if err := bundle.CheckHeader(params.ProtocolCcc, RangingStartedBundleVersion); err != nil {
		return nil, err
	}
	r := params.NewReader(bundle)
	p := &RangingStartedParams{
		HopModeKey:       uint32(r.Int64(keyHopModeKey)),
		StartingStsIndex: uint32(r.Int64(keyStartingStsIndex)),
		SyncCodeIndex:    r.Int(keySyncCodeIndex),
		UwbTime0:         uint64(r.Int64(keyUwbTime0)),
		RanMultiplier:    r.Int(keyRanMultiplier),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

// Ranging error codes.
const (
	RangingErrorUnknown      = 0
	RangingErrorBadParams    = 1
	RangingErrorFailedToStop = 2
)

// RangingError reports why a CCC session failed.
type RangingError struct {
	Code int
}

func (*RangingError) ProtocolName() string { return params.ProtocolCcc }
func (*RangingError) BundleVersion() int   { return RangingErrorBundleVersion }

func (e *RangingError) ToBundle() params.Bundle {
	b := params.NewBundle(params.ProtocolCcc, RangingErrorBundleVersion)
	b[keyError] = e.Code
	return b
}

// RangingErrorFromBundle parses a bundle written by ToBundle.
func RangingErrorFromBundle(bundle params.Bundle) (*RangingError, error) {
	if err := bundle.CheckHeader(params.ProtocolCcc, RangingErrorBundleVersion); err != nil {
		return nil, err
	}
	r := params.NewReader(bundle)
	e := &RangingError{Code: r.IntOr(keyError, RangingErrorUnknown)}
	return e, r.Err()
}
