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

// ReconfigureBundleVersion is the bundle schema written by
// ReconfigureParams.ToBundle.
const ReconfigureBundleVersion = 1

// AoaBounds is the angle window of a range data notification trigger, in
// radians.
type AoaBounds struct {
	AzimuthLower   float64
	AzimuthUpper   float64
	ElevationLower float64
	ElevationUpper float64
}

// ReconfigureParams changes a running session. Only the fields that were
// set are sent to the radio.
type ReconfigureParams struct {
	action               *MulticastAction
	blockStrideLength    *uint8
	rangeDataNtfConfig   *params.RangeDataNtfConfig
	proximityNear        *int
	proximityFar         *int
	aoaBounds            *AoaBounds
	suspendRangingRounds *uint8
	addressList          []params.Address
	subSessionIDs        []uint32
}

// ProtocolName implements params.Params.
func (*ReconfigureParams) ProtocolName() string { return params.ProtocolFira }

// BundleVersion implements params.Params.
func (*ReconfigureParams) BundleVersion() int { return ReconfigureBundleVersion }

// Action returns the multicast list action, if any.
func (p *ReconfigureParams) Action() (MulticastAction, bool) {
	if p.action == nil {
		return 0, false
	}
	return *p.action, true
}

// AddressList returns the controlee addresses the action applies to.
func (p *ReconfigureParams) AddressList() []params.Address {
	return params.CloneAddresses(p.addressList)
}

// SubSessionIDs returns the sub-session ids paired with AddressList.
func (p *ReconfigureParams) SubSessionIDs() []uint32 {
	return append([]uint32(nil), p.subSessionIDs...)
}

func (p *ReconfigureParams) BlockStrideLength() (uint8, bool) { return deref(p.blockStrideLength) }

func (p *ReconfigureParams) RangeDataNtfConfig() (params.RangeDataNtfConfig, bool) {
	return deref(p.rangeDataNtfConfig)
}

func (p *ReconfigureParams) ProximityNear() (int, bool) { return deref(p.proximityNear) }

func (p *ReconfigureParams) ProximityFar() (int, bool) { return deref(p.proximityFar) }

func (p *ReconfigureParams) AoaBounds() (AoaBounds, bool) { return deref(p.aoaBounds) }

func (p *ReconfigureParams) SuspendRangingRounds() (uint8, bool) {
	return deref(p.suspendRangingRounds)
}

func deref[T any](v *T) (T, bool) {
	if v == nil {
		var zero T
		return zero, false
	}
	return *v, true
}

func ptr[T any](v T) *T {
	return &v
}

// ReconfigureBuilder assembles a ReconfigureParams. Every field is
// optional.
type ReconfigureBuilder struct {
	p ReconfigureParams
}

// NewReconfigureBuilder returns an empty builder.
func NewReconfigureBuilder() *ReconfigureBuilder {
	return &ReconfigureBuilder{}
}

// SetMulticastUpdate sets the action together with the controlees it
// applies to.
func (b *ReconfigureBuilder) SetMulticastUpdate(action MulticastAction, addrs []params.Address, subSessionIDs []uint32) *ReconfigureBuilder {
	b.p.action = ptr(action)
	b.p.addressList = params.CloneAddresses(addrs)
	b.p.subSessionIDs = append([]uint32(nil), subSessionIDs...)
	return b
}

func (b *ReconfigureBuilder) SetBlockStrideLength(n uint8) *ReconfigureBuilder {
	b.p.blockStrideLength = ptr(n)
	return b
}

func (b *ReconfigureBuilder) SetRangeDataNtfConfig(c params.RangeDataNtfConfig) *ReconfigureBuilder {
	b.p.rangeDataNtfConfig = ptr(c)
	return b
}

func (b *ReconfigureBuilder) SetRangeDataNtfProximityNear(cm int) *ReconfigureBuilder {
	b.p.proximityNear = ptr(cm)
	return b
}

func (b *ReconfigureBuilder) SetRangeDataNtfProximityFar(cm int) *ReconfigureBuilder {
	b.p.proximityFar = ptr(cm)
	return b
}

func (b *ReconfigureBuilder) SetRangeDataNtfAoaBounds(a AoaBounds) *ReconfigureBuilder {
	b.p.aoaBounds = ptr(a)
	return b
}

func (b *ReconfigureBuilder) SetSuspendRangingRounds(v uint8) *ReconfigureBuilder {
	b.p.suspendRangingRounds = ptr(v)
	return b
}

// Build validates the set fields.
func (b *ReconfigureBuilder) Build() (*ReconfigureParams, error) {
	p := b.p
	p.addressList = params.CloneAddresses(p.addressList)
	p.subSessionIDs = append([]uint32(nil), p.subSessionIDs...)

	if p.action != nil {
		if *p.action > MulticastUpdateWith32ByteSubKey {
			return nil, params.Invalidf("unknown multicast action %d", *p.action)
		}
		if len(p.addressList) == 0 {
			return nil, params.Invalidf("multicast update needs at least one address")
		}
		if len(p.subSessionIDs) != 0 && len(p.subSessionIDs) != len(p.addressList) {
			return nil, params.Invalidf("%d sub-session ids for %d addresses", len(p.subSessionIDs), len(p.addressList))
		}
	}

	if p.rangeDataNtfConfig != nil {
		n := p.Notification()
		if err := n.Validate(); err != nil {
			return nil, err
		}
	} else if p.proximityNear != nil || p.proximityFar != nil || p.aoaBounds != nil {
		return nil, params.Invalidf("notification bounds need a range data notification config")
	}
	if p.suspendRangingRounds != nil && *p.suspendRangingRounds > 1 {
		return nil, params.Invalidf("suspend ranging rounds must be 0 or 1")
	}
	return &p, nil
}

// Notification merges the set notification fields over the defaults.
func (p *ReconfigureParams) Notification() params.NotificationBounds {
	cfg, _ := p.RangeDataNtfConfig()
	n := params.DefaultNotificationBounds(cfg)
	if v, ok := p.ProximityNear(); ok {
		n.ProximityNear = v
	}
	if v, ok := p.ProximityFar(); ok {
		n.ProximityFar = v
	}
	if a, ok := p.AoaBounds(); ok {
		n.AzimuthLower, n.AzimuthUpper = a.AzimuthLower, a.AzimuthUpper
		n.ElevationLower, n.ElevationUpper = a.ElevationLower, a.ElevationUpper
	}
	return n
}

// ToBundle implements params.Params.
func (p *ReconfigureParams) ToBundle() params.Bundle {
	b := params.NewBundle(params.ProtocolFira, ReconfigureBundleVersion)
	if a, ok := p.Action(); ok {
		b[keyAction] = int(a)
		b[keyAddressList] = addressesToInts(p.addressList)
		if len(p.addressList) > 0 && p.addressList[0].IsExtended() {
			b[keyMacAddressMode] = MacAddressModeExt
		} else {
			b[keyMacAddressMode] = MacAddressModeShort
		}
		ids := make([]int64, len(p.subSessionIDs))
		for i, id := range p.subSessionIDs {
			ids[i] = int64(id)
		}
		b[keySubSessionIDList] = ids
	}
	if v, ok := p.BlockStrideLength(); ok {
		b[keyBlockStrideLength] = int(v)
	}
	if v, ok := p.RangeDataNtfConfig(); ok {
		b[params.KeyRangeDataNtfConfig] = int(v)
	}
	if v, ok := p.ProximityNear(); ok {
		b[params.KeyProximityNear] = v
	}
	if v, ok := p.ProximityFar(); ok {
		b[params.KeyProximityFar] = v
	}
	if a, ok := p.AoaBounds(); ok {
		b[params.KeyAoaAzimuthLower] = a.AzimuthLower
		b[params.KeyAoaAzimuthUpper] = a.AzimuthUpper
		b[params.KeyAoaElevationLower] = a.ElevationLower
		b[params.KeyAoaElevationUpper] = a.ElevationUpper
	}
	if v, ok := p.SuspendRangingRounds(); ok {
		b[keySuspendRangingRounds] = int(v)
	}
	return b
}

// ReconfigureFromBundle parses a bundle written by ReconfigureParams.ToBundle.
func ReconfigureFromBundle(bundle params.Bundle) (*ReconfigureParams, error) {
	if err := bundle.CheckHeader(params.ProtocolFira, ReconfigureBundleVersion); err != nil {
		return nil, err
	}
	r := params.NewReader(bundle)
	b := NewReconfigureBuilder()

	if r.Has(keyAction) {
		macMode := r.IntOr(keyMacAddressMode, MacAddressModeShort)
		addrs, err := addressesFromInts(r, keyAddressList, macMode)
		if err != nil {
			return nil, err
		}
		var ids []uint32
		for _, id := range r.Int64s(keySubSessionIDList) {
			ids = append(ids, uint32(id))
		}
		b.SetMulticastUpdate(MulticastAction(r.Int(keyAction)), addrs, ids)
	}
	if r.Has(keyBlockStrideLength) {
		b.SetBlockStrideLength(uint8(r.Int(keyBlockStrideLength)))
	}
	if r.Has(params.KeyRangeDataNtfConfig) {
		b.SetRangeDataNtfConfig(params.RangeDataNtfConfig(r.Int(params.KeyRangeDataNtfConfig)))
	}
	if r.Has(params.KeyProximityNear) {
		b.SetRangeDataNtfProximityNear(r.Int(params.KeyProximityNear))
	}
	if r.Has(params.KeyProximityFar) {
		b.SetRangeDataNtfProximityFar(r.Int(params.KeyProximityFar))
	}
	if r.Has(params.KeyAoaAzimuthLower) {
		b.SetRangeDataNtfAoaBounds(AoaBounds{
			AzimuthLower:   r.FloatOr(params.KeyAoaAzimuthLower, params.DefaultAzimuthLower),
			AzimuthUpper:   r.FloatOr(params.KeyAoaAzimuthUpper, params.DefaultAzimuthUpper),
			ElevationLower: r.FloatOr(params.KeyAoaElevationLower, params.DefaultElevationLower),
			ElevationUpper: r.FloatOr(params.KeyAoaElevationUpper, params.DefaultElevationUpper),
		})
	}
	if r.Has(keySuspendRangingRounds) {
		b.SetSuspendRangingRounds(uint8(r.Int(keySuspendRangingRounds)))
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return b.Build()
}
