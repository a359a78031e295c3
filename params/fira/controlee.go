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

// ControleeBundleVersion is the bundle schema written by
// ControleeParams.ToBundle.
const ControleeBundleVersion = 1

// ControleeParams adds, removes or updates controlees of a one-to-many
// session (multicast list update).
type ControleeParams struct {
	addresses      []params.Address
	subSessionIDs  []uint32
	subSessionKeys []byte
	action         MulticastAction
}

// ProtocolName implements params.Params.
func (*ControleeParams) ProtocolName() string { return params.ProtocolFira }

// BundleVersion implements params.Params.
func (*ControleeParams) BundleVersion() int { return ControleeBundleVersion }

// Action returns the multicast list action.
func (p *ControleeParams) Action() MulticastAction { return p.action }

// Addresses returns the controlee short addresses.
func (p *ControleeParams) Addresses() []params.Address {
	return params.CloneAddresses(p.addresses)
}

// SubSessionIDs returns one sub-session id per address, or nil.
func (p *ControleeParams) SubSessionIDs() []uint32 {
	if p.subSessionIDs == nil {
		return nil
	}
	return append([]uint32(nil), p.subSessionIDs...)
}

// SubSessionKeys returns the concatenated sub-session keys, one per
// address, or nil when the keys come from the secure component.
func (p *ControleeParams) SubSessionKeys() []byte {
	return params.CloneBytes(p.subSessionKeys)
}

// SubSessionKey returns the key of the i-th controlee.
func (p *ControleeParams) SubSessionKey(i int) []byte {
	n := p.action.subKeyLength()
	if n == 0 || p.subSessionKeys == nil || (i+1)*n > len(p.subSessionKeys) {
		return nil
	}
	return params.CloneBytes(p.subSessionKeys[i*n : (i+1)*n])
}

// ControleeBuilder assembles a ControleeParams.
type ControleeBuilder struct {
	p ControleeParams
}

// NewControleeBuilder returns a builder with the add action.
func NewControleeBuilder() *ControleeBuilder {
	return &ControleeBuilder{p: ControleeParams{action: MulticastAdd}}
}

func (b *ControleeBuilder) SetAction(a MulticastAction) *ControleeBuilder {
	b.p.action = a
	return b
}

func (b *ControleeBuilder) SetAddresses(addrs ...params.Address) *ControleeBuilder {
	b.p.addresses = params.CloneAddresses(addrs)
	return b
}

func (b *ControleeBuilder) SetSubSessionIDs(ids ...uint32) *ControleeBuilder {
	b.p.subSessionIDs = append([]uint32(nil), ids...)
	return b
}

// SetSubSessionKeys sets every controlee key back to back.
func (b *ControleeBuilder) SetSubSessionKeys(keys []byte) *ControleeBuilder {
	b.p.subSessionKeys = params.CloneBytes(keys)
	return b
}

// Build checks that there is at least one short address, that sub-session
// ids pair up with addresses and that keys match the action's key size.
func (b *ControleeBuilder) Build() (*ControleeParams, error) {
	p := b.p
	if p.action > MulticastUpdateWith32ByteSubKey {
		return nil, params.Invalidf("unknown multicast action %d", p.action)
	}
	if len(p.addresses) == 0 {
		return nil, params.Invalidf("controlee list is empty")
	}
	for _, a := range p.addresses {
		if len(a) != 2 {
			return nil, params.Invalidf("controlee address %s is not a short address", a)
		}
	}
	if p.subSessionIDs != nil && len(p.subSessionIDs) != len(p.addresses) {
		return nil, params.Invalidf("%d sub-session ids for %d addresses", len(p.subSessionIDs), len(p.addresses))
	}
	if p.subSessionKeys != nil {
		if n := p.action.subKeyLength(); n != 0 && len(p.subSessionKeys) != n*len(p.subSessionIDs) {
			return nil, params.Invalidf("action %d needs %d byte keys for %d sub-sessions, got %d bytes",
				p.action, n, len(p.subSessionIDs), len(p.subSessionKeys))
		}
	}
	p.addresses = params.CloneAddresses(p.addresses)
	return &p, nil
}

// ToBundle implements params.Params.
func (p *ControleeParams) ToBundle() params.Bundle {
	b := params.NewBundle(params.ProtocolFira, ControleeBundleVersion)
	b[keyAction] = int(p.action)
	b[keyMacAddressMode] = MacAddressModeShort
	b[keyAddressList] = addressesToInts(p.addresses)
	if p.subSessionIDs != nil {
		ids := make([]int64, len(p.subSessionIDs))
		for i, id := range p.subSessionIDs {
			ids[i] = int64(id)
		}
		b[keySubSessionIDList] = ids
	}
	if p.subSessionKeys != nil {
		b[keySubSessionKeyList] = bytesToInts(p.subSessionKeys)
	}
	return b
}

// ControleeFromBundle parses a bundle written by ControleeParams.ToBundle.
func ControleeFromBundle(bundle params.Bundle) (*ControleeParams, error) {
	if err := bundle.CheckHeader(params.ProtocolFira, ControleeBundleVersion); err != nil {
		return nil, err
	}
	r := params.NewReader(bundle)
	addrs, err := addressesFromInts(r, keyAddressList, r.IntOr(keyMacAddressMode, MacAddressModeShort))
	if err != nil {
		return nil, err
	}
	b := NewControleeBuilder().
		SetAction(MulticastAction(r.IntOr(keyAction, int(MulticastAdd)))).
		SetAddresses(addrs...)
	if r.Has(keySubSessionIDList) {
		var ids []uint32
		for _, id := range r.Int64s(keySubSessionIDList) {
			ids = append(ids, uint32(id))
		}
		b.SetSubSessionIDs(ids...)
	}
	if r.Has(keySubSessionKeyList) {
		b.SetSubSessionKeys(r.Bytes(keySubSessionKeyList))
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return b.Build()
}
