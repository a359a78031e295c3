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

package pacs

import (
	"errors"
	"sync"

	"github.com/ZaparooProject/go-uwb/oob"
)

// ErrNotScanning is returned by Deliver while the provider is stopped.
var ErrNotScanning = errors.New("discovery not started")

// NDEFDiscovery is a DiscoveryProvider fed with NDEF messages read from a
// tap, a QR code or any other out-of-band channel. Each delivered message
// is decoded as an OOB connector record.
type NDEFDiscovery struct {
	cb DiscoveryCallback
	mu sync.Mutex
}

// NewNDEFDiscovery returns a stopped provider.
func NewNDEFDiscovery() *NDEFDiscovery {
	return &NDEFDiscovery{}
}

// Start implements DiscoveryProvider.
func (d *NDEFDiscovery) Start(cb DiscoveryCallback) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cb = cb
	return nil
}

// Stop implements DiscoveryProvider.
func (d *NDEFDiscovery) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cb = nil
	return nil
}

// Scanning reports whether Start is in effect.
func (d *NDEFDiscovery) Scanning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cb != nil
}

// Deliver decodes msg and reports the peer, or the decode failure, to the
// current callback. The returned error is the decode error as well.
func (d *NDEFDiscovery) Deliver(msg []byte) error {
	d.mu.Lock()
	cb := d.cb
	d.mu.Unlock()
	if cb == nil {
		return ErrNotScanning
	}
	connector, err := oob.Unmarshal(msg)
	if err != nil {
		cb.OnDiscoveryFailed(err)
		return err
	}
	cb.OnDiscovered(DiscoveryResult{Connector: connector, Raw: append([]byte(nil), msg...)})
	return nil
}

var _ DiscoveryProvider = (*NDEFDiscovery)(nil)
