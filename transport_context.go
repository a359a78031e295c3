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

package uwb

import (
	"context"
	"fmt"
)

// TransportContext is a Transport whose writes honour a context.
type TransportContext interface {
	Transport

	// WritePacketContext sends one UCI packet with context support
	WritePacketContext(ctx context.Context, packet []byte) error
}

// transportContextAdapter wraps a Transport to provide context support
type transportContextAdapter struct {
	Transport
}

// WritePacketContext runs the write in a goroutine so a stuck bus cannot
// hold the caller past its deadline. The write itself is not interrupted.
func (t *transportContextAdapter) WritePacketContext(ctx context.Context, packet []byte) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled before writing packet: %w", ctx.Err())
	default:
	}

	done := make(chan error, 1)
	go func() {
		done <- t.WritePacket(packet)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while writing packet: %w", ctx.Err())
	case err := <-done:
		return err
	}
}

// AsTransportContext converts a Transport to TransportContext
func AsTransportContext(t Transport) TransportContext {
	if tc, ok := t.(TransportContext); ok {
		return tc
	}
	return &transportContextAdapter{Transport: t}
}
