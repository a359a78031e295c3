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
	"time"
)

// Transport moves raw UCI packets to and from one UWB chip. It can be
// implemented by UART, SPI or kernel character device backends.
//
// Each call to WritePacket carries exactly one UCI packet (header
// included); each successful ReadPacket returns exactly one. Segmentation
// is done above the transport.
type Transport interface {
	// WritePacket sends one UCI packet.
	WritePacket(packet []byte) error

	// ReadPacket blocks until one UCI packet arrives or the read timeout
	// expires, in which case it returns an error matching
	// ErrTransportTimeout.
	ReadPacket() ([]byte, error)

	// Close closes the transport connection
	Close() error

	// SetTimeout sets the read timeout for the transport
	SetTimeout(timeout time.Duration) error

	// IsConnected returns true if the transport is connected
	IsConnected() bool

	// Type returns the transport type
	Type() TransportType
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportUART represents UART/serial transport.
	TransportUART TransportType = "uart"
	// TransportSPI represents SPI bus transport.
	TransportSPI TransportType = "spi"
	// TransportCharDev represents a kernel UCI character device.
	TransportCharDev TransportType = "chardev"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

// TransportCapability represents specific capabilities or behaviors of a transport
type TransportCapability string

const (
	// CapabilityReassembly indicates the transport delivers already
	// reassembled packets larger than one segment.
	CapabilityReassembly TransportCapability = "reassembly"

	// CapabilityIRQ indicates the transport waits on an interrupt line
	// instead of polling for data.
	CapabilityIRQ TransportCapability = "irq"
)

// TransportCapabilityChecker defines an interface for querying transport capabilities
type TransportCapabilityChecker interface {
	// HasCapability returns true if the transport has the specified capability
	HasCapability(capability TransportCapability) bool
}

// HasCapability asks t, or the transport it wraps, for a capability.
func HasCapability(t Transport, capability TransportCapability) bool {
	if checker, ok := t.(TransportCapabilityChecker); ok {
		return checker.HasCapability(capability)
	}
	return false
}

// TransportWithRetry wraps a Transport with retry capabilities
type TransportWithRetry struct {
	transport Transport
	config    *RetryConfig
}

// NewTransportWithRetry creates a new transport wrapper with retry logic
func NewTransportWithRetry(transport Transport, config *RetryConfig) *TransportWithRetry {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &TransportWithRetry{
		transport: transport,
		config:    config,
	}
}

// WritePacket sends a packet with retry logic
func (t *TransportWithRetry) WritePacket(packet []byte) error {
	return RetryWithConfig(context.Background(), t.config, func() error {
		if err := t.transport.WritePacket(packet); err != nil {
			return &TransportError{
				Op:        "WritePacket",
				Err:       err,
				Type:      GetErrorType(err),
				Retryable: IsRetryable(err),
			}
		}
		return nil
	})
}

// ReadPacket reads without retrying; a timeout is a normal outcome for the
// reader loop.
func (t *TransportWithRetry) ReadPacket() ([]byte, error) {
	return t.transport.ReadPacket()
}

// Close closes the transport connection
func (t *TransportWithRetry) Close() error {
	if err := t.transport.Close(); err != nil {
		return fmt.Errorf("failed to close underlying transport: %w", err)
	}
	return nil
}

// SetTimeout sets the read timeout for the transport
func (t *TransportWithRetry) SetTimeout(timeout time.Duration) error {
	if err := t.transport.SetTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set timeout on underlying transport: %w", err)
	}
	return nil
}

// IsConnected returns true if the transport is connected
func (t *TransportWithRetry) IsConnected() bool {
	return t.transport.IsConnected()
}

// Type returns the transport type
func (t *TransportWithRetry) Type() TransportType {
	return t.transport.Type()
}

// HasCapability forwards capability checking to the underlying transport
func (t *TransportWithRetry) HasCapability(capability TransportCapability) bool {
	return HasCapability(t.transport, capability)
}

// SetRetryConfig updates the retry configuration
func (t *TransportWithRetry) SetRetryConfig(config *RetryConfig) {
	t.config = config
}
