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
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/ZaparooProject/go-uwb/codec"
	"github.com/ZaparooProject/go-uwb/params"
	"github.com/ZaparooProject/go-uwb/tlv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The errors below are shaped the way the uart, spi and chardev
// transports and the uci bridge build them.
func TestErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err       error
		name      string
		wantType  ErrorType
		retryable bool
	}{
		{
			name:      "uart read timeout",
			err:       NewTimeoutError("readPacket", "/dev/ttyACM0"),
			wantType:  ErrorTypeTimeout,
			retryable: true,
		},
		{
			name: "spi transfer failure",
			err: NewTransportError("writePacket", "SPI0.0",
				fmt.Errorf("%w: %w", ErrTransportWrite, io.ErrShortWrite), ErrorTypeTransient),
			wantType:  ErrorTypeTransient,
			retryable: true,
		},
		{
			name:      "chardev closed",
			err:       NewTransportError("readPacket", "/dev/uci0", ErrTransportClosed, ErrorTypePermanent),
			wantType:  ErrorTypePermanent,
			retryable: false,
		},
		{
			name:      "short uci header",
			err:       NewFrameCorruptedError("readPacket", "/dev/ttyACM0"),
			wantType:  ErrorTypeTransient,
			retryable: true,
		},
		{
			name:      "segment above the packet limit",
			err:       NewDataTooLargeError("writePacket", "/dev/ttyACM0"),
			wantType:  ErrorTypePermanent,
			retryable: false,
		},
		{
			name:      "bare timeout from a bridge command",
			err:       fmt.Errorf("query timestamp: %w", ErrTransportTimeout),
			wantType:  ErrorTypeTimeout,
			retryable: true,
		},
		{
			name:      "bare read failure",
			err:       fmt.Errorf("%w: %w", ErrTransportRead, io.EOF),
			wantType:  ErrorTypeTransient,
			retryable: true,
		},
		{
			name:      "unknown chip",
			err:       fmt.Errorf("%w: %q", ErrUnknownChip, "chip9"),
			wantType:  ErrorTypePermanent,
			retryable: false,
		},
		{
			name:      "permanent type marked retryable",
			err:       &TransportError{Op: "open", Err: ErrDeviceNotFound, Type: ErrorTypePermanent, Retryable: true},
			wantType:  ErrorTypePermanent,
			retryable: true,
		},
		{
			name:      "nil",
			err:       nil,
			wantType:  ErrorTypePermanent,
			retryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantType, GetErrorType(tt.err))
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestTransportError(t *testing.T) {
	t.Parallel()

	err := NewTransportError("writePacket", "/dev/ttyACM0",
		fmt.Errorf("%w: %w", ErrTransportWrite, io.ErrClosedPipe), ErrorTypeTransient)
	assert.Equal(t, "writePacket on /dev/ttyACM0: transport write failed: io: read/write on closed pipe", err.Error())
	require.ErrorIs(t, err, ErrTransportWrite)
	require.ErrorIs(t, err, io.ErrClosedPipe)

	wrapped := fmt.Errorf("chip0: %w", err)
	var te *TransportError
	require.ErrorAs(t, wrapped, &te)
	assert.Equal(t, "writePacket", te.Op)
	assert.True(t, te.Retryable)

	noPort := &TransportError{Op: "probe", Err: ErrCommunicationFailed}
	assert.Equal(t, "probe: communication failed", noPort.Error())

	assert.Equal(t, "timeout", ErrorTypeTimeout.String())
	assert.Equal(t, "transient", ErrorTypeTransient.String())
	assert.Equal(t, "permanent", ErrorType(42).String())
}

func TestBridgeError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err      *BridgeError
		cause    error
		name     string
		wantText string
	}{
		{
			name:     "status only",
			err:      &BridgeError{Op: "init session", ChipID: "chip0", Status: StatusRejected},
			cause:    ErrBridgeFailure,
			wantText: `init session on chip "chip0": REJECTED`,
		},
		{
			name: "transport cause",
			err: &BridgeError{
				Op: "initialize", ChipID: "chip1", Status: StatusFailed,
				Err: NewTimeoutError("readPacket", "/dev/uci0"),
			},
			cause:    ErrTransportTimeout,
			wantText: `initialize on chip "chip1": FAILED: readPacket on /dev/uci0: transport timeout`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantText, tt.err.Error())
			// Every bridge error matches ErrBridgeFailure as well as its cause.
			require.ErrorIs(t, tt.err, ErrBridgeFailure)
			require.ErrorIs(t, tt.err, tt.cause)

			var be *BridgeError
			require.ErrorAs(t, fmt.Errorf("country code: %w", tt.err), &be)
			assert.Equal(t, tt.err.ChipID, be.ChipID)
			assert.Equal(t, tt.err.Status, be.Status)
		})
	}

	assert.False(t, errors.Is(&BridgeError{Err: ErrUnknownChip}, ErrNoChips))
}

// The codec layer errors are reachable through this package's aliases.
func TestCodecErrorAliases(t *testing.T) {
	t.Parallel()

	_, err := codec.GetEncoder("carrier-pigeon")
	require.ErrorIs(t, err, ErrUnsupportedProtocol)

	_, err = tlv.Parse([]byte{0x01, 0x05, 0x00}, tlv.AnyCount, tlv.Short)
	require.ErrorIs(t, err, ErrParse)
	var pe *tlv.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, byte(0x01), pe.Tag)

	_, err = codec.Decode(params.ProtocolFira, nil, codec.TargetRangingStarted, params.ProtocolVersion{})
	require.ErrorIs(t, err, ErrDecodeFailure)

	var fe error = &tlv.FormatError{Op: "initiation time", Got: 3, Want: []int{4, 8}}
	require.ErrorIs(t, fmt.Errorf("decode: %w", fe), ErrFormat)
	assert.Equal(t, "initiation time: got 3 bytes, want 4 or 8", fe.Error())

	assert.ErrorIs(t, fmt.Errorf("%w: missing session id", params.ErrInvalidArgument), ErrInvalidArgument)
}
