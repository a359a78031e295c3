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

// Package uart provides the serial transport for UWB dev kits that expose
// UCI over a USB CDC or FTDI port.
package uart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	uwb "github.com/ZaparooProject/go-uwb"
	"github.com/ZaparooProject/go-uwb/internal/frame"
	"github.com/ZaparooProject/go-uwb/internal/logging"
	"github.com/ZaparooProject/go-uwb/internal/transport"
	"github.com/rs/zerolog"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is used when New is given a zero baud rate.
	DefaultBaudRate = 115200

	defaultTimeout = 50 * time.Millisecond
	readChunk      = 512
	writeRetries   = 3
	writeBackoff   = 5 * time.Millisecond
)

// port is the subset of serial.Port the transport needs.
type port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// Transport implements uwb.Transport over a serial port. UCI packets are
// self-delimiting, so the byte stream is cut with the header length.
type Transport struct {
	port     port
	logger   zerolog.Logger
	portName string
	buf      []byte
	timeout  time.Duration
	mu       sync.Mutex
	readMu   sync.Mutex
	writeMu  sync.Mutex
}

// New opens portName at baud (8N1).
func New(portName string, baud int) (*Transport, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(portName, mode)
	if err != nil {
		return nil, uwb.NewTransportError("open", portName, fmt.Errorf("%w: %w", uwb.ErrDeviceNotFound, err),
			uwb.ErrorTypePermanent)
	}

	t, err := newTransport(p, portName)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	t.logger.Debug().Int("baud", baud).Msg("serial port opened")
	return t, nil
}

func newTransport(p port, portName string) (*Transport, error) {
	t := &Transport{
		port:     p,
		portName: portName,
		timeout:  defaultTimeout,
		logger:   logging.Component("uart").With().Str("port", portName).Logger(),
	}
	if err := p.SetReadTimeout(t.timeout); err != nil {
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	// Stale bytes from a previous session would desynchronise framing.
	if err := p.ResetInputBuffer(); err != nil {
		t.logger.Debug().Err(err).Msg("input buffer reset failed")
	}
	return t, nil
}

// WritePacket sends one UCI packet.
func (t *Transport) WritePacket(packet []byte) error {
	return t.WritePacketContext(context.Background(), packet)
}

// WritePacketContext sends one UCI packet. Failed writes are retried a few
// times; the remainder of a short write is sent on the next attempt.
func (t *Transport) WritePacketContext(ctx context.Context, packet []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(packet) > frame.MaxPacketLen {
		return uwb.NewDataTooLargeError("writePacket", t.portName)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	p := t.current()
	if p == nil {
		return uwb.NewTransportError("writePacket", t.portName, uwb.ErrTransportClosed, uwb.ErrorTypePermanent)
	}

	remaining := packet
	var lastErr error
	_, err := transport.WithRetry(ctx, transport.RetryConfig{
		Description: "writePacket",
		MaxRetries:  writeRetries - 1,
		RetryDelay:  writeBackoff,
		OnRetry: func() error {
			t.logger.Debug().Err(lastErr).Msg("serial write failed, retrying")
			return nil
		},
		OnRetryFailed: func() error {
			return uwb.NewTransportError("writePacket", t.portName,
				fmt.Errorf("%w: %w", uwb.ErrTransportWrite, lastErr), uwb.ErrorTypeTransient)
		},
	}, func() (struct{}, bool, error) {
		for len(remaining) > 0 {
			n, err := p.Write(remaining)
			remaining = remaining[n:]
			if err != nil {
				lastErr = err
				return struct{}{}, true, nil
			}
		}
		return struct{}{}, false, nil
	})
	return err
}

// ReadPacket returns the next complete UCI packet. Bytes of a packet that
// is still arriving when the timeout expires are kept for the next call.
func (t *Transport) ReadPacket() ([]byte, error) {
	t.readMu.Lock()
	defer t.readMu.Unlock()
	p := t.current()
	if p == nil {
		return nil, uwb.NewTransportError("readPacket", t.portName, uwb.ErrTransportClosed, uwb.ErrorTypePermanent)
	}

	deadline := time.Now().Add(t.timeout)
	chunk := make([]byte, readChunk)
	for {
		if pkt, rest, ok := frame.Split(t.buf); ok {
			t.buf = append(t.buf[:0], rest...)
			return pkt, nil
		}
		if !time.Now().Before(deadline) {
			return nil, uwb.NewTimeoutError("readPacket", t.portName)
		}

		n, err := p.Read(chunk)
		if err != nil {
			var portErr *serial.PortError
			if errors.As(err, &portErr) && portErr.Code() == serial.PortClosed {
				return nil, uwb.NewTransportError("readPacket", t.portName, uwb.ErrTransportClosed,
					uwb.ErrorTypePermanent)
			}
			return nil, uwb.NewTransportError("readPacket", t.portName,
				fmt.Errorf("%w: %w", uwb.ErrTransportRead, err), uwb.ErrorTypeTransient)
		}
		// go.bug.st/serial reports an expired read timeout as (0, nil).
		if n == 0 {
			return nil, uwb.NewTimeoutError("readPacket", t.portName)
		}
		t.buf = append(t.buf, chunk[:n]...)
	}
}

// SetTimeout sets the read timeout for the transport
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.readMu.Lock()
	defer t.readMu.Unlock()
	t.timeout = timeout
	p := t.current()
	if p == nil {
		return nil
	}
	if err := p.SetReadTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set read timeout: %w", err)
	}
	return nil
}

// Close closes the serial port. A blocked ReadPacket returns once the
// current read times out.
func (t *Transport) Close() error {
	t.mu.Lock()
	p := t.port
	t.port = nil
	t.mu.Unlock()
	if p == nil {
		return nil
	}
	if err := p.Close(); err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}

// IsConnected returns true if the transport is connected
func (t *Transport) IsConnected() bool {
	return t.current() != nil
}

func (t *Transport) current() port {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port
}

// Type returns the transport type
func (*Transport) Type() uwb.TransportType {
	return uwb.TransportUART
}

var (
	_ uwb.Transport        = (*Transport)(nil)
	_ uwb.TransportContext = (*Transport)(nil)
)
