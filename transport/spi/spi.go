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

// Package spi provides the SPI transport for UWB chips wired to a host's
// SPI bus with a data-ready interrupt line.
package spi

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
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	// DefaultSpeed is the clock used when Config.Speed is zero.
	DefaultSpeed = 8 * physic.MegaHertz

	defaultTimeout = 50 * time.Millisecond
)

// Config selects the bus and interrupt line of one chip.
type Config struct {
	// Bus is a periph SPI port name such as "/dev/spidev0.0" or "SPI0.0".
	Bus string
	// IRQPin is a periph GPIO name such as "GPIO25". The chip drives it
	// low while it holds a packet for the host.
	IRQPin string
	Speed  physic.Frequency
}

// bus is the part of spi.Conn used for transfers.
type bus interface {
	Tx(w, r []byte) error
}

// irqLine is the part of gpio.PinIO used to wait for data.
type irqLine interface {
	WaitForEdge(timeout time.Duration) bool
	Read() gpio.Level
}

// Transport implements uwb.Transport over SPI. Writes are a single
// transfer; reads wait for the IRQ line, clock in the 4-byte header and
// then the payload it announces.
type Transport struct {
	conn    bus
	irq     irqLine
	closer  io.Closer
	logger  zerolog.Logger
	busName string
	timeout time.Duration
	mu      sync.Mutex
	closed  bool
}

// New opens the SPI port and IRQ pin named in cfg.
func New(cfg Config) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	port, err := spireg.Open(cfg.Bus)
	if err != nil {
		return nil, uwb.NewTransportError("open", cfg.Bus, fmt.Errorf("%w: %w", uwb.ErrDeviceNotFound, err),
			uwb.ErrorTypePermanent)
	}

	speed := cfg.Speed
	if speed == 0 {
		speed = DefaultSpeed
	}
	conn, err := port.Connect(speed, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to configure SPI port %s: %w", cfg.Bus, err)
	}

	pin := gpioreg.ByName(cfg.IRQPin)
	if pin == nil {
		_ = port.Close()
		return nil, uwb.NewTransportError("open", cfg.IRQPin, uwb.ErrDeviceNotFound, uwb.ErrorTypePermanent)
	}
	if err := pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to configure IRQ pin %s: %w", cfg.IRQPin, err)
	}

	t := newTransport(conn, pin, port, cfg.Bus)
	t.logger.Debug().Str("irq", cfg.IRQPin).Stringer("speed", speed).Msg("SPI transport opened")
	return t, nil
}

func newTransport(conn bus, irq irqLine, closer io.Closer, busName string) *Transport {
	return &Transport{
		conn:    conn,
		irq:     irq,
		closer:  closer,
		busName: busName,
		timeout: defaultTimeout,
		logger:  logging.Component("spi").With().Str("bus", busName).Logger(),
	}
}

// WritePacket sends one UCI packet.
func (t *Transport) WritePacket(packet []byte) error {
	return t.WritePacketContext(context.Background(), packet)
}

// WritePacketContext sends one UCI packet in a single transfer.
func (t *Transport) WritePacketContext(ctx context.Context, packet []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(packet) > frame.MaxPacketLen {
		return uwb.NewDataTooLargeError("writePacket", t.busName)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return uwb.NewTransportError("writePacket", t.busName, uwb.ErrTransportClosed, uwb.ErrorTypePermanent)
	}
	if err := t.conn.Tx(packet, nil); err != nil {
		return uwb.NewTransportError("writePacket", t.busName,
			fmt.Errorf("%w: %w", uwb.ErrTransportWrite, err), uwb.ErrorTypeTransient)
	}
	return nil
}

// ReadPacket waits for the chip to assert IRQ and reads one packet.
func (t *Transport) ReadPacket() ([]byte, error) {
	t.mu.Lock()
	closed, timeout := t.closed, t.timeout
	t.mu.Unlock()
	if closed {
		return nil, uwb.NewTransportError("readPacket", t.busName, uwb.ErrTransportClosed, uwb.ErrorTypePermanent)
	}

	// The line may already be low if a packet was pending before the
	// edge detector was armed.
	if t.irq.Read() != gpio.Low && !t.irq.WaitForEdge(timeout) {
		return nil, uwb.NewTimeoutError("readPacket", t.busName)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, uwb.NewTransportError("readPacket", t.busName, uwb.ErrTransportClosed, uwb.ErrorTypePermanent)
	}

	pkt, err := frame.ReadPacket(&busReader{conn: t.conn})
	if err != nil {
		if errors.Is(err, frame.ErrShortHeader) {
			return nil, uwb.NewFrameCorruptedError("readPacket", t.busName)
		}
		return nil, uwb.NewTransportError("readPacket", t.busName,
			fmt.Errorf("%w: %w", uwb.ErrTransportRead, err), uwb.ErrorTypeTransient)
	}
	return pkt, nil
}

// busReader clocks bytes in on each Read.
type busReader struct {
	conn bus
}

func (r *busReader) Read(p []byte) (int, error) {
	if err := r.conn.Tx(nil, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// SetTimeout sets how long ReadPacket waits for the IRQ line.
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
	return nil
}

// Close releases the SPI port.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.closer == nil {
		return nil
	}
	if err := t.closer.Close(); err != nil {
		return fmt.Errorf("failed to close SPI port: %w", err)
	}
	return nil
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// IsConnected returns true if the transport is connected
func (t *Transport) IsConnected() bool {
	return t.conn != nil && !t.isClosed()
}

// Type returns the transport type
func (*Transport) Type() uwb.TransportType {
	return uwb.TransportSPI
}

// HasCapability implements uwb.TransportCapabilityChecker.
func (*Transport) HasCapability(capability uwb.TransportCapability) bool {
	return capability == uwb.CapabilityIRQ
}

var (
	_ uwb.Transport                  = (*Transport)(nil)
	_ uwb.TransportContext           = (*Transport)(nil)
	_ uwb.TransportCapabilityChecker = (*Transport)(nil)
)
