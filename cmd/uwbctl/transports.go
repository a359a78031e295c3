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

package main

import (
	"fmt"

	uwb "github.com/ZaparooProject/go-uwb"
	"github.com/ZaparooProject/go-uwb/detection"
	"github.com/ZaparooProject/go-uwb/internal/config"
	"github.com/ZaparooProject/go-uwb/transport/chardev"
	"github.com/ZaparooProject/go-uwb/transport/spi"
	"github.com/ZaparooProject/go-uwb/transport/uart"
	"periph.io/x/conn/v3/physic"
)

// openRadio opens the transport a configured radio is reached over.
func openRadio(r config.Radio) (uwb.Transport, error) {
	switch r.Transport {
	case uwb.TransportUART:
		return uart.New(r.Path, r.BaudRate)
	case uwb.TransportSPI:
		t, err := spi.New(spi.Config{
			Bus:    r.Path,
			IRQPin: r.IRQPin,
			Speed:  physic.Frequency(r.SPISpeedHz) * physic.Hertz,
		})
		if err != nil {
			return nil, err
		}
		return withWriteRetry(t), nil
	case uwb.TransportCharDev:
		t, err := chardev.New(r.Path)
		if err != nil {
			return nil, err
		}
		return withWriteRetry(t), nil
	default:
		return nil, fmt.Errorf("%w: transport %q", uwb.ErrInvalidParameter, r.Transport)
	}
}

// withWriteRetry retries transient write failures with the default
// backoff. The UART transport retries on its own and is not wrapped.
func withWriteRetry(t uwb.Transport) uwb.Transport {
	if t.Type() == uwb.TransportUART {
		return t
	}
	return uwb.NewTransportWithRetry(t, uwb.DefaultRetryConfig())
}

// openTransports opens every configured radio, or every detected chip
// when none are configured. Already opened transports are closed on
// failure.
func openTransports(cfg config.Config, detect func() ([]detection.DeviceInfo, error)) (map[string]uwb.Transport, error) {
	radios := cfg.Radios
	if len(radios) == 0 && cfg.AutoDetect {
		devices, err := detect()
		if err != nil {
			return nil, err
		}
		for i, d := range devices {
			radios = append(radios, config.Radio{
				ID:         fmt.Sprintf("chip%d", i),
				Transport:  d.Transport,
				Path:       d.Path,
				BaudRate:   config.DefaultBaudRate,
				SPISpeedHz: config.DefaultSPISpeedHz,
			})
		}
	}

	out := make(map[string]uwb.Transport, len(radios))
	for _, r := range radios {
		t, err := openRadio(r)
		if err != nil {
			closeAll(out)
			return nil, fmt.Errorf("radio %s: %w", r.ID, err)
		}
		out[r.ID] = t
	}
	return out, nil
}

func closeAll(ts map[string]uwb.Transport) {
	for _, t := range ts {
		_ = t.Close()
	}
}
