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

// Package frame reads and sizes UCI packets on byte-stream links.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// HeaderLen is the size of a UCI packet header, control or data.
const HeaderLen = 4

// MaxPacketLen bounds a single packet: a data header plus a 16-bit length.
const MaxPacketLen = HeaderLen + 0xFFFF

// ErrShortHeader is returned when fewer than HeaderLen bytes are given.
var ErrShortHeader = errors.New("short UCI header")

// IsData reports whether the first header byte marks a data packet.
func IsData(b0 byte) bool {
	return b0>>5&0x07 == 0
}

// PayloadLen returns the payload length announced by a UCI header. Control
// packets carry an 8-bit length in byte 3, data packets a little-endian
// 16-bit length in bytes 2-3.
func PayloadLen(header []byte) (int, error) {
	if len(header) < HeaderLen {
		return 0, fmt.Errorf("%w: %d bytes", ErrShortHeader, len(header))
	}
	if IsData(header[0]) {
		return int(binary.LittleEndian.Uint16(header[2:4])), nil
	}
	return int(header[3]), nil
}

// ReadPacket reads exactly one packet from r: the header, then as many
// payload bytes as the header announces.
func ReadPacket(r io.Reader) ([]byte, error) {
	header := make([]byte, HeaderLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	n, err := PayloadLen(header)
	if err != nil {
		return nil, err
	}
	pkt := make([]byte, HeaderLen+n)
	copy(pkt, header)
	if _, err := io.ReadFull(r, pkt[HeaderLen:]); err != nil {
		return nil, fmt.Errorf("reading %d payload bytes: %w", n, err)
	}
	return pkt, nil
}

// Split cuts the first complete packet off the front of buf. ok is false
// when buf does not yet hold a whole packet; rest is then buf unchanged.
func Split(buf []byte) (pkt, rest []byte, ok bool) {
	n, err := PayloadLen(buf)
	if err != nil || len(buf) < HeaderLen+n {
		return nil, buf, false
	}
	pkt = make([]byte, HeaderLen+n)
	copy(pkt, buf)
	return pkt, buf[HeaderLen+n:], true
}
