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

package uci

import (
	"encoding/binary"
	"fmt"

	"github.com/ZaparooProject/go-uwb"
	"github.com/ZaparooProject/go-uwb/params"
)

// reader walks a little-endian payload. The first short read sets err and
// every later read returns zero values, so decoders check err once.
type reader struct {
	err  error
	what string
	b    []byte
}

func newReader(what string, b []byte) *reader {
	return &reader{what: what, b: b}
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.b) < n {
		r.err = fmt.Errorf("%w: %s needs %d more bytes, %d left",
			uwb.ErrFrameCorrupted, r.what, n, len(r.b))
		return nil
	}
	out := r.b[:n]
	r.b = r.b[n:]
	return out
}

func (r *reader) u8() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// uN reads an n-byte little-endian unsigned value, n <= 8.
func (r *reader) uN(n int) uint64 {
	b := r.take(n)
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func (r *reader) status() uwb.Status {
	return uwb.Status(r.u8())
}

// bytes returns a copy so decoded values never alias the packet buffer.
func (r *reader) bytes(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

func (r *reader) address(extended bool) params.Address {
	n := 2
	if extended {
		n = 8
	}
	return params.Address(r.bytes(n))
}

func (r *reader) rest() []byte {
	return r.bytes(len(r.b))
}

func (r *reader) remaining() int {
	return len(r.b)
}

// writer builds a little-endian command payload.
type writer struct {
	b []byte
}

func (w *writer) u8(v byte) *writer {
	w.b = append(w.b, v)
	return w
}

func (w *writer) u16(v uint16) *writer {
	w.b = binary.LittleEndian.AppendUint16(w.b, v)
	return w
}

func (w *writer) u32(v uint32) *writer {
	w.b = binary.LittleEndian.AppendUint32(w.b, v)
	return w
}

func (w *writer) u64(v uint64) *writer {
	w.b = binary.LittleEndian.AppendUint64(w.b, v)
	return w
}

func (w *writer) raw(b []byte) *writer {
	w.b = append(w.b, b...)
	return w
}

// extAddress writes a as an 8-byte address, zero padded.
func (w *writer) extAddress(a params.Address) *writer {
	var pad [8]byte
	copy(pad[:], a)
	return w.raw(pad[:])
}

func (w *writer) bytes() []byte {
	return w.b
}

// q97Degrees converts the signed Q9.7 fixed point angle used in range data.
func q97Degrees(v uint16) float64 {
	return float64(int16(v)) / 128
}
