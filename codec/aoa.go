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

package codec

import (
	"math"

	"github.com/ZaparooProject/go-uwb/params"
	"github.com/ZaparooProject/go-uwb/tlv"
)

// q97 converts radians to the signed Q9.7 degree format used by the radio.
func q97(rad float64) uint16 {
	deg := rad * 180 / math.Pi
	return uint16(int16(math.Floor(deg*128 + 1e-6)))
}

// fromQ97 is the inverse of q97, lossy by up to 1/128 degree. Dividing
// before multiplying by pi keeps the +-180 and +-90 limits exact.
func fromQ97(v uint16) float64 {
	return float64(int16(v)) / 128 / 180 * math.Pi
}

// aoaBound packs azimuth lower, azimuth upper, elevation lower and
// elevation upper, each little-endian Q9.7.
func aoaBound(n params.NotificationBounds) []byte {
	out := make([]byte, 0, 8)
	for _, rad := range []float64{n.AzimuthLower, n.AzimuthUpper, n.ElevationLower, n.ElevationUpper} {
		out = append(out, tlv.Uint16ToLEBytes(q97(rad))...)
	}
	return out
}

// readAoaBound unpacks aoaBound into n.
func readAoaBound(b []byte, n *params.NotificationBounds) bool {
	if len(b) != 8 {
		return false
	}
	vals := make([]float64, 4)
	for i := range vals {
		vals[i] = fromQ97(uint16(b[2*i]) | uint16(b[2*i+1])<<8)
	}
	n.AzimuthLower, n.AzimuthUpper = vals[0], vals[1]
	n.ElevationLower, n.ElevationUpper = vals[2], vals[3]
	return true
}

// putNotification writes the notification config, proximity bounds and,
// for angle driven modes, the AoA bound.
func putNotification(buf *tlv.Buffer, n params.NotificationBounds, tagCfg, tagNear, tagFar, tagAoa byte) {
	buf.PutByte(tagCfg, byte(n.Config)).
		PutUint16(tagNear, uint16(n.ProximityNear)).
		PutUint16(tagFar, uint16(n.ProximityFar))
	if n.Config.UsesAoa() {
		buf.PutBytes(tagAoa, aoaBound(n))
	}
}

// littleEndian reads up to eight bytes as an unsigned little-endian value.
func littleEndian(b []byte) uint64 {
	if len(b) > 8 {
		b = b[:8]
	}
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func byteOr(d *tlv.Decoded, tag byte, def uint8) uint8 {
	v, err := d.Byte(tag)
	if err != nil {
		return def
	}
	return v
}

func uint16Or(d *tlv.Decoded, tag byte, def uint16) uint16 {
	v, err := d.Uint16(tag)
	if err != nil {
		return def
	}
	return v
}

func uint32Or(d *tlv.Decoded, tag byte, def uint32) uint32 {
	v, err := d.Uint32(tag)
	if err != nil {
		return def
	}
	return v
}

func bytesOr(d *tlv.Decoded, tag byte) []byte {
	v, err := d.Bytes(tag)
	if err != nil {
		return nil
	}
	return v
}
