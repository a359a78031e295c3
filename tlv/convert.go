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

package tlv

import (
	"encoding/binary"
	"encoding/hex"
	"strings"
)

// BytesToUint32 converts exactly four big-endian bytes.
func BytesToUint32(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, &FormatError{Op: "BytesToUint32", Got: len(b), Want: []int{4}}
	}
	return binary.BigEndian.Uint32(b), nil
}

// BytesToInt32 converts exactly four big-endian bytes, keeping the sign bit.
func BytesToInt32(b []byte) (int32, error) {
	v, err := BytesToUint32(b)
	return int32(v), err
}

// BytesToUint16 converts exactly two big-endian bytes.
func BytesToUint16(b []byte) (uint16, error) {
	if len(b) != 2 {
		return 0, &FormatError{Op: "BytesToUint16", Got: len(b), Want: []int{2}}
	}
	return binary.BigEndian.Uint16(b), nil
}

// ArbitraryBytesToUint32 converts one to four big-endian bytes.
func ArbitraryBytesToUint32(b []byte) (uint32, error) {
	if len(b) == 0 || len(b) > 4 {
		return 0, &FormatError{Op: "ArbitraryBytesToUint32", Got: len(b), Want: []int{1, 2, 3, 4}}
	}
	var v uint32
	for _, x := range b {
		v = v<<8 | uint32(x)
	}
	return v, nil
}

// Uint32ToBytes returns the big-endian encoding of v.
func Uint32ToBytes(v uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, v)
}

// Uint32ToLEBytes returns the little-endian encoding of v.
func Uint32ToLEBytes(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

// Uint16ToLEBytes returns the little-endian encoding of v.
func Uint16ToLEBytes(v uint16) []byte {
	return binary.LittleEndian.AppendUint16(nil, v)
}

func validMacLen(n int) bool {
	return n == 2 || n == 4 || n == 8
}

// MacAddressToUint64 interprets a 2, 4 or 8 byte address little-endian.
func MacAddressToUint64(b []byte) (uint64, error) {
	if !validMacLen(len(b)) {
		return 0, &FormatError{Op: "MacAddressToUint64", Got: len(b), Want: []int{2, 4, 8}}
	}
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

// Uint64ToMacAddress is the inverse of MacAddressToUint64.
func Uint64ToMacAddress(v uint64, size int) ([]byte, error) {
	if !validMacLen(size) {
		return nil, &FormatError{Op: "Uint64ToMacAddress", Got: size, Want: []int{2, 4, 8}}
	}
	out := make([]byte, size)
	for i := range out {
		out[i] = byte(v >> (8 * i))
	}
	return out, nil
}

// ShortToExtendedMac pads a two byte short address to eight bytes.
// Extended addresses are returned unchanged.
func ShortToExtendedMac(b []byte) ([]byte, error) {
	switch len(b) {
	case 8:
		return append([]byte(nil), b...), nil
	case 2:
		out := make([]byte, 8)
		copy(out, b)
		return out, nil
	default:
		return nil, &FormatError{Op: "ShortToExtendedMac", Got: len(b), Want: []int{2, 8}}
	}
}

// ToHex returns the uppercase hex form of b; nil yields "".
func ToHex(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return strings.ToUpper(hex.EncodeToString(b))
}

// FromHex parses a hex string. Whitespace is ignored.
func FromHex(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	if len(s)%2 != 0 {
		return nil, &FormatError{Op: "FromHex", Got: len(s), Want: []int{len(s) + 1}}
	}
	out, err := hex.DecodeString(s)
	if err != nil {
		return nil, &FormatError{Op: "FromHex: " + err.Error(), Got: len(s)}
	}
	return out, nil
}
