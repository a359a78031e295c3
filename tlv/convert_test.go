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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesToUint32(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   []byte
		want    uint32
		wantErr bool
	}{
		{name: "High_Bit_Preserved", input: []byte{0xFF, 0xA5, 0xAA, 0xF0}, want: 0xFFA5AAF0},
		{name: "Small", input: []byte{0x00, 0x00, 0x00, 0x01}, want: 1},
		{name: "One_Byte", input: []byte{0x01}, wantErr: true},
		{name: "Three_Bytes", input: []byte{0x01, 0x02, 0x03}, wantErr: true},
		{name: "Five_Bytes", input: []byte{0x01, 0x02, 0x03, 0x04, 0x05}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := BytesToUint32(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, Uint32ToBytes(got))
		})
	}
}

func TestBytesToInt32_Sign(t *testing.T) {
	t.Parallel()

	v, err := BytesToInt32([]byte{0xFF, 0xA5, 0xAA, 0xF0})
	require.NoError(t, err)
	assert.Equal(t, int32(-5920016), v)
	assert.Equal(t, []byte{0xFF, 0xA5, 0xAA, 0xF0}, Uint32ToBytes(uint32(v)))
}

func TestBytesToUint16(t *testing.T) {
	t.Parallel()

	v, err := BytesToUint16([]byte{0x12, 0x34})
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), v)

	_, err = BytesToUint16([]byte{0x12})
	require.ErrorIs(t, err, ErrFormat)
	_, err = BytesToUint16([]byte{0x12, 0x34, 0x56})
	require.ErrorIs(t, err, ErrFormat)
}

func TestArbitraryBytesToUint32(t *testing.T) {
	t.Parallel()

	for _, in := range [][]byte{{0x01}, {0x01, 0x02}, {0x01, 0x02, 0x03}, {0x01, 0x02, 0x03, 0x04}} {
		_, err := ArbitraryBytesToUint32(in)
		require.NoError(t, err)
	}
	v, err := ArbitraryBytesToUint32([]byte{0x01, 0x02, 0x03})
	require.NoError(t, err)
	assert.Equal(t, uint32(0x010203), v)

	_, err = ArbitraryBytesToUint32(nil)
	require.ErrorIs(t, err, ErrFormat)
	_, err = ArbitraryBytesToUint32(make([]byte, 5))
	require.ErrorIs(t, err, ErrFormat)
}

func TestMacAddressToUint64(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   []byte
		want    uint64
		wantErr bool
	}{
		{name: "Short", input: []byte{0x04, 0x06}, want: 0x0604},
		{name: "Four", input: []byte{0x01, 0x02, 0x03, 0x04}, want: 0x04030201},
		{name: "Extended", input: []byte{1, 2, 3, 4, 5, 6, 7, 8}, want: 0x0807060504030201},
		{name: "One", input: []byte{0x01}, wantErr: true},
		{name: "Three", input: []byte{1, 2, 3}, wantErr: true},
		{name: "Nine", input: make([]byte, 9), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := MacAddressToUint64(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			back, err := Uint64ToMacAddress(got, len(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.input, back)
		})
	}
}

func TestShortToExtendedMac(t *testing.T) {
	t.Parallel()

	ext, err := ShortToExtendedMac([]byte{0x04, 0x06})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0x06, 0, 0, 0, 0, 0, 0}, ext)

	full := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	same, err := ShortToExtendedMac(full)
	require.NoError(t, err)
	assert.Equal(t, full, same)

	_, err = ShortToExtendedMac([]byte{1, 2, 3, 4})
	require.ErrorIs(t, err, ErrFormat)
}

func TestHexHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", ToHex(nil))
	assert.Equal(t, "0A1B", ToHex([]byte{0x0A, 0x1B}))

	b, err := FromHex("0a 1b\n2C")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0A, 0x1B, 0x2C}, b)

	_, err = FromHex("ABC")
	require.ErrorIs(t, err, ErrFormat)
	_, err = FromHex("ZZ")
	require.ErrorIs(t, err, ErrFormat)
}

func TestLittleEndianHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte{0xC8, 0, 0, 0}, Uint32ToLEBytes(200))
	assert.Equal(t, []byte{0x60, 0x09}, Uint16ToLEBytes(2400))
}
