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
	"testing"

	"github.com/ZaparooProject/go-uwb"
	uwbtest "github.com/ZaparooProject/go-uwb/internal/testing"
	"github.com/ZaparooProject/go-uwb/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(t *testing.T, pkt []byte) Message {
	t.Helper()
	msg, ok, err := NewReassembler().Add(pkt)
	require.NoError(t, err)
	require.True(t, ok)
	return msg
}

func TestDecodeNotification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want   uwb.Notification
		name   string
		packet []byte
	}{
		{
			name:   "device status",
			packet: uwbtest.BuildDeviceStatusNotification(0x01),
			want:   uwb.DeviceStatus{Chip: "c0", State: uwb.DeviceStateReady},
		},
		{
			name:   "generic error",
			packet: uwbtest.BuildGenericErrorNotification(0x0A),
			want:   uwb.GenericError{Chip: "c0", Status: uwb.StatusCommandRetry},
		},
		{
			name:   "session status",
			packet: uwbtest.BuildSessionStatusNotification(7, 0x02, 0x00),
			want:   uwb.SessionStatus{Chip: "c0", SessionID: 7, State: uwb.SessionStateActive},
		},
		{
			name:   "data send status",
			packet: uwbtest.BuildDataSendStatusNotification(7, 42, 0x00, 2),
			want:   uwb.DataSendStatus{Chip: "c0", SessionID: 7, SequenceNumber: 42, TxCount: 2},
		},
		{
			name:   "vendor",
			packet: uwbtest.BuildNotification(0x0E, 0x03, []byte{0xDE, 0xAD}),
			want:   uwb.VendorNotification{Chip: "c0", GID: 0x0E, OID: 0x03, Payload: []byte{0xDE, 0xAD}},
		},
		{
			name:   "data received",
			packet: uwbtest.BuildDataReceivedPacket(7, []byte{0x01, 0x02}, 3, []byte("hi")),
			want: uwb.DataReceived{
				Chip:           "c0",
				SessionID:      7,
				Address:        params.Address{0x01, 0x02, 0, 0, 0, 0, 0, 0},
				SequenceNumber: 3,
				Data:           []byte("hi"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := decodeNotification("c0", message(t, tt.packet))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeRangeData_TwoWay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		address []byte
	}{
		{name: "short address", address: []byte{0x04, 0x06}},
		{name: "extended address", address: []byte{1, 2, 3, 4, 5, 6, 7, 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			pkt := uwbtest.BuildRangeDataNotification(9, 3, 240,
				uwbtest.TwoWay{Address: tt.address, Distance: 150, Azimuth: 0xF1A0, RSSI: 0x40},
				uwbtest.TwoWay{Address: tt.address, Distance: 75, Status: 0x21},
			)
			n, err := decodeNotification("c0", message(t, pkt))
			require.NoError(t, err)

			rd, ok := n.(uwb.RangeData)
			require.True(t, ok)
			assert.Equal(t, uint32(9), rd.SequenceNumber)
			assert.Equal(t, uint32(3), rd.SessionID)
			assert.Equal(t, uint32(240), rd.CurrentRangingInterval)
			assert.Equal(t, uwb.MeasurementTwoWay, rd.MeasurementType)
			require.Len(t, rd.TwoWay, 2)

			m := rd.TwoWay[0]
			assert.Equal(t, params.Address(tt.address), m.Address)
			assert.Equal(t, uint16(150), m.Distance)
			assert.InDelta(t, -28.75, m.AoaAzimuth, 1e-9)
			assert.Equal(t, byte(100), m.AoaAzimuthFom)
			assert.Equal(t, byte(0x40), m.RSSI)
			assert.Equal(t, uwb.StatusRangingRxTimeout, rd.TwoWay[1].Status)
		})
	}
}

func TestDecodeRangeData_DlTdoa(t *testing.T) {
	t.Parallel()

	// 64-bit tx timestamp, 40-bit rx timestamp, relative anchor location
	// and two active ranging rounds.
	control := uint16(dlTdoaTxTimestamp64 | dlTdoaLocationRelative<<dlTdoaLocationShift | 2<<dlTdoaRoundsShift)

	p := binary.LittleEndian.AppendUint32(nil, 1) // sequence
	p = binary.LittleEndian.AppendUint32(p, 5)    // session
	p = append(p, 0x00)
	p = binary.LittleEndian.AppendUint32(p, 100)
	p = append(p, byte(uwb.MeasurementDlTdoa), 0x00, 0x00)
	p = append(p, make([]byte, 8)...)
	p = append(p, 1)

	// address, status, message type, control, block index, round index, NLoS
	p = append(p, 0x0A, 0x0B, 0x00, 0x01)
	p = binary.LittleEndian.AppendUint16(p, control)
	p = binary.LittleEndian.AppendUint16(p, 12)
	p = append(p, 3, 0)
	p = binary.LittleEndian.AppendUint16(p, 0x0B40)
	p = append(p, 90)
	p = binary.LittleEndian.AppendUint16(p, 0)
	p = append(p, 0, 0x33)
	p = binary.LittleEndian.AppendUint64(p, 0x0102030405060708)
	p = append(p, 0x11, 0x22, 0x33, 0x44, 0x55)
	p = binary.LittleEndian.AppendUint16(p, uint16(0xFFFE))
	p = binary.LittleEndian.AppendUint16(p, 4)
	p = binary.LittleEndian.AppendUint32(p, 1000)
	p = binary.LittleEndian.AppendUint32(p, 2000)
	p = binary.LittleEndian.AppendUint16(p, 77)
	p = append(p, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	p = append(p, 0x05, 0x06)

	n, err := decodeNotification("c0", message(t, uwbtest.BuildNotification(GIDSessionControl, OIDRangeData, p)))
	require.NoError(t, err)
	rd := n.(uwb.RangeData)
	require.Len(t, rd.DlTdoa, 1)

	m := rd.DlTdoa[0]
	assert.Equal(t, uint16(12), m.BlockIndex)
	assert.Equal(t, byte(3), m.RoundIndex)
	assert.InDelta(t, 22.5, m.AoaAzimuth, 1e-9)
	assert.Equal(t, uint64(0x0102030405060708), m.TxTimestamp)
	assert.Equal(t, uint64(0x5544332211), m.RxTimestamp)
	assert.Equal(t, int16(-2), m.AnchorCfo)
	assert.Equal(t, uint32(2000), m.ResponderReplyTime)
	assert.Equal(t, uint16(77), m.InitiatorResponderTof)
	assert.Len(t, m.AnchorLocation, 10)
	assert.Equal(t, []byte{0x05, 0x06}, m.ActiveRangingRounds)
	assert.Equal(t, byte(0x33), m.RSSI)
}

func TestDecodeNotification_Errors(t *testing.T) {
	t.Parallel()

	truncated := uwbtest.BuildNotification(GIDSessionConfig, OIDSessionStatus, []byte{1, 2})
	_, err := decodeNotification("c0", message(t, truncated))
	assert.ErrorIs(t, err, uwb.ErrFrameCorrupted)

	_, err = decodeNotification("c0", message(t, uwbtest.BuildNotification(GIDCore, 0x3F, nil)))
	assert.Error(t, err)

	_, err = decodeNotification("c0", message(t, uwbtest.BuildDataPacket(0x07, nil)))
	assert.Error(t, err)
}
