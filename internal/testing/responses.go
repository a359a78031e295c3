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

package testing

import "encoding/binary"

// UCI message types, duplicated here so test helpers do not depend on the
// package under test.
const (
	mtData         = 0x00
	mtResponse     = 0x02
	mtNotification = 0x03
)

// BuildPacket creates a single-segment control packet.
func BuildPacket(mt, gid, oid byte, payload []byte) []byte {
	pkt := []byte{mt<<5 | gid&0x0F, oid & 0x3F, 0x00, byte(len(payload))}
	return append(pkt, payload...)
}

// BuildSegments splits a control payload into 255-byte segments with the
// packet boundary flag on all but the last.
func BuildSegments(mt, gid, oid byte, payload []byte) [][]byte {
	var out [][]byte
	for {
		n := min(len(payload), 0xFF)
		pkt := BuildPacket(mt, gid, oid, payload[:n])
		payload = payload[n:]
		if len(payload) > 0 {
			pkt[0] |= 0x10
		}
		out = append(out, pkt)
		if len(payload) == 0 {
			return out
		}
	}
}

// BuildResponse creates a response packet.
func BuildResponse(gid, oid byte, payload []byte) []byte {
	return BuildPacket(mtResponse, gid, oid, payload)
}

// BuildStatusResponse creates a response carrying only a status byte.
func BuildStatusResponse(gid, oid, status byte) []byte {
	return BuildResponse(gid, oid, []byte{status})
}

// BuildNotification creates a notification packet.
func BuildNotification(gid, oid byte, payload []byte) []byte {
	return BuildPacket(mtNotification, gid, oid, payload)
}

// BuildDataPacket creates a data packet with a 16-bit length.
func BuildDataPacket(dpf byte, payload []byte) []byte {
	pkt := []byte{mtData<<5 | dpf&0x0F, 0x00, 0x00, 0x00}
	binary.LittleEndian.PutUint16(pkt[2:], uint16(len(payload)))
	return append(pkt, payload...)
}

// BuildDeviceStatusNotification creates CORE_DEVICE_STATUS_NTF.
func BuildDeviceStatusNotification(state byte) []byte {
	return BuildNotification(0x00, 0x01, []byte{state})
}

// BuildGenericErrorNotification creates CORE_GENERIC_ERROR_NTF.
func BuildGenericErrorNotification(status byte) []byte {
	return BuildNotification(0x00, 0x07, []byte{status})
}

// BuildDeviceInfoResponse creates a CORE_GET_DEVICE_INFO response.
func BuildDeviceInfoResponse(uci, mac, phy, test uint16, vendor []byte) []byte {
	p := []byte{0x00}
	for _, v := range []uint16{uci, mac, phy, test} {
		p = binary.LittleEndian.AppendUint16(p, v)
	}
	p = append(p, byte(len(vendor)))
	p = append(p, vendor...)
	return BuildResponse(0x00, 0x02, p)
}

// BuildSessionStatusNotification creates SESSION_STATUS_NTF.
func BuildSessionStatusNotification(token uint32, state, reason byte) []byte {
	p := binary.LittleEndian.AppendUint32(nil, token)
	return BuildNotification(0x01, 0x02, append(p, state, reason))
}

// TwoWay describes one measurement for BuildRangeDataNotification.
// Angles are raw Q9.7 values.
type TwoWay struct {
	Address  []byte
	Distance uint16
	Azimuth  uint16
	Status   byte
	RSSI     byte
}

// BuildRangeDataNotification creates a two-way SESSION_INFO_NTF. The
// address mode follows the length of the first address.
func BuildRangeDataNotification(seq, token, interval uint32, ms ...TwoWay) []byte {
	extended := len(ms) > 0 && len(ms[0].Address) == 8
	p := binary.LittleEndian.AppendUint32(nil, seq)
	p = binary.LittleEndian.AppendUint32(p, token)
	p = append(p, 0x00) // rcr indication
	p = binary.LittleEndian.AppendUint32(p, interval)
	p = append(p, 0x01, 0x00) // two-way, RFU
	if extended {
		p = append(p, 0x01)
	} else {
		p = append(p, 0x00)
	}
	p = append(p, make([]byte, 8)...)
	p = append(p, byte(len(ms)))
	for _, m := range ms {
		p = append(p, m.Address...)
		p = append(p, m.Status, 0x00)
		p = binary.LittleEndian.AppendUint16(p, m.Distance)
		p = binary.LittleEndian.AppendUint16(p, m.Azimuth)
		// azimuth FOM, then zeroed elevation and destination angles
		p = append(p, 100)
		p = append(p, make([]byte, 9)...)
		p = append(p, 0x00, m.RSSI)
		if extended {
			p = append(p, make([]byte, 5)...)
		} else {
			p = append(p, make([]byte, 11)...)
		}
	}
	return BuildNotification(0x02, 0x00, p)
}

// BuildDataSendStatusNotification creates DATA_TRANSFER_STATUS_NTF.
func BuildDataSendStatusNotification(token uint32, seq uint16, status, txCount byte) []byte {
	p := binary.LittleEndian.AppendUint32(nil, token)
	p = binary.LittleEndian.AppendUint16(p, seq)
	return BuildNotification(0x02, 0x05, append(p, status, txCount))
}

// BuildDataReceivedPacket creates a data message received from src.
func BuildDataReceivedPacket(token uint32, src []byte, seq uint16, data []byte) []byte {
	p := binary.LittleEndian.AppendUint32(nil, token)
	p = append(p, 0x00)
	var addr [8]byte
	copy(addr[:], src)
	p = append(p, addr[:]...)
	p = binary.LittleEndian.AppendUint16(p, seq)
	p = binary.LittleEndian.AppendUint16(p, uint16(len(data)))
	return BuildDataPacket(0x02, append(p, data...))
}
