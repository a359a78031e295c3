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
	"fmt"

	"github.com/ZaparooProject/go-uwb"
)

// Range data field sizes.
const (
	rangeDataRFU        = 8
	twoWayShortRFU      = 11
	twoWayExtendedRFU   = 5
	addressModeExtended = 0x01
)

// DL-TDoA message control bits.
const (
	dlTdoaTxTimestamp64    = 0x0001
	dlTdoaRxTimestamp64    = 0x0002
	dlTdoaLocationMask     = 0x0018
	dlTdoaLocationShift    = 3
	dlTdoaRoundsMask       = 0x01E0
	dlTdoaRoundsShift      = 5
	dlTdoaLocationWGS84    = 1
	dlTdoaLocationRelative = 2
)

// decodeNotification turns a reassembled notification or data message
// into its uwb value. Session ids are the raw tokens from the packet; the
// caller maps them back to host session ids.
func decodeNotification(chip string, msg Message) (uwb.Notification, error) {
	if msg.MT == MTData {
		return decodeData(chip, msg)
	}
	if msg.GID >= GIDVendorMin && msg.GID != GIDTest {
		return uwb.VendorNotification{Chip: chip, GID: msg.GID, OID: msg.OID, Payload: msg.Payload}, nil
	}

	r := newReader(fmt.Sprintf("ntf gid=0x%X oid=0x%02X", msg.GID, msg.OID), msg.Payload)
	var n uwb.Notification
	switch {
	case msg.GID == GIDCore && msg.OID == OIDCoreDeviceStatus:
		n = uwb.DeviceStatus{Chip: chip, State: uwb.DeviceState(r.u8())}
	case msg.GID == GIDCore && msg.OID == OIDCoreGenericError:
		n = uwb.GenericError{Chip: chip, Status: r.status()}
	case msg.GID == GIDSessionConfig && msg.OID == OIDSessionStatus:
		n = uwb.SessionStatus{
			Chip:      chip,
			SessionID: r.u32(),
			State:     uwb.SessionState(r.u8()),
			Reason:    r.u8(),
		}
	case msg.GID == GIDSessionConfig && msg.OID == OIDSessionMulticastListUpdate:
		n = decodeMulticast(chip, r)
	case msg.GID == GIDSessionConfig && msg.OID == OIDSessionDataTransferPhaseCfg:
		n = uwb.DataTransferPhaseConfigStatus{Chip: chip, SessionID: r.u32(), Status: r.status()}
	case msg.GID == GIDSessionControl && msg.OID == OIDRangeData:
		n = decodeRangeData(chip, r)
	case msg.GID == GIDSessionControl && msg.OID == OIDDataTransferStatus:
		n = uwb.DataSendStatus{
			Chip:           chip,
			SessionID:      r.u32(),
			SequenceNumber: r.u16(),
			Status:         r.status(),
			TxCount:        r.u8(),
		}
	default:
		return nil, fmt.Errorf("unhandled notification gid=0x%X oid=0x%02X", msg.GID, msg.OID)
	}
	if r.err != nil {
		return nil, r.err
	}
	return n, nil
}

func decodeMulticast(chip string, r *reader) uwb.MulticastListStatus {
	ms := uwb.MulticastListStatus{
		Chip:          chip,
		SessionID:     r.u32(),
		RemainingSize: r.u8(),
	}
	count := int(r.u8())
	for i := 0; i < count && r.err == nil; i++ {
		ms.Controlees = append(ms.Controlees, uwb.MulticastControleeStatus{
			Address:      r.address(false),
			SubSessionID: r.u32(),
			Status:       r.status(),
		})
	}
	return ms
}

func decodeRangeData(chip string, r *reader) uwb.RangeData {
	rd := uwb.RangeData{
		Chip:                   chip,
		SequenceNumber:         r.u32(),
		SessionID:              r.u32(),
		RcrIndication:          r.u8(),
		CurrentRangingInterval: r.u32(),
		MeasurementType:        uwb.MeasurementType(r.u8()),
	}
	r.u8() // RFU
	rd.MacAddressMode = r.u8()
	r.take(rangeDataRFU)
	count := int(r.u8())

	extended := rd.MacAddressMode == addressModeExtended
	for i := 0; i < count && r.err == nil; i++ {
		switch rd.MeasurementType {
		case uwb.MeasurementTwoWay:
			rd.TwoWay = append(rd.TwoWay, decodeTwoWay(r, extended))
		case uwb.MeasurementDlTdoa:
			rd.DlTdoa = append(rd.DlTdoa, decodeDlTdoa(r, extended))
		default:
			// Unknown layouts are skipped whole; the header is still useful.
			r.take(r.remaining())
			return rd
		}
	}
	return rd
}

func decodeTwoWay(r *reader, extended bool) uwb.TwoWayMeasurement {
	m := uwb.TwoWayMeasurement{
		Address:  r.address(extended),
		Status:   r.status(),
		NLoS:     r.u8(),
		Distance: r.u16(),
	}
	m.AoaAzimuth = q97Degrees(r.u16())
	m.AoaAzimuthFom = r.u8()
	m.AoaElevation = q97Degrees(r.u16())
	m.AoaElevationFom = r.u8()
	m.AoaDestAzimuth = q97Degrees(r.u16())
	m.AoaDestAzimuthFom = r.u8()
	m.AoaDestElevation = q97Degrees(r.u16())
	m.AoaDestElevationFom = r.u8()
	m.SlotIndex = r.u8()
	m.RSSI = r.u8()
	if extended {
		r.take(twoWayExtendedRFU)
	} else {
		r.take(twoWayShortRFU)
	}
	return m
}

func decodeDlTdoa(r *reader, extended bool) uwb.DlTdoaMeasurement {
	m := uwb.DlTdoaMeasurement{
		Address:        r.address(extended),
		Status:         r.status(),
		MessageType:    r.u8(),
		MessageControl: r.u16(),
		BlockIndex:     r.u16(),
		RoundIndex:     r.u8(),
		NLoS:           r.u8(),
	}
	m.AoaAzimuth = q97Degrees(r.u16())
	m.AoaAzimuthFom = r.u8()
	m.AoaElevation = q97Degrees(r.u16())
	m.AoaElevationFom = r.u8()
	m.RSSI = r.u8()

	m.TxTimestamp = r.uN(timestampLen(m.MessageControl&dlTdoaTxTimestamp64 != 0))
	m.RxTimestamp = r.uN(timestampLen(m.MessageControl&dlTdoaRxTimestamp64 != 0))
	m.AnchorCfo = int16(r.u16())
	m.Cfo = int16(r.u16())
	m.InitiatorReplyTime = r.u32()
	m.ResponderReplyTime = r.u32()
	m.InitiatorResponderTof = r.u16()

	switch (m.MessageControl & dlTdoaLocationMask) >> dlTdoaLocationShift {
	case dlTdoaLocationWGS84:
		m.AnchorLocation = r.bytes(12)
	case dlTdoaLocationRelative:
		m.AnchorLocation = r.bytes(10)
	}
	if n := int(m.MessageControl&dlTdoaRoundsMask) >> dlTdoaRoundsShift; n > 0 {
		m.ActiveRangingRounds = r.bytes(n)
	}
	return m
}

// timestampLen is 8 bytes for 64-bit timestamps and 5 for 40-bit ones.
func timestampLen(wide bool) int {
	if wide {
		return 8
	}
	return 5
}

func decodeData(chip string, msg Message) (uwb.Notification, error) {
	r := newReader(fmt.Sprintf("data dpf=0x%X", msg.GID), msg.Payload)
	var n uwb.Notification
	switch msg.GID {
	case DPFRecv:
		dr := uwb.DataReceived{
			Chip:      chip,
			SessionID: r.u32(),
			Status:    r.status(),
			Address:   r.address(true),
		}
		dr.SequenceNumber = r.u16()
		dr.Data = r.bytes(int(r.u16()))
		n = dr
	case DPFRadar:
		rd := uwb.RadarData{
			Chip:            chip,
			SessionID:       r.u32(),
			Status:          r.status(),
			DataType:        r.u8(),
			SamplesPerSweep: r.u8(),
			BitsPerSample:   r.u8(),
		}
		rd.Sweeps = r.rest()
		n = rd
	default:
		return nil, fmt.Errorf("unhandled data packet dpf=0x%X", msg.GID)
	}
	if r.err != nil {
		return nil, r.err
	}
	return n, nil
}

// withSession rewrites the session id of a session notification.
func withSession(n uwb.Notification, id uint32) uwb.Notification {
	switch v := n.(type) {
	case uwb.SessionStatus:
		v.SessionID = id
		return v
	case uwb.RangeData:
		v.SessionID = id
		return v
	case uwb.MulticastListStatus:
		v.SessionID = id
		return v
	case uwb.DataReceived:
		v.SessionID = id
		return v
	case uwb.DataSendStatus:
		v.SessionID = id
		return v
	case uwb.DataTransferPhaseConfigStatus:
		v.SessionID = id
		return v
	case uwb.RadarData:
		v.SessionID = id
		return v
	}
	return n
}
