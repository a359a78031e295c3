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

// Package uci implements uwb.Bridge on top of the UWB Command Interface
// spoken by UWB chips over UART, SPI or a kernel character device.
package uci

import (
	"encoding/binary"
	"fmt"

	"github.com/ZaparooProject/go-uwb"
	"github.com/ZaparooProject/go-uwb/internal/frame"
)

// Message types.
const (
	MTData         byte = 0x00
	MTCommand      byte = 0x01
	MTResponse     byte = 0x02
	MTNotification byte = 0x03
)

// Group identifiers.
const (
	GIDCore           byte = 0x00
	GIDSessionConfig  byte = 0x01
	GIDSessionControl byte = 0x02
	GIDDataControl    byte = 0x03
	GIDTest           byte = 0x0D
	GIDAndroid        byte = 0x0C
	// GIDVendorMin is the first group id reserved for vendors.
	GIDVendorMin byte = 0x09
)

// Core opcodes.
const (
	OIDCoreDeviceReset    byte = 0x00
	OIDCoreDeviceStatus   byte = 0x01
	OIDCoreDeviceInfo     byte = 0x02
	OIDCoreGetCapsInfo    byte = 0x03
	OIDCoreSetConfig      byte = 0x04
	OIDCoreGetConfig      byte = 0x05
	OIDCoreGenericError   byte = 0x07
	OIDCoreQueryTimestamp byte = 0x08
)

// Session config opcodes.
const (
	OIDSessionInit                 byte = 0x00
	OIDSessionDeinit               byte = 0x01
	OIDSessionStatus               byte = 0x02
	OIDSessionSetAppConfig         byte = 0x03
	OIDSessionGetAppConfig         byte = 0x04
	OIDSessionGetCount             byte = 0x05
	OIDSessionGetState             byte = 0x06
	OIDSessionMulticastListUpdate  byte = 0x07
	OIDSessionUpdateDtTagRounds    byte = 0x09
	OIDSessionQueryDataSize        byte = 0x0B
	OIDSessionSetHybridConfig      byte = 0x0C
	OIDSessionDataTransferPhaseCfg byte = 0x0E
)

// Session control opcodes.
const (
	OIDRangeStart         byte = 0x00
	OIDRangeData          byte = 0x00
	OIDRangeStop          byte = 0x01
	OIDDataCredit         byte = 0x04
	OIDDataTransferStatus byte = 0x05
)

// Android vendor group opcodes.
const (
	OIDAndroidCountryCode    byte = 0x01
	OIDAndroidRadarAppConfig byte = 0x11
)

// Data packet formats.
const (
	DPFSend  byte = 0x01
	DPFRecv  byte = 0x02
	DPFRadar byte = 0x0F
)

const (
	// MaxControlPayload is the largest payload of one control segment.
	MaxControlPayload = 0xFF
	// MaxDataPayload is the largest payload of one data segment.
	MaxDataPayload = 0xFFFF
)

// Header is a decoded UCI packet header.
type Header struct {
	Length int
	MT     byte
	GID    byte // DPF for data packets
	OID    byte
	PBF    bool
}

// IsData reports whether the header belongs to a data packet.
func (h Header) IsData() bool {
	return h.MT == MTData
}

func (h Header) String() string {
	if h.IsData() {
		return fmt.Sprintf("data dpf=0x%X len=%d pbf=%t", h.GID, h.Length, h.PBF)
	}
	return fmt.Sprintf("mt=%d gid=0x%X oid=0x%02X len=%d pbf=%t", h.MT, h.GID, h.OID, h.Length, h.PBF)
}

// HeaderLen is the size of every UCI packet header.
const HeaderLen = frame.HeaderLen

// ParseHeader decodes the four header bytes of p.
func ParseHeader(p []byte) (Header, error) {
	if len(p) < HeaderLen {
		return Header{}, fmt.Errorf("%w: packet of %d bytes has no header", uwb.ErrFrameCorrupted, len(p))
	}
	h := Header{
		MT:  p[0] >> 5 & 0x07,
		PBF: p[0]&0x10 != 0,
		GID: p[0] & 0x0F,
	}
	if !h.IsData() {
		h.OID = p[1] & 0x3F
	}
	h.Length, _ = frame.PayloadLen(p)
	return h, nil
}

func controlHeader(mt, gid, oid byte, pbf bool, n int) []byte {
	b0 := mt<<5 | gid&0x0F
	if pbf {
		b0 |= 0x10
	}
	return []byte{b0, oid & 0x3F, 0x00, byte(n)}
}

// EncodeControl builds the segments of a control packet. Payloads longer
// than one segment are split with the packet boundary flag set on all but
// the last segment.
func EncodeControl(mt, gid, oid byte, payload []byte) [][]byte {
	if len(payload) <= MaxControlPayload {
		pkt := append(controlHeader(mt, gid, oid, false, len(payload)), payload...)
		return [][]byte{pkt}
	}
	var out [][]byte
	for len(payload) > 0 {
		n := min(len(payload), MaxControlPayload)
		last := n == len(payload)
		pkt := append(controlHeader(mt, gid, oid, !last, n), payload[:n]...)
		out = append(out, pkt)
		payload = payload[n:]
	}
	return out
}

// EncodeData builds one data packet.
func EncodeData(dpf byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxDataPayload {
		return nil, uwb.NewDataTooLargeError("EncodeData", "")
	}
	pkt := make([]byte, HeaderLen, HeaderLen+len(payload))
	pkt[0] = MTData<<5 | dpf&0x0F
	binary.LittleEndian.PutUint16(pkt[2:], uint16(len(payload)))
	return append(pkt, payload...), nil
}

// Message is a complete, reassembled UCI message.
type Message struct {
	Payload []byte
	MT      byte
	GID     byte
	OID     byte
}

type segmentKey struct {
	mt, gid, oid byte
}

// Reassembler joins segmented packets into messages. It is not safe for
// concurrent use; each reader owns one.
type Reassembler struct {
	pending map[segmentKey][]byte
}

// NewReassembler creates an empty Reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{pending: make(map[segmentKey][]byte)}
}

// Add consumes one packet. It returns the message once its final segment
// has arrived and ok=false while segments are outstanding.
func (r *Reassembler) Add(packet []byte) (msg Message, ok bool, err error) {
	h, err := ParseHeader(packet)
	if err != nil {
		return Message{}, false, err
	}
	if len(packet)-HeaderLen != h.Length {
		return Message{}, false, fmt.Errorf("%w: %s but %d payload bytes",
			uwb.ErrFrameCorrupted, h, len(packet)-HeaderLen)
	}

	key := segmentKey{mt: h.MT, gid: h.GID, oid: h.OID}
	payload := append(r.pending[key], packet[HeaderLen:]...)
	if h.PBF {
		r.pending[key] = payload
		return Message{}, false, nil
	}
	delete(r.pending, key)
	return Message{MT: h.MT, GID: h.GID, OID: h.OID, Payload: payload}, true, nil
}
