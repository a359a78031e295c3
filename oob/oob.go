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

// Package oob encodes the out-of-band connector record a peer hands over
// before ranging, typically by an NFC tap. The record is a FiRa style TLV
// body carried in an NDEF media record.
package oob

import (
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-uwb/params"
	"github.com/ZaparooProject/go-uwb/params/fira"
	"github.com/ZaparooProject/go-uwb/tlv"
	"github.com/hsanjuan/go-ndef"
)

// MediaType is the MIME type of the NDEF record holding the connector.
const MediaType = "application/vnd.fira.oob"

const (
	tagRole        byte = 0x01
	tagMACAddress  byte = 0x02
	tagVersions    byte = 0x03
	tagSessionHint byte = 0x04
)

var (
	// ErrNoConnector is returned when an NDEF message has no connector record.
	ErrNoConnector = errors.New("no OOB connector record")
	// ErrMalformed is returned for connector bodies that cannot be decoded.
	ErrMalformed = errors.New("malformed OOB connector")
)

// ConnectorInfo is what a peer advertises out of band.
type ConnectorInfo struct {
	MACAddress  params.Address
	Versions    []params.ProtocolVersion
	SessionHint uint32
	Role        fira.DeviceRole
}

// Validate checks that the connector can be used to start a session.
func (c ConnectorInfo) Validate() error {
	if _, err := params.NewAddress(c.MACAddress); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(c.Versions) == 0 {
		return fmt.Errorf("%w: no protocol versions", ErrMalformed)
	}
	return nil
}

// Supports reports whether the peer advertises v.
func (c ConnectorInfo) Supports(v params.ProtocolVersion) bool {
	for _, have := range c.Versions {
		if have == v {
			return true
		}
	}
	return false
}

// Highest returns the newest advertised version.
func (c ConnectorInfo) Highest() params.ProtocolVersion {
	var best params.ProtocolVersion
	for _, v := range c.Versions {
		if v.AtLeast(best.Major, best.Minor) {
			best = v
		}
	}
	return best
}

// Encode returns the TLV body of the connector.
func (c ConnectorInfo) Encode() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	versions := make([][]byte, len(c.Versions))
	for i, v := range c.Versions {
		versions[i] = v.Bytes()
	}
	b := tlv.NewBuffer(tlv.Short).
		PutByte(tagRole, byte(c.Role)).
		PutBytes(tagMACAddress, c.MACAddress).
		PutList(tagVersions, versions).
		PutUint32(tagSessionHint, c.SessionHint)
	if err := b.Err(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// Decode parses a TLV body. Unknown tags are ignored so newer peers can
// add fields.
func Decode(body []byte) (ConnectorInfo, error) {
	d, err := tlv.Parse(body, tlv.AnyCount, tlv.Short)
	if err != nil {
		return ConnectorInfo{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	var c ConnectorInfo
	role, err := d.Byte(tagRole)
	if err != nil {
		return ConnectorInfo{}, fmt.Errorf("%w: role: %w", ErrMalformed, err)
	}
	c.Role = fira.DeviceRole(role)

	mac, err := d.Bytes(tagMACAddress)
	if err != nil {
		return ConnectorInfo{}, fmt.Errorf("%w: mac address: %w", ErrMalformed, err)
	}
	if c.MACAddress, err = params.NewAddress(mac); err != nil {
		return ConnectorInfo{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	for _, raw := range d.All(tagVersions) {
		v, err := params.VersionFromBytes(raw)
		if err != nil {
			return ConnectorInfo{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		c.Versions = append(c.Versions, v)
	}
	if len(c.Versions) == 0 {
		return ConnectorInfo{}, fmt.Errorf("%w: no protocol versions", ErrMalformed)
	}

	if d.Has(tagSessionHint) {
		if c.SessionHint, err = d.Uint32(tagSessionHint); err != nil {
			return ConnectorInfo{}, fmt.Errorf("%w: session hint: %w", ErrMalformed, err)
		}
	}
	return c, nil
}

// Marshal wraps the connector in a single-record NDEF message.
func Marshal(c ConnectorInfo) ([]byte, error) {
	body, err := c.Encode()
	if err != nil {
		return nil, err
	}
	msg := ndef.NewMessageFromRecords(ndef.NewMediaRecord(MediaType, body))
	out, err := msg.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal NDEF message: %w", err)
	}
	return out, nil
}

// Unmarshal finds the first connector record in an NDEF message.
func Unmarshal(data []byte) (ConnectorInfo, error) {
	msg := &ndef.Message{}
	if _, err := msg.Unmarshal(data); err != nil {
		return ConnectorInfo{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	for _, r := range msg.Records {
		if r.TNF() != ndef.MediaType || r.Type() != MediaType {
			continue
		}
		payload, err := r.Payload()
		if err != nil {
			return ConnectorInfo{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return Decode(payload.Marshal())
	}
	return ConnectorInfo{}, ErrNoConnector
}
