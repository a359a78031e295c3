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

// Package codec turns parameter objects into UCI application configuration
// TLVs and back. Each protocol registers an Encoder and a Decoder from an
// init function; the configuration manager looks them up by protocol name.
package codec

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ZaparooProject/go-uwb/params"
	"github.com/ZaparooProject/go-uwb/tlv"
)

var (
	// ErrUnsupportedProtocol is returned when no codec is registered for a
	// protocol name.
	ErrUnsupportedProtocol = errors.New("unsupported protocol")
	// ErrDecodeFailure is returned when TLVs cannot be turned into a
	// parameter object.
	ErrDecodeFailure = errors.New("decode failure")
)

// Target selects which parameter object a decoder produces.
type Target int

const (
	// TargetOpenSession decodes the app configuration of a session.
	TargetOpenSession Target = iota
	// TargetSpecification decodes a capability report.
	TargetSpecification
	// TargetRangingStarted decodes the CCC parameters negotiated at start.
	TargetRangingStarted
)

func (t Target) String() string {
	switch t {
	case TargetOpenSession:
		return "open-session"
	case TargetSpecification:
		return "specification"
	case TargetRangingStarted:
		return "ranging-started"
	default:
		return fmt.Sprintf("target(%d)", int(t))
	}
}

// Encoder builds the TLVs of a parameter object. version is the UCI
// version of the radio, which gates optional fields for protocols whose
// parameters do not carry their own version.
type Encoder interface {
	Encode(p params.Params, version params.ProtocolVersion) (*tlv.Buffer, error)
}

// Decoder rebuilds a parameter object from parsed TLVs.
type Decoder interface {
	Decode(d *tlv.Decoded, target Target, version params.ProtocolVersion) (params.Params, error)
}

// EncoderFunc adapts a function to Encoder.
type EncoderFunc func(p params.Params, version params.ProtocolVersion) (*tlv.Buffer, error)

// Encode implements Encoder.
func (f EncoderFunc) Encode(p params.Params, version params.ProtocolVersion) (*tlv.Buffer, error) {
	return f(p, version)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(d *tlv.Decoded, target Target, version params.ProtocolVersion) (params.Params, error)

// Decode implements Decoder.
func (f DecoderFunc) Decode(d *tlv.Decoded, target Target, version params.ProtocolVersion) (params.Params, error) {
	return f(d, target, version)
}

type entry struct {
	encoder Encoder
	decoder Decoder
	format  tlv.Format
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]entry)
)

// Register installs the codec of a protocol. Either side may be nil.
// Registering a name twice replaces the earlier codec.
func Register(protocol string, format tlv.Format, enc Encoder, dec Decoder) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[protocol] = entry{encoder: enc, decoder: dec, format: format}
}

func lookup(protocol string) (entry, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	e, ok := registry[protocol]
	return e, ok
}

// GetEncoder returns the encoder registered for protocol.
func GetEncoder(protocol string) (Encoder, error) {
	e, ok := lookup(protocol)
	if !ok || e.encoder == nil {
		return nil, fmt.Errorf("%w: no encoder for %q", ErrUnsupportedProtocol, protocol)
	}
	return e.encoder, nil
}

// GetDecoder returns the decoder registered for protocol.
func GetDecoder(protocol string) (Decoder, error) {
	e, ok := lookup(protocol)
	if !ok || e.decoder == nil {
		return nil, fmt.Errorf("%w: no decoder for %q", ErrUnsupportedProtocol, protocol)
	}
	return e.decoder, nil
}

// FormatFor returns the TLV length width a protocol uses. Unknown
// protocols get the one byte format.
func FormatFor(protocol string) tlv.Format {
	if e, ok := lookup(protocol); ok {
		return e.format
	}
	return tlv.Short
}

// Protocols lists the registered protocol names in order.
func Protocols() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Encode is GetEncoder followed by Encode.
func Encode(p params.Params, version params.ProtocolVersion) (*tlv.Buffer, error) {
	enc, err := GetEncoder(p.ProtocolName())
	if err != nil {
		return nil, err
	}
	return enc.Encode(p, version)
}

// Decode parses raw TLVs in the protocol's format and decodes them.
func Decode(protocol string, raw []byte, target Target, version params.ProtocolVersion) (params.Params, error) {
	dec, err := GetDecoder(protocol)
	if err != nil {
		return nil, err
	}
	d, err := tlv.Parse(raw, tlv.AnyCount, FormatFor(protocol))
	if err != nil {
		return nil, err
	}
	return dec.Decode(d, target, version)
}

func unsupportedParams(protocol string, p params.Params) error {
	return fmt.Errorf("%w: %s codec cannot encode %T", params.ErrInvalidArgument, protocol, p)
}

func unsupportedTarget(protocol string, t Target) error {
	return fmt.Errorf("%w: %s codec has no %s decoder", ErrDecodeFailure, protocol, t)
}

func decodeFailure(protocol string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDecodeFailure, protocol, err)
}
