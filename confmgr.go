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

package uwb

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-uwb/codec"
	"github.com/ZaparooProject/go-uwb/internal/logging"
	"github.com/ZaparooProject/go-uwb/params"
	"github.com/ZaparooProject/go-uwb/tlv"
	"github.com/rs/zerolog"
)

// ConfigurationManager turns parameter objects into bridge commands and
// bridge responses back into parameter objects. It fails closed: anything
// that goes wrong on the way surfaces as StatusFailed with no payload.
type ConfigurationManager struct {
	bridge Bridge
	logger zerolog.Logger
}

// NewConfigurationManager creates a manager issuing calls on bridge,
// normally a *Radio.
func NewConfigurationManager(bridge Bridge) *ConfigurationManager {
	return &ConfigurationManager{
		bridge: bridge,
		logger: logging.Component("confmgr"),
	}
}

// SetAppConfigurations encodes p and writes it to the session. A parameter
// object that encodes to zero parameters is accepted without a bridge call.
func (m *ConfigurationManager) SetAppConfigurations(
	ctx context.Context, sessionID uint32, p params.Params, chipID string, version params.ProtocolVersion,
) Status {
	if p == nil {
		m.logger.Error().Uint32("session", sessionID).Msg("set app config with nil params")
		return StatusFailed
	}
	protocol := p.ProtocolName()

	enc, err := codec.GetEncoder(protocol)
	if err != nil {
		m.logger.Error().Err(err).Uint32("session", sessionID).Str("protocol", protocol).Msg("no encoder")
		return StatusFailed
	}
	buf, err := enc.Encode(p, version)
	if err != nil {
		m.logger.Error().Err(err).Uint32("session", sessionID).Str("protocol", protocol).Msg("encode failed")
		return StatusFailed
	}
	if buf.NumParams() == 0 {
		return StatusOk
	}

	var resp *ConfigStatus
	if protocol == params.ProtocolRadar {
		resp, err = m.bridge.SetRadarAppConfigurations(ctx, sessionID, buf.NumParams(), buf.Bytes(), chipID)
	} else {
		resp, err = m.bridge.SetAppConfigurations(ctx, sessionID, buf.NumParams(), buf.Bytes(), chipID)
	}
	if err != nil {
		m.logger.Error().Err(err).Uint32("session", sessionID).Str("chip", chipID).Msg("set app config failed")
		return StatusFailed
	}
	if resp == nil {
		m.logger.Error().Uint32("session", sessionID).Str("chip", chipID).Msg("set app config returned no response")
		return StatusFailed
	}
	for _, f := range resp.Failed {
		m.logger.Warn().
			Uint32("session", sessionID).
			Str("tag", fmt.Sprintf("0x%02X", f.Tag)).
			Stringer("status", f.Status).
			Msg("parameter rejected")
	}
	return resp.Status
}

// GetAppConfigurations reads the given tags (all tags when empty) from the
// session and decodes them as target of protocol.
func (m *ConfigurationManager) GetAppConfigurations(
	ctx context.Context,
	sessionID uint32,
	protocol string,
	tags []byte,
	target codec.Target,
	chipID string,
	version params.ProtocolVersion,
) (Status, params.Params) {
	resp, err := m.bridge.GetAppConfigurations(ctx, sessionID, tags, chipID)
	if err != nil {
		m.logger.Error().Err(err).Uint32("session", sessionID).Str("chip", chipID).Msg("get app config failed")
		return StatusFailed, nil
	}
	return m.decodeTLV(protocol, resp, target, version)
}

// GetCapsInfo reads the chip capabilities and decodes them as target of
// protocol. params.ProtocolGeneric with codec.TargetSpecification yields a
// codec.GenericSpecification covering every protocol the chip reports.
func (m *ConfigurationManager) GetCapsInfo(
	ctx context.Context, protocol string, target codec.Target, chipID string, version params.ProtocolVersion,
) (Status, params.Params) {
	resp, err := m.bridge.GetCapsInfo(ctx, chipID)
	if err != nil {
		m.logger.Error().Err(err).Str("chip", chipID).Msg("get caps info failed")
		return StatusFailed, nil
	}
	return m.decodeTLV(protocol, resp, target, version)
}

// decodeTLV never lets a decoder failure escape: errors and panics both
// become StatusFailed.
func (m *ConfigurationManager) decodeTLV(
	protocol string, resp *ConfigResponse, target codec.Target, version params.ProtocolVersion,
) (status Status, out params.Params) {
	if resp == nil {
		m.logger.Error().Str("protocol", protocol).Msg("no TLV response")
		return StatusFailed, nil
	}
	if !resp.Status.OK() {
		return resp.Status, nil
	}

	dec, err := codec.GetDecoder(protocol)
	if err != nil {
		m.logger.Error().Err(err).Str("protocol", protocol).Msg("no decoder")
		return StatusFailed, nil
	}

	expected := tlv.AnyCount
	if resp.NumParams > 0 {
		expected = resp.NumParams
	}
	decoded, err := tlv.Parse(resp.TLVs, expected, codec.FormatFor(protocol))
	if err != nil {
		m.logger.Error().Err(err).Str("protocol", protocol).Msg("malformed TLVs")
		return StatusFailed, nil
	}

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().
				Str("protocol", protocol).
				Stringer("target", target).
				Interface("panic", r).
				Msg("decoder panicked")
			status, out = StatusFailed, nil
		}
	}()

	p, err := dec.Decode(decoded, target, version)
	if err != nil {
		level := zerolog.ErrorLevel
		if errors.Is(err, codec.ErrDecodeFailure) {
			level = zerolog.WarnLevel
		}
		m.logger.WithLevel(level).Err(err).Str("protocol", protocol).Stringer("target", target).Msg("decode failed")
		return StatusFailed, nil
	}
	if p == nil {
		m.logger.Error().Str("protocol", protocol).Stringer("target", target).Msg("decoder returned nothing")
		return StatusFailed, nil
	}
	return StatusOk, p
}
