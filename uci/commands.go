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
	"context"
	"fmt"

	"github.com/ZaparooProject/go-uwb"
	"github.com/ZaparooProject/go-uwb/params"
)

// Initialize resets the chip, waits for it to report READY and reads its
// device information.
func (b *Bridge) Initialize(ctx context.Context, chipID string) (*uwb.DeviceInfo, error) {
	c, err := b.conn(chipID)
	if err != nil {
		return nil, err
	}
	c.state.Store(0)
	c.clearTokens()

	st, err := c.execStatus(ctx, GIDCore, OIDCoreDeviceReset, []byte{0x00})
	if err != nil {
		return nil, fmt.Errorf("device reset: %w", err)
	}
	if !st.OK() {
		return &uwb.DeviceInfo{Status: st}, nil
	}
	if err := c.waitReady(ctx); err != nil {
		return nil, fmt.Errorf("waiting for device ready: %w", err)
	}

	rsp, err := c.exec(ctx, GIDCore, OIDCoreDeviceInfo, nil)
	if err != nil {
		return nil, fmt.Errorf("get device info: %w", err)
	}
	r := newReader("device info", rsp)
	info := &uwb.DeviceInfo{Status: r.status()}
	if !info.Status.OK() {
		return info, nil
	}
	info.UCIVersion = r.u16()
	info.MACVersion = r.u16()
	info.PHYVersion = r.u16()
	info.UCITestVersion = r.u16()
	info.VendorInfo = r.bytes(int(r.u8()))
	if r.err != nil {
		return nil, r.err
	}
	c.logger.Info().
		Uint16("uci", info.UCIVersion).
		Uint16("mac", info.MACVersion).
		Uint16("phy", info.PHYVersion).
		Msg("chip initialized")
	return info, nil
}

// Deinitialize forgets all session handles of the chip. The transport
// stays open until Close.
func (b *Bridge) Deinitialize(_ context.Context, chipID string) error {
	c, err := b.conn(chipID)
	if err != nil {
		return err
	}
	c.clearTokens()
	c.state.Store(0)
	return nil
}

// DeviceReset sends CORE_DEVICE_RESET.
func (b *Bridge) DeviceReset(ctx context.Context, resetConfig byte, chipID string) (uwb.Status, error) {
	c, err := b.conn(chipID)
	if err != nil {
		return uwb.StatusFailed, err
	}
	c.clearTokens()
	return c.execStatus(ctx, GIDCore, OIDCoreDeviceReset, []byte{resetConfig})
}

// GetCapsInfo returns the raw capability TLVs.
func (b *Bridge) GetCapsInfo(ctx context.Context, chipID string) (*uwb.ConfigResponse, error) {
	c, err := b.conn(chipID)
	if err != nil {
		return nil, err
	}
	rsp, err := c.exec(ctx, GIDCore, OIDCoreGetCapsInfo, nil)
	if err != nil {
		return nil, err
	}
	return parseConfigResponse("caps info", rsp)
}

// InitSession creates a session. On UCI 2.0 chips the response carries the
// session handle used by every later command; the reader records it.
func (b *Bridge) InitSession(ctx context.Context, sessionID uint32, sessionType byte, chipID string) (uwb.Status, error) {
	c, err := b.conn(chipID)
	if err != nil {
		return uwb.StatusFailed, err
	}
	payload := new(writer).u32(sessionID).u8(sessionType).bytes()
	rsp, err := c.exec(ctx, GIDSessionConfig, OIDSessionInit, payload)
	if err != nil {
		return uwb.StatusFailed, err
	}
	r := newReader("session init", rsp)
	st := r.status()
	if r.err != nil {
		return uwb.StatusFailed, r.err
	}
	return st, nil
}

// DeinitSession destroys a session.
func (b *Bridge) DeinitSession(ctx context.Context, sessionID uint32, chipID string) (uwb.Status, error) {
	c, err := b.conn(chipID)
	if err != nil {
		return uwb.StatusFailed, err
	}
	payload := new(writer).u32(c.token(sessionID)).bytes()
	st, err := c.execStatus(ctx, GIDSessionConfig, OIDSessionDeinit, payload)
	if err == nil && st.OK() {
		c.dropToken(sessionID)
	}
	return st, err
}

// GetSessionToken returns the chip-side handle of an initialized session.
func (b *Bridge) GetSessionToken(_ context.Context, sessionID uint32, chipID string) (uint32, error) {
	c, err := b.conn(chipID)
	if err != nil {
		return 0, err
	}
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	token, ok := c.tokens[sessionID]
	if !ok {
		return 0, fmt.Errorf("%w: %d on chip %s", ErrUnknownSession, sessionID, chipID)
	}
	return token, nil
}

// GetSessionCount returns the number of sessions the chip holds.
func (b *Bridge) GetSessionCount(ctx context.Context, chipID string) (int, error) {
	c, err := b.conn(chipID)
	if err != nil {
		return 0, err
	}
	rsp, err := c.exec(ctx, GIDSessionConfig, OIDSessionGetCount, nil)
	if err != nil {
		return 0, err
	}
	r := newReader("session count", rsp)
	st, count := r.status(), r.u8()
	if r.err != nil {
		return 0, r.err
	}
	if !st.OK() {
		return 0, statusError("get session count", st)
	}
	return int(count), nil
}

// GetSessionState returns the chip's view of a session.
func (b *Bridge) GetSessionState(ctx context.Context, sessionID uint32, chipID string) (uwb.SessionState, error) {
	c, err := b.conn(chipID)
	if err != nil {
		return 0, err
	}
	rsp, err := c.exec(ctx, GIDSessionConfig, OIDSessionGetState, new(writer).u32(c.token(sessionID)).bytes())
	if err != nil {
		return 0, err
	}
	r := newReader("session state", rsp)
	st, state := r.status(), uwb.SessionState(r.u8())
	if r.err != nil {
		return 0, r.err
	}
	if !st.OK() {
		return 0, statusError("get session state", st)
	}
	return state, nil
}

// SetAppConfigurations sends SESSION_SET_APP_CONFIG.
func (b *Bridge) SetAppConfigurations(
	ctx context.Context, sessionID uint32, numParams int, tlvs []byte, chipID string,
) (*uwb.ConfigStatus, error) {
	return b.setConfig(ctx, GIDSessionConfig, OIDSessionSetAppConfig, sessionID, numParams, tlvs, chipID)
}

// SetRadarAppConfigurations sends the Android radar app config command.
func (b *Bridge) SetRadarAppConfigurations(
	ctx context.Context, sessionID uint32, numParams int, tlvs []byte, chipID string,
) (*uwb.ConfigStatus, error) {
	return b.setConfig(ctx, GIDAndroid, OIDAndroidRadarAppConfig, sessionID, numParams, tlvs, chipID)
}

func (b *Bridge) setConfig(
	ctx context.Context, gid, oid byte, sessionID uint32, numParams int, tlvs []byte, chipID string,
) (*uwb.ConfigStatus, error) {
	c, err := b.conn(chipID)
	if err != nil {
		return nil, err
	}
	if numParams < 0 || numParams > 0xFF {
		return nil, fmt.Errorf("%w: %d params", uwb.ErrInvalidParameter, numParams)
	}
	payload := new(writer).u32(c.token(sessionID)).u8(byte(numParams)).raw(tlvs).bytes()
	rsp, err := c.exec(ctx, gid, oid, payload)
	if err != nil {
		return nil, err
	}

	r := newReader("set app config", rsp)
	cs := &uwb.ConfigStatus{Status: r.status()}
	n := int(r.u8())
	for i := 0; i < n && r.err == nil; i++ {
		cs.Failed = append(cs.Failed, uwb.ConfigFailure{Tag: r.u8(), Status: r.status()})
	}
	if r.err != nil {
		// Some chips omit the failure list on success.
		if cs.Status.OK() && len(rsp) == 1 {
			return cs, nil
		}
		return nil, r.err
	}
	return cs, nil
}

// GetAppConfigurations reads the given tags, or all of them when tags is
// empty.
func (b *Bridge) GetAppConfigurations(
	ctx context.Context, sessionID uint32, tags []byte, chipID string,
) (*uwb.ConfigResponse, error) {
	c, err := b.conn(chipID)
	if err != nil {
		return nil, err
	}
	payload := new(writer).u32(c.token(sessionID)).u8(byte(len(tags))).raw(tags).bytes()
	rsp, err := c.exec(ctx, GIDSessionConfig, OIDSessionGetAppConfig, payload)
	if err != nil {
		return nil, err
	}
	return parseConfigResponse("get app config", rsp)
}

func parseConfigResponse(what string, rsp []byte) (*uwb.ConfigResponse, error) {
	r := newReader(what, rsp)
	cr := &uwb.ConfigResponse{Status: r.status()}
	if r.err != nil {
		return nil, r.err
	}
	if !cr.Status.OK() {
		return cr, nil
	}
	cr.NumParams = int(r.u8())
	cr.TLVs = r.rest()
	return cr, r.err
}

// StartRanging sends SESSION_START.
func (b *Bridge) StartRanging(ctx context.Context, sessionID uint32, chipID string) (uwb.Status, error) {
	return b.sessionCommand(ctx, GIDSessionControl, OIDRangeStart, sessionID, chipID)
}

// StopRanging sends SESSION_STOP.
func (b *Bridge) StopRanging(ctx context.Context, sessionID uint32, chipID string) (uwb.Status, error) {
	return b.sessionCommand(ctx, GIDSessionControl, OIDRangeStop, sessionID, chipID)
}

func (b *Bridge) sessionCommand(ctx context.Context, gid, oid byte, sessionID uint32, chipID string) (uwb.Status, error) {
	c, err := b.conn(chipID)
	if err != nil {
		return uwb.StatusFailed, err
	}
	return c.execStatus(ctx, gid, oid, new(writer).u32(c.token(sessionID)).bytes())
}

// ControllerMulticastListUpdate adds or removes controlees. Sub-session
// keys are sent only for the key-carrying actions.
func (b *Bridge) ControllerMulticastListUpdate(
	ctx context.Context, sessionID uint32, update uwb.MulticastUpdate, chipID string,
) (uwb.Status, error) {
	c, err := b.conn(chipID)
	if err != nil {
		return uwb.StatusFailed, err
	}
	if len(update.Controlees) > 0xFF {
		return uwb.StatusFailed, fmt.Errorf("%w: %d controlees", uwb.ErrInvalidParameter, len(update.Controlees))
	}
	w := new(writer).u32(c.token(sessionID)).u8(update.Action).u8(byte(len(update.Controlees)))
	for _, ctl := range update.Controlees {
		if len(ctl.Address) != 2 {
			return uwb.StatusFailed, fmt.Errorf("%w: controlee address %s is not short", uwb.ErrInvalidParameter, ctl.Address)
		}
		w.raw(ctl.Address).u32(ctl.SubSessionID)
		switch update.Action {
		case uwb.MulticastAddWithShortKey, uwb.MulticastAddWithExtendedKey:
			w.raw(ctl.SubSessionKey)
		}
	}
	return c.execStatus(ctx, GIDSessionConfig, OIDSessionMulticastListUpdate, w.bytes())
}

// UpdateDtTagRangingRounds replaces the active DL-TDoA rounds of a tag.
func (b *Bridge) UpdateDtTagRangingRounds(
	ctx context.Context, sessionID uint32, rounds []byte, chipID string,
) (*uwb.DtTagRoundsStatus, error) {
	c, err := b.conn(chipID)
	if err != nil {
		return nil, err
	}
	payload := new(writer).u32(c.token(sessionID)).u8(byte(len(rounds))).raw(rounds).bytes()
	rsp, err := c.exec(ctx, GIDSessionConfig, OIDSessionUpdateDtTagRounds, payload)
	if err != nil {
		return nil, err
	}
	r := newReader("dt tag rounds", rsp)
	out := &uwb.DtTagRoundsStatus{Status: r.status()}
	if r.remaining() > 0 {
		out.Rejected = r.bytes(int(r.u8()))
	}
	if r.err != nil {
		return nil, r.err
	}
	return out, nil
}

// SetHybridSessionConfig configures the phases of a hybrid session.
func (b *Bridge) SetHybridSessionConfig(
	ctx context.Context, cfg uwb.HybridSessionConfig, chipID string,
) (uwb.Status, error) {
	c, err := b.conn(chipID)
	if err != nil {
		return uwb.StatusFailed, err
	}
	w := new(writer).u32(c.token(cfg.SessionID)).u8(byte(len(cfg.Phases))).u64(cfg.UpdateTime)
	for _, p := range cfg.Phases {
		w.u32(p.SessionToken).u16(p.StartSlot).u16(p.EndSlot)
	}
	return c.execStatus(ctx, GIDSessionConfig, OIDSessionSetHybridConfig, w.bytes())
}

// SendData queues application data for a peer. Completion is reported by a
// uwb.DataSendStatus notification.
func (b *Bridge) SendData(
	ctx context.Context, sessionID uint32, dest params.Address, sequence uint16, data []byte, chipID string,
) (uwb.Status, error) {
	c, err := b.conn(chipID)
	if err != nil {
		return uwb.StatusFailed, err
	}
	if len(data) > 0xFFFF {
		return uwb.StatusFailed, uwb.NewDataTooLargeError("SendData", chipID)
	}
	payload := new(writer).
		u32(c.token(sessionID)).
		extAddress(dest).
		u16(sequence).
		u16(uint16(len(data))).
		raw(data).
		bytes()
	pkt, err := EncodeData(DPFSend, payload)
	if err != nil {
		return uwb.StatusFailed, err
	}

	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	if err := c.transport.WritePacketContext(ctx, pkt); err != nil {
		return uwb.StatusFailed, err
	}
	return uwb.StatusOk, nil
}

// SetDataTransferPhaseConfig configures the data transfer phase of a
// session. The result also arrives as a notification.
func (b *Bridge) SetDataTransferPhaseConfig(
	ctx context.Context, cfg uwb.DataTransferPhaseConfig, chipID string,
) (uwb.Status, error) {
	c, err := b.conn(chipID)
	if err != nil {
		return uwb.StatusFailed, err
	}
	w := new(writer).
		u32(c.token(cfg.SessionID)).
		u8(cfg.Repetition).
		u8(cfg.Control).
		u8(cfg.ManagementSize)
	for _, a := range cfg.Addresses {
		w.raw(a)
	}
	w.raw(cfg.SlotBitmap)
	return c.execStatus(ctx, GIDSessionConfig, OIDSessionDataTransferPhaseCfg, w.bytes())
}

// QueryMaxDataSize returns the largest data payload per ranging round.
func (b *Bridge) QueryMaxDataSize(ctx context.Context, sessionID uint32, chipID string) (int, error) {
	c, err := b.conn(chipID)
	if err != nil {
		return 0, err
	}
	rsp, err := c.exec(ctx, GIDSessionConfig, OIDSessionQueryDataSize, new(writer).u32(c.token(sessionID)).bytes())
	if err != nil {
		return 0, err
	}
	r := newReader("query data size", rsp)
	r.u32() // token echo
	st, size := r.status(), r.u16()
	if r.err != nil {
		return 0, r.err
	}
	if !st.OK() {
		return 0, statusError("query max data size", st)
	}
	return int(size), nil
}

// QueryTimestamp returns the chip's free running timestamp in microseconds.
func (b *Bridge) QueryTimestamp(ctx context.Context, chipID string) (uint64, error) {
	c, err := b.conn(chipID)
	if err != nil {
		return 0, err
	}
	rsp, err := c.exec(ctx, GIDCore, OIDCoreQueryTimestamp, nil)
	if err != nil {
		return 0, err
	}
	r := newReader("timestamp", rsp)
	st, ts := r.status(), r.uN(8)
	if r.err != nil {
		return 0, r.err
	}
	if !st.OK() {
		return 0, statusError("query timestamp", st)
	}
	return ts, nil
}

// SetCountryCode sets the regulatory domain, two ASCII letters.
func (b *Bridge) SetCountryCode(ctx context.Context, code string, chipID string) (uwb.Status, error) {
	c, err := b.conn(chipID)
	if err != nil {
		return uwb.StatusFailed, err
	}
	if len(code) != 2 {
		return uwb.StatusFailed, fmt.Errorf("%w: country code %q", uwb.ErrInvalidParameter, code)
	}
	return c.execStatus(ctx, GIDAndroid, OIDAndroidCountryCode, []byte(code))
}

// SendRawVendorCmd passes a vendor command through and returns the raw
// response payload. The first payload byte is reported as the status.
func (b *Bridge) SendRawVendorCmd(
	ctx context.Context, cmd uwb.VendorCommand, chipID string,
) (*uwb.VendorResponse, error) {
	c, err := b.conn(chipID)
	if err != nil {
		return nil, err
	}
	if cmd.MT != 0 && cmd.MT != MTCommand {
		return nil, fmt.Errorf("%w: vendor message type %d", uwb.ErrInvalidParameter, cmd.MT)
	}
	rsp, err := c.exec(ctx, cmd.GID, cmd.OID, cmd.Payload)
	if err != nil {
		return nil, err
	}
	out := &uwb.VendorResponse{GID: cmd.GID, OID: cmd.OID, Payload: rsp, Status: uwb.StatusFailed}
	if len(rsp) > 0 {
		out.Status = uwb.Status(rsp[0])
	}
	return out, nil
}
