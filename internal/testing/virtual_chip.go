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

import (
	"encoding/binary"
	"sort"
	"sync"
	"time"

	"github.com/ZaparooProject/go-uwb"
)

// Status bytes used by the simulated chip.
const (
	statusOk               = 0x00
	statusUnknownGID       = 0x07
	statusCommandRetry     = 0x0A
	statusSessionNotExist  = 0x11
	statusSessionDuplicate = 0x12
)

// Session states used by the simulated chip.
const (
	sessionInit   = 0x00
	sessionDeinit = 0x01
	sessionActive = 0x02
	sessionIdle   = 0x03
)

// VirtualSession is a session held by a VirtualChip.
type VirtualSession struct {
	Config map[byte][]byte
	ID     uint32
	Token  uint32
	Type   byte
	State  byte
}

// CommandHandler replaces the built-in behavior of one command. It returns
// the packets the chip sends back, response first.
type CommandHandler func(payload []byte) [][]byte

// VirtualChip simulates a UWB chip behind a uwb.Transport. Commands are
// answered synchronously from WritePacket; responses and notifications
// are queued for ReadPacket. Session handles equal session ids unless
// SetUCI2 is enabled.
type VirtualChip struct {
	inbound     chan []byte
	done        chan struct{}
	sessions    map[uint32]*VirtualSession
	overrides   map[uint16]CommandHandler
	retries     map[uint16]int
	pending     map[uint16][]byte
	caps        []byte
	written     [][]byte
	countryCode string
	timeout     time.Duration
	nextToken   uint32
	mu          sync.Mutex
	uci2        bool
	silent      bool
	closed      bool
}

// NewVirtualChip creates a ready, empty chip.
func NewVirtualChip() *VirtualChip {
	return &VirtualChip{
		inbound:   make(chan []byte, 256),
		done:      make(chan struct{}),
		sessions:  make(map[uint32]*VirtualSession),
		overrides: make(map[uint16]CommandHandler),
		retries:   make(map[uint16]int),
		pending:   make(map[uint16][]byte),
		timeout:   50 * time.Millisecond,
		nextToken: 0x1000,
	}
}

func key(gid, oid byte) uint16 {
	return uint16(gid)<<8 | uint16(oid)
}

// SetUCI2 makes session init return chip-assigned handles.
func (v *VirtualChip) SetUCI2(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.uci2 = on
}

// SetSilent stops the chip from answering anything.
func (v *VirtualChip) SetSilent(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.silent = on
}

// SetCaps sets the TLVs returned by CORE_GET_CAPS_INFO.
func (v *VirtualChip) SetCaps(tlvs []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.caps = append([]byte(nil), tlvs...)
}

// CountryCode returns the last country code set by the host.
func (v *VirtualChip) CountryCode() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.countryCode
}

// Override installs a handler for one command.
func (v *VirtualChip) Override(gid, oid byte, h CommandHandler) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.overrides[key(gid, oid)] = h
}

// RetryNext answers the next n sends of a command with
// STATUS_COMMAND_RETRY.
func (v *VirtualChip) RetryNext(gid, oid byte, n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.retries[key(gid, oid)] = n
}

// Session returns a copy of the session with the given host id.
func (v *VirtualChip) Session(id uint32) (VirtualSession, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, s := range v.sessions {
		if s.ID == id {
			cp := *s
			cp.Config = make(map[byte][]byte, len(s.Config))
			for k, val := range s.Config {
				cp.Config[k] = append([]byte(nil), val...)
			}
			return cp, true
		}
	}
	return VirtualSession{}, false
}

// Written returns copies of every packet written so far.
func (v *VirtualChip) Written() [][]byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([][]byte, len(v.written))
	for i, p := range v.written {
		out[i] = append([]byte(nil), p...)
	}
	return out
}

// Inject queues an unsolicited packet, such as a notification.
func (v *VirtualChip) Inject(pkt []byte) {
	v.queue(pkt)
}

func (v *VirtualChip) queue(pkts ...[]byte) {
	for _, p := range pkts {
		select {
		case v.inbound <- p:
		case <-v.done:
			return
		}
	}
}

// WritePacket consumes one host packet.
func (v *VirtualChip) WritePacket(pkt []byte) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return uwb.ErrTransportClosed
	}
	v.written = append(v.written, append([]byte(nil), pkt...))
	if len(pkt) < 4 {
		v.mu.Unlock()
		return nil
	}
	var out [][]byte
	if pkt[0]>>5 == mtData {
		out = v.handleData(pkt[4:])
	} else {
		gid, oid := pkt[0]&0x0F, pkt[1]&0x3F
		k := key(gid, oid)
		payload := append(v.pending[k], pkt[4:]...)
		if pkt[0]&0x10 != 0 {
			v.pending[k] = payload
			v.mu.Unlock()
			return nil
		}
		delete(v.pending, k)
		out = v.handleCommand(gid, oid, payload)
	}
	silent := v.silent
	v.mu.Unlock()

	if !silent {
		v.queue(out...)
	}
	return nil
}

func (v *VirtualChip) handleCommand(gid, oid byte, p []byte) [][]byte {
	k := key(gid, oid)
	if n := v.retries[k]; n > 0 {
		v.retries[k] = n - 1
		return [][]byte{BuildStatusResponse(gid, oid, statusCommandRetry)}
	}
	if h, ok := v.overrides[k]; ok {
		return h(p)
	}

	switch {
	case gid == 0x00:
		return v.handleCore(oid)
	case gid == 0x01:
		return v.handleSessionConfig(oid, p)
	case gid == 0x02:
		return v.handleSessionControl(oid, p)
	case gid == 0x0C && oid == 0x01:
		v.countryCode = string(p)
		return [][]byte{BuildStatusResponse(gid, oid, statusOk)}
	case gid == 0x0C && oid == 0x11:
		return v.setConfig(gid, oid, p)
	case gid >= 0x09:
		return [][]byte{BuildResponse(gid, oid, append([]byte{statusOk}, p...))}
	}
	return [][]byte{BuildStatusResponse(gid, oid, statusUnknownGID)}
}

func (v *VirtualChip) handleCore(oid byte) [][]byte {
	switch oid {
	case 0x00:
		v.sessions = make(map[uint32]*VirtualSession)
		return [][]byte{BuildStatusResponse(0x00, oid, statusOk), BuildDeviceStatusNotification(0x01)}
	case 0x02:
		return [][]byte{BuildDeviceInfoResponse(0x0002, 0x0003, 0x0003, 0x0001, []byte("VCHIP"))}
	case 0x03:
		rsp := append([]byte{statusOk, countTLVs(v.caps)}, v.caps...)
		return [][]byte{BuildResponse(0x00, oid, rsp)}
	case 0x08:
		rsp := binary.LittleEndian.AppendUint64([]byte{statusOk}, 0x1122334455)
		return [][]byte{BuildResponse(0x00, oid, rsp)}
	}
	return [][]byte{BuildStatusResponse(0x00, oid, statusUnknownGID)}
}

func (v *VirtualChip) handleSessionConfig(oid byte, p []byte) [][]byte {
	if oid == 0x00 {
		return v.initSession(p)
	}
	if oid == 0x05 {
		return [][]byte{BuildResponse(0x01, oid, []byte{statusOk, byte(len(v.sessions))})}
	}
	if len(p) < 4 {
		return [][]byte{BuildStatusResponse(0x01, oid, 0x06)}
	}
	token := binary.LittleEndian.Uint32(p)
	s, ok := v.sessions[token]
	if !ok && oid != 0x0B {
		return [][]byte{BuildStatusResponse(0x01, oid, statusSessionNotExist)}
	}

	switch oid {
	case 0x01:
		delete(v.sessions, token)
		return [][]byte{
			BuildStatusResponse(0x01, oid, statusOk),
			BuildSessionStatusNotification(token, sessionDeinit, 0x00),
		}
	case 0x03:
		return v.setConfig(0x01, oid, p)
	case 0x04:
		return [][]byte{BuildResponse(0x01, oid, s.getConfig(p[4:]))}
	case 0x06:
		return [][]byte{BuildResponse(0x01, oid, []byte{statusOk, s.State})}
	case 0x07:
		return v.multicastUpdate(token, p[4:])
	case 0x09:
		return [][]byte{BuildResponse(0x01, oid, []byte{statusOk, 0x00})}
	case 0x0B:
		rsp := binary.LittleEndian.AppendUint32(nil, token)
		rsp = append(rsp, statusOk)
		rsp = binary.LittleEndian.AppendUint16(rsp, 1024)
		return [][]byte{BuildResponse(0x01, oid, rsp)}
	case 0x0C:
		return [][]byte{BuildStatusResponse(0x01, oid, statusOk)}
	case 0x0E:
		ntf := binary.LittleEndian.AppendUint32(nil, token)
		return [][]byte{
			BuildStatusResponse(0x01, oid, statusOk),
			BuildNotification(0x01, oid, append(ntf, statusOk)),
		}
	}
	return [][]byte{BuildStatusResponse(0x01, oid, statusUnknownGID)}
}

func (v *VirtualChip) initSession(p []byte) [][]byte {
	if len(p) < 5 {
		return [][]byte{BuildStatusResponse(0x01, 0x00, 0x06)}
	}
	id := binary.LittleEndian.Uint32(p)
	for _, s := range v.sessions {
		if s.ID == id {
			return [][]byte{BuildStatusResponse(0x01, 0x00, statusSessionDuplicate)}
		}
	}
	token := id
	rsp := []byte{statusOk}
	if v.uci2 {
		token = v.nextToken
		v.nextToken++
		rsp = binary.LittleEndian.AppendUint32(rsp, token)
	}
	v.sessions[token] = &VirtualSession{
		Config: make(map[byte][]byte),
		ID:     id,
		Token:  token,
		Type:   p[4],
		State:  sessionInit,
	}
	return [][]byte{
		BuildResponse(0x01, 0x00, rsp),
		BuildSessionStatusNotification(token, sessionInit, 0x00),
	}
}

// setConfig stores short-format TLVs and moves an Init session to Idle.
func (v *VirtualChip) setConfig(gid, oid byte, p []byte) [][]byte {
	if len(p) < 5 {
		return [][]byte{BuildStatusResponse(gid, oid, 0x06)}
	}
	token := binary.LittleEndian.Uint32(p)
	s, ok := v.sessions[token]
	if !ok {
		return [][]byte{BuildResponse(gid, oid, []byte{statusSessionNotExist, 0x00})}
	}
	tlvs := p[5:]
	for len(tlvs) >= 2 && len(tlvs) >= 2+int(tlvs[1]) {
		s.Config[tlvs[0]] = append([]byte(nil), tlvs[2:2+int(tlvs[1])]...)
		tlvs = tlvs[2+int(tlvs[1]):]
	}
	out := [][]byte{BuildResponse(gid, oid, []byte{statusOk, 0x00})}
	if s.State == sessionInit {
		s.State = sessionIdle
		out = append(out, BuildSessionStatusNotification(token, sessionIdle, 0x00))
	}
	return out
}

func (s *VirtualSession) getConfig(p []byte) []byte {
	var tags []byte
	if len(p) > 0 && int(p[0]) <= len(p)-1 {
		tags = p[1 : 1+int(p[0])]
	}
	if len(tags) == 0 {
		for t := range s.Config {
			tags = append(tags, t)
		}
		sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	}
	var body []byte
	var n byte
	for _, t := range tags {
		val, ok := s.Config[t]
		if !ok {
			continue
		}
		body = append(body, t, byte(len(val)))
		body = append(body, val...)
		n++
	}
	return append([]byte{statusOk, n}, body...)
}

func (v *VirtualChip) multicastUpdate(token uint32, p []byte) [][]byte {
	if len(p) < 2 {
		return [][]byte{BuildStatusResponse(0x01, 0x07, 0x06)}
	}
	action, count := p[0], int(p[1])
	entry := 6
	switch action {
	case 0x02:
		entry += 16
	case 0x03:
		entry += 32
	}
	ntf := binary.LittleEndian.AppendUint32(nil, token)
	ntf = append(ntf, 8, 0)
	body := p[2:]
	var n byte
	for i := 0; i < count && len(body) >= entry; i++ {
		ntf = append(ntf, body[:6]...)
		ntf = append(ntf, statusOk)
		body = body[entry:]
		n++
	}
	ntf[5] = n
	return [][]byte{
		BuildStatusResponse(0x01, 0x07, statusOk),
		BuildNotification(0x01, 0x07, ntf),
	}
}

func (v *VirtualChip) handleSessionControl(oid byte, p []byte) [][]byte {
	if len(p) < 4 {
		return [][]byte{BuildStatusResponse(0x02, oid, 0x06)}
	}
	token := binary.LittleEndian.Uint32(p)
	s, ok := v.sessions[token]
	if !ok {
		return [][]byte{BuildStatusResponse(0x02, oid, statusSessionNotExist)}
	}
	switch oid {
	case 0x00:
		s.State = sessionActive
		peer := s.Config[0x07]
		if len(peer) != 2 && len(peer) != 8 {
			peer = []byte{0x01, 0x02}
		}
		return [][]byte{
			BuildStatusResponse(0x02, oid, statusOk),
			BuildSessionStatusNotification(token, sessionActive, 0x00),
			BuildRangeDataNotification(1, token, 200, TwoWay{Address: peer, Distance: 100, RSSI: 0x50}),
		}
	case 0x01:
		s.State = sessionIdle
		return [][]byte{
			BuildStatusResponse(0x02, oid, statusOk),
			BuildSessionStatusNotification(token, sessionIdle, 0x03),
		}
	}
	return [][]byte{BuildStatusResponse(0x02, oid, statusUnknownGID)}
}

// handleData acknowledges a data send with a transfer status.
func (v *VirtualChip) handleData(p []byte) [][]byte {
	if len(p) < 14 {
		return nil
	}
	token := binary.LittleEndian.Uint32(p)
	seq := binary.LittleEndian.Uint16(p[12:])
	return [][]byte{BuildDataSendStatusNotification(token, seq, statusOk, 1)}
}

func countTLVs(b []byte) byte {
	var n byte
	for len(b) >= 2 && len(b) >= 2+int(b[1]) {
		b = b[2+int(b[1]):]
		n++
	}
	return n
}

// ReadPacket returns the next queued packet or a timeout error.
func (v *VirtualChip) ReadPacket() ([]byte, error) {
	v.mu.Lock()
	timeout := v.timeout
	v.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case p := <-v.inbound:
		return p, nil
	case <-v.done:
		return nil, uwb.ErrTransportClosed
	case <-timer.C:
		return nil, uwb.NewTimeoutError("ReadPacket", "virtual")
	}
}

// Close stops the chip.
func (v *VirtualChip) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.closed {
		v.closed = true
		close(v.done)
	}
	return nil
}

// SetTimeout sets the ReadPacket timeout.
func (v *VirtualChip) SetTimeout(timeout time.Duration) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.timeout = timeout
	return nil
}

// IsConnected reports whether Close has not been called.
func (v *VirtualChip) IsConnected() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.closed
}

// Type returns uwb.TransportMock.
func (*VirtualChip) Type() uwb.TransportType {
	return uwb.TransportMock
}

var _ uwb.Transport = (*VirtualChip)(nil)
