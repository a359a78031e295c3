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
	"sync"
	"time"

	"github.com/ZaparooProject/go-uwb/params"
)

// BlockingMockTransport is a packet transport whose writes block until
// Unblock is called. It is used for testing context cancellation and lock
// hand-off between goroutines.
type BlockingMockTransport struct {
	blockChan    chan struct{}
	inbound      chan []byte
	ResponseFunc func(packet []byte) ([]byte, error)
	written      [][]byte
	timeout      time.Duration
	mu           sync.Mutex
	closed       bool
}

// NewBlockingMockTransport creates a new blocking mock transport
func NewBlockingMockTransport() *BlockingMockTransport {
	return &BlockingMockTransport{
		blockChan: make(chan struct{}),
		inbound:   make(chan []byte, 16),
		timeout:   5 * time.Second,
	}
}

// WritePacket blocks until Unblock() is called, the timeout expires or the
// transport is closed. The response of ResponseFunc, if any, is queued for
// ReadPacket.
func (m *BlockingMockTransport) WritePacket(packet []byte) error {
	m.mu.Lock()
	blockChan := m.blockChan
	closed := m.closed
	timeout := m.timeout
	m.mu.Unlock()

	if closed {
		return ErrTransportClosed
	}

	select {
	case <-blockChan:
	case <-time.After(timeout):
		return NewTimeoutError("WritePacket", "mock")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrTransportClosed
	}
	m.written = append(m.written, append([]byte(nil), packet...))

	if m.ResponseFunc != nil {
		resp, err := m.ResponseFunc(packet)
		if err != nil {
			return err
		}
		if resp != nil {
			m.inbound <- resp
		}
	}
	return nil
}

// ReadPacket returns the next queued packet or a timeout error.
func (m *BlockingMockTransport) ReadPacket() ([]byte, error) {
	m.mu.Lock()
	timeout := m.timeout
	m.mu.Unlock()

	select {
	case p, ok := <-m.inbound:
		if !ok {
			return nil, ErrTransportClosed
		}
		return p, nil
	case <-time.After(timeout):
		return nil, NewTimeoutError("ReadPacket", "mock")
	}
}

// Inject queues a packet as if the chip had sent it.
func (m *BlockingMockTransport) Inject(packet []byte) {
	m.inbound <- append([]byte(nil), packet...)
}

// Written returns the packets written so far.
func (m *BlockingMockTransport) Written() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.written...)
}

// Unblock allows one blocked WritePacket to proceed
func (m *BlockingMockTransport) Unblock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		close(m.blockChan)
		m.blockChan = make(chan struct{})
	}
}

// Close unblocks all operations and marks transport as closed
func (m *BlockingMockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.blockChan)
	}
	return nil
}

// SetResponseFunc configures the reply generated for each written packet
func (m *BlockingMockTransport) SetResponseFunc(fn func(packet []byte) ([]byte, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResponseFunc = fn
}

// SetTimeout configures the timeout for blocking operations
func (m *BlockingMockTransport) SetTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return nil
}

// IsConnected reports whether Close has not been called
func (m *BlockingMockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type returns TransportMock
func (*BlockingMockTransport) Type() TransportType {
	return TransportMock
}

// MockCall records one call made on a MockBridge.
type MockCall struct {
	Op        string
	ChipID    string
	Payload   []byte
	SessionID uint32
	NumParams int
}

// MockBridge is a scripted Bridge for tests. Every call succeeds with
// StatusOk unless a status or error was set for its operation name, which
// is the Bridge method name.
type MockBridge struct {
	sink          NotificationSink
	errors        map[string]error
	statuses      map[string]Status
	deviceInfo    map[string]*DeviceInfo
	configStatus  *ConfigStatus
	configResp    *ConfigResponse
	capsResp      *ConfigResponse
	calls         []MockCall
	delay         time.Duration
	active        int
	maxActive     int
	mu            sync.Mutex
	nilConfigResp bool
}

// NewMockBridge creates a MockBridge answering Ok to everything.
func NewMockBridge() *MockBridge {
	return &MockBridge{
		errors:       make(map[string]error),
		statuses:     make(map[string]Status),
		deviceInfo:   make(map[string]*DeviceInfo),
		configStatus: &ConfigStatus{Status: StatusOk},
	}
}

// SetError makes op fail with err.
func (m *MockBridge) SetError(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[op] = err
}

// SetStatus makes op report st.
func (m *MockBridge) SetStatus(op string, st Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[op] = st
}

// SetChipStatus makes op report st on one chip only.
func (m *MockBridge) SetChipStatus(op, chipID string, st Status) {
	m.SetStatus(op+"@"+chipID, st)
}

// SetChipError makes op fail with err on one chip only.
func (m *MockBridge) SetChipError(op, chipID string, err error) {
	m.SetError(op+"@"+chipID, err)
}

// SetDeviceInfo sets the Initialize response of a chip.
func (m *MockBridge) SetDeviceInfo(chipID string, info *DeviceInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deviceInfo[chipID] = info
}

// SetConfigStatus sets the response of both set-configuration calls. A
// nil status makes them return no response at all.
func (m *MockBridge) SetConfigStatus(st *ConfigStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configStatus = st
	m.nilConfigResp = st == nil
}

// SetConfigResponse sets the response of GetAppConfigurations.
func (m *MockBridge) SetConfigResponse(resp *ConfigResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configResp = resp
}

// SetCapsResponse sets the response of GetCapsInfo.
func (m *MockBridge) SetCapsResponse(resp *ConfigResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capsResp = resp
}

// SetDelay makes every call take at least d.
func (m *MockBridge) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetNotificationSink records where Emit delivers notifications.
func (m *MockBridge) SetNotificationSink(sink NotificationSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink = sink
}

// Emit delivers n to the sink as if the chip had sent it.
func (m *MockBridge) Emit(n Notification) error {
	m.mu.Lock()
	sink := m.sink
	m.mu.Unlock()
	if sink == nil {
		return ErrDispatcherClosed
	}
	return sink.Notify(n)
}

// Calls returns the recorded calls in order.
func (m *MockBridge) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// CallCount returns how many times op was called.
func (m *MockBridge) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// MaxConcurrent returns the highest number of calls seen in flight at once.
func (m *MockBridge) MaxConcurrent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxActive
}

// enter records a call and returns the scripted status and error for it.
func (m *MockBridge) enter(c MockCall) (Status, error) {
	m.mu.Lock()
	m.calls = append(m.calls, c)
	m.active++
	if m.active > m.maxActive {
		m.maxActive = m.active
	}
	delay := m.delay
	st, ok := m.statuses[c.Op+"@"+c.ChipID]
	if !ok {
		st = m.statuses[c.Op]
	}
	err, ok := m.errors[c.Op+"@"+c.ChipID]
	if !ok {
		err = m.errors[c.Op]
	}
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	m.mu.Lock()
	m.active--
	m.mu.Unlock()
	return st, err
}

func (m *MockBridge) status(ctx context.Context, c MockCall) (Status, error) {
	if err := ctx.Err(); err != nil {
		return StatusFailed, err
	}
	st, err := m.enter(c)
	if err != nil {
		return StatusFailed, err
	}
	return st, nil
}

// Initialize implements Bridge.
func (m *MockBridge) Initialize(ctx context.Context, chipID string) (*DeviceInfo, error) {
	st, err := m.status(ctx, MockCall{Op: "Initialize", ChipID: chipID})
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if info, ok := m.deviceInfo[chipID]; ok {
		return info, nil
	}
	return &DeviceInfo{Status: st, UCIVersion: 0x0002, MACVersion: 0x0003, PHYVersion: 0x0003}, nil
}

// Deinitialize implements Bridge.
func (m *MockBridge) Deinitialize(ctx context.Context, chipID string) error {
	_, err := m.status(ctx, MockCall{Op: "Deinitialize", ChipID: chipID})
	return err
}

// DeviceReset implements Bridge.
func (m *MockBridge) DeviceReset(ctx context.Context, resetConfig byte, chipID string) (Status, error) {
	return m.status(ctx, MockCall{Op: "DeviceReset", ChipID: chipID, Payload: []byte{resetConfig}})
}

// GetCapsInfo implements Bridge.
func (m *MockBridge) GetCapsInfo(ctx context.Context, chipID string) (*ConfigResponse, error) {
	if _, err := m.status(ctx, MockCall{Op: "GetCapsInfo", ChipID: chipID}); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.capsResp, nil
}

// InitSession implements Bridge.
func (m *MockBridge) InitSession(ctx context.Context, sessionID uint32, sessionType byte, chipID string) (Status, error) {
	return m.status(ctx, MockCall{Op: "InitSession", ChipID: chipID, SessionID: sessionID, Payload: []byte{sessionType}})
}

// DeinitSession implements Bridge.
func (m *MockBridge) DeinitSession(ctx context.Context, sessionID uint32, chipID string) (Status, error) {
	return m.status(ctx, MockCall{Op: "DeinitSession", ChipID: chipID, SessionID: sessionID})
}

// GetSessionToken implements Bridge. The token equals the session id.
func (m *MockBridge) GetSessionToken(ctx context.Context, sessionID uint32, chipID string) (uint32, error) {
	if _, err := m.status(ctx, MockCall{Op: "GetSessionToken", ChipID: chipID, SessionID: sessionID}); err != nil {
		return 0, err
	}
	return sessionID, nil
}

// GetSessionCount implements Bridge.
func (m *MockBridge) GetSessionCount(ctx context.Context, chipID string) (int, error) {
	if _, err := m.status(ctx, MockCall{Op: "GetSessionCount", ChipID: chipID}); err != nil {
		return 0, err
	}
	return m.CallCount("InitSession") - m.CallCount("DeinitSession"), nil
}

// GetSessionState implements Bridge.
func (m *MockBridge) GetSessionState(ctx context.Context, sessionID uint32, chipID string) (SessionState, error) {
	if _, err := m.status(ctx, MockCall{Op: "GetSessionState", ChipID: chipID, SessionID: sessionID}); err != nil {
		return SessionStateDeinit, err
	}
	return SessionStateIdle, nil
}

func (m *MockBridge) setConfig(ctx context.Context, c MockCall) (*ConfigStatus, error) {
	if _, err := m.status(ctx, c); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nilConfigResp {
		return nil, nil
	}
	out := *m.configStatus
	return &out, nil
}

// SetAppConfigurations implements Bridge.
func (m *MockBridge) SetAppConfigurations(
	ctx context.Context, sessionID uint32, numParams int, tlvs []byte, chipID string,
) (*ConfigStatus, error) {
	return m.setConfig(ctx, MockCall{
		Op: "SetAppConfigurations", ChipID: chipID, SessionID: sessionID, NumParams: numParams, Payload: tlvs,
	})
}

// SetRadarAppConfigurations implements Bridge.
func (m *MockBridge) SetRadarAppConfigurations(
	ctx context.Context, sessionID uint32, numParams int, tlvs []byte, chipID string,
) (*ConfigStatus, error) {
	return m.setConfig(ctx, MockCall{
		Op: "SetRadarAppConfigurations", ChipID: chipID, SessionID: sessionID, NumParams: numParams, Payload: tlvs,
	})
}

// GetAppConfigurations implements Bridge.
func (m *MockBridge) GetAppConfigurations(
	ctx context.Context, sessionID uint32, tags []byte, chipID string,
) (*ConfigResponse, error) {
	c := MockCall{Op: "GetAppConfigurations", ChipID: chipID, SessionID: sessionID, Payload: tags}
	if _, err := m.status(ctx, c); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.configResp, nil
}

// StartRanging implements Bridge.
func (m *MockBridge) StartRanging(ctx context.Context, sessionID uint32, chipID string) (Status, error) {
	return m.status(ctx, MockCall{Op: "StartRanging", ChipID: chipID, SessionID: sessionID})
}

// StopRanging implements Bridge.
func (m *MockBridge) StopRanging(ctx context.Context, sessionID uint32, chipID string) (Status, error) {
	return m.status(ctx, MockCall{Op: "StopRanging", ChipID: chipID, SessionID: sessionID})
}

// ControllerMulticastListUpdate implements Bridge.
func (m *MockBridge) ControllerMulticastListUpdate(
	ctx context.Context, sessionID uint32, update MulticastUpdate, chipID string,
) (Status, error) {
	return m.status(ctx, MockCall{
		Op: "ControllerMulticastListUpdate", ChipID: chipID, SessionID: sessionID,
		NumParams: len(update.Controlees), Payload: []byte{update.Action},
	})
}

// UpdateDtTagRangingRounds implements Bridge.
func (m *MockBridge) UpdateDtTagRangingRounds(
	ctx context.Context, sessionID uint32, rounds []byte, chipID string,
) (*DtTagRoundsStatus, error) {
	st, err := m.status(ctx, MockCall{Op: "UpdateDtTagRangingRounds", ChipID: chipID, SessionID: sessionID, Payload: rounds})
	if err != nil {
		return nil, err
	}
	return &DtTagRoundsStatus{Status: st}, nil
}

// SetHybridSessionConfig implements Bridge.
func (m *MockBridge) SetHybridSessionConfig(ctx context.Context, cfg HybridSessionConfig, chipID string) (Status, error) {
	return m.status(ctx, MockCall{
		Op: "SetHybridSessionConfig", ChipID: chipID, SessionID: cfg.SessionID, NumParams: len(cfg.Phases),
	})
}

// SendData implements Bridge.
func (m *MockBridge) SendData(
	ctx context.Context, sessionID uint32, _ params.Address, _ uint16, data []byte, chipID string,
) (Status, error) {
	return m.status(ctx, MockCall{Op: "SendData", ChipID: chipID, SessionID: sessionID, Payload: data})
}

// SetDataTransferPhaseConfig implements Bridge.
func (m *MockBridge) SetDataTransferPhaseConfig(
	ctx context.Context, cfg DataTransferPhaseConfig, chipID string,
) (Status, error) {
	return m.status(ctx, MockCall{Op: "SetDataTransferPhaseConfig", ChipID: chipID, SessionID: cfg.SessionID})
}

// QueryMaxDataSize implements Bridge.
func (m *MockBridge) QueryMaxDataSize(ctx context.Context, sessionID uint32, chipID string) (int, error) {
	if _, err := m.status(ctx, MockCall{Op: "QueryMaxDataSize", ChipID: chipID, SessionID: sessionID}); err != nil {
		return 0, err
	}
	return 1024, nil
}

// QueryTimestamp implements Bridge.
func (m *MockBridge) QueryTimestamp(ctx context.Context, chipID string) (uint64, error) {
	if _, err := m.status(ctx, MockCall{Op: "QueryTimestamp", ChipID: chipID}); err != nil {
		return 0, err
	}
	return uint64(time.Now().UnixMicro()), nil
}

// SetCountryCode implements Bridge.
func (m *MockBridge) SetCountryCode(ctx context.Context, code, chipID string) (Status, error) {
	return m.status(ctx, MockCall{Op: "SetCountryCode", ChipID: chipID, Payload: []byte(code)})
}

// SendRawVendorCmd implements Bridge. The payload is echoed back.
func (m *MockBridge) SendRawVendorCmd(ctx context.Context, cmd VendorCommand, chipID string) (*VendorResponse, error) {
	st, err := m.status(ctx, MockCall{Op: "SendRawVendorCmd", ChipID: chipID, Payload: cmd.Payload})
	if err != nil {
		return nil, err
	}
	return &VendorResponse{Status: st, GID: cmd.GID, OID: cmd.OID, Payload: append([]byte(nil), cmd.Payload...)}, nil
}

var _ Bridge = (*MockBridge)(nil)
