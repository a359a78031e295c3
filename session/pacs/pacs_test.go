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

package pacs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	uwb "github.com/ZaparooProject/go-uwb"
	"github.com/ZaparooProject/go-uwb/oob"
	"github.com/ZaparooProject/go-uwb/params"
	"github.com/ZaparooProject/go-uwb/params/fira"
	"github.com/ZaparooProject/go-uwb/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	initErr error
	peer    DiscoveryResult
	cb      TransportCallback
	inits   int
	starts  int
	stops   int
	mu      sync.Mutex
}

func (f *fakeTransport) Init(peer DiscoveryResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits++
	f.peer = peer
	return f.initErr
}

func (f *fakeTransport) Start(cb TransportCallback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	f.cb = cb
	return nil
}

func (f *fakeTransport) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

type fakeSecure struct {
	cb     SecureCallback
	starts int
	mu     sync.Mutex
}

func (f *fakeSecure) Start(cb SecureCallback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	f.cb = cb
	return nil
}

type harness struct {
	bridge    *uwb.MockBridge
	discovery *NDEFDiscovery
	transport *fakeTransport
	secure    *fakeSecure
	session   *Session
	reports   []session.Report
	mu        sync.Mutex
}

func firaParams(data SessionData) (params.Params, params.ProtocolVersion, error) {
	p, err := fira.NewOpenSessionBuilder().
		SetProtocolVersion(fira.ProtocolVersion11).
		SetSessionID(data.SessionID).
		SetDeviceType(fira.DeviceTypeController).
		SetDeviceRole(fira.RoleInitiator).
		SetMultiNodeMode(fira.MultiNodeUnicast).
		SetRangingRoundUsage(fira.RoundUsageSsTwrDeferred).
		SetDeviceAddress(params.MustAddress(0x04, 0x06)).
		SetDestAddresses(params.MustAddress(0x12, 0x34)).
		SetVendorID([]byte{0x05, 0x78}).
		SetStaticStsIV([]byte{0x1A, 0x55, 0x77, 0x47, 0x7E, 0x7D}).
		Build()
	if err != nil {
		return nil, params.ProtocolVersion{}, err
	}
	return p, fira.ProtocolVersion11, nil
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, nil)
}

// newHarnessWith lets a test adjust the session config before New.
func newHarnessWith(t *testing.T, adjust func(*Config)) *harness {
	t.Helper()
	h := &harness{
		bridge:    uwb.NewMockBridge(),
		discovery: NewNDEFDiscovery(),
		transport: &fakeTransport{},
		secure:    &fakeSecure{},
	}
	cfg := Config{
		Key:       session.Key{ChipID: "chip0", SessionID: 42},
		Discovery: h.discovery,
		Transport: h.transport,
		Secure:    h.secure,
		Ranging:   NewRadioRangingHost(h.bridge, "chip0", byte(fira.SessionTypeRanging), firaParams),
	}
	if adjust != nil {
		adjust(&cfg)
	}
	s, err := New(cfg, session.WithStatusCallback(func(r session.Report) {
		h.mu.Lock()
		h.reports = append(h.reports, r)
		h.mu.Unlock()
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	h.session = s
	return h
}

func (h *harness) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	// Handlers post follow-up events up to two levels deep (data ready,
	// ranging init, ranging opened); each barrier settles one level.
	for range 3 {
		require.NoError(t, h.session.Controller().Flush(ctx))
	}
}

func (h *harness) failures() []session.Report {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]session.Report(nil), h.reports...)
}

func connectorMessage(t *testing.T) []byte {
	t.Helper()
	msg, err := oob.Marshal(oob.ConnectorInfo{
		Role:       fira.RoleResponder,
		MACAddress: params.MustAddress(0x12, 0x34),
		Versions:   []params.ProtocolVersion{fira.ProtocolVersion11},
	})
	require.NoError(t, err)
	return msg
}

// toRanging walks a fresh session up to Ranging with ranging started.
func (h *harness) toRanging(t *testing.T) {
	t.Helper()
	require.NoError(t, h.session.Start())
	h.flush(t)
	require.Equal(t, session.StateDiscovery, h.session.State())
	require.True(t, h.discovery.Scanning())

	require.NoError(t, h.discovery.Deliver(connectorMessage(t)))
	h.flush(t)
	require.Equal(t, session.StateTransport, h.session.State())

	h.session.OnTransportCompleted()
	h.flush(t)
	require.Equal(t, session.StateSecure, h.session.State())

	h.session.OnSessionDataReady(SessionData{SessionID: 42})
	h.flush(t)
	require.Equal(t, session.StateRanging, h.session.State())
}

func TestSession_Walk(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	assert.Equal(t, session.StateIdle, h.session.State())
	h.toRanging(t)

	h.transport.mu.Lock()
	assert.Equal(t, 1, h.transport.inits)
	assert.Equal(t, 1, h.transport.starts)
	assert.Equal(t, 1, h.transport.stops)
	assert.Equal(t, params.MustAddress(0x12, 0x34), h.transport.peer.Connector.MACAddress)
	h.transport.mu.Unlock()
	assert.Equal(t, 1, h.secure.starts)

	assert.Equal(t, 1, h.bridge.CallCount("InitSession"))
	assert.Equal(t, 1, h.bridge.CallCount("SetAppConfigurations"))
	assert.Equal(t, 1, h.bridge.CallCount("StartRanging"))
	// Scanning resumes once ranging is open.
	assert.True(t, h.discovery.Scanning())

	require.NoError(t, h.session.End())
	h.flush(t)
	assert.Equal(t, session.StateEnding, h.session.State())
	assert.Equal(t, 1, h.bridge.CallCount("StopRanging"))
	assert.Equal(t, 1, h.bridge.CallCount("DeinitSession"))
	assert.False(t, h.discovery.Scanning())

	calls := len(h.bridge.Calls())
	for _, e := range []session.Event{session.EventStart, session.EventStop, session.EventRangingInit} {
		require.NoError(t, h.session.Controller().Post(e))
	}
	h.session.OnDiscovered(DiscoveryResult{})
	h.flush(t)
	assert.Equal(t, session.StateEnding, h.session.State())
	assert.Len(t, h.bridge.Calls(), calls)
	assert.Empty(t, h.failures())
}

func TestSession_StopInRangingStays(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.toRanging(t)

	require.NoError(t, h.session.Stop())
	require.NoError(t, h.session.Stop())
	h.flush(t)
	assert.Equal(t, session.StateRanging, h.session.State())
	assert.Equal(t, 1, h.bridge.CallCount("StopRanging"))
	assert.False(t, h.discovery.Scanning())

	require.NoError(t, h.session.Start())
	h.flush(t)
	assert.Equal(t, 2, h.bridge.CallCount("StartRanging"))
	assert.True(t, h.discovery.Scanning())
}

func TestSession_DiscoveryControls(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	require.NoError(t, h.session.Start())
	h.flush(t)
	require.NoError(t, h.session.Stop())
	h.flush(t)
	assert.Equal(t, session.StateDiscovery, h.session.State())
	assert.False(t, h.discovery.Scanning())
	require.ErrorIs(t, h.discovery.Deliver(connectorMessage(t)), ErrNotScanning)

	require.NoError(t, h.session.Start())
	h.flush(t)
	assert.True(t, h.discovery.Scanning())

	require.Error(t, h.discovery.Deliver([]byte{0xFF}))
	h.flush(t)
	assert.Equal(t, session.StateDiscovery, h.session.State())
	reports := h.failures()
	require.Len(t, reports, 1)
	require.ErrorIs(t, reports[0].Err, ErrDiscoveryFailed)
	assert.Equal(t, session.EventDiscoveryFailed, reports[0].Event)
}

func TestSession_FailuresStayPut(t *testing.T) {
	t.Parallel()

	tests := []struct {
		setup func(h *harness)
		event func(h *harness)
		want  error
		name  string
		state session.State
	}{
		{
			name: "transport init",
			setup: func(h *harness) {
				h.transport.initErr = errors.New("no link")
			},
			event: func(h *harness) {
				_ = h.session.Start()
				h.flushNoTest()
				_ = h.discovery.Deliver(connectorMessageNoTest())
			},
			want:  ErrTransportFailed,
			state: session.StateTransport,
		},
		{
			name: "secure aborted",
			event: func(h *harness) {
				_ = h.session.Start()
				h.flushNoTest()
				_ = h.discovery.Deliver(connectorMessageNoTest())
				h.flushNoTest()
				h.session.OnTransportCompleted()
				h.flushNoTest()
				h.session.OnSessionAborted()
			},
			want:  ErrSecureAborted,
			state: session.StateSecure,
		},
		{
			name: "open ranging",
			setup: func(h *harness) {
				h.bridge.SetStatus("InitSession", uwb.StatusRejected)
			},
			event: func(h *harness) {
				_ = h.session.Start()
				h.flushNoTest()
				_ = h.discovery.Deliver(connectorMessageNoTest())
				h.flushNoTest()
				h.session.OnTransportCompleted()
				h.flushNoTest()
				h.session.OnSessionDataReady(SessionData{SessionID: 42})
			},
			want:  uwb.ErrBridgeFailure,
			state: session.StateRanging,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			if tt.setup != nil {
				tt.setup(h)
			}
			tt.event(h)
			h.flush(t)

			assert.Equal(t, tt.state, h.session.State())
			reports := h.failures()
			require.NotEmpty(t, reports)
			require.ErrorIs(t, reports[len(reports)-1].Err, tt.want)
		})
	}
}

func (h *harness) flushNoTest() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for range 3 {
		_ = h.session.Controller().Flush(ctx)
	}
}

func connectorMessageNoTest() []byte {
	msg, err := oob.Marshal(oob.ConnectorInfo{
		Role:       fira.RoleResponder,
		MACAddress: params.MustAddress(0x12, 0x34),
		Versions:   []params.ProtocolVersion{fira.ProtocolVersion11},
	})
	if err != nil {
		panic(err)
	}
	return msg
}

func TestSession_DeinitNotification(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	var seen []uwb.SessionNotification
	m := session.NewManager()
	require.NoError(t, m.Add(h.session.Controller()))
	h.session.cfg.OnNotification = func(n uwb.SessionNotification) { seen = append(seen, n) }
	h.toRanging(t)

	m.Route(uwb.SessionStatus{Chip: "chip0", SessionID: 42, State: uwb.SessionStateDeinit})
	select {
	case <-h.session.Controller().Done():
	case <-time.After(time.Second):
		t.Fatal("session not closed after de-init")
	}
	assert.Equal(t, session.StateEnding, h.session.State())
	// The radio already dropped the session; no de-init is sent back.
	assert.Equal(t, 0, h.bridge.CallCount("DeinitSession"))
	assert.Len(t, seen, 1)
	assert.Equal(t, 0, m.Len())
}

// deadlineHost records whether each ranging call carried a deadline.
type deadlineHost struct {
	deadlines map[string]bool
	mu        sync.Mutex
}

func (d *deadlineHost) record(ctx context.Context, op string) error {
	_, ok := ctx.Deadline()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.deadlines == nil {
		d.deadlines = make(map[string]bool)
	}
	d.deadlines[op] = ok
	return nil
}

func (d *deadlineHost) Open(ctx context.Context, _ SessionData) error { return d.record(ctx, "open") }
func (d *deadlineHost) Start(ctx context.Context) error { return d.record(ctx, "start") }
func (d *deadlineHost) Stop(ctx context.Context) error { return d.record(ctx, "stop") }
func (d *deadlineHost) Close(ctx context.Context) error { return d.record(ctx, "close") }

func (d *deadlineHost) snapshot() map[string]bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]bool, len(d.deadlines))
	for k, v := range d.deadlines {
		out[k] = v
	}
	return out
}

func TestSession_RangingCallDeadlines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		timeout time.Duration
		want    bool
	}{
		{name: "unbounded by default", timeout: 0, want: false},
		{name: "explicit timeout", timeout: time.Minute, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			host := &deadlineHost{}
			h := newHarnessWith(t, func(cfg *Config) {
				cfg.Ranging = host
				cfg.CallTimeout = tt.timeout
			})
			h.toRanging(t)
			require.NoError(t, h.session.End())
			h.flush(t)

			got := host.snapshot()
			for _, op := range []string{"open", "start", "stop", "close"} {
				require.Contains(t, got, op)
				assert.Equal(t, tt.want, got[op], op)
			}
		})
	}
}

func TestNew_MissingDependency(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Discovery: NewNDEFDiscovery()})
	require.ErrorIs(t, err, ErrMissingDependency)
}
