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
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ZaparooProject/go-uwb"
	"github.com/ZaparooProject/go-uwb/codec"
	uwbtest "github.com/ZaparooProject/go-uwb/internal/testing"
	"github.com/ZaparooProject/go-uwb/params"
	"github.com/ZaparooProject/go-uwb/params/fira"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanSink chan uwb.Notification

func (s chanSink) Notify(n uwb.Notification) error {
	s <- n
	return nil
}

// next waits for the first notification of type T, skipping others.
func next[T uwb.Notification](t *testing.T, s chanSink) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case n := <-s:
			if v, ok := n.(T); ok {
				return v
			}
		case <-deadline:
			var zero T
			t.Fatalf("no %T notification", zero)
			return zero
		}
	}
}

func newTestBridge(t *testing.T, opts ...Option) (*Bridge, *uwbtest.VirtualChip, chanSink) {
	t.Helper()
	chip := uwbtest.NewVirtualChip()
	sink := make(chanSink, 64)
	opts = append([]Option{WithSink(sink), WithResponseTimeout(200 * time.Millisecond)}, opts...)
	b, err := New(map[string]uwb.Transport{"chip0": chip}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b, chip, sink
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	require.ErrorIs(t, err, uwb.ErrNoChips)

	_, err = New(map[string]uwb.Transport{"chip0": nil})
	require.ErrorIs(t, err, uwb.ErrInvalidParameter)

	b, err := New(map[string]uwb.Transport{
		"b": uwbtest.NewVirtualChip(),
		"a": uwbtest.NewVirtualChip(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, b.Chips())
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
}

func TestBridge_Initialize(t *testing.T) {
	t.Parallel()

	b, _, sink := newTestBridge(t)
	info, err := b.Initialize(context.Background(), "chip0")
	require.NoError(t, err)
	assert.Equal(t, uwb.StatusOk, info.Status)
	assert.Equal(t, uint16(0x0002), info.UCIVersion)
	assert.Equal(t, uint16(0x0003), info.MACVersion)
	assert.Equal(t, []byte("VCHIP"), info.VendorInfo)

	ds := next[uwb.DeviceStatus](t, sink)
	assert.Equal(t, uwb.DeviceStateReady, ds.State)
	assert.Equal(t, "chip0", ds.ChipID())

	_, err = b.Initialize(context.Background(), "nope")
	assert.ErrorIs(t, err, uwb.ErrUnknownChip)
}

func TestBridge_SessionLifecycle(t *testing.T) {
	t.Parallel()

	for _, uci2 := range []bool{false, true} {
		name := "uci1"
		if uci2 {
			name = "uci2"
		}
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			b, chip, sink := newTestBridge(t)
			chip.SetUCI2(uci2)

			st, err := b.InitSession(ctx, 42, 0x00, "chip0")
			require.NoError(t, err)
			require.Equal(t, uwb.StatusOk, st)

			token, err := b.GetSessionToken(ctx, 42, "chip0")
			require.NoError(t, err)
			if uci2 {
				assert.NotEqual(t, uint32(42), token)
			} else {
				assert.Equal(t, uint32(42), token)
			}

			// Notifications carry the host session id whatever the handle.
			ss := next[uwb.SessionStatus](t, sink)
			assert.Equal(t, uint32(42), ss.SessionID)
			assert.Equal(t, uwb.SessionStateInit, ss.State)

			buf := tlvConfig()
			cs, err := b.SetAppConfigurations(ctx, 42, 2, buf, "chip0")
			require.NoError(t, err)
			assert.Equal(t, uwb.StatusOk, cs.Status)
			assert.Empty(t, cs.Failed)
			assert.Equal(t, uwb.SessionStateIdle, next[uwb.SessionStatus](t, sink).State)

			state, err := b.GetSessionState(ctx, 42, "chip0")
			require.NoError(t, err)
			assert.Equal(t, uwb.SessionStateIdle, state)

			count, err := b.GetSessionCount(ctx, "chip0")
			require.NoError(t, err)
			assert.Equal(t, 1, count)

			st, err = b.StartRanging(ctx, 42, "chip0")
			require.NoError(t, err)
			assert.Equal(t, uwb.StatusOk, st)
			rd := next[uwb.RangeData](t, sink)
			assert.Equal(t, uint32(42), rd.SessionID)
			require.Len(t, rd.TwoWay, 1)
			assert.Equal(t, params.Address{0x04, 0x06}, rd.TwoWay[0].Address)
			assert.Equal(t, uint16(100), rd.TwoWay[0].Distance)

			st, err = b.StopRanging(ctx, 42, "chip0")
			require.NoError(t, err)
			assert.Equal(t, uwb.StatusOk, st)

			st, err = b.DeinitSession(ctx, 42, "chip0")
			require.NoError(t, err)
			assert.Equal(t, uwb.StatusOk, st)
			_, err = b.GetSessionToken(ctx, 42, "chip0")
			assert.ErrorIs(t, err, ErrUnknownSession)

			st, err = b.StartRanging(ctx, 42, "chip0")
			require.NoError(t, err)
			assert.Equal(t, uwb.StatusSessionNotExist, st)
		})
	}
}

// tlvConfig is a device type and a destination address in short format.
func tlvConfig() []byte {
	return []byte{0x00, 0x01, 0x01, 0x07, 0x02, 0x04, 0x06}
}

func TestBridge_GetAppConfigurations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b, _, _ := newTestBridge(t)
	_, err := b.InitSession(ctx, 1, 0, "chip0")
	require.NoError(t, err)
	_, err = b.SetAppConfigurations(ctx, 1, 2, tlvConfig(), "chip0")
	require.NoError(t, err)

	resp, err := b.GetAppConfigurations(ctx, 1, []byte{0x07}, "chip0")
	require.NoError(t, err)
	assert.Equal(t, uwb.StatusOk, resp.Status)
	assert.Equal(t, 1, resp.NumParams)
	assert.Equal(t, []byte{0x07, 0x02, 0x04, 0x06}, resp.TLVs)

	resp, err = b.GetAppConfigurations(ctx, 9, nil, "chip0")
	require.NoError(t, err)
	assert.Equal(t, uwb.StatusSessionNotExist, resp.Status)
	assert.Nil(t, resp.TLVs)
}

func TestBridge_SegmentedCommand(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b, chip, _ := newTestBridge(t)
	_, err := b.InitSession(ctx, 5, 0, "chip0")
	require.NoError(t, err)

	// Three 200-byte vendor values push the payload past one segment.
	var tlvs []byte
	for tag := byte(0xE0); tag < 0xE3; tag++ {
		tlvs = append(tlvs, tag, 200)
		tlvs = append(tlvs, bytes.Repeat([]byte{tag}, 200)...)
	}
	cs, err := b.SetAppConfigurations(ctx, 5, 3, tlvs, "chip0")
	require.NoError(t, err)
	assert.Equal(t, uwb.StatusOk, cs.Status)

	s, ok := chip.Session(5)
	require.True(t, ok)
	assert.Len(t, s.Config, 3)
	assert.Equal(t, bytes.Repeat([]byte{0xE2}, 200), s.Config[0xE2])

	var segmented int
	for _, p := range chip.Written() {
		if p[0]&0x10 != 0 {
			segmented++
		}
	}
	assert.Equal(t, 2, segmented)
}

func TestBridge_CommandRetry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	b, chip, _ := newTestBridge(t)
	chip.RetryNext(GIDAndroid, OIDAndroidCountryCode, 2)
	st, err := b.SetCountryCode(ctx, "DE", "chip0")
	require.NoError(t, err)
	assert.Equal(t, uwb.StatusOk, st)
	assert.Equal(t, "DE", chip.CountryCode())
	assert.Len(t, chip.Written(), 3)

	b2, chip2, _ := newTestBridge(t, WithCommandRetries(1))
	chip2.RetryNext(GIDAndroid, OIDAndroidCountryCode, 5)
	st, err = b2.SetCountryCode(ctx, "DE", "chip0")
	assert.Equal(t, uwb.StatusFailed, st)
	assert.ErrorIs(t, err, uwb.ErrCommunicationFailed)
}

func TestBridge_ResponseTimeout(t *testing.T) {
	t.Parallel()

	b, chip, _ := newTestBridge(t, WithResponseTimeout(30*time.Millisecond))
	chip.SetSilent(true)

	st, err := b.StartRanging(context.Background(), 1, "chip0")
	assert.Equal(t, uwb.StatusFailed, st)
	assert.ErrorIs(t, err, uwb.ErrTransportTimeout)
	assert.True(t, uwb.IsRetryable(err))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	b2, chip2, _ := newTestBridge(t, WithResponseTimeout(time.Second))
	chip2.SetSilent(true)
	_, err = b2.QueryTimestamp(ctx, "chip0")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBridge_DataTransfer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b, chip, sink := newTestBridge(t)
	_, err := b.InitSession(ctx, 8, 0, "chip0")
	require.NoError(t, err)

	size, err := b.QueryMaxDataSize(ctx, 8, "chip0")
	require.NoError(t, err)
	assert.Equal(t, 1024, size)

	st, err := b.SendData(ctx, 8, params.MustAddress(0x04, 0x06), 7, []byte("payload"), "chip0")
	require.NoError(t, err)
	assert.Equal(t, uwb.StatusOk, st)

	ds := next[uwb.DataSendStatus](t, sink)
	assert.Equal(t, uint32(8), ds.SessionID)
	assert.Equal(t, uint16(7), ds.SequenceNumber)

	chip.Inject(uwbtest.BuildDataReceivedPacket(8, []byte{0x04, 0x06}, 3, []byte("pong")))
	dr := next[uwb.DataReceived](t, sink)
	assert.Equal(t, []byte("pong"), dr.Data)

	st, err = b.SetDataTransferPhaseConfig(ctx, uwb.DataTransferPhaseConfig{
		SessionID:      8,
		Repetition:     1,
		ManagementSize: 1,
		Addresses:      []params.Address{params.MustAddress(0x04, 0x06)},
		SlotBitmap:     []byte{0x0F},
	}, "chip0")
	require.NoError(t, err)
	assert.Equal(t, uwb.StatusOk, st)
	dtp := next[uwb.DataTransferPhaseConfigStatus](t, sink)
	assert.Equal(t, uint32(8), dtp.SessionID)
}

func TestBridge_Multicast(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b, _, sink := newTestBridge(t)
	_, err := b.InitSession(ctx, 3, 0, "chip0")
	require.NoError(t, err)

	update := uwb.MulticastUpdate{
		Action: uwb.MulticastAddWithShortKey,
		Controlees: []uwb.MulticastControlee{
			{Address: params.MustAddress(0x01, 0x02), SubSessionID: 10, SubSessionKey: bytes.Repeat([]byte{1}, 16)},
			{Address: params.MustAddress(0x03, 0x04), SubSessionID: 11, SubSessionKey: bytes.Repeat([]byte{2}, 16)},
		},
	}
	st, err := b.ControllerMulticastListUpdate(ctx, 3, update, "chip0")
	require.NoError(t, err)
	assert.Equal(t, uwb.StatusOk, st)

	ml := next[uwb.MulticastListStatus](t, sink)
	assert.Equal(t, uint32(3), ml.SessionID)
	require.Len(t, ml.Controlees, 2)
	assert.Equal(t, params.Address{0x03, 0x04}, ml.Controlees[1].Address)
	assert.Equal(t, uint32(11), ml.Controlees[1].SubSessionID)

	update.Controlees[0].Address = params.MustAddress(1, 2, 3, 4, 5, 6, 7, 8)
	_, err = b.ControllerMulticastListUpdate(ctx, 3, update, "chip0")
	assert.ErrorIs(t, err, uwb.ErrInvalidParameter)
}

func TestBridge_MiscCommands(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b, chip, _ := newTestBridge(t)
	_, err := b.InitSession(ctx, 4, 0, "chip0")
	require.NoError(t, err)

	ts, err := b.QueryTimestamp(ctx, "chip0")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1122334455), ts)

	rounds, err := b.UpdateDtTagRangingRounds(ctx, 4, []byte{0, 1, 2}, "chip0")
	require.NoError(t, err)
	assert.Equal(t, uwb.StatusOk, rounds.Status)
	assert.Empty(t, rounds.Rejected)

	st, err := b.SetHybridSessionConfig(ctx, uwb.HybridSessionConfig{
		SessionID:  4,
		UpdateTime: 1000,
		Phases:     []uwb.HybridPhase{{SessionToken: 4, StartSlot: 0, EndSlot: 10}},
	}, "chip0")
	require.NoError(t, err)
	assert.Equal(t, uwb.StatusOk, st)

	vr, err := b.SendRawVendorCmd(ctx, uwb.VendorCommand{GID: 0x0E, OID: 0x01, Payload: []byte{0xAA}}, "chip0")
	require.NoError(t, err)
	assert.Equal(t, uwb.StatusOk, vr.Status)
	assert.Equal(t, []byte{0x00, 0xAA}, vr.Payload)

	st, err = b.DeviceReset(ctx, 0x00, "chip0")
	require.NoError(t, err)
	assert.Equal(t, uwb.StatusOk, st)
	_, ok := chip.Session(4)
	assert.False(t, ok, "reset clears sessions")

	_, err = b.SetCountryCode(ctx, "DEU", "chip0")
	assert.ErrorIs(t, err, uwb.ErrInvalidParameter)
}

func TestBridge_CloseUnblocksCommands(t *testing.T) {
	t.Parallel()

	b, chip, _ := newTestBridge(t, WithResponseTimeout(5*time.Second))
	chip.SetSilent(true)

	errc := make(chan error, 1)
	go func() {
		_, err := b.StartRanging(context.Background(), 1, "chip0")
		errc <- err
	}()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, b.Close())

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrBridgeClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("command still blocked after Close")
	}

	_, err := b.StartRanging(context.Background(), 1, "chip0")
	assert.ErrorIs(t, err, ErrBridgeClosed)
}

// The bridge behind a uwb.Radio and a ConfigurationManager: parameters are
// encoded, stored on the chip, read back and decoded.
func TestBridge_WithRadio(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	chip := uwbtest.NewVirtualChip()
	spec := codec.Capabilities(&codec.GenericSpecification{Fira: &fira.SpecificationParams{}})
	chip.SetCaps(spec)

	b, err := New(map[string]uwb.Transport{"chip0": chip})
	require.NoError(t, err)
	radio, err := uwb.NewRadio(b, uwb.WithChips("chip0"))
	require.NoError(t, err)
	defer func() { _ = radio.Close() }()

	got := make(chan uwb.Notification, 16)
	radio.Dispatcher().SetListener(uwb.CategorySession, func(n uwb.Notification) { got <- n })

	_, err = radio.InitializeAll(ctx)
	require.NoError(t, err)

	mgr := uwb.NewConfigurationManager(radio)
	st, caps := mgr.GetCapsInfo(ctx, params.ProtocolGeneric, codec.TargetSpecification, "chip0", params.ProtocolVersion{})
	require.Equal(t, uwb.StatusOk, st)
	assert.NotNil(t, caps.(*codec.GenericSpecification).Fira)

	p, err := fira.NewOpenSessionBuilder().
		SetProtocolVersion(fira.ProtocolVersion11).
		SetSessionID(77).
		SetDeviceType(fira.DeviceTypeController).
		SetDeviceRole(fira.RoleInitiator).
		SetMultiNodeMode(fira.MultiNodeUnicast).
		SetRangingRoundUsage(fira.RoundUsageSsTwrDeferred).
		SetDeviceAddress(params.MustAddress(0x04, 0x06)).
		SetDestAddresses(params.MustAddress(0x06, 0x04)).
		SetVendorID([]byte{0x05, 0x78}).
		SetStaticStsIV([]byte{0x1A, 0x55, 0x77, 0x47, 0x7E, 0x7D}).
		Build()
	require.NoError(t, err)

	st, err = radio.InitSession(ctx, 77, 0x00, "chip0")
	require.NoError(t, err)
	require.Equal(t, uwb.StatusOk, st)
	require.Equal(t, uwb.StatusOk, mgr.SetAppConfigurations(ctx, 77, p, "chip0", params.ProtocolVersion{}))

	st, decoded := mgr.GetAppConfigurations(ctx, 77, params.ProtocolFira, nil, codec.TargetOpenSession, "chip0",
		params.ProtocolVersion{})
	require.Equal(t, uwb.StatusOk, st)
	require.NotNil(t, decoded)
	assert.Equal(t, params.ProtocolFira, decoded.ProtocolName())

	_, err = radio.StartRanging(ctx, 77, "chip0")
	require.NoError(t, err)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case n := <-got:
			if rd, ok := n.(uwb.RangeData); ok {
				assert.Equal(t, uint32(77), rd.SessionID)
				assert.Equal(t, params.Address{0x06, 0x04}, rd.TwoWay[0].Address)
				return
			}
		case <-deadline:
			t.Fatal("no range data through the radio dispatcher")
		}
	}
}
