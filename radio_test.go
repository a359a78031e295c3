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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRadio(t *testing.T, bridge *MockBridge, chips ...string) *Radio {
	t.Helper()
	if len(chips) == 0 {
		chips = []string{"chip0"}
	}
	r, err := NewRadio(bridge, WithChips(chips...), WithQueueSize(8))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestNewRadio_Options(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		name    string
		opts    []Option
	}{
		{name: "defaults"},
		{name: "no chips", opts: []Option{WithChips()}, wantErr: ErrNoChips},
		{name: "duplicate chip", opts: []Option{WithChips("a", "a")}, wantErr: ErrInvalidParameter},
		{name: "empty chip", opts: []Option{WithChips("")}, wantErr: ErrInvalidParameter},
		{name: "bad queue size", opts: []Option{WithQueueSize(0)}, wantErr: ErrInvalidParameter},
		{name: "nil dispatcher", opts: []Option{WithDispatcher(nil)}, wantErr: ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, err := NewRadio(NewMockBridge(), tt.opts...)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer func() { _ = r.Close() }()
			assert.Equal(t, []string{DefaultChipID}, r.Chips())
			assert.Equal(t, DefaultChipID, r.DefaultChip())
		})
	}

	_, err := NewRadio(nil)
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestRadio_InitializeAll(t *testing.T) {
	t.Parallel()

	t.Run("all chips", func(t *testing.T) {
		t.Parallel()
		bridge := NewMockBridge()
		r := newTestRadio(t, bridge, "chip0", "chip1")

		infos, err := r.InitializeAll(context.Background())
		require.NoError(t, err)
		assert.Len(t, infos, 2)
		assert.Equal(t, 2, bridge.CallCount("Initialize"))

		info, ok := r.DeviceInfo("chip1")
		require.True(t, ok)
		assert.Equal(t, StatusOk, info.Status)
	})

	t.Run("first failure aborts", func(t *testing.T) {
		t.Parallel()
		bridge := NewMockBridge()
		bridge.SetDeviceInfo("chip1", &DeviceInfo{Status: StatusRejected})
		r := newTestRadio(t, bridge, "chip0", "chip1", "chip2")

		infos, err := r.InitializeAll(context.Background())
		require.Error(t, err)
		assert.Nil(t, infos)
		assert.ErrorIs(t, err, ErrBridgeFailure)

		var be *BridgeError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, "chip1", be.ChipID)
		assert.Equal(t, StatusRejected, be.Status)

		// chip2 is never touched
		for _, c := range bridge.Calls() {
			assert.NotEqual(t, "chip2", c.ChipID)
		}
		_, err = r.InitSession(context.Background(), 1, 0, "chip0")
		assert.ErrorIs(t, err, ErrNotInitialized)
	})

	t.Run("nil device info", func(t *testing.T) {
		t.Parallel()
		bridge := NewMockBridge()
		bridge.SetDeviceInfo("chip0", nil)
		r := newTestRadio(t, bridge)

		_, err := r.InitializeAll(context.Background())
		var be *BridgeError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, StatusFailed, be.Status)
	})

	t.Run("transport error", func(t *testing.T) {
		t.Parallel()
		bridge := NewMockBridge()
		bridge.SetError("Initialize", ErrDeviceNotFound)
		r := newTestRadio(t, bridge)

		_, err := r.InitializeAll(context.Background())
		assert.ErrorIs(t, err, ErrDeviceNotFound)
	})
}

func TestRadio_SetCountryCodeAll(t *testing.T) {
	t.Parallel()

	tests := []struct {
		chipStatus map[string]Status
		chipErr    map[string]error
		name       string
		code       string
		want       Status
		wantErr    bool
	}{
		{name: "all ok", code: "DE", want: StatusOk},
		{
			name:       "one rejected",
			code:       "US",
			chipStatus: map[string]Status{"chip1": StatusRejected},
			want:       StatusRejected,
		},
		{
			name:       "failed wins",
			code:       "US",
			chipStatus: map[string]Status{"chip0": StatusRejected, "chip1": StatusFailed},
			want:       StatusFailed,
		},
		{
			name:    "error counts as failed",
			code:    "FR",
			chipErr: map[string]error{"chip0": ErrTransportWrite},
			want:    StatusFailed,
			wantErr: true,
		},
		{name: "lower case", code: "de", want: StatusFailed, wantErr: true},
		{name: "too long", code: "DEU", want: StatusFailed, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			bridge := NewMockBridge()
			for chip, st := range tt.chipStatus {
				bridge.SetChipStatus("SetCountryCode", chip, st)
			}
			for chip, err := range tt.chipErr {
				bridge.SetChipError("SetCountryCode", chip, err)
			}
			r := newTestRadio(t, bridge, "chip0", "chip1")
			_, err := r.InitializeAll(context.Background())
			require.NoError(t, err)

			got, err := r.SetCountryCodeAll(context.Background(), tt.code)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, 2, bridge.CallCount("SetCountryCode"))
			}
		})
	}
}

func TestRadio_SerializesBridgeCalls(t *testing.T) {
	t.Parallel()

	bridge := NewMockBridge()
	bridge.SetDelay(2 * time.Millisecond)
	r := newTestRadio(t, bridge, "chip0", "chip1")
	_, err := r.InitializeAll(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id uint32) {
			defer wg.Done()
			chip := "chip0"
			if id%2 == 1 {
				chip = "chip1"
			}
			_, _ = r.InitSession(context.Background(), id, 0, chip)
			_, _ = r.StartRanging(context.Background(), id, chip)
			_, _ = r.StopRanging(context.Background(), id, chip)
		}(uint32(i))
	}
	wg.Wait()

	assert.Equal(t, 1, bridge.MaxConcurrent())
	assert.Equal(t, 8, bridge.CallCount("StartRanging"))
}

func TestRadio_CallErrors(t *testing.T) {
	t.Parallel()

	bridge := NewMockBridge()
	r := newTestRadio(t, bridge)
	_, err := r.InitializeAll(context.Background())
	require.NoError(t, err)

	_, err = r.StartRanging(context.Background(), 1, "nope")
	require.ErrorIs(t, err, ErrUnknownChip)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.StartRanging(ctx, 1, "chip0")
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, bridge.CallCount("StartRanging"))

	bridge.SetError("StopRanging", ErrTransportTimeout)
	st, err := r.StopRanging(context.Background(), 1, "chip0")
	assert.Equal(t, StatusFailed, st)
	var be *BridgeError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "stop ranging", be.Op)
	assert.True(t, IsRetryable(err))

	bridge.SetStatus("InitSession", StatusSessionDuplicate)
	st, err = r.InitSession(context.Background(), 1, 0, "chip0")
	require.NoError(t, err)
	assert.Equal(t, StatusSessionDuplicate, st)
}

func TestRadio_RoutesNotifications(t *testing.T) {
	t.Parallel()

	bridge := NewMockBridge()
	r := newTestRadio(t, bridge)

	got := make(chan Notification, 1)
	r.Dispatcher().SetListener(CategorySession, func(n Notification) { got <- n })

	require.NoError(t, bridge.Emit(SessionStatus{Chip: "chip0", SessionID: 9, State: SessionStateIdle}))

	select {
	case n := <-got:
		ss, ok := n.(SessionStatus)
		require.True(t, ok)
		assert.Equal(t, uint32(9), ss.Session())
	case <-time.After(time.Second):
		t.Fatal("notification not delivered")
	}

	require.NoError(t, r.Close())
	assert.True(t, errors.Is(bridge.Emit(DeviceStatus{Chip: "chip0"}), ErrDispatcherClosed))
}
