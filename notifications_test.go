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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_PerCategoryOrder(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(4)

	var mu sync.Mutex
	var sessions []uint32
	var devices []DeviceState
	d.SetListener(CategorySession, func(n Notification) {
		mu.Lock()
		defer mu.Unlock()
		sessions = append(sessions, n.(SessionNotification).Session())
	})
	d.SetListener(CategoryDevice, func(n Notification) {
		mu.Lock()
		defer mu.Unlock()
		devices = append(devices, n.(DeviceStatus).State)
	})

	for i := uint32(1); i <= 20; i++ {
		require.NoError(t, d.Notify(RangeData{Chip: "c", SessionID: i}))
	}
	require.NoError(t, d.Notify(DeviceStatus{Chip: "c", State: DeviceStateReady}))
	require.NoError(t, d.Notify(DeviceStatus{Chip: "c", State: DeviceStateActive}))

	// Close drains every queue before returning.
	require.NoError(t, d.Close())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, sessions, 20)
	for i, id := range sessions {
		assert.Equal(t, uint32(i+1), id)
	}
	assert.Equal(t, []DeviceState{DeviceStateReady, DeviceStateActive}, devices)
}

func TestDispatcher_SlowCategoryDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(1)
	defer func() { _ = d.Close() }()

	release := make(chan struct{})
	d.SetListener(CategorySession, func(Notification) { <-release })

	vendor := make(chan Notification, 1)
	d.SetListener(CategoryVendor, func(n Notification) { vendor <- n })

	require.NoError(t, d.Notify(SessionStatus{Chip: "c", SessionID: 1}))
	require.NoError(t, d.Notify(VendorNotification{Chip: "c", GID: 0x0E, OID: 0x01}))

	select {
	case n := <-vendor:
		assert.Equal(t, CategoryVendor, n.Category())
	case <-time.After(time.Second):
		t.Fatal("vendor notification held up by session consumer")
	}
	close(release)
}

func TestDispatcher_HandlerPanicIsContained(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(0)
	got := make(chan Notification, 2)
	d.SetListener(CategoryDevice, func(n Notification) {
		if n.(GenericError).Status == StatusFailed {
			panic("boom")
		}
		got <- n
	})

	require.NoError(t, d.Notify(GenericError{Chip: "c", Status: StatusFailed}))
	require.NoError(t, d.Notify(GenericError{Chip: "c", Status: StatusCommandRetry}))
	require.NoError(t, d.Close())

	require.Len(t, got, 1)
	assert.Equal(t, StatusCommandRetry, (<-got).(GenericError).Status)
}

func TestDispatcher_SetListenerReplaces(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(0)
	var first, second atomic.Int32
	d.SetListener(CategoryDevice, func(Notification) { first.Add(1) })
	d.SetListener(CategoryDevice, func(Notification) { second.Add(1) })
	require.NoError(t, d.Notify(DeviceStatus{Chip: "c", State: DeviceStateReady}))

	d.SetListener(CategoryVendor, func(Notification) { t.Error("cleared listener called") })
	d.SetListener(CategoryVendor, nil)
	require.NoError(t, d.Notify(VendorNotification{Chip: "c"}))
	require.NoError(t, d.Close())

	assert.Equal(t, int32(0), first.Load())
	assert.Equal(t, int32(1), second.Load())
}

func TestDispatcher_Closed(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(1)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.ErrorIs(t, d.Notify(DeviceStatus{}), ErrDispatcherClosed)
}

func TestNotificationCategories(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    Notification
		want Category
	}{
		{DeviceStatus{}, CategoryDevice},
		{GenericError{}, CategoryDevice},
		{SessionStatus{}, CategorySession},
		{RangeData{}, CategorySession},
		{MulticastListStatus{}, CategorySession},
		{DataReceived{}, CategorySession},
		{DataSendStatus{}, CategorySession},
		{DataTransferPhaseConfigStatus{}, CategorySession},
		{RadarData{}, CategorySession},
		{VendorNotification{}, CategoryVendor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.n.Category(), "%T", tt.n)
		if tt.want == CategorySession {
			_, ok := tt.n.(SessionNotification)
			assert.True(t, ok, "%T should carry a session id", tt.n)
		}
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "OK", StatusOk.String())
	assert.Equal(t, "SESSION_NOT_EXIST", StatusSessionNotExist.String())
	assert.Equal(t, "STATUS(0x7F)", Status(0x7F).String())

	assert.Equal(t, StatusOk, Worst(StatusOk, StatusOk))
	assert.Equal(t, StatusRejected, Worst(StatusOk, StatusRejected))
	assert.Equal(t, StatusRejected, Worst(StatusRejected, StatusOk))
	assert.Equal(t, StatusFailed, Worst(StatusRejected, StatusFailed))
	assert.Equal(t, StatusRejected, Worst(StatusRejected, StatusInvalidParam))
}
