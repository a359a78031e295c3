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

package session

import (
	"context"
	"sync"
	"testing"
	"time"

	uwb "github.com/ZaparooProject/go-uwb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder keeps every notification payload it is sent.
type recorder struct {
	got []uwb.Notification
	mu  sync.Mutex
}

func (r *recorder) profile() *Profile {
	return &Profile{
		Name:    "recorder",
		Initial: StateRanging,
		States: map[State]StateHandlers{
			StateRanging: {Handle: func(_ *Controller, msg Message) {
				if n, ok := msg.Payload.(uwb.Notification); ok {
					r.mu.Lock()
					r.got = append(r.got, n)
					r.mu.Unlock()
				}
			}},
		},
	}
}

func (r *recorder) notifications() []uwb.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uwb.Notification(nil), r.got...)
}

func TestManager_Registry(t *testing.T) {
	t.Parallel()

	m := NewManager()
	defer func() { _ = m.Close() }()

	var r recorder
	a := NewController(Key{ChipID: "chip1", SessionID: 2}, r.profile())
	b := NewController(Key{ChipID: "chip0", SessionID: 9}, r.profile())
	require.NoError(t, m.Add(a))
	require.NoError(t, m.Add(b))
	require.ErrorIs(t, m.Add(a), ErrSessionExists)

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []Key{b.Key(), a.Key()}, m.Keys())

	got, ok := m.Get(a.Key())
	require.True(t, ok)
	assert.Same(t, a, got)

	assert.True(t, m.Remove(a.Key()))
	assert.False(t, m.Remove(a.Key()))
	select {
	case <-a.Done():
	case <-time.After(time.Second):
		t.Fatal("removed controller not closed")
	}
}

func TestManager_Route(t *testing.T) {
	t.Parallel()

	m := NewManager()
	defer func() { _ = m.Close() }()

	var r recorder
	key := Key{ChipID: "chip0", SessionID: 5}
	c := NewController(key, r.profile())
	require.NoError(t, m.Add(c))

	m.Route(uwb.RangeData{Chip: "chip0", SessionID: 5, SequenceNumber: 1})
	m.Route(uwb.RangeData{Chip: "chip1", SessionID: 5, SequenceNumber: 2})
	m.Route(uwb.DeviceStatus{Chip: "chip0"})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Flush(ctx))

	got := r.notifications()
	require.Len(t, got, 1)
	assert.Equal(t, uint32(1), got[0].(uwb.RangeData).SequenceNumber)

	m.Route(uwb.SessionStatus{Chip: "chip0", SessionID: 5, State: uwb.SessionStateDeinit})
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("de-init did not close the session")
	}
	assert.Equal(t, 0, m.Len())
	require.Len(t, r.notifications(), 2)
}

func TestManager_Attach(t *testing.T) {
	t.Parallel()

	d := uwb.NewDispatcher(4)
	m := NewManager()
	m.Attach(d)

	var r recorder
	c := NewController(Key{ChipID: "chip0", SessionID: 1}, r.profile())
	require.NoError(t, m.Add(c))

	require.NoError(t, d.Notify(uwb.SessionStatus{Chip: "chip0", SessionID: 1, State: uwb.SessionStateActive}))
	require.NoError(t, d.Close())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Flush(ctx))

	require.Len(t, r.notifications(), 1)
	require.NoError(t, m.Close())
	assert.Equal(t, 0, m.Len())
}
