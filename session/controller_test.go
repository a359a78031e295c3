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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// toggleProfile moves Idle -> Ranging on start and back on stop, and
// records every message it sees.
func toggleProfile(seen *[]Event, mu *sync.Mutex) *Profile {
	record := func(_ *Controller, msg Message) {
		mu.Lock()
		*seen = append(*seen, msg.Event)
		mu.Unlock()
	}
	return &Profile{
		Name:    "toggle",
		Initial: StateIdle,
		States: map[State]StateHandlers{
			StateIdle: {
				Handle: func(c *Controller, msg Message) {
					record(c, msg)
					if msg.Event == EventStart {
						c.TransitionTo(StateRanging)
					}
				},
			},
			StateRanging: {
				Handle: func(c *Controller, msg Message) {
					record(c, msg)
					switch msg.Event {
					case EventStop:
						c.TransitionTo(StateIdle)
					case EventRangingEnded:
						c.Fail(errors.New("boom"))
					case EventNotification:
						panic("bad payload")
					}
				},
			},
		},
	}
}

func flush(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Flush(ctx))
}

func TestController_Ordering(t *testing.T) {
	t.Parallel()

	var (
		seen []Event
		mu   sync.Mutex
	)
	var transitions []State
	c := NewController(Key{ChipID: "chip0", SessionID: 1}, toggleProfile(&seen, &mu),
		WithStateCallback(func(_, to State) { transitions = append(transitions, to) }))
	defer func() { _ = c.Close() }()

	for _, e := range []Event{EventStart, EventStop, EventStart} {
		require.NoError(t, c.Post(e))
	}
	flush(t, c)

	assert.Equal(t, StateRanging, c.State())
	mu.Lock()
	assert.Equal(t, []Event{EventStart, EventStop, EventStart}, seen)
	mu.Unlock()
	assert.Equal(t, []State{StateRanging, StateIdle, StateRanging}, transitions)

	m := c.Metrics()
	assert.Equal(t, int64(3), m.Processed)
	assert.Equal(t, int64(3), m.Transitions)
}

func TestController_FailuresAreReported(t *testing.T) {
	t.Parallel()

	var (
		seen    []Event
		mu      sync.Mutex
		reports []Report
	)
	key := Key{ChipID: "chip0", SessionID: 7}
	c := NewController(key, toggleProfile(&seen, &mu),
		WithStatusCallback(func(r Report) { reports = append(reports, r) }))
	defer func() { _ = c.Close() }()

	require.NoError(t, c.Post(EventStart))
	require.NoError(t, c.Post(EventRangingEnded))
	require.NoError(t, c.Send(Message{Event: EventNotification, Payload: 42}))
	flush(t, c)

	assert.Equal(t, StateRanging, c.State())
	require.Len(t, reports, 2)
	assert.Equal(t, key, reports[0].Key)
	assert.Equal(t, EventRangingEnded, reports[0].Event)
	assert.Equal(t, StateRanging, reports[0].State)
	assert.EqualError(t, reports[0].Err, "boom")
	assert.Equal(t, EventNotification, reports[1].Event)
	require.ErrorIs(t, reports[1].Err, ErrHandlerPanic)
	assert.Equal(t, int64(2), c.Metrics().Failures)
}

func TestController_InitialEnter(t *testing.T) {
	t.Parallel()

	entered := make(chan State, 1)
	p := &Profile{
		Name:    "enter",
		Initial: StateDiscovery,
		States: map[State]StateHandlers{
			StateDiscovery: {Enter: func(c *Controller) { entered <- c.State() }},
		},
	}
	c := NewController(Key{SessionID: 1}, p)
	defer func() { _ = c.Close() }()

	select {
	case s := <-entered:
		assert.Equal(t, StateDiscovery, s)
	case <-time.After(time.Second):
		t.Fatal("initial enter hook not run")
	}

	// Unhandled events are ignored without failing.
	require.NoError(t, c.Post(EventStop))
	flush(t, c)
	assert.Equal(t, int64(0), c.Metrics().Failures)
}

func TestController_Close(t *testing.T) {
	t.Parallel()

	var (
		seen []Event
		mu   sync.Mutex
	)
	c := NewController(Key{SessionID: 2}, toggleProfile(&seen, &mu))
	require.NoError(t, c.Post(EventStart))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("worker did not exit")
	}
	// Messages queued before Close are still handled.
	assert.Equal(t, StateRanging, c.State())
	require.ErrorIs(t, c.Post(EventStop), ErrClosed)
	require.ErrorIs(t, c.Flush(context.Background()), ErrClosed)
}

func TestController_FlushContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	p := &Profile{
		Name:    "blocking",
		Initial: StateIdle,
		States: map[State]StateHandlers{
			StateIdle: {Handle: func(*Controller, Message) { <-release }},
		},
	}
	c := NewController(Key{SessionID: 3}, p)
	defer func() { _ = c.Close() }()
	defer close(release)

	require.NoError(t, c.Post(EventStart))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, c.Flush(ctx), context.DeadlineExceeded)
}

func TestStringers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ranging", StateRanging.String())
	assert.Equal(t, "state(42)", State(42).String())
	assert.Equal(t, "secure_data_ready", EventSecureDataReady.String())
	assert.Equal(t, "event(99)", Event(99).String())
	assert.Equal(t, "chip1/5", Key{ChipID: "chip1", SessionID: 5}.String())
}
