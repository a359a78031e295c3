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

// Package session runs ranging sessions as serial state machines. A
// Profile supplies the per-state behaviour; a Controller owns the queue
// and the single worker that applies it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ZaparooProject/go-uwb/internal/logging"
	"github.com/rs/zerolog"
)

var (
	// ErrClosed is returned when posting to a closed controller.
	ErrClosed = errors.New("session controller closed")
	// ErrHandlerPanic is reported when a state hook panics.
	ErrHandlerPanic = errors.New("session handler panicked")
	// ErrSessionExists is returned by Manager.Add for a duplicate key.
	ErrSessionExists = errors.New("session already registered")
)

// Report describes a failure inside a state. The controller stays in
// State after reporting it.
type Report struct {
	Err   error
	Key   Key
	State State
	Event Event
}

// Metrics are the controller's running counters.
type Metrics struct {
	Processed   int64
	Transitions int64
	Failures    int64
}

// Option configures a Controller.
type Option func(*Controller)

// WithStatusCallback receives every reported failure. It runs on the
// worker goroutine.
func WithStatusCallback(fn func(Report)) Option {
	return func(c *Controller) { c.onStatus = fn }
}

// WithStateCallback is told about every transition. It runs on the worker
// goroutine.
func WithStateCallback(fn func(from, to State)) Option {
	return func(c *Controller) { c.onState = fn }
}

// WithLogger replaces the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

type item struct {
	fn  func()
	msg Message
}

// Controller serializes the events of one session. Posting never blocks;
// messages are handled in order by one goroutine, and hooks only ever run
// on that goroutine.
type Controller struct {
	profile  *Profile
	onStatus func(Report)
	onState  func(from, to State)
	cond     *sync.Cond
	done     chan struct{}
	logger   zerolog.Logger
	queue    []item
	key      Key
	current  Message

	processed   atomic.Int64
	transitions atomic.Int64
	failures    atomic.Int64
	state       atomic.Int32
	mu          sync.Mutex
	closed      bool
}

// NewController starts a controller in the profile's initial state and
// schedules that state's Enter hook.
func NewController(key Key, profile *Profile, opts ...Option) *Controller {
	c := &Controller{
		key:     key,
		profile: profile,
		done:    make(chan struct{}),
		logger: logging.Component("session").With().
			Str("profile", profile.Name).
			Stringer("session", key).
			Logger(),
	}
	c.cond = sync.NewCond(&c.mu)
	for _, opt := range opts {
		opt(c)
	}
	c.state.Store(int32(profile.Initial))
	c.queue = append(c.queue, item{fn: func() { c.enter(profile.Initial) }})
	go c.run()
	return c
}

// Key returns the session key.
func (c *Controller) Key() Key {
	return c.key
}

// State returns the current state. It is safe to call from any goroutine.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Post queues an event without a payload.
func (c *Controller) Post(e Event) error {
	return c.Send(Message{Event: e})
}

// Send queues msg.
func (c *Controller) Send(msg Message) error {
	return c.push(item{msg: msg})
}

func (c *Controller) push(it item) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.queue = append(c.queue, it)
	c.cond.Signal()
	return nil
}

// Flush waits until every message queued before the call has been handled.
func (c *Controller) Flush(ctx context.Context) error {
	reached := make(chan struct{})
	if err := c.push(item{fn: func() { close(reached) }}); err != nil {
		return err
	}
	select {
	case <-reached:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	}
}

// Close stops accepting messages. Already queued messages are still
// handled; Done is closed afterwards.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.cond.Signal()
	}
	return nil
}

// Done is closed when the worker has exited.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Metrics returns a snapshot of the counters.
func (c *Controller) Metrics() Metrics {
	return Metrics{
		Processed:   c.processed.Load(),
		Transitions: c.transitions.Load(),
		Failures:    c.failures.Load(),
	}
}

// TransitionTo switches state and runs the new state's Enter hook. Call it
// only from a hook.
func (c *Controller) TransitionTo(s State) {
	from := c.State()
	c.state.Store(int32(s))
	c.transitions.Add(1)
	c.logger.Debug().Stringer("from", from).Stringer("to", s).Msg("transition")
	if c.onState != nil {
		c.onState(from, s)
	}
	c.enter(s)
}

// Fail reports err against the message being handled. The state is left
// unchanged.
func (c *Controller) Fail(err error) {
	c.failures.Add(1)
	r := Report{Key: c.key, State: c.State(), Event: c.current.Event, Err: err}
	c.logger.Warn().Err(err).Stringer("state", r.State).Stringer("event", r.Event).Msg("session failure")
	if c.onStatus != nil {
		c.onStatus(r)
	}
}

func (c *Controller) run() {
	defer close(c.done)
	for {
		c.mu.Lock()
		for len(c.queue) == 0 && !c.closed {
			c.cond.Wait()
		}
		if len(c.queue) == 0 {
			c.mu.Unlock()
			return
		}
		it := c.queue[0]
		c.queue[0] = item{}
		c.queue = c.queue[1:]
		c.mu.Unlock()

		if it.fn != nil {
			c.guard(it.fn)
			continue
		}
		c.dispatch(it.msg)
	}
}

func (c *Controller) dispatch(msg Message) {
	c.processed.Add(1)
	c.current = msg
	state := c.State()
	h := c.profile.handlers(state).Handle
	if h == nil {
		c.logger.Debug().Stringer("state", state).Stringer("event", msg.Event).Msg("event ignored")
		return
	}
	c.guard(func() { h(c, msg) })
	c.current = Message{}
}

func (c *Controller) enter(s State) {
	if fn := c.profile.handlers(s).Enter; fn != nil {
		fn(c)
	}
}

func (c *Controller) guard(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.Fail(fmt.Errorf("%w: %v", ErrHandlerPanic, r))
		}
	}()
	fn()
}
