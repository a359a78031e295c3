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
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/go-uwb"
	"github.com/ZaparooProject/go-uwb/internal/logging"
	"github.com/ZaparooProject/go-uwb/internal/transport"
	"github.com/rs/zerolog"
)

// Defaults for a Bridge.
const (
	DefaultResponseTimeout = time.Second
	DefaultReadyTimeout    = 2 * time.Second
	DefaultCommandRetries  = 3
	commandRetryDelay      = 10 * time.Millisecond
	readErrorBackoff       = 10 * time.Millisecond
)

// Errors returned by the UCI bridge.
var (
	ErrUnknownSession = errors.New("unknown session")
	ErrCommandFailed  = errors.New("command failed")
	ErrBridgeClosed   = errors.New("bridge closed")
)

// Option configures a Bridge.
type Option func(*Bridge)

// WithResponseTimeout bounds the wait for each command response.
func WithResponseTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.respTimeout = d
		}
	}
}

// WithReadyTimeout bounds the wait for the READY device status after a
// reset in Initialize.
func WithReadyTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.readyTimeout = d
		}
	}
}

// WithCommandRetries sets how often a command answered with
// STATUS_COMMAND_RETRY is resent.
func WithCommandRetries(n int) Option {
	return func(b *Bridge) {
		if n >= 0 {
			b.retries = n
		}
	}
}

// WithSink sets the notification sink up front. uwb.Radio replaces it
// with its own dispatcher.
func WithSink(sink uwb.NotificationSink) Option {
	return func(b *Bridge) {
		b.SetNotificationSink(sink)
	}
}

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Bridge) {
		b.logger = l
	}
}

type sinkBox struct {
	sink uwb.NotificationSink
}

// Bridge speaks UCI to one or more chips, each over its own transport.
// Commands to a chip are strictly one at a time; notifications are read by
// a goroutine per chip and forwarded to the sink.
type Bridge struct {
	sink         atomic.Pointer[sinkBox]
	conns        map[string]*conn
	logger       zerolog.Logger
	respTimeout  time.Duration
	readyTimeout time.Duration
	retries      int
	closeOnce    sync.Once
}

// New starts a bridge over transports keyed by chip id.
func New(transports map[string]uwb.Transport, opts ...Option) (*Bridge, error) {
	if len(transports) == 0 {
		return nil, uwb.ErrNoChips
	}
	b := &Bridge{
		conns:        make(map[string]*conn, len(transports)),
		logger:       logging.Component("uci"),
		respTimeout:  DefaultResponseTimeout,
		readyTimeout: DefaultReadyTimeout,
		retries:      DefaultCommandRetries,
	}
	for _, opt := range opts {
		opt(b)
	}
	for chip, t := range transports {
		if t == nil {
			return nil, fmt.Errorf("%w: nil transport for chip %q", uwb.ErrInvalidParameter, chip)
		}
	}
	for chip, t := range transports {
		c := newConn(b, chip, t)
		b.conns[chip] = c
		c.wg.Add(1)
		go c.readLoop()
	}
	return b, nil
}

// Chips returns the chip ids served by the bridge, sorted.
func (b *Bridge) Chips() []string {
	out := make([]string, 0, len(b.conns))
	for chip := range b.conns {
		out = append(out, chip)
	}
	sort.Strings(out)
	return out
}

// SetNotificationSink sets where notifications go. A nil sink drops them.
func (b *Bridge) SetNotificationSink(sink uwb.NotificationSink) {
	b.sink.Store(&sinkBox{sink: sink})
}

func (b *Bridge) notify(n uwb.Notification) {
	box := b.sink.Load()
	if box == nil || box.sink == nil {
		return
	}
	if err := box.sink.Notify(n); err != nil {
		b.logger.Debug().Err(err).Str("chip", n.ChipID()).Msg("notification dropped")
	}
}

// Close stops every reader and closes the transports.
func (b *Bridge) Close() error {
	var errs []error
	b.closeOnce.Do(func() {
		for _, c := range b.conns {
			if err := c.close(); err != nil {
				errs = append(errs, fmt.Errorf("chip %s: %w", c.chip, err))
			}
		}
	})
	return errors.Join(errs...)
}

func (b *Bridge) conn(chipID string) (*conn, error) {
	c, ok := b.conns[chipID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", uwb.ErrUnknownChip, chipID)
	}
	return c, nil
}

// conn is the link to one chip.
type conn struct {
	transport uwb.TransportContext
	raw       uwb.Transport
	bridge    *Bridge
	resp      chan Message
	inflight  atomic.Pointer[Message]
	done      chan struct{}
	tokens    map[uint32]uint32 // session id -> token
	sessions  map[uint32]uint32 // token -> session id
	logger    zerolog.Logger
	chip      string
	wg        sync.WaitGroup
	cmdMu     sync.Mutex
	tokenMu   sync.RWMutex
	state     atomic.Uint32
	closed    atomic.Bool
}

func newConn(b *Bridge, chip string, t uwb.Transport) *conn {
	return &conn{
		transport: uwb.AsTransportContext(t),
		raw:       t,
		bridge:    b,
		resp:      make(chan Message, 1),
		done:      make(chan struct{}),
		tokens:    make(map[uint32]uint32),
		sessions:  make(map[uint32]uint32),
		logger:    b.logger.With().Str("chip", chip).Logger(),
		chip:      chip,
	}
}

func (c *conn) close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.done)
	err := c.raw.Close()
	c.wg.Wait()
	return err
}

func (c *conn) readLoop() {
	defer c.wg.Done()
	ra := NewReassembler()
	for {
		select {
		case <-c.done:
			return
		default:
		}

		pkt, err := c.raw.ReadPacket()
		if err != nil {
			if c.closed.Load() || errors.Is(err, uwb.ErrTransportClosed) {
				return
			}
			if !errors.Is(err, uwb.ErrTransportTimeout) {
				c.logger.Warn().Err(err).Msg("read failed")
				time.Sleep(readErrorBackoff)
			}
			continue
		}

		msg, ok, err := ra.Add(pkt)
		if err != nil {
			c.logger.Warn().Err(err).Msg("dropping malformed packet")
			continue
		}
		if !ok {
			continue
		}
		c.dispatch(msg)
	}
}

func (c *conn) dispatch(msg Message) {
	switch msg.MT {
	case MTResponse:
		if cmd := c.inflight.Load(); cmd != nil && cmd.GID == msg.GID && cmd.OID == msg.OID &&
			msg.GID == GIDSessionConfig && msg.OID == OIDSessionInit {
			c.bindSession(cmd.Payload, msg.Payload)
		}
		// Keep only the latest; a stale response for a timed out command
		// must not satisfy the next one.
		select {
		case <-c.resp:
		default:
		}
		c.resp <- msg
	case MTNotification, MTData:
		n, err := decodeNotification(c.chip, msg)
		if err != nil {
			c.logger.Debug().Err(err).Msg("notification not decoded")
			return
		}
		if ds, ok := n.(uwb.DeviceStatus); ok {
			c.state.Store(uint32(ds.State))
		}
		if sn, ok := n.(uwb.SessionNotification); ok {
			token := sn.Session()
			n = withSession(n, c.sessionFor(token))
			if ss, ok := n.(uwb.SessionStatus); ok && ss.State == uwb.SessionStateDeinit {
				c.forgetHandle(token)
			}
		}
		c.bridge.notify(n)
	default:
		c.logger.Debug().Uint8("mt", msg.MT).Msg("unexpected message type")
	}
}

// command sends one command and waits for its response.
func (c *conn) command(ctx context.Context, gid, oid byte, payload []byte) ([]byte, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if c.closed.Load() {
		return nil, ErrBridgeClosed
	}
	select {
	case <-c.resp:
	default:
	}

	c.inflight.Store(&Message{MT: MTCommand, GID: gid, OID: oid, Payload: payload})
	defer c.inflight.Store(nil)

	for _, seg := range EncodeControl(MTCommand, gid, oid, payload) {
		if err := c.transport.WritePacketContext(ctx, seg); err != nil {
			return nil, err
		}
	}

	timer := time.NewTimer(c.bridge.respTimeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.done:
			return nil, ErrBridgeClosed
		case <-timer.C:
			return nil, uwb.NewTimeoutError(fmt.Sprintf("command gid=0x%X oid=0x%02X", gid, oid), c.chip)
		case msg := <-c.resp:
			if msg.GID != gid || msg.OID != oid {
				c.logger.Debug().
					Uint8("gid", msg.GID).
					Uint8("oid", msg.OID).
					Msg("ignoring response for another command")
				continue
			}
			return msg.Payload, nil
		}
	}
}

// exec runs a command, resending it while the chip answers
// STATUS_COMMAND_RETRY.
func (c *conn) exec(ctx context.Context, gid, oid byte, payload []byte) ([]byte, error) {
	cfg := transport.RetryConfig{
		Description: fmt.Sprintf("command gid=0x%X oid=0x%02X", gid, oid),
		MaxRetries:  c.bridge.retries,
		RetryDelay:  commandRetryDelay,
		OnRetry: func() error {
			c.logger.Debug().Uint8("gid", gid).Uint8("oid", oid).Msg("chip asked for command retry")
			return nil
		},
	}
	return transport.WithRetry(ctx, cfg, func() ([]byte, bool, error) {
		rsp, err := c.command(ctx, gid, oid, payload)
		if err != nil {
			return nil, false, err
		}
		if len(rsp) > 0 && uwb.Status(rsp[0]) == uwb.StatusCommandRetry {
			return rsp, true, nil
		}
		return rsp, false, nil
	})
}

// execStatus runs a command whose response is a single status byte.
func (c *conn) execStatus(ctx context.Context, gid, oid byte, payload []byte) (uwb.Status, error) {
	rsp, err := c.exec(ctx, gid, oid, payload)
	if err != nil {
		return uwb.StatusFailed, err
	}
	r := newReader("status response", rsp)
	st := r.status()
	if r.err != nil {
		return uwb.StatusFailed, r.err
	}
	return st, nil
}

// waitReady polls the device state stored by the reader.
func (c *conn) waitReady(ctx context.Context) error {
	_, err := transport.TimeoutRetry(ctx, c.bridge.readyTimeout, time.Millisecond,
		func() (struct{}, bool, error) {
			switch uwb.DeviceState(c.state.Load()) {
			case uwb.DeviceStateReady:
				return struct{}{}, false, nil
			case uwb.DeviceStateError:
				return struct{}{}, false, fmt.Errorf("%w: device reported error state", ErrCommandFailed)
			}
			return struct{}{}, true, nil
		})
	return err
}

// bindSession records the handle of a session from the SESSION_INIT
// command and its response. It runs on the reader before the response is
// handed over, so notifications that follow already map to the session id.
func (c *conn) bindSession(cmd, rsp []byte) {
	if len(cmd) < 4 || len(rsp) < 1 || !uwb.Status(rsp[0]).OK() {
		return
	}
	id := binary.LittleEndian.Uint32(cmd)
	token := id
	if len(rsp) >= 5 {
		token = binary.LittleEndian.Uint32(rsp[1:5])
	}
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	c.tokens[id] = token
	c.sessions[token] = id
}

// dropToken forgets the handle of a session. The reverse mapping stays
// until the chip reports the session deinitialized.
func (c *conn) dropToken(sessionID uint32) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	delete(c.tokens, sessionID)
}

func (c *conn) forgetHandle(token uint32) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	if id, ok := c.sessions[token]; ok {
		if _, live := c.tokens[id]; !live {
			delete(c.sessions, token)
		}
	}
}

func (c *conn) clearTokens() {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	c.tokens = make(map[uint32]uint32)
	c.sessions = make(map[uint32]uint32)
}

// token returns the chip-side handle of a session. Sessions initialized
// on UCI 1.x chips use their id as the handle.
func (c *conn) token(sessionID uint32) uint32 {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	if token, ok := c.tokens[sessionID]; ok {
		return token
	}
	return sessionID
}

func (c *conn) sessionFor(token uint32) uint32 {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	if id, ok := c.sessions[token]; ok {
		return id
	}
	return token
}

func statusError(op string, st uwb.Status) error {
	return fmt.Errorf("%w: %s returned %s", ErrCommandFailed, op, st)
}

var _ uwb.Bridge = (*Bridge)(nil)
