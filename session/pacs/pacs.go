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

// Package pacs is the controller side of the proximity access profile:
// out-of-band discovery, a transport to the peer, a secure channel that
// yields session data, and finally FiRa ranging on the radio.
package pacs

import (
	"context"
	"errors"
	"fmt"
	"time"

	uwb "github.com/ZaparooProject/go-uwb"
	"github.com/ZaparooProject/go-uwb/oob"
	"github.com/ZaparooProject/go-uwb/session"
)

var (
	// ErrDiscoveryFailed is reported when the discovery provider gives up.
	ErrDiscoveryFailed = errors.New("discovery failed")
	// ErrTransportFailed is reported when the transport client fails.
	ErrTransportFailed = errors.New("transport failed")
	// ErrSecureAborted is reported when the secure channel is aborted.
	ErrSecureAborted = errors.New("secure session aborted")
	// ErrSecureTerminated is reported when the peer ends the secure channel.
	ErrSecureTerminated = errors.New("secure session terminated")
	// ErrMissingDependency is returned by New for an incomplete Config.
	ErrMissingDependency = errors.New("missing dependency")
)

// DiscoveryResult is a peer found out of band.
type DiscoveryResult struct {
	Connector oob.ConnectorInfo
	Raw       []byte
}

// SessionData is what the secure channel hands to ranging.
type SessionData struct {
	Data      []byte
	SessionID uint32
}

// DiscoveryCallback receives discovery outcomes.
type DiscoveryCallback interface {
	OnDiscovered(result DiscoveryResult)
	OnDiscoveryFailed(err error)
}

// DiscoveryProvider scans for peers. Start may be called again after Stop.
type DiscoveryProvider interface {
	Start(cb DiscoveryCallback) error
	Stop() error
}

// TransportCallback receives transport outcomes.
type TransportCallback interface {
	OnTransportCompleted()
	OnTransportFailed(err error)
}

// TransportClient carries the secure channel to a discovered peer.
type TransportClient interface {
	Init(peer DiscoveryResult) error
	Start(cb TransportCallback) error
	Stop() error
}

// SecureCallback receives secure channel outcomes.
type SecureCallback interface {
	OnSessionDataReady(data SessionData)
	OnSessionAborted()
	OnSessionTerminated()
}

// SecureSession negotiates session data over the transport.
type SecureSession interface {
	Start(cb SecureCallback) error
}

// RangingHost drives the ranging session on the radio.
type RangingHost interface {
	Open(ctx context.Context, data SessionData) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Close(ctx context.Context) error
}

// Config wires a controller session.
type Config struct {
	Discovery DiscoveryProvider
	Transport TransportClient
	Secure    SecureSession
	Ranging   RangingHost
	// OnNotification sees every session notification routed to the
	// session while ranging.
	OnNotification func(n uwb.SessionNotification)
	Key            session.Key
	// CallTimeout bounds each RangingHost call. Zero leaves calls
	// unbounded; the ranging host or its bridge sets its own limits.
	CallTimeout time.Duration
}

// Session is one PACS controller session.
type Session struct {
	cfg         Config
	ctrl        *session.Controller
	peer        DiscoveryResult
	data        SessionData
	callTimeout time.Duration

	// Side effect flags, only touched on the controller goroutine.
	scanning      bool
	clientReady   bool
	clientStarted bool
	secureStarted bool
	rangingOpen   bool
	rangingActive bool
}

// New starts a session in Idle. Options are passed to the underlying
// session.Controller.
func New(cfg Config, opts ...session.Option) (*Session, error) {
	switch {
	case cfg.Discovery == nil:
		return nil, fmt.Errorf("%w: discovery provider", ErrMissingDependency)
	case cfg.Transport == nil:
		return nil, fmt.Errorf("%w: transport client", ErrMissingDependency)
	case cfg.Secure == nil:
		return nil, fmt.Errorf("%w: secure session", ErrMissingDependency)
	case cfg.Ranging == nil:
		return nil, fmt.Errorf("%w: ranging host", ErrMissingDependency)
	}
	s := &Session{cfg: cfg, callTimeout: cfg.CallTimeout}
	s.ctrl = session.NewController(cfg.Key, s.profile(), opts...)
	return s, nil
}

// Controller returns the underlying controller, for registration with a
// session.Manager.
func (s *Session) Controller() *session.Controller {
	return s.ctrl
}

// State returns the current state.
func (s *Session) State() session.State {
	return s.ctrl.State()
}

// Start asks the session to begin or resume.
func (s *Session) Start() error {
	return s.ctrl.Post(session.EventStart)
}

// Stop pauses scanning and ranging without leaving the current state.
func (s *Session) Stop() error {
	return s.ctrl.Post(session.EventStop)
}

// End closes ranging and moves the session to Ending.
func (s *Session) End() error {
	return s.ctrl.Post(session.EventRangingEnded)
}

// Close stops the controller. Radio resources are not released; call End
// first for that.
func (s *Session) Close() error {
	return s.ctrl.Close()
}

// OnDiscovered implements DiscoveryCallback.
func (s *Session) OnDiscovered(result DiscoveryResult) {
	s.post(session.Message{Event: session.EventDiscoveryResult, Payload: result})
}

// OnDiscoveryFailed implements DiscoveryCallback.
func (s *Session) OnDiscoveryFailed(err error) {
	s.post(session.Message{Event: session.EventDiscoveryFailed, Payload: err})
}

// OnTransportCompleted implements TransportCallback.
func (s *Session) OnTransportCompleted() {
	s.post(session.Message{Event: session.EventTransportCompleted})
}

// OnTransportFailed implements TransportCallback.
func (s *Session) OnTransportFailed(err error) {
	s.post(session.Message{Event: session.EventTransportFailed, Payload: err})
}

// OnSessionDataReady implements SecureCallback.
func (s *Session) OnSessionDataReady(data SessionData) {
	s.post(session.Message{Event: session.EventSecureDataReady, Payload: data})
}

// OnSessionAborted implements SecureCallback.
func (s *Session) OnSessionAborted() {
	s.post(session.Message{Event: session.EventSecureAborted})
}

// OnSessionTerminated implements SecureCallback.
func (s *Session) OnSessionTerminated() {
	s.post(session.Message{Event: session.EventSecureTerminated})
}

// Callbacks may fire after Close; those events are dropped.
func (s *Session) post(msg session.Message) {
	_ = s.ctrl.Send(msg)
}

var (
	_ DiscoveryCallback = (*Session)(nil)
	_ TransportCallback = (*Session)(nil)
	_ SecureCallback    = (*Session)(nil)
)
