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
	"fmt"

	uwb "github.com/ZaparooProject/go-uwb"
	"github.com/ZaparooProject/go-uwb/session"
)

// ProfileName identifies the PACS controller profile in logs.
const ProfileName = "pacs-controller"

func (s *Session) profile() *session.Profile {
	return &session.Profile{
		Name:    ProfileName,
		Initial: session.StateIdle,
		States: map[session.State]session.StateHandlers{
			session.StateIdle:      {Handle: s.handleIdle},
			session.StateDiscovery: {Enter: s.enterDiscovery, Handle: s.handleDiscovery},
			session.StateTransport: {Enter: s.enterTransport, Handle: s.handleTransport},
			session.StateSecure:    {Enter: s.enterSecure, Handle: s.handleSecure},
			session.StateRanging:   {Handle: s.handleRanging},
			session.StateEnding:    {Enter: s.enterEnding},
		},
	}
}

func (*Session) handleIdle(c *session.Controller, msg session.Message) {
	if msg.Event == session.EventStart {
		c.TransitionTo(session.StateDiscovery)
	}
}

func (s *Session) enterDiscovery(c *session.Controller) {
	s.startScan(c)
	_ = c.Post(session.EventDiscoveryStarted)
}

func (s *Session) handleDiscovery(c *session.Controller, msg session.Message) {
	switch msg.Event {
	case session.EventDiscoveryFailed:
		c.Fail(wrapPayload(ErrDiscoveryFailed, msg.Payload))
	case session.EventStart:
		s.startScan(c)
	case session.EventStop:
		s.stopScan(c)
	case session.EventDiscoveryResult:
		peer, ok := msg.Payload.(DiscoveryResult)
		if !ok {
			c.Fail(fmt.Errorf("%w: unexpected payload %T", ErrDiscoveryFailed, msg.Payload))
			return
		}
		s.peer = peer
		c.TransitionTo(session.StateTransport)
	}
}

func (s *Session) enterTransport(c *session.Controller) {
	if err := s.cfg.Transport.Init(s.peer); err != nil {
		c.Fail(fmt.Errorf("%w: init: %w", ErrTransportFailed, err))
		return
	}
	s.clientReady = true
	_ = c.Post(session.EventTransportStarted)
}

func (s *Session) handleTransport(c *session.Controller, msg session.Message) {
	switch msg.Event {
	case session.EventTransportStarted:
		s.startClient(c)
	case session.EventTransportFailed:
		c.Fail(wrapPayload(ErrTransportFailed, msg.Payload))
	case session.EventStop, session.EventTransportCompleted:
		s.stopScan(c)
		s.stopClient(c)
		c.TransitionTo(session.StateSecure)
	}
}

func (s *Session) enterSecure(c *session.Controller) {
	_ = c.Post(session.EventSecureInit)
}

func (s *Session) handleSecure(c *session.Controller, msg session.Message) {
	switch msg.Event {
	case session.EventSecureInit:
		if s.secureStarted {
			return
		}
		if err := s.cfg.Secure.Start(s); err != nil {
			c.Fail(fmt.Errorf("%w: %w", ErrSecureAborted, err))
			return
		}
		s.secureStarted = true
	case session.EventSecureDataReady:
		data, ok := msg.Payload.(SessionData)
		if !ok {
			c.Fail(fmt.Errorf("%w: unexpected payload %T", ErrSecureAborted, msg.Payload))
			return
		}
		s.data = data
		c.TransitionTo(session.StateRanging)
		_ = c.Post(session.EventRangingInit)
	case session.EventSecureAborted:
		c.Fail(ErrSecureAborted)
	case session.EventSecureTerminated:
		c.Fail(ErrSecureTerminated)
	}
}

func (s *Session) handleRanging(c *session.Controller, msg session.Message) {
	switch msg.Event {
	case session.EventRangingInit:
		if s.rangingOpen {
			return
		}
		if err := s.call(func(ctx context.Context) error { return s.cfg.Ranging.Open(ctx, s.data) }); err != nil {
			c.Fail(fmt.Errorf("open ranging: %w", err))
			return
		}
		s.rangingOpen = true
		_ = c.Post(session.EventRangingOpened)
	case session.EventStart, session.EventRangingOpened:
		s.startScan(c)
		s.startRanging(c)
	case session.EventStop:
		s.stopRanging(c)
		s.stopScan(c)
	case session.EventRangingEnded:
		s.closeRanging(c)
		c.TransitionTo(session.StateEnding)
	case session.EventNotification:
		s.handleNotification(c, msg.Payload)
	}
}

func (s *Session) handleNotification(c *session.Controller, payload any) {
	n, ok := payload.(uwb.SessionNotification)
	if !ok {
		return
	}
	if st, ok := n.(uwb.SessionStatus); ok && st.State == uwb.SessionStateDeinit {
		if s.cfg.OnNotification != nil {
			s.cfg.OnNotification(n)
		}
		// The radio already dropped the session. The manager may have
		// closed the queue too, so end here rather than posting.
		s.rangingActive = false
		s.rangingOpen = false
		c.TransitionTo(session.StateEnding)
		return
	}
	if s.cfg.OnNotification != nil {
		s.cfg.OnNotification(n)
	}
}

func (s *Session) enterEnding(c *session.Controller) {
	s.stopScan(c)
}

func (s *Session) startScan(c *session.Controller) {
	if s.scanning {
		return
	}
	if err := s.cfg.Discovery.Start(s); err != nil {
		c.Fail(fmt.Errorf("%w: %w", ErrDiscoveryFailed, err))
		return
	}
	s.scanning = true
}

func (s *Session) stopScan(c *session.Controller) {
	if !s.scanning {
		return
	}
	s.scanning = false
	if err := s.cfg.Discovery.Stop(); err != nil {
		c.Fail(fmt.Errorf("stop discovery: %w", err))
	}
}

func (s *Session) startClient(c *session.Controller) {
	if !s.clientReady || s.clientStarted {
		return
	}
	if err := s.cfg.Transport.Start(s); err != nil {
		c.Fail(fmt.Errorf("%w: start: %w", ErrTransportFailed, err))
		return
	}
	s.clientStarted = true
}

func (s *Session) stopClient(c *session.Controller) {
	if !s.clientStarted {
		return
	}
	s.clientStarted = false
	if err := s.cfg.Transport.Stop(); err != nil {
		c.Fail(fmt.Errorf("stop transport: %w", err))
	}
}

func (s *Session) startRanging(c *session.Controller) {
	if !s.rangingOpen || s.rangingActive {
		return
	}
	if err := s.call(s.cfg.Ranging.Start); err != nil {
		c.Fail(fmt.Errorf("start ranging: %w", err))
		return
	}
	s.rangingActive = true
}

func (s *Session) stopRanging(c *session.Controller) {
	if !s.rangingActive {
		return
	}
	s.rangingActive = false
	if err := s.call(s.cfg.Ranging.Stop); err != nil {
		c.Fail(fmt.Errorf("stop ranging: %w", err))
	}
}

func (s *Session) closeRanging(c *session.Controller) {
	s.stopRanging(c)
	if !s.rangingOpen {
		return
	}
	s.rangingOpen = false
	if err := s.call(s.cfg.Ranging.Close); err != nil {
		c.Fail(fmt.Errorf("close ranging: %w", err))
	}
}

func (s *Session) call(fn func(ctx context.Context) error) error {
	if s.callTimeout <= 0 {
		return fn(context.Background())
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.callTimeout)
	defer cancel()
	return fn(ctx)
}

func wrapPayload(sentinel error, payload any) error {
	if err, ok := payload.(error); ok && err != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return sentinel
}
