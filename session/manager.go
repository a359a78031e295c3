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
	"fmt"
	"sort"
	"sync"

	uwb "github.com/ZaparooProject/go-uwb"
	"github.com/ZaparooProject/go-uwb/internal/logging"
	"github.com/rs/zerolog"
)

// Manager is the registry of live sessions. It routes session
// notifications to the controller that owns them.
type Manager struct {
	sessions map[Key]*Controller
	logger   zerolog.Logger
	mu       sync.RWMutex
}

// NewManager returns an empty registry.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[Key]*Controller),
		logger:   logging.Component("session-manager"),
	}
}

// Add registers c under its key.
func (m *Manager) Add(c *Controller) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[c.Key()]; ok {
		return fmt.Errorf("%w: %s", ErrSessionExists, c.Key())
	}
	m.sessions[c.Key()] = c
	return nil
}

// Get returns the controller registered under k.
func (m *Manager) Get(k Key) (*Controller, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.sessions[k]
	return c, ok
}

// Remove unregisters and closes the controller under k. It reports
// whether one was registered.
func (m *Manager) Remove(k Key) bool {
	m.mu.Lock()
	c, ok := m.sessions[k]
	delete(m.sessions, k)
	m.mu.Unlock()
	if ok {
		_ = c.Close()
	}
	return ok
}

// Len returns the number of registered sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Keys returns the registered keys ordered by chip then session id.
func (m *Manager) Keys() []Key {
	m.mu.RLock()
	keys := make([]Key, 0, len(m.sessions))
	for k := range m.sessions {
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ChipID != keys[j].ChipID {
			return keys[i].ChipID < keys[j].ChipID
		}
		return keys[i].SessionID < keys[j].SessionID
	})
	return keys
}

// Route queues n on the owning session as an EventNotification. A
// session status reporting de-init also unregisters the session once the
// notification is queued.
func (m *Manager) Route(n uwb.Notification) {
	sn, ok := n.(uwb.SessionNotification)
	if !ok {
		return
	}
	k := Key{ChipID: sn.ChipID(), SessionID: sn.Session()}
	c, ok := m.Get(k)
	if !ok {
		m.logger.Debug().Stringer("session", k).Str("type", fmt.Sprintf("%T", n)).Msg("notification for unknown session")
		return
	}
	if err := c.Send(Message{Event: EventNotification, Payload: n}); err != nil {
		m.logger.Debug().Err(err).Stringer("session", k).Msg("notification dropped")
	}
	if st, ok := n.(uwb.SessionStatus); ok && st.State == uwb.SessionStateDeinit {
		m.Remove(k)
	}
}

// Attach makes Route the session listener of d.
func (m *Manager) Attach(d *uwb.Dispatcher) {
	d.SetListener(uwb.CategorySession, m.Route)
}

// Close closes every session and empties the registry.
func (m *Manager) Close() error {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[Key]*Controller)
	m.mu.Unlock()
	for _, c := range sessions {
		_ = c.Close()
	}
	return nil
}
