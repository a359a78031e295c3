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

import "fmt"

// State is a phase of a ranging session.
type State int32

const (
	StateIdle State = iota
	StateDiscovery
	StateTransport
	StateSecure
	StateRanging
	StateEnding
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovery:
		return "discovery"
	case StateTransport:
		return "transport"
	case StateSecure:
		return "secure"
	case StateRanging:
		return "ranging"
	case StateEnding:
		return "ending"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Event identifies a message posted to a session.
type Event int

const (
	EventSessionInitialized Event = iota
	EventStart
	EventStop
	EventDiscoveryStarted
	EventDiscoveryResult
	EventDiscoveryFailed
	EventTransportStarted
	EventTransportCompleted
	EventTransportFailed
	EventSecureInit
	EventSecureDataReady
	EventSecureAborted
	EventSecureTerminated
	EventRangingInit
	EventRangingOpened
	EventRangingEnded
	// EventNotification carries a uwb.SessionNotification routed by a Manager.
	EventNotification
)

var eventNames = map[Event]string{
	EventSessionInitialized: "session_initialized",
	EventStart:              "start",
	EventStop:               "stop",
	EventDiscoveryStarted:   "discovery_started",
	EventDiscoveryResult:    "discovery_result",
	EventDiscoveryFailed:    "discovery_failed",
	EventTransportStarted:   "transport_started",
	EventTransportCompleted: "transport_completed",
	EventTransportFailed:    "transport_failed",
	EventSecureInit:         "secure_init",
	EventSecureDataReady:    "secure_data_ready",
	EventSecureAborted:      "secure_aborted",
	EventSecureTerminated:   "secure_terminated",
	EventRangingInit:        "ranging_init",
	EventRangingOpened:      "ranging_opened",
	EventRangingEnded:       "ranging_ended",
	EventNotification:       "notification",
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// Message is one queued event with an optional payload.
type Message struct {
	Payload any
	Event   Event
}

// Key identifies a session across radios.
type Key struct {
	ChipID    string
	SessionID uint32
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d", k.ChipID, k.SessionID)
}

// StateHandlers is the behaviour of one state. Either hook may be nil.
// Enter runs after the controller has switched to the state; Handle runs
// for every message received while in it.
type StateHandlers struct {
	Enter  func(c *Controller)
	Handle func(c *Controller, msg Message)
}

// Profile is a transition table. States missing from the map ignore every
// message.
type Profile struct {
	States  map[State]StateHandlers
	Name    string
	Initial State
}

func (p *Profile) handlers(s State) StateHandlers {
	return p.States[s]
}
