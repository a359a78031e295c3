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
	"errors"
	"fmt"
	"sync"

	uwb "github.com/ZaparooProject/go-uwb"
	"github.com/ZaparooProject/go-uwb/params"
)

// ErrNotOpen is returned by RadioRangingHost calls made before Open.
var ErrNotOpen = errors.New("ranging session not open")

// ParamsFunc turns negotiated session data into the app configuration
// written to the radio.
type ParamsFunc func(data SessionData) (params.Params, params.ProtocolVersion, error)

// RadioRangingHost runs the ranging session on a uwb.Bridge, usually a
// *uwb.Radio.
type RadioRangingHost struct {
	bridge      uwb.Bridge
	configs     *uwb.ConfigurationManager
	build       ParamsFunc
	chipID      string
	mu          sync.Mutex
	sessionID   uint32
	open        bool
	sessionType byte
}

// NewRadioRangingHost returns a host that opens sessions of sessionType
// on chipID.
func NewRadioRangingHost(bridge uwb.Bridge, chipID string, sessionType byte, build ParamsFunc) *RadioRangingHost {
	return &RadioRangingHost{
		bridge:      bridge,
		configs:     uwb.NewConfigurationManager(bridge),
		build:       build,
		chipID:      chipID,
		sessionType: sessionType,
	}
}

// Open initializes the session on the chip and writes its configuration.
// A configuration failure de-initializes the session again.
func (h *RadioRangingHost) Open(ctx context.Context, data SessionData) error {
	p, version, err := h.build(data)
	if err != nil {
		return fmt.Errorf("build ranging params: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.open {
		return nil
	}
	if err := checkStatus("init session", func() (uwb.Status, error) {
		return h.bridge.InitSession(ctx, data.SessionID, h.sessionType, h.chipID)
	}); err != nil {
		return err
	}
	if st := h.configs.SetAppConfigurations(ctx, data.SessionID, p, h.chipID, version); !st.OK() {
		_, _ = h.bridge.DeinitSession(ctx, data.SessionID, h.chipID)
		return fmt.Errorf("%w: set app config: %s", uwb.ErrBridgeFailure, st)
	}
	h.sessionID = data.SessionID
	h.open = true
	return nil
}

// Start starts ranging.
func (h *RadioRangingHost) Start(ctx context.Context) error {
	return h.withSession("start ranging", func(id uint32) (uwb.Status, error) {
		return h.bridge.StartRanging(ctx, id, h.chipID)
	})
}

// Stop stops ranging; the session stays configured.
func (h *RadioRangingHost) Stop(ctx context.Context) error {
	return h.withSession("stop ranging", func(id uint32) (uwb.Status, error) {
		return h.bridge.StopRanging(ctx, id, h.chipID)
	})
}

// Close de-initializes the session. Closing a host that is not open is a
// no-op.
func (h *RadioRangingHost) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.open {
		return nil
	}
	h.open = false
	return checkStatus("deinit session", func() (uwb.Status, error) {
		return h.bridge.DeinitSession(ctx, h.sessionID, h.chipID)
	})
}

// SessionID returns the id of the open session.
func (h *RadioRangingHost) SessionID() (uint32, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessionID, h.open
}

func (h *RadioRangingHost) withSession(op string, fn func(id uint32) (uwb.Status, error)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.open {
		return fmt.Errorf("%s: %w", op, ErrNotOpen)
	}
	return checkStatus(op, func() (uwb.Status, error) { return fn(h.sessionID) })
}

func checkStatus(op string, fn func() (uwb.Status, error)) error {
	st, err := fn()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !st.OK() {
		return fmt.Errorf("%w: %s: %s", uwb.ErrBridgeFailure, op, st)
	}
	return nil
}

var _ RangingHost = (*RadioRangingHost)(nil)
