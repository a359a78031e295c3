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
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ZaparooProject/go-uwb/internal/logging"
	"github.com/ZaparooProject/go-uwb/params"
	"github.com/rs/zerolog"
)

// DefaultChipID is used when a radio is created without WithChips.
const DefaultChipID = "default"

// sinkSetter is implemented by bridges that publish notifications.
type sinkSetter interface {
	SetNotificationSink(sink NotificationSink)
}

// Radio serializes access to a Bridge. One mutex is held for the whole of
// every bridge call, including multi-chip operations, so commands from
// concurrent sessions never interleave on the wire.
//
// Radio itself implements Bridge and can be handed to a
// ConfigurationManager.
type Radio struct {
	bridge      Bridge
	dispatcher  *Dispatcher
	deviceInfo  map[string]*DeviceInfo
	logger      zerolog.Logger
	chips       []string
	queueSize   int
	mu          sync.Mutex
	ownsDisp    bool
	initialized bool
}

// NewRadio wraps bridge. Notifications from a bridge that publishes them
// are routed to the radio's dispatcher.
func NewRadio(bridge Bridge, opts ...Option) (*Radio, error) {
	if bridge == nil {
		return nil, fmt.Errorf("%w: nil bridge", ErrInvalidParameter)
	}
	r := &Radio{
		bridge: bridge,
		chips:  []string{DefaultChipID},
		logger: logging.Component("radio"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if r.dispatcher == nil {
		r.dispatcher = NewDispatcher(r.queueSize)
		r.ownsDisp = true
	}
	if s, ok := bridge.(sinkSetter); ok {
		s.SetNotificationSink(r.dispatcher)
	}
	return r, nil
}

// Chips returns the chip ids in configuration order.
func (r *Radio) Chips() []string {
	return append([]string(nil), r.chips...)
}

// DefaultChip returns the first configured chip id.
func (r *Radio) DefaultChip() string {
	return r.chips[0]
}

// Dispatcher returns the dispatcher notifications are published on.
func (r *Radio) Dispatcher() *Dispatcher {
	return r.dispatcher
}

// DeviceInfo returns the info read from chipID by InitializeAll.
func (r *Radio) DeviceInfo(chipID string) (*DeviceInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.deviceInfo[chipID]
	return info, ok
}

func (r *Radio) knownChip(chipID string) bool {
	for _, id := range r.chips {
		if id == chipID {
			return true
		}
	}
	return false
}

// InitializeAll initializes every chip in order. The first chip that fails
// or reports a non-Ok status aborts the sequence; chips initialized before
// it are left as they are.
func (r *Radio) InitializeAll(ctx context.Context) (map[string]*DeviceInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make(map[string]*DeviceInfo, len(r.chips))
	for _, chipID := range r.chips {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("initialize cancelled: %w", err)
		}
		info, err := r.bridge.Initialize(ctx, chipID)
		switch {
		case err != nil:
			return nil, &BridgeError{Op: "initialize", ChipID: chipID, Status: StatusFailed, Err: err}
		case info == nil:
			return nil, &BridgeError{Op: "initialize", ChipID: chipID, Status: StatusFailed}
		case !info.Status.OK():
			return nil, &BridgeError{Op: "initialize", ChipID: chipID, Status: info.Status}
		}
		r.logger.Info().
			Str("chip", chipID).
			Uint16("uci_version", info.UCIVersion).
			Uint16("mac_version", info.MACVersion).
			Msg("chip initialized")
		infos[chipID] = info
	}

	r.deviceInfo = infos
	r.initialized = true
	out := make(map[string]*DeviceInfo, len(infos))
	for k, v := range infos {
		out[k] = v
	}
	return out, nil
}

// DeinitializeAll releases every chip, continuing past failures.
func (r *Radio) DeinitializeAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, chipID := range r.chips {
		if err := r.bridge.Deinitialize(ctx, chipID); err != nil {
			errs = append(errs, &BridgeError{Op: "deinitialize", ChipID: chipID, Status: StatusFailed, Err: err})
		}
	}
	r.initialized = false
	r.deviceInfo = nil
	return errors.Join(errs...)
}

// SetCountryCodeAll applies a two letter ISO country code to every chip
// and returns the worst status. A chip whose call fails counts as Failed;
// the remaining chips are still configured.
func (r *Radio) SetCountryCodeAll(ctx context.Context, code string) (Status, error) {
	if err := validateCountryCode(code); err != nil {
		return StatusFailed, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return StatusFailed, ErrNotInitialized
	}

	worst := StatusOk
	var errs []error
	for _, chipID := range r.chips {
		st, err := r.bridge.SetCountryCode(ctx, code, chipID)
		if err != nil {
			errs = append(errs, &BridgeError{Op: "set country code", ChipID: chipID, Status: StatusFailed, Err: err})
			st = StatusFailed
		}
		r.logger.Debug().Str("chip", chipID).Str("country", code).Stringer("status", st).Msg("country code set")
		worst = Worst(worst, st)
	}
	return worst, errors.Join(errs...)
}

func validateCountryCode(code string) error {
	if len(code) != 2 {
		return fmt.Errorf("%w: country code %q must have two letters", ErrInvalidParameter, code)
	}
	for i := 0; i < 2; i++ {
		if c := code[i]; c < 'A' || c > 'Z' {
			return fmt.Errorf("%w: country code %q must be upper case ASCII", ErrInvalidParameter, code)
		}
	}
	return nil
}

// Close closes the bridge if it can be closed and, when the radio created
// it, the dispatcher.
func (r *Radio) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	if c, ok := r.bridge.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close bridge: %w", err))
		}
	}
	if r.ownsDisp {
		if err := r.dispatcher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.initialized = false
	debugln("radio closed")
	return errors.Join(errs...)
}

// call runs fn under the bridge lock after checking the chip id and the
// context. Transport failures come back as a *BridgeError.
func call[T any](ctx context.Context, r *Radio, op, chipID string, needInit bool, fn func() (T, error)) (T, error) {
	var zero T
	if !r.knownChip(chipID) {
		return zero, fmt.Errorf("%w: %q", ErrUnknownChip, chipID)
	}
	if err := ctx.Err(); err != nil {
		return zero, fmt.Errorf("%s cancelled: %w", op, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if needInit && !r.initialized {
		return zero, ErrNotInitialized
	}

	start := time.Now()
	v, err := fn()
	r.logger.Trace().Str("op", op).Str("chip", chipID).Dur("took", time.Since(start)).Err(err).Msg("bridge call")
	if err != nil {
		return zero, &BridgeError{Op: op, ChipID: chipID, Status: StatusFailed, Err: err}
	}
	return v, nil
}

// callStatus is call for operations answering with a Status; any error
// is reported as StatusFailed.
func callStatus(ctx context.Context, r *Radio, op, chipID string, needInit bool, fn func() (Status, error)) (Status, error) {
	st, err := call(ctx, r, op, chipID, needInit, fn)
	if err != nil {
		return StatusFailed, err
	}
	return st, nil
}

// Initialize initializes a single chip.
func (r *Radio) Initialize(ctx context.Context, chipID string) (*DeviceInfo, error) {
	return call(ctx, r, "initialize", chipID, false, func() (*DeviceInfo, error) {
		return r.bridge.Initialize(ctx, chipID)
	})
}

// Deinitialize releases a single chip.
func (r *Radio) Deinitialize(ctx context.Context, chipID string) error {
	_, err := call(ctx, r, "deinitialize", chipID, false, func() (struct{}, error) {
		return struct{}{}, r.bridge.Deinitialize(ctx, chipID)
	})
	return err
}

// DeviceReset resets a chip.
func (r *Radio) DeviceReset(ctx context.Context, resetConfig byte, chipID string) (Status, error) {
	return callStatus(ctx, r, "device reset", chipID, false, func() (Status, error) {
		return r.bridge.DeviceReset(ctx, resetConfig, chipID)
	})
}

// GetCapsInfo reads the raw capability TLVs of a chip.
func (r *Radio) GetCapsInfo(ctx context.Context, chipID string) (*ConfigResponse, error) {
	return call(ctx, r, "get caps info", chipID, true, func() (*ConfigResponse, error) {
		return r.bridge.GetCapsInfo(ctx, chipID)
	})
}

// InitSession creates a session on the chip.
func (r *Radio) InitSession(ctx context.Context, sessionID uint32, sessionType byte, chipID string) (Status, error) {
	return callStatus(ctx, r, "session init", chipID, true, func() (Status, error) {
		return r.bridge.InitSession(ctx, sessionID, sessionType, chipID)
	})
}

// DeinitSession destroys a session on the chip.
func (r *Radio) DeinitSession(ctx context.Context, sessionID uint32, chipID string) (Status, error) {
	return callStatus(ctx, r, "session deinit", chipID, true, func() (Status, error) {
		return r.bridge.DeinitSession(ctx, sessionID, chipID)
	})
}

// GetSessionToken returns the token the chip assigned to a session.
func (r *Radio) GetSessionToken(ctx context.Context, sessionID uint32, chipID string) (uint32, error) {
	return call(ctx, r, "get session token", chipID, true, func() (uint32, error) {
		return r.bridge.GetSessionToken(ctx, sessionID, chipID)
	})
}

func (r *Radio) GetSessionCount(ctx context.Context, chipID string) (int, error) {
	return call(ctx, r, "get session count", chipID, true, func() (int, error) {
		return r.bridge.GetSessionCount(ctx, chipID)
	})
}

func (r *Radio) GetSessionState(ctx context.Context, sessionID uint32, chipID string) (SessionState, error) {
	return call(ctx, r, "get session state", chipID, true, func() (SessionState, error) {
		return r.bridge.GetSessionState(ctx, sessionID, chipID)
	})
}

// SetAppConfigurations writes application configuration TLVs.
func (r *Radio) SetAppConfigurations(
	ctx context.Context, sessionID uint32, numParams int, tlvs []byte, chipID string,
) (*ConfigStatus, error) {
	return call(ctx, r, "set app config", chipID, true, func() (*ConfigStatus, error) {
		return r.bridge.SetAppConfigurations(ctx, sessionID, numParams, tlvs, chipID)
	})
}

// SetRadarAppConfigurations writes radar configuration TLVs.
func (r *Radio) SetRadarAppConfigurations(
	ctx context.Context, sessionID uint32, numParams int, tlvs []byte, chipID string,
) (*ConfigStatus, error) {
	return call(ctx, r, "set radar config", chipID, true, func() (*ConfigStatus, error) {
		return r.bridge.SetRadarAppConfigurations(ctx, sessionID, numParams, tlvs, chipID)
	})
}

// GetAppConfigurations reads application configuration TLVs.
func (r *Radio) GetAppConfigurations(
	ctx context.Context, sessionID uint32, tags []byte, chipID string,
) (*ConfigResponse, error) {
	return call(ctx, r, "get app config", chipID, true, func() (*ConfigResponse, error) {
		return r.bridge.GetAppConfigurations(ctx, sessionID, tags, chipID)
	})
}

func (r *Radio) StartRanging(ctx context.Context, sessionID uint32, chipID string) (Status, error) {
	return callStatus(ctx, r, "start ranging", chipID, true, func() (Status, error) {
		return r.bridge.StartRanging(ctx, sessionID, chipID)
	})
}

func (r *Radio) StopRanging(ctx context.Context, sessionID uint32, chipID string) (Status, error) {
	return callStatus(ctx, r, "stop ranging", chipID, true, func() (Status, error) {
		return r.bridge.StopRanging(ctx, sessionID, chipID)
	})
}

// ControllerMulticastListUpdate adds or removes controlees.
func (r *Radio) ControllerMulticastListUpdate(
	ctx context.Context, sessionID uint32, update MulticastUpdate, chipID string,
) (Status, error) {
	return callStatus(ctx, r, "multicast list update", chipID, true, func() (Status, error) {
		return r.bridge.ControllerMulticastListUpdate(ctx, sessionID, update, chipID)
	})
}

func (r *Radio) UpdateDtTagRangingRounds(
	ctx context.Context, sessionID uint32, rounds []byte, chipID string,
) (*DtTagRoundsStatus, error) {
	return call(ctx, r, "update dt tag rounds", chipID, true, func() (*DtTagRoundsStatus, error) {
		return r.bridge.UpdateDtTagRangingRounds(ctx, sessionID, rounds, chipID)
	})
}

func (r *Radio) SetHybridSessionConfig(ctx context.Context, cfg HybridSessionConfig, chipID string) (Status, error) {
	return callStatus(ctx, r, "set hybrid config", chipID, true, func() (Status, error) {
		return r.bridge.SetHybridSessionConfig(ctx, cfg, chipID)
	})
}

// SendData queues application data for a peer.
func (r *Radio) SendData(
	ctx context.Context, sessionID uint32, address params.Address, sequence uint16, data []byte, chipID string,
) (Status, error) {
	return callStatus(ctx, r, "send data", chipID, true, func() (Status, error) {
		return r.bridge.SendData(ctx, sessionID, address, sequence, data, chipID)
	})
}

func (r *Radio) SetDataTransferPhaseConfig(ctx context.Context, cfg DataTransferPhaseConfig, chipID string) (Status, error) {
	return callStatus(ctx, r, "set dtpc", chipID, true, func() (Status, error) {
		return r.bridge.SetDataTransferPhaseConfig(ctx, cfg, chipID)
	})
}

func (r *Radio) QueryMaxDataSize(ctx context.Context, sessionID uint32, chipID string) (int, error) {
	return call(ctx, r, "query max data size", chipID, true, func() (int, error) {
		return r.bridge.QueryMaxDataSize(ctx, sessionID, chipID)
	})
}

func (r *Radio) QueryTimestamp(ctx context.Context, chipID string) (uint64, error) {
	return call(ctx, r, "query timestamp", chipID, true, func() (uint64, error) {
		return r.bridge.QueryTimestamp(ctx, chipID)
	})
}

// SetCountryCode applies a country code to one chip.
func (r *Radio) SetCountryCode(ctx context.Context, code, chipID string) (Status, error) {
	if err := validateCountryCode(code); err != nil {
		return StatusFailed, err
	}
	return callStatus(ctx, r, "set country code", chipID, true, func() (Status, error) {
		return r.bridge.SetCountryCode(ctx, code, chipID)
	})
}

// SendRawVendorCmd forwards a vendor command unchanged.
func (r *Radio) SendRawVendorCmd(ctx context.Context, cmd VendorCommand, chipID string) (*VendorResponse, error) {
	return call(ctx, r, "raw vendor cmd", chipID, true, func() (*VendorResponse, error) {
		return r.bridge.SendRawVendorCmd(ctx, cmd, chipID)
	})
}

var _ Bridge = (*Radio)(nil)
