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
	"fmt"

	"github.com/rs/zerolog"
)

// Option is a functional option for configuring a Radio
type Option func(*Radio) error

// WithChips sets the chip ids driven by the radio. The first chip is the
// default chip.
func WithChips(chipIDs ...string) Option {
	return func(r *Radio) error {
		if len(chipIDs) == 0 {
			return ErrNoChips
		}
		seen := make(map[string]struct{}, len(chipIDs))
		for _, id := range chipIDs {
			if id == "" {
				return fmt.Errorf("%w: empty chip id", ErrInvalidParameter)
			}
			if _, dup := seen[id]; dup {
				return fmt.Errorf("%w: duplicate chip id %q", ErrInvalidParameter, id)
			}
			seen[id] = struct{}{}
		}
		r.chips = append([]string(nil), chipIDs...)
		return nil
	}
}

// WithDispatcher makes the radio publish notifications on d instead of
// a dispatcher of its own.
func WithDispatcher(d *Dispatcher) Option {
	return func(r *Radio) error {
		if d == nil {
			return fmt.Errorf("%w: nil dispatcher", ErrInvalidParameter)
		}
		r.dispatcher = d
		return nil
	}
}

// WithQueueSize sets the per-category buffer of the radio's own dispatcher.
func WithQueueSize(size int) Option {
	return func(r *Radio) error {
		if size <= 0 {
			return fmt.Errorf("%w: queue size %d", ErrInvalidParameter, size)
		}
		r.queueSize = size
		return nil
	}
}

// WithLogger sets the logger used for bridge call tracing.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Radio) error {
		r.logger = logger
		return nil
	}
}
