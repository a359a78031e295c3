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

package params

import "math"

// RangeDataNtfConfig selects when range data notifications are sent.
type RangeDataNtfConfig byte

// Range data notification trigger modes.
const (
	NtfDisable           RangeDataNtfConfig = 0x00
	NtfEnable            RangeDataNtfConfig = 0x01
	NtfProximityLevel    RangeDataNtfConfig = 0x02
	NtfAoaLevel          RangeDataNtfConfig = 0x03
	NtfProximityAoaLevel RangeDataNtfConfig = 0x04
	NtfProximityEdge     RangeDataNtfConfig = 0x05
	NtfAoaEdge           RangeDataNtfConfig = 0x06
	NtfProximityAoaEdge  RangeDataNtfConfig = 0x07
)

// Default notification bounds. Distances are centimetres, angles radians.
const (
	DefaultProximityNear  = 0
	DefaultProximityFar   = 20000
	DefaultAzimuthLower   = -math.Pi
	DefaultAzimuthUpper   = math.Pi
	DefaultElevationLower = -math.Pi / 2
	DefaultElevationUpper = math.Pi / 2
)

// UsesProximity reports whether the mode is driven by distance bounds.
func (c RangeDataNtfConfig) UsesProximity() bool {
	switch c {
	case NtfProximityLevel, NtfProximityEdge, NtfProximityAoaLevel, NtfProximityAoaEdge:
		return true
	}
	return false
}

// UsesAoa reports whether the mode is driven by angle bounds.
func (c RangeDataNtfConfig) UsesAoa() bool {
	switch c {
	case NtfAoaLevel, NtfAoaEdge, NtfProximityAoaLevel, NtfProximityAoaEdge:
		return true
	}
	return false
}

// Valid reports whether c is a known mode.
func (c RangeDataNtfConfig) Valid() bool {
	return c <= NtfProximityAoaEdge
}

// NotificationBounds is the trigger mode plus its distance and angle
// bounds.
type NotificationBounds struct {
	Config         RangeDataNtfConfig
	ProximityNear  int
	ProximityFar   int
	AzimuthLower   float64
	AzimuthUpper   float64
	ElevationLower float64
	ElevationUpper float64
}

// DefaultNotificationBounds returns the given mode with every bound at its
// default.
func DefaultNotificationBounds(config RangeDataNtfConfig) NotificationBounds {
	return NotificationBounds{
		Config:         config,
		ProximityNear:  DefaultProximityNear,
		ProximityFar:   DefaultProximityFar,
		AzimuthLower:   DefaultAzimuthLower,
		AzimuthUpper:   DefaultAzimuthUpper,
		ElevationLower: DefaultElevationLower,
		ElevationUpper: DefaultElevationUpper,
	}
}

func (n NotificationBounds) proximityDefault() bool {
	return n.ProximityNear == DefaultProximityNear && n.ProximityFar == DefaultProximityFar
}

func (n NotificationBounds) aoaDefault() bool {
	return n.AzimuthLower == DefaultAzimuthLower && n.AzimuthUpper == DefaultAzimuthUpper &&
		n.ElevationLower == DefaultElevationLower && n.ElevationUpper == DefaultElevationUpper
}

// Validate enforces the per-mode rules: bounds that the mode does not use
// must stay at their defaults, and a mode that uses bounds must set at
// least one of them.
func (n NotificationBounds) Validate() error {
	if !n.Config.Valid() {
		return Invalidf("unknown range data notification config %d", n.Config)
	}
	if n.ProximityNear < 0 || n.ProximityFar < 0 || n.ProximityNear > 0xFFFF || n.ProximityFar > 0xFFFF {
		return Invalidf("proximity bounds out of range: near=%d far=%d", n.ProximityNear, n.ProximityFar)
	}
	if n.ProximityNear > n.ProximityFar {
		return Invalidf("proximity near %d exceeds far %d", n.ProximityNear, n.ProximityFar)
	}
	if n.AzimuthLower < DefaultAzimuthLower || n.AzimuthUpper > DefaultAzimuthUpper || n.AzimuthLower > n.AzimuthUpper {
		return Invalidf("azimuth bounds [%v, %v] invalid", n.AzimuthLower, n.AzimuthUpper)
	}
	if n.ElevationLower < DefaultElevationLower || n.ElevationUpper > DefaultElevationUpper || n.ElevationLower > n.ElevationUpper {
		return Invalidf("elevation bounds [%v, %v] invalid", n.ElevationLower, n.ElevationUpper)
	}

	switch n.Config {
	case NtfDisable:
		if !n.proximityDefault() || !n.aoaDefault() {
			return Invalidf("notification bounds must be default when notifications are disabled")
		}
	case NtfProximityLevel, NtfProximityEdge:
		if n.proximityDefault() {
			return Invalidf("proximity trigger needs a non-default near or far bound")
		}
		if !n.aoaDefault() {
			return Invalidf("angle bounds must be default for a proximity trigger")
		}
	case NtfAoaLevel, NtfAoaEdge:
		if !n.proximityDefault() {
			return Invalidf("proximity bounds must be default for an angle trigger")
		}
		if n.aoaDefault() {
			return Invalidf("angle trigger needs a non-default angle bound")
		}
	case NtfProximityAoaLevel, NtfProximityAoaEdge:
		if n.proximityDefault() && n.aoaDefault() {
			return Invalidf("combined trigger needs at least one non-default bound")
		}
	case NtfEnable:
	}
	return nil
}

// WriteBundle stores the bounds under the shared keys.
func (n NotificationBounds) WriteBundle(b Bundle) {
	b[KeyRangeDataNtfConfig] = int(n.Config)
	b[KeyProximityNear] = n.ProximityNear
	b[KeyProximityFar] = n.ProximityFar
	b[KeyAoaAzimuthLower] = n.AzimuthLower
	b[KeyAoaAzimuthUpper] = n.AzimuthUpper
	b[KeyAoaElevationLower] = n.ElevationLower
	b[KeyAoaElevationUpper] = n.ElevationUpper
}

// ReadNotificationBounds reads the shared keys, falling back to defaults.
func ReadNotificationBounds(r *Reader, def RangeDataNtfConfig) NotificationBounds {
	return NotificationBounds{
		Config:         RangeDataNtfConfig(r.IntOr(KeyRangeDataNtfConfig, int(def))),
		ProximityNear:  r.IntOr(KeyProximityNear, DefaultProximityNear),
		ProximityFar:   r.IntOr(KeyProximityFar, DefaultProximityFar),
		AzimuthLower:   r.FloatOr(KeyAoaAzimuthLower, DefaultAzimuthLower),
		AzimuthUpper:   r.FloatOr(KeyAoaAzimuthUpper, DefaultAzimuthUpper),
		ElevationLower: r.FloatOr(KeyAoaElevationLower, DefaultElevationLower),
		ElevationUpper: r.FloatOr(KeyAoaElevationUpper, DefaultElevationUpper),
	}
}
