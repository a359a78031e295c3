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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtocolVersion(t *testing.T) {
	t.Parallel()

	v := Version(1, 1)
	assert.True(t, v.AtLeast(1, 0))
	assert.True(t, v.AtLeast(1, 1))
	assert.False(t, v.AtLeast(2, 0))
	assert.True(t, Version(2, 0).AtLeast(1, 9))
	assert.Equal(t, "1.1", v.String())
	assert.Equal(t, []byte{1, 1}, v.Bytes())

	parsed, err := ParseVersion("2.0")
	require.NoError(t, err)
	assert.Equal(t, Version(2, 0), parsed)

	_, err = ParseVersion("2")
	require.ErrorIs(t, err, ErrInvalidArgument)

	fromBytes, err := VersionFromBytes([]byte{1, 0})
	require.NoError(t, err)
	assert.Equal(t, Version(1, 0), fromBytes)
}

func TestCheckRequired(t *testing.T) {
	t.Parallel()

	var a Required[int]
	var b Required[string]
	b.Set("x")

	err := CheckRequired(Need("session_id", &a), Need("name", &b))
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "session_id")
	assert.NotContains(t, err.Error(), "name")

	a.Set(0)
	require.NoError(t, CheckRequired(Need("session_id", &a), Need("name", &b)))
	assert.Equal(t, 0, a.Value())
}

func TestNewAddress(t *testing.T) {
	t.Parallel()

	for _, n := range []int{2, 8} {
		a, err := NewAddress(make([]byte, n))
		require.NoError(t, err)
		assert.Len(t, a, n)
	}
	for _, n := range []int{0, 1, 4, 9} {
		_, err := NewAddress(make([]byte, n))
		require.ErrorIs(t, err, ErrInvalidArgument)
	}
	assert.Equal(t, "04:06", MustAddress(0x04, 0x06).String())
}

func TestNotificationBounds_Validate(t *testing.T) {
	t.Parallel()

	withNear := func(c RangeDataNtfConfig, near int) NotificationBounds {
		n := DefaultNotificationBounds(c)
		n.ProximityNear = near
		return n
	}
	withAzimuth := func(c RangeDataNtfConfig, lower float64) NotificationBounds {
		n := DefaultNotificationBounds(c)
		n.AzimuthLower = lower
		return n
	}

	tests := []struct {
		name    string
		bounds  NotificationBounds
		wantErr bool
	}{
		{name: "Disable_Defaults", bounds: DefaultNotificationBounds(NtfDisable)},
		{name: "Disable_With_Proximity", bounds: withNear(NtfDisable, 10), wantErr: true},
		{name: "Disable_With_Angle", bounds: withAzimuth(NtfDisable, -1), wantErr: true},
		{name: "Enable_Anything", bounds: withNear(NtfEnable, 10)},
		{name: "Proximity_Defaults", bounds: DefaultNotificationBounds(NtfProximityLevel), wantErr: true},
		{name: "Proximity_Edge_Defaults", bounds: DefaultNotificationBounds(NtfProximityEdge), wantErr: true},
		{name: "Proximity_Set", bounds: withNear(NtfProximityLevel, 10)},
		{name: "Proximity_With_Angle", bounds: func() NotificationBounds {
			n := withNear(NtfProximityLevel, 10)
			n.AzimuthLower = -1
			return n
		}(), wantErr: true},
		{name: "Aoa_Defaults", bounds: DefaultNotificationBounds(NtfAoaLevel), wantErr: true},
		{name: "Aoa_Set", bounds: withAzimuth(NtfAoaEdge, -1)},
		{name: "Aoa_With_Proximity", bounds: func() NotificationBounds {
			n := withAzimuth(NtfAoaLevel, -1)
			n.ProximityFar = 100
			return n
		}(), wantErr: true},
		{name: "Combined_Defaults", bounds: DefaultNotificationBounds(NtfProximityAoaLevel), wantErr: true},
		{name: "Combined_Angle_Only", bounds: withAzimuth(NtfProximityAoaLevel, -1.5)},
		{name: "Near_Exceeds_Far", bounds: func() NotificationBounds {
			n := DefaultNotificationBounds(NtfProximityLevel)
			n.ProximityNear, n.ProximityFar = 300, 100
			return n
		}(), wantErr: true},
		{name: "Azimuth_Out_Of_Range", bounds: withAzimuth(NtfAoaLevel, -4), wantErr: true},
		{name: "Unknown_Mode", bounds: DefaultNotificationBounds(RangeDataNtfConfig(9)), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.bounds.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestBundleReader(t *testing.T) {
	t.Parallel()

	b := Bundle{
		KeyProtocolName:  "fira",
		KeyBundleVersion: 2,
		"int_from_float":  float64(9),
		"int_from_string": "0x10",
		"hex":             "0578",
		"list":            []any{1, 2, 3},
		"flag":            1,
		"ratio":           "1.5",
		"version":         "1.1",
	}
	require.NoError(t, b.CheckHeader("fira", 3))
	require.ErrorIs(t, b.CheckHeader("ccc", 3), ErrInvalidArgument)
	require.ErrorIs(t, b.CheckHeader("fira", 1), ErrInvalidArgument)

	r := NewReader(b)
	assert.Equal(t, 9, r.Int("int_from_float"))
	assert.Equal(t, 16, r.Int("int_from_string"))
	assert.Equal(t, []byte{0x05, 0x78}, r.Bytes("hex"))
	assert.Equal(t, []byte{1, 2, 3}, r.Bytes("list"))
	assert.Equal(t, []int64{1, 2, 3}, r.Int64s("list"))
	assert.True(t, r.BoolOr("flag", false))
	assert.InDelta(t, 1.5, r.FloatOr("ratio", 0), 1e-9)
	assert.Equal(t, Version(1, 1), r.Version("version", Version(0, 0)))
	assert.Equal(t, 7, r.IntOr("absent", 7))
	require.NoError(t, r.Err())

	r.Int("absent")
	require.ErrorIs(t, r.Err(), ErrInvalidArgument)
}

func TestNotificationBounds_BundleRoundTrip(t *testing.T) {
	t.Parallel()

	n := DefaultNotificationBounds(NtfProximityAoaLevel)
	n.ProximityNear = 4
	n.AzimuthLower = -1.5

	b := NewBundle("fira", 1)
	n.WriteBundle(b)

	got := ReadNotificationBounds(NewReader(b), NtfEnable)
	assert.Equal(t, n, got)
}
