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
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Bundle keys shared across protocols.
const (
	KeyProtocolName       = "protocol_name"
	KeyBundleVersion      = "bundle_version"
	KeyProtocolVersion    = "protocol_version"
	KeySessionID          = "session_id"
	KeySessionType        = "session_type"
	KeyChannel            = "channel"
	KeyRangeDataNtfConfig = "range_data_ntf_config"
	KeyProximityNear      = "range_data_ntf_proximity_near"
	KeyProximityFar       = "range_data_ntf_proximity_far"
	KeyAoaAzimuthLower    = "range_data_ntf_aoa_azimuth_lower"
	KeyAoaAzimuthUpper    = "range_data_ntf_aoa_azimuth_upper"
	KeyAoaElevationLower  = "range_data_ntf_aoa_elevation_lower"
	KeyAoaElevationUpper  = "range_data_ntf_aoa_elevation_upper"
)

// Bundle is the generic, versioned key-value form of a parameter object.
// Values are Go scalars, strings, byte slices or slices of numbers; values
// decoded from YAML or JSON may arrive with looser types and are coerced
// by Reader.
type Bundle map[string]any

// NewBundle returns a bundle carrying the protocol marker and version.
func NewBundle(protocol string, version int) Bundle {
	return Bundle{
		KeyProtocolName:  protocol,
		KeyBundleVersion: version,
	}
}

// ProtocolName returns the protocol marker, or "" when absent.
func (b Bundle) ProtocolName() string {
	s, _ := b[KeyProtocolName].(string)
	return s
}

// Version returns the bundle schema version, or 0 when absent.
func (b Bundle) Version() int {
	v, err := toInt64(b[KeyBundleVersion])
	if err != nil {
		return 0
	}
	return int(v)
}

// CheckHeader verifies the protocol marker and that the version is one
// the caller understands.
func (b Bundle) CheckHeader(protocol string, maxVersion int) error {
	if got := b.ProtocolName(); got != protocol {
		return Invalidf("bundle is for protocol %q, want %q", got, protocol)
	}
	v := b.Version()
	if v < 1 || v > maxVersion {
		return Invalidf("unsupported %s bundle version %d", protocol, v)
	}
	return nil
}

// Reader pulls typed values out of a Bundle, remembering the first error.
type Reader struct {
	b   Bundle
	err error
}

// NewReader wraps b.
func NewReader(b Bundle) *Reader {
	return &Reader{b: b}
}

// Err returns the first conversion or missing-key error.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) fail(key string, err error) {
	if r.err == nil {
		r.err = Invalidf("bundle key %q: %v", key, err)
	}
}

// Has reports whether key is present.
func (r *Reader) Has(key string) bool {
	_, ok := r.b[key]
	return ok
}

// Int returns a required integer.
func (r *Reader) Int(key string) int {
	return int(r.Int64(key))
}

// Int64 returns a required 64-bit integer.
func (r *Reader) Int64(key string) int64 {
	v, ok := r.b[key]
	if !ok {
		r.fail(key, fmt.Errorf("missing"))
		return 0
	}
	n, err := toInt64(v)
	if err != nil {
		r.fail(key, err)
	}
	return n
}

// IntOr returns an optional integer.
func (r *Reader) IntOr(key string, def int) int {
	return int(r.Int64Or(key, int64(def)))
}

// Int64Or returns an optional 64-bit integer.
func (r *Reader) Int64Or(key string, def int64) int64 {
	if !r.Has(key) {
		return def
	}
	return r.Int64(key)
}

// BoolOr returns an optional boolean. Integers are accepted as 0/1.
func (r *Reader) BoolOr(key string, def bool) bool {
	v, ok := r.b[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		bv, err := strconv.ParseBool(t)
		if err != nil {
			r.fail(key, err)
		}
		return bv
	default:
		n, err := toInt64(v)
		if err != nil {
			r.fail(key, err)
		}
		return n != 0
	}
}

// FloatOr returns an optional float.
func (r *Reader) FloatOr(key string, def float64) float64 {
	v, ok := r.b[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			r.fail(key, err)
		}
		return f
	default:
		n, err := toInt64(v)
		if err != nil {
			r.fail(key, err)
		}
		return float64(n)
	}
}

// String returns an optional string.
func (r *Reader) String(key, def string) string {
	v, ok := r.b[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		r.fail(key, fmt.Errorf("not a string: %T", v))
	}
	return s
}

// Bytes returns an optional byte slice. Hex strings and numeric lists
// are accepted.
func (r *Reader) Bytes(key string) []byte {
	v, ok := r.b[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case []byte:
		return CloneBytes(t)
	case string:
		out, err := hex.DecodeString(strings.Join(strings.Fields(t), ""))
		if err != nil {
			r.fail(key, err)
		}
		return out
	default:
		nums := r.Int64s(key)
		out := make([]byte, len(nums))
		for i, n := range nums {
			if n < 0 || n > 0xFF {
				r.fail(key, fmt.Errorf("element %d out of byte range", n))
				return nil
			}
			out[i] = byte(n)
		}
		return out
	}
}

// Int64s returns an optional list of integers.
func (r *Reader) Int64s(key string) []int64 {
	v, ok := r.b[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case []int64:
		return append([]int64(nil), t...)
	case []int:
		out := make([]int64, len(t))
		for i, n := range t {
			out[i] = int64(n)
		}
		return out
	case []uint64:
		out := make([]int64, len(t))
		for i, n := range t {
			out[i] = int64(n)
		}
		return out
	case []any:
		out := make([]int64, len(t))
		for i, e := range t {
			n, err := toInt64(e)
			if err != nil {
				r.fail(key, err)
				return nil
			}
			out[i] = n
		}
		return out
	default:
		r.fail(key, fmt.Errorf("not a list: %T", v))
		return nil
	}
}

// Version returns an optional "major.minor" protocol version.
func (r *Reader) Version(key string, def ProtocolVersion) ProtocolVersion {
	s := r.String(key, "")
	if s == "" {
		return def
	}
	v, err := ParseVersion(s)
	if err != nil {
		r.fail(key, err)
	}
	return v
}

func toInt64(v any) (int64, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint:
		return int64(t), nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint64:
		return int64(t), nil
	case float64:
		if t != math.Trunc(t) {
			return 0, fmt.Errorf("%v is not an integer", t)
		}
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 0, 64)
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}
