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

// Package params holds the protocol independent pieces of the UWB
// parameter model: protocol versions, required-field tracking, the
// notification bound policy shared by FiRa, CCC and ALIRO, and the
// versioned key-value Bundle used to move parameters across API
// boundaries.
//
// Protocol specific parameter objects live in the fira, ccc, aliro and
// radar subpackages. Every object is immutable once built.
package params

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Protocol names used to select encoders, decoders and bundle parsers.
const (
	ProtocolFira    = "fira"
	ProtocolCcc     = "ccc"
	ProtocolAliro   = "aliro"
	ProtocolRadar   = "radar"
	ProtocolGeneric = "generic"
)

// ErrInvalidArgument is returned by builders when a field or a
// combination of fields is invalid.
var ErrInvalidArgument = errors.New("invalid argument")

// Invalidf wraps ErrInvalidArgument with a formatted message.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Params is implemented by every parameter object.
type Params interface {
	// ProtocolName selects the encoder and decoder.
	ProtocolName() string
	// BundleVersion is the schema version written into bundles.
	BundleVersion() int
	// ToBundle serializes the object to its key-value form.
	ToBundle() Bundle
}

// ProtocolVersion is a (major, minor) protocol revision.
type ProtocolVersion struct {
	Major int
	Minor int
}

// Version returns a ProtocolVersion.
func Version(major, minor int) ProtocolVersion {
	return ProtocolVersion{Major: major, Minor: minor}
}

// AtLeast reports whether v is greater than or equal to major.minor.
func (v ProtocolVersion) AtLeast(major, minor int) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

// IsZero reports whether the version is unset.
func (v ProtocolVersion) IsZero() bool {
	return v.Major == 0 && v.Minor == 0
}

func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Bytes returns the two byte wire form {major, minor}.
func (v ProtocolVersion) Bytes() []byte {
	return []byte{byte(v.Major), byte(v.Minor)}
}

// VersionFromBytes parses the two byte wire form.
func VersionFromBytes(b []byte) (ProtocolVersion, error) {
	if len(b) != 2 {
		return ProtocolVersion{}, Invalidf("protocol version needs 2 bytes, got %d", len(b))
	}
	return Version(int(b[0]), int(b[1])), nil
}

// ParseVersion parses "major.minor".
func ParseVersion(s string) (ProtocolVersion, error) {
	major, minor, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok {
		return ProtocolVersion{}, Invalidf("malformed protocol version %q", s)
	}
	maj, err := strconv.Atoi(major)
	if err != nil {
		return ProtocolVersion{}, Invalidf("malformed protocol version %q", s)
	}
	mnr, err := strconv.Atoi(minor)
	if err != nil {
		return ProtocolVersion{}, Invalidf("malformed protocol version %q", s)
	}
	return Version(maj, mnr), nil
}

// Required is a builder field that must be assigned before Build.
type Required[T any] struct {
	value T
	set   bool
}

// Set assigns the value.
func (r *Required[T]) Set(v T) {
	r.value = v
	r.set = true
}

// IsSet reports whether Set was called.
func (r Required[T]) IsSet() bool {
	return r.set
}

// Value returns the value, or the zero value when unset.
func (r Required[T]) Value() T {
	return r.value
}

type settable interface {
	IsSet() bool
}

// Requirement names one required field for CheckRequired.
type Requirement struct {
	field settable
	name  string
}

// Need pairs a field name with its Required wrapper.
func Need(name string, field settable) Requirement {
	return Requirement{name: name, field: field}
}

// CheckRequired fails with ErrInvalidArgument listing every unset field.
func CheckRequired(reqs ...Requirement) error {
	var missing []string
	for _, r := range reqs {
		if !r.field.IsSet() {
			missing = append(missing, r.name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return Invalidf("required fields not set: %s", strings.Join(missing, ", "))
}

// Address is a UWB MAC address of 2 (short) or 8 (extended) bytes.
type Address []byte

// NewAddress validates and copies b.
func NewAddress(b []byte) (Address, error) {
	if len(b) != 2 && len(b) != 8 {
		return nil, Invalidf("mac address must be 2 or 8 bytes, got %d", len(b))
	}
	return Address(append([]byte(nil), b...)), nil
}

// MustAddress is NewAddress for constants; it panics on bad input.
func MustAddress(b ...byte) Address {
	a, err := NewAddress(b)
	if err != nil {
		panic(err)
	}
	return a
}

// IsExtended reports whether a is an 8 byte address.
func (a Address) IsExtended() bool {
	return len(a) == 8
}

func (a Address) String() string {
	parts := make([]string, len(a))
	for i, b := range a {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":")
}

// Clone returns a copy.
func (a Address) Clone() Address {
	if a == nil {
		return nil
	}
	return append(Address(nil), a...)
}

// CloneAddresses deep-copies a list of addresses.
func CloneAddresses(in []Address) []Address {
	if in == nil {
		return nil
	}
	out := make([]Address, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}

// CloneBytes returns a copy of b, preserving nil.
func CloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
