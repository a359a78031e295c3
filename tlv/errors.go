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

package tlv

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrParse is matched by every *ParseError.
	ErrParse = errors.New("tlv parse error")
	// ErrFormat is matched by every *FormatError.
	ErrFormat = errors.New("unsupported byte length")
	// ErrTagNotFound is returned by Decoded getters for absent tags.
	ErrTagNotFound = errors.New("tag not found")
)

// ParseError describes malformed TLV input.
type ParseError struct {
	Reason    string
	Offset    int
	Declared  int
	Available int
	Tag       byte
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("tlv parse error at offset %d (tag 0x%02X, declared %d, available %d): %s",
		e.Offset, e.Tag, e.Declared, e.Available, e.Reason)
}

// Is makes errors.Is(err, ErrParse) work.
func (*ParseError) Is(target error) bool {
	return target == ErrParse
}

// FormatError is returned by conversions given an unsupported input width.
type FormatError struct {
	Op   string
	Want []int
	Got  int
}

func (e *FormatError) Error() string {
	want := make([]string, len(e.Want))
	for i, w := range e.Want {
		want[i] = fmt.Sprint(w)
	}
	return fmt.Sprintf("%s: got %d bytes, want %s", e.Op, e.Got, strings.Join(want, " or "))
}

// Is makes errors.Is(err, ErrFormat) work.
func (*FormatError) Is(target error) bool {
	return target == ErrFormat
}
