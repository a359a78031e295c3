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
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-uwb/codec"
	"github.com/ZaparooProject/go-uwb/params"
	"github.com/ZaparooProject/go-uwb/tlv"
)

// Transport errors
var (
	ErrTransportTimeout    = errors.New("transport timeout")
	ErrTransportRead       = errors.New("transport read failed")
	ErrTransportWrite      = errors.New("transport write failed")
	ErrTransportClosed     = errors.New("transport closed")
	ErrCommunicationFailed = errors.New("communication failed")
	ErrFrameCorrupted      = errors.New("frame corrupted")
	ErrDeviceNotFound      = errors.New("device not found")
	ErrDataTooLarge        = errors.New("data too large")
	ErrInvalidParameter    = errors.New("invalid parameter")
)

// Radio errors
var (
	ErrBridgeFailure    = errors.New("bridge failure")
	ErrNotInitialized   = errors.New("radio not initialized")
	ErrUnknownChip      = errors.New("unknown chip")
	ErrNoChips          = errors.New("no chips configured")
	ErrDispatcherClosed = errors.New("notification dispatcher closed")
)

// Errors raised by the codec layers, re-exported so callers only need this
// package for errors.Is checks.
var (
	ErrUnsupportedProtocol = codec.ErrUnsupportedProtocol
	ErrDecodeFailure       = codec.ErrDecodeFailure
	ErrInvalidArgument     = params.ErrInvalidArgument
	ErrParse               = tlv.ErrParse
	ErrFormat              = tlv.ErrFormat
)

// ErrorType classifies transport failures for retry decisions.
type ErrorType int

const (
	// ErrorTypePermanent errors will not go away by retrying.
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient errors may succeed on retry.
	ErrorTypeTransient
	// ErrorTypeTimeout errors are transient errors caused by a deadline.
	ErrorTypeTimeout
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return "permanent"
	}
}

// TransportError describes a failed transport operation.
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a TransportError; transient and timeout
// errors are marked retryable.
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType != ErrorTypePermanent,
	}
}

// NewTimeoutError creates a retryable timeout error.
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportTimeout, ErrorTypeTimeout)
}

// NewFrameCorruptedError creates a retryable error for a malformed UCI
// packet.
func NewFrameCorruptedError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrFrameCorrupted, ErrorTypeTransient)
}

// NewDataTooLargeError creates a permanent error for an oversized payload.
func NewDataTooLargeError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrDataTooLarge, ErrorTypePermanent)
}

var transientErrors = []error{
	ErrTransportRead,
	ErrTransportWrite,
	ErrCommunicationFailed,
	ErrFrameCorrupted,
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}
	return GetErrorType(err) != ErrorTypePermanent
}

// GetErrorType classifies err.
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}
	if errors.Is(err, ErrTransportTimeout) {
		return ErrorTypeTimeout
	}
	for _, t := range transientErrors {
		if errors.Is(err, t) {
			return ErrorTypeTransient
		}
	}
	return ErrorTypePermanent
}

// BridgeError reports a bridge call that failed on one chip.
type BridgeError struct {
	Err    error
	Op     string
	ChipID string
	Status Status
}

func (e *BridgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s on chip %q: %s: %v", e.Op, e.ChipID, e.Status, e.Err)
	}
	return fmt.Sprintf("%s on chip %q: %s", e.Op, e.ChipID, e.Status)
}

func (e *BridgeError) Unwrap() error {
	if e.Err == nil {
		return ErrBridgeFailure
	}
	return e.Err
}

// Is lets every BridgeError match ErrBridgeFailure.
func (*BridgeError) Is(target error) bool {
	return target == ErrBridgeFailure
}
