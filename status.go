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

import "fmt"

// Status is a UCI status code as returned by the radio, plus the
// host-side Failed used when a call produced no usable response.
type Status byte

// Generic status codes.
const (
	StatusOk                 Status = 0x00
	StatusRejected           Status = 0x01
	StatusFailed             Status = 0x02
	StatusSyntaxError        Status = 0x03
	StatusInvalidParam       Status = 0x04
	StatusInvalidRange       Status = 0x05
	StatusInvalidMessageSize Status = 0x06
	StatusUnknownGID         Status = 0x07
	StatusUnknownOID         Status = 0x08
	StatusReadOnly           Status = 0x09
	StatusCommandRetry       Status = 0x0A
	StatusUnknown            Status = 0x0B
)

// Session status codes.
const (
	StatusSessionNotExist       Status = 0x11
	StatusSessionDuplicate      Status = 0x12
	StatusSessionActive         Status = 0x13
	StatusMaxSessionsExceeded   Status = 0x14
	StatusSessionNotConfigured  Status = 0x15
	StatusActiveSessionsOngoing Status = 0x16
	StatusMulticastListFull     Status = 0x17
	StatusAddressNotFound       Status = 0x18
	StatusAddressAlreadyPresent Status = 0x19
	StatusOkNegativeDistance    Status = 0x1B
)

// Ranging status codes.
const (
	StatusRangingTxFailed    Status = 0x20
	StatusRangingRxTimeout   Status = 0x21
	StatusRangingPhyDecFail  Status = 0x22
	StatusRangingPhyToaFail  Status = 0x23
	StatusRangingPhyStsFail  Status = 0x24
	StatusRangingMacDecFail  Status = 0x25
	StatusRangingRxMacIeDec  Status = 0x26
	StatusRangingRxMacIeMiss Status = 0x27
)

// Data transfer status codes.
const (
	StatusDataMaxTxRetryReached Status = 0x30
	StatusDataNoCredit          Status = 0x31
)

var statusNames = map[Status]string{
	StatusOk:                    "OK",
	StatusRejected:              "REJECTED",
	StatusFailed:                "FAILED",
	StatusSyntaxError:           "SYNTAX_ERROR",
	StatusInvalidParam:          "INVALID_PARAM",
	StatusInvalidRange:          "INVALID_RANGE",
	StatusInvalidMessageSize:    "INVALID_MESSAGE_SIZE",
	StatusUnknownGID:            "UNKNOWN_GID",
	StatusUnknownOID:            "UNKNOWN_OID",
	StatusReadOnly:              "READ_ONLY",
	StatusCommandRetry:          "COMMAND_RETRY",
	StatusUnknown:               "UNKNOWN",
	StatusSessionNotExist:       "SESSION_NOT_EXIST",
	StatusSessionDuplicate:      "SESSION_DUPLICATE",
	StatusSessionActive:         "SESSION_ACTIVE",
	StatusMaxSessionsExceeded:   "MAX_SESSIONS_EXCEEDED",
	StatusSessionNotConfigured:  "SESSION_NOT_CONFIGURED",
	StatusActiveSessionsOngoing: "ACTIVE_SESSIONS_ONGOING",
	StatusMulticastListFull:     "MULTICAST_LIST_FULL",
	StatusAddressNotFound:       "ADDRESS_NOT_FOUND",
	StatusAddressAlreadyPresent: "ADDRESS_ALREADY_PRESENT",
	StatusOkNegativeDistance:    "OK_NEGATIVE_DISTANCE_REPORT",
	StatusRangingTxFailed:       "RANGING_TX_FAILED",
	StatusRangingRxTimeout:      "RANGING_RX_TIMEOUT",
	StatusRangingPhyDecFail:     "RANGING_RX_PHY_DEC_FAILED",
	StatusRangingPhyToaFail:     "RANGING_RX_PHY_TOA_FAILED",
	StatusRangingPhyStsFail:     "RANGING_RX_PHY_STS_FAILED",
	StatusRangingMacDecFail:     "RANGING_RX_MAC_DEC_FAILED",
	StatusRangingRxMacIeDec:     "RANGING_RX_MAC_IE_DEC_FAILED",
	StatusRangingRxMacIeMiss:    "RANGING_RX_MAC_IE_MISSING",
	StatusDataMaxTxRetryReached: "DATA_MAX_TX_RETRY_REACHED",
	StatusDataNoCredit:          "DATA_NO_CREDIT_AVAILABLE",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATUS(0x%02X)", byte(s))
}

// OK reports whether s is StatusOk.
func (s Status) OK() bool {
	return s == StatusOk
}

// Worst folds two statuses into one: Ok only when both are Ok, Failed as
// soon as either is Failed, otherwise the first non-Ok status.
func Worst(a, b Status) Status {
	switch {
	case a == StatusOk:
		return b
	case b == StatusOk:
		return a
	case a == StatusFailed || b == StatusFailed:
		return StatusFailed
	default:
		return a
	}
}
