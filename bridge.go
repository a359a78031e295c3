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

	"github.com/ZaparooProject/go-uwb/params"
)

// Bridge is the call contract of a UWB radio controller. Every method
// addresses one chip. A non-nil error means the call did not complete
// (transport failure, cancelled context); a completed call reports the
// radio's verdict through a Status.
//
// Bridge implementations are not required to be safe for concurrent use.
// Radio wraps a Bridge and serializes every call.
type Bridge interface {
	// Initialize powers up and resets one chip and reads its device info.
	Initialize(ctx context.Context, chipID string) (*DeviceInfo, error)
	// Deinitialize releases one chip.
	Deinitialize(ctx context.Context, chipID string) error
	DeviceReset(ctx context.Context, resetConfig byte, chipID string) (Status, error)
	// GetCapsInfo returns the raw capability TLVs. A nil response means the
	// radio produced none.
	GetCapsInfo(ctx context.Context, chipID string) (*ConfigResponse, error)

	InitSession(ctx context.Context, sessionID uint32, sessionType byte, chipID string) (Status, error)
	DeinitSession(ctx context.Context, sessionID uint32, chipID string) (Status, error)
	GetSessionToken(ctx context.Context, sessionID uint32, chipID string) (uint32, error)
	GetSessionCount(ctx context.Context, chipID string) (int, error)
	GetSessionState(ctx context.Context, sessionID uint32, chipID string) (SessionState, error)

	SetAppConfigurations(ctx context.Context, sessionID uint32, numParams int, tlvs []byte, chipID string) (*ConfigStatus, error)
	SetRadarAppConfigurations(ctx context.Context, sessionID uint32, numParams int, tlvs []byte, chipID string) (*ConfigStatus, error)
	GetAppConfigurations(ctx context.Context, sessionID uint32, tags []byte, chipID string) (*ConfigResponse, error)

	StartRanging(ctx context.Context, sessionID uint32, chipID string) (Status, error)
	StopRanging(ctx context.Context, sessionID uint32, chipID string) (Status, error)
	ControllerMulticastListUpdate(ctx context.Context, sessionID uint32, update MulticastUpdate, chipID string) (Status, error)
	UpdateDtTagRangingRounds(ctx context.Context, sessionID uint32, rounds []byte, chipID string) (*DtTagRoundsStatus, error)
	SetHybridSessionConfig(ctx context.Context, cfg HybridSessionConfig, chipID string) (Status, error)

	SendData(ctx context.Context, sessionID uint32, address params.Address, sequence uint16, data []byte, chipID string) (Status, error)
	SetDataTransferPhaseConfig(ctx context.Context, cfg DataTransferPhaseConfig, chipID string) (Status, error)
	QueryMaxDataSize(ctx context.Context, sessionID uint32, chipID string) (int, error)
	QueryTimestamp(ctx context.Context, chipID string) (uint64, error)

	SetCountryCode(ctx context.Context, code string, chipID string) (Status, error)
	SendRawVendorCmd(ctx context.Context, cmd VendorCommand, chipID string) (*VendorResponse, error)
}

// DeviceInfo is the CORE_GET_DEVICE_INFO response of one chip.
type DeviceInfo struct {
	VendorInfo     []byte
	Status         Status
	UCIVersion     uint16
	MACVersion     uint16
	PHYVersion     uint16
	UCITestVersion uint16
}

// Version returns the UCI version as major.minor. The major number is the
// low octet; the minor number is the high nibble of the other.
func (d *DeviceInfo) Version() params.ProtocolVersion {
	return params.Version(int(d.UCIVersion&0xFF), int(d.UCIVersion>>12))
}

// ConfigFailure names one parameter the radio refused.
type ConfigFailure struct {
	Tag    byte
	Status Status
}

// ConfigStatus is the response to a set-configuration command.
type ConfigStatus struct {
	Failed []ConfigFailure
	Status Status
}

// ConfigResponse carries the raw TLVs of a get-configuration or
// capability response.
type ConfigResponse struct {
	TLVs      []byte
	NumParams int
	Status    Status
}

// Multicast list actions.
const (
	MulticastAdd                byte = 0x00
	MulticastDelete             byte = 0x01
	MulticastAddWithShortKey    byte = 0x02
	MulticastAddWithExtendedKey byte = 0x03
)

// MulticastControlee is one entry of a multicast list update.
type MulticastControlee struct {
	Address       params.Address
	SubSessionKey []byte
	SubSessionID  uint32
}

// MulticastUpdate is a controller multicast list update.
type MulticastUpdate struct {
	Controlees []MulticastControlee
	Action     byte
}

// DtTagRoundsStatus reports which requested DL-TDoA rounds were rejected.
type DtTagRoundsStatus struct {
	Rejected []byte
	Status   Status
}

// HybridPhase is one secondary session of a hybrid session.
type HybridPhase struct {
	SessionToken uint32
	StartSlot    uint16
	EndSlot      uint16
}

// HybridSessionConfig schedules secondary sessions inside a primary one.
type HybridSessionConfig struct {
	Phases     []HybridPhase
	SessionID  uint32
	UpdateTime uint64
}

// DataTransferPhaseConfig configures the data transfer phase of a session.
type DataTransferPhaseConfig struct {
	Addresses      []params.Address
	SlotBitmap     []byte
	SessionID      uint32
	Repetition     byte
	Control        byte
	ManagementSize byte
}

// VendorCommand is a raw vendor UCI command.
type VendorCommand struct {
	Payload []byte
	MT      byte
	GID     byte
	OID     byte
}

// VendorResponse is the response to a raw vendor command.
type VendorResponse struct {
	Payload []byte
	Status  Status
	GID     byte
	OID     byte
}
