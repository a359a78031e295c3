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
	"sync"

	"github.com/ZaparooProject/go-uwb/params"
)

// Category groups notifications; each category is delivered in order on
// its own consumer goroutine.
type Category int

const (
	// CategoryDevice carries device status and generic errors.
	CategoryDevice Category = iota
	// CategorySession carries everything bound to a session.
	CategorySession
	// CategoryVendor carries vendor-specific frames.
	CategoryVendor
)

var categories = []Category{CategoryDevice, CategorySession, CategoryVendor}

func (c Category) String() string {
	switch c {
	case CategoryDevice:
		return "device"
	case CategorySession:
		return "session"
	case CategoryVendor:
		return "vendor"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Notification is an unsolicited message from a chip.
type Notification interface {
	Category() Category
	ChipID() string
}

// SessionNotification is a Notification addressed to one session.
type SessionNotification interface {
	Notification
	Session() uint32
}

// NotificationSink receives notifications decoded by a bridge.
type NotificationSink interface {
	Notify(n Notification) error
}

// DeviceState is the state reported in a device status notification.
type DeviceState byte

// Device states.
const (
	DeviceStateReady  DeviceState = 0x01
	DeviceStateActive DeviceState = 0x02
	DeviceStateError  DeviceState = 0xFF
)

func (s DeviceState) String() string {
	switch s {
	case DeviceStateReady:
		return "READY"
	case DeviceStateActive:
		return "ACTIVE"
	case DeviceStateError:
		return "ERROR"
	default:
		return fmt.Sprintf("DEVICE_STATE(0x%02X)", byte(s))
	}
}

// SessionState is the radio-side state of a session.
type SessionState byte

// Session states.
const (
	SessionStateInit   SessionState = 0x00
	SessionStateDeinit SessionState = 0x01
	SessionStateActive SessionState = 0x02
	SessionStateIdle   SessionState = 0x03
)

func (s SessionState) String() string {
	switch s {
	case SessionStateInit:
		return "INIT"
	case SessionStateDeinit:
		return "DEINIT"
	case SessionStateActive:
		return "ACTIVE"
	case SessionStateIdle:
		return "IDLE"
	default:
		return fmt.Sprintf("SESSION_STATE(0x%02X)", byte(s))
	}
}

// Session status reason codes.
const (
	ReasonStateChangeWithSessionCommand   byte = 0x00
	ReasonMaxRangingRoundRetryReached     byte = 0x01
	ReasonMaxNumberOfMeasurementsReached  byte = 0x02
	ReasonSessionSuspendedByHost          byte = 0x03
	ReasonSessionResumedByHost            byte = 0x04
	ReasonErrorSlotLengthNotSupported     byte = 0x20
	ReasonErrorInsufficientSlots          byte = 0x21
	ReasonErrorMacAddressModeNotSupported byte = 0x22
	ReasonErrorInvalidRangingInterval     byte = 0x23
	ReasonErrorInvalidStsConfig           byte = 0x24
	ReasonErrorInvalidRFrameConfig        byte = 0x25
)

// Range measurement types.
const (
	MeasurementOneWay MeasurementType = 0x00
	MeasurementTwoWay MeasurementType = 0x01
	MeasurementDlTdoa MeasurementType = 0x02
	MeasurementOwrAoa MeasurementType = 0x03
)

// MeasurementType is the kind of measurement in a range data notification.
type MeasurementType byte

// DeviceStatus reports a change of chip state.
type DeviceStatus struct {
	Chip  string
	State DeviceState
}

// GenericError is a CORE_GENERIC_ERROR notification.
type GenericError struct {
	Chip   string
	Status Status
}

// SessionStatus reports a session state change.
type SessionStatus struct {
	Chip      string
	SessionID uint32
	State     SessionState
	Reason    byte
}

// TwoWayMeasurement is one peer result of a two-way ranging round.
// Angles are in degrees.
type TwoWayMeasurement struct {
	Address             params.Address
	AoaAzimuth          float64
	AoaElevation        float64
	AoaDestAzimuth      float64
	AoaDestElevation    float64
	Distance            uint16 // cm
	Status              Status
	NLoS                byte
	AoaAzimuthFom       byte
	AoaElevationFom     byte
	AoaDestAzimuthFom   byte
	AoaDestElevationFom byte
	SlotIndex           byte
	RSSI                byte
}

// DlTdoaMeasurement is one anchor message seen by a DL-TDoA tag.
type DlTdoaMeasurement struct {
	Address               params.Address
	AnchorLocation        []byte
	ActiveRangingRounds   []byte
	AoaAzimuth            float64
	AoaElevation          float64
	TxTimestamp           uint64
	RxTimestamp           uint64
	InitiatorReplyTime    uint32
	ResponderReplyTime    uint32
	MessageControl        uint16
	BlockIndex            uint16
	InitiatorResponderTof uint16
	AnchorCfo             int16
	Cfo                   int16
	Status                Status
	MessageType           byte
	RoundIndex            byte
	NLoS                  byte
	AoaAzimuthFom         byte
	AoaElevationFom       byte
	RSSI                  byte
}

// RangeData is a SESSION_INFO_NTF.
type RangeData struct {
	Chip                   string
	TwoWay                 []TwoWayMeasurement
	DlTdoa                 []DlTdoaMeasurement
	SequenceNumber         uint32
	SessionID              uint32
	CurrentRangingInterval uint32 // ms
	RcrIndication          byte
	MeasurementType        MeasurementType
	MacAddressMode         byte
}

// MulticastControleeStatus is the outcome for one controlee.
type MulticastControleeStatus struct {
	Address      params.Address
	SubSessionID uint32
	Status       Status
}

// MulticastListStatus reports the result of a multicast list update.
type MulticastListStatus struct {
	Chip          string
	Controlees    []MulticastControleeStatus
	SessionID     uint32
	RemainingSize byte
}

// DataReceived carries application data from a peer.
type DataReceived struct {
	Chip           string
	Address        params.Address
	Data           []byte
	SessionID      uint32
	SequenceNumber uint16
	Status         Status
}

// DataSendStatus reports the fate of a packet sent with SendData.
type DataSendStatus struct {
	Chip           string
	SessionID      uint32
	SequenceNumber uint16
	Status         Status
	TxCount        byte
}

// DataTransferPhaseConfigStatus reports the result of a data transfer
// phase configuration.
type DataTransferPhaseConfigStatus struct {
	Chip      string
	SessionID uint32
	Status    Status
}

// RadarData carries radar sweep samples.
type RadarData struct {
	Chip            string
	Sweeps          []byte
	SessionID       uint32
	SamplesPerSweep byte
	BitsPerSample   byte
	DataType        byte
	Status          Status
}

// VendorNotification is a notification with a vendor GID.
type VendorNotification struct {
	Chip    string
	Payload []byte
	GID     byte
	OID     byte
}

// Category implements Notification.
func (DeviceStatus) Category() Category { return CategoryDevice }

// ChipID implements Notification.
func (n DeviceStatus) ChipID() string { return n.Chip }

// Category implements Notification.
func (GenericError) Category() Category { return CategoryDevice }

// ChipID implements Notification.
func (n GenericError) ChipID() string { return n.Chip }

func (SessionStatus) Category() Category { return CategorySession }
func (n SessionStatus) ChipID() string   { return n.Chip }
func (n SessionStatus) Session() uint32  { return n.SessionID }

func (RangeData) Category() Category { return CategorySession }
func (n RangeData) ChipID() string   { return n.Chip }
func (n RangeData) Session() uint32  { return n.SessionID }

func (MulticastListStatus) Category() Category { return CategorySession }
func (n MulticastListStatus) ChipID() string   { return n.Chip }
func (n MulticastListStatus) Session() uint32  { return n.SessionID }

func (DataReceived) Category() Category { return CategorySession }
func (n DataReceived) ChipID() string   { return n.Chip }
func (n DataReceived) Session() uint32  { return n.SessionID }

func (DataSendStatus) Category() Category { return CategorySession }
func (n DataSendStatus) ChipID() string   { return n.Chip }
func (n DataSendStatus) Session() uint32  { return n.SessionID }

func (DataTransferPhaseConfigStatus) Category() Category { return CategorySession }
func (n DataTransferPhaseConfigStatus) ChipID() string   { return n.Chip }
func (n DataTransferPhaseConfigStatus) Session() uint32  { return n.SessionID }

func (RadarData) Category() Category { return CategorySession }
func (n RadarData) ChipID() string   { return n.Chip }
func (n RadarData) Session() uint32  { return n.SessionID }

// Category implements Notification.
func (VendorNotification) Category() Category { return CategoryVendor }

// ChipID implements Notification.
func (n VendorNotification) ChipID() string { return n.Chip }

// Handler consumes notifications of one category.
type Handler func(n Notification)

// Dispatcher hands notifications to one listener per category. Each
// category has its own buffered queue drained by one goroutine, so a slow
// session consumer never delays device or vendor notifications.
type Dispatcher struct {
	queues     map[Category]chan Notification
	listeners  map[Category]Handler
	wg         sync.WaitGroup
	mu         sync.RWMutex
	listenerMu sync.RWMutex
	closed     bool
}

// DefaultQueueSize is the per-category buffer used when none is given.
const DefaultQueueSize = 64

// NewDispatcher starts one consumer per category.
func NewDispatcher(queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	d := &Dispatcher{
		queues:    make(map[Category]chan Notification, len(categories)),
		listeners: make(map[Category]Handler, len(categories)),
	}
	for _, c := range categories {
		q := make(chan Notification, queueSize)
		d.queues[c] = q
		d.wg.Add(1)
		go d.consume(c, q)
	}
	return d
}

func (d *Dispatcher) consume(c Category, q <-chan Notification) {
	defer d.wg.Done()
	for n := range q {
		d.listenerMu.RLock()
		h := d.listeners[c]
		d.listenerMu.RUnlock()
		if h != nil {
			deliver(h, n)
		}
	}
}

func deliver(h Handler, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			debugf("notification handler panicked on %T: %v", n, r)
		}
	}()
	h(n)
}

// SetListener makes h the listener for category c, replacing any previous
// one. A nil h drops the category's notifications.
func (d *Dispatcher) SetListener(c Category, h Handler) {
	d.listenerMu.Lock()
	defer d.listenerMu.Unlock()
	if h == nil {
		delete(d.listeners, c)
		return
	}
	d.listeners[c] = h
}

// Notify queues n on its category. It blocks while the queue is full and
// returns ErrDispatcherClosed after Close.
func (d *Dispatcher) Notify(n Notification) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	q, ok := d.queues[n.Category()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidParameter, n.Category())
	}
	q <- n
	return nil
}

// Close stops accepting notifications, drains the queues and waits for
// the consumers to finish.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()
	d.wg.Wait()
	return nil
}
