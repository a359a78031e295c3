//go:build !linux

package chardev

import (
	"context"
	"time"

	uwb "github.com/ZaparooProject/go-uwb"
)

// Transport is unavailable outside Linux.
type Transport struct{}

// New always fails on this platform.
func New(path string) (*Transport, error) {
	return nil, uwb.NewTransportError("open", path, uwb.ErrDeviceNotFound, uwb.ErrorTypePermanent)
}

func (*Transport) WritePacket([]byte) error { return uwb.ErrTransportClosed }

func (*Transport) WritePacketContext(context.Context, []byte) error { return uwb.ErrTransportClosed }

func (*Transport) ReadPacket() ([]byte, error) { return nil, uwb.ErrTransportClosed }

func (*Transport) SetTimeout(time.Duration) error { return nil }

func (*Transport) Close() error { return nil }

func (*Transport) IsConnected() bool { return false }

func (*Transport) Type() uwb.TransportType { return uwb.TransportCharDev }

var _ uwb.TransportContext = (*Transport)(nil)
