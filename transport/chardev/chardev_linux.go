//go:build linux

package chardev

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	uwb "github.com/ZaparooProject/go-uwb"
	"github.com/ZaparooProject/go-uwb/internal/frame"
	"github.com/ZaparooProject/go-uwb/internal/logging"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// Transport implements uwb.Transport on a kernel UCI character device.
type Transport struct {
	logger  zerolog.Logger
	path    string
	timeout time.Duration
	fd      int
	mu      sync.RWMutex
	writeMu sync.Mutex
	closed  bool
}

// New opens the character device at path, for example /dev/uwb0.
func New(path string) (*Transport, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, uwb.NewTransportError("open", path, fmt.Errorf("%w: %w", uwb.ErrDeviceNotFound, err),
			uwb.ErrorTypePermanent)
	}
	t := newTransport(fd, path)
	t.logger.Debug().Msg("character device opened")
	return t, nil
}

func newTransport(fd int, path string) *Transport {
	return &Transport{
		fd:      fd,
		path:    path,
		timeout: defaultTimeout,
		logger:  logging.Component("chardev").With().Str("path", path).Logger(),
	}
}

// WritePacket sends one UCI packet.
func (t *Transport) WritePacket(packet []byte) error {
	return t.WritePacketContext(context.Background(), packet)
}

// WritePacketContext writes one UCI packet with a single write(2).
func (t *Transport) WritePacketContext(ctx context.Context, packet []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(packet) > frame.MaxPacketLen {
		return uwb.NewDataTooLargeError("writePacket", t.path)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return uwb.NewTransportError("writePacket", t.path, uwb.ErrTransportClosed, uwb.ErrorTypePermanent)
	}

	for {
		n, err := unix.Write(t.fd, packet)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			if perr := t.poll(ctx, unix.POLLOUT); perr != nil {
				return perr
			}
			continue
		case err != nil:
			return uwb.NewTransportError("writePacket", t.path,
				fmt.Errorf("%w: %w", uwb.ErrTransportWrite, err), uwb.ErrorTypeTransient)
		case n != len(packet):
			return uwb.NewTransportError("writePacket", t.path,
				fmt.Errorf("%w: short write %d of %d", uwb.ErrTransportWrite, n, len(packet)), uwb.ErrorTypeTransient)
		}
		return nil
	}
}

func (t *Transport) poll(ctx context.Context, events int16) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(t.timeout)
	}
	ms := int(time.Until(deadline) / time.Millisecond)
	if ms <= 0 {
		return uwb.NewTimeoutError("poll", t.path)
	}
	fds := []unix.PollFd{{Fd: int32(t.fd), Events: events}}
	n, err := unix.Poll(fds, ms)
	if err != nil && !errors.Is(err, unix.EINTR) {
		return uwb.NewTransportError("poll", t.path, err, uwb.ErrorTypeTransient)
	}
	if n == 0 {
		return uwb.NewTimeoutError("poll", t.path)
	}
	return nil
}

// ReadPacket polls for up to the read timeout and returns the packet
// delivered by one read(2).
func (t *Transport) ReadPacket() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return nil, uwb.NewTransportError("readPacket", t.path, uwb.ErrTransportClosed, uwb.ErrorTypePermanent)
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()
	buf := make([]byte, frame.MaxPacketLen)
	for {
		n, err := unix.Read(t.fd, buf)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			if perr := t.poll(ctx, unix.POLLIN); perr != nil {
				return nil, perr
			}
			continue
		case err != nil:
			return nil, uwb.NewTransportError("readPacket", t.path,
				fmt.Errorf("%w: %w", uwb.ErrTransportRead, err), uwb.ErrorTypeTransient)
		case n == 0:
			return nil, uwb.NewTransportError("readPacket", t.path, uwb.ErrTransportClosed, uwb.ErrorTypePermanent)
		}

		pkt, rest, ok := frame.Split(buf[:n])
		if !ok || len(rest) != 0 {
			t.logger.Debug().Int("len", n).Msg("dropping malformed packet")
			return nil, uwb.NewFrameCorruptedError("readPacket", t.path)
		}
		return pkt, nil
	}
}

// SetTimeout sets the read timeout for the transport
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
	return nil
}

// Close closes the device. It waits for an in-flight ReadPacket, which
// returns within the read timeout.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if err := unix.Close(t.fd); err != nil {
		return fmt.Errorf("failed to close %s: %w", t.path, err)
	}
	return nil
}

// IsConnected returns true if the transport is connected
func (t *Transport) IsConnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return !t.closed
}

// Type returns the transport type
func (*Transport) Type() uwb.TransportType {
	return uwb.TransportCharDev
}

var (
	_ uwb.Transport        = (*Transport)(nil)
	_ uwb.TransportContext = (*Transport)(nil)
)
