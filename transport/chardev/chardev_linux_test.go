//go:build linux

package chardev

import (
	"context"
	"testing"
	"time"

	uwb "github.com/ZaparooProject/go-uwb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// newPair stands in for a driver: a seqpacket socket keeps one packet per
// read the way the character device does.
func newPair(t *testing.T) (tr *Transport, peer int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_SEQPACKET|unix.SOCK_NONBLOCK, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = unix.Close(fds[1]) })

	tr = newTransport(fds[0], "/dev/uwb0")
	t.Cleanup(func() { _ = tr.Close() })
	return tr, fds[1]
}

func TestReadPacket(t *testing.T) {
	t.Parallel()

	tr, peer := newPair(t)

	_, err := tr.ReadPacket()
	require.ErrorIs(t, err, uwb.ErrTransportTimeout)

	_, err = unix.Write(peer, []byte{0x60, 0x01, 0x00, 0x01, 0x01})
	require.NoError(t, err)
	_, err = unix.Write(peer, []byte{0x40, 0x00, 0x00, 0x05, 0x00})
	require.NoError(t, err)

	pkt, err := tr.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x01, 0x00, 0x01, 0x01}, pkt)

	_, err = tr.ReadPacket()
	assert.ErrorIs(t, err, uwb.ErrFrameCorrupted, "declared length exceeds the packet")
}

func TestWritePacket(t *testing.T) {
	t.Parallel()

	tr, peer := newPair(t)
	require.NoError(t, tr.WritePacket([]byte{0x20, 0x02, 0x00, 0x00}))

	buf := make([]byte, 16)
	n, err := unix.Read(peer, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x20, 0x02, 0x00, 0x00}, buf[:n])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, tr.WritePacketContext(ctx, []byte{0x20, 0x00, 0x00, 0x00}), context.Canceled)
}

func TestClose(t *testing.T) {
	t.Parallel()

	tr, _ := newPair(t)
	require.NoError(t, tr.SetTimeout(10*time.Millisecond))
	assert.Equal(t, uwb.TransportCharDev, tr.Type())
	assert.True(t, tr.IsConnected())

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	assert.False(t, tr.IsConnected())

	_, err := tr.ReadPacket()
	assert.ErrorIs(t, err, uwb.ErrTransportClosed)
}
