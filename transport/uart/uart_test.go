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

package uart

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	uwb "github.com/ZaparooProject/go-uwb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePort hands out queued reads one chunk at a time and reports (0, nil)
// when the queue is empty, the way a serial read timeout does.
type fakePort struct {
	written   bytes.Buffer
	writeErrs []error
	reads     [][]byte
	timeout   time.Duration
	mu        sync.Mutex
	closed    bool
}

func (f *fakePort) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reads) == 0 {
		return 0, nil
	}
	n := copy(p, f.reads[0])
	f.reads[0] = f.reads[0][n:]
	if len(f.reads[0]) == 0 {
		f.reads = f.reads[1:]
	}
	return n, nil
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.writeErrs) > 0 {
		err := f.writeErrs[0]
		f.writeErrs = f.writeErrs[1:]
		return 0, err
	}
	return f.written.Write(p)
}

func (f *fakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakePort) SetReadTimeout(t time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeout = t
	return nil
}

func (*fakePort) ResetInputBuffer() error { return nil }

func newFake(t *testing.T, reads ...[]byte) (*Transport, *fakePort) {
	t.Helper()
	fp := &fakePort{reads: reads}
	tr, err := newTransport(fp, "/dev/ttyACM0")
	require.NoError(t, err)
	return tr, fp
}

func TestTransportCreation(t *testing.T) {
	t.Parallel()

	tr, fp := newFake(t)
	assert.Equal(t, uwb.TransportUART, tr.Type())
	assert.True(t, tr.IsConnected())
	assert.Equal(t, defaultTimeout, fp.timeout)

	require.NoError(t, tr.SetTimeout(time.Second))
	assert.Equal(t, time.Second, fp.timeout)

	require.NoError(t, tr.Close())
	assert.True(t, fp.closed)
	assert.False(t, tr.IsConnected())
	require.NoError(t, tr.Close())
}

func TestReadPacket_Framing(t *testing.T) {
	t.Parallel()

	// Two packets glued together, then one split across reads.
	tr, _ := newFake(t,
		[]byte{0x40, 0x00, 0x00, 0x01, 0x00, 0x60, 0x01, 0x00},
		[]byte{0x01, 0x01},
		[]byte{0x02, 0x00, 0x02},
		[]byte{0x00, 0xAA, 0xBB},
	)

	pkt, err := tr.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x40, 0x00, 0x00, 0x01, 0x00}, pkt)

	pkt, err = tr.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x01, 0x00, 0x01, 0x01}, pkt)

	pkt, err = tr.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x00, 0x02, 0x00, 0xAA, 0xBB}, pkt)

	_, err = tr.ReadPacket()
	assert.ErrorIs(t, err, uwb.ErrTransportTimeout)
}

func TestReadPacket_PartialSurvivesTimeout(t *testing.T) {
	t.Parallel()

	tr, fp := newFake(t, []byte{0x40, 0x02, 0x00, 0x03, 0x00})

	_, err := tr.ReadPacket()
	require.ErrorIs(t, err, uwb.ErrTransportTimeout)

	fp.mu.Lock()
	fp.reads = append(fp.reads, []byte{0x01, 0x02})
	fp.mu.Unlock()

	pkt, err := tr.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x40, 0x02, 0x00, 0x03, 0x00, 0x01, 0x02}, pkt)
}

func TestReadPacket_Closed(t *testing.T) {
	t.Parallel()

	tr, _ := newFake(t)
	require.NoError(t, tr.Close())

	_, err := tr.ReadPacket()
	assert.ErrorIs(t, err, uwb.ErrTransportClosed)
	assert.ErrorIs(t, tr.WritePacket([]byte{0x20, 0x00, 0x00, 0x00}), uwb.ErrTransportClosed)
}

func TestWritePacket(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr   error
		name      string
		writeErrs []error
	}{
		{name: "clean write"},
		{name: "recovers after transient errors", writeErrs: []error{errors.New("EAGAIN"), errors.New("EAGAIN")}},
		{
			name:      "gives up after retries",
			writeErrs: []error{errors.New("EIO"), errors.New("EIO"), errors.New("EIO")},
			wantErr:   uwb.ErrTransportWrite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tr, fp := newFake(t)
			fp.writeErrs = tt.writeErrs

			pkt := []byte{0x20, 0x02, 0x00, 0x00}
			err := tr.WritePacket(pkt)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.True(t, uwb.IsRetryable(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, pkt, fp.written.Bytes())
		})
	}
}

func TestWritePacketContext_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr, fp := newFake(t)
	err := tr.WritePacketContext(ctx, []byte{0x20, 0x00, 0x00, 0x00})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, fp.written.Len())

	err = tr.WritePacket(make([]byte, 0x10005))
	assert.ErrorIs(t, err, uwb.ErrDataTooLarge)
}
