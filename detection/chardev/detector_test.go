//go:build linux

package chardev

import (
	"context"
	"errors"
	"testing"

	"github.com/ZaparooProject/go-uwb/detection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	t.Parallel()

	d := &detector{
		glob: func(pattern string) ([]string, error) {
			switch pattern {
			case "/dev/uwb*":
				return []string{"/dev/uwb0", "/dev/uwb1"}, nil
			case "/dev/sr1xx*":
				return []string{"/dev/sr1xx"}, nil
			}
			return nil, nil
		},
		probe: func(_ context.Context, path string) (map[string]string, error) {
			if path == "/dev/uwb0" {
				return map[string]string{"uci_version": "1.1.0"}, nil
			}
			return nil, errors.New("permission denied")
		},
	}

	opts := detection.Options{Mode: detection.Safe, IgnorePaths: []string{"/dev/uwb1"}}
	devices, err := d.Detect(context.Background(), &opts)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, detection.High, devices[0].Confidence)
	assert.Equal(t, "1.1.0", devices[0].Metadata["uci_version"])
	assert.Equal(t, "/dev/sr1xx", devices[1].Path)
	assert.Equal(t, detection.Medium, devices[1].Confidence)
	assert.Equal(t, "permission denied", devices[1].Metadata["probe_error"])

	passive := detection.Options{Mode: detection.Passive}
	devices, err = d.Detect(context.Background(), &passive)
	require.NoError(t, err)
	assert.Len(t, devices, 3)
}

func TestDetect_NoNodes(t *testing.T) {
	t.Parallel()

	d := &detector{glob: func(string) ([]string, error) { return nil, nil }}
	_, err := d.Detect(context.Background(), &detection.Options{})
	assert.ErrorIs(t, err, detection.ErrNoDevicesFound)
}
