//go:build linux

package chardev

import (
	"context"

	"github.com/ZaparooProject/go-uwb/detection"
	"github.com/ZaparooProject/go-uwb/transport/chardev"
)

const supported = true

func probeDevice(ctx context.Context, path string) (map[string]string, error) {
	t, err := chardev.New(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = t.Close() }()
	return detection.Probe(ctx, t)
}
