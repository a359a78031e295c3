//go:build !linux

package chardev

import (
	"context"

	"github.com/ZaparooProject/go-uwb/detection"
)

const supported = false

func probeDevice(context.Context, string) (map[string]string, error) {
	return nil, detection.ErrUnsupportedPlatform
}
