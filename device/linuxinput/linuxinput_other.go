//go:build !linux

// Package linuxinput plugs a virtual gamepad into the kernel via uinput.
// On non-Linux platforms the backend is unavailable and Connect always fails.
package linuxinput

import (
	"context"
	"fmt"
	"runtime"

	"github.com/replaypad/replaypad/device"
)

// Pad is the uinput-backed virtual gamepad; unavailable on this platform.
type Pad struct{}

// New returns a disconnected Pad.
func New() *Pad { return &Pad{} }

func (p *Pad) Connect(ctx context.Context, kind device.Kind) error {
	return fmt.Errorf("%w: uinput is not available on %s", device.ErrDriverUnavailable, runtime.GOOS)
}

func (p *Pad) Disconnect() error { return nil }

func (p *Pad) IsConnected() bool { return false }

func (p *Pad) UpdateInput(rep *device.Report) error { return device.ErrNotConnected }
