//go:build linux

// Package linuxinput plugs a virtual gamepad into the kernel via uinput and
// translates physical reports into evdev button and axis events.
package linuxinput

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bendahl/uinput"

	"github.com/replaypad/replaypad/device"
)

const (
	uinputDev  = "/dev/uinput"
	deviceName = "replaypad virtual gamepad"

	// Advertised as a Microsoft pad so games pick the xbox360 layout.
	vendorID  = 0x045e
	productID = 0x028e

	// Give udev a moment to create the event node before the first report.
	settleDelay = 50 * time.Millisecond
)

// Reports carry triggers as 0-255 magnitudes; uinput only offers digital
// trigger buttons, so anything at or above half scale counts as pressed.
const triggerThreshold = 128

// buttonKeys maps report bits to evdev gamepad keys. D-Pad bits are handled
// separately through the hat axes.
var buttonKeys = map[uint16]int{
	device.ButtonA:         uinput.ButtonSouth,
	device.ButtonB:         uinput.ButtonEast,
	device.ButtonX:         uinput.ButtonWest,
	device.ButtonY:         uinput.ButtonNorth,
	device.ButtonLShoulder: uinput.ButtonBumperLeft,
	device.ButtonRShoulder: uinput.ButtonBumperRight,
	device.ButtonBack:      uinput.ButtonSelect,
	device.ButtonStart:     uinput.ButtonStart,
	device.ButtonLThumb:    uinput.ButtonThumbLeft,
	device.ButtonRThumb:    uinput.ButtonThumbRight,
	device.ButtonGuide:     uinput.ButtonMode,
}

var hatDirections = map[uint16]uinput.HatDirection{
	device.ButtonDPadUp:    uinput.HatUp,
	device.ButtonDPadDown:  uinput.HatDown,
	device.ButtonDPadLeft:  uinput.HatLeft,
	device.ButtonDPadRight: uinput.HatRight,
}

// Pad is the uinput-backed virtual gamepad. uinput delivers state as discrete
// press/release events, so Pad keeps the previously applied report and emits
// only the delta.
type Pad struct {
	gamepad   uinput.Gamepad
	kind      device.Kind
	prev      device.Report
	connected bool
}

// New returns a disconnected Pad.
func New() *Pad { return &Pad{} }

// Connect registers the virtual gamepad with the kernel. A no-op while
// already connected. Only the xbox360 layout is implemented.
func (p *Pad) Connect(ctx context.Context, kind device.Kind) error {
	if p.connected {
		return nil
	}
	if kind != device.KindXbox360 {
		return fmt.Errorf("%w: %s is not yet supported", device.ErrUnsupportedKind, kind)
	}

	if _, err := os.Stat(uinputDev); err != nil {
		return fmt.Errorf("%w: %v", device.ErrDriverUnavailable, err)
	}

	g, err := uinput.CreateGamepad(uinputDev, []byte(deviceName), vendorID, productID)
	if err != nil {
		return fmt.Errorf("%w: %v", device.ErrPluginFailed, err)
	}

	select {
	case <-ctx.Done():
		_ = g.Close()
		return fmt.Errorf("%w: %v", device.ErrNotReady, ctx.Err())
	case <-time.After(settleDelay):
	}

	p.gamepad = g
	p.kind = kind
	p.prev = device.Report{}
	p.connected = true
	return nil
}

// Disconnect unplugs the virtual gamepad. A no-op when already disconnected.
func (p *Pad) Disconnect() error {
	if !p.connected {
		return nil
	}
	err := p.gamepad.Close()
	p.gamepad = nil
	p.connected = false
	if err != nil {
		return fmt.Errorf("unplug virtual gamepad: %w", err)
	}
	return nil
}

// IsConnected reports whether the virtual gamepad is plugged in.
func (p *Pad) IsConnected() bool { return p.connected }

// UpdateInput applies one report, emitting press/release events for every
// control whose state changed since the previous report.
func (p *Pad) UpdateInput(rep *device.Report) error {
	if !p.connected {
		return device.ErrNotConnected
	}

	var errs []error

	for bit, key := range buttonKeys {
		now := rep.Buttons&bit != 0
		was := p.prev.Buttons&bit != 0
		switch {
		case now && !was:
			errs = append(errs, p.gamepad.ButtonDown(key))
		case !now && was:
			errs = append(errs, p.gamepad.ButtonUp(key))
		}
	}

	for bit, hat := range hatDirections {
		now := rep.Buttons&bit != 0
		was := p.prev.Buttons&bit != 0
		switch {
		case now && !was:
			errs = append(errs, p.gamepad.HatPress(hat))
		case !now && was:
			errs = append(errs, p.gamepad.HatRelease(hat))
		}
	}

	errs = append(errs, p.updateTrigger(rep.LT, p.prev.LT, uinput.ButtonTriggerLeft))
	errs = append(errs, p.updateTrigger(rep.RT, p.prev.RT, uinput.ButtonTriggerRight))

	if rep.LX != p.prev.LX || rep.LY != p.prev.LY {
		errs = append(errs, p.gamepad.LeftStickMove(axisToFloat(rep.LX), axisToFloat(rep.LY)))
	}
	if rep.RX != p.prev.RX || rep.RY != p.prev.RY {
		errs = append(errs, p.gamepad.RightStickMove(axisToFloat(rep.RX), axisToFloat(rep.RY)))
	}

	p.prev = *rep
	return errors.Join(errs...)
}

func (p *Pad) updateTrigger(now, was uint8, key int) error {
	pressed := now >= triggerThreshold
	wasPressed := was >= triggerThreshold
	switch {
	case pressed && !wasPressed:
		return p.gamepad.ButtonDown(key)
	case !pressed && wasPressed:
		return p.gamepad.ButtonUp(key)
	}
	return nil
}

func axisToFloat(v int16) float32 {
	return float32(v) / 32767.0
}
