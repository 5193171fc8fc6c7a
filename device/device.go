// Package device defines the virtual controller adapter: the capability
// interface implemented by each backend and the physical report model shared
// between them.
package device

import (
	"context"
	"errors"
	"fmt"
)

// Kind names a supported virtual controller layout.
type Kind string

const (
	KindXbox360    Kind = "xbox360"
	KindDualShock4 Kind = "dualshock4"
)

// ParseKind normalizes a user-supplied device kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindXbox360:
		return KindXbox360, nil
	case KindDualShock4:
		return KindDualShock4, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
	}
}

// Adapter errors. Connection-time failures are fatal to that attempt only;
// retrying Connect is always legal.
var (
	// ErrNotConnected is returned by UpdateInput without a live connection.
	ErrNotConnected = errors.New("device not connected")
	// ErrUnsupportedKind is returned by Connect for kinds the backend does
	// not implement.
	ErrUnsupportedKind = errors.New("unsupported device kind")
	// ErrDriverUnavailable is returned when the host driver cannot be
	// reached (e.g. /dev/uinput missing or not writable).
	ErrDriverUnavailable = errors.New("virtual device driver unavailable")
	// ErrPluginFailed is returned when the virtual device cannot be
	// registered with the driver.
	ErrPluginFailed = errors.New("failed to plug in virtual device")
	// ErrNotReady is returned when the device registered but did not become
	// ready in time.
	ErrNotReady = errors.New("virtual device not ready")
)

// Device is the capability interface every virtual controller backend
// implements. Connect is idempotent while connected; Disconnect is a no-op
// when already disconnected. Implementations are not required to be
// goroutine-safe: the engine serializes all calls behind its own lock.
type Device interface {
	// Connect registers a virtual device of the given kind with the host.
	Connect(ctx context.Context, kind Kind) error
	// Disconnect unplugs the virtual device. Safe to call repeatedly.
	Disconnect() error
	// UpdateInput applies one physical report to the device.
	UpdateInput(rep *Report) error
	// IsConnected reports whether a virtual device is currently plugged in.
	IsConnected() bool
}
