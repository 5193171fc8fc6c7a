// Package testing provides shared fakes for engine and API tests.
package testing

import (
	"context"
	"sync"

	"github.com/replaypad/replaypad/device"
)

// FakeDevice is an in-memory device.Device that records every report written
// to it. Safe for concurrent use.
type FakeDevice struct {
	mu        sync.Mutex
	connected bool
	kind      device.Kind
	reports   []device.Report
	failWith  error
}

// NewFakeDevice returns a disconnected fake.
func NewFakeDevice() *FakeDevice { return &FakeDevice{} }

// NewConnectedFakeDevice returns a fake already plugged in as an xbox360 pad.
func NewConnectedFakeDevice() *FakeDevice {
	return &FakeDevice{connected: true, kind: device.KindXbox360}
}

func (f *FakeDevice) Connect(_ context.Context, kind device.Kind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.connected = true
	f.kind = kind
	return nil
}

func (f *FakeDevice) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *FakeDevice) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *FakeDevice) UpdateInput(rep *device.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return device.ErrNotConnected
	}
	if f.failWith != nil {
		return f.failWith
	}
	f.reports = append(f.reports, *rep)
	return nil
}

// Reports returns a copy of every report written so far.
func (f *FakeDevice) Reports() []device.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]device.Report, len(f.reports))
	copy(out, f.reports)
	return out
}

// LastReport returns the most recent report, or nil when none were written.
func (f *FakeDevice) LastReport() *device.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reports) == 0 {
		return nil
	}
	rep := f.reports[len(f.reports)-1]
	return &rep
}

// FailWith makes every subsequent Connect/UpdateInput return err.
func (f *FakeDevice) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith = err
}
