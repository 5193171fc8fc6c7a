package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/replaypad/replaypad/device"
	"github.com/replaypad/replaypad/frame"
	"github.com/replaypad/replaypad/internal/log"
	"github.com/replaypad/replaypad/mapping"
)

// Rate limits for the scheduler tick frequency, in Hz.
const (
	MinRate     uint32 = 1
	MaxRate     uint32 = 240
	DefaultRate uint32 = 60
)

var (
	// ErrInvalidRate rejects tick rates outside 1-240 Hz; the previous rate
	// is retained.
	ErrInvalidRate = errors.New("invalid rate")
	// ErrSequenceActive rejects manual input while sequence playback has
	// exclusive control of the device.
	ErrSequenceActive = errors.New("sequence playback active")
)

// EventKind discriminates change notifications.
type EventKind string

const (
	EventPlayback   EventKind = "playback"
	EventConnection EventKind = "connection"
)

// Event is a change notification published exactly once per transition.
type Event struct {
	Kind      EventKind `json:"kind"`
	State     string    `json:"state,omitempty"`
	Connected bool      `json:"connected"`
	Step      int       `json:"step"`
	Total     int       `json:"total"`
}

// Engine owns the shared mutable state of the playback core: the Player, the
// virtual device handle and the configured tick rate, all guarded by one
// mutex so scheduler-driven and manual device writes can never interleave.
// The scheduler loop itself runs in Run for the lifetime of the process.
type Engine struct {
	mu     sync.Mutex
	player *Player
	dev    device.Device
	rate   uint32

	logger *slog.Logger

	subMu sync.Mutex
	subs  map[chan Event]struct{}
}

// New creates an Engine driving the given device backend.
func New(dev device.Device, logger *slog.Logger, reports log.ReportLogger) *Engine {
	return &Engine{
		player: NewPlayer(logger, reports),
		dev:    dev,
		rate:   DefaultRate,
		logger: logger,
		subs:   make(map[chan Event]struct{}),
	}
}

// Run is the scheduler loop. It wakes on periodic timer ticks, re-reads the
// configured rate every cycle and rebuilds its tick interval within one tick
// of a rate change. Ticks are strictly sequential: an update always finishes
// before the next tick is taken from the timer. Run returns when ctx is
// cancelled.
func (e *Engine) Run(ctx context.Context) error {
	for {
		e.mu.Lock()
		rate := e.rate
		e.mu.Unlock()

		ticker := time.NewTicker(time.Second / time.Duration(rate))

	tick:
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return nil
			case now := <-ticker.C:
				e.mu.Lock()
				if e.rate != rate {
					e.mu.Unlock()
					break tick
				}
				if e.player.State() != Playing {
					e.mu.Unlock()
					continue
				}
				_, transitioned := e.player.Update(now, rate, e.dev)
				ev := e.playbackEventLocked()
				e.mu.Unlock()
				if transitioned {
					e.publish(ev)
				}
			}
		}
		ticker.Stop()
	}
}

// Connect plugs in a virtual device of the given kind.
func (e *Engine) Connect(ctx context.Context, kind device.Kind) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.dev.Connect(ctx, kind); err != nil {
		return err
	}
	e.publish(Event{Kind: EventConnection, Connected: true})
	return nil
}

// Disconnect unplugs the virtual device. Playback, if active, keeps advancing
// with device writes skipped.
func (e *Engine) Disconnect() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.dev.Disconnect(); err != nil {
		return err
	}
	e.publish(Event{Kind: EventConnection, Connected: false})
	return nil
}

// IsConnected reports whether the virtual device is plugged in.
func (e *Engine) IsConnected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dev.IsConnected()
}

// LoadSequence replaces the loaded sequence wholesale. The previous sequence
// stays playable if the caller's decode failed before reaching here; this
// method itself cannot fail.
func (e *Engine) LoadSequence(seq *frame.Sequence) {
	e.mu.Lock()
	transitioned := e.player.Load(seq)
	ev := e.playbackEventLocked()
	e.mu.Unlock()
	if transitioned {
		e.publish(ev)
	}
}

// LoadMapping replaces the button mapping table.
func (e *Engine) LoadMapping(t *mapping.Table) {
	e.mu.Lock()
	e.player.SetMapping(t)
	e.mu.Unlock()
}

// Mapping returns the active mapping table.
func (e *Engine) Mapping() *mapping.Table {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.player.Mapping()
}

// Start begins playback from step 0.
func (e *Engine) Start() {
	e.mu.Lock()
	transitioned := e.player.Start(time.Now())
	ev := e.playbackEventLocked()
	e.mu.Unlock()
	if transitioned {
		e.publish(ev)
	}
}

// Stop halts playback, resets the position and issues one neutral report so
// external observers never see input stuck after the engine halts. Stopping
// an already stopped engine is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	transitioned := e.player.Stop()
	if transitioned {
		e.writeNeutralLocked()
	}
	ev := e.playbackEventLocked()
	e.mu.Unlock()
	if transitioned {
		e.publish(ev)
	}
}

// Pause is an alias for Stop; no paused position is preserved.
func (e *Engine) Pause() { e.Stop() }

// Resume is an alias for Start; playback restarts from step 0.
func (e *Engine) Resume() { e.Start() }

// SetRate configures the scheduler tick rate in Hz. The running loop picks up
// the change within one tick. An out-of-range rate is rejected and the
// previous rate retained.
func (e *Engine) SetRate(rate uint32) error {
	if rate < MinRate || rate > MaxRate {
		return fmt.Errorf("%w: %d not in %d-%d Hz", ErrInvalidRate, rate, MinRate, MaxRate)
	}
	e.mu.Lock()
	e.rate = rate
	e.mu.Unlock()
	return nil
}

// Rate returns the configured tick rate in Hz.
func (e *Engine) Rate() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rate
}

// SetLoop toggles sequence looping.
func (e *Engine) SetLoop(loop bool) {
	e.mu.Lock()
	e.player.SetLoop(loop)
	e.mu.Unlock()
}

// SetInvertHorizontal toggles the left/right direction swap.
func (e *Engine) SetInvertHorizontal(invert bool) {
	e.mu.Lock()
	e.player.SetInvertHorizontal(invert)
	e.mu.Unlock()
}

// Status is a snapshot of the engine's observable state.
type Status struct {
	Connected        bool
	State            PlaybackState
	Step             int
	Total            int
	Rate             uint32
	Loop             bool
	InvertHorizontal bool
}

// Status returns a consistent snapshot of connection and playback state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	step, total := e.player.Progress()
	return Status{
		Connected:        e.dev.IsConnected(),
		State:            e.player.State(),
		Step:             step,
		Total:            total,
		Rate:             e.rate,
		Loop:             e.player.Loop(),
		InvertHorizontal: e.player.InvertHorizontal(),
	}
}

// ManualInput applies a live input event to the device immediately, bypassing
// the scheduler. Manual input is suppressed while a sequence is playing:
// sequence mode has exclusive control of the device.
func (e *Engine) ManualInput(direction uint8, buttons map[string]bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.player.State() == Playing {
		return ErrSequenceActive
	}
	if !e.dev.IsConnected() {
		return device.ErrNotConnected
	}
	f := &frame.Frame{Duration: 1, Direction: direction, Buttons: buttons}
	if err := f.Validate(); err != nil {
		return err
	}
	rep := e.player.buildManualReport(f)
	if err := e.dev.UpdateInput(rep); err != nil {
		return fmt.Errorf("manual input: %w", err)
	}
	e.player.reports.Log(-1, rep.Build())
	return nil
}

// Subscribe registers a notification channel. The returned cancel func must
// be called to release it. Slow subscribers drop events instead of blocking
// the scheduler.
func (e *Engine) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	e.subMu.Lock()
	e.subs[ch] = struct{}{}
	e.subMu.Unlock()
	cancel := func() {
		e.subMu.Lock()
		delete(e.subs, ch)
		e.subMu.Unlock()
	}
	return ch, cancel
}

func (e *Engine) publish(ev Event) {
	e.subMu.Lock()
	for ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	e.subMu.Unlock()
}

// playbackEventLocked snapshots the playback state for notification. Caller
// holds e.mu.
func (e *Engine) playbackEventLocked() Event {
	step, total := e.player.Progress()
	return Event{
		Kind:      EventPlayback,
		State:     e.player.State().String(),
		Connected: e.dev.IsConnected(),
		Step:      step,
		Total:     total,
	}
}

// writeNeutralLocked sends one all-released report, swallowing transient
// failures. Caller holds e.mu.
func (e *Engine) writeNeutralLocked() {
	if !e.dev.IsConnected() {
		return
	}
	rep := device.Neutral()
	if err := e.dev.UpdateInput(rep); err != nil {
		e.logger.Warn("neutral report failed", "error", err)
		return
	}
	e.player.reports.Log(-1, rep.Build())
}
