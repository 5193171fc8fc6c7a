// Package engine contains the sequence playback core: the Player state
// machine that turns a run-length frame list into timed physical reports, and
// the Engine that ticks it from a background scheduler loop.
package engine

import (
	"log/slog"
	"time"

	"github.com/replaypad/replaypad/device"
	"github.com/replaypad/replaypad/frame"
	"github.com/replaypad/replaypad/internal/log"
	"github.com/replaypad/replaypad/mapping"
)

// PlaybackState is the Player's lifecycle state.
type PlaybackState int

const (
	// NoSequence means no frame list is loaded.
	NoSequence PlaybackState = iota
	// Stopped means a frame list is loaded with the position reset to 0.
	Stopped
	// Playing means the player is actively advancing.
	Playing
)

func (s PlaybackState) String() string {
	switch s {
	case NoSequence:
		return "no_sequence"
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	default:
		return "unknown"
	}
}

// Player owns the loaded Sequence, the current playback position and the
// timing origin. Step deadlines are always recomputed from the cumulative
// frame count and a fixed start time, never accumulated per step, so rounding
// errors cannot drift across a long sequence.
//
// Player is not goroutine-safe; the Engine serializes access behind its lock.
type Player struct {
	seq   *frame.Sequence
	table *mapping.Table

	state     PlaybackState
	step      int
	consumed  uint64 // cumulative duration of applied steps, in target frames
	startTime time.Time
	deadline  time.Duration // elapsed-time threshold for the next advance

	loop             bool
	invertHorizontal bool

	logger  *slog.Logger
	reports log.ReportLogger
}

// NewPlayer returns a Player with no sequence loaded and the stock button
// mapping.
func NewPlayer(logger *slog.Logger, reports log.ReportLogger) *Player {
	if reports == nil {
		reports = log.NewReport(nil)
	}
	return &Player{
		table:   mapping.Default(),
		state:   NoSequence,
		logger:  logger,
		reports: reports,
	}
}

// Load replaces the sequence wholesale. A non-empty sequence moves the player
// to Stopped with the position reset; a nil or empty sequence unloads it.
// Returns true when the playback state changed.
func (p *Player) Load(seq *frame.Sequence) bool {
	prev := p.state
	p.resetPosition()
	if seq == nil || seq.Len() == 0 {
		p.seq = nil
		p.state = NoSequence
	} else {
		p.seq = seq
		p.state = Stopped
	}
	return p.state != prev
}

// SetMapping replaces the button mapping table.
func (p *Player) SetMapping(t *mapping.Table) {
	if t != nil {
		p.table = t
	}
}

// Mapping returns the active button mapping table.
func (p *Player) Mapping() *mapping.Table { return p.table }

// SetLoop toggles sequence looping.
func (p *Player) SetLoop(loop bool) { p.loop = loop }

// Loop reports whether looping is enabled.
func (p *Player) Loop() bool { return p.loop }

// SetInvertHorizontal toggles the left/right direction swap.
func (p *Player) SetInvertHorizontal(invert bool) { p.invertHorizontal = invert }

// InvertHorizontal reports whether the left/right swap is active.
func (p *Player) InvertHorizontal() bool { return p.invertHorizontal }

// State returns the current playback state.
func (p *Player) State() PlaybackState { return p.state }

// Progress returns the current step index and the total step count.
func (p *Player) Progress() (step, total int) {
	return p.step, p.seq.Len()
}

// Start begins playback from step 0 with now as the timing origin. A no-op
// unless a sequence is loaded. Returns true when the state changed.
func (p *Player) Start(now time.Time) bool {
	if p.state != Stopped {
		return false
	}
	p.resetPosition()
	p.startTime = now
	p.state = Playing
	return true
}

// Stop halts playback and resets the position to 0. Stopping an already
// stopped player is a no-op. The caller is responsible for issuing one
// neutral report so the device does not latch a stale state; see
// Engine.Stop.
func (p *Player) Stop() bool {
	if p.state != Playing {
		return false
	}
	p.state = Stopped
	p.resetPosition()
	return true
}

// Pause is an alias for Stop: no paused position is preserved and resuming
// restarts from step 0. This mirrors the "pause = soft stop" semantics relied
// on by callers.
func (p *Player) Pause() bool { return p.Stop() }

// Resume is an alias for Start.
func (p *Player) Resume(now time.Time) bool { return p.Start(now) }

func (p *Player) resetPosition() {
	p.step = 0
	p.consumed = 0
	p.deadline = 0
	p.startTime = time.Time{}
}

// Update advances playback by at most one step. Called on every scheduler
// tick with the current time and target rate. Returns whether a physical
// write occurred and whether the playback state transitioned, so the caller
// can emit a state-change notification without polling.
//
// The next-step deadline is recomputed as cumulative-duration / rate from the
// fixed start time. Because the denominator is read fresh on every advance, a
// rate change takes effect on the next deadline computation without
// retroactively rescaling deadlines that already passed.
func (p *Player) Update(now time.Time, rate uint32, dev device.Device) (wrote, transitioned bool) {
	if p.state != Playing || p.seq == nil || p.seq.Len() == 0 {
		return false, false
	}

	elapsed := now.Sub(p.startTime)
	if elapsed < p.deadline {
		return false, false
	}

	if p.step >= p.seq.Len() {
		if p.loop {
			// Each loop cycle gets its own timing origin so rounding
			// cannot accumulate across cycles.
			p.resetPosition()
			p.startTime = now
		} else {
			p.state = Stopped
			p.resetPosition()
			wrote = p.writeReport(dev, device.Neutral(), -1)
			return wrote, true
		}
	}

	f := p.seq.At(p.step)
	wrote = p.writeReport(dev, p.buildReport(f), p.step)

	p.consumed += uint64(f.Duration)
	p.deadline = stepDeadline(p.consumed, rate)
	p.step++
	return wrote, false
}

// stepDeadline converts a cumulative target-frame count into the elapsed-time
// threshold at which the next step becomes due. A zero rate is clamped to
// MinRate so a caller bypassing Engine.SetRate cannot divide by zero.
func stepDeadline(consumed uint64, rate uint32) time.Duration {
	if rate < MinRate {
		rate = MinRate
	}
	return time.Duration(consumed * uint64(time.Second) / uint64(rate))
}

// buildReport resolves a frame into a fresh physical report: direction bits,
// mapped button bits, trigger magnitudes and the frame's analog values.
func (p *Player) buildReport(f *frame.Frame) *device.Report {
	return p.buildReportInvert(f, p.invertHorizontal)
}

// buildManualReport is buildReport without the horizontal invert, which only
// applies to sequence playback.
func (p *Player) buildManualReport(f *frame.Frame) *device.Report {
	return p.buildReportInvert(f, false)
}

func (p *Player) buildReportInvert(f *frame.Frame, invert bool) *device.Report {
	rep := device.Neutral()
	rep.SetDirection(f.Direction, invert)
	rep.SetButtons(p.table.Resolve(f.Buttons))
	rep.LX, rep.LY = f.ThumbLX, f.ThumbLY
	rep.RX, rep.RY = f.ThumbRX, f.ThumbRY
	if f.LeftTrigger > rep.LT {
		rep.LT = f.LeftTrigger
	}
	if f.RightTrigger > rep.RT {
		rep.RT = f.RightTrigger
	}
	return rep
}

// writeReport applies a report to the device. A missing or disconnected
// device skips the write without stalling playback, and a transient write
// failure is logged and swallowed so automated replay keeps running.
func (p *Player) writeReport(dev device.Device, rep *device.Report, step int) bool {
	if dev == nil || !dev.IsConnected() {
		return false
	}
	if err := dev.UpdateInput(rep); err != nil {
		p.logger.Warn("device write failed", "step", step, "error", err)
		return false
	}
	p.reports.Log(step, rep.Build())
	return true
}
