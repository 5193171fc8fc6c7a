package engine_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replaypad/replaypad/device"
	"github.com/replaypad/replaypad/engine"
	"github.com/replaypad/replaypad/frame"
	htesting "github.com/replaypad/replaypad/internal/testing"
)

func newPlayer(t *testing.T, csv string) *engine.Player {
	t.Helper()
	p := engine.NewPlayer(slog.Default(), nil)
	if csv != "" {
		seq, err := frame.DecodeString(csv)
		require.NoError(t, err)
		p.Load(seq)
	}
	return p
}

func TestPlayerLoad(t *testing.T) {
	p := engine.NewPlayer(slog.Default(), nil)
	assert.Equal(t, engine.NoSequence, p.State())

	seq, err := frame.DecodeString("duration,direction\n1,5\n")
	require.NoError(t, err)
	assert.True(t, p.Load(seq))
	assert.Equal(t, engine.Stopped, p.State())

	// Reloading while stopped is not a state transition.
	assert.False(t, p.Load(seq))

	assert.True(t, p.Load(nil))
	assert.Equal(t, engine.NoSequence, p.State())
}

func TestPlayerStartStop(t *testing.T) {
	p := newPlayer(t, "duration,direction\n3,5\n")
	now := time.Now()

	assert.True(t, p.Start(now))
	assert.Equal(t, engine.Playing, p.State())

	// Starting while playing is a no-op.
	assert.False(t, p.Start(now))

	assert.True(t, p.Stop())
	assert.Equal(t, engine.Stopped, p.State())
	step, _ := p.Progress()
	assert.Equal(t, 0, step)

	// Stopping again is a no-op.
	assert.False(t, p.Stop())
}

func TestPlayerStartWithoutSequence(t *testing.T) {
	p := engine.NewPlayer(slog.Default(), nil)
	assert.False(t, p.Start(time.Now()))
	assert.Equal(t, engine.NoSequence, p.State())
}

func TestPlayerPauseResumeResetPosition(t *testing.T) {
	p := newPlayer(t, "duration,direction\n3,5\n2,8\n4,2\n")
	dev := htesting.NewConnectedFakeDevice()
	origin := time.Now()

	require.True(t, p.Start(origin))
	p.Update(origin, 60, dev)                  // step 0
	p.Update(origin.Add(time.Second), 60, dev) // step 1

	step, _ := p.Progress()
	assert.Equal(t, 2, step)

	// Pause discards the position entirely.
	assert.True(t, p.Pause())
	step, _ = p.Progress()
	assert.Equal(t, 0, step)

	// Resume restarts from the top with a fresh timing origin.
	later := origin.Add(5 * time.Second)
	require.True(t, p.Resume(later))
	wrote, _ := p.Update(later, 60, dev)
	assert.True(t, wrote)
	step, _ = p.Progress()
	assert.Equal(t, 1, step)
}

// The worked scenario: [(3 frames, neutral), (2 frames, up + button1)] at
// 60 Hz writes the white-glove timeline 0ms, 50ms, auto-stop at ~83ms.
func TestPlayerTimeline(t *testing.T) {
	p := newPlayer(t, "duration,direction,button1\n3,5,0\n2,8,1\n")
	dev := htesting.NewConnectedFakeDevice()
	origin := time.Now()
	require.True(t, p.Start(origin))

	// First tick applies step 0 immediately.
	wrote, transitioned := p.Update(origin, 60, dev)
	assert.True(t, wrote)
	assert.False(t, transitioned)
	require.Len(t, dev.Reports(), 1)
	assert.Equal(t, uint16(0), dev.Reports()[0].Buttons)

	// Before the 50ms deadline nothing happens.
	wrote, _ = p.Update(origin.Add(49*time.Millisecond), 60, dev)
	assert.False(t, wrote)
	require.Len(t, dev.Reports(), 1)

	// At 50ms step 1 is due: d-pad up plus button1 -> A.
	wrote, _ = p.Update(origin.Add(50*time.Millisecond), 60, dev)
	assert.True(t, wrote)
	require.Len(t, dev.Reports(), 2)
	assert.Equal(t, device.ButtonDPadUp|device.ButtonA, dev.Reports()[1].Buttons)

	// At 5/60s ≈ 83.3ms the sequence is exhausted: auto-stop plus one
	// neutral report.
	wrote, transitioned = p.Update(origin.Add(84*time.Millisecond), 60, dev)
	assert.True(t, wrote)
	assert.True(t, transitioned)
	assert.Equal(t, engine.Stopped, p.State())
	require.Len(t, dev.Reports(), 3)
	assert.Equal(t, device.Report{}, dev.Reports()[2])
}

// Deadlines derive from the fixed start time, so a late tick does not push
// later steps back: the schedule recovers instead of drifting.
func TestPlayerNoDriftAcrossJitter(t *testing.T) {
	// Ten steps of 6 frames each at 60 Hz: one step due every 100ms.
	csv := "duration,direction\n"
	for i := 0; i < 10; i++ {
		csv += "6,5\n"
	}
	p := newPlayer(t, csv)
	dev := htesting.NewConnectedFakeDevice()
	origin := time.Now()
	require.True(t, p.Start(origin))

	// Simulate a jittery scheduler: ticks land up to 12ms late.
	elapsed := time.Duration(0)
	writes := 0
	for elapsed < 1200*time.Millisecond && p.State() == engine.Playing {
		jitter := time.Duration((writes%4)*4) * time.Millisecond
		wrote, _ := p.Update(origin.Add(elapsed+jitter), 60, dev)
		if wrote {
			writes++
		}
		elapsed += 16 * time.Millisecond
	}

	// All ten steps plus the final neutral report were written.
	assert.Equal(t, 11, writes)
	assert.Equal(t, engine.Stopped, p.State())
}

func TestPlayerLoopRestartsWithFreshOrigin(t *testing.T) {
	p := newPlayer(t, "duration,direction\n3,5\n")
	p.SetLoop(true)
	dev := htesting.NewConnectedFakeDevice()
	origin := time.Now()
	require.True(t, p.Start(origin))

	p.Update(origin, 60, dev) // cycle 1, step 0
	step, total := p.Progress()
	assert.Equal(t, 1, step)
	assert.Equal(t, 1, total)

	// The cycle ends at 50ms; instead of stopping, playback restarts from
	// step 0 with the restart time as the new origin.
	wrote, transitioned := p.Update(origin.Add(60*time.Millisecond), 60, dev)
	assert.True(t, wrote)
	assert.False(t, transitioned)
	assert.Equal(t, engine.Playing, p.State())
	require.Len(t, dev.Reports(), 2)

	// The next deadline is 50ms after the restart (~110ms), not after the
	// original origin.
	wrote, _ = p.Update(origin.Add(100*time.Millisecond), 60, dev)
	assert.False(t, wrote)
	wrote, _ = p.Update(origin.Add(111*time.Millisecond), 60, dev)
	assert.True(t, wrote)
}

// A rate change affects only deadlines computed after it; elapsed playback is
// never rescaled.
func TestPlayerRateChangeNotRetroactive(t *testing.T) {
	p := newPlayer(t, "duration,direction\n3,5\n3,5\n3,5\n")
	dev := htesting.NewConnectedFakeDevice()
	origin := time.Now()
	require.True(t, p.Start(origin))

	p.Update(origin, 60, dev) // step 0; next deadline 3/60 = 50ms

	// Halve the rate before step 1 is applied. Step 1's deadline was
	// computed at 60 Hz and stays at 50ms.
	wrote, _ := p.Update(origin.Add(50*time.Millisecond), 30, dev)
	assert.True(t, wrote)

	// Step 2's deadline is now cumulative 6 frames at 30 Hz = 200ms.
	wrote, _ = p.Update(origin.Add(150*time.Millisecond), 30, dev)
	assert.False(t, wrote)
	wrote, _ = p.Update(origin.Add(200*time.Millisecond), 30, dev)
	assert.True(t, wrote)
}

// Playback keeps advancing while the device is missing; writes are skipped,
// not queued.
func TestPlayerAdvancesWhileDisconnected(t *testing.T) {
	p := newPlayer(t, "duration,direction\n3,5\n2,8\n")
	dev := htesting.NewFakeDevice() // never connected
	origin := time.Now()
	require.True(t, p.Start(origin))

	wrote, _ := p.Update(origin, 60, dev)
	assert.False(t, wrote)
	step, _ := p.Progress()
	assert.Equal(t, 1, step)

	wrote, _ = p.Update(origin.Add(50*time.Millisecond), 60, dev)
	assert.False(t, wrote)
	step, _ = p.Progress()
	assert.Equal(t, 2, step)

	assert.Empty(t, dev.Reports())
}

// Rates below the engine minimum are clamped so a direct Update call cannot
// divide by zero computing the next deadline.
func TestPlayerZeroRateClamped(t *testing.T) {
	p := newPlayer(t, "duration,direction\n2,5\n")
	dev := htesting.NewConnectedFakeDevice()
	origin := time.Now()
	require.True(t, p.Start(origin))

	wrote, _ := p.Update(origin, 0, dev)
	assert.True(t, wrote)

	// At the clamped 1 Hz rate the 2-frame step holds for 2s.
	wrote, _ = p.Update(origin.Add(time.Second), 0, dev)
	assert.False(t, wrote)
	wrote, transitioned := p.Update(origin.Add(2*time.Second), 0, dev)
	assert.True(t, wrote)
	assert.True(t, transitioned)
	assert.Equal(t, engine.Stopped, p.State())
}

// A failing device write is logged and swallowed; the position advances on
// schedule as if the write had landed.
func TestPlayerAdvancesPastWriteFailures(t *testing.T) {
	p := newPlayer(t, "duration,direction\n3,5\n2,8\n")
	dev := htesting.NewConnectedFakeDevice()
	origin := time.Now()
	require.True(t, p.Start(origin))

	// First write lands, then the device starts erroring out.
	wrote, _ := p.Update(origin, 60, dev)
	assert.True(t, wrote)
	dev.FailWith(errors.New("pipe broken"))

	wrote, _ = p.Update(origin.Add(50*time.Millisecond), 60, dev)
	assert.False(t, wrote)
	step, _ := p.Progress()
	assert.Equal(t, 2, step)
	assert.Equal(t, engine.Playing, p.State())

	// The exhaustion deadline is unchanged; only the neutral write is lost.
	wrote, transitioned := p.Update(origin.Add(84*time.Millisecond), 60, dev)
	assert.False(t, wrote)
	assert.True(t, transitioned)
	assert.Equal(t, engine.Stopped, p.State())
	require.Len(t, dev.Reports(), 1)
}

func TestPlayerUpdateWhenNotPlaying(t *testing.T) {
	p := newPlayer(t, "duration,direction\n3,5\n")
	dev := htesting.NewConnectedFakeDevice()

	wrote, transitioned := p.Update(time.Now(), 60, dev)
	assert.False(t, wrote)
	assert.False(t, transitioned)
	assert.Empty(t, dev.Reports())
}

func TestPlayerInvertHorizontal(t *testing.T) {
	p := newPlayer(t, "duration,direction\n1,4\n")
	p.SetInvertHorizontal(true)
	dev := htesting.NewConnectedFakeDevice()
	origin := time.Now()
	require.True(t, p.Start(origin))

	p.Update(origin, 60, dev)
	require.Len(t, dev.Reports(), 1)
	assert.Equal(t, device.ButtonDPadRight, dev.Reports()[0].Buttons)
}

func TestPlayerSequenceTriggersViaMapping(t *testing.T) {
	// button7 maps to LT, button8 to RT in the stock layout.
	p := newPlayer(t, "duration,direction,button7,button8\n1,5,1,0\n")
	dev := htesting.NewConnectedFakeDevice()
	origin := time.Now()
	require.True(t, p.Start(origin))

	p.Update(origin, 60, dev)
	require.Len(t, dev.Reports(), 1)
	rep := dev.Reports()[0]
	assert.Equal(t, uint8(255), rep.LT)
	assert.Equal(t, uint8(0), rep.RT)
	assert.Equal(t, uint16(0), rep.Buttons)
}
