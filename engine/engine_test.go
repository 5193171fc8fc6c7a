package engine_test

import (
	"context"
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

func newEngine(t *testing.T, dev device.Device, csv string) *engine.Engine {
	t.Helper()
	eng := engine.New(dev, slog.Default(), nil)
	if csv != "" {
		seq, err := frame.DecodeString(csv)
		require.NoError(t, err)
		eng.LoadSequence(seq)
	}
	return eng
}

func TestEngineSetRate(t *testing.T) {
	eng := newEngine(t, htesting.NewFakeDevice(), "")
	assert.Equal(t, engine.DefaultRate, eng.Rate())

	require.NoError(t, eng.SetRate(1))
	assert.Equal(t, uint32(1), eng.Rate())

	require.NoError(t, eng.SetRate(240))
	assert.Equal(t, uint32(240), eng.Rate())

	// Out-of-range rates are rejected and the previous rate retained.
	err := eng.SetRate(0)
	assert.ErrorIs(t, err, engine.ErrInvalidRate)
	assert.Equal(t, uint32(240), eng.Rate())

	err = eng.SetRate(241)
	assert.ErrorIs(t, err, engine.ErrInvalidRate)
	assert.Equal(t, uint32(240), eng.Rate())
}

func TestEngineStatus(t *testing.T) {
	dev := htesting.NewConnectedFakeDevice()
	eng := newEngine(t, dev, "duration,direction\n3,5\n2,8\n")
	eng.SetLoop(true)
	eng.SetInvertHorizontal(true)

	st := eng.Status()
	assert.True(t, st.Connected)
	assert.Equal(t, engine.Stopped, st.State)
	assert.Equal(t, 0, st.Step)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, engine.DefaultRate, st.Rate)
	assert.True(t, st.Loop)
	assert.True(t, st.InvertHorizontal)
}

func TestEngineStopWritesNeutral(t *testing.T) {
	dev := htesting.NewConnectedFakeDevice()
	eng := newEngine(t, dev, "duration,direction\n100,8\n")

	eng.Start()
	eng.Stop()

	reports := dev.Reports()
	require.NotEmpty(t, reports)
	assert.Equal(t, device.Report{}, reports[len(reports)-1])

	// A second stop is a no-op: no extra neutral report.
	n := len(dev.Reports())
	eng.Stop()
	assert.Len(t, dev.Reports(), n)
}

func TestEngineManualInput(t *testing.T) {
	dev := htesting.NewConnectedFakeDevice()
	eng := newEngine(t, dev, "duration,direction\n100,5\n")

	// button1 resolves to A through the stock mapping; direction 6 is right.
	require.NoError(t, eng.ManualInput(frame.DirRight, map[string]bool{"button1": true}))
	rep := dev.LastReport()
	require.NotNil(t, rep)
	assert.Equal(t, device.ButtonDPadRight|device.ButtonA, rep.Buttons)

	// Manual input never applies the horizontal invert.
	eng.SetInvertHorizontal(true)
	require.NoError(t, eng.ManualInput(frame.DirLeft, nil))
	assert.Equal(t, device.ButtonDPadLeft, dev.LastReport().Buttons)
}

func TestEngineManualInputSuppressedWhilePlaying(t *testing.T) {
	dev := htesting.NewConnectedFakeDevice()
	eng := newEngine(t, dev, "duration,direction\n100,5\n")

	eng.Start()
	err := eng.ManualInput(frame.DirUp, nil)
	assert.ErrorIs(t, err, engine.ErrSequenceActive)

	eng.Stop()
	assert.NoError(t, eng.ManualInput(frame.DirUp, nil))
}

func TestEngineManualInputValidation(t *testing.T) {
	dev := htesting.NewConnectedFakeDevice()
	eng := newEngine(t, dev, "")

	err := eng.ManualInput(0, nil)
	assert.ErrorIs(t, err, frame.ErrMalformedInput)

	err = eng.ManualInput(10, nil)
	assert.ErrorIs(t, err, frame.ErrMalformedInput)
}

func TestEngineManualInputRequiresDevice(t *testing.T) {
	eng := newEngine(t, htesting.NewFakeDevice(), "")
	err := eng.ManualInput(frame.DirNeutral, nil)
	assert.ErrorIs(t, err, device.ErrNotConnected)
}

func TestEngineConnectDisconnect(t *testing.T) {
	dev := htesting.NewFakeDevice()
	eng := newEngine(t, dev, "")

	assert.False(t, eng.IsConnected())
	require.NoError(t, eng.Connect(context.Background(), device.KindXbox360))
	assert.True(t, eng.IsConnected())
	require.NoError(t, eng.Disconnect())
	assert.False(t, eng.IsConnected())
}

func TestEngineSubscribe(t *testing.T) {
	dev := htesting.NewConnectedFakeDevice()
	eng := newEngine(t, dev, "duration,direction\n100,5\n")

	events, cancel := eng.Subscribe()
	defer cancel()

	eng.Start()
	select {
	case ev := <-events:
		assert.Equal(t, engine.EventPlayback, ev.Kind)
		assert.Equal(t, "playing", ev.State)
		assert.Equal(t, 1, ev.Total)
	default:
		t.Fatal("expected a playback event after Start")
	}

	eng.Stop()
	select {
	case ev := <-events:
		assert.Equal(t, "stopped", ev.State)
		assert.Equal(t, 0, ev.Step)
	default:
		t.Fatal("expected a playback event after Stop")
	}

	// No event for a redundant stop.
	eng.Stop()
	select {
	case ev := <-events:
		t.Fatalf("unexpected event: %+v", ev)
	default:
	}
}

// End-to-end through the scheduler loop: a short sequence plays to completion
// and stops on its own.
func TestEngineRunPlaysSequence(t *testing.T) {
	dev := htesting.NewConnectedFakeDevice()
	// 2+1 frames at 240 Hz: done after 12.5ms.
	eng := newEngine(t, dev, "duration,direction,button1\n2,5,1\n1,8,0\n")
	require.NoError(t, eng.SetRate(240))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, uncancel := eng.Subscribe()
	defer uncancel()

	done := make(chan error, 1)
	go func() {
		done <- eng.Run(ctx)
	}()

	eng.Start()

	for {
		select {
		case ev := <-events:
			if ev.Kind == engine.EventPlayback && ev.State == "stopped" {
				cancel()
				require.NoError(t, <-done)

				reports := dev.Reports()
				// Two sequence steps plus the closing neutral report.
				require.Len(t, reports, 3)
				assert.Equal(t, device.ButtonA, reports[0].Buttons)
				assert.Equal(t, device.ButtonDPadUp, reports[1].Buttons)
				assert.Equal(t, device.Report{}, reports[2])
				return
			}
		case <-ctx.Done():
			t.Fatal("sequence did not complete in time")
		}
	}
}
