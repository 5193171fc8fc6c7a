package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/replaypad/replaypad/device"
	"github.com/replaypad/replaypad/device/linuxinput"
	"github.com/replaypad/replaypad/engine"
	"github.com/replaypad/replaypad/frame"
	"github.com/replaypad/replaypad/internal/log"
	"github.com/replaypad/replaypad/mapping"
)

// Play replays one sequence file on a local virtual device without starting
// the control API. It exits when the sequence completes (unless looping) or
// on interrupt.
type Play struct {
	File string `arg:"" help:"Sequence CSV file" type:"existingfile"`

	Device  string `help:"Device kind to plug in" default:"xbox360" env:"REPLAYPAD_CONNECT"`
	Rate    uint32 `help:"Scheduler tick rate in Hz (1-240)" default:"60" env:"REPLAYPAD_RATE"`
	Loop    bool   `help:"Restart the sequence from the top when it completes" env:"REPLAYPAD_LOOP"`
	Invert  bool   `help:"Swap left and right directions" env:"REPLAYPAD_INVERT"`
	Mapping string `help:"Button mapping preset file (JSON, YAML or TOML)" type:"existingfile" optional:"" env:"REPLAYPAD_MAPPING"`
}

// Run is called by Kong when the play command is executed.
func (p *Play) Run(logger *slog.Logger, reports log.ReportLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, err := os.ReadFile(p.File)
	if err != nil {
		return fmt.Errorf("read sequence %s: %w", p.File, err)
	}
	seq, err := frame.DecodeString(string(data))
	if err != nil {
		return fmt.Errorf("decode sequence %s: %w", p.File, err)
	}

	kind, err := device.ParseKind(p.Device)
	if err != nil {
		return err
	}

	eng := engine.New(linuxinput.New(), logger, reports)
	if err := eng.SetRate(p.Rate); err != nil {
		return err
	}
	eng.SetLoop(p.Loop)
	eng.SetInvertHorizontal(p.Invert)

	if p.Mapping != "" {
		table, _, err := mapping.Load(p.Mapping)
		if err != nil {
			return fmt.Errorf("load mapping %s: %w", p.Mapping, err)
		}
		eng.LoadMapping(table)
	}

	eng.LoadSequence(seq)
	if err := eng.Connect(ctx, kind); err != nil {
		return err
	}
	defer func() {
		if err := eng.Disconnect(); err != nil {
			logger.Debug("disconnect", "error", err)
		}
	}()

	events, cancel := eng.Subscribe()
	defer cancel()

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()
	engErrCh := make(chan error, 1)
	go func() {
		engErrCh <- eng.Run(runCtx)
	}()

	logger.Info("playing sequence", "file", p.File, "steps", seq.Len(), "totalFrames", seq.TotalDuration(), "rate", p.Rate, "loop", p.Loop)
	eng.Start()

	for {
		select {
		case <-ctx.Done():
			eng.Stop()
			runCancel()
			return <-engErrCh
		case ev := <-events:
			if ev.Kind == engine.EventPlayback && ev.State == engine.Stopped.String() {
				logger.Info("sequence complete")
				runCancel()
				return <-engErrCh
			}
		}
	}
}
