package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/replaypad/replaypad/apiclient"
	"github.com/replaypad/replaypad/apitypes"
	"github.com/replaypad/replaypad/internal/configpaths"
)

// Ctl groups the client subcommands that talk to a running server.
type Ctl struct {
	Addr        string `help:"Server address" default:"127.0.0.1:3261" env:"REPLAYPAD_CTL_ADDR"`
	Password    string `help:"API password (defaults to the local key file, if present)" env:"REPLAYPAD_CTL_PASSWORD"`
	AskPassword bool   `help:"Prompt for the API password" name:"ask-password"`

	Ping       CtlPing       `cmd:"" help:"Check connectivity and server version"`
	Status     CtlStatus     `cmd:"" help:"Show connection and playback state"`
	Connect    CtlConnect    `cmd:"" help:"Plug in a virtual device"`
	Disconnect CtlDisconnect `cmd:"" help:"Unplug the virtual device"`
	Load       CtlLoad       `cmd:"" help:"Upload a sequence CSV file"`
	Mapping    CtlMapping    `cmd:"" help:"Upload a button mapping preset (JSON)"`
	Start      CtlStart      `cmd:"" help:"Start playback from the top"`
	Stop       CtlStop       `cmd:"" help:"Stop playback and release all inputs"`
	Pause      CtlPause      `cmd:"" help:"Pause playback (alias for stop)"`
	Resume     CtlResume     `cmd:"" help:"Resume playback (alias for start)"`
	Rate       CtlRate       `cmd:"" help:"Set the scheduler tick rate in Hz"`
	Loop       CtlLoop       `cmd:"" help:"Enable or disable sequence looping"`
	Invert     CtlInvert     `cmd:"" help:"Enable or disable the horizontal direction swap"`
	Manual     CtlManual     `cmd:"" help:"Send a one-shot manual input"`
	Watch      CtlWatch      `cmd:"" help:"Stream change notifications until interrupted"`
}

// client resolves the password and builds the API client. Password sources,
// in order: --ask-password prompt, --password flag / env, the local key file.
func (c *Ctl) client() (*apiclient.Client, error) {
	pwd := c.Password
	if c.AskPassword {
		fmt.Fprint(os.Stderr, "Password: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("read password: %w", err)
		}
		pwd = strings.TrimSpace(string(raw))
	}
	if pwd == "" {
		if dir, err := configpaths.DefaultConfigDir(); err == nil {
			if data, err := os.ReadFile(path.Join(dir, keyFileName)); err == nil {
				pwd = strings.TrimSpace(string(data))
			}
		}
	}
	if pwd == "" {
		return apiclient.New(c.Addr), nil
	}
	return apiclient.NewWithPassword(c.Addr, pwd), nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

type CtlPing struct{}

func (CtlPing) Run(ctl *Ctl) error {
	c, err := ctl.client()
	if err != nil {
		return err
	}
	resp, err := c.Ping()
	if err != nil {
		return err
	}
	return printJSON(resp)
}

type CtlStatus struct{}

func (CtlStatus) Run(ctl *Ctl) error {
	c, err := ctl.client()
	if err != nil {
		return err
	}
	resp, err := c.Status()
	if err != nil {
		return err
	}
	return printJSON(resp)
}

type CtlConnect struct {
	Kind string `arg:"" help:"Device kind (e.g. xbox360)" default:"xbox360"`
}

func (cc *CtlConnect) Run(ctl *Ctl) error {
	c, err := ctl.client()
	if err != nil {
		return err
	}
	resp, err := c.DeviceConnect(cc.Kind)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

type CtlDisconnect struct{}

func (CtlDisconnect) Run(ctl *Ctl) error {
	c, err := ctl.client()
	if err != nil {
		return err
	}
	resp, err := c.DeviceDisconnect()
	if err != nil {
		return err
	}
	return printJSON(resp)
}

type CtlLoad struct {
	File string `arg:"" help:"Sequence CSV file" type:"existingfile"`
}

func (cl *CtlLoad) Run(ctl *Ctl) error {
	c, err := ctl.client()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(cl.File)
	if err != nil {
		return fmt.Errorf("read sequence %s: %w", cl.File, err)
	}
	resp, err := c.SequenceLoad(string(data))
	if err != nil {
		return err
	}
	return printJSON(resp)
}

type CtlMapping struct {
	File string `arg:"" help:"Mapping preset file (JSON)" type:"existingfile"`
}

func (cm *CtlMapping) Run(ctl *Ctl) error {
	c, err := ctl.client()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(cm.File)
	if err != nil {
		return fmt.Errorf("read mapping %s: %w", cm.File, err)
	}
	resp, err := c.MappingLoad(string(data))
	if err != nil {
		return err
	}
	return printJSON(resp)
}

type CtlStart struct{}

func (CtlStart) Run(ctl *Ctl) error { return runPlayback(ctl, "start") }

type CtlStop struct{}

func (CtlStop) Run(ctl *Ctl) error { return runPlayback(ctl, "stop") }

type CtlPause struct{}

func (CtlPause) Run(ctl *Ctl) error { return runPlayback(ctl, "pause") }

type CtlResume struct{}

func (CtlResume) Run(ctl *Ctl) error { return runPlayback(ctl, "resume") }

func runPlayback(ctl *Ctl, action string) error {
	c, err := ctl.client()
	if err != nil {
		return err
	}
	resp, err := c.Playback(action)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

type CtlRate struct {
	Rate uint32 `arg:"" help:"Tick rate in Hz (1-240)"`
}

func (cr *CtlRate) Run(ctl *Ctl) error {
	c, err := ctl.client()
	if err != nil {
		return err
	}
	resp, err := c.RateSet(cr.Rate)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

type CtlLoop struct {
	Enabled string `arg:"" help:"true or false"`
}

func (cl *CtlLoop) Run(ctl *Ctl) error {
	enabled, err := strconv.ParseBool(cl.Enabled)
	if err != nil {
		return fmt.Errorf("invalid flag value: %s", cl.Enabled)
	}
	c, err := ctl.client()
	if err != nil {
		return err
	}
	resp, err := c.LoopSet(enabled)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

type CtlInvert struct {
	Enabled string `arg:"" help:"true or false"`
}

func (ci *CtlInvert) Run(ctl *Ctl) error {
	enabled, err := strconv.ParseBool(ci.Enabled)
	if err != nil {
		return fmt.Errorf("invalid flag value: %s", ci.Enabled)
	}
	c, err := ctl.client()
	if err != nil {
		return err
	}
	resp, err := c.InvertSet(enabled)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

type CtlManual struct {
	Direction uint8    `help:"Numpad direction 1-9 (5 is neutral)" default:"5"`
	Buttons   []string `arg:"" optional:"" help:"Button names to press (e.g. button1 button5)"`
}

func (cm *CtlManual) Run(ctl *Ctl) error {
	c, err := ctl.client()
	if err != nil {
		return err
	}
	buttons := make(map[string]uint8, len(cm.Buttons))
	for _, name := range cm.Buttons {
		buttons[name] = 1
	}
	if err := c.ManualInput(apitypes.ManualInputRequest{Direction: cm.Direction, Buttons: buttons}); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

type CtlWatch struct{}

func (CtlWatch) Run(ctl *Ctl, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := ctl.client()
	if err != nil {
		return err
	}
	events, err := c.Events(ctx)
	if err != nil {
		return err
	}
	for ev := range events {
		out, err := json.Marshal(ev)
		if err != nil {
			logger.Warn("marshal event", "error", err)
			continue
		}
		fmt.Println(string(out))
	}
	return nil
}
