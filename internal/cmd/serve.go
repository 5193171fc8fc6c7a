package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"

	"github.com/replaypad/replaypad/device"
	"github.com/replaypad/replaypad/device/linuxinput"
	"github.com/replaypad/replaypad/engine"
	"github.com/replaypad/replaypad/frame"
	"github.com/replaypad/replaypad/internal/configpaths"
	"github.com/replaypad/replaypad/internal/log"
	"github.com/replaypad/replaypad/internal/server/api"
	"github.com/replaypad/replaypad/internal/server/api/auth"
	"github.com/replaypad/replaypad/internal/server/api/handler"
	"github.com/replaypad/replaypad/internal/util"
	"github.com/replaypad/replaypad/mapping"
)

const keyFileName = "replaypad.key.txt"

// Serve runs the playback engine for the lifetime of the process and exposes
// it over the control API.
type Serve struct {
	ApiServerConfig api.ServerConfig `embed:"" prefix:"api."`

	Rate    uint32 `help:"Scheduler tick rate in Hz (1-240)" default:"60" env:"REPLAYPAD_RATE"`
	Loop    bool   `help:"Restart the sequence from the top when it completes" env:"REPLAYPAD_LOOP"`
	Invert  bool   `help:"Swap left and right directions during sequence playback" env:"REPLAYPAD_INVERT"`
	Connect string `help:"Device kind to plug in at startup (e.g. xbox360; empty starts disconnected)" env:"REPLAYPAD_CONNECT"`

	Sequence string `help:"Sequence CSV file to preload" type:"existingfile" optional:"" env:"REPLAYPAD_SEQUENCE"`
	Mapping  string `help:"Button mapping preset file (JSON, YAML or TOML)" type:"existingfile" optional:"" env:"REPLAYPAD_MAPPING"`

	NoAuth bool `help:"Serve the API unauthenticated and unencrypted" env:"REPLAYPAD_NO_AUTH"`
}

// Run is called by Kong when the serve command is executed.
func (s *Serve) Run(logger *slog.Logger, reports log.ReportLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.StartServer(ctx, logger, reports)
}

// StartServer wires the engine, device backend and control API together and
// blocks until ctx is cancelled or the API server fails.
func (s *Serve) StartServer(ctx context.Context, logger *slog.Logger, reports log.ReportLogger) error {
	if !s.NoAuth && s.ApiServerConfig.Password == "" {
		pwd, err := loadOrCreateKeyFile(logger)
		if err != nil {
			return err
		}
		s.ApiServerConfig.Password = pwd
	}

	eng := engine.New(linuxinput.New(), logger, reports)
	if err := eng.SetRate(s.Rate); err != nil {
		return err
	}
	eng.SetLoop(s.Loop)
	eng.SetInvertHorizontal(s.Invert)

	if s.Mapping != "" {
		table, doc, err := mapping.Load(s.Mapping)
		if err != nil {
			return fmt.Errorf("load mapping %s: %w", s.Mapping, err)
		}
		eng.LoadMapping(table)
		logger.Info("mapping loaded", "file", s.Mapping, "controllerType", doc.ControllerType, "buttons", table.Len())
	}

	if s.Sequence != "" {
		data, err := os.ReadFile(s.Sequence)
		if err != nil {
			return fmt.Errorf("read sequence %s: %w", s.Sequence, err)
		}
		seq, err := frame.DecodeString(string(data))
		if err != nil {
			return fmt.Errorf("decode sequence %s: %w", s.Sequence, err)
		}
		eng.LoadSequence(seq)
		logger.Info("sequence loaded", "file", s.Sequence, "steps", seq.Len(), "totalFrames", seq.TotalDuration())
	}

	if s.Connect != "" {
		kind, err := device.ParseKind(s.Connect)
		if err != nil {
			return err
		}
		if err := eng.Connect(ctx, kind); err != nil {
			// The device can still be connected later through the API.
			logger.Warn("startup device connect failed", "kind", kind, "error", err)
		}
	}

	engErrCh := make(chan error, 1)
	go func() {
		engErrCh <- eng.Run(ctx)
	}()

	if s.ApiServerConfig.Addr == "" {
		return fmt.Errorf("control API address must be set (default :3261)")
	}

	apiSrv := api.New(eng, s.ApiServerConfig, logger)
	handler.Register(apiSrv.Router(), eng)

	if err := apiSrv.Start(); err != nil {
		logger.Error("failed to start control API", "error", err)
		if util.IsRunFromGUI() {
			fmt.Println("Press any key to exit...")
			b := make([]byte, 1)
			_, _ = os.Stdin.Read(b)
		}
		return err
	}

	if util.IsRunFromGUI() {
		go util.HideConsoleWindowSoon()
	}

	<-ctx.Done()
	apiSrv.Close()
	eng.Stop()
	if err := eng.Disconnect(); err != nil {
		logger.Debug("disconnect on shutdown", "error", err)
	}
	return <-engErrCh
}

// loadOrCreateKeyFile reads the API password from the key file, generating
// and persisting a fresh one on first run.
func loadOrCreateKeyFile(logger *slog.Logger) (string, error) {
	keyFileDir, err := configpaths.DefaultConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve key file path: %w", err)
	}
	keyFilePath := path.Join(keyFileDir, keyFileName)
	if pwd, err := os.ReadFile(keyFilePath); err == nil {
		return strings.TrimSpace(string(pwd)), nil
	}
	newPwd, err := auth.GenerateKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate new API password: %w", err)
	}
	if err := os.MkdirAll(keyFileDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config dir for key file: %w", err)
	}
	if err := os.WriteFile(keyFilePath, []byte(newPwd), 0o600); err != nil {
		return "", fmt.Errorf("failed to write new API password to file: %w", err)
	}
	logger.Info("Generated API server password", "path", keyFilePath)
	logger.Info("-------------------------------------")
	logger.Info("Your API server password is:")
	logger.Info("-------------------------------------")
	logger.Info(newPwd)
	logger.Info("-------------------------------------")
	logger.Info("You can change this password at any time by editing the file")
	return newPwd, nil
}
