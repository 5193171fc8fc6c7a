// Package config declares the CLI surface parsed by kong. Configuration may
// come from flags, environment variables or JSON/YAML/TOML config files; the
// candidate file locations are produced by internal/configpaths.
package config

import (
	"github.com/replaypad/replaypad/internal/cmd"
)

// LogConfig groups the logging flags shared by every command.
type LogConfig struct {
	Level      string `help:"Log level (trace, debug, info, warn, error)" enum:"trace,debug,info,warn,error" default:"info" env:"REPLAYPAD_LOG_LEVEL"`
	File       string `help:"Log file path (empty logs to console only)" env:"REPLAYPAD_LOG_FILE"`
	ReportFile string `help:"File to append hex dumps of every physical report written to the device" env:"REPLAYPAD_REPORT_LOG_FILE"`
}

// CLI is the root command structure.
type CLI struct {
	Log    LogConfig `embed:"" prefix:"log."`
	Config string    `help:"Path to a config file (JSON, YAML or TOML)" env:"REPLAYPAD_CONFIG"`

	Serve     cmd.Serve         `cmd:"" help:"Run the playback engine and its control API"`
	Play      cmd.Play          `cmd:"" help:"Play a sequence file on a local virtual device and exit"`
	Buttons   cmd.Buttons       `cmd:"" help:"List the button columns of a sequence file"`
	Ctl       cmd.Ctl           `cmd:"" help:"Send a command to a running server"`
	ConfigGen cmd.ConfigCommand `cmd:"" name:"config" help:"Configuration file helpers"`
}
