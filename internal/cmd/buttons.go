package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/replaypad/replaypad/frame"
)

// Buttons prints the button column names of a sequence file, in table order.
// Useful for writing a mapping preset that matches an existing recording.
type Buttons struct {
	File string `arg:"" help:"Sequence CSV file" type:"existingfile"`
}

// Run is called by Kong when the buttons command is executed.
func (b *Buttons) Run(logger *slog.Logger) error {
	f, err := os.Open(b.File)
	if err != nil {
		return fmt.Errorf("open sequence %s: %w", b.File, err)
	}
	defer f.Close()

	names, err := frame.ButtonColumns(f)
	if err != nil {
		return fmt.Errorf("read sequence %s: %w", b.File, err)
	}
	if len(names) == 0 {
		fmt.Println("no button columns")
		return nil
	}
	fmt.Println(strings.Join(names, "\n"))
	return nil
}
