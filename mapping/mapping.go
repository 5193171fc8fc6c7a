// Package mapping translates logical (user-facing) button identifiers into
// physical device targets. Several logical buttons may share one physical
// target; resolution OR-combines, so a physical bit is pressed if any of its
// logical sources is pressed.
package mapping

import (
	"errors"
	"fmt"

	"github.com/replaypad/replaypad/device"
)

var (
	// ErrUnknownTarget reports a controller button identifier with no
	// physical equivalent at mapping-load time.
	ErrUnknownTarget = errors.New("unknown controller button")
	// ErrDuplicateButton reports the same user button appearing twice in a
	// mapping document.
	ErrDuplicateButton = errors.New("duplicate user button")
)

// Entry binds one user-facing button name to one or more physical controls.
type Entry struct {
	UserButton       string   `json:"userButton" yaml:"userButton" toml:"userButton"`
	ControllerButton []string `json:"controllerButton" yaml:"controllerButton" toml:"controllerButton"`
	UseInSequence    bool     `json:"useInSequence" yaml:"useInSequence" toml:"useInSequence"`
}

// Document is the external button-mapping preset format.
type Document struct {
	ControllerType string  `json:"controllerType" yaml:"controllerType" toml:"controllerType"`
	Mapping        []Entry `json:"mapping" yaml:"mapping" toml:"mapping"`
}

// Table is the resolved, validated form of a Document.
type Table struct {
	targets map[string][]device.Target
	order   []string
}

// Table validates the document and builds the resolution table. Unknown
// physical identifiers and duplicate user buttons are load-time errors rather
// than silent typo traps.
func (d *Document) Table() (*Table, error) {
	t := &Table{targets: make(map[string][]device.Target, len(d.Mapping))}
	for _, e := range d.Mapping {
		if e.UserButton == "" {
			return nil, fmt.Errorf("mapping entry with empty userButton")
		}
		if _, dup := t.targets[e.UserButton]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateButton, e.UserButton)
		}
		targets := make([]device.Target, 0, len(e.ControllerButton))
		for _, name := range e.ControllerButton {
			target, ok := device.TargetByName(name)
			if !ok {
				return nil, fmt.Errorf("%w: %q (user button %q)", ErrUnknownTarget, name, e.UserButton)
			}
			targets = append(targets, target)
		}
		t.targets[e.UserButton] = targets
		if e.UseInSequence {
			t.order = append(t.order, e.UserButton)
		}
	}
	return t, nil
}

// Resolve OR-combines the physical targets of every pressed logical button.
// Logical buttons absent from the table are dropped: a mapping may omit
// buttons that have no physical equivalent. Resolution is deterministic
// regardless of map iteration order because OR-combination is commutative.
func (t *Table) Resolve(buttons map[string]bool) device.ButtonSet {
	var set device.ButtonSet
	for name, pressed := range buttons {
		if !pressed {
			continue
		}
		for _, target := range t.targets[name] {
			set.Press(target)
		}
	}
	return set
}

// SequenceColumns returns the user buttons flagged for sequence use, in
// document order. This fixes the button column order when a sequence is
// encoded back to a run-length table.
func (t *Table) SequenceColumns() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of mapped user buttons.
func (t *Table) Len() int { return len(t.targets) }

// Default returns the stock twelve-button layout as a resolution table.
func Default() *Table {
	t, err := DefaultDocument().Table()
	if err != nil {
		panic(err) // static table, cannot fail
	}
	return t
}

// DefaultDocument returns the stock twelve-button layout: button1..button12
// bound to A, B, X, Y, LB, RB, LT, RT, Back, Start and the stick buttons, all
// participating in sequences.
func DefaultDocument() *Document {
	return &Document{
		ControllerType: string(device.KindXbox360),
		Mapping: []Entry{
			{UserButton: "button1", ControllerButton: []string{"a"}, UseInSequence: true},
			{UserButton: "button2", ControllerButton: []string{"b"}, UseInSequence: true},
			{UserButton: "button3", ControllerButton: []string{"x"}, UseInSequence: true},
			{UserButton: "button4", ControllerButton: []string{"y"}, UseInSequence: true},
			{UserButton: "button5", ControllerButton: []string{"lb"}, UseInSequence: true},
			{UserButton: "button6", ControllerButton: []string{"rb"}, UseInSequence: true},
			{UserButton: "button7", ControllerButton: []string{"lt"}, UseInSequence: true},
			{UserButton: "button8", ControllerButton: []string{"rt"}, UseInSequence: true},
			{UserButton: "button9", ControllerButton: []string{"back"}, UseInSequence: true},
			{UserButton: "button10", ControllerButton: []string{"start"}, UseInSequence: true},
			{UserButton: "button11", ControllerButton: []string{"lthumb"}, UseInSequence: true},
			{UserButton: "button12", ControllerButton: []string{"rthumb"}, UseInSequence: true},
		},
	}
}
